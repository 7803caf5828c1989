package config

const (
	defaultLibraryDir          = "~/.local/share/crate/library"
	defaultStagingDir          = "~/.local/share/crate/staging"
	defaultLogDir              = "~/.local/share/crate/logs"
	defaultBatchFile           = "~/.local/share/crate/playlist_batch.json"
	defaultTargetAPIURL        = "https://api-partner.spotify.com/pathfinder/v2/query"
	defaultPollIntervalMillis  = 500
	defaultScrollPauseSeconds  = 2
	defaultScrollPixels        = 800
	defaultMinTrackNameLength  = 1
	defaultMinArtistNameLength = 1
	defaultCoverPreferredWidth = 640
	defaultCoverTimeout        = 10
	defaultDownloadMaxRetries  = 3
	defaultDownloadDelay       = 1
	defaultDownloadTimeout     = 300
	defaultRetryBackoffSecs    = 2
	defaultAudioQuality        = "192K"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			BatchFile:  defaultBatchFile,
		},
		Capture: Capture{
			TargetAPIURL:       defaultTargetAPIURL,
			PollIntervalMillis: defaultPollIntervalMillis,
			AutoScroll:         true,
			ScrollPauseSeconds: defaultScrollPauseSeconds,
			ScrollPixels:       defaultScrollPixels,
		},
		Validation: Validation{
			SkipInvalidTracks:   true,
			MinTrackNameLength:  defaultMinTrackNameLength,
			MinArtistNameLength: defaultMinArtistNameLength,
		},
		CoverArt: CoverArt{
			Enabled:        true,
			PreferredWidth: defaultCoverPreferredWidth,
			RequestTimeout: defaultCoverTimeout,
		},
		Downloads: Downloads{
			MaxRetries:       defaultDownloadMaxRetries,
			DelaySeconds:     defaultDownloadDelay,
			AudioQuality:     defaultAudioQuality,
			FetchTimeout:     defaultDownloadTimeout,
			RetryBackoffSecs: defaultRetryBackoffSecs,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
