package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCapture()
	c.normalizeValidation()
	c.normalizeCoverArt()
	c.normalizeDownloads()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.BatchFile) == "" {
		c.Paths.BatchFile = defaultBatchFile
	}
	if c.Paths.BatchFile, err = expandPath(c.Paths.BatchFile); err != nil {
		return fmt.Errorf("paths.batch_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeCapture() {
	c.Capture.TargetAPIURL = strings.TrimSpace(c.Capture.TargetAPIURL)
	if c.Capture.TargetAPIURL == "" {
		c.Capture.TargetAPIURL = defaultTargetAPIURL
	}
	if c.Capture.PollIntervalMillis <= 0 {
		c.Capture.PollIntervalMillis = defaultPollIntervalMillis
	}
	if c.Capture.ScrollPauseSeconds <= 0 {
		c.Capture.ScrollPauseSeconds = defaultScrollPauseSeconds
	}
	if c.Capture.ScrollPixels <= 0 {
		c.Capture.ScrollPixels = defaultScrollPixels
	}
}

func (c *Config) normalizeValidation() {
	if c.Validation.MinTrackNameLength <= 0 {
		c.Validation.MinTrackNameLength = defaultMinTrackNameLength
	}
	if c.Validation.MinArtistNameLength <= 0 {
		c.Validation.MinArtistNameLength = defaultMinArtistNameLength
	}
}

func (c *Config) normalizeCoverArt() {
	if c.CoverArt.PreferredWidth <= 0 {
		c.CoverArt.PreferredWidth = defaultCoverPreferredWidth
	}
	if c.CoverArt.RequestTimeout <= 0 {
		c.CoverArt.RequestTimeout = defaultCoverTimeout
	}
}

func (c *Config) normalizeDownloads() {
	if c.Downloads.MaxRetries <= 0 {
		c.Downloads.MaxRetries = defaultDownloadMaxRetries
	}
	if c.Downloads.DelaySeconds < 0 {
		c.Downloads.DelaySeconds = defaultDownloadDelay
	}
	if c.Downloads.FetchTimeout <= 0 {
		c.Downloads.FetchTimeout = defaultDownloadTimeout
	}
	if c.Downloads.RetryBackoffSecs <= 0 {
		c.Downloads.RetryBackoffSecs = defaultRetryBackoffSecs
	}
	if strings.TrimSpace(c.Downloads.AudioQuality) == "" {
		c.Downloads.AudioQuality = defaultAudioQuality
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = defaultLogRetentionDays
	}
}
