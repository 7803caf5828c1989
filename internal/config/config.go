package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LibraryDir string `toml:"library_dir"`
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
	BatchFile  string `toml:"batch_file"`
}

// Capture contains settings for the intercepted-traffic capture session.
type Capture struct {
	TargetAPIURL       string `toml:"target_api_url"`
	PollIntervalMillis int    `toml:"poll_interval_ms"`
	AutoScroll         bool   `toml:"auto_scroll"`
	ScrollPauseSeconds int    `toml:"scroll_pause_seconds"`
	ScrollPixels       int    `toml:"scroll_pixels"`
}

// Validation contains the minimum-quality gate for extracted tracks.
type Validation struct {
	SkipInvalidTracks   bool `toml:"skip_invalid_tracks"`
	MinTrackNameLength  int  `toml:"min_track_name_length"`
	MinArtistNameLength int  `toml:"min_artist_name_length"`
}

// CoverArt contains cover image retrieval settings.
type CoverArt struct {
	Enabled        bool `toml:"enabled"`
	PreferredWidth int  `toml:"preferred_width"`
	RequestTimeout int  `toml:"request_timeout"`
}

// Downloads contains settings for the per-track acquisition loop.
type Downloads struct {
	MaxRetries        int    `toml:"max_retries"`
	DelaySeconds      int    `toml:"delay_seconds"`
	AudioQuality      string `toml:"audio_quality"`
	FetchTimeout      int    `toml:"fetch_timeout"`
	RetryBackoffSecs  int    `toml:"retry_backoff_seconds"`
	KeepStagingCopies bool   `toml:"keep_staging_copies"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for crate.
//
// Configuration sections by subsystem:
//   - Paths: library, staging, log directories, and the batch file
//   - Capture: target endpoint and scroll/poll cadence
//   - Validation: minimum-quality gate for extracted tracks
//   - CoverArt: cover image retrieval
//   - Downloads: acquisition loop retries and pacing
//   - Logging: log format, level, and retention
type Config struct {
	Paths      Paths      `toml:"paths"`
	Capture    Capture    `toml:"capture"`
	Validation Validation `toml:"validation"`
	CoverArt   CoverArt   `toml:"cover_art"`
	Downloads  Downloads  `toml:"downloads"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/crate/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The bool reports whether a file
// was actually found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/crate/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("crate.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LibraryDir, c.Paths.StagingDir, c.Paths.LogDir, c.MetadataDir(), c.SongsDir()} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// MetadataDir returns the directory holding the persisted catalog tables.
func (c *Config) MetadataDir() string {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LibraryDir, "metadata")
}

// SongsDir returns the directory holding consolidated audio files.
func (c *Config) SongsDir() string {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LibraryDir, "songs")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
