package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir       string `toml:"data_dir"`
	DownloadDir   string `toml:"download_dir"`
	TranscriptDir string `toml:"transcript_dir"`
	WorkDir       string `toml:"work_dir"`
	LogDir        string `toml:"log_dir"`
	ModelCacheDir string `toml:"model_cache_dir"`
}

// PodcastIndex contains configuration for the Podcast Index API.
type PodcastIndex struct {
	APIKey         string `toml:"api_key"`
	APISecret      string `toml:"api_secret"`
	BaseURL        string `toml:"base_url"`
	UserAgent      string `toml:"user_agent"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Speech contains configuration for local speech-to-text.
type Speech struct {
	Model             string `toml:"model"`
	ModelPath         string `toml:"model_path"`
	WhisperBinary     string `toml:"whisper_binary"`
	FFmpegBinary      string `toml:"ffmpeg_binary"`
	Language          string `toml:"language"`
	Threads           int    `toml:"threads"`
	TranscribeTimeout int    `toml:"transcribe_timeout"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Downloads      bool   `toml:"downloads"`
	Transcripts    bool   `toml:"transcripts"`
	Queue          bool   `toml:"queue"`
	Errors         bool   `toml:"errors"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for podscribe.
//
// Configuration sections by subsystem:
//   - Paths: data, download, transcript, work, log, and model cache directories
//   - PodcastIndex: search credentials and endpoint for podcastindex.org
//   - Speech: whisper model selection and external binary names
//   - Notifications: ntfy push notification settings
//   - Workflow: daemon polling intervals and heartbeat timeouts
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	PodcastIndex  PodcastIndex  `toml:"podcastindex"`
	Speech        Speech        `toml:"speech"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/podscribe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file in the working directory is applied
// before environment fallbacks are read.
func Load(path string) (*Config, string, bool, error) {
	return load(path, true)
}

// LoadWithoutValidation parses and normalizes like Load but skips Validate,
// so inspection commands can render a config that is not yet usable.
func LoadWithoutValidation(path string) (*Config, string, bool, error) {
	return load(path, false)
}

func load(path string, validate bool) (*Config, string, bool, error) {
	_ = godotenv.Load()

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

	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, "", false, err
		}
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

	defaultPath, err := expandPath("~/.config/podscribe/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("podscribe.toml")
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

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.DataDir,
		c.Paths.DownloadDir,
		c.Paths.TranscriptDir,
		c.Paths.WorkDir,
		c.Paths.LogDir,
		c.Paths.ModelCacheDir,
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the queue database location under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "podscribe.db")
}

// WhisperBinary returns the whisper.cpp executable name.
func (c *Config) WhisperBinary() string {
	if bin := strings.TrimSpace(c.Speech.WhisperBinary); bin != "" {
		return bin
	}
	return defaultWhisperBinary
}

// FFmpegBinary returns the ffmpeg executable name used for audio conversion.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Speech.FFmpegBinary); bin != "" {
		return bin
	}
	return defaultFFmpegBinary
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

func defaultModelCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "podscribe", "models")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/podscribe/models"
	}
	return filepath.Join(home, ".cache", "podscribe", "models")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
