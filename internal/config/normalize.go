package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePodcastIndex()
	if err := c.normalizeSpeech(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if c.Paths.TranscriptDir, err = expandPath(c.Paths.TranscriptDir); err != nil {
		return fmt.Errorf("paths.transcript_dir: %w", err)
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ModelCacheDir) == "" {
		c.Paths.ModelCacheDir = defaultModelCacheDir()
	}
	if c.Paths.ModelCacheDir, err = expandPath(c.Paths.ModelCacheDir); err != nil {
		return fmt.Errorf("paths.model_cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePodcastIndex() {
	c.PodcastIndex.APIKey = strings.TrimSpace(c.PodcastIndex.APIKey)
	if c.PodcastIndex.APIKey == "" {
		if value, ok := os.LookupEnv("PODCASTINDEX_API_KEY"); ok {
			c.PodcastIndex.APIKey = strings.TrimSpace(value)
		}
	}
	c.PodcastIndex.APISecret = strings.TrimSpace(c.PodcastIndex.APISecret)
	if c.PodcastIndex.APISecret == "" {
		if value, ok := os.LookupEnv("PODCASTINDEX_API_SECRET"); ok {
			c.PodcastIndex.APISecret = strings.TrimSpace(value)
		}
	}
	c.PodcastIndex.BaseURL = strings.TrimRight(strings.TrimSpace(c.PodcastIndex.BaseURL), "/")
	if c.PodcastIndex.BaseURL == "" {
		c.PodcastIndex.BaseURL = defaultIndexBaseURL
	}
	c.PodcastIndex.UserAgent = strings.TrimSpace(c.PodcastIndex.UserAgent)
	if c.PodcastIndex.UserAgent == "" {
		c.PodcastIndex.UserAgent = defaultIndexUserAgent
	}
	if c.PodcastIndex.RequestTimeout <= 0 {
		c.PodcastIndex.RequestTimeout = defaultIndexTimeout
	}
}

func (c *Config) normalizeSpeech() error {
	c.Speech.Model = strings.TrimSpace(c.Speech.Model)
	if c.Speech.Model == "" {
		c.Speech.Model = defaultSpeechModel
	}
	c.Speech.ModelPath = strings.TrimSpace(c.Speech.ModelPath)
	if c.Speech.ModelPath != "" {
		expanded, err := expandPath(c.Speech.ModelPath)
		if err != nil {
			return fmt.Errorf("speech.model_path: %w", err)
		}
		c.Speech.ModelPath = expanded
	}
	c.Speech.WhisperBinary = strings.TrimSpace(c.Speech.WhisperBinary)
	if c.Speech.WhisperBinary == "" {
		c.Speech.WhisperBinary = defaultWhisperBinary
	}
	c.Speech.FFmpegBinary = strings.TrimSpace(c.Speech.FFmpegBinary)
	if c.Speech.FFmpegBinary == "" {
		c.Speech.FFmpegBinary = defaultFFmpegBinary
	}
	c.Speech.Language = strings.ToLower(strings.TrimSpace(c.Speech.Language))
	if c.Speech.Language == "" {
		c.Speech.Language = defaultSpeechLanguage
	}
	if c.Speech.Threads < 0 {
		c.Speech.Threads = 0
	}
	if c.Speech.TranscribeTimeout <= 0 {
		c.Speech.TranscribeTimeout = defaultTranscribeTimeout
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
