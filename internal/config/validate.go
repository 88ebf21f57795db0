package config

import (
	"errors"
	"fmt"

	"podscribe/internal/services"
)

// Validate ensures the configuration is usable. Credential checks run here so
// a misconfigured install fails at startup instead of mid-pipeline.
func (c *Config) Validate() error {
	if err := c.validatePodcastIndex(); err != nil {
		return err
	}
	if err := c.validateSpeech(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePodcastIndex() error {
	if c.PodcastIndex.APIKey == "" || c.PodcastIndex.APISecret == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/podscribe/config.toml"
		}
		return fmt.Errorf("%w: podcastindex.api_key and api_secret are required. Set PODCASTINDEX_API_KEY and PODCASTINDEX_API_SECRET env vars or edit %s (create with 'podscribe config init')", services.ErrConfiguration, defaultPath)
	}
	if c.PodcastIndex.RequestTimeout <= 0 {
		return errors.New("podcastindex.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateSpeech() error {
	if c.Speech.Model == "" && c.Speech.ModelPath == "" {
		return fmt.Errorf("%w: speech.model or speech.model_path must be set", services.ErrConfiguration)
	}
	if c.Speech.TranscribeTimeout <= 0 {
		return errors.New("speech.transcribe_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
