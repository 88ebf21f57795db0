package config

const (
	defaultDataDir            = "~/.local/share/podscribe"
	defaultDownloadDir        = "~/.local/share/podscribe/downloads"
	defaultTranscriptDir      = "~/.local/share/podscribe/transcriptions"
	defaultWorkDir            = "~/.local/share/podscribe/work"
	defaultLogDir             = "~/.local/share/podscribe/logs"
	defaultLogRetentionDays   = 60
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultIndexBaseURL       = "https://api.podcastindex.org/api/1.0"
	defaultIndexUserAgent     = "podscribe/dev"
	defaultIndexTimeout       = 10
	defaultSpeechModel        = "base.en"
	defaultWhisperBinary      = "whisper-cli"
	defaultFFmpegBinary       = "ffmpeg"
	defaultSpeechLanguage     = "en"
	defaultTranscribeTimeout  = 3600
	defaultNotifyTimeout      = 10
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:       defaultDataDir,
			DownloadDir:   defaultDownloadDir,
			TranscriptDir: defaultTranscriptDir,
			WorkDir:       defaultWorkDir,
			LogDir:        defaultLogDir,
			ModelCacheDir: defaultModelCacheDir(),
		},
		PodcastIndex: PodcastIndex{
			BaseURL:        defaultIndexBaseURL,
			UserAgent:      defaultIndexUserAgent,
			RequestTimeout: defaultIndexTimeout,
		},
		Speech: Speech{
			Model:             defaultSpeechModel,
			WhisperBinary:     defaultWhisperBinary,
			FFmpegBinary:      defaultFFmpegBinary,
			Language:          defaultSpeechLanguage,
			Threads:           4,
			TranscribeTimeout: defaultTranscribeTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Downloads:      true,
			Transcripts:    true,
			Queue:          true,
			Errors:         true,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
