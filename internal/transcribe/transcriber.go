package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"podscribe/internal/config"
	"podscribe/internal/fileutil"
	"podscribe/internal/logging"
	"podscribe/internal/notifications"
	"podscribe/internal/queue"
	"podscribe/internal/services"
	"podscribe/internal/stage"
)

// Transcriber turns downloaded audio into a plain-text transcript. It
// implements stage.Handler for the downloaded -> transcribing ->
// completed transition.
type Transcriber struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	service  *Service
	notifier notifications.Service
}

// NewTranscriber builds the transcription stage handler.
func NewTranscriber(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Transcriber {
	return NewTranscriberWithDependencies(cfg, store, logger, NewService(cfg), notifications.NewService(cfg))
}

// NewTranscriberWithService builds the stage with an explicit service,
// letting tests stub the external commands.
func NewTranscriberWithService(cfg *config.Config, store *queue.Store, logger *slog.Logger, service *Service) *Transcriber {
	return NewTranscriberWithDependencies(cfg, store, logger, service, notifications.NewService(cfg))
}

// NewTranscriberWithDependencies allows injecting all collaborators (used in tests).
func NewTranscriberWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, service *Service, notifier notifications.Service) *Transcriber {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "transcribe"))
	}
	return &Transcriber{
		store:    store,
		cfg:      cfg,
		logger:   stageLogger,
		service:  service,
		notifier: notifier,
	}
}

// Prepare verifies the speech model and tooling before any decode work.
// Model problems surface here so the item never enters transcribing with
// a model that cannot load.
func (t *Transcriber) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, t.logger)

	modelPath, err := ResolveModelPath(t.cfg)
	if err != nil {
		return services.Wrap(services.ErrModelLoad, "transcribe", "resolve model",
			"Speech model is not configured", err)
	}
	info, err := os.Stat(modelPath)
	if err != nil {
		return services.Wrap(services.ErrModelLoad, "transcribe", "stat model",
			fmt.Sprintf("Speech model missing at %s; run podscribe model download", modelPath), err)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrModelLoad, "transcribe", "stat model",
			fmt.Sprintf("Speech model at %s is empty", modelPath), nil)
	}
	if _, err := exec.LookPath(t.service.whisperBinary); err != nil {
		return services.Wrap(services.ErrModelLoad, "transcribe", "locate binary",
			fmt.Sprintf("Transcription binary %q not found in PATH", t.service.whisperBinary), err)
	}
	if err := os.MkdirAll(t.cfg.Paths.TranscriptDir, 0o755); err != nil {
		return services.Wrap(services.ErrStorage, "transcribe", "ensure transcript dir",
			"Could not create the transcript directory", err)
	}
	if err := os.MkdirAll(t.cfg.Paths.WorkDir, 0o755); err != nil {
		return services.Wrap(services.ErrStorage, "transcribe", "ensure work dir",
			"Could not create the work directory", err)
	}

	item.InitProgress("Transcribing", "Loading speech model")
	logger.Info("starting transcription",
		logging.String("episode", item.DisplayTitle()),
		logging.String("model", modelPath),
		logging.String("audio_path", item.AudioPath),
	)
	return nil
}

// Execute converts the audio, runs whisper, and writes the transcript.
func (t *Transcriber) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, t.logger)

	audioPath := strings.TrimSpace(item.AudioPath)
	if audioPath == "" {
		return services.Wrap(services.ErrInvalidInput, "transcribe", "validate audio",
			"Episode has no downloaded audio to transcribe", nil)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return services.Wrap(services.ErrStorage, "transcribe", "validate audio",
			fmt.Sprintf("Downloaded audio missing at %s", audioPath), err)
	}
	modelPath, err := ResolveModelPath(t.cfg)
	if err != nil {
		return services.Wrap(services.ErrModelLoad, "transcribe", "resolve model",
			"Speech model is not configured", err)
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	wavPath := filepath.Join(t.cfg.Paths.WorkDir, base+".wav")
	outputPrefix := filepath.Join(t.cfg.Paths.WorkDir, base)

	t.updateProgress(ctx, item, "Converting audio for transcription", 10)
	if err := t.service.ConvertToWAV(ctx, audioPath, wavPath); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return services.Wrap(services.ErrTranscription, "transcribe", "convert audio",
			"Audio could not be converted for transcription", err)
	}
	defer os.Remove(wavPath)

	t.updateProgress(ctx, item, "Transcribing audio", 25)
	segments, err := t.service.Transcribe(ctx, modelPath, wavPath, outputPrefix)
	defer os.Remove(outputPrefix + ".json")
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if IsModelLoadFailure(err) {
			return services.Wrap(services.ErrModelLoad, "transcribe", "load model",
				"Speech model failed to load", err)
		}
		return services.Wrap(services.ErrTranscription, "transcribe", "run whisper",
			"Transcription failed", err)
	}

	text := FlattenSegments(segments)
	t.updateProgress(ctx, item, "Writing transcript", 95)
	target := filepath.Join(t.cfg.Paths.TranscriptDir, base+".txt")
	if err := fileutil.WriteFileAtomic(target, []byte(text), 0o644); err != nil {
		return services.Wrap(services.ErrStorage, "transcribe", "write transcript",
			"Could not write the transcript file", err)
	}

	item.TranscriptPath = target
	lineCount := strings.Count(text, "\n")
	item.SetProgressComplete("Transcribing", fmt.Sprintf("Transcribed %d segments", lineCount))
	logger.Info("transcription complete",
		logging.String("transcript_path", target),
		logging.Int("segments", lineCount),
	)
	if t.notifier != nil {
		if err := t.notifier.Publish(ctx, notifications.EventTranscriptCompleted, notifications.Payload{
			"episode":    item.DisplayTitle(),
			"transcript": target,
		}); err != nil {
			logger.Warn("transcript completion notification failed", logging.Error(err))
		}
	}
	return nil
}

// HealthCheck reports whether the stage can run with the current configuration.
func (t *Transcriber) HealthCheck(ctx context.Context) stage.Health {
	const name = "transcribe"
	if t.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(t.cfg.Paths.TranscriptDir) == "" {
		return stage.Unhealthy(name, "transcript directory not configured")
	}
	if strings.TrimSpace(t.cfg.Paths.WorkDir) == "" {
		return stage.Unhealthy(name, "work directory not configured")
	}
	if t.service == nil {
		return stage.Unhealthy(name, "transcription service unavailable")
	}
	if _, err := exec.LookPath(t.service.whisperBinary); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("whisper binary %q not found", t.service.whisperBinary))
	}
	if _, err := exec.LookPath(t.service.ffmpegBinary); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("ffmpeg binary %q not found", t.service.ffmpegBinary))
	}
	modelPath, err := ResolveModelPath(t.cfg)
	if err != nil {
		return stage.Unhealthy(name, "speech model not configured")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("speech model %q missing", modelPath))
	}
	return stage.Healthy(name)
}

func (t *Transcriber) updateProgress(ctx context.Context, item *queue.Item, message string, percent float64) {
	logger := logging.WithContext(ctx, t.logger)
	copy := *item
	copy.ProgressMessage = message
	copy.ProgressPercent = percent
	if t.store != nil {
		if err := t.store.UpdateProgress(ctx, &copy); err != nil {
			logger.Warn("failed to persist transcription progress", logging.Error(err))
			return
		}
	}
	*item = copy
}
