package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"podscribe/internal/config"
	"podscribe/internal/logging"
	"podscribe/internal/notifications"
	"podscribe/internal/queue"
	"podscribe/internal/services"
	"podscribe/internal/stage"

	"golang.org/x/sys/unix"
)

const (
	// chunkSize bounds the copy buffer so large episodes never load into memory.
	chunkSize = 8 * 1024
	// progressByteStep throttles persistence when the server omits Content-Length.
	progressByteStep = 1 << 20
)

// Downloader streams episode audio from the enclosure URL into the
// download directory. It implements stage.Handler for the queued ->
// downloading -> downloaded transition.
type Downloader struct {
	store      *queue.Store
	cfg        *config.Config
	logger     *slog.Logger
	httpClient *http.Client
	notifier   notifications.Service
}

// Option customizes a Downloader.
type Option func(*Downloader)

// WithHTTPClient overrides the HTTP client used to fetch audio.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Downloader) {
		if client != nil {
			d.httpClient = client
		}
	}
}

// WithNotifier overrides the notification service (used in tests).
func WithNotifier(notifier notifications.Service) Option {
	return func(d *Downloader) {
		if notifier != nil {
			d.notifier = notifier
		}
	}
}

// NewDownloader builds the download stage handler. The default client
// carries no overall timeout; long fetches are bounded by the request
// context instead.
func NewDownloader(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...Option) *Downloader {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "download"))
	}
	d := &Downloader{
		store:      store,
		cfg:        cfg,
		logger:     stageLogger,
		httpClient: &http.Client{},
		notifier:   notifications.NewService(cfg),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Prepare validates the episode and ensures the download directory exists.
func (d *Downloader) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, d.logger)

	if !item.HasAudio() {
		return services.Wrap(services.ErrNoAudio, "download", "validate enclosure",
			"Episode has no audio enclosure", nil)
	}
	if FilenameFromURL(item.AudioURL) == "" {
		return services.Wrap(services.ErrNoAudio, "download", "derive filename",
			"Audio URL has no usable file name", nil)
	}
	if err := os.MkdirAll(d.cfg.Paths.DownloadDir, 0o755); err != nil {
		return services.Wrap(services.ErrStorage, "download", "ensure download dir",
			"Could not create the download directory", err)
	}

	item.InitProgress("Downloading", "Preparing download")
	logger.Info("starting audio download",
		logging.String("episode", item.DisplayTitle()),
		logging.String("audio_url", item.AudioURL),
	)
	if d.notifier != nil {
		if err := d.notifier.Publish(ctx, notifications.EventDownloadStarted, notifications.Payload{"episode": item.DisplayTitle()}); err != nil {
			logger.Warn("download start notification failed", logging.Error(err))
		}
	}
	return nil
}

// Execute fetches the audio and records the final path on the item.
// A partial file from a failed fetch is left in place; the next attempt
// truncates and overwrites it.
func (d *Downloader) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, d.logger)

	target := filepath.Join(d.cfg.Paths.DownloadDir, FilenameFromURL(item.AudioURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.AudioURL, nil)
	if err != nil {
		return services.Wrap(services.ErrNetwork, "download", "build request",
			"Audio URL could not be requested", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return services.Wrap(services.ErrNetwork, "download", "fetch audio",
			"Audio server could not be reached", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return services.Wrap(services.ErrNetwork, "download", "fetch audio",
			fmt.Sprintf("Audio server returned %s", resp.Status), nil)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return services.Wrap(services.ErrStorage, "download", "create file",
			"Could not create the audio file", err)
	}

	writer := &progressWriter{
		ctx:        ctx,
		downloader: d,
		item:       item,
		dst:        out,
		total:      resp.ContentLength,
	}
	written, copyErr := io.CopyBuffer(writer, resp.Body, make([]byte, chunkSize))
	closeErr := out.Close()

	if copyErr != nil {
		if errors.Is(copyErr, context.Canceled) || errors.Is(copyErr, context.DeadlineExceeded) {
			logger.Info("download cancelled",
				logging.Int64("bytes_written", written),
				logging.String("partial_file", target),
			)
			return copyErr
		}
		var we *writeFailure
		if errors.As(copyErr, &we) {
			return services.Wrap(services.ErrStorage, "download", "write audio",
				"Could not write the audio file", we.err)
		}
		return services.Wrap(services.ErrNetwork, "download", "stream audio",
			"Audio download was interrupted", copyErr)
	}
	if closeErr != nil {
		return services.Wrap(services.ErrStorage, "download", "close file",
			"Could not finalize the audio file", closeErr)
	}

	item.AudioPath = target
	item.SetProgressComplete("Downloading", fmt.Sprintf("Downloaded %s", formatBytes(written)))
	logger.Info("download complete",
		logging.String("audio_path", target),
		logging.Int64("bytes", written),
	)
	if d.notifier != nil {
		if err := d.notifier.Publish(ctx, notifications.EventDownloadCompleted, notifications.Payload{
			"episode": item.DisplayTitle(),
			"size":    formatBytes(written),
		}); err != nil {
			logger.Warn("download completion notification failed", logging.Error(err))
		}
	}
	return nil
}

// HealthCheck reports whether the stage can run with the current configuration.
func (d *Downloader) HealthCheck(ctx context.Context) stage.Health {
	const name = "download"
	if d.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	dir := strings.TrimSpace(d.cfg.Paths.DownloadDir)
	if dir == "" {
		return stage.Unhealthy(name, "download directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("download directory unavailable: %v", err))
	}
	if err := unix.Access(dir, unix.W_OK); err != nil {
		return stage.Unhealthy(name, "download directory not writable")
	}
	if d.httpClient == nil {
		return stage.Unhealthy(name, "http client unavailable")
	}
	return stage.Healthy(name)
}

// FilenameFromURL derives the local file name for an enclosure URL: the
// last path segment with any query string stripped. Returns "" when the
// URL has no usable path component.
func FilenameFromURL(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	base := path.Base(parsed.Path)
	if base == "." || base == "/" || base == "" {
		return ""
	}
	return base
}

// writeFailure marks an error as originating from the local file rather
// than the network stream so Execute can map it to the right category.
type writeFailure struct {
	err error
}

func (w *writeFailure) Error() string { return w.err.Error() }

func (w *writeFailure) Unwrap() error { return w.err }

// progressWriter persists throttled progress as chunks land and observes
// cancellation at chunk boundaries.
type progressWriter struct {
	ctx        context.Context
	downloader *Downloader
	item       *queue.Item
	dst        io.Writer
	total      int64

	written     int64
	lastPercent float64
	lastBytes   int64
}

func (w *progressWriter) Write(p []byte) (int, error) {
	if err := w.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := w.dst.Write(p)
	if err != nil {
		return n, &writeFailure{err: err}
	}
	w.written += int64(n)
	w.report()
	return n, nil
}

func (w *progressWriter) report() {
	var message string
	var percent float64
	if w.total > 0 {
		percent = float64(w.written) / float64(w.total) * 100
		if percent > 100 {
			percent = 100
		}
		if percent-w.lastPercent < 1 && w.written < w.total {
			return
		}
		w.lastPercent = percent
		message = fmt.Sprintf("Downloading %s of %s", formatBytes(w.written), formatBytes(w.total))
	} else {
		if w.written-w.lastBytes < progressByteStep {
			return
		}
		w.lastBytes = w.written
		message = fmt.Sprintf("Downloading %s", formatBytes(w.written))
	}
	w.downloader.updateProgress(w.ctx, w.item, message, percent)
}

func (d *Downloader) updateProgress(ctx context.Context, item *queue.Item, message string, percent float64) {
	logger := logging.WithContext(ctx, d.logger)
	copy := *item
	copy.ProgressMessage = message
	copy.ProgressPercent = percent
	if d.store != nil {
		if err := d.store.UpdateProgress(ctx, &copy); err != nil {
			logger.Warn("failed to persist download progress", logging.Error(err))
			return
		}
	}
	*item = copy
}

func formatBytes(value int64) string {
	const (
		kiB = 1024
		miB = kiB * 1024
		giB = miB * 1024
	)
	switch {
	case value >= giB:
		return fmt.Sprintf("%.2f GiB", float64(value)/float64(giB))
	case value >= miB:
		return fmt.Sprintf("%.2f MiB", float64(value)/float64(miB))
	case value >= kiB:
		return fmt.Sprintf("%.2f KiB", float64(value)/float64(kiB))
	default:
		return fmt.Sprintf("%d B", value)
	}
}
