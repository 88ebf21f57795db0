package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"podscribe/internal/config"
)

const userAgent = "podscribe/dev"

// Event identifies a pipeline milestone that can be pushed.
type Event string

const (
	EventEpisodeQueued       Event = "episode_queued"
	EventDownloadStarted     Event = "download_started"
	EventDownloadCompleted   Event = "download_completed"
	EventTranscriptCompleted Event = "transcript_completed"
	EventQueueStarted        Event = "queue_started"
	EventQueueCompleted      Event = "queue_completed"
	EventError               Event = "error"
)

// Payload carries the event-specific values rendered into the message.
type Payload map[string]any

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventEpisodeQueued: cfg.Notifications.Queue,
			// Start events never push; the status surfaces carry live progress.
			EventDownloadStarted:     false,
			EventDownloadCompleted:   cfg.Notifications.Downloads,
			EventTranscriptCompleted: cfg.Notifications.Transcripts,
			EventQueueStarted:        cfg.Notifications.Queue,
			EventQueueCompleted:      cfg.Notifications.Queue,
			EventError:               cfg.Notifications.Errors,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

// Publish renders the event into an ntfy message and posts it. Events
// suppressed by configuration return nil without a request.
func (n *ntfyService) Publish(ctx context.Context, event Event, data Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := render(event, data)
	if !ok {
		return fmt.Errorf("unknown notification event %q", event)
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, message{
		title:    "Podscribe - Test",
		body:     "🧪 Notification system test",
		tags:     []string{"podscribe", "test"},
		priority: "low",
	})
}

func render(event Event, data Payload) (message, bool) {
	switch event {
	case EventEpisodeQueued:
		return message{
			title: "Podscribe - Episode Queued",
			body:  fmt.Sprintf("Queued: %s", stringValue(data, "episode")),
			tags:  []string{"podscribe", "queue", "added"},
		}, true
	case EventDownloadStarted:
		return message{
			title:    "Podscribe - Download Started",
			body:     fmt.Sprintf("Started downloading: %s", stringValue(data, "episode")),
			tags:     []string{"podscribe", "download", "started"},
			priority: "low",
		}, true
	case EventDownloadCompleted:
		body := fmt.Sprintf("⬇️ Download complete: %s", stringValue(data, "episode"))
		if size := stringValue(data, "size"); size != "" {
			body = fmt.Sprintf("%s (%s)", body, size)
		}
		return message{
			title: "Podscribe - Download Complete",
			body:  body,
			tags:  []string{"podscribe", "download", "completed"},
		}, true
	case EventTranscriptCompleted:
		body := fmt.Sprintf("✅ Transcript ready: %s", stringValue(data, "episode"))
		if file := stringValue(data, "transcript"); file != "" {
			body = fmt.Sprintf("%s\nFile: %s", body, file)
		}
		return message{
			title:    "Podscribe - Transcript Ready",
			body:     body,
			tags:     []string{"podscribe", "transcript", "completed"},
			priority: "high",
		}, true
	case EventQueueStarted:
		return message{
			title: "Podscribe - Queue Started",
			body:  fmt.Sprintf("Started processing queue with %d items", intValue(data, "count")),
			tags:  []string{"podscribe", "queue", "started"},
		}, true
	case EventQueueCompleted:
		processed := intValue(data, "processed")
		failed := intValue(data, "failed")
		duration := durationValue(data, "duration").Round(time.Second)
		if duration < 0 {
			duration = 0
		}
		title := "Podscribe - Queue Complete"
		body := fmt.Sprintf("Queue processing complete: %d items processed in %s", processed, duration)
		if failed > 0 {
			title = "Podscribe - Queue Complete (with errors)"
			body = fmt.Sprintf("Queue processing complete: %d succeeded, %d failed in %s", processed, failed, duration)
		}
		return message{
			title: title,
			body:  body,
			tags:  []string{"podscribe", "queue", "completed"},
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := stringValue(data, "context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if detail := stringValue(data, "error"); detail != "" {
			builder.WriteString(detail)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "Podscribe - Error",
			body:     builder.String(),
			tags:     []string{"podscribe", "error", "alert"},
			priority: "high",
		}, true
	default:
		return message{}, false
	}
}

func stringValue(data Payload, key string) string {
	if data == nil {
		return ""
	}
	switch v := data[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func intValue(data Payload, key string) int {
	if data == nil {
		return 0
	}
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func durationValue(data Payload, key string) time.Duration {
	if data == nil {
		return 0
	}
	if v, ok := data[key].(time.Duration); ok {
		return v
	}
	return 0
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
func (noopService) TestNotification(context.Context) error        { return nil }
