package workflow

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"podscribe/internal/logging"
	"podscribe/internal/queue"
	"podscribe/internal/services"
)

// laneName labels the single processing lane in logs and contexts.
const laneName = "pipeline"

func (m *Manager) runnerLogger() *slog.Logger {
	if m.logger == nil {
		return logging.NewNop()
	}
	return m.logger.With(
		logging.String(logging.FieldComponent, "workflow-runner"),
		logging.String(logging.FieldLane, laneName),
	)
}

func (m *Manager) stageLogger(ctx context.Context, runnerLogger *slog.Logger) *slog.Logger {
	base := runnerLogger
	if base == nil {
		base = m.logger
	}
	if base == nil {
		base = logging.NewNop()
	}
	return logging.WithContext(ctx, base)
}

func withStageContext(ctx context.Context, stageName string, item *queue.Item, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if item != nil {
		ctx = services.WithItemID(ctx, item.ID)
	}
	if stageName != "" {
		ctx = services.WithStage(ctx, stageName)
	}
	ctx = services.WithLane(ctx, laneName)
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}

func deriveStageLabel(status queue.Status) string {
	if status == "" {
		return ""
	}
	parts := strings.Fields(strings.ReplaceAll(string(status), "_", " "))
	for i, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(strings.ToLower(part))
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}
