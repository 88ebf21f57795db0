package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"podscribe/internal/feed"
	"podscribe/internal/logging"
	"podscribe/internal/notifications"
	"podscribe/internal/queue"
	"podscribe/internal/services"
)

// EnqueueRequest bundles the collaborators and inputs for queueing one episode.
type EnqueueRequest struct {
	Store        *queue.Store
	Resolver     *feed.Resolver
	Notifier     notifications.Service
	Logger       *slog.Logger
	FeedURL      string
	EpisodeIndex int
	PodcastTitle string
}

// EnqueueResult reports the queued item and the feed context it came from.
type EnqueueResult struct {
	Item      *queue.Item
	FeedTitle string
	Episode   feed.Episode
}

// EnqueueEpisode resolves a feed, picks the requested entry, and writes it to
// the queue. Both the daemon (via IPC) and the CLI fallback share this path.
// Episodes without an audio enclosure are still queued; the download stage
// rejects them with an actionable error before any processing starts.
func EnqueueEpisode(ctx context.Context, req EnqueueRequest) (EnqueueResult, error) {
	if req.Store == nil {
		return EnqueueResult{}, errors.New("queue store is required")
	}
	resolver := req.Resolver
	if resolver == nil {
		resolver = feed.NewResolver()
	}
	logger := req.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	feedURL := strings.TrimSpace(req.FeedURL)
	if feedURL == "" {
		return EnqueueResult{}, services.Wrap(
			services.ErrInvalidInput, "enqueue", "validate url",
			"Feed URL must not be empty", nil)
	}
	if req.EpisodeIndex < 0 {
		return EnqueueResult{}, services.Wrap(
			services.ErrInvalidInput, "enqueue", "validate index",
			fmt.Sprintf("Episode index %d is negative", req.EpisodeIndex), nil)
	}

	resolved, err := resolver.Resolve(ctx, feedURL)
	if err != nil {
		return EnqueueResult{}, err
	}
	if req.EpisodeIndex >= len(resolved.Episodes) {
		return EnqueueResult{}, services.Wrap(
			services.ErrInvalidInput, "enqueue", "select episode",
			fmt.Sprintf("Episode %d not found; feed lists %d episode(s)", req.EpisodeIndex, len(resolved.Episodes)), nil)
	}
	episode := resolved.Episodes[req.EpisodeIndex]

	podcastTitle := strings.TrimSpace(req.PodcastTitle)
	if podcastTitle == "" {
		podcastTitle = resolved.Title
	}

	item, err := req.Store.NewEpisode(ctx, podcastTitle, episode.Title, feedURL, episode.AudioURL)
	if err != nil {
		return EnqueueResult{}, err
	}

	logger.Info("episode queued",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String("episode_title", item.EpisodeTitle),
		logging.String("audio_url", item.AudioURL),
		logging.String(logging.FieldEventType, "episode_queued"))
	if req.Notifier != nil {
		if err := req.Notifier.Publish(ctx, notifications.EventEpisodeQueued, notifications.Payload{
			"episode": item.DisplayTitle(),
		}); err != nil {
			logger.Warn("episode queued notification failed", logging.Error(err))
		}
	}

	return EnqueueResult{Item: item, FeedTitle: resolved.Title, Episode: episode}, nil
}
