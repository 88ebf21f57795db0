package testsupport

import (
	"context"
	"testing"

	"podscribe/internal/config"
	"podscribe/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewEpisode creates a queued episode item for tests using the provided store.
func NewEpisode(t testing.TB, store *queue.Store, podcastTitle, episodeTitle, audioURL string) *queue.Item {
	t.Helper()

	item, err := store.NewEpisode(context.Background(), podcastTitle, episodeTitle, "https://feeds.example.com/feed.xml", audioURL)
	if err != nil {
		t.Fatalf("store.NewEpisode: %v", err)
	}
	return item
}
