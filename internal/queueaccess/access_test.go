package queueaccess_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"podscribe/internal/ipc"
	"podscribe/internal/queue"
	"podscribe/internal/queueaccess"
	"podscribe/internal/testsupport"
)

func TestStoreAccessQueueOperations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	access := queueaccess.NewStoreAccess(cfg, store)
	ctx := context.Background()

	queued := testsupport.NewEpisode(t, store, "Show", "Waiting", "https://cdn.example.com/a.mp3")
	failed := testsupport.NewEpisode(t, store, "Show", "Broken", "https://cdn.example.com/b.mp3")
	failed.Status = queue.StatusFailed
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update: %v", err)
	}

	stats, err := access.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["queued"] != 1 || stats["failed"] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	items, err := access.List(ctx, nil)
	if err != nil || len(items) != 2 {
		t.Fatalf("List = %d items, err %v", len(items), err)
	}
	filtered, err := access.List(ctx, []string{"failed", "bogus-status"})
	if err != nil || len(filtered) != 1 || filtered[0].ID != failed.ID {
		t.Fatalf("filtered List = %+v, err %v", filtered, err)
	}

	described, err := access.Describe(ctx, queued.ID)
	if err != nil || described == nil || described.EpisodeTitle != "Waiting" {
		t.Fatalf("Describe = %+v, err %v", described, err)
	}
	if _, err := access.Describe(ctx, 9999); err == nil {
		t.Fatal("expected describe of missing item to fail")
	}

	retried, err := access.RetryAll(ctx)
	if err != nil || retried != 1 {
		t.Fatalf("RetryAll = %d, err %v", retried, err)
	}

	reset, err := access.ResetStuck(ctx)
	if err != nil || reset != 0 {
		t.Fatalf("ResetStuck = %d, err %v", reset, err)
	}

	cleared, err := access.ClearAll(ctx)
	if err != nil || cleared != 2 {
		t.Fatalf("ClearAll = %d, err %v", cleared, err)
	}
}

func TestStoreAccessEnqueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	access := queueaccess.NewStoreAccess(cfg, store)

	body := `<?xml version="1.0" encoding="UTF-8"?>` +
		`<rss version="2.0"><channel>` +
		`<title>Fallback Show</title><link>https://example.com</link><description>d</description>` +
		`<item><title>Only Episode</title><enclosure url="https://cdn.example.com/1.mp3" length="10" type="audio/mpeg"/></item>` +
		`</channel></rss>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)

	item, err := access.Enqueue(context.Background(), server.URL, 0, "")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if item.PodcastTitle != "Fallback Show" || item.EpisodeTitle != "Only Episode" {
		t.Fatalf("unexpected item: %+v", item)
	}
	if item.Status != string(queue.StatusQueued) {
		t.Fatalf("expected queued, got %s", item.Status)
	}
}

func TestOpenWithFallbackUsesStoreWhenDialFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	dial := func() (*ipc.Client, error) {
		return nil, errors.New("socket missing")
	}
	session, err := queueaccess.OpenWithFallback(cfg, dial, func() (*queue.Store, error) {
		return queue.Open(cfg)
	})
	if err != nil {
		t.Fatalf("OpenWithFallback: %v", err)
	}
	t.Cleanup(func() {
		session.Close()
	})

	stats, err := session.Access.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats via fallback: %v", err)
	}
	if len(stats) != 0 {
		t.Fatalf("expected empty stats, got %+v", stats)
	}
}

func TestOpenWithFallbackReportsStoreError(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	_, err := queueaccess.OpenWithFallback(cfg, nil, func() (*queue.Store, error) {
		return nil, errors.New("disk on fire")
	})
	if err == nil || !strings.Contains(err.Error(), "open queue store") {
		t.Fatalf("expected wrapped store error, got %v", err)
	}

	_, err = queueaccess.OpenWithFallback(cfg, nil, nil)
	if err == nil {
		t.Fatal("expected error when no opener configured")
	}
}

func TestSessionCloseWithoutCleanup(t *testing.T) {
	var session queueaccess.Session
	if err := session.Close(); err != nil {
		t.Fatalf("Close on zero session: %v", err)
	}
}
