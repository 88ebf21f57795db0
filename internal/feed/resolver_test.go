package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"podscribe/internal/services"
)

func rssDocument(title string, items ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<rss version="2.0"><channel>`)
	fmt.Fprintf(&b, "<title>%s</title><link>https://example.com</link><description>test feed</description>", title)
	for _, item := range items {
		b.WriteString(item)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func rssItem(title, enclosureURL string) string {
	if enclosureURL == "" {
		return fmt.Sprintf("<item><title>%s</title></item>", title)
	}
	return fmt.Sprintf(
		`<item><title>%s</title><enclosure url="%s" length="1024" type="audio/mpeg"/></item>`,
		title, enclosureURL)
}

func serveFeed(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestResolveTruncatesAndPreservesOrder(t *testing.T) {
	items := make([]string, 0, 12)
	for i := 1; i <= 12; i++ {
		items = append(items, rssItem(
			fmt.Sprintf("Episode %d", i),
			fmt.Sprintf("https://cdn.example.com/audio/%d.mp3", i)))
	}
	server := serveFeed(t, rssDocument("Go Time", items...))

	resolver := NewResolver()
	feed, err := resolver.Resolve(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if feed.Title != "Go Time" {
		t.Fatalf("expected feed title Go Time, got %q", feed.Title)
	}
	if len(feed.Episodes) != MaxEpisodes {
		t.Fatalf("expected %d episodes, got %d", MaxEpisodes, len(feed.Episodes))
	}
	for i, episode := range feed.Episodes {
		wantTitle := fmt.Sprintf("Episode %d", i+1)
		wantURL := fmt.Sprintf("https://cdn.example.com/audio/%d.mp3", i+1)
		if episode.Title != wantTitle || episode.AudioURL != wantURL {
			t.Fatalf("episode %d out of order: %+v", i, episode)
		}
	}
}

func TestResolveEntryWithoutEnclosure(t *testing.T) {
	server := serveFeed(t, rssDocument("Show",
		rssItem("Has audio", "https://cdn.example.com/1.mp3"),
		rssItem("Text only", ""),
	))

	resolver := NewResolver()
	feed, err := resolver.Resolve(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(feed.Episodes) != 2 {
		t.Fatalf("expected 2 episodes, got %d", len(feed.Episodes))
	}
	if !feed.Episodes[0].HasAudio() {
		t.Fatalf("expected first episode to have audio: %+v", feed.Episodes[0])
	}
	if feed.Episodes[1].HasAudio() {
		t.Fatalf("expected second episode without audio: %+v", feed.Episodes[1])
	}
}

func TestResolveEmptyFeed(t *testing.T) {
	server := serveFeed(t, rssDocument("Empty Show"))

	resolver := NewResolver()
	feed, err := resolver.Resolve(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(feed.Episodes) != 0 {
		t.Fatalf("expected no episodes, got %d", len(feed.Episodes))
	}
}

func TestResolveHTTPErrorIsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	resolver := NewResolver()
	_, err := resolver.Resolve(context.Background(), server.URL)
	if !errors.Is(err, services.ErrFeedUnreachable) {
		t.Fatalf("expected feed unreachable, got %v", err)
	}
}

func TestResolveTransportErrorIsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	resolver := NewResolver()
	_, err := resolver.Resolve(context.Background(), server.URL)
	if !errors.Is(err, services.ErrFeedUnreachable) {
		t.Fatalf("expected feed unreachable, got %v", err)
	}
}

func TestResolveMalformedDocumentIsParseError(t *testing.T) {
	server := serveFeed(t, "this is not a feed")

	resolver := NewResolver()
	_, err := resolver.Resolve(context.Background(), server.URL)
	if !errors.Is(err, services.ErrFeedParse) {
		t.Fatalf("expected feed parse error, got %v", err)
	}
}

func TestResolveEmptyURLIsInvalidInput(t *testing.T) {
	resolver := NewResolver()
	_, err := resolver.Resolve(context.Background(), "  ")
	if !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
