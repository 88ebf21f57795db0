package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"podscribe/internal/services"
)

// MaxEpisodes caps how many entries a feed resolution returns.
const MaxEpisodes = 10

const defaultHTTPTimeout = 30 * time.Second

// Episode describes one feed entry as a transcription candidate. AudioURL is
// empty when the entry carries no enclosure; that is a valid state callers
// must check before downloading.
type Episode struct {
	Title    string
	AudioURL string
}

// HasAudio reports whether the entry carried an audio enclosure.
func (e Episode) HasAudio() bool {
	return strings.TrimSpace(e.AudioURL) != ""
}

// Feed bundles the parsed feed title with its episodes in source order.
type Feed struct {
	Title    string
	Episodes []Episode
}

// Resolver fetches and parses podcast feeds.
type Resolver struct {
	parser *gofeed.Parser
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient overrides the HTTP client used for feed fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		if client != nil {
			r.parser.Client = client
		}
	}
}

// WithUserAgent overrides the User-Agent header sent on feed fetches.
func WithUserAgent(agent string) Option {
	return func(r *Resolver) {
		if trimmed := strings.TrimSpace(agent); trimmed != "" {
			r.parser.UserAgent = trimmed
		}
	}
}

// NewResolver creates a feed resolver.
func NewResolver(opts ...Option) *Resolver {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: defaultHTTPTimeout}
	resolver := &Resolver{parser: parser}
	for _, opt := range opts {
		opt(resolver)
	}
	return resolver
}

// Resolve fetches feedURL and returns the feed title plus at most
// MaxEpisodes episodes, preserving the order the source feed provides.
// A feed with zero entries resolves to an empty episode list, not an error.
func (r *Resolver) Resolve(ctx context.Context, feedURL string) (*Feed, error) {
	feedURL = strings.TrimSpace(feedURL)
	if feedURL == "" {
		return nil, services.Wrap(
			services.ErrInvalidInput, "resolve", "validate url",
			"Feed URL must not be empty", nil)
	}

	parsed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, classifyResolveError(err)
	}

	episodes := make([]Episode, 0, MaxEpisodes)
	for _, item := range parsed.Items {
		if len(episodes) == MaxEpisodes {
			break
		}
		if item == nil {
			continue
		}
		episodes = append(episodes, Episode{
			Title:    strings.TrimSpace(item.Title),
			AudioURL: firstEnclosureURL(item),
		})
	}
	return &Feed{Title: strings.TrimSpace(parsed.Title), Episodes: episodes}, nil
}

func firstEnclosureURL(item *gofeed.Item) string {
	for _, enclosure := range item.Enclosures {
		if enclosure == nil {
			continue
		}
		if trimmed := strings.TrimSpace(enclosure.URL); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func classifyResolveError(err error) error {
	var httpErr gofeed.HTTPError
	if errors.As(err, &httpErr) {
		return services.Wrap(
			services.ErrFeedUnreachable, "resolve", "fetch feed",
			fmt.Sprintf("Feed fetch returned %s", httpErr.Status), err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return services.Wrap(
			services.ErrFeedUnreachable, "resolve", "fetch feed",
			"Feed could not be fetched", err)
	}
	return services.Wrap(
		services.ErrFeedParse, "resolve", "parse feed",
		"Feed document could not be parsed", err)
}
