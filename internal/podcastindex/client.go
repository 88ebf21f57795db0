package podcastindex

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"podscribe/internal/services"
)

const (
	defaultBaseURL     = "https://api.podcastindex.org/api/1.0"
	defaultUserAgent   = "podscribe/dev"
	defaultHTTPTimeout = 10 * time.Second
)

// Feed represents a single podcast feed returned by a search.
type Feed struct {
	Title   string `json:"title"`
	FeedURL string `json:"url"`
}

type searchResponse struct {
	Feeds []Feed `json:"feeds"`
	Count int    `json:"count"`
}

// Searcher defines the index operations used by the CLI.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Feed, error)
}

// Client provides access to the Podcast Index API.
type Client struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	userAgent  string
	httpClient *http.Client
	now        func() time.Time
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// WithUserAgent overrides the User-Agent header sent with every request.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(agent); trimmed != "" {
			c.userAgent = trimmed
		}
	}
}

// WithClock overrides the clock used to stamp request signatures.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Podcast Index client.
func New(apiKey, apiSecret string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("podcastindex: api key required")
	}
	apiSecret = strings.TrimSpace(apiSecret)
	if apiSecret == "" {
		return nil, errors.New("podcastindex: api secret required")
	}
	client := &Client{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    defaultBaseURL,
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Search queries the index for feeds matching the supplied term.
func (c *Client) Search(ctx context.Context, query string) ([]Feed, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(
			services.ErrInvalidInput, "search", "validate query",
			"Search query must not be empty", nil)
	}

	endpoint, err := url.Parse(c.baseURL + "/search/byterm")
	if err != nil {
		return nil, services.Wrap(
			services.ErrService, "search", "parse url",
			"Invalid podcast index base URL", err)
	}
	params := url.Values{}
	params.Set("q", query)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), nil)
	if err != nil {
		return nil, services.Wrap(
			services.ErrService, "search", "build request",
			"Could not build podcast index request", err)
	}
	c.applyAuth(req)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, services.Wrap(
			services.ErrNetwork, "search", "execute request",
			fmt.Sprintf("Podcast index request failed (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, services.Wrap(
			services.ErrAuth, "search", "authorize",
			fmt.Sprintf("Podcast index rejected the credentials (status %d)", resp.StatusCode), nil)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		snippet := readSnippet(resp.Body)
		detail := fmt.Sprintf("Podcast index returned %s", resp.Status)
		if snippet != "" {
			detail += ": " + snippet
		}
		return nil, services.Wrap(services.ErrService, "search", "search byterm", detail, nil)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(
			services.ErrService, "search", "decode response",
			"Could not decode podcast index response", err)
	}
	if payload.Feeds == nil {
		payload.Feeds = []Feed{}
	}
	return payload.Feeds, nil
}

// applyAuth stamps the time-boxed signature headers the index requires:
// Authorization carries hex(SHA1(key + secret + epoch)) where epoch is the
// same value sent in X-Auth-Date.
func (c *Client) applyAuth(req *http.Request) {
	epoch := strconv.FormatInt(c.now().Unix(), 10)
	digest := sha1.Sum([]byte(c.apiKey + c.apiSecret + epoch))
	req.Header.Set("X-Auth-Date", epoch)
	req.Header.Set("X-Auth-Key", c.apiKey)
	req.Header.Set("Authorization", hex.EncodeToString(digest[:]))
	req.Header.Set("User-Agent", c.userAgent)
}

func readSnippet(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(body))
}
