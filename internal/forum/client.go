// Package forum fetches scannable text items from public subreddit JSON
// listings. Authentication, pagination cursors and rate-limit budgeting
// are outside the core's contract; the client only applies a bounded
// retry with backoff to ride out transient upstream hiccups.
package forum

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ticker-mention-lab/internal/domain"
)

// Default configuration values.
const (
	DefaultEndpoint    = "https://www.reddit.com"
	DefaultUserAgent   = "ticker-mention-lab/1.0"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0

	// DefaultPageLimit bounds how many newest posts one scan reads per
	// source. A cost ceiling, not a correctness boundary.
	DefaultPageLimit = 100
)

// Client fetches forum items over reddit's public JSON listings.
type Client struct {
	endpoint    string
	userAgent   string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	pageLimit   int
	comments    bool
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithEndpoint overrides the base URL. Intended for tests.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithPageLimit sets the ceiling on newest posts fetched per source.
func WithPageLimit(n int) ClientOption {
	return func(c *Client) {
		c.pageLimit = n
	}
}

// WithComments toggles fetching each post's comment listing.
func WithComments(enabled bool) ClientOption {
	return func(c *Client) {
		c.comments = enabled
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a new forum client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		endpoint:    DefaultEndpoint,
		userAgent:   DefaultUserAgent,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		pageLimit:   DefaultPageLimit,
		comments:    true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the newest items of a source: one item per post, plus one
// per comment when comment fetching is enabled. Comment listings are
// best-effort; a post whose comments fail to load still yields its own
// item.
func (c *Client) Fetch(ctx context.Context, source string) ([]*domain.Item, error) {
	posts, err := c.fetchListing(ctx, fmt.Sprintf("/r/%s/new.json?limit=%d", url.PathEscape(source), c.pageLimit))
	if err != nil {
		return nil, fmt.Errorf("fetch posts for %s: %w", source, err)
	}

	var items []*domain.Item
	for _, post := range posts.Data.Children {
		if post.Kind != "t3" {
			continue
		}

		items = append(items, &domain.Item{
			Text:       post.Data.Title + "\n" + post.Data.SelfText,
			ObservedAt: epochToTime(post.Data.CreatedUTC),
			Kind:       domain.ItemKindPost,
			Source:     source,
		})

		if !c.comments {
			continue
		}
		comments, err := c.fetchComments(ctx, source, post.Data.ID)
		if err != nil {
			// Comments are best-effort; the post itself is already kept.
			continue
		}
		items = append(items, comments...)
	}

	return items, nil
}

// fetchComments loads and flattens the comment tree of one post.
func (c *Client) fetchComments(ctx context.Context, source, postID string) ([]*domain.Item, error) {
	path := fmt.Sprintf("/r/%s/comments/%s.json", url.PathEscape(source), url.PathEscape(postID))

	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	// The comments endpoint returns [postListing, commentListing].
	var listings []listing
	if err := json.Unmarshal(body, &listings); err != nil {
		return nil, fmt.Errorf("unmarshal comment listings: %w", err)
	}
	if len(listings) < 2 {
		return nil, nil
	}

	var items []*domain.Item
	flattenComments(listings[1].Data.Children, source, &items)
	return items, nil
}

// flattenComments walks a comment tree depth-first, collecting every t1
// entry including nested replies.
func flattenComments(things []thing, source string, out *[]*domain.Item) {
	for _, th := range things {
		if th.Kind != "t1" {
			continue
		}

		*out = append(*out, &domain.Item{
			Text:       th.Data.Body,
			ObservedAt: epochToTime(th.Data.CreatedUTC),
			Kind:       domain.ItemKindComment,
			Source:     source,
		})

		// Replies is "" when absent, a listing otherwise.
		if len(th.Data.Replies) == 0 || string(th.Data.Replies) == `""` {
			continue
		}
		var nested listing
		if err := json.Unmarshal(th.Data.Replies, &nested); err != nil {
			continue
		}
		flattenComments(nested.Data.Children, source, out)
	}
}

// fetchListing loads and decodes a single listing endpoint.
func (c *Client) fetchListing(ctx context.Context, path string) (*listing, error) {
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var l listing
	if err := json.Unmarshal(body, &l); err != nil {
		return nil, fmt.Errorf("unmarshal listing: %w", err)
	}
	return &l, nil
}

// get performs a GET with retries and exponential backoff. 429 and 5xx
// responses are retried; other non-200s fail immediately.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (429)")
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("upstream status %d", resp.StatusCode)
		default:
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// epochToTime converts reddit's fractional epoch seconds to UTC.
func epochToTime(epoch float64) time.Time {
	return time.Unix(int64(epoch), 0).UTC()
}
