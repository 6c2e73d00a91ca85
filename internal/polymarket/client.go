// Package polymarket implements the Gamma API client used as the narrative
// source: top events by volume, active and not yet closed.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/poggufanz/polymarket-sniper/internal/narrative"
)

// DefaultBaseURL is the public Gamma API endpoint.
const DefaultBaseURL = "https://gamma-api.polymarket.com"

// Client fetches trending events from the Gamma API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limit      int
}

// Option configures the client.
type Option func(*Client)

// WithTimeout sets the HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithBaseURL overrides the API endpoint (used in tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithLimit sets how many top-volume events to request.
func WithLimit(n int) Option {
	return func(c *Client) { c.limit = n }
}

// NewClient creates a Gamma API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limit:      20,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// gammaEvent mirrors the subset of the Gamma events payload we consume.
// Volume arrives as a string in some responses, hence json.Number.
type gammaEvent struct {
	Title  string      `json:"title"`
	Volume json.Number `json:"volume"`
}

// TrendingEvents returns active events ordered by descending volume.
func (c *Client) TrendingEvents(ctx context.Context) ([]narrative.TrendingEvent, error) {
	q := url.Values{
		"limit":     {strconv.Itoa(c.limit)},
		"active":    {"true"},
		"closed":    {"false"},
		"order":     {"volume"},
		"ascending": {"false"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gamma events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gamma events: unexpected status %d", resp.StatusCode)
	}

	var raw []gammaEvent
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	now := time.Now()
	events := make([]narrative.TrendingEvent, 0, len(raw))
	for _, ev := range raw {
		vol, _ := ev.Volume.Float64()
		events = append(events, narrative.TrendingEvent{
			Title:     ev.Title,
			VolumeUSD: vol,
			Timestamp: now,
		})
	}
	return events, nil
}
