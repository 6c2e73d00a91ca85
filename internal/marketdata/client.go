// Package marketdata implements the DexScreener snapshot client used by the
// Tier0 data fetch.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/poggufanz/polymarket-sniper/internal/domain"
)

// ErrNotFound indicates no trading pair exists for the mint yet.
var ErrNotFound = errors.New("marketdata: pair not found")

// DefaultBaseURL is the public DexScreener API endpoint.
const DefaultBaseURL = "https://api.dexscreener.com"

// Client fetches token market snapshots from DexScreener.
type Client struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
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

// NewClient creates a DexScreener client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// pairResponse mirrors the subset of the DexScreener pairs payload we use.
type pairResponse struct {
	Pairs []struct {
		PairAddress string `json:"pairAddress"`
		PriceUSD    string `json:"priceUsd"`
		Liquidity   struct {
			USD float64 `json:"usd"`
		} `json:"liquidity"`
		Volume struct {
			H24 float64 `json:"h24"`
		} `json:"volume"`
		PriceChange struct {
			H1 float64 `json:"h1"`
		} `json:"priceChange"`
		Txns struct {
			H1 struct {
				Buys  int `json:"buys"`
				Sells int `json:"sells"`
			} `json:"h1"`
		} `json:"txns"`
		PairCreatedAt int64 `json:"pairCreatedAt"` // unix millis
	} `json:"pairs"`
}

// GetSnapshot fetches the market snapshot for a mint. Returns ErrNotFound
// when DexScreener has no pair for it yet.
func (c *Client) GetSnapshot(ctx context.Context, mint string) (domain.MarketSnapshot, error) {
	url := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, mint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("dexscreener: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.MarketSnapshot{}, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return domain.MarketSnapshot{}, fmt.Errorf("dexscreener: unexpected status %d", resp.StatusCode)
	}

	var payload pairResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("decode pairs: %w", err)
	}
	if len(payload.Pairs) == 0 {
		return domain.MarketSnapshot{}, ErrNotFound
	}

	// Most liquid pair wins; new tokens usually have exactly one.
	best := payload.Pairs[0]
	for _, p := range payload.Pairs[1:] {
		if p.Liquidity.USD > best.Liquidity.USD {
			best = p
		}
	}

	now := c.now()
	snapshot := domain.MarketSnapshot{
		Mint:             mint,
		PairAddress:      best.PairAddress,
		LiquidityUSD:     best.Liquidity.USD,
		Volume24hUSD:     best.Volume.H24,
		PriceChange1hPct: best.PriceChange.H1,
		BuyCount1h:       best.Txns.H1.Buys,
		SellCount1h:      best.Txns.H1.Sells,
		FetchedAt:        now,
	}
	if best.PriceUSD != "" {
		fmt.Sscanf(best.PriceUSD, "%f", &snapshot.PriceUSD)
	}
	if best.PairCreatedAt > 0 {
		created := time.UnixMilli(best.PairCreatedAt)
		snapshot.AgeHours = now.Sub(created).Hours()
	}
	return snapshot, nil
}
