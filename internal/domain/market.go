package domain

import "time"

// MarketSnapshot holds point-in-time market data for a token, fetched fresh
// per pipeline run and never cached across candidates.
type MarketSnapshot struct {
	Mint             string
	PairAddress      string
	PriceUSD         float64
	LiquidityUSD     float64
	Volume24hUSD     float64
	PriceChange1hPct float64
	BuyCount1h       int
	SellCount1h      int
	AgeHours         float64
	FetchedAt        time.Time
}

// Phase classifies entry timing relative to a token's price discovery.
type Phase string

const (
	PhaseEarly Phase = "EARLY"
	PhaseLate  Phase = "LATE"
)

// MomentumVerdict is the Tier1 classification derived from a MarketSnapshot.
type MomentumVerdict struct {
	Phase Phase
	Stale bool
}
