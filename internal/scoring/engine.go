// Package scoring computes the weighted composite score from tier outputs.
// The engine is a pure function of its inputs: no I/O, no shared state.
package scoring

import (
	"fmt"
	"math"

	"github.com/poggufanz/polymarket-sniper/internal/domain"
)

// Penalty values applied to the safety dimension.
const (
	honeypotPenalty  = 60
	bundledPenalty   = 40
	auditFlagPenalty = 20
)

// Weights are the dimension weights. They must sum to 1.0.
type Weights struct {
	Safety    float64 `yaml:"safety"`
	Timing    float64 `yaml:"timing"`
	Momentum  float64 `yaml:"momentum"`
	Relevance float64 `yaml:"relevance"`
}

// DefaultWeights returns the production weighting.
func DefaultWeights() Weights {
	return Weights{Safety: 0.35, Timing: 0.25, Momentum: 0.20, Relevance: 0.20}
}

// Validate checks the weights sum to 1.0 within floating-point tolerance.
func (w Weights) Validate() error {
	sum := w.Safety + w.Timing + w.Momentum + w.Relevance
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("score weights sum to %v, want 1.0", sum)
	}
	return nil
}

// Inputs are the tier outputs the engine scores.
type Inputs struct {
	Security  domain.SecurityVerdict
	Momentum  domain.MomentumVerdict
	Snapshot  domain.MarketSnapshot
	Relevance domain.RelevanceVerdict
}

// Engine computes composite scores with fixed weights.
type Engine struct {
	weights Weights
}

// NewEngine creates an engine, rejecting invalid weights.
func NewEngine(w Weights) (*Engine, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Engine{weights: w}, nil
}

// Compute normalizes each dimension to 0..100 and combines them.
// Deterministic: identical inputs always produce identical output.
func (e *Engine) Compute(in Inputs) domain.CompositeScore {
	score := domain.CompositeScore{
		Safety:    safetyScore(in.Security),
		Timing:    timingScore(in.Momentum),
		Momentum:  momentumScore(in.Snapshot),
		Relevance: relevanceScore(in.Relevance),
	}
	score.Composite = e.Combine(score.Safety, score.Timing, score.Momentum, score.Relevance)
	return score
}

// Combine applies the weights to already-normalized dimension scores.
func (e *Engine) Combine(safety, timing, momentum, relevance float64) float64 {
	return e.weights.Safety*safety +
		e.weights.Timing*timing +
		e.weights.Momentum*momentum +
		e.weights.Relevance*relevance
}

// safetyScore starts at 100 and subtracts holder concentration and the
// heuristic penalties.
func safetyScore(v domain.SecurityVerdict) float64 {
	score := 100 - v.Top10HolderPct
	if v.IsHoneypot {
		score -= honeypotPenalty
	}
	if v.IsBundled {
		score -= bundledPenalty
	}
	score -= float64(len(v.RiskFlags)) * auditFlagPenalty
	return clamp(score, 0, 100)
}

// timingScore rewards early entry and penalizes staleness.
func timingScore(v domain.MomentumVerdict) float64 {
	score := 20.0
	if v.Phase == domain.PhaseEarly {
		score = 80
	}
	if v.Stale {
		score -= 30
	}
	return clamp(score, 0, 100)
}

// momentumScore averages price velocity and buy pressure.
func momentumScore(s domain.MarketSnapshot) float64 {
	velocity := clamp(50+s.PriceChange1hPct, 0, 100)

	var pressure float64
	switch {
	case s.BuyCount1h == 0 && s.SellCount1h == 0:
		pressure = 50 // no trade data, neutral
	case s.SellCount1h == 0:
		pressure = 90
	default:
		ratio := float64(s.BuyCount1h) / float64(s.SellCount1h)
		pressure = clamp(50+(ratio-1)*10, 10, 90)
	}

	return (velocity + pressure) / 2
}

// relevanceScore averages the analyzer's two dimensions.
func relevanceScore(v domain.RelevanceVerdict) float64 {
	return clamp((v.RelevanceScore+v.AuthenticityScore)/2, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
