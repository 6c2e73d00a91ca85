// Package pipeline runs each candidate through the tiered validation gates
// in cost order: free market data first, the LLM call last. A candidate that
// fails a tier never reaches the tiers after it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/poggufanz/polymarket-sniper/internal/alertstate"
	"github.com/poggufanz/polymarket-sniper/internal/domain"
	"github.com/poggufanz/polymarket-sniper/internal/marketdata"
	"github.com/poggufanz/polymarket-sniper/internal/notify"
	"github.com/poggufanz/polymarket-sniper/internal/observability"
	"github.com/poggufanz/polymarket-sniper/internal/ratelimit"
	"github.com/poggufanz/polymarket-sniper/internal/relevance"
	"github.com/poggufanz/polymarket-sniper/internal/scoring"
)

// stalePriceChangePct is the band within which an old token's 1h price
// change counts as flat.
const stalePriceChangePct = 0.1

// MarketData fetches a fresh snapshot for a mint.
type MarketData interface {
	GetSnapshot(ctx context.Context, mint string) (domain.MarketSnapshot, error)
}

// SecurityChecker runs the Tier2 on-chain safety checks.
type SecurityChecker interface {
	Check(ctx context.Context, mint string, snapshot domain.MarketSnapshot) (domain.SecurityVerdict, error)
}

// SlotManager guards the daily alert budget.
type SlotManager interface {
	AlreadyAlerted(ctx context.Context, mint string) (bool, error)
	AcquireSlot(ctx context.Context, mint, symbol string) (alertstate.Decision, error)
}

// Config holds the gate thresholds.
type Config struct {
	MinLiquidityUSD     float64
	MaxPriceChange1hPct float64
	MaxTokenAgeHours    float64
	MinCompositeScore   float64
	MinIndividualScore  float64
}

// Options wires a Pipeline.
type Options struct {
	Market   MarketData
	Security SecurityChecker
	Analyzer relevance.Analyzer
	Engine   *scoring.Engine
	Alerts   SlotManager
	Notifier notify.Notifier
	Limits   *ratelimit.Registry
	Config   Config
	Logger   *log.Logger
}

// Pipeline validates candidates tier by tier and alerts on survivors.
type Pipeline struct {
	market   MarketData
	security SecurityChecker
	analyzer relevance.Analyzer
	engine   *scoring.Engine
	alerts   SlotManager
	notifier notify.Notifier
	limits   *ratelimit.Registry
	cfg      Config
	logger   *log.Logger
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Pipeline{
		market:   opts.Market,
		security: opts.Security,
		analyzer: opts.Analyzer,
		engine:   opts.Engine,
		alerts:   opts.Alerts,
		notifier: opts.Notifier,
		limits:   opts.Limits,
		cfg:      opts.Config,
		logger:   opts.Logger,
	}
}

// Run processes one candidate end to end, logging and recording the outcome.
// It satisfies the ingest manager's runner contract.
func (p *Pipeline) Run(ctx context.Context, candidate domain.CandidateEvent) {
	start := time.Now()
	outcome, err := p.Process(ctx, candidate)
	if err != nil {
		p.logger.Printf("[pipeline] %s (%s): aborted: %v", candidate.Mint, candidate.Symbol, err)
		return
	}

	observability.RecordPipelineOutcome(label(outcome), time.Since(start).Seconds())
	p.logger.Printf("[pipeline] %s (%s): %s", candidate.Mint, candidate.Symbol, outcome)
}

// Process runs the tier sequence and returns the terminal outcome. An error
// return means the run could not complete (context canceled, state store
// down) and no outcome was reached.
func (p *Pipeline) Process(ctx context.Context, candidate domain.CandidateEvent) (Outcome, error) {
	// A mint alerted earlier today is dropped before spending any API budget.
	already, err := p.alerts.AlreadyAlerted(ctx, candidate.Mint)
	if err != nil {
		return nil, fmt.Errorf("check alert history: %w", err)
	}
	if already {
		observability.RecordAlertSuppressed(alertstate.ReasonDuplicate)
		return Suppressed{Reason: alertstate.ReasonDuplicate}, nil
	}

	snapshot, outcome, err := p.tier0DataFetch(ctx, candidate)
	if err != nil || outcome != nil {
		return outcome, err
	}

	verdict, outcome := p.tier1Momentum(snapshot)
	if outcome != nil {
		return outcome, nil
	}

	security, outcome, err := p.tier2Security(ctx, candidate, snapshot)
	if err != nil || outcome != nil {
		return outcome, err
	}

	rel, outcome, err := p.tier3Relevance(ctx, candidate)
	if err != nil || outcome != nil {
		return outcome, err
	}

	score := p.engine.Compute(scoring.Inputs{
		Security:  security,
		Momentum:  verdict,
		Snapshot:  snapshot,
		Relevance: rel,
	})
	observability.RecordCompositeScore(score.Composite)

	if outcome := p.alertDecision(score); outcome != nil {
		return outcome, nil
	}

	return p.alert(ctx, candidate, snapshot, score)
}

func (p *Pipeline) tier0DataFetch(ctx context.Context, candidate domain.CandidateEvent) (domain.MarketSnapshot, Outcome, error) {
	if err := p.limits.Acquire(ctx, ratelimit.ServiceMarketData); err != nil {
		return domain.MarketSnapshot{}, nil, err
	}

	fetchStart := time.Now()
	snapshot, err := p.market.GetSnapshot(ctx, candidate.Mint)
	observability.RecordExternalCall(ratelimit.ServiceMarketData, time.Since(fetchStart).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return domain.MarketSnapshot{}, nil, ctx.Err()
		}
		if !errors.Is(err, marketdata.ErrNotFound) {
			p.logger.Printf("[pipeline] %s: market data fetch failed: %v", candidate.Mint, err)
		}
		return domain.MarketSnapshot{}, p.reject(TierDataFetch, ReasonFetchError, nil), nil
	}

	if snapshot.LiquidityUSD < p.cfg.MinLiquidityUSD {
		reasons := []string{fmt.Sprintf("liquidity $%.0f below $%.0f", snapshot.LiquidityUSD, p.cfg.MinLiquidityUSD)}
		return domain.MarketSnapshot{}, p.reject(TierDataFetch, ReasonLowLiquidity, reasons), nil
	}

	return snapshot, nil, nil
}

func (p *Pipeline) tier1Momentum(snapshot domain.MarketSnapshot) (domain.MomentumVerdict, Outcome) {
	verdict := p.classifyMomentum(snapshot)
	if verdict.Phase != domain.PhaseEarly || verdict.Stale {
		var reasons []string
		if verdict.Phase != domain.PhaseEarly {
			reasons = append(reasons, fmt.Sprintf("phase %s", verdict.Phase))
		}
		if verdict.Stale {
			reasons = append(reasons, fmt.Sprintf("stale after %.1fh", snapshot.AgeHours))
		}
		return verdict, p.reject(TierMomentum, ReasonMomentumGate, reasons)
	}
	return verdict, nil
}

// classifyMomentum labels the entry window. EARLY requires the pump to
// still be ahead (price change under the cap) with net buy pressure.
func (p *Pipeline) classifyMomentum(s domain.MarketSnapshot) domain.MomentumVerdict {
	v := domain.MomentumVerdict{Phase: domain.PhaseLate}
	if s.PriceChange1hPct < p.cfg.MaxPriceChange1hPct && s.BuyCount1h > s.SellCount1h {
		v.Phase = domain.PhaseEarly
	}
	if s.AgeHours > p.cfg.MaxTokenAgeHours && math.Abs(s.PriceChange1hPct) < stalePriceChangePct {
		v.Stale = true
	}
	return v
}

func (p *Pipeline) tier2Security(ctx context.Context, candidate domain.CandidateEvent, snapshot domain.MarketSnapshot) (domain.SecurityVerdict, Outcome, error) {
	checkStart := time.Now()
	verdict, err := p.security.Check(ctx, candidate.Mint, snapshot)
	observability.RecordExternalCall(ratelimit.ServiceSecurity, time.Since(checkStart).Seconds())
	if err != nil {
		return domain.SecurityVerdict{}, nil, fmt.Errorf("security check: %w", err)
	}
	if !verdict.Passed {
		return domain.SecurityVerdict{}, p.reject(TierSecurity, ReasonSecurityGate, verdict.Reasons), nil
	}
	return verdict, nil, nil
}

// tier3Relevance fails closed: any analyzer failure other than context
// cancellation rejects the candidate.
func (p *Pipeline) tier3Relevance(ctx context.Context, candidate domain.CandidateEvent) (domain.RelevanceVerdict, Outcome, error) {
	if err := p.limits.Acquire(ctx, ratelimit.ServiceLLM); err != nil {
		return domain.RelevanceVerdict{}, nil, err
	}

	analyzeStart := time.Now()
	verdict, err := p.analyzer.Analyze(ctx, candidate, candidate.Keywords)
	observability.RecordExternalCall(ratelimit.ServiceLLM, time.Since(analyzeStart).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return domain.RelevanceVerdict{}, nil, ctx.Err()
		}
		p.logger.Printf("[pipeline] %s: relevance analysis failed: %v", candidate.Mint, err)
		return domain.RelevanceVerdict{}, p.reject(TierRelevance, ReasonAnalysisError, []string{err.Error()}), nil
	}
	return verdict, nil, nil
}

func (p *Pipeline) alertDecision(score domain.CompositeScore) Outcome {
	var reasons []string
	if score.Composite < p.cfg.MinCompositeScore {
		reasons = append(reasons, fmt.Sprintf("composite %.1f below %.0f", score.Composite, p.cfg.MinCompositeScore))
	}
	if min := score.MinDimension(); min < p.cfg.MinIndividualScore {
		reasons = append(reasons, fmt.Sprintf("weakest dimension %.1f below %.0f", min, p.cfg.MinIndividualScore))
	}
	if len(reasons) > 0 {
		return p.reject(TierScoring, ReasonScoreThreshold, reasons)
	}
	return nil
}

// alert commits the slot, then notifies. A notify failure does not return
// the slot: the budget exists to bound alert volume, not delivery attempts.
func (p *Pipeline) alert(ctx context.Context, candidate domain.CandidateEvent, snapshot domain.MarketSnapshot, score domain.CompositeScore) (Outcome, error) {
	decision, err := p.alerts.AcquireSlot(ctx, candidate.Mint, candidate.Symbol)
	if err != nil {
		return nil, fmt.Errorf("acquire alert slot: %w", err)
	}
	if !decision.Granted {
		observability.RecordAlertSuppressed(decision.Reason)
		return Suppressed{Reason: decision.Reason}, nil
	}

	alert := notify.Alert{
		Candidate:  candidate,
		Snapshot:   snapshot,
		Score:      score,
		Narratives: candidate.Keywords,
	}
	if err := p.notifier.Notify(ctx, alert); err != nil {
		p.logger.Printf("[pipeline] %s: notify failed, slot stays consumed: %v", candidate.Mint, err)
	}

	observability.RecordAlertSent()
	return Alerted{Score: score}, nil
}

func (p *Pipeline) reject(tier, reason string, reasons []string) Outcome {
	observability.RecordTierRejection(tier, reason)
	return Rejected{Tier: tier, Reason: reason, Reasons: reasons}
}
