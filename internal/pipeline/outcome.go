package pipeline

import (
	"fmt"

	"github.com/poggufanz/polymarket-sniper/internal/domain"
)

// Tier labels used in rejection outcomes and metrics.
const (
	TierDataFetch = "tier0_data_fetch"
	TierMomentum  = "tier1_momentum"
	TierSecurity  = "tier2_security"
	TierRelevance = "tier3_relevance"
	TierScoring   = "scoring"
)

// Rejection and suppression reasons.
const (
	ReasonLowLiquidity   = "low_liquidity"
	ReasonFetchError     = "fetch_error"
	ReasonMomentumGate   = "momentum_gate"
	ReasonSecurityGate   = "security_gate"
	ReasonAnalysisError  = "analysis_error"
	ReasonScoreThreshold = "score_threshold"
)

// Outcome is the terminal result of one pipeline run. Exactly one of the
// three variants is produced per candidate.
type Outcome interface {
	fmt.Stringer
	outcome()
}

// Rejected means a tier gate or the score threshold stopped the candidate.
type Rejected struct {
	Tier    string
	Reason  string
	Reasons []string // per-check detail, when a tier provides it
}

func (Rejected) outcome() {}

func (r Rejected) String() string {
	return fmt.Sprintf("REJECTED at %s: %s", r.Tier, r.Reason)
}

// Suppressed means the candidate qualified but the alert budget refused it.
type Suppressed struct {
	Reason string
}

func (Suppressed) outcome() {}

func (s Suppressed) String() string {
	return "SUPPRESSED: " + s.Reason
}

// Alerted means an alert slot was consumed for the candidate.
type Alerted struct {
	Score domain.CompositeScore
}

func (Alerted) outcome() {}

func (a Alerted) String() string {
	return fmt.Sprintf("ALERTED: composite=%.1f", a.Score.Composite)
}

// label is the metric label for the outcome variant.
func label(o Outcome) string {
	switch o.(type) {
	case Rejected:
		return "rejected"
	case Suppressed:
		return "suppressed"
	case Alerted:
		return "alerted"
	default:
		return "unknown"
	}
}
