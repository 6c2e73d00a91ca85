package domain

// SecurityVerdict aggregates the Tier2 security checks for a candidate.
type SecurityVerdict struct {
	Passed         bool
	Reasons        []string // populated when Passed is false
	Top10HolderPct float64
	HolderSource   string // "audit" or "rpc", whichever supplied the figure
	RiskFlags      []string
	IsHoneypot     bool
	IsBundled      bool
}
