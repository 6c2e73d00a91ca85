package security

import (
	"context"
	"fmt"
	"log"

	"github.com/poggufanz/polymarket-sniper/internal/domain"
	"github.com/poggufanz/polymarket-sniper/internal/ratelimit"
	"github.com/poggufanz/polymarket-sniper/internal/solana"
)

// Failure reasons recorded on the SecurityVerdict.
const (
	ReasonHolderConcentration = "holder_concentration"
	ReasonHoneypot            = "honeypot"
	ReasonBundledLaunch       = "bundled_launch"
)

// signatureWindow is how many recent transactions the bundled-launch
// heuristic samples.
const signatureWindow = 25

// CheckerOptions configures a Checker.
type CheckerOptions struct {
	Audit             AuditClient
	RPC               solana.RPCClient
	Limits            *ratelimit.Registry
	MaxTop10HolderPct float64
	MinDistinctBuyers int     // bundled-launch threshold, default 20
	BundledMaxAge     float64 // hours, default 1
	Logger            *log.Logger
}

// Checker combines the audit API, chain RPC, and market heuristics into one
// Tier2 verdict. The audit is authoritative for risk flags; its holder figure
// is preferred, with RPC as the fallback when the audit omits it. The two
// sources are never merged.
type Checker struct {
	audit             AuditClient
	rpc               solana.RPCClient
	limits            *ratelimit.Registry
	maxTop10HolderPct float64
	minDistinctBuyers int
	bundledMaxAge     float64
	log               *log.Logger
}

// NewChecker creates a security checker.
func NewChecker(opts CheckerOptions) *Checker {
	if opts.MinDistinctBuyers == 0 {
		opts.MinDistinctBuyers = 20
	}
	if opts.BundledMaxAge == 0 {
		opts.BundledMaxAge = 1
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Checker{
		audit:             opts.Audit,
		rpc:               opts.RPC,
		limits:            opts.Limits,
		maxTop10HolderPct: opts.MaxTop10HolderPct,
		minDistinctBuyers: opts.MinDistinctBuyers,
		bundledMaxAge:     opts.BundledMaxAge,
		log:               opts.Logger,
	}
}

// Check runs all Tier2 checks for a candidate. An unreachable or unaware
// audit API does not fail the candidate by itself; the holder and heuristic
// checks still run, so an unindexed token is not waved through.
func (c *Checker) Check(ctx context.Context, mint string, snapshot domain.MarketSnapshot) (domain.SecurityVerdict, error) {
	verdict := domain.SecurityVerdict{}

	report, err := c.fetchAudit(ctx, mint)
	if err != nil {
		if ctx.Err() != nil {
			return verdict, ctx.Err()
		}
		c.log.Printf("[security] audit unavailable for %s: %v", mint, err)
		report = AuditReport{}
	}
	verdict.RiskFlags = report.RiskFlags
	for _, flag := range report.RiskFlags {
		verdict.Reasons = append(verdict.Reasons, "audit:"+flag)
	}

	pct, source, err := c.holderConcentration(ctx, mint, report)
	if err != nil {
		if ctx.Err() != nil {
			return verdict, ctx.Err()
		}
		c.log.Printf("[security] holder check failed for %s: %v", mint, err)
	} else {
		verdict.Top10HolderPct = pct
		verdict.HolderSource = source
		if pct >= c.maxTop10HolderPct {
			verdict.Reasons = append(verdict.Reasons,
				fmt.Sprintf("%s:%.1f%%", ReasonHolderConcentration, pct))
		}
	}

	if snapshot.BuyCount1h > 0 && snapshot.SellCount1h == 0 {
		verdict.IsHoneypot = true
		verdict.Reasons = append(verdict.Reasons, ReasonHoneypot)
	}

	if snapshot.AgeHours < c.bundledMaxAge {
		bundled, err := c.bundledLaunch(ctx, mint)
		if err != nil {
			if ctx.Err() != nil {
				return verdict, ctx.Err()
			}
			c.log.Printf("[security] bundled check failed for %s: %v", mint, err)
		} else if bundled {
			verdict.IsBundled = true
			verdict.Reasons = append(verdict.Reasons, ReasonBundledLaunch)
		}
	}

	verdict.Passed = len(verdict.Reasons) == 0
	return verdict, nil
}

func (c *Checker) fetchAudit(ctx context.Context, mint string) (AuditReport, error) {
	if err := c.limits.Acquire(ctx, ratelimit.ServiceSecurity); err != nil {
		return AuditReport{}, err
	}
	return c.audit.Report(ctx, mint)
}

// holderConcentration returns the top-10 holder percentage and the source
// that supplied it. The audit figure wins when present.
func (c *Checker) holderConcentration(ctx context.Context, mint string, report AuditReport) (float64, string, error) {
	if report.Known && report.Top10HolderPct > 0 {
		return report.Top10HolderPct, "audit", nil
	}

	if err := c.limits.Acquire(ctx, ratelimit.ServiceRPC); err != nil {
		return 0, "", err
	}
	accounts, err := c.rpc.TokenLargestAccounts(ctx, mint)
	if err != nil {
		return 0, "", err
	}

	if err := c.limits.Acquire(ctx, ratelimit.ServiceRPC); err != nil {
		return 0, "", err
	}
	supply, err := c.rpc.TokenSupply(ctx, mint)
	if err != nil {
		return 0, "", err
	}
	if supply <= 0 {
		return 0, "", fmt.Errorf("zero token supply")
	}

	var top10 float64
	for i, acc := range accounts {
		if i == 10 {
			break
		}
		top10 += acc.Amount
	}
	return top10 / supply * 100, "rpc", nil
}

// bundledLaunch samples recent transactions as a distinct-buyer proxy: a
// fresh token with very few transactions behind its detection burst is
// likely a coordinated launch.
func (c *Checker) bundledLaunch(ctx context.Context, mint string) (bool, error) {
	if err := c.limits.Acquire(ctx, ratelimit.ServiceRPC); err != nil {
		return false, err
	}
	sigs, err := c.rpc.RecentSignatures(ctx, mint, signatureWindow)
	if err != nil {
		return false, err
	}

	distinct := 0
	for _, s := range sigs {
		if s.Err == nil {
			distinct++
		}
	}
	return distinct < c.minDistinctBuyers, nil
}
