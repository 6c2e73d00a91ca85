package security

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poggufanz/polymarket-sniper/internal/domain"
	"github.com/poggufanz/polymarket-sniper/internal/ratelimit"
	"github.com/poggufanz/polymarket-sniper/internal/solana"
)

type stubAudit struct {
	report AuditReport
	err    error
}

func (s *stubAudit) Report(ctx context.Context, mint string) (AuditReport, error) {
	return s.report, s.err
}

type stubRPC struct {
	accounts []solana.TokenAccountBalance
	supply   float64
	sigs     []solana.SignatureInfo
	err      error
}

func (s *stubRPC) TokenLargestAccounts(ctx context.Context, mint string) ([]solana.TokenAccountBalance, error) {
	return s.accounts, s.err
}

func (s *stubRPC) TokenSupply(ctx context.Context, mint string) (float64, error) {
	return s.supply, s.err
}

func (s *stubRPC) RecentSignatures(ctx context.Context, mint string, limit int) ([]solana.SignatureInfo, error) {
	return s.sigs, s.err
}

func testLimits() *ratelimit.Registry {
	return ratelimit.NewRegistry(map[string]int{
		ratelimit.ServiceSecurity: 600,
		ratelimit.ServiceRPC:      600,
	})
}

func newTestChecker(audit *stubAudit, rpc *stubRPC) *Checker {
	return NewChecker(CheckerOptions{
		Audit:             audit,
		RPC:               rpc,
		Limits:            testLimits(),
		MaxTop10HolderPct: 50,
		Logger:            log.New(io.Discard, "", 0),
	})
}

func healthySnapshot() domain.MarketSnapshot {
	return domain.MarketSnapshot{
		AgeHours:    2,
		BuyCount1h:  50,
		SellCount1h: 10,
	}
}

func TestCheckPassesCleanToken(t *testing.T) {
	audit := &stubAudit{report: AuditReport{Known: true, Top10HolderPct: 20}}
	checker := newTestChecker(audit, &stubRPC{})

	v, err := checker.Check(context.Background(), "MintA", healthySnapshot())
	require.NoError(t, err)

	assert.True(t, v.Passed)
	assert.Empty(t, v.Reasons)
	assert.InDelta(t, 20, v.Top10HolderPct, 0.01)
	assert.Equal(t, "audit", v.HolderSource)
}

func TestCheckFailsOnAuditFlags(t *testing.T) {
	audit := &stubAudit{report: AuditReport{
		Known:          true,
		RiskFlags:      []string{"Freeze Authority still enabled"},
		Top10HolderPct: 20,
	}}
	checker := newTestChecker(audit, &stubRPC{})

	v, err := checker.Check(context.Background(), "MintA", healthySnapshot())
	require.NoError(t, err)

	assert.False(t, v.Passed)
	assert.Contains(t, v.Reasons, "audit:Freeze Authority still enabled")
}

func TestCheckFailsOnHolderConcentration(t *testing.T) {
	audit := &stubAudit{report: AuditReport{Known: true, Top10HolderPct: 72}}
	checker := newTestChecker(audit, &stubRPC{})

	v, err := checker.Check(context.Background(), "MintA", healthySnapshot())
	require.NoError(t, err)

	assert.False(t, v.Passed)
	require.Len(t, v.Reasons, 1)
	assert.Contains(t, v.Reasons[0], ReasonHolderConcentration)
}

func TestCheckRPCFallbackWhenAuditOmitsHolders(t *testing.T) {
	audit := &stubAudit{report: AuditReport{Known: true}}
	rpc := &stubRPC{
		accounts: []solana.TokenAccountBalance{
			{Amount: 300}, {Amount: 200}, {Amount: 100},
		},
		supply: 1000,
	}
	checker := newTestChecker(audit, rpc)

	v, err := checker.Check(context.Background(), "MintA", healthySnapshot())
	require.NoError(t, err)

	assert.False(t, v.Passed) // 60% > 50% cap
	assert.InDelta(t, 60, v.Top10HolderPct, 0.01)
	assert.Equal(t, "rpc", v.HolderSource)
}

func TestCheckHoneypot(t *testing.T) {
	audit := &stubAudit{report: AuditReport{Known: true, Top10HolderPct: 20}}
	checker := newTestChecker(audit, &stubRPC{})

	snap := healthySnapshot()
	snap.BuyCount1h = 40
	snap.SellCount1h = 0

	v, err := checker.Check(context.Background(), "MintA", snap)
	require.NoError(t, err)

	assert.False(t, v.Passed)
	assert.True(t, v.IsHoneypot)
	assert.Contains(t, v.Reasons, ReasonHoneypot)
}

func TestCheckBundledLaunch(t *testing.T) {
	audit := &stubAudit{report: AuditReport{Known: true, Top10HolderPct: 20}}
	rpc := &stubRPC{sigs: []solana.SignatureInfo{
		{Signature: "s1"}, {Signature: "s2"}, {Signature: "s3"},
	}}
	checker := newTestChecker(audit, rpc)

	snap := healthySnapshot()
	snap.AgeHours = 0.5

	v, err := checker.Check(context.Background(), "MintA", snap)
	require.NoError(t, err)

	assert.False(t, v.Passed)
	assert.True(t, v.IsBundled)
	assert.Contains(t, v.Reasons, ReasonBundledLaunch)
}

func TestCheckOldTokenSkipsBundledHeuristic(t *testing.T) {
	audit := &stubAudit{report: AuditReport{Known: true, Top10HolderPct: 20}}
	rpc := &stubRPC{sigs: nil} // would look bundled if sampled
	checker := newTestChecker(audit, rpc)

	v, err := checker.Check(context.Background(), "MintA", healthySnapshot())
	require.NoError(t, err)
	assert.True(t, v.Passed)
	assert.False(t, v.IsBundled)
}

func TestCheckAuditUnavailableStillRunsOtherChecks(t *testing.T) {
	audit := &stubAudit{err: errors.New("rugcheck down")}
	rpc := &stubRPC{
		accounts: []solana.TokenAccountBalance{{Amount: 800}},
		supply:   1000,
	}
	checker := newTestChecker(audit, rpc)

	v, err := checker.Check(context.Background(), "MintA", healthySnapshot())
	require.NoError(t, err)

	assert.False(t, v.Passed)
	assert.Equal(t, "rpc", v.HolderSource)
	assert.InDelta(t, 80, v.Top10HolderPct, 0.01)
}
