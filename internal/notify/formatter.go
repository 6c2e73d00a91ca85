package notify

import (
	"fmt"
	"strings"

	"github.com/poggufanz/polymarket-sniper/internal/domain"
)

const maxStars = 5

// FormatAlert renders the Telegram alert message in Markdown with a
// star-rating score breakdown.
func FormatAlert(a Alert) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s *ALPHA DETECTED* %s\n\n", headerEmoji(a.Score.Composite), headerEmoji(a.Score.Composite))
	if len(a.Narratives) > 0 {
		fmt.Fprintf(&b, "📰 *Narrative:* %s\n\n", strings.Join(a.Narratives, ", "))
	}

	fmt.Fprintf(&b, "🪙 *Token:* %s (%s)\n", displayName(a.Candidate), a.Candidate.Symbol)
	fmt.Fprintf(&b, "🏭 *Source:* %s\n", a.Candidate.Source)
	if a.Snapshot.PriceUSD > 0 {
		fmt.Fprintf(&b, "💰 *Price:* $%s\n", formatPrice(a.Snapshot.PriceUSD))
	}
	fmt.Fprintf(&b, "💧 *Liquidity:* %s\n", formatUSD(a.Snapshot.LiquidityUSD))
	fmt.Fprintf(&b, "📊 *Volume 24h:* %s\n\n", formatUSD(a.Snapshot.Volume24hUSD))

	b.WriteString(formatScore(a.Score))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "📋 *Contract:*\n`%s`\n\n", a.Candidate.Mint)
	fmt.Fprintf(&b, "🔗 [View on DexScreener](https://dexscreener.com/solana/%s)\n", a.Candidate.Mint)

	return b.String()
}

// formatScore renders the composite header line plus one star-rated line
// per dimension.
func formatScore(s domain.CompositeScore) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %.0f/100\n\n", stars(s.Composite), s.Composite)
	for _, dim := range []struct {
		label string
		score float64
	}{
		{"Safety:", s.Safety},
		{"Timing:", s.Timing},
		{"Momentum:", s.Momentum},
		{"Relevance:", s.Relevance},
	} {
		fmt.Fprintf(&b, "%-12s %s %.0f/100\n", dim.label, stars(dim.score), dim.score)
	}
	return strings.TrimRight(b.String(), "\n")
}

// stars maps a 0..100 score onto a 0..5 star scale, truncating.
func stars(score float64) string {
	n := int(score / 100 * maxStars)
	if n < 0 {
		n = 0
	}
	if n > maxStars {
		n = maxStars
	}
	return strings.Repeat("⭐", n)
}

func headerEmoji(composite float64) string {
	switch {
	case composite >= 80:
		return "🚀"
	case composite >= 70:
		return "📈"
	default:
		return "📊"
	}
}

func displayName(c domain.CandidateEvent) string {
	if c.Name != "" {
		return c.Name
	}
	return c.Mint
}

// formatUSD renders a dollar amount with K/M suffixes.
func formatUSD(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("$%.1fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("$%.1fK", v/1_000)
	default:
		return fmt.Sprintf("$%.0f", v)
	}
}

// formatPrice keeps enough precision for sub-cent token prices.
func formatPrice(v float64) string {
	if v >= 0.01 {
		return fmt.Sprintf("%.4f", v)
	}
	return fmt.Sprintf("%.8f", v)
}
