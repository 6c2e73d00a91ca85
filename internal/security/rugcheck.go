// Package security implements the Tier2 gate: audit API findings, holder
// concentration, and the honeypot and bundled-launch heuristics.
package security

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultAuditBaseURL is the public RugCheck API endpoint.
const DefaultAuditBaseURL = "https://api.rugcheck.xyz"

// AuditReport is the audit API's view of a token. Known is false when the
// token is not indexed yet, which is common minutes after launch.
type AuditReport struct {
	Known          bool
	RiskFlags      []string // danger-level findings
	Top10HolderPct float64  // 0 when the audit omits holder data
}

// AuditClient fetches audit reports.
type AuditClient interface {
	Report(ctx context.Context, mint string) (AuditReport, error)
}

// RugCheckClient implements AuditClient against the RugCheck report API.
type RugCheckClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ AuditClient = (*RugCheckClient)(nil)

// RugCheckOption configures the client.
type RugCheckOption func(*RugCheckClient)

// WithAuditTimeout sets the HTTP timeout.
func WithAuditTimeout(d time.Duration) RugCheckOption {
	return func(c *RugCheckClient) { c.httpClient.Timeout = d }
}

// WithAuditBaseURL overrides the API endpoint (used in tests).
func WithAuditBaseURL(u string) RugCheckOption {
	return func(c *RugCheckClient) { c.baseURL = u }
}

// NewRugCheckClient creates an audit client.
func NewRugCheckClient(opts ...RugCheckOption) *RugCheckClient {
	c := &RugCheckClient{
		baseURL:    DefaultAuditBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// reportResponse mirrors the subset of the RugCheck report we consume.
type reportResponse struct {
	Risks []struct {
		Name  string `json:"name"`
		Level string `json:"level"`
	} `json:"risks"`
	TopHolders []struct {
		Pct float64 `json:"pct"`
	} `json:"topHolders"`
}

// Report fetches the audit report for a mint. A 404 means the token is not
// indexed yet and yields Known=false with no flags rather than an error.
func (c *RugCheckClient) Report(ctx context.Context, mint string) (AuditReport, error) {
	url := fmt.Sprintf("%s/v1/tokens/%s/report", c.baseURL, mint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return AuditReport{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return AuditReport{}, fmt.Errorf("rugcheck: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return AuditReport{Known: false}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return AuditReport{}, fmt.Errorf("rugcheck: unexpected status %d", resp.StatusCode)
	}

	var payload reportResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return AuditReport{}, fmt.Errorf("decode report: %w", err)
	}

	report := AuditReport{Known: true}
	for _, r := range payload.Risks {
		switch strings.ToLower(r.Level) {
		case "danger", "high", "critical":
			report.RiskFlags = append(report.RiskFlags, r.Name)
		}
	}
	for i, h := range payload.TopHolders {
		if i == 10 {
			break
		}
		report.Top10HolderPct += h.Pct
	}
	return report, nil
}
