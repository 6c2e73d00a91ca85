// Package relevance implements the Tier3 narrative-relevance analyzer on the
// Gemini generateContent API. The response contract is strict: anything that
// does not decode into exactly {relevanceScore, authenticityScore} in range
// fails the tier.
package relevance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/poggufanz/polymarket-sniper/internal/domain"
)

const (
	defaultModel   = "gemini-2.0-flash-lite"
	defaultBaseURL = "https://generativelanguage.googleapis.com"
)

// ErrBadResponse marks any deviation from the required response shape.
// Tier3 fails closed on it.
var ErrBadResponse = errors.New("relevance: malformed analyzer response")

// Analyzer judges candidate relevance against the active narratives.
type Analyzer interface {
	Analyze(ctx context.Context, candidate domain.CandidateEvent, narratives []string) (domain.RelevanceVerdict, error)
}

// GeminiAnalyzer implements Analyzer using the Gemini API.
type GeminiAnalyzer struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

var _ Analyzer = (*GeminiAnalyzer)(nil)

// Option configures a GeminiAnalyzer.
type Option func(*GeminiAnalyzer)

// WithModel sets the Gemini model to use.
func WithModel(model string) Option {
	return func(a *GeminiAnalyzer) { a.model = model }
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(a *GeminiAnalyzer) { a.baseURL = url }
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(a *GeminiAnalyzer) { a.httpClient.Timeout = d }
}

// NewGeminiAnalyzer creates a Gemini-based relevance analyzer.
func NewGeminiAnalyzer(apiKey string, opts ...Option) *GeminiAnalyzer {
	a := &GeminiAnalyzer{
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze submits the candidate metadata plus narrative context and parses
// the structured verdict.
func (a *GeminiAnalyzer) Analyze(ctx context.Context, candidate domain.CandidateEvent, narratives []string) (domain.RelevanceVerdict, error) {
	prompt := buildPrompt(candidate, narratives)

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return domain.RelevanceVerdict{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", a.baseURL, a.model, a.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return domain.RelevanceVerdict{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return domain.RelevanceVerdict{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.RelevanceVerdict{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return domain.RelevanceVerdict{}, fmt.Errorf("decode response: %w", err)
	}

	return parseVerdict(&geminiResp)
}

func buildPrompt(candidate domain.CandidateEvent, narratives []string) string {
	return fmt.Sprintf(`You are evaluating whether a newly launched memecoin genuinely represents a trending narrative, or is an opportunistic copycat.

Token name: %s
Token symbol: %s
Launch platform: %s
Trending narratives right now: %s

Score two dimensions from 0 to 100:
- relevanceScore: how directly the token represents one of the trending narratives
- authenticityScore: how likely the token is an original, first-mover take rather than a low-effort clone

Respond with JSON only, in this exact format:
{"relevanceScore": 0, "authenticityScore": 0}`,
		candidate.Name, candidate.Symbol, candidate.Source, strings.Join(narratives, ", "))
}

// verdictPayload is the required response contract. Pointer fields
// distinguish an absent score from a zero score; both fields are mandatory.
type verdictPayload struct {
	RelevanceScore    *float64 `json:"relevanceScore"`
	AuthenticityScore *float64 `json:"authenticityScore"`
}

var codeBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// parseVerdict extracts and strictly validates the verdict. Models wrap JSON
// in markdown fences; the fence is stripped before parsing, but the JSON
// itself must match the contract exactly.
func parseVerdict(resp *geminiResponse) (domain.RelevanceVerdict, error) {
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return domain.RelevanceVerdict{}, fmt.Errorf("%w: empty candidates", ErrBadResponse)
	}

	text := strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)
	if m := codeBlockRegex.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()

	var payload verdictPayload
	if err := dec.Decode(&payload); err != nil {
		return domain.RelevanceVerdict{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	// Trailing content after the JSON object is also a contract violation.
	if dec.More() {
		return domain.RelevanceVerdict{}, fmt.Errorf("%w: trailing content", ErrBadResponse)
	}

	if payload.RelevanceScore == nil || payload.AuthenticityScore == nil {
		return domain.RelevanceVerdict{}, fmt.Errorf("%w: missing score field", ErrBadResponse)
	}
	if *payload.RelevanceScore < 0 || *payload.RelevanceScore > 100 ||
		*payload.AuthenticityScore < 0 || *payload.AuthenticityScore > 100 {
		return domain.RelevanceVerdict{}, fmt.Errorf("%w: score out of range", ErrBadResponse)
	}

	return domain.RelevanceVerdict{
		RelevanceScore:    *payload.RelevanceScore,
		AuthenticityScore: *payload.AuthenticityScore,
	}, nil
}

// Gemini wire types.

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}
