package domain

// RelevanceVerdict is the structured judgement returned by the relevance
// analyzer. Present only when Tier3 ran; both scores are 0..100.
type RelevanceVerdict struct {
	RelevanceScore    float64
	AuthenticityScore float64
}
