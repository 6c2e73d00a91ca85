package domain

// CompositeScore holds the four normalized dimension scores (0..100 each)
// and their weighted composite.
type CompositeScore struct {
	Safety    float64
	Timing    float64
	Momentum  float64
	Relevance float64
	Composite float64
}

// Dimensions returns the individual dimension scores in a fixed order,
// used by the alert decision's per-dimension minimum check.
func (s CompositeScore) Dimensions() []float64 {
	return []float64{s.Safety, s.Timing, s.Momentum, s.Relevance}
}

// MinDimension returns the smallest individual dimension score.
func (s CompositeScore) MinDimension() float64 {
	min := s.Safety
	for _, d := range s.Dimensions()[1:] {
		if d < min {
			min = d
		}
	}
	return min
}
