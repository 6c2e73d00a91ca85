package narrative

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  []string
	}{
		{
			name:  "proper nouns extracted",
			title: "Will Nicolas Maduro leave Venezuela by January?",
			want:  []string{"VENEZUELA", "NICOLAS", "MADURO"},
		},
		{
			name:  "priority keywords win",
			title: "Trump announces TikTok deal",
			want:  []string{"tiktok", "trump"},
		},
		{
			name:  "crypto price bets blacklisted",
			title: "Bitcoin hits $100k in 2024?",
			want:  nil,
		},
		{
			name:  "sports blacklisted",
			title: "Super Bowl Champion 2026",
			want:  nil,
		},
		{
			name:  "dates and stop words removed",
			title: "Fed decision in January?",
			want:  []string{"FED", "DECISION"},
		},
		{
			name:  "empty title",
			title: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractKeywords(tt.title)
			assert.LessOrEqual(t, len(got), 3)
			for i, w := range tt.want {
				if i >= len(got) {
					break
				}
				assert.Contains(t, got, toUpper(w))
			}
			if tt.want == nil {
				assert.Empty(t, got)
			}
		})
	}
}

func toUpper(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'a' && b[i] <= 'z' {
			b[i] -= 'a' - 'A'
		}
	}
	return string(b)
}

func TestExtractKeywordsPriorityOrdering(t *testing.T) {
	got := ExtractKeywords("Will Elon Musk buy Twitter by December 2024?")

	// All three are priority keywords and must fill the top-3 slots.
	assert.ElementsMatch(t, []string{"ELON", "MUSK", "TWITTER"}, got)
}

func TestExtractKeywordsCapsAtThree(t *testing.T) {
	got := ExtractKeywords("Russia Ukraine war escalation scandal resignation")
	assert.Len(t, got, 3)
}
