package narrative

import (
	"context"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/poggufanz/polymarket-sniper/internal/observability"
)

// EventLister fetches trending prediction market events.
type EventLister interface {
	TrendingEvents(ctx context.Context) ([]TrendingEvent, error)
}

// TrendingEvent is one volume-ranked narrative source event.
type TrendingEvent struct {
	Title     string
	VolumeUSD float64
	Timestamp time.Time
}

// KeywordSet is an immutable generation of the narrative filter. Readers get
// a consistent snapshot; new generations replace it wholesale.
type KeywordSet struct {
	Keywords    []string // ordered, uppercase
	lowered     []string // parallel to Keywords, lowercased once at build time
	RefreshedAt time.Time
}

// newKeywordSet builds a set from ordered uppercase keywords.
func newKeywordSet(keywords []string, at time.Time) *KeywordSet {
	s := &KeywordSet{
		Keywords:    keywords,
		lowered:     make([]string, len(keywords)),
		RefreshedAt: at,
	}
	for i, k := range keywords {
		s.lowered[i] = strings.ToLower(k)
	}
	return s
}

// Match returns the keywords contained in text (case-insensitive substring
// match). An empty set matches nothing.
func (s *KeywordSet) Match(text string) []string {
	if s == nil || len(s.Keywords) == 0 {
		return nil
	}
	lower := strings.ToLower(text)
	var matched []string
	for i, k := range s.lowered {
		if strings.Contains(lower, k) {
			matched = append(matched, s.Keywords[i])
		}
	}
	return matched
}

// Len returns the number of keywords in the set.
func (s *KeywordSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Keywords)
}

// IndexOptions configures an Index.
type IndexOptions struct {
	Events      EventLister
	VolumeFloor float64 // events at or below this volume are ignored
	Logger      *log.Logger
	Now         func() time.Time
}

// Index maintains the active narrative keyword set. Refresh is driven by an
// external scheduler; readers call Active from any goroutine without locks.
type Index struct {
	events      EventLister
	volumeFloor float64
	log         *log.Logger
	now         func() time.Time

	active atomic.Pointer[KeywordSet]
}

// NewIndex creates an index with an empty active set.
func NewIndex(opts IndexOptions) *Index {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	idx := &Index{
		events:      opts.Events,
		volumeFloor: opts.VolumeFloor,
		log:         opts.Logger,
		now:         opts.Now,
	}
	idx.active.Store(newKeywordSet(nil, time.Time{}))
	return idx
}

// Active returns the current keyword set snapshot.
func (idx *Index) Active() *KeywordSet {
	return idx.active.Load()
}

// Refresh fetches trending events and swaps in a new keyword set. On fetch
// failure the previous set stays active and the error is returned for the
// caller to log; consumers are never left with a partial set.
func (idx *Index) Refresh(ctx context.Context) error {
	events, err := idx.events.TrendingEvents(ctx)
	if err != nil {
		observability.RecordNarrativeRefresh(0, err)
		return err
	}

	seen := make(map[string]struct{})
	var keywords []string
	kept := 0
	for _, ev := range events {
		if ev.VolumeUSD <= idx.volumeFloor {
			continue
		}
		kept++
		for _, k := range ExtractKeywords(ev.Title) {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keywords = append(keywords, k)
		}
	}

	idx.active.Store(newKeywordSet(keywords, idx.now()))
	observability.RecordNarrativeRefresh(len(keywords), nil)
	idx.log.Printf("[narrative] refreshed: %d events above floor, %d keywords", kept, len(keywords))
	return nil
}
