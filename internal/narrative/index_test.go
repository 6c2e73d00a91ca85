package narrative

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poggufanz/polymarket-sniper/internal/observability"
)

type stubLister struct {
	events []TrendingEvent
	err    error
}

func (s *stubLister) TrendingEvents(ctx context.Context) ([]TrendingEvent, error) {
	return s.events, s.err
}

func newTestIndex(lister *stubLister) *Index {
	return NewIndex(IndexOptions{
		Events:      lister,
		VolumeFloor: 100_000,
		Logger:      log.New(io.Discard, "", 0),
	})
}

func TestIndexStartsEmpty(t *testing.T) {
	idx := newTestIndex(&stubLister{})
	set := idx.Active()
	require.NotNil(t, set)
	assert.Equal(t, 0, set.Len())
	assert.Empty(t, set.Match("trump coin"))
}

func TestRefreshPublishesKeywords(t *testing.T) {
	lister := &stubLister{events: []TrendingEvent{
		{Title: "Trump announces TikTok deal", VolumeUSD: 2_000_000},
		{Title: "Fed decision in January?", VolumeUSD: 500_000},
	}}
	idx := newTestIndex(lister)

	require.NoError(t, idx.Refresh(context.Background()))

	set := idx.Active()
	assert.Contains(t, set.Keywords, "TRUMP")
	assert.Contains(t, set.Keywords, "TIKTOK")
	assert.Contains(t, set.Keywords, "FED")
}

func TestRefreshAppliesVolumeFloor(t *testing.T) {
	lister := &stubLister{events: []TrendingEvent{
		{Title: "Trump announces TikTok deal", VolumeUSD: 50_000},
	}}
	idx := newTestIndex(lister)

	require.NoError(t, idx.Refresh(context.Background()))
	assert.Equal(t, 0, idx.Active().Len())
}

func TestRefreshFailureKeepsPreviousSet(t *testing.T) {
	lister := &stubLister{events: []TrendingEvent{
		{Title: "Trump announces TikTok deal", VolumeUSD: 2_000_000},
	}}
	idx := newTestIndex(lister)
	require.NoError(t, idx.Refresh(context.Background()))
	before := idx.Active()

	lister.err = errors.New("gamma api down")
	err := idx.Refresh(context.Background())
	require.Error(t, err)

	assert.Same(t, before, idx.Active())
}

func TestRefreshRecordsMetrics(t *testing.T) {
	m := observability.DefaultMetrics
	okBefore := testutil.ToFloat64(m.NarrativeRefreshes)
	errBefore := testutil.ToFloat64(m.NarrativeRefreshErrors)

	lister := &stubLister{events: []TrendingEvent{
		{Title: "Trump announces TikTok deal", VolumeUSD: 2_000_000},
	}}
	idx := newTestIndex(lister)

	require.NoError(t, idx.Refresh(context.Background()))
	assert.Equal(t, okBefore+1, testutil.ToFloat64(m.NarrativeRefreshes))
	assert.Equal(t, float64(idx.Active().Len()), testutil.ToFloat64(m.NarrativeKeywords))

	lister.err = errors.New("gamma api down")
	require.Error(t, idx.Refresh(context.Background()))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(m.NarrativeRefreshErrors))
}

func TestMatchCaseInsensitive(t *testing.T) {
	set := newKeywordSet([]string{"TRUMP", "FED"}, time.Now())

	assert.Equal(t, []string{"TRUMP"}, set.Match("TrumpCoin TC"))
	assert.Equal(t, []string{"FED"}, set.Match("fedwatch token"))
	assert.Empty(t, set.Match("dogwifhat WIF"))
}

func TestKeywordSetLowersOnceAtBuild(t *testing.T) {
	set := newKeywordSet([]string{"TRUMP", "TIKTOK"}, time.Now())

	require.Equal(t, []string{"trump", "tiktok"}, set.lowered)
	assert.Equal(t, []string{"TRUMP", "TIKTOK"}, set.Match("trump tiktok deal"))
}
