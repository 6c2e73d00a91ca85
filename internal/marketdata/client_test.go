package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSnapshot(t *testing.T) {
	created := time.Now().Add(-2 * time.Hour).UnixMilli()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest/dex/tokens/MintAAA", r.URL.Path)
		fmt.Fprintf(w, `{"pairs":[{
			"pairAddress":"Pair1",
			"priceUsd":"0.00042",
			"liquidity":{"usd":10000},
			"volume":{"h24":55000},
			"priceChange":{"h1":10},
			"txns":{"h1":{"buys":50,"sells":10}},
			"pairCreatedAt":%d
		}]}`, created)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	snap, err := c.GetSnapshot(context.Background(), "MintAAA")
	require.NoError(t, err)

	assert.Equal(t, "Pair1", snap.PairAddress)
	assert.InDelta(t, 10_000, snap.LiquidityUSD, 0.01)
	assert.InDelta(t, 10, snap.PriceChange1hPct, 0.01)
	assert.Equal(t, 50, snap.BuyCount1h)
	assert.Equal(t, 10, snap.SellCount1h)
	assert.InDelta(t, 0.00042, snap.PriceUSD, 1e-9)
	assert.InDelta(t, 2, snap.AgeHours, 0.1)
}

func TestGetSnapshotPicksMostLiquidPair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pairs":[
			{"pairAddress":"Small","liquidity":{"usd":500}},
			{"pairAddress":"Big","liquidity":{"usd":50000}}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	snap, err := c.GetSnapshot(context.Background(), "MintAAA")
	require.NoError(t, err)
	assert.Equal(t, "Big", snap.PairAddress)
}

func TestGetSnapshotNotFound(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "empty pairs",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"pairs":[]}`))
			},
		},
		{
			name: "null pairs",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"pairs":null}`))
			},
		},
		{
			name: "http 404",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(WithBaseURL(srv.URL))
			_, err := c.GetSnapshot(context.Background(), "MintAAA")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestGetSnapshotServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.GetSnapshot(context.Background(), "MintAAA")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
