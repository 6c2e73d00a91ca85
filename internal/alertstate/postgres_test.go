package alertstate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/poggufanz/polymarket-sniper/internal/domain"
)

// setupPostgresStore starts a disposable PostgreSQL container and returns a
// store with the schema applied.
func setupPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")
	t.Cleanup(pool.Close)

	store := NewPostgresStore(pool)
	require.NoError(t, store.EnsureSchema(ctx))
	return store
}

func TestPostgresStoreEmptyLoad(t *testing.T) {
	store := setupPostgresStore(t)

	state, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Zero(t, state)
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()

	state := domain.DailyAlertState{
		Date:       "2026-03-14",
		AlertsSent: 2,
		TokensAlerted: []domain.AlertRecord{
			{Mint: "MintA", Symbol: "AAA", Timestamp: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)},
			{Mint: "MintB", Symbol: "BBB", Timestamp: time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)},
		},
	}
	require.NoError(t, store.Save(ctx, state))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, state, loaded)
}

func TestPostgresStoreUpsertSameDate(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()

	first := domain.DailyAlertState{Date: "2026-03-14", AlertsSent: 1}
	require.NoError(t, store.Save(ctx, first))

	second := domain.DailyAlertState{
		Date:       "2026-03-14",
		AlertsSent: 2,
		TokensAlerted: []domain.AlertRecord{
			{Mint: "MintA", Symbol: "AAA", Timestamp: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)},
		},
	}
	require.NoError(t, store.Save(ctx, second))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.AlertsSent)
	assert.Len(t, loaded.TokensAlerted, 1)
}

func TestPostgresStoreLoadsLatestDate(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.DailyAlertState{Date: "2026-03-13", AlertsSent: 3}))
	require.NoError(t, store.Save(ctx, domain.DailyAlertState{Date: "2026-03-14", AlertsSent: 1}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14", loaded.Date)
	assert.Equal(t, 1, loaded.AlertsSent)
}
