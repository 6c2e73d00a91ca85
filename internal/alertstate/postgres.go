package alertstate

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/poggufanz/polymarket-sniper/internal/domain"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS daily_alert_state (
    date           TEXT PRIMARY KEY,
    alerts_sent    INTEGER NOT NULL DEFAULT 0,
    tokens_alerted JSONB NOT NULL DEFAULT '[]',
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// PostgresStore implements Store using PostgreSQL. One row per UTC date.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// NewPool creates a Postgres connection pool and verifies the connection.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the alert state table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure alert state schema: %w", err)
	}
	return nil
}

// Load returns the most recent state by date. No rows yields a fresh state.
func (s *PostgresStore) Load(ctx context.Context) (domain.DailyAlertState, error) {
	query := `
		SELECT date, alerts_sent, tokens_alerted
		FROM daily_alert_state
		ORDER BY date DESC
		LIMIT 1
	`

	var state domain.DailyAlertState
	err := s.pool.QueryRow(ctx, query).Scan(&state.Date, &state.AlertsSent, &state.TokensAlerted)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.DailyAlertState{}, nil
		}
		return domain.DailyAlertState{}, fmt.Errorf("load alert state: %w", err)
	}
	return state, nil
}

// Save upserts the state row for its date.
func (s *PostgresStore) Save(ctx context.Context, state domain.DailyAlertState) error {
	query := `
		INSERT INTO daily_alert_state (date, alerts_sent, tokens_alerted, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (date) DO UPDATE SET
			alerts_sent = EXCLUDED.alerts_sent,
			tokens_alerted = EXCLUDED.tokens_alerted,
			updated_at = now()
	`

	if _, err := s.pool.Exec(ctx, query, state.Date, state.AlertsSent, state.TokensAlerted); err != nil {
		return fmt.Errorf("save alert state: %w", err)
	}
	return nil
}
