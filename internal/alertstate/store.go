// Package alertstate tracks the daily alert budget and which mints have
// already been alerted, persisted across restarts.
package alertstate

import (
	"context"

	"github.com/poggufanz/polymarket-sniper/internal/domain"
)

// Store persists the daily alert state.
type Store interface {
	// Load returns the most recently saved state. A store with no saved
	// state returns a zero-value state and no error.
	Load(ctx context.Context) (domain.DailyAlertState, error)

	// Save persists the state, replacing any previous state for the same date.
	Save(ctx context.Context, state domain.DailyAlertState) error
}
