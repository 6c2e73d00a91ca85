package alertstate

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/poggufanz/polymarket-sniper/internal/domain"
)

// Slot denial reasons.
const (
	ReasonDailyCap  = "daily_cap"
	ReasonDuplicate = "duplicate"
)

// Decision is the outcome of a slot request.
type Decision struct {
	Granted bool
	Reason  string // set when not granted
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Store        Store
	MaxAlertsDay int
	Logger       *log.Logger
	Now          func() time.Time // defaults to time.Now
}

// Manager serializes access to the daily alert budget. The in-memory state
// is authoritative within a run; the store makes it survive restarts.
type Manager struct {
	store  Store
	maxDay int
	logger *log.Logger
	now    func() time.Time

	mu     sync.Mutex
	state  domain.DailyAlertState
	loaded bool
}

// NewManager creates a manager over the given store.
func NewManager(opts ManagerOptions) *Manager {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		store:  opts.Store,
		maxDay: opts.MaxAlertsDay,
		logger: opts.Logger,
		now:    opts.Now,
	}
}

// AlreadyAlerted reports whether the mint was alerted today.
func (m *Manager) AlreadyAlerted(ctx context.Context, mint string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.refresh(ctx); err != nil {
		return false, err
	}
	return m.state.HasAlerted(mint), nil
}

// AcquireSlot atomically checks the duplicate and cap rules and, if both
// pass, records the alert and persists the state. The slot is committed
// before any notification is attempted and is never returned.
func (m *Manager) AcquireSlot(ctx context.Context, mint, symbol string) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.refresh(ctx); err != nil {
		return Decision{}, err
	}

	if m.state.HasAlerted(mint) {
		return Decision{Reason: ReasonDuplicate}, nil
	}
	if m.state.AlertsSent >= m.maxDay {
		return Decision{Reason: ReasonDailyCap}, nil
	}

	m.state.AlertsSent++
	m.state.TokensAlerted = append(m.state.TokensAlerted, domain.AlertRecord{
		Mint:      mint,
		Symbol:    symbol,
		Timestamp: m.now().UTC(),
	})

	// A persistence failure must not release the slot: over-alerting is the
	// failure mode this component exists to prevent.
	if err := m.store.Save(ctx, m.state); err != nil {
		m.logger.Printf("[alertstate] save failed, slot held in memory: %v", err)
	}

	return Decision{Granted: true}, nil
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot(ctx context.Context) (domain.DailyAlertState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.refresh(ctx); err != nil {
		return domain.DailyAlertState{}, err
	}
	out := m.state
	out.TokensAlerted = append([]domain.AlertRecord(nil), m.state.TokensAlerted...)
	return out, nil
}

// refresh lazily loads persisted state and rolls the day over when the UTC
// date has changed since the state was written. Callers hold m.mu.
func (m *Manager) refresh(ctx context.Context) error {
	if !m.loaded {
		state, err := m.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("load alert state: %w", err)
		}
		m.state = state
		m.loaded = true
	}

	today := domain.DateKey(m.now())
	if m.state.Date != today {
		if m.state.Date != "" {
			m.logger.Printf("[alertstate] day rollover %s -> %s, resetting budget", m.state.Date, today)
		}
		m.state = domain.DailyAlertState{Date: today}
		if err := m.store.Save(ctx, m.state); err != nil {
			m.logger.Printf("[alertstate] save after rollover failed: %v", err)
		}
	}
	return nil
}
