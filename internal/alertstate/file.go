package alertstate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/poggufanz/polymarket-sniper/internal/domain"
)

// FileStore persists the daily alert state as a JSON file.
type FileStore struct {
	path   string
	logger *log.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file-backed store at the given path.
func NewFileStore(path string, logger *log.Logger) *FileStore {
	if logger == nil {
		logger = log.Default()
	}
	return &FileStore{path: path, logger: logger}
}

// Load reads the state file. A missing or corrupt file yields a fresh
// zero-value state: losing the counter can only make alerting stricter
// than necessary, never looser, once the day rolls over.
func (s *FileStore) Load(_ context.Context) (domain.DailyAlertState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.DailyAlertState{}, nil
		}
		return domain.DailyAlertState{}, fmt.Errorf("read alert state: %w", err)
	}

	var state domain.DailyAlertState
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Printf("[alertstate] corrupt state file %s, starting fresh: %v", s.path, err)
		return domain.DailyAlertState{}, nil
	}
	return state, nil
}

// Save writes the state atomically via a temp file and rename.
func (s *FileStore) Save(_ context.Context, state domain.DailyAlertState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal alert state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write alert state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename alert state: %w", err)
	}
	return nil
}
