package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prism/internal/interfaces"
	"github.com/ternarybob/prism/internal/models"
)

var _ interfaces.StateStorage = (*StateStore)(nil)

// StateStore holds the current dashboard snapshot in a single JSON file.
type StateStore struct {
	path   string
	logger arbor.ILogger
}

// NewStateStore creates a store backed by path
func NewStateStore(path string, logger arbor.ILogger) *StateStore {
	return &StateStore{path: path, logger: logger}
}

// Path returns the backing file path
func (s *StateStore) Path() string {
	return s.path
}

// Read returns the previous dashboard, or ErrStateNotFound when the file is absent or unreadable.
func (s *StateStore) Read(ctx context.Context) (*models.DashboardState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, interfaces.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state %s: %w", s.path, err)
	}

	var state models.DashboardState
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn().
			Err(err).
			Str("path", s.path).
			Msg("Dashboard state is corrupt, treating as first run")
		return nil, interfaces.ErrStateNotFound
	}

	state.Normalize()
	return &state, nil
}

// Clear removes the snapshot file.
func (s *StateStore) Clear(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear state: %w", err)
	}
	return nil
}

// Write atomically replaces the snapshot.
func (s *StateStore) Write(ctx context.Context, state *models.DashboardState) error {
	if state == nil {
		return errors.New("refusing to write nil dashboard state")
	}
	state.Normalize()

	if err := writeJSONAtomic(s.path, state); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}

	s.logger.Debug().
		Str("path", s.path).
		Str("cycle_id", state.CycleID).
		Msg("Dashboard state written")
	return nil
}
