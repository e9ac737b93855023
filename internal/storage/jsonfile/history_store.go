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

var _ interfaces.HistoryStorage = (*HistoryStore)(nil)

// HistoryStore keeps the most recent entries of the history log in one JSON array,
// oldest first.
type HistoryStore struct {
	path   string
	limit  int
	logger arbor.ILogger
}

// NewHistoryStore creates a store backed by path that retains at most limit entries
func NewHistoryStore(path string, limit int, logger arbor.ILogger) *HistoryStore {
	if limit <= 0 {
		limit = models.DefaultHistoryLimit
	}
	return &HistoryStore{path: path, limit: limit, logger: logger}
}

// Read returns the log. An absent or corrupt file reads as empty.
func (s *HistoryStore) Read(ctx context.Context) ([]models.HistoryEntry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.HistoryEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history %s: %w", s.path, err)
	}

	var entries []models.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn().
			Err(err).
			Str("path", s.path).
			Msg("History log is corrupt, starting a new log")
		return []models.HistoryEntry{}, nil
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	return entries, nil
}

// Append adds entry at the end, evicts the oldest entries beyond the limit and
// writes the log back atomically.
func (s *HistoryStore) Append(ctx context.Context, entry models.HistoryEntry) error {
	entries, err := s.Read(ctx)
	if err != nil {
		return err
	}

	if entry.PerformanceRecords == nil {
		entry.PerformanceRecords = []models.PerformanceRecord{}
	}
	if entry.PredictedDisplayNames == nil {
		entry.PredictedDisplayNames = []string{}
	}

	entries = append(entries, entry)
	if len(entries) > s.limit {
		entries = entries[len(entries)-s.limit:]
	}

	if err := writeJSONAtomic(s.path, entries); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}

	s.logger.Debug().
		Str("path", s.path).
		Int("entries", len(entries)).
		Msg("History entry appended")
	return nil
}
