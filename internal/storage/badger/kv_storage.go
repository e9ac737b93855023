package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/prism/internal/interfaces"
)

var _ interfaces.KeyValueStorage = (*KVStorage)(nil)

// KVStorage implements the KeyValueStorage interface for Badger
type KVStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	now    func() time.Time
}

// NewKVStorage creates a new KVStorage instance
func NewKVStorage(db *BadgerDB, logger arbor.ILogger) *KVStorage {
	return &KVStorage{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// normalizeKey converts a key to lowercase for case-insensitive storage
func (s *KVStorage) normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (s *KVStorage) expired(pair *interfaces.KeyValuePair) bool {
	return !pair.ExpiresAt.IsZero() && !s.now().Before(pair.ExpiresAt)
}

// Get retrieves a live value by key. Expired pairs are deleted lazily.
func (s *KVStorage) Get(ctx context.Context, key string) (string, error) {
	normalizedKey := s.normalizeKey(key)
	var pair interfaces.KeyValuePair
	err := s.db.Store().Get(normalizedKey, &pair)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return "", interfaces.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get key: %w", err)
	}

	if s.expired(&pair) {
		if err := s.db.Store().Delete(normalizedKey, &interfaces.KeyValuePair{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
			s.logger.Warn().Str("key", normalizedKey).Err(err).Msg("Failed to delete expired key")
		}
		return "", interfaces.ErrKeyNotFound
	}

	return pair.Value, nil
}

// Set inserts or updates a key/value pair. A zero ttl never expires.
func (s *KVStorage) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	normalizedKey := s.normalizeKey(key)
	now := s.now()

	pair := interfaces.KeyValuePair{
		Key:       normalizedKey,
		Value:     value,
		UpdatedAt: now,
	}
	if ttl > 0 {
		pair.ExpiresAt = now.Add(ttl)
	}

	if err := s.db.Store().Upsert(normalizedKey, &pair); err != nil {
		return fmt.Errorf("failed to set key/value: %w", err)
	}

	return nil
}

// Delete removes a key/value pair
func (s *KVStorage) Delete(ctx context.Context, key string) error {
	normalizedKey := s.normalizeKey(key)
	err := s.db.Store().Delete(normalizedKey, &interfaces.KeyValuePair{})
	if errors.Is(err, badgerhold.ErrNotFound) {
		return interfaces.ErrKeyNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// ListByPrefix returns live pairs whose key starts with prefix, most recently updated first
func (s *KVStorage) ListByPrefix(ctx context.Context, prefix string) ([]interfaces.KeyValuePair, error) {
	var all []interfaces.KeyValuePair
	if err := s.db.Store().Find(&all, nil); err != nil {
		return nil, fmt.Errorf("failed to list key/value pairs: %w", err)
	}

	prefix = s.normalizeKey(prefix)
	pairs := make([]interfaces.KeyValuePair, 0, len(all))
	for i := range all {
		if strings.HasPrefix(all[i].Key, prefix) && !s.expired(&all[i]) {
			pairs = append(pairs, all[i])
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].UpdatedAt.After(pairs[j].UpdatedAt)
	})
	return pairs, nil
}

// PurgeExpired removes every expired pair
func (s *KVStorage) PurgeExpired(ctx context.Context) (int, error) {
	var all []interfaces.KeyValuePair
	if err := s.db.Store().Find(&all, nil); err != nil {
		return 0, fmt.Errorf("failed to list key/value pairs for purge: %w", err)
	}

	purged := 0
	for i := range all {
		if !s.expired(&all[i]) {
			continue
		}
		if err := s.db.Store().Delete(all[i].Key, &interfaces.KeyValuePair{}); err != nil {
			s.logger.Warn().Str("key", all[i].Key).Err(err).Msg("Failed to delete key during purge")
			continue
		}
		purged++
	}

	if purged > 0 {
		s.logger.Debug().Int("count", purged).Msg("Purged expired cache entries")
	}
	return purged, nil
}
