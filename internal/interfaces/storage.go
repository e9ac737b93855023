package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/prism/internal/models"
)

// ErrKeyNotFound is returned when a key is not found in the key/value store
var ErrKeyNotFound = errors.New("key not found")

// ErrStateNotFound is returned when no previous dashboard state exists
var ErrStateNotFound = errors.New("dashboard state not found")

// KeyValuePair represents a single key/value pair with metadata
type KeyValuePair struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// KeyValueStorage defines operations for the response cache
type KeyValueStorage interface {
	// Get retrieves a value by key, returns ErrKeyNotFound if missing or expired
	Get(ctx context.Context, key string) (string, error)

	// Set inserts or updates a key with a time-to-live (zero means no expiry)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Delete removes a key
	Delete(ctx context.Context, key string) error

	// ListByPrefix returns all live pairs with keys starting with the given prefix
	ListByPrefix(ctx context.Context, prefix string) ([]KeyValuePair, error)

	// PurgeExpired removes expired pairs and returns how many were removed
	PurgeExpired(ctx context.Context) (int, error)
}

// StateStorage holds the single current dashboard snapshot.
type StateStorage interface {
	// Read returns ErrStateNotFound when there is no usable previous state
	Read(ctx context.Context) (*models.DashboardState, error)
	Write(ctx context.Context, state *models.DashboardState) error
	// Clear removes the snapshot; clearing an absent snapshot is not an error
	Clear(ctx context.Context) error
}

// HistoryStorage holds the bounded history log.
type HistoryStorage interface {
	Read(ctx context.Context) ([]models.HistoryEntry, error)
	Append(ctx context.Context, entry models.HistoryEntry) error
}
