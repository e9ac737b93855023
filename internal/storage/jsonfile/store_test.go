package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prism/internal/interfaces"
	"github.com/ternarybob/prism/internal/models"
)

func createTestLogger() arbor.ILogger {
	return arbor.NewLogger()
}

func TestStateStore_NotFound(t *testing.T) {
	store := NewStateStore(filepath.Join(t.TempDir(), "recommendations.json"), createTestLogger())

	_, err := store.Read(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrStateNotFound)
}

func TestStateStore_CorruptTreatedAsNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recommendations.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"summary": "trunc`), 0644))

	store := NewStateStore(path, createTestLogger())
	_, err := store.Read(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrStateNotFound)
}

func TestStateStore_WriteRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "recommendations.json")
	store := NewStateStore(path, createTestLogger())
	ctx := context.Background()

	state := &models.DashboardState{
		CycleID: "cycle-1",
		Date:    time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
		RecommendationPayload: models.RecommendationPayload{
			Summary: "ok",
			Tickers: []models.Instrument{{DisplayName: "삼성전자", Symbol: "005930.KS"}},
		},
	}
	require.NoError(t, store.Write(ctx, state))

	got, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cycle-1", got.CycleID)
	assert.Equal(t, state.Tickers, got.Tickers)
	assert.Equal(t, []models.MarketSession{}, got.MarketSessions)

	// Lists serialize as [] and no temp files linger
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, key := range []string{"marketSessions", "performanceRecords", "newsHeadlines", "sectors", "keywords"} {
		assert.Equal(t, "[]", string(fields[key]), key)
	}

	files, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestStateStore_WriteOverwrites(t *testing.T) {
	store := NewStateStore(filepath.Join(t.TempDir(), "recommendations.json"), createTestLogger())
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, &models.DashboardState{CycleID: "a"}))
	require.NoError(t, store.Write(ctx, &models.DashboardState{CycleID: "b"}))

	got, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", got.CycleID)
}

func TestStateStore_WriteNil(t *testing.T) {
	store := NewStateStore(filepath.Join(t.TempDir(), "recommendations.json"), createTestLogger())
	assert.Error(t, store.Write(context.Background(), nil))
}

func TestStateStore_Clear(t *testing.T) {
	store := NewStateStore(filepath.Join(t.TempDir(), "recommendations.json"), createTestLogger())
	ctx := context.Background()

	require.NoError(t, store.Clear(ctx), "clearing an absent snapshot is not an error")
	require.NoError(t, store.Write(ctx, &models.DashboardState{CycleID: "c1"}))
	require.NoError(t, store.Clear(ctx))

	_, err := store.Read(ctx)
	assert.ErrorIs(t, err, interfaces.ErrStateNotFound)
}

func TestHistoryStore_ReadAbsentAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	entries, err := NewHistoryStore(filepath.Join(dir, "absent.json"), 30, createTestLogger()).Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("not json"), 0644))
	store := NewHistoryStore(corrupt, 30, createTestLogger())

	entries, err = store.Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, store.Append(ctx, models.HistoryEntry{CycleID: "fresh"}))
	entries, err = store.Read(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fresh", entries[0].CycleID)
}

func TestHistoryStore_AppendTruncates(t *testing.T) {
	store := NewHistoryStore(filepath.Join(t.TempDir(), "history.json"), 30, createTestLogger())
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		require.NoError(t, store.Append(ctx, models.HistoryEntry{CycleID: fmt.Sprintf("c%02d", i)}))
	}
	entries, err := store.Read(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 30)

	require.NoError(t, store.Append(ctx, models.HistoryEntry{CycleID: "newest"}))

	entries, err = store.Read(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 30)
	assert.Equal(t, "c01", entries[0].CycleID, "oldest entry evicted")
	assert.Equal(t, "newest", entries[len(entries)-1].CycleID)
}

func TestHistoryStore_EvictsByAppendOrderNotDate(t *testing.T) {
	store := NewHistoryStore(filepath.Join(t.TempDir(), "history.json"), 2, createTestLogger())
	ctx := context.Background()

	late := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	early := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, models.HistoryEntry{CycleID: "first", Date: late}))
	require.NoError(t, store.Append(ctx, models.HistoryEntry{CycleID: "second", Date: early}))
	require.NoError(t, store.Append(ctx, models.HistoryEntry{CycleID: "third", Date: early}))

	entries, err := store.Read(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].CycleID)
	assert.Equal(t, "third", entries[1].CycleID)
}

func TestHistoryStore_DefaultLimit(t *testing.T) {
	store := NewHistoryStore(filepath.Join(t.TempDir(), "history.json"), 0, createTestLogger())
	assert.Equal(t, models.DefaultHistoryLimit, store.limit)
}
