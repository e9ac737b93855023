package cycle

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prism/internal/common"
	"github.com/ternarybob/prism/internal/interfaces"
	"github.com/ternarybob/prism/internal/models"
	"github.com/ternarybob/prism/internal/services/report"
	"github.com/ternarybob/prism/internal/storage/jsonfile"
)

func createTestLogger() arbor.ILogger {
	return arbor.NewLogger()
}

var fixedNow = time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)

type fakeSessions struct {
	sessions []models.MarketSession
	outcomes []models.Outcome
}

func (f *fakeSessions) Sessions(ctx context.Context) ([]models.MarketSession, []models.Outcome) {
	return f.sessions, f.outcomes
}

type fakePerformance struct {
	got []models.Instrument
}

func (f *fakePerformance) Verify(ctx context.Context, instruments []models.Instrument) ([]models.PerformanceRecord, []models.Outcome) {
	f.got = instruments
	records := make([]models.PerformanceRecord, 0, len(instruments))
	for _, in := range instruments {
		records = append(records, models.PerformanceRecord{DisplayName: in.DisplayName, Symbol: in.Symbol, ChangePercent: 2.0, Status: models.PerformanceOK})
	}
	return records, nil
}

type fakeNews struct {
	outcomes []models.Outcome
}

func (f *fakeNews) Headlines(ctx context.Context) ([]models.NewsItem, []models.Outcome) {
	return []models.NewsItem{{Title: "반도체 수출 증가"}}, f.outcomes
}

type fakeModel struct {
	text   string
	err    error
	prompt string
	panic  bool
}

func (f *fakeModel) Generate(ctx context.Context, prompt string) (string, error) {
	if f.panic {
		panic("model exploded")
	}
	f.prompt = prompt
	return f.text, f.err
}

type fakeDelivery struct {
	message  string
	outcomes []models.Outcome
}

func (f *fakeDelivery) Deliver(ctx context.Context, subject, message string) []models.Outcome {
	f.message = message
	return f.outcomes
}

type failingState struct {
	readErr  error
	writeErr error
}

func (f *failingState) Read(ctx context.Context) (*models.DashboardState, error) {
	return nil, f.readErr
}

func (f *failingState) Write(ctx context.Context, state *models.DashboardState) error {
	return f.writeErr
}

func (f *failingState) Clear(ctx context.Context) error {
	return nil
}

// rollbackFailingState writes through to a real store but cannot restore it.
type rollbackFailingState struct {
	*jsonfile.StateStore
	writes int
}

func (r *rollbackFailingState) Write(ctx context.Context, state *models.DashboardState) error {
	r.writes++
	if r.writes > 1 {
		return errors.New("read-only filesystem")
	}
	return r.StateStore.Write(ctx, state)
}

func (r *rollbackFailingState) Clear(ctx context.Context) error {
	return errors.New("read-only filesystem")
}

type failingHistory struct{}

func (failingHistory) Read(ctx context.Context) ([]models.HistoryEntry, error) {
	return []models.HistoryEntry{}, nil
}

func (failingHistory) Append(ctx context.Context, entry models.HistoryEntry) error {
	return errors.New("disk full")
}

type harness struct {
	dir         string
	deps        Dependencies
	model       *fakeModel
	performance *fakePerformance
	delivery    *fakeDelivery
	state       *jsonfile.StateStore
	history     *jsonfile.HistoryStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	logger := createTestLogger()

	h := &harness{
		dir:         dir,
		model:       &fakeModel{text: `여기 결과입니다 {"summary":"반도체 강세","tickers":[{"displayName":"삼성전자"}],"pushMessage":"오늘의 노트"}`},
		performance: &fakePerformance{},
		delivery:    &fakeDelivery{},
		state:       jsonfile.NewStateStore(filepath.Join(dir, "recommendations.json"), logger),
		history:     jsonfile.NewHistoryStore(filepath.Join(dir, "history.json"), 30, logger),
	}
	h.deps = Dependencies{
		State:   h.state,
		History: h.history,
		Sessions: &fakeSessions{sessions: []models.MarketSession{
			{ExchangeName: "코스피", Symbol: "^KS11", LastPrice: 2650, ChangePercent: 1.2, IsTradingDay: true},
		}},
		Performance: h.performance,
		News:        &fakeNews{},
		Model:       h.model,
		Merger:      report.NewMerger(common.NewDefaultTickerResolver()),
		Delivery:    h.delivery,
	}
	return h
}

func (h *harness) engine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(h.deps, createTestLogger())
	require.NoError(t, err)
	e.WithClock(func() time.Time { return fixedNow })
	e.newID = func() string { return "cycle-1" }
	return e
}

func TestEngine_FirstRunPersistsAndDelivers(t *testing.T) {
	h := newHarness(t)

	result := h.engine(t).Run(context.Background())

	require.NoError(t, result.Err)
	assert.Equal(t, models.CycleSuccess, result.Status)
	assert.Equal(t, models.PhasePersisted, result.Phase)
	assert.Equal(t, "cycle-1", result.CycleID)
	assert.Empty(t, h.performance.got, "no previous state means nothing to verify")
	assert.Contains(t, h.model.prompt, "반도체 수출 증가")
	assert.Equal(t, "오늘의 노트", h.delivery.message)

	state, err := h.state.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "반도체 강세", state.Summary)
	require.Len(t, state.Tickers, 1)
	assert.Equal(t, "005930.KS", state.Tickers[0].Symbol)
	assert.Empty(t, state.PerformanceRecords)

	data, err := os.ReadFile(h.state.Path())
	require.NoError(t, err)
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, []interface{}{}, raw["performanceRecords"])

	entries, err := h.history.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"삼성전자"}, entries[0].PredictedDisplayNames)
}

func TestEngine_VerifiesPreviousPicks(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.state.Write(context.Background(), &models.DashboardState{
		CycleID: "previous",
		RecommendationPayload: models.RecommendationPayload{
			Tickers: []models.Instrument{{DisplayName: "삼성전자", Symbol: "005930.KS"}},
		},
	}))

	result := h.engine(t).Run(context.Background())

	require.NoError(t, result.Err)
	require.Len(t, h.performance.got, 1)
	assert.Equal(t, "삼성전자", h.performance.got[0].DisplayName)
	require.Len(t, result.Dashboard.PerformanceRecords, 1)
	assert.InDelta(t, 2.0, result.Dashboard.PerformanceRecords[0].ChangePercent, 1e-9)
}

func TestEngine_ModelFailureAborts(t *testing.T) {
	h := newHarness(t)
	h.model.err = errors.New("quota exhausted")

	result := h.engine(t).Run(context.Background())

	assert.Equal(t, models.CycleAborted, result.Status)
	assert.Equal(t, models.PhaseMerging, result.Phase)
	assert.ErrorContains(t, result.Err, "quota exhausted")
	assert.Empty(t, h.delivery.message)

	_, err := os.Stat(h.state.Path())
	assert.True(t, os.IsNotExist(err), "nothing is persisted")
}

func TestEngine_NoPayloadAborts(t *testing.T) {
	h := newHarness(t)
	h.model.text = "죄송합니다. 답변할 수 없습니다."

	result := h.engine(t).Run(context.Background())

	assert.Equal(t, models.CycleAborted, result.Status)
	assert.ErrorIs(t, result.Err, report.ErrNoPayload)
	_, err := os.Stat(h.state.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestEngine_WriteFailureAborts(t *testing.T) {
	h := newHarness(t)
	h.deps.State = &failingState{readErr: errors.New("unreadable"), writeErr: errors.New("disk full")}

	result := h.engine(t).Run(context.Background())

	assert.Equal(t, models.CycleAborted, result.Status)
	assert.Equal(t, models.PhaseMerging, result.Phase)
	assert.ErrorContains(t, result.Err, "disk full")
	assert.Empty(t, h.delivery.message, "no delivery without a persisted dashboard")

	entries, err := h.history.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEngine_HistoryFailureRestoresPreviousState(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.state.Write(context.Background(), &models.DashboardState{
		CycleID: "previous",
		RecommendationPayload: models.RecommendationPayload{
			Tickers: []models.Instrument{{DisplayName: "삼성전자", Symbol: "005930.KS"}},
		},
	}))
	h.deps.History = failingHistory{}

	result := h.engine(t).Run(context.Background())

	assert.Equal(t, models.CycleAborted, result.Status)
	assert.Equal(t, models.PhaseMerging, result.Phase, "nothing stays committed")
	assert.ErrorContains(t, result.Err, "disk full")
	assert.Empty(t, h.delivery.message)

	state, err := h.state.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "previous", state.CycleID)
	require.Len(t, state.Tickers, 1)
	assert.Equal(t, "삼성전자", state.Tickers[0].DisplayName)
}

func TestEngine_HistoryFailureOnFirstRunLeavesNoState(t *testing.T) {
	h := newHarness(t)
	h.deps.History = failingHistory{}

	result := h.engine(t).Run(context.Background())

	assert.Equal(t, models.CycleAborted, result.Status)
	assert.Equal(t, models.PhaseMerging, result.Phase)

	_, err := h.state.Read(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrStateNotFound)
}

func TestEngine_FailedRollbackReportsStateOnly(t *testing.T) {
	h := newHarness(t)
	store := &rollbackFailingState{StateStore: h.state}
	h.deps.State = store
	h.deps.History = failingHistory{}

	result := h.engine(t).Run(context.Background())

	assert.Equal(t, models.CycleAborted, result.Status)
	assert.Equal(t, models.PhaseStateOnly, result.Phase)

	var rollback *models.Outcome
	for i := range result.Outcomes {
		if result.Outcomes[i].Target == "rollback" {
			rollback = &result.Outcomes[i]
		}
	}
	require.NotNil(t, rollback)
	assert.Equal(t, models.OutcomeFailed, rollback.Status)
}

func TestEngine_CollaboratorFailuresDegrade(t *testing.T) {
	h := newHarness(t)
	h.deps.News = &fakeNews{outcomes: []models.Outcome{
		models.NewOutcome(models.CollaboratorNewsFeed, "국내", models.OutcomeDegraded, errors.New("timeout")),
	}}
	h.delivery.outcomes = []models.Outcome{
		models.NewOutcome(models.CollaboratorNotifier, "telegram", models.OutcomeDegraded, errors.New("401")),
	}

	result := h.engine(t).Run(context.Background())

	require.NoError(t, result.Err)
	assert.Equal(t, models.CycleDegraded, result.Status)
	assert.Equal(t, models.PhasePersisted, result.Phase)
}

func TestEngine_PanicIsAborted(t *testing.T) {
	h := newHarness(t)
	h.model.panic = true

	var result *models.CycleResult
	require.NotPanics(t, func() {
		result = h.engine(t).Run(context.Background())
	})
	assert.Equal(t, models.CycleAborted, result.Status)
	assert.ErrorContains(t, result.Err, "model exploded")
}

func TestNewEngine_RequiresCollaborators(t *testing.T) {
	_, err := NewEngine(Dependencies{}, createTestLogger())
	assert.Error(t, err)
}
