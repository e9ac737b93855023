package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/prism/internal/common"
	"github.com/ternarybob/prism/internal/models"
)

func newTestMerger() *Merger {
	return NewMerger(common.NewDefaultTickerResolver())
}

var testNow = time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)

func TestMerge_MinimalPayloadDefaults(t *testing.T) {
	state, err := newTestMerger().Merge("cycle-1", testNow, nil, nil, `Note: see below. {"summary":"ok"} Thanks.`)
	require.NoError(t, err)

	assert.Equal(t, "ok", state.Summary)
	assert.Equal(t, "", state.Reason)
	assert.Equal(t, "", state.PushMessage)
	assert.Empty(t, state.NewsHeadlines)
	assert.Empty(t, state.Sectors)
	assert.Empty(t, state.Tickers)
	assert.Empty(t, state.Keywords)
	assert.Empty(t, state.MarketSessions)
	assert.Empty(t, state.PerformanceRecords)
	assert.Equal(t, "cycle-1", state.CycleID)
	assert.True(t, state.Date.Equal(testNow))
}

func TestMerge_SchemaComplete(t *testing.T) {
	state, err := newTestMerger().Merge("cycle-1", testNow, nil, []models.PerformanceRecord{}, `{}`)
	require.NoError(t, err)

	data, err := json.Marshal(state)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))

	for _, key := range []string{"marketSessions", "performanceRecords", "newsHeadlines", "sectors", "tickers", "keywords"} {
		value, ok := fields[key]
		require.True(t, ok, key)
		assert.IsType(t, []interface{}{}, value, key)
	}
	for _, key := range []string{"cycleId", "summary", "reason", "pushMessage", "date"} {
		value, ok := fields[key]
		require.True(t, ok, key)
		assert.IsType(t, "", value, key)
	}
}

func TestMerge_FullPayload(t *testing.T) {
	raw := "분석 결과입니다.\n```json\n" + `{
  "summary": "반도체 강세",
  "newsHeadlines": [{"title": "Chip rally", "link": "https://example.com/a"}, "stray"],
  "sectors": [{"name": "반도체", "sentiment": "positive", "reason": "AI 수요"}],
  "tickers": [
    {"displayName": "삼성전자", "symbol": "005930.KS"},
    {"displayName": "엔비디아"},
    "035420.KS",
    {"symbol": "AAPL"},
    {"displayName": ""},
    42
  ],
  "keywords": [{"name": "HBM", "weight": 0.9}, {"name": "환율", "weight": "high"}, 7],
  "reason": "수출 호조",
  "pushMessage": "오늘의 추천"
}` + "\n```"

	sessions := []models.MarketSession{{ExchangeName: "코스피", Symbol: "^KS11", LastPrice: 2500}}
	records := []models.PerformanceRecord{{DisplayName: "삼성전자", Symbol: "005930.KS", ChangePercent: 2.0, Status: models.PerformanceOK}}

	state, err := newTestMerger().Merge("cycle-2", testNow, sessions, records, raw)
	require.NoError(t, err)

	assert.Equal(t, "반도체 강세", state.Summary)
	assert.Equal(t, []models.NewsHeadline{{Title: "Chip rally", Link: "https://example.com/a"}}, state.NewsHeadlines)
	assert.Equal(t, []models.Sector{{Name: "반도체", Sentiment: "positive", Reason: "AI 수요"}}, state.Sectors)
	assert.Equal(t, []models.Instrument{
		{DisplayName: "삼성전자", Symbol: "005930.KS"},
		{DisplayName: "엔비디아", Symbol: "NVDA"},
		{DisplayName: "035420.KS", Symbol: "035420.KS"},
		{DisplayName: "AAPL", Symbol: "AAPL"},
	}, state.Tickers)
	assert.Equal(t, []models.Keyword{{Name: "HBM", Weight: 0.9}, {Name: "환율", Weight: 0}}, state.Keywords)
	assert.Equal(t, "수출 호조", state.Reason)
	assert.Equal(t, "오늘의 추천", state.PushMessage)
	assert.Equal(t, sessions, state.MarketSessions)
	assert.Equal(t, records, state.PerformanceRecords)
}

func TestMerge_WrongTypesDefault(t *testing.T) {
	raw := `{"summary": 12, "tickers": "삼성전자", "sectors": {"name": "x"}, "keywords": null, "reason": ["a"], "pushMessage": true}`

	state, err := newTestMerger().Merge("c", testNow, nil, nil, raw)
	require.NoError(t, err)

	assert.Equal(t, "", state.Summary)
	assert.Equal(t, []models.Instrument{}, state.Tickers)
	assert.Equal(t, []models.Sector{}, state.Sectors)
	assert.Equal(t, []models.Keyword{}, state.Keywords)
	assert.Equal(t, "", state.Reason)
	assert.Equal(t, "", state.PushMessage)
}

func TestMerge_LegacyUppercaseKeys(t *testing.T) {
	raw := `{"SUMMARY": "legacy", "TICKERS": ["005930.KS", "000660"], "PUSH_MESSAGE": "hi"}`

	state, err := newTestMerger().Merge("c", testNow, nil, nil, raw)
	require.NoError(t, err)

	assert.Equal(t, "legacy", state.Summary)
	assert.Equal(t, "hi", state.PushMessage)
	require.Len(t, state.Tickers, 2)
	assert.Equal(t, "005930.KS", state.Tickers[0].Symbol)
	assert.Equal(t, "000660", state.Tickers[1].Symbol, "string tickers keep their literal symbol")
}

func TestMerge_NoPayload(t *testing.T) {
	_, err := newTestMerger().Merge("c", testNow, nil, nil, "I could not produce a recommendation today.")
	assert.ErrorIs(t, err, ErrNoPayload)
}

func TestMerge_CollidingKeysAreDeterministic(t *testing.T) {
	raw := `{"PUSH_MESSAGE":"upper","push_message":"snake","pushMessage":"camel","SUMMARY":"upper","summary_":"trailing"}`

	for i := 0; i < 50; i++ {
		state, err := newTestMerger().Merge("cycle-1", testNow, nil, nil, raw)
		require.NoError(t, err)
		assert.Equal(t, "camel", state.PushMessage, "an exact key wins")
		// "SUMMARY" sorts before "summary_"
		assert.Equal(t, "upper", state.Summary, "collisions resolve in sorted key order")
	}
}
