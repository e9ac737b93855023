// Package report merges market sessions, verified performance and the model payload into
// a schema-complete DashboardState.
package report

import (
	"time"

	"github.com/ternarybob/prism/internal/models"
)

// SymbolResolver maps a display name to a provider symbol.
type SymbolResolver interface {
	Resolve(displayName string) string
}

// Merger assembles dashboards. It holds no state beyond the resolver.
type Merger struct {
	resolver SymbolResolver
}

// NewMerger creates a merger.
func NewMerger(resolver SymbolResolver) *Merger {
	return &Merger{resolver: resolver}
}

// Merge builds the DashboardState for one cycle. Missing or wrongly typed payload fields
// take typed defaults; the only failure is ErrNoPayload when raw has no JSON object.
func (m *Merger) Merge(cycleID string, now time.Time, sessions []models.MarketSession, records []models.PerformanceRecord, raw string) (*models.DashboardState, error) {
	payload, err := m.DecodePayload(raw)
	if err != nil {
		return nil, err
	}

	state := &models.DashboardState{
		CycleID:               cycleID,
		Date:                  now,
		MarketSessions:        sessions,
		PerformanceRecords:    records,
		RecommendationPayload: *payload,
	}
	state.Normalize()
	return state, nil
}

// DecodePayload extracts and leniently decodes the recommendation payload from raw model text.
func (m *Merger) DecodePayload(raw string) (*models.RecommendationPayload, error) {
	object, err := ExtractObject(raw)
	if err != nil {
		return nil, err
	}

	f := newFields([]byte(object))

	tickers := decodeTickers(f.list("tickers"))
	for i := range tickers {
		if tickers[i].Symbol == "" {
			tickers[i].Symbol = m.resolver.Resolve(tickers[i].DisplayName)
		}
	}

	return &models.RecommendationPayload{
		Summary:       f.text("summary"),
		NewsHeadlines: decodeHeadlines(f.list("newsHeadlines", "headlines", "news")),
		Sectors:       decodeSectors(f.list("sectors")),
		Tickers:       tickers,
		Keywords:      decodeKeywords(f.list("keywords")),
		Reason:        f.text("reason"),
		PushMessage:   f.text("pushMessage"),
	}, nil
}
