package models

import "time"

// DefaultHistoryLimit is the number of entries the history log retains.
const DefaultHistoryLimit = 30

// HistoryEntry is one cycle's record in the rolling history log.
type HistoryEntry struct {
	CycleID               string              `json:"cycleId"`
	Date                  time.Time           `json:"date"`
	PerformanceRecords    []PerformanceRecord `json:"performanceRecords"`
	PredictedDisplayNames []string            `json:"predictedDisplayNames"`
}

// NewHistoryEntry builds the history entry for a persisted dashboard.
func NewHistoryEntry(state *DashboardState) HistoryEntry {
	records := state.PerformanceRecords
	if records == nil {
		records = []PerformanceRecord{}
	}
	return HistoryEntry{
		CycleID:               state.CycleID,
		Date:                  state.Date,
		PerformanceRecords:    records,
		PredictedDisplayNames: state.PredictedDisplayNames(),
	}
}
