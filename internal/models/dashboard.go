package models

import "time"

// Instrument is a recommended security. DisplayName is the join key across cycles.
type Instrument struct {
	DisplayName string `json:"displayName"`
	Symbol      string `json:"symbol"`
}

// NewsHeadline is a headline the model chose to surface.
type NewsHeadline struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Sector is a sector call with its sentiment.
type Sector struct {
	Name      string `json:"name"`
	Sentiment string `json:"sentiment"`
	Reason    string `json:"reason"`
}

// Keyword is a weighted theme keyword.
type Keyword struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// RecommendationPayload is the validated, default-filled model output.
type RecommendationPayload struct {
	Summary       string         `json:"summary"`
	NewsHeadlines []NewsHeadline `json:"newsHeadlines"`
	Sectors       []Sector       `json:"sectors"`
	Tickers       []Instrument   `json:"tickers"`
	Keywords      []Keyword      `json:"keywords"`
	Reason        string         `json:"reason"`
	PushMessage   string         `json:"pushMessage"`
}

// MarketSession is one tracked exchange's status for the day.
type MarketSession struct {
	ExchangeName  string    `json:"exchangeName"`
	Symbol        string    `json:"symbol"`
	LastPrice     float64   `json:"lastPrice"`
	ChangePercent float64   `json:"changePercent"`
	IsTradingDay  bool      `json:"isTradingDay"`
	IsOpen        bool      `json:"isOpen"`
	AsOf          time.Time `json:"asOf"`
}

// DashboardState is the persisted current snapshot. Every field is always present;
// list fields are never nil once produced by the report merger.
type DashboardState struct {
	CycleID            string              `json:"cycleId"`
	Date               time.Time           `json:"date"`
	MarketSessions     []MarketSession     `json:"marketSessions"`
	PerformanceRecords []PerformanceRecord `json:"performanceRecords"`
	RecommendationPayload
}

// PredictedDisplayNames returns the display names of the recommended tickers in order.
func (d *DashboardState) PredictedDisplayNames() []string {
	names := make([]string, 0, len(d.Tickers))
	for _, t := range d.Tickers {
		names = append(names, t.DisplayName)
	}
	return names
}

// Normalize replaces nil lists with empty ones so every list encodes as [] rather than null.
func (d *DashboardState) Normalize() {
	if d.MarketSessions == nil {
		d.MarketSessions = []MarketSession{}
	}
	if d.PerformanceRecords == nil {
		d.PerformanceRecords = []PerformanceRecord{}
	}
	if d.NewsHeadlines == nil {
		d.NewsHeadlines = []NewsHeadline{}
	}
	if d.Sectors == nil {
		d.Sectors = []Sector{}
	}
	if d.Tickers == nil {
		d.Tickers = []Instrument{}
	}
	if d.Keywords == nil {
		d.Keywords = []Keyword{}
	}
}
