package models

// PerformanceStatus qualifies a PerformanceRecord's change value.
type PerformanceStatus string

const (
	// PerformanceOK means ChangePercent is a real close-to-close move
	PerformanceOK PerformanceStatus = "ok"
	// PerformanceNoTrade means the latest bar had zero volume; ChangePercent is 0
	PerformanceNoTrade PerformanceStatus = "no_trade"
	// PerformanceInsufficientData means fewer than two usable bars; ChangePercent is 0
	PerformanceInsufficientData PerformanceStatus = "insufficient_data"
)

// PerformanceRecord is how one of the previous cycle's picks moved.
type PerformanceRecord struct {
	DisplayName   string            `json:"displayName"`
	Symbol        string            `json:"symbol"`
	ChangePercent float64           `json:"changePercent"`
	Status        PerformanceStatus `json:"status"`
}
