package performance

import (
	"github.com/ternarybob/prism/internal/common"
	"github.com/ternarybob/prism/internal/models"
)

// Evaluate returns the last-two-close change of bars and its status.
//   - fewer than two bars, or a zero previous close: 0, insufficient_data
//   - zero volume on the latest bar: 0, no_trade
//   - otherwise the rounded change: ok
func Evaluate(bars []models.PriceBar) (float64, models.PerformanceStatus) {
	if len(bars) < 2 {
		return 0, models.PerformanceInsufficientData
	}

	latest := bars[len(bars)-1]
	if latest.Volume == 0 {
		return 0, models.PerformanceNoTrade
	}

	change, ok := common.PercentChange(bars[len(bars)-2].Close, latest.Close)
	if !ok {
		return 0, models.PerformanceInsufficientData
	}
	return change, models.PerformanceOK
}
