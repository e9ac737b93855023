package common

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ternarybob/prism/internal/models"
)

// ClockTime is a local wall-clock time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

// Minutes returns minutes since local midnight.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

// ParseClock parses "HH:MM". "24:00" is accepted as end of day; trailing text is rejected.
func ParseClock(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	if s == "24:00" {
		return ClockTime{Hour: 24}, nil
	}

	t, err := time.Parse("15:04", s)
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// ExchangeHours are the regular session hours of one exchange in its own time zone.
type ExchangeHours struct {
	Name     string
	Symbol   string
	Location *time.Location
	Open     ClockTime
	Close    ClockTime
}

// NewExchangeHours resolves the time zone and session hours of a configured index.
func NewExchangeHours(config ExchangeConfig) (*ExchangeHours, error) {
	loc, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", config.Timezone, err)
	}
	open, err := ParseClock(config.Open)
	if err != nil {
		return nil, err
	}
	closeTime, err := ParseClock(config.Close)
	if err != nil {
		return nil, err
	}
	return &ExchangeHours{
		Name:     config.Name,
		Symbol:   config.Symbol,
		Location: loc,
		Open:     open,
		Close:    closeTime,
	}, nil
}

// SessionState is the result of a session check.
type SessionState struct {
	// IsTradingDay is true when today is a weekday and the provider has a bar dated today
	IsTradingDay bool
	// IsOpen additionally requires the local clock inside session hours and traded volume
	IsOpen bool
	// Reason provides a human-readable explanation for the decision
	Reason string
}

// CheckSession determines whether the exchange trades today and is open right now.
//
// The latest bar's local date is the holiday signal: providers keep serving the last
// session's bar on holidays instead of erroring, so a bar not dated today means closed.
// A bar dated today with zero volume means halted or not yet opened.
func CheckSession(hours *ExchangeHours, bars []models.PriceBar, now time.Time) SessionState {
	local := now.In(hours.Location)

	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return SessionState{Reason: fmt.Sprintf("%s is a weekend day", local.Format("2006-01-02 Mon"))}
	}

	if len(bars) == 0 {
		return SessionState{Reason: "no price history"}
	}

	latest := bars[len(bars)-1]
	barLocal := latest.Date.In(hours.Location)
	if !sameDate(barLocal, local) {
		return SessionState{
			Reason: fmt.Sprintf("latest bar dated %s, today is %s (holiday or stale data)",
				barLocal.Format("2006-01-02"), local.Format("2006-01-02")),
		}
	}

	minutes := local.Hour()*60 + local.Minute()
	if minutes < hours.Open.Minutes() || minutes >= hours.Close.Minutes() {
		return SessionState{
			IsTradingDay: true,
			Reason:       fmt.Sprintf("outside session hours at %s local", local.Format("15:04")),
		}
	}

	if latest.Volume <= 0 {
		return SessionState{
			IsTradingDay: true,
			Reason:       "latest bar has zero volume (halted or not yet opened)",
		}
	}

	return SessionState{IsTradingDay: true, IsOpen: true, Reason: "session open"}
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// PercentChange returns (last-prev)/prev*100 rounded to two decimals.
// ok is false when prev is zero and no change can be computed.
func PercentChange(prev, last float64) (change float64, ok bool) {
	if prev == 0 {
		return 0, false
	}
	return math.Round((last-prev)/prev*100*100) / 100, true
}
