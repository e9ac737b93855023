// Package notify formats the cycle notification and delivers it to Telegram, ntfy and mail.
package notify

import (
	"fmt"
	"strings"

	"github.com/ternarybob/prism/internal/models"
)

const (
	// DefaultMessageLimit keeps a message with the marker under Telegram's 4096 limit.
	DefaultMessageLimit = 3800

	// TruncationMarker is appended to shortened messages.
	TruncationMarker = "\n\n...(중략)"
)

// Truncate caps message at limit runes, appending TruncationMarker when it cuts.
func Truncate(message string, limit int) string {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	runes := []rune(message)
	if len(runes) <= limit {
		return message
	}
	return string(runes[:limit]) + TruncationMarker
}

// Subject returns the notification subject for a dashboard.
func Subject(state *models.DashboardState) string {
	return fmt.Sprintf("Prism 투자 노트 %s", state.Date.Format("2006-01-02"))
}

// FormatMessage returns the model's push message, or a digest built from the dashboard
// when the model left it empty, capped at limit runes.
func FormatMessage(state *models.DashboardState, limit int) string {
	message := strings.TrimSpace(state.PushMessage)
	if message == "" {
		message = digest(state)
	}
	return Truncate(message, limit)
}

func digest(state *models.DashboardState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", Subject(state))

	if len(state.MarketSessions) > 0 {
		b.WriteString("\n*지수*\n")
		for _, s := range state.MarketSessions {
			fmt.Fprintf(&b, "- %s %.2f (%+.2f%%)\n", s.ExchangeName, s.LastPrice, s.ChangePercent)
		}
	}

	if state.Summary != "" {
		fmt.Fprintf(&b, "\n%s\n", state.Summary)
	}

	if len(state.Tickers) > 0 {
		b.WriteString("\n*추천 종목*\n")
		for _, t := range state.Tickers {
			fmt.Fprintf(&b, "- %s (%s)\n", t.DisplayName, t.Symbol)
		}
	}

	if len(state.PerformanceRecords) > 0 {
		b.WriteString("\n*지난 추천 성과*\n")
		for _, p := range state.PerformanceRecords {
			switch p.Status {
			case models.PerformanceOK:
				fmt.Fprintf(&b, "- %s %+.2f%%\n", p.DisplayName, p.ChangePercent)
			default:
				fmt.Fprintf(&b, "- %s %s\n", p.DisplayName, p.Status)
			}
		}
	}

	return strings.TrimSpace(b.String())
}
