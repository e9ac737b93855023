package models

import "time"

// PriceBar is a single daily bar. Providers return bars oldest first.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// NewsItem is an entry read from a news feed.
type NewsItem struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Source      string    `json:"source,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
	Feed        string    `json:"feed,omitempty"`
}
