// Package yahoo provides a client for the Yahoo Finance chart API, the default
// market data provider for indices and equities.
package yahoo

import "fmt"

// chartResponse is the envelope of /v8/finance/chart.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol               string  `json:"symbol"`
		Currency             string  `json:"currency"`
		ExchangeTimezoneName string  `json:"exchangeTimezoneName"`
		RegularMarketPrice   float64 `json:"regularMarketPrice"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			// Yahoo emits null for sessions without a print
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// APIError represents an error from the Yahoo chart API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Symbol     string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("yahoo chart error for %s: %s: %s (status: %d)", e.Symbol, e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("yahoo chart error for %s: %s (status: %d)", e.Symbol, e.Message, e.StatusCode)
}
