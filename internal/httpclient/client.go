// Package httpclient builds the HTTP clients shared by the feed, notifier and market data adapters.
package httpclient

import (
	"net/http"
	"time"
)

// NewDefaultHTTPClient creates a simple HTTP client with a timeout
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}

// NewHTTPClientWithUserAgent creates a client that sends userAgent on every request
// that does not set its own. Some feed hosts reject Go's default agent.
func NewHTTPClientWithUserAgent(timeout time.Duration, userAgent string) *http.Client {
	client := NewDefaultHTTPClient(timeout)
	if userAgent != "" {
		client.Transport = &userAgentTransport{next: http.DefaultTransport, userAgent: userAgent}
	}
	return client
}

type userAgentTransport struct {
	next      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(req)
	}
	// RoundTrippers must not modify the caller's request
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.next.RoundTrip(clone)
}
