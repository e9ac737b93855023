package notify

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prism/internal/httpclient"
	"github.com/ternarybob/prism/internal/interfaces"
)

var _ interfaces.Notifier = (*Ntfy)(nil)

// Ntfy publishes to an ntfy topic URL.
type Ntfy struct {
	topicURL   string
	token      string
	httpClient *http.Client
	logger     arbor.ILogger
}

// NewNtfy creates an ntfy notifier. token is optional.
func NewNtfy(topicURL, token string, logger arbor.ILogger) *Ntfy {
	return &Ntfy{
		topicURL:   topicURL,
		token:      token,
		httpClient: httpclient.NewHTTPClientWithUserAgent(20*time.Second, userAgent()),
		logger:     logger,
	}
}

// Name identifies the notifier.
func (n *Ntfy) Name() string {
	return "ntfy"
}

// Send publishes message with subject as the title.
func (n *Ntfy) Send(ctx context.Context, subject, message string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.topicURL, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	// Headers must be ASCII; ntfy decodes RFC 2047 encoded words
	req.Header.Set("Title", mime.QEncoding.Encode("utf-8", subject))
	req.Header.Set("Markdown", "yes")
	req.Header.Set("Tags", "chart_with_upwards_trend")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ntfy request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ntfy returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
