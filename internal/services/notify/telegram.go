package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/prism/internal/httpclient"
	"github.com/ternarybob/prism/internal/interfaces"
)

// DefaultTelegramBaseURL is the Bot API host.
const DefaultTelegramBaseURL = "https://api.telegram.org"

var _ interfaces.Notifier = (*Telegram)(nil)

// Telegram sends messages through the Bot API sendMessage method.
type Telegram struct {
	baseURL    string
	token      string
	chatID     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     arbor.ILogger
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(baseURL, token, chatID string, logger arbor.ILogger) *Telegram {
	if baseURL == "" {
		baseURL = DefaultTelegramBaseURL
	}
	return &Telegram{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		chatID:     chatID,
		httpClient: httpclient.NewHTTPClientWithUserAgent(20*time.Second, userAgent()),
		// Bot API allows about one message per second per chat
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		logger:  logger,
	}
}

// Name identifies the notifier.
func (t *Telegram) Name() string {
	return "telegram"
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type botResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// Send posts message as Markdown. Model-written text often has unbalanced markup, so a
// "can't parse entities" rejection is retried once as plain text.
func (t *Telegram) Send(ctx context.Context, subject, message string) error {
	err := t.send(ctx, sendMessageRequest{ChatID: t.chatID, Text: message, ParseMode: "Markdown"})
	if err != nil && strings.Contains(err.Error(), "can't parse entities") {
		t.logger.Debug().Msg("Telegram rejected Markdown, resending as plain text")
		err = t.send(ctx, sendMessageRequest{ChatID: t.chatID, Text: message})
	}
	return err
}

func (t *Telegram) send(ctx context.Context, payload sendMessageRequest) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limiter: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		// The URL carries the token; do not wrap the transport error verbatim
		return fmt.Errorf("telegram request failed: %s", redact(err.Error(), t.token))
	}
	defer resp.Body.Close()

	var result botResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("telegram returned status %d with undecodable body", resp.StatusCode)
	}
	if !result.OK {
		return fmt.Errorf("telegram error %d: %s", result.ErrorCode, result.Description)
	}
	return nil
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "***")
}
