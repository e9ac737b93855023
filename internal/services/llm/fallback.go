// Package llm provides the language model providers that generate recommendation payloads.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prism/internal/interfaces"
)

// ErrEmptyResponse is returned when a model answers with no text.
var ErrEmptyResponse = errors.New("empty response from model")

// GenerateFunc performs one model call.
type GenerateFunc func(ctx context.Context, model, prompt string) (string, error)

var _ interfaces.LanguageModelProvider = (*FallbackProvider)(nil)

// FallbackProvider tries candidate models in order. Rate-limited calls are retried with
// backoff on the same model; any other failure moves on to the next candidate.
type FallbackProvider struct {
	name        string
	models      []string
	call        GenerateFunc
	retry       *RetryConfig
	callTimeout time.Duration
	logger      arbor.ILogger
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewFallbackProvider creates a provider over models, which must not be empty.
func NewFallbackProvider(name string, models []string, call GenerateFunc, logger arbor.ILogger) *FallbackProvider {
	return &FallbackProvider{
		name:        name,
		models:      models,
		call:        call,
		retry:       NewDefaultRetryConfig(),
		callTimeout: 2 * time.Minute,
		logger:      logger,
		sleep:       sleepContext,
	}
}

// WithRetryConfig overrides the retry policy.
func (p *FallbackProvider) WithRetryConfig(retry *RetryConfig) *FallbackProvider {
	if retry != nil {
		p.retry = retry
	}
	return p
}

// WithCallTimeout bounds each individual model call.
func (p *FallbackProvider) WithCallTimeout(timeout time.Duration) *FallbackProvider {
	if timeout > 0 {
		p.callTimeout = timeout
	}
	return p
}

// Name returns the provider name.
func (p *FallbackProvider) Name() string {
	return p.name
}

// Models returns the candidate models in the order they are tried.
func (p *FallbackProvider) Models() []string {
	return p.models
}

// Generate returns the first non-empty answer from the candidate models.
func (p *FallbackProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if len(p.models) == 0 {
		return "", fmt.Errorf("%s: no models configured", p.name)
	}

	var errs []error
	for _, model := range p.models {
		text, err := p.generateWithRetry(ctx, model, prompt)
		if err == nil {
			p.logger.Info().
				Str("provider", p.name).
				Str("model", model).
				Int("response_length", len(text)).
				Msg("Model response received")
			return text, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", model, err))
		if ctx.Err() != nil {
			break
		}

		p.logger.Warn().
			Err(err).
			Str("provider", p.name).
			Str("model", model).
			Msg("Model failed, trying next candidate")
	}

	return "", fmt.Errorf("%s: all models failed: %w", p.name, errors.Join(errs...))
}

func (p *FallbackProvider) generateWithRetry(ctx context.Context, model, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= p.retry.MaxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
		text, err := p.call(callCtx, model, prompt)
		cancel()

		if err == nil {
			if strings.TrimSpace(text) == "" {
				return "", ErrEmptyResponse
			}
			return text, nil
		}
		lastErr = err

		if !IsRateLimitError(err) || attempt == p.retry.MaxRetries {
			break
		}

		backoff := p.retry.CalculateBackoff(attempt, ExtractRetryDelay(err))
		p.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Str("model", model).
			Err(err).
			Msg("Rate limited, retrying model call")

		if err := p.sleep(ctx, backoff); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
