package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prism/internal/common"
)

// NewClaudeProvider creates a Claude provider for config.Model.
func NewClaudeProvider(config *common.ClaudeConfig, systemInstruction string, logger arbor.ILogger) (*FallbackProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is not configured (set ANTHROPIC_API_KEY)")
	}

	client := anthropic.NewClient(
		option.WithAPIKey(config.APIKey),
	)

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	call := func(ctx context.Context, model, prompt string) (string, error) {
		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: int64(maxTokens),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		}
		if config.Temperature > 0 {
			params.Temperature = anthropic.Float(float64(config.Temperature))
		}
		if systemInstruction != "" {
			params.System = []anthropic.TextBlockParam{
				{Text: systemInstruction},
			}
		}

		resp, err := client.Messages.New(ctx, params)
		if err != nil {
			return "", err
		}

		var text strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				text.WriteString(block.Text)
			}
		}
		return text.String(), nil
	}

	logger.Debug().
		Str("model", config.Model).
		Msg("Claude provider initialized")

	return NewFallbackProvider(string(common.LLMProviderClaude), []string{config.Model}, call, logger).
		WithCallTimeout(common.ParseDurationOr(config.Timeout, 0)), nil
}
