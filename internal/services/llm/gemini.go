package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/prism/internal/common"
)

// NewGeminiProvider creates a Gemini provider trying config.Model, then config.FallbackModels.
func NewGeminiProvider(ctx context.Context, config *common.GeminiConfig, systemInstruction string, logger arbor.ILogger) (*FallbackProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is not configured (set GEMINI_API_KEY)")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	generateConfig := &genai.GenerateContentConfig{}
	if config.Temperature > 0 {
		generateConfig.Temperature = genai.Ptr(config.Temperature)
	}
	if systemInstruction != "" {
		generateConfig.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}

	call := func(ctx context.Context, model, prompt string) (string, error) {
		contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
		resp, err := client.Models.GenerateContent(ctx, model, contents, generateConfig)
		if err != nil {
			return "", err
		}
		if resp == nil || len(resp.Candidates) == 0 {
			return "", ErrEmptyResponse
		}
		return resp.Text(), nil
	}

	models := candidateModels(config.Model, config.FallbackModels)
	logger.Debug().
		Strs("models", models).
		Msg("Gemini provider initialized")

	return NewFallbackProvider(string(common.LLMProviderGemini), models, call, logger).
		WithCallTimeout(common.ParseDurationOr(config.Timeout, 0)), nil
}

// candidateModels returns primary followed by fallbacks, without blanks or repeats.
func candidateModels(primary string, fallbacks []string) []string {
	seen := make(map[string]bool)
	var models []string
	for _, m := range append([]string{primary}, fallbacks...) {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		models = append(models, m)
	}
	return models
}
