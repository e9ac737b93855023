package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prism/internal/common"
	"github.com/ternarybob/prism/internal/interfaces"
)

// NewProvider creates the configured default language model provider.
func NewProvider(ctx context.Context, config *common.Config, systemInstruction string, logger arbor.ILogger) (interfaces.LanguageModelProvider, error) {
	logger.Info().Str("provider", string(config.LLM.DefaultProvider)).Msg("Initializing language model provider")

	switch config.LLM.DefaultProvider {
	case common.LLMProviderGemini, "":
		return NewGeminiProvider(ctx, &config.Gemini, systemInstruction, logger)
	case common.LLMProviderClaude:
		return NewClaudeProvider(&config.Claude, systemInstruction, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.LLM.DefaultProvider)
	}
}
