package interfaces

import (
	"context"
)

// LanguageModelProvider generates free-form text for a prompt. The returned text has no
// structural guarantee beyond possibly containing a JSON object.
type LanguageModelProvider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
