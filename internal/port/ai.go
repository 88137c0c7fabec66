package port

import (
	"context"

	"github.com/arturoeanton/certify-ai/internal/domain"
)

// AIProvider abstracts the generative-language backend.
// Implementations can target Gemini, Ollama, or any compatible API.
type AIProvider interface {
	// ModelName returns the identifier of the model being used.
	ModelName() string

	// Chat sends a system preamble, prior conversation turns and the new
	// user prompt, and returns the model's reply text.
	Chat(ctx context.Context, systemPrompt string, history []domain.ChatMessage, userPrompt string) (string, error)
}
