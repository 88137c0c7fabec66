package ai

import (
	"context"
	"fmt"

	"github.com/arturoeanton/certify-ai/internal/domain"
)

// UnavailableProvider stands in when the configured backend could not be
// built. Every call fails, so only the assistant routes are affected.
type UnavailableProvider struct {
	name   string
	reason error
}

// NewUnavailableProvider returns a provider that reports reason on every call.
func NewUnavailableProvider(name string, reason error) *UnavailableProvider {
	return &UnavailableProvider{name: name, reason: reason}
}

// ModelName returns the configured provider name.
func (u *UnavailableProvider) ModelName() string {
	return u.name
}

func (u *UnavailableProvider) Chat(context.Context, string, []domain.ChatMessage, string) (string, error) {
	return "", fmt.Errorf("%s unavailable: %w", u.name, u.reason)
}
