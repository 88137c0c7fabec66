package port

import (
	"context"

	"github.com/arturoeanton/certify-ai/internal/domain"
)

// Auth modes. Exactly one is active per deployment.
const (
	AuthModeSelfIssued = "jwt"
	AuthModeDelegated  = "firebase"
)

// IdentityVerifier validates a bearer credential and yields the subject it
// was issued for. Failures are *AuthError values.
type IdentityVerifier interface {
	// Mode returns AuthModeSelfIssued or AuthModeDelegated.
	Mode() string

	// Verify checks the credential and returns its identity claims.
	Verify(ctx context.Context, credential string) (*domain.Identity, error)
}

// TokenIssuer signs self-issued credentials. Only the self-issued verifier
// implements it.
type TokenIssuer interface {
	Issue(user *domain.UserProfile) (string, error)
}
