package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arturoeanton/certify-ai/internal/domain"
	"github.com/arturoeanton/certify-ai/internal/port"
	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig holds the self-issued token settings.
type JWTConfig struct {
	Secret    string
	Issuer    string
	ExpiresIn time.Duration
}

// Claims is the self-issued token payload.
type Claims struct {
	UserID   string `json:"user_id"`
	UserType string `json:"user_type"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier issues and verifies HS256 tokens signed with a shared secret.
// It implements port.IdentityVerifier and port.TokenIssuer.
type JWTVerifier struct {
	cfg JWTConfig
	now func() time.Time
}

// NewJWTVerifier creates a self-issued token verifier.
func NewJWTVerifier(cfg JWTConfig) *JWTVerifier {
	if cfg.ExpiresIn <= 0 {
		cfg.ExpiresIn = 24 * time.Hour
	}
	return &JWTVerifier{cfg: cfg, now: time.Now}
}

// Mode returns port.AuthModeSelfIssued.
func (v *JWTVerifier) Mode() string { return port.AuthModeSelfIssued }

// Issue signs a token for user valid for the configured lifetime.
func (v *JWTVerifier) Issue(user *domain.UserProfile) (string, error) {
	now := v.now()
	claims := Claims{
		UserID:   user.ID,
		UserType: user.Role,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    v.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.cfg.ExpiresIn)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(v.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer and expiry.
func (v *JWTVerifier) Verify(_ context.Context, credential string) (*domain.Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, port.ErrMissingCredential
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(credential, claims,
		func(*jwt.Token) (interface{}, error) { return []byte(v.cfg.Secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, classifyJWTError(err)
	}

	if claims.UserID == "" {
		return nil, port.NewAuthError(port.AuthInvalid, errors.New("token has no user_id"))
	}

	return &domain.Identity{
		Subject:  claims.UserID,
		Email:    claims.Email,
		Role:     claims.UserType,
		Provider: "password",
	}, nil
}

// classifyJWTError maps golang-jwt validation errors onto auth error kinds.
func classifyJWTError(err error) error {
	var upstream *port.UpstreamError
	switch {
	case errors.As(err, &upstream):
		return upstream
	case errors.Is(err, jwt.ErrTokenMalformed):
		return port.NewAuthError(port.AuthMalformed, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return port.NewAuthError(port.AuthExpired, err)
	default:
		return port.NewAuthError(port.AuthInvalid, err)
	}
}
