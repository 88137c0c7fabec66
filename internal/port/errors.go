package port

import (
	"errors"
	"fmt"
)

// Sentinel errors used across ports.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateUser      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrArtifactNotFound   = errors.New("certificate not found")
	ErrSessionNotFound    = errors.New("chat session not found")
	ErrUnsupportedLogin   = errors.New("login method not supported by this deployment")
)

// AuthErrorKind classifies credential failures.
type AuthErrorKind string

const (
	AuthMissing        AuthErrorKind = "missing"
	AuthMalformed      AuthErrorKind = "malformed"
	AuthExpired        AuthErrorKind = "expired"
	AuthInvalid        AuthErrorKind = "invalid"
	AuthUnknownSubject AuthErrorKind = "unknown-subject"
)

// AuthError is returned by identity verifiers and the auth gate.
type AuthError struct {
	Kind    AuthErrorKind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is matches any *AuthError of the same kind, so callers can write
// errors.Is(err, port.ErrExpiredCredential).
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}

// Auth sentinels, one per kind.
var (
	ErrMissingCredential   = &AuthError{Kind: AuthMissing, Message: "authorization header missing"}
	ErrMalformedCredential = &AuthError{Kind: AuthMalformed, Message: "malformed token"}
	ErrExpiredCredential   = &AuthError{Kind: AuthExpired, Message: "token expired"}
	ErrInvalidCredential   = &AuthError{Kind: AuthInvalid, Message: "invalid token"}
	ErrUnknownSubject      = &AuthError{Kind: AuthUnknownSubject, Message: "user not found"}
)

// NewAuthError wraps cause under the given kind, keeping the kind's message.
func NewAuthError(kind AuthErrorKind, cause error) error {
	msg := map[AuthErrorKind]string{
		AuthMissing:        ErrMissingCredential.Message,
		AuthMalformed:      ErrMalformedCredential.Message,
		AuthExpired:        ErrExpiredCredential.Message,
		AuthInvalid:        ErrInvalidCredential.Message,
		AuthUnknownSubject: ErrUnknownSubject.Message,
	}[kind]
	return &AuthError{Kind: kind, Message: msg, Err: cause}
}

// ValidationError reports a missing or invalid request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Field + " required"
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// UpstreamError wraps a failure of an external service (identity provider,
// generative model).
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failure: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// RenderError wraps a failure while composing or persisting a certificate.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("certificate rendering failed: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
