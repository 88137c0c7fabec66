package port

import (
	"context"

	"github.com/arturoeanton/certify-ai/internal/domain"
)

// UserRepository is the User Directory's storage.
type UserRepository interface {
	// Create stores a new profile. Returns ErrDuplicateUser when the id or
	// email is already taken.
	Create(ctx context.Context, u *domain.UserProfile) error

	// GetBySubject returns ErrUserNotFound when no profile has that id.
	GetBySubject(ctx context.Context, id string) (*domain.UserProfile, error)

	// GetByEmail returns ErrUserNotFound when no profile has that email.
	GetByEmail(ctx context.Context, email string) (*domain.UserProfile, error)

	// Update replaces the mutable fields of an existing profile.
	Update(ctx context.Context, u *domain.UserProfile) error
}

// ChatRepository stores rolling chat sessions.
type ChatRepository interface {
	// GetSession returns ErrSessionNotFound for an unknown session.
	GetSession(ctx context.Context, subjectID, sessionID string) (*domain.ChatSession, error)

	// AppendMessages adds msgs to the session, creating it when needed, and
	// keeps only the most recent limit entries.
	AppendMessages(ctx context.Context, subjectID, sessionID string, limit int, msgs ...domain.ChatMessage) error
}

// AuditStore persists and lists audit records.
type AuditStore interface {
	WriteAudit(userID, action, resource, resourceID, details, ip, userAgent string) error
	ListAuditLogs(ctx context.Context, limit int, action string) ([]domain.AuditLog, error)
}

// Store bundles everything a storage backend provides.
type Store interface {
	UserRepository
	ChatRepository
	AuditStore
	Close() error
}
