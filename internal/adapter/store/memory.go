package store

import (
	"context"
	"sync"
	"time"

	"github.com/arturoeanton/certify-ai/internal/domain"
	"github.com/arturoeanton/certify-ai/internal/port"
	"github.com/google/uuid"
)

const defaultAuditCapacity = 1000

// MemoryStore implements port.Store in process memory. State is lost on
// restart.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*domain.UserProfile
	byEmail  map[string]string
	sessions map[string][]domain.ChatMessage

	auditMu  sync.Mutex
	audit    []domain.AuditLog
	auditCap int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*domain.UserProfile),
		byEmail:  make(map[string]string),
		sessions: make(map[string][]domain.ChatMessage),
		auditCap: defaultAuditCapacity,
	}
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// --- Users ---

func (s *MemoryStore) Create(_ context.Context, u *domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; ok {
		return port.ErrDuplicateUser
	}
	if u.Email != "" {
		if _, ok := s.byEmail[u.Email]; ok {
			return port.ErrDuplicateUser
		}
		s.byEmail[u.Email] = u.ID
	}
	s.users[u.ID] = u.Clone()
	return nil
}

func (s *MemoryStore) GetBySubject(_ context.Context, id string) (*domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, port.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (s *MemoryStore) GetByEmail(_ context.Context, email string) (*domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok || email == "" {
		return nil, port.ErrUserNotFound
	}
	return s.users[id].Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, u *domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[u.ID]
	if !ok {
		return port.ErrUserNotFound
	}
	if u.Email != existing.Email {
		if owner, taken := s.byEmail[u.Email]; taken && owner != u.ID {
			return port.ErrDuplicateUser
		}
		delete(s.byEmail, existing.Email)
		if u.Email != "" {
			s.byEmail[u.Email] = u.ID
		}
	}

	updated := u.Clone()
	updated.PasswordHash = existing.PasswordHash
	updated.CreatedAt = existing.CreatedAt
	updated.Provider = existing.Provider
	s.users[u.ID] = updated
	return nil
}

// --- Chat ---

func sessionKey(subjectID, sessionID string) string {
	return subjectID + "\x00" + sessionID
}

func (s *MemoryStore) GetSession(_ context.Context, subjectID, sessionID string) (*domain.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs, ok := s.sessions[sessionKey(subjectID, sessionID)]
	if !ok {
		return nil, port.ErrSessionNotFound
	}
	return &domain.ChatSession{
		SubjectID: subjectID,
		SessionID: sessionID,
		Messages:  append([]domain.ChatMessage(nil), msgs...),
	}, nil
}

func (s *MemoryStore) AppendMessages(_ context.Context, subjectID, sessionID string, limit int, msgs ...domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey(subjectID, sessionID)
	s.sessions[key] = domain.TrimHistory(append(s.sessions[key], msgs...), limit)
	return nil
}

// --- Audit Logs ---

// WriteAudit appends a record, evicting the oldest beyond capacity.
func (s *MemoryStore) WriteAudit(userID, action, resource, resourceID, details, ip, userAgent string) error {
	s.auditMu.Lock()
	defer s.auditMu.Unlock()

	s.audit = append(s.audit, domain.AuditLog{
		ID:         uuid.NewString(),
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
		IP:         ip,
		UserAgent:  userAgent,
		CreatedAt:  time.Now().UTC(),
	})
	if over := len(s.audit) - s.auditCap; over > 0 {
		s.audit = append([]domain.AuditLog(nil), s.audit[over:]...)
	}
	return nil
}

// ListAuditLogs returns records newest first.
func (s *MemoryStore) ListAuditLogs(_ context.Context, limit int, action string) ([]domain.AuditLog, error) {
	s.auditMu.Lock()
	defer s.auditMu.Unlock()

	var out []domain.AuditLog
	for i := len(s.audit) - 1; i >= 0; i-- {
		if action != "" && s.audit[i].Action != action {
			continue
		}
		out = append(out, s.audit[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
