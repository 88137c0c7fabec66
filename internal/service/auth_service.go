package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/arturoeanton/certify-ai/internal/domain"
	"github.com/arturoeanton/certify-ai/internal/port"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AuditWriter records service-level events.
type AuditWriter interface {
	WriteAudit(userID, action, resource, resourceID, details, ip, userAgent string) error
}

// AuthResult is returned by registration and login.
type AuthResult struct {
	User  *domain.UserProfile
	Token string // empty under delegated auth
}

// AuthService handles registration, login, onboarding and token-to-profile
// resolution for whichever identity verifier is configured.
type AuthService struct {
	users         port.UserRepository
	verifier      port.IdentityVerifier
	issuer        port.TokenIssuer
	audit         AuditWriter
	autoProvision bool
	locks         *KeyedMutex
	now           func() time.Time
	newID         func() string
}

// NewAuthService creates a new authentication service. Under self-issued
// auth the verifier must also implement port.TokenIssuer. audit may be nil.
func NewAuthService(users port.UserRepository, verifier port.IdentityVerifier, audit AuditWriter, autoProvision bool) *AuthService {
	issuer, _ := verifier.(port.TokenIssuer)
	return &AuthService{
		users:         users,
		verifier:      verifier,
		issuer:        issuer,
		audit:         audit,
		autoProvision: autoProvision,
		locks:         NewKeyedMutex(),
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// Mode returns the active auth mode.
func (s *AuthService) Mode() string {
	return s.verifier.Mode()
}

func (s *AuthService) selfIssued() bool {
	return s.issuer != nil && s.verifier.Mode() == port.AuthModeSelfIssued
}

func resolveRole(role string) (string, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return domain.DefaultRole, nil
	}
	if !domain.ValidRole(role) {
		return "", port.NewValidationError("user_type", "user_type must be one of student, instructor, mentor")
	}
	return role, nil
}

// Register creates a password account and returns it with a fresh token.
func (s *AuthService) Register(ctx context.Context, email, password, role string) (*AuthResult, error) {
	if !s.selfIssued() {
		return nil, port.ErrUnsupportedLogin
	}

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, port.NewValidationError("email", "Email & password required")
	}
	role, err := resolveRole(role)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock("email:" + email)
	defer unlock()

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, port.ErrDuplicateUser
	} else if !errors.Is(err, port.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &domain.UserProfile{
		ID:           s.newID(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Interests:    []string{},
		Provider:     "password",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.issuer.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	slog.Info("user registered", "user_id", user.ID, "user_type", role)
	s.record(user.ID, domain.AuditActionRegister, map[string]string{"provider": user.Provider})
	return &AuthResult{User: user, Token: token}, nil
}

// RegisterDelegated provisions a profile for a verified identity-provider
// token. It fails with ErrDuplicateUser when the subject already exists.
func (s *AuthService) RegisterDelegated(ctx context.Context, idToken, role string) (*AuthResult, error) {
	if s.selfIssued() {
		return nil, port.ErrUnsupportedLogin
	}
	role, err := resolveRole(role)
	if err != nil {
		return nil, err
	}

	id, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock("subject:" + id.Subject)
	defer unlock()

	if _, err := s.users.GetBySubject(ctx, id.Subject); err == nil {
		return nil, port.ErrDuplicateUser
	} else if !errors.Is(err, port.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	user, err := s.provision(ctx, id, role)
	if err != nil {
		return nil, err
	}
	s.record(user.ID, domain.AuditActionRegister, map[string]string{"provider": user.Provider})
	return &AuthResult{User: user}, nil
}

// Login checks email and password and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if !s.selfIssued() {
		return nil, port.ErrUnsupportedLogin
	}

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, port.NewValidationError("email", "Email & password required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, port.ErrUserNotFound) {
		return nil, port.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, port.ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.record(user.ID, domain.AuditActionLogin, map[string]string{"provider": user.Provider})
	return &AuthResult{User: user, Token: token}, nil
}

// LoginDelegated resolves an identity-provider token to its profile,
// provisioning it on first login when enabled.
func (s *AuthService) LoginDelegated(ctx context.Context, idToken, role string) (*AuthResult, error) {
	if s.selfIssued() {
		return nil, port.ErrUnsupportedLogin
	}
	role, err := resolveRole(role)
	if err != nil {
		return nil, err
	}

	id, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}

	user, err := s.resolve(ctx, id, role)
	if err != nil {
		return nil, err
	}
	s.record(user.ID, domain.AuditActionLogin, map[string]string{"provider": user.Provider})
	return &AuthResult{User: user}, nil
}

// Authenticate verifies a bearer credential and returns the profile it
// belongs to.
func (s *AuthService) Authenticate(ctx context.Context, credential string) (*domain.UserProfile, error) {
	id, err := s.verifier.Verify(ctx, credential)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, id, domain.DefaultRole)
}

// resolve looks the subject up, auto-provisioning delegated identities when
// the policy flag allows it.
func (s *AuthService) resolve(ctx context.Context, id *domain.Identity, role string) (*domain.UserProfile, error) {
	user, err := s.users.GetBySubject(ctx, id.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, port.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if s.selfIssued() || !s.autoProvision {
		return nil, port.ErrUnknownSubject
	}

	unlock := s.locks.Lock("subject:" + id.Subject)
	defer unlock()

	// another request may have provisioned it while we waited
	if user, err := s.users.GetBySubject(ctx, id.Subject); err == nil {
		return user, nil
	}

	user, err = s.provision(ctx, id, role)
	if err != nil {
		return nil, err
	}
	slog.Info("user auto-provisioned", "user_id", user.ID, "provider", user.Provider)
	s.record(user.ID, domain.AuditActionProvision, map[string]string{"provider": user.Provider})
	return user, nil
}

func (s *AuthService) provision(ctx context.Context, id *domain.Identity, role string) (*domain.UserProfile, error) {
	now := s.now().UTC()
	user := &domain.UserProfile{
		ID:        id.Subject,
		Email:     id.Email,
		Role:      role,
		Name:      id.Name,
		Interests: []string{},
		Provider:  id.Provider,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, port.ErrDuplicateUser) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Onboard fills in the profile fields. name, phone and institution_type are
// required; on a validation failure the stored profile is left untouched.
func (s *AuthService) Onboard(ctx context.Context, subjectID string, f domain.OnboardingFields) (*domain.UserProfile, error) {
	required := []struct{ field, value string }{
		{"name", f.Name},
		{"phone", f.Phone},
		{"institution_type", f.InstitutionType},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, port.NewValidationError(r.field, r.field+" required")
		}
	}

	unlock := s.locks.Lock("subject:" + subjectID)
	defer unlock()

	user, err := s.users.GetBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	user.Name = f.Name
	user.Phone = f.Phone
	user.InstitutionType = f.InstitutionType
	user.Branch = f.Branch
	user.Interests = f.Interests
	if user.Interests == nil {
		user.Interests = []string{}
	}
	user.Onboarded = true
	user.UpdatedAt = s.now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.record(user.ID, domain.AuditActionOnboard, nil)
	return user, nil
}

// Profile returns the stored profile for subjectID.
func (s *AuthService) Profile(ctx context.Context, subjectID string) (*domain.UserProfile, error) {
	return s.users.GetBySubject(ctx, subjectID)
}

func (s *AuthService) record(userID, action string, details map[string]string) {
	if s.audit == nil {
		return
	}
	writeAudit(s.audit, userID, action, "user", userID, details)
}

// writeAudit is best effort: failures are logged, never returned.
func writeAudit(w AuditWriter, userID, action, resource, resourceID string, details map[string]string) {
	payload := "{}"
	if len(details) > 0 {
		if b, err := json.Marshal(details); err == nil {
			payload = string(b)
		}
	}
	if err := w.WriteAudit(userID, action, resource, resourceID, payload, "", ""); err != nil {
		slog.Error("audit write failed", "action", action, "error", err)
	}
}
