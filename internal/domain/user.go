package domain

import "time"

// Role values accepted as user_type.
const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleMentor     = "mentor"
)

// DefaultRole is assigned when registration omits user_type and when a
// delegated identity is auto-provisioned.
const DefaultRole = RoleStudent

// ValidRole reports whether r is a known user_type.
func ValidRole(r string) bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleMentor:
		return true
	}
	return false
}

// UserProfile is a registered user. ID is the subject identifier issued by
// whichever identity verifier is in effect and never changes once assigned.
type UserProfile struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	PasswordHash    []byte    `json:"-"` // never serialized to JSON
	Role            string    `json:"user_type"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	InstitutionType string    `json:"institution_type"`
	Branch          string    `json:"branch"`
	Interests       []string  `json:"interests"`
	Onboarded       bool      `json:"onboarded"`
	Provider        string    `json:"provider"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate without touching stored state.
func (u *UserProfile) Clone() *UserProfile {
	if u == nil {
		return nil
	}
	c := *u
	if u.PasswordHash != nil {
		c.PasswordHash = append([]byte(nil), u.PasswordHash...)
	}
	if u.Interests != nil {
		c.Interests = append([]string(nil), u.Interests...)
	}
	return &c
}

// OnboardingFields carries the /api/auth/onboard payload.
type OnboardingFields struct {
	Name            string   `json:"name"`
	Phone           string   `json:"phone"`
	InstitutionType string   `json:"institution_type"`
	Branch          string   `json:"branch"`
	Interests       []string `json:"interests"`
}

// Identity is what an identity verifier yields for a valid credential.
type Identity struct {
	Subject  string `json:"sub"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Provider string `json:"provider"`
}

// UserContext is the authenticated user context injected into request handlers.
type UserContext struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Onboarded bool   `json:"onboarded"`
}
