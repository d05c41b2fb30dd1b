package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"strings"
	"time"
)

// Role represents a portal role as reported by the backend.
// Keep string form for easy persistence and cookies; unknown values are
// carried through unmodified.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleTeacher     Role = "TEACHER"
	RoleStudent     Role = "STUDENT"
	RoleHR          Role = "HR"
	RoleStaff       Role = "STAFF"
	RoleStudyOffice Role = "STUDY_OFFICE"
)

// PortalPath returns the landing page for the role. Unknown roles land on "/".
func (r Role) PortalPath() string {
	switch Role(strings.ToUpper(string(r))) {
	case RoleAdmin:
		return "/admin"
	case RoleTeacher:
		return "/teacher"
	case RoleStudent:
		return "/student"
	case RoleHR, RoleStaff:
		return "/staff"
	case RoleStudyOffice:
		return "/study-office"
	default:
		return "/"
	}
}

// Credentials is the pair exchanged for a session.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Complete reports whether both fields are non-empty.
func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.Email) != "" && c.Password != ""
}

// Principal is the authenticated identity of a session.
// Role and AccessToken are set together or both absent.
type Principal struct {
	ID          string `json:"id"`
	Role        Role   `json:"role"`
	AccessToken string `json:"-"`
	Email       string `json:"email,omitempty"`
	Name        string `json:"name,omitempty"`
}

// Valid reports whether the principal may authorize a request.
func (p Principal) Valid() bool {
	return p.Role != "" && p.AccessToken != ""
}

// Profile is the cached user record kept next to a client token.
type Profile struct {
	ID    string `json:"id"`
	Role  Role   `json:"role"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Profile strips the token from the principal.
func (p Principal) Profile() Profile {
	return Profile{ID: p.ID, Role: p.Role, Email: p.Email, Name: p.Name}
}

// Session is the issued, signed session artifact after decoding.
// ID is the artifact id used for revocation on logout.
type Session struct {
	ID        string
	Principal Principal
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// EventKind names an entry in the login audit trail.
type EventKind string

const (
	EventLogin         EventKind = "login"
	EventLoginRejected EventKind = "login_rejected"
	EventLogout        EventKind = "logout"
)

// Event is a login audit trail record.
type Event struct {
	ID        string
	Kind      EventKind
	SessionID string
	UserID    string
	Role      Role
	Email     string
	CreatedAt time.Time
}
