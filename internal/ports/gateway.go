package ports

import (
	"context"
	"time"

	domainauth "github.com/vibolsen/campus-portal/internal/domain/auth"
)

// TokenStorage is the client-local credential store.
// Only login sets it; only the unauthorized-response coordinator clears it on failure.
type TokenStorage interface {
	Token() (string, bool)
	SetToken(token string, profile domainauth.Profile) error
	Profile() (domainauth.Profile, bool)
	// Clear removes the token and the cached profile. Clearing an empty store is a no-op.
	Clear() error
}

// Severity classifies a user-visible notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is a transient user-visible message.
type Notification struct {
	Message   string
	DedupeKey string
	Severity  Severity
	Duration  time.Duration
}

// Notifier shows notifications. A notification whose DedupeKey matches one
// still visible is coalesced; Notify then returns false.
type Notifier interface {
	Notify(ctx context.Context, n Notification) bool
}

// Navigator exposes the client's current location and moves it.
type Navigator interface {
	Location() string
	Navigate(path string)
}
