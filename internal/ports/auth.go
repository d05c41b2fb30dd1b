package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"time"

	domainauth "github.com/vibolsen/campus-portal/internal/domain/auth"
)

// Authenticator exchanges a credential pair for a principal.
// Any failure yields (Principal{}, false); implementations never panic.
type Authenticator interface {
	Authenticate(ctx context.Context, creds domainauth.Credentials) (domainauth.Principal, bool)
}

// PrincipalSource yields the principal bound to a server-rendered request.
type PrincipalSource interface {
	CurrentPrincipal(ctx context.Context) (domainauth.Principal, bool)
}

// SessionCodec signs and verifies session artifacts.
type SessionCodec interface {
	Encode(sess domainauth.Session) (string, error)
	Decode(artifact string) (domainauth.Session, error)
}

// RevocationStore tracks artifact ids invalidated by logout.
type RevocationStore interface {
	// Revoke marks id as invalid until the given time.
	Revoke(ctx context.Context, id string, until time.Time) error
	IsRevoked(ctx context.Context, id string) (bool, error)
}

// AuthEventRecorder persists the login audit trail.
type AuthEventRecorder interface {
	Record(ctx context.Context, ev domainauth.Event) error
}
