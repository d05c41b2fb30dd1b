package httpx

import (
	"context"

	domainauth "github.com/vibolsen/campus-portal/internal/domain/auth"
)

// sessionKey is an unexported context key type to avoid collisions across packages.
type sessionKey struct{}

// SetSessionInContext returns a child context that carries the given session.
// If session is nil, the original ctx is returned unchanged.
func SetSessionInContext(ctx context.Context, session *domainauth.Session) context.Context {
	if session == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, session)
}

// GetSessionFromContext returns the validated session and whether one is present.
func GetSessionFromContext(ctx context.Context) (*domainauth.Session, bool) {
	if s, ok := ctx.Value(sessionKey{}).(*domainauth.Session); ok && s != nil {
		return s, true
	}
	return nil, false
}

// ProfileFromContext returns the display profile of the request principal, or nil.
func ProfileFromContext(ctx context.Context) *domainauth.Profile {
	s, ok := GetSessionFromContext(ctx)
	if !ok {
		return nil
	}
	p := s.Principal.Profile()
	return &p
}
