// Package gateway holds what the server-side and client-side fetchers share:
// the execution-context tag and the request-scoped session artifact.
package gateway

import "context"

// Context tags which credential store and response contract apply to a call.
type Context string

const (
	// Server is a server-rendered request; credentials come from the signed session artifact.
	Server Context = "server"
	// Client is the interactive client; credentials come from local token storage.
	Client Context = "client"
)

func (c Context) String() string { return string(c) }

type artifactKey struct{}

// WithArtifact returns a child context carrying the inbound signed session artifact.
// An empty artifact leaves ctx unchanged.
func WithArtifact(ctx context.Context, artifact string) context.Context {
	if artifact == "" {
		return ctx
	}
	return context.WithValue(ctx, artifactKey{}, artifact)
}

// ArtifactFrom returns the session artifact carried by ctx.
func ArtifactFrom(ctx context.Context) (string, bool) {
	a, ok := ctx.Value(artifactKey{}).(string)
	return a, ok && a != ""
}
