package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/vibolsen/campus-portal/internal/domain/auth"
)

func TestStaticAuthenticator(t *testing.T) {
	authn := &StaticAuthenticator{
		Email:     "ana@campus.edu",
		Password:  "secret",
		Principal: domainauth.Principal{ID: "u1", Role: domainauth.RoleStudent, AccessToken: "T1"},
	}
	ctx := context.Background()

	p, ok := authn.Authenticate(ctx, domainauth.Credentials{Email: "ana@campus.edu", Password: "secret"})
	require.True(t, ok)
	assert.Equal(t, "T1", p.AccessToken)

	_, ok = authn.Authenticate(ctx, domainauth.Credentials{Email: "ana@campus.edu", Password: "nope"})
	assert.False(t, ok)
	_, ok = authn.Authenticate(ctx, domainauth.Credentials{Email: "ana@campus.edu"})
	assert.False(t, ok)
	assert.Equal(t, 3, authn.Calls())
}

func TestMemoryTokenStorage(t *testing.T) {
	store := NewMemoryTokenStorage("")
	_, ok := store.Token()
	assert.False(t, ok)

	require.NoError(t, store.SetToken("T1", domainauth.Profile{ID: "u1", Role: domainauth.RoleTeacher}))
	tok, ok := store.Token()
	require.True(t, ok)
	assert.Equal(t, "T1", tok)
	profile, ok := store.Profile()
	require.True(t, ok)
	assert.Equal(t, domainauth.RoleTeacher, profile.Role)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	_, ok = store.Profile()
	assert.False(t, ok)
	assert.Equal(t, 2, store.Clears())
}

func TestRecordingNavigator(t *testing.T) {
	nav := NewRecordingNavigator("/courses")
	assert.Equal(t, "/courses", nav.Location())

	nav.Navigate("/login")
	assert.Equal(t, "/login", nav.Location())
	assert.Equal(t, []string{"/login"}, nav.Visits())
}
