package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/vibolsen/campus-portal/internal/domain/auth"
)

func newTestAuthenticator(t *testing.T, handler http.HandlerFunc) (*Authenticator, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	a, err := NewAuthenticator(Config{
		LoginURL:  srv.URL + "/api/auth/login",
		UserPath:  "user",
		TokenPath: "token || accessToken || access_token",
	})
	require.NoError(t, err)
	return a, &calls
}

func TestAuthenticate_Success(t *testing.T) {
	a, _ := newTestAuthenticator(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"email": "t@x.edu", "password": "pw"}, body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user":{"_id":"u1","role":"TEACHER","email":"t@x.edu","firstName":"Ada","lastName":"L"},"accessToken":"tok-1"}`))
	})

	p, ok := a.Authenticate(context.Background(), domainauth.Credentials{Email: "t@x.edu", Password: "pw"})
	require.True(t, ok)
	assert.Equal(t, domainauth.Principal{
		ID:          "u1",
		Role:        domainauth.RoleTeacher,
		AccessToken: "tok-1",
		Email:       "t@x.edu",
		Name:        "Ada L",
	}, p)
}

func TestAuthenticate_UnknownRolePassesThrough(t *testing.T) {
	a, _ := newTestAuthenticator(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"id":7,"role":"LIBRARIAN"},"token":"t"}`))
	})

	p, ok := a.Authenticate(context.Background(), domainauth.Credentials{Email: "l@x.edu", Password: "pw"})
	require.True(t, ok)
	assert.Equal(t, domainauth.Role("LIBRARIAN"), p.Role)
	assert.Equal(t, "7", p.ID)
}

// Wrong password: the backend rejects and no principal is produced.
func TestAuthenticate_WrongPassword(t *testing.T) {
	a, _ := newTestAuthenticator(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid credentials"}`))
	})

	p, ok := a.Authenticate(context.Background(), domainauth.Credentials{Email: "a@x.com", Password: "wrong"})
	assert.False(t, ok)
	assert.Equal(t, domainauth.Principal{}, p)
}

func TestAuthenticate_IncompleteCredentialsSkipNetwork(t *testing.T) {
	a, calls := newTestAuthenticator(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, creds := range []domainauth.Credentials{
		{},
		{Email: "a@x.com"},
		{Password: "pw"},
	} {
		_, ok := a.Authenticate(context.Background(), creds)
		assert.False(t, ok)
	}
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestAuthenticate_MalformedResponses(t *testing.T) {
	bodies := map[string]string{
		"not json":          `<html>oops</html>`,
		"missing user":      `{"token":"t"}`,
		"missing token":     `{"user":{"id":"1","role":"ADMIN"}}`,
		"user without role": `{"user":{"id":"1"},"token":"t"}`,
		"user not object":   `{"user":"bob","token":"t"}`,
		"empty token":       `{"user":{"id":"1","role":"ADMIN"},"token":""}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			a, _ := newTestAuthenticator(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			p, ok := a.Authenticate(context.Background(), domainauth.Credentials{Email: "a@x.com", Password: "pw"})
			assert.False(t, ok)
			assert.Equal(t, domainauth.Principal{}, p)
		})
	}
}

func TestAuthenticate_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	a, err := NewAuthenticator(Config{LoginURL: url + "/api/auth/login"})
	require.NoError(t, err)

	_, ok := a.Authenticate(context.Background(), domainauth.Credentials{Email: "a@x.com", Password: "pw"})
	assert.False(t, ok)
}

func TestNewAuthenticator_Validation(t *testing.T) {
	_, err := NewAuthenticator(Config{})
	assert.Error(t, err)

	_, err = NewAuthenticator(Config{LoginURL: "http://x", TokenPath: "["})
	assert.Error(t, err)
}

func TestNewAuthenticator_DefaultTokenPathAcceptsAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"id":"s1","role":"STAFF"},"access_token":"tok-2"}`))
	}))
	t.Cleanup(srv.Close)

	a, err := NewAuthenticator(Config{LoginURL: srv.URL})
	require.NoError(t, err)

	p, ok := a.Authenticate(context.Background(), domainauth.Credentials{Email: "s@x.edu", Password: "pw"})
	require.True(t, ok)
	assert.Equal(t, "tok-2", p.AccessToken)
	assert.Equal(t, "/staff", p.Role.PortalPath())
}
