package bootstrap

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibolsen/campus-portal/config"
	domainauth "github.com/vibolsen/campus-portal/internal/domain/auth"
	"github.com/vibolsen/campus-portal/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildAuthStack_LoginLogoutWithMemoryRevocations(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"user":{"id":"u9","role":"TEACHER"},"accessToken":"abc"}`)
	}))
	t.Cleanup(api.Close)

	stack, err := BuildAuthStack(AuthConfig{
		Auth:    config.AuthConfig{SessionSecret: "s3cret", SessionTTL: time.Hour},
		Backend: config.BackendConfig{BaseURL: api.URL, LoginPath: "/api/auth/login", TokenPath: "token || accessToken"},
		Logger:  discardLogger(),
	})
	require.NoError(t, err)

	ctx := context.Background()
	res, err := stack.Sessions.Login(ctx, domainauth.Credentials{Email: "t@campus.edu", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleTeacher, res.Session.Principal.Role)
	assert.Equal(t, time.Hour, stack.Sessions.TTL())

	p, ok := stack.Principals.Derive(ctx, res.Artifact)
	require.True(t, ok)
	assert.Equal(t, "abc", p.AccessToken)

	require.NoError(t, stack.Sessions.Logout(ctx, res.Artifact))
	_, ok = stack.Principals.Derive(ctx, res.Artifact)
	assert.False(t, ok, "logout revokes through the shared store")
}

func TestBuildAuthStack_WithRedis(t *testing.T) {
	client := testutil.SetupTestRedis(t)

	stack, err := BuildAuthStack(AuthConfig{
		Auth:        config.AuthConfig{SessionSecret: "s3cret"},
		Backend:     config.BackendConfig{BaseURL: "http://127.0.0.1:1", LoginPath: "/api/auth/login"},
		Revocations: &RevocationRedis{Client: client, Prefix: "test:revoked:", Mode: "direct"},
		Logger:      discardLogger(),
	})
	require.NoError(t, err)
	assert.NotNil(t, stack.Fetcher)
}

func TestBuildAuthStack_Errors(t *testing.T) {
	_, err := BuildAuthStack(AuthConfig{
		Backend: config.BackendConfig{BaseURL: "http://localhost:5000", LoginPath: "/api/auth/login"},
		Logger:  discardLogger(),
	})
	require.Error(t, err, "missing secret")

	_, err = BuildAuthStack(AuthConfig{
		Auth:    config.AuthConfig{SessionSecret: "s3cret"},
		Backend: config.BackendConfig{BaseURL: "not a url", LoginPath: "/api/auth/login"},
		Logger:  discardLogger(),
	})
	require.Error(t, err, "invalid base url")
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("AUTH_SESSION_SECRET", "from-env")
	t.Setenv("API_BASE_URL", "https://api.campus.edu/")
	t.Setenv("AUTH_LOGIN_PATH", "")
	t.Setenv("AUDIT_RETENTION", "48h")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.SessionSecret)
	assert.Equal(t, "https://api.campus.edu", cfg.Backend.BaseURL)
	assert.Equal(t, "/login", cfg.Auth.LoginPath)
	assert.Equal(t, 48*time.Hour, cfg.Audit.Retention)
}

func TestLoadConfig_RequiresSecret(t *testing.T) {
	t.Setenv("AUTH_SESSION_SECRET", "")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadCLIConfig_IgnoresSessionSecret(t *testing.T) {
	t.Setenv("AUTH_SESSION_SECRET", "")
	t.Setenv("PORTALCTL_HOME", t.TempDir())

	cfg, err := LoadCLIConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.Client.PortalURL)
	assert.True(t, cfg.Client.ForbiddenInvalidates)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, false).Debug("hidden")
	newLogger(&buf, false).Info("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	newLogger(&buf, true).Debug("dev")
	assert.Contains(t, buf.String(), "msg=dev")
}

func TestSessionCookieMaxAge(t *testing.T) {
	assert.Equal(t, 12*time.Hour, sessionCookieMaxAge(0))
	assert.Equal(t, 2*time.Hour, sessionCookieMaxAge(2*time.Hour))
}
