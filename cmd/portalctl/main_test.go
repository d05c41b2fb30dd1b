package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backendStub struct {
	mu      sync.Mutex
	uploads []string
}

func (b *backendStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/auth/login" {
		var creds struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"user":{"id":"t9","role":"TEACHER","email":"lee@campus.edu","name":"Dr. Lee"},"token":"T9"}`)
		return
	}

	switch r.Header.Get("Authorization") {
	case "Bearer T9":
	case "Bearer LIMITED":
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":"Teachers only"}`)
		return
	default:
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"Token expired"}`)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/api/courses" && r.Method == http.MethodGet:
		_, _ = io.WriteString(w, `{"items":[{"id":1,"title":"Algebra"},{"id":2,"title":"Physics"}]}`)
	case r.URL.Path == "/api/announcements" && r.Method == http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	case r.URL.Path == "/api/submissions":
		f, hdr, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		content, _ := io.ReadAll(f)
		b.mu.Lock()
		b.uploads = append(b.uploads, hdr.Filename+":"+string(content)+":"+r.FormValue("course"))
		b.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"ok":true}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type cliRun struct {
	stdout string
	stderr string
	err    error
}

func setupCLI(t *testing.T) *backendStub {
	t.Helper()
	stub := &backendStub{}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	t.Setenv("PORTALCTL_HOME", t.TempDir())
	t.Setenv("PORTALCTL_URL", "http://portal.test")
	t.Setenv("PORTALCTL_REDIRECT_DELAY", "0s")
	t.Setenv("API_BASE_URL", srv.URL)
	return stub
}

func runCLI(t *testing.T, stdin string, args ...string) cliRun {
	t.Helper()
	var out, errOut bytes.Buffer
	err := execute(context.Background(), streams{in: strings.NewReader(stdin), out: &out, err: &errOut}, args)
	return cliRun{stdout: out.String(), stderr: errOut.String(), err: err}
}

func TestLoginWhoamiAndGet(t *testing.T) {
	setupCLI(t)

	res := runCLI(t, "secret\n", "login", "--email", "lee@campus.edu")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Signed in as Dr. Lee (TEACHER)")

	res = runCLI(t, "", "whoami")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "http://portal.test/teacher")

	res = runCLI(t, "", "get", "api/courses", "--query", "items[].title")
	require.NoError(t, res.err)
	assert.JSONEq(t, `["Algebra","Physics"]`, res.stdout)
}

func TestLoginRejected(t *testing.T) {
	setupCLI(t)

	res := runCLI(t, "", "login", "-e", "lee@campus.edu", "-p", "wrong")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "invalid email or password")

	res = runCLI(t, "", "whoami")
	require.Error(t, res.err)
}

func TestPostSendsBodyUnchanged(t *testing.T) {
	setupCLI(t)
	require.NoError(t, runCLI(t, "", "login", "-e", "lee@campus.edu", "-p", "secret").err)

	res := runCLI(t, `{"title":"Exam moved"}`, "post", "/api/announcements", "--data", "-")
	require.NoError(t, res.err)
	assert.JSONEq(t, `{"title":"Exam moved"}`, res.stdout)

	res = runCLI(t, "", "put", "/api/announcements", "--data", "{not json")
	require.Error(t, res.err)
}

func TestUploadMultipart(t *testing.T) {
	stub := setupCLI(t)
	require.NoError(t, runCLI(t, "", "login", "-e", "lee@campus.edu", "-p", "secret").err)

	path := filepath.Join(t.TempDir(), "essay.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	res := runCLI(t, "", "upload", "/api/submissions", "--file", "file="+path, "--field", "course=MATH101")
	require.NoError(t, res.err)
	assert.Equal(t, []string{"essay.txt:hello:MATH101"}, stub.uploads)
}

func TestUnauthorizedClearsSessionAndRedirects(t *testing.T) {
	setupCLI(t)
	require.NoError(t, runCLI(t, "", "login", "-e", "lee@campus.edu", "-p", "secret").err)
	writeToken(t, "STALE")

	res := runCLI(t, "", "get", "/api/courses")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "401")
	assert.Equal(t, 1, strings.Count(res.stderr, "Your session has expired. Please log in again."))
	assert.Contains(t, res.stderr, "http://portal.test/login")

	res = runCLI(t, "", "whoami")
	require.Error(t, res.err, "token storage was cleared")
}

func TestForbiddenKeepsSessionWhenConfigured(t *testing.T) {
	setupCLI(t)
	t.Setenv("PORTALCTL_FORBIDDEN_INVALIDATES", "false")
	require.NoError(t, runCLI(t, "", "login", "-e", "lee@campus.edu", "-p", "secret").err)
	writeToken(t, "LIMITED")

	res := runCLI(t, "", "get", "/api/courses")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "Teachers only")
	assert.NotContains(t, res.stderr, "session has expired")

	require.NoError(t, runCLI(t, "", "whoami").err)
}

func TestLogoutClearsProfile(t *testing.T) {
	setupCLI(t)
	require.NoError(t, runCLI(t, "", "login", "-e", "lee@campus.edu", "-p", "secret").err)

	res := runCLI(t, "", "logout")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Signed out")
	require.Error(t, runCLI(t, "", "whoami").err)
}

// writeToken swaps the persisted token so the next invocation presents it.
func writeToken(t *testing.T, token string) {
	t.Helper()
	path := filepath.Join(os.Getenv("PORTALCTL_HOME"), "session.json")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var state map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &state))
	var cookie map[string]any
	require.NoError(t, json.Unmarshal(state["token"], &cookie))
	cookie["value"] = token
	state["token"], err = json.Marshal(cookie)
	require.NoError(t, err)
	raw, err = json.Marshal(state)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))
}
