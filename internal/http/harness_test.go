package httpx

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vibolsen/campus-portal/internal/adapters/backend"
	"github.com/vibolsen/campus-portal/internal/adapters/jwtsession"
	"github.com/vibolsen/campus-portal/internal/adapters/redis"
	"github.com/vibolsen/campus-portal/internal/gateway/serverfetch"
	"github.com/vibolsen/campus-portal/internal/observability/metrics"
	"github.com/vibolsen/campus-portal/internal/service"
)

const (
	testEmail    = "ana@campus.edu"
	testPassword = "secret"
	testToken    = "T1"
)

// fakeBackend plays the remote REST API and records the Authorization headers it sees.
type fakeBackend struct {
	mu    sync.Mutex
	auths []string
}

func (b *fakeBackend) seen() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.auths...)
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/auth/login" {
		var creds struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Email != testEmail || creds.Password != testPassword {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"Invalid credentials"}`)
			return
		}
		_, _ = io.WriteString(w, `{"user":{"id":"u1","role":"STUDENT","email":"ana@campus.edu","name":"Ana"},"token":"T1"}`)
		return
	}

	b.mu.Lock()
	b.auths = append(b.auths, r.Header.Get("Authorization"))
	b.mu.Unlock()
	if r.Header.Get("Authorization") != "Bearer "+testToken {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/courses":
		_, _ = io.WriteString(w, `{"items":[{"id":1,"title":"Algebra","code":"MATH101","teacher":"Dr. Lee"}]}`)
	case "/api/exams":
		_, _ = io.WriteString(w, `[{"id":7,"title":"Midterm","date":"2026-11-02"}]`)
	case "/api/exams/7":
		_, _ = io.WriteString(w, `{"data":{"id":7,"title":"Midterm","course":"Algebra","room":"B12","duration":90}}`)
	case "/api/announcements":
		w.WriteHeader(http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"Not Found"}`)
	}
}

type harness struct {
	backend  *fakeBackend
	server   *httptest.Server
	client   *http.Client
	sessions *service.SessionService
	metrics  *metrics.Recorder
}

type harnessOption func(*RouterConfig)

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	be := &fakeBackend{}
	api := httptest.NewServer(be)
	t.Cleanup(api.Close)

	authn, err := backend.NewAuthenticator(backend.Config{LoginURL: api.URL + "/api/auth/login", TokenPath: "token"})
	require.NoError(t, err)
	codec, err := jwtsession.NewCodec("test-secret")
	require.NoError(t, err)
	rec := &metrics.Recorder{}
	revocations := redis.NewMemoryRevocationStore()
	principals := service.NewPrincipalStore(service.PrincipalStoreOptions{Codec: codec, Revocations: revocations})
	sessions := service.NewSessionService(service.SessionServiceOptions{
		Authenticator: authn,
		Codec:         codec,
		Principals:    principals,
		Revocations:   revocations,
		Metrics:       rec,
		TTL:           time.Hour,
	})
	fetcher, err := serverfetch.New(serverfetch.Config{BaseURL: api.URL, Principals: principals, Metrics: rec})
	require.NoError(t, err)

	cfg := RouterConfig{
		Sessions:      sessions,
		Fetcher:       fetcher,
		Cookies:       CookieNames{Session: "portal_session", Token: "token"},
		LoginPath:     "/login",
		ToastDuration: 4 * time.Second,
		TemplateFS:    os.DirFS("../../web/templates"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	handler, err := NewRouter(cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &harness{backend: be, server: srv, client: client, sessions: sessions, metrics: rec}
}

func (h *harness) get(t *testing.T, path string, headers ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.server.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/html")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := h.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// csrf primes the CSRF cookie and returns its value.
func (h *harness) csrf(t *testing.T) string {
	t.Helper()
	u, _ := url.Parse(h.server.URL)
	for _, c := range h.client.Jar.Cookies(u) {
		if c.Name == DefaultCSRFCookieName {
			return c.Value
		}
	}
	h.get(t, "/login")
	for _, c := range h.client.Jar.Cookies(u) {
		if c.Name == DefaultCSRFCookieName {
			return c.Value
		}
	}
	t.Fatal("csrf cookie was not issued")
	return ""
}

func (h *harness) postForm(t *testing.T, path string, form url.Values, headers ...string) *http.Response {
	t.Helper()
	form.Set(DefaultCSRFCookieName, h.csrf(t))
	req, err := http.NewRequest(http.MethodPost, h.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/html")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := h.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (h *harness) login(t *testing.T, email, password string, headers ...string) *http.Response {
	t.Helper()
	return h.postForm(t, "/login", url.Values{"email": {email}, "password": {password}}, headers...)
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func responseCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
