// Package clientstore is the interactive client's durable TokenStorage: a
// cookie jar scoped to the portal origin holding the plain token cookie, plus
// the cached user profile, persisted under the client's home directory.
package clientstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	domainauth "github.com/vibolsen/campus-portal/internal/domain/auth"
	"github.com/vibolsen/campus-portal/internal/ports"
)

const (
	stateFile         = "session.json"
	defaultCookieName = "token"
	defaultTTL        = 24 * time.Hour
)

// Options configures a Store.
type Options struct {
	// Dir holds the persisted state; it is created with 0700 permissions.
	Dir string
	// PortalURL scopes the token cookie.
	PortalURL string
	// CookieName defaults to "token".
	CookieName string
	// TTL bounds the token cookie lifetime; defaults to 24h.
	TTL time.Duration
	Now func() time.Time
}

// Store implements ports.TokenStorage. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	path    string
	origin  *url.URL
	name    string
	ttl     time.Duration
	now     func() time.Time
	jar     *cookiejar.Jar
	profile *domainauth.Profile
}

var _ ports.TokenStorage = (*Store)(nil)

type persisted struct {
	Token   *persistedCookie    `json:"token,omitempty"`
	Profile *domainauth.Profile `json:"profile,omitempty"`
}

type persistedCookie struct {
	Value   string    `json:"value"`
	Expires time.Time `json:"expires"`
}

// Open loads (or initialises) the store under opts.Dir.
func Open(opts Options) (*Store, error) {
	if opts.Dir == "" {
		return nil, errors.New("client store directory is required")
	}
	origin, err := url.Parse(opts.PortalURL)
	if err != nil || origin.Host == "" {
		return nil, fmt.Errorf("invalid portal url %q", opts.PortalURL)
	}
	if err := os.MkdirAll(opts.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("create client store dir: %w", err)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	s := &Store{
		path:   filepath.Join(opts.Dir, stateFile),
		origin: &url.URL{Scheme: origin.Scheme, Host: origin.Host, Path: "/"},
		name:   opts.CookieName,
		ttl:    opts.TTL,
		now:    opts.Now,
		jar:    jar,
	}
	if s.name == "" {
		s.name = defaultCookieName
	}
	if s.ttl <= 0 {
		s.ttl = defaultTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Jar exposes the cookie jar so HTTP clients can share the portal cookies.
func (s *Store) Jar() http.CookieJar { return s.jar }

// Origin returns the portal origin the cookie is scoped to.
func (s *Store) Origin() *url.URL {
	u := *s.origin
	return &u
}

func (s *Store) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cookieLocked()
	if c == nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func (s *Store) SetToken(token string, profile domainauth.Profile) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	expires := s.now().Add(s.ttl)
	s.jar.SetCookies(s.origin, []*http.Cookie{{
		Name:    s.name,
		Value:   token,
		Path:    "/",
		Expires: expires,
	}})
	p := profile
	s.profile = &p
	return s.saveLocked(&persisted{
		Token:   &persistedCookie{Value: token, Expires: expires},
		Profile: &p,
	})
}

func (s *Store) Profile() (domainauth.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil || s.cookieLocked() == nil {
		return domainauth.Profile{}, false
	}
	return *s.profile, true
}

// Clear removes the token cookie, the cached profile and the state file.
// Clearing an empty store is a no-op.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jar.SetCookies(s.origin, []*http.Cookie{{Name: s.name, Path: "/", MaxAge: -1}})
	s.profile = nil
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove client session: %w", err)
	}
	return nil
}

func (s *Store) cookieLocked() *http.Cookie {
	for _, c := range s.jar.Cookies(s.origin) {
		if c.Name == s.name {
			return c
		}
	}
	return nil
}

func (s *Store) load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read client session: %w", err)
	}
	var st persisted
	if err := json.Unmarshal(raw, &st); err != nil {
		// A corrupt file is treated as logged out.
		return os.Remove(s.path)
	}
	if st.Token == nil || st.Token.Value == "" || !s.now().Before(st.Token.Expires) {
		return nil
	}
	s.jar.SetCookies(s.origin, []*http.Cookie{{
		Name:    s.name,
		Value:   st.Token.Value,
		Path:    "/",
		Expires: st.Token.Expires,
	}})
	s.profile = st.Profile
	return nil
}

func (s *Store) saveLocked(st *persisted) error {
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode client session: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write client session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace client session: %w", err)
	}
	return nil
}
