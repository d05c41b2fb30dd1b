package auth

// Package auth contains simple hand-written test doubles for auth and gateway ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"sync"

	domainauth "github.com/vibolsen/campus-portal/internal/domain/auth"
	"github.com/vibolsen/campus-portal/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.Authenticator = (*StaticAuthenticator)(nil)
	_ ports.TokenStorage  = (*MemoryTokenStorage)(nil)
	_ ports.Navigator     = (*RecordingNavigator)(nil)
)

// StaticAuthenticator accepts exactly one credential pair.
type StaticAuthenticator struct {
	Email     string
	Password  string
	Principal domainauth.Principal

	mu    sync.Mutex
	calls int
}

func (a *StaticAuthenticator) Authenticate(_ context.Context, creds domainauth.Credentials) (domainauth.Principal, bool) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if !creds.Complete() || creds.Email != a.Email || creds.Password != a.Password {
		return domainauth.Principal{}, false
	}
	return a.Principal, true
}

// Calls returns how many exchanges were attempted.
func (a *StaticAuthenticator) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// MemoryTokenStorage is an in-memory client token store for unit tests.
type MemoryTokenStorage struct {
	mu      sync.Mutex
	token   string
	profile domainauth.Profile
	clears  int
}

// NewMemoryTokenStorage creates a store pre-populated with token (may be empty).
func NewMemoryTokenStorage(token string) *MemoryTokenStorage {
	return &MemoryTokenStorage{token: token}
}

func (m *MemoryTokenStorage) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.token != ""
}

func (m *MemoryTokenStorage) SetToken(token string, profile domainauth.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.profile = profile
	return nil
}

func (m *MemoryTokenStorage) Profile() (domainauth.Profile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile, m.profile.ID != "" || m.profile.Role != ""
}

func (m *MemoryTokenStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.profile = domainauth.Profile{}
	m.clears++
	return nil
}

// Clears returns how many times Clear ran.
func (m *MemoryTokenStorage) Clears() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clears
}

// RecordingNavigator tracks location and every navigation.
type RecordingNavigator struct {
	mu       sync.Mutex
	location string
	visits   []string
}

// NewRecordingNavigator starts at location.
func NewRecordingNavigator(location string) *RecordingNavigator {
	return &RecordingNavigator{location: location}
}

func (n *RecordingNavigator) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.location
}

func (n *RecordingNavigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.location = path
	n.visits = append(n.visits, path)
}

// Visits returns every path navigated to, in order.
func (n *RecordingNavigator) Visits() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.visits...)
}
