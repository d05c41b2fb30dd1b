// Package backend adapts the remote portal API's credential exchange to ports.Authenticator.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vibolsen/campus-portal/config"
	domainauth "github.com/vibolsen/campus-portal/internal/domain/auth"
	"github.com/vibolsen/campus-portal/internal/payload"
)

const maxLoginResponseBytes = 1 << 20

// Config controls the credentials exchange.
type Config struct {
	// LoginURL is the absolute login endpoint, e.g. https://api.example.edu/api/auth/login.
	LoginURL string
	// UserPath and TokenPath locate the user record and token in the response.
	UserPath  string
	TokenPath string
	// Timeout bounds the exchange; zero leaves timing to the transport and ctx.
	Timeout time.Duration
	Client  *http.Client
	Logger  *slog.Logger
}

// Authenticator exchanges credentials with the backend login endpoint.
// It has no persistence side effects; session issuance is the caller's job.
type Authenticator struct {
	loginURL string
	user     payload.Path
	token    payload.Path
	client   *http.Client
	logger   *slog.Logger
}

var (
	userIDPath = payload.MustCompile("id || _id")
	rolePath   = payload.MustCompile("role")
	emailPath  = payload.MustCompile("email")
	namePath   = payload.MustCompile("name || fullName || join(' ', [firstName, lastName][?@ != `null`])")
)

// NewAuthenticator validates cfg and builds an Authenticator.
func NewAuthenticator(cfg Config) (*Authenticator, error) {
	loginURL := strings.TrimSpace(cfg.LoginURL)
	if loginURL == "" {
		return nil, fmt.Errorf("backend login url is required")
	}
	userExpr := cfg.UserPath
	if strings.TrimSpace(userExpr) == "" {
		userExpr = config.DefaultUserPath
	}
	tokenExpr := cfg.TokenPath
	if strings.TrimSpace(tokenExpr) == "" {
		tokenExpr = config.DefaultTokenPath
	}
	user, err := payload.Compile(userExpr)
	if err != nil {
		return nil, err
	}
	token, err := payload.Compile(tokenExpr)
	if err != nil {
		return nil, err
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		loginURL: loginURL,
		user:     user,
		token:    token,
		client:   hc,
		logger:   logger.With("component", "backend_authenticator"),
	}, nil
}

// Authenticate posts the credential pair to the login endpoint and assembles a principal
// from the returned user record and token. Every failure yields (Principal{}, false).
func (a *Authenticator) Authenticate(ctx context.Context, creds domainauth.Credentials) (p domainauth.Principal, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.ErrorContext(ctx, "panic during credentials exchange", "panic", r)
			p, ok = domainauth.Principal{}, false
		}
	}()

	if !creds.Complete() {
		return domainauth.Principal{}, false
	}

	raw, status, err := a.exchange(ctx, creds)
	if err != nil {
		a.logger.WarnContext(ctx, "credentials exchange failed", "error", err)
		return domainauth.Principal{}, false
	}
	if status < 200 || status >= 300 {
		a.logger.InfoContext(ctx, "credentials rejected", "status", status)
		return domainauth.Principal{}, false
	}

	data, err := payload.Decode(raw)
	if err != nil {
		a.logger.WarnContext(ctx, "login response is not JSON", "error", err)
		return domainauth.Principal{}, false
	}
	return a.principalFrom(data)
}

func (a *Authenticator) exchange(ctx context.Context, creds domainauth.Credentials) ([]byte, int, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return nil, 0, fmt.Errorf("encode credentials: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.loginURL, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxLoginResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read login response: %w", err)
	}
	return raw, resp.StatusCode, nil
}

func (a *Authenticator) principalFrom(data any) (domainauth.Principal, bool) {
	user, ok := a.user.Search(data)
	if !ok {
		return domainauth.Principal{}, false
	}
	if _, isObject := user.(map[string]any); !isObject {
		return domainauth.Principal{}, false
	}
	token, ok := a.token.Text(data)
	if !ok {
		return domainauth.Principal{}, false
	}
	role, ok := rolePath.Text(user)
	if !ok {
		return domainauth.Principal{}, false
	}

	p := domainauth.Principal{Role: domainauth.Role(role), AccessToken: token}
	p.ID, _ = userIDPath.Text(user)
	p.Email, _ = emailPath.Text(user)
	p.Name, _ = namePath.Text(user)
	return p, p.Valid()
}
