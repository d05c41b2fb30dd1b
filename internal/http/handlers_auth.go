package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vibolsen/campus-portal/internal/data"
	domainauth "github.com/vibolsen/campus-portal/internal/domain/auth"
	apperrors "github.com/vibolsen/campus-portal/internal/errors"
	"github.com/vibolsen/campus-portal/internal/service"
)

// SessionIssuer is the session surface the auth handlers depend on.
type SessionIssuer interface {
	Login(ctx context.Context, creds domainauth.Credentials) (*service.LoginResult, error)
	Logout(ctx context.Context, artifact string) error
	TTL() time.Duration
}

// AuthEventLister reads the login audit trail.
type AuthEventLister interface {
	List(ctx context.Context, opts data.AuthEventListOptions) ([]domainauth.Event, error)
}

// CookieNames names the two cookies written on login.
type CookieNames struct {
	Session string // HttpOnly signed artifact
	Token   string // client-readable bearer token
}

// AuthHandlers provides HTTP handlers for the credentials login flow.
type AuthHandlers struct {
	Sessions      SessionIssuer
	Renderer      *TemplateRenderer
	Events        AuthEventLister // optional
	Cookies       CookieNames
	CookieDomain  string
	LoginPath     string
	ExpiredNotice string
	ToastDuration time.Duration
	Logger        *slog.Logger
}

const loginFailedMessage = "Invalid email or password."

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// LoginPage renders the login form. A visitor who already has a session is sent to their portal.
// GET /login.
func (h *AuthHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	if sess, ok := GetSessionFromContext(r.Context()); ok {
		http.Redirect(w, r, sess.Principal.Role.PortalPath(), http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, "", "")
}

func (h *AuthHandlers) expiredNotice(r *http.Request) string {
	if r.Method != http.MethodGet || r.URL.Query().Get(expiredParam) == "" {
		return ""
	}
	if h.ExpiredNotice != "" {
		return h.ExpiredNotice
	}
	return DefaultExpiredNotice
}

// Login exchanges the submitted credentials for a session.
// POST /login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.loginFailed(w, r, "", apperrors.Validation("invalid form"))
		return
	}
	creds := domainauth.Credentials{
		Email:    strings.TrimSpace(r.PostForm.Get("email")),
		Password: r.PostForm.Get("password"),
	}

	res, err := h.Sessions.Login(r.Context(), creds)
	if err != nil {
		h.loginFailed(w, r, creds.Email, err)
		return
	}

	maxAge := int(time.Until(res.Session.ExpiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = int(h.Sessions.TTL().Seconds())
	}
	h.setCookie(w, r, &http.Cookie{Name: h.Cookies.Session, Value: res.Artifact, HttpOnly: true, MaxAge: maxAge})
	h.setCookie(w, r, &http.Cookie{Name: h.Cookies.Token, Value: res.Session.Principal.AccessToken, MaxAge: maxAge})

	target := res.Session.Principal.Role.PortalPath()
	if next := safeRedirectPath(r.PostForm.Get("next")); next != "/" && next != h.LoginPath {
		target = next
	}
	if IsHTMX(r) {
		HTMX(w).Redirect(target)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// loginFailed re-renders the form with a generic message and never sets a cookie.
func (h *AuthHandlers) loginFailed(w http.ResponseWriter, r *http.Request, email string, err error) {
	status := http.StatusUnauthorized
	message := loginFailedMessage
	switch {
	case apperrors.IsValidation(err):
		status = http.StatusBadRequest
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			message = appErr.Message
		}
	case apperrors.IsCredentialsRejected(err):
	default:
		h.logger().ErrorContext(r.Context(), "login failed", "error", err)
		status = http.StatusInternalServerError
		message = "Sign-in is temporarily unavailable. Please try again."
	}
	if IsHTMX(r) {
		HTMX(w).Toast(message, "error", h.ToastDuration)
	}
	h.renderLogin(w, r, status, email, message)
}

func (h *AuthHandlers) renderLogin(w http.ResponseWriter, r *http.Request, status int, email, message string) {
	if h.Renderer == nil {
		WriteJSON(w, status, map[string]string{"error": message})
		return
	}
	_ = h.Renderer.Render(w, r, status, PageData{
		Title:     "Sign in",
		Page:      PageLogin,
		LoginPath: h.LoginPath,
		Error:     message,
		Data: map[string]any{
			"Email":  email,
			"Next":   safeRedirectPath(r.FormValue("next")),
			"Notice": h.expiredNotice(r),
		},
	})
}

// Logout revokes the session and clears both cookies.
// POST /logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.Cookies.Session); err == nil && c.Value != "" {
		if err := h.Sessions.Logout(r.Context(), c.Value); err != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", err)
		}
	}
	h.clearCookie(w, r, h.Cookies.Session, true)
	h.clearCookie(w, r, h.Cookies.Token, false)

	if IsHTMX(r) {
		HTMX(w).Redirect(h.LoginPath)
		return
	}
	if !IsBrowserRequest(r) && strings.Contains(r.Header.Get("Accept"), "application/json") {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "success", "redirect_to": h.LoginPath})
		return
	}
	http.Redirect(w, r, h.LoginPath, http.StatusSeeOther)
}

// Status reports the current principal.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	sess, ok := GetSessionFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          sess.Principal.Profile(),
		"portal":        sess.Principal.Role.PortalPath(),
		"expires_at":    sess.ExpiresAt,
	})
}

type authEventView struct {
	Kind      domainauth.EventKind `json:"kind"`
	SessionID string               `json:"session_id,omitempty"`
	Role      domainauth.Role      `json:"role,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// EventsList returns the caller's own login history, newest first.
// GET /auth/events?limit=N.
func (h *AuthHandlers) EventsList(w http.ResponseWriter, r *http.Request) {
	sess, ok := GetSessionFromContext(r.Context())
	if !ok {
		WriteAppError(w, apperrors.Unauthenticated("authentication required"))
		return
	}
	if h.Events == nil {
		WriteAppError(w, apperrors.NotFound("audit trail is not enabled"))
		return
	}
	events, err := h.Events.List(r.Context(), data.AuthEventListOptions{
		UserID: sess.Principal.ID,
		Limit:  parseLimit(r.URL.Query().Get("limit")),
	})
	if err != nil {
		h.logger().ErrorContext(r.Context(), "list auth events failed", "error", err)
		WriteAppError(w, err)
		return
	}
	out := make([]authEventView, 0, len(events))
	for _, ev := range events {
		out = append(out, authEventView{Kind: ev.Kind, SessionID: ev.SessionID, Role: ev.Role, CreatedAt: ev.CreatedAt})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *AuthHandlers) setCookie(w http.ResponseWriter, r *http.Request, c *http.Cookie) {
	c.Path = "/"
	c.Domain = h.CookieDomain
	c.Secure = isSecureRequest(r)
	c.SameSite = http.SameSiteLaxMode
	http.SetCookie(w, c)
}

// clearCookie mirrors the attributes used when setting so browsers accept the deletion.
func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string, httpOnly bool) {
	h.setCookie(w, r, &http.Cookie{
		Name:     name,
		Value:    "",
		HttpOnly: httpOnly,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
	})
}
