package httpx

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/vibolsen/campus-portal/internal/domain/auth"
)

// PageData is the view model every page template receives.
type PageData struct {
	Title           string
	Page            string
	ContentTemplate string
	Principal       *domainauth.Profile
	CSRFToken       string
	LoginPath       string
	Error           string
	Data            map[string]any
}

// TemplateRenderer renders HTML templates for UI responses.
type TemplateRenderer struct {
	t      *template.Template
	logger *slog.Logger
}

// TemplateRendererConfig holds configuration for creating a TemplateRenderer.
type TemplateRendererConfig struct {
	TemplateFS fs.FS // Filesystem containing layout.tmpl and pages/*.tmpl (required)
	Logger     *slog.Logger
}

// NewTemplateRenderer parses the layout and every page template.
func NewTemplateRenderer(cfg TemplateRendererConfig) (*TemplateRenderer, error) {
	if cfg.TemplateFS == nil {
		return nil, errors.New("TemplateFS is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var t *template.Template
	t, err := template.New("root").Funcs(templateFuncs(&t)).ParseFS(cfg.TemplateFS, "*.tmpl", "pages/*.tmpl")
	if err != nil {
		logger.Error("template parsing failed", slog.Any("error", err))
		return nil, err
	}
	return &TemplateRenderer{t: t, logger: logger}, nil
}

// Render writes the page with status. HTMX requests receive only the content fragment.
func (r *TemplateRenderer) Render(w http.ResponseWriter, req *http.Request, status int, data PageData) error {
	if data.ContentTemplate == "" {
		data.ContentTemplate = ContentTemplateFor(data.Page)
	}
	if data.Data == nil {
		data.Data = map[string]any{}
	}
	if data.CSRFToken == "" {
		data.CSRFToken = GetCSRFToken(req)
	}

	name := "layout"
	if WantsPartial(req) {
		name = data.ContentTemplate
	}

	var buf bytes.Buffer
	if err := r.t.ExecuteTemplate(&buf, name, data); err != nil {
		r.logger.ErrorContext(req.Context(), "template execution failed",
			slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		r.logger.DebugContext(req.Context(), "failed to write rendered template", slog.String("template", name), slog.Any("error", err))
		return err
	}
	return nil
}

func templateFuncs(t **template.Template) template.FuncMap {
	return template.FuncMap{
		"renderContent": func(name string, data any) (template.HTML, error) {
			var buf bytes.Buffer
			if err := (*t).ExecuteTemplate(&buf, name, data); err != nil {
				return "", err
			}
			// #nosec G203 - output of html/template execution is already escaped
			return template.HTML(buf.String()), nil
		},
		"roleLabel":  roleLabel,
		"portalPath": func(r domainauth.Role) string { return r.PortalPath() },
		"displayName": func(p *domainauth.Profile) string {
			if p == nil {
				return ""
			}
			if p.Name != "" {
				return p.Name
			}
			if p.Email != "" {
				return p.Email
			}
			return p.ID
		},
		"formatDate": formatDate,
	}
}

func roleLabel(r domainauth.Role) string {
	switch domainauth.Role(strings.ToUpper(string(r))) {
	case domainauth.RoleAdmin:
		return "Admin"
	case domainauth.RoleTeacher:
		return "Teacher"
	case domainauth.RoleStudent:
		return "Student"
	case domainauth.RoleHR, domainauth.RoleStaff:
		return "Staff"
	case domainauth.RoleStudyOffice:
		return "Study office"
	default:
		if r == "" {
			return "Portal"
		}
		return string(r)
	}
}

// formatDate renders RFC 3339 timestamps and plain dates; anything else is shown as-is.
func formatDate(v any) string {
	s := fmt.Sprint(v)
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			if layout == "2006-01-02" {
				return ts.Format("Mon 2 Jan 2006")
			}
			return ts.Format("Mon 2 Jan 2006 15:04")
		}
	}
	return s
}
