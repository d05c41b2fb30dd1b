package httpx

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/vibolsen/campus-portal/internal/domain/auth"
)

func TestTemplateRenderer_FullPageAndPartial(t *testing.T) {
	r, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: os.DirFS("../../web/templates")})
	require.NoError(t, err)

	data := PageData{
		Title:     "Not found",
		Page:      PageError,
		Error:     "gone",
		Principal: &domainauth.Profile{ID: "u1", Role: domainauth.RoleStudyOffice, Email: "desk@campus.edu"},
	}

	w := httptest.NewRecorder()
	require.NoError(t, r.Render(w, httptest.NewRequest(http.MethodGet, "/x", nil), http.StatusNotFound, data))
	assert.Equal(t, http.StatusNotFound, w.Code)
	page := w.Body.String()
	assert.Contains(t, page, "<!doctype html>")
	assert.Contains(t, page, `href="/study-office"`)
	assert.Contains(t, page, "Study office")
	assert.Contains(t, page, "desk@campus.edu", "email stands in for a missing name")

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Hx-Request", "true")
	w = httptest.NewRecorder()
	require.NoError(t, r.Render(w, req, http.StatusOK, data))
	assert.NotContains(t, w.Body.String(), "<!doctype html>")
	assert.Contains(t, w.Body.String(), "gone")
}

func TestTemplateRenderer_ExecutionErrorWrites500(t *testing.T) {
	fsys := fstest.MapFS{
		"layout.tmpl":      {Data: []byte(`{{define "layout"}}{{renderContent .ContentTemplate .}}{{end}}`)},
		"pages/error.tmpl": {Data: []byte(`{{define "error-content"}}{{.Missing}}{{end}}`)},
	}
	r, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: fsys})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	err = r.Render(w, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, PageData{Page: PageError})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestNewTemplateRenderer_RequiresFS(t *testing.T) {
	_, err := NewTemplateRenderer(TemplateRendererConfig{})
	require.Error(t, err)
}

func TestRoleLabel(t *testing.T) {
	assert.Equal(t, "Admin", roleLabel(domainauth.RoleAdmin))
	assert.Equal(t, "Staff", roleLabel("hr"))
	assert.Equal(t, "Staff", roleLabel(domainauth.RoleStaff))
	assert.Equal(t, "Portal", roleLabel(""))
	assert.Equal(t, "LIBRARIAN", roleLabel("LIBRARIAN"))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "Mon 2 Nov 2026", formatDate("2026-11-02"))
	assert.Equal(t, "Mon 2 Nov 2026 09:30", formatDate("2026-11-02T09:30:00Z"))
	assert.Equal(t, "next week", formatDate("next week"))
}

func TestContentTemplateFor(t *testing.T) {
	assert.Equal(t, "exam-content", ContentTemplateFor(PageExam))
	assert.Equal(t, "error-content", ContentTemplateFor("unknown"))
}
