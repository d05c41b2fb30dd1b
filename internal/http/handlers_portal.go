package httpx

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vibolsen/campus-portal/internal/gateway/serverfetch"
	"github.com/vibolsen/campus-portal/internal/payload"
)

// Backend payloads arrive bare or wrapped in an envelope.
var (
	listPath   = payload.MustCompile("items || data || @")
	recordPath = payload.MustCompile("exam || data || @")
)

// flexString accepts JSON strings and numbers, since backends disagree on id types.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// Course is a row of the courses view.
type Course struct {
	ID      flexString `json:"id"`
	Title   string     `json:"title"`
	Code    string     `json:"code"`
	Teacher string     `json:"teacher"`
}

// Exam is an exam summary or detail.
type Exam struct {
	ID          flexString `json:"id"`
	Title       string     `json:"title"`
	Course      string     `json:"course"`
	Date        string     `json:"date"`
	Room        string     `json:"room"`
	Duration    flexString `json:"duration"`
	Description string     `json:"description"`
}

// Announcement is a dashboard notice.
type Announcement struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// PortalHandlers renders the role portals and resource pages from backend data.
type PortalHandlers struct {
	Fetcher   *serverfetch.Fetcher
	Renderer  *TemplateRenderer
	LoginPath string
	Logger    *slog.Logger
}

func (h *PortalHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Home sends signed-in visitors to their portal and everyone else to the login page.
// GET /.
func (h *PortalHandlers) Home(w http.ResponseWriter, r *http.Request) {
	if sess, ok := GetSessionFromContext(r.Context()); ok {
		if target := sess.Principal.Role.PortalPath(); target != "/" {
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		h.Dashboard(w, r)
		return
	}
	http.Redirect(w, r, h.LoginPath, http.StatusSeeOther)
}

// Dashboard renders the role portal. A visitor on another role's portal is sent to their own.
// GET /admin, /teacher, /student, /staff, /study-office.
func (h *PortalHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess, ok := GetSessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, h.LoginPath, http.StatusSeeOther)
		return
	}
	if own := sess.Principal.Role.PortalPath(); own != "/" && r.URL.Path != "/" && r.URL.Path != own {
		http.Redirect(w, r, own, http.StatusSeeOther)
		return
	}

	var (
		courses       []Course
		exams         []Exam
		announcements []Announcement
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error { courses = fetchList[Course](ctx, h, CoursesEndpoint); return nil })
	g.Go(func() error { exams = fetchList[Exam](ctx, h, ExamsEndpoint); return nil })
	g.Go(func() error { announcements = fetchList[Announcement](ctx, h, AnnouncementsEndpoint); return nil })
	_ = g.Wait()

	h.render(w, r, http.StatusOK, PageData{
		Title: roleLabel(sess.Principal.Role) + " portal",
		Page:  PageDashboard,
		Data: map[string]any{
			"Courses":       courses,
			"Exams":         exams,
			"Announcements": announcements,
		},
	})
}

// Courses lists courses; no data renders the empty state.
// GET /courses.
func (h *PortalHandlers) Courses(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, PageData{
		Title: "Courses",
		Page:  PageCourses,
		Data:  map[string]any{"Courses": fetchList[Course](r.Context(), h, CoursesEndpoint)},
	})
}

// Exam renders one exam; any fetch failure renders the not-found page.
// GET /exams/{id}.
func (h *PortalHandlers) Exam(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		h.NotFound(w, r)
		return
	}
	exam, ok := fetchRecord[Exam](r.Context(), h, ExamsEndpoint+"/"+url.PathEscape(id), recordPath)
	if !ok || exam.Title == "" {
		h.NotFound(w, r)
		return
	}
	h.render(w, r, http.StatusOK, PageData{
		Title: exam.Title,
		Page:  PageExam,
		Data:  map[string]any{"Exam": exam},
	})
}

// NotFound renders the not-found page, or JSON for API clients.
func (h *PortalHandlers) NotFound(w http.ResponseWriter, r *http.Request) {
	if !IsBrowserRequest(r) {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errNotFound})
		return
	}
	h.render(w, r, http.StatusNotFound, PageData{
		Title: "Not found",
		Page:  PageError,
		Error: "The page you are looking for does not exist or is no longer available.",
	})
}

func (h *PortalHandlers) render(w http.ResponseWriter, r *http.Request, status int, data PageData) {
	data.Principal = ProfileFromContext(r.Context())
	data.LoginPath = h.LoginPath
	if err := h.Renderer.Render(w, r, status, data); err != nil {
		h.logger().DebugContext(r.Context(), "render failed", "page", data.Page, "error", err)
	}
}

// fetchList returns the collection at endpoint, or nil when the backend has nothing usable.
func fetchList[T any](ctx context.Context, h *PortalHandlers, endpoint string) []T {
	items, ok := fetchRecord[[]T](ctx, h, endpoint, listPath)
	if !ok {
		return nil
	}
	return items
}

func fetchRecord[T any](ctx context.Context, h *PortalHandlers, endpoint string, path payload.Path) (T, bool) {
	var out T
	raw, ok := h.Fetcher.Request(ctx, endpoint, serverfetch.Options{})
	if !ok || len(raw) == 0 {
		return out, false
	}
	doc, err := payload.Decode(raw)
	if err != nil {
		h.logger().WarnContext(ctx, "decode backend response failed", "endpoint", endpoint, "error", err)
		return out, false
	}
	v, ok := path.Search(doc)
	if !ok {
		return out, false
	}
	b, err := json.Marshal(v)
	if err != nil {
		return out, false
	}
	if err := json.Unmarshal(b, &out); err != nil {
		h.logger().DebugContext(ctx, "unexpected backend shape", "endpoint", endpoint, "error", err)
		var zero T
		return zero, false
	}
	return out, true
}

func parseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
