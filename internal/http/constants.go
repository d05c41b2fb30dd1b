package httpx

// Page identifiers used in templates and navigation.
const (
	PageLogin     = "login"
	PageDashboard = "dashboard"
	PageCourses   = "courses"
	PageExam      = "exam"
	PageError     = "error"
)

// Backend collections rendered by the portal pages.
const (
	CoursesEndpoint       = "/api/courses"
	ExamsEndpoint         = "/api/exams"
	AnnouncementsEndpoint = "/api/announcements"
)

// expiredParam marks a login redirect caused by a session that ended.
const expiredParam = "expired"

// DefaultExpiredNotice is shown when a stale session cookie is bounced to login.
const DefaultExpiredNotice = "Your session has expired. Please log in again."

// TemplatePathFromRoot is where templates live on disk in development mode.
const TemplatePathFromRoot = "web/templates"

//nolint:gochecknoglobals // static read-only lookup
var contentTemplates = map[string]string{
	PageLogin:     "login-content",
	PageDashboard: "dashboard-content",
	PageCourses:   "courses-content",
	PageExam:      "exam-content",
	PageError:     "error-content",
}

// ContentTemplateFor returns the content template for the given page.
// Falls back to error-content for unknown pages.
func ContentTemplateFor(page string) string {
	if name, ok := contentTemplates[page]; ok {
		return name
	}
	return "error-content"
}
