package metrics

import (
	"strconv"
	"time"

	obserrors "github.com/vibolsen/campus-portal/internal/observability/errors"
	"github.com/vibolsen/campus-portal/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultError    = "error"
	ResultNoop     = "noop"
)

// LoginMetric describes a credentials exchange outcome.
type LoginMetric struct {
	Result   string
	Role     string
	Duration time.Duration
	Err      error
}

// EmitLogin emits login counters and latency.
func EmitLogin(sink statsd.Sink, in LoginMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{"result": in.Result}
	if in.Role != "" {
		tags["role"] = in.Role
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}
	sink.Count("auth.login", 1, tags)
	if in.Duration > 0 {
		sink.Timing("auth.login.duration", in.Duration, CloneTags(tags))
	}
}

// EmitLogout counts logouts.
func EmitLogout(sink statsd.Sink, result string) {
	if sink == nil {
		return
	}
	sink.Count("auth.logout", 1, map[string]string{"result": result})
}

// FetchMetric describes one outbound backend call.
type FetchMetric struct {
	// Context is "server" or "client".
	Context  string
	Method   string
	Status   int
	Duration time.Duration
	Err      error
}

// EmitFetch emits request counters and latency for outbound calls.
func EmitFetch(sink statsd.Sink, in FetchMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{
		"context": in.Context,
		"method":  in.Method,
		"status":  statusClass(in.Status),
	}
	if in.Err != nil {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}
	sink.Count("fetch.request", 1, tags)
	if in.Status == 401 || in.Status == 403 {
		sink.Count("fetch.unauthorized", 1, map[string]string{
			"context": in.Context,
			"status":  strconv.Itoa(in.Status),
		})
	}
	if in.Duration > 0 {
		sink.Timing("fetch.duration", in.Duration, CloneTags(tags))
	}
}

// InvalidationMetric describes one coordinator invocation.
type InvalidationMetric struct {
	Kind string
	// Stage is "cleared", "suppressed" (on the login page), "notified" or "coalesced".
	Stage string
}

// EmitInvalidation counts coordinator outcomes.
func EmitInvalidation(sink statsd.Sink, in InvalidationMetric) {
	if sink == nil {
		return
	}
	sink.Count("session.invalidation", 1, map[string]string{"kind": in.Kind, "stage": in.Stage})
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func statusClass(status int) string {
	switch {
	case status <= 0:
		return "none"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
