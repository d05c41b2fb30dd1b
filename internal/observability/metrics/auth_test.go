package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/vibolsen/campus-portal/internal/errors"
)

func TestEmitLogin(t *testing.T) {
	rec := &Recorder{}
	EmitLogin(rec, LoginMetric{Result: ResultError, Duration: time.Millisecond, Err: apperrors.Wrap(errors.New("x"), apperrors.ErrCodeUnreachable, "down")})

	samples := rec.Samples()
	require.Len(t, samples, 2)
	assert.Equal(t, "auth.login", samples[0].Name)
	assert.Equal(t, "unreachable", samples[0].Tags["error_class"])
	assert.Equal(t, "timing", samples[1].Kind)
}

func TestEmitFetch_UnauthorizedCounter(t *testing.T) {
	rec := &Recorder{}
	EmitFetch(rec, FetchMetric{Context: "server", Method: "GET", Status: 401})
	EmitFetch(rec, FetchMetric{Context: "client", Method: "POST", Status: 403})
	EmitFetch(rec, FetchMetric{Context: "client", Method: "GET", Status: 200})

	assert.Equal(t, int64(3), rec.Total("fetch.request"))
	assert.Equal(t, int64(2), rec.Total("fetch.unauthorized"))
}

func TestEmitHelpers_NilSink(t *testing.T) {
	EmitLogin(nil, LoginMetric{})
	EmitLogout(nil, ResultSuccess)
	EmitFetch(nil, FetchMetric{})
	EmitInvalidation(nil, InvalidationMetric{})
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "none", statusClass(0))
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "4xx", statusClass(404))
	assert.Equal(t, "5xx", statusClass(502))
}
