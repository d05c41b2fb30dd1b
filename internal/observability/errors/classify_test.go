package errors

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	apperrors "github.com/vibolsen/campus-portal/internal/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"app error", fmt.Errorf("call: %w", apperrors.Forbidden("no")), "forbidden"},
		{"url error unwraps", &url.Error{Op: "Get", URL: "x", Err: context.DeadlineExceeded}, "context_deadlineexceedederror"},
		{"plain", fmt.Errorf("wrapped: %w", &url.Error{Op: "Get", URL: "x", Err: nil}), "url_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Fatalf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
