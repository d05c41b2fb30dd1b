package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err:  &AppError{Code: ErrCodeNotFound, Message: "resource not found"},
			want: "resource not found",
		},
		{
			name: "error with cause",
			err:  &AppError{Code: ErrCodeUnreachable, Message: "backend unreachable", Cause: errors.New("dial tcp")},
			want: "backend unreachable: dial tcp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, ErrCodeMalformedResponse, "bad payload")
	if !errors.Is(err, cause) {
		t.Errorf("expected errors.Is to find cause")
	}
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Errorf("Wrap(nil) should be nil")
	}
}

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status  int
		message string
		check   func(error) bool
		wantMsg string
	}{
		{http.StatusUnauthorized, "token expired", IsUnauthenticated, "token expired"},
		{http.StatusForbidden, "", IsForbidden, "Forbidden"},
		{http.StatusNotFound, "exam not found", IsNotFound, "exam not found"},
		{http.StatusConflict, "", IsConflict, "Conflict"},
		{http.StatusUnprocessableEntity, "bad", IsValidation, "bad"},
		{http.StatusBadGateway, "", IsUnreachable, "Bad Gateway"},
		{http.StatusInternalServerError, "", IsInternal, "Internal Server Error"},
		{599, "", IsInternal, "request failed with status 599"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := FromStatus(tt.status, tt.message)
			if !tt.check(err) {
				t.Errorf("FromStatus(%d) code = %v", tt.status, err.Code)
			}
			if err.Message != tt.wantMsg {
				t.Errorf("FromStatus(%d) message = %q, want %q", tt.status, err.Message, tt.wantMsg)
			}
		})
	}
}

func TestIsHelpers_WrappedErrors(t *testing.T) {
	base := Forbidden("nope")
	wrapped := fmt.Errorf("client call: %w", base)
	if !IsForbidden(wrapped) {
		t.Error("IsForbidden should see through wrapping")
	}
	if IsUnauthenticated(wrapped) {
		t.Error("IsUnauthenticated should be false for forbidden")
	}
	if GetCode(errors.New("plain")) != "" {
		t.Error("GetCode on non-AppError should be empty")
	}
	if GetField(ValidationField("email", "required")) != "email" {
		t.Error("GetField should return field")
	}
	if !IsCredentialsRejected(CredentialsRejected("bad creds")) {
		t.Error("IsCredentialsRejected mismatch")
	}
}
