package errors

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := New(CodeValidation, "bad input")
	if got := err.Error(); got != "VALIDATION_ERROR: bad input" {
		t.Errorf("Error() = %q", got)
	}

	wrapped := Wrap(CodeEncoderError, "encode failed", stderrors.New("boom"))
	if got := wrapped.Error(); got != "ENCODER_ERROR: encode failed: boom" {
		t.Errorf("Error() = %q", got)
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := stderrors.New("inner")
	err := Wrap(CodeInternal, "outer", inner)

	if !stderrors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeInvalidRequest, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeTimeout, http.StatusGatewayTimeout},
		{CodeEncoderError, http.StatusInternalServerError},
		{CodeRetrievalError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		err := New(tt.code, "msg")
		if got := err.HTTPStatus(); got != tt.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestBackendUnavailableError(t *testing.T) {
	err := BackendUnavailableError("qdrant", stderrors.New("connection refused"))

	if err.Code != CodeUnavailable {
		t.Errorf("Code = %s, want %s", err.Code, CodeUnavailable)
	}
	if !strings.Contains(err.Message, "docker run") {
		t.Errorf("message should contain startup instructions, got %q", err.Message)
	}
	if !strings.Contains(err.Message, "qdrant") {
		t.Errorf("message should name the backend, got %q", err.Message)
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, ValidationError("k_values must not be empty"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "k_values must not be empty") {
		t.Errorf("body = %q", w.Body.String())
	}

	// Non-AppError messages are sanitized.
	w = httptest.NewRecorder()
	WriteError(w, stderrors.New("secret internal detail"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "secret") {
		t.Error("internal error details should not leak to clients")
	}
}

func TestIsHelpers(t *testing.T) {
	if !IsNotFound(NotFoundError("dataset")) {
		t.Error("IsNotFound should match")
	}
	if IsNotFound(ValidationError("nope")) {
		t.Error("IsNotFound should not match validation errors")
	}
	if !IsValidation(ValidationError("nope")) {
		t.Error("IsValidation should match")
	}
}
