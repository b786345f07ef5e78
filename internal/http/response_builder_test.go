package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"expensetracker/internal/core"
)

func decodeRecorder(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	return body
}

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Data(map[string]string{"id": "1"}).
		Message("created").
		Header("X-Custom", "yes").
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Header().Get("X-Custom") != "yes" {
		t.Error("custom header not set")
	}

	body := decodeRecorder(t, w)
	if body["success"] != true || body["message"] != "created" {
		t.Errorf("unexpected body: %v", body)
	}
	if body["data"].(map[string]any)["id"] != "1" {
		t.Errorf("data not set: %v", body["data"])
	}
}

func TestJSONResponseBuilder_Cookie(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Cookie(&http.Cookie{Name: tokenCookie, Value: "v"}).Write(w)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "v" {
		t.Errorf("cookies = %+v", cookies)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		builder *JSONResponseBuilder
		status  int
		message string
	}{
		{"bad request", BadRequestError("bad"), http.StatusBadRequest, "bad"},
		{"unauthorized", UnauthorizedError(), http.StatusUnauthorized, "Not authorized to access this route"},
		{"not found", NotFoundError("Transaction not found"), http.StatusNotFound, "Transaction not found"},
		{"conflict", ConflictError("exists"), http.StatusConflict, "exists"},
		{"internal", InternalServerError(), http.StatusInternalServerError, "Server error"},
		{"too many", TooManyRequestsError(), http.StatusTooManyRequests, "Too many requests, please try again later."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			body := decodeRecorder(t, w)
			if body["success"] != false {
				t.Error("success should be false")
			}
			if body["message"] != tt.message {
				t.Errorf("message = %v, want %q", body["message"], tt.message)
			}
		})
	}
}

func TestValidationErrorResponse(t *testing.T) {
	var verr core.ValidationError
	verr.Add("title", "title is required")
	verr.Add("amount", "amount must be positive")

	w := httptest.NewRecorder()
	ValidationErrorResponse(&verr).Write(w)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", w.Code)
	}
	errs := decodeRecorder(t, w)["errors"].([]any)
	if len(errs) != 2 {
		t.Fatalf("errors = %v", errs)
	}
	first := errs[0].(map[string]any)
	if first["field"] != "title" {
		t.Errorf("first error = %v", first)
	}
}

func TestValidationErrorResponse_EmptyList(t *testing.T) {
	w := httptest.NewRecorder()
	ValidationErrorResponse(&core.ValidationError{}).Write(w)

	if errs, ok := decodeRecorder(t, w)["errors"].([]any); !ok || len(errs) != 0 {
		t.Errorf("errors should be an empty list, got %v", errs)
	}
}
