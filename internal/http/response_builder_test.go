package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"expensetracker/internal/core"
	"expensetracker/internal/generator"
	"expensetracker/internal/storage"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/expenses/1").
		JSON(map[string]bool{"success": true}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Header().Get("Location") != "/api/expenses/1" {
		t.Error("custom header not set")
	}
	if w.Body.String() != "{\"success\":true}\n" {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().Status(http.StatusNoContent).Write(w)

	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
	if w.Header().Get("Content-Type") != "" {
		t.Error("Content-Type set without a body")
	}
}

func TestErrorResponse_OmitsEmptyDetails(t *testing.T) {
	w := httptest.NewRecorder()
	NotFoundError("Expense not found").Write(w)

	if w.Body.String() != "{\"error\":\"Expense not found\"}\n" {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestGenerationError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantError   string
		wantDetails string
	}{
		{
			name:       "missing dates",
			err:        &generator.Error{Kind: generator.KindInput, Message: "startDate and endDate are required", Err: generator.ErrMissingDates},
			wantStatus: http.StatusBadRequest,
			wantError:  "startDate and endDate are required",
		},
		{
			name:        "storage failure",
			err:         &generator.Error{Kind: generator.KindCollaborator, Message: "failed to load records", Err: errors.New("database unavailable")},
			wantStatus:  http.StatusInternalServerError,
			wantError:   "failed to load records",
			wantDetails: "database unavailable",
		},
		{
			name:        "untyped",
			err:         errors.New("boom"),
			wantStatus:  http.StatusInternalServerError,
			wantError:   "Failed to generate report",
			wantDetails: "boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			GenerationError(tt.err).Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			body := decodeError(t, w)
			if body.Error != tt.wantError || body.Details != tt.wantDetails {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestStoreError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("delete expense: %w", storage.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("invalid expense: %w", core.ErrEmptyCategory), http.StatusUnprocessableEntity},
		{errors.New("disk I/O error"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		StoreError(tt.err, "Expense", "update").Write(w)
		if w.Code != tt.want {
			t.Errorf("StoreError(%v) = %d, want %d", tt.err, w.Code, tt.want)
		}
	}
}
