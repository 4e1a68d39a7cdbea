package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentGenerator, Output: &buf})

	l.InfoContext(context.Background(), "hello", "k", "v")
	l.WithComponent(ComponentNarrative).WarnContext(context.Background(), "degraded")

	out := buf.String()
	if !strings.Contains(out, "component=generator") || !strings.Contains(out, "k=v") {
		t.Errorf("first line missing fields: %s", out)
	}
	if !strings.Contains(out, "component=narrative") {
		t.Errorf("component override missing: %s", out)
	}
}

func TestJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Component: ComponentApp, Output: &buf, JSON: true})
	l.InfoContext(context.Background(), "json")
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"component":"app"`) {
		t.Errorf("output = %s", buf.String())
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: slog.LevelInfo, Component: ComponentHTTP, Output: &buf})

	h := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "inside")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(buf.String(), "request_id=req-1") {
		t.Errorf("request ID not attached: %s", buf.String())
	}
}

func TestFromContextDefault(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Errorf("FromContext default = %+v", l)
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelInfo, Output: &buf}))
	ctx := context.Background()
	r := httptest.NewRequest(http.MethodPost, "/api/expenses/report/pdf", nil)

	sl.LogHTTPEnd(ctx, r, "req-2", http.StatusInternalServerError, 12, "10.0.0.1")
	sl.LogRecordChanged(ctx, OpCreate, "expense", "e-1")
	sl.LogError(ctx, "boom", errors.New("disk full"), ComponentStorage, OpList, nil)

	out := buf.String()
	for _, want := range []string{
		"level=ERROR", "status_code=500", "request_id=req-2",
		"record_kind=expense", "record_id=e-1", "component=records",
		`error="disk full"`, "component=storage",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
