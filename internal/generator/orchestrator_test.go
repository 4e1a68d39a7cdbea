package generator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"

	"expensetracker/internal/core"
	"expensetracker/internal/narrative"
	"expensetracker/internal/report"
	"expensetracker/internal/storage/memory"
)

type fakeNarrator struct {
	result narrative.Result
	asked  string
}

func (f *fakeNarrator) Summarize(context.Context, *report.Context) narrative.Result { return f.result }

func (f *fakeNarrator) Ask(_ context.Context, instruction string, _ any) narrative.Result {
	f.asked = instruction
	return f.result
}

type bufferSink struct {
	opens       int
	filename    string
	contentType string
	buf         bytes.Buffer
}

func (s *bufferSink) Open(filename, contentType string) (io.Writer, error) {
	s.opens++
	s.filename = filename
	s.contentType = contentType
	return &s.buf, nil
}

type failingWriterSink struct{ opened bool }

func (s *failingWriterSink) Open(string, string) (io.Writer, error) {
	s.opened = true
	return failingWriter{}, nil
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

type brokenStore struct{ *memory.Store }

func (brokenStore) ListExpenses(context.Context) ([]core.Expense, error) {
	return nil, errors.New("database unavailable")
}

type transitions struct {
	mu  sync.Mutex
	got []State
}

func (tr *transitions) observe(_, to State) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.got = append(tr.got, to)
}

func seededStore() *memory.Store {
	s := memory.New()
	s.Seed(
		[]core.Expense{
			{ID: "e1", Description: "Lunch", Amount: decimal.NewFromInt(300), Category: "Food", Date: core.NewDate(2025, 1, 10)},
			{ID: "e2", Description: "Dinner", Amount: decimal.NewFromInt(800), Category: "Food", Date: core.NewDate(2025, 1, 12)},
			{ID: "e3", Description: "Old", Amount: decimal.NewFromInt(50), Category: "Books", Date: core.NewDate(2024, 6, 1)},
		},
		[]core.Income{{ID: "i1", Source: "Salary", Amount: decimal.NewFromInt(1000), Date: core.NewDate(2025, 1, 10)}},
		[]core.Budget{{ID: "b1", Category: "Food", Limit: decimal.NewFromInt(500)}},
	)
	return s
}

func pageCount(t *testing.T, b []byte) int {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		t.Fatalf("parse pdf: %v", err)
	}
	return r.NumPage()
}

func TestGenerateSuccess(t *testing.T) {
	tr := &transitions{}
	o := New(seededStore(), &fakeNarrator{result: narrative.OK("Eat at home.")}, Options{Observer: tr.observe})
	sink := &bufferSink{}

	err := o.Generate(context.Background(), Request{StartDate: "2025-01-01", EndDate: "2025-01-31"}, sink)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if sink.filename != "Expense_Report_2025-01-01_to_2025-01-31.pdf" {
		t.Errorf("filename = %q", sink.filename)
	}
	if sink.contentType != ContentTypePDF {
		t.Errorf("content type = %q", sink.contentType)
	}
	if n := pageCount(t, sink.buf.Bytes()); n != 4 {
		t.Errorf("pages = %d, want 4", n)
	}
	// The document lists every record, not only those in the period.
	if !bytes.Contains(sink.buf.Bytes(), []byte("[01 Jun 2024] Books: Old - 50")) {
		t.Error("out-of-period expense missing from document")
	}

	want := []State{StateAggregating, StateComposing, StateStreaming, StateDone}
	if len(tr.got) != len(want) {
		t.Fatalf("transitions = %v, want %v", tr.got, want)
	}
	for i := range want {
		if tr.got[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, tr.got[i], want[i])
		}
	}
}

func TestGenerateInputErrors(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"missing both", Request{}},
		{"missing end", Request{StartDate: "2025-01-01"}},
		{"malformed start", Request{StartDate: "01/01/2025", EndDate: "2025-01-31"}},
		{"end before start", Request{StartDate: "2025-02-01", EndDate: "2025-01-31"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &transitions{}
			o := New(seededStore(), &fakeNarrator{}, Options{Observer: tr.observe})
			sink := &bufferSink{}

			err := o.Generate(context.Background(), tt.req, sink)

			if KindOf(err) != KindInput {
				t.Fatalf("kind = %v (%v), want input", KindOf(err), err)
			}
			if sink.opens != 0 {
				t.Error("sink opened before validation passed")
			}
			if len(tr.got) != 1 || tr.got[0] != StateFailed {
				t.Errorf("transitions = %v", tr.got)
			}
		})
	}
}

func TestGenerateStorageFailure(t *testing.T) {
	tr := &transitions{}
	o := New(brokenStore{memory.New()}, &fakeNarrator{}, Options{Observer: tr.observe})
	sink := &bufferSink{}

	err := o.Generate(context.Background(), Request{StartDate: "2025-01-01", EndDate: "2025-01-31"}, sink)

	var ge *Error
	if !errors.As(err, &ge) || ge.Kind != KindCollaborator {
		t.Fatalf("err = %v, want collaborator error", err)
	}
	if ge.State != StateAggregating {
		t.Errorf("failed in %v", ge.State)
	}
	if sink.opens != 0 {
		t.Error("sink opened after storage failure")
	}
	if got := tr.got[len(tr.got)-1]; got != StateFailed {
		t.Errorf("final state = %v", got)
	}
}

func TestGenerateNarrativeFailureStillCompletes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	client := narrative.New(narrative.Config{Endpoint: srv.URL + "/", Timeout: time.Second}, option.WithHTTPClient(srv.Client()))

	o := New(seededStore(), client, Options{})
	sink := &bufferSink{}
	if err := o.Generate(context.Background(), Request{StartDate: "2025-01-01", EndDate: "2025-01-31"}, sink); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if n := pageCount(t, sink.buf.Bytes()); n != 4 {
		t.Errorf("pages = %d, want 4", n)
	}
	if !bytes.Contains(sink.buf.Bytes(), []byte(narrative.FallbackText)) {
		t.Error("fallback text not rendered")
	}
}

func TestGenerateEmptyStore(t *testing.T) {
	o := New(memory.New(), &fakeNarrator{result: narrative.Fallback(narrative.FallbackText, errors.New("down"))}, Options{})
	sink := &bufferSink{}
	if err := o.Generate(context.Background(), Request{StartDate: "2025-01-01", EndDate: "2025-01-01"}, sink); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if n := pageCount(t, sink.buf.Bytes()); n != 4 {
		t.Errorf("pages = %d, want 4", n)
	}
}

func TestGeneratePostCommitFailure(t *testing.T) {
	tr := &transitions{}
	o := New(seededStore(), &fakeNarrator{result: narrative.OK("x")}, Options{Observer: tr.observe})
	sink := &failingWriterSink{}

	err := o.Generate(context.Background(), Request{StartDate: "2025-01-01", EndDate: "2025-01-31"}, sink)

	if KindOf(err) != KindPostCommit {
		t.Fatalf("err = %v, want post-commit", err)
	}
	if !sink.opened {
		t.Error("sink was never opened")
	}
	for _, s := range tr.got {
		if s == StateFailed {
			t.Error("post-commit failure must not reach Failed")
		}
	}
	if got := tr.got[len(tr.got)-1]; got != StateAborted {
		t.Errorf("final state = %v, want aborted", got)
	}
}

func TestCategoryReportFiltersRange(t *testing.T) {
	o := New(seededStore(), &fakeNarrator{}, Options{})

	rows, err := o.CategoryReport(context.Background(), Request{StartDate: "2025-01-01", EndDate: "2025-01-12"})
	if err != nil {
		t.Fatalf("CategoryReport: %v", err)
	}
	if len(rows) != 1 || rows[0].Category != "Food" || !rows[0].TotalAmount.Equal(decimal.NewFromInt(1100)) {
		t.Errorf("rows = %+v", rows)
	}

	if _, err := o.CategoryReport(context.Background(), Request{StartDate: "2025-01-01"}); KindOf(err) != KindInput {
		t.Errorf("missing end: err = %v", err)
	}
	if _, err := New(brokenStore{memory.New()}, nil, Options{}).CategoryReport(context.Background(), Request{StartDate: "2025-01-01", EndDate: "2025-01-02"}); KindOf(err) != KindCollaborator {
		t.Errorf("storage failure: err = %v", err)
	}
}

func TestInsights(t *testing.T) {
	n := &fakeNarrator{result: narrative.OK("advice")}
	o := New(seededStore(), n, Options{})

	res, err := o.Insights(context.Background(), "Be brief.")
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}
	if res.Text != "advice" || n.asked != "Be brief." {
		t.Errorf("res = %+v, asked %q", res, n.asked)
	}

	if _, err := New(brokenStore{memory.New()}, n, Options{}).Insights(context.Background(), ""); KindOf(err) != KindCollaborator {
		t.Errorf("err = %v", err)
	}
}

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{StateValidating, StateAggregating, true},
		{StateValidating, StateFailed, true},
		{StateAggregating, StateFailed, true},
		{StateAggregating, StateComposing, true},
		{StateComposing, StateFailed, false},
		{StateStreaming, StateFailed, false},
		{StateComposing, StateStreaming, true},
		{StateStreaming, StateDone, true},
		{StateStreaming, StateAborted, true},
		{StateValidating, StateComposing, false},
		{StateDone, StateValidating, false},
		{StateFailed, StateAggregating, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.ok {
			t.Errorf("%v -> %v = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestErrorMessages(t *testing.T) {
	e := &Error{Kind: KindInput, Message: ErrMissingDates.Error(), Err: ErrMissingDates}
	if e.Error() != "startDate and endDate are required" || e.Details() != "" {
		t.Errorf("Error() = %q, Details() = %q", e.Error(), e.Details())
	}
	if !errors.Is(e, ErrMissingDates) {
		t.Error("errors.Is through Unwrap")
	}
	if KindOf(errors.New("plain")) != 0 {
		t.Error("KindOf(plain error)")
	}
}
