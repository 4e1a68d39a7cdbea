// Package generator runs report generation end to end: it validates the
// request, loads and aggregates records, composes the document and streams
// it to a sink, tracking each run through an explicit state machine.
package generator

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/core"
	"expensetracker/internal/document"
	"expensetracker/internal/layout"
	applog "expensetracker/internal/log"
	"expensetracker/internal/narrative"
	"expensetracker/internal/render"
	"expensetracker/internal/report"
	"expensetracker/internal/storage"
)

const ContentTypePDF = "application/pdf"

// Request is the input contract of a report. Dates are YYYY-MM-DD or RFC 3339.
type Request struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// Sink receives the finished document. Open is the commit point: once it has
// been called, failures can no longer be reported to the requester.
type Sink interface {
	Open(filename, contentType string) (io.Writer, error)
}

// Narrator produces the narrative section.
type Narrator interface {
	Summarize(ctx context.Context, rc *report.Context) narrative.Result
	Ask(ctx context.Context, instruction string, data any) narrative.Result
}

// Observer is told about every state transition of a run.
type Observer func(from, to State)

type Options struct {
	Layout   *layout.Config
	Observer Observer
	Logger   *slog.Logger
	// Compress enables PDF stream compression.
	Compress bool
}

// Orchestrator is shared by all requests; each Generate call owns its own
// context, engine and document.
type Orchestrator struct {
	records  storage.RecordReader
	narrator Narrator
	composer *document.Composer
	layout   *layout.Config
	observer Observer
	logger   *slog.Logger
	compress bool
}

func New(records storage.RecordReader, narrator Narrator, opts Options) *Orchestrator {
	if opts.Layout == nil {
		opts.Layout = layout.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{
		records:  records,
		narrator: narrator,
		composer: document.NewComposer(opts.Layout),
		layout:   opts.Layout,
		observer: opts.Observer,
		logger:   opts.Logger.With(applog.FieldComponent, applog.ComponentGenerator),
		compress: opts.Compress,
	}
}

// Filename is the suggested name of the document for a period.
func Filename(start, end core.Date) string {
	return fmt.Sprintf("Expense_Report_%s_to_%s.pdf", start.DayKey(), end.DayKey())
}

type run struct {
	o     *Orchestrator
	state State
}

func (r *run) advance(next State) {
	if !r.state.CanTransition(next) {
		panic(fmt.Sprintf("generator: illegal transition %s -> %s", r.state, next))
	}
	prev := r.state
	r.state = next
	if r.o.observer != nil {
		r.o.observer(prev, next)
	}
}

func (r *run) fail(kind ErrorKind, msg string, err error) *Error {
	at := r.state
	if at.Committed() {
		r.advance(StateAborted)
	} else {
		r.advance(StateFailed)
	}
	return &Error{Kind: kind, State: at, Message: msg, Err: err}
}

// Generate produces the detailed report for req and writes it to sink.
// Errors before the commit point are KindInput or KindCollaborator and sink
// is untouched; later errors are KindPostCommit and have already been logged.
func (o *Orchestrator) Generate(ctx context.Context, req Request, sink Sink) error {
	r := &run{o: o, state: StateValidating}

	start, end, verr := validate(req)
	if verr != nil {
		return r.fail(KindInput, verr.Message, verr.Err)
	}

	r.advance(StateAggregating)
	records, budgets, err := o.load(ctx)
	if err != nil {
		return r.fail(KindCollaborator, "failed to load records", err)
	}
	rc := report.AggregateWithPeriod(records, budgets, start, end)

	narrated := make(chan narrative.Result, 1)
	go func() {
		narrated <- o.narrator.Summarize(ctx, rc)
	}()

	r.advance(StateComposing)
	filename := Filename(start, end)
	w, err := sink.Open(filename, ContentTypePDF)
	if err != nil {
		return o.postCommit(ctx, r, "open output", err)
	}

	doc := render.NewPDF(o.layout, render.Options{
		Title:       document.Title,
		Creator:     "expensetracker",
		Compression: o.compress,
	})
	cur := o.composer.Compose(doc, rc, func() string {
		select {
		case res := <-narrated:
			return res.Text
		case <-ctx.Done():
			return narrative.FallbackText
		}
	})
	if err := doc.Err(); err != nil {
		return o.postCommit(ctx, r, "compose document", err)
	}

	r.advance(StateStreaming)
	if err := ctx.Err(); err != nil {
		return o.postCommit(ctx, r, "request cancelled", err)
	}
	if err := doc.Output(w); err != nil {
		return o.postCommit(ctx, r, "stream document", err)
	}

	r.advance(StateDone)
	o.logger.InfoContext(ctx, "Report generated",
		"filename", filename,
		"pages", cur.Page,
		"expenses", len(rc.Expenses),
		"incomes", len(rc.Incomes),
		"categories", len(rc.ByCategory))
	return nil
}

func (o *Orchestrator) postCommit(ctx context.Context, r *run, msg string, err error) error {
	ge := r.fail(KindPostCommit, msg, err)
	o.logger.ErrorContext(ctx, "Report aborted after commit",
		"state", ge.State.String(),
		applog.FieldError, ge)
	return ge
}

// load fetches every record and budget concurrently.
func (o *Orchestrator) load(ctx context.Context) (report.Records, core.Budgets, error) {
	var (
		records report.Records
		budgets []core.Budget
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records.Incomes, err = o.records.ListIncomes(gctx)
		if err != nil {
			return fmt.Errorf("list incomes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		records.Expenses, err = o.records.ListExpenses(gctx)
		if err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		budgets, err = o.records.ListBudgets(gctx)
		if err != nil {
			return fmt.Errorf("list budgets: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return report.Records{}, nil, err
	}
	return records, core.BudgetsFrom(budgets), nil
}

// CategoryReport is the tabular report: expenses within the requested range,
// grouped by category.
func (o *Orchestrator) CategoryReport(ctx context.Context, req Request) ([]report.CategoryTotal, error) {
	start, end, verr := validate(req)
	if verr != nil {
		return nil, &Error{Kind: KindInput, State: StateValidating, Message: verr.Message, Err: verr.Err}
	}
	expenses, err := o.records.ListExpenses(ctx)
	if err != nil {
		return nil, &Error{Kind: KindCollaborator, State: StateAggregating, Message: "failed to load expenses", Err: err}
	}
	return report.CategoryReport(expenses, start, end), nil
}

// Insights runs instruction over every stored record. An empty instruction
// uses the default summary request.
func (o *Orchestrator) Insights(ctx context.Context, instruction string) (narrative.Result, error) {
	records, budgets, err := o.load(ctx)
	if err != nil {
		return narrative.Result{}, &Error{Kind: KindCollaborator, State: StateAggregating, Message: "failed to load records", Err: err}
	}
	rc := report.Aggregate(records, budgets)
	return o.narrator.Ask(ctx, instruction, narrative.FinanceData(rc)), nil
}
