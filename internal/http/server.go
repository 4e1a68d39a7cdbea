package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"expensetracker/internal/generator"
	applog "expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/narrative"
	"expensetracker/internal/report"
	"expensetracker/internal/storage"
)

// ReportService produces the three report variants.
type ReportService interface {
	Generate(ctx context.Context, req generator.Request, sink generator.Sink) error
	CategoryReport(ctx context.Context, req generator.Request) ([]report.CategoryTotal, error)
	Insights(ctx context.Context, instruction string) (narrative.Result, error)
}

type Options struct {
	Addr    string
	Store   storage.Store
	Reports ReportService
	Logger  *applog.Logger
	// ReportRateLimit is requests per minute per client on the report
	// endpoints, which call the narrative service.
	ReportRateLimit int
	// TrustedProxies defaults to security.DefaultTrustedProxies.
	TrustedProxies []string
}

type Server struct {
	http.Server
	store   storage.Store
	reports ReportService
	logger  *applog.Logger
	events  *applog.StructuredLogger
	limiter *ratelimit.Limiter
	trace   *trace.Middleware
	now     func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) (*Server, error) {
	if opts.Store == nil || opts.Reports == nil {
		return nil, fmt.Errorf("http server needs a store and a report service")
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.TrustedProxies == nil {
		opts.TrustedProxies = security.DefaultTrustedProxies
	}
	ips, err := security.NewClientIPResolver(opts.TrustedProxies)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger.WithComponent(applog.ComponentHTTP)
	s := &Server{
		store:   opts.Store,
		reports: opts.Reports,
		logger:  logger,
		events:  applog.NewStructuredLogger(logger),
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerWindow: opts.ReportRateLimit, Window: time.Minute}),
		trace:   trace.NewMiddleware(logger, ips.ClientIP),
		now:     time.Now,
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Not found").Write(w)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed", "").Write(w)
	})

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	limited := s.limiter.Middleware(ips.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded", applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", "").Write(w)
	})

	// Routes stay on the root router so its JSON 404 and 405 handlers apply.
	r.Handle("/api/expenses/report/pdf", limited(http.HandlerFunc(s.handleReportPDF))).Methods(http.MethodPost)
	r.Handle("/api/expenses/report", limited(http.HandlerFunc(s.handleCategoryReport))).Methods(http.MethodPost)
	r.Handle("/api/insights", limited(http.HandlerFunc(s.handleInsights))).Methods(http.MethodPost)

	r.HandleFunc("/api/expenses", s.handleListExpenses).Methods(http.MethodGet)
	r.HandleFunc("/api/expenses", s.handleCreateExpense).Methods(http.MethodPost)
	r.HandleFunc("/api/expenses/{id}", s.handleUpdateExpense).Methods(http.MethodPut)
	r.HandleFunc("/api/expenses/{id}", s.handleDeleteExpense).Methods(http.MethodDelete)

	r.HandleFunc("/api/incomes", s.handleListIncomes).Methods(http.MethodGet)
	r.HandleFunc("/api/incomes", s.handleCreateIncome).Methods(http.MethodPost)
	r.HandleFunc("/api/incomes/{id}", s.handleUpdateIncome).Methods(http.MethodPut)
	r.HandleFunc("/api/incomes/{id}", s.handleDeleteIncome).Methods(http.MethodDelete)

	r.HandleFunc("/api/budgets", s.handleListBudgets).Methods(http.MethodGet)
	r.HandleFunc("/api/budgets", s.handleUpsertBudget).Methods(http.MethodPost)
	r.HandleFunc("/api/budgets/{id}", s.handleUpdateBudget).Methods(http.MethodPut)
	r.HandleFunc("/api/budgets/{id}", s.handleDeleteBudget).Methods(http.MethodDelete)

	var handler http.Handler = r
	handler = security.NoStore(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = applog.RequestIDMiddleware(trace.RequestID)(handler)
	handler = applog.Middleware(logger)(handler)
	handler = s.trace.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Long enough for a document that waits on the narrative service.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}
	return s, nil
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// Metrics exposes the request counters.
func (s *Server) Metrics() trace.Metrics {
	return s.trace.GetMetrics()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		ErrorResponse(http.StatusServiceUnavailable, "Storage unavailable", "").Write(w)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
