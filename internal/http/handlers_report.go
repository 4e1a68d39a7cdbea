package http

import (
	"fmt"
	"io"
	"net/http"

	"expensetracker/internal/generator"
	applog "expensetracker/internal/log"
	"expensetracker/internal/narrative"
)

// responseSink starts the download response. Once Open is called the status
// and headers are on the wire and failures can only truncate the body.
type responseSink struct {
	w      http.ResponseWriter
	opened bool
}

func (s *responseSink) Open(filename, contentType string) (io.Writer, error) {
	h := s.w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	s.w.WriteHeader(http.StatusOK)
	s.opened = true
	return s.w, nil
}

func parseReportRequest(r *http.Request) (generator.Request, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return generator.Request{}, err
	}
	return generator.Request{
		StartDate: p.Get("startDate"),
		EndDate:   p.Get("endDate"),
	}, nil
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	req, err := parseReportRequest(r)
	if err != nil {
		BadRequestError("Invalid request body", err.Error()).Write(w)
		return
	}

	sink := &responseSink{w: w}
	err = s.reports.Generate(r.Context(), req, sink)
	if err == nil || sink.opened {
		return
	}
	s.logGenerationError(r, err)
	GenerationError(err).Write(w)
}

func (s *Server) handleCategoryReport(w http.ResponseWriter, r *http.Request) {
	req, err := parseReportRequest(r)
	if err != nil {
		BadRequestError("Invalid request body", err.Error()).Write(w)
		return
	}

	rows, err := s.reports.CategoryReport(r.Context(), req)
	if err != nil {
		s.logGenerationError(r, err)
		GenerationError(err).Write(w)
		return
	}
	NewResponse().JSON(toCategoryTotalDTOs(rows)).Write(w)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body", err.Error()).Write(w)
		return
	}

	res, err := s.reports.Insights(r.Context(), p.Get("description"))
	if err != nil {
		s.logGenerationError(r, err)
		GenerationError(err).Write(w)
		return
	}
	NewResponse().JSON(insightsDTO{
		Summary:  res.Text,
		Fallback: res.Kind == narrative.KindFallback,
	}).Write(w)
}

// logGenerationError logs collaborator failures. Input errors are the
// client's and are logged by the trace middleware as 4xx.
func (s *Server) logGenerationError(r *http.Request, err error) {
	if generator.KindOf(err) == generator.KindInput {
		return
	}
	applog.FromContext(r.Context()).ErrorContext(r.Context(), "Report request failed",
		applog.FieldOperation, applog.OpGenerate,
		applog.FieldPath, r.URL.Path,
		applog.FieldError, err)
}
