package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/generator"
	"expensetracker/internal/storage"
)

// ResponseBuilder assembles a JSON response.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	return b
}

func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// ErrorBody is the error shape of every endpoint.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func ErrorResponse(statusCode int, message, details string) *ResponseBuilder {
	return NewResponse().
		Status(statusCode).
		JSON(ErrorBody{Error: message, Details: details})
}

func BadRequestError(message, details string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message, details)
}

func UnprocessableEntityError(message, details string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message, details)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message, "")
}

func InternalServerError(message, details string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message, details)
}

// GenerationError maps a failed generation to its response: input problems
// are 400, storage failures 500.
func GenerationError(err error) *ResponseBuilder {
	var ge *generator.Error
	if !errors.As(err, &ge) {
		return InternalServerError("Failed to generate report", err.Error())
	}
	if ge.Kind == generator.KindInput {
		return BadRequestError(ge.Message, ge.Details())
	}
	return InternalServerError(ge.Message, ge.Details())
}

// isValidation reports whether err is a record validation failure.
func isValidation(err error) bool {
	for _, target := range []error{
		core.ErrInvalidDate, core.ErrInvalidAmount, core.ErrNegativeAmount,
		core.ErrEmptyCategory, core.ErrDescriptionSize,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// StoreError maps a storage failure for a record of the given noun.
func StoreError(err error, noun, action string) *ResponseBuilder {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return NotFoundError(noun + " not found")
	case isValidation(err):
		return UnprocessableEntityError("Invalid "+noun, err.Error())
	}
	return InternalServerError("Failed to "+action+" "+noun, "")
}
