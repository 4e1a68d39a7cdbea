package generator

import (
	"errors"
	"fmt"
	"strings"

	"expensetracker/internal/core"
)

var (
	ErrMissingDates = errors.New("startDate and endDate are required")
	ErrRangeOrder   = errors.New("endDate must not be before startDate")
)

type inputError struct {
	Message string
	Err     error
}

func validate(req Request) (core.Date, core.Date, *inputError) {
	if strings.TrimSpace(req.StartDate) == "" || strings.TrimSpace(req.EndDate) == "" {
		return core.Date{}, core.Date{}, &inputError{Message: ErrMissingDates.Error(), Err: ErrMissingDates}
	}
	start, err := core.ParseDate(req.StartDate)
	if err != nil {
		return core.Date{}, core.Date{}, &inputError{Message: "invalid startDate", Err: fmt.Errorf("%q: %w", req.StartDate, err)}
	}
	end, err := core.ParseDate(req.EndDate)
	if err != nil {
		return core.Date{}, core.Date{}, &inputError{Message: "invalid endDate", Err: fmt.Errorf("%q: %w", req.EndDate, err)}
	}
	if end.Before(start.Time) {
		return core.Date{}, core.Date{}, &inputError{Message: ErrRangeOrder.Error(), Err: ErrRangeOrder}
	}
	return start, end, nil
}
