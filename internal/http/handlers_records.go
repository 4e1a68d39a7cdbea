package http

import (
	"net/http"
	"slices"

	"github.com/gorilla/mux"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

// readBody parses the body or writes a 400 and returns nil.
func readBody(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body", err.Error()).Write(w)
		return nil
	}
	return p
}

func (s *Server) storeFailed(w http.ResponseWriter, r *http.Request, err error, noun, action string) {
	resp := StoreError(err, noun, action)
	if resp.statusCode >= http.StatusInternalServerError {
		s.events.LogError(r.Context(), "Storage operation failed", err, applog.ComponentStorage, action,
			applog.NewFields().WithRequestID(requestID(r)))
	}
	resp.Write(w)
}

func requestID(r *http.Request) string {
	return r.Header.Get("X-Request-ID")
}

// Expenses

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListExpenses(r.Context())
	if err != nil {
		s.storeFailed(w, r, err, "expenses", applog.OpList)
		return
	}
	// Newest first.
	slices.SortStableFunc(list, func(a, b core.Expense) int { return b.Date.Compare(a.Date.Time) })
	NewResponse().JSON(toExpenseDTOs(list)).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	p := readBody(w, r)
	if p == nil {
		return
	}
	e, err := parseExpense(p, s.now)
	if err != nil {
		UnprocessableEntityError("Invalid expense", err.Error()).Write(w)
		return
	}
	saved, err := s.store.CreateExpense(r.Context(), e)
	if err != nil {
		s.storeFailed(w, r, err, "expense", applog.OpCreate)
		return
	}
	s.events.LogRecordChanged(r.Context(), applog.OpCreate, amqp.KindExpense, saved.ID)
	NewResponse().Status(http.StatusCreated).JSON(toExpenseDTO(saved)).Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	p := readBody(w, r)
	if p == nil {
		return
	}
	e, err := parseExpense(p, s.now)
	if err != nil {
		UnprocessableEntityError("Invalid expense", err.Error()).Write(w)
		return
	}
	e.ID = mux.Vars(r)["id"]
	saved, err := s.store.UpdateExpense(r.Context(), e)
	if err != nil {
		s.storeFailed(w, r, err, "Expense", applog.OpUpdate)
		return
	}
	s.events.LogRecordChanged(r.Context(), applog.OpUpdate, amqp.KindExpense, saved.ID)
	NewResponse().JSON(toExpenseDTO(saved)).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.store.DeleteExpense(r.Context(), id); err != nil {
		s.storeFailed(w, r, err, "Expense", applog.OpDelete)
		return
	}
	s.events.LogRecordChanged(r.Context(), applog.OpDelete, amqp.KindExpense, id)
	NewResponse().JSON(successDTO{Success: true}).Write(w)
}

// Incomes

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListIncomes(r.Context())
	if err != nil {
		s.storeFailed(w, r, err, "incomes", applog.OpList)
		return
	}
	slices.SortStableFunc(list, func(a, b core.Income) int { return b.Date.Compare(a.Date.Time) })
	out := make([]incomeDTO, 0, len(list))
	for _, in := range list {
		out = append(out, toIncomeDTO(in))
	}
	NewResponse().JSON(out).Write(w)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	p := readBody(w, r)
	if p == nil {
		return
	}
	in, err := parseIncome(p, s.now)
	if err != nil {
		UnprocessableEntityError("Invalid income", err.Error()).Write(w)
		return
	}
	saved, err := s.store.CreateIncome(r.Context(), in)
	if err != nil {
		s.storeFailed(w, r, err, "income", applog.OpCreate)
		return
	}
	s.events.LogRecordChanged(r.Context(), applog.OpCreate, amqp.KindIncome, saved.ID)
	NewResponse().Status(http.StatusCreated).JSON(toIncomeDTO(saved)).Write(w)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	p := readBody(w, r)
	if p == nil {
		return
	}
	in, err := parseIncome(p, s.now)
	if err != nil {
		UnprocessableEntityError("Invalid income", err.Error()).Write(w)
		return
	}
	in.ID = mux.Vars(r)["id"]
	saved, err := s.store.UpdateIncome(r.Context(), in)
	if err != nil {
		s.storeFailed(w, r, err, "Income", applog.OpUpdate)
		return
	}
	s.events.LogRecordChanged(r.Context(), applog.OpUpdate, amqp.KindIncome, saved.ID)
	NewResponse().JSON(toIncomeDTO(saved)).Write(w)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.store.DeleteIncome(r.Context(), id); err != nil {
		s.storeFailed(w, r, err, "Income", applog.OpDelete)
		return
	}
	s.events.LogRecordChanged(r.Context(), applog.OpDelete, amqp.KindIncome, id)
	NewResponse().JSON(successDTO{Success: true}).Write(w)
}

// Budgets

// handleListBudgets returns budgets keyed by category.
func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListBudgets(r.Context())
	if err != nil {
		s.storeFailed(w, r, err, "budgets", applog.OpList)
		return
	}
	out := make(map[string]budgetDTO, len(list))
	for _, b := range list {
		out[b.Category] = toBudgetDTO(b)
	}
	NewResponse().JSON(out).Write(w)
}

// handleUpsertBudget sets the limit for a category, creating its budget when
// there is none.
func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	p := readBody(w, r)
	if p == nil {
		return
	}
	b, err := parseBudget(p)
	if err != nil {
		UnprocessableEntityError("Invalid budget", err.Error()).Write(w)
		return
	}
	saved, err := s.store.UpsertBudget(r.Context(), b)
	if err != nil {
		s.storeFailed(w, r, err, "budget", applog.OpUpsert)
		return
	}
	s.events.LogRecordChanged(r.Context(), applog.OpUpsert, amqp.KindBudget, saved.ID)
	NewResponse().Status(http.StatusCreated).JSON(toBudgetDTO(saved)).Write(w)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	p := readBody(w, r)
	if p == nil {
		return
	}
	b, err := parseBudget(p)
	if err != nil {
		UnprocessableEntityError("Invalid budget", err.Error()).Write(w)
		return
	}
	b.ID = mux.Vars(r)["id"]
	saved, err := s.store.UpdateBudget(r.Context(), b)
	if err != nil {
		s.storeFailed(w, r, err, "Budget", applog.OpUpdate)
		return
	}
	s.events.LogRecordChanged(r.Context(), applog.OpUpdate, amqp.KindBudget, saved.ID)
	NewResponse().JSON(toBudgetDTO(saved)).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.store.DeleteBudget(r.Context(), id); err != nil {
		s.storeFailed(w, r, err, "Budget", applog.OpDelete)
		return
	}
	s.events.LogRecordChanged(r.Context(), applog.OpDelete, amqp.KindBudget, id)
	NewResponse().JSON(successDTO{Success: true}).Write(w)
}
