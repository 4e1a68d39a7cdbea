package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"expensetracker/internal/storage"
	"expensetracker/internal/storage/storagetest"
)

const testSpreadsheet = "sheet-123"

// fakeSheets serves the subset of the Sheets v4 REST API the store uses,
// keeping one grid of strings per tab.
type fakeSheets struct {
	mu    sync.Mutex
	order []string
	grids map[string][][]string
}

func newFakeSheets(titles ...string) *fakeSheets {
	f := &fakeSheets{grids: map[string][][]string{}}
	for _, t := range titles {
		f.order = append(f.order, t)
		f.grids[t] = nil
	}
	return f
}

// splitRange turns "'Tab'!A2:E" into the tab title and first and last rows.
// A missing row number means unbounded.
func splitRange(rng string) (title string, first, last int) {
	title, cells, _ := strings.Cut(rng, "!")
	title = strings.ReplaceAll(strings.Trim(title, "'"), "''", "'")
	from, to, _ := strings.Cut(cells, ":")
	rowOf := func(ref string) int {
		n, _ := strconv.Atoi(strings.TrimLeft(ref, "ABCDEFGHIJKLMNOPQRSTUVWXYZ"))
		return n
	}
	first, last = rowOf(from), rowOf(to)
	if first == 0 {
		first = 1
	}
	return title, first, last
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	base := "/v4/spreadsheets/" + testSpreadsheet
	path := r.URL.Path
	switch {
	case path == base && r.Method == http.MethodGet:
		resp := gsheet.Spreadsheet{SpreadsheetId: testSpreadsheet}
		for i, t := range f.order {
			resp.Sheets = append(resp.Sheets, &gsheet.Sheet{Properties: &gsheet.SheetProperties{SheetId: int64(i), Title: t}})
		}
		writeJSON(w, &resp)
	case path == base+":batchUpdate":
		var req gsheet.BatchUpdateSpreadsheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, rq := range req.Requests {
			d := rq.DeleteDimension.Range
			title := f.order[d.SheetId]
			grid := f.grids[title]
			f.grids[title] = append(grid[:d.StartIndex:d.StartIndex], grid[d.EndIndex:]...)
		}
		writeJSON(w, map[string]string{"spreadsheetId": testSpreadsheet})
	case strings.HasPrefix(path, base+"/values/"):
		rng := strings.TrimPrefix(path, base+"/values/")
		appending := strings.HasSuffix(rng, ":append")
		title, first, last := splitRange(strings.TrimSuffix(rng, ":append"))
		grid, ok := f.grids[title]
		if !ok {
			http.Error(w, `{"error":{"code":400,"message":"Unable to parse range"}}`, http.StatusBadRequest)
			return
		}
		switch {
		case r.Method == http.MethodGet:
			var values [][]string
			for i := first - 1; i < len(grid) && (last == 0 || i < last); i++ {
				values = append(values, grid[i])
			}
			writeJSON(w, map[string]any{"range": rng, "values": values})
		case appending || r.Method == http.MethodPut:
			var body struct {
				Values [][]any `json:"values"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			row := make([]string, len(body.Values[0]))
			for i, v := range body.Values[0] {
				row[i] = fmt.Sprint(v)
			}
			if appending {
				f.grids[title] = append(grid, row)
			} else {
				for len(grid) < first {
					grid = append(grid, nil)
				}
				grid[first-1] = row
				f.grids[title] = grid
			}
			writeJSON(w, map[string]any{"spreadsheetId": testSpreadsheet})
		}
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestStore(t *testing.T, fake *fakeSheets, cfg Config) (*Store, error) {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	cfg.SpreadsheetID = testSpreadsheet
	return New(context.Background(), cfg,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication())
}

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := newTestStore(t, newFakeSheets(DefaultExpensesSheet, DefaultIncomesSheet, DefaultBudgetsSheet), Config{})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		return s
	})
}

func TestNewWritesHeaders(t *testing.T) {
	fake := newFakeSheets("2025 Expenses", DefaultIncomesSheet, DefaultBudgetsSheet)
	fake.grids[DefaultBudgetsSheet] = [][]string{{"ID", "Category", "Limit"}, {"b1", "Food", "500"}}

	s, err := newTestStore(t, fake, Config{ExpensesSheet: "2025 Expenses"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := fake.grids["2025 Expenses"]; len(got) != 1 || strings.Join(got[0], ",") != "ID,Date,Description,Category,Amount" {
		t.Errorf("expenses header = %v", got)
	}
	if got := fake.grids[DefaultBudgetsSheet]; len(got) != 2 {
		t.Errorf("existing budgets rewritten: %v", got)
	}

	budgets, err := s.ListBudgets(context.Background())
	if err != nil {
		t.Fatalf("ListBudgets: %v", err)
	}
	if len(budgets) != 1 || budgets[0].ID != "b1" || budgets[0].Limit.String() != "500" {
		t.Errorf("budgets = %+v", budgets)
	}
}

func TestNewErrors(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Error("expected error without spreadsheet ID")
	}
	if _, err := New(context.Background(), Config{SpreadsheetID: "x"}); err == nil || !strings.Contains(err.Error(), "credentials") {
		t.Errorf("err = %v, want missing credentials", err)
	}
	if _, err := New(context.Background(), Config{SpreadsheetID: "x", CredentialsFile: t.TempDir() + "/missing.json"}); err == nil {
		t.Error("expected error for unreadable credentials file")
	}

	_, err := newTestStore(t, newFakeSheets(DefaultExpensesSheet), Config{})
	if err == nil || !strings.Contains(err.Error(), `no "Incomes" sheet`) {
		t.Errorf("err = %v, want missing sheet", err)
	}
}

func TestCorruptRow(t *testing.T) {
	fake := newFakeSheets(DefaultExpensesSheet, DefaultIncomesSheet, DefaultBudgetsSheet)
	fake.grids[DefaultExpensesSheet] = [][]string{
		{"ID", "Date", "Description", "Category", "Amount"},
		{"e1", "2025-01-10", "Lunch", "Food", "twelve"},
	}
	s, err := newTestStore(t, fake, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.ListExpenses(context.Background()); err == nil || !strings.Contains(err.Error(), "expense e1 amount") {
		t.Errorf("err = %v", err)
	}
}
