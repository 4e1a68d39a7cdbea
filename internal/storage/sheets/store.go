// Package sheets stores records in a Google Sheets spreadsheet, one tab per
// record kind with a header row. Values are written RAW so amounts and dates
// round-trip as text.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

var _ storage.Store = (*Store)(nil)

const (
	DefaultExpensesSheet = "Expenses"
	DefaultIncomesSheet  = "Incomes"
	DefaultBudgetsSheet  = "Budgets"
)

type Config struct {
	SpreadsheetID string
	// CredentialsJSON takes precedence over CredentialsFile. Both hold a
	// service account key.
	CredentialsJSON string
	CredentialsFile string

	ExpensesSheet string
	IncomesSheet  string
	BudgetsSheet  string
}

type tab struct {
	title   string
	header  []string
	sheetID int64
}

func (t *tab) lastColumn() string {
	return string(rune('A' + len(t.header) - 1))
}

// a1 quotes the tab title so names with spaces are valid ranges.
func (t *tab) a1(cells string) string {
	return "'" + strings.ReplaceAll(t.title, "'", "''") + "'!" + cells
}

type Store struct {
	svc           *gsheet.Service
	spreadsheetID string

	// mu serializes writes: rows are addressed by position, so a lookup and
	// the write that follows must not interleave with another write.
	mu       sync.Mutex
	expenses tab
	incomes  tab
	budgets  tab
}

// New connects to the spreadsheet, checks that the three tabs exist and
// writes missing header rows. Extra options are applied last, so tests can
// point the client at a fake server.
func New(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Store, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}

	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	if creds == nil && len(opts) == 0 {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	all := []option.ClientOption{option.WithScopes(gsheet.SpreadsheetsScope)}
	if creds != nil {
		all = append(all, option.WithCredentialsJSON(creds))
	}
	svc, err := gsheet.NewService(ctx, append(all, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	s := &Store{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		expenses:      tab{title: orDefault(cfg.ExpensesSheet, DefaultExpensesSheet), header: []string{"ID", "Date", "Description", "Category", "Amount"}},
		incomes:       tab{title: orDefault(cfg.IncomesSheet, DefaultIncomesSheet), header: []string{"ID", "Date", "Source", "Amount"}},
		budgets:       tab{title: orDefault(cfg.BudgetsSheet, DefaultBudgetsSheet), header: []string{"ID", "Category", "Limit"}},
	}
	if err := s.resolveTabs(ctx); err != nil {
		return nil, err
	}
	for _, t := range s.tabs() {
		if err := s.ensureHeader(ctx, t); err != nil {
			return nil, err
		}
	}
	slog.InfoContext(ctx, "Google Sheets store ready", "spreadsheet_id", cfg.SpreadsheetID)
	return s, nil
}

func credentials(cfg Config) ([]byte, error) {
	if js := strings.TrimSpace(cfg.CredentialsJSON); js != "" {
		return []byte(js), nil
	}
	if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

func (s *Store) tabs() []*tab { return []*tab{&s.expenses, &s.incomes, &s.budgets} }

func (s *Store) resolveTabs(ctx context.Context) error {
	resp, err := s.svc.Spreadsheets.Get(s.spreadsheetID).
		Fields("sheets.properties(sheetId,title)").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet %s: %w", s.spreadsheetID, err)
	}
	ids := make(map[string]int64, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh != nil && sh.Properties != nil {
			ids[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	for _, t := range s.tabs() {
		id, ok := ids[t.title]
		if !ok {
			return fmt.Errorf("spreadsheet has no %q sheet", t.title)
		}
		t.sheetID = id
	}
	return nil
}

func (s *Store) ensureHeader(ctx context.Context, t *tab) error {
	rng := t.a1("A1:" + t.lastColumn() + "1")
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) > 0 {
		return nil
	}
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{toAny(t.header)}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header %s: %w", rng, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	return err
}

func (s *Store) Close() error { return nil }

// rows returns every data row of t, each padded to the header width.
func (s *Store) rows(ctx context.Context, t *tab) ([][]string, error) {
	rng := t.a1("A2:" + t.lastColumn())
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(t.header))
		for i := 0; i < len(raw) && i < len(row); i++ {
			row[i] = strings.TrimSpace(fmt.Sprint(raw[i]))
		}
		out = append(out, row)
	}
	return out, nil
}

// find returns the sheet row number whose column col equals value, or 0.
func (s *Store) find(ctx context.Context, t *tab, col int, value string) (int, error) {
	rows, err := s.rows(ctx, t)
	if err != nil {
		return 0, err
	}
	for i, row := range rows {
		if row[col] == value {
			return i + 2, nil
		}
	}
	return 0, nil
}

func (s *Store) appendRow(ctx context.Context, t *tab, row []string) error {
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, t.a1("A:"+t.lastColumn()), &gsheet.ValueRange{Values: [][]any{toAny(row)}}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", t.title, err)
	}
	return nil
}

func (s *Store) writeRow(ctx context.Context, t *tab, n int, row []string) error {
	rng := t.a1(fmt.Sprintf("A%d:%s%d", n, t.lastColumn(), n))
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{toAny(row)}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", rng, err)
	}
	return nil
}

func (s *Store) deleteRow(ctx context.Context, t *tab, n int) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:    t.sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(n - 1),
			EndIndex:   int64(n),
		}},
	}}}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d of %s: %w", n, t.title, err)
	}
	return nil
}

// insert appends row unless a row with the same ID exists.
func (s *Store) insert(ctx context.Context, t *tab, kind string, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.find(ctx, t, 0, row[0])
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%s %s already exists", kind, row[0])
	}
	return s.appendRow(ctx, t, row)
}

func (s *Store) replace(ctx context.Context, t *tab, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.find(ctx, t, 0, row[0])
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return s.writeRow(ctx, t, n, row)
}

func (s *Store) remove(ctx context.Context, t *tab, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.find(ctx, t, 0, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return s.deleteRow(ctx, t, n)
}

// Expenses

func expenseRow(e core.Expense) []string {
	return []string{e.ID, formatDate(e.Date), e.Description, e.Category, e.Amount.String()}
}

func (s *Store) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := s.rows(ctx, &s.expenses)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		if row[0] == "" {
			continue
		}
		e := core.Expense{ID: row[0], Description: row[2], Category: row[3]}
		if e.Date, err = parseDate(row[1]); err != nil {
			return nil, fmt.Errorf("expense %s date: %w", e.ID, err)
		}
		if e.Amount, err = decimal.NewFromString(row[4]); err != nil {
			return nil, fmt.Errorf("expense %s amount: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := s.insert(ctx, &s.expenses, "expense", expenseRow(e)); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return e, nil
}

func (s *Store) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := s.replace(ctx, &s.expenses, expenseRow(e)); err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	return e, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	if err := s.remove(ctx, &s.expenses, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

// Incomes

func incomeRow(in core.Income) []string {
	return []string{in.ID, formatDate(in.Date), in.Source, in.Amount.String()}
}

func (s *Store) ListIncomes(ctx context.Context) ([]core.Income, error) {
	rows, err := s.rows(ctx, &s.incomes)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	out := make([]core.Income, 0, len(rows))
	for _, row := range rows {
		if row[0] == "" {
			continue
		}
		in := core.Income{ID: row[0], Source: row[2]}
		if in.Date, err = parseDate(row[1]); err != nil {
			return nil, fmt.Errorf("income %s date: %w", in.ID, err)
		}
		if in.Amount, err = decimal.NewFromString(row[3]); err != nil {
			return nil, fmt.Errorf("income %s amount: %w", in.ID, err)
		}
		out = append(out, in)
	}
	return out, nil
}

func (s *Store) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}
	if err := s.insert(ctx, &s.incomes, "income", incomeRow(in)); err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", err)
	}
	return in, nil
}

func (s *Store) UpdateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}
	if err := s.replace(ctx, &s.incomes, incomeRow(in)); err != nil {
		return core.Income{}, fmt.Errorf("update income: %w", err)
	}
	return in, nil
}

func (s *Store) DeleteIncome(ctx context.Context, id string) error {
	if err := s.remove(ctx, &s.incomes, id); err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	return nil
}

// Budgets

const budgetCategoryCol = 1

func budgetRow(b core.Budget) []string {
	return []string{b.ID, b.Category, b.Limit.String()}
}

func (s *Store) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := s.rows(ctx, &s.budgets)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.Budget, 0, len(rows))
	for _, row := range rows {
		if row[0] == "" {
			continue
		}
		b := core.Budget{ID: row[0], Category: row[1]}
		if b.Limit, err = decimal.NewFromString(row[2]); err != nil {
			return nil, fmt.Errorf("budget %s limit: %w", b.ID, err)
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *Store) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.rows(ctx, &s.budgets)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	for i, row := range rows {
		if row[0] != "" && row[budgetCategoryCol] == b.Category {
			b.ID = row[0]
			if err := s.writeRow(ctx, &s.budgets, i+2, budgetRow(b)); err != nil {
				return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
			}
			return b, nil
		}
	}
	if err := s.appendRow(ctx, &s.budgets, budgetRow(b)); err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	return b, nil
}

func (s *Store) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.rows(ctx, &s.budgets)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	target := 0
	for i, row := range rows {
		switch {
		case row[0] == b.ID:
			target = i + 2
		case row[0] != "" && row[budgetCategoryCol] == b.Category:
			return core.Budget{}, fmt.Errorf("update budget: budget for %q already exists", b.Category)
		}
	}
	if target == 0 {
		return core.Budget{}, fmt.Errorf("update budget: %w", storage.ErrNotFound)
	}
	if err := s.writeRow(ctx, &s.budgets, target, budgetRow(b)); err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	return b, nil
}

func (s *Store) DeleteBudget(ctx context.Context, id string) error {
	if err := s.remove(ctx, &s.budgets, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

func toAny(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

func formatDate(d core.Date) string {
	return d.UTC().Format(time.RFC3339Nano)
}

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		if d, derr := core.ParseDate(s); derr == nil {
			return d, nil
		}
		return core.Date{}, errors.Join(core.ErrInvalidDate, err)
	}
	return core.Date{Time: t}, nil
}
