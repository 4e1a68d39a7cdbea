package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"expensetracker/internal/amqp"
	"expensetracker/internal/config"
	"expensetracker/internal/core"
	"expensetracker/internal/services"
	"expensetracker/internal/storage/sheets"
)

type stubPublisher struct{ published int }

func (p *stubPublisher) PublishRecordChange(context.Context, *amqp.RecordChangedMessage) error {
	p.published++
	return nil
}

func (p *stubPublisher) Close() error { return nil }

func TestCreateBackend(t *testing.T) {
	tests := []struct {
		name string
		cfg  func(t *testing.T) Config
	}{
		{"memory", func(*testing.T) Config { return Config{Type: MemoryBackend} }},
		{"sqlite", func(t *testing.T) Config {
			return Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "test.db")}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewFactory(nil).CreateBackend(context.Background(), tt.cfg(t))
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			defer res.Cleanup()

			ctx := context.Background()
			if err := res.Store.Ping(ctx); err != nil {
				t.Errorf("Ping: %v", err)
			}
			e, err := res.Store.CreateExpense(ctx, core.Expense{Category: "Food", Amount: decimal.NewFromInt(3), Date: core.NewDate(2025, 3, 1)})
			if err != nil || e.ID == "" {
				t.Errorf("CreateExpense = %+v, %v", e, err)
			}
		})
	}
}

func TestCreateBackendInvalid(t *testing.T) {
	tests := []Config{
		{Type: "excel"},
		{Type: SQLiteBackend},
		{Type: PostgresBackend},
		{Type: SheetsBackend},
		// Passes validation but has no credentials to connect with.
		{Type: SheetsBackend, Sheets: sheets.Config{SpreadsheetID: "sheet-1"}},
	}
	for _, cfg := range tests {
		if _, err := NewFactory(nil).CreateBackend(context.Background(), cfg); err == nil {
			t.Errorf("CreateBackend(%+v) succeeded", cfg)
		}
	}
}

func TestCreateBackendWithPublisher(t *testing.T) {
	pub := &stubPublisher{}
	f := NewFactory(nil)
	f.dial = func(string, string, string) (services.Publisher, error) { return pub, nil }

	res, err := f.CreateBackend(context.Background(), Config{Type: MemoryBackend, AMQPURL: "amqp://localhost/", AMQPExchange: "x", AMQPQueue: "q"})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Cleanup()

	if _, err := res.Store.UpsertBudget(context.Background(), core.Budget{Category: "Food", Limit: decimal.NewFromInt(1)}); err != nil {
		t.Fatalf("UpsertBudget: %v", err)
	}
	if pub.published != 1 {
		t.Errorf("published = %d, want 1", pub.published)
	}
}

func TestCreateBackendBrokerDown(t *testing.T) {
	f := NewFactory(nil)
	f.dial = func(string, string, string) (services.Publisher, error) { return nil, errors.New("connection refused") }

	res, err := f.CreateBackend(context.Background(), Config{Type: MemoryBackend, AMQPURL: "amqp://localhost/"})
	if err != nil {
		t.Fatalf("broker failure must not fail startup: %v", err)
	}
	defer res.Cleanup()
	if _, err := res.Store.CreateIncome(context.Background(), core.Income{Amount: decimal.NewFromInt(1), Date: core.NewDate(2025, 1, 1)}); err != nil {
		t.Errorf("CreateIncome: %v", err)
	}
}

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{DataBackend: "postgres", PostgresURL: "postgres://x/y", AMQPURL: "amqp://a/"})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != PostgresBackend || cfg.PostgresURL != "postgres://x/y" || cfg.AMQPURL != "amqp://a/" {
		t.Errorf("cfg = %+v", cfg)
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Error("nil config accepted")
	}
	cfg, err = FromAppConfig(&config.Config{DataBackend: "sheets", GoogleSpreadsheetID: "s-1", SheetsBudgetsName: "Limits"})
	if err != nil {
		t.Fatalf("FromAppConfig sheets: %v", err)
	}
	if cfg.Sheets.SpreadsheetID != "s-1" || cfg.Sheets.BudgetsSheet != "Limits" {
		t.Errorf("sheets cfg = %+v", cfg.Sheets)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "excel"}); err == nil {
		t.Error("unknown backend accepted")
	}
}
