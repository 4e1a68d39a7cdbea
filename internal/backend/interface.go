// Package backend builds the record store selected by configuration and
// wraps it in the change-publishing record service.
package backend

import (
	"context"

	"expensetracker/internal/storage"
	"expensetracker/internal/storage/sheets"
)

type CleanupFunc func() error

// BackendResult is the ready store and the function that releases it.
type BackendResult struct {
	Store   storage.Store
	Cleanup CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	SQLiteDBPath string
	PostgresURL  string
	Sheets       sheets.Config

	// AMQP is optional for every backend.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	SheetsBackend   BackendType = "sheets"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend, SheetsBackend:
		return true
	}
	return false
}
