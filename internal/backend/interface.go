// Package backend builds the storage and event plumbing selected by
// configuration.
package backend

import (
	"context"

	"cinecalc/internal/amqp"
	"cinecalc/internal/services"
	"cinecalc/internal/storage"
)

// BackendType names a storage implementation.
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (t BackendType) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	}
	return false
}

func (t BackendType) String() string {
	return string(t)
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds everything built for one backend. Publisher is nil
// when change events are disabled.
type BackendResult struct {
	Store     storage.ExpenseStore
	Events    storage.EventLog
	Publisher *amqp.Client
	Service   *services.ExpenseService
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string

	// Empty AMQPURL disables event publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}
