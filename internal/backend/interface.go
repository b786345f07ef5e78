package backend

import (
	"context"

	"expensetracker/internal/auth"
	"expensetracker/internal/services"
)

// Store is everything the API needs from persistence: owner-scoped
// transactions, user accounts and a liveness probe.
type Store interface {
	services.TransactionStore
	auth.UserStore
	Ping(ctx context.Context) error
	Close() error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the store, the optional event publisher and the
// function releasing both. Publisher is a nil interface when events are off.
type BackendResult struct {
	Store     Store
	Publisher services.EventPublisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Events, off when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	// AMQPAttempts bounds the connection retries at startup.
	AMQPAttempts int
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
