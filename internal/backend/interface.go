package backend

import (
	"context"

	"ledger/internal/amqp"
	"ledger/internal/sheets"
	"ledger/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Factory opens the external resources a ledger process depends on.
type Factory interface {
	// OpenStore opens and migrates the configured database.
	OpenStore(ctx context.Context, config Config) (*storage.Store, CleanupFunc, error)
	// OpenEvents dials the broker. It returns a nil client when events
	// are disabled.
	OpenEvents(ctx context.Context, config Config) (*amqp.Client, CleanupFunc, error)
	// OpenSink returns the Google Sheets sink when a spreadsheet is
	// configured and the in-memory sink otherwise.
	OpenSink(ctx context.Context, config Config) (sheets.ExportSink, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// MemorySinkRows bounds the in-memory export sink.
	MemorySinkRows int
}

// BackendType names the storage engine.
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
