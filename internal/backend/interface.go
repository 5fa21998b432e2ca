package backend

import (
	"context"
	"time"

	"finclient/internal/amqp"
	"finclient/internal/api"
	"finclient/internal/cache"
	"finclient/internal/services"
	"finclient/internal/session"
	"finclient/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result is the wired client core: session, gateway, cache, service and
// the optional bus and report writer.
type Result struct {
	Session *session.Manager
	API     *api.Client
	Cache   *cache.QueryClient
	Finance *services.FinanceService
	Bus     *amqp.Client // nil when AMQP is disabled
	Reports sheets.ReportWriter
	Cleanup CleanupFunc
}

// Logout ends the session and drops everything cached for the old user.
func (r *Result) Logout(ctx context.Context) error {
	err := r.Session.Logout(ctx)
	r.Cache.Clear()
	return err
}

// Factory creates a client core based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for building the client core
type Config struct {
	APIBaseURL string
	APITimeout time.Duration

	// Session store
	SessionStore  SessionStoreType
	SessionFile   string
	SessionDBPath string

	CacheMaxEntries int
	Currency        string

	// AMQP, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export, optional
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

// SessionStoreType represents where the session is persisted
type SessionStoreType string

const (
	FileStore   SessionStoreType = "file"
	SQLiteStore SessionStoreType = "sqlite"
	MemoryStore SessionStoreType = "memory"
)

// String implements fmt.Stringer
func (st SessionStoreType) String() string {
	return string(st)
}

// IsValid returns true if the session store type is valid
func (st SessionStoreType) IsValid() bool {
	switch st {
	case FileStore, SQLiteStore, MemoryStore:
		return true
	default:
		return false
	}
}
