package backend

import (
	"context"
	"errors"
	"fmt"

	"finclient/internal/amqp"
	"finclient/internal/api"
	"finclient/internal/cache"
	"finclient/internal/log"
	"finclient/internal/services"
	"finclient/internal/session"
	"finclient/internal/sheets"
	gsheet "finclient/internal/sheets/google"
	"finclient/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	root   *log.Logger
	logger *log.Logger
}

// NewFactory creates a new factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Default()
	}
	return &DefaultFactory{
		root:   logger,
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// Create wires the session store, gateway, cache, finance service and the
// optional bus and report writer, then restores the persisted session.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.createStore(config)
	if err != nil {
		return nil, err
	}

	// The manager is the gateway's token store and the gateway is the
	// manager's authenticator.
	manager := session.NewManager(store, nil, session.WithLogger(f.root))
	client := api.New(config.APIBaseURL, manager,
		api.WithLogger(f.root),
		api.WithTimeout(config.APITimeout))
	manager.SetAuthenticator(client)

	if err := manager.Restore(ctx); err != nil {
		manager.Close()
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}

	qc := cache.NewQueryClient(
		cache.WithMaxEntries(config.CacheMaxEntries),
		cache.WithLogger(f.root))

	opts := []services.Option{
		services.WithLogger(f.root),
		services.WithCurrency(config.Currency),
	}

	// Initialize AMQP client (optional)
	var bus *amqp.Client
	if config.AMQPURL != "" {
		bus, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, amqp.WithLogger(f.root))
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing with local invalidation only",
				log.FieldError, err)
			bus = nil
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue,
				"origin", bus.Origin())
			opts = append(opts, services.WithPublisher(bus))
		}
	}

	reports, err := f.createReportWriter(ctx, config)
	if err != nil {
		if bus != nil {
			bus.Close()
		}
		qc.Close()
		manager.Close()
		return nil, err
	}

	finance := services.NewFinanceService(client, qc, opts...)

	f.logger.Info("Initialized client core",
		"api", client.BaseURL(),
		"session_store", config.SessionStore,
		"authenticated", manager.IsAuthenticated(),
		"amqp_enabled", bus != nil)

	cleanup := func() error {
		qc.Close()
		var errs []error
		if bus != nil {
			errs = append(errs, bus.Close())
		}
		errs = append(errs, manager.Close())
		return errors.Join(errs...)
	}

	return &Result{
		Session: manager,
		API:     client,
		Cache:   qc,
		Finance: finance,
		Bus:     bus,
		Reports: reports,
		Cleanup: cleanup,
	}, nil
}

func (f *DefaultFactory) createStore(config Config) (session.Store, error) {
	switch config.SessionStore {
	case FileStore:
		store, err := session.NewFileStore(config.SessionFile)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file session store: %w", err)
		}
		f.logger.Info("Initialized file session store", "path", config.SessionFile)
		return store, nil
	case SQLiteStore:
		store, err := session.NewSQLiteStore(config.SessionDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite session store: %w", err)
		}
		f.logger.Info("Initialized SQLite session store", "db_path", config.SessionDBPath)
		return store, nil
	case MemoryStore:
		return session.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported session store: %s", config.SessionStore)
	}
}

func (f *DefaultFactory) createReportWriter(ctx context.Context, config Config) (sheets.ReportWriter, error) {
	if config.GoogleSpreadsheetID == "" {
		return memory.New(), nil
	}

	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	}, f.root)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets export", "sheet", config.GoogleSheetName)
	return cli, nil
}
