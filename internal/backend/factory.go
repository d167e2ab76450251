package backend

import (
	"context"
	"fmt"

	"cinecalc/internal/amqp"
	applog "cinecalc/internal/log"
	"cinecalc/internal/services"
	"cinecalc/internal/storage"
	"cinecalc/internal/storage/memory"
)

// store is what every backend provides.
type store interface {
	storage.ExpenseStore
	storage.EventLog
}

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentStorage),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	st, err := f.openStore(config)
	if err != nil {
		return nil, err
	}

	// Events are optional: a broker that is down at startup leaves the
	// service running without them.
	var (
		client    *amqp.Client
		publisher services.EventPublisher
	)
	if config.AMQPURL != "" {
		client, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
			client = nil
		} else {
			publisher = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	svc := services.NewExpenseService(st, publisher)

	f.logger.InfoContext(ctx, "Initialized backend",
		"backend", config.Type,
		"events_enabled", client != nil)

	return &BackendResult{
		Store:     st,
		Events:    st,
		Publisher: client,
		Service:   svc,
		Cleanup:   svc.Close,
	}, nil
}

func (f *DefaultFactory) openStore(config Config) (store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Opened SQLite database", "db_path", config.SQLiteDBPath)
		return repo, nil
	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.Info("Opened Postgres database")
		return repo, nil
	case MemoryBackend:
		f.logger.Info("Using in-memory store; data is lost on exit")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
