package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/storage"
	"expensetracker/internal/store"
	"expensetracker/internal/store/memory"
	"expensetracker/internal/store/query"
)

// StaticOwnerID identifies the owner registered for the static token.
const StaticOwnerID = "static-admin"

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		st  store.Store
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		st, err = f.createSQLiteStore(ctx, config)
	case MemoryBackend:
		st, err = f.createMemoryStore(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.StaticToken != "" {
		if err := registerStaticOwner(ctx, st, config.StaticToken); err != nil {
			_ = st.Close()
			return nil, err
		}
	}

	// Initialize AMQP client (optional)
	var events *amqp.Client
	if config.AMQPURL != "" {
		events, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
			events = nil
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	return &BackendResult{
		Store:  st,
		Events: events,
		Cleanup: func() error {
			var errs []error
			if events != nil {
				errs = append(errs, events.Close())
			}
			errs = append(errs, st.Close())
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) createSQLiteStore(ctx context.Context, config Config) (store.Store, error) {
	st, err := storage.NewSQLiteStore(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}
	if config.SeedFile != "" {
		if err := applySeed(ctx, st, config.SeedFile); err != nil {
			_ = st.Close()
			return nil, err
		}
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return st, nil
}

func (f *DefaultFactory) createMemoryStore(config Config) (store.Store, error) {
	if config.SeedFile == "" {
		f.logger.Info("Initialized empty memory backend")
		return memory.New(), nil
	}
	st, err := memory.NewFromFile(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory backend: %w", err)
	}
	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)
	return st, nil
}

// applySeed upserts seeded groups and owners. Seeded movements are only
// inserted into an empty store, so restarts do not duplicate them.
func applySeed(ctx context.Context, st store.Store, path string) error {
	seed, err := memory.ReadSeed(path)
	if err != nil {
		return err
	}
	for _, g := range seed.Groups {
		if err := st.SaveGroup(ctx, g); err != nil {
			return fmt.Errorf("seed group %s: %w", g.ID, err)
		}
	}
	for _, o := range seed.OwnerList() {
		if err := st.SaveOwner(ctx, o); err != nil {
			return fmt.Errorf("seed owner %s: %w", o.OwnerID, err)
		}
	}
	n, err := st.Count(ctx, query.New())
	if err != nil {
		return fmt.Errorf("count movements: %w", err)
	}
	if n > 0 {
		return nil
	}
	for _, m := range seed.Movements {
		if err := st.InsertOne(ctx, m); err != nil {
			return fmt.Errorf("seed movement %d: %w", m.TransactionID, err)
		}
	}
	return nil
}

// registerStaticOwner grants the static token admin rights over every
// group known at startup.
func registerStaticOwner(ctx context.Context, st store.Store, token string) error {
	groups, err := st.ListGroups(ctx)
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}
	scope := make([]string, 0, len(groups))
	for _, g := range groups {
		scope = append(scope, g.ID)
	}
	return st.SaveOwner(ctx, core.Owner{
		OwnerID:     StaticOwnerID,
		AccessToken: token,
		Scope:       scope,
		TokenType:   core.TokenAdmin,
	})
}
