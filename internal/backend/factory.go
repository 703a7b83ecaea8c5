package backend

import (
	"context"
	"fmt"

	"allocation-tracker/internal/log"
	"allocation-tracker/internal/offline"
	"allocation-tracker/internal/storage"
	"allocation-tracker/internal/storage/memory"
	"allocation-tracker/internal/storage/mongo"
	"allocation-tracker/internal/storage/postgres"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	case MongoBackend:
		return f.createMongoBackend(ctx, config)
	case PostgresBackend:
		return f.createPostgresBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	store, err := storage.NewSQLiteStore(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	store := memory.NewFromFiles(dataDir, config.MemoryKeys...)

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	return &BackendResult{Store: store}, nil
}

func (f *DefaultFactory) createMongoBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := mongo.Connect(ctx, config.MongoURI, config.MongoDatabase)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB store: %w", err)
	}

	f.logger.Info("Initialized MongoDB backend", "database", config.MongoDatabase)
	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := postgres.Connect(ctx, config.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL store: %w", err)
	}

	f.logger.Info("Initialized PostgreSQL backend")
	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}

// CreateCacheStorage implements Factory.CreateCacheStorage
func (f *DefaultFactory) CreateCacheStorage(_ context.Context, config Config) (*CacheResult, error) {
	switch config.CacheBackend {
	case CacheSQLite:
		if config.CacheDBPath == "" {
			return nil, fmt.Errorf("cache database path is required for sqlite cache backend")
		}
		db, err := storage.OpenSQLite(config.CacheDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache database: %w", err)
		}
		f.logger.Info("Initialized SQLite offline cache", "db_path", config.CacheDBPath)
		return &CacheResult{Storage: offline.NewSQLiteStorage(db), Cleanup: db.Close}, nil
	case CacheMemory, "":
		f.logger.Info("Initialized in-memory offline cache")
		return &CacheResult{Storage: offline.NewMemoryStorage()}, nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", config.CacheBackend)
	}
}
