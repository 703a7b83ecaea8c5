package backend

import (
	"context"

	"allocation-tracker/internal/offline"
	"allocation-tracker/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the ledger store and optional cleanup function
type BackendResult struct {
	Store   storage.Store
	Cleanup CleanupFunc
}

// CacheResult contains the offline cache storage and optional cleanup function
type CacheResult struct {
	Storage offline.Storage
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates the ledger store selected by config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreateCacheStorage creates the offline cache storage selected by config
	CreateCacheStorage(ctx context.Context, config Config) (*CacheResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// MongoDB specific
	MongoURI      string
	MongoDatabase string

	// PostgreSQL specific
	PostgresURL string

	// Memory backend specific: <DataDirectory>/<key>.json files preload the store
	DataDirectory string
	MemoryKeys    []string

	// Offline cache
	CacheBackend CacheBackendType
	CacheDBPath  string
}

// BackendType represents the type of ledger backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	MemoryBackend   BackendType = "memory"
	MongoBackend    BackendType = "mongo"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend, MongoBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// CacheBackendType selects where offline cache namespaces live
type CacheBackendType string

const (
	CacheMemory CacheBackendType = "memory"
	CacheSQLite CacheBackendType = "sqlite"
)

func (ct CacheBackendType) IsValid() bool {
	return ct == CacheMemory || ct == CacheSQLite
}
