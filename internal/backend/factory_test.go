package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"allocation-tracker/internal/config"
	"allocation-tracker/internal/log"
)

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(log.Discard())

	t.Run("memory preloads files", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "allocationData.json"), []byte(`{"hp":[]}`), 0644); err != nil {
			t.Fatal(err)
		}
		res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend, DataDirectory: dir, MemoryKeys: []string{"allocationData"}})
		if err != nil {
			t.Fatalf("CreateBackend() error = %v", err)
		}
		got, err := res.Store.Get(ctx, "allocationData")
		if err != nil || string(got) != `{"hp":[]}` {
			t.Errorf("Get() = %q, %v", got, err)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "ledger.db")})
		if err != nil {
			t.Fatalf("CreateBackend() error = %v", err)
		}
		defer res.Cleanup()
		if err := res.Store.Ping(ctx); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, cfg := range []Config{
			{Type: "sheets"},
			{Type: SQLiteBackend},
			{Type: MongoBackend},
			{Type: PostgresBackend},
		} {
			if _, err := f.CreateBackend(ctx, cfg); err == nil {
				t.Errorf("CreateBackend(%+v) expected error", cfg)
			}
		}
	})
}

func TestCreateCacheStorage(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(log.Discard())

	mem, err := f.CreateCacheStorage(ctx, Config{CacheBackend: CacheMemory})
	if err != nil || mem.Storage == nil {
		t.Fatalf("memory cache: %v", err)
	}

	res, err := f.CreateCacheStorage(ctx, Config{CacheBackend: CacheSQLite, CacheDBPath: filepath.Join(t.TempDir(), "cache.db")})
	if err != nil {
		t.Fatalf("sqlite cache: %v", err)
	}
	defer res.Cleanup()
	if _, err := res.Storage.Open(ctx, "allocation-tracker-v2"); err != nil {
		t.Errorf("Open() error = %v", err)
	}
}

func TestFromAppConfig(t *testing.T) {
	app := &config.Config{DataBackend: "postgres", PostgresURL: "postgres://localhost/ledger", CacheBackend: "sqlite", CacheDBPath: "cache.db"}
	cfg, err := FromAppConfig(app, "allocationData")
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != PostgresBackend || cfg.CacheBackend != CacheSQLite || cfg.MemoryKeys[0] != "allocationData" {
		t.Errorf("unexpected config: %+v", cfg)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets", CacheBackend: "memory"}); err == nil {
		t.Error("expected error for unsupported backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}
