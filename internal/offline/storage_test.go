package offline

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"allocation-tracker/internal/storage"
)

func storages(t *testing.T) map[string]Storage {
	t.Helper()
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return map[string]Storage{
		"memory": NewMemoryStorage(),
		"sqlite": NewSQLiteStorage(db),
	}
}

func TestStorageRoundTrip(t *testing.T) {
	for name, s := range storages(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			cache, err := s.Open(ctx, "allocation-tracker-v2")
			require.NoError(t, err)

			_, ok, err := cache.Match(ctx, "http://localhost/app.js")
			require.NoError(t, err)
			assert.False(t, ok)

			stored := &Response{
				URL:      "http://localhost/app.js",
				Status:   http.StatusOK,
				Header:   http.Header{"Content-Type": {"application/javascript"}},
				Body:     []byte("console.log('hi')"),
				StoredAt: time.Now().UTC(),
			}
			require.NoError(t, cache.Put(ctx, stored))
			stored.Body[0] = 'X'

			got, ok, err := cache.Match(ctx, "http://localhost/app.js")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, http.StatusOK, got.Status)
			assert.Equal(t, "application/javascript", got.Header.Get("Content-Type"))
			assert.Equal(t, "console.log('hi')", string(got.Body))

			again, err := s.Open(ctx, "allocation-tracker-v2")
			require.NoError(t, err)
			keys, err := again.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"http://localhost/app.js"}, keys)
		})
	}
}

func TestStorageDelete(t *testing.T) {
	for name, s := range storages(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			old, err := s.Open(ctx, "allocation-tracker-v1")
			require.NoError(t, err)
			require.NoError(t, old.Put(ctx, &Response{URL: "http://localhost/", Status: 200, Header: http.Header{}}))
			_, err = s.Open(ctx, "allocation-tracker-v2")
			require.NoError(t, err)

			names, err := s.Names(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"allocation-tracker-v1", "allocation-tracker-v2"}, names)

			deleted, err := s.Delete(ctx, "allocation-tracker-v1")
			require.NoError(t, err)
			assert.True(t, deleted)
			deleted, err = s.Delete(ctx, "allocation-tracker-v1")
			require.NoError(t, err)
			assert.False(t, deleted)

			reopened, err := s.Open(ctx, "allocation-tracker-v1")
			require.NoError(t, err)
			keys, err := reopened.Keys(ctx)
			require.NoError(t, err)
			assert.Empty(t, keys)
		})
	}
}

func TestScript(t *testing.T) {
	js, err := Script("allocation-tracker-v2", nil, DefaultNetworkOnly)
	require.NoError(t, err)
	out := string(js)

	assert.Contains(t, out, `const CACHE_NAME = "allocation-tracker-v2";`)
	assert.Contains(t, out, `["","index.html","styles.css","app.js","manifest.json","icon-192.png","icon-512.png"]`)
	assert.Contains(t, out, `const NETWORK_ONLY = ["/ui/","/api/","/healthz","/readyz","/metrics"];`)
	assert.Contains(t, out, "self.skipWaiting()")
	assert.Contains(t, out, "self.clients.claim()")
	assert.False(t, strings.Contains(out, "{{"))
}
