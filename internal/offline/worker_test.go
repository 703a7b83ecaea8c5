package offline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"allocation-tracker/internal/log"
)

// shell serves a fixed set of paths and counts requests per path.
type shell struct {
	mu    sync.Mutex
	files map[string]string
	hits  map[string]int
}

func newShell() *shell {
	s := &shell{files: map[string]string{}, hits: map[string]int{}}
	for _, u := range NewManifest("/sw.js", nil).URLs {
		s.files[u] = "content of " + u
	}
	return s
}

func (s *shell) set(path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = body
}

func (s *shell) count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *shell) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	body, ok := s.files[r.URL.Path]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprint(w, body)
}

func newWorker(t *testing.T, storage Storage, origin string, version string) *Worker {
	t.Helper()
	u, err := url.Parse(origin)
	require.NoError(t, err)
	w, err := New(storage, http.DefaultClient, Config{
		Prefix:  "allocation-tracker",
		Version: version,
		Origin:  u,
		Logger:  log.Discard(),
	})
	require.NoError(t, err)
	return w
}

func TestManifestBasePath(t *testing.T) {
	tests := []struct {
		script string
		base   string
	}{
		{"/sw.js", "/"},
		{"/tracker/sw.js", "/tracker/"},
		{"/a/b/worker.js", "/a/b/"},
		{"sw.js", "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.base, BasePath(tt.script), tt.script)
	}

	m := NewManifest("/tracker/sw.js", nil)
	assert.Equal(t, []string{
		"/tracker/",
		"/tracker/index.html",
		"/tracker/styles.css",
		"/tracker/app.js",
		"/tracker/manifest.json",
		"/tracker/icon-192.png",
		"/tracker/icon-512.png",
	}, m.URLs)
	assert.True(t, m.Contains("/tracker/app.js"))
	assert.False(t, m.Contains("/app.js"))
}

func TestInstallCachesManifest(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(newShell())
	defer srv.Close()

	storage := NewMemoryStorage()
	w := newWorker(t, storage, srv.URL, "v2")
	require.NoError(t, w.Install(ctx))
	assert.Equal(t, StateInstalled, w.State())

	cache, err := storage.Open(ctx, "allocation-tracker-v2")
	require.NoError(t, err)
	keys, err := cache.Keys(ctx)
	require.NoError(t, err)

	var want []string
	for _, u := range w.Manifest().URLs {
		want = append(want, srv.URL+u)
	}
	assert.ElementsMatch(t, want, keys)
}

func TestInstallIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	sh := newShell()
	delete(sh.files, "/icon-512.png")
	srv := httptest.NewServer(sh)
	defer srv.Close()

	storage := NewMemoryStorage()
	w := newWorker(t, storage, srv.URL, "v2")
	err := w.Install(ctx)
	require.Error(t, err)
	assert.Equal(t, StateRedundant, w.State())

	names, err := storage.Names(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	assert.ErrorIs(t, w.Activate(ctx), ErrInvalidState)
}

func TestActivateDeletesOldNamespaces(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(newShell())
	defer srv.Close()

	storage := NewMemoryStorage()
	_, err := storage.Open(ctx, "allocation-tracker-v1")
	require.NoError(t, err)
	_, err = storage.Open(ctx, "unrelated")
	require.NoError(t, err)

	w := newWorker(t, storage, srv.URL, "v2")
	require.NoError(t, w.Install(ctx))
	require.NoError(t, w.Activate(ctx))

	assert.Equal(t, StateActive, w.State())
	assert.True(t, w.Controlling())
	names, err := storage.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"allocation-tracker-v2"}, names)
}

func activeWorker(t *testing.T, storage Storage, srv *httptest.Server) *Worker {
	t.Helper()
	w := newWorker(t, storage, srv.URL, "v2")
	require.NoError(t, w.Install(context.Background()))
	require.NoError(t, w.Activate(context.Background()))
	return w
}

func get(t *testing.T, target string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)
	return req
}

func TestFetchServesCacheUnmodified(t *testing.T) {
	sh := newShell()
	srv := httptest.NewServer(sh)
	defer srv.Close()
	w := activeWorker(t, NewMemoryStorage(), srv)

	sh.set("/styles.css", "changed on the server")
	resp, err := w.Fetch(context.Background(), get(t, "/styles.css"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "content of /styles.css", string(resp.Body))
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	assert.Equal(t, 1, sh.count("/styles.css"), "only the install fetch reaches the network")
}

func TestFetchMissStoresCacheable(t *testing.T) {
	ctx := context.Background()
	sh := newShell()
	sh.set("/data.json", `{"ok":true}`)
	srv := httptest.NewServer(sh)
	defer srv.Close()
	storage := NewMemoryStorage()
	w := activeWorker(t, storage, srv)

	resp, err := w.Fetch(ctx, get(t, "/data.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(resp.Body))

	_, err = w.Fetch(ctx, get(t, "/data.json"))
	require.NoError(t, err)
	assert.Equal(t, 1, sh.count("/data.json"))

	cache, _ := storage.Open(ctx, w.CacheName())
	_, ok, err := cache.Match(ctx, srv.URL+"/data.json")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFetchDoesNotCacheErrorsOrOtherOrigins(t *testing.T) {
	ctx := context.Background()
	other := newShell()
	other.set("/lib.js", "third party")
	otherSrv := httptest.NewServer(other)
	defer otherSrv.Close()
	sh := newShell()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/cdn/lib.js" {
			http.Redirect(w, r, otherSrv.URL+"/lib.js", http.StatusFound)
			return
		}
		sh.ServeHTTP(w, r)
	}))
	defer srv.Close()

	storage := NewMemoryStorage()
	w := activeWorker(t, storage, srv)

	resp, err := w.Fetch(ctx, get(t, "/missing"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)

	resp, err = w.Fetch(ctx, get(t, otherSrv.URL+"/lib.js"))
	require.NoError(t, err)
	assert.Equal(t, "third party", string(resp.Body))

	// a same-origin path that redirects elsewhere is served but not stored
	resp, err = w.Fetch(ctx, get(t, "/cdn/lib.js"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "third party", string(resp.Body))
	_, err = w.Fetch(ctx, get(t, "/cdn/lib.js"))
	require.NoError(t, err)
	assert.Equal(t, 3, other.count("/lib.js"), "redirected responses always go to the network")

	cache, _ := storage.Open(ctx, w.CacheName())
	keys, err := cache.Keys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, len(w.Manifest().URLs))
	assert.NotContains(t, keys, srv.URL+"/missing")
	assert.NotContains(t, keys, otherSrv.URL+"/lib.js")
	assert.NotContains(t, keys, srv.URL+"/cdn/lib.js")
}

func TestFetchRejectsOversizedBodies(t *testing.T) {
	ctx := context.Background()
	sh := newShell()
	sh.set("/big.bin", strings.Repeat("x", 2048))
	sh.set("/small.txt", "ok")
	srv := httptest.NewServer(sh)
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	w, err := New(NewMemoryStorage(), http.DefaultClient, Config{
		Prefix:       "allocation-tracker",
		Version:      "v2",
		Origin:       u,
		MaxBodyBytes: 1024,
		Logger:       log.Discard(),
	})
	require.NoError(t, err)
	require.NoError(t, w.Install(ctx))
	require.NoError(t, w.Activate(ctx))

	_, err = w.Fetch(ctx, get(t, "/big.bin"))
	assert.ErrorIs(t, err, ErrBodyTooLarge)

	resp, err := w.Fetch(ctx, get(t, "/small.txt"))
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Body))
}

func TestFetchFailsWhenCacheAndNetworkFail(t *testing.T) {
	sh := newShell()
	srv := httptest.NewServer(sh)
	w := activeWorker(t, NewMemoryStorage(), srv)
	srv.Close()

	_, err := w.Fetch(context.Background(), get(t, "/not-cached"))
	assert.Error(t, err)

	// the shell still loads offline
	resp, err := w.Fetch(context.Background(), get(t, "/index.html"))
	require.NoError(t, err)
	assert.Equal(t, "content of /index.html", string(resp.Body))
}

func TestFetchRequiresActiveWorker(t *testing.T) {
	w := newWorker(t, NewMemoryStorage(), "http://localhost:1", "v2")
	_, err := w.Fetch(context.Background(), get(t, "/"))
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestServeHTTP(t *testing.T) {
	sh := newShell()
	srv := httptest.NewServer(sh)
	w := activeWorker(t, NewMemoryStorage(), srv)
	srv.Close()

	rec := httptest.NewRecorder()
	w.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "content of /app.js", rec.Body.String())

	rec = httptest.NewRecorder()
	w.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/offline-only", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRegistrationRetiresPreviousVersion(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(newShell())
	defer srv.Close()
	storage := NewMemoryStorage()

	var reg Registration
	v1 := newWorker(t, storage, srv.URL, "v1")
	require.NoError(t, reg.Register(ctx, v1))
	assert.Same(t, v1, reg.Active())

	v2 := newWorker(t, storage, srv.URL, "v2")
	require.NoError(t, reg.Register(ctx, v2))
	assert.Same(t, v2, reg.Active())
	assert.Equal(t, StateRedundant, v1.State())
	assert.False(t, v1.Controlling())

	names, err := storage.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"allocation-tracker-v2"}, names)
}

func TestRegistrationKeepsWorkerWhenInstallFails(t *testing.T) {
	ctx := context.Background()
	sh := newShell()
	srv := httptest.NewServer(sh)
	defer srv.Close()
	storage := NewMemoryStorage()

	var reg Registration
	v1 := newWorker(t, storage, srv.URL, "v1")
	require.NoError(t, reg.Register(ctx, v1))

	delete(sh.files, "/manifest.json")
	v2 := newWorker(t, storage, srv.URL, "v2")
	require.Error(t, reg.Register(ctx, v2))

	assert.Same(t, v1, reg.Active())
	assert.Equal(t, StateActive, v1.State())
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(NewMemoryStorage(), nil, Config{Version: "v2", Origin: &url.URL{Scheme: "http", Host: "x"}})
	assert.ErrorIs(t, err, ErrNamespaceNeeded)

	_, err = New(NewMemoryStorage(), nil, Config{Prefix: "p", Version: "v2", Origin: &url.URL{Path: "/"}})
	assert.ErrorIs(t, err, ErrNoOrigin)
}

func TestNewDefaults(t *testing.T) {
	w, err := New(NewMemoryStorage(), nil, Config{Prefix: "p", Version: "v2", Origin: &url.URL{Scheme: "http", Host: "x"}})
	require.NoError(t, err)

	client, ok := w.fetcher.(*http.Client)
	require.True(t, ok)
	assert.Zero(t, client.Timeout, "fetches are bounded by the caller's context only")
	assert.Equal(t, DefaultMaxBodyBytes, w.cfg.MaxBodyBytes)
}
