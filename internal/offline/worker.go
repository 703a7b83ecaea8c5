// Package offline implements a cache-first offline worker: a versioned set of
// cached responses that is populated on install, pruned on activation and
// consulted before the network on every fetch.
package offline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"allocation-tracker/internal/log"
)

type State string

const (
	StateNew        State = "new"
	StateInstalling State = "installing"
	StateInstalled  State = "installed"
	StateActivating State = "activating"
	StateActive     State = "active"
	StateRedundant  State = "redundant"
)

var (
	ErrNotActive       = errors.New("offline worker is not active")
	ErrInvalidState    = errors.New("invalid worker state transition")
	ErrNoOrigin        = errors.New("offline worker needs an absolute origin")
	ErrNamespaceNeeded = errors.New("cache prefix and version are required")
	ErrBodyTooLarge    = errors.New("response body exceeds limit")
)

// DefaultMaxBodyBytes caps each buffered network response.
const DefaultMaxBodyBytes int64 = 32 << 20

// Fetcher performs network requests. *http.Client satisfies it.
type Fetcher interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetch outcomes reported to Metrics.
const (
	OutcomeHit      = "hit"
	OutcomeStored   = "miss_stored"
	OutcomeUncached = "miss_uncached"
	OutcomeError    = "error"
)

// Metrics receives one observation per Fetch.
type Metrics interface {
	ObserveFetch(namespace, outcome string)
}

type Config struct {
	Prefix  string
	Version string
	// Origin is the scheme://host the shell is fetched from.
	Origin *url.URL
	// ScriptPath locates the worker; the manifest is resolved against its directory.
	ScriptPath string
	Assets     []string
	// Policy defaults to DefaultPolicy(Origin).
	Policy *Policy
	// Concurrency bounds install pre-fetching.
	Concurrency int
	// MaxBodyBytes caps each buffered response; larger bodies fail the fetch.
	MaxBodyBytes int64
	Logger       *log.Logger
	Metrics      Metrics
}

// Worker is one version of the offline cache.
type Worker struct {
	cfg      Config
	storage  Storage
	fetcher  Fetcher
	manifest Manifest
	policy   Policy
	logger   *log.Logger

	mu          sync.RWMutex
	state       State
	cache       Cache
	controlling bool
}

func New(storage Storage, fetcher Fetcher, cfg Config) (*Worker, error) {
	if cfg.Prefix == "" || cfg.Version == "" {
		return nil, ErrNamespaceNeeded
	}
	if cfg.Origin == nil || cfg.Origin.Scheme == "" || cfg.Origin.Host == "" {
		return nil, ErrNoOrigin
	}
	if cfg.ScriptPath == "" {
		cfg.ScriptPath = "/sw.js"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	// requests are bounded by the caller's context only
	if fetcher == nil {
		fetcher = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	policy := DefaultPolicy(cfg.Origin)
	if cfg.Policy != nil {
		policy = *cfg.Policy
	}

	w := &Worker{
		cfg:      cfg,
		storage:  storage,
		fetcher:  fetcher,
		manifest: NewManifest(cfg.ScriptPath, cfg.Assets),
		policy:   policy,
		state:    StateNew,
	}
	w.logger = logger.WithComponent(log.ComponentOffline).With(log.FieldCacheNamespace, w.CacheName())
	return w, nil
}

// CacheName is the namespace owned by this version, e.g. "allocation-tracker-v2".
func (w *Worker) CacheName() string {
	return w.cfg.Prefix + "-" + w.cfg.Version
}

func (w *Worker) Manifest() Manifest { return w.manifest }

func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Controlling reports whether the worker has claimed its clients.
func (w *Worker) Controlling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.controlling
}

func (w *Worker) transition(from, to State) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != from {
		return fmt.Errorf("%w: %s -> %s (current %s)", ErrInvalidState, from, to, w.state)
	}
	w.state = to
	return nil
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	if s == StateRedundant {
		w.controlling = false
	}
	w.mu.Unlock()
}

// resolve turns a path or absolute URL into the cache key used for it.
func (w *Worker) resolve(ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	return w.cfg.Origin.ResolveReference(u), nil
}

// Install pre-fetches the whole manifest into the worker's namespace. Nothing
// is written unless every asset is fetched with a 2xx status; on failure the
// worker becomes redundant.
func (w *Worker) Install(ctx context.Context) error {
	if err := w.transition(StateNew, StateInstalling); err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "Installing offline worker",
		log.FieldOperation, log.OpInstall,
		"base_path", w.manifest.Base,
		"assets", len(w.manifest.URLs))

	responses := make([]*Response, len(w.manifest.URLs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	for i, ref := range w.manifest.URLs {
		g.Go(func() error {
			u, err := w.resolve(ref)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", ref, err)
			}
			req, err := http.NewRequestWithContext(gctx, http.MethodGet, u.String(), nil)
			if err != nil {
				return err
			}
			resp, err := w.roundTrip(req)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", u, err)
			}
			if resp.Status < 200 || resp.Status > 299 {
				return fmt.Errorf("fetch %s: unexpected status %d", u, resp.Status)
			}
			responses[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		w.setState(StateRedundant)
		w.logger.ErrorContext(ctx, "Offline worker install failed",
			log.FieldOperation, log.OpInstall,
			log.FieldError, err)
		return fmt.Errorf("install %s: %w", w.CacheName(), err)
	}

	cache, err := w.storage.Open(ctx, w.CacheName())
	if err != nil {
		w.setState(StateRedundant)
		return fmt.Errorf("install %s: %w", w.CacheName(), err)
	}
	for _, resp := range responses {
		if err := cache.Put(ctx, resp); err != nil {
			w.setState(StateRedundant)
			return fmt.Errorf("install %s: %w", w.CacheName(), err)
		}
	}

	w.mu.Lock()
	w.cache = cache
	w.state = StateInstalled
	w.mu.Unlock()

	w.logger.InfoContext(ctx, "Offline worker installed", log.FieldOperation, log.OpInstall)
	return nil
}

// Activate deletes every namespace other than this version's and claims
// control of fetches.
func (w *Worker) Activate(ctx context.Context) error {
	if err := w.transition(StateInstalled, StateActivating); err != nil {
		return err
	}

	names, err := w.storage.Names(ctx)
	if err != nil {
		w.setState(StateInstalled)
		return fmt.Errorf("activate %s: %w", w.CacheName(), err)
	}
	for _, name := range names {
		if name == w.CacheName() {
			continue
		}
		if _, err := w.storage.Delete(ctx, name); err != nil {
			w.setState(StateInstalled)
			return fmt.Errorf("activate %s: delete %s: %w", w.CacheName(), name, err)
		}
		w.logger.InfoContext(ctx, "Deleted old cache",
			log.FieldOperation, log.OpActivate,
			"old_namespace", name)
	}

	w.mu.Lock()
	w.state = StateActive
	w.controlling = true
	w.mu.Unlock()

	w.logger.InfoContext(ctx, "Offline worker active", log.FieldOperation, log.OpActivate)
	return nil
}

// Fetch answers req from the cache, falling back to the network. Cacheable
// network responses are stored before being returned. req.URL may be a path,
// in which case it is resolved against the origin.
func (w *Worker) Fetch(ctx context.Context, req *http.Request) (*Response, error) {
	w.mu.RLock()
	state, cache := w.state, w.cache
	w.mu.RUnlock()
	if state != StateActive {
		return nil, ErrNotActive
	}

	target := w.cfg.Origin.ResolveReference(req.URL)
	key := target.String()

	if req.Method == http.MethodGet || req.Method == http.MethodHead {
		cached, ok, err := cache.Match(ctx, key)
		if err != nil {
			w.logger.WarnContext(ctx, "Cache lookup failed",
				log.FieldOperation, log.OpFetch,
				log.FieldURL, key,
				log.FieldError, err)
		}
		if ok {
			w.logger.DebugContext(ctx, "Serving from cache", log.FieldURL, key)
			w.observe(OutcomeHit)
			return cached, nil
		}
	}

	out, err := http.NewRequestWithContext(ctx, req.Method, key, req.Body)
	if err != nil {
		w.observe(OutcomeError)
		return nil, fmt.Errorf("build request for %s: %w", key, err)
	}
	out.Header = req.Header.Clone()

	resp, err := w.roundTrip(out)
	if err != nil {
		w.observe(OutcomeError)
		w.logger.ErrorContext(ctx, "Both cache and network failed",
			log.FieldOperation, log.OpFetch,
			log.FieldURL, key,
			log.FieldError, err)
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}

	if !w.policy.Cacheable(out, resp) {
		w.observe(OutcomeUncached)
		return resp, nil
	}
	if err := cache.Put(ctx, resp.Clone()); err != nil {
		w.logger.WarnContext(ctx, "Failed to cache response",
			log.FieldOperation, log.OpFetch,
			log.FieldURL, key,
			log.FieldError, err)
	}
	w.observe(OutcomeStored)
	return resp, nil
}

// ServeHTTP proxies r through Fetch. Failures answer 502 with no fallback body.
func (w *Worker) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	ref := &url.URL{Path: r.URL.Path, RawQuery: r.URL.RawQuery}
	req := r.Clone(r.Context())
	req.URL = ref

	resp, err := w.Fetch(r.Context(), req)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, ErrNotActive) {
			status = http.StatusServiceUnavailable
		}
		http.Error(rw, http.StatusText(status), status)
		return
	}
	resp.Serve(rw)
}

func (w *Worker) roundTrip(req *http.Request) (*Response, error) {
	resp, err := w.fetcher.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, w.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > w.cfg.MaxBodyBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, w.cfg.MaxBodyBytes)
	}

	final := req.URL.String()
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return &Response{
		URL:      req.URL.String(),
		FinalURL: final,
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: time.Now().UTC(),
	}, nil
}

func (w *Worker) observe(outcome string) {
	if w.cfg.Metrics != nil {
		w.cfg.Metrics.ObserveFetch(w.CacheName(), outcome)
	}
}
