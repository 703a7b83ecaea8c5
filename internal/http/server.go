package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"allocation-tracker/internal/ledger"
	"allocation-tracker/internal/log"
	"allocation-tracker/internal/metrics"
	"allocation-tracker/internal/middleware/ratelimit"
	"allocation-tracker/internal/middleware/security"
	"allocation-tracker/internal/middleware/trace"
	"allocation-tracker/internal/offline"
	appweb "allocation-tracker/web"
)

// Options configures the server beyond its ledger.
type Options struct {
	Logger *log.Logger
	// Metrics is optional; when nil /metrics answers 404.
	Metrics *metrics.Metrics
	// CacheName names the service worker namespace, e.g. "allocation-tracker-v2".
	CacheName          string
	Assets             []string
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	templates *template.Template
	ledger    *ledger.Service
	logger    *log.Logger
	metrics   *metrics.Metrics
	static    fs.FS
	swScript  []byte
	startedAt time.Time

	detector     *security.Detector
	rateLimiter  *ratelimit.Limiter
	tracer       *trace.Middleware
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
// The ledger must already be loaded.
func NewServer(addr string, svc *ledger.Service, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if opts.CacheName == "" {
		opts.CacheName = "allocation-tracker-v2"
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	script, err := offline.Script(opts.CacheName, opts.Assets, offline.DefaultNetworkOnly)
	if err != nil {
		return nil, err
	}

	s := &Server{
		templates:   t,
		ledger:      svc,
		logger:      logger.WithComponent(log.ComponentHTTP),
		metrics:     opts.Metrics,
		static:      static,
		swScript:    script,
		startedAt:   time.Now(),
		detector:    security.NewDetector(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:      trace.NewMiddleware(),
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.chain(logger, s.routes()),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /index.html", s.handleIndex)
	mux.HandleFunc("POST /payments", s.handleCreatePayment)
	mux.HandleFunc("POST /reset", s.handleReset)

	// UI partials
	mux.HandleFunc("GET /ui/summary", s.handleSummaryPartial)
	mux.HandleFunc("GET /ui/history", s.handleHistoryPartial)

	mux.HandleFunc("GET /api/ledger", s.handleExportLedger)
	mux.HandleFunc("GET /api/summary", s.handleSummaryJSON)

	// Application shell, served from the worker's scope so it can be pre-cached.
	mux.HandleFunc("GET /sw.js", s.handleServiceWorker)
	mux.HandleFunc("GET /manifest.webmanifest", s.handleWebManifest)
	mux.HandleFunc("GET /manifest.json", s.handleWebManifest)
	for _, name := range []string{"styles.css", "app.js", "icon-192.png", "icon-512.png"} {
		mux.Handle("GET /"+name, s.shellAsset(name))
	}
	static := http.StripPrefix("/static/", http.FileServerFS(s.static))
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

// Shutdown stops background goroutines and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
	})
	return s.Server.Shutdown(ctx)
}
