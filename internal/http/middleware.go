package http

import (
	"net/http"

	"allocation-tracker/internal/log"
	"allocation-tracker/internal/middleware/security"
	"allocation-tracker/internal/middleware/trace"
)

// chain wraps the router, outermost first: logger, request ID, access log,
// security headers, threat detection, POST rate limiting, metrics.
func (s *Server) chain(logger *log.Logger, mux *http.ServeMux) http.Handler {
	var h http.Handler = mux
	if s.metrics != nil {
		// innermost so the route pattern set by the mux is visible afterwards
		h = s.metrics.Middleware(routeLabel)(h)
	}
	h = s.limitWrites(h)
	h = s.detectThreats(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.AccessLog(s.detector.ExtractClientIP)(h)
	h = log.RequestIDMiddleware(trace.FromRequest)(h)
	h = s.tracer.Middleware(h)
	h = log.Middleware(logger)(h)
	return h
}

func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	return r.Pattern
}

// limitWrites applies the per-client rate limit to mutating requests only.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			limited.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// detectThreats logs probing requests; they are still routed normally.
func (s *Server) detectThreats(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WithComponent(log.ComponentSecurity).WarnContext(r.Context(), "Suspicious request detected",
				log.FieldClientIP, s.detector.ExtractClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}
