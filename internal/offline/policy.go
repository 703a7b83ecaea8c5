package offline

import (
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// Policy decides which network responses are written to the cache.
type Policy struct {
	// Origin is the scheme and host the worker serves; other origins are never cached.
	Origin   *url.URL
	Statuses []int
	Methods  []string
	// NetworkOnly lists path prefixes whose responses are never stored, so
	// lookups for them always fall through to the network.
	NetworkOnly []string
}

// DefaultNetworkOnly covers the live ledger views and operational endpoints.
var DefaultNetworkOnly = []string{"/ui/", "/api/", "/healthz", "/readyz", "/metrics"}

// DefaultPolicy caches same-origin 200 responses to GET requests.
func DefaultPolicy(origin *url.URL) Policy {
	return Policy{
		Origin:   origin,
		Statuses: []int{http.StatusOK},
		Methods:  []string{http.MethodGet},
	}
}

// SameOrigin compares scheme and host, including port.
func (p Policy) SameOrigin(u *url.URL) bool {
	if p.Origin == nil || u == nil {
		return false
	}
	return strings.EqualFold(p.Origin.Scheme, u.Scheme) && strings.EqualFold(p.Origin.Host, u.Host)
}

// Cacheable reports whether resp, fetched for req, may be stored. Both the
// requested URL and the URL the response finally came from after redirects
// must be same-origin.
func (p Policy) Cacheable(req *http.Request, resp *Response) bool {
	if resp == nil || !slices.Contains(p.Statuses, resp.Status) {
		return false
	}
	if !slices.ContainsFunc(p.Methods, func(m string) bool { return strings.EqualFold(m, req.Method) }) {
		return false
	}
	if !p.SameOrigin(req.URL) {
		return false
	}
	if resp.FinalURL != "" {
		final, err := url.Parse(resp.FinalURL)
		if err != nil || !p.SameOrigin(final) {
			return false
		}
	}
	return !p.networkOnly(req.URL.Path)
}

func (p Policy) networkOnly(path string) bool {
	return slices.ContainsFunc(p.NetworkOnly, func(prefix string) bool { return strings.HasPrefix(path, prefix) })
}
