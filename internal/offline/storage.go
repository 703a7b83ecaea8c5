package offline

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// Response is a stored HTTP response. Body is fully buffered.
type Response struct {
	URL string
	// FinalURL is where the body came from once redirects were followed.
	// It is only set on network responses and is not persisted.
	FinalURL string
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Clone returns a deep copy so a cached entry and the caller's copy never alias.
func (r *Response) Clone() *Response {
	return &Response{
		URL:      r.URL,
		FinalURL: r.FinalURL,
		Status:   r.Status,
		Header:   r.Header.Clone(),
		Body:     append([]byte(nil), r.Body...),
		StoredAt: r.StoredAt,
	}
}

// Serve copies the response onto w.
func (r *Response) Serve(w http.ResponseWriter) {
	h := w.Header()
	for k, vs := range r.Header {
		if hopByHop[http.CanonicalHeaderKey(k)] {
			continue
		}
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	h.Set("Content-Length", strconv.Itoa(len(r.Body)))
	w.WriteHeader(r.Status)
	_, _ = w.Write(r.Body)
}

var hopByHop = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
	"Content-Length":      true,
}

// Cache is one named namespace of stored responses, keyed by request URL.
type Cache interface {
	Match(ctx context.Context, url string) (*Response, bool, error)
	Put(ctx context.Context, resp *Response) error
	Keys(ctx context.Context) ([]string, error)
}

// Storage holds every namespace. Open creates the namespace when missing.
type Storage interface {
	Open(ctx context.Context, name string) (Cache, error)
	Names(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) (bool, error)
}
