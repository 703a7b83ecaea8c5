package offline

import (
	"context"
	"net/http"
	"sync"
)

// Registration tracks which worker version controls fetches. Registering a
// new version installs it, skips waiting and retires the previous one.
type Registration struct {
	mu     sync.RWMutex
	active *Worker
}

// Register installs and activates w. When install fails the current worker
// keeps control.
func (r *Registration) Register(ctx context.Context, w *Worker) error {
	if err := w.Install(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := w.Activate(ctx); err != nil {
		return err
	}
	if r.active != nil && r.active != w {
		r.active.setState(StateRedundant)
	}
	r.active = w
	return nil
}

// Active returns the controlling worker, or nil.
func (r *Registration) Active() *Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

func (r *Registration) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	w := r.Active()
	if w == nil {
		http.Error(rw, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.ServeHTTP(rw, req)
}
