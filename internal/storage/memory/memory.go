package memory

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"allocation-tracker/internal/storage"
)

// Store is a process-local key-value store. Values are copied on the way in
// and out so callers cannot alias stored bytes.
type Store struct {
	mu    sync.Mutex
	items map[string][]byte
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{items: make(map[string][]byte)}
}

// NewFromFiles seeds the store from <base>/<key>.json for each key given.
// Missing files are skipped.
func NewFromFiles(base string, keys ...string) *Store {
	s := New()
	for _, k := range keys {
		b, err := os.ReadFile(filepath.Join(base, k+".json"))
		if err != nil || len(b) == 0 {
			continue
		}
		s.items[k] = b
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
