package offline

import (
	"context"
	"sort"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStorage keeps namespaces in process memory. Entries never expire;
// namespaces are only removed by Delete.
type MemoryStorage struct {
	namespaces *gocache.Cache
}

var _ Storage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{namespaces: gocache.New(gocache.NoExpiration, 0)}
}

func (s *MemoryStorage) Open(_ context.Context, name string) (Cache, error) {
	c := &memoryCache{entries: gocache.New(gocache.NoExpiration, 0)}
	// Add fails when another caller created the namespace first
	if err := s.namespaces.Add(name, c, gocache.NoExpiration); err != nil {
		if existing, ok := s.namespaces.Get(name); ok {
			return existing.(*memoryCache), nil
		}
		return nil, err
	}
	return c, nil
}

func (s *MemoryStorage) Names(context.Context) ([]string, error) {
	items := s.namespaces.Items()
	names := make([]string, 0, len(items))
	for name := range items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStorage) Delete(_ context.Context, name string) (bool, error) {
	if _, ok := s.namespaces.Get(name); !ok {
		return false, nil
	}
	s.namespaces.Delete(name)
	return true, nil
}

type memoryCache struct {
	entries *gocache.Cache
}

func (c *memoryCache) Match(_ context.Context, url string) (*Response, bool, error) {
	v, ok := c.entries.Get(url)
	if !ok {
		return nil, false, nil
	}
	return v.(*Response).Clone(), true, nil
}

func (c *memoryCache) Put(_ context.Context, resp *Response) error {
	c.entries.Set(resp.URL, resp.Clone(), gocache.NoExpiration)
	return nil
}

func (c *memoryCache) Keys(context.Context) ([]string, error) {
	items := c.entries.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
