package memory

import (
	"context"
	"fmt"
	"sync"

	"allocation-tracker/internal/sheets"
)

// Store is an in-process spreadsheet used when no Google credentials are
// configured and in tests.
type Store struct {
	mu   sync.Mutex
	rows []sheets.Row
	refs map[string]string
}

var (
	_ sheets.EventWriter = (*Store)(nil)
	_ sheets.EventLister = (*Store)(nil)
)

func New() *Store {
	return &Store{refs: make(map[string]string)}
}

// AppendEvent stores the row and returns a synthetic row reference.
func (s *Store) AppendEvent(_ context.Context, row sheets.Row) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref, ok := s.refs[row.EventID]; ok && row.EventID != "" {
		return ref, nil
	}
	s.rows = append(s.rows, row)
	ref := fmt.Sprintf("mem:%d", len(s.rows))
	if row.EventID != "" {
		s.refs[row.EventID] = ref
	}
	return ref, nil
}

func (s *Store) ListEvents(context.Context) ([]sheets.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.Row(nil), s.rows...), nil
}
