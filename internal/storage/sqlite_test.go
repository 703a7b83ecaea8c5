package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	_, err = s.Get(ctx, "allocationData")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.Put(ctx, "allocationData", []byte(`{"hp":[]}`)))
	require.NoError(t, s.Put(ctx, "allocationData", []byte(`{"hp":[],"mortgage":[]}`)))

	got, err := s.Get(ctx, "allocationData")
	require.NoError(t, err)
	assert.Equal(t, `{"hp":[],"mortgage":[]}`, string(got))
	assert.NoError(t, s.Ping(ctx))
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), "k", []byte("v")))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}

func TestOpenSQLiteRejectsMemoryPath(t *testing.T) {
	_, err := OpenSQLite(":memory:")
	assert.Error(t, err)
}
