package offline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// SQLiteStorage persists namespaces in the cache_namespaces and cache_entries
// tables, so a restarted proxy still serves its shell offline.
type SQLiteStorage struct {
	db *sql.DB
}

var _ Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage uses a handle opened with storage.OpenSQLite.
func NewSQLiteStorage(db *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{db: db}
}

func (s *SQLiteStorage) Open(ctx context.Context, name string) (Cache, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_namespaces (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		name, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", name, err)
	}
	return &sqliteCache{db: s.db, namespace: name}, nil
}

func (s *SQLiteStorage) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM cache_namespaces ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list caches: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan cache name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteStorage) Delete(ctx context.Context, name string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_entries WHERE namespace = ?`, name); err != nil {
		return false, fmt.Errorf("delete entries of %s: %w", name, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM cache_namespaces WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("delete cache %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete: %w", err)
	}
	return n > 0, nil
}

type sqliteCache struct {
	db        *sql.DB
	namespace string
}

func (c *sqliteCache) Match(ctx context.Context, url string) (*Response, bool, error) {
	var (
		resp   = Response{URL: url}
		header string
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT status, header, body, stored_at FROM cache_entries WHERE namespace = ? AND url = ?`,
		c.namespace, url).Scan(&resp.Status, &header, &resp.Body, &resp.StoredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("match %s: %w", url, err)
	}
	resp.Header = http.Header{}
	if err := json.Unmarshal([]byte(header), &resp.Header); err != nil {
		return nil, false, fmt.Errorf("decode header of %s: %w", url, err)
	}
	return &resp, true, nil
}

func (c *sqliteCache) Put(ctx context.Context, resp *Response) error {
	header, err := json.Marshal(resp.Header)
	if err != nil {
		return fmt.Errorf("encode header of %s: %w", resp.URL, err)
	}
	storedAt := resp.StoredAt
	if storedAt.IsZero() {
		storedAt = time.Now()
	}
	body := resp.Body
	if body == nil {
		body = []byte{}
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO cache_entries (namespace, url, status, header, body, stored_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(namespace, url) DO UPDATE SET
			status = excluded.status,
			header = excluded.header,
			body = excluded.body,
			stored_at = excluded.stored_at`,
		c.namespace, resp.URL, resp.Status, string(header), body, storedAt.UTC())
	if err != nil {
		return fmt.Errorf("put %s: %w", resp.URL, err)
	}
	return nil
}

func (c *sqliteCache) Keys(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT url FROM cache_entries WHERE namespace = ? ORDER BY url`, c.namespace)
	if err != nil {
		return nil, fmt.Errorf("list keys of %s: %w", c.namespace, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
