package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Entry pairs a document with its id for bulk writes.
type Entry[T any] struct {
	ID  string
	Doc T
}

// Collection is a typed view over one named collection.
type Collection[T any] struct {
	db   *DB
	name string
}

// NewCollection returns the collection called name, decoding documents as T.
func NewCollection[T any](db *DB, name string) *Collection[T] {
	return &Collection[T]{db: db, name: name}
}

// Name returns the collection name
func (c *Collection[T]) Name() string {
	return c.name
}

// Get loads the document with the given id or returns ErrNotFound.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	c.db.keyMu.RLock()
	defer c.db.keyMu.RUnlock()

	var doc T
	if err := c.db.ensure(ctx, c.name); err != nil {
		return doc, err
	}

	var data []byte
	err := c.db.sql.QueryRowContext(ctx, fmt.Sprintf(`SELECT data FROM %q WHERE id = ?`, c.name), id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return doc, ErrNotFound
	}
	if err != nil {
		return doc, fmt.Errorf("failed to read %s/%s: %w", c.name, id, err)
	}

	if err := c.db.decode(c.db.aead, data, &doc); err != nil {
		return doc, fmt.Errorf("failed to decode %s/%s: %w", c.name, id, err)
	}
	return doc, nil
}

// All returns every document in insertion order.
func (c *Collection[T]) All(ctx context.Context) ([]T, error) {
	return c.Find(ctx, nil)
}

// Find returns the documents matching pred; a nil pred matches everything.
func (c *Collection[T]) Find(ctx context.Context, pred func(T) bool) ([]T, error) {
	c.db.keyMu.RLock()
	defer c.db.keyMu.RUnlock()

	entries, err := c.scan(ctx, c.db.sql, pred)
	if err != nil {
		return nil, err
	}
	docs := make([]T, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, e.Doc)
	}
	return docs, nil
}

// FindOne returns the first document matching pred.
func (c *Collection[T]) FindOne(ctx context.Context, pred func(T) bool) (T, bool, error) {
	var zero T
	docs, err := c.Find(ctx, pred)
	if err != nil || len(docs) == 0 {
		return zero, false, err
	}
	return docs[0], true, nil
}

type rowsQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// scan decodes every document of the collection. Callers hold keyMu.
func (c *Collection[T]) scan(ctx context.Context, q rowsQuerier, pred func(T) bool) ([]Entry[T], error) {
	if err := c.db.ensure(ctx, c.name); err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, fmt.Sprintf(`SELECT id, data FROM %q ORDER BY rowid`, c.name))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.name, err)
	}
	defer rows.Close()

	var entries []Entry[T]
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		var doc T
		if err := c.db.decode(c.db.aead, data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s/%s: %w", c.name, id, err)
		}
		if pred == nil || pred(doc) {
			entries = append(entries, Entry[T]{ID: id, Doc: doc})
		}
	}
	return entries, rows.Err()
}

// Upsert inserts or replaces the document with the given id.
func (c *Collection[T]) Upsert(ctx context.Context, id string, doc T) error {
	// Held until the write lands so a concurrent Rekey cannot commit in between.
	c.db.keyMu.RLock()
	defer c.db.keyMu.RUnlock()

	if err := c.db.ensure(ctx, c.name); err != nil {
		return err
	}

	data, err := c.db.encode(c.db.aead, doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", c.name, id, err)
	}
	_, err = c.db.sql.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %q (id, data) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`, c.name), id, data)
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", c.name, id, err)
	}
	return nil
}

// Delete removes the document with the given id, reporting whether it existed.
func (c *Collection[T]) Delete(ctx context.Context, id string) (bool, error) {
	if err := c.db.ensure(ctx, c.name); err != nil {
		return false, err
	}
	res, err := c.db.sql.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %q WHERE id = ?`, c.name), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s/%s: %w", c.name, id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DeleteWhere removes every document matching pred and returns how many went.
func (c *Collection[T]) DeleteWhere(ctx context.Context, pred func(T) bool) (int, error) {
	return c.ReplaceWhere(ctx, pred, nil)
}

// ReplaceWhere deletes the documents matching pred and inserts docs in the
// same transaction, so readers never observe the gap in between.
func (c *Collection[T]) ReplaceWhere(ctx context.Context, pred func(T) bool, docs []Entry[T]) (int, error) {
	c.db.keyMu.RLock()
	defer c.db.keyMu.RUnlock()

	if err := c.db.ensure(ctx, c.name); err != nil {
		return 0, err
	}

	tx, err := c.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	matched, err := c.scan(ctx, tx, pred)
	if err != nil {
		return 0, err
	}
	for _, e := range matched {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %q WHERE id = ?`, c.name), e.ID); err != nil {
			return 0, fmt.Errorf("failed to delete %s/%s: %w", c.name, e.ID, err)
		}
	}

	for _, e := range docs {
		data, err := c.db.encode(c.db.aead, e.Doc)
		if err != nil {
			return 0, fmt.Errorf("failed to encode %s/%s: %w", c.name, e.ID, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %q (id, data) VALUES (?, ?)
			ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`, c.name), e.ID, data); err != nil {
			return 0, fmt.Errorf("failed to write %s/%s: %w", c.name, e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit %s: %w", c.name, err)
	}
	return len(matched), nil
}

// Count returns the number of documents in the collection.
func (c *Collection[T]) Count(ctx context.Context) (int, error) {
	if err := c.db.ensure(ctx, c.name); err != nil {
		return 0, err
	}
	var n int
	if err := c.db.sql.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %q`, c.name)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", c.name, err)
	}
	return n, nil
}
