// Package sqlite is a store.KeyValueStore backed by a single SQLite file.
// Both logical tables share one physical table keyed by (tbl, pk, sk); item
// attributes are stored as a JSON document.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/fishing-catch-etl/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
	tbl TEXT NOT NULL,
	pk  TEXT NOT NULL,
	sk  TEXT NOT NULL,
	doc TEXT NOT NULL,
	PRIMARY KEY (tbl, pk, sk)
) WITHOUT ROWID;
`

const upsert = `INSERT INTO items (tbl, pk, sk, doc) VALUES (?, ?, ?, ?)
ON CONFLICT (tbl, pk, sk) DO UPDATE SET doc = excluded.doc`

// Store wraps the database connection.
type Store struct {
	conn     *sql.DB
	pageSize int
}

// Open opens (creating if needed) the database at path and initializes the schema.
func Open(path string, pageSize int) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer at a time.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Store{conn: conn, pageSize: pageSize}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

func (s *Store) PutItem(ctx context.Context, table store.Table, item store.Item) error {
	doc, err := json.Marshal(item.Attrs)
	if err != nil {
		return fmt.Errorf("encode item %s/%s: %w", item.PK, item.SK, err)
	}
	if _, err := s.conn.ExecContext(ctx, upsert, string(table), item.PK, item.SK, string(doc)); err != nil {
		return fmt.Errorf("put item %s/%s: %w", item.PK, item.SK, err)
	}
	return nil
}

// BatchPutItems writes all items in one transaction.
func (s *Store) BatchPutItems(ctx context.Context, table store.Table, items []store.Item) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, upsert)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	for _, it := range items {
		doc, err := json.Marshal(it.Attrs)
		if err != nil {
			return fmt.Errorf("encode item %s/%s: %w", it.PK, it.SK, err)
		}
		if _, err := stmt.ExecContext(ctx, string(table), it.PK, it.SK, string(doc)); err != nil {
			return fmt.Errorf("put item %s/%s: %w", it.PK, it.SK, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (s *Store) GetItem(ctx context.Context, table store.Table, pk, sk string) (store.Item, bool, error) {
	var doc string
	err := s.conn.QueryRowContext(ctx,
		`SELECT doc FROM items WHERE tbl = ? AND pk = ? AND sk = ?`,
		string(table), pk, sk,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Item{}, false, nil
	}
	if err != nil {
		return store.Item{}, false, fmt.Errorf("get item %s/%s: %w", pk, sk, err)
	}
	it, err := decode(pk, sk, doc)
	if err != nil {
		return store.Item{}, false, err
	}
	return it, true, nil
}

// Query returns items in sort-key order. The continuation token is the
// last sort key of the previous page.
func (s *Store) Query(ctx context.Context, table store.Table, pk string, cond store.SortKeyCondition, next string) (store.Page, error) {
	var (
		where = []string{"tbl = ?", "pk = ?"}
		args  = []any{string(table), pk}
	)
	switch cond.Op {
	case store.SortEqual:
		where = append(where, "sk = ?")
		args = append(args, cond.Value)
	case store.SortGreaterOrEqual:
		where = append(where, "sk >= ?")
		args = append(args, cond.Value)
	case store.SortBetween:
		where = append(where, "sk BETWEEN ? AND ?")
		args = append(args, cond.Value, cond.Upper)
	}
	if next != "" {
		where = append(where, "sk > ?")
		args = append(args, next)
	}
	args = append(args, s.pageSize+1)

	q := `SELECT sk, doc FROM items WHERE ` + strings.Join(where, " AND ") + ` ORDER BY sk LIMIT ?`
	rows, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return store.Page{}, fmt.Errorf("query %s: %w", pk, err)
	}
	defer rows.Close()

	var page store.Page
	for rows.Next() {
		var sk, doc string
		if err := rows.Scan(&sk, &doc); err != nil {
			return store.Page{}, fmt.Errorf("scan %s: %w", pk, err)
		}
		if len(page.Items) == s.pageSize {
			page.Next = page.Items[len(page.Items)-1].SK
			break
		}
		it, err := decode(pk, sk, doc)
		if err != nil {
			return store.Page{}, err
		}
		page.Items = append(page.Items, it)
	}
	if err := rows.Err(); err != nil {
		return store.Page{}, fmt.Errorf("query %s: %w", pk, err)
	}
	return page, nil
}

func decode(pk, sk, doc string) (store.Item, error) {
	var attrs map[string]any
	if err := json.Unmarshal([]byte(doc), &attrs); err != nil {
		return store.Item{}, fmt.Errorf("decode item %s/%s: %w", pk, sk, err)
	}
	return store.Item{PK: pk, SK: sk, Attrs: attrs}, nil
}
