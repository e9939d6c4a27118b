// Package memstore is an in-process store.KeyValueStore for tests and
// local runs. Query returns a partition's items in insertion order rather
// than sort-key order, like a store that gives no ordering guarantee.
package memstore

import (
	"context"
	"maps"
	"strconv"
	"sync"

	"github.com/couchcryptid/fishing-catch-etl/internal/store"
)

// DefaultPageSize is used when New is given a non-positive page size.
const DefaultPageSize = 100

type partition struct {
	order []string
	items map[string]store.Item
}

// Store is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	tables   map[store.Table]map[string]*partition
	pageSize int
}

// New creates an empty store returning at most pageSize items per Query page.
func New(pageSize int) *Store {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Store{
		tables:   make(map[store.Table]map[string]*partition),
		pageSize: pageSize,
	}
}

func (s *Store) PutItem(ctx context.Context, table store.Table, item store.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(table, item)
	return nil
}

func (s *Store) BatchPutItems(ctx context.Context, table store.Table, items []store.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		s.put(table, it)
	}
	return nil
}

// put overwrites in place; a replaced item keeps its original position.
func (s *Store) put(table store.Table, item store.Item) {
	parts, ok := s.tables[table]
	if !ok {
		parts = make(map[string]*partition)
		s.tables[table] = parts
	}
	p, ok := parts[item.PK]
	if !ok {
		p = &partition{items: make(map[string]store.Item)}
		parts[item.PK] = p
	}
	if _, exists := p.items[item.SK]; !exists {
		p.order = append(p.order, item.SK)
	}
	p.items[item.SK] = clone(item)
}

func (s *Store) GetItem(ctx context.Context, table store.Table, pk, sk string) (store.Item, bool, error) {
	if err := ctx.Err(); err != nil {
		return store.Item{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.tables[table][pk]
	if !ok {
		return store.Item{}, false, nil
	}
	it, ok := p.items[sk]
	if !ok {
		return store.Item{}, false, nil
	}
	return clone(it), true, nil
}

// Query pages through matching items. The continuation token is an offset
// into the partition's insertion order.
func (s *Store) Query(ctx context.Context, table store.Table, pk string, cond store.SortKeyCondition, next string) (store.Page, error) {
	if err := ctx.Err(); err != nil {
		return store.Page{}, err
	}
	start := 0
	if next != "" {
		n, err := strconv.Atoi(next)
		if err != nil || n < 0 {
			return store.Page{}, store.ErrBadCursor
		}
		start = n
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.tables[table][pk]
	if !ok {
		return store.Page{}, nil
	}

	var page store.Page
	for i := start; i < len(p.order); i++ {
		sk := p.order[i]
		if !cond.Match(sk) {
			continue
		}
		if len(page.Items) == s.pageSize {
			page.Next = strconv.Itoa(i)
			break
		}
		page.Items = append(page.Items, clone(p.items[sk]))
	}
	return page, nil
}

// Len reports the number of items stored in table.
func (s *Store) Len(table store.Table) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.tables[table] {
		n += len(p.items)
	}
	return n
}

// CheckReadiness always succeeds.
func (s *Store) CheckReadiness(context.Context) error { return nil }

func clone(it store.Item) store.Item {
	it.Attrs = maps.Clone(it.Attrs)
	return it
}
