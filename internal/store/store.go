// Package store defines the key-value store contract shared by the ingester
// and the query engine, and the mapping between domain records and stored items.
package store

import (
	"context"
	"errors"
)

// Table names a logical table.
type Table string

const (
	TableDaily Table = "daily"
	TableCatch Table = "catch"
)

// Attribute names of the key pair on every stored item.
const (
	AttrPK = "PK"
	AttrSK = "SK"
)

// Item is one stored record: its key pair plus flat domain attributes.
// Attribute values are JSON-shaped: string, float64, bool, nil, []any,
// or map[string]any.
type Item struct {
	PK    string
	SK    string
	Attrs map[string]any
}

// SortOp selects how a query constrains the sort key.
type SortOp int

const (
	// SortAny matches every item in the partition.
	SortAny SortOp = iota
	SortEqual
	SortGreaterOrEqual
	// SortBetween is a closed range [Value, Upper].
	SortBetween
)

// SortKeyCondition constrains the sort key of a partition query.
type SortKeyCondition struct {
	Op    SortOp
	Value string
	Upper string
}

// Equal matches one exact sort key.
func Equal(sk string) SortKeyCondition {
	return SortKeyCondition{Op: SortEqual, Value: sk}
}

// GreaterOrEqual matches sort keys >= sk.
func GreaterOrEqual(sk string) SortKeyCondition {
	return SortKeyCondition{Op: SortGreaterOrEqual, Value: sk}
}

// Between matches sort keys in [lo, hi].
func Between(lo, hi string) SortKeyCondition {
	return SortKeyCondition{Op: SortBetween, Value: lo, Upper: hi}
}

// Match reports whether sk satisfies the condition.
func (c SortKeyCondition) Match(sk string) bool {
	switch c.Op {
	case SortEqual:
		return sk == c.Value
	case SortGreaterOrEqual:
		return sk >= c.Value
	case SortBetween:
		return sk >= c.Value && sk <= c.Upper
	default:
		return true
	}
}

// Page is one chunk of a partition query. Next is empty when the query is
// exhausted; otherwise pass it back to fetch the following page.
type Page struct {
	Items []Item
	Next  string
}

// ErrBadCursor is returned for a continuation token the store did not issue.
var ErrBadCursor = errors.New("store: invalid continuation token")

// Writer is the write half of the store. Both operations overwrite items
// with the same key pair.
type Writer interface {
	PutItem(ctx context.Context, table Table, item Item) error
	BatchPutItems(ctx context.Context, table Table, items []Item) error
}

// Reader is the read half of the store. GetItem reports found=false for an
// absent item rather than an error. Query pages may arrive in any order.
type Reader interface {
	GetItem(ctx context.Context, table Table, pk, sk string) (item Item, found bool, err error)
	Query(ctx context.Context, table Table, pk string, cond SortKeyCondition, next string) (Page, error)
}

// KeyValueStore is the full store contract.
type KeyValueStore interface {
	Writer
	Reader
}

// QueryAll follows continuation tokens until the query is exhausted. Each
// page is requested only after the previous one has returned. onPage, when
// non-nil, is called once per page.
func QueryAll(ctx context.Context, r Reader, table Table, pk string, cond SortKeyCondition, onPage func(Page)) ([]Item, error) {
	var (
		items []Item
		next  string
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := r.Query(ctx, table, pk, cond, next)
		if err != nil {
			return nil, err
		}
		if onPage != nil {
			onPage(page)
		}
		items = append(items, page.Items...)
		if page.Next == "" {
			return items, nil
		}
		next = page.Next
	}
}
