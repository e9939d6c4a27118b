// Package query reconstructs catch time series and daily summaries from the
// key-value store.
package query

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/fishing-catch-etl/internal/domain"
	"github.com/couchcryptid/fishing-catch-etl/internal/keys"
	"github.com/couchcryptid/fishing-catch-etl/internal/observability"
	"github.com/couchcryptid/fishing-catch-etl/internal/store"
)

// missingDate stands in for a sort key without a parsable date segment. It
// sorts before every real date.
const missingDate = "0000-00-00"

// Point is one catch record as exposed to readers.
type Point struct {
	Date    string `json:"date"`
	Count   *int   `json:"count"`
	MinSize *int   `json:"minSize"`
	MaxSize *int   `json:"maxSize"`
	Unit    string `json:"unit"`
	Place   string `json:"place"`
}

// Series is the catch history of one species at one facility.
type Series struct {
	Facility string  `json:"facility"`
	Fish     string  `json:"fish"`
	Items    []Point `json:"items"`
}

// Window is an inclusive date range. Either bound may be empty.
type Window struct {
	From string
	To   string
}

// CacheOptions sizes the read-through cache. A zero Size disables it.
type CacheOptions struct {
	Size  int
	TTL   time.Duration
	Clock clockwork.Clock
}

// Service answers series and day lookups.
type Service struct {
	reader  store.Reader
	metrics *observability.Metrics

	series *lruCache[seriesKey, Series]
	days   *lruCache[dayKey, domain.DailySummary]
}

type seriesKey struct {
	facility, fish string
	window         Window
}

type dayKey struct {
	facility, date string
}

// NewService creates a Service reading from r.
func NewService(r store.Reader, metrics *observability.Metrics, opts CacheOptions) *Service {
	s := &Service{reader: r, metrics: metrics}
	if opts.Size > 0 {
		if opts.Clock == nil {
			opts.Clock = clockwork.NewRealClock()
		}
		s.series = newLRUCache[seriesKey, Series](opts.Size, opts.TTL, opts.Clock)
		s.days = newLRUCache[dayKey, domain.DailySummary](opts.Size, opts.TTL, opts.Clock)
	}
	return s
}

// Series returns every catch of fish at facility within w, ordered by date.
// The order is rebuilt from each record's sort key rather than trusted from
// the store; ties keep sort key order.
func (s *Service) Series(ctx context.Context, facility, fish string, w Window) (Series, error) {
	cacheKey := seriesKey{facility: facility, fish: fish, window: w}
	if s.series != nil {
		if v, ok := s.series.get(cacheKey); ok {
			s.metrics.QueryCache.WithLabelValues("series", "hit").Inc()
			return v, nil
		}
		s.metrics.QueryCache.WithLabelValues("series", "miss").Inc()
	}

	items, err := store.QueryAll(ctx, s.reader, store.TableCatch, keys.CatchPK(facility, fish), windowCondition(w),
		func(store.Page) { s.metrics.StorePagesRead.Inc() })
	if err != nil {
		return Series{}, fmt.Errorf("query catch series: %w", err)
	}

	type dated struct {
		date string
		sk   string
		rec  domain.CatchRecord
	}
	rows := make([]dated, 0, len(items))
	for _, it := range items {
		date, ok := keys.DateFromSK(it.SK)
		if !ok {
			date = missingDate
		}
		rows = append(rows, dated{date: date, sk: it.SK, rec: store.DecodeCatch(it)})
	}
	slices.SortStableFunc(rows, func(a, b dated) int {
		if c := cmp.Compare(a.date, b.date); c != 0 {
			return c
		}
		return cmp.Compare(a.sk, b.sk)
	})

	out := Series{Facility: facility, Fish: fish, Items: make([]Point, 0, len(rows))}
	for _, r := range rows {
		out.Items = append(out.Items, Point{
			Date:    r.date,
			Count:   r.rec.Count,
			MinSize: r.rec.MinSize,
			MaxSize: r.rec.MaxSize,
			Unit:    r.rec.Unit,
			Place:   r.rec.Place,
		})
	}

	if s.series != nil {
		s.series.put(cacheKey, out)
	}
	return out, nil
}

// Day returns the daily summary of facility on date. found is false when
// nothing has been ingested for that day.
func (s *Service) Day(ctx context.Context, facility, date string) (domain.DailySummary, bool, error) {
	cacheKey := dayKey{facility: facility, date: date}
	if s.days != nil {
		if v, ok := s.days.get(cacheKey); ok {
			s.metrics.QueryCache.WithLabelValues("day", "hit").Inc()
			return v, true, nil
		}
		s.metrics.QueryCache.WithLabelValues("day", "miss").Inc()
	}

	it, ok, err := s.reader.GetItem(ctx, store.TableDaily, keys.DailyPK(facility), keys.DailySK(date))
	if err != nil {
		return domain.DailySummary{}, false, fmt.Errorf("get daily summary: %w", err)
	}
	if !ok {
		return domain.DailySummary{}, false, nil
	}
	d, err := store.DecodeDaily(it)
	if err != nil {
		return domain.DailySummary{}, false, fmt.Errorf("decode daily summary: %w", err)
	}

	// Misses are not cached so a day ingested later shows up immediately.
	if s.days != nil {
		s.days.put(cacheKey, d)
	}
	return d, true, nil
}

func windowCondition(w Window) store.SortKeyCondition {
	switch {
	case w.From != "" && w.To != "":
		return store.Between(keys.DateFloor(w.From), keys.DateCeiling(w.To))
	case w.From != "":
		return store.GreaterOrEqual(keys.DateFloor(w.From))
	case w.To != "":
		return store.Between(keys.AnyDateFloor(), keys.DateCeiling(w.To))
	default:
		return store.SortKeyCondition{Op: store.SortAny}
	}
}
