package store

import (
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/fishing-catch-etl/internal/domain"
	"github.com/couchcryptid/fishing-catch-etl/internal/keys"
)

// DailyItem addresses a DailySummary in the daily table.
func DailyItem(d domain.DailySummary) (Item, error) {
	attrs, err := toAttrs(d)
	if err != nil {
		return Item{}, fmt.Errorf("encode daily summary: %w", err)
	}
	return Item{
		PK:    keys.DailyPK(d.Facility),
		SK:    keys.DailySK(d.Date),
		Attrs: attrs,
	}, nil
}

// CatchItem addresses a CatchRecord in the catch table. The stored place is
// the sanitized one used in the sort key.
func CatchItem(c domain.CatchRecord) (Item, error) {
	c.Place = keys.SanitizePlace(c.Place)
	attrs, err := toAttrs(c)
	if err != nil {
		return Item{}, fmt.Errorf("encode catch record: %w", err)
	}
	return Item{
		PK:    keys.CatchPK(c.Facility, c.Fish),
		SK:    keys.CatchSK(c.Date, c.Slot, c.Place),
		Attrs: attrs,
	}, nil
}

// CatchItems addresses a batch of catch records.
func CatchItems(records []domain.CatchRecord) ([]Item, error) {
	items := make([]Item, 0, len(records))
	for _, c := range records {
		it, err := CatchItem(c)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

// DecodeDaily rebuilds a DailySummary from a stored item.
func DecodeDaily(it Item) (domain.DailySummary, error) {
	var d domain.DailySummary
	if err := fromAttrs(it.Attrs, &d); err != nil {
		return domain.DailySummary{}, fmt.Errorf("decode daily summary %s/%s: %w", it.PK, it.SK, err)
	}
	return d, nil
}

// DecodeCatch rebuilds a CatchRecord from a stored item. Numeric attributes
// go through SafeInt, so values stored as floats or strings still decode.
func DecodeCatch(it Item) domain.CatchRecord {
	a := it.Attrs
	slot := domain.SafeInt(a["slot"])
	c := domain.CatchRecord{
		Facility: textAttr(a, "facility"),
		Date:     textAttr(a, "date"),
		Fish:     textAttr(a, "fish"),
		Count:    domain.SafeInt(a["count"]),
		MinSize:  domain.SafeInt(a["minSize"]),
		MaxSize:  domain.SafeInt(a["maxSize"]),
		Unit:     textAttr(a, "unit"),
		Place:    textAttr(a, "place"),
	}
	if slot != nil {
		c.Slot = *slot
	}
	return c
}

// toAttrs converts a struct to the flat attribute map stored alongside the keys.
func toAttrs(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var attrs map[string]any
	if err := json.Unmarshal(b, &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

func fromAttrs(attrs map[string]any, v any) error {
	b, err := json.Marshal(attrs)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func textAttr(a map[string]any, key string) string {
	return domain.Post(a).Text(key)
}
