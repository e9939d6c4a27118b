// Package keys builds the partition and sort keys of the daily and catch
// tables. Keys are typed segments joined as TAG#value#TAG#value; segment
// order is chosen so a lexicographic sort-key scan is chronological.
//
//	daily  PK FACILITY#<facility>
//	       SK DATE#<yyyy-mm-dd>
//	catch  PK FACILITY#<facility>#FISH#<fish>
//	       SK DATE#<yyyy-mm-dd>#SLOT#<nn>#PLACE#<place>
//
// These layouts are shared with data already in the tables and must not change.
package keys

import (
	"fmt"
	"strings"
)

// Tag identifies the kind of value a key segment carries.
type Tag string

const (
	TagFacility Tag = "FACILITY"
	TagDate     Tag = "DATE"
	TagFish     Tag = "FISH"
	TagSlot     Tag = "SLOT"
	TagPlace    Tag = "PLACE"
)

const (
	// Separator joins tags and values.
	Separator = "#"
	// UnknownPlace stands in for an absent or blank catch place.
	UnknownPlace = "UNKNOWN"
)

// Segment is one TAG#value pair.
type Segment struct {
	Tag   Tag
	Value string
}

// Key is an ordered list of segments.
type Key []Segment

// New starts a key with a single segment.
func New(tag Tag, value string) Key {
	return Key{{Tag: tag, Value: value}}
}

// With returns a copy of k extended by one segment.
func (k Key) With(tag Tag, value string) Key {
	out := make(Key, len(k), len(k)+1)
	copy(out, k)
	return append(out, Segment{Tag: tag, Value: value})
}

// String renders the key in its stored form.
func (k Key) String() string {
	var b strings.Builder
	for i, s := range k {
		if i > 0 {
			b.WriteString(Separator)
		}
		b.WriteString(string(s.Tag))
		b.WriteString(Separator)
		b.WriteString(s.Value)
	}
	return b.String()
}

// DailyPK is the daily-table partition key for a facility.
func DailyPK(facility string) string {
	return New(TagFacility, facility).String()
}

// DailySK is the daily-table sort key for an ISO date.
func DailySK(date string) string {
	return New(TagDate, date).String()
}

// CatchPK is the catch-table partition key for a facility and species.
func CatchPK(facility, fish string) string {
	return New(TagFacility, facility).With(TagFish, fish).String()
}

// CatchSK is the catch-table sort key. The slot is zero-padded to two
// digits and the place is sanitized with SanitizePlace.
func CatchSK(date string, slot int, place string) string {
	return New(TagDate, date).
		With(TagSlot, fmt.Sprintf("%02d", slot)).
		With(TagPlace, SanitizePlace(place)).
		String()
}

// SanitizePlace replaces newlines with spaces and trims. An empty result
// becomes UnknownPlace.
func SanitizePlace(place string) string {
	s := strings.TrimSpace(strings.ReplaceAll(place, "\n", " "))
	if s == "" {
		return UnknownPlace
	}
	return s
}

// DateFloor is the smallest catch sort key on or after date.
func DateFloor(date string) string {
	return New(TagDate, date).String()
}

// DateCeiling is a bound strictly greater than every catch sort key of date
// and strictly less than every key of the following day. It is the date
// prefix "DATE#<date>#" with its last byte incremented.
func DateCeiling(date string) string {
	return New(TagDate, date).String() + "$"
}

// AnyDateFloor sorts before every dated sort key.
func AnyDateFloor() string {
	return string(TagDate) + Separator
}

// DateFromSK extracts the ISO date from a DATE#-prefixed sort key. ok is
// false when the key carries no DATE segment in first position.
func DateFromSK(sk string) (date string, ok bool) {
	parts := strings.Split(sk, Separator)
	if len(parts) < 2 || parts[0] != string(TagDate) || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
