// Package domain models daily fishing-pier catch reports.
//
// # Data Source
//
// Reports come from the facility's public GraphQL (AppSync) API. Each
// facility publishes three kinds of posts per day:
//
//	field_condition  first post of the day: weather, air/water temperature,
//	                 wind, high/low tide, warnings and advisories.
//	fishing_report   intraday "middle" posts with a time of day and a sentence.
//	catch_count      the closing post: weather, water temperature, tide,
//	                 visitor count, and up to 30 fish slots.
//
// Only catch_count is mandatory. Posts can be revised during the day, so a
// query for one (facility, date) may return several candidates; the one with
// the greatest updatedAt wins (see [PickLatest]).
//
// # Fish Slots
//
// A catch_count post flattens its species table into fixed attributes:
//
//	fish<N>Name fish<N>Count fish<N>MinSize fish<N>MaxSize fish<N>Unit fish<N>Place
//
// for N in 1..30. Slots are sparse: a slot without a name produces nothing,
// whatever else it carries. Slot numbers are stable only inside a single post;
// the same species can sit in slot 3 one day and slot 7 the next.
//
// Numeric attributes arrive as numbers, numeric strings, or blanks, and are
// coerced with [SafeInt]. Place arrives either as text or as a list of text
// and is collapsed to one trimmed string.
//
// # Dates
//
// Dates are calendar days in Japan Standard Time. The upstream API filters by
// "YYYY/MM/DD"; everything stored or exposed uses ISO "YYYY-MM-DD".
package domain
