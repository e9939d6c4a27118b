package domain

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/couchcryptid/fishing-catch-etl/internal/keys"
)

// MaxFishSlots is the number of fish<N>* attribute groups on a catch_count post.
const MaxFishSlots = 30

// requiredCatchCountFields must be present and non-blank on the selected post.
var requiredCatchCountFields = []string{"weather", "waterTemp", "tide", "visitors"}

// PickLatest selects the revision with the greatest updatedAt. Timestamps
// compare lexicographically; a missing timestamp sorts lowest. On ties the
// earlier candidate wins. An empty candidate list is a NoDataError.
func PickLatest(kind Kind, posts []Post) (Post, error) {
	if len(posts) == 0 {
		return nil, &NoDataError{Kind: kind}
	}
	latest := posts[0]
	for _, p := range posts[1:] {
		if p.UpdatedAt() > latest.UpdatedAt() {
			latest = p
		}
	}
	return latest, nil
}

// Normalize turns a catch_count post into the day's summary and its catch
// records. Nothing is returned when a required attribute is missing.
func Normalize(post Post, facility, date string) (DailySummary, []CatchRecord, error) {
	daily, err := NormalizeCatchCount(post, facility, date)
	if err != nil {
		return DailySummary{}, nil, err
	}
	return daily, NormalizeFishes(post, facility, date), nil
}

// NormalizeCatchCount validates the required attributes and builds the
// DailySummary. RawKeys and FishingReportLog start empty; the ingester
// fills them in.
func NormalizeCatchCount(post Post, facility, date string) (DailySummary, error) {
	var missing []string
	for _, k := range requiredCatchCountFields {
		if post.Blank(k) {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return DailySummary{}, &ValidationError{Fields: missing}
	}

	return DailySummary{
		Facility:         facility,
		Date:             date,
		Weather:          post.Text("weather"),
		WaterTemp:        post.Text("waterTemp"),
		Tide:             post.Text("tide"),
		Visitors:         SafeInt(post["visitors"]),
		Sentence:         post.OptionalText("sentence"),
		SourceID:         post.Text("id"),
		UpdatedAt:        post.UpdatedAt(),
		RawKeys:          map[Kind]string{},
		FishingReportLog: []ReportSnippet{},
	}, nil
}

// NormalizeFishes extracts one CatchRecord per named fish slot, in slot order.
// A slot with no name is skipped entirely. Places are stored sanitized so they
// match the place segment of the record's sort key.
func NormalizeFishes(post Post, facility, date string) []CatchRecord {
	var out []CatchRecord
	for i := 1; i <= MaxFishSlots; i++ {
		name := post.Text(slotField(i, "Name"))
		if name == "" {
			continue
		}
		out = append(out, CatchRecord{
			Facility: facility,
			Date:     date,
			Fish:     name,
			Slot:     i,
			Count:    SafeInt(post[slotField(i, "Count")]),
			MinSize:  SafeInt(post[slotField(i, "MinSize")]),
			MaxSize:  SafeInt(post[slotField(i, "MaxSize")]),
			Unit:     post.Text(slotField(i, "Unit")),
			Place:    keys.SanitizePlace(post.Text(slotField(i, "Place"))),
		})
	}
	return out
}

// NormalizeFieldCondition maps the morning post onto the first* attributes.
func NormalizeFieldCondition(post Post) *FieldCondition {
	return &FieldCondition{
		FirstSentence:  post.OptionalText("sentence"),
		FirstWeather:   post.OptionalText("weather"),
		Temp:           post.OptionalText("temp"),
		WaterTempFirst: post.OptionalText("waterTemp"),
		WindDirection:  post.OptionalText("windDirection"),
		WindSpeed:      post.OptionalText("windSpeed"),
		TideFirst:      post.OptionalText("tide"),
		HighTide:       post.OptionalText("highTide"),
		LowTide:        post.OptionalText("lowTide"),
		Warning:        post.OptionalText("warning"),
		Advisory:       post.OptionalText("advisory"),
		FirstSourceID:  post.Text("id"),
		FirstUpdatedAt: post.UpdatedAt(),
	}
}

// NormalizeFishingReports builds the intraday log ordered by (time, updatedAt).
func NormalizeFishingReports(posts []Post) []ReportSnippet {
	sorted := slices.Clone(posts)
	slices.SortStableFunc(sorted, func(a, b Post) int {
		if c := cmp.Compare(a.Text("time"), b.Text("time")); c != 0 {
			return c
		}
		return cmp.Compare(a.UpdatedAt(), b.UpdatedAt())
	})

	out := make([]ReportSnippet, 0, len(sorted))
	for _, p := range sorted {
		out = append(out, ReportSnippet{
			Time:      p.OptionalText("time"),
			Sentence:  p.OptionalText("sentence"),
			Weather:   p.OptionalText("weather"),
			SourceID:  p.Text("id"),
			UpdatedAt: p.UpdatedAt(),
		})
	}
	return out
}

func slotField(slot int, attr string) string {
	return fmt.Sprintf("fish%d%s", slot, attr)
}
