package keys

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDailyKeys(t *testing.T) {
	assert.Equal(t, "FACILITY#honmoku", DailyPK("honmoku"))
	assert.Equal(t, "DATE#2024-01-02", DailySK("2024-01-02"))
}

func TestCatchKeys(t *testing.T) {
	assert.Equal(t, "FACILITY#honmoku#FISH#アジ", CatchPK("honmoku", "アジ"))
	assert.Equal(t, "DATE#2024-01-02#SLOT#03#PLACE#先端", CatchSK("2024-01-02", 3, "先端"))
	assert.Equal(t, "DATE#2024-01-02#SLOT#12#PLACE#UNKNOWN", CatchSK("2024-01-02", 12, ""))
}

func TestSanitizePlace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "東側", "東側"},
		{"trimmed", "  東側 ", "東側"},
		{"newline becomes space", "東側\n中央", "東側 中央"},
		{"trailing newline", "東側\n", "東側"},
		{"empty", "", UnknownPlace},
		{"whitespace only", " \n ", UnknownPlace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizePlace(tt.input))
		})
	}
}

func TestCatchSK_Deterministic(t *testing.T) {
	assert.Equal(t, CatchSK("2024-01-02", 1, "東"), CatchSK("2024-01-02", 1, "東"))
}

func TestCatchKeys_DistinctIdentities(t *testing.T) {
	type identity struct {
		facility, fish, date string
		slot                 int
		place                string
	}
	ids := []identity{
		{"honmoku", "アジ", "2024-01-02", 1, "東"},
		{"honmoku", "アジ", "2024-01-02", 1, "西"},
		{"honmoku", "アジ", "2024-01-02", 2, "東"},
		{"honmoku", "アジ", "2024-01-03", 1, "東"},
		{"honmoku", "サバ", "2024-01-02", 1, "東"},
		{"daikoku", "アジ", "2024-01-02", 1, "東"},
	}

	seen := map[string]identity{}
	for _, id := range ids {
		k := CatchPK(id.facility, id.fish) + "|" + CatchSK(id.date, id.slot, id.place)
		prev, dup := seen[k]
		assert.False(t, dup, "collision between %+v and %+v", prev, id)
		seen[k] = id
	}
}

func TestCatchKeys_PlaceSentinelCollapses(t *testing.T) {
	assert.Equal(t, CatchSK("2024-01-02", 1, ""), CatchSK("2024-01-02", 1, "   "))
}

func TestSortKeysAreChronological(t *testing.T) {
	sks := []string{
		CatchSK("2024-01-10", 1, "東"),
		CatchSK("2024-01-02", 30, "西"),
		CatchSK("2023-12-31", 2, ""),
		CatchSK("2024-01-02", 4, "東"),
	}
	sort.Strings(sks)

	var dates []string
	for _, sk := range sks {
		d, ok := DateFromSK(sk)
		assert.True(t, ok)
		dates = append(dates, d)
	}
	assert.Equal(t, []string{"2023-12-31", "2024-01-02", "2024-01-02", "2024-01-10"}, dates)
}

func TestDateBounds(t *testing.T) {
	day := "2024-01-02"
	inside := []string{
		CatchSK(day, 1, ""),
		CatchSK(day, 30, "zzz"),
		CatchSK(day, 99, "\U0010FFFF"),
	}
	for _, sk := range inside {
		assert.GreaterOrEqual(t, sk, DateFloor(day))
		assert.Less(t, sk, DateCeiling(day))
		assert.Greater(t, sk, AnyDateFloor())
	}

	assert.Greater(t, CatchSK("2024-01-03", 1, ""), DateCeiling(day))
	assert.Less(t, CatchSK("2024-01-01", 99, "zzz"), DateFloor(day))
}

func TestDateFromSK(t *testing.T) {
	tests := []struct {
		sk     string
		want   string
		wantOK bool
	}{
		{"DATE#2024-01-02#SLOT#01#PLACE#UNKNOWN", "2024-01-02", true},
		{"DATE#2024-01-02", "2024-01-02", true},
		{"DATE#", "", false},
		{"SLOT#01", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := DateFromSK(tt.sk)
		assert.Equal(t, tt.wantOK, ok, tt.sk)
		assert.Equal(t, tt.want, got, tt.sk)
	}
}

func TestKeyWithDoesNotAlias(t *testing.T) {
	base := New(TagFacility, "honmoku")
	a := base.With(TagFish, "アジ")
	b := base.With(TagFish, "サバ")
	assert.Equal(t, "FACILITY#honmoku#FISH#アジ", a.String())
	assert.Equal(t, "FACILITY#honmoku#FISH#サバ", b.String())
	assert.Equal(t, "FACILITY#honmoku", base.String())
}
