package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDates(t *testing.T) {
	t.Run("inclusive range", func(t *testing.T) {
		dates, err := ResolveDates(DateSpec{Start: "2024-01-30", End: "2024-02-02"})
		require.NoError(t, err)

		got := make([]string, 0, len(dates))
		for _, d := range dates {
			got = append(got, FormatDate(d))
		}
		assert.Equal(t, []string{"2024-01-30", "2024-01-31", "2024-02-01", "2024-02-02"}, got)
	})

	t.Run("single day range", func(t *testing.T) {
		dates, err := ResolveDates(DateSpec{Start: "2024-01-01", End: "2024-01-01"})
		require.NoError(t, err)
		assert.Len(t, dates, 1)
	})

	t.Run("range wins over target", func(t *testing.T) {
		dates, err := ResolveDates(DateSpec{Target: "2023-05-05", Start: "2024-01-01", End: "2024-01-02"})
		require.NoError(t, err)
		assert.Len(t, dates, 2)
	})

	t.Run("target date", func(t *testing.T) {
		dates, err := ResolveDates(DateSpec{Target: "2024-03-10"})
		require.NoError(t, err)
		require.Len(t, dates, 1)
		assert.Equal(t, "2024-03-10", FormatDate(dates[0]))
	})
}

func TestResolveDates_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name     string
		spec     DateSpec
		contains string
	}{
		{"start only", DateSpec{Start: "2024-01-01"}, "must be set together"},
		{"end only", DateSpec{End: "2024-01-01"}, "must be set together"},
		{"inverted", DateSpec{Start: "2024-01-03", End: "2024-01-01"}, "before or equal"},
		{"bad start", DateSpec{Start: "2024/01/01", End: "2024-01-02"}, "START_DATE"},
		{"bad end", DateSpec{Start: "2024-01-01", End: "tomorrow"}, "END_DATE"},
		{"bad target", DateSpec{Target: "20240101"}, "TARGET_DATE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveDates(tt.spec)
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, err.Error(), tt.contains)
			assert.Equal(t, "configuration", ErrorKind(err))
		})
	}
}

func TestYesterdayJST(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		// 15:30 UTC on Jan 1 is already 00:30 Jan 2 in Tokyo.
		{"after JST midnight", time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC), "2024-01-01"},
		{"before JST midnight", time.Date(2024, 1, 1, 14, 59, 0, 0, time.UTC), "2023-12-31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetClock(clockwork.NewFakeClockAt(tt.now))
			t.Cleanup(func() { SetClock(nil) })

			assert.Equal(t, tt.want, FormatDate(YesterdayJST()))

			dates, err := ResolveDates(DateSpec{})
			require.NoError(t, err)
			require.Len(t, dates, 1)
			assert.Equal(t, tt.want, FormatDate(dates[0]))
		})
	}
}

func TestUpstreamDate(t *testing.T) {
	assert.Equal(t, "2024/01/05", UpstreamDate(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)))
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "validation", ErrorKind(&ValidationError{Fields: []string{"tide"}}))
	assert.Equal(t, "no_data", ErrorKind(&NoDataError{Kind: KindCatchCount}))
	assert.Equal(t, "upstream", ErrorKind(&UpstreamError{Kind: KindCatchCount, Err: assert.AnError}))
	assert.Equal(t, "storage", ErrorKind(&StorageError{Op: "put daily", Err: assert.AnError}))
	assert.Equal(t, "internal", ErrorKind(assert.AnError))
}
