package domain

import (
	"fmt"
	"time"
)

const (
	// ISODate is the layout of every stored and exposed date.
	ISODate = "2006-01-02"
	// upstreamDate is the layout the GraphQL API filters on.
	upstreamDate = "2006/01/02"
)

// JST is Japan Standard Time. Report days are JST calendar days.
var JST = time.FixedZone("JST", 9*60*60)

// DateSpec is the raw date input of an ingestion run. Start and End must be
// given together; Target is used when neither is set; with no input at all
// the run covers yesterday in JST.
type DateSpec struct {
	Target string
	Start  string
	End    string
}

// ResolveDates expands a DateSpec into the ordered list of days to ingest.
// Every failure is a ConfigurationError.
func ResolveDates(spec DateSpec) ([]time.Time, error) {
	if spec.Start != "" || spec.End != "" {
		if spec.Start == "" || spec.End == "" {
			return nil, &ConfigurationError{Msg: fmt.Sprintf(
				"START_DATE and END_DATE must be set together (START_DATE=%q, END_DATE=%q)", spec.Start, spec.End)}
		}
		start, err := ParseDate(spec.Start)
		if err != nil {
			return nil, &ConfigurationError{Msg: fmt.Sprintf("invalid START_DATE %q: expected YYYY-MM-DD", spec.Start)}
		}
		end, err := ParseDate(spec.End)
		if err != nil {
			return nil, &ConfigurationError{Msg: fmt.Sprintf("invalid END_DATE %q: expected YYYY-MM-DD", spec.End)}
		}
		if start.After(end) {
			return nil, &ConfigurationError{Msg: fmt.Sprintf(
				"START_DATE (%s) must be before or equal to END_DATE (%s)", spec.Start, spec.End)}
		}
		return DateRange(start, end), nil
	}

	if spec.Target != "" {
		d, err := ParseDate(spec.Target)
		if err != nil {
			return nil, &ConfigurationError{Msg: fmt.Sprintf("invalid TARGET_DATE %q: expected YYYY-MM-DD", spec.Target)}
		}
		return []time.Time{d}, nil
	}

	return []time.Time{YesterdayJST()}, nil
}

// DateRange lists every day from start to end inclusive.
func DateRange(start, end time.Time) []time.Time {
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// YesterdayJST returns the previous JST calendar day as a UTC-midnight date.
func YesterdayJST() time.Time {
	now := clock.Now().In(JST)
	y := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return y.AddDate(0, 0, -1)
}

// ParseDate parses an ISO calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(ISODate, s)
}

// FormatDate renders a day in ISO form.
func FormatDate(d time.Time) string {
	return d.Format(ISODate)
}

// UpstreamDate renders a day the way the GraphQL API filters on it.
func UpstreamDate(d time.Time) string {
	return d.Format(upstreamDate)
}
