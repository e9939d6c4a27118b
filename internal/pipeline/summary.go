package pipeline

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/fishing-catch-etl/internal/domain"
)

// Status is the overall outcome of a run.
type Status string

const (
	// StatusOK means every resolved date was ingested.
	StatusOK Status = "ok"
	// StatusPartial means at least one date failed or the run was cancelled.
	// A run where every date failed is still partial.
	StatusPartial Status = "partial"
	// StatusFailed means the run aborted before any date was processed.
	StatusFailed Status = "failed"
)

// DateResult describes one successfully ingested date.
type DateResult struct {
	Date    string
	Catches int
	RawKeys map[domain.Kind]string
	// Notes lists optional report kinds that could not be merged.
	Notes []string
}

// DateError describes one failed date.
type DateError struct {
	Date    string
	Kind    string
	Message string
}

// Result is the outcome of one Run.
type Result struct {
	RunID    string
	Facility string
	Status   Status

	// Total is the number of resolved dates; Attempted is how many were
	// started before the run ended.
	Total        int
	Attempted    int
	Succeeded    []DateResult
	Errors       []DateError
	TotalCatches int
	Cancelled    bool
}

// SucceededDates lists the ingested dates in processing order.
func (r Result) SucceededDates() []string {
	out := make([]string, len(r.Succeeded))
	for i, d := range r.Succeeded {
		out[i] = d.Date
	}
	return out
}

func summaryNotification(r Result) domain.Notification {
	n := domain.Notification{RunID: r.RunID, Facility: r.Facility, Status: string(r.Status)}

	var b strings.Builder
	if r.Status == StatusOK {
		n.Subject = fmt.Sprintf("[OK] fishing batch %s (%d dates)", r.Facility, len(r.Succeeded))
		b.WriteString("Fishing batch completed.\n\n")
	} else {
		n.Subject = fmt.Sprintf("[WARN] fishing batch %s (%d/%d success)", r.Facility, len(r.Succeeded), r.Total)
		b.WriteString("Fishing batch completed with errors.\n\n")
	}
	fmt.Fprintf(&b, "facility: %s\n", r.Facility)
	fmt.Fprintf(&b, "run id: %s\n", r.RunID)
	fmt.Fprintf(&b, "processed dates: %d\n", len(r.Succeeded))
	fmt.Fprintf(&b, "dates: %s\n", strings.Join(r.SucceededDates(), ", "))
	fmt.Fprintf(&b, "total catches: %d\n", r.TotalCatches)

	if len(r.Errors) > 0 {
		b.WriteString("\nerrors:\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "- %s: %s\n", e.Date, e.Message)
		}
	}

	var notes []string
	for _, d := range r.Succeeded {
		for _, note := range d.Notes {
			notes = append(notes, fmt.Sprintf("- %s: %s", d.Date, note))
		}
	}
	if len(notes) > 0 {
		b.WriteString("\nnotes:\n")
		b.WriteString(strings.Join(notes, "\n"))
		b.WriteString("\n")
	}

	if r.Cancelled {
		fmt.Fprintf(&b, "\ncancelled: %d of %d dates not attempted\n", r.Total-r.Attempted, r.Total)
	}

	n.Body = b.String()
	return n
}

func failureNotification(r Result, spec domain.DateSpec, err error) domain.Notification {
	var b strings.Builder
	fmt.Fprintf(&b, "Error: %v\n\n", err)
	fmt.Fprintf(&b, "facility: %s\n", r.Facility)
	fmt.Fprintf(&b, "run id: %s\n", r.RunID)
	fmt.Fprintf(&b, "TARGET_DATE=%q START_DATE=%q END_DATE=%q\n", spec.Target, spec.Start, spec.End)

	return domain.Notification{
		RunID:    r.RunID,
		Facility: r.Facility,
		Status:   string(StatusFailed),
		Subject:  fmt.Sprintf("[NG] fishing batch %s", r.Facility),
		Body:     b.String(),
	}
}
