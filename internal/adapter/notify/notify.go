// Package notify delivers ingestion run summaries.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/fishing-catch-etl/internal/domain"
)

// Notifier delivers one run summary.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// Log writes summaries to the structured log.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a log notifier.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(ctx context.Context, n domain.Notification) error {
	level := slog.LevelInfo
	if n.Status != "ok" {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, n.Subject,
		"run_id", n.RunID,
		"facility", n.Facility,
		"status", n.Status,
		"body", n.Body,
	)
	return nil
}

// Fanout sends each summary to every notifier, attempting all of them even
// when some fail.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, n domain.Notification) error {
	var errs []error
	for i, target := range f {
		if err := target.Notify(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("notifier %d (%T): %w", i, target, err))
		}
	}
	return errors.Join(errs...)
}
