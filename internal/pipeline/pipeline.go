package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/fishing-catch-etl/internal/domain"
	"github.com/couchcryptid/fishing-catch-etl/internal/observability"
	"github.com/couchcryptid/fishing-catch-etl/internal/store"
)

// Fetcher retrieves every post of one report kind for a facility and day.
// It owns its retries and returns only terminal failures.
type Fetcher interface {
	Fetch(ctx context.Context, kind domain.Kind, facility string, date time.Time) (domain.FetchResult, error)
}

// Archiver stores a raw upstream response and returns its locator.
type Archiver interface {
	Put(ctx context.Context, facility, date string, kind domain.Kind, raw []byte) (string, error)
}

// Notifier delivers the run summary. Its failure never changes the run result.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

const (
	// notifyTimeout bounds summary delivery, which runs even after cancellation.
	notifyTimeout = 30 * time.Second
	// writeTimeout bounds the archive and store writes of a date once they
	// have started. They are not cut short by cancellation of the run.
	writeTimeout = 2 * time.Minute
)

// Options toggles the optional report kinds and injects test seams.
type Options struct {
	FieldCondition bool
	FishingReport  bool

	// Clock defaults to the real clock.
	Clock clockwork.Clock
	// NewRunID defaults to random UUIDs.
	NewRunID func() string
}

// Ingester runs the fetch, normalize, archive, persist sequence once per date.
type Ingester struct {
	fetcher  Fetcher
	archiver Archiver
	store    store.Writer
	notifier Notifier
	logger   *slog.Logger
	metrics  *observability.Metrics
	opts     Options
}

// New creates an Ingester with the given collaborators and observability.
func New(f Fetcher, a Archiver, s store.Writer, n Notifier, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Ingester {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.NewRunID == nil {
		opts.NewRunID = uuid.NewString
	}
	return &Ingester{
		fetcher:  f,
		archiver: a,
		store:    s,
		notifier: n,
		logger:   logger,
		metrics:  metrics,
		opts:     opts,
	}
}

// Run ingests every date the DateSpec resolves to, in chronological order, one
// at a time. A failed date is recorded in the result and the run moves on.
// Only setup failures, such as a bad date range, are returned as errors,
// after the failure summary has been sent. Cancellation is checked between
// dates; once ctx is done no further date is started, while a date that has
// begun writing is finished.
func (in *Ingester) Run(ctx context.Context, facility string, spec domain.DateSpec) (Result, error) {
	start := in.opts.Clock.Now()
	result := Result{
		RunID:    in.opts.NewRunID(),
		Facility: strings.TrimSpace(facility),
	}
	logger := in.logger.With("run_id", result.RunID, "facility", result.Facility)

	in.metrics.PipelineRunning.Set(1)
	defer in.metrics.PipelineRunning.Set(0)
	defer func() {
		in.metrics.RunsTotal.WithLabelValues(string(result.Status)).Inc()
		in.metrics.RunDuration.Observe(in.opts.Clock.Since(start).Seconds())
	}()

	dates, err := in.setup(result.Facility, spec)
	if err != nil {
		result.Status = StatusFailed
		logger.Error("ingestion setup failed", "error", err,
			"target_date", spec.Target, "start_date", spec.Start, "end_date", spec.End)
		in.notify(ctx, logger, failureNotification(result, spec, err))
		return result, err
	}
	result.Total = len(dates)
	logger.Info("ingestion started", "dates", len(dates))

	for _, day := range dates {
		if ctx.Err() != nil {
			result.Cancelled = true
			logger.Warn("ingestion cancelled", "reason", ctx.Err(), "remaining", result.Total-result.Attempted)
			break
		}
		result.Attempted++

		dr, err := in.ingestDate(ctx, result.Facility, day)
		if err != nil {
			kind := domain.ErrorKind(err)
			result.Errors = append(result.Errors, DateError{Date: dr.Date, Kind: kind, Message: err.Error()})
			in.metrics.DatesProcessed.WithLabelValues(kind).Inc()
			logger.Warn("date failed", "date", dr.Date, "kind", kind, "error", err)
			continue
		}

		result.Succeeded = append(result.Succeeded, dr)
		result.TotalCatches += dr.Catches
		in.metrics.DatesProcessed.WithLabelValues("ok").Inc()
		in.metrics.CatchRecordsWritten.Add(float64(dr.Catches))
		logger.Info("date ingested", "date", dr.Date, "catches", dr.Catches, "notes", len(dr.Notes))
	}

	result.Status = StatusOK
	if len(result.Errors) > 0 || result.Cancelled {
		result.Status = StatusPartial
	}
	logger.Info("ingestion finished",
		"status", result.Status,
		"succeeded", len(result.Succeeded),
		"failed", len(result.Errors),
		"total_catches", result.TotalCatches,
	)

	in.notify(ctx, logger, summaryNotification(result))
	return result, nil
}

func (in *Ingester) setup(facility string, spec domain.DateSpec) ([]time.Time, error) {
	if facility == "" {
		return nil, &domain.ConfigurationError{Msg: "facility is required"}
	}
	return domain.ResolveDates(spec)
}

// notify stamps and sends n. Delivery outlives cancellation of ctx so a
// cancelled run still reports what it did.
func (in *Ingester) notify(ctx context.Context, logger *slog.Logger, n domain.Notification) {
	n.SentAt = in.opts.Clock.Now()
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := in.notifier.Notify(nctx, n); err != nil {
		logger.Error("notification failed", "subject", n.Subject, "error", err)
	}
}

// ingestDate is the per-date unit. Nothing is archived or written unless the
// catch_count post was fetched and normalized. From the first write on, the
// date runs to completion even if ctx is cancelled, so a daily summary is
// never left without its catch records.
func (in *Ingester) ingestDate(ctx context.Context, facility string, day time.Time) (DateResult, error) {
	date := domain.FormatDate(day)
	res := DateResult{Date: date}

	fetched, err := in.fetch(ctx, domain.KindCatchCount, facility, day)
	if err != nil {
		return res, err
	}
	post, err := domain.PickLatest(domain.KindCatchCount, fetched.Posts)
	if err != nil {
		return res, err
	}
	daily, catches, err := domain.Normalize(post, facility, date)
	if err != nil {
		return res, err
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	key, err := in.archiver.Put(wctx, facility, date, domain.KindCatchCount, fetched.Raw)
	if err != nil {
		return res, &domain.StorageError{Op: "archive catch_count", Err: err}
	}
	daily.RawKeys[domain.KindCatchCount] = key

	if in.opts.FieldCondition {
		if note := in.addFieldCondition(ctx, facility, day, &daily); note != "" {
			res.Notes = append(res.Notes, note)
		}
	}
	if in.opts.FishingReport {
		if note := in.addFishingReports(ctx, facility, day, &daily); note != "" {
			res.Notes = append(res.Notes, note)
		}
	}

	dailyItem, err := store.DailyItem(daily)
	if err != nil {
		return res, &domain.StorageError{Op: "encode daily summary", Err: err}
	}
	if err := in.store.PutItem(wctx, store.TableDaily, dailyItem); err != nil {
		return res, &domain.StorageError{Op: "put daily summary", Err: err}
	}

	catchItems, err := store.CatchItems(catches)
	if err != nil {
		return res, &domain.StorageError{Op: "encode catch records", Err: err}
	}
	if len(catchItems) > 0 {
		if err := in.store.BatchPutItems(wctx, store.TableCatch, catchItems); err != nil {
			return res, &domain.StorageError{Op: "batch put catch records", Err: err}
		}
	}

	res.Catches = len(catches)
	res.RawKeys = daily.RawKeys
	return res, nil
}

// addFieldCondition merges the morning post into daily. Any failure is
// returned as a note and leaves daily untouched.
func (in *Ingester) addFieldCondition(ctx context.Context, facility string, day time.Time, daily *domain.DailySummary) string {
	kind := domain.KindFieldCondition
	fetched, err := in.fetch(ctx, kind, facility, day)
	if err != nil {
		return fmt.Sprintf("%s: %v", kind, err)
	}
	post, err := domain.PickLatest(kind, fetched.Posts)
	if err != nil {
		return fmt.Sprintf("%s: %v", kind, err)
	}
	key, err := in.archiver.Put(ctx, facility, daily.Date, kind, fetched.Raw)
	if err != nil {
		return fmt.Sprintf("%s: archive: %v", kind, err)
	}
	daily.RawKeys[kind] = key
	daily.FieldCondition = domain.NormalizeFieldCondition(post)
	return ""
}

// addFishingReports fills the intraday log. An empty day is not a note.
func (in *Ingester) addFishingReports(ctx context.Context, facility string, day time.Time, daily *domain.DailySummary) string {
	kind := domain.KindFishingReport
	fetched, err := in.fetch(ctx, kind, facility, day)
	if err != nil {
		return fmt.Sprintf("%s: %v", kind, err)
	}
	key, err := in.archiver.Put(ctx, facility, daily.Date, kind, fetched.Raw)
	if err != nil {
		return fmt.Sprintf("%s: archive: %v", kind, err)
	}
	daily.RawKeys[kind] = key
	daily.FishingReportLog = domain.NormalizeFishingReports(fetched.Posts)
	return ""
}

// fetch wraps the fetcher with metrics and guarantees failures surface as
// *domain.UpstreamError.
func (in *Ingester) fetch(ctx context.Context, kind domain.Kind, facility string, day time.Time) (domain.FetchResult, error) {
	start := in.opts.Clock.Now()
	res, err := in.fetcher.Fetch(ctx, kind, facility, day)
	in.metrics.FetchDuration.WithLabelValues(string(kind)).Observe(in.opts.Clock.Since(start).Seconds())

	switch {
	case err != nil:
		in.metrics.UpstreamRequests.WithLabelValues(string(kind), "error").Inc()
		var upErr *domain.UpstreamError
		if !errors.As(err, &upErr) {
			err = &domain.UpstreamError{Kind: kind, Err: err}
		}
		return domain.FetchResult{}, err
	case len(res.Posts) == 0:
		in.metrics.UpstreamRequests.WithLabelValues(string(kind), "empty").Inc()
	default:
		in.metrics.UpstreamRequests.WithLabelValues(string(kind), "success").Inc()
	}
	return res, nil
}
