package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/fishing-catch-etl/internal/domain"
	"github.com/couchcryptid/fishing-catch-etl/internal/query"
)

// Lookup answers the read API's questions.
type Lookup interface {
	Series(ctx context.Context, facility, fish string, w query.Window) (query.Series, error)
	Day(ctx context.Context, facility, date string) (domain.DailySummary, bool, error)
}

type seriesParams struct {
	Fish     string `query:"fish" validate:"required"`
	Facility string `query:"facility" validate:"required"`
	From     string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To       string `query:"to" validate:"omitempty,datetime=2006-01-02"`
}

type dayParams struct {
	Date     string `query:"date" validate:"required,datetime=2006-01-02"`
	Facility string `query:"facility" validate:"required"`
}

// API serves catch series and daily summaries as JSON.
type API struct {
	lookup          Lookup
	defaultFacility string
	validate        *validator.Validate
	logger          *slog.Logger
}

// NewAPI creates the read API. Requests without a facility parameter use
// defaultFacility.
func NewAPI(lookup Lookup, defaultFacility string, logger *slog.Logger) *API {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report query parameter names rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("query"); name != "" {
			return name
		}
		return fld.Name
	})
	return &API{
		lookup:          lookup,
		defaultFacility: strings.TrimSpace(defaultFacility),
		validate:        v,
		logger:          logger,
	}
}

// Routes returns the API router.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Get("/series", a.handleSeries)
	r.Get("/day", a.handleDay)
	return r
}

func (a *API) handleSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := seriesParams{
		Fish:     strings.TrimSpace(q.Get("fish")),
		Facility: a.facility(q.Get("facility")),
		From:     strings.TrimSpace(q.Get("from")),
		To:       strings.TrimSpace(q.Get("to")),
	}
	if !a.check(w, p) {
		return
	}
	// Both are YYYY-MM-DD by now, so string order is date order.
	if p.From != "" && p.To != "" && p.From > p.To {
		writeError(w, http.StatusBadRequest, "invalid query param: from")
		return
	}

	series, err := a.lookup.Series(r.Context(), p.Facility, p.Fish, query.Window{From: p.From, To: p.To})
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, series)
}

func (a *API) handleDay(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := dayParams{
		Date:     strings.TrimSpace(q.Get("date")),
		Facility: a.facility(q.Get("facility")),
	}
	if !a.check(w, p) {
		return
	}

	day, found, err := a.lookup.Day(r.Context(), p.Facility, p.Date)
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, day)
}

func (a *API) facility(raw string) string {
	if f := strings.TrimSpace(raw); f != "" {
		return f
	}
	return a.defaultFacility
}

// check validates p and writes a 400 for the first failing parameter.
func (a *API) check(w http.ResponseWriter, p any) bool {
	err := a.validate.Struct(p)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	fe := verrs[0]
	if fe.Tag() == "required" {
		writeError(w, http.StatusBadRequest, "missing query param: "+fe.Field())
	} else {
		writeError(w, http.StatusBadRequest, "invalid query param: "+fe.Field())
	}
	return false
}

func (a *API) internalError(w http.ResponseWriter, r *http.Request, err error) {
	a.logger.Error("lookup failed", "path", r.URL.Path, "query", r.URL.RawQuery, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
