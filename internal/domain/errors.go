package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError reports bad run input, such as a half-specified or
// inverted date range. It aborts a run before any date is processed.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.Msg
}

// ValidationError reports required catch-count attributes that were absent
// or blank on the selected post.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields in catch count: [%s]", strings.Join(e.Fields, ", "))
}

// NoDataError reports that the upstream API returned no candidate post.
type NoDataError struct {
	Kind Kind
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no %s posts returned", e.Kind)
}

// UpstreamError wraps a terminal failure of the fetch collaborator.
type UpstreamError struct {
	Kind Kind
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// StorageError wraps a failed write to the archive or the key-value store.
// A date can be left half written: the daily summary and the catch batch
// are separate, non-transactional writes.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ErrorKind classifies err into the short label used in run results and
// metrics: "validation", "no_data", "upstream", "storage", "configuration",
// or "internal" for anything else.
func ErrorKind(err error) string {
	var (
		cfgErr      *ConfigurationError
		validErr    *ValidationError
		noDataErr   *NoDataError
		upstreamErr *UpstreamError
		storageErr  *StorageError
	)
	switch {
	case errors.As(err, &cfgErr):
		return "configuration"
	case errors.As(err, &validErr):
		return "validation"
	case errors.As(err, &noDataErr):
		return "no_data"
	case errors.As(err, &upstreamErr):
		return "upstream"
	case errors.As(err, &storageErr):
		return "storage"
	default:
		return "internal"
	}
}
