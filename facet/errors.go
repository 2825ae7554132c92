/*
errors.go - Centralized error types for the facet engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers match on the sentinels with errors.Is and inspect the structured
  errors with errors.As.

ERROR CATEGORIES:
  1. Validation errors - rejected before any query runs
  2. Data quality      - unrecognized stored periods (logged, never fatal)
  3. Store errors      - timeout / connectivity, surfaced for caller retry

SEE ALSO:
  - engine.go: Classifies store failures
  - api/handlers.go: Maps categories to HTTP status codes
*/
package facet

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidFacet is returned when a selection names an unknown dimension.
	ErrInvalidFacet = errors.New("invalid facet")

	// ErrInvalidFacetValue is returned when a selected value cannot be used
	// for its dimension (e.g. a malformed period).
	ErrInvalidFacetValue = errors.New("invalid facet value")

	// ErrInvalidSortColumn is returned when sortBy is not an allow-listed key.
	ErrInvalidSortColumn = errors.New("invalid sort column")

	// ErrInvalidSortDirection is returned for anything other than asc/desc.
	ErrInvalidSortDirection = errors.New("invalid sort direction")

	// ErrInvalidPage is returned when page < 1.
	ErrInvalidPage = errors.New("invalid page")

	// ErrInvalidPageSize is returned when pageSize <= 0.
	ErrInvalidPageSize = errors.New("invalid page size")

	// ErrUnrecognizedPeriodFormat marks a period that is neither YYYY-MM-DD nor YYYY-MM.
	ErrUnrecognizedPeriodFormat = errors.New("unrecognized period format")

	// ErrStoreTimeout is returned when an underlying query exceeded its deadline.
	ErrStoreTimeout = errors.New("store timeout")

	// ErrStoreUnavailable is returned on connectivity or driver failures.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNoPeriodDimension is returned by PeriodSummary when the catalog has no period dimension.
	ErrNoPeriodDimension = errors.New("catalog has no period dimension")

	// ErrInvalidCatalog is returned when a catalog definition is inconsistent.
	ErrInvalidCatalog = errors.New("invalid catalog")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidFacetError names the offending dimension (and value, if any).
type InvalidFacetError struct {
	Dimension string
	Value     string
	Err       error // ErrInvalidFacet or ErrInvalidFacetValue
}

func (e *InvalidFacetError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%v: %s=%q", e.Err, e.Dimension, e.Value)
	}
	return fmt.Sprintf("%v: %q", e.Err, e.Dimension)
}

func (e *InvalidFacetError) Unwrap() error {
	return e.Err
}

// InvalidSortError names the rejected sort key or direction.
type InvalidSortError struct {
	Value string
	Err   error
}

func (e *InvalidSortError) Error() string {
	return fmt.Sprintf("%v: %q", e.Err, e.Value)
}

func (e *InvalidSortError) Unwrap() error {
	return e.Err
}

// InvalidPageError carries the rejected page or page size.
type InvalidPageError struct {
	Value int
	Err   error
}

func (e *InvalidPageError) Error() string {
	return fmt.Sprintf("%v: %d", e.Err, e.Value)
}

func (e *InvalidPageError) Unwrap() error {
	return e.Err
}

// PeriodFormatError carries the raw value that failed to normalize.
type PeriodFormatError struct {
	Raw string
}

func (e *PeriodFormatError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnrecognizedPeriodFormat, e.Raw)
}

func (e *PeriodFormatError) Unwrap() error {
	return ErrUnrecognizedPeriodFormat
}

// StoreError wraps a failed store call with enough context to retry the
// whole operation. It matches both its Kind sentinel and the driver cause.
type StoreError struct {
	Op        string // count, count_by, fetch
	Dimension string // set for count_by
	Kind      error  // ErrStoreTimeout or ErrStoreUnavailable
	Err       error
}

func (e *StoreError) Error() string {
	if e.Dimension != "" {
		return fmt.Sprintf("%v: %s(%s): %v", e.Kind, e.Op, e.Dimension, e.Err)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidFacet) ||
		errors.Is(err, ErrInvalidFacetValue) ||
		errors.Is(err, ErrInvalidSortColumn) ||
		errors.Is(err, ErrInvalidSortDirection) ||
		errors.Is(err, ErrInvalidPage) ||
		errors.Is(err, ErrInvalidPageSize)
}

// IsTimeout returns true if a store query exceeded its deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrStoreTimeout)
}

// IsRetryable returns true if retrying the whole operation might succeed.
// The engine never retries on its own.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreTimeout) || errors.Is(err, ErrStoreUnavailable)
}
