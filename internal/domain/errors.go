package domain

import "errors"

// Error kinds returned by the cleaning, query, statistics and outlier
// components. Callers match them with errors.Is; the returned errors wrap
// them with detail about the offending field or value.
var (
	// ErrSchemaMismatch means a raw source lacks a required column.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrInvalidField means a request names a field the table does not have.
	ErrInvalidField = errors.New("invalid field")
	// ErrInvalidMethod means an unsupported outlier method was requested.
	ErrInvalidMethod = errors.New("invalid method")
	// ErrEmptyData means there is nothing to compute statistics over.
	ErrEmptyData = errors.New("empty data")
	// ErrInvalidBound means a numeric input could not be used as a number.
	ErrInvalidBound = errors.New("invalid bound")
)

// IsClientError reports whether err was caused by caller input rather than a
// fault in the service.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidField) ||
		errors.Is(err, ErrInvalidMethod) ||
		errors.Is(err, ErrEmptyData) ||
		errors.Is(err, ErrInvalidBound)
}
