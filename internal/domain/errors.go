package domain

import "errors"

var (
	// ErrNotFound is returned by callers that require an entity to exist.
	// Store lookups report absence with a nil result instead.
	ErrNotFound = errors.New("not found")

	// ErrDataIntegrity means a review references a user or hotel that is
	// missing at read time.
	ErrDataIntegrity = errors.New("data integrity violation")
)
