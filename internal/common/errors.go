// Package common defines shared constants and sentinel errors used across
// eventhub layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")
	ErrorCapacity = errors.New("no spots available")

	// Service-level errors (generic/internal flow control).
	ErrorInternal          = errors.New("internal error")
	ErrorUnauthorized      = errors.New("unauthorized")
	ErrorForbidden         = errors.New("forbidden")
	ErrorProfileIncomplete = errors.New("profile incomplete")
	ErrorValidation        = errors.New("validation error")
	ErrorVerification      = errors.New("verification failed")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// IsBusiness reports whether err carries one of the expected outcome kinds
// that callers translate into client-facing responses.
func IsBusiness(err error) bool {
	for _, kind := range []error{
		ErrorNotFound, ErrorConflict, ErrorCapacity,
		ErrorUnauthorized, ErrorForbidden, ErrorProfileIncomplete, ErrorValidation,
		ErrorVerification,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
