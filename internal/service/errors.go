// Package service holds the business rules of the booking API: the session
// lifecycle, promo code validation and discounting, checkout and the
// background jobs that support them.  Handlers translate the errors defined
// here into HTTP responses.
package service

import (
	"errors"

	"github.com/iliyamo/hotel-booking/internal/repository"
)

var (
	// ErrValidation marks client-fixable input problems (400).
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized covers a missing or unusable credential (401).
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is the single login failure for both an unknown
	// username and a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidOrExpiredToken is returned for any refresh or access token
	// that cannot be used, without saying why.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	// ErrNotApplicable is a promo code that exists but cannot be used in the
	// given context.  See IneligibleError for the reason.
	ErrNotApplicable = errors.New("promo code not applicable")

	ErrForbidden   = repository.ErrForbidden
	ErrNotFound    = repository.ErrNotFound
	ErrConflict    = repository.ErrConflict
	ErrPersistence = repository.ErrPersistence
)

// ValidationError names the offending field.  It matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IneligibleError carries the discount engine's verdict.  It matches
// ErrNotApplicable.
type IneligibleError struct {
	Reason Reason
}

func (e *IneligibleError) Error() string { return e.Reason.Message() }

func (e *IneligibleError) Is(target error) bool { return target == ErrNotApplicable }
