package services

import (
	"errors"
	"fmt"
	"strings"

	"secrettime-backend/models"
)

var (
	ErrNoPriceMatch     = errors.New("no treatment matches this price")
	ErrAmbiguousPrice   = errors.New("price matches several treatments; choose one")
	ErrNeckNotAllowed   = errors.New("neck add-on is not offered with this treatment")
	ErrNotEligible      = errors.New("customer has no retouch available")
	ErrNoActivePackage  = errors.New("customer has no package for this treatment")
	ErrPackageExhausted = errors.New("package has no sessions left")
	ErrZeroPrice        = errors.New("price must be greater than zero")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnknownCustomer  = errors.New("customer not found")
	ErrUnknownTreatment = errors.New("treatment not found")
)

// ValidationError is a rejected input. Nothing has been written when it is returned.
type ValidationError struct {
	Err    error
	Detail string
	// Candidates lists treatments the caller can pick from when the price was ambiguous.
	Candidates []TreatmentMatch
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Detail)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error, format string, args ...any) *ValidationError {
	return &ValidationError{Err: err, Detail: fmt.Sprintf(format, args...)}
}

// DuplicateCustomerError asks the caller to pick an existing customer or supply a mark.
type DuplicateCustomerError struct {
	Name          string
	ContactMethod string
	Candidates    []models.Customer
}

func (e *DuplicateCustomerError) Error() string {
	names := make([]string, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		names = append(names, c.ID.String())
	}
	return fmt.Sprintf("customer %q (%s) already exists: %s", e.Name, e.ContactMethod, strings.Join(names, ", "))
}

// IsValidation reports whether err is a rejected input rather than a storage failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
