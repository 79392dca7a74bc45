package service

import (
	"errors"
	"fmt"
)

// Error taxonomy.  Every error returned by Service wraps exactly one of
// these, so callers branch with errors.Is and keep the detail for logs.
var (
	ErrValidation            = errors.New("invalid input")
	ErrDuplicateRegistration = errors.New("child is already registered in this class")
	ErrCapacityExhausted     = errors.New("not enough seats available")
	ErrSeatOccupied          = errors.New("seat is occupied")
	ErrNotFound              = errors.New("not found")
	ErrPersistence           = errors.New("persistence failure")
)

var taxonomy = []error{
	ErrValidation,
	ErrDuplicateRegistration,
	ErrCapacityExhausted,
	ErrSeatOccupied,
	ErrNotFound,
	ErrPersistence,
}

func validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// classify returns err unchanged when it already carries a taxonomy error
// and wraps it as a persistence failure otherwise.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, target := range taxonomy {
		if errors.Is(err, target) {
			return err
		}
	}
	return persistence(op, err)
}

// Message maps err to a short message suitable for end users.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "Please check the child's name and class."
	case errors.Is(err, ErrDuplicateRegistration):
		return "This child is already registered. Use ticket lookup to find the ticket."
	case errors.Is(err, ErrCapacityExhausted):
		return "Sorry, there are not enough seats left."
	case errors.Is(err, ErrSeatOccupied):
		return "An occupied seat cannot be blocked. Remove its registration first."
	case errors.Is(err, ErrNotFound):
		return "No matching registration was found."
	default:
		return "Something went wrong while saving. Please try again."
	}
}

// Reason is a stable, low-cardinality label for err used in metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDuplicateRegistration):
		return "duplicate"
	case errors.Is(err, ErrCapacityExhausted):
		return "capacity"
	case errors.Is(err, ErrSeatOccupied):
		return "seat_occupied"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "persistence"
	}
}
