package services

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("concurrent modification")
	// ErrDoubleBooking is returned by approve when another confirmed
	// reservation of the same bungalow overlaps the stay.
	ErrDoubleBooking = errors.New("bungalow already booked for these dates")
)

// ErrorCode is the short label used in metrics for a service error.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDoubleBooking):
		return "double_booking"
	case errors.Is(err, ErrConflict):
		return "conflict"
	}
	return "error"
}

// isDuplicateKey detects unique-index violations on MySQL (1062) and on the
// sqlite driver used by the tests.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var merr *mysql.MySQLError
	if errors.As(err, &merr) {
		return merr.Number == 1062
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "duplicate entry") || strings.Contains(lower, "unique constraint failed")
}

// isForeignKeyViolation detects a row that is still referenced (MySQL 1451).
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var merr *mysql.MySQLError
	if errors.As(err, &merr) {
		return merr.Number == 1451
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}
