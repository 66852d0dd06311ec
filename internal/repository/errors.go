package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	// ErrUnavailable marks failures to reach the database at all. Unlike the
	// other sentinels it is transient and callers may retry.
	ErrUnavailable = errors.New("storage unavailable")
)

// IsUnavailable reports whether err is a transient storage failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
