package tickets

import "errors"

var (
	// ErrAuthRequired is returned when an operation needs a signed-in caller.
	ErrAuthRequired = errors.New("authentication required")
	// ErrOwnerNotFound means the caller's account vanished between
	// authentication and booking.
	ErrOwnerNotFound = errors.New("owner account not found")
)
