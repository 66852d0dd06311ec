package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("token is not valid")
	ErrUserNotFound       = errors.New("user not found")
)

// InputError describes a rejected registration or login field.
type InputError struct {
	Field  string
	Reason string
}

func (e InputError) Error() string {
	return e.Field + ": " + e.Reason
}
