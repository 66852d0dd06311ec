package admin

import (
	"errors"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidRole  = errors.New("invalid role, must be 'user' or 'admin'")
	ErrDeleteSelf   = errors.New("cannot delete your own account")
	ErrInvalidOrder = errors.New("invalid ordering, must be 'revenue' or 'count'")
)
