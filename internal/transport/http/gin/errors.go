package httpgin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kirinyoku/museum-tix/internal/lifecycle"
	"github.com/kirinyoku/museum-tix/internal/repository"
	"github.com/kirinyoku/museum-tix/internal/service/admin"
	"github.com/kirinyoku/museum-tix/internal/service/auth"
	"github.com/kirinyoku/museum-tix/internal/service/chat"
	"github.com/kirinyoku/museum-tix/internal/service/tickets"
)

const (
	codeValidation      = "VALIDATION_ERROR"
	codeUnauthorized    = "UNAUTHORIZED"
	codeForbidden       = "FORBIDDEN"
	codeNotFound        = "NOT_FOUND"
	codeRateLimited     = "RATE_LIMITED"
	codeConflict        = "CONFLICT"
	codeUnavailable     = "SERVICE_UNAVAILABLE"
	codeDBUnavailable   = "DB_CONNECTION_ERROR"
	codeInternal        = "INTERNAL_ERROR"
	msgDBUnavailable    = "Database connection unavailable. Please try again later."
	msgInternal         = "Internal server error"
	msgAuthRequired     = "Authentication required"
	msgAdminRequired    = "Access denied. Admin privileges required."
	msgNoToken          = "No authentication token, access denied"
	msgTokenInvalid     = "Token is not valid"
	msgUserGone         = "User not found, access denied"
	msgInvalidTicketID  = "Invalid ticket id"
	msgInvalidUserID    = "Invalid user id"
	msgIdemInProgress   = "A request with this Idempotency-Key is still in progress"
	msgTooManyRequests  = "Too many requests, please slow down"
	msgMalformedPayload = "Malformed request body"
)

func abortErr(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Success: false, Error: code, Message: msg})
}

// respondErr maps service errors onto the JSON error envelope. Unexpected
// errors are attached to the context so the logging middleware reports them.
func respondErr(c *gin.Context, err error) {
	if k := lifecycle.KindOf(err); k != 0 {
		var le *lifecycle.Error
		errors.As(err, &le)
		abortErr(c, k.HTTPStatus(), k.String(), le.Message)
		return
	}

	var inputErr auth.InputError
	switch {
	case errors.As(err, &inputErr):
		abortErr(c, http.StatusBadRequest, codeValidation, inputErr.Error())

	case errors.Is(err, tickets.ErrAuthRequired):
		abortErr(c, http.StatusUnauthorized, codeUnauthorized, msgAuthRequired)
	case errors.Is(err, tickets.ErrOwnerNotFound):
		abortErr(c, http.StatusUnauthorized, codeUnauthorized, msgUserGone)

	case errors.Is(err, auth.ErrInvalidCredentials):
		abortErr(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	case errors.Is(err, auth.ErrEmailTaken):
		abortErr(c, http.StatusBadRequest, "USER_EXISTS", "User already exists")
	case errors.Is(err, auth.ErrInvalidToken):
		abortErr(c, http.StatusUnauthorized, codeUnauthorized, msgTokenInvalid)
	case errors.Is(err, auth.ErrUserNotFound):
		abortErr(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found")

	case errors.Is(err, admin.ErrUserNotFound):
		abortErr(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, admin.ErrInvalidRole):
		abortErr(c, http.StatusBadRequest, codeValidation, "Invalid role. Must be 'user' or 'admin'")
	case errors.Is(err, admin.ErrDeleteSelf):
		abortErr(c, http.StatusBadRequest, "CANNOT_DELETE_SELF", "Cannot delete your own account")
	case errors.Is(err, admin.ErrInvalidOrder):
		abortErr(c, http.StatusBadRequest, codeValidation, "Invalid ordering. Must be 'revenue' or 'count'")

	case errors.Is(err, chat.ErrEmptyMessage):
		abortErr(c, http.StatusBadRequest, codeValidation, "Message is required")

	case errors.Is(err, repository.ErrUnavailable):
		_ = c.Error(err)
		abortErr(c, http.StatusServiceUnavailable, codeDBUnavailable, msgDBUnavailable)
	case errors.Is(err, repository.ErrConflict):
		_ = c.Error(err)
		abortErr(c, http.StatusConflict, codeConflict, "The resource was changed concurrently, please retry")

	default:
		_ = c.Error(err)
		abortErr(c, http.StatusInternalServerError, codeInternal, msgInternal)
	}
}
