package httpgin

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kirinyoku/museum-tix/internal/domain"
	"github.com/kirinyoku/museum-tix/internal/lifecycle"
	"github.com/kirinyoku/museum-tix/internal/service/auth"
)

const (
	ctxCaller = "caller"
	ctxUser   = "user"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func setCaller(c *gin.Context, u *domain.User) {
	c.Set(ctxUser, u)
	c.Set(ctxCaller, lifecycle.Caller{UserID: u.ID, IsAdmin: u.IsAdmin()})
}

// callerFrom returns the identity set by the auth middlewares. Requests
// without one act as anonymous callers.
func callerFrom(c *gin.Context) (lifecycle.Caller, bool) {
	v, ok := c.Get(ctxCaller)
	if !ok {
		return lifecycle.Caller{}, false
	}
	caller, ok := v.(lifecycle.Caller)
	return caller, ok
}

func userFrom(c *gin.Context) *domain.User {
	v, _ := c.Get(ctxUser)
	u, _ := v.(*domain.User)
	return u
}

// RequireAuth loads the token's user on every request, so role changes and
// deletions take effect immediately.
func RequireAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortErr(c, http.StatusUnauthorized, codeUnauthorized, msgNoToken)
			return
		}

		u, err := a.Authenticate(c.Request.Context(), token)
		switch {
		case err == nil:
			setCaller(c, u)
			c.Next()
		case errors.Is(err, auth.ErrUserNotFound):
			abortErr(c, http.StatusUnauthorized, codeUnauthorized, msgUserGone)
		case errors.Is(err, auth.ErrInvalidToken):
			abortErr(c, http.StatusUnauthorized, codeUnauthorized, msgTokenInvalid)
		default:
			respondErr(c, err)
		}
	}
}

// OptionalAuth attaches the caller when a valid token is present. A missing
// or invalid token leaves the request anonymous.
func OptionalAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if u, err := a.Authenticate(c.Request.Context(), token); err == nil {
				setCaller(c, u)
			}
		}
		c.Next()
	}
}

// AdminOnly must run after RequireAuth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFrom(c)
		if !ok {
			abortErr(c, http.StatusUnauthorized, codeUnauthorized, msgAuthRequired)
			return
		}
		if !caller.IsAdmin {
			abortErr(c, http.StatusForbidden, codeForbidden, msgAdminRequired)
			return
		}
		c.Next()
	}
}
