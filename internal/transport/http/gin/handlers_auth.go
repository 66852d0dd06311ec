package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary  Register
// @Tags     auth
// @Param    req  body  RegisterRequest  true  "payload"
// @Success  201  {object}  auth.Session
// @Failure  400  {object}  ErrorResponse
// @Failure  429  {object}  ErrorResponse
// @Router   /api/auth/register [post]
func (h *handlers) register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	s, err := h.d.Auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, s)
}

// @Summary  Login
// @Tags     auth
// @Param    req  body  LoginRequest  true  "payload"
// @Success  200  {object}  auth.Session
// @Failure  401  {object}  ErrorResponse
// @Failure  429  {object}  ErrorResponse
// @Router   /api/auth/login [post]
func (h *handlers) login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	s, err := h.d.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, s)
}

// @Summary  Current user
// @Tags     auth
// @Security BearerAuth
// @Success  200  {object}  UserResponse
// @Failure  401  {object}  ErrorResponse
// @Router   /api/auth/me [get]
func (h *handlers) me(c *gin.Context) {
	c.JSON(http.StatusOK, UserResponse{Success: true, User: userFrom(c)})
}
