package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kirinyoku/museum-tix/internal/domain"
)

// @Summary  Dashboard statistics
// @Tags     admin
// @Security BearerAuth
// @Param    top_by  query  string  false  "revenue (default) or count"
// @Success  200  {object}  admin.Dashboard
// @Failure  403  {object}  ErrorResponse
// @Router   /api/admin/dashboard/stats [get]
func (h *handlers) dashboardStats(c *gin.Context) {
	ranking := c.Query("top_by")
	d, err := h.d.Admin.Stats(c.Request.Context(), ranking)
	if err != nil {
		respondErr(c, err)
		return
	}

	writeDashboard(c, ranking, d)
}

// @Summary  List users with ticket totals
// @Tags     admin
// @Security BearerAuth
// @Success  200  {array}  domain.UserWithStats
// @Router   /api/admin/users [get]
func (h *handlers) listUsers(c *gin.Context) {
	users, err := h.d.Admin.Users(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(users), "users": users})
}

// @Summary  Tickets of one user
// @Tags     admin
// @Security BearerAuth
// @Param    id  path  string  true  "User ID (uuid)"
// @Success  200  {object}  TicketsResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /api/admin/users/{id}/tickets [get]
func (h *handlers) userTickets(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", msgInvalidUserID)
	if !ok {
		return
	}

	list, err := h.d.Admin.UserTickets(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, TicketsResponse{Success: true, Count: len(list), Tickets: list})
}

// @Summary  Change a user's role
// @Tags     admin
// @Security BearerAuth
// @Param    id   path  string             true  "User ID (uuid)"
// @Param    req  body  UpdateRoleRequest  true  "user or admin"
// @Success  200  {object}  UserResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /api/admin/users/{id}/role [put]
func (h *handlers) updateRole(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", msgInvalidUserID)
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	u, err := h.d.Admin.UpdateRole(c.Request.Context(), id, domain.Role(req.Role))
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, UserResponse{Success: true, Message: "User role updated to " + string(u.Role), User: u})
}

// @Summary  Delete a user and their tickets
// @Tags     admin
// @Security BearerAuth
// @Param    id  path  string  true  "User ID (uuid)"
// @Success  200  {object}  admin.DeleteResult
// @Failure  400  {object}  ErrorResponse  "cannot delete self"
// @Failure  404  {object}  ErrorResponse
// @Router   /api/admin/users/{id} [delete]
func (h *handlers) deleteUser(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", msgInvalidUserID)
	if !ok {
		return
	}
	caller, _ := callerFrom(c)

	res, err := h.d.Admin.DeleteUser(c.Request.Context(), caller.UserID, id)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"message":         "User and their tickets deleted successfully",
		"user_id":         res.UserID,
		"tickets_removed": res.TicketsRemoved,
	})
}
