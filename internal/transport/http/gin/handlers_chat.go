package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary  Chat with the museum assistant
// @Description  Typing "book" starts a guided booking. Once confirmed, the reply carries a booking ready for POST /api/tickets.
// @Tags     chat
// @Param    req  body  ChatRequest  true  "message and optional session id"
// @Success  200  {object}  chat.Reply
// @Failure  400  {object}  ErrorResponse
// @Failure  429  {object}  ErrorResponse
// @Router   /api/chat [post]
func (h *handlers) chat(c *gin.Context) {
	var req ChatRequest
	if !bindJSON(c, &req) {
		return
	}

	reply, err := h.d.Chat.Handle(c.Request.Context(), req.SessionID, req.Message)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, reply)
}
