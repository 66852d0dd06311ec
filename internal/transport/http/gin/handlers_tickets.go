package httpgin

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	redisrepo "github.com/kirinyoku/museum-tix/internal/repository/redis"
)

const idemLockTTL = 60 * time.Second

// @Summary  Book a ticket (idempotent)
// @Tags     tickets
// @Param    Idempotency-Key  header  string               false  "client generated key"
// @Param    req              body    CreateTicketRequest  true   "payload"
// @Success  201  {object}  TicketResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse  "idempotency key in progress"
// @Failure  503  {object}  ErrorResponse
// @Router   /api/tickets [post]
func (h *handlers) createTicket(c *gin.Context) {
	var req CreateTicketRequest
	if !bindJSON(c, &req) {
		return
	}

	caller, _ := callerFrom(c)
	ctx := c.Request.Context()
	idem := h.d.Idempotency

	idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	var idemStorageKey string
	if idem != nil && idemKey != "" {
		scope := "anon:" + c.ClientIP()
		if !caller.Anonymous() {
			scope = caller.UserID.String()
		}
		idemStorageKey = redisrepo.KeyIdemTicket(scope, idemKey)

		if payload, ok, _ := idem.GetResult(ctx, idemStorageKey); ok {
			replay(c, idemKey, payload)
			return
		}

		locked, err := idem.AcquireLock(ctx, idemStorageKey, idemLockTTL)
		if err != nil {
			h.d.Logger.Warn("idempotency store unavailable", "error", err)
			idemStorageKey = ""
		} else if !locked {
			if payload, ok, _ := idem.GetResult(ctx, idemStorageKey); ok {
				replay(c, idemKey, payload)
				return
			}
			c.Header("Retry-After", "1")
			abortErr(c, http.StatusConflict, codeConflict, msgIdemInProgress)
			return
		}
	}

	t, err := h.d.Tickets.Create(ctx, req.toInput(), caller)
	if err != nil {
		if idemStorageKey != "" {
			_ = idem.Release(ctx, idemStorageKey)
		}
		respondErr(c, err)
		return
	}

	resp := TicketResponse{Success: true, Message: "Ticket booked successfully", Ticket: t}

	if idemStorageKey != "" {
		b, _ := json.Marshal(resp)
		if err := idem.SaveResult(ctx, idemStorageKey, string(b)); err != nil {
			h.d.Logger.Warn("save idempotent result", "error", err)
		}
		c.Header("Idempotency-Key", idemKey)
	}

	c.JSON(http.StatusCreated, resp)
}

func replay(c *gin.Context, idemKey, payload string) {
	c.Header("Idempotency-Key", idemKey)
	c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
}

// @Summary  List tickets
// @Description  Admins see every ticket, users their own. Newest first.
// @Tags     tickets
// @Security BearerAuth
// @Success  200  {object}  TicketsResponse
// @Failure  401  {object}  ErrorResponse
// @Router   /api/tickets [get]
func (h *handlers) listTickets(c *gin.Context) {
	caller, _ := callerFrom(c)

	list, err := h.d.Tickets.List(c.Request.Context(), caller)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, TicketsResponse{Success: true, Count: len(list), Tickets: list})
}

// @Summary  Get ticket
// @Tags     tickets
// @Security BearerAuth
// @Param    id  path  string  true  "Ticket ID (uuid)"
// @Success  200  {object}  TicketResponse
// @Failure  403  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /api/tickets/{id} [get]
func (h *handlers) getTicket(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", msgInvalidTicketID)
	if !ok {
		return
	}
	caller, _ := callerFrom(c)

	t, err := h.d.Tickets.Get(c.Request.Context(), id, caller)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, TicketResponse{Success: true, Ticket: t})
}

// @Summary  Preview a cancellation
// @Description  Runs the refund rules at the current time without cancelling.
// @Tags     tickets
// @Security BearerAuth
// @Param    id  path  string  true  "Ticket ID (uuid)"
// @Success  200  {object}  QuoteResponse
// @Failure  400  {object}  ErrorResponse  "already cancelled / too late"
// @Failure  403  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /api/tickets/{id}/cancellation [get]
func (h *handlers) quoteCancellation(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", msgInvalidTicketID)
	if !ok {
		return
	}
	caller, _ := callerFrom(c)

	res, err := h.d.Tickets.Quote(c.Request.Context(), id, caller, "")
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, QuoteResponse{
		Success:        true,
		TicketID:       id.String(),
		DaysUntilVisit: res.Cancellation.DaysUntilVisit,
		Tier:           res.Cancellation.Tier,
		RefundAmount:   res.Cancellation.RefundAmount,
	})
}

// @Summary  Cancel ticket
// @Description  7 or more days before the visit refunds 100%, 2 to 6 days 50%, under 2 days is rejected.
// @Tags     tickets
// @Security BearerAuth
// @Param    id   path  string               true   "Ticket ID (uuid)"
// @Param    req  body  CancelTicketRequest  false  "optional reason"
// @Success  200  {object}  CancelResponse
// @Failure  400  {object}  ErrorResponse  "already cancelled / too late"
// @Failure  403  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /api/tickets/{id}/cancel [post]
func (h *handlers) cancelTicket(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", msgInvalidTicketID)
	if !ok {
		return
	}

	var req CancelTicketRequest
	if c.Request.ContentLength != 0 {
		if !bindJSON(c, &req) {
			return
		}
	}
	caller, _ := callerFrom(c)

	res, err := h.d.Tickets.Cancel(c.Request.Context(), id, caller, req.Reason)
	if err != nil {
		respondErr(c, err)
		return
	}

	msg := "Ticket cancelled successfully."
	if res.Cancellation.Refunded() {
		msg = "Ticket cancelled successfully. Refund of $" + res.Cancellation.RefundAmount.StringFixed(2) +
			" will be processed within 5-7 business days."
	}

	c.JSON(http.StatusOK, CancelResponse{
		Success:      true,
		Message:      msg,
		Ticket:       res.Ticket,
		RefundAmount: res.Cancellation.RefundAmount,
	})
}
