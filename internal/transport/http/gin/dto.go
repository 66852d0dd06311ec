package httpgin

import (
	"github.com/shopspring/decimal"

	"github.com/kirinyoku/museum-tix/internal/domain"
	"github.com/kirinyoku/museum-tix/internal/lifecycle"
)

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateTicketRequest is the booking payload. Any price sent by the client
// is ignored.
type CreateTicketRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email" binding:"omitempty,email"`
	TicketType    string `json:"ticket_type"`
	Exhibition    string `json:"exhibition"`
	VisitDate     string `json:"visit_date"`
	Visitors      int    `json:"visitors" binding:"omitempty,min=1"`
	Category      string `json:"category"`
	PaymentStatus string `json:"payment_status" binding:"omitempty,oneof=Pending Paid Refunded"`
}

func (r CreateTicketRequest) toInput() lifecycle.BookingInput {
	return lifecycle.BookingInput{
		Name:          r.Name,
		Email:         r.Email,
		TicketType:    r.TicketType,
		Exhibition:    r.Exhibition,
		VisitDate:     r.VisitDate,
		Visitors:      r.Visitors,
		Category:      r.Category,
		PaymentStatus: domain.PaymentStatus(r.PaymentStatus),
	}
}

type CancelTicketRequest struct {
	Reason string `json:"reason"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

type TicketResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Ticket  *domain.Ticket `json:"ticket"`
}

type TicketsResponse struct {
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Tickets []domain.Ticket `json:"tickets"`
}

type CancelResponse struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message"`
	Ticket       *domain.Ticket  `json:"ticket"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
}

// QuoteResponse previews a cancellation without applying it.
type QuoteResponse struct {
	Success        bool                 `json:"success"`
	TicketID       string               `json:"ticket_id"`
	DaysUntilVisit int                  `json:"days_until_visit"`
	Tier           lifecycle.RefundTier `json:"tier"`
	RefundAmount   decimal.Decimal      `json:"refund_amount"`
}

type UserResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	User    *domain.User `json:"user"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database"`
}
