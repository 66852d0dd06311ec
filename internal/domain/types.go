package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketBooked    TicketStatus = "Booked"
	TicketConfirmed TicketStatus = "Confirmed"
	TicketCancelled TicketStatus = "Cancelled"
	TicketRefunded  TicketStatus = "Refunded"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketBooked, TicketConfirmed, TicketCancelled, TicketRefunded:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "Pending"
	PaymentPaid     PaymentStatus = "Paid"
	PaymentRefunded PaymentStatus = "Refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentRefunded:
		return true
	}
	return false
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Ticket is a booking record for a museum visit.
//
// Descriptive fields and the owner are written once at creation. Only the
// status, payment and cancellation fields change afterwards, and the
// cancellation fields are never cleared once set.
type Ticket struct {
	ID            uuid.UUID        `json:"id"`
	UserID        *uuid.UUID       `json:"user_id,omitempty"`
	Name          string           `json:"name"`
	Email         string           `json:"email,omitempty"`
	TicketType    string           `json:"ticket_type"`
	Exhibition    string           `json:"exhibition"`
	VisitDate     Date             `json:"visit_date"`
	Visitors      int              `json:"visitors"`
	Category      string           `json:"category"`
	UnitPrice     decimal.Decimal  `json:"unit_price"`
	Price         decimal.Decimal  `json:"price"`
	Status        TicketStatus     `json:"status"`
	PaymentStatus PaymentStatus    `json:"payment_status"`
	CancelledAt   *time.Time       `json:"cancelled_at,omitempty"`
	CancelReason  string           `json:"cancel_reason,omitempty"`
	RefundAmount  *decimal.Decimal `json:"refund_amount,omitempty"`
	RefundedAt    *time.Time       `json:"refunded_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// OwnedBy reports whether userID is the ticket's owner. Guest tickets have
// no owner.
func (t *Ticket) OwnedBy(userID uuid.UUID) bool {
	return t.UserID != nil && *t.UserID == userID
}

type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type UserWithStats struct {
	User
	TicketCount int64           `json:"ticket_count"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
}

// TicketWithOwner is a ticket joined with its owner's display fields for the
// admin dashboard.
type TicketWithOwner struct {
	Ticket
	OwnerName  string `json:"owner_name,omitempty"`
	OwnerEmail string `json:"owner_email,omitempty"`
}

type StatusCount struct {
	Status TicketStatus `json:"status"`
	Count  int64        `json:"count"`
}

type ExhibitionStats struct {
	Exhibition string          `json:"exhibition"`
	Count      int64           `json:"count"`
	Revenue    decimal.Decimal `json:"revenue"`
}

type TicketTotals struct {
	TotalTickets       int64
	ActiveTickets      int64
	CancelledTickets   int64
	TotalRevenue       decimal.Decimal
	AverageTicketPrice decimal.Decimal
	TotalRefunded      decimal.Decimal
}
