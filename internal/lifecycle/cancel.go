package lifecycle

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kirinyoku/museum-tix/internal/domain"
)

const (
	// FullRefundDays is the minimum number of days before the visit for a
	// full refund.
	FullRefundDays = 7
	// MinCancelDays is the minimum number of days before the visit for any
	// cancellation at all.
	MinCancelDays = 2

	DefaultCancelReason = "User requested cancellation"
)

var halfRefund = decimal.RequireFromString("0.5")

// Caller is the request-scoped identity presented to the engine. The engine
// never looks credentials up itself.
type Caller struct {
	UserID  uuid.UUID
	IsAdmin bool
}

func (c Caller) Anonymous() bool {
	return c.UserID == uuid.Nil && !c.IsAdmin
}

type RefundTier string

const (
	TierNone RefundTier = "none"
	TierHalf RefundTier = "half"
	TierFull RefundTier = "full"
)

// Cancellation describes the mutation a permitted cancellation applies to a
// ticket. It is computed without side effects and persisted by the caller.
type Cancellation struct {
	Status         domain.TicketStatus
	CancelledAt    time.Time
	CancelReason   string
	PaymentStatus  domain.PaymentStatus
	RefundAmount   decimal.Decimal
	RefundedAt     *time.Time
	DaysUntilVisit int
	Tier           RefundTier
}

// Refunded reports whether the cancellation sets the refund fields.
func (c Cancellation) Refunded() bool {
	return c.RefundAmount.IsPositive()
}

// ApplyTo writes the mutation onto a ticket snapshot.
func (c Cancellation) ApplyTo(t *domain.Ticket) {
	cancelledAt := c.CancelledAt
	t.Status = c.Status
	t.CancelledAt = &cancelledAt
	t.CancelReason = c.CancelReason
	t.PaymentStatus = c.PaymentStatus
	if c.Refunded() {
		amount := c.RefundAmount
		t.RefundAmount = &amount
		t.RefundedAt = c.RefundedAt
	}
	t.UpdatedAt = c.CancelledAt
}

// DaysUntilVisit counts whole days from now to the start of the visit day,
// rounding partial days up.
func DaysUntilVisit(visit domain.Date, now time.Time) int {
	diff := visit.Time.Sub(now)
	return int(math.Ceil(float64(diff) / float64(24*time.Hour)))
}

// CanAccess applies the owner-or-admin rule.
func CanAccess(t *domain.Ticket, caller Caller) error {
	if t == nil {
		return ErrNotFound
	}
	if caller.IsAdmin || t.OwnedBy(caller.UserID) {
		return nil
	}
	return ErrForbidden
}

// EvaluateCancellation decides whether caller may cancel t at now and, if
// so, computes the resulting state. Checks run in a fixed order and the
// first failing one determines the error.
func EvaluateCancellation(t *domain.Ticket, caller Caller, reason string, now time.Time) (Cancellation, error) {
	if err := CanAccess(t, caller); err != nil {
		return Cancellation{}, err
	}

	if t.Status == domain.TicketCancelled {
		return Cancellation{}, ErrAlreadyCancelled
	}

	days := DaysUntilVisit(t.VisitDate, now)
	if days < MinCancelDays {
		return Cancellation{}, ErrTooLateToCancel
	}

	if reason == "" {
		reason = DefaultCancelReason
	}

	c := Cancellation{
		Status:         domain.TicketCancelled,
		CancelledAt:    now,
		CancelReason:   reason,
		PaymentStatus:  t.PaymentStatus,
		RefundAmount:   decimal.Zero,
		DaysUntilVisit: days,
		Tier:           TierNone,
	}

	if t.PaymentStatus != domain.PaymentPaid {
		return c, nil
	}

	switch {
	case days >= FullRefundDays:
		c.RefundAmount = t.Price
		c.Tier = TierFull
	default:
		c.RefundAmount = t.Price.Mul(halfRefund)
		c.Tier = TierHalf
	}

	if c.Refunded() {
		refundedAt := now
		c.PaymentStatus = domain.PaymentRefunded
		c.RefundedAt = &refundedAt
	}

	return c, nil
}
