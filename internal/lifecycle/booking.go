package lifecycle

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kirinyoku/museum-tix/internal/domain"
)

const (
	DefaultTicketType = "General Admission"
	DefaultExhibition = "Main Collection"
	DefaultCategory   = "Adult"
	DefaultGuestName  = "Guest"

	specialMarker = "special"
)

var (
	StandardUnitPrice = decimal.NewFromInt(15)
	SpecialUnitPrice  = decimal.NewFromInt(25)
)

// BookingInput is the caller-supplied part of a new ticket.
type BookingInput struct {
	Name          string               `json:"name,omitempty"`
	Email         string               `json:"email,omitempty"`
	TicketType    string               `json:"ticket_type,omitempty"`
	Exhibition    string               `json:"exhibition,omitempty"`
	VisitDate     string               `json:"visit_date"`
	Visitors      int                  `json:"visitors,omitempty"`
	Category      string               `json:"category,omitempty"`
	PaymentStatus domain.PaymentStatus `json:"payment_status,omitempty"`
}

// Quote is the price of a booking.
type Quote struct {
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

// EvaluateBookingPrice prices a booking: ticket types labelled "special"
// cost more per visitor than the standard type.
func EvaluateBookingPrice(ticketType string, visitors int) (Quote, error) {
	if visitors < 1 {
		return Quote{}, validationError("Visitors must be a positive number")
	}

	unit := StandardUnitPrice
	if strings.Contains(strings.ToLower(ticketType), specialMarker) {
		unit = SpecialUnitPrice
	}

	return Quote{
		UnitPrice: unit,
		Total:     unit.Mul(decimal.NewFromInt(int64(visitors))),
	}, nil
}

// NewTicket validates in, applies defaults and prices the booking. The owner
// is optional; when present its name and email fill the blanks.
func NewTicket(in BookingInput, owner *domain.User) (*domain.Ticket, error) {
	if strings.TrimSpace(in.VisitDate) == "" {
		return nil, validationError("Date is required")
	}

	visit, err := domain.ParseDate(strings.TrimSpace(in.VisitDate))
	if err != nil {
		return nil, validationError("%s", err.Error())
	}

	if in.Visitors == 0 {
		in.Visitors = 1
	}

	switch in.PaymentStatus {
	case "":
		in.PaymentStatus = domain.PaymentPending
	case domain.PaymentPending, domain.PaymentPaid:
	default:
		return nil, validationError("Invalid payment status %q", in.PaymentStatus)
	}

	t := &domain.Ticket{
		Name:          strings.TrimSpace(in.Name),
		Email:         strings.TrimSpace(in.Email),
		TicketType:    orDefault(in.TicketType, DefaultTicketType),
		Exhibition:    orDefault(in.Exhibition, DefaultExhibition),
		VisitDate:     visit,
		Visitors:      in.Visitors,
		Category:      orDefault(in.Category, DefaultCategory),
		Status:        domain.TicketBooked,
		PaymentStatus: in.PaymentStatus,
	}

	quote, err := EvaluateBookingPrice(t.TicketType, t.Visitors)
	if err != nil {
		return nil, err
	}
	t.UnitPrice = quote.UnitPrice
	t.Price = quote.Total

	if owner != nil {
		id := owner.ID
		t.UserID = &id
		if t.Name == "" {
			t.Name = owner.Name
		}
		if t.Email == "" {
			t.Email = owner.Email
		}
	}
	if t.Name == "" {
		t.Name = DefaultGuestName
	}

	return t, nil
}

func orDefault(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}
