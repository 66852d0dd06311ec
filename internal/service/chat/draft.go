package chat

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kirinyoku/museum-tix/internal/domain"
	"github.com/kirinyoku/museum-tix/internal/lifecycle"
)

// Step is the position of a conversation in the booking flow.
type Step int

const (
	StepIdle Step = iota
	StepTicketType
	StepExhibition
	StepVisitDate
	StepVisitors
	StepCategory
	StepEmail
	StepConfirm
	StepAwaitingPayment
)

var stepNames = [...]string{
	"idle",
	"ticket_type",
	"exhibition",
	"visit_date",
	"visitors",
	"category",
	"email",
	"confirm",
	"awaiting_payment",
}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return "unknown"
	}
	return stepNames[s]
}

// Draft is a booking under construction, persisted between messages.
type Draft struct {
	Step    Step                   `json:"step"`
	Booking lifecycle.BookingInput `json:"booking"`
	Quote   *lifecycle.Quote       `json:"quote,omitempty"`
}

// advance consumes one answer for the current step and returns the bot's
// next prompt. Invalid answers keep the draft on the same step.
func (d *Draft) advance(text string, today domain.Date, validate *validator.Validate) (string, error) {
	switch d.Step {
	case StepIdle, StepAwaitingPayment:
		*d = Draft{Step: StepTicketType}
		return "Great! What type of ticket? (e.g., General Admission, Special Exhibition)", nil

	case StepTicketType:
		d.Booking.TicketType = orDefault(text, lifecycle.DefaultTicketType)
		d.Step = StepExhibition
		return "Which exhibition would you like to see? (e.g., Main Collection, Modern Art)", nil

	case StepExhibition:
		d.Booking.Exhibition = orDefault(text, lifecycle.DefaultExhibition)
		d.Step = StepVisitDate
		return fmt.Sprintf("Enter the date of your visit (YYYY-MM-DD). Today is %s", today), nil

	case StepVisitDate:
		visit, err := domain.ParseDate(strings.TrimSpace(text))
		if err != nil {
			return "That doesn't look like a date. Please use the format YYYY-MM-DD.", nil
		}
		if visit.Before(today.Time) {
			return fmt.Sprintf("That date is in the past. Please pick %s or later.", today), nil
		}
		d.Booking.VisitDate = visit.String()
		d.Step = StepVisitors
		return "How many visitors?", nil

	case StepVisitors:
		n, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil || n < 1 {
			n = 1
		}
		d.Booking.Visitors = n
		d.Step = StepCategory
		return "Which category? (e.g., Adult, Child, Student)", nil

	case StepCategory:
		d.Booking.Category = orDefault(text, lifecycle.DefaultCategory)
		d.Step = StepEmail
		return "Please enter your email address to receive the ticket.", nil

	case StepEmail:
		email := strings.TrimSpace(text)
		if err := validate.Var(email, "required,email"); err != nil {
			return "That email address doesn't look right. Please try again.", nil
		}
		d.Booking.Email = email

		q, err := lifecycle.EvaluateBookingPrice(d.Booking.TicketType, d.Booking.Visitors)
		if err != nil {
			return "", err
		}
		d.Quote = &q
		d.Step = StepConfirm
		return d.summary(), nil

	case StepConfirm:
		switch strings.ToLower(strings.TrimSpace(text)) {
		case "confirm":
			d.Step = StepAwaitingPayment
			return "Opening secure payment gateway...", nil
		case "cancel":
			*d = Draft{}
			return "Booking cancelled.", nil
		default:
			return "Type 'confirm' to pay or 'cancel' to abort.", nil
		}
	}

	return "", fmt.Errorf("unknown step %d", d.Step)
}

func (d *Draft) summary() string {
	b := d.Booking
	return fmt.Sprintf("Booking summary:\nTicket: %s\nExhibition: %s\nDate: %s\nVisitors: %d\nCategory: %s\nEmail: %s\nTotal Price: $%s\n\nType 'confirm' to proceed to payment.",
		b.TicketType, b.Exhibition, b.VisitDate, b.Visitors, b.Category, b.Email, d.Quote.Total.StringFixed(2))
}

// inFlow reports whether text belongs to the booking flow rather than to
// the assistant.
func (d *Draft) inFlow(text string) bool {
	if d.Step != StepIdle && d.Step != StepAwaitingPayment {
		return true
	}
	return strings.Contains(strings.ToLower(text), "book")
}

func orDefault(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

func today(now time.Time) domain.Date {
	return domain.DateOf(now.UTC())
}
