package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kirinyoku/museum-tix/internal/lifecycle"
)

const fallbackReply = "I'm having trouble connecting to the museum archives. Please try again."

var ErrEmptyMessage = errors.New("message is required")

type DraftStore interface {
	Load(ctx context.Context, sessionID string, out any) (bool, error)
	Save(ctx context.Context, sessionID string, draft any) error
	Delete(ctx context.Context, sessionID string) error
}

type Assistant interface {
	Reply(ctx context.Context, message string) (string, error)
}

type Service struct {
	drafts    DraftStore
	assistant Assistant
	validate  *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
}

func New(drafts DraftStore, assistant Assistant, logger *slog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}

	return &Service{
		drafts:    drafts,
		assistant: assistant,
		validate:  validator.New(),
		logger:    logger,
		now:       now,
	}
}

// Reply is one bot turn. Booking is set once the visitor confirms the
// summary; the client pays and then posts it to the ticket endpoint.
type Reply struct {
	SessionID string                  `json:"session_id"`
	Reply     string                  `json:"reply"`
	Step      string                  `json:"step"`
	Booking   *lifecycle.BookingInput `json:"booking,omitempty"`
	Quote     *lifecycle.Quote        `json:"quote,omitempty"`
}

// Handle routes a message to the booking flow or to the assistant. An empty
// sessionID starts a new session.
func (s *Service) Handle(ctx context.Context, sessionID, message string) (*Reply, error) {
	const op = "service.chat.Handle"

	text := strings.TrimSpace(message)
	if text == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyMessage)
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	var d Draft
	if _, err := s.drafts.Load(ctx, sessionID, &d); err != nil {
		s.logger.Warn("chat draft unavailable, starting over", "session_id", sessionID, "error", err)
		d = Draft{}
	}

	if !d.inFlow(text) {
		return &Reply{
			SessionID: sessionID,
			Reply:     s.ask(ctx, text),
			Step:      d.Step.String(),
		}, nil
	}

	prompt, err := d.advance(text, today(s.now()), s.validate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := &Reply{SessionID: sessionID, Reply: prompt, Step: d.Step.String()}

	if d.Step == StepAwaitingPayment {
		booking := d.Booking
		out.Booking = &booking
		out.Quote = d.Quote
	}

	if d.Step == StepIdle {
		err = s.drafts.Delete(ctx, sessionID)
	} else {
		err = s.drafts.Save(ctx, sessionID, d)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (s *Service) ask(ctx context.Context, text string) string {
	if s.assistant == nil {
		return fallbackReply
	}

	reply, err := s.assistant.Reply(ctx, text)
	if err != nil {
		s.logger.Error("assistant request failed", "error", err)
		return fallbackReply
	}

	return reply
}
