package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/museum-tix/internal/domain"
	"github.com/kirinyoku/museum-tix/internal/lifecycle"
	"github.com/kirinyoku/museum-tix/internal/repository"
	postgresrepo "github.com/kirinyoku/museum-tix/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/museum-tix/internal/repository/redis"
	"github.com/kirinyoku/museum-tix/internal/uow"
)

type TicketStore interface {
	Create(ctx context.Context, t *domain.Ticket) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	List(ctx context.Context, f postgresrepo.TicketFilter) ([]domain.Ticket, error)
	MarkCancelled(ctx context.Context, t *domain.Ticket) error
}

type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type Transactor interface {
	Do(ctx context.Context, fn func(ctx context.Context, after func(uow.AfterCommit)) error) error
}

// Notifier queues customer emails. Implementations must not block.
type Notifier interface {
	TicketBooked(t domain.Ticket)
	TicketCancelled(t domain.Ticket)
}

// ChangePublisher fans a committed ticket change out to caches and other
// instances.
type ChangePublisher interface {
	TicketChanged(ctx context.Context, kind string, ticketID uuid.UUID)
}

type Recorder interface {
	ObserveBooking(t domain.Ticket)
	ObserveCancellation(c lifecycle.Cancellation)
}

type Deps struct {
	Tickets  TicketStore
	Users    UserLookup
	Tx       Transactor
	Notifier Notifier
	Changes  ChangePublisher
	Metrics  Recorder
	Logger   *slog.Logger
	Now      func() time.Time
}

// CancelResult is a committed cancellation together with the ticket as it
// is stored afterwards.
type CancelResult struct {
	Ticket       *domain.Ticket
	Cancellation lifecycle.Cancellation
}

type Service struct {
	tickets  TicketStore
	users    UserLookup
	tx       Transactor
	notifier Notifier
	changes  ChangePublisher
	metrics  Recorder
	logger   *slog.Logger
	now      func() time.Time
}

func New(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	return &Service{
		tickets:  d.Tickets,
		users:    d.Users,
		tx:       d.Tx,
		notifier: d.Notifier,
		changes:  d.Changes,
		metrics:  d.Metrics,
		logger:   d.Logger,
		now:      d.Now,
	}
}

// Create books a ticket. Anonymous callers produce guest tickets; signed-in
// callers own theirs. The price is always computed server side.
//
// Returns:
//   - *domain.Ticket: the stored ticket.
//   - error: a lifecycle.KindValidation error for bad input.
//   - error: tickets.ErrOwnerNotFound if the caller's account no longer exists.
func (s *Service) Create(ctx context.Context, in lifecycle.BookingInput, caller lifecycle.Caller) (*domain.Ticket, error) {
	const op = "service.tickets.Create"

	var owner *domain.User
	if caller.UserID != uuid.Nil {
		u, err := s.users.GetByID(ctx, caller.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%s: %w", op, ErrOwnerNotFound)
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		owner = u
	}

	t, err := lifecycle.NewTicket(in, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().UTC()
	t.ID = uuid.New()
	t.CreatedAt = now
	t.UpdatedAt = now

	err = s.tx.Do(ctx, func(ctx context.Context, after func(uow.AfterCommit)) error {
		if err := s.tickets.Create(ctx, t); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrOwnerNotFound
			}
			return err
		}

		booked := *t
		after(func(ctx context.Context) {
			s.afterBooking(ctx, booked)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

// List returns the caller's tickets newest first, or every ticket for an
// admin.
func (s *Service) List(ctx context.Context, caller lifecycle.Caller) ([]domain.Ticket, error) {
	const op = "service.tickets.List"

	if caller.Anonymous() {
		return nil, fmt.Errorf("%s: %w", op, ErrAuthRequired)
	}

	var f postgresrepo.TicketFilter
	if !caller.IsAdmin {
		id := caller.UserID
		f.UserID = &id
	}

	list, err := s.tickets.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, caller lifecycle.Caller) (*domain.Ticket, error) {
	const op = "service.tickets.Get"

	t, err := s.load(ctx, id, s.tickets.Get)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := lifecycle.CanAccess(t, caller); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

// Quote evaluates a cancellation at the current time without persisting
// anything. It fails exactly where Cancel would.
func (s *Service) Quote(ctx context.Context, id uuid.UUID, caller lifecycle.Caller, reason string) (CancelResult, error) {
	const op = "service.tickets.Quote"

	t, err := s.load(ctx, id, s.tickets.Get)
	if err != nil {
		return CancelResult{}, fmt.Errorf("%s: %w", op, err)
	}

	c, err := lifecycle.EvaluateCancellation(t, caller, reason, s.now().UTC())
	if err != nil {
		return CancelResult{}, fmt.Errorf("%s: %w", op, err)
	}

	return CancelResult{Ticket: t, Cancellation: c}, nil
}

// Cancel cancels a ticket and computes its refund.
//
// The ticket row is locked for the duration of the transaction and the
// write only lands if the ticket is still uncancelled, so concurrent
// requests for one ticket produce exactly one success.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: ticket to cancel.
//   - caller: authenticated identity; owner or admin.
//   - reason: free text, defaulted when empty.
//
// Returns:
//   - CancelResult: the updated ticket and the applied cancellation.
//   - error: lifecycle.ErrNotFound, ErrForbidden, ErrAlreadyCancelled or ErrTooLateToCancel.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, caller lifecycle.Caller, reason string) (CancelResult, error) {
	const op = "service.tickets.Cancel"

	now := s.now().UTC()

	var res CancelResult
	err := s.tx.Do(ctx, func(ctx context.Context, after func(uow.AfterCommit)) error {
		t, err := s.load(ctx, id, s.tickets.GetForUpdate)
		if err != nil {
			return err
		}

		c, err := lifecycle.EvaluateCancellation(t, caller, reason, now)
		if err != nil {
			return err
		}

		c.ApplyTo(t)

		if err := s.tickets.MarkCancelled(ctx, t); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return lifecycle.ErrAlreadyCancelled
			}
			return err
		}

		res = CancelResult{Ticket: t, Cancellation: c}

		cancelled := *t
		after(func(ctx context.Context) {
			s.afterCancellation(ctx, cancelled, c)
		})

		return nil
	})
	if err != nil {
		return CancelResult{}, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}

func (s *Service) load(
	ctx context.Context,
	id uuid.UUID,
	get func(context.Context, uuid.UUID) (*domain.Ticket, error),
) (*domain.Ticket, error) {
	t, err := get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, lifecycle.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *Service) afterBooking(ctx context.Context, t domain.Ticket) {
	if s.metrics != nil {
		s.metrics.ObserveBooking(t)
	}
	if s.changes != nil {
		s.changes.TicketChanged(ctx, redisrepo.ChangeBooked, t.ID)
	}
	if s.notifier != nil && t.Email != "" {
		s.notifier.TicketBooked(t)
	}

	s.logger.Info("ticket booked",
		"ticket_id", t.ID,
		"visit_date", t.VisitDate.String(),
		"price", t.Price.String(),
	)
}

func (s *Service) afterCancellation(ctx context.Context, t domain.Ticket, c lifecycle.Cancellation) {
	if s.metrics != nil {
		s.metrics.ObserveCancellation(c)
	}
	if s.changes != nil {
		s.changes.TicketChanged(ctx, redisrepo.ChangeCancelled, t.ID)
	}
	if s.notifier != nil && t.Email != "" {
		s.notifier.TicketCancelled(t)
	}

	s.logger.Info("ticket cancelled",
		"ticket_id", t.ID,
		"days_until_visit", c.DaysUntilVisit,
		"refund_tier", string(c.Tier),
		"refund_amount", c.RefundAmount.String(),
	)
}
