package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/museum-tix/internal/domain"
	"github.com/kirinyoku/museum-tix/internal/repository"
	postgresrepo "github.com/kirinyoku/museum-tix/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/museum-tix/internal/repository/redis"
	"github.com/kirinyoku/museum-tix/internal/uow"
)

type StatsReader interface {
	CountUsers(ctx context.Context) (int64, error)
	Totals(ctx context.Context) (domain.TicketTotals, error)
	CountByStatus(ctx context.Context) ([]domain.StatusCount, error)
	Recent(ctx context.Context, limit int) ([]domain.TicketWithOwner, error)
	TopExhibitions(ctx context.Context, limit int, by postgresrepo.ExhibitionOrder) ([]domain.ExhibitionStats, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	ListWithStats(ctx context.Context) ([]domain.UserWithStats, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role domain.Role) (*domain.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type TicketStore interface {
	List(ctx context.Context, f postgresrepo.TicketFilter) ([]domain.Ticket, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type Transactor interface {
	Do(ctx context.Context, fn func(ctx context.Context, after func(uow.AfterCommit)) error) error
}

type ChangePublisher interface {
	TicketChanged(ctx context.Context, kind string, ticketID uuid.UUID)
}

type Config struct {
	StatsTTL    time.Duration
	RecentLimit int
	TopLimit    int
}

type Deps struct {
	Stats   StatsReader
	Users   UserStore
	Tickets TicketStore
	Tx      Transactor
	// Cache is optional; without it every dashboard request hits the database.
	Cache   *redisrepo.Cache
	Changes ChangePublisher
	Logger  *slog.Logger
	Now     func() time.Time
}

// Dashboard is the aggregate shown on the admin overview page.
type Dashboard struct {
	TotalUsers         int64                    `json:"total_users"`
	TotalTickets       int64                    `json:"total_tickets"`
	ActiveTickets      int64                    `json:"active_tickets"`
	CancelledTickets   int64                    `json:"cancelled_tickets"`
	TotalRevenue       decimal.Decimal          `json:"total_revenue"`
	TotalRefunded      decimal.Decimal          `json:"total_refunded"`
	NetRevenue         decimal.Decimal          `json:"net_revenue"`
	AverageTicketPrice decimal.Decimal          `json:"average_ticket_price"`
	TicketsByStatus    []domain.StatusCount     `json:"tickets_by_status"`
	RecentTickets      []domain.TicketWithOwner `json:"recent_tickets"`
	TopExhibitions     []domain.ExhibitionStats `json:"top_exhibitions"`
	TopExhibitionsBy   string                   `json:"top_exhibitions_by"`
	GeneratedAt        time.Time                `json:"generated_at"`
}

// DeleteResult reports what a user deletion removed.
type DeleteResult struct {
	UserID         uuid.UUID `json:"user_id"`
	TicketsRemoved int64     `json:"tickets_removed"`
}

type Service struct {
	stats   StatsReader
	users   UserStore
	tickets TicketStore
	tx      Transactor
	cache   *redisrepo.Cache
	changes ChangePublisher
	logger  *slog.Logger
	now     func() time.Time
	cfg     Config
}

func New(d Deps, cfg Config) *Service {
	if cfg.StatsTTL <= 0 {
		cfg.StatsTTL = 30 * time.Second
	}

	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 10
	}

	if cfg.TopLimit <= 0 {
		cfg.TopLimit = 5
	}

	if d.Now == nil {
		d.Now = time.Now
	}

	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	return &Service{
		stats:   d.Stats,
		users:   d.Users,
		tickets: d.Tickets,
		tx:      d.Tx,
		cache:   d.Cache,
		changes: d.Changes,
		logger:  d.Logger,
		now:     d.Now,
		cfg:     cfg,
	}
}

// Stats returns the dashboard aggregate, served from cache when fresh.
//
// Parameters:
//   - ctx: request-scoped context.
//   - by: ranking for top exhibitions, "revenue" (default) or "count".
//
// Returns:
//   - *Dashboard: the aggregate.
//   - error: admin.ErrInvalidOrder for an unknown ranking.
func (s *Service) Stats(ctx context.Context, by string) (*Dashboard, error) {
	const op = "service.admin.Stats"

	order := postgresrepo.ExhibitionOrder(by)
	switch order {
	case "":
		order = postgresrepo.ByRevenue
	case postgresrepo.ByRevenue, postgresrepo.ByCount:
	default:
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidOrder)
	}

	if s.cache == nil {
		d, err := s.loadStats(ctx, order)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &d, nil
	}

	d, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyDashboardStats(string(order)),
		s.cfg.StatsTTL,
		func(ctx context.Context) (Dashboard, error) {
			return s.loadStats(ctx, order)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &d, nil
}

func (s *Service) loadStats(ctx context.Context, order postgresrepo.ExhibitionOrder) (Dashboard, error) {
	d := Dashboard{
		TopExhibitionsBy: string(order),
		GeneratedAt:      s.now().UTC(),
	}

	var totals domain.TicketTotals

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		d.TotalUsers, err = s.stats.CountUsers(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		totals, err = s.stats.Totals(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		d.TicketsByStatus, err = s.stats.CountByStatus(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		d.RecentTickets, err = s.stats.Recent(gCtx, s.cfg.RecentLimit)
		return err
	})
	g.Go(func() error {
		var err error
		d.TopExhibitions, err = s.stats.TopExhibitions(gCtx, s.cfg.TopLimit, order)
		return err
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	d.TotalTickets = totals.TotalTickets
	d.ActiveTickets = totals.ActiveTickets
	d.CancelledTickets = totals.CancelledTickets
	d.TotalRevenue = totals.TotalRevenue
	d.TotalRefunded = totals.TotalRefunded
	d.NetRevenue = totals.TotalRevenue.Sub(totals.TotalRefunded)
	d.AverageTicketPrice = totals.AverageTicketPrice.Round(2)

	return d, nil
}

func (s *Service) Users(ctx context.Context) ([]domain.UserWithStats, error) {
	const op = "service.admin.Users"

	users, err := s.users.ListWithStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

// UserTickets lists one user's tickets, newest first.
func (s *Service) UserTickets(ctx context.Context, userID uuid.UUID) ([]domain.Ticket, error) {
	const op = "service.admin.UserTickets"

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapUserErr(err))
	}

	list, err := s.tickets.List(ctx, postgresrepo.TicketFilter{UserID: &userID})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

func (s *Service) UpdateRole(ctx context.Context, userID uuid.UUID, role domain.Role) (*domain.User, error) {
	const op = "service.admin.UpdateRole"

	if !role.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRole)
	}

	u, err := s.users.UpdateRole(ctx, userID, role)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapUserErr(err))
	}

	s.logger.Info("user role updated", "user_id", userID, "role", string(role))

	return u, nil
}

// DeleteUser removes a user and every ticket they own in one transaction.
// Admins cannot delete themselves.
//
// Returns:
//   - DeleteResult: the number of tickets removed with the user.
//   - error: admin.ErrDeleteSelf or admin.ErrUserNotFound.
func (s *Service) DeleteUser(ctx context.Context, actorID, userID uuid.UUID) (DeleteResult, error) {
	const op = "service.admin.DeleteUser"

	if actorID == userID {
		return DeleteResult{}, fmt.Errorf("%s: %w", op, ErrDeleteSelf)
	}

	res := DeleteResult{UserID: userID}
	err := s.tx.Do(ctx, func(ctx context.Context, after func(uow.AfterCommit)) error {
		n, err := s.tickets.DeleteByUser(ctx, userID)
		if err != nil {
			return err
		}

		if err := s.users.Delete(ctx, userID); err != nil {
			return mapUserErr(err)
		}

		res.TicketsRemoved = n

		after(func(ctx context.Context) {
			if s.changes != nil {
				s.changes.TicketChanged(ctx, redisrepo.ChangeUserGone, userID)
			}
			s.logger.Info("user deleted", "user_id", userID, "tickets_removed", n)
		})

		return nil
	})
	if err != nil {
		return DeleteResult{}, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}

func mapUserErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
