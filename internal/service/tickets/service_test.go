package tickets

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/museum-tix/internal/domain"
	"github.com/kirinyoku/museum-tix/internal/lifecycle"
	"github.com/kirinyoku/museum-tix/internal/repository"
	postgresrepo "github.com/kirinyoku/museum-tix/internal/repository/postgres"
	"github.com/kirinyoku/museum-tix/internal/uow"
)

var fixedNow = time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)

type memTickets struct {
	mu   sync.Mutex
	rows map[uuid.UUID]domain.Ticket
	// gate, when set, is waited on by GetForUpdate so tests can line up
	// concurrent cancellations on one snapshot.
	gate *sync.WaitGroup
}

func newMemTickets() *memTickets {
	return &memTickets{rows: make(map[uuid.UUID]domain.Ticket)}
}

func (m *memTickets) Create(_ context.Context, t *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[t.ID] = *t
	return nil
}

func (m *memTickets) Get(_ context.Context, id uuid.UUID) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (m *memTickets) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	t, err := m.Get(ctx, id)
	if m.gate != nil {
		m.gate.Done()
		m.gate.Wait()
	}
	return t, err
}

func (m *memTickets) List(_ context.Context, f postgresrepo.TicketFilter) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Ticket, 0)
	for _, t := range m.rows {
		if f.UserID == nil || t.OwnedBy(*f.UserID) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memTickets) MarkCancelled(_ context.Context, t *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[t.ID]
	if !ok || cur.Status == domain.TicketCancelled {
		return repository.ErrConflict
	}
	m.rows[t.ID] = *t
	return nil
}

type memUsers map[uuid.UUID]*domain.User

func (m memUsers) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

// directTx runs fn without a real transaction and fires hooks on success.
type directTx struct{}

func (directTx) Do(ctx context.Context, fn func(ctx context.Context, after func(uow.AfterCommit)) error) error {
	var hooks []uow.AfterCommit
	if err := fn(ctx, func(h uow.AfterCommit) { hooks = append(hooks, h) }); err != nil {
		return err
	}
	for _, h := range hooks {
		h(ctx)
	}
	return nil
}

type recorder struct {
	mu        sync.Mutex
	booked    []domain.Ticket
	cancelled []domain.Ticket
	changes   []string
	tiers     []lifecycle.RefundTier
}

func (r *recorder) TicketBooked(t domain.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.booked = append(r.booked, t)
}

func (r *recorder) TicketCancelled(t domain.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, t)
}

func (r *recorder) TicketChanged(_ context.Context, kind string, _ uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, kind)
}

func (r *recorder) ObserveBooking(domain.Ticket) {}

func (r *recorder) ObserveCancellation(c lifecycle.Cancellation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tiers = append(r.tiers, c.Tier)
}

type fixture struct {
	svc     *Service
	tickets *memTickets
	rec     *recorder
	alice   *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	alice := &domain.User{ID: uuid.New(), Name: "Alice", Email: "alice@example.com", Role: domain.RoleUser}
	tickets := newMemTickets()
	rec := &recorder{}

	svc := New(Deps{
		Tickets:  tickets,
		Users:    memUsers{alice.ID: alice},
		Tx:       directTx{},
		Notifier: rec,
		Changes:  rec,
		Metrics:  rec,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:      func() time.Time { return fixedNow },
	})

	return &fixture{svc: svc, tickets: tickets, rec: rec, alice: alice}
}

func (f *fixture) seed(owner *uuid.UUID, daysAhead int, price int64, pay domain.PaymentStatus) domain.Ticket {
	t := domain.Ticket{
		ID:            uuid.New(),
		UserID:        owner,
		Name:          "Visitor",
		Email:         "visitor@example.com",
		TicketType:    lifecycle.DefaultTicketType,
		Exhibition:    lifecycle.DefaultExhibition,
		VisitDate:     domain.DateOf(fixedNow).AddDays(daysAhead),
		Visitors:      1,
		Price:         decimal.NewFromInt(price),
		Status:        domain.TicketBooked,
		PaymentStatus: pay,
		CreatedAt:     fixedNow.Add(-time.Hour),
		UpdatedAt:     fixedNow.Add(-time.Hour),
	}
	_ = f.tickets.Create(context.Background(), &t)
	return t
}

func TestCreateForSignedInUser(t *testing.T) {
	f := newFixture(t)

	got, err := f.svc.Create(context.Background(), lifecycle.BookingInput{
		VisitDate:     "2026-10-30",
		TicketType:    "Special Exhibition",
		Visitors:      2,
		PaymentStatus: domain.PaymentPaid,
	}, lifecycle.Caller{UserID: f.alice.ID})
	require.NoError(t, err)

	require.NotNil(t, got.UserID)
	assert.Equal(t, f.alice.ID, *got.UserID)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, fixedNow, got.CreatedAt)

	stored, err := f.tickets.Get(context.Background(), got.ID)
	require.NoError(t, err)
	assert.Equal(t, got.ID, stored.ID)

	assert.Len(t, f.rec.booked, 1)
	assert.Equal(t, []string{"ticket_booked"}, f.rec.changes)
}

func TestCreateGuestWithoutEmailSkipsNotification(t *testing.T) {
	f := newFixture(t)

	got, err := f.svc.Create(context.Background(), lifecycle.BookingInput{VisitDate: "2026-10-30"}, lifecycle.Caller{})
	require.NoError(t, err)
	assert.Nil(t, got.UserID)
	assert.Equal(t, lifecycle.DefaultGuestName, got.Name)
	assert.Empty(t, f.rec.booked)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), lifecycle.BookingInput{}, lifecycle.Caller{})
	require.ErrorIs(t, err, lifecycle.ErrValidation)
	assert.Empty(t, f.tickets.rows)
}

func TestCreateUnknownOwner(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), lifecycle.BookingInput{VisitDate: "2026-10-30"}, lifecycle.Caller{UserID: uuid.New()})
	require.ErrorIs(t, err, ErrOwnerNotFound)
}

func TestListScopesToCaller(t *testing.T) {
	f := newFixture(t)
	bob := uuid.New()
	mine := f.seed(&f.alice.ID, 10, 15, domain.PaymentPaid)
	f.seed(&bob, 10, 15, domain.PaymentPaid)
	f.seed(nil, 10, 15, domain.PaymentPending)

	own, err := f.svc.List(context.Background(), lifecycle.Caller{UserID: f.alice.ID})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, mine.ID, own[0].ID)

	all, err := f.svc.List(context.Background(), lifecycle.Caller{UserID: uuid.New(), IsAdmin: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = f.svc.List(context.Background(), lifecycle.Caller{})
	require.ErrorIs(t, err, ErrAuthRequired)
}

func TestGetAccessRules(t *testing.T) {
	f := newFixture(t)
	tk := f.seed(&f.alice.ID, 10, 15, domain.PaymentPaid)

	_, err := f.svc.Get(context.Background(), tk.ID, lifecycle.Caller{UserID: f.alice.ID})
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), tk.ID, lifecycle.Caller{UserID: uuid.New()})
	require.ErrorIs(t, err, lifecycle.ErrForbidden)

	_, err = f.svc.Get(context.Background(), uuid.New(), lifecycle.Caller{UserID: f.alice.ID})
	require.ErrorIs(t, err, lifecycle.ErrNotFound)
}

func TestCancelFullRefund(t *testing.T) {
	f := newFixture(t)
	tk := f.seed(&f.alice.ID, 10, 100, domain.PaymentPaid)

	res, err := f.svc.Cancel(context.Background(), tk.ID, lifecycle.Caller{UserID: f.alice.ID}, "")
	require.NoError(t, err)

	assert.Equal(t, domain.TicketCancelled, res.Ticket.Status)
	assert.Equal(t, domain.PaymentRefunded, res.Ticket.PaymentStatus)
	require.NotNil(t, res.Ticket.RefundAmount)
	assert.True(t, res.Ticket.RefundAmount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, lifecycle.TierFull, res.Cancellation.Tier)

	stored, _ := f.tickets.Get(context.Background(), tk.ID)
	assert.Equal(t, domain.TicketCancelled, stored.Status)
	require.NotNil(t, stored.CancelledAt)
	assert.Equal(t, fixedNow, *stored.CancelledAt)

	assert.Len(t, f.rec.cancelled, 1)
	assert.Equal(t, []lifecycle.RefundTier{lifecycle.TierFull}, f.rec.tiers)
	assert.Equal(t, []string{"ticket_cancelled"}, f.rec.changes)
}

func TestCancelHalfRefund(t *testing.T) {
	f := newFixture(t)
	tk := f.seed(&f.alice.ID, 3, 80, domain.PaymentPaid)

	res, err := f.svc.Cancel(context.Background(), tk.ID, lifecycle.Caller{UserID: f.alice.ID}, "Change of plans")
	require.NoError(t, err)
	assert.True(t, res.Cancellation.RefundAmount.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, "Change of plans", res.Ticket.CancelReason)
}

func TestCancelRejectionsLeaveTicketUntouched(t *testing.T) {
	f := newFixture(t)
	late := f.seed(&f.alice.ID, 1, 50, domain.PaymentPaid)
	other := f.seed(&f.alice.ID, 10, 50, domain.PaymentPaid)

	_, err := f.svc.Cancel(context.Background(), late.ID, lifecycle.Caller{UserID: f.alice.ID}, "")
	require.ErrorIs(t, err, lifecycle.ErrTooLateToCancel)

	_, err = f.svc.Cancel(context.Background(), other.ID, lifecycle.Caller{UserID: uuid.New()}, "")
	require.ErrorIs(t, err, lifecycle.ErrForbidden)

	_, err = f.svc.Cancel(context.Background(), uuid.New(), lifecycle.Caller{UserID: f.alice.ID}, "")
	require.ErrorIs(t, err, lifecycle.ErrNotFound)

	for _, id := range []uuid.UUID{late.ID, other.ID} {
		stored, _ := f.tickets.Get(context.Background(), id)
		assert.Equal(t, domain.TicketBooked, stored.Status)
		assert.Nil(t, stored.CancelledAt)
	}
	assert.Empty(t, f.rec.cancelled)
	assert.Empty(t, f.rec.changes)
}

func TestCancelTwice(t *testing.T) {
	f := newFixture(t)
	tk := f.seed(&f.alice.ID, 10, 100, domain.PaymentPaid)
	caller := lifecycle.Caller{UserID: f.alice.ID}

	_, err := f.svc.Cancel(context.Background(), tk.ID, caller, "first")
	require.NoError(t, err)
	first, _ := f.tickets.Get(context.Background(), tk.ID)

	_, err = f.svc.Cancel(context.Background(), tk.ID, caller, "second")
	require.ErrorIs(t, err, lifecycle.ErrAlreadyCancelled)

	second, _ := f.tickets.Get(context.Background(), tk.ID)
	assert.Equal(t, first, second)
}

func TestConcurrentCancelSucceedsOnce(t *testing.T) {
	f := newFixture(t)
	tk := f.seed(&f.alice.ID, 10, 100, domain.PaymentPaid)

	const n = 4
	var gate sync.WaitGroup
	gate.Add(n)
	f.tickets.gate = &gate

	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := f.svc.Cancel(context.Background(), tk.ID, lifecycle.Caller{UserID: f.alice.ID}, "")
			errs <- err
		}()
	}

	var ok, already int
	for i := 0; i < n; i++ {
		err := <-errs
		switch {
		case err == nil:
			ok++
		case errors.Is(err, lifecycle.ErrAlreadyCancelled):
			already++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, already)
	assert.Len(t, f.rec.cancelled, 1)
}

func TestQuoteDoesNotPersist(t *testing.T) {
	f := newFixture(t)
	tk := f.seed(&f.alice.ID, 5, 30, domain.PaymentPaid)

	q, err := f.svc.Quote(context.Background(), tk.ID, lifecycle.Caller{UserID: f.alice.ID}, "")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.TierHalf, q.Cancellation.Tier)
	assert.True(t, q.Cancellation.RefundAmount.Equal(decimal.NewFromInt(15)))

	stored, _ := f.tickets.Get(context.Background(), tk.ID)
	assert.Equal(t, domain.TicketBooked, stored.Status)
	assert.Equal(t, domain.PaymentPaid, stored.PaymentStatus)
}

func TestAdminCancelsGuestTicket(t *testing.T) {
	f := newFixture(t)
	tk := f.seed(nil, 8, 15, domain.PaymentPending)

	_, err := f.svc.Cancel(context.Background(), tk.ID, lifecycle.Caller{UserID: f.alice.ID}, "")
	require.ErrorIs(t, err, lifecycle.ErrForbidden)

	res, err := f.svc.Cancel(context.Background(), tk.ID, lifecycle.Caller{UserID: uuid.New(), IsAdmin: true}, "")
	require.NoError(t, err)
	assert.True(t, res.Cancellation.RefundAmount.IsZero())
	assert.Equal(t, domain.PaymentPending, res.Ticket.PaymentStatus)
}
