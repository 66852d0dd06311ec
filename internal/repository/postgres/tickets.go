package postgresrepo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/kirinyoku/museum-tix/internal/domain"
	"github.com/kirinyoku/museum-tix/internal/repository"
)

const ticketColumns = `t.id, t.user_id, t.name, t.email, t.ticket_type, t.exhibition,
	t.visit_date, t.visitors, t.category, t.unit_price, t.price, t.status,
	t.payment_status, t.cancelled_at, t.cancel_reason, t.refund_amount,
	t.refunded_at, t.created_at, t.updated_at`

type TicketRepo struct {
	s *Store
}

// TicketFilter narrows List. A nil UserID lists every ticket and a zero
// Limit returns every match.
type TicketFilter struct {
	UserID *uuid.UUID
	Limit  int
	Offset int
}

func (r *TicketRepo) Create(ctx context.Context, t *domain.Ticket) error {
	const op = "postgresrepo.TicketRepo.Create"

	db := r.s.handle(ctx)

	var userID uuid.NullUUID
	if t.UserID != nil {
		userID = uuid.NullUUID{UUID: *t.UserID, Valid: true}
	}

	_, err := db.Exec(ctx,
		`INSERT INTO tickets (id, user_id, name, email, ticket_type, exhibition,
			visit_date, visitors, category, unit_price, price, status,
			payment_status, cancel_reason, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		t.ID, userID, t.Name, t.Email, t.TicketType, t.Exhibition,
		t.VisitDate.Time, t.Visitors, t.Category, t.UnitPrice, t.Price, string(t.Status),
		string(t.PaymentStatus), t.CancelReason, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *TicketRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	const op = "postgresrepo.TicketRepo.Get"

	t, err := scanTicket(r.s.handle(ctx).QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets t WHERE t.id = $1`, id))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return t, nil
}

// GetForUpdate reads a ticket and locks its row until the surrounding
// transaction ends. It must run inside Store.RunTx.
func (r *TicketRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	const op = "postgresrepo.TicketRepo.GetForUpdate"

	t, err := scanTicket(r.s.handle(ctx).QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets t WHERE t.id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return t, nil
}

// List returns tickets newest first.
func (r *TicketRepo) List(ctx context.Context, f TicketFilter) ([]domain.Ticket, error) {
	const op = "postgresrepo.TicketRepo.List"

	limit := max(f.Limit, 0)
	offset := max(f.Offset, 0)

	var userID uuid.NullUUID
	if f.UserID != nil {
		userID = uuid.NullUUID{UUID: *f.UserID, Valid: true}
	}

	rows, err := r.s.handle(ctx).Query(ctx,
		`SELECT `+ticketColumns+`
		 FROM tickets t
		 WHERE $1::uuid IS NULL OR t.user_id = $1
		 ORDER BY t.created_at DESC, t.id
		 LIMIT NULLIF($2::int, 0) OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	out := make([]domain.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// MarkCancelled persists the cancellation fields of t. The write only
// succeeds while the stored ticket is not cancelled yet; otherwise it
// returns repository.ErrConflict and nothing changes.
func (r *TicketRepo) MarkCancelled(ctx context.Context, t *domain.Ticket) error {
	const op = "postgresrepo.TicketRepo.MarkCancelled"

	var refund decimal.NullDecimal
	if t.RefundAmount != nil {
		refund = decimal.NullDecimal{Decimal: *t.RefundAmount, Valid: true}
	}

	tag, err := r.s.handle(ctx).Exec(ctx,
		`UPDATE tickets
		 SET status = $2, cancelled_at = $3, cancel_reason = $4,
			payment_status = $5, refund_amount = $6, refunded_at = $7,
			updated_at = $8
		 WHERE id = $1 AND status <> 'Cancelled'`,
		t.ID, string(t.Status), t.CancelledAt, t.CancelReason,
		string(t.PaymentStatus), refund, t.RefundedAt, t.UpdatedAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrConflict)
	}

	return nil
}

// DeleteByUser removes every ticket owned by userID and reports how many
// were removed.
func (r *TicketRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	const op = "postgresrepo.TicketRepo.DeleteByUser"

	tag, err := r.s.handle(ctx).Exec(ctx, `DELETE FROM tickets WHERE user_id = $1`, userID)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return tag.RowsAffected(), nil
}

// ticketRow holds nullable and enum columns before they are converted to
// domain types.
type ticketRow struct {
	userID        uuid.NullUUID
	visitDate     time.Time
	status        string
	paymentStatus string
	refund        decimal.NullDecimal
}

func scanTicket(row pgx.Row, extra ...any) (*domain.Ticket, error) {
	var (
		t  domain.Ticket
		tr ticketRow
	)

	dest := []any{
		&t.ID, &tr.userID, &t.Name, &t.Email, &t.TicketType, &t.Exhibition,
		&tr.visitDate, &t.Visitors, &t.Category, &t.UnitPrice, &t.Price, &tr.status,
		&tr.paymentStatus, &t.CancelledAt, &t.CancelReason, &tr.refund,
		&t.RefundedAt, &t.CreatedAt, &t.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if tr.userID.Valid {
		id := tr.userID.UUID
		t.UserID = &id
	}
	t.VisitDate = domain.DateOf(tr.visitDate)
	t.Status = domain.TicketStatus(tr.status)
	t.PaymentStatus = domain.PaymentStatus(tr.paymentStatus)
	if tr.refund.Valid {
		amount := tr.refund.Decimal
		t.RefundAmount = &amount
	}

	return &t, nil
}
