package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kirinyoku/museum-tix/internal/domain"
)

// ExhibitionOrder selects the ranking used by TopExhibitions.
type ExhibitionOrder string

const (
	ByRevenue ExhibitionOrder = "revenue"
	ByCount   ExhibitionOrder = "count"
)

type StatsRepo struct {
	s *Store
}

func (r *StatsRepo) CountUsers(ctx context.Context) (int64, error) {
	const op = "postgresrepo.StatsRepo.CountUsers"

	var n int64
	if err := r.s.handle(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return n, nil
}

// Totals aggregates ticket counts and money in one pass. Revenue counts paid
// tickets only; refunds are summed from tickets whose payment was refunded.
func (r *StatsRepo) Totals(ctx context.Context) (domain.TicketTotals, error) {
	const op = "postgresrepo.StatsRepo.Totals"

	var tt domain.TicketTotals
	err := r.s.handle(ctx).QueryRow(ctx,
		`SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status IN ('Booked', 'Confirmed')),
			COUNT(*) FILTER (WHERE status = 'Cancelled'),
			COALESCE(SUM(price) FILTER (WHERE payment_status = 'Paid'), 0),
			COALESCE(AVG(price) FILTER (WHERE payment_status = 'Paid'), 0),
			COALESCE(SUM(refund_amount) FILTER (WHERE payment_status = 'Refunded'), 0)
		 FROM tickets`,
	).Scan(
		&tt.TotalTickets,
		&tt.ActiveTickets,
		&tt.CancelledTickets,
		&tt.TotalRevenue,
		&tt.AverageTicketPrice,
		&tt.TotalRefunded,
	)
	if err != nil {
		return domain.TicketTotals{}, wrapDBErr(op, err)
	}

	return tt, nil
}

func (r *StatsRepo) CountByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	const op = "postgresrepo.StatsRepo.CountByStatus"

	rows, err := r.s.handle(ctx).Query(ctx,
		`SELECT status, COUNT(*) FROM tickets GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.StatusCount, error) {
		var (
			sc     domain.StatusCount
			status string
		)
		err := row.Scan(&status, &sc.Count)
		sc.Status = domain.TicketStatus(status)
		return sc, err
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Recent returns the latest tickets joined with their owner's name and
// email. Guest tickets carry empty owner fields.
func (r *StatsRepo) Recent(ctx context.Context, limit int) ([]domain.TicketWithOwner, error) {
	const op = "postgresrepo.StatsRepo.Recent"

	rows, err := r.s.handle(ctx).Query(ctx,
		`SELECT `+ticketColumns+`, COALESCE(u.name, ''), COALESCE(u.email, '')
		 FROM tickets t
		 LEFT JOIN users u ON u.id = t.user_id
		 ORDER BY t.created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	out := make([]domain.TicketWithOwner, 0, limit)
	for rows.Next() {
		var tw domain.TicketWithOwner
		t, err := scanTicket(rows, &tw.OwnerName, &tw.OwnerEmail)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		tw.Ticket = *t
		out = append(out, tw)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// TopExhibitions ranks exhibitions by paid revenue or by ticket count.
func (r *StatsRepo) TopExhibitions(ctx context.Context, limit int, by ExhibitionOrder) ([]domain.ExhibitionStats, error) {
	const op = "postgresrepo.StatsRepo.TopExhibitions"

	orderBy := "revenue DESC, count DESC"
	switch by {
	case ByCount:
		orderBy = "count DESC, revenue DESC"
	case ByRevenue, "":
	default:
		return nil, fmt.Errorf("%s: unknown order %q", op, by)
	}

	rows, err := r.s.handle(ctx).Query(ctx,
		`SELECT exhibition,
			COUNT(*) AS count,
			COALESCE(SUM(price) FILTER (WHERE payment_status = 'Paid'), 0) AS revenue
		 FROM tickets
		 GROUP BY exhibition
		 ORDER BY `+orderBy+`, exhibition
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ExhibitionStats, error) {
		var es domain.ExhibitionStats
		err := row.Scan(&es.Exhibition, &es.Count, &es.Revenue)
		return es, err
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
