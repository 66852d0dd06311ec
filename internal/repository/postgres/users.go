package postgresrepo

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/kirinyoku/museum-tix/internal/domain"
	"github.com/kirinyoku/museum-tix/internal/repository"
)

const userColumns = `u.id, u.name, u.email, u.password_hash, u.role, u.created_at`

type UserRepo struct {
	s *Store
}

// Create inserts u. Emails are stored lower-cased; a duplicate email returns
// repository.ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	const op = "postgresrepo.UserRepo.Create"

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	_, err := r.s.handle(ctx).Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, role, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "postgresrepo.UserRepo.GetByID"

	u, err := scanUser(r.s.handle(ctx).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const op = "postgresrepo.UserRepo.GetByEmail"

	u, err := scanUser(r.s.handle(ctx).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.email = $1`,
		strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return u, nil
}

// ListWithStats returns every user with their ticket count and the sum of
// their paid ticket prices, newest accounts first.
func (r *UserRepo) ListWithStats(ctx context.Context) ([]domain.UserWithStats, error) {
	const op = "postgresrepo.UserRepo.ListWithStats"

	rows, err := r.s.handle(ctx).Query(ctx,
		`SELECT `+userColumns+`,
			COUNT(t.id),
			COALESCE(SUM(t.price) FILTER (WHERE t.payment_status = 'Paid'), 0)
		 FROM users u
		 LEFT JOIN tickets t ON t.user_id = u.id
		 GROUP BY u.id
		 ORDER BY u.created_at DESC`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	out := make([]domain.UserWithStats, 0)
	for rows.Next() {
		var us domain.UserWithStats
		u, err := scanUser(rows, &us.TicketCount, &us.TotalSpent)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		us.User = *u
		out = append(out, us)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *UserRepo) UpdateRole(ctx context.Context, id uuid.UUID, role domain.Role) (*domain.User, error) {
	const op = "postgresrepo.UserRepo.UpdateRole"

	u, err := scanUser(r.s.handle(ctx).QueryRow(ctx,
		`UPDATE users u SET role = $2 WHERE u.id = $1 RETURNING `+userColumns,
		id, string(role)))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return u, nil
}

func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "postgresrepo.UserRepo.Delete"

	tag, err := r.s.handle(ctx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

func scanUser(row interface{ Scan(dest ...any) error }, extra ...any) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)

	dest := append([]any{&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)

	return &u, nil
}
