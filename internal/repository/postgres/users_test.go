package postgresrepo

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/museum-tix/internal/domain"
	"github.com/kirinyoku/museum-tix/internal/repository"
)

func TestCreateUserNormalisesEmail(t *testing.T) {
	store, mock := newMockStore(t)
	u := &domain.User{
		ID:           uuid.New(),
		Name:         "Ada",
		Email:        "  Ada@Example.COM ",
		PasswordHash: "hash",
		Role:         domain.RoleUser,
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(u.ID, "Ada", "ada@example.com", "hash", "user", u.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Users().Create(context.Background(), u))
	assert.Equal(t, "ada@example.com", u.Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(anyArgs(6)...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err := store.Users().Create(context.Background(), &domain.User{ID: uuid.New(), Email: "a@b.c"})
	require.ErrorIs(t, err, repository.ErrConflict)
}

func TestDeleteUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := store.Users().Delete(context.Background(), id)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCountUsers(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(12)))

	n, err := store.Stats().CountUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByStatus(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) FROM tickets GROUP BY status")).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("Booked", int64(4)).
			AddRow("Cancelled", int64(2)))

	got, err := store.Stats().CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.StatusCount{
		{Status: domain.TicketBooked, Count: 4},
		{Status: domain.TicketCancelled, Count: 2},
	}, got)
}

func TestTopExhibitionsRejectsUnknownOrder(t *testing.T) {
	store, _ := newMockStore(t)

	_, err := store.Stats().TopExhibitions(context.Background(), 5, "alphabet")
	require.ErrorContains(t, err, "unknown order")
}
