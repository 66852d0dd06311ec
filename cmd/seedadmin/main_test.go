package main

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/museum-tix/internal/domain"
	"github.com/kirinyoku/museum-tix/internal/repository"
	"github.com/kirinyoku/museum-tix/internal/service/auth"
)

type memUsers map[string]*domain.User

func (m memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := m[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (m memUsers) Create(_ context.Context, u *domain.User) error {
	m[u.Email] = u
	return nil
}

func (m memUsers) UpdateRole(_ context.Context, id uuid.UUID, role domain.Role) (*domain.User, error) {
	for _, u := range m {
		if u.ID == id {
			u.Role = role
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

var now = func() time.Time { return time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC) }

func TestSeedCreatesAdmin(t *testing.T) {
	users := memUsers{}

	u, created, err := seed(context.Background(), users, "Curator", " Admin@Museum.Example ", "long-enough", now)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "admin@museum.example", u.Email)
	assert.Equal(t, domain.RoleAdmin, u.Role)
	assert.True(t, auth.CheckPassword(u.PasswordHash, "long-enough"))
}

func TestSeedPromotesExisting(t *testing.T) {
	existing := &domain.User{ID: uuid.New(), Email: "mia@example.com", Role: domain.RoleUser}
	users := memUsers{existing.Email: existing}

	u, created, err := seed(context.Background(), users, "", "mia@example.com", "", now)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, u.ID)
	assert.Equal(t, domain.RoleAdmin, u.Role)
}

func TestSeedValidation(t *testing.T) {
	_, _, err := seed(context.Background(), memUsers{}, "x", "", "long-enough", now)
	require.Error(t, err)

	_, _, err = seed(context.Background(), memUsers{}, "x", "new@example.com", "short", now)
	require.Error(t, err)
}
