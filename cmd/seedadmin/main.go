// seedadmin creates an administrator account, or promotes an existing
// account to administrator.
//
//	seedadmin --email admin@museum.example --password s3cret --name Admin
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"github.com/kirinyoku/museum-tix/internal/config"
	"github.com/kirinyoku/museum-tix/internal/domain"
	"github.com/kirinyoku/museum-tix/internal/postgres"
	"github.com/kirinyoku/museum-tix/internal/repository"
	postgresrepo "github.com/kirinyoku/museum-tix/internal/repository/postgres"
	"github.com/kirinyoku/museum-tix/internal/service/auth"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var name, email, password string

	flagSet := pflag.NewFlagSet("seedadmin", pflag.ContinueOnError)
	flagSet.StringVar(&name, "name", "Administrator", "display name for a new account")
	flagSet.StringVarP(&email, "email", "e", "", "account email (required)")
	flagSet.StringVarP(&password, "password", "p", "", "password for a new account; falls back to $ADMIN_PASSWORD")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if password == "" {
		password = os.Getenv("ADMIN_PASSWORD")
	}

	cfg, err := config.New()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := postgres.New(ctx, postgres.Config{DSN: cfg.Postgres.DSN(), MaxConns: 2})
	if err != nil {
		return err
	}
	defer pool.Close()

	err = postgres.Connect(ctx, pool, postgres.RetryPolicy{
		Attempts:  cfg.Postgres.ConnectRetries,
		BaseDelay: cfg.Postgres.RetryDelay,
	}, logger)
	if err != nil {
		return err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		return err
	}

	u, created, err := seed(ctx, postgresrepo.NewStore(pool).Users(), name, email, password, time.Now)
	if err != nil {
		return err
	}

	if created {
		logger.Info("admin account created", "user_id", u.ID, "email", u.Email)
	} else {
		logger.Info("account promoted to admin", "user_id", u.ID, "email", u.Email)
	}

	return nil
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	UpdateRole(ctx context.Context, id uuid.UUID, role domain.Role) (*domain.User, error)
}

// seed promotes the account with email, creating it first when it does not
// exist. It reports whether an account was created.
func seed(ctx context.Context, users userStore, name, email, password string, now func() time.Time) (*domain.User, bool, error) {
	const op = "seedadmin.seed"

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, false, fmt.Errorf("%s: --email is required", op)
	}

	u, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.IsAdmin() {
			return u, false, nil
		}
		u, err = users.UpdateRole(ctx, u.ID, domain.RoleAdmin)
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", op, err)
		}
		return u, false, nil

	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	if len(password) < 8 {
		return nil, false, fmt.Errorf("%s: a new admin needs a password of at least 8 characters", op)
	}

	hash, err := auth.HashPassword(password, bcrypt.DefaultCost)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	u = &domain.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		CreatedAt:    now().UTC(),
	}
	if err := users.Create(ctx, u); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	return u, true, nil
}
