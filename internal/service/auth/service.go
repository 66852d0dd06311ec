package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kirinyoku/museum-tix/internal/domain"
	"github.com/kirinyoku/museum-tix/internal/repository"
)

const minPasswordLen = 6

type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type Config struct {
	BcryptCost int
}

type Service struct {
	users    UserStore
	tokens   *Tokens
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
	cfg      Config
}

// Session is what a successful register or login hands back to the client.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

func New(users UserStore, tokens *Tokens, logger *slog.Logger, cfg Config) *Service {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	return &Service{
		users:    users,
		tokens:   tokens,
		validate: validator.New(),
		logger:   logger,
		now:      tokens.now,
		cfg:      cfg,
	}
}

// Register creates a user account with the "user" role and signs it in.
//
// Returns:
//   - *Session: token and the new user.
//   - error: auth.InputError for bad input, auth.ErrEmailTaken for a duplicate email.
func (s *Service) Register(ctx context.Context, name, email, password string) (*Session, error) {
	const op = "service.auth.Register"

	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return nil, fmt.Errorf("%s: %w", op, InputError{Field: "name", Reason: "is required"})
	}
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("%s: %w", op, InputError{Field: "email", Reason: "must be a valid email address"})
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%s: %w", op, InputError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", minPasswordLen)})
	}

	hash, err := HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u := &domain.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("user registered", "user_id", u.ID)

	return s.session(op, u)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	const op = "service.auth.Login"

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !CheckPassword(u.PasswordHash, password) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	return s.session(op, u)
}

// Authenticate resolves a bearer token to the current user record, so a
// role change or deletion takes effect on the next request.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	const op = "service.auth.Authenticate"

	id, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.Me(ctx, id)
}

func (s *Service) Me(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "service.auth.Me"

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (s *Service) session(op string, u *domain.User) (*Session, error) {
	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Session{Token: token, ExpiresAt: exp, User: u}, nil
}

func HashPassword(password string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(b), err
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
