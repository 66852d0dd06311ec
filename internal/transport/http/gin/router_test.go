package httpgin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/museum-tix/internal/domain"
	"github.com/kirinyoku/museum-tix/internal/lifecycle"
	"github.com/kirinyoku/museum-tix/internal/repository"
	redisrepo "github.com/kirinyoku/museum-tix/internal/repository/redis"
	"github.com/kirinyoku/museum-tix/internal/service/admin"
	"github.com/kirinyoku/museum-tix/internal/service/auth"
	"github.com/kirinyoku/museum-tix/internal/service/chat"
	"github.com/kirinyoku/museum-tix/internal/service/tickets"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	adminUser  = &domain.User{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000a"), Name: "Root", Role: domain.RoleAdmin}
	memberUser = &domain.User{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000b"), Name: "Mia", Role: domain.RoleUser}
)

type stubAuth struct{}

func (stubAuth) Authenticate(_ context.Context, token string) (*domain.User, error) {
	switch token {
	case "admin":
		return adminUser, nil
	case "member":
		return memberUser, nil
	case "ghost":
		return nil, auth.ErrUserNotFound
	}
	return nil, auth.ErrInvalidToken
}

func (stubAuth) Register(_ context.Context, name, email, _ string) (*auth.Session, error) {
	if email == "taken@example.com" {
		return nil, auth.ErrEmailTaken
	}
	return &auth.Session{Token: "t", User: &domain.User{Name: name, Email: email}}, nil
}

func (stubAuth) Login(context.Context, string, string) (*auth.Session, error) {
	return nil, auth.ErrInvalidCredentials
}

type stubTickets struct {
	mu        sync.Mutex
	creates   int
	lastInput lifecycle.BookingInput
	cancelErr error
}

func (s *stubTickets) Create(_ context.Context, in lifecycle.BookingInput, caller lifecycle.Caller) (*domain.Ticket, error) {
	var owner *domain.User
	if !caller.Anonymous() {
		owner = &domain.User{ID: caller.UserID}
	}
	t, err := lifecycle.NewTicket(in, owner)
	if err != nil {
		return nil, fmt.Errorf("service.tickets.Create: %w", err)
	}
	t.ID = uuid.New()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	s.lastInput = in
	return t, nil
}

func (s *stubTickets) List(_ context.Context, caller lifecycle.Caller) ([]domain.Ticket, error) {
	if caller.IsAdmin {
		return []domain.Ticket{{ID: uuid.New()}, {ID: uuid.New()}}, nil
	}
	return []domain.Ticket{{ID: uuid.New()}}, nil
}

func (s *stubTickets) Get(_ context.Context, id uuid.UUID, _ lifecycle.Caller) (*domain.Ticket, error) {
	return nil, fmt.Errorf("service.tickets.Get: %w", lifecycle.ErrNotFound)
}

func (s *stubTickets) Quote(_ context.Context, id uuid.UUID, _ lifecycle.Caller, _ string) (tickets.CancelResult, error) {
	return tickets.CancelResult{
		Ticket:       &domain.Ticket{ID: id},
		Cancellation: lifecycle.Cancellation{DaysUntilVisit: 4, Tier: lifecycle.TierHalf, RefundAmount: decimal.RequireFromString("7.5")},
	}, nil
}

func (s *stubTickets) Cancel(_ context.Context, id uuid.UUID, _ lifecycle.Caller, _ string) (tickets.CancelResult, error) {
	if s.cancelErr != nil {
		return tickets.CancelResult{}, s.cancelErr
	}
	return tickets.CancelResult{
		Ticket:       &domain.Ticket{ID: id, Status: domain.TicketCancelled},
		Cancellation: lifecycle.Cancellation{Tier: lifecycle.TierFull, RefundAmount: decimal.NewFromInt(30)},
	}, nil
}

type stubAdmin struct{}

func (stubAdmin) Stats(_ context.Context, by string) (*admin.Dashboard, error) {
	if by == "name" {
		return nil, admin.ErrInvalidOrder
	}
	return &admin.Dashboard{TotalUsers: 3, TopExhibitionsBy: "revenue"}, nil
}

func (stubAdmin) Users(context.Context) ([]domain.UserWithStats, error) { return nil, nil }

func (stubAdmin) UserTickets(context.Context, uuid.UUID) ([]domain.Ticket, error) { return nil, nil }

func (stubAdmin) UpdateRole(_ context.Context, id uuid.UUID, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, admin.ErrInvalidRole
	}
	return &domain.User{ID: id, Role: role}, nil
}

func (stubAdmin) DeleteUser(_ context.Context, actor, id uuid.UUID) (admin.DeleteResult, error) {
	if actor == id {
		return admin.DeleteResult{}, admin.ErrDeleteSelf
	}
	return admin.DeleteResult{UserID: id, TicketsRemoved: 2}, nil
}

type stubChat struct{}

func (stubChat) Handle(_ context.Context, sid, msg string) (*chat.Reply, error) {
	if strings.TrimSpace(msg) == "" {
		return nil, chat.ErrEmptyMessage
	}
	return &chat.Reply{SessionID: sid, Reply: "hello"}, nil
}

type dbFlag bool

func (f dbFlag) Up() bool { return bool(f) }

type memIdem struct {
	mu sync.Mutex
	m  map[string]string
}

func (s *memIdem) AcquireLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[key]; ok {
		return false, nil
	}
	s.m[key] = ""
	return true, nil
}

func (s *memIdem) SaveResult(_ context.Context, key, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = payload
	return nil
}

func (s *memIdem) GetResult(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok && v != "", nil
}

func (s *memIdem) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (redisrepo.Decision, error) {
	return redisrepo.Decision{Limit: 10, RetryAfter: 1500 * time.Millisecond}, nil
}

type testEnv struct {
	router  *gin.Engine
	tickets *stubTickets
}

func newEnv(mod func(*Deps)) *testEnv {
	st := &stubTickets{}
	d := Deps{
		Tickets:     st,
		Admin:       stubAdmin{},
		Auth:        stubAuth{},
		Chat:        stubChat{},
		Idempotency: &memIdem{m: map[string]string{}},
		Database:    dbFlag(true),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:         func() time.Time { return time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC) },
	}
	if mod != nil {
		mod(&d)
	}
	return &testEnv{router: NewRouter(d), tickets: st}
}

func (e *testEnv) do(method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &er))
	return er
}

func TestHealth(t *testing.T) {
	w := newEnv(func(d *Deps) { d.Database = dbFlag(false) }).do(http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var h HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))
	assert.Equal(t, "disconnected", h.Database)
	assert.Equal(t, "2026-10-15T12:00:00Z", h.Timestamp)
}

func TestDatabaseGuard(t *testing.T) {
	e := newEnv(func(d *Deps) { d.Database = dbFlag(false) })

	w := e.do(http.MethodPost, "/api/tickets", "", `{"visit_date":"2026-11-01"}`)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, codeUnavailable, decodeErr(t, w).Error)

	w = e.do(http.MethodPost, "/api/auth/login", "", `{"email":"a@b.c","password":"x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Zero(t, e.tickets.creates)
}

func TestCreateTicketGuestAndOwner(t *testing.T) {
	e := newEnv(nil)

	w := e.do(http.MethodPost, "/api/tickets", "", `{"visit_date":"2026-11-01","price":0.01}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp TicketResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Ticket.UserID)

	w = e.do(http.MethodPost, "/api/tickets", "not-a-token", `{"visit_date":"2026-11-01"}`)
	require.Equal(t, http.StatusCreated, w.Code, "invalid token books as guest")

	w = e.do(http.MethodPost, "/api/tickets", "member", `{"visit_date":"2026-11-01"}`)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Ticket.UserID)
	assert.Equal(t, memberUser.ID, *resp.Ticket.UserID)
}

func TestCreateTicketValidation(t *testing.T) {
	e := newEnv(nil)

	w := e.do(http.MethodPost, "/api/tickets", "", `{"visitors":2}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	er := decodeErr(t, w)
	assert.Equal(t, codeValidation, er.Error)
	assert.Equal(t, "Date is required", er.Message)

	w = e.do(http.MethodPost, "/api/tickets", "", `{"visit_date":"2026-11-01","payment_status":"Free"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, e.tickets.creates)
}

func TestCreateTicketIdempotent(t *testing.T) {
	e := newEnv(nil)
	body := `{"visit_date":"2026-11-01","name":"Ana"}`

	first := e.do(http.MethodPost, "/api/tickets", "member", body, "Idempotency-Key", "k1")
	second := e.do(http.MethodPost, "/api/tickets", "member", body, "Idempotency-Key", "k1")

	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "k1", second.Header().Get("Idempotency-Key"))
	assert.Equal(t, 1, e.tickets.creates)

	e.do(http.MethodPost, "/api/tickets", "admin", body, "Idempotency-Key", "k1")
	assert.Equal(t, 2, e.tickets.creates, "keys are scoped per caller")
}

func TestTicketRoutesRequireAuth(t *testing.T) {
	e := newEnv(nil)
	id := uuid.NewString()

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/tickets"},
		{http.MethodGet, "/api/tickets/" + id},
		{http.MethodGet, "/api/tickets/" + id + "/cancellation"},
		{http.MethodPost, "/api/tickets/" + id + "/cancel"},
		{http.MethodGet, "/api/auth/me"},
	} {
		w := e.do(tc.method, tc.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
	}

	w := e.do(http.MethodGet, "/api/tickets", "garbage", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, msgTokenInvalid, decodeErr(t, w).Message)

	w = e.do(http.MethodGet, "/api/tickets", "ghost", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, msgUserGone, decodeErr(t, w).Message)
}

func TestListTickets(t *testing.T) {
	e := newEnv(nil)

	var resp TicketsResponse
	w := e.do(http.MethodGet, "/api/tickets", "admin", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)

	w = e.do(http.MethodGet, "/api/tickets", "member", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
}

func TestGetTicketErrors(t *testing.T) {
	e := newEnv(nil)

	w := e.do(http.MethodGet, "/api/tickets/not-a-uuid", "member", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodGet, "/api/tickets/"+uuid.NewString(), "member", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	er := decodeErr(t, w)
	assert.False(t, er.Success)
	assert.Equal(t, "NOT_FOUND", er.Error)
	assert.Equal(t, "Ticket not found", er.Message)
}

func TestCancelTicket(t *testing.T) {
	e := newEnv(nil)

	w := e.do(http.MethodPost, "/api/tickets/"+uuid.NewString()+"/cancel", "member", `{"reason":"sick"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp CancelResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "30", resp.RefundAmount.String())
	assert.Contains(t, resp.Message, "Refund of $30.00")

	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Equal(t, 30.0, raw["refund_amount"], "amounts are JSON numbers")

	w = e.do(http.MethodPost, "/api/tickets/"+uuid.NewString()+"/cancel", "member", "")
	assert.Equal(t, http.StatusOK, w.Code, "body is optional")
}

func TestCancelTicketErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{lifecycle.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{lifecycle.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{lifecycle.ErrAlreadyCancelled, http.StatusBadRequest, "ALREADY_CANCELLED"},
		{lifecycle.ErrTooLateToCancel, http.StatusBadRequest, "TOO_LATE_TO_CANCEL"},
		{fmt.Errorf("op: %w", repository.ErrUnavailable), http.StatusServiceUnavailable, codeDBUnavailable},
		{errors.New("boom"), http.StatusInternalServerError, codeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			e := newEnv(nil)
			e.tickets.cancelErr = fmt.Errorf("service.tickets.Cancel: %w", tt.err)

			w := e.do(http.MethodPost, "/api/tickets/"+uuid.NewString()+"/cancel", "member", "")
			require.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeErr(t, w).Error)
		})
	}
}

func TestQuoteCancellation(t *testing.T) {
	w := newEnv(nil).do(http.MethodGet, "/api/tickets/"+uuid.NewString()+"/cancellation", "member", "")
	require.Equal(t, http.StatusOK, w.Code)

	var q QuoteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	assert.Equal(t, 4, q.DaysUntilVisit)
	assert.Equal(t, lifecycle.TierHalf, q.Tier)
	assert.Equal(t, "7.5", q.RefundAmount.String())
}

func TestAdminRoutes(t *testing.T) {
	e := newEnv(nil)

	w := e.do(http.MethodGet, "/api/admin/users", "member", "")
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, msgAdminRequired, decodeErr(t, w).Message)

	w = e.do(http.MethodGet, "/api/admin/dashboard/stats", "admin", "")
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	w = e.do(http.MethodGet, "/api/admin/dashboard/stats", "admin", "", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, w.Code)

	w = e.do(http.MethodGet, "/api/admin/dashboard/stats?top_by=name", "admin", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPut, "/api/admin/users/"+memberUser.ID.String()+"/role", "admin", `{"role":"superuser"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPut, "/api/admin/users/"+memberUser.ID.String()+"/role", "admin", `{"role":"admin"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "User role updated to admin")

	w = e.do(http.MethodDelete, "/api/admin/users/"+adminUser.ID.String(), "admin", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "CANNOT_DELETE_SELF", decodeErr(t, w).Error)

	w = e.do(http.MethodDelete, "/api/admin/users/"+memberUser.ID.String(), "admin", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tickets_removed":2`)
}

func TestAuthRoutes(t *testing.T) {
	e := newEnv(nil)

	w := e.do(http.MethodPost, "/api/auth/register", "", `{"name":"Ana","email":"taken@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "USER_EXISTS", decodeErr(t, w).Error)

	w = e.do(http.MethodPost, "/api/auth/login", "", `{"email":"a@b.c","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(http.MethodGet, "/api/auth/me", "member", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), memberUser.ID.String())
}

func TestRateLimit(t *testing.T) {
	e := newEnv(func(d *Deps) {
		d.AuthLimiter = denyAll{}
		d.ChatLimiter = denyAll{}
	})

	w := e.do(http.MethodPost, "/api/auth/login", "", `{"email":"a@b.c","password":"x"}`)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = e.do(http.MethodPost, "/api/chat", "", `{"message":"hi"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestChat(t *testing.T) {
	e := newEnv(nil)

	w := e.do(http.MethodPost, "/api/chat", "", `{"session_id":"s1","message":"hi"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"reply":"hello"`)

	w = e.do(http.MethodPost, "/api/chat", "", `{"message":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
