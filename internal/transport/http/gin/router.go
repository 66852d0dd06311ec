package httpgin

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kirinyoku/museum-tix/internal/domain"
	"github.com/kirinyoku/museum-tix/internal/lifecycle"
	"github.com/kirinyoku/museum-tix/internal/service/admin"
	"github.com/kirinyoku/museum-tix/internal/service/auth"
	"github.com/kirinyoku/museum-tix/internal/service/chat"
	"github.com/kirinyoku/museum-tix/internal/service/tickets"
)

type TicketService interface {
	Create(ctx context.Context, in lifecycle.BookingInput, caller lifecycle.Caller) (*domain.Ticket, error)
	List(ctx context.Context, caller lifecycle.Caller) ([]domain.Ticket, error)
	Get(ctx context.Context, id uuid.UUID, caller lifecycle.Caller) (*domain.Ticket, error)
	Quote(ctx context.Context, id uuid.UUID, caller lifecycle.Caller, reason string) (tickets.CancelResult, error)
	Cancel(ctx context.Context, id uuid.UUID, caller lifecycle.Caller, reason string) (tickets.CancelResult, error)
}

type AdminService interface {
	Stats(ctx context.Context, by string) (*admin.Dashboard, error)
	Users(ctx context.Context) ([]domain.UserWithStats, error)
	UserTickets(ctx context.Context, userID uuid.UUID) ([]domain.Ticket, error)
	UpdateRole(ctx context.Context, userID uuid.UUID, role domain.Role) (*domain.User, error)
	DeleteUser(ctx context.Context, actorID, userID uuid.UUID) (admin.DeleteResult, error)
}

type AuthService interface {
	Authenticator
	Register(ctx context.Context, name, email, password string) (*auth.Session, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
}

type ChatService interface {
	Handle(ctx context.Context, sessionID, message string) (*chat.Reply, error)
}

type IdempotencyStore interface {
	AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error)
	SaveResult(ctx context.Context, key string, jsonPayload string) error
	GetResult(ctx context.Context, key string) (string, bool, error)
	Release(ctx context.Context, key string) error
}

// Deps is everything the router needs. Idempotency, the limiters and the
// metrics handler are optional.
type Deps struct {
	Tickets     TicketService
	Admin       AdminService
	Auth        AuthService
	Chat        ChatService
	Idempotency IdempotencyStore
	AuthLimiter Limiter
	ChatLimiter Limiter
	Database    DatabaseChecker
	Metrics     http.Handler
	Origins     []string
	Logger      *slog.Logger
	Now         func() time.Time
}

func NewRouter(d Deps, middlewares ...gin.HandlerFunc) *gin.Engine {
	if d.Now == nil {
		d.Now = time.Now
	}

	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(d.Logger), RequestIDMiddleware(), CORS(d.Origins...))
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	h := &handlers{d: d}

	api := r.Group("/api")
	api.GET("/health", h.health)

	requireDB := RequireDatabase(d.Database)
	requireAuth := RequireAuth(d.Auth)
	optionalAuth := OptionalAuth(d.Auth)

	authGroup := api.Group("/auth", requireDB)
	{
		authGroup.POST("/register", RateLimit(d.AuthLimiter, d.Logger), h.register)
		authGroup.POST("/login", RateLimit(d.AuthLimiter, d.Logger), h.login)
		authGroup.GET("/me", requireAuth, h.me)
	}

	ticketGroup := api.Group("/tickets", requireDB)
	{
		ticketGroup.POST("", optionalAuth, h.createTicket)
		ticketGroup.GET("", requireAuth, h.listTickets)
		ticketGroup.GET("/:id", requireAuth, h.getTicket)
		ticketGroup.GET("/:id/cancellation", requireAuth, h.quoteCancellation)
		ticketGroup.POST("/:id/cancel", requireAuth, h.cancelTicket)
	}

	api.POST("/chat", optionalAuth, RateLimit(d.ChatLimiter, d.Logger), h.chat)

	adminGroup := api.Group("/admin", requireAuth, AdminOnly())
	{
		adminGroup.GET("/dashboard/stats", h.dashboardStats)
		adminGroup.GET("/users", h.listUsers)
		adminGroup.GET("/users/:id/tickets", h.userTickets)
		adminGroup.PUT("/users/:id/role", h.updateRole)
		adminGroup.DELETE("/users/:id", h.deleteUser)
	}

	return r
}

type handlers struct {
	d Deps
}

// @Summary  Health check
// @Tags     system
// @Success  200  {object}  HealthResponse
// @Router   /api/health [get]
func (h *handlers) health(c *gin.Context) {
	db := "connected"
	if h.d.Database != nil && !h.d.Database.Up() {
		db = "disconnected"
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: h.d.Now().UTC().Format(time.RFC3339),
		Database:  db,
	})
}

// --- Helpers ---

func parseUUIDParam(c *gin.Context, name, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		abortErr(c, http.StatusBadRequest, codeValidation, msg)
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		abortErr(c, http.StatusBadRequest, codeValidation, msgMalformedPayload+": "+err.Error())
		return false
	}
	return true
}

