package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/museum-tix/internal/assistant"
	"github.com/kirinyoku/museum-tix/internal/config"
	"github.com/kirinyoku/museum-tix/internal/jobs"
	"github.com/kirinyoku/museum-tix/internal/metrics"
	"github.com/kirinyoku/museum-tix/internal/notify"
	"github.com/kirinyoku/museum-tix/internal/postgres"
	"github.com/kirinyoku/museum-tix/internal/redis"
	postgresrepo "github.com/kirinyoku/museum-tix/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/museum-tix/internal/repository/redis"
	"github.com/kirinyoku/museum-tix/internal/service"
	"github.com/kirinyoku/museum-tix/internal/service/auth"
	httpgin "github.com/kirinyoku/museum-tix/internal/transport/http/gin"
	"github.com/kirinyoku/museum-tix/internal/uow"
)

const (
	txAttempts      = 3
	authPerMinute   = 10
	idempotencyTTL  = 2 * time.Hour
	chatDraftTTL    = 30 * time.Minute
	dbWatchInterval = 10 * time.Second
	gaugeInterval   = time.Minute
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	pool       *pgxpool.Pool
	rdb        *goredis.Client
	dispatcher *notify.Dispatcher
	scheduler  *jobs.Scheduler
	pubsub     *redisrepo.TicketsPubSub
	changes    *service.Changes
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	pgxPool, err := postgres.New(ctx, postgres.Config{DSN: cfg.Postgres.DSN(), MaxConns: cfg.Postgres.MaxConns})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	// The server starts even when the database is down; the watch job
	// flips health once it comes back.
	health := &postgres.Health{}
	migrated := false
	err = postgres.Connect(ctx, pgxPool, postgres.RetryPolicy{
		Attempts:  cfg.Postgres.ConnectRetries,
		BaseDelay: cfg.Postgres.RetryDelay,
		MaxDelay:  30 * time.Second,
	}, logger)
	if err == nil {
		err = postgres.Migrate(ctx, pgxPool)
		migrated = err == nil
	}
	if err != nil {
		logger.Warn("starting without database", "error", err)
	}
	health.Set(migrated)

	rdb, err := redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		pgxPool.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	// Repositories
	store := postgresrepo.NewStore(pgxPool)
	tx := uow.NewUoW(store, postgresrepo.IsRetryable, txAttempts)
	cache := redisrepo.New(rdb)
	pubsub := redisrepo.NewTicketsPubSub(rdb)
	authLimiter := redisrepo.NewSlidingWindowLimiter(rdb, "auth", authPerMinute, time.Minute)
	chatLimiter := redisrepo.NewSlidingWindowLimiter(rdb, "chat", cfg.Limits.RequestsPerMinute, time.Minute)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, idempotencyTTL)
	drafts := redisrepo.NewDraftStore(rdb, chatDraftTTL)

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	m.SetDatabaseUp(migrated)

	// Notifications
	templates, err := notify.NewTemplates(cfg.Server.FrontendURL)
	if err != nil {
		pgxPool.Close()
		_ = rdb.Close()
		return nil, err
	}

	var sender notify.Sender = notify.NewLogSender(logger)
	smtpCfg := notify.SMTPConfig(cfg.SMTP)
	if smtpCfg.Configured() {
		s, err := notify.NewSMTPSender(smtpCfg)
		if err != nil {
			pgxPool.Close()
			_ = rdb.Close()
			return nil, err
		}
		sender = s
	} else {
		logger.Warn("smtp is not configured, emails will only be logged")
	}
	dispatcher := notify.NewDispatcher(sender, templates, m, logger, notify.Config{})

	// Services
	changes := service.NewChanges(cache, pubsub, logger)
	services := service.NewServices(service.Deps{
		Store:   store,
		Tx:      tx,
		Cache:   cache,
		Drafts:  drafts,
		Changes: changes,
		Tokens:  auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, nil),
		Assistant: assistant.New(assistant.Config{
			APIKey:  cfg.Assistant.APIKey,
			Model:   cfg.Assistant.Model,
			BaseURL: cfg.Assistant.BaseURL,
		}),
		Notifier: dispatcher,
		Metrics:  m,
		Logger:   logger,
	}, service.Config{})

	// Background jobs
	watch := jobs.NewDBWatch(pgxPool, health, m, func(ctx context.Context) error {
		return postgres.Migrate(ctx, pgxPool)
	}, logger)
	if migrated {
		watch.MarkMigrated()
	}

	scheduler, err := jobs.NewScheduler(logger,
		jobs.Job{Name: "db-watch", Every: dbWatchInterval, Run: watch.Run},
		jobs.Job{Name: "ticket-gauges", Every: gaugeInterval, Run: jobs.NewTicketGauges(store.Stats(), m, health.Up, logger).Run},
	)
	if err != nil {
		pgxPool.Close()
		_ = rdb.Close()
		return nil, err
	}

	// Initialize Gin router
	router := httpgin.NewRouter(httpgin.Deps{
		Tickets:     services.Tickets,
		Admin:       services.Admin,
		Auth:        services.Auth,
		Chat:        services.Chat,
		Idempotency: idempotencyStore,
		AuthLimiter: authLimiter,
		ChatLimiter: chatLimiter,
		Database:    health,
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Origins:     []string{cfg.Server.FrontendURL},
		Logger:      logger,
	})

	return &App{
		cfg:    cfg,
		logger: logger,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		pool:       pgxPool,
		rdb:        rdb,
		dispatcher: dispatcher,
		scheduler:  scheduler,
		pubsub:     pubsub,
		changes:    changes,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer a.pool.Close()
	defer a.rdb.Close()

	g, gCtx := errgroup.WithContext(ctx)

	// The dispatcher outlives the HTTP server so emails queued by in-flight
	// requests are still sent.
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		defer stopDispatch()
		return a.httpServer.Shutdown(ctx)
	})

	// Queued emails are flushed before the dispatcher returns.
	g.Go(func() error {
		return a.dispatcher.Run(dispatchCtx)
	})

	g.Go(func() error {
		return a.scheduler.Run(gCtx)
	})

	g.Go(func() error {
		err := a.pubsub.Subscribe(gCtx, a.changes.HandleRemote)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("tickets subscription: %w", err)
		}
		return nil
	})

	return g.Wait()
}
