package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirinyoku/museum-tix/internal/domain"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthSetter stores the health check result and reports whether it changed.
type HealthSetter interface {
	Set(up bool) bool
}

type DBGauge interface {
	SetDatabaseUp(up bool)
}

// DBWatch keeps the shared database health flag current. The schema is
// applied on the first successful ping so a server that started while the
// database was down becomes usable without a restart.
type DBWatch struct {
	db       Pinger
	health   HealthSetter
	gauge    DBGauge
	migrate  func(ctx context.Context) error
	logger   *slog.Logger
	timeout  time.Duration
	migrated bool
}

func NewDBWatch(db Pinger, health HealthSetter, gauge DBGauge, migrate func(ctx context.Context) error, logger *slog.Logger) *DBWatch {
	return &DBWatch{
		db:      db,
		health:  health,
		gauge:   gauge,
		migrate: migrate,
		logger:  logger,
		timeout: 3 * time.Second,
	}
}

// MarkMigrated records that the schema was already applied at startup.
func (p *DBWatch) MarkMigrated() {
	p.migrated = true
}

func (p *DBWatch) Run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.db.Ping(ctx)
	if err == nil && !p.migrated && p.migrate != nil {
		if err = p.migrate(ctx); err == nil {
			p.migrated = true
			p.logger.Info("database schema applied")
		}
	}

	up := err == nil
	if p.gauge != nil {
		p.gauge.SetDatabaseUp(up)
	}

	if !p.health.Set(up) {
		return
	}
	if up {
		p.logger.Info("database connection restored")
	} else {
		p.logger.Warn("database connection lost", "error", err)
	}
}

type StatusCounter interface {
	CountByStatus(ctx context.Context) ([]domain.StatusCount, error)
}

type StatusGauge interface {
	SetTicketsByStatus(counts []domain.StatusCount)
}

// TicketGauges refreshes the tickets-by-status gauges from the database.
type TicketGauges struct {
	stats  StatusCounter
	gauge  StatusGauge
	up     func() bool
	logger *slog.Logger
}

func NewTicketGauges(stats StatusCounter, gauge StatusGauge, up func() bool, logger *slog.Logger) *TicketGauges {
	return &TicketGauges{stats: stats, gauge: gauge, up: up, logger: logger}
}

func (g *TicketGauges) Run(ctx context.Context) {
	if g.up != nil && !g.up() {
		return
	}

	counts, err := g.stats.CountByStatus(ctx)
	if err != nil {
		g.logger.Warn("refresh ticket gauges", "error", err)
		return
	}

	g.gauge.SetTicketsByStatus(counts)
}
