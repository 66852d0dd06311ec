package jobs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/museum-tix/internal/domain"
	"github.com/kirinyoku/museum-tix/internal/postgres"
)

type flakyDB struct{ err error }

func (f *flakyDB) Ping(context.Context) error { return f.err }

type gauge struct{ up, set bool }

func (g *gauge) SetDatabaseUp(up bool) { g.up, g.set = up, true }

func TestDBWatchTransitions(t *testing.T) {
	var (
		logs     bytes.Buffer
		health   postgres.Health
		migrated int
		db       = &flakyDB{err: errors.New("connection refused")}
		g        = &gauge{}
	)

	p := NewDBWatch(db, &health, g, func(context.Context) error {
		migrated++
		return nil
	}, slog.New(slog.NewTextHandler(&logs, nil)))

	p.Run(context.Background())
	assert.False(t, health.Up())
	assert.True(t, g.set)
	assert.Zero(t, migrated)

	db.err = nil
	p.Run(context.Background())
	assert.True(t, health.Up())
	assert.True(t, g.up)
	assert.Equal(t, 1, migrated)
	assert.Contains(t, logs.String(), "database connection restored")

	p.Run(context.Background())
	assert.Equal(t, 1, migrated)

	db.err = errors.New("timeout")
	p.Run(context.Background())
	assert.False(t, health.Up())
	assert.Contains(t, logs.String(), "database connection lost")
}

func TestDBWatchMigrationFailureKeepsDown(t *testing.T) {
	var health postgres.Health

	p := NewDBWatch(&flakyDB{}, &health, nil, func(context.Context) error {
		return errors.New("permission denied")
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	p.Run(context.Background())
	assert.False(t, health.Up())
}

type fixedCounts []domain.StatusCount

func (f fixedCounts) CountByStatus(context.Context) ([]domain.StatusCount, error) { return f, nil }

type captureGauge struct{ got []domain.StatusCount }

func (c *captureGauge) SetTicketsByStatus(counts []domain.StatusCount) { c.got = counts }

func TestTicketGaugesSkipWhileDown(t *testing.T) {
	counts := fixedCounts{{Status: domain.TicketBooked, Count: 3}}
	g := &captureGauge{}
	up := false

	job := NewTicketGauges(counts, g, func() bool { return up }, slog.New(slog.NewTextHandler(io.Discard, nil)))

	job.Run(context.Background())
	assert.Nil(t, g.got)

	up = true
	job.Run(context.Background())
	assert.Equal(t, []domain.StatusCount(counts), g.got)
}

func TestSchedulerRunsImmediately(t *testing.T) {
	var runs atomic.Int32

	s, err := NewScheduler(slog.New(slog.NewTextHandler(io.Discard, nil)), Job{
		Name:  "tick",
		Every: time.Hour,
		Run:   func(context.Context) { runs.Add(1) },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
