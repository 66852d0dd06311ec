package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// RetryPolicy controls Connect. The delay doubles after every failed attempt
// up to MaxDelay.
type RetryPolicy struct {
	Attempts    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	PingTimeout time.Duration
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay << (attempt - 1)
	if p.MaxDelay > 0 && (d > p.MaxDelay || d <= 0) {
		d = p.MaxDelay
	}
	return d
}

// Connect pings db until it answers or the attempts run out.
func Connect(ctx context.Context, db Pinger, p RetryPolicy, logger *slog.Logger) error {
	const op = "postgres.Connect"

	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.PingTimeout <= 0 {
		p.PingTimeout = 3 * time.Second
	}

	var err error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		ctxPing, cancel := context.WithTimeout(ctx, p.PingTimeout)
		err = db.Ping(ctxPing)
		cancel()
		if err == nil {
			return nil
		}

		if attempt == p.Attempts {
			break
		}

		wait := p.delay(attempt)
		logger.Warn("postgres not ready, retrying",
			"attempt", attempt,
			"max_attempts", p.Attempts,
			"retry_in", wait,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(wait):
		}
	}

	return fmt.Errorf("%s: giving up after %d attempts: %w", op, p.Attempts, err)
}
