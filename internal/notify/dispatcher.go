package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/museum-tix/internal/domain"
)

var (
	ErrQueueFull = errors.New("notification queue is full")
	ErrStopped   = errors.New("notification dispatcher stopped")
)

// FailureRecorder counts undelivered notifications.
type FailureRecorder interface {
	NotificationFailed(kind string)
}

type Config struct {
	QueueSize   int
	SendTimeout time.Duration
}

func (c *Config) withDefaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 15 * time.Second
	}
}

type job struct {
	kind   string
	ticket domain.Ticket
}

// Dispatcher queues ticket emails and sends them from a single background
// worker. Enqueueing never blocks; when the queue is full, or Run has
// already stopped, the email is dropped and reported as a failure.
type Dispatcher struct {
	sender    Sender
	templates *Templates
	failures  FailureRecorder
	logger    *slog.Logger
	cfg       Config

	queue chan job
	errs  chan error

	// mu orders enqueues against the final drain in Run.
	mu      sync.RWMutex
	stopped bool
}

func NewDispatcher(sender Sender, templates *Templates, failures FailureRecorder, logger *slog.Logger, cfg Config) *Dispatcher {
	cfg.withDefaults()

	return &Dispatcher{
		sender:    sender,
		templates: templates,
		failures:  failures,
		logger:    logger,
		cfg:       cfg,
		queue:     make(chan job, cfg.QueueSize),
		errs:      make(chan error, cfg.QueueSize),
	}
}

func (d *Dispatcher) TicketBooked(t domain.Ticket) {
	d.enqueue(KindBooked, t)
}

func (d *Dispatcher) TicketCancelled(t domain.Ticket) {
	d.enqueue(KindCancelled, t)
}

func (d *Dispatcher) enqueue(kind string, t domain.Ticket) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		// Nobody drains errs any more.
		if d.failures != nil {
			d.failures.NotificationFailed(kind)
		}
		d.logger.Error("notification failed", "error",
			fmt.Errorf("notify: %s email for ticket %s: %w", kind, t.ID, ErrStopped))
		return
	}

	select {
	case d.queue <- job{kind: kind, ticket: t}:
	default:
		d.fail(kind, fmt.Errorf("notify: %s email for ticket %s: %w", kind, t.ID, ErrQueueFull))
	}
}

// Run sends queued emails until ctx is cancelled. Emails still queued at
// that point are flushed with a fresh timeout before Run returns; later
// enqueues are rejected with ErrStopped.
func (d *Dispatcher) Run(ctx context.Context) error {
	done := make(chan struct{})
	g := new(errgroup.Group)

	g.Go(func() error {
		for {
			select {
			case err := <-d.errs:
				d.logger.Error("notification failed", "error", err)
			case <-done:
				for {
					select {
					case err := <-d.errs:
						d.logger.Error("notification failed", "error", err)
					default:
						return nil
					}
				}
			}
		}
	})

	g.Go(func() error {
		defer close(done)

		for {
			select {
			case j := <-d.queue:
				d.send(context.Background(), j)
			case <-ctx.Done():
				d.mu.Lock()
				d.stopped = true
				d.mu.Unlock()

				for {
					select {
					case j := <-d.queue:
						d.send(context.Background(), j)
					default:
						return nil
					}
				}
			}
		}
	})

	return g.Wait()
}

func (d *Dispatcher) send(ctx context.Context, j job) {
	msg, err := d.templates.Render(j.kind, j.ticket)
	if err != nil {
		d.fail(j.kind, err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, msg); err != nil {
		d.fail(j.kind, fmt.Errorf("notify: %s email for ticket %s: %w", j.kind, j.ticket.ID, err))
		return
	}

	d.logger.Debug("notification sent", "kind", j.kind, "ticket_id", j.ticket.ID)
}

func (d *Dispatcher) fail(kind string, err error) {
	if d.failures != nil {
		d.failures.NotificationFailed(kind)
	}

	select {
	case d.errs <- err:
	default:
		d.logger.Error("notification failed", "error", err)
	}
}
