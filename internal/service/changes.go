package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	redisrepo "github.com/kirinyoku/museum-tix/internal/repository/redis"
)

// Changes propagates committed ticket changes: it drops the cached
// dashboard and announces the change to other instances. Failures are
// logged; the change itself is already durable.
type Changes struct {
	cache  *redisrepo.Cache
	pubsub *redisrepo.TicketsPubSub
	logger *slog.Logger
}

func NewChanges(cache *redisrepo.Cache, pubsub *redisrepo.TicketsPubSub, logger *slog.Logger) *Changes {
	return &Changes{cache: cache, pubsub: pubsub, logger: logger}
}

func (c *Changes) TicketChanged(ctx context.Context, kind string, ticketID uuid.UUID) {
	c.invalidate(ctx)

	if c.pubsub == nil {
		return
	}
	if err := c.pubsub.PublishTicketChanged(ctx, kind, ticketID); err != nil {
		c.logger.Warn("publish ticket change", "kind", kind, "ticket_id", ticketID, "error", err)
	}
}

// HandleRemote reacts to a change announced by another instance.
func (c *Changes) HandleRemote(ctx context.Context, msg redisrepo.TicketChanged) {
	c.logger.Debug("ticket change received", "kind", msg.Type, "ticket_id", msg.TicketID)
	c.invalidate(ctx)
}

func (c *Changes) invalidate(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.InvalidateStats(ctx); err != nil {
		c.logger.Warn("invalidate dashboard cache", "error", err)
	}
}
