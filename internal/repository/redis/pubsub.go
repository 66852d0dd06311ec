package redisrepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Ticket change kinds carried on the channel.
const (
	ChangeBooked    = "ticket_booked"
	ChangeCancelled = "ticket_cancelled"
	ChangeUserGone  = "user_deleted"
)

type TicketsPubSub struct {
	rdb     *redis.Client
	channel string
	now     func() time.Time
}

func NewTicketsPubSub(rdb *redis.Client) *TicketsPubSub {
	return &TicketsPubSub{
		rdb:     rdb,
		channel: ChannelTicketsChanged(),
		now:     time.Now,
	}
}

type TicketChanged struct {
	Type     string    `json:"type"`
	TicketID uuid.UUID `json:"ticket_id"`
	TsUnix   int64     `json:"ts_unix"`
}

func (p *TicketsPubSub) PublishTicketChanged(ctx context.Context, kind string, ticketID uuid.UUID) error {
	msg := TicketChanged{
		Type:     kind,
		TicketID: ticketID,
		TsUnix:   p.now().Unix(),
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.channel, string(b)).Err()
}

// Subscribe delivers change messages to handler until ctx is done.
// Malformed payloads are skipped.
func (p *TicketsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, msg TicketChanged)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev TicketChanged
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil && ev.Type != "" {
				handler(ctx, ev)
			}
		}
	}
}
