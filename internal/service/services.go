package service

import (
	"log/slog"

	"github.com/kirinyoku/museum-tix/internal/assistant"
	postgresrepo "github.com/kirinyoku/museum-tix/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/museum-tix/internal/repository/redis"
	"github.com/kirinyoku/museum-tix/internal/service/admin"
	"github.com/kirinyoku/museum-tix/internal/service/auth"
	"github.com/kirinyoku/museum-tix/internal/service/chat"
	"github.com/kirinyoku/museum-tix/internal/service/tickets"
	"github.com/kirinyoku/museum-tix/internal/uow"
)

type Services struct {
	Tickets *tickets.Service
	Admin   *admin.Service
	Auth    *auth.Service
	Chat    *chat.Service
}

type Config struct {
	Admin admin.Config
	Auth  auth.Config
}

// Deps are the shared collaborators the services are built from.
type Deps struct {
	Store     *postgresrepo.Store
	Tx        *uow.UoW
	Cache     *redisrepo.Cache
	Drafts    *redisrepo.DraftStore
	Changes   *Changes
	Tokens    *auth.Tokens
	Assistant *assistant.Client
	Notifier  tickets.Notifier
	Metrics   tickets.Recorder
	Logger    *slog.Logger
}

func NewServices(d Deps, cfg Config) *Services {
	return &Services{
		Tickets: tickets.New(tickets.Deps{
			Tickets:  d.Store.Tickets(),
			Users:    d.Store.Users(),
			Tx:       d.Tx,
			Notifier: d.Notifier,
			Changes:  d.Changes,
			Metrics:  d.Metrics,
			Logger:   d.Logger,
		}),
		Admin: admin.New(admin.Deps{
			Stats:   d.Store.Stats(),
			Users:   d.Store.Users(),
			Tickets: d.Store.Tickets(),
			Tx:      d.Tx,
			Cache:   d.Cache,
			Changes: d.Changes,
			Logger:  d.Logger,
		}, cfg.Admin),
		Auth: auth.New(d.Store.Users(), d.Tokens, d.Logger, cfg.Auth),
		Chat: chat.New(d.Drafts, d.Assistant, d.Logger, nil),
	}
}
