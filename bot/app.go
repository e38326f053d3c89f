package bot

import (
	"context"
	"fmt"

	"curatorbot/bot/flows"
	"curatorbot/bot/handlers"
	"curatorbot/bot/notify"
	"curatorbot/bot/review"
	"curatorbot/core/bootstrap"
	"curatorbot/core/paging"
	tg "curatorbot/core/telegram"
	"curatorbot/core/telegram/ephemeral"
	"curatorbot/core/telegram/flow"
	"curatorbot/core/telegram/middleware"
	"curatorbot/core/telegram/router"
	"curatorbot/core/telegram/state"
	"curatorbot/core/telegram/transport"
	"curatorbot/core/telegram/ui"
	"curatorbot/model"
	"curatorbot/storage"

	"github.com/jmoiron/sqlx"
)

// App holds the assembled bot ready to run.
type App struct {
	cfg      *Config
	db       *sqlx.DB
	msgr     *transport.BotMessenger
	handlers *handlers.Handlers
	registry *tg.Registry
}

// Bootstrap initializes infrastructure and wires every component.
func Bootstrap(cfg *Config) (*App, error) {
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   &cfg.Core,
		Database: cfg.Database,
		Seeders: []bootstrap.Seeder{
			bootstrap.SeederFunc(func(ctx context.Context, db *sqlx.DB) error {
				return storage.NewCategoryStore(db).Seed(ctx, cfg.Categories)
			}),
		},
	})
	if err != nil {
		return nil, err
	}

	catStore := storage.NewCategoryStore(res.DB)
	subStore := storage.NewSubmissionStore(res.DB)

	msgr := transport.NewBotMessenger(nil)
	sessions := state.NewStore(cfg.Session.TTL())
	tracker := ephemeral.NewTracker(msgr)

	targets := notify.Targets{
		AdminID:    cfg.Core.Telegram.AdminID,
		Moderators: cfg.Moderation.Moderators,
		Channels:   cfg.Moderation.Channels,
	}
	dispatcher := notify.NewDispatcher(msgr, targets)

	limits := paging.Limits{
		Min:     cfg.Paging.MinPageSize,
		Max:     cfg.Paging.MaxPageSize,
		Default: cfg.Paging.DefaultPageSize,
	}
	pipeline := review.NewPipeline(subStore, dispatcher, limits, flows.Publishable())

	mods := middleware.ModeratorOptions{
		AdminID:    cfg.Core.Telegram.AdminID,
		Moderators: cfg.Moderation.Moderators,
	}

	var h *handlers.Handlers
	specs := flows.All()
	specPtrs := make([]*flow.Spec, len(specs))
	for i := range specs {
		specPtrs[i] = &specs[i]
	}
	machine, err := flow.NewMachine(specPtrs, sessions, msgr, catStore, subStore,
		func(ctx context.Context, sub *model.Submission) { h.NotifySubmitted(ctx, sub) },
	)
	if err != nil {
		_ = res.DB.Close()
		return nil, fmt.Errorf("bot: flow machine: %w", err)
	}

	h = handlers.New(machine, pipeline, dispatcher, tracker, msgr, mods)

	reg := tg.NewRegistry()
	if err := h.Register(reg); err != nil {
		_ = res.DB.Close()
		return nil, fmt.Errorf("bot: register handlers: %w", err)
	}

	return &App{
		cfg:      cfg,
		db:       res.DB,
		msgr:     msgr,
		handlers: h,
		registry: reg,
	}, nil
}

// TelegramRunOptions composes the runtime options consumed by the runner.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	mws := tg.DefaultMiddlewares(&a.cfg.Core, nil)

	var fallbacks ui.FallbackProvider = a.handlers

	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID: a.cfg.Core.Telegram.AdminID,
	})
	routes = append(routes, router.TextRoutes(a.handlers, a.registry, router.TextOptions{
		UnknownText:  fallbacks.UnknownText(),
		UnknownMedia: fallbacks.UnknownMedia(),
	})...)
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{
		NotFound: fallbacks.UnknownCallback(),
	}))

	return tg.RunOptions{
		Config:      &a.cfg.Core,
		Registry:    a.registry,
		Middlewares: mws,
		Routes:      routes,
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			a.msgr.Bind(rt.Bot)
			return nil
		},
		OnStop: func(ctx context.Context, rt tg.Runtime) error {
			return a.db.Close()
		},
	}, nil
}
