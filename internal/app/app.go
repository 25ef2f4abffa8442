// Package app assembles the bot from its parts and owns the run/stop
// lifecycle.
package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ofertabot/internal/bot"
	"ofertabot/internal/config"
	"ofertabot/internal/health"
	"ofertabot/internal/notify"
	"ofertabot/internal/offers"
	"ofertabot/internal/poller"
	"ofertabot/internal/store"
)

type App struct {
	cfgPath string
	log     zerolog.Logger

	store  store.Store
	bot    *bot.Service
	poller *poller.Poller
	health *health.Server
}

func New(ctx context.Context, cfgPath string, cfg *config.Config, log zerolog.Logger) (*App, error) {
	st, err := store.Open(ctx, store.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: config.Duration(cfg.Storage.BusyTimeout, 0),
		RedisURL:    cfg.Storage.RedisURL,
	}, log.With().Str("component", "store").Logger())
	if err != nil {
		return nil, err
	}

	client := offers.NewClient(offers.Config{
		BaseURL:           cfg.Listing.BaseURL,
		ListingURL:        cfg.Listing.ListingURL,
		Timeout:           config.Duration(cfg.Listing.Timeout, 30*time.Second),
		OmitMidnightTimes: cfg.Listing.OmitMidnightTimes,
	}, log.With().Str("component", "fetcher").Logger())

	botSvc, err := bot.New(bot.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: config.Duration(cfg.Telegram.PollTimeout, 10*time.Second),
	}, st, log.With().Str("component", "bot").Logger())
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	notifier := notify.New(notify.Config{RatePerSec: cfg.Notifier.RatePerSec},
		botSvc.Bot(), log.With().Str("component", "notify").Logger())

	p := poller.New(pollerConfig(cfg), st, client, notifier,
		log.With().Str("component", "poller").Logger())
	botSvc.SetPoller(p)

	h := health.New(health.Config{Enabled: cfg.Health.Enabled, Addr: cfg.Health.Addr},
		p, log.With().Str("component", "health").Logger())

	return &App{
		cfgPath: cfgPath,
		log:     log,
		store:   st,
		bot:     botSvc,
		poller:  p,
		health:  h,
	}, nil
}

func pollerConfig(cfg *config.Config) poller.Config {
	return poller.Config{
		Interval:     config.Duration(cfg.Poll.Interval, 10*time.Minute),
		CycleTimeout: config.Duration(cfg.Poll.CycleTimeout, 2*time.Minute),
		Filters: offers.Filters{
			RowCap:   cfg.Filters.Rows,
			District: cfg.Filters.District,
			Status:   cfg.Filters.Status,
		},
		DefaultChatID: cfg.Telegram.DefaultChatID,
	}
}

// Run starts everything, blocks until ctx is cancelled and then shuts
// down in reverse order.
func (a *App) Run(ctx context.Context) error {
	a.bot.Start(ctx)
	a.health.Start(ctx)

	// First cycle runs synchronously inside Start. A scheduling failure
	// falls through to the same teardown as a normal shutdown.
	err := a.poller.Start(ctx)
	if err == nil {
		go func() {
			// Filter and interval changes apply live; token and storage
			// changes need a restart.
			if werr := config.Watch(ctx, a.cfgPath, a.log, func(cfg *config.Config) {
				a.poller.Apply(pollerConfig(cfg))
			}); werr != nil {
				a.log.Warn().Err(werr).Msg("config watcher unavailable")
			}
		}()

		<-ctx.Done()
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a.poller.Stop(sctx)
	a.health.Stop(sctx)
	a.bot.Stop()
	if cerr := a.store.Close(); cerr != nil {
		a.log.Warn().Err(cerr).Msg("store close failed")
	}
	a.log.Info().Msg("shutdown complete")
	return err
}
