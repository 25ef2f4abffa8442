// Package poller orchestrates the poll cycle: load state, fetch offers,
// diff against the seen set, notify subscribers, persist.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"ofertabot/internal/notify"
	"ofertabot/internal/offers"
	"ofertabot/internal/store"
)

// Fetcher is the listing API slice the poller depends on.
type Fetcher interface {
	Fetch(ctx context.Context, f offers.Filters) ([]offers.Offer, error)
}

// Broadcaster delivers one message to many chats.
type Broadcaster interface {
	Broadcast(ctx context.Context, text string, recipients []int64) (sent, failed int)
}

type Config struct {
	// Interval between scheduled cycles. Zero falls back to 10 minutes.
	Interval time.Duration
	// Filters applied to every fetch.
	Filters offers.Filters
	// DefaultChatID always receives notifications, on top of registered
	// subscribers. Zero disables it.
	DefaultChatID int64
	// CycleTimeout bounds one whole cycle. Zero falls back to 2 minutes.
	CycleTimeout time.Duration
}

// Status is an observable snapshot of the loop. All failures the loop
// swallows (fetch errors, store errors) surface here.
type Status struct {
	LastRunAt     time.Time     `json:"last_run_at"`
	LastDuration  time.Duration `json:"last_duration"`
	LastError     string        `json:"last_error,omitempty"`
	LastFetched   int           `json:"last_fetched"`
	LastNew       int           `json:"last_new"`
	SeenCount     int           `json:"seen_count"`
	CyclesRun     uint64        `json:"cycles_run"`
	TicksSkipped  uint64        `json:"ticks_skipped"`
	NotifiedTotal int           `json:"notified_total"`
}

// Poller runs cycles on a fixed schedule. At most one cycle executes at a
// time: a tick arriving while a cycle is still running is skipped, not
// queued, so overlapping read-modify-write on the persisted state cannot
// happen in-process.
type Poller struct {
	store    store.Store
	fetcher  Fetcher
	notifier Broadcaster
	log      zerolog.Logger

	cfgMu  sync.RWMutex
	cfg    Config
	runCtx context.Context // lifecycle context captured at Start

	runMu sync.Mutex // held for the duration of one cycle

	c      *cron.Cron
	cronID cron.EntryID

	statusMu  sync.RWMutex
	status    Status
	lastBatch []offers.Offer
}

func New(cfg Config, st store.Store, fetcher Fetcher, notifier Broadcaster, log zerolog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = 2 * time.Minute
	}
	return &Poller{
		store:    st,
		fetcher:  fetcher,
		notifier: notifier,
		log:      log,
		cfg:      cfg,
	}
}

// Start runs one cycle synchronously, then schedules recurring cycles.
func (p *Poller) Start(ctx context.Context) error {
	p.RunCycle(ctx)

	p.cfgMu.Lock()
	p.runCtx = ctx
	interval := p.cfg.Interval
	p.cfgMu.Unlock()

	p.c = cron.New()
	id, err := p.c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		p.RunCycle(p.cycleCtx())
	})
	if err != nil {
		return fmt.Errorf("schedule poll cycle: %w", err)
	}
	p.cronID = id
	p.c.Start()
	p.log.Info().Dur("interval", interval).Msg("poll schedule started")
	return nil
}

// Stop halts the schedule and waits for an in-flight cycle to finish.
func (p *Poller) Stop(ctx context.Context) {
	if p.c != nil {
		stopCtx := p.c.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
		}
		p.c = nil
	}
	// Drain: acquiring the run lock means no cycle is in flight.
	p.runMu.Lock()
	p.runMu.Unlock() //nolint:staticcheck // lock/unlock pair used as a barrier
	p.log.Info().Msg("poll schedule stopped")
}

// Apply updates filters and interval from a config reload. An interval
// change reschedules the cron entry.
func (p *Poller) Apply(cfg Config) {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = 2 * time.Minute
	}

	p.cfgMu.Lock()
	prev := p.cfg
	p.cfg = cfg
	p.cfgMu.Unlock()

	if p.c != nil && prev.Interval != cfg.Interval {
		p.c.Remove(p.cronID)
		id, err := p.c.AddFunc(fmt.Sprintf("@every %s", cfg.Interval), func() {
			p.RunCycle(p.cycleCtx())
		})
		if err != nil {
			p.log.Error().Err(err).Msg("reschedule failed, keeping previous entry gone")
			return
		}
		p.cronID = id
		p.log.Info().Dur("interval", cfg.Interval).Msg("poll interval updated")
	}
}

// cycleCtx returns the lifecycle context so scheduled and rescheduled
// cycles both observe shutdown cancellation.
func (p *Poller) cycleCtx() context.Context {
	p.cfgMu.RLock()
	defer p.cfgMu.RUnlock()
	if p.runCtx != nil {
		return p.runCtx
	}
	return context.Background()
}

// RunCycle executes one poll cycle. If another cycle is already running
// the call returns immediately and the tick is counted as skipped.
func (p *Poller) RunCycle(ctx context.Context) {
	if !p.runMu.TryLock() {
		p.statusMu.Lock()
		p.status.TicksSkipped++
		p.statusMu.Unlock()
		p.log.Warn().Msg("previous cycle still running, tick skipped")
		return
	}
	defer p.runMu.Unlock()

	p.cfgMu.RLock()
	cfg := p.cfg
	p.cfgMu.RUnlock()

	cctx, cancel := context.WithTimeout(ctx, cfg.CycleTimeout)
	defer cancel()

	started := time.Now()
	res := p.cycle(cctx, cfg)

	p.statusMu.Lock()
	p.status.LastRunAt = started
	p.status.LastDuration = time.Since(started)
	p.status.LastError = res.errText
	p.status.LastFetched = res.fetched
	p.status.LastNew = res.newOffers
	p.status.SeenCount = res.seenCount
	p.status.CyclesRun++
	p.status.NotifiedTotal += res.notified
	if res.batch != nil {
		p.lastBatch = res.batch
	}
	p.statusMu.Unlock()
}

type cycleResult struct {
	errText   string
	fetched   int
	newOffers int
	notified  int
	seenCount int
	batch     []offers.Offer
}

func (p *Poller) cycle(ctx context.Context, cfg Config) cycleResult {
	var res cycleResult

	st, err := p.store.LoadState(ctx)
	if err != nil {
		// Infra failure (redis down, disk error). Skip the cycle rather
		// than risk re-notifying everything against a default state.
		p.log.Error().Err(err).Msg("state load failed, cycle skipped")
		res.errText = "load state: " + err.Error()
		return res
	}

	batch, err := p.fetcher.Fetch(ctx, cfg.Filters)
	if err != nil {
		// Degrades to "no new offers this cycle"; recorded, not retried.
		p.log.Warn().Err(err).Msg("fetch failed, treating as empty batch")
		res.errText = "fetch: " + err.Error()
	}
	res.fetched = len(batch)
	res.batch = batch

	if st.FirstRun {
		// First run seeds the seen set without notifying; only offers
		// published after the seed are broadcast.
		for _, o := range batch {
			if !st.Seen(o.ID) {
				st.SeenOfferIDs = append(st.SeenOfferIDs, o.ID)
			}
		}
		if err == nil {
			st.FirstRun = false
		}
		p.log.Info().Int("seeded", len(st.SeenOfferIDs)).Msg("first run, seen set seeded without notifications")
	} else {
		recipients := p.recipients(ctx, cfg)
		for _, o := range batch {
			if st.Seen(o.ID) {
				continue
			}
			res.newOffers++
			msg := notify.FormatOffer(o, true)
			sent, failed := p.notifier.Broadcast(ctx, msg, recipients)
			res.notified += sent
			p.log.Info().Str("offer_id", o.ID).Str("title", o.Title).Int("sent", sent).Int("failed", failed).Msg("new offer notified")
			st.SeenOfferIDs = append(st.SeenOfferIDs, o.ID)
		}
	}

	if err := p.store.SaveState(ctx, st); err != nil {
		p.log.Error().Err(err).Msg("state save failed")
		res.errText = "save state: " + err.Error()
	}
	res.seenCount = len(st.SeenOfferIDs)
	return res
}

// recipients merges registered subscribers with the default chat.
func (p *Poller) recipients(ctx context.Context, cfg Config) []int64 {
	subs, err := p.store.Subscribers(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("subscriber load failed, using default recipient only")
		subs = nil
	}
	if cfg.DefaultChatID == 0 {
		return subs
	}
	for _, id := range subs {
		if id == cfg.DefaultChatID {
			return subs
		}
	}
	return append(subs, cfg.DefaultChatID)
}

// Status returns a copy of the current loop status.
func (p *Poller) Status() Status {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()
	return p.status
}

// LastBatch returns the most recent successfully-fetched batch.
func (p *Poller) LastBatch() []offers.Offer {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()
	out := make([]offers.Offer, len(p.lastBatch))
	copy(out, p.lastBatch)
	return out
}
