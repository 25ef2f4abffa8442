// Package bot wires the Telegram command surface: subscription, replay of
// the latest batch and an operational status command.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"

	"ofertabot/internal/notify"
	"ofertabot/internal/poller"
	"ofertabot/internal/store"
	"ofertabot/pkg/htmlfmt"
)

type Config struct {
	Token string
	// PollTimeout is the long-poll timeout. Zero falls back to 10s.
	PollTimeout time.Duration
	// Offline skips the token check against the Telegram API. Tests only.
	Offline bool
}

type Service struct {
	bot    *tele.Bot
	store  store.Store
	poller *poller.Poller
	log    zerolog.Logger

	runMu   sync.Mutex
	running bool
}

func New(cfg Config, st store.Store, log zerolog.Logger) (*Service, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Offline: cfg.Offline,
		Poller:  &tele.LongPoller{Timeout: timeout},
		OnError: func(err error, c tele.Context) {
			log.Warn().Err(err).Msg("handler error")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Service{bot: b, store: st, log: log}, nil
}

// Bot exposes the underlying client so the notifier can send through it.
func (s *Service) Bot() *tele.Bot { return s.bot }

// SetPoller injects the poller after construction. The bot and the poller
// reference each other (poller sends through the bot, bot reads poller
// status), so one side is wired late.
func (s *Service) SetPoller(p *poller.Poller) { s.poller = p }

func (s *Service) Start(ctx context.Context) {
	s.bot.Handle("/start", s.handleStart)
	s.bot.Handle("/ultimas", s.handleLatest)
	s.bot.Handle("/status", s.handleStatus)
	s.bot.Handle("/stop", s.handleStop)

	s.runMu.Lock()
	s.running = true
	s.runMu.Unlock()

	go func() {
		s.log.Info().Msg("telegram polling started")
		s.bot.Start() // blocks until Stop
	}()
}

// Stop halts long polling. telebot's Stop hands a confirm channel to the
// running Start loop, which consumes it exactly once, so Stop must not
// reach the underlying bot a second time.
func (s *Service) Stop() {
	s.runMu.Lock()
	wasRunning := s.running
	s.running = false
	s.runMu.Unlock()

	if !wasRunning {
		s.log.Debug().Msg("telegram stop called but polling not running")
		return
	}
	s.bot.Stop()
	s.log.Info().Msg("telegram polling stopped")
}

func (s *Service) handleStart(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	added, err := s.store.AddSubscriber(ctx, chat.ID)
	if err != nil {
		s.log.Error().Err(err).Int64("chat_id", chat.ID).Msg("subscribe failed")
		return c.Send("No pude registrarte, intentá de nuevo en un rato.")
	}
	if !added {
		return c.Send("Ya estabas suscripto. Te aviso cuando haya ofertas nuevas.")
	}
	s.log.Info().Int64("chat_id", chat.ID).Msg("subscriber registered")
	return c.Send("¡Listo! Te voy a avisar cuando se publiquen nuevas ofertas.")
}

func (s *Service) handleLatest(c tele.Context) error {
	batch := s.poller.LastBatch()
	if len(batch) == 0 {
		return c.Send("Todavía no hay ofertas en el último listado.")
	}
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML, DisableWebPagePreview: true}
	for _, o := range batch {
		if err := c.Send(notify.FormatOffer(o, false), opts); err != nil {
			// One bad message must not cut the replay short.
			s.log.Warn().Err(err).Str("offer_id", o.ID).Msg("replay send failed")
		}
	}
	return nil
}

func (s *Service) handleStatus(c tele.Context) error {
	st := s.poller.Status()

	lastRun := "nunca"
	if !st.LastRunAt.IsZero() {
		lastRun = st.LastRunAt.Format("02/01/2006 15:04:05")
	}
	lines := []htmlfmt.H{
		htmlfmt.B("Estado del bot"),
		htmlfmt.Esc(fmt.Sprintf("Último chequeo: %s", lastRun)),
		htmlfmt.Esc(fmt.Sprintf("Ofertas en el listado: %d", st.LastFetched)),
		htmlfmt.Esc(fmt.Sprintf("Nuevas en el último ciclo: %d", st.LastNew)),
		htmlfmt.Esc(fmt.Sprintf("Ofertas vistas en total: %d", st.SeenCount)),
		htmlfmt.Esc(fmt.Sprintf("Ciclos corridos: %d", st.CyclesRun)),
	}
	if st.LastError != "" {
		lines = append(lines, htmlfmt.Join(" ", htmlfmt.B("Último error:"), htmlfmt.Code(st.LastError)))
	}
	return c.Send(htmlfmt.Join("\n", lines...).String(), &tele.SendOptions{ParseMode: tele.ModeHTML})
}

func (s *Service) handleStop(c tele.Context) error {
	// There is no unsubscribe path in the persisted model; be honest
	// about it instead of silently eating the command.
	if chat := c.Chat(); chat != nil {
		s.log.Info().Int64("chat_id", chat.ID).Msg("unsubscribe requested (unsupported)")
	}
	return c.Send("Por ahora no hay baja de suscripción. Podés silenciar el chat si preferís.")
}
