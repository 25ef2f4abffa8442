// Package notify delivers formatted offer messages to subscribers via the
// Telegram transport.
package notify

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"
)

// Sender is the outbound slice of *tele.Bot. Narrowed so tests can
// substitute a fake transport.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

type Config struct {
	// RatePerSec throttles outbound sends so Telegram's broadcast limits
	// are respected. Zero falls back to 10.
	RatePerSec int
}

// Notifier fans one message out to many chats. Per-recipient failures are
// logged and skipped; they never abort the remaining recipients.
type Notifier struct {
	sender  Sender
	limiter *rate.Limiter
	log     zerolog.Logger
}

func New(cfg Config, sender Sender, log zerolog.Logger) *Notifier {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 10
	}
	return &Notifier{
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		log:     log,
	}
}

// Broadcast sends text to every recipient, returning how many sends
// succeeded and how many failed.
func (n *Notifier) Broadcast(ctx context.Context, text string, recipients []int64) (sent, failed int) {
	opts := &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
	}
	for _, chatID := range recipients {
		if err := n.limiter.Wait(ctx); err != nil {
			n.log.Warn().Err(err).Int("remaining", len(recipients)-sent-failed).Msg("broadcast cancelled")
			failed += len(recipients) - sent - failed
			return sent, failed
		}
		if _, err := n.sender.Send(tele.ChatID(chatID), text, opts); err != nil {
			n.log.Warn().Err(err).Int64("chat_id", chatID).Msg("delivery failed")
			failed++
			continue
		}
		sent++
	}
	return sent, failed
}
