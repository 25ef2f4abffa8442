package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ofertabot/internal/bot"
	"ofertabot/internal/health"
	"ofertabot/internal/offers"
	"ofertabot/internal/poller"
	"ofertabot/internal/store"
	"ofertabot/pkg/logx"
)

type emptyFetcher struct{}

func (emptyFetcher) Fetch(ctx context.Context, _ offers.Filters) ([]offers.Offer, error) {
	return nil, nil
}

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(ctx context.Context, _ string, recipients []int64) (int, int) {
	return len(recipients), 0
}

func TestRunShutsDownOnCancel(t *testing.T) {
	dir := t.TempDir()
	log := logx.NewConsole("error")

	st, err := store.Open(context.Background(), store.Config{Driver: "file", Path: filepath.Join(dir, "bot")}, log)
	require.NoError(t, err)

	botSvc, err := bot.New(bot.Config{Token: "test-token", Offline: true}, st, log)
	require.NoError(t, err)

	p := poller.New(poller.Config{Interval: time.Hour}, st, emptyFetcher{}, noopBroadcaster{}, log)
	botSvc.SetPoller(p)

	a := &App{
		cfgPath: filepath.Join(dir, "config.yaml"),
		log:     log,
		store:   st,
		bot:     botSvc,
		poller:  p,
		health:  health.New(health.Config{Enabled: false}, p, log),
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
