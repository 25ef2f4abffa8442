package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ofertabot/pkg/logx"
)

func newOfflineService(t *testing.T) *Service {
	t.Helper()
	s, err := New(Config{Token: "test-token", Offline: true}, nil, logx.NewConsole("error"))
	require.NoError(t, err)
	return s
}

func TestNewRejectsEmptyToken(t *testing.T) {
	_, err := New(Config{Token: "   ", Offline: true}, nil, logx.NewConsole("error"))
	require.Error(t, err)
}

func TestStopTwiceReturns(t *testing.T) {
	s := newOfflineService(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	s.Stop()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second Stop blocked")
	}
}

func TestStopBeforeStartIsNoOp(t *testing.T) {
	s := newOfflineService(t)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop without Start blocked")
	}
}
