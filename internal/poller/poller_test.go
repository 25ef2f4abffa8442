package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ofertabot/internal/offers"
	"ofertabot/internal/store"
	"ofertabot/pkg/logx"
)

type memStore struct {
	mu    sync.Mutex
	state store.State
	has   bool
	subs  []int64

	loadErr error
	saves   int
}

func (m *memStore) LoadState(ctx context.Context) (store.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return store.DefaultState(), m.loadErr
	}
	if !m.has {
		return store.DefaultState(), nil
	}
	cp := m.state
	cp.SeenOfferIDs = append([]string(nil), m.state.SeenOfferIDs...)
	return cp, nil
}

func (m *memStore) SaveState(ctx context.Context, st store.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = st
	m.has = true
	m.saves++
	return nil
}

func (m *memStore) Subscribers(ctx context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.subs...), nil
}

func (m *memStore) AddSubscriber(ctx context.Context, chatID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, chatID)
	return true, nil
}

func (m *memStore) Close() error { return nil }

type fakeFetcher struct {
	mu      sync.Mutex
	batch   []offers.Offer
	err     error
	block   chan struct{} // when set, Fetch blocks until closed
	fetches int
}

func (f *fakeFetcher) Fetch(ctx context.Context, _ offers.Filters) ([]offers.Offer, error) {
	f.mu.Lock()
	f.fetches++
	block := f.block
	batch, err := f.batch, f.err
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return batch, err
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

type broadcastCall struct {
	text       string
	recipients []int64
}

func (b *fakeBroadcaster) Broadcast(ctx context.Context, text string, recipients []int64) (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, broadcastCall{text: text, recipients: recipients})
	return len(recipients), 0
}

func offerBatch(ids ...string) []offers.Offer {
	out := make([]offers.Offer, 0, len(ids))
	for _, id := range ids {
		out = append(out, offers.Offer{ID: id, Title: "Cargo " + id})
	}
	return out
}

func newTestPoller(st *memStore, f *fakeFetcher, b *fakeBroadcaster) *Poller {
	return New(Config{Interval: time.Hour, DefaultChatID: 99}, st, f, b, logx.NewConsole("error"))
}

func TestFirstRunSeedsWithoutNotifying(t *testing.T) {
	st := &memStore{}
	f := &fakeFetcher{batch: offerBatch("1", "2")}
	b := &fakeBroadcaster{}
	p := newTestPoller(st, f, b)

	p.RunCycle(context.Background())

	require.Empty(t, b.calls, "first run must not notify")
	require.Equal(t, []string{"1", "2"}, st.state.SeenOfferIDs)
	require.False(t, st.state.FirstRun)
	require.Equal(t, 1, st.saves, "state persisted once per cycle")
}

func TestSteadyStateNotifiesExactlyOncePerNewOffer(t *testing.T) {
	st := &memStore{
		state: store.State{SeenOfferIDs: []string{"1", "2"}, FirstRun: false},
		has:   true,
		subs:  []int64{10, 20},
	}
	f := &fakeFetcher{batch: offerBatch("1", "2", "3")}
	b := &fakeBroadcaster{}
	p := newTestPoller(st, f, b)

	p.RunCycle(context.Background())

	require.Len(t, b.calls, 1, "exactly one notification for the one new id")
	require.Contains(t, b.calls[0].text, "Cargo 3")
	require.Equal(t, []int64{10, 20, 99}, b.calls[0].recipients)
	require.Equal(t, []string{"1", "2", "3"}, st.state.SeenOfferIDs)

	status := p.Status()
	require.Equal(t, 3, status.LastFetched)
	require.Equal(t, 1, status.LastNew)
	require.Equal(t, 3, status.SeenCount)

	// Same batch again: nothing new, nothing sent.
	p.RunCycle(context.Background())
	require.Len(t, b.calls, 1)
}

func TestFetchFailureDegradesToEmptyBatch(t *testing.T) {
	st := &memStore{
		state: store.State{SeenOfferIDs: []string{"1"}, FirstRun: false},
		has:   true,
	}
	f := &fakeFetcher{err: errors.New("connection refused")}
	b := &fakeBroadcaster{}
	p := newTestPoller(st, f, b)

	p.RunCycle(context.Background())

	require.Empty(t, b.calls)
	require.Equal(t, []string{"1"}, st.state.SeenOfferIDs)
	require.Contains(t, p.Status().LastError, "connection refused")
}

func TestFirstRunFlagSurvivesFailedFetch(t *testing.T) {
	st := &memStore{}
	f := &fakeFetcher{err: errors.New("timeout")}
	p := newTestPoller(st, f, &fakeBroadcaster{})

	p.RunCycle(context.Background())

	require.True(t, st.state.FirstRun, "first run completes only after a successful poll")
}

func TestStateLoadFailureSkipsCycle(t *testing.T) {
	st := &memStore{loadErr: errors.New("redis down")}
	f := &fakeFetcher{batch: offerBatch("1")}
	b := &fakeBroadcaster{}
	p := newTestPoller(st, f, b)

	p.RunCycle(context.Background())

	require.Empty(t, b.calls)
	require.Zero(t, st.saves)
	require.Equal(t, 0, f.fetches, "no fetch without loaded state")
	require.Contains(t, p.Status().LastError, "redis down")
}

func TestOverlappingTickIsSkipped(t *testing.T) {
	st := &memStore{}
	block := make(chan struct{})
	f := &fakeFetcher{batch: offerBatch("1"), block: block}
	p := newTestPoller(st, f, &fakeBroadcaster{})

	done := make(chan struct{})
	go func() {
		p.RunCycle(context.Background())
		close(done)
	}()

	// Wait until the first cycle is inside Fetch.
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.fetches == 1
	}, time.Second, 5*time.Millisecond)

	p.RunCycle(context.Background()) // must return immediately

	close(block)
	<-done

	require.Equal(t, uint64(1), p.Status().TicksSkipped)
	require.Equal(t, uint64(1), p.Status().CyclesRun)
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Equal(t, 1, f.fetches)
}

func TestRescheduledCyclesObserveShutdown(t *testing.T) {
	st := &memStore{}
	f := &fakeFetcher{}
	p := newTestPoller(st, f, &fakeBroadcaster{})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, p.Start(ctx))
	defer p.Stop(context.Background())

	p.Apply(Config{Interval: 30 * time.Minute, DefaultChatID: 99})

	cancel()
	require.ErrorIs(t, p.cycleCtx().Err(), context.Canceled,
		"cycles scheduled after a reload must still run under the lifecycle context")
}

func TestDuplicateIDWithinBatchNotifiedOnce(t *testing.T) {
	st := &memStore{state: store.State{FirstRun: false}, has: true, subs: []int64{1}}
	f := &fakeFetcher{batch: offerBatch("7", "7")}
	b := &fakeBroadcaster{}
	p := newTestPoller(st, f, b)

	p.RunCycle(context.Background())

	require.Len(t, b.calls, 1)
	require.Equal(t, []string{"7"}, st.state.SeenOfferIDs)
}
