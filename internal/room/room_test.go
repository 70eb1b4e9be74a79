package room

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/potdraw/potdraw/internal/ledger"
	"github.com/potdraw/potdraw/internal/randutil"
	"github.com/potdraw/potdraw/internal/settlement"
	"github.com/potdraw/potdraw/internal/store"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

// recordingSink captures room events in emission order.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) OnEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) ticks() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int
	for _, ev := range s.events {
		if tick, ok := ev.(CountdownTickEvent); ok {
			out = append(out, tick.Value)
		}
	}
	return out
}

func (s *recordingSink) results() []RoundResultEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []RoundResultEvent
	for _, ev := range s.events {
		if res, ok := ev.(RoundResultEvent); ok {
			out = append(out, res)
		}
	}
	return out
}

func (s *recordingSink) resets() []RoundResetEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []RoundResetEvent
	for _, ev := range s.events {
		if rst, ok := ev.(RoundResetEvent); ok {
			out = append(out, rst)
		}
	}
	return out
}

func (s *recordingSink) lastParticipants() []ParticipantInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if upd, ok := s.events[i].(ParticipantsUpdateEvent); ok {
			return upd.Participants
		}
	}
	return nil
}

// stubSettler records outcomes and can be told to fail.
type stubSettler struct {
	mu       sync.Mutex
	outcomes []settlement.Outcome
	err      error
}

func (s *stubSettler) Settle(_ context.Context, out settlement.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, out)
	return s.err
}

func (s *stubSettler) settled() []settlement.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]settlement.Outcome, len(s.outcomes))
	copy(out, s.outcomes)
	return out
}

func mustAmount(t *testing.T, s string) settlement.Amount {
	t.Helper()
	a, err := settlement.ParseAmount(s)
	require.NoError(t, err)
	return a
}

func newTestRoom(t *testing.T, mutate func(*Config)) (*Room, *quartz.Mock, *recordingSink, *stubSettler) {
	t.Helper()
	mock := quartz.NewMock(t)
	sink := &recordingSink{}
	settler := &stubSettler{}
	cfg := Config{
		Tier:             "0.1",
		Stake:            mustAmount(t, "0.1"),
		CountdownSeconds: 10,
		MinReady:         2,
		PayoutFraction:   0.85,
		GraceDelay:       3 * time.Second,
		MaxParticipants:  12,
		StartingRound:    100,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	r := New(cfg, sink, NewSelector(randutil.New(42)), settler, mock, testLogger())
	return r, mock, sink, settler
}

func advanceSeconds(t *testing.T, mock *quartz.Mock, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		mock.Advance(time.Second).MustWait(ctx)
	}
}

func TestAdmitDistinctIdentities(t *testing.T) {
	t.Parallel()
	r, _, sink, _ := newTestRoom(t, nil)

	require.NoError(t, r.Admit("alice", "Alice", "c1"))
	require.NoError(t, r.Admit("bob", "Bob", "c2"))
	require.NoError(t, r.Admit("carol", "Carol", "c3"))

	participants := r.Participants()
	require.Len(t, participants, 3)
	assert.Equal(t, "alice", participants[0].Identity)
	assert.Equal(t, "bob", participants[1].Identity)
	assert.Equal(t, "carol", participants[2].Identity)
	assert.Len(t, sink.lastParticipants(), 3)
}

func TestReAdmitIsIdempotentRefresh(t *testing.T) {
	t.Parallel()
	r, _, _, _ := newTestRoom(t, nil)

	require.NoError(t, r.Admit("alice", "Alice", "c1"))
	require.NoError(t, r.Admit("alice", "Alice Prime", "c2"))
	require.NoError(t, r.Admit("alice", "Alice Prime", "c2"))

	participants := r.Participants()
	require.Len(t, participants, 1)
	assert.Equal(t, "Alice Prime", participants[0].DisplayName)
}

func TestAdmitRefusedAtCapacity(t *testing.T) {
	t.Parallel()
	r, _, _, _ := newTestRoom(t, func(cfg *Config) { cfg.MaxParticipants = 2 })

	require.NoError(t, r.Admit("alice", "Alice", "c1"))
	require.NoError(t, r.Admit("bob", "Bob", "c2"))
	require.ErrorIs(t, r.Admit("carol", "Carol", "c3"), ErrRoomFull)

	// Re-admission of a present identity is still allowed at capacity
	require.NoError(t, r.Admit("alice", "Alice", "c9"))
	assert.Len(t, r.Participants(), 2)
}

func TestCountdownStartsOnlyAtThreshold(t *testing.T) {
	t.Parallel()
	r, _, _, _ := newTestRoom(t, nil)

	require.NoError(t, r.Admit("alice", "Alice", "c1"))
	require.NoError(t, r.Admit("bob", "Bob", "c2"))

	r.ConfirmReady("alice", "proof-a")
	assert.Equal(t, StatusWaiting, r.Status())

	r.ConfirmReady("bob", "proof-b")
	assert.Equal(t, StatusCounting, r.Status())
}

func TestReadyIsNoOpForAbsentOrAlreadyReady(t *testing.T) {
	t.Parallel()
	r, _, _, _ := newTestRoom(t, nil)

	require.NoError(t, r.Admit("alice", "Alice", "c1"))

	r.ConfirmReady("ghost", "proof")
	assert.Equal(t, StatusWaiting, r.Status())

	r.ConfirmReady("alice", "proof-1")
	r.ConfirmReady("alice", "proof-2")

	participants := r.Participants()
	require.Len(t, participants, 1)
	assert.True(t, participants[0].Ready)
	assert.Equal(t, StatusWaiting, r.Status())
}

func TestNoSecondCountdownWhileCounting(t *testing.T) {
	t.Parallel()
	r, mock, sink, _ := newTestRoom(t, nil)

	require.NoError(t, r.Admit("alice", "Alice", "c1"))
	require.NoError(t, r.Admit("bob", "Bob", "c2"))
	require.NoError(t, r.Admit("carol", "Carol", "c3"))

	r.ConfirmReady("alice", "pa")
	r.ConfirmReady("bob", "pb")
	require.Equal(t, StatusCounting, r.Status())

	// A third readiness while counting must not restart the countdown
	advanceSeconds(t, mock, 3)
	r.ConfirmReady("carol", "pc")
	advanceSeconds(t, mock, 2)

	assert.Equal(t, []int{9, 8, 7, 6, 5}, sink.ticks())
}

func TestCountdownTicksStrictlyDecreasingToZero(t *testing.T) {
	t.Parallel()
	r, mock, sink, _ := newTestRoom(t, nil)

	require.NoError(t, r.Admit("alice", "Alice", "c1"))
	require.NoError(t, r.Admit("bob", "Bob", "c2"))
	r.ConfirmReady("alice", "pa")
	r.ConfirmReady("bob", "pb")

	advanceSeconds(t, mock, 10)

	assert.Equal(t, []int{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}, sink.ticks())
}

func TestFullCycle(t *testing.T) {
	t.Parallel()
	r, mock, sink, settler := newTestRoom(t, nil)

	require.NoError(t, r.Admit("alice", "Alice", "c1"))
	require.NoError(t, r.Admit("bob", "Bob", "c2"))
	r.ConfirmReady("alice", "pa")
	r.ConfirmReady("bob", "pb")

	advanceSeconds(t, mock, 10)

	// Result broadcast at countdown expiry, before settlement completes
	results := sink.results()
	require.Len(t, results, 1)
	assert.Contains(t, []string{"alice", "bob"}, results[0].WinnerIdentity)
	assert.Equal(t, "0.17", results[0].Prize.String())
	assert.Equal(t, StatusSettling, r.Status())

	require.Eventually(t, func() bool {
		return len(settler.settled()) == 1
	}, time.Second, 10*time.Millisecond)
	out := settler.settled()[0]
	assert.Equal(t, int64(100), out.Round)
	assert.Equal(t, []string{"alice", "bob"}, out.Participants)
	assert.Equal(t, results[0].WinnerIdentity, out.Winner)

	// Reset after the grace delay: wiped participants, round +1
	mock.Advance(3 * time.Second).MustWait(context.Background())

	resets := sink.resets()
	require.Len(t, resets, 1)
	assert.Equal(t, int64(101), resets[0].Round)
	assert.Equal(t, StatusWaiting, r.Status())
	assert.Empty(t, r.Participants())
	assert.Empty(t, sink.lastParticipants())
	assert.Equal(t, int64(101), r.Round())
	assert.Equal(t, 10, r.Countdown())
}

func TestAbortedCycleDoesNotIncrementRound(t *testing.T) {
	t.Parallel()
	r, mock, sink, settler := newTestRoom(t, nil)

	require.NoError(t, r.Admit("alice", "Alice", "c1"))
	require.NoError(t, r.Admit("bob", "Bob", "c2"))
	r.ConfirmReady("alice", "pa")
	r.ConfirmReady("bob", "pb")

	advanceSeconds(t, mock, 5)

	// Simulate readiness evaporating mid-count; the resolver must revert
	// to Waiting rather than drawing from a short list.
	r.mu.Lock()
	r.participants.Get("bob").Ready = false
	r.mu.Unlock()

	advanceSeconds(t, mock, 5)

	assert.Empty(t, sink.results())
	assert.Empty(t, settler.settled())
	assert.Equal(t, StatusWaiting, r.Status())
	assert.Equal(t, int64(100), r.Round())
	assert.Equal(t, 10, r.Countdown())
}

func TestDisconnectBeforeReadyRemoves(t *testing.T) {
	t.Parallel()
	r, _, sink, _ := newTestRoom(t, nil)

	require.NoError(t, r.Admit("alice", "Alice", "c1"))
	require.NoError(t, r.Admit("bob", "Bob", "c2"))

	r.Disconnect("alice", "c1")

	participants := r.Participants()
	require.Len(t, participants, 1)
	assert.Equal(t, "bob", participants[0].Identity)
	require.Len(t, sink.lastParticipants(), 1)
}

func TestDisconnectAfterReadyRetains(t *testing.T) {
	t.Parallel()
	r, mock, sink, _ := newTestRoom(t, nil)

	require.NoError(t, r.Admit("alice", "Alice", "c1"))
	require.NoError(t, r.Admit("bob", "Bob", "c2"))
	r.ConfirmReady("alice", "pa")
	r.ConfirmReady("bob", "pb")

	r.Disconnect("alice", "c1")
	require.Len(t, r.Participants(), 2, "ready participant survives its connection")

	// The retained record still counts toward resolution
	advanceSeconds(t, mock, 10)
	require.Len(t, sink.results(), 1)

	// And is wiped with everyone else at reset
	mock.Advance(3 * time.Second).MustWait(context.Background())
	assert.Empty(t, r.Participants())
}

func TestStaleDisconnectIgnored(t *testing.T) {
	t.Parallel()
	r, _, _, _ := newTestRoom(t, nil)

	require.NoError(t, r.Admit("alice", "Alice", "c1"))
	// Reconnect supersedes c1
	require.NoError(t, r.Admit("alice", "Alice", "c2"))

	r.Disconnect("alice", "c1")
	assert.Len(t, r.Participants(), 1)

	r.Disconnect("alice", "c2")
	assert.Empty(t, r.Participants())
}

func TestReadyIgnoredWhileSettling(t *testing.T) {
	t.Parallel()
	r, mock, _, _ := newTestRoom(t, nil)

	require.NoError(t, r.Admit("alice", "Alice", "c1"))
	require.NoError(t, r.Admit("bob", "Bob", "c2"))
	r.ConfirmReady("alice", "pa")
	r.ConfirmReady("bob", "pb")
	advanceSeconds(t, mock, 10)
	require.Equal(t, StatusSettling, r.Status())

	require.NoError(t, r.Admit("carol", "Carol", "c3"))
	r.ConfirmReady("carol", "pc")

	for _, p := range r.Participants() {
		if p.Identity == "carol" {
			assert.False(t, p.Ready, "readiness must not apply while settling")
		}
	}
}

func TestSettlementFailureStillResets(t *testing.T) {
	t.Parallel()
	r, mock, sink, settler := newTestRoom(t, nil)
	settler.err = errors.New("transfer rejected")

	require.NoError(t, r.Admit("alice", "Alice", "c1"))
	require.NoError(t, r.Admit("bob", "Bob", "c2"))
	r.ConfirmReady("alice", "pa")
	r.ConfirmReady("bob", "pb")

	advanceSeconds(t, mock, 10)
	mock.Advance(3 * time.Second).MustWait(context.Background())

	resets := sink.resets()
	require.Len(t, resets, 1)
	assert.Equal(t, int64(101), resets[0].Round)
	assert.Equal(t, StatusWaiting, r.Status())
}

// TestFullCycleRecordsSettlement wires the real coordinator, a stub ledger,
// and the in-memory store through a complete round.
func TestFullCycleRecordsSettlement(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	sink := &recordingSink{}
	mem := store.NewMemory()
	transfer := ledger.TransferFunc(func(_ context.Context, to string, amount settlement.Amount) (string, error) {
		return "receipt-1", nil
	})
	coordinator := settlement.NewCoordinator(transfer, mem, mock, 7*24*time.Hour, testLogger())

	cfg := Config{
		Tier:             "0.1",
		Stake:            mustAmount(t, "0.1"),
		CountdownSeconds: 10,
		MinReady:         2,
		PayoutFraction:   0.85,
		GraceDelay:       3 * time.Second,
		MaxParticipants:  12,
		StartingRound:    100,
	}
	r := New(cfg, sink, NewSelector(randutil.New(7)), coordinator, mock, testLogger())

	require.NoError(t, r.Admit("alice", "Alice", "c1"))
	require.NoError(t, r.Admit("bob", "Bob", "c2"))
	r.ConfirmReady("alice", "pa")
	r.ConfirmReady("bob", "pb")
	advanceSeconds(t, mock, 10)

	require.Eventually(t, func() bool {
		return len(mem.Settlements()) == 1
	}, time.Second, 10*time.Millisecond)

	rec := mem.Settlements()[0]
	assert.Equal(t, "0.1", rec.Tier)
	assert.Equal(t, int64(100), rec.Round)
	assert.Equal(t, []string{"alice", "bob"}, rec.Participants)
	assert.Equal(t, "receipt-1", rec.Receipt)
	assert.Equal(t, "0.17", rec.Prize.String())
	assert.Equal(t, rec.CreatedAt.Add(7*24*time.Hour), rec.ExpiresAt)
}
