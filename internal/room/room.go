// Package room implements the lifecycle state machine at the heart of the
// server: a fixed set of stake-tier rooms in which participants are
// admitted, confirm readiness, and — once enough are ready — a countdown
// gates a uniform winner draw whose prize is settled through the external
// ledger. Rooms are created once at startup and cycle forever.
package room

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/potdraw/potdraw/internal/settlement"
)

// tickInterval is the countdown tick period.
const tickInterval = time.Second

// ErrRoomFull is returned by Admit when the room is at capacity.
var ErrRoomFull = errors.New("room is full")

// Settler settles a resolved round. Satisfied by settlement.Coordinator.
type Settler interface {
	Settle(ctx context.Context, out settlement.Outcome) error
}

// Config carries the per-room parameters fixed at startup.
type Config struct {
	Tier             string            // stake key, e.g. "0.1"
	Stake            settlement.Amount // entry stake per ready participant
	CountdownSeconds int               // initial countdown value
	MinReady         int               // ready participants needed to start, >= 2
	PayoutFraction   float64           // share of the pot paid to the winner
	GraceDelay       time.Duration     // pause between result broadcast and reset
	MaxParticipants  int               // admission cap
	StartingRound    int64             // first round number
}

// Room is one stake tier's state machine. All state is guarded by mu; tick,
// expiry, and reset callbacks re-enter through the same mutex, so mutations
// within a room never interleave.
type Room struct {
	cfg Config

	mu           sync.Mutex
	status       Status
	countdown    int
	round        int64
	participants *Directory
	timer        *Countdown // non-nil iff status == StatusCounting

	sink     Sink
	selector *Selector
	settler  Settler
	clock    quartz.Clock
	logger   *log.Logger
}

// New creates a room in the Waiting state with its round counter seeded
// from config.
func New(cfg Config, sink Sink, selector *Selector, settler Settler, clock quartz.Clock, logger *log.Logger) *Room {
	return &Room{
		cfg:          cfg,
		status:       StatusWaiting,
		countdown:    cfg.CountdownSeconds,
		round:        cfg.StartingRound,
		participants: NewDirectory(),
		sink:         sink,
		selector:     selector,
		settler:      settler,
		clock:        clock,
		logger:       logger.WithPrefix("room").With("tier", cfg.Tier),
	}
}

// Tier returns the room's stake key.
func (r *Room) Tier() string { return r.cfg.Tier }

// Admit adds identity to the room, or refreshes the display name and
// connection reference if it is already present. Valid in any state; the
// only refusal is capacity. Broadcasts the updated participant list.
func (r *Room) Admit(identity, displayName, connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing := r.participants.Get(identity); existing == nil && r.participants.Len() >= r.cfg.MaxParticipants {
		return ErrRoomFull
	}

	p, added := r.participants.Upsert(identity, displayName, connID)
	if added {
		r.logger.Info("Participant admitted", "identity", identity, "name", displayName, "total", r.participants.Len())
	} else {
		r.logger.Debug("Participant refreshed", "identity", identity, "name", p.DisplayName)
	}

	r.emitParticipants()
	return nil
}

// ConfirmReady marks identity as committed to the current round, storing
// its settlement proof. Only valid while Waiting or Counting; a no-op for
// absent or already-ready identities. Starting the countdown is guarded on
// status Waiting so a second concurrent countdown can never begin.
func (r *Room) ConfirmReady(identity, proof string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusWaiting && r.status != StatusCounting {
		r.logger.Debug("Readiness ignored outside Waiting/Counting", "identity", identity, "status", r.status)
		return
	}

	p := r.participants.Get(identity)
	if p == nil || p.Ready {
		return
	}
	p.Ready = true
	p.Proof = proof
	r.logger.Info("Participant ready", "identity", identity, "ready", r.participants.ReadyCount())

	r.emitParticipants()

	if r.status == StatusWaiting && r.participants.ReadyCount() >= r.cfg.MinReady {
		r.startCountdown()
	}
}

// Disconnect handles the loss of identity's connection. A not-ready
// participant is removed immediately; a ready one is retained without a
// connection until the next reset wipes it. Stale disconnects from a
// superseded connection are ignored.
func (r *Room) Disconnect(identity, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.participants.Get(identity)
	if p == nil || p.ConnID != connID {
		return
	}

	if p.Ready {
		p.ConnID = ""
		r.logger.Debug("Ready participant lost connection, retaining", "identity", identity)
		return
	}

	r.participants.Remove(identity)
	r.logger.Info("Participant removed on disconnect", "identity", identity, "total", r.participants.Len())
	r.emitParticipants()
}

// Chat relays a chat line to the room's subscribers. It never touches room
// state.
func (r *Room) Chat(sender, message string) {
	r.sink.OnEvent(ChatEvent{Tier: r.cfg.Tier, Sender: sender, Message: message})
}

// startCountdown transitions Waiting -> Counting. Caller holds mu.
func (r *Room) startCountdown() {
	r.status = StatusCounting
	r.countdown = r.cfg.CountdownSeconds
	r.timer = StartCountdown(r.clock, r.cfg.CountdownSeconds, tickInterval, r.handleTick, r.resolve)
	r.logger.Info("Countdown started", "seconds", r.cfg.CountdownSeconds, "round", r.round)
}

// handleTick records and broadcasts the decremented countdown value.
func (r *Room) handleTick(remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusCounting {
		// A tick already in flight when the countdown was cancelled.
		return
	}
	r.countdown = remaining
	r.sink.OnEvent(CountdownTickEvent{Tier: r.cfg.Tier, Value: remaining})
}

// resolve runs at countdown expiry: it draws the winner from the ready
// subset, broadcasts the result, and hands off to settlement. With fewer
// than MinReady ready participants the round aborts back to Waiting with no
// round increment.
func (r *Room) resolve() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusCounting {
		return
	}
	r.timer.Stop()
	r.timer = nil
	r.status = StatusResolving

	ready := r.participants.Ready()
	if len(ready) < r.cfg.MinReady {
		r.status = StatusWaiting
		r.countdown = r.cfg.CountdownSeconds
		r.logger.Warn("Aborting round, not enough ready participants", "ready", len(ready), "round", r.round)
		return
	}

	idx, err := r.selector.Pick(len(ready))
	if err != nil {
		// Unreachable given the MinReady guard, but never fatal.
		r.status = StatusWaiting
		r.countdown = r.cfg.CountdownSeconds
		r.logger.Error("Winner draw failed", "error", err)
		return
	}

	winner := ready[idx]
	prize := settlement.ComputePrize(r.cfg.Stake, len(ready), r.cfg.PayoutFraction)

	r.logger.Info("Round resolved",
		"round", r.round, "winner", winner.Identity, "ready", len(ready), "prize", prize)

	// The reveal is optimistic: participants learn the winner now, before
	// the transfer is attempted.
	r.sink.OnEvent(RoundResultEvent{
		Tier:              r.cfg.Tier,
		WinnerIdentity:    winner.Identity,
		WinnerDisplayName: winner.DisplayName,
		Prize:             prize,
	})

	r.status = StatusSettling

	identities := make([]string, len(ready))
	for i, p := range ready {
		identities[i] = p.Identity
	}
	out := settlement.Outcome{
		Tier:         r.cfg.Tier,
		Round:        r.round,
		Participants: identities,
		Winner:       winner.Identity,
		WinnerName:   winner.DisplayName,
		Prize:        prize,
	}
	go func() {
		// Best-effort: failures are logged inside the coordinator and do
		// not delay or block the reset below.
		_ = r.settler.Settle(context.Background(), out)
	}()

	r.clock.AfterFunc(r.cfg.GraceDelay, r.reset)
}

// reset wipes the room for the next round after the grace delay,
// incrementing the round counter by exactly one.
func (r *Room) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusSettling {
		return
	}
	r.participants.Wipe()
	r.round++
	r.countdown = r.cfg.CountdownSeconds
	r.status = StatusWaiting

	r.logger.Info("Room reset", "round", r.round)
	r.sink.OnEvent(RoundResetEvent{Tier: r.cfg.Tier, Round: r.round})
	r.emitParticipants()
}

// emitParticipants broadcasts the current participant list. Caller holds mu.
func (r *Room) emitParticipants() {
	r.sink.OnEvent(ParticipantsUpdateEvent{
		Tier:         r.cfg.Tier,
		Participants: r.participants.Infos(),
	})
}

// Status returns the current lifecycle state.
func (r *Room) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Round returns the current round number.
func (r *Room) Round() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.round
}

// Countdown returns the seconds remaining on the current countdown.
func (r *Room) Countdown() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countdown
}

// Participants returns the broadcast view of the participant list.
func (r *Room) Participants() []ParticipantInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.participants.Infos()
}

// Summary returns the room's contribution to the global rooms summary.
func (r *Room) Summary() TierSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return TierSummary{
		Total:  r.participants.Len(),
		Ready:  r.participants.ReadyCount(),
		Status: r.status.String(),
	}
}
