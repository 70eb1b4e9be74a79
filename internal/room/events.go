package room

import "github.com/potdraw/potdraw/internal/settlement"

// Event is a room-scoped occurrence published to the transport layer. The
// room never talks to connections directly; it emits events and the
// subscriber on the other side turns them into wire messages.
type Event interface {
	EventType() string
}

// Sink receives events from rooms. Implementations must not block for long:
// events are emitted while the room's own lock is held so that subscribers
// observe them in mutation order.
type Sink interface {
	OnEvent(ev Event)
}

// ParticipantInfo is the broadcast view of one participant.
type ParticipantInfo struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName"`
	Ready       bool   `json:"ready"`
}

// ParticipantsUpdateEvent fires whenever the participant list changes:
// admission, readiness, removal, or reset wipe.
type ParticipantsUpdateEvent struct {
	Tier         string
	Participants []ParticipantInfo
}

func (ParticipantsUpdateEvent) EventType() string { return "participants_update" }

// CountdownTickEvent fires once per countdown second with the remaining
// value, ending at zero.
type CountdownTickEvent struct {
	Tier  string
	Value int
}

func (CountdownTickEvent) EventType() string { return "countdown_tick" }

// RoundResultEvent announces the drawn winner and prize. It is emitted
// before settlement runs; the reveal is optimistic with respect to the
// transfer succeeding.
type RoundResultEvent struct {
	Tier              string
	WinnerIdentity    string
	WinnerDisplayName string
	Prize             settlement.Amount
}

func (RoundResultEvent) EventType() string { return "round_result" }

// RoundResetEvent fires after the settlement grace delay, carrying the new
// round number. The participant list is wiped alongside it.
type RoundResetEvent struct {
	Tier  string
	Round int64
}

func (RoundResetEvent) EventType() string { return "round_reset" }

// ChatEvent is a stateless relay of a chat line to the room's subscribers.
type ChatEvent struct {
	Tier    string
	Sender  string
	Message string
}

func (ChatEvent) EventType() string { return "chat_relay" }
