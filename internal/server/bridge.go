package server

import (
	"github.com/charmbracelet/log"

	"github.com/potdraw/potdraw/internal/room"
)

// RoomEventSubscriber handles room events and forwards them to clients as
// wire messages. Room-scoped events go to the tier's subscribers; whenever
// the participant picture changes it also pushes the global rooms summary
// to everyone.
type RoomEventSubscriber struct {
	server   *Server
	registry *room.Registry
	logger   *log.Logger
}

// NewRoomEventSubscriber creates the bridge between rooms and the transport.
// The registry is attached after the rooms are built, since rooms take the
// subscriber as their event sink at construction.
func NewRoomEventSubscriber(server *Server, logger *log.Logger) *RoomEventSubscriber {
	return &RoomEventSubscriber{
		server: server,
		logger: logger.WithPrefix("events"),
	}
}

// SetRegistry attaches the room registry used for summary broadcasts
func (res *RoomEventSubscriber) SetRegistry(registry *room.Registry) {
	res.registry = registry
}

// OnEvent implements the room.Sink interface
func (res *RoomEventSubscriber) OnEvent(event room.Event) {
	res.logger.Debug("Processing room event", "type", event.EventType())

	switch e := event.(type) {
	case room.ParticipantsUpdateEvent:
		res.handleParticipantsUpdate(e)
	case room.CountdownTickEvent:
		res.handleCountdownTick(e)
	case room.RoundResultEvent:
		res.handleRoundResult(e)
	case room.RoundResetEvent:
		res.handleRoundReset(e)
	case room.ChatEvent:
		res.handleChat(e)
	}
}

func (res *RoomEventSubscriber) handleParticipantsUpdate(event room.ParticipantsUpdateEvent) {
	msg, err := NewMessage(MessageTypeParticipantsUpdate, ParticipantsUpdateData{
		Tier:         event.Tier,
		Participants: event.Participants,
	})
	if err != nil {
		res.logger.Error("Failed to create participants update message", "error", err)
		return
	}
	res.server.BroadcastToTier(event.Tier, msg)

	// Events arrive with the emitting room's lock held, and the summary
	// needs every room's lock. Push it from a fresh goroutine.
	go res.broadcastSummary()
}

func (res *RoomEventSubscriber) handleCountdownTick(event room.CountdownTickEvent) {
	msg, err := NewMessage(MessageTypeCountdownTick, CountdownTickData{
		Tier:  event.Tier,
		Value: event.Value,
	})
	if err != nil {
		res.logger.Error("Failed to create countdown tick message", "error", err)
		return
	}
	res.server.BroadcastToTier(event.Tier, msg)
}

func (res *RoomEventSubscriber) handleRoundResult(event room.RoundResultEvent) {
	msg, err := NewMessage(MessageTypeRoundResult, RoundResultData{
		Tier:              event.Tier,
		WinnerIdentity:    event.WinnerIdentity,
		WinnerDisplayName: event.WinnerDisplayName,
		Prize:             event.Prize,
	})
	if err != nil {
		res.logger.Error("Failed to create round result message", "error", err)
		return
	}
	res.server.BroadcastToTier(event.Tier, msg)
}

func (res *RoomEventSubscriber) handleRoundReset(event room.RoundResetEvent) {
	msg, err := NewMessage(MessageTypeRoundReset, RoundResetData{
		Tier:  event.Tier,
		Round: event.Round,
	})
	if err != nil {
		res.logger.Error("Failed to create round reset message", "error", err)
		return
	}
	res.server.BroadcastToTier(event.Tier, msg)
}

func (res *RoomEventSubscriber) handleChat(event room.ChatEvent) {
	msg, err := NewMessage(MessageTypeChatRelay, ChatRelayData{
		Tier:    event.Tier,
		Sender:  event.Sender,
		Message: event.Message,
	})
	if err != nil {
		res.logger.Error("Failed to create chat relay message", "error", err)
		return
	}
	res.server.BroadcastToTier(event.Tier, msg)
}

// broadcastSummary pushes the aggregate per-tier status to every client
func (res *RoomEventSubscriber) broadcastSummary() {
	if res.registry == nil {
		return
	}
	msg, err := NewMessage(MessageTypeRoomsSummary, RoomsSummaryData{
		Rooms: res.registry.Summary(),
	})
	if err != nil {
		res.logger.Error("Failed to create rooms summary message", "error", err)
		return
	}
	res.server.BroadcastAll(msg)
}
