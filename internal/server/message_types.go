package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
// These are used for client-server communication protocol
const (
	// Client to server messages
	MessageTypeAdmit        MessageType = "admit"
	MessageTypeConfirmReady MessageType = "confirm_ready"
	MessageTypeChat         MessageType = "chat"

	// Server to client messages
	MessageTypeParticipantsUpdate MessageType = "participants_update"
	MessageTypeRoomsSummary       MessageType = "rooms_summary"
	MessageTypeCountdownTick      MessageType = "countdown_tick"
	MessageTypeRoundResult        MessageType = "round_result"
	MessageTypeRoundReset         MessageType = "round_reset"
	MessageTypeChatRelay          MessageType = "chat_relay"
	MessageTypeError              MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
