package server

import (
	"encoding/json"
	"time"

	"github.com/potdraw/potdraw/internal/room"
	"github.com/potdraw/potdraw/internal/settlement"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type AdmitData struct {
	Tier        string `json:"tier"`
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName"`
}

type ConfirmReadyData struct {
	Tier     string `json:"tier"`
	Identity string `json:"identity"`
	Proof    string `json:"proof"`
}

type ChatData struct {
	Tier    string `json:"tier"`
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// Server → Client Messages

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ParticipantsUpdateData struct {
	Tier         string                 `json:"tier"`
	Participants []room.ParticipantInfo `json:"participants"`
}

type RoomsSummaryData struct {
	Rooms map[string]room.TierSummary `json:"rooms"`
}

type CountdownTickData struct {
	Tier  string `json:"tier"`
	Value int    `json:"value"`
}

type RoundResultData struct {
	Tier              string            `json:"tier"`
	WinnerIdentity    string            `json:"winnerIdentity"`
	WinnerDisplayName string            `json:"winnerDisplayName"`
	Prize             settlement.Amount `json:"prize"`
}

type RoundResetData struct {
	Tier  string `json:"tier"`
	Round int64  `json:"round"`
}

type ChatRelayData struct {
	Tier    string `json:"tier"`
	Sender  string `json:"sender"`
	Message string `json:"message"`
}
