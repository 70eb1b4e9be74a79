package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/potdraw/potdraw/internal/settlement"
)

func TestNewMessageEnvelope(t *testing.T) {
	t.Parallel()

	msg, err := NewMessage(MessageTypeAdmit, AdmitData{
		Tier:        "0.1",
		Identity:    "alice",
		DisplayName: "Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, MessageTypeAdmit, msg.Type)
	assert.False(t, msg.Timestamp.IsZero())

	var data AdmitData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, "alice", data.Identity)
}

func TestRoundResultCarriesDecimalPrize(t *testing.T) {
	t.Parallel()

	prize, err := settlement.ParseAmount("0.17")
	require.NoError(t, err)

	msg, err := NewMessage(MessageTypeRoundResult, RoundResultData{
		Tier:              "0.1",
		WinnerIdentity:    "bob",
		WinnerDisplayName: "Bob",
		Prize:             prize,
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"tier": "0.1",
		"winnerIdentity": "bob",
		"winnerDisplayName": "Bob",
		"prize": "0.17"
	}`, string(msg.Data))
}
