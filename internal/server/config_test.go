package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfigMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadServerConfig(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "localhost:8080", cfg.GetServerAddress())
	assert.Equal(t, 15, cfg.Game.CountdownSeconds)
	assert.Equal(t, 2, cfg.Game.MinReady)
	assert.Equal(t, 0.85, cfg.Game.PayoutFraction)
	assert.Equal(t, 3*time.Second, cfg.Game.GraceDelay())
	assert.Equal(t, 12, cfg.Game.MaxParticipants)
	assert.Equal(t, 7*24*time.Hour, cfg.Game.Retention())
	require.Len(t, cfg.Rooms, 4)
	assert.Equal(t, "0.001", cfg.Rooms[0].Stake)
}

func TestLoadServerConfigParsesAndFillsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "potdraw.hcl")
	content := `
server {
  port = 9999
}

game {
  countdown_seconds = 10
  grace_delay_ms    = 1500
}

room "main" {
  stake = "0.1"
}

room "whale" {
  stake = "1.0"
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadServerConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "localhost:9999", cfg.GetServerAddress())
	assert.Equal(t, 10, cfg.Game.CountdownSeconds)
	assert.Equal(t, 1500*time.Millisecond, cfg.Game.GraceDelay())
	// Unset game values fall back to defaults
	assert.Equal(t, 0.85, cfg.Game.PayoutFraction)
	assert.Equal(t, 12, cfg.Game.MaxParticipants)

	require.Len(t, cfg.Rooms, 2)
	assert.Equal(t, "main", cfg.Rooms[0].Name)
	assert.Equal(t, "0.1", cfg.Rooms[0].Stake)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	t.Parallel()

	base := func() *ServerConfig { return DefaultServerConfig() }

	cfg := base()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Rooms = nil
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Rooms = append(cfg.Rooms, RoomConfig{Name: "dup", Stake: "0.1"})
	assert.Error(t, cfg.Validate(), "duplicate stake tier")

	cfg = base()
	cfg.Rooms[0].Stake = "not-a-number"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Game.MinReady = 1
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Game.PayoutFraction = 1.5
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Game.MaxParticipants = 1
	assert.Error(t, cfg.Validate())
}
