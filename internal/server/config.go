package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/potdraw/potdraw/internal/settlement"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Game   GameSettings   `hcl:"game,block"`
	Rooms  []RoomConfig   `hcl:"room,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// GameSettings contains the round lifecycle parameters shared by all rooms
type GameSettings struct {
	CountdownSeconds    int     `hcl:"countdown_seconds,optional"`
	MinReady            int     `hcl:"min_ready,optional"`
	PayoutFraction      float64 `hcl:"payout_fraction,optional"`
	GraceDelayMs        int     `hcl:"grace_delay_ms,optional"`
	MaxParticipants     int     `hcl:"max_participants,optional"`
	RetentionDays       int     `hcl:"retention_days,optional"`
	StartingRoundBase   int     `hcl:"starting_round_base,optional"`
	StartingRoundSpread int     `hcl:"starting_round_spread,optional"`
}

// RoomConfig defines one stake-tier room. The stake's decimal string is the
// room's tier key on the wire.
type RoomConfig struct {
	Name  string `hcl:"name,label"`
	Stake string `hcl:"stake"`
}

// GraceDelay returns the settlement grace delay as a duration.
func (g GameSettings) GraceDelay() time.Duration {
	return time.Duration(g.GraceDelayMs) * time.Millisecond
}

// Retention returns the settlement record retention horizon as a duration.
func (g GameSettings) Retention() time.Duration {
	return time.Duration(g.RetentionDays) * 24 * time.Hour
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Game: GameSettings{
			CountdownSeconds:    15,
			MinReady:            2,
			PayoutFraction:      0.85,
			GraceDelayMs:        3000,
			MaxParticipants:     12,
			RetentionDays:       7,
			StartingRoundBase:   100,
			StartingRoundSpread: 50,
		},
		Rooms: []RoomConfig{
			{Name: "penny", Stake: "0.001"},
			{Name: "dime", Stake: "0.01"},
			{Name: "main", Stake: "0.1"},
			{Name: "whale", Stake: "1.0"},
		},
	}
}

// LoadServerConfig loads server configuration from HCL file
func LoadServerConfig(filename string) (*ServerConfig, error) {
	// Missing file means defaults, same as the rest of the tooling
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	defaults := DefaultServerConfig()
	if config.Server.Address == "" {
		config.Server.Address = defaults.Server.Address
	}
	if config.Server.Port == 0 {
		config.Server.Port = defaults.Server.Port
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = defaults.Server.LogLevel
	}
	if config.Game.CountdownSeconds == 0 {
		config.Game.CountdownSeconds = defaults.Game.CountdownSeconds
	}
	if config.Game.MinReady == 0 {
		config.Game.MinReady = defaults.Game.MinReady
	}
	if config.Game.PayoutFraction == 0 {
		config.Game.PayoutFraction = defaults.Game.PayoutFraction
	}
	if config.Game.GraceDelayMs == 0 {
		config.Game.GraceDelayMs = defaults.Game.GraceDelayMs
	}
	if config.Game.MaxParticipants == 0 {
		config.Game.MaxParticipants = defaults.Game.MaxParticipants
	}
	if config.Game.RetentionDays == 0 {
		config.Game.RetentionDays = defaults.Game.RetentionDays
	}
	if config.Game.StartingRoundBase == 0 {
		config.Game.StartingRoundBase = defaults.Game.StartingRoundBase
	}
	if config.Game.StartingRoundSpread == 0 {
		config.Game.StartingRoundSpread = defaults.Game.StartingRoundSpread
	}
	if len(config.Rooms) == 0 {
		config.Rooms = defaults.Rooms
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if len(c.Rooms) == 0 {
		return fmt.Errorf("at least one room must be configured")
	}

	seen := make(map[string]bool)
	for _, rm := range c.Rooms {
		stake, err := settlement.ParseAmount(rm.Stake)
		if err != nil {
			return fmt.Errorf("room %s: %w", rm.Name, err)
		}
		if stake <= 0 {
			return fmt.Errorf("room %s: stake must be positive", rm.Name)
		}
		if seen[rm.Stake] {
			return fmt.Errorf("room %s: duplicate stake tier %s", rm.Name, rm.Stake)
		}
		seen[rm.Stake] = true
	}

	if c.Game.MinReady < 2 {
		return fmt.Errorf("min_ready must be at least 2, got %d", c.Game.MinReady)
	}
	if c.Game.PayoutFraction <= 0 || c.Game.PayoutFraction > 1 {
		return fmt.Errorf("payout_fraction must be in (0, 1], got %v", c.Game.PayoutFraction)
	}
	if c.Game.CountdownSeconds < 1 {
		return fmt.Errorf("countdown_seconds must be positive, got %d", c.Game.CountdownSeconds)
	}
	if c.Game.MaxParticipants < c.Game.MinReady {
		return fmt.Errorf("max_participants %d is below min_ready %d", c.Game.MaxParticipants, c.Game.MinReady)
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
