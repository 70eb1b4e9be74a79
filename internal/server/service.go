package server

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/potdraw/potdraw/internal/room"
	"github.com/potdraw/potdraw/internal/store"
)

// RoomService routes inbound client events to the room registry and owns
// the account upsert side effect of first contact. Unknown tier keys are
// absorbed silently per the error taxonomy: no broadcast, debug log only.
type RoomService struct {
	registry *room.Registry
	accounts store.Accounts
	logger   *log.Logger
}

// NewRoomService creates a new room service
func NewRoomService(registry *room.Registry, accounts store.Accounts, logger *log.Logger) *RoomService {
	return &RoomService{
		registry: registry,
		accounts: accounts,
		logger:   logger.WithPrefix("rooms"),
	}
}

// Admit admits identity to the tier's room and upserts its account record.
// The upsert is best effort; a store failure never blocks admission.
func (s *RoomService) Admit(ctx context.Context, tier, identity, displayName, connID string) error {
	rm := s.registry.Get(tier)
	if rm == nil {
		s.logger.Debug("Admit for unknown tier", "tier", tier, "identity", identity)
		return nil
	}

	if err := rm.Admit(identity, displayName, connID); err != nil {
		return err
	}

	go func() {
		upsertCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.accounts.Upsert(upsertCtx, identity, displayName, time.Now()); err != nil {
			s.logger.Error("Account upsert failed", "identity", identity, "error", err)
		}
	}()

	return nil
}

// Snapshot returns the tier's current participant list plus the global
// summary, for replying directly to a freshly admitted connection. ok is
// false for unknown tiers.
func (s *RoomService) Snapshot(tier string) ([]room.ParticipantInfo, map[string]room.TierSummary, bool) {
	rm := s.registry.Get(tier)
	if rm == nil {
		return nil, nil, false
	}
	return rm.Participants(), s.registry.Summary(), true
}

// ConfirmReady marks identity ready in the tier's room
func (s *RoomService) ConfirmReady(tier, identity, proof string) {
	rm := s.registry.Get(tier)
	if rm == nil {
		s.logger.Debug("Readiness for unknown tier", "tier", tier, "identity", identity)
		return
	}
	rm.ConfirmReady(identity, proof)
}

// Chat relays a chat line to the tier's room
func (s *RoomService) Chat(tier, sender, message string) {
	rm := s.registry.Get(tier)
	if rm == nil {
		s.logger.Debug("Chat for unknown tier", "tier", tier, "sender", sender)
		return
	}
	rm.Chat(sender, message)
}

// Disconnect fans a dropped connection out across all rooms
func (s *RoomService) Disconnect(identity, connID string) {
	s.registry.Disconnect(identity, connID)
}
