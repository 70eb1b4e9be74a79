// Package store persists the two durable shapes the rooms produce: account
// records upserted on first contact and append-only settlement records with
// a bounded retention horizon. Rooms themselves are purely in-memory.
package store

import (
	"context"
	"time"

	"github.com/potdraw/potdraw/internal/settlement"
)

// Account is the minimal identity record kept per participant.
type Account struct {
	Identity    string
	DisplayName string
	LastSeen    time.Time
}

// Accounts upserts identity records. Implementations must treat repeat
// contact as a refresh, never a duplicate.
type Accounts interface {
	Upsert(ctx context.Context, identity, displayName string, seenAt time.Time) error
}

// Settlements persists settlement records and reclaims expired ones.
type Settlements interface {
	settlement.Recorder
	// DeleteExpired removes records whose retention horizon has passed,
	// returning how many were deleted.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
