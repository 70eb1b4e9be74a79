// Package settlement pays out a finished round: it invokes the external
// value-transfer operation for the winner's prize and durably records the
// outcome. Settlement is strictly best-effort; the winner has already been
// announced by the time it runs, and a failed transfer is logged, never
// retried, and never blocks the room from resetting.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Outcome describes one resolved round, as handed over by the room the
// moment the winner is drawn.
type Outcome struct {
	Tier         string
	Round        int64
	Participants []string // ready identities, insertion order
	Winner       string
	WinnerName   string
	Prize        Amount
}

// Record is the append-only persisted form of a settled round. Records are
// eligible for deletion once ExpiresAt passes.
type Record struct {
	ID           uuid.UUID
	Tier         string
	Round        int64
	Participants []string
	Winner       string
	Prize        Amount
	Receipt      string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Transferer is the external value-transfer contract. A receipt identifier
// is returned on success. No retry or idempotency key is assumed.
type Transferer interface {
	Transfer(ctx context.Context, to string, amount Amount) (receipt string, err error)
}

// Recorder persists settlement records. Owned by the store layer.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// Clock is the subset of time the coordinator needs; satisfied by
// quartz.Clock.
type Clock interface {
	Now(tags ...string) time.Time
}

// Coordinator settles resolved rounds against the external ledger and the
// record store.
type Coordinator struct {
	ledger    Transferer
	records   Recorder
	clock     Clock
	retention time.Duration
	logger    *log.Logger
}

// NewCoordinator creates a settlement coordinator. retention bounds how long
// records remain eligible to live in the store.
func NewCoordinator(ledger Transferer, records Recorder, clock Clock, retention time.Duration, logger *log.Logger) *Coordinator {
	return &Coordinator{
		ledger:    ledger,
		records:   records,
		clock:     clock,
		retention: retention,
		logger:    logger.WithPrefix("settlement"),
	}
}

// Settle transfers the prize to the winner and records the outcome. Any
// failure is logged and returned, but callers treat the round as complete
// regardless; the broadcast result is never rolled back.
func (c *Coordinator) Settle(ctx context.Context, out Outcome) error {
	receipt, err := c.ledger.Transfer(ctx, out.Winner, out.Prize)
	if err != nil {
		c.logger.Error("Prize transfer failed",
			"tier", out.Tier, "round", out.Round,
			"winner", out.Winner, "prize", out.Prize, "error", err)
		return fmt.Errorf("transfer prize for tier %s round %d: %w", out.Tier, out.Round, err)
	}

	now := c.clock.Now()
	rec := Record{
		ID:           uuid.New(),
		Tier:         out.Tier,
		Round:        out.Round,
		Participants: out.Participants,
		Winner:       out.Winner,
		Prize:        out.Prize,
		Receipt:      receipt,
		CreatedAt:    now,
		ExpiresAt:    now.Add(c.retention),
	}
	if err := c.records.Record(ctx, rec); err != nil {
		// The transfer already happened; losing the record is logged but
		// does not fail the round.
		c.logger.Error("Failed to record settlement",
			"tier", out.Tier, "round", out.Round, "receipt", receipt, "error", err)
		return fmt.Errorf("record settlement for tier %s round %d: %w", out.Tier, out.Round, err)
	}

	c.logger.Info("Round settled",
		"tier", out.Tier, "round", out.Round,
		"winner", out.Winner, "prize", out.Prize, "receipt", receipt)
	return nil
}
