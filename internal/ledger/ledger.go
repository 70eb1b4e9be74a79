// Package ledger holds implementations of the external value-transfer
// contract consumed by the settlement coordinator. The transfer protocol
// itself is out of scope; anything that can move the prize and hand back a
// receipt identifier qualifies.
package ledger

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/potdraw/potdraw/internal/settlement"
)

// Dev is a stand-in ledger for local runs: it performs no real transfer,
// logs the request, and fabricates a receipt.
type Dev struct {
	logger *log.Logger
}

// NewDev creates a development ledger.
func NewDev(logger *log.Logger) *Dev {
	return &Dev{logger: logger.WithPrefix("ledger")}
}

// Transfer implements settlement.Transferer.
func (d *Dev) Transfer(_ context.Context, to string, amount settlement.Amount) (string, error) {
	receipt := uuid.NewString()
	d.logger.Info("Dev transfer", "to", to, "amount", amount, "receipt", receipt)
	return receipt, nil
}

// TransferFunc adapts a function to settlement.Transferer; handy for tests
// that need to observe or fail a transfer.
type TransferFunc func(ctx context.Context, to string, amount settlement.Amount) (string, error)

// Transfer implements settlement.Transferer.
func (f TransferFunc) Transfer(ctx context.Context, to string, amount settlement.Amount) (string, error) {
	return f(ctx, to, amount)
}
