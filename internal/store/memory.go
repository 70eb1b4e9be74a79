package store

import (
	"context"
	"sync"
	"time"

	"github.com/potdraw/potdraw/internal/settlement"
)

// Memory is an in-process store used for tests and ledger-less local runs.
type Memory struct {
	mu          sync.Mutex
	accounts    map[string]Account
	settlements []settlement.Record
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{accounts: make(map[string]Account)}
}

// Upsert implements Accounts.
func (m *Memory) Upsert(_ context.Context, identity, displayName string, seenAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[identity] = Account{
		Identity:    identity,
		DisplayName: displayName,
		LastSeen:    seenAt,
	}
	return nil
}

// Account returns the stored account for identity, if any.
func (m *Memory) Account(identity string) (Account, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[identity]
	return acct, ok
}

// Record implements settlement.Recorder.
func (m *Memory) Record(_ context.Context, rec settlement.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settlements = append(m.settlements, rec)
	return nil
}

// DeleteExpired implements Settlements.
func (m *Memory) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.settlements[:0]
	var deleted int64
	for _, rec := range m.settlements {
		if rec.ExpiresAt.After(now) {
			kept = append(kept, rec)
		} else {
			deleted++
		}
	}
	m.settlements = kept
	return deleted, nil
}

// Settlements returns a snapshot of all recorded settlements in insertion
// order.
func (m *Memory) Settlements() []settlement.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]settlement.Record, len(m.settlements))
	copy(out, m.settlements)
	return out
}
