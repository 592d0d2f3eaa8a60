package ledger

import (
	"context"
	"sync"
	"time"

	"dice-duel/internal/store"
)

// Memory is an in-process Accounts backend with the same semantics as the
// Postgres store: per-call atomicity and one ledger entry per mutation.
type Memory struct {
	mu       sync.Mutex
	balances map[string]int64
	entries  []store.LedgerEntry
}

func NewMemory() *Memory {
	return &Memory{balances: map[string]int64{}}
}

func (m *Memory) Seed(playerID string, balance int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[playerID] = balance
}

func (m *Memory) GetAccountBalance(ctx context.Context, playerID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[playerID]
	if !ok {
		return 0, store.ErrNotFound
	}
	return bal, nil
}

func (m *Memory) Debit(ctx context.Context, playerID string, amount int64, entryType, refType, refID string) (int64, error) {
	if amount <= 0 {
		return 0, store.ErrInvalidAmount
	}
	return m.apply(ctx, playerID, -amount, entryType, refType, refID)
}

func (m *Memory) Credit(ctx context.Context, playerID string, amount int64, entryType, refType, refID string) (int64, error) {
	if amount <= 0 {
		return 0, store.ErrInvalidAmount
	}
	return m.apply(ctx, playerID, amount, entryType, refType, refID)
}

func (m *Memory) apply(ctx context.Context, playerID string, delta int64, entryType, refType, refID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[playerID]
	if !ok {
		return 0, store.ErrNotFound
	}
	if bal+delta < 0 {
		return 0, store.ErrInsufficientBalance
	}
	m.balances[playerID] = bal + delta
	m.entries = append(m.entries, store.LedgerEntry{
		ID:        store.NewID(),
		PlayerID:  playerID,
		Type:      entryType,
		AmountCC:  delta,
		RefType:   refType,
		RefID:     refID,
		CreatedAt: time.Now(),
	})
	return bal + delta, nil
}

// Entries returns a copy of every mutation in the order applied.
func (m *Memory) Entries() []store.LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.LedgerEntry, len(m.entries))
	copy(out, m.entries)
	return out
}
