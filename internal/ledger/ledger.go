package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dice-duel/internal/store"
)

const (
	EntryEscrowDebit  = "escrow_debit"
	EntryEscrowRefund = "escrow_refund"
	EntryMatchPayout  = "match_payout"
	EntryDrawRefund   = "draw_refund"
	EntryTopup        = "topup_credit"

	RefMatch = "match"
	RefTopup = "topup"

	defaultTimeout = 5 * time.Second
)

var (
	ErrInsufficientFunds = errors.New("insufficient_funds")
	ErrLedger            = errors.New("ledger_error")
	ErrUnknownAccount    = errors.New("unknown_account")
)

// Accounts is the balance backend. store.Store and Memory implement it; each
// call must be atomic on its own.
type Accounts interface {
	GetAccountBalance(ctx context.Context, playerID string) (int64, error)
	Debit(ctx context.Context, playerID string, amount int64, entryType, refType, refID string) (int64, error)
	Credit(ctx context.Context, playerID string, amount int64, entryType, refType, refID string) (int64, error)
}

// Ledger bounds every backend call with a timeout and folds backend errors
// into ErrInsufficientFunds or ErrLedger.
type Ledger struct {
	accounts Accounts
	timeout  time.Duration
}

func New(accounts Accounts, timeout time.Duration) *Ledger {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Ledger{accounts: accounts, timeout: timeout}
}

func (l *Ledger) Balance(ctx context.Context, playerID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	bal, err := l.accounts.GetAccountBalance(ctx, playerID)
	if err != nil {
		return 0, classify(err)
	}
	return bal, nil
}

// Debit removes amount for the given match. entryType is one of the Entry*
// constants.
func (l *Ledger) Debit(ctx context.Context, playerID string, amount int64, entryType, matchID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	bal, err := l.accounts.Debit(ctx, playerID, amount, entryType, RefMatch, matchID)
	if err != nil {
		return 0, classify(err)
	}
	return bal, nil
}

func (l *Ledger) Credit(ctx context.Context, playerID string, amount int64, entryType, matchID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	bal, err := l.accounts.Credit(ctx, playerID, amount, entryType, RefMatch, matchID)
	if err != nil {
		return 0, classify(err)
	}
	return bal, nil
}

// Topup credits a deposit outside any match.
func (l *Ledger) Topup(ctx context.Context, playerID string, amount int64, refID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	bal, err := l.accounts.Credit(ctx, playerID, amount, EntryTopup, RefTopup, refID)
	if err != nil {
		return 0, classify(err)
	}
	return bal, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrLedger):
		return err
	case errors.Is(err, store.ErrInsufficientBalance):
		return ErrInsufficientFunds
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrLedger, ErrUnknownAccount)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: timeout: %w", ErrLedger, err)
	default:
		return fmt.Errorf("%w: %w", ErrLedger, err)
	}
}
