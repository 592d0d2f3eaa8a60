package match

import (
	"context"
	"time"

	"dice-duel/internal/store"
)

type MatchStarted struct {
	MatchID   string    `json:"match_id"`
	GameType  string    `json:"game_type"`
	Stake     int64     `json:"stake"`
	PlayerA   string    `json:"player_a"`
	PlayerB   string    `json:"player_b"`
	StartedAt time.Time `json:"started_at"`
}

type MatchClosed struct {
	MatchID  string    `json:"match_id"`
	GameType string    `json:"game_type"`
	Stake    int64     `json:"stake"`
	Result   Result    `json:"result"`
	WinnerID string    `json:"winner_id,omitempty"`
	Pot      int64     `json:"pot"`
	Fee      int64     `json:"fee"`
	Payout   int64     `json:"payout"`
	Status   string    `json:"status"`
	ClosedAt time.Time `json:"closed_at"`
}

type ReconciliationRequired struct {
	MatchID   string `json:"match_id"`
	PlayerID  string `json:"player_id"`
	Amount    int64  `json:"amount"`
	EntryType string `json:"entry_type"`
	Reason    string `json:"reason"`
}

// LifecycleObserver receives match lifecycle notifications. Calls happen
// under the session lock and must not block.
type LifecycleObserver interface {
	OnMatchStarted(MatchStarted)
	OnMatchClosed(MatchClosed)
	OnReconciliation(ReconciliationRequired)
}

// History persists closed matches.
type History interface {
	InsertMatch(ctx context.Context, m store.MatchRecord) error
}

// ReconciliationSink persists money movements that could not be applied.
type ReconciliationSink interface {
	InsertReconciliation(ctx context.Context, r store.Reconciliation) (string, error)
}

// MatchBinder mirrors live match ownership onto connections.
type MatchBinder interface {
	BindMatch(conn, matchID string)
	UnbindMatch(conn, matchID string)
}
