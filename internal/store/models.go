package store

import "time"

type Account struct {
	PlayerID  string    `json:"player_id"`
	BalanceCC int64     `json:"balance_cc"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LedgerEntry struct {
	ID        string    `json:"id"`
	PlayerID  string    `json:"player_id"`
	Type      string    `json:"type"`
	AmountCC  int64     `json:"amount_cc"`
	RefType   string    `json:"ref_type"`
	RefID     string    `json:"ref_id"`
	CreatedAt time.Time `json:"created_at"`
}

type MatchRecord struct {
	ID        string    `json:"id"`
	GameType  string    `json:"game_type"`
	StakeCC   int64     `json:"stake_cc"`
	PlayerA   string    `json:"player_a"`
	PlayerB   string    `json:"player_b"`
	RollA     *int      `json:"roll_a,omitempty"`
	RollB     *int      `json:"roll_b,omitempty"`
	Result    string    `json:"result"`
	WinnerID  string    `json:"winner_id,omitempty"`
	PotCC     int64     `json:"pot_cc"`
	FeeCC     int64     `json:"fee_cc"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	ClosedAt  time.Time `json:"closed_at"`
}

type Reconciliation struct {
	ID         string     `json:"id"`
	MatchID    string     `json:"match_id"`
	PlayerID   string     `json:"player_id"`
	AmountCC   int64      `json:"amount_cc"`
	EntryType  string     `json:"entry_type"`
	Reason     string     `json:"reason"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
