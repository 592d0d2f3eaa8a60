package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type MatchFilter struct {
	PlayerID string
}

func (s *Store) InsertMatch(ctx context.Context, m MatchRecord) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO matches (id, game_type, stake_cc, player_a, player_b, roll_a, roll_b, result, winner_id, pot_cc, fee_cc, status, started_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING`,
		m.ID, m.GameType, m.StakeCC, m.PlayerA, m.PlayerB,
		int4PtrParam(m.RollA), int4PtrParam(m.RollB),
		m.Result, textParam(m.WinnerID), m.PotCC, m.FeeCC, m.Status, m.StartedAt, closedAt(m.ClosedAt),
	)
	return err
}

func closedAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

func (s *Store) GetMatch(ctx context.Context, id string) (*MatchRecord, error) {
	row := s.Pool.QueryRow(ctx, matchSelect+` WHERE id = $1`, id)
	m, err := scanMatch(row)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return m, nil
}

func (s *Store) ListMatches(ctx context.Context, f MatchFilter, limit, offset int) ([]MatchRecord, error) {
	limit, offset = clampPage(limit, offset)
	rows, err := s.Pool.Query(ctx, matchSelect+`
		WHERE ($1::text IS NULL OR player_a = $1 OR player_b = $1)
		ORDER BY closed_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		textParam(f.PlayerID), limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]MatchRecord, 0, limit)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

const matchSelect = `
	SELECT id, game_type, stake_cc, player_a, player_b, roll_a, roll_b, result, winner_id, pot_cc, fee_cc, status, started_at, closed_at
	FROM matches`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (*MatchRecord, error) {
	var (
		m            MatchRecord
		rollA, rollB pgtype.Int4
		winner       pgtype.Text
	)
	if err := row.Scan(&m.ID, &m.GameType, &m.StakeCC, &m.PlayerA, &m.PlayerB, &rollA, &rollB,
		&m.Result, &winner, &m.PotCC, &m.FeeCC, &m.Status, &m.StartedAt, &m.ClosedAt); err != nil {
		return nil, err
	}
	m.RollA = intPtrVal(rollA)
	m.RollB = intPtrVal(rollB)
	m.WinnerID = textVal(winner)
	return &m, nil
}
