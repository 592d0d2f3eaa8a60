package store

import (
	"context"
	"time"
)

type LedgerFilter struct {
	PlayerID string
	RefID    string
	From     *time.Time
	To       *time.Time
}

func (s *Store) ListLedgerEntries(ctx context.Context, f LedgerFilter, limit, offset int) ([]LedgerEntry, error) {
	limit, offset = clampPage(limit, offset)
	rows, err := s.Pool.Query(ctx, `
		SELECT id, player_id, type, amount_cc, ref_type, ref_id, created_at
		FROM ledger_entries
		WHERE ($1::text IS NULL OR player_id = $1)
		  AND ($2::text IS NULL OR ref_id = $2)
		  AND ($3::timestamptz IS NULL OR created_at >= $3)
		  AND ($4::timestamptz IS NULL OR created_at < $4)
		ORDER BY created_at DESC, id DESC
		LIMIT $5 OFFSET $6`,
		textParam(f.PlayerID), textParam(f.RefID), timeParam(f.From), timeParam(f.To), limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]LedgerEntry, 0, limit)
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.PlayerID, &e.Type, &e.AmountCC, &e.RefType, &e.RefID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
