package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

func (s *Store) InsertReconciliation(ctx context.Context, r Reconciliation) (string, error) {
	if r.ID == "" {
		r.ID = NewID()
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO reconciliations (id, match_id, player_id, amount_cc, entry_type, reason)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.MatchID, r.PlayerID, r.AmountCC, r.EntryType, r.Reason,
	)
	return r.ID, err
}

func (s *Store) ResolveReconciliation(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE reconciliations SET resolved_at = now() WHERE id = $1 AND resolved_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListReconciliations(ctx context.Context, openOnly bool, limit, offset int) ([]Reconciliation, error) {
	limit, offset = clampPage(limit, offset)
	rows, err := s.Pool.Query(ctx, `
		SELECT id, match_id, player_id, amount_cc, entry_type, reason, resolved_at, created_at
		FROM reconciliations
		WHERE (NOT $1 OR resolved_at IS NULL)
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3`,
		openOnly, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Reconciliation, 0, limit)
	for rows.Next() {
		var (
			r        Reconciliation
			resolved pgtype.Timestamptz
		)
		if err := rows.Scan(&r.ID, &r.MatchID, &r.PlayerID, &r.AmountCC, &r.EntryType, &r.Reason, &resolved, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.ResolvedAt = timePtrVal(resolved)
		out = append(out, r)
	}
	return out, rows.Err()
}
