package store_test

import (
	"context"
	"testing"

	"dice-duel/internal/store"
	"dice-duel/internal/testutil"
)

func openStore(t *testing.T) (*store.Store, context.Context, func()) {
	t.Helper()
	st, cleanup := testutil.OpenTestStore(t)
	return st, context.Background(), cleanup
}

func mustEnsureAccount(t *testing.T, st *store.Store, ctx context.Context, playerID string, initial int64) {
	t.Helper()
	if err := st.EnsureAccount(ctx, playerID, initial); err != nil {
		t.Fatalf("ensure account %s: %v", playerID, err)
	}
}
