package testutil

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dice-duel/internal/config"
	"dice-duel/internal/store"
)

const initMigration = "000001_init.up.sql"

// OpenTestStore returns a store bound to a throwaway schema with the
// migrations applied. The test is skipped when TEST_POSTGRES_DSN is unset.
func OpenTestStore(t *testing.T) (*store.Store, func()) {
	t.Helper()
	cfg, err := config.LoadTest()
	if err != nil {
		t.Skipf("skip test db: %v", err)
	}
	ctx := context.Background()
	schema := "t_" + strings.ToLower(store.NewID())

	if err := execAdmin(ctx, cfg.TestPostgresDSN, "CREATE SCHEMA "+pgx.Identifier{schema}.Sanitize()); err != nil {
		t.Fatalf("create schema %s: %v", schema, err)
	}

	st, err := store.New(withSearchPath(cfg.TestPostgresDSN, schema))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ddl, err := readMigration()
	if err != nil {
		st.Close()
		t.Fatalf("read migration: %v", err)
	}
	if _, err := st.Pool.Exec(ctx, ddl); err != nil {
		st.Close()
		t.Fatalf("apply migration: %v", err)
	}

	return st, func() {
		st.Close()
		_ = execAdmin(ctx, cfg.TestPostgresDSN, "DROP SCHEMA "+pgx.Identifier{schema}.Sanitize()+" CASCADE")
	}
}

// SeedAccounts creates each account with the given balance.
func SeedAccounts(t *testing.T, st *store.Store, balances map[string]int64) {
	t.Helper()
	for player, bal := range balances {
		if err := st.EnsureAccount(context.Background(), player, bal); err != nil {
			t.Fatalf("seed account %s: %v", player, err)
		}
	}
}

func execAdmin(ctx context.Context, dsn, sql string) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()
	_, err = pool.Exec(ctx, sql)
	return err
}

// readMigration walks up from the working directory to the repo's
// migrations folder.
func readMigration() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		b, err := os.ReadFile(filepath.Join(dir, "migrations", initMigration))
		if err == nil {
			return string(b), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found", initMigration)
		}
		dir = parent
	}
}

func withSearchPath(dsn, schema string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "search_path=" + url.QueryEscape(schema)
}
