package config

import "testing"

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost:5432/dice?sslmode=disable")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.NATSSubject != "dice.match" {
		t.Fatalf("NATSSubject = %q, want dice.match", cfg.NATSSubject)
	}
	if cfg.WSRateLimit != 60 {
		t.Fatalf("WSRateLimit = %d, want 60", cfg.WSRateLimit)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:5173" {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoadServerRequiresPostgresDSN(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")

	_, err := LoadServer()
	if err == nil {
		t.Fatal("LoadServer() expected error, got nil")
	}
}

func TestLoadServerParseTypes(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost:5432/dice?sslmode=disable")
	t.Setenv("SEED_PLAYERS", "alice,bob")
	t.Setenv("SEED_BALANCE_CC", "50")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if len(cfg.SeedPlayers) != 2 || cfg.SeedPlayers[1] != "bob" {
		t.Fatalf("SeedPlayers = %v", cfg.SeedPlayers)
	}
	if cfg.SeedBalanceCC != 50 {
		t.Fatalf("SeedBalanceCC = %d, want 50", cfg.SeedBalanceCC)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}
