package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dice-duel/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	if err := Init(config.LogConfig{Level: "debug", File: path, MaxMB: 1, Service: "test-svc"}); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer func() {
		_ = Close()
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}()

	log.Debug().Str("match_id", "m1").Msg("escrow_held")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(b)
	if !strings.Contains(line, `"match_id":"m1"`) || !strings.Contains(line, `"service":"test-svc"`) {
		t.Fatalf("unexpected log line %q", line)
	}
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Fatalf("level = %v, want debug", zerolog.GlobalLevel())
	}
}

func TestInitIgnoresUnknownLevel(t *testing.T) {
	if err := Init(config.LogConfig{Level: "loud"}); err != nil {
		t.Fatalf("init: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("level = %v, want info", zerolog.GlobalLevel())
	}
	if Writer() == nil {
		t.Fatal("writer is nil")
	}
}
