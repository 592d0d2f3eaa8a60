package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
)

type MatchConfig struct {
	FeeRate       float64       `env:"MATCH_FEE_RATE" envDefault:"0"`
	DieFaces      int           `env:"DIE_FACES" envDefault:"6"`
	LedgerTimeout time.Duration `env:"LEDGER_TIMEOUT" envDefault:"5s"`
	OutboxSize    int           `env:"OUTBOX_SIZE" envDefault:"32"`
}

var (
	ErrInvalidFeeRate  = errors.New("invalid_fee_rate")
	ErrInvalidDieFaces = errors.New("invalid_die_faces")
)

func LoadMatch() (MatchConfig, error) {
	var cfg MatchConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings that would break pot conservation or produce an
// unusable die.
func (c MatchConfig) Validate() error {
	if c.FeeRate < 0 || c.FeeRate >= 1 {
		return ErrInvalidFeeRate
	}
	if c.DieFaces < 2 {
		return ErrInvalidDieFaces
	}
	return nil
}
