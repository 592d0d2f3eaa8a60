package config

import "github.com/caarlos0/env/v11"

type BotConfig struct {
	WSURL    string `env:"WS_URL" envDefault:"ws://localhost:8080/ws"`
	PlayerID string `env:"PLAYER_ID" envDefault:"bot"`
	GameType string `env:"GAME_TYPE" envDefault:"dice"`
	StakeCC  int64  `env:"STAKE_CC" envDefault:"10"`
	Rounds   int    `env:"ROUNDS" envDefault:"1"`
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	err := env.Parse(&cfg)
	return cfg, err
}
