package config

import "github.com/caarlos0/env/v11"

type ServerConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	AdminAPIKey string `env:"ADMIN_API_KEY"`

	NATSURL     string `env:"NATS_URL"`
	NATSSubject string `env:"NATS_SUBJECT" envDefault:"dice.match"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	WSRateLimit int      `env:"WS_RATE_LIMIT" envDefault:"60"`

	// Accounts created at boot for local play; existing balances are untouched.
	SeedPlayers   []string `env:"SEED_PLAYERS" envSeparator:","`
	SeedBalanceCC int64    `env:"SEED_BALANCE_CC" envDefault:"0"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
