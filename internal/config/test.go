package config

import "github.com/caarlos0/env/v11"

type TestConfig struct {
	TestPostgresDSN string `env:"TEST_POSTGRES_DSN,required,notEmpty"`
}

// TestNATSConfig is separate so broker tests can run without a database.
type TestNATSConfig struct {
	TestNATSURL string `env:"TEST_NATS_URL,required,notEmpty"`
}

func LoadTest() (TestConfig, error) {
	var cfg TestConfig
	err := env.Parse(&cfg)
	return cfg, err
}

func LoadTestNATS() (TestNATSConfig, error) {
	var cfg TestNATSConfig
	err := env.Parse(&cfg)
	return cfg, err
}
