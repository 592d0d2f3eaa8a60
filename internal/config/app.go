package config

import "github.com/joho/godotenv"

type AppConfig struct {
	Server ServerConfig
	Match  MatchConfig
	Log    LogConfig
}

// LoadDotEnv reads a .env file into the process environment if one exists.
// Variables already set in the environment win.
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	matchCfg, err := LoadMatch()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server: serverCfg,
		Match:  matchCfg,
		Log:    logCfg,
	}, nil
}
