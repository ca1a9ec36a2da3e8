package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the engine instance configuration, loaded from the environment.
// Either PostgresDSN or SnapshotPath selects the durable mirror; the file
// mirror is the default so the demo runs without infrastructure.
type Config struct {
	HTTPAddr     string `env:"QUESTFORGE_HTTP_ADDR" envDefault:":8080"`
	InstanceID   string `env:"QUESTFORGE_INSTANCE_ID"`
	RedisAddr    string `env:"QUESTFORGE_REDIS_ADDR"`
	PostgresDSN  string `env:"QUESTFORGE_DB_DSN"`
	SnapshotPath string `env:"QUESTFORGE_SNAPSHOT_FILE" envDefault:"data/players.json"`

	OpenAIAPIKey string `env:"QUESTFORGE_OPENAI_API_KEY"`
	OpenAIModel  string `env:"QUESTFORGE_OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	PresenceTTL time.Duration `env:"QUESTFORGE_PRESENCE_TTL" envDefault:"60s"`
	LogLevel    string        `env:"QUESTFORGE_LOG_LEVEL" envDefault:"info"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
