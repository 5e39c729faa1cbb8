package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"sistemaAcademico/logger"
)

type Config struct {
	LogLevel logger.LogLevel `env:"LOG_LEVEL" envDefault:"1"`
	LogDir   string          `env:"LOG_DIR" envDefault:"./logs"`
	Store    StoreConfig     `envPrefix:"STORE_"`
}

// StoreConfig selects the tabular store backend: "memory" keeps everything
// in-process, "postgres" uses PostgresURI, "bolt" uses the file at BoltPath.
type StoreConfig struct {
	Backend     string `env:"BACKEND" envDefault:"memory"`
	PostgresURI string `env:"POSTGRES_URI"`
	BoltPath    string `env:"BOLT_PATH" envDefault:"./data/academico.db"`
}

func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
