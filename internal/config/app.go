package config

import (
	"context"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/cupido/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"CUPIDO_RUNTIME_PATH" envDefault:".cupido"`

	// Context assembly defaults, used when a caller does not pass
	// explicit limits.
	MaxRecentTurns int `env:"CUPIDO_MAX_RECENT_TURNS" envDefault:"30"`
	TokenBudget    int `env:"CUPIDO_TOKEN_BUDGET" envDefault:"2000"`

	// WriteBehind switches the append path to the outbox queue: the caller
	// gets an immediate pending turn and persistence happens in the
	// background.
	WriteBehind bool `env:"CUPIDO_WRITE_BEHIND" envDefault:"false"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "cupido.db")
}
