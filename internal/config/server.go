package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/cupido/pkg/log"
)

type ServerConfig struct {
	Host            string        `env:"CUPIDO_HTTP_HOST" envDefault:""`
	Port            int           `env:"CUPIDO_HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"CUPIDO_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func NewServerConfig(ctx context.Context) *ServerConfig {
	c := &ServerConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Server config")
	}
	return c
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
