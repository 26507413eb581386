package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/cupido/pkg/log"
)

const (
	TokenizerHeuristic = "heuristic"
	TokenizerTiktoken  = "tiktoken"
)

type TokenizerConfig struct {
	Backend string `env:"CUPIDO_TOKENIZER" envDefault:"heuristic"`
}

func NewTokenizerConfig(ctx context.Context) *TokenizerConfig {
	c := &TokenizerConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Tokenizer config")
	}
	return c
}
