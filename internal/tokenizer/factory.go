package tokenizer

import (
	"context"

	"github.com/sandevgo/cupido/internal/config"
	"github.com/sandevgo/cupido/internal/core"
	"github.com/sandevgo/cupido/pkg/log"
)

// NewEstimator selects the estimator implementation from config. Unknown
// values fall back to the heuristic with a warning rather than failing the
// whole service.
func NewEstimator(ctx context.Context, cfg *config.TokenizerConfig) core.TokenEstimator {
	switch cfg.Backend {
	case config.TokenizerTiktoken:
		return NewTiktoken()
	case config.TokenizerHeuristic:
		return NewHeuristic()
	default:
		log.FromCtx(ctx).Warn().Str("backend", cfg.Backend).Msg("unknown tokenizer backend, using heuristic")
		return NewHeuristic()
	}
}
