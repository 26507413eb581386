package memory

import (
	"context"

	"github.com/sandevgo/cupido/internal/core"
	"github.com/sandevgo/cupido/pkg/log"
)

// AssembleContext builds a bounded prompt payload: the compressed summary
// (when one exists) plus as many recent turns as the token budget allows,
// preferring newer turns over older ones. It never fails — storage errors
// on the way degrade to an empty or summary-only context.
func (s *Service) AssembleContext(ctx context.Context, conversationID string, maxRecentTurns, maxTokenBudget int) core.ContextAssembly {
	summary := s.Summary(ctx, conversationID)
	hasSummary := summary != nil && summary.SummaryText != ""

	total := 0
	systemMemory := ""
	if hasSummary {
		systemMemory = summary.SummaryText
		total = summary.SummaryTokenCount
	}

	// The summary is a fixed cost. When it alone blows the budget we still
	// return it — a budget violation beats returning no context at all —
	// but with no turns attached. Truncating the summary is the job of
	// whatever generated it.
	if hasSummary && total > maxTokenBudget {
		log.FromCtx(ctx).Warn().
			Str("conversation", conversationID).
			Int("summary_tokens", total).
			Int("budget", maxTokenBudget).
			Msg("summary alone exceeds token budget")
		return core.ContextAssembly{
			SystemMemory:        systemMemory,
			RecentMessages:      []core.ContextMessage{},
			TotalTokensEstimate: total,
			ContextStrategy:     core.StrategySummarized,
		}
	}

	turns := s.RecentTurns(ctx, conversationID, maxRecentTurns, nil)

	// Greedy from newest: include each turn that still fits the remaining
	// budget, skip the ones that do not. Recency wins over completeness.
	included := make([]core.Turn, 0, len(turns))
	for i := len(turns) - 1; i >= 0; i-- {
		turn := turns[i]
		if total+turn.EstimatedTokens > maxTokenBudget {
			continue
		}
		included = append(included, turn)
		total += turn.EstimatedTokens
	}

	// included accumulated newest-first; the prompt wants chronological order
	messages := make([]core.ContextMessage, 0, len(included))
	for i := len(included) - 1; i >= 0; i-- {
		messages = append(messages, core.ContextMessage{
			Role:    included[i].Role,
			Content: included[i].Content,
		})
	}

	assembly := core.ContextAssembly{
		SystemMemory:        systemMemory,
		RecentMessages:      messages,
		TotalTokensEstimate: total,
		ContextStrategy:     classify(hasSummary, len(included), len(turns)),
	}

	log.FromCtx(ctx).Debug().
		Str("conversation", conversationID).
		Int("turns", len(messages)).
		Int("tokens", total).
		Str("strategy", string(assembly.ContextStrategy)).
		Msg("assembled context")
	return assembly
}

func classify(hasSummary bool, included, available int) core.ContextStrategy {
	switch {
	case hasSummary:
		return core.StrategySummarized
	case included < 3:
		return core.StrategyMinimal
	case included == available:
		return core.StrategyFull
	default:
		// Three or more turns made it in but some were dropped for budget;
		// without a summary backing them up the context is incomplete.
		return core.StrategyMinimal
	}
}
