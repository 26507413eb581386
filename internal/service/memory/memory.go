package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/cupido/internal/core"
	"github.com/sandevgo/cupido/pkg/log"
)

// Service is the conversation-memory facade: it persists turns and
// summaries and assembles bounded context payloads for downstream LLM
// calls. Read paths follow a degraded-return policy — stale or missing
// context hurts answer quality but must never crash the chat flow.
type Service struct {
	turns     core.TurnsRepository
	summaries core.SummariesRepository
	estimator core.TokenEstimator
	now       func() time.Time
}

func New(turns core.TurnsRepository, summaries core.SummariesRepository, estimator core.TokenEstimator) *Service {
	return &Service{
		turns:     turns,
		summaries: summaries,
		estimator: estimator,
		now:       time.Now,
	}
}

// PrepareTurn validates the inputs and builds a fully populated turn
// (identifier, timestamp, token estimate) without persisting it. The
// write-behind outbox uses this to hand the caller an authoritative turn
// before the write lands.
func (s *Service) PrepareTurn(conversationID, role, content string, imageRefs []string) (core.Turn, error) {
	if conversationID == "" {
		return core.Turn{}, core.ErrNoConversation
	}
	if !core.ValidRole(role) {
		return core.Turn{}, fmt.Errorf("%w: got %q", core.ErrInvalidRole, role)
	}

	tokens := s.estimator.Estimate(content)
	if tokens < 0 {
		return core.Turn{}, fmt.Errorf("%w: estimator returned %d", core.ErrNegativeTokens, tokens)
	}

	return core.Turn{
		MessageID:       uuid.NewString(),
		ConversationID:  conversationID,
		Role:            role,
		Content:         content,
		EstimatedTokens: tokens,
		ContextWeight:   1.0,
		ImageRefs:       imageRefs,
		CreatedAt:       s.now().UTC(),
	}, nil
}

// AppendPrepared persists a turn built by PrepareTurn.
func (s *Service) AppendPrepared(ctx context.Context, turn core.Turn) (core.Turn, error) {
	stored, err := s.turns.AddTurn(ctx, turn)
	if err != nil {
		log.FromCtx(ctx).Error().Err(err).Str("conversation", turn.ConversationID).Msg("failed to append turn")
		return core.Turn{}, err
	}
	return stored, nil
}

// AppendTurn validates, builds and persists a turn in one call.
func (s *Service) AppendTurn(ctx context.Context, conversationID, role, content string, imageRefs []string) (core.Turn, error) {
	turn, err := s.PrepareTurn(conversationID, role, content, imageRefs)
	if err != nil {
		return core.Turn{}, err
	}
	return s.AppendPrepared(ctx, turn)
}

// RecentTurns returns up to limit turns oldest-first, strictly older than
// before when given. Storage errors degrade to an empty slice: history is
// best-effort context for an LLM call, not a correctness-critical read.
func (s *Service) RecentTurns(ctx context.Context, conversationID string, limit int, before *time.Time) []core.Turn {
	turns, err := s.turns.RecentTurns(ctx, conversationID, limit, before)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("conversation", conversationID).Msg("turn history unavailable, degrading to empty")
		return []core.Turn{}
	}
	if turns == nil {
		return []core.Turn{}
	}
	return turns
}

// Summary returns the current summary, or nil when none was ever generated
// or the read failed. Failures are logged but never surfaced.
func (s *Service) Summary(ctx context.Context, conversationID string) *core.Summary {
	summary, err := s.summaries.Summary(ctx, conversationID)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("conversation", conversationID).Msg("summary unavailable, degrading to none")
		return nil
	}
	return summary
}

// ReplaceSummary stores a freshly regenerated summary. On failure the
// previous summary, if any, stays valid — the caller can retry or simply
// carry on with the stale one.
func (s *Service) ReplaceSummary(ctx context.Context, conversationID, summaryText string, summaryTokenCount int, totalMessages, totalTokens int64) error {
	if conversationID == "" {
		return core.ErrNoConversation
	}
	if summaryTokenCount < 0 {
		return fmt.Errorf("%w: got %d", core.ErrNegativeTokens, summaryTokenCount)
	}

	err := s.summaries.Replace(ctx, core.Summary{
		ConversationID:    conversationID,
		SummaryText:       summaryText,
		SummaryTokenCount: summaryTokenCount,
		TotalMessages:     totalMessages,
		TotalTokens:       totalTokens,
	})
	if err != nil {
		log.FromCtx(ctx).Error().Err(err).Str("conversation", conversationID).Msg("failed to replace summary")
		return err
	}
	return nil
}
