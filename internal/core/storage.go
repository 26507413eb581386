package core

import (
	"context"
	"errors"
	"time"
)

// Programmer errors. These indicate a bug at the call site and are returned
// as-is rather than being swallowed by the degraded-read policy.
var (
	ErrInvalidRole    = errors.New("role must be user or assistant")
	ErrNegativeTokens = errors.New("estimated token count is negative")
	ErrNoConversation = errors.New("conversation id is empty")
)

type TurnsRepository interface {
	// AddTurn persists a fully populated turn and atomically bumps the owning
	// conversation's total_messages/total_tokens counters in the same
	// transaction. Returns the turn with its storage sequence id set.
	AddTurn(ctx context.Context, turn Turn) (Turn, error)

	// RecentTurns returns up to limit turns, oldest-first. When before is
	// non-nil only turns strictly older than it are considered, which lets a
	// caller page backwards without re-reading seen turns.
	RecentTurns(ctx context.Context, conversationID string, limit int, before *time.Time) ([]Turn, error)
}

type SummariesRepository interface {
	// Summary returns nil when no summary has ever been generated for the
	// conversation. A counters-only row (created by AddTurn) does not count.
	Summary(ctx context.Context, conversationID string) (*Summary, error)

	// Replace fully replaces the summary row. Replaying the call with
	// identical arguments leaves the observable state unchanged.
	Replace(ctx context.Context, summary Summary) error
}

// TokenEstimator maps text to an approximate token count. Implementations
// must return 0 for the empty string and never a negative value.
type TokenEstimator interface {
	Estimate(text string) int
}
