package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sandevgo/cupido/internal/core"
)

type SummariesRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewSummariesRepo(db *sql.DB) *SummariesRepo {
	return &SummariesRepo{db: db, now: time.Now}
}

// Summary returns nil when the conversation has never been summarized. Rows
// created by the AddTurn counter upsert have a NULL last_summary_update and
// do not count as summaries.
func (r *SummariesRepo) Summary(ctx context.Context, conversationID string) (*core.Summary, error) {
	query := `SELECT conversation_id, summary_text, summary_tokens, total_messages, total_tokens, last_summary_update
		FROM conversation_summaries
		WHERE conversation_id = ? AND last_summary_update IS NOT NULL`

	var s core.Summary
	var updatedAt int64
	err := r.db.QueryRowContext(ctx, query, conversationID).Scan(
		&s.ConversationID, &s.SummaryText, &s.SummaryTokenCount,
		&s.TotalMessages, &s.TotalTokens, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}

	s.LastSummaryUpdate = time.Unix(0, updatedAt).UTC()
	return &s, nil
}

// Replace fully replaces the summary row. Retrying the same call is
// harmless: when nothing observable changes the freshness timestamp is left
// alone, and the counters never move backwards even if a stale regeneration
// result arrives late.
func (r *SummariesRepo) Replace(ctx context.Context, summary core.Summary) error {
	query := `INSERT INTO conversation_summaries
		(conversation_id, summary_text, summary_tokens, total_messages, total_tokens, last_summary_update)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET
			summary_text = excluded.summary_text,
			summary_tokens = excluded.summary_tokens,
			total_messages = MAX(conversation_summaries.total_messages, excluded.total_messages),
			total_tokens = MAX(conversation_summaries.total_tokens, excluded.total_tokens),
			last_summary_update = CASE
				WHEN conversation_summaries.last_summary_update IS NOT NULL
					AND conversation_summaries.summary_text = excluded.summary_text
					AND conversation_summaries.summary_tokens = excluded.summary_tokens
					AND conversation_summaries.total_messages >= excluded.total_messages
					AND conversation_summaries.total_tokens >= excluded.total_tokens
				THEN conversation_summaries.last_summary_update
				ELSE excluded.last_summary_update
			END`

	_, err := r.db.ExecContext(ctx, query,
		summary.ConversationID, summary.SummaryText, summary.SummaryTokenCount,
		summary.TotalMessages, summary.TotalTokens, r.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to replace summary: %w", err)
	}
	return nil
}
