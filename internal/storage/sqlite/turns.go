package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sandevgo/cupido/internal/core"
	"github.com/sandevgo/cupido/pkg/log"
)

type TurnsRepo struct {
	db *sql.DB
}

func NewTurnsRepo(db *sql.DB) *TurnsRepo {
	return &TurnsRepo{db: db}
}

// AddTurn inserts the turn and bumps the conversation counters in one
// transaction. The counter bump is a single upsert expression, never a
// read-modify-write, so concurrent appends cannot lose updates.
func (r *TurnsRepo) AddTurn(ctx context.Context, turn core.Turn) (core.Turn, error) {
	refsJSON, err := json.Marshal(turn.ImageRefs)
	if err != nil {
		return core.Turn{}, fmt.Errorf("failed to marshal image refs: %w", err)
	}

	// Empty ref lists are stored as empty string to save space
	refsStr := string(refsJSON)
	if refsStr == "null" || refsStr == "[]" {
		refsStr = ""
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Turn{}, err
	}
	defer tx.Rollback()

	query := `INSERT INTO conversation_turns
		(message_id, conversation_id, role, content, estimated_tokens, context_weight, image_refs, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, query,
		turn.MessageID, turn.ConversationID, turn.Role, turn.Content,
		turn.EstimatedTokens, turn.ContextWeight, refsStr, turn.CreatedAt.UnixNano())
	if err != nil {
		return core.Turn{}, fmt.Errorf("failed to insert turn: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Turn{}, err
	}

	counters := `INSERT INTO conversation_summaries (conversation_id, total_messages, total_tokens)
		VALUES (?, 1, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET
			total_messages = conversation_summaries.total_messages + 1,
			total_tokens = conversation_summaries.total_tokens + excluded.total_tokens`
	if _, err := tx.ExecContext(ctx, counters, turn.ConversationID, turn.EstimatedTokens); err != nil {
		return core.Turn{}, fmt.Errorf("failed to bump conversation counters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Turn{}, err
	}

	turn.ID = id
	return turn, nil
}

// RecentTurns fetches the newest `limit` turns (strictly older than `before`
// when given) and returns them oldest-first.
func (r *TurnsRepo) RecentTurns(ctx context.Context, conversationID string, limit int, before *time.Time) ([]core.Turn, error) {
	query := `SELECT id, message_id, conversation_id, role, content, estimated_tokens, context_weight, image_refs, created_at
		FROM conversation_turns
		WHERE conversation_id = ?`
	args := []any{conversationID}

	if before != nil {
		query += ` AND created_at < ?`
		args = append(args, before.UnixNano())
	}

	// Newest first for pagination efficiency; ties on created_at break by
	// insertion order.
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []core.Turn
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The query returned turns newest-first; the caller (and the LLM prompt)
	// wants chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	log.FromCtx(ctx).Debug().Int("count", len(turns)).Str("conversation", conversationID).Msg("loaded recent turns")
	return turns, nil
}

func scanTurn(rows *sql.Rows) (core.Turn, error) {
	var turn core.Turn
	var content, refsStr sql.NullString
	var createdAt int64

	if err := rows.Scan(&turn.ID, &turn.MessageID, &turn.ConversationID, &turn.Role,
		&content, &turn.EstimatedTokens, &turn.ContextWeight, &refsStr, &createdAt); err != nil {
		return core.Turn{}, fmt.Errorf("failed to scan turn: %w", err)
	}

	turn.Content = content.String
	turn.CreatedAt = time.Unix(0, createdAt).UTC()

	if refsStr.Valid && refsStr.String != "" && refsStr.String != "null" {
		if err := json.Unmarshal([]byte(refsStr.String), &turn.ImageRefs); err != nil {
			return core.Turn{}, fmt.Errorf("failed to unmarshal image refs: %w", err)
		}
	}

	return turn, nil
}
