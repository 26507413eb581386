package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/cupido/internal/core"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewDB(context.Background(), filepath.Join(t.TempDir(), "cupido_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func makeTurn(conversationID, role, content string, tokens int, at time.Time) core.Turn {
	return core.Turn{
		MessageID:       uuid.NewString(),
		ConversationID:  conversationID,
		Role:            role,
		Content:         content,
		EstimatedTokens: tokens,
		ContextWeight:   1.0,
		CreatedAt:       at,
	}
}
