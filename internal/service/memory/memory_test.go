package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sandevgo/cupido/internal/core"
)

type fakeTurns struct {
	turns     []core.Turn
	nextID    int64
	addErr    error
	recentErr error
}

func (f *fakeTurns) AddTurn(ctx context.Context, turn core.Turn) (core.Turn, error) {
	if f.addErr != nil {
		return core.Turn{}, f.addErr
	}
	f.nextID++
	turn.ID = f.nextID
	f.turns = append(f.turns, turn)
	return turn, nil
}

func (f *fakeTurns) RecentTurns(ctx context.Context, conversationID string, limit int, before *time.Time) ([]core.Turn, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	var matched []core.Turn
	for _, turn := range f.turns {
		if turn.ConversationID != conversationID {
			continue
		}
		if before != nil && !turn.CreatedAt.Before(*before) {
			continue
		}
		matched = append(matched, turn)
	}
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, nil
}

type fakeSummaries struct {
	summary    *core.Summary
	getErr     error
	replaceErr error
}

func (f *fakeSummaries) Summary(ctx context.Context, conversationID string) (*core.Summary, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.summary, nil
}

func (f *fakeSummaries) Replace(ctx context.Context, summary core.Summary) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	summary.LastSummaryUpdate = time.Now().UTC()
	f.summary = &summary
	return nil
}

type fixedEstimator struct{}

func (fixedEstimator) Estimate(text string) int {
	return len(text)
}

func newTestService() (*Service, *fakeTurns, *fakeSummaries) {
	turns := &fakeTurns{}
	summaries := &fakeSummaries{}
	return New(turns, summaries, fixedEstimator{}), turns, summaries
}

func TestPrepareTurn_Validation(t *testing.T) {
	svc, _, _ := newTestService()

	tests := []struct {
		name           string
		conversationID string
		role           string
		wantErr        error
	}{
		{"empty conversation", "", core.RoleUser, core.ErrNoConversation},
		{"unknown role", "conv-1", "system", core.ErrInvalidRole},
		{"empty role", "conv-1", "", core.ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PrepareTurn(tt.conversationID, tt.role, "hello", nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestPrepareTurn_PopulatesTurn(t *testing.T) {
	svc, _, _ := newTestService()

	turn, err := svc.PrepareTurn("conv-1", core.RoleUser, "hello", []string{"img-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if turn.MessageID == "" {
		t.Error("expected a message id")
	}
	if turn.EstimatedTokens != len("hello") {
		t.Errorf("expected estimator output %d, got %d", len("hello"), turn.EstimatedTokens)
	}
	if turn.ContextWeight != 1.0 {
		t.Errorf("expected default context weight 1.0, got %f", turn.ContextWeight)
	}
	if turn.CreatedAt.IsZero() {
		t.Error("expected a creation timestamp")
	}
	if len(turn.ImageRefs) != 1 || turn.ImageRefs[0] != "img-1" {
		t.Errorf("unexpected image refs: %v", turn.ImageRefs)
	}
}

func TestAppendTurn_Persists(t *testing.T) {
	svc, turns, _ := newTestService()
	ctx := context.Background()

	stored, err := svc.AppendTurn(ctx, "conv-1", core.RoleAssistant, "good evening", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.ID == 0 {
		t.Error("expected storage id to be set")
	}
	if len(turns.turns) != 1 {
		t.Fatalf("expected 1 stored turn, got %d", len(turns.turns))
	}
}

func TestAppendTurn_SurfacesWriteError(t *testing.T) {
	svc, turns, _ := newTestService()
	turns.addErr = errors.New("disk full")

	_, err := svc.AppendTurn(context.Background(), "conv-1", core.RoleUser, "hello", nil)
	if err == nil {
		t.Fatal("expected write error to surface")
	}
}

func TestRecentTurns_DegradesToEmptyOnError(t *testing.T) {
	svc, turns, _ := newTestService()
	turns.recentErr = errors.New("connection reset")

	got := svc.RecentTurns(context.Background(), "conv-1", 10, nil)
	if got == nil {
		t.Fatal("expected non-nil slice")
	}
	if len(got) != 0 {
		t.Errorf("expected empty slice, got %d turns", len(got))
	}
}

func TestSummary_DegradesToNilOnError(t *testing.T) {
	svc, _, summaries := newTestService()
	summaries.getErr = errors.New("timeout")

	if got := svc.Summary(context.Background(), "conv-1"); got != nil {
		t.Errorf("expected nil summary, got %+v", got)
	}
}

func TestReplaceSummary_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if err := svc.ReplaceSummary(ctx, "", "digest", 5, 1, 10); !errors.Is(err, core.ErrNoConversation) {
		t.Errorf("expected ErrNoConversation, got %v", err)
	}
	if err := svc.ReplaceSummary(ctx, "conv-1", "digest", -1, 1, 10); !errors.Is(err, core.ErrNegativeTokens) {
		t.Errorf("expected ErrNegativeTokens, got %v", err)
	}
}

func TestReplaceSummary_FailureKeepsPrevious(t *testing.T) {
	svc, _, summaries := newTestService()
	ctx := context.Background()

	if err := svc.ReplaceSummary(ctx, "conv-1", "first digest", 3, 4, 40); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summaries.replaceErr = errors.New("write failed")
	if err := svc.ReplaceSummary(ctx, "conv-1", "second digest", 3, 8, 80); err == nil {
		t.Fatal("expected error from failed replace")
	}

	summary := svc.Summary(ctx, "conv-1")
	if summary == nil || summary.SummaryText != "first digest" {
		t.Errorf("previous summary must stay valid after a failed replace, got %+v", summary)
	}
}
