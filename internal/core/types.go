package core

import "time"

const (
	CupidoName    = "Cupido"
	CupidoVersion = "0.1.0"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single immutable message within a conversation. Turns are
// append-only: once stored they are never edited, only excluded from a
// context window via pagination.
type Turn struct {
	ID              int64     `json:"-"`
	MessageID       string    `json:"message_id"`
	ConversationID  string    `json:"conversation_id"`
	Role            string    `json:"role"`
	Content         string    `json:"content"`
	EstimatedTokens int       `json:"estimated_tokens"`
	ContextWeight   float64   `json:"context_weight"`
	ImageRefs       []string  `json:"image_refs,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Summary is the rolling compressed digest of a conversation's older turns,
// plus the running counters for the whole conversation (active + summarized).
type Summary struct {
	ConversationID    string    `json:"conversation_id"`
	SummaryText       string    `json:"summary_text"`
	SummaryTokenCount int       `json:"summary_token_count"`
	TotalMessages     int64     `json:"total_messages"`
	TotalTokens       int64     `json:"total_tokens"`
	LastSummaryUpdate time.Time `json:"last_summary_update"`
}

type ContextStrategy string

const (
	// StrategyFull means no summary exists and every stored turn fit the budget.
	StrategyFull ContextStrategy = "full"
	// StrategySummarized means a non-empty summary was included.
	StrategySummarized ContextStrategy = "summarized"
	// StrategyMinimal means no summary exists and fewer than three turns were included.
	StrategyMinimal ContextStrategy = "minimal"
)

// ContextMessage is a single role/content pair inside an assembled context.
type ContextMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ContextAssembly is the bounded prompt payload handed to a downstream LLM
// call. It is ephemeral and never persisted.
type ContextAssembly struct {
	SystemMemory        string           `json:"system_memory"`
	RecentMessages      []ContextMessage `json:"recent_messages"`
	TotalTokensEstimate int              `json:"total_tokens_estimate"`
	ContextStrategy     ContextStrategy  `json:"context_strategy"`
}

// ValidRole reports whether role is one of the two enumerated turn roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}
