package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit     int       // max results (0 = unlimited)
	Purpose   string    // LLM events only; empty = any
	SessionID string    // session id or a prefix of one; empty = any
	Since     time.Time // timestamp >= Since
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	SessionID    string
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEvent is a stored LLM request event.
type LLMEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// PurposeUsage aggregates LLM calls per purpose.
type PurposeUsage struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// ModelUsage aggregates LLM calls per model.
type ModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// SessionUsage aggregates the LLM calls made for one chat session.
type SessionUsage struct {
	SessionID    string
	Calls        int
	Failures     int
	InputTokens  int
	OutputTokens int
	First        time.Time
	Last         time.Time
}

// ExerciseEventData records one evaluated translation exercise.
type ExerciseEventData struct {
	SessionID    string
	UserID       int64
	Level        string
	Tense        string
	SentenceType string
	Prompt       string
	Answer       string
	Correct      bool
}

// TenseStats aggregates exercise outcomes per level and tense.
type TenseStats struct {
	Level   string
	Tense   string
	Total   int
	Correct int
}

// Accuracy returns the share of correct answers, or 0 with no attempts.
func (s TenseStats) Accuracy() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Total)
}

// EventRepo provides append and query access to the event log.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// AppendExercise records an evaluated exercise.
	AppendExercise(ctx context.Context, data ExerciseEventData) error

	// QueryLLMEvents returns LLM events, newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)

	// GetLLMEvent returns one event by ID, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error)

	// LLMUsageByPurpose aggregates token usage per purpose.
	LLMUsageByPurpose(ctx context.Context) ([]PurposeUsage, error)

	// LLMUsageByModel aggregates token usage per model.
	LLMUsageByModel(ctx context.Context) ([]ModelUsage, error)

	// LLMUsageBySession aggregates calls per session, most recently
	// active first. Calls made outside a session are skipped.
	LLMUsageBySession(ctx context.Context, opts QueryOpts) ([]SessionUsage, error)

	// ExerciseStats aggregates exercise outcomes per level and tense.
	ExerciseStats(ctx context.Context, opts QueryOpts) ([]TenseStats, error)
}
