// Package session holds per-user conversation state and the state machine
// that drives translation exercises and roleplay situations.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/deutschbot/deutschbot/internal/exercise"
	"github.com/deutschbot/deutschbot/internal/german"
	"github.com/deutschbot/deutschbot/internal/llm"
	"github.com/deutschbot/deutschbot/internal/pipeline"
	"github.com/deutschbot/deutschbot/internal/roleplay"
	"github.com/deutschbot/deutschbot/internal/selector"
)

// State is a step of the conversation flow.
type State int

const (
	StateSelectLevel        State = iota // Waiting for a CEFR level
	StateSelectTrainingType              // Waiting for translation or roleplay
	StateStoreConstraint                 // Waiting for generation rules or /skip
	StateAwaitTranslation                // Exercise shown, waiting for the answer
	StateAwaitFollowup                   // Answer evaluated, questions or /next
	StateDescribeSituation               // Waiting for a roleplay description
	StateRoleplay                        // Roleplay in progress
	StateTerminated                      // Stopped; the session is gone
)

func (s State) String() string {
	switch s {
	case StateSelectLevel:
		return "select-level"
	case StateSelectTrainingType:
		return "select-training-type"
	case StateStoreConstraint:
		return "store-constraint"
	case StateAwaitTranslation:
		return "await-translation"
	case StateAwaitFollowup:
		return "await-followup"
	case StateDescribeSituation:
		return "describe-situation"
	case StateRoleplay:
		return "roleplay"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Session is one user's conversation. It is owned by a single handler at a
// time; transports serialize updates per user.
type Session struct {
	ID     string
	UserID int64
	State  State

	Level german.Level

	// Constraint is an optional rule every generated sentence must follow.
	Constraint string

	// History lists every exercise shown, oldest first.
	History []*exercise.Exercise

	// Correct and Total are the running score over History.
	Correct int
	Total   int

	// Tenses and Types are built on the first entry to translation mode
	// and kept for the rest of the session.
	Tenses *selector.Selector[german.Tense]
	Types  *selector.Selector[german.SentenceType]

	// Next holds the exercise generated ahead of time. It is created with
	// the session and never replaced.
	Next *pipeline.Pipeline[*exercise.Exercise]

	// Evaluation is the verdict on the last exercise.
	Evaluation *exercise.Evaluation

	// Tutor is the follow-up conversation about the last exercise, nil
	// until the first question.
	Tutor *llm.Conversation

	// Roleplay is set while a situation is running.
	Roleplay *roleplay.State

	StartedAt  time.Time
	LastActive time.Time
}

// New creates a session waiting for a level.
func New(userID int64, now time.Time) *Session {
	return &Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		State:      StateSelectLevel,
		Next:       pipeline.New[*exercise.Exercise](),
		StartedAt:  now,
		LastActive: now,
	}
}

// Current returns the last exercise shown, or nil.
func (s *Session) Current() *exercise.Exercise {
	if len(s.History) == 0 {
		return nil
	}
	return s.History[len(s.History)-1]
}

// PriorPrompts returns the sentences shown so far, oldest first.
func (s *Session) PriorPrompts() []string {
	out := make([]string, len(s.History))
	for i, ex := range s.History {
		out[i] = ex.Prompt
	}
	return out
}

// Close releases the session's background work. A generation still in
// flight is cancelled and its result discarded. Close may run on another
// goroutine than the session's handler.
func (s *Session) Close() {
	s.Next.Close()
}
