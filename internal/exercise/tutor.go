package exercise

import (
	"context"

	"github.com/deutschbot/deutschbot/internal/llm"
)

// Tutor answers follow-up questions about an evaluated exercise.
type Tutor struct {
	agent *llm.Agent
}

// NewTutor creates a Tutor backed by provider.
func NewTutor(provider llm.Provider, cfg Config) *Tutor {
	return &Tutor{agent: llm.NewAgent(provider, llm.AgentConfig{
		Purpose:    "tutor",
		MaxTokens:  cfg.TutorMaxTokens,
		MaxHistory: cfg.TutorMaxHistory,
	})}
}

// Open starts a conversation about ex and its evaluation.
func (t *Tutor) Open(ex *Exercise, eval *Evaluation) llm.Conversation {
	return llm.NewConversation(buildTutorPrompt(ex, eval), nil)
}

// Respond answers question within conv. Failures are *llm.AgentError.
func (t *Tutor) Respond(ctx context.Context, conv llm.Conversation, question string) (*llm.Reply, error) {
	return t.agent.Respond(ctx, conv, question)
}
