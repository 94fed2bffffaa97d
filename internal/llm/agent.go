package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Conversation is an immutable handle on a dialogue with a model: the
// system prompt, an optional output schema and the message history.
// Every Agent.Respond returns a new Conversation; the old one stays valid,
// so a caller can work on a copy and commit it only on success.
type Conversation struct {
	system  string
	schema  *Schema
	history []Message
}

// NewConversation starts an empty conversation.
func NewConversation(system string, schema *Schema) Conversation {
	return Conversation{system: system, schema: schema}
}

// System returns the system prompt.
func (c Conversation) System() string { return c.system }

// Len returns the number of messages exchanged so far.
func (c Conversation) Len() int { return len(c.history) }

// History returns a copy of the message history, oldest first.
func (c Conversation) History() []Message {
	return append([]Message(nil), c.history...)
}

// With returns a conversation extended by msgs.
func (c Conversation) With(msgs ...Message) Conversation {
	h := make([]Message, 0, len(c.history)+len(msgs))
	h = append(h, c.history...)
	h = append(h, msgs...)
	c.history = h
	return c
}

// AgentConfig tunes the requests an Agent sends.
type AgentConfig struct {
	// Purpose labels requests for event logging, e.g. "narrator".
	Purpose string

	MaxTokens   int
	Temperature float64

	// MaxHistory caps how many trailing messages are sent with each
	// request. Zero sends the whole history.
	MaxHistory int
}

// Agent runs conversations against a Provider.
type Agent struct {
	provider Provider
	cfg      AgentConfig
}

// NewAgent creates an Agent. MaxTokens defaults to 1024.
func NewAgent(p Provider, cfg AgentConfig) *Agent {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	return &Agent{provider: p, cfg: cfg}
}

// Reply is the model's answer plus the conversation that includes it.
type Reply struct {
	Content      json.RawMessage
	Conversation Conversation
}

// Text returns the reply content as a string.
func (r *Reply) Text() string { return string(r.Content) }

// Decode unmarshals a structured reply into v.
func (r *Reply) Decode(v any) error {
	if err := json.Unmarshal(r.Content, v); err != nil {
		return &ErrInvalidResponse{Content: r.Content, Err: err}
	}
	return nil
}

// AgentError reports a failed agent turn.
type AgentError struct {
	Purpose string
	Err     error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("%s agent: %v", e.Purpose, e.Err)
}

func (e *AgentError) Unwrap() error { return e.Err }

// Respond sends msg as the next user message and returns the model's reply.
// conv is not modified.
func (a *Agent) Respond(ctx context.Context, conv Conversation, msg string) (*Reply, error) {
	next := conv.With(Message{Role: RoleUser, Content: msg})

	resp, err := a.provider.Generate(WithPurpose(ctx, a.cfg.Purpose), Request{
		System:      next.system,
		Messages:    a.window(next.history),
		Schema:      next.schema,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
	})
	if err != nil {
		return nil, &AgentError{Purpose: a.cfg.Purpose, Err: err}
	}

	return &Reply{
		Content:      resp.Content,
		Conversation: next.With(Message{Role: RoleAssistant, Content: resp.Text()}),
	}, nil
}

// window trims history to MaxHistory messages, starting on a user turn.
func (a *Agent) window(history []Message) []Message {
	if a.cfg.MaxHistory <= 0 || len(history) <= a.cfg.MaxHistory {
		return history
	}
	w := history[len(history)-a.cfg.MaxHistory:]
	for len(w) > 1 && w[0].Role != RoleUser {
		w = w[1:]
	}
	return w
}
