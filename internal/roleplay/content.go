package roleplay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/deutschbot/deutschbot/internal/german"
	"github.com/deutschbot/deutschbot/internal/llm"
)

// NarrateInput is everything the narrator sees.
type NarrateInput struct {
	Level     german.Level
	Situation *Situation
	Scene     Scene
	Dialogue  []Line
}

// CharacterInput is one player message plus the scene around it.
type CharacterInput struct {
	Level german.Level
	Scene Scene

	// NarratorContext is set when a narrator event preceded this turn.
	NarratorContext string

	Text string
}

// Narrator produces scene events.
type Narrator interface {
	Narrate(ctx context.Context, in NarrateInput) (*NarratorEvent, error)
}

// Character plays the other side of the conversation.
type Character interface {
	// Open creates the chat handle for a new situation.
	Open(level german.Level, s *Situation) llm.Conversation

	// Reply answers in, continuing conv. conv is not modified; the
	// extended conversation is returned with the reply.
	Reply(ctx context.Context, conv llm.Conversation, in CharacterInput) (*CharacterReply, llm.Conversation, error)
}

// GrammarChecker reviews player messages.
type GrammarChecker interface {
	Check(ctx context.Context, level german.Level, text, situationContext string) (*GrammarResult, error)
}

// generateJSON sends a single-message structured request and decodes the
// reply into out.
func generateJSON(ctx context.Context, p llm.Provider, purpose, system, msg string, schema *llm.Schema, maxTokens int, temp float64, out any) error {
	resp, err := p.Generate(llm.WithPurpose(ctx, purpose), llm.Request{
		System:      system,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: msg}},
		Schema:      schema,
		MaxTokens:   maxTokens,
		Temperature: temp,
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Content, out); err != nil {
		return fmt.Errorf("parse LLM response: %w", err)
	}
	return nil
}

// Director sets up new situations.
type Director struct {
	provider  llm.Provider
	character Character
	cfg       Config
}

// NewDirector creates a Director. character opens the chat handle of each
// new situation.
func NewDirector(provider llm.Provider, character Character, cfg Config) *Director {
	return &Director{provider: provider, character: character, cfg: cfg}
}

// Start turns the learner's description into a situation, then generates
// the initial scene while opening the character's chat handle. Failures are
// *StepError.
func (d *Director) Start(ctx context.Context, level german.Level, description string) (*State, error) {
	var s Situation
	err := generateJSON(ctx, d.provider, "situation", situationSystemPrompt,
		buildSituationMessage(level, description), SituationSchema,
		d.cfg.SituationMaxTokens, d.cfg.SituationTemperature, &s)
	if err != nil {
		return nil, &StepError{Step: "situation", Err: err}
	}
	if strings.TrimSpace(s.CharacterRole) == "" || strings.TrimSpace(s.OpeningDE) == "" {
		return nil, &StepError{Step: "situation", Err: fmt.Errorf("situation %q has no character or opening line", s.NameDE)}
	}

	st := &State{Situation: &s}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var scene Scene
		err := generateJSON(gctx, d.provider, "scene", sceneSystemPrompt,
			buildSceneMessage(level, &s), SceneSchema,
			d.cfg.NarratorMaxTokens, d.cfg.NarratorTemperature, &scene)
		if err != nil {
			return &StepError{Step: "scene", Err: err}
		}
		st.Scene = scene
		return nil
	})
	st.Conversation = d.character.Open(level, &s)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return st, nil
}

// LLMNarrator implements Narrator using an LLM provider.
type LLMNarrator struct {
	provider llm.Provider
	cfg      Config
}

// NewNarrator creates an LLMNarrator.
func NewNarrator(provider llm.Provider, cfg Config) *LLMNarrator {
	return &LLMNarrator{provider: provider, cfg: cfg}
}

// Narrate generates one event. Failures are *StepError.
func (n *LLMNarrator) Narrate(ctx context.Context, in NarrateInput) (*NarratorEvent, error) {
	var ev NarratorEvent
	err := generateJSON(ctx, n.provider, "narrator", narratorSystemPrompt,
		buildNarratorMessage(in), NarratorSchema,
		n.cfg.NarratorMaxTokens, n.cfg.NarratorTemperature, &ev)
	if err != nil {
		return nil, &StepError{Step: "narrator", Err: err}
	}
	return &ev, nil
}

// LLMCharacter implements Character on top of an llm.Agent.
type LLMCharacter struct {
	agent *llm.Agent
}

// NewCharacter creates an LLMCharacter.
func NewCharacter(provider llm.Provider, cfg Config) *LLMCharacter {
	return &LLMCharacter{agent: llm.NewAgent(provider, llm.AgentConfig{
		Purpose:     "character",
		MaxTokens:   cfg.CharacterMaxTokens,
		Temperature: cfg.CharacterTemperature,
		MaxHistory:  cfg.CharacterMaxHistory,
	})}
}

func (c *LLMCharacter) Open(level german.Level, s *Situation) llm.Conversation {
	return llm.NewConversation(buildCharacterSystemPrompt(level, s), CharacterSchema)
}

// Reply failures are *StepError wrapping *llm.AgentError.
func (c *LLMCharacter) Reply(ctx context.Context, conv llm.Conversation, in CharacterInput) (*CharacterReply, llm.Conversation, error) {
	r, err := c.agent.Respond(ctx, conv, buildCharacterMessage(in))
	if err != nil {
		return nil, conv, &StepError{Step: "character", Err: err}
	}
	var out CharacterReply
	if err := r.Decode(&out); err != nil {
		return nil, conv, &StepError{Step: "character", Err: err}
	}
	if strings.TrimSpace(out.German) == "" {
		return nil, conv, &StepError{Step: "character", Err: fmt.Errorf("empty reply")}
	}
	return &out, r.Conversation, nil
}

// LLMGrammarChecker implements GrammarChecker using an LLM provider.
type LLMGrammarChecker struct {
	provider llm.Provider
	cfg      Config
}

// NewGrammarChecker creates an LLMGrammarChecker.
func NewGrammarChecker(provider llm.Provider, cfg Config) *LLMGrammarChecker {
	return &LLMGrammarChecker{provider: provider, cfg: cfg}
}

// Check failures are *StepError.
func (g *LLMGrammarChecker) Check(ctx context.Context, level german.Level, text, situationContext string) (*GrammarResult, error) {
	var res GrammarResult
	err := generateJSON(ctx, g.provider, "grammar-check", "",
		fmt.Sprintf(grammarPromptTemplate, level, text, situationContext), GrammarSchema,
		g.cfg.GrammarMaxTokens, g.cfg.GrammarTemperature, &res)
	if err != nil {
		return nil, &StepError{Step: "grammar", Err: err}
	}
	return &res, nil
}
