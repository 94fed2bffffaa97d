package exercise

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deutschbot/deutschbot/internal/llm"
)

// Generator produces exercises.
type Generator interface {
	Generate(ctx context.Context, input GenerateInput) (*Exercise, error)
}

// LLMGenerator implements Generator using an LLM provider.
type LLMGenerator struct {
	provider llm.Provider
	config   Config
}

// NewGenerator creates an LLMGenerator.
func NewGenerator(provider llm.Provider, cfg Config) *LLMGenerator {
	return &LLMGenerator{provider: provider, config: cfg}
}

type sentenceOutput struct {
	UkrainianSentence string `json:"ukrainian_sentence"`
}

// Generate produces a single exercise. All failures are returned as
// *GenerationError.
func (g *LLMGenerator) Generate(ctx context.Context, input GenerateInput) (*Exercise, error) {
	ctx = llm.WithPurpose(ctx, "sentence-gen")

	resp, err := g.provider.Generate(ctx, llm.Request{
		System: generatorSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildGenerateMessage(input, g.config)},
		},
		Schema:      SentenceSchema,
		MaxTokens:   g.config.GenerateMaxTokens,
		Temperature: g.config.GenerateTemperature,
	})
	if err != nil {
		return nil, &GenerationError{Err: err}
	}

	var raw sentenceOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, &GenerationError{Err: fmt.Errorf("parse LLM response: %w", err)}
	}

	ex := &Exercise{
		Prompt:       strings.TrimSpace(raw.UkrainianSentence),
		Level:        input.Level,
		Tense:        input.Tense,
		SentenceType: input.SentenceType,
	}

	for _, v := range g.config.Validators {
		if verr := v.Validate(ex, input); verr != nil {
			return nil, &GenerationError{Err: verr}
		}
	}

	return ex, nil
}
