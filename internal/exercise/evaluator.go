package exercise

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deutschbot/deutschbot/internal/llm"
)

// Evaluator judges a learner's translation.
type Evaluator interface {
	Evaluate(ctx context.Context, ex *Exercise, answer string) (*Evaluation, error)
}

// LLMEvaluator implements Evaluator using an LLM provider.
type LLMEvaluator struct {
	provider llm.Provider
	config   Config
}

// NewEvaluator creates an LLMEvaluator.
func NewEvaluator(provider llm.Provider, cfg Config) *LLMEvaluator {
	return &LLMEvaluator{provider: provider, config: cfg}
}

type evaluationOutput struct {
	IsCorrect          bool   `json:"is_correct"`
	CorrectTranslation string `json:"correct_translation"`
	Explanation        string `json:"explanation"`
}

// Evaluate returns the verdict for answer. ex is not modified. All failures
// are returned as *EvaluationError.
func (e *LLMEvaluator) Evaluate(ctx context.Context, ex *Exercise, answer string) (*Evaluation, error) {
	ctx = llm.WithPurpose(ctx, "evaluation")

	resp, err := e.provider.Generate(ctx, llm.Request{
		System: evaluatorSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildEvaluateMessage(ex, answer)},
		},
		Schema:      EvaluationSchema,
		MaxTokens:   e.config.EvaluateMaxTokens,
		Temperature: e.config.EvaluateTemperature,
	})
	if err != nil {
		return nil, &EvaluationError{Err: err}
	}

	var raw evaluationOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, &EvaluationError{Err: fmt.Errorf("parse LLM response: %w", err)}
	}

	eval := &Evaluation{
		Correct:            raw.IsCorrect,
		CorrectTranslation: strings.TrimSpace(raw.CorrectTranslation),
		Explanation:        strings.TrimSpace(raw.Explanation),
	}
	if !eval.Correct && eval.CorrectTranslation == "" {
		return nil, &EvaluationError{Err: fmt.Errorf("incorrect verdict without a correct translation")}
	}
	return eval, nil
}
