package exercise

import "github.com/deutschbot/deutschbot/internal/llm"

// SentenceSchema is the structured output of sentence generation.
var SentenceSchema = &llm.Schema{
	Name:        "ukrainian-sentence",
	Description: "A single Ukrainian sentence for the learner to translate into German",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"ukrainian_sentence": map[string]any{
				"type":        "string",
				"description": "The Ukrainian sentence, nothing else",
			},
		},
		"required":             []any{"ukrainian_sentence"},
		"additionalProperties": false,
	},
}

// EvaluationSchema is the structured output of translation evaluation.
var EvaluationSchema = &llm.Schema{
	Name:        "translation-evaluation",
	Description: "Verdict on a learner's German translation",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"is_correct": map[string]any{
				"type":        "boolean",
				"description": "True only if the translation is complete, grammatical, uses the target tense and sounds natural",
			},
			"correct_translation": map[string]any{
				"type":        "string",
				"description": "A correct, natural German translation, as close to the learner's wording as possible",
			},
			"explanation": map[string]any{
				"type":        "string",
				"description": "Concise explanation in Ukrainian of every correction, using German grammatical terms. Empty if correct.",
			},
		},
		"required":             []any{"is_correct", "correct_translation", "explanation"},
		"additionalProperties": false,
	},
}
