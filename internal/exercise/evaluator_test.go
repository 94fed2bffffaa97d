package exercise

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deutschbot/deutschbot/internal/german"
	"github.com/deutschbot/deutschbot/internal/llm"
)

func testExercise() *Exercise {
	return &Exercise{
		Prompt:       "Я пішов додому.",
		Level:        german.A2,
		Tense:        german.Perfekt,
		SentenceType: german.Affirmative,
	}
}

func TestEvaluate_Incorrect(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{
		"is_correct": false,
		"correct_translation": "Ich bin nach Hause gegangen.",
		"explanation": "Дієслово руху gehen утворює Perfekt з Hilfsverb sein."
	}`)})
	ev := NewEvaluator(mock, DefaultConfig())
	ex := testExercise()

	eval, err := ev.Evaluate(context.Background(), ex, "Ich habe nach Hause gegangen.")
	require.NoError(t, err)
	assert.False(t, eval.Correct)
	assert.Equal(t, "Ich bin nach Hause gegangen.", eval.CorrectTranslation)
	assert.Equal(t, Unknown, ex.Correctness, "Evaluate must not touch the exercise")

	req := mock.Calls[0]
	assert.Equal(t, EvaluationSchema, req.Schema)
	assert.Contains(t, req.Messages[0].Content, "Learner's translation: Ich habe nach Hause gegangen.")
	assert.Equal(t, 2500, req.MaxTokens)
}

func TestEvaluate_Errors(t *testing.T) {
	tests := []struct {
		name string
		resp llm.MockResponse
	}{
		{"provider", llm.MockResponse{Err: &llm.ErrRateLimit{Err: errors.New("429")}}},
		{"missing translation", llm.MockResponse{Content: json.RawMessage(`{"is_correct":false,"correct_translation":"","explanation":"x"}`)}},
		{"not json", llm.MockResponse{Content: json.RawMessage(`nope`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := NewEvaluator(llm.NewMockProvider(tt.resp), DefaultConfig())
			_, err := ev.Evaluate(context.Background(), testExercise(), "Ich gehe.")
			var evalErr *EvaluationError
			require.ErrorAs(t, err, &evalErr)
		})
	}
}

func TestExercise_GradeAndScore(t *testing.T) {
	a, b, c := testExercise(), testExercise(), testExercise()
	a.Grade("Ich bin nach Hause gegangen.", &Evaluation{Correct: true, CorrectTranslation: "Ich bin nach Hause gegangen."})
	b.Grade("Ich habe gegangen.", &Evaluation{Correct: false, CorrectTranslation: "Ich bin gegangen."})

	assert.Equal(t, Correct, a.Correctness)
	assert.Equal(t, Incorrect, b.Correctness)
	assert.Equal(t, "Ich habe gegangen.", b.Answer)
	assert.Equal(t, "Ich bin gegangen.", b.CorrectTranslation)

	correct, total := Score([]*Exercise{a, b, c})
	assert.Equal(t, 1, correct)
	assert.Equal(t, 3, total)
}

func TestTutor_ThreadsConversation(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(`Бо gehen - дієслово руху.`)},
		llm.MockResponse{Content: json.RawMessage(`Так, fahren теж.`)},
	)
	tutor := NewTutor(mock, DefaultConfig())
	ex := testExercise()
	eval := &Evaluation{CorrectTranslation: "Ich bin nach Hause gegangen.", Explanation: "sein, не haben"}
	ex.Grade("Ich habe nach Hause gegangen.", eval)

	conv := tutor.Open(ex, eval)
	assert.True(t, strings.Contains(conv.System(), "Я пішов додому."))
	assert.True(t, strings.Contains(conv.System(), "sein, не haben"))

	r1, err := tutor.Respond(context.Background(), conv, "Чому sein?")
	require.NoError(t, err)
	r2, err := tutor.Respond(context.Background(), r1.Conversation, "А fahren?")
	require.NoError(t, err)
	assert.Equal(t, "Так, fahren теж.", r2.Text())
	assert.Len(t, mock.Calls[1].Messages, 3)
}
