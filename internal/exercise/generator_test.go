package exercise

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/deutschbot/deutschbot/internal/german"
	"github.com/deutschbot/deutschbot/internal/llm"
)

func testInput() GenerateInput {
	return GenerateInput{
		Level:        german.B1,
		Tense:        german.Perfekt,
		SentenceType: german.Question,
		PriorPrompts: []string{"Я читаю книгу.", "Ми їдемо до Берліна."},
		Constraint:   "obwohl",
	}
}

func TestGenerate_HappyPath(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"ukrainian_sentence":"  Чи ти вже купив квитки на концерт?  "}`),
	})
	gen := NewGenerator(mock, DefaultConfig())

	ex, err := gen.Generate(context.Background(), testInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ex.Prompt != "Чи ти вже купив квитки на концерт?" {
		t.Errorf("unexpected prompt: %q", ex.Prompt)
	}
	if ex.Level != german.B1 || ex.Tense != german.Perfekt || ex.SentenceType != german.Question {
		t.Errorf("exercise does not carry its input: %+v", ex)
	}
	if ex.Correctness != Unknown {
		t.Errorf("new exercise should be unevaluated, got %v", ex.Correctness)
	}

	req := mock.Calls[0]
	if req.Schema != SentenceSchema {
		t.Error("expected the sentence schema")
	}
	for _, want := range []string{"Level: B1", "Target tense: Perfekt", "Sentence type: question", "Constraint: obwohl", "2. Ми їдемо до Берліна."} {
		if !strings.Contains(req.Messages[0].Content, want) {
			t.Errorf("user message missing %q:\n%s", want, req.Messages[0].Content)
		}
	}
}

func TestGenerate_ProviderError(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})
	gen := NewGenerator(mock, DefaultConfig())

	_, err := gen.Generate(context.Background(), testInput())
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %T (%v)", err, err)
	}
	var unavail *llm.ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected the provider error to be wrapped, got %v", err)
	}
}

func TestGenerate_ValidatorRejects(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		validator string
	}{
		{"empty", `{"ukrainian_sentence":"   "}`, "structural"},
		{"latin", `{"ukrainian_sentence":"Ich lese ein Buch."}`, "structural"},
		{"duplicate", `{"ukrainian_sentence":"я читаю  книгу"}`, "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(tt.content)})
			gen := NewGenerator(mock, DefaultConfig())

			_, err := gen.Generate(context.Background(), testInput())
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %T (%v)", err, err)
			}
			if verr.Validator != tt.validator {
				t.Fatalf("expected %s validator, got %s", tt.validator, verr.Validator)
			}
		})
	}
}

func TestBuildPrior(t *testing.T) {
	if got := buildPrior(nil, 5); got != "None" {
		t.Fatalf("expected None, got %q", got)
	}
	prior := []string{"a", "b", "c", "d", "e", "f", "g"}
	got := buildPrior(prior, 5)
	if strings.Contains(got, "b") || !strings.HasPrefix(got, "1. c") || !strings.HasSuffix(got, "5. g") {
		t.Fatalf("expected the last five sentences, got %q", got)
	}
}

func TestBuildGenerateMessage_NoConstraint(t *testing.T) {
	in := testInput()
	in.Constraint = "  "
	in.PriorPrompts = nil
	msg := buildGenerateMessage(in, DefaultConfig())
	if !strings.Contains(msg, "Constraint: None") || !strings.Contains(msg, "Previous sentences:\nNone") {
		t.Fatalf("unexpected message:\n%s", msg)
	}
}
