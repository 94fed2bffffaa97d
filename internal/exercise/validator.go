package exercise

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validator checks a generated exercise before it is handed out.
// Implementations should be stateless and safe for concurrent use.
type Validator interface {
	Name() string
	Validate(ex *Exercise, input GenerateInput) *ValidationError
}

// StructuralValidator rejects empty, oversized or non-Cyrillic sentences.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(ex *Exercise, _ GenerateInput) *ValidationError {
	text := strings.TrimSpace(ex.Prompt)
	switch {
	case text == "":
		return &ValidationError{Validator: v.Name(), Message: "sentence is empty"}
	case utf8.RuneCountInString(text) > 400:
		return &ValidationError{Validator: v.Name(), Message: "sentence exceeds 400 characters"}
	case !strings.ContainsFunc(text, func(r rune) bool { return unicode.Is(unicode.Cyrillic, r) }):
		return &ValidationError{Validator: v.Name(), Message: "sentence is not in Ukrainian"}
	}
	return nil
}

// DuplicateValidator rejects a sentence identical to a previous one,
// ignoring case, spacing and trailing punctuation.
type DuplicateValidator struct{}

func (v *DuplicateValidator) Name() string { return "duplicate" }

func (v *DuplicateValidator) Validate(ex *Exercise, input GenerateInput) *ValidationError {
	key := normalizeSentence(ex.Prompt)
	for _, p := range input.PriorPrompts {
		if normalizeSentence(p) == key {
			return &ValidationError{Validator: v.Name(), Message: "sentence repeats a previous one"}
		}
	}
	return nil
}

func normalizeSentence(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return strings.TrimRightFunc(s, unicode.IsPunct)
}
