// Package exercise generates Ukrainian sentences for translation into
// German, evaluates learners' translations and answers follow-up questions.
package exercise

import "github.com/deutschbot/deutschbot/internal/german"

// Correctness is the evaluation state of an exercise.
type Correctness int

const (
	Unknown Correctness = iota
	Correct
	Incorrect
)

func (c Correctness) String() string {
	switch c {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	default:
		return "unknown"
	}
}

// Exercise is one sentence the learner is asked to translate.
// It is created by a Generator and updated once by Grade.
type Exercise struct {
	// Prompt is the Ukrainian sentence shown to the learner.
	Prompt string

	Level        german.Level
	Tense        german.Tense
	SentenceType german.SentenceType

	Correctness Correctness

	// Answer is the learner's submitted translation.
	Answer string

	// CorrectTranslation is the evaluator's reference translation.
	CorrectTranslation string
}

// Grade records the learner's answer and its evaluation.
func (e *Exercise) Grade(answer string, eval *Evaluation) {
	e.Answer = answer
	e.CorrectTranslation = eval.CorrectTranslation
	if eval.Correct {
		e.Correctness = Correct
	} else {
		e.Correctness = Incorrect
	}
}

// GenerateInput holds all context needed to generate an exercise.
type GenerateInput struct {
	Level        german.Level
	Tense        german.Tense
	SentenceType german.SentenceType

	// PriorPrompts are the sentences already shown in this session, oldest
	// first. Only the most recent Config.MaxPriorPrompts reach the prompt.
	PriorPrompts []string

	// Constraint is an optional word, phrase or structure the German
	// translation should contain.
	Constraint string
}

// Evaluation is the verdict on a learner's translation.
type Evaluation struct {
	Correct            bool
	CorrectTranslation string
	// Explanation is in Ukrainian and empty for a correct answer.
	Explanation string
}

// Score returns how many exercises are correct out of how many were shown.
func Score(history []*Exercise) (correct, total int) {
	for _, e := range history {
		if e.Correctness == Correct {
			correct++
		}
	}
	return correct, len(history)
}
