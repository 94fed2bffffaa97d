package exercise

import "fmt"

// GenerationError reports a failure to produce an exercise.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate exercise: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// EvaluationError reports a failure to evaluate a translation.
type EvaluationError struct {
	Err error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate translation: %v", e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// ValidationError describes why a generated sentence was rejected.
type ValidationError struct {
	Validator string
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}
