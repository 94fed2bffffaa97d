package roleplay

import "fmt"

// StepError reports a failed content step: "situation", "scene",
// "narrator", "character" or "grammar".
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("roleplay %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
