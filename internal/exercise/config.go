package exercise

// Config controls the behavior of the LLM-backed generator and evaluator.
type Config struct {
	// Validators run in order on every generated exercise; the first
	// failure rejects it.
	Validators []Validator

	GenerateMaxTokens   int
	GenerateTemperature float64

	EvaluateMaxTokens   int
	EvaluateTemperature float64

	TutorMaxTokens int
	// TutorMaxHistory caps the follow-up dialogue sent per question.
	TutorMaxHistory int

	// MaxPriorPrompts is how many previous sentences reach the prompt.
	MaxPriorPrompts int
}

// DefaultConfig returns a Config with the standard validator chain.
func DefaultConfig() Config {
	return Config{
		Validators: []Validator{
			&StructuralValidator{},
			&DuplicateValidator{},
		},
		GenerateMaxTokens:   1000,
		GenerateTemperature: 1.0,
		EvaluateMaxTokens:   2500,
		EvaluateTemperature: 0.7,
		TutorMaxTokens:      1500,
		TutorMaxHistory:     20,
		MaxPriorPrompts:     5,
	}
}
