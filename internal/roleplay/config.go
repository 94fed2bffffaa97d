package roleplay

// Config controls roleplay pacing and the LLM requests behind it.
type Config struct {
	// NarratorThreshold is how many player messages pass between narrator
	// events.
	NarratorThreshold int

	// NarratorWindow is how many recent dialogue lines the narrator sees.
	NarratorWindow int

	SituationMaxTokens   int
	SituationTemperature float64

	NarratorMaxTokens   int
	NarratorTemperature float64

	CharacterMaxTokens   int
	CharacterTemperature float64
	// CharacterMaxHistory caps the chat history sent per character turn.
	CharacterMaxHistory int

	GrammarMaxTokens   int
	GrammarTemperature float64
}

// DefaultConfig returns the standard pacing: a narrator event every third
// player message.
func DefaultConfig() Config {
	return Config{
		NarratorThreshold:    3,
		NarratorWindow:       6,
		SituationMaxTokens:   2000,
		SituationTemperature: 1.0,
		NarratorMaxTokens:    1000,
		NarratorTemperature:  0.9,
		CharacterMaxTokens:   800,
		CharacterTemperature: 0.7,
		CharacterMaxHistory:  40,
		GrammarMaxTokens:     600,
		GrammarTemperature:   0.3,
	}
}
