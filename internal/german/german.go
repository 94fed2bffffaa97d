// Package german holds the grammar vocabulary the trainer draws exercises
// from: proficiency levels, the tenses each level practices, and sentence
// types with their base weights.
package german

import (
	"fmt"
	"strings"
)

// Level is a CEFR proficiency level.
type Level string

const (
	A1 Level = "A1"
	A2 Level = "A2"
	B1 Level = "B1"
	B2 Level = "B2"
	C1 Level = "C1"
	C2 Level = "C2"
)

// Levels lists every supported level in ascending order.
var Levels = []Level{A1, A2, B1, B2, C1, C2}

// ParseLevel matches user input against the known levels, ignoring case and
// surrounding whitespace.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Levels {
		if l == known {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown level %q", s)
}

// Tense is a German tense an exercise targets.
type Tense string

const (
	Praesens        Tense = "Präsens"
	Perfekt         Tense = "Perfekt"
	Praeteritum     Tense = "Präteritum"
	PraesensFutur   Tense = "Präsens Futur"
	Futur1          Tense = "Futur I"
	Futur2          Tense = "Futur II"
	Plusquamperfekt Tense = "Plusquamperfekt"
)

// levelTenses is the tense pool per level. Higher levels include every
// tense of the levels below them.
var levelTenses = map[Level][]Tense{
	A1: {Praesens},
	A2: {Praesens, Perfekt},
	B1: {Praesens, Perfekt, Praeteritum},
	B2: {Praesens, Perfekt, Praeteritum, PraesensFutur, Plusquamperfekt},
	C1: {Praesens, Perfekt, Praeteritum, PraesensFutur, Plusquamperfekt, Futur1},
	C2: {Praesens, Perfekt, Praeteritum, PraesensFutur, Plusquamperfekt, Futur1, Futur2},
}

// TensesFor returns a copy of the tense pool for a level, or nil for an
// unknown level.
func TensesFor(l Level) []Tense {
	pool, ok := levelTenses[l]
	if !ok {
		return nil
	}
	out := make([]Tense, len(pool))
	copy(out, pool)
	return out
}

// SentenceType is the grammatical mood of the sentence to translate.
type SentenceType string

const (
	Affirmative SentenceType = "affirmative"
	Negative    SentenceType = "negative"
	Question    SentenceType = "question"
)

// SentenceTypes lists the sentence types and SentenceTypeWeights their base
// weights, index-aligned.
var (
	SentenceTypes       = []SentenceType{Affirmative, Negative, Question}
	SentenceTypeWeights = []float64{0.5, 0.25, 0.25}
)

// Label returns the Ukrainian name shown to learners.
func (t SentenceType) Label() string {
	switch t {
	case Affirmative:
		return "стверджувальне"
	case Negative:
		return "заперечне"
	case Question:
		return "питальне"
	default:
		return string(t)
	}
}
