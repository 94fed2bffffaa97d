package exercise

import (
	"fmt"
	"strings"
)

const generatorSystemPrompt = `You generate Ukrainian sentences for a chat bot that teaches German to Ukrainian speakers.
Create exactly ONE Ukrainian sentence that the learner will translate into German.

Rules:
- The most natural German translation must use the target tense.
- Match the sentence type: affirmative statement, negative statement or question.
- Adjust complexity to the level. A1/A2: everyday situations, basic vocabulary, simple clauses.
  B1/B2: wider vocabulary, compound sentences, subordinate clauses. C1/C2: abstract and nuanced
  content, idioms, passive voice, Konjunktiv, several subordinate clauses.
- If a constraint is given, the German translation must naturally contain that word, phrase or structure.
- The sentence must differ from every previous sentence in topic, vocabulary and structure.
  Draw topics from daily life, work, travel, family, food, health, technology, culture, nature, sport and so on.

Tense guide:
- Präsens: current states, habits, general facts
- Präsens Futur: future meaning expressed with the present tense
- Perfekt: completed actions with present relevance
- Präteritum: narratives and formal descriptions of the past
- Plusquamperfekt: actions completed before another past action
- Futur I: plans and predictions with "werden + Infinitiv"
- Futur II: "werden + Partizip II + haben/sein"`

const evaluatorSystemPrompt = `You are a German tutor who evaluates translations from Ukrainian into German.

Score the translation against five criteria: grammatical correctness (cases, conjugation, word order,
articles, adjective endings), correct use of the target tense (including the Hilfsverb in Perfekt),
natural colloquial phrasing, vocabulary appropriate for the level, and complete preservation of meaning.
Check carefully for words that were left untranslated.

The translation is correct only if nothing needs to change. Otherwise give the corrected translation,
staying as close to the learner's wording as possible, and explain each correction in Ukrainian using
German grammatical terms (Akkusativ, Dativ, Perfekt, Hilfsverb, trennbares Verb, Konjunktiv ...).
Adjust the depth of the explanation to the level: explain basics for A1/A2, be brief for C1/C2.
Do not repeat the corrected sentence in the explanation.`

const tutorSystemPromptTemplate = `You are a German tutor answering a Ukrainian-speaking learner's follow-up questions
about one translation exercise. Answer in Ukrainian, concisely, with German grammatical terms,
at a depth suited to level %s. Plain text only, no Markdown.

Ukrainian sentence: %s
Target tense: %s
Learner's translation: %s
Correct translation: %s
Evaluation: %s`

// buildGenerateMessage constructs the user message for sentence generation.
func buildGenerateMessage(input GenerateInput, cfg Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Level: %s\n", input.Level)
	fmt.Fprintf(&b, "Target tense: %s\n", input.Tense)
	fmt.Fprintf(&b, "Sentence type: %s\n", input.SentenceType)

	constraint := strings.TrimSpace(input.Constraint)
	if constraint == "" {
		constraint = "None"
	}
	fmt.Fprintf(&b, "Constraint: %s\n", constraint)

	b.WriteString("\nPrevious sentences:\n")
	b.WriteString(buildPrior(input.PriorPrompts, cfg.MaxPriorPrompts))

	return b.String()
}

// buildPrior formats the most recent max prompts, or "None".
func buildPrior(prior []string, max int) string {
	if len(prior) == 0 {
		return "None"
	}
	if max > 0 && len(prior) > max {
		prior = prior[len(prior)-max:]
	}

	var b strings.Builder
	for i, p := range prior {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p)
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildEvaluateMessage(ex *Exercise, answer string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ukrainian sentence: %s\n", ex.Prompt)
	fmt.Fprintf(&b, "Level: %s\n", ex.Level)
	fmt.Fprintf(&b, "Target tense: %s\n", ex.Tense)
	fmt.Fprintf(&b, "Learner's translation: %s\n", answer)
	return b.String()
}

func buildTutorPrompt(ex *Exercise, eval *Evaluation) string {
	verdict := eval.Explanation
	if eval.Correct {
		verdict = "The translation is correct."
	}
	return fmt.Sprintf(tutorSystemPromptTemplate,
		ex.Level, ex.Prompt, ex.Tense, ex.Answer, eval.CorrectTranslation, verdict)
}
