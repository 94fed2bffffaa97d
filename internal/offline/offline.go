// Package offline answers model requests with canned content so the bot
// can be played without API keys.
package offline

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/deutschbot/deutschbot/internal/llm"
)

type sentence struct {
	uk, de string
}

// sentences is the whole offline pool. A session that exhausts it gets
// generation errors, since repeats are rejected.
var sentences = []sentence{
	{"Я п'ю каву щоранку.", "Ich trinke jeden Morgen Kaffee."},
	{"Ми не їдемо сьогодні до міста.", "Wir fahren heute nicht in die Stadt."},
	{"Ти вже прочитав цю книгу?", "Hast du dieses Buch schon gelesen?"},
	{"Моя сестра працює в лікарні.", "Meine Schwester arbeitet im Krankenhaus."},
	{"Вони не знайшли ключі.", "Sie haben die Schlüssel nicht gefunden."},
	{"Коли починається фільм?", "Wann beginnt der Film?"},
	{"Завтра буде дощ.", "Morgen wird es regnen."},
	{"Я не люблю холодну погоду.", "Ich mag kaltes Wetter nicht."},
	{"Де ви купили цей велосипед?", "Wo haben Sie dieses Fahrrad gekauft?"},
	{"Наш потяг відправляється о восьмій.", "Unser Zug fährt um acht Uhr ab."},
}

// Replies produces canned responses keyed by schema name.
type Replies struct {
	mu       sync.Mutex
	turn     int
	sentence int
}

// NewProvider returns a mock provider answered by a fresh Replies.
func NewProvider() *llm.MockProvider {
	p := llm.NewMockProvider()
	p.Fallback = (&Replies{}).Respond
	return p
}

// Respond answers req. The content always validates against req.Schema.
func (r *Replies) Respond(req llm.Request) (*llm.Response, error) {
	last := ""
	if n := len(req.Messages); n > 0 {
		last = req.Messages[n-1].Content
	}

	if req.Schema == nil {
		return &llm.Response{Content: json.RawMessage(tutorReply), Model: "offline", StopReason: "end"}, nil
	}

	var v any
	switch req.Schema.Name {
	case "ukrainian-sentence":
		v = map[string]any{"ukrainian_sentence": r.nextSentence(last).uk}
	case "translation-evaluation":
		v = evaluate(last)
	case "roleplay-situation":
		v = situation
	case "roleplay-scene":
		v = scene
	case "narrator-event":
		v = map[string]any{
			"event_description_de":  "Das Telefon klingelt im Hintergrund.",
			"event_description_uk":  "На фоні дзвонить телефон.",
			"updated_state":         scene,
			"event_context_for_npc": "Dein Telefon klingelt, du entschuldigst dich kurz.",
		}
	case "character-reply":
		v = r.characterReply()
	case "grammar-check":
		v = map[string]any{"has_errors": false, "brief_feedback": "", "corrected_text": ""}
	default:
		return nil, fmt.Errorf("offline: no canned reply for schema %q", req.Schema.Name)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if raw, err = llm.ValidateResponse(req.Schema, raw); err != nil {
		return nil, err
	}
	return &llm.Response{Content: raw, Model: "offline", StopReason: "end"}, nil
}

const tutorReply = "Це офлайн-режим, тому відповідь коротка: зверни увагу на порядок слів і час дієслова."

var characterLines = []string{
	"Natürlich, das kann ich für Sie machen. Was genau brauchen Sie?",
	"Verstehe. Haben Sie noch eine Frage?",
	"Gut, dann ist alles erledigt. Auf Wiedersehen!",
}

func (r *Replies) characterReply() map[string]any {
	r.mu.Lock()
	i := r.turn
	r.turn++
	r.mu.Unlock()

	line := characterLines[i%len(characterLines)]
	return map[string]any{
		"german_response":          line,
		"is_conversation_complete": i%len(characterLines) == len(characterLines)-1,
	}
}

// nextSentence walks the pool in order, skipping sentences the request
// lists as already shown.
func (r *Replies) nextSentence(msg string) sentence {
	r.mu.Lock()
	defer r.mu.Unlock()
	for range sentences {
		s := sentences[r.sentence%len(sentences)]
		r.sentence++
		if !strings.Contains(msg, s.uk) {
			return s
		}
	}
	return sentences[0]
}

func field(msg, key string) string {
	for _, line := range strings.Split(msg, "\n") {
		if v, ok := strings.CutPrefix(line, key+":"); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func normalize(s string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(s), ".?!"))
}

func evaluate(msg string) map[string]any {
	uk := field(msg, "Ukrainian sentence")
	answer := field(msg, "Learner's translation")

	ref := ""
	for _, s := range sentences {
		if s.uk == uk {
			ref = s.de
		}
	}
	if ref == "" {
		return map[string]any{"is_correct": true, "correct_translation": answer, "explanation": ""}
	}
	if normalize(answer) == normalize(ref) {
		return map[string]any{"is_correct": true, "correct_translation": ref, "explanation": ""}
	}
	return map[string]any{
		"is_correct":          false,
		"correct_translation": ref,
		"explanation":         "Порівняй свій варіант з правильним перекладом: зверни увагу на порядок слів і форму дієслова.",
	}
}

var situation = map[string]any{
	"name_uk":            "У пекарні",
	"name_de":            "In der Bäckerei",
	"character_role":     "Verkäuferin",
	"user_role_uk":       "Покупець",
	"user_role_de":       "Kunde",
	"scenario_prompt":    "Du arbeitest in einer kleinen Bäckerei in Berlin. Der Kunde möchte Brot und Kuchen kaufen.",
	"opening_message_de": "Guten Morgen! Was darf es heute sein?",
	"opening_message_uk": "Доброго ранку! Що бажаєте сьогодні?",
}

var scene = map[string]any{
	"location":           "Bäckerei in Berlin",
	"situation_summary":  "Der Kunde steht an der Theke.",
	"available_items":    []string{"Brot", "Brötchen", "Apfelkuchen"},
	"current_challenges": []string{"Die Brötchen sind fast ausverkauft"},
}
