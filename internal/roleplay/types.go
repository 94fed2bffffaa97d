// Package roleplay runs free-form conversations in German with an AI
// character. A narrator occasionally changes the scene and every player
// message is grammar-checked on the side.
package roleplay

import (
	"slices"

	"github.com/deutschbot/deutschbot/internal/llm"
)

// Situation describes a roleplay scenario generated from the learner's
// own description.
type Situation struct {
	NameUK         string `json:"name_uk"`
	NameDE         string `json:"name_de"`
	CharacterRole  string `json:"character_role"`
	UserRoleUK     string `json:"user_role_uk"`
	UserRoleDE     string `json:"user_role_de"`
	ScenarioPrompt string `json:"scenario_prompt"`
	OpeningDE      string `json:"opening_message_de"`
	OpeningUK      string `json:"opening_message_uk"`
}

// Context is the short label the grammar checker gets to understand what
// the learner is talking about.
func (s *Situation) Context() string {
	return s.NameDE + " - " + s.CharacterRole
}

// Scene is the current world state the character reacts to.
type Scene struct {
	Location   string   `json:"location"`
	Summary    string   `json:"situation_summary"`
	Items      []string `json:"available_items"`
	Challenges []string `json:"current_challenges"`
}

func (s Scene) clone() Scene {
	s.Items = slices.Clone(s.Items)
	s.Challenges = slices.Clone(s.Challenges)
	return s
}

// NarratorEvent is a scene change the narrator interjects.
type NarratorEvent struct {
	DescriptionDE string `json:"event_description_de"`
	DescriptionUK string `json:"event_description_uk"`
	Scene         Scene  `json:"updated_state"`

	// CharacterContext tells the character what just happened.
	CharacterContext string `json:"event_context_for_npc"`
}

// CharacterReply is the character's answer to one player message.
type CharacterReply struct {
	German   string `json:"german_response"`
	Complete bool   `json:"is_conversation_complete"`
}

// GrammarResult is the verdict on one player message.
type GrammarResult struct {
	HasErrors bool   `json:"has_errors"`
	Feedback  string `json:"brief_feedback"`
	Corrected string `json:"corrected_text"`
}

// Line is one utterance in the dialogue window.
type Line struct {
	Speaker string
	Text    string
}

// State is the roleplay part of a session. The orchestrator never mutates
// a State in place: a turn works on a Clone and returns it on success.
type State struct {
	Situation *Situation
	Scene     Scene

	// Conversation is the character's chat handle. It is passed back to
	// the character on every turn and never inspected.
	Conversation llm.Conversation

	// Dialogue holds the lines since the last narrator event.
	Dialogue []Line

	// Messages counts player messages in this situation.
	Messages int

	// LastNarrator is the value of Messages when the narrator last spoke.
	LastNarrator int
}

// Clone returns a deep copy of s. The situation is shared; it is never
// modified after creation.
func (s *State) Clone() *State {
	c := *s
	c.Scene = s.Scene.clone()
	c.Dialogue = slices.Clone(s.Dialogue)
	return &c
}
