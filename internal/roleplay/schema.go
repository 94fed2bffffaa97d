package roleplay

import "github.com/deutschbot/deutschbot/internal/llm"

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func strList(desc string) map[string]any {
	return map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string"},
		"description": desc,
	}
}

var sceneDefinition = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"location":           str("Where the scene takes place, in German"),
		"situation_summary":  str("One or two German sentences on what is going on right now"),
		"available_items":    strList("Objects, products or services present in the scene, in German"),
		"current_challenges": strList("Problems or open questions the player has to deal with, in German"),
	},
	"required":             []any{"location", "situation_summary", "available_items", "current_challenges"},
	"additionalProperties": false,
}

// SituationSchema is the structured output of situation generation.
var SituationSchema = &llm.Schema{
	Name:        "roleplay-situation",
	Description: "A roleplay situation built from the learner's description",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name_uk":            str("Short Ukrainian name for the situation, 2-4 words"),
			"name_de":            str("German name for the situation"),
			"character_role":     str("The character's role in German, e.g. Verkäufer, Ärztin"),
			"user_role_uk":       str("The learner's role in Ukrainian, one sentence"),
			"user_role_de":       str("The learner's role in German, one sentence"),
			"scenario_prompt":    str("Detailed German instructions for the character, 5-10 sentences"),
			"opening_message_de": str("The character's opening line in German, 1-2 sentences"),
			"opening_message_uk": str("Ukrainian explanation of the opening line"),
		},
		"required": []any{
			"name_uk", "name_de", "character_role", "user_role_uk", "user_role_de",
			"scenario_prompt", "opening_message_de", "opening_message_uk",
		},
		"additionalProperties": false,
	},
}

// SceneSchema is the structured output of initial scene generation.
var SceneSchema = &llm.Schema{
	Name:        "roleplay-scene",
	Description: "The world state of a roleplay scene",
	Definition:  sceneDefinition,
}

// NarratorSchema is the structured output of a narrator event.
var NarratorSchema = &llm.Schema{
	Name:        "narrator-event",
	Description: "An event that moves the roleplay scene forward",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"event_description_de":  str("Short description of the event in German, at the learner's level"),
			"event_description_uk":  str("Ukrainian translation of the description"),
			"updated_state":         sceneDefinition,
			"event_context_for_npc": str("What the character needs to know about the event, in German"),
		},
		"required":             []any{"event_description_de", "event_description_uk", "updated_state", "event_context_for_npc"},
		"additionalProperties": false,
	},
}

// CharacterSchema is the structured output of every character turn.
var CharacterSchema = &llm.Schema{
	Name:        "character-reply",
	Description: "The character's reply in the roleplay",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"german_response": str("The character's reply in German, suited to the situation and the learner's level"),
			"is_conversation_complete": map[string]any{
				"type":        "boolean",
				"description": "True once the conversation has ended naturally, e.g. goodbye said or deal done",
			},
		},
		"required":             []any{"german_response", "is_conversation_complete"},
		"additionalProperties": false,
	},
}

// GrammarSchema is the structured output of the grammar check.
var GrammarSchema = &llm.Schema{
	Name:        "grammar-check",
	Description: "Grammar verdict on one learner message",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"has_errors": map[string]any{
				"type":        "boolean",
				"description": "True if the message contains grammar or vocabulary errors",
			},
			"brief_feedback": str("Brief, friendly feedback in Ukrainian. Empty if there are no errors."),
			"corrected_text": str("The corrected message. Empty if there are no errors."),
		},
		"required":             []any{"has_errors", "brief_feedback", "corrected_text"},
		"additionalProperties": false,
	},
}
