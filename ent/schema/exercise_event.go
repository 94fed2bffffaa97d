package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
)

// ExerciseEvent records one evaluated translation.
type ExerciseEvent struct {
	ent.Schema
}

func (ExerciseEvent) Mixin() []ent.Mixin {
	return []ent.Mixin{EventMixin{}}
}

func (ExerciseEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("session_id").
			NotEmpty(),
		field.Int64("user_id").
			Comment("Telegram user ID"),
		field.String("level").
			NotEmpty().
			Comment("CEFR level: A1 to C2"),
		field.String("tense").
			NotEmpty(),
		field.String("sentence_type").
			NotEmpty(),
		field.Text("prompt").
			Comment("Ukrainian sentence shown"),
		field.Text("answer").
			Comment("What the learner wrote"),
		field.Bool("correct"),
	}
}
