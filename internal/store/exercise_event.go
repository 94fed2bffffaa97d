package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

func (r *eventRepo) AppendExercise(ctx context.Context, data ExerciseEventData) error {
	err := r.insert(ctx, exerciseEventsTable,
		[]string{"session_id", "user_id", "level", "tense", "sentence_type", "prompt", "answer", "correct"},
		[]any{data.SessionID, data.UserID, data.Level, data.Tense, data.SentenceType, data.Prompt, data.Answer, data.Correct},
	)
	if err != nil {
		return fmt.Errorf("save exercise event: %w", err)
	}
	return nil
}

func (r *eventRepo) ExerciseStats(ctx context.Context, opts QueryOpts) ([]TenseStats, error) {
	sel := builder().Select(
		"level",
		"tense",
		entsql.As(entsql.Count("*"), "total"),
		entsql.As(entsql.Sum("correct"), "correct"),
	).
		From(entsql.Table(exerciseEventsTable)).
		GroupBy("level", "tense").
		OrderBy("level", "tense")

	if preds := commonPreds(opts); len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}

	var out []TenseStats
	err := r.query(ctx, sel, func(rows *entsql.Rows) error {
		var s TenseStats
		if err := rows.Scan(&s.Level, &s.Tense, &s.Total, &s.Correct); err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate exercise stats: %w", err)
	}
	return out, nil
}
