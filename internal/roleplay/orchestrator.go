package roleplay

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/deutschbot/deutschbot/internal/chat"
	"github.com/deutschbot/deutschbot/internal/german"
	"github.com/deutschbot/deutschbot/internal/progress"
)

// TurnLabel is the progress status shown while a turn is processed.
const TurnLabel = "Обробляю відповідь"

// TurnOutcome is the result of a generated turn. Turn returns it together
// with an error when the turn was generated but a message could not be
// sent; State is valid either way.
type TurnOutcome struct {
	// State replaces the caller's state.
	State *State

	Narrated bool
	Feedback bool

	// Complete is set when the character ended the conversation. The
	// caller should drop the roleplay state.
	Complete bool
}

// Orchestrator runs roleplay turns.
type Orchestrator struct {
	narrator  Narrator
	character Character
	grammar   GrammarChecker
	cfg       Config
	progress  progress.Config
	logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator. A nil logger means
// slog.Default().
func NewOrchestrator(n Narrator, c Character, g GrammarChecker, cfg Config, pcfg progress.Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.NarratorThreshold <= 0 {
		cfg.NarratorThreshold = DefaultConfig().NarratorThreshold
	}
	if cfg.NarratorWindow <= 0 {
		cfg.NarratorWindow = DefaultConfig().NarratorWindow
	}
	pcfg.Logger = logger
	return &Orchestrator{narrator: n, character: c, grammar: g, cfg: cfg, progress: pcfg, logger: logger}
}

// NarratorDue reports whether a narrator event should precede the
// character's reply.
func (o *Orchestrator) NarratorDue(st *State) bool {
	return st.Messages-st.LastNarrator >= o.cfg.NarratorThreshold
}

type turnResult struct {
	event   *NarratorEvent
	reply   *CharacterReply
	grammar *GrammarResult
}

// Turn handles one player message.
//
// The grammar check runs concurrently with the narrator and character
// chain. Output is sent only after both finish, always as narrator event,
// then grammar feedback, then the character's reply. If the narrator or
// character fails, the grammar result is discarded, one failure notice is
// shown and st is left untouched. A failed grammar check alone only loses
// the feedback.
func (o *Orchestrator) Turn(ctx context.Context, sink chat.Sink, level german.Level, st *State, text string) (*TurnOutcome, error) {
	work := st.Clone()
	work.Dialogue = append(work.Dialogue, Line{Speaker: "User", Text: text})
	work.Messages++
	due := o.NarratorDue(work)

	res, err := progress.Do(ctx, o.progress, sink, TurnLabel, func(ctx context.Context) (*turnResult, error) {
		var res turnResult
		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			r, err := o.grammar.Check(gctx, level, text, work.Situation.Context())
			if err != nil {
				if gctx.Err() == nil {
					o.logger.Warn("grammar check failed", "error", err)
				}
				return nil
			}
			res.grammar = r
			return nil
		})

		g.Go(func() error {
			var narratorContext string
			if due {
				ev, err := o.narrator.Narrate(gctx, NarrateInput{
					Level:     level,
					Situation: work.Situation,
					Scene:     work.Scene,
					Dialogue:  lastLines(work.Dialogue, o.cfg.NarratorWindow),
				})
				if err != nil {
					return err
				}
				res.event = ev
				work.Scene = ev.Scene.clone()
				work.LastNarrator = work.Messages
				work.Dialogue = nil
				narratorContext = ev.CharacterContext
			}

			reply, conv, err := o.character.Reply(gctx, work.Conversation, CharacterInput{
				Level:           level,
				Scene:           work.Scene,
				NarratorContext: narratorContext,
				Text:            text,
			})
			if err != nil {
				return err
			}
			res.reply = reply
			work.Conversation = conv
			return nil
		})

		if err := g.Wait(); err != nil {
			return nil, err
		}
		return &res, nil
	})
	if err != nil {
		return nil, err
	}

	work.Dialogue = append(work.Dialogue, Line{Speaker: work.Situation.CharacterRole, Text: res.reply.German})
	out := &TurnOutcome{State: work, Complete: res.reply.Complete}

	// From here on the turn has happened. A failed send loses a message but
	// not the state.
	if res.event != nil {
		if msg := NarratorMessage(res.event); msg != "" {
			if _, err := sink.Send(ctx, msg); err != nil {
				return out, o.undelivered("narrator", err)
			}
			out.Narrated = true
		}
	}
	if msg := FeedbackMessage(res.grammar); msg != "" {
		if _, err := sink.Send(ctx, msg); err != nil {
			return out, o.undelivered("feedback", err)
		}
		out.Feedback = true
	}
	if _, err := sink.Send(ctx, CharacterMessage(work, res.reply)); err != nil {
		return out, o.undelivered("character", err)
	}
	return out, nil
}

func (o *Orchestrator) undelivered(part string, err error) error {
	o.logger.Warn("roleplay turn not fully delivered", "part", part, "error", err)
	return fmt.Errorf("send %s message: %w", part, err)
}

func lastLines(lines []Line, n int) []Line {
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return append([]Line(nil), lines...)
}
