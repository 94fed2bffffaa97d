package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/deutschbot/deutschbot/internal/chat"
	"github.com/deutschbot/deutschbot/internal/exercise"
	"github.com/deutschbot/deutschbot/internal/german"
	"github.com/deutschbot/deutschbot/internal/llm"
	"github.com/deutschbot/deutschbot/internal/pipeline"
	"github.com/deutschbot/deutschbot/internal/progress"
	"github.com/deutschbot/deutschbot/internal/roleplay"
	"github.com/deutschbot/deutschbot/internal/selector"
	"github.com/deutschbot/deutschbot/internal/store"
)

// Tutor answers follow-up questions about an evaluated exercise.
type Tutor interface {
	Open(ex *exercise.Exercise, eval *exercise.Evaluation) llm.Conversation
	Respond(ctx context.Context, conv llm.Conversation, question string) (*llm.Reply, error)
}

// Director sets up roleplay situations.
type Director interface {
	Start(ctx context.Context, level german.Level, description string) (*roleplay.State, error)
}

// Roleplayer runs one roleplay turn.
type Roleplayer interface {
	Turn(ctx context.Context, sink chat.Sink, level german.Level, st *roleplay.State, text string) (*roleplay.TurnOutcome, error)
}

// Config wires the Machine to its collaborators.
type Config struct {
	Generator exercise.Generator
	Evaluator exercise.Evaluator
	Tutor     Tutor
	Director  Director
	Roleplay  Roleplayer

	// Events records evaluated exercises. Nil disables recording.
	Events store.EventRepo

	Progress progress.Config
	Logger   *slog.Logger

	// Decay is the selectors' decay factor. Zero means
	// selector.DefaultDecay.
	Decay float64

	// NewSource, when set, supplies the random source of every selector
	// the Machine builds.
	NewSource func() selector.Source
}

// Machine drives sessions through the conversation flow. Updates for one
// user must not be handled concurrently; different users may be.
type Machine struct {
	store  *Store
	cfg    Config
	logger *slog.Logger
}

// NewMachine creates a Machine over store.
func NewMachine(store *Store, cfg Config) *Machine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Decay == 0 {
		cfg.Decay = selector.DefaultDecay
	}
	if cfg.Progress.FailureText == "" {
		cfg.Progress.FailureText = progress.DefaultFailureText
	}
	cfg.Progress.Logger = cfg.Logger
	return &Machine{store: store, cfg: cfg, logger: cfg.Logger}
}

// Store returns the session store.
func (m *Machine) Store() *Store { return m.store }

// Handle processes one inbound message from userID, replying through sink.
//
// Collaborator failures are reported to the user by the progress indicator
// and returned; the session stays as it was, so the user can retry. A
// *PreconditionError drops the session after telling the user.
func (m *Machine) Handle(ctx context.Context, userID int64, sink chat.Sink, text string) error {
	text = strings.TrimSpace(text)
	cmd := command(text)

	switch cmd {
	case "/start":
		s := m.store.Start(userID)
		m.logger.Info("session started", "session", s.ID, "user", userID)
		return send(ctx, sink, welcomeMessage())
	case "/stop":
		if s := m.store.Get(userID); s != nil {
			s.State = StateTerminated
			m.logger.Info("session stopped", "session", s.ID, "user", userID, "exercises", len(s.History))
		}
		m.store.Stop(userID)
		return send(ctx, sink, msgStopped)
	}

	s := m.store.Get(userID)
	if s == nil {
		return send(ctx, sink, msgNoSession)
	}
	m.store.Touch(userID)

	from := s.State
	err := m.dispatch(ctx, s, sink, cmd, text)

	var pe *PreconditionError
	switch {
	case errors.As(err, &pe):
		m.logger.Error("session precondition violated",
			"session", s.ID, "user", userID, "state", pe.State.String(), "missing", pe.Missing)
		s.State = StateTerminated
		m.store.Stop(userID)
		if serr := send(context.WithoutCancel(ctx), sink, MsgInternalError); serr != nil {
			m.logger.Warn("internal error notice not sent", "session", s.ID, "error", serr)
		}
		return err
	case err != nil:
		m.logger.Warn("update failed", "session", s.ID, "state", s.State.String(), "error", err)
		return err
	}

	if s.State != from {
		m.logger.Debug("session transition", "session", s.ID, "from", from.String(), "to", s.State.String())
	}
	return nil
}

func (m *Machine) dispatch(ctx context.Context, s *Session, sink chat.Sink, cmd, text string) error {
	switch cmd {
	case "":
	case "/next":
		return m.next(ctx, s, sink)
	case "/situation":
		return m.situation(ctx, s, sink)
	case "/end":
		return m.endSituation(ctx, s, sink)
	case "/skip":
		if s.State == StateStoreConstraint {
			return m.storeConstraint(ctx, s, sink, "")
		}
		return send(ctx, sink, msgNotNow)
	default:
		return send(ctx, sink, msgNotNow)
	}

	switch s.State {
	case StateSelectLevel:
		return m.selectLevel(ctx, s, sink, text)
	case StateSelectTrainingType:
		return m.selectTrainingType(ctx, s, sink, text)
	case StateStoreConstraint:
		return m.storeConstraint(ctx, s, sink, text)
	case StateAwaitTranslation:
		return m.evaluate(ctx, s, sink, text)
	case StateAwaitFollowup:
		return m.followup(ctx, s, sink, text)
	case StateDescribeSituation:
		return m.describeSituation(ctx, s, sink, text)
	case StateRoleplay:
		return m.roleplayTurn(ctx, s, sink, text)
	default:
		return &PreconditionError{State: s.State, Missing: "a live state"}
	}
}

func (m *Machine) selectLevel(ctx context.Context, s *Session, sink chat.Sink, text string) error {
	l, err := german.ParseLevel(text)
	if err != nil {
		return send(ctx, sink, invalidLevelMessage())
	}
	s.Level = l
	s.State = StateSelectTrainingType
	return send(ctx, sink, levelChosenMessage(l))
}

func (m *Machine) selectTrainingType(ctx context.Context, s *Session, sink chat.Sink, text string) error {
	switch strings.ToLower(text) {
	case "1", strings.ToLower(labelTranslation):
		if err := m.buildSelectors(s); err != nil {
			return err
		}
		s.State = StateStoreConstraint
		return send(ctx, sink, msgConstraintPrompt)
	case "2", strings.ToLower(labelRoleplay):
		return m.situation(ctx, s, sink)
	default:
		return send(ctx, sink, invalidTypeMessage())
	}
}

func (m *Machine) storeConstraint(ctx context.Context, s *Session, sink chat.Sink, text string) error {
	s.Constraint = text
	if text != "" {
		if err := send(ctx, sink, constraintSavedMessage(text)); err != nil {
			return err
		}
	}
	return m.showNext(ctx, s, sink)
}

// buildSelectors creates the session's selector pair on the first entry
// to translation mode. Later entries keep the existing pair.
func (m *Machine) buildSelectors(s *Session) error {
	if s.Tenses != nil && s.Types != nil {
		return nil
	}
	if s.Level == "" {
		return &PreconditionError{State: s.State, Missing: "level"}
	}
	tenses, err := selector.New(german.TensesFor(s.Level), nil, m.cfg.Decay, m.selectorOpts()...)
	if err != nil {
		return &PreconditionError{State: s.State, Missing: fmt.Sprintf("tense pool for level %s", s.Level)}
	}
	types, err := selector.New(german.SentenceTypes, german.SentenceTypeWeights, m.cfg.Decay, m.selectorOpts()...)
	if err != nil {
		return fmt.Errorf("sentence type selector: %w", err)
	}
	s.Tenses, s.Types = tenses, types
	return nil
}

func (m *Machine) selectorOpts() []selector.Option {
	if m.cfg.NewSource == nil {
		return nil
	}
	return []selector.Option{selector.WithSource(m.cfg.NewSource())}
}

// arm starts generating the next exercise unless one is already pending.
// Categories are drawn here, on the handler's goroutine, so the selectors
// are never touched by background work.
func (m *Machine) arm(s *Session) {
	if s.Next.Pending() {
		return
	}
	in := exercise.GenerateInput{
		Level:        s.Level,
		Tense:        s.Tenses.Select(),
		SentenceType: s.Types.Select(),
		PriorPrompts: s.PriorPrompts(),
		Constraint:   s.Constraint,
	}
	id := s.ID
	s.Next.EnsureInFlight(func(ctx context.Context) (*exercise.Exercise, error) {
		return m.cfg.Generator.Generate(llm.WithSessionID(ctx, id), in)
	})
}

func (m *Machine) next(ctx context.Context, s *Session, sink chat.Sink) error {
	switch s.State {
	case StateAwaitTranslation, StateAwaitFollowup:
	case StateSelectTrainingType:
		if err := m.buildSelectors(s); err != nil {
			return err
		}
	default:
		return send(ctx, sink, msgNotNow)
	}
	return m.showNext(ctx, s, sink)
}

// showNext enters AwaitTranslation: it takes the exercise generated ahead
// of time, waiting under a progress indicator if needed, shows it and
// immediately starts generating the one after.
func (m *Machine) showNext(ctx context.Context, s *Session, sink chat.Sink) error {
	if s.Tenses == nil || s.Types == nil {
		return &PreconditionError{State: s.State, Missing: "selectors"}
	}
	if s.Level == "" {
		return &PreconditionError{State: s.State, Missing: "level"}
	}

	m.arm(s)
	waited := false
	ex, err := s.Next.TakeOrWait(ctx, func(ctx context.Context, await func(context.Context) error) error {
		waited = true
		return progress.Run(ctx, m.cfg.Progress, sink, progressGenerate, await)
	})
	if errors.Is(err, pipeline.ErrNoTask) {
		return &PreconditionError{State: s.State, Missing: "pending exercise"}
	}
	if err != nil {
		// A generation that failed before anyone waited has not been
		// reported yet.
		if !waited && !llm.IsCancellation(err) {
			m.notifyFailure(ctx, sink)
		}
		return err
	}

	s.History = append(s.History, ex)
	s.Correct, s.Total = exercise.Score(s.History)
	s.Evaluation = nil
	s.Tutor = nil
	s.State = StateAwaitTranslation

	sendErr := send(ctx, sink, exerciseMessage(len(s.History), ex))
	m.arm(s)
	return sendErr
}

func (m *Machine) evaluate(ctx context.Context, s *Session, sink chat.Sink, answer string) error {
	ex := s.Current()
	if ex == nil {
		return &PreconditionError{State: s.State, Missing: "current exercise"}
	}
	if answer == "" {
		return send(ctx, sink, msgAnswerFirst)
	}

	eval, err := progress.Do(ctx, m.cfg.Progress, sink, progressEvaluate, func(ctx context.Context) (*exercise.Evaluation, error) {
		return m.cfg.Evaluator.Evaluate(llm.WithSessionID(ctx, s.ID), ex, answer)
	})
	if err != nil {
		return err
	}

	ex.Grade(answer, eval)
	s.Evaluation = eval
	s.Tutor = nil
	s.Correct, s.Total = exercise.Score(s.History)
	s.State = StateAwaitFollowup
	m.recordExercise(ctx, s, ex)

	return send(ctx, sink, evaluationMessage(eval, s.Correct, s.Total))
}

func (m *Machine) recordExercise(ctx context.Context, s *Session, ex *exercise.Exercise) {
	if m.cfg.Events == nil {
		return
	}
	err := m.cfg.Events.AppendExercise(context.WithoutCancel(ctx), store.ExerciseEventData{
		SessionID:    s.ID,
		UserID:       s.UserID,
		Level:        string(ex.Level),
		Tense:        string(ex.Tense),
		SentenceType: string(ex.SentenceType),
		Prompt:       ex.Prompt,
		Answer:       ex.Answer,
		Correct:      ex.Correctness == exercise.Correct,
	})
	if err != nil {
		m.logger.Warn("exercise event not saved", "session", s.ID, "error", err)
	}
}

func (m *Machine) followup(ctx context.Context, s *Session, sink chat.Sink, question string) error {
	ex := s.Current()
	if ex == nil || s.Evaluation == nil {
		return &PreconditionError{State: s.State, Missing: "evaluated exercise"}
	}

	var conv llm.Conversation
	if s.Tutor != nil {
		conv = *s.Tutor
	} else {
		conv = m.cfg.Tutor.Open(ex, s.Evaluation)
	}

	reply, err := progress.Do(ctx, m.cfg.Progress, sink, progressFollowup, func(ctx context.Context) (*llm.Reply, error) {
		return m.cfg.Tutor.Respond(llm.WithSessionID(ctx, s.ID), conv, question)
	})
	if err != nil {
		return err
	}

	s.Tutor = &reply.Conversation
	return send(ctx, sink, tutorMessage(reply.Text()))
}

func (m *Machine) situation(ctx context.Context, s *Session, sink chat.Sink) error {
	if s.State == StateSelectLevel {
		return send(ctx, sink, msgNotNow)
	}
	if s.Level == "" {
		return &PreconditionError{State: s.State, Missing: "level"}
	}
	s.Roleplay = nil
	s.State = StateDescribeSituation
	return send(ctx, sink, situationPromptMessage(s.Level))
}

func (m *Machine) endSituation(ctx context.Context, s *Session, sink chat.Sink) error {
	if s.State != StateRoleplay && s.State != StateDescribeSituation {
		return send(ctx, sink, msgNotNow)
	}
	s.Roleplay = nil
	s.State = StateSelectTrainingType
	return send(ctx, sink, msgEndSituation)
}

func (m *Machine) describeSituation(ctx context.Context, s *Session, sink chat.Sink, description string) error {
	if s.Level == "" {
		return &PreconditionError{State: s.State, Missing: "level"}
	}

	st, err := progress.Do(ctx, m.cfg.Progress, sink, progressSituation, func(ctx context.Context) (*roleplay.State, error) {
		return m.cfg.Director.Start(llm.WithSessionID(ctx, s.ID), s.Level, description)
	})
	if err != nil {
		return err
	}

	s.Roleplay = st
	s.State = StateRoleplay
	return send(ctx, sink, roleplay.IntroMessage(st))
}

func (m *Machine) roleplayTurn(ctx context.Context, s *Session, sink chat.Sink, text string) error {
	if s.Roleplay == nil {
		return &PreconditionError{State: s.State, Missing: "roleplay state"}
	}

	out, err := m.cfg.Roleplay.Turn(llm.WithSessionID(ctx, s.ID), sink, s.Level, s.Roleplay, text)
	if out == nil {
		return err
	}

	// A turn whose messages were only partly delivered still moved the
	// scene and the narrator counter on.
	if out.Complete {
		m.logger.Info("situation complete", "session", s.ID, "messages", out.State.Messages)
		s.Roleplay = nil
		s.State = StateSelectTrainingType
		return err
	}
	s.Roleplay = out.State
	return err
}

func (m *Machine) notifyFailure(ctx context.Context, sink chat.Sink) {
	if _, err := sink.Send(context.WithoutCancel(ctx), m.cfg.Progress.FailureText); err != nil {
		m.logger.Warn("failure notice not sent", "error", err)
	}
}

func send(ctx context.Context, sink chat.Sink, text string) error {
	_, err := sink.Send(ctx, text)
	return err
}

// command returns the lower-cased command of a message such as "/next" or
// "/start@deutschbot", or "" for plain text.
func command(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := strings.Fields(text)[0]
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd)
}
