package roleplay

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deutschbot/deutschbot/internal/chat"
	"github.com/deutschbot/deutschbot/internal/german"
	"github.com/deutschbot/deutschbot/internal/llm"
	"github.com/deutschbot/deutschbot/internal/progress"
)

type fakeNarrator struct {
	event *NarratorEvent
	err   error
	got   []NarrateInput
}

func (f *fakeNarrator) Narrate(_ context.Context, in NarrateInput) (*NarratorEvent, error) {
	f.got = append(f.got, in)
	return f.event, f.err
}

type fakeCharacter struct {
	reply *CharacterReply
	err   error
	got   []CharacterInput
	// done is closed once Reply has returned a reply.
	done chan struct{}
}

func (f *fakeCharacter) Open(german.Level, *Situation) llm.Conversation {
	return llm.NewConversation("character", nil)
}

func (f *fakeCharacter) Reply(_ context.Context, conv llm.Conversation, in CharacterInput) (*CharacterReply, llm.Conversation, error) {
	f.got = append(f.got, in)
	if f.err != nil {
		return nil, conv, f.err
	}
	if f.done != nil {
		defer close(f.done)
	}
	return f.reply, conv.With(
		llm.Message{Role: llm.RoleUser, Content: in.Text},
		llm.Message{Role: llm.RoleAssistant, Content: f.reply.German},
	), nil
}

type fakeGrammar struct {
	result *GrammarResult
	err    error
	// wait, when set, delays the verdict until it is closed.
	wait chan struct{}
}

func (f *fakeGrammar) Check(ctx context.Context, _ german.Level, _, _ string) (*GrammarResult, error) {
	if f.wait != nil {
		select {
		case <-f.wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.result, f.err
}

func testState() *State {
	return &State{
		Situation: &Situation{
			NameDE:        "Beim Bäcker",
			CharacterRole: "Verkäuferin",
			OpeningDE:     "Guten Tag!",
		},
		Scene:        Scene{Location: "Bäckerei", Items: []string{"Brot"}},
		Conversation: llm.NewConversation("character", nil),
	}
}

func newTestOrchestrator(n Narrator, c Character, g GrammarChecker) *Orchestrator {
	pcfg := progress.DefaultConfig()
	pcfg.Interval = time.Millisecond
	return NewOrchestrator(n, c, g, DefaultConfig(), pcfg, slog.New(slog.DiscardHandler))
}

// emitted returns the sent texts other than the progress status.
func emitted(rec *chat.Recorder) []string {
	var out []string
	for _, op := range rec.Ops() {
		if op.Kind == chat.OpSend && op.Text != TurnLabel {
			out = append(out, op.Text)
		}
	}
	return out
}

func TestTurn_OrderWithoutNarrator(t *testing.T) {
	char := &fakeCharacter{reply: &CharacterReply{German: "Was darf es sein?"}, done: make(chan struct{})}
	// The grammar verdict arrives only after the character has answered.
	gram := &fakeGrammar{
		result: &GrammarResult{HasErrors: true, Feedback: "Артикль", Corrected: "Ich möchte ein Brot."},
		wait:   char.done,
	}
	narr := &fakeNarrator{}
	o := newTestOrchestrator(narr, char, gram)
	rec := chat.NewRecorder()

	st := testState()
	out, err := o.Turn(t.Context(), rec, german.A2, st, "Ich möchte einen Brot.")
	require.NoError(t, err)

	assert.Empty(t, narr.got)
	assert.False(t, out.Narrated)
	assert.True(t, out.Feedback)

	msgs := emitted(rec)
	require.Len(t, msgs, 2)
	assert.True(t, strings.HasPrefix(msgs[0], "💡 Артикль"), msgs[0])
	assert.Contains(t, msgs[0], "✓ <i>Ich möchte ein Brot.</i>")
	assert.Equal(t, "<b>Verkäuferin:</b>\nWas darf es sein?", msgs[1])

	assert.Equal(t, 1, out.State.Messages)
	assert.Equal(t, 2, out.State.Conversation.Len())
	require.Len(t, out.State.Dialogue, 2)
	assert.Equal(t, "Verkäuferin", out.State.Dialogue[1].Speaker)

	// The caller's state is untouched.
	assert.Equal(t, 0, st.Messages)
	assert.Empty(t, st.Dialogue)
	assert.Equal(t, 0, st.Conversation.Len())
}

func TestTurn_OrderWithNarrator(t *testing.T) {
	char := &fakeCharacter{reply: &CharacterReply{German: "Oh, der Strom ist weg!"}, done: make(chan struct{})}
	gram := &fakeGrammar{
		result: &GrammarResult{HasErrors: true, Feedback: "Порядок слів"},
		wait:   char.done,
	}
	narr := &fakeNarrator{event: &NarratorEvent{
		DescriptionDE:    "Plötzlich geht das Licht aus.",
		DescriptionUK:    "Раптом гасне світло.",
		Scene:            Scene{Location: "Dunkle Bäckerei", Challenges: []string{"kein Licht"}},
		CharacterContext: "Stromausfall",
	}}
	o := newTestOrchestrator(narr, char, gram)
	rec := chat.NewRecorder()

	st := testState()
	st.Messages = 2
	for i := 0; i < 8; i++ {
		st.Dialogue = append(st.Dialogue, Line{Speaker: "User", Text: "alt"})
	}

	out, err := o.Turn(t.Context(), rec, german.B1, st, "Wie viel kostet das?")
	require.NoError(t, err)

	msgs := emitted(rec)
	require.Len(t, msgs, 3)
	assert.Equal(t, "📖 <i>Plötzlich geht das Licht aus.</i>\n<code>(Раптом гасне світло.)</code>", msgs[0])
	assert.True(t, strings.HasPrefix(msgs[1], "💡 "))
	assert.True(t, strings.HasPrefix(msgs[2], "<b>Verkäuferin:</b>"))

	require.Len(t, narr.got, 1)
	require.Len(t, narr.got[0].Dialogue, 6)
	assert.Equal(t, "Wie viel kostet das?", narr.got[0].Dialogue[5].Text)

	require.Len(t, char.got, 1)
	assert.Equal(t, "Stromausfall", char.got[0].NarratorContext)
	assert.Equal(t, "Dunkle Bäckerei", char.got[0].Scene.Location)

	assert.Equal(t, 3, out.State.LastNarrator)
	assert.Equal(t, "Dunkle Bäckerei", out.State.Scene.Location)
	// The window restarts after the event with only the character's line.
	require.Len(t, out.State.Dialogue, 1)
	assert.Equal(t, "Verkäuferin", out.State.Dialogue[0].Speaker)
	assert.False(t, o.NarratorDue(out.State))
}

// refusingSink records everything but fails to send texts with prefix.
type refusingSink struct {
	*chat.Recorder
	prefix string
}

func (r refusingSink) Send(ctx context.Context, text string) (chat.MessageRef, error) {
	if strings.HasPrefix(text, r.prefix) {
		return 0, errors.New("telegram: too many requests")
	}
	return r.Recorder.Send(ctx, text)
}

func TestTurn_SendFailureAfterNarratorKeepsState(t *testing.T) {
	char := &fakeCharacter{reply: &CharacterReply{German: "Oh, der Strom ist weg!"}}
	narr := &fakeNarrator{event: &NarratorEvent{
		DescriptionDE: "Plötzlich geht das Licht aus.",
		DescriptionUK: "Раптом гасне світло.",
		Scene:         Scene{Location: "Dunkle Bäckerei"},
	}}
	o := newTestOrchestrator(narr, char, &fakeGrammar{result: &GrammarResult{}})
	rec := chat.NewRecorder()
	sink := refusingSink{Recorder: rec, prefix: "<b>Verkäuferin:</b>"}

	st := testState()
	st.Messages = 2
	out, err := o.Turn(t.Context(), sink, german.B1, st, "Hallo?")
	require.Error(t, err)
	require.NotNil(t, out, "the generated turn must be returned")
	assert.True(t, out.Narrated)
	assert.Equal(t, 3, out.State.LastNarrator)
	assert.Equal(t, "Dunkle Bäckerei", out.State.Scene.Location)
	assert.Equal(t, []string{"📖 <i>Plötzlich geht das Licht aus.</i>\n<code>(Раптом гасне світло.)</code>"}, emitted(rec))

	assert.Equal(t, 2, st.Messages, "the caller's state is only replaced through the outcome")
	assert.Equal(t, "Bäckerei", st.Scene.Location)
}

func TestTurn_NoFeedbackWithoutErrors(t *testing.T) {
	char := &fakeCharacter{reply: &CharacterReply{German: "Gerne."}}
	gram := &fakeGrammar{result: &GrammarResult{HasErrors: false}}
	o := newTestOrchestrator(&fakeNarrator{}, char, gram)
	rec := chat.NewRecorder()

	out, err := o.Turn(t.Context(), rec, german.A1, testState(), "Danke.")
	require.NoError(t, err)
	assert.False(t, out.Feedback)
	assert.Equal(t, []string{"<b>Verkäuferin:</b>\nGerne."}, emitted(rec))
}

func TestTurn_CharacterFailureDiscardsGrammar(t *testing.T) {
	char := &fakeCharacter{err: &StepError{Step: "character", Err: errors.New("quota")}}
	gram := &fakeGrammar{result: &GrammarResult{HasErrors: true, Feedback: "Помилка"}}
	o := newTestOrchestrator(&fakeNarrator{}, char, gram)
	rec := chat.NewRecorder()

	st := testState()
	out, err := o.Turn(t.Context(), rec, german.A2, st, "Hallo")
	require.Error(t, err)
	assert.Nil(t, out)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "character", stepErr.Step)

	assert.Equal(t, []string{progress.DefaultFailureText}, emitted(rec))
	assert.Equal(t, []string{progress.DefaultFailureText}, rec.Visible())
	assert.Equal(t, 0, st.Messages)
	assert.Empty(t, st.Dialogue)
}

func TestTurn_NarratorFailureSkipsCharacter(t *testing.T) {
	narr := &fakeNarrator{err: &StepError{Step: "narrator", Err: errors.New("bad json")}}
	char := &fakeCharacter{reply: &CharacterReply{German: "nie"}}
	o := newTestOrchestrator(narr, char, &fakeGrammar{result: &GrammarResult{}})
	rec := chat.NewRecorder()

	st := testState()
	st.Messages = 5
	st.LastNarrator = 2
	_, err := o.Turn(t.Context(), rec, german.B2, st, "Und jetzt?")
	require.Error(t, err)
	assert.Empty(t, char.got)
	assert.Equal(t, 5, st.Messages)
	assert.Equal(t, 2, st.LastNarrator)
}

func TestTurn_GrammarFailureStillAnswers(t *testing.T) {
	char := &fakeCharacter{reply: &CharacterReply{German: "Bitte schön."}}
	gram := &fakeGrammar{err: errors.New("grammar down")}
	o := newTestOrchestrator(&fakeNarrator{}, char, gram)
	rec := chat.NewRecorder()

	out, err := o.Turn(t.Context(), rec, german.A2, testState(), "Ein Brot, bitte.")
	require.NoError(t, err)
	assert.False(t, out.Feedback)
	assert.Equal(t, []string{"<b>Verkäuferin:</b>\nBitte schön."}, emitted(rec))
}

func TestTurn_Completion(t *testing.T) {
	char := &fakeCharacter{reply: &CharacterReply{German: "Tschüss!", Complete: true}}
	o := newTestOrchestrator(&fakeNarrator{}, char, &fakeGrammar{result: &GrammarResult{}})
	rec := chat.NewRecorder()

	out, err := o.Turn(t.Context(), rec, german.A2, testState(), "Auf Wiedersehen!")
	require.NoError(t, err)
	assert.True(t, out.Complete)
	assert.Contains(t, rec.Last(), "--- Розмова завершена ---")
	assert.Contains(t, rec.Last(), "Ви обмінялися <b>1</b> повідомленнями.")
}

func TestRender_EscapesModelOutput(t *testing.T) {
	msg := FeedbackMessage(&GrammarResult{HasErrors: true, Feedback: "a <b> & c", Corrected: "x<y"})
	assert.Equal(t, "💡 a &lt;b&gt; &amp; c\n✓ <i>x&lt;y</i>", msg)
	assert.Empty(t, NarratorMessage(&NarratorEvent{DescriptionDE: "  "}))
	assert.Empty(t, FeedbackMessage(&GrammarResult{HasErrors: true}))
}
