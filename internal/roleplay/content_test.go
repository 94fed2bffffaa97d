package roleplay

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/deutschbot/deutschbot/internal/german"
	"github.com/deutschbot/deutschbot/internal/llm"
)

var bakery = Situation{
	NameUK:         "Покупка в пекарні",
	NameDE:         "Einkauf in der Bäckerei",
	CharacterRole:  "Verkäuferin",
	UserRoleUK:     "Ви покупець",
	UserRoleDE:     "Sie sind Kunde.",
	ScenarioPrompt: "Du bist eine freundliche Verkäuferin.",
	OpeningDE:      "Guten Tag! Was darf es sein?",
	OpeningUK:      "(Продавчиня вітається)",
}

func TestDirector_Start(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddJSON(bakery)
	mock.AddJSON(Scene{Location: "Bäckerei", Summary: "Morgens, viele Kunden.", Items: []string{"Brötchen"}})

	d := NewDirector(mock, NewCharacter(mock, DefaultConfig()), DefaultConfig())
	st, err := d.Start(context.Background(), german.A2, "Хочу купити хліб")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Situation.CharacterRole != "Verkäuferin" {
		t.Errorf("unexpected situation: %+v", st.Situation)
	}
	if st.Scene.Location != "Bäckerei" || len(st.Scene.Items) != 1 {
		t.Errorf("unexpected scene: %+v", st.Scene)
	}
	if !strings.Contains(st.Conversation.System(), "Guten Tag! Was darf es sein?") {
		t.Errorf("character prompt misses the opening line: %q", st.Conversation.System())
	}
	if st.Messages != 0 || st.LastNarrator != 0 {
		t.Errorf("expected fresh counters, got %d/%d", st.Messages, st.LastNarrator)
	}

	reqs := mock.Requests()
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(reqs))
	}
	if reqs[0].Schema != SituationSchema || reqs[1].Schema != SceneSchema {
		t.Errorf("unexpected schemas: %v, %v", reqs[0].Schema.Name, reqs[1].Schema.Name)
	}
	if !strings.Contains(reqs[0].Messages[0].Content, "Хочу купити хліб") {
		t.Errorf("description missing from request: %q", reqs[0].Messages[0].Content)
	}

	intro := IntroMessage(st)
	if !strings.HasPrefix(intro, "<b>Ситуація:</b> Покупка в пекарні\n") {
		t.Errorf("unexpected intro: %q", intro)
	}
}

// countingCharacter records the situations it was opened for.
type countingCharacter struct {
	Character
	opened []*Situation
}

func (c *countingCharacter) Open(level german.Level, s *Situation) llm.Conversation {
	c.opened = append(c.opened, s)
	return c.Character.Open(level, s)
}

func TestDirector_OpensCharacterOnce(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddJSON(bakery)
	mock.AddJSON(Scene{Location: "Bäckerei"})
	char := &countingCharacter{Character: NewCharacter(mock, DefaultConfig())}

	st, err := NewDirector(mock, char, DefaultConfig()).Start(context.Background(), german.A1, "пекарня")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(char.opened) != 1 {
		t.Fatalf("expected one Open, got %d", len(char.opened))
	}
	if char.opened[0] != st.Situation {
		t.Errorf("character opened for a different situation than the state holds")
	}
	if st.Conversation.System() == "" {
		t.Errorf("conversation not opened")
	}
}

func TestDirector_SituationWithoutCharacter(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddJSON(Situation{NameDE: "Leer"})

	d := NewDirector(mock, NewCharacter(mock, DefaultConfig()), DefaultConfig())
	_, err := d.Start(context.Background(), german.B1, "щось")
	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Step != "situation" {
		t.Fatalf("expected situation StepError, got %v", err)
	}
	if mock.CallCount() != 1 {
		t.Errorf("expected no scene request, got %d calls", mock.CallCount())
	}
}

func TestDirector_SceneFailure(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddJSON(bakery)
	mock.AddResponse(llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("down")}})

	d := NewDirector(mock, NewCharacter(mock, DefaultConfig()), DefaultConfig())
	_, err := d.Start(context.Background(), german.A2, "пекарня")
	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Step != "scene" {
		t.Fatalf("expected scene StepError, got %v", err)
	}
}

func TestCharacter_Reply(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddJSON(CharacterReply{German: "Ein Roggenbrot, gerne."})
	c := NewCharacter(mock, DefaultConfig())

	conv := c.Open(german.A2, &bakery)
	reply, next, err := c.Reply(context.Background(), conv, CharacterInput{
		Level:           german.A2,
		Scene:           Scene{Location: "Bäckerei"},
		NarratorContext: "Ein Kind weint.",
		Text:            "Ein Brot, bitte.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.German != "Ein Roggenbrot, gerne." || reply.Complete {
		t.Errorf("unexpected reply: %+v", reply)
	}
	if conv.Len() != 0 || next.Len() != 2 {
		t.Errorf("expected conversation 0 -> 2 messages, got %d -> %d", conv.Len(), next.Len())
	}

	req := mock.Requests()[0]
	if req.Schema != CharacterSchema {
		t.Errorf("expected character schema")
	}
	for _, want := range []string{"[SCENE STATE]\nLocation: Bäckerei", "Available: N/A", "[NARRATOR EVENT] Ein Kind weint.", "Der Benutzer (auf Niveau A2) sagt: Ein Brot, bitte."} {
		if !strings.Contains(req.Messages[0].Content, want) {
			t.Errorf("character message missing %q:\n%s", want, req.Messages[0].Content)
		}
	}
}

func TestCharacter_ReplyFailureKeepsConversation(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{"german_response":"  ","is_conversation_complete":false}`)})
	c := NewCharacter(mock, DefaultConfig())

	conv := c.Open(german.A2, &bakery)
	_, next, err := c.Reply(context.Background(), conv, CharacterInput{Text: "Hallo"})
	if err == nil {
		t.Fatal("expected error for an empty reply")
	}
	if next.Len() != conv.Len() {
		t.Errorf("failed reply must return the original conversation")
	}
}

func TestGrammarChecker_Check(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddJSON(GrammarResult{HasErrors: true, Feedback: "Дієслово на другому місці.", Corrected: "Heute gehe ich."})
	g := NewGrammarChecker(mock, DefaultConfig())

	res, err := g.Check(context.Background(), german.B1, "Heute ich gehe.", bakery.Context())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.HasErrors || res.Corrected != "Heute gehe ich." {
		t.Errorf("unexpected result: %+v", res)
	}

	req := mock.Requests()[0]
	if req.Temperature != 0.3 {
		t.Errorf("expected temperature 0.3, got %v", req.Temperature)
	}
	if !strings.Contains(req.Messages[0].Content, "Einkauf in der Bäckerei - Verkäuferin") {
		t.Errorf("situation context missing: %q", req.Messages[0].Content)
	}
}

func TestNarrator_Narrate(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddJSON(NarratorEvent{DescriptionDE: "Es klingelt.", Scene: Scene{Location: "Tür"}})
	n := NewNarrator(mock, DefaultConfig())

	ev, err := n.Narrate(context.Background(), NarrateInput{
		Level:     german.A2,
		Situation: &bakery,
		Dialogue:  []Line{{Speaker: "User", Text: "Hallo"}, {Speaker: "Verkäuferin", Text: "Moin"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Scene.Location != "Tür" {
		t.Errorf("unexpected event: %+v", ev)
	}
	if msg := mock.Requests()[0].Messages[0].Content; !strings.Contains(msg, "User: Hallo\nVerkäuferin: Moin") {
		t.Errorf("dialogue missing from narrator request:\n%s", msg)
	}
}

func TestState_CloneIsDeep(t *testing.T) {
	st := &State{Scene: Scene{Items: []string{"a"}}, Dialogue: []Line{{Speaker: "User", Text: "x"}}}
	c := st.Clone()
	c.Scene.Items[0] = "b"
	c.Dialogue[0].Text = "y"
	c.Messages = 7
	if st.Scene.Items[0] != "a" || st.Dialogue[0].Text != "x" || st.Messages != 0 {
		t.Fatalf("clone shares memory with the original: %+v", st)
	}
}
