package roleplay

import (
	"fmt"
	"strings"

	"github.com/deutschbot/deutschbot/internal/german"
)

const situationSystemPrompt = `Du erstellst Rollenspiel-Situationen für ukrainische Deutschlernende.
Der Benutzer beschreibt auf Ukrainisch eine Alltagssituation, die er üben möchte.
Erzeuge daraus eine Situation mit genau einer Figur, mit der der Benutzer auf Deutsch spricht.

Regeln:
- Passe Wortschatz und Satzbau der Figur an das Sprachniveau an.
- Der scenario_prompt spricht die Figur direkt an ("Du bist ...") und beschreibt Rolle, Ort,
  typische Phrasen, Preise oder Fakten und wie die Figur auf Missverständnisse reagiert.
- Die Eröffnungszeile lädt den Benutzer klar zum Antworten ein.
- Wenn die Beschreibung unklar ist, wähle die naheliegendste Alltagssituation.`

const sceneSystemPrompt = `Du bist der Erzähler eines Rollenspiels für Deutschlernende.
Beschreibe den Anfangszustand der Szene knapp auf Deutsch: Ort, was gerade passiert,
welche Dinge verfügbar sind und welche Herausforderungen es für den Benutzer gibt.
Halte dich an die Situation und die Eröffnungszeile der Figur.`

const narratorSystemPrompt = `Du bist der Erzähler eines Rollenspiels für Deutschlernende.
Erzeuge ein kurzes Ereignis, das die Szene lebendiger macht und den Benutzer zum Reagieren bringt.

Regeln:
- Das Ereignis folgt logisch aus dem bisherigen Gespräch. Wenn das Gespräch stockt,
  darf etwas Unerwartetes passieren, das neue Gesprächsanlässe schafft.
- Beschreibe nur das Ereignis. Schreibe KEINE Antworten oder Handlungen der Figur,
  die Figur reagiert danach selbst.
- Die deutsche Beschreibung ist höchstens zwei Sätze lang und passt zum Sprachniveau.
- Aktualisiere den Szenenzustand so, dass er das Ereignis widerspiegelt.`

const characterSystemPromptTemplate = `Du bist %s in der Situation "%s".

%s

Der Benutzer lernt Deutsch auf Niveau %s. Seine Rolle: %s
Du hast das Gespräch mit diesem Satz eröffnet: "%s"

Regeln:
- Antworte immer auf Deutsch, in 1-3 Sätzen, mit Wortschatz für das Niveau des Benutzers.
- Bleib in deiner Rolle. Korrigiere keine Grammatikfehler, das macht jemand anderes.
- Wenn du den Benutzer nicht verstehst, frag freundlich nach.
- Reagiere auf [NARRATOR EVENT] Hinweise, als hättest du das Ereignis selbst erlebt.
- Setze is_conversation_complete erst, wenn sich das Gespräch natürlich beendet hat.`

const grammarPromptTemplate = `Du bist ein Deutsch-Grammatikprüfer für ukrainische Lernende auf Niveau %s.

Prüfe den Satz auf Grammatikfehler (Kasus, Genus, Verbkonjugation, Wortstellung),
Rechtschreibfehler und für das Niveau unpassende Wörter.

Regeln:
- Sei kurz und freundlich, höchstens 1-2 Sätze Feedback.
- Erwähne nur die wichtigsten Fehler.
- Wenn der Satz verständlich und für das Niveau akzeptabel ist, melde keine Fehler.
- Ignoriere kleine Tippfehler, wenn der Sinn klar ist.
- Gib das Feedback auf Ukrainisch.

Der zu prüfende Satz:
"%s"

Kontext der Situation:
%s`

func buildSituationMessage(level german.Level, description string) string {
	return fmt.Sprintf("Beschreibung des Benutzers (auf Ukrainisch):\n%q\n\nSprachniveau des Benutzers: %s", description, level)
}

func buildSceneMessage(level german.Level, s *Situation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Situation: %s\n", s.NameDE)
	fmt.Fprintf(&b, "Figur: %s\n", s.CharacterRole)
	fmt.Fprintf(&b, "Rolle des Benutzers: %s\n", s.UserRoleDE)
	fmt.Fprintf(&b, "Szenario: %s\n", s.ScenarioPrompt)
	fmt.Fprintf(&b, "Eröffnungszeile: %s\n", s.OpeningDE)
	fmt.Fprintf(&b, "Sprachniveau: %s", level)
	return b.String()
}

func buildNarratorMessage(in NarrateInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Situation: %s (%s)\n", in.Situation.NameDE, in.Situation.CharacterRole)
	fmt.Fprintf(&b, "Sprachniveau: %s\n\n", in.Level)
	b.WriteString(formatScene(in.Scene))
	b.WriteString("\n\nLetzte Nachrichten:\n")
	if len(in.Dialogue) == 0 {
		b.WriteString("(keine)")
	}
	for _, l := range in.Dialogue {
		fmt.Fprintf(&b, "%s: %s\n", l.Speaker, l.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildCharacterSystemPrompt(level german.Level, s *Situation) string {
	return fmt.Sprintf(characterSystemPromptTemplate,
		s.CharacterRole, s.NameDE, s.ScenarioPrompt, level, s.UserRoleDE, s.OpeningDE)
}

// buildCharacterMessage wraps the player's text with the scene and, after
// a narrator event, the event context.
func buildCharacterMessage(in CharacterInput) string {
	parts := []string{formatScene(in.Scene)}
	if in.NarratorContext != "" {
		parts = append(parts, "[NARRATOR EVENT] "+in.NarratorContext)
	}
	parts = append(parts, fmt.Sprintf("Der Benutzer (auf Niveau %s) sagt: %s", in.Level, in.Text))
	return strings.Join(parts, "\n\n")
}

func formatScene(s Scene) string {
	items := "N/A"
	if len(s.Items) > 0 {
		items = strings.Join(s.Items, ", ")
	}
	challenges := "None"
	if len(s.Challenges) > 0 {
		challenges = strings.Join(s.Challenges, ", ")
	}
	return fmt.Sprintf("[SCENE STATE]\nLocation: %s\nSituation: %s\nAvailable: %s\nChallenges: %s",
		s.Location, s.Summary, items, challenges)
}
