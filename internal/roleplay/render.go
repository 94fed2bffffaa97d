package roleplay

import (
	"fmt"
	"html"
	"strings"
)

// Messages use Telegram's HTML subset. Model output is escaped.

// IntroMessage introduces a freshly started situation.
func IntroMessage(st *State) string {
	s := st.Situation
	return fmt.Sprintf("<b>Ситуація:</b> %s\n<b>Ваша роль:</b> %s\n\n<b>%s:</b>\n<i>%s</i>\n\n<code>%s</code>\n\n"+
		"Відповідайте німецькою мовою. Введіть /end щоб завершити ситуацію.",
		esc(s.NameUK), esc(s.UserRoleUK), esc(s.CharacterRole), esc(s.OpeningDE), esc(s.OpeningUK))
}

// NarratorMessage renders a narrator event, or "" when it has no text.
func NarratorMessage(ev *NarratorEvent) string {
	de := strings.TrimSpace(ev.DescriptionDE)
	if de == "" {
		return ""
	}
	msg := "📖 <i>" + esc(de) + "</i>"
	if uk := strings.TrimSpace(ev.DescriptionUK); uk != "" {
		msg += "\n<code>(" + esc(uk) + ")</code>"
	}
	return msg
}

// FeedbackMessage renders grammar feedback, or "" when there is nothing
// to report.
func FeedbackMessage(r *GrammarResult) string {
	if r == nil || !r.HasErrors || strings.TrimSpace(r.Feedback) == "" {
		return ""
	}
	msg := "💡 " + esc(r.Feedback)
	if c := strings.TrimSpace(r.Corrected); c != "" {
		msg += "\n✓ <i>" + esc(c) + "</i>"
	}
	return msg
}

// CharacterMessage renders the character's reply. A completed conversation
// gets a closing summary.
func CharacterMessage(st *State, r *CharacterReply) string {
	msg := fmt.Sprintf("<b>%s:</b>\n%s", esc(st.Situation.CharacterRole), esc(r.German))
	if r.Complete {
		msg += fmt.Sprintf("\n\n<i>--- Розмова завершена ---</i>\n\nВи обмінялися <b>%d</b> повідомленнями.\n\n"+
			"Введіть /situation щоб обрати нову ситуацію, або /next для перекладу речень.", st.Messages)
	}
	return msg
}

func esc(s string) string { return html.EscapeString(s) }
