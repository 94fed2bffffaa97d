package session

import (
	"fmt"
	"html"
	"strings"

	"github.com/deutschbot/deutschbot/internal/exercise"
	"github.com/deutschbot/deutschbot/internal/german"
)

// User-facing texts. Messages use Telegram's HTML subset; anything that
// comes from the learner or a model is escaped.

const (
	labelTranslation = "Переклад речень"
	labelRoleplay    = "Рольова гра (ситуації)"

	progressGenerate  = "Генерую нове речення"
	progressEvaluate  = "Перевіряю переклад"
	progressFollowup  = "Думаю над відповіддю"
	progressSituation = "Створюю ситуацію"

	followupHint = "Якщо у тебе є ще питання, задай їх. Або введи /next для наступного речення."

	msgNoSession    = "Введи /start, щоб почати."
	msgStopped      = "До побачення! Щоб почати знову, введіть /start."
	msgInvalidLevel = "Обрано невірний рівень. Будь ласка, обери правильний рівень німецької зі списку:"
	msgInvalidType  = "Будь ласка, обери тип тренування зі списку:"
	msgEndSituation = "Ситуацію завершено.\nВведіть /situation щоб обрати нову ситуацію, або /next для перекладу речень."
	msgNotNow       = "Ця команда зараз недоступна."
	msgAnswerFirst  = "Спочатку введи переклад речення."

	// MsgInternalError is shown when the session hits an inconsistent
	// state. The session is discarded.
	MsgInternalError = "Сталася внутрішня помилка бота. Сесію скинуто, введи /start, щоб почати знову."

	msgConstraintPrompt = "Обрано переклад речень!\n\n" +
		"Чи хочеш ти додати додаткові правила для генерації речень? " +
		"(наприклад, 'Речення має містити слово immer')\n\n" +
		"Якщо так, введи правила. Якщо ні, просто введи /skip."

	msgSituationPrompt = "Опиши ситуацію, яку хочеш потренувати.\n\n" +
		"<i>Наприклад:</i>\n" +
		"• Розмова з механіком про ремонт машини\n" +
		"• Замовлення піци по телефону\n" +
		"• Запис до перукаря\n" +
		"• Скарга на шумних сусідів\n\n" +
		"<i>Ти будеш спілкуватися німецькою з персонажем. " +
		"Бот перевірятиме твою граматику та надсилатиме підказки.</i>"
)

func levelOptions() string {
	var b strings.Builder
	for _, l := range german.Levels {
		fmt.Fprintf(&b, "\n%s", l)
	}
	return b.String()
}

func trainingOptions() string {
	return "\n1. " + labelTranslation + "\n2. " + labelRoleplay
}

func welcomeMessage() string {
	return "Привіт! Я твій бот для вивчення німецької мови. Будь ласка, обери свій поточний рівень німецької:" + levelOptions()
}

func invalidLevelMessage() string {
	return msgInvalidLevel + levelOptions()
}

func levelChosenMessage(l german.Level) string {
	return fmt.Sprintf("Чудово! Твій рівень німецької: <b>%s</b>\n\nОбери тип тренування:", l) + trainingOptions()
}

func invalidTypeMessage() string {
	return msgInvalidType + trainingOptions()
}

func situationPromptMessage(l german.Level) string {
	return fmt.Sprintf("Твій рівень: <b>%s</b>\n\n", l) + msgSituationPrompt
}

func constraintSavedMessage(c string) string {
	return "Правила збережено: " + html.EscapeString(c)
}

func exerciseMessage(n int, ex *exercise.Exercise) string {
	return fmt.Sprintf("<b>%d. Переклади речення:</b>\n%s\n\n<b>Час</b>: %s",
		n, html.EscapeString(ex.Prompt), ex.Tense)
}

func evaluationMessage(eval *exercise.Evaluation, correct, total int) string {
	score := fmt.Sprintf("<b>Загальний результат:</b> %d з %d", correct, total)
	if eval.Correct {
		return "Переклад правильний!\n\n" + score + "\n\n" + followupHint
	}
	return fmt.Sprintf("<b>Правильний переклад:</b>\n%s\n\n<b>Пояснення:</b>\n%s\n\n%s\n\n%s",
		html.EscapeString(eval.CorrectTranslation), html.EscapeString(eval.Explanation), score, followupHint)
}

func tutorMessage(reply string) string {
	return html.EscapeString(strings.TrimSpace(reply)) + "\n\n" + followupHint
}
