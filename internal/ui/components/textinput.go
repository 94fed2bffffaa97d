package components

import (
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/deutschbot/deutschbot/internal/ui/theme"
)

// TextInput wraps bubbles/textinput with the chat styling. While busy it
// keeps its text but ignores keys.
type TextInput struct {
	Model textinput.Model
	busy  bool
}

// NewTextInput creates a new styled text input.
func NewTextInput(placeholder string, charLimit int) TextInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "> "
	if charLimit > 0 {
		ti.CharLimit = charLimit
	}
	ti.Focus()
	return TextInput{Model: ti}
}

// Init returns the initial command.
func (t TextInput) Init() tea.Cmd {
	return t.Model.Focus()
}

// Update handles messages.
func (t TextInput) Update(msg tea.Msg) (TextInput, tea.Cmd) {
	if t.busy {
		if _, ok := msg.(tea.KeyMsg); ok {
			return t, nil
		}
	}
	var cmd tea.Cmd
	t.Model, cmd = t.Model.Update(msg)
	return t, cmd
}

// View renders the input box at the given width.
func (t TextInput) View(width int) string {
	view := t.Model.View()
	if t.busy {
		view = lipgloss.NewStyle().Foreground(theme.TextDim).Render(view)
	}
	w := width - 2 // border
	if w < 0 {
		w = 0
	}
	return theme.Input.Width(w).Render(view)
}

// Value returns the current input value.
func (t TextInput) Value() string {
	return t.Model.Value()
}

// Reset clears the input.
func (t *TextInput) Reset() {
	t.Model.Reset()
}

// SetBusy toggles whether keys are accepted.
func (t *TextInput) SetBusy(busy bool) {
	t.busy = busy
}

// Busy reports whether input is blocked.
func (t TextInput) Busy() bool {
	return t.busy
}
