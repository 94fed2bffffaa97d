package console

import (
	"context"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/deutschbot/deutschbot/internal/chat"
	"github.com/deutschbot/deutschbot/internal/ui/components"
	"github.com/deutschbot/deutschbot/internal/ui/layout"
	"github.com/deutschbot/deutschbot/internal/ui/theme"
)

// Handler processes one line typed by the user.
type Handler interface {
	Handle(ctx context.Context, userID int64, sink chat.Sink, text string) error
}

type submitMsg struct {
	text string
}

// handledMsg reports that the handler returned. Errors have already been
// shown to the user through the sink.
type handledMsg struct {
	err error
}

type entry struct {
	ref  chat.MessageRef // zero for user lines
	user bool
	text string
}

// Model is the chat screen. One line is handled at a time; the input is
// blocked until the handler returns.
type Model struct {
	ctx     context.Context
	handler Handler
	userID  int64
	sink    chat.Sink

	entries []entry
	input   components.TextInput

	width  int
	height int
}

// New creates the chat screen. It opens the conversation with /start.
func New(ctx context.Context, handler Handler, userID int64, sink chat.Sink) Model {
	return Model{
		ctx:     ctx,
		handler: handler,
		userID:  userID,
		sink:    sink,
		input:   components.NewTextInput("Напиши відповідь...", 500),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.input.Init(),
		func() tea.Msg { return submitMsg{text: "/start"} },
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if m.input.Busy() || text == "" {
				return m, nil
			}
			m.input.Reset()
			return m.submit(text)
		}

	case submitMsg:
		if m.input.Busy() {
			return m, nil
		}
		return m.submit(msg.text)

	case handledMsg:
		m.input.SetBusy(false)
		return m, nil

	case postedMsg:
		m.entries = append(m.entries, entry{ref: msg.ref, text: msg.text})
		return m, nil

	case editedMsg:
		if i := m.find(msg.ref); i >= 0 {
			m.entries[i].text = msg.text
		}
		return m, nil

	case deletedMsg:
		if i := m.find(msg.ref); i >= 0 {
			m.entries = append(m.entries[:i:i], m.entries[i+1:]...)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	m.entries = append(m.entries, entry{user: true, text: text})
	m.input.SetBusy(true)
	ctx, h, uid, sink := m.ctx, m.handler, m.userID, m.sink
	return m, func() tea.Msg {
		return handledMsg{err: h.Handle(ctx, uid, sink, text)}
	}
}

func (m Model) find(ref chat.MessageRef) int {
	for i, e := range m.entries {
		if !e.user && e.ref == ref {
			return i
		}
	}
	return -1
}

// Transcript returns the visible conversation as plain text, one entry
// per element, user lines prefixed with "> ".
func (m Model) Transcript() []string {
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		if e.user {
			out[i] = "> " + e.text
		} else {
			out[i] = Plain(e.text)
		}
	}
	return out
}

func (m Model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}
	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	status := ""
	if m.input.Busy() {
		status = "…"
	}
	header := layout.RenderHeader("Deutschbot", status, m.width)
	footer := m.input.View(m.width) + "\n" + layout.RenderFooter([]layout.KeyHint{
		{Key: "Enter", Description: "Надіслати"},
		{Key: "Ctrl+C", Description: "Вийти"},
	}, m.width)

	contentHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	content := layout.BottomLines(m.renderTranscript(), contentHeight)

	v.SetContent(layout.RenderFrame(header, content, footer, m.width, m.height))
	return v
}

func (m Model) renderTranscript() string {
	wrap := lipgloss.NewStyle().Width(m.width - 2)
	blocks := make([]string, 0, len(m.entries)+1)
	for _, e := range m.entries {
		if e.user {
			blocks = append(blocks, theme.UserLabel.Render("Ти")+"\n"+wrap.Render(e.text))
		} else {
			blocks = append(blocks, theme.BotLabel.Render("Бот")+"\n"+wrap.Render(Styled(e.text)))
		}
	}
	return strings.Join(blocks, "\n\n")
}

// Run shows the chat until the user quits or ctx is cancelled.
func Run(ctx context.Context, handler Handler, userID int64) error {
	var p *tea.Program
	sink := NewSink(func(msg tea.Msg) { p.Send(msg) })
	p = tea.NewProgram(New(ctx, handler, userID, sink), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
