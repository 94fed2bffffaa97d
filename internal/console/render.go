package console

import (
	"errors"
	"io"
	"strings"

	"charm.land/lipgloss/v2"
	"golang.org/x/net/html"

	"github.com/deutschbot/deutschbot/internal/ui/theme"
)

// Segment is a run of text with the formatting of the tags around it.
type Segment struct {
	Text   string
	Bold   bool
	Italic bool
	Code   bool
}

// Parse splits a message in Telegram's HTML subset into segments. Unknown
// tags are dropped and entities are decoded.
func Parse(msg string) []Segment {
	z := html.NewTokenizer(strings.NewReader(msg))
	var (
		out                []Segment
		bold, italic, code int
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != nil && !errors.Is(err, io.EOF) {
				return append(out, Segment{Text: msg})
			}
			return out
		case html.TextToken:
			text := string(z.Text())
			if text == "" {
				continue
			}
			out = append(out, Segment{Text: text, Bold: bold > 0, Italic: italic > 0, Code: code > 0})
		case html.StartTagToken:
			name, _ := z.TagName()
			adjust(string(name), &bold, &italic, &code, 1)
		case html.EndTagToken:
			name, _ := z.TagName()
			adjust(string(name), &bold, &italic, &code, -1)
		}
	}
}

func adjust(tag string, bold, italic, code *int, d int) {
	var n *int
	switch tag {
	case "b", "strong":
		n = bold
	case "i", "em":
		n = italic
	case "code", "pre":
		n = code
	default:
		return
	}
	*n += d
	if *n < 0 {
		*n = 0
	}
}

// Plain returns msg without markup.
func Plain(msg string) string {
	var b strings.Builder
	for _, s := range Parse(msg) {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Styled renders msg for the terminal.
func Styled(msg string) string {
	var b strings.Builder
	for _, s := range Parse(msg) {
		style := lipgloss.NewStyle()
		switch {
		case s.Code:
			style = theme.Code
		case s.Bold && s.Italic:
			style = theme.Bold.Italic(true)
		case s.Bold:
			style = theme.Bold
		case s.Italic:
			style = theme.Italic
		}
		b.WriteString(style.Render(s.Text))
	}
	return b.String()
}
