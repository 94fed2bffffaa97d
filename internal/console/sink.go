// Package console runs the bot as a chat in the terminal, for local play
// without Telegram.
package console

import (
	"context"
	"sync/atomic"

	tea "charm.land/bubbletea/v2"

	"github.com/deutschbot/deutschbot/internal/chat"
)

type postedMsg struct {
	ref  chat.MessageRef
	text string
}

type editedMsg struct {
	ref  chat.MessageRef
	text string
}

type deletedMsg struct {
	ref chat.MessageRef
}

// Sink turns chat operations into program messages. It is safe for use
// from handler goroutines.
type Sink struct {
	send func(tea.Msg)
	next atomic.Int64
}

var _ chat.Sink = (*Sink)(nil)

// NewSink returns a Sink delivering to send, typically (*tea.Program).Send.
func NewSink(send func(tea.Msg)) *Sink {
	return &Sink{send: send}
}

// Send posts a new message.
func (s *Sink) Send(ctx context.Context, text string) (chat.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	ref := chat.MessageRef(s.next.Add(1))
	s.send(postedMsg{ref: ref, text: text})
	return ref, nil
}

// Edit replaces a message's text.
func (s *Sink) Edit(ctx context.Context, ref chat.MessageRef, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.send(editedMsg{ref: ref, text: text})
	return nil
}

// Delete removes a message.
func (s *Sink) Delete(_ context.Context, ref chat.MessageRef) error {
	s.send(deletedMsg{ref: ref})
	return nil
}
