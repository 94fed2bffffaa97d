// Package telegram connects the session machine to the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/deutschbot/deutschbot/internal/chat"
)

// API is the subset of *tgbotapi.BotAPI the transport calls.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Sink posts HTML messages to one chat. All sinks of a bot share one
// limiter so the bot stays under Telegram's global flood limit.
type Sink struct {
	api     API
	limiter *rate.Limiter
	chatID  int64
}

var _ chat.Sink = (*Sink)(nil)

// NewSink returns a Sink bound to chatID. A nil limiter disables throttling.
func NewSink(api API, limiter *rate.Limiter, chatID int64) *Sink {
	return &Sink{api: api, limiter: limiter, chatID: chatID}
}

func (s *Sink) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

// Send posts text as a new message.
func (s *Sink) Send(ctx context.Context, text string) (chat.MessageRef, error) {
	if err := s.wait(ctx); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(s.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	sent, err := s.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	return chat.MessageRef(sent.MessageID), nil
}

// Edit replaces the text of a message. Telegram rejects edits that leave
// the text unchanged; those count as success.
func (s *Sink) Edit(ctx context.Context, ref chat.MessageRef, text string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(s.chatID, int(ref), text)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := s.api.Request(edit); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return fmt.Errorf("edit message %d: %w", ref, err)
	}
	return nil
}

// Delete removes a message.
func (s *Sink) Delete(ctx context.Context, ref chat.MessageRef) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	if _, err := s.api.Request(tgbotapi.NewDeleteMessage(s.chatID, int(ref))); err != nil {
		return fmt.Errorf("delete message %d: %w", ref, err)
	}
	return nil
}
