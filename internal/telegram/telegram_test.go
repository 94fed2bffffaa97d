package telegram

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/deutschbot/deutschbot/internal/chat"
)

type fakeAPI struct {
	mu         sync.Mutex
	calls      []tgbotapi.Chattable
	nextID     int
	requestErr error
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func TestSink_SendEditDelete(t *testing.T) {
	api := &fakeAPI{}
	s := NewSink(api, nil, 42)
	ctx := context.Background()

	ref, err := s.Send(ctx, "<b>Hallo</b>")
	require.NoError(t, err)
	assert.Equal(t, chat.MessageRef(1), ref)
	require.NoError(t, s.Edit(ctx, ref, "Hallo."))
	require.NoError(t, s.Delete(ctx, ref))

	require.Len(t, api.calls, 3)
	msg := api.calls[0].(tgbotapi.MessageConfig)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)

	edit := api.calls[1].(tgbotapi.EditMessageTextConfig)
	assert.Equal(t, 1, edit.MessageID)
	assert.Equal(t, "Hallo.", edit.Text)
	assert.Equal(t, tgbotapi.ModeHTML, edit.ParseMode)

	del := api.calls[2].(tgbotapi.DeleteMessageConfig)
	assert.Equal(t, int64(42), del.ChatID)
	assert.Equal(t, 1, del.MessageID)
}

func TestSink_EditNotModifiedIsSuccess(t *testing.T) {
	api := &fakeAPI{requestErr: errors.New("Bad Request: message is not modified")}
	s := NewSink(api, nil, 1)

	assert.NoError(t, s.Edit(context.Background(), 7, "same"))
	assert.Error(t, s.Delete(context.Background(), 7))
}

func TestSink_LimiterHonoursContext(t *testing.T) {
	api := &fakeAPI{}
	s := NewSink(api, rate.NewLimiter(rate.Every(time.Hour), 1), 1)

	_, err := s.Send(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = s.Send(ctx, "second")
	require.Error(t, err)
	assert.Equal(t, []string{"first"}, api.texts())
}

type recordingHandler struct {
	mu      sync.Mutex
	seen    map[int64][]string
	delay   time.Duration
	panicOn string
}

func (h *recordingHandler) Handle(ctx context.Context, userID int64, sink chat.Sink, text string) error {
	if text == h.panicOn {
		panic("boom")
	}
	time.Sleep(h.delay)
	h.mu.Lock()
	if h.seen == nil {
		h.seen = make(map[int64][]string)
	}
	h.seen[userID] = append(h.seen[userID], text)
	h.mu.Unlock()
	_, err := sink.Send(ctx, "echo "+text)
	return err
}

func (h *recordingHandler) got(userID int64) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.seen[userID]...)
}

func update(userID int64, username, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID, UserName: username},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestDispatcher_PerUserOrder(t *testing.T) {
	api := &fakeAPI{}
	h := &recordingHandler{delay: time.Millisecond}
	d := NewDispatcher(api, h, Options{Logger: quietLogger()})

	updates := make(chan tgbotapi.Update, 10)
	updates <- update(1, "anna", "a1")
	updates <- update(2, "olena", "b1")
	updates <- update(1, "anna", "a2")
	updates <- update(1, "anna", "a3")
	updates <- update(2, "olena", "b2")
	close(updates)

	d.Run(context.Background(), updates)

	assert.Equal(t, []string{"a1", "a2", "a3"}, h.got(1))
	assert.Equal(t, []string{"b1", "b2"}, h.got(2))
	assert.Len(t, api.texts(), 5)
	assert.Equal(t, 0, d.Active())
}

func TestDispatcher_Whitelist(t *testing.T) {
	api := &fakeAPI{}
	h := &recordingHandler{}
	d := NewDispatcher(api, h, Options{Whitelist: []string{"@Anna"}, Logger: quietLogger()})

	updates := make(chan tgbotapi.Update, 2)
	updates <- update(1, "anna", "/start")
	updates <- update(2, "mallory", "/start")
	close(updates)
	d.Run(context.Background(), updates)

	assert.Equal(t, []string{"/start"}, h.got(1))
	assert.Empty(t, h.got(2))
	assert.Contains(t, api.texts(), MsgAccessDenied)
}

func TestDispatcher_IgnoresNonText(t *testing.T) {
	api := &fakeAPI{}
	h := &recordingHandler{}
	d := NewDispatcher(api, h, Options{Logger: quietLogger()})

	updates := make(chan tgbotapi.Update, 2)
	updates <- tgbotapi.Update{}
	updates <- update(1, "anna", "")
	close(updates)
	d.Run(context.Background(), updates)

	assert.Empty(t, api.texts())
}

func TestDispatcher_RecoversFromPanic(t *testing.T) {
	api := &fakeAPI{}
	h := &recordingHandler{panicOn: "bad"}
	d := NewDispatcher(api, h, Options{Logger: quietLogger()})

	updates := make(chan tgbotapi.Update, 2)
	updates <- update(1, "anna", "bad")
	updates <- update(1, "anna", "good")
	close(updates)
	d.Run(context.Background(), updates)

	assert.Equal(t, []string{"good"}, h.got(1))
}

func TestDispatcher_IdleWorkerExits(t *testing.T) {
	api := &fakeAPI{}
	h := &recordingHandler{}
	d := NewDispatcher(api, h, Options{IdleTimeout: 5 * time.Millisecond, Logger: quietLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan tgbotapi.Update, 1)
	done := make(chan struct{})
	go func() {
		d.Run(ctx, updates)
		close(done)
	}()

	updates <- update(1, "anna", "hi")
	require.Eventually(t, func() bool { return len(h.got(1)) == 1 }, 2*time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return d.Active() == 0 }, 2*time.Second, time.Millisecond)

	updates <- update(1, "anna", "again")
	require.Eventually(t, func() bool { return len(h.got(1)) == 2 }, 2*time.Second, time.Millisecond)

	cancel()
	<-done
}
