package telegram

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"golang.org/x/time/rate"

	"github.com/deutschbot/deutschbot/internal/chat"
)

// MsgAccessDenied answers users outside the whitelist.
const MsgAccessDenied = "Вибачте, у вас немає доступу до цього бота."

// Handler processes one text message from a user.
type Handler interface {
	Handle(ctx context.Context, userID int64, sink chat.Sink, text string) error
}

// Options configures a Dispatcher.
type Options struct {
	// Whitelist lists allowed usernames without the leading @. Empty
	// allows everyone.
	Whitelist []string

	// QueueSize bounds the backlog per user. Updates beyond it are dropped.
	QueueSize int

	// IdleTimeout stops a user's worker after this long without updates.
	IdleTimeout time.Duration

	// Limiter throttles every outbound call. Nil disables throttling.
	Limiter *rate.Limiter

	Logger *slog.Logger
}

// Dispatcher fans updates out to one worker per user so each user's
// messages are handled strictly in order while users proceed in parallel.
type Dispatcher struct {
	api       API
	handler   Handler
	whitelist map[string]struct{}
	queueSize int
	idle      time.Duration
	limiter   *rate.Limiter
	logger    *slog.Logger

	mu      sync.Mutex
	queues  map[int64]chan *tgbotapi.Message
	closed  bool
	workers conc.WaitGroup
}

// NewDispatcher creates a Dispatcher sending through api.
func NewDispatcher(api API, handler Handler, opts Options) *Dispatcher {
	if opts.QueueSize < 1 {
		opts.QueueSize = 16
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 10 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	var wl map[string]struct{}
	if len(opts.Whitelist) > 0 {
		wl = make(map[string]struct{}, len(opts.Whitelist))
		for _, u := range opts.Whitelist {
			wl[strings.ToLower(strings.TrimPrefix(u, "@"))] = struct{}{}
		}
	}
	return &Dispatcher{
		api:       api,
		handler:   handler,
		whitelist: wl,
		queueSize: opts.QueueSize,
		idle:      opts.IdleTimeout,
		limiter:   opts.Limiter,
		logger:    opts.Logger,
		queues:    make(map[int64]chan *tgbotapi.Message),
	}
}

// Run consumes updates until ctx is cancelled or the channel closes, then
// waits for in-flight handlers to return.
func (d *Dispatcher) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	defer d.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			d.dispatch(ctx, u)
		}
	}
}

// Active reports the number of running user workers.
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}

func (d *Dispatcher) allowed(u *tgbotapi.User) bool {
	if d.whitelist == nil {
		return true
	}
	if u == nil {
		return false
	}
	_, ok := d.whitelist[strings.ToLower(u.UserName)]
	return ok
}

func (d *Dispatcher) dispatch(ctx context.Context, u tgbotapi.Update) {
	msg := u.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || msg.Text == "" {
		return
	}
	if !d.allowed(msg.From) {
		d.logger.Info("access denied", "username", msg.From.UserName, "user_id", msg.From.ID)
		if _, err := d.sink(msg.Chat.ID).Send(ctx, MsgAccessDenied); err != nil {
			d.logger.Warn("access denial not delivered", "user_id", msg.From.ID, "error", err)
		}
		return
	}

	userID := msg.From.ID
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	q, ok := d.queues[userID]
	if !ok {
		q = make(chan *tgbotapi.Message, d.queueSize)
		d.queues[userID] = q
		d.workers.Go(func() { d.work(ctx, userID, q) })
	}
	select {
	case q <- msg:
	default:
		d.logger.Warn("update dropped, user queue full", "user_id", userID)
	}
}

// work handles one user's messages in order. It exits when the queue is
// closed or stays empty for the idle timeout.
func (d *Dispatcher) work(ctx context.Context, userID int64, q chan *tgbotapi.Message) {
	timer := time.NewTimer(d.idle)
	defer timer.Stop()
	for {
		select {
		case msg, ok := <-q:
			if !ok {
				return
			}
			d.handle(ctx, userID, msg)
			timer.Reset(d.idle)
		case <-timer.C:
			d.mu.Lock()
			if len(q) == 0 && !d.closed {
				delete(d.queues, userID)
				d.mu.Unlock()
				return
			}
			d.mu.Unlock()
			timer.Reset(d.idle)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, userID int64, msg *tgbotapi.Message) {
	if ctx.Err() != nil {
		return
	}
	var pc panics.Catcher
	pc.Try(func() {
		if err := d.handler.Handle(ctx, userID, d.sink(msg.Chat.ID), msg.Text); err != nil {
			d.logger.Debug("update handled with error", "user_id", userID, "error", err)
		}
	})
	if r := pc.Recovered(); r != nil {
		d.logger.Error("handler panicked", "user_id", userID, "panic", r.Value, "stack", string(r.Stack))
	}
}

func (d *Dispatcher) sink(chatID int64) *Sink {
	return NewSink(d.api, d.limiter, chatID)
}

func (d *Dispatcher) shutdown() {
	d.mu.Lock()
	d.closed = true
	for id, q := range d.queues {
		close(q)
		delete(d.queues, id)
	}
	d.mu.Unlock()
	d.workers.Wait()
}

// Poll starts long polling and returns the update channel. Polling stops
// and the channel closes when ctx is cancelled.
func Poll(ctx context.Context, bot *tgbotapi.BotAPI, timeout int) tgbotapi.UpdatesChannel {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = timeout
	cfg.AllowedUpdates = []string{"message"}
	updates := bot.GetUpdatesChan(cfg)
	go func() {
		<-ctx.Done()
		bot.StopReceivingUpdates()
	}()
	return updates
}
