// Package progress shows a self-updating "working" status message while a
// slow operation runs and cleans it up afterwards.
package progress

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/deutschbot/deutschbot/internal/chat"
)

// DefaultFailureText is shown once when a supervised operation fails.
const DefaultFailureText = "Вибач, сталася помилка під час обробки твого запиту. Спробуй ще раз пізніше."

// Config controls the indicator's appearance and cadence.
type Config struct {
	// Interval between status edits.
	Interval time.Duration

	// MaxMarks is the longest run of markers before the run restarts at one.
	MaxMarks int

	// Marker is appended to the label on every tick.
	Marker string

	// FailureText is sent when the operation returns an error other than
	// context cancellation.
	FailureText string

	// Logger receives cleanup and edit failures. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the one-second, ten-dot indicator.
func DefaultConfig() Config {
	return Config{
		Interval:    time.Second,
		MaxMarks:    10,
		Marker:      ".",
		FailureText: DefaultFailureText,
	}
}

// Do runs op while the sink shows label with a growing run of markers.
//
// When Do returns the ticker goroutine has exited and the status message
// has been deleted exactly once. If op fails for any reason other than
// cancellation, one FailureText message is sent before the status is
// deleted. op's result and error are returned unchanged.
func Do[T any](ctx context.Context, cfg Config, sink chat.Sink, label string, op func(context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()
	logger := cfg.Logger
	cleanupCtx := context.WithoutCancel(ctx)

	ref, sendErr := sink.Send(ctx, label)
	if sendErr != nil {
		logger.Warn("progress status not shown", "label", label, "error", sendErr)
	}

	tickCtx, stopTicker := context.WithCancel(ctx)
	var wg sync.WaitGroup
	stop := func() {
		stopTicker()
		wg.Wait()
	}
	defer stop()

	if sendErr == nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tick(tickCtx, cfg, sink, ref, label)
		}()
	}

	val, err := op(ctx)
	stop()

	if err != nil && !errors.Is(err, context.Canceled) {
		if _, ferr := sink.Send(cleanupCtx, cfg.FailureText); ferr != nil {
			logger.Warn("failure notice not sent", "error", ferr)
		}
	}
	if sendErr == nil {
		if derr := sink.Delete(cleanupCtx, ref); derr != nil {
			logger.Warn("progress status not deleted", "ref", int(ref), "error", derr)
		}
	}
	return val, err
}

// Run is Do for operations without a result.
func Run(ctx context.Context, cfg Config, sink chat.Sink, label string, op func(context.Context) error) error {
	_, err := Do(ctx, cfg, sink, label, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func tick(ctx context.Context, cfg Config, sink chat.Sink, ref chat.MessageRef, label string) {
	t := time.NewTicker(cfg.Interval)
	defer t.Stop()

	n := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if ctx.Err() != nil {
			return
		}
		n = n%cfg.MaxMarks + 1
		if err := sink.Edit(ctx, ref, label+strings.Repeat(cfg.Marker, n)); err != nil && ctx.Err() == nil {
			cfg.Logger.Debug("progress edit failed", "ref", int(ref), "error", err)
		}
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.MaxMarks <= 0 {
		c.MaxMarks = d.MaxMarks
	}
	if c.Marker == "" {
		c.Marker = d.Marker
	}
	if c.FailureText == "" {
		c.FailureText = d.FailureText
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
