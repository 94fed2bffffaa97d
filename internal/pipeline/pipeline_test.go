package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type exercise struct{ prompt string }

func TestEnsureInFlight_StartsOnlyOnce(t *testing.T) {
	p := New[*exercise]()
	defer p.Close()

	var calls atomic.Int32
	release := make(chan struct{})
	gen := func(ctx context.Context) (*exercise, error) {
		calls.Add(1)
		<-release
		return &exercise{prompt: "x"}, nil
	}

	if !p.EnsureInFlight(gen) {
		t.Fatal("expected first call to start a task")
	}
	if p.EnsureInFlight(gen) {
		t.Fatal("expected second call to be a no-op while running")
	}
	close(release)

	if _, err := p.TakeOrWait(t.Context(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 generator call, got %d", got)
	}
}

func TestEnsureInFlight_NoopWhileResultUnconsumed(t *testing.T) {
	p := New[int]()
	defer p.Close()

	p.EnsureInFlight(func(context.Context) (int, error) { return 1, nil })
	waitDone(t, p)

	if p.EnsureInFlight(func(context.Context) (int, error) { return 2, nil }) {
		t.Fatal("expected no new task while a finished result is unconsumed")
	}
	v, err := p.TakeOrWait(t.Context(), nil)
	if err != nil || v != 1 {
		t.Fatalf("expected (1, nil), got (%d, %v)", v, err)
	}
}

func TestTakeOrWait_ReturnsExactResultAndClearsSlot(t *testing.T) {
	p := New[*exercise]()
	defer p.Close()

	want := &exercise{prompt: "Я читаю книгу."}
	p.EnsureInFlight(func(context.Context) (*exercise, error) { return want, nil })

	got, err := p.TakeOrWait(t.Context(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatal("expected the exact object produced by the task")
	}
	if p.Pending() {
		t.Fatal("expected slot to be empty after take")
	}

	var calls atomic.Int32
	if !p.EnsureInFlight(func(context.Context) (*exercise, error) {
		calls.Add(1)
		return &exercise{}, nil
	}) {
		t.Fatal("expected a fresh task after take")
	}
	if _, err := p.TakeOrWait(t.Context(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected fresh task to run once, got %d", calls.Load())
	}
}

func TestTakeOrWait_NoTask(t *testing.T) {
	p := New[int]()
	defer p.Close()

	if _, err := p.TakeOrWait(t.Context(), nil); !errors.Is(err, ErrNoTask) {
		t.Fatalf("expected ErrNoTask, got %v", err)
	}
}

func TestTakeOrWait_PropagatesFailureAndClears(t *testing.T) {
	p := New[int]()
	defer p.Close()

	boom := errors.New("boom")
	p.EnsureInFlight(func(context.Context) (int, error) { return 0, boom })

	_, err := p.TakeOrWait(t.Context(), nil)
	if err != boom {
		t.Fatalf("expected the task's own error, got %v", err)
	}
	if p.Pending() {
		t.Fatal("expected failed result to be consumed")
	}
}

func TestTakeOrWait_WaitsThroughWrapper(t *testing.T) {
	p := New[int]()
	defer p.Close()

	release := make(chan struct{})
	p.EnsureInFlight(func(context.Context) (int, error) {
		<-release
		return 7, nil
	})

	wrapped := false
	wait := func(ctx context.Context, await func(context.Context) error) error {
		wrapped = true
		close(release)
		return await(ctx)
	}

	v, err := p.TakeOrWait(t.Context(), wait)
	if err != nil || v != 7 {
		t.Fatalf("expected (7, nil), got (%d, %v)", v, err)
	}
	if !wrapped {
		t.Fatal("expected running task to be awaited through the wrapper")
	}
}

func TestTakeOrWait_WrapperSeesTaskFailure(t *testing.T) {
	p := New[int]()
	defer p.Close()

	boom := errors.New("boom")
	release := make(chan struct{})
	p.EnsureInFlight(func(context.Context) (int, error) {
		<-release
		return 0, boom
	})

	var seen error
	wait := func(ctx context.Context, await func(context.Context) error) error {
		close(release)
		seen = await(ctx)
		return seen
	}

	if _, err := p.TakeOrWait(t.Context(), wait); err != boom {
		t.Fatalf("expected boom, got %v", err)
	}
	if seen != boom {
		t.Fatalf("expected wrapper to observe boom, got %v", seen)
	}
	if p.Pending() {
		t.Fatal("expected slot to be cleared after failure")
	}
}

func TestTakeOrWait_CancelledWaitKeepsTask(t *testing.T) {
	p := New[int]()
	defer p.Close()

	release := make(chan struct{})
	p.EnsureInFlight(func(context.Context) (int, error) {
		<-release
		return 3, nil
	})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if _, err := p.TakeOrWait(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !p.Pending() {
		t.Fatal("expected task to survive a cancelled wait")
	}

	close(release)
	v, err := p.TakeOrWait(t.Context(), nil)
	if err != nil || v != 3 {
		t.Fatalf("expected (3, nil), got (%d, %v)", v, err)
	}
}

func TestClose_CancelsRunningTask(t *testing.T) {
	p := New[int]()

	stopped := make(chan struct{})
	p.EnsureInFlight(func(ctx context.Context) (int, error) {
		<-ctx.Done()
		close(stopped)
		return 0, ctx.Err()
	})
	p.Close()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("expected Close to cancel the running task")
	}
	if p.EnsureInFlight(func(context.Context) (int, error) { return 1, nil }) {
		t.Fatal("expected closed pipeline to refuse new work")
	}
	if p.Pending() {
		t.Fatal("expected no pending task after Close")
	}
}

func waitDone(t *testing.T, p *Pipeline[int]) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for p.Running() {
		if time.Now().After(deadline) {
			t.Fatal("task did not finish")
		}
		time.Sleep(time.Millisecond)
	}
}
