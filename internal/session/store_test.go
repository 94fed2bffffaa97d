package session

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/deutschbot/deutschbot/internal/exercise"
)

func blockingTask(ctx context.Context) (*exercise.Exercise, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestStore_StartReplacesAndCloses(t *testing.T) {
	st := NewStore()
	first := st.Start(1)
	if !first.Next.EnsureInFlight(blockingTask) {
		t.Fatal("expected task to start")
	}

	second := st.Start(1)
	if second == first || second.ID == first.ID {
		t.Fatal("expected a fresh session")
	}
	if st.Get(1) != second {
		t.Fatal("store should hold the new session")
	}
	if first.Next.Pending() {
		t.Fatal("replaced session should have its pending work discarded")
	}
	if first.Next.EnsureInFlight(blockingTask) {
		t.Fatal("closed pipeline must refuse new work")
	}
	if st.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", st.Len())
	}
}

func TestStore_Stop(t *testing.T) {
	st := NewStore()
	st.Start(1)
	st.Start(2)

	if !st.Stop(1) {
		t.Fatal("expected Stop to report an existing session")
	}
	if st.Stop(1) {
		t.Fatal("second Stop should report nothing to stop")
	}
	if st.Get(1) != nil || st.Get(2) == nil {
		t.Fatal("Stop removed the wrong session")
	}
}

func TestStore_CloseClosesAll(t *testing.T) {
	st := NewStore()
	a := st.Start(1)
	st.Start(2)
	if !a.Next.EnsureInFlight(blockingTask) {
		t.Fatal("expected task to start")
	}

	st.Close()
	if st.Len() != 0 {
		t.Fatalf("expected no sessions, got %d", st.Len())
	}
	if a.Next.EnsureInFlight(blockingTask) {
		t.Fatal("closed pipeline must refuse new work")
	}
}

func TestStore_SweepRemovesIdle(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := NewStore()
	st.now = func() time.Time { return now }

	idle := st.Start(1)
	idle.Next.EnsureInFlight(blockingTask)
	st.Start(2)

	now = now.Add(20 * time.Minute)
	st.Touch(2)
	now = now.Add(20 * time.Minute)

	if n := st.Sweep(30 * time.Minute); n != 1 {
		t.Fatalf("expected 1 session swept, got %d", n)
	}
	if st.Get(1) != nil {
		t.Fatal("idle session should be gone")
	}
	if st.Get(2) == nil {
		t.Fatal("recently active session should survive")
	}
	if idle.Next.Pending() {
		t.Fatal("swept session should have its generation cancelled")
	}
}

func TestJanitor_SweepsPeriodically(t *testing.T) {
	st := NewStore()
	st.Start(1)
	st.now = func() time.Time { return time.Now().Add(time.Hour) }

	j := NewJanitor(st, time.Millisecond, time.Minute, slog.New(slog.DiscardHandler))
	j.Start(t.Context())
	defer j.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for st.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("janitor never swept the idle session")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestJanitor_StopIsIdempotent(t *testing.T) {
	j := NewJanitor(NewStore(), time.Hour, time.Hour, nil)
	j.Start(context.Background())
	j.Stop()
	j.Stop()
}

func TestState_String(t *testing.T) {
	if StateAwaitFollowup.String() != "await-followup" {
		t.Errorf("unexpected name %q", StateAwaitFollowup.String())
	}
	if State(99).String() != "unknown" {
		t.Errorf("unexpected name for unknown state")
	}
}
