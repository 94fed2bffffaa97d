package chat

import (
	"context"
	"fmt"
	"sync"
)

// OpKind is the kind of operation a Recorder observed.
type OpKind string

const (
	OpSend   OpKind = "send"
	OpEdit   OpKind = "edit"
	OpDelete OpKind = "delete"
)

// Op is one recorded sink operation.
type Op struct {
	Kind OpKind
	Ref  MessageRef
	Text string
}

// Recorder is an in-memory Sink that records every operation in order.
// It backs the local transports' tests and the mock provider mode.
type Recorder struct {
	mu      sync.Mutex
	next    MessageRef
	ops     []Op
	visible map[MessageRef]string
	order   []MessageRef

	// SendErr, when set, is returned by Send instead of recording.
	SendErr error
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{visible: make(map[MessageRef]string)}
}

func (r *Recorder) Send(_ context.Context, text string) (MessageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SendErr != nil {
		return 0, r.SendErr
	}
	r.next++
	ref := r.next
	r.ops = append(r.ops, Op{Kind: OpSend, Ref: ref, Text: text})
	r.visible[ref] = text
	r.order = append(r.order, ref)
	return ref, nil
}

func (r *Recorder) Edit(_ context.Context, ref MessageRef, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.visible[ref]; !ok {
		return fmt.Errorf("edit: message %d not found", ref)
	}
	r.ops = append(r.ops, Op{Kind: OpEdit, Ref: ref, Text: text})
	r.visible[ref] = text
	return nil
}

func (r *Recorder) Delete(_ context.Context, ref MessageRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, Op{Kind: OpDelete, Ref: ref})
	if _, ok := r.visible[ref]; !ok {
		return fmt.Errorf("delete: message %d not found", ref)
	}
	delete(r.visible, ref)
	return nil
}

// Ops returns a copy of all recorded operations.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Op, len(r.ops))
	copy(out, r.ops)
	return out
}

// Count returns how many operations of kind k touched ref. A zero ref
// counts operations on every message.
func (r *Recorder) Count(k OpKind, ref MessageRef) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, op := range r.ops {
		if op.Kind == k && (ref == 0 || op.Ref == ref) {
			n++
		}
	}
	return n
}

// Visible returns the texts of messages that are still present, in send
// order.
func (r *Recorder) Visible() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ref := range r.order {
		if text, ok := r.visible[ref]; ok {
			out = append(out, text)
		}
	}
	return out
}

// Last returns the most recent visible message, or "" if none.
func (r *Recorder) Last() string {
	v := r.Visible()
	if len(v) == 0 {
		return ""
	}
	return v[len(v)-1]
}

// Reset forgets all recorded operations and messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = nil
	r.order = nil
	r.visible = make(map[MessageRef]string)
}
