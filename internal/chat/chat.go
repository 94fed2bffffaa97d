// Package chat defines the outbound messaging surface shared by transports.
package chat

import "context"

// MessageRef identifies a message previously sent through a Sink so it can
// be edited or deleted.
type MessageRef int

// Sink delivers messages to a single conversation. Implementations are
// bound to one chat; callers never address other users through a Sink.
type Sink interface {
	// Send posts a new message and returns a reference to it.
	Send(ctx context.Context, text string) (MessageRef, error)

	// Edit replaces the text of a previously sent message.
	Edit(ctx context.Context, ref MessageRef, text string) error

	// Delete removes a previously sent message.
	Delete(ctx context.Context, ref MessageRef) error
}
