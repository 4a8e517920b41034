// Package update defines the inbound boundary the coordinator consumes
// from. The long-poll ingester and the AMQP transport that actually produce
// these events are external collaborators; this package owns only the
// channel contract and a reference in-process implementation for tests and
// local runs.
package update

import (
	"context"

	"github.com/avfomichev/slovobot/game"
)

// Source delivers a stream of updates. At-least-once delivery, arbitrary
// inter-message latency, and no ordering guarantee across distinct peer
// ids are assumed; within one peer id, delivery order is preserved.
type Source interface {
	// Updates returns the channel of inbound updates. The channel closes
	// when the source has no more updates to deliver (e.g. the process is
	// shutting down).
	Updates() <-chan game.Update
}

// Chan is a Source backed directly by a channel — the shape a real AMQP
// consumer or long-poll ingester would adapt into, and the one used
// directly by tests.
type Chan chan game.Update

// NewChan creates a buffered Chan source.
func NewChan(buffer int) Chan {
	return make(Chan, buffer)
}

// Updates returns the underlying channel.
func (c Chan) Updates() <-chan game.Update { return c }

// Push enqueues an update, respecting ctx cancellation so producers never
// block forever against a full buffer during shutdown.
func (c Chan) Push(ctx context.Context, u game.Update) error {
	select {
	case c <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
