package core

import (
	"context"
	"sync"
)

// DefaultQueueSize is the outbound queue capacity used when none is configured.
const DefaultQueueSize = 64

// Outbox is a connection's bounded outbound queue. Any goroutine may Send;
// only the connection's writer loop receives. Close is single-fire and makes
// every pending and future Send fail with ErrUndeliverable.
type Outbox struct {
	ch        chan string
	done      chan struct{}
	closeOnce sync.Once
}

// NewOutbox creates an outbox with the given capacity.
func NewOutbox(size int) *Outbox {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Outbox{
		ch:   make(chan string, size),
		done: make(chan struct{}),
	}
}

// Send enqueues msg. It blocks while the queue is full, which is how a slow
// reader pushes back on its senders.
func (o *Outbox) Send(ctx context.Context, msg string) error {
	select {
	case <-o.done:
		return ErrUndeliverable
	default:
	}

	// Prefer the queue over a cancelled context when there is room.
	select {
	case o.ch <- msg:
		return nil
	default:
	}

	select {
	case o.ch <- msg:
		return nil
	case <-o.done:
		return ErrUndeliverable
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting messages. Already queued messages stay readable from C.
func (o *Outbox) Close() {
	o.closeOnce.Do(func() { close(o.done) })
}

// C is the receive side used by the writer loop.
func (o *Outbox) C() <-chan string {
	return o.ch
}

// Done is closed by Close.
func (o *Outbox) Done() <-chan struct{} {
	return o.done
}
