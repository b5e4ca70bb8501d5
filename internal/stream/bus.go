package stream

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// Bus errors.
var (
	// ErrLagged is returned by Next when a subscriber fell behind the
	// retained backlog. The subscriber's cursor is moved to the oldest
	// retained message; the next call resumes there.
	ErrLagged = errors.New("subscriber lagged behind backlog")

	// ErrClosed is returned by Next after the bus has been closed and the
	// subscriber has drained every retained message.
	ErrClosed = errors.New("bus closed")
)

// Bus is a broadcast channel with a bounded backlog. Publish never blocks:
// when the backlog is full the oldest message is dropped and slow
// subscribers observe ErrLagged instead of stalling the producer.
//
// Subscribers receive only messages published after they subscribe.
type Bus struct {
	mu      sync.Mutex
	backlog int
	buf     []json.RawMessage
	next    uint64 // sequence of the next published message
	notify  chan struct{}
	closed  bool
}

// NewBus creates a Bus retaining up to backlog messages for slow readers.
func NewBus(backlog int) *Bus {
	if backlog < 1 {
		backlog = 1
	}
	return &Bus{
		backlog: backlog,
		notify:  make(chan struct{}),
	}
}

// Publish broadcasts one message. It never blocks; publishing to a closed
// bus is a no-op.
func (b *Bus) Publish(msg json.RawMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.buf = append(b.buf, msg)
	if len(b.buf) > b.backlog {
		b.buf = append(b.buf[:0], b.buf[1:]...)
	}
	b.next++
	close(b.notify)
	b.notify = make(chan struct{})
}

// Close ends the stream. Subscribers drain the retained backlog and then
// receive ErrClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.notify)
}

// Subscribe registers a new subscriber positioned after the most recent
// message. Subscribers hold no bus resources, so there is no unsubscribe;
// dropping the Subscriber is enough.
func (b *Bus) Subscribe() *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &Subscriber{bus: b, cursor: b.next}
}

// Subscriber is one reader's cursor into the bus.
// A Subscriber must not be shared between goroutines.
type Subscriber struct {
	bus    *Bus
	cursor uint64
}

// Next blocks until a message is available and returns it.
//
// If the subscriber fell behind the backlog it returns ErrLagged once and
// repositions to the oldest retained message. After the bus is closed and
// drained it returns ErrClosed. Cancellation returns the context's error.
func (s *Subscriber) Next(ctx context.Context) (json.RawMessage, error) {
	for {
		b := s.bus
		b.mu.Lock()
		base := b.next - uint64(len(b.buf))
		if s.cursor < base {
			s.cursor = base
			b.mu.Unlock()
			return nil, ErrLagged
		}
		if s.cursor < b.next {
			msg := b.buf[s.cursor-base]
			s.cursor++
			b.mu.Unlock()
			return msg, nil
		}
		if b.closed {
			b.mu.Unlock()
			return nil, ErrClosed
		}
		notify := b.notify
		b.mu.Unlock()

		select {
		case <-notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
