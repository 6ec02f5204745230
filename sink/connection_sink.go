package sink

import (
	"contact-relay/domain/event"
	"contact-relay/errors"
	"context"
	"sync"
)

// ConnectionSink buffers the events pushed to one client connection.
// The relay writes with Consume, the transport write loop drains Events.
type ConnectionSink struct {
	events    chan event.Event
	done      chan struct{}
	closeOnce sync.Once
}

func NewConnectionSink(bufferSize int) *ConnectionSink {
	return &ConnectionSink{
		events: make(chan event.Event, bufferSize),
		done:   make(chan struct{}),
	}
}

// Consume never blocks: a full buffer drops the event.
func (s *ConnectionSink) Consume(ctx context.Context, e event.Event) error {
	select {
	case <-s.done:
		return errors.ErrSinkClosed
	default:
	}

	select {
	case s.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.ErrSinkFull
	}
}

// Events is drained by the connection write loop.
func (s *ConnectionSink) Events() <-chan event.Event {
	return s.events
}

// Done is closed once the sink is closed.
func (s *ConnectionSink) Done() <-chan struct{} {
	return s.done
}

// Close is idempotent. The events channel is left open so that a late
// Consume never panics.
func (s *ConnectionSink) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
