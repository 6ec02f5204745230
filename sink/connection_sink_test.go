package sink

import (
	"contact-relay/domain/event"
	"contact-relay/errors"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectionSink_Consume(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := NewConnectionSink(2)

	// Given a sink with room for two events
	req.NoError(s.Consume(ctx, event.FriendRequested{From: "alice"}))
	req.NoError(s.Consume(ctx, event.ContactLeft{Username: "bob"}))

	// When the buffer is full
	err := s.Consume(ctx, event.ContactLeft{Username: "carol"})

	// Then the event is dropped without blocking
	req.ErrorIs(err, errors.ErrSinkFull)

	// And buffered events come out in order
	req.Equal(event.FriendRequested{From: "alice"}, <-s.Events())
	req.Equal(event.ContactLeft{Username: "bob"}, <-s.Events())
}

func TestConnectionSink_Close(t *testing.T) {
	req := require.New(t)
	s := NewConnectionSink(1)

	s.Close()
	s.Close()

	select {
	case <-s.Done():
	default:
		req.Fail("Done should be closed")
	}
	req.ErrorIs(s.Consume(context.Background(), event.Identified{ConnectionID: "c1"}), errors.ErrSinkClosed)
}
