package services

import (
	"contact-relay/domain"
	"contact-relay/domain/event"
	"contact-relay/errors"
	"contact-relay/mocks"
	"contact-relay/observability"
	"context"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestService(t *testing.T) (*RelayService, *mocks.MockIRelay, *observability.Monitoring) {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	relay := mocks.NewMockIRelay(ctrl)
	monitoring := observability.NewMonitoring(log)
	return NewRelayService(log, relay, monitoring), relay, monitoring
}

func TestRelayService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("should log in when username is valid", func(t *testing.T) {
		req := require.New(t)
		svc, relay, _ := newTestService(t)

		relay.EXPECT().Login(ctx, domain.ConnectionID("c1"), domain.Username("alice")).Return(nil).Times(1)

		req.NoError(svc.Login(ctx, LoginRequest{Username: "alice", ID: "c1"}))
	})

	t.Run("should reject invalid usernames before reaching the relay", func(t *testing.T) {
		tests := []struct {
			username string
			expected error
			message  string
		}{
			{username: "", expected: errors.ErrUsernameEmpty, message: "Username is required."},
			{username: "al", expected: errors.ErrUsernameTooShort, message: "Username must be at least 3 characters."},
			{username: "al ice", expected: errors.ErrUsernameWhitespace, message: "Username cannot contain spaces."},
		}
		for _, tt := range tests {
			req := require.New(t)
			svc, relay, monitoring := newTestService(t)
			relay.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

			err := svc.Login(ctx, LoginRequest{Username: tt.username, ID: "c1"})

			req.ErrorIs(err, errors.ErrInvalidUsername)
			req.ErrorIs(err, tt.expected)
			req.Equal(tt.message, errors.ToMessage(err))
			req.Equal(uint64(1), monitoring.GetLatest().ProtocolErrors)
		}
	})

	t.Run("should reject a missing connection id", func(t *testing.T) {
		req := require.New(t)
		svc, relay, _ := newTestService(t)
		relay.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		err := svc.Login(ctx, LoginRequest{Username: "alice"})

		req.ErrorIs(err, errors.ErrMalformedRequest)
	})

	t.Run("should surface a taken username", func(t *testing.T) {
		req := require.New(t)
		svc, relay, monitoring := newTestService(t)
		relay.EXPECT().Login(ctx, domain.ConnectionID("c2"), domain.Username("alice")).Return(errors.ErrUsernameTaken)

		err := svc.Login(ctx, LoginRequest{Username: "alice", ID: "c2"})

		req.ErrorIs(err, errors.ErrUsernameTaken)
		req.Equal(uint64(1), monitoring.GetLatest().ProtocolErrors)
	})
}

func TestRelayService_AddUserRequest(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc, relay, _ := newTestService(t)

	// Then "for" is the target and "from" the requester
	relay.EXPECT().AddUserRequest(ctx, domain.Username("alice"), domain.Username("bob")).Return(nil).Times(1)
	req.NoError(svc.AddUserRequest(ctx, FriendRequest{For: "bob", From: "alice"}))

	err := svc.AddUserRequest(ctx, FriendRequest{From: "alice"})
	req.ErrorIs(err, errors.ErrMalformedRequest)
}

func TestRelayService_AddUserResponse(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc, relay, _ := newTestService(t)

	relay.EXPECT().
		AddUserResponse(ctx, domain.Username("bob"), domain.Username("alice"), domain.StatusAccepted).
		Return(nil).
		Times(1)
	req.NoError(svc.AddUserResponse(ctx, FriendResponse{For: "alice", From: "bob", Status: "accepted"}))

	err := svc.AddUserResponse(ctx, FriendResponse{For: "alice", From: "bob", Status: "maybe"})
	req.ErrorIs(err, errors.ErrInvalidStatus)

	err = svc.AddUserResponse(ctx, FriendResponse{For: "alice", Status: "declined"})
	req.ErrorIs(err, errors.ErrMalformedRequest)
}

func TestRelayService_Message(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc, relay, _ := newTestService(t)

	relay.EXPECT().
		Message(ctx, domain.ConnectionID("c1"), domain.Message{From: "alice", To: "bob", Text: "hi"}).
		Return(nil).
		Times(1)

	req.NoError(svc.Message(ctx, "c1", event.OutgoingMessage{From: "alice", For: "bob", Message: "hi"}))
}

func TestRelayService_Stats(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc, relay, monitoring := newTestService(t)
	monitoring.IncrMessagesRelayed()

	relay.EXPECT().Snapshot(ctx).Return(domain.Presence{
		Online:   []domain.Username{"alice", "bob"},
		Contacts: map[domain.Username][]domain.Username{"alice": {"bob"}, "bob": {"alice"}},
	}, nil)

	stats, err := svc.Stats(ctx)

	req.NoError(err)
	req.Equal([]domain.Username{"alice", "bob"}, stats.Online)
	req.Equal([]domain.Username{"bob"}, stats.Contacts["alice"])
	req.Equal(uint64(1), stats.MessagesRelayed)
}
