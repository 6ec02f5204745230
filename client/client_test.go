package client

import (
	"contact-relay/domain"
	"contact-relay/domain/event"
	"contact-relay/errors"
	"contact-relay/infrastructure/rest"
	"contact-relay/infrastructure/ws"
	"contact-relay/observability"
	"contact-relay/runtime"
	"contact-relay/services"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func startRelay(t *testing.T) *httptest.Server {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	monitoring := observability.NewMonitoring(log)
	engine := runtime.NewRelayEngine(log, monitoring, nil, 64)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = engine.Run(ctx)
	}()

	service := services.NewRelayService(log, engine, monitoring)
	wsServer := ws.NewServer(log, service, monitoring, ws.Options{
		BufferSize:   16,
		WriteTimeout: time.Second,
		PongWait:     10 * time.Second,
		CallTimeout:  time.Second,
	})
	api := rest.NewAPI(log, service, rest.Options{CallTimeout: time.Second})
	server := httptest.NewServer(api.Handler(wsServer))

	t.Cleanup(func() {
		server.Close()
		cancel()
		<-done
	})
	return server
}

func connect(t *testing.T, baseURL, username string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c := New(baseURL)
	id, err := c.Connect(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	if username != "" {
		require.NoError(t, c.Login(ctx, username))
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func nextFrame(t *testing.T, c *Client) event.InboundFrame {
	t.Helper()
	select {
	case frame, ok := <-c.Frames():
		require.True(t, ok, "websocket closed")
		return frame
	case <-time.After(2 * time.Second):
		require.FailNow(t, "no frame received")
		return event.InboundFrame{}
	}
}

func decode[T any](t *testing.T, frame event.InboundFrame) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(frame.Data, &v))
	return v
}

func TestClient_Contact_Flow(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	server := startRelay(t)

	alice := connect(t, server.URL, "alice")
	bob := connect(t, server.URL, "bob")

	// When alice asks bob
	req.NoError(alice.AddUser(ctx, "bob"))

	// Then bob is told who asked
	frame := nextFrame(t, bob)
	req.Equal(event.NameRequest, frame.Event)
	req.Equal("alice", decode[string](t, frame))

	// When bob accepts
	req.NoError(bob.Respond(ctx, "alice", domain.StatusAccepted))

	frame = nextFrame(t, alice)
	req.Equal(event.NameResponse, frame.Event)
	req.Equal(event.ResponsePayload{From: "bob", Status: "accepted"}, decode[event.ResponsePayload](t, frame))

	// Then messages flow between contacts
	req.NoError(alice.Send("bob", "hi"))
	frame = nextFrame(t, bob)
	req.Equal(event.NameMessage, frame.Event)
	req.Equal(event.MessagePayload{From: "alice", MessageText: "hi"}, decode[event.MessagePayload](t, frame))

	stats, err := alice.Stats(ctx)
	req.NoError(err)
	req.Equal([]domain.Username{"alice", "bob"}, stats.Online)
	req.Equal([]domain.Username{"bob"}, stats.Contacts["alice"])

	// When bob leaves, alice is notified
	req.NoError(bob.Close())
	frame = nextFrame(t, alice)
	req.Equal(event.NameLeave, frame.Event)
	req.Equal("bob", decode[string](t, frame))
}

func TestClient_Login_Rejected(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	server := startRelay(t)

	connect(t, server.URL, "alice")
	intruder := connect(t, server.URL, "")

	err := intruder.Login(ctx, "alice")

	req.ErrorIs(err, errors.ErrRequestRejected)
	req.Contains(err.Error(), "Username already exists")
	req.Empty(intruder.Username())
}

func TestClient_Request_Unknown_User(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	server := startRelay(t)

	alice := connect(t, server.URL, "alice")

	err := alice.AddUser(ctx, "ghost")

	req.ErrorIs(err, errors.ErrRequestRejected)
	req.Contains(err.Error(), "Username not exists")
}

func TestClient_Not_Connected(t *testing.T) {
	req := require.New(t)
	c := New("http://localhost:1")

	req.ErrorIs(c.Login(context.Background(), "alice"), errors.ErrNotConnected)
	req.ErrorIs(c.Send("bob", "hi"), errors.ErrNotConnected)
}
