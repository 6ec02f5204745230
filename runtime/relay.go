package runtime

import (
	"contact-relay/contract"
	"contact-relay/domain"
	"contact-relay/domain/event"
	"contact-relay/errors"
	"contact-relay/observability"
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Relay is the presence & relay protocol handler.
// It owns the identity registry, the contact graph and the sink of every
// open connection, and decides which events go where.
//
// Relay is not safe for concurrent use: every method is a single protocol
// step and must run to completion before the next one starts. Engine
// provides that serialization.
type Relay struct {
	log        *slog.Logger
	registry   *Registry
	contacts   *ContactGraph
	sinks      map[domain.ConnectionID]contract.EventSink
	monitoring *observability.Monitoring
	censor     contract.Censor
	newID      func() domain.ConnectionID
}

// NewRelay builds a relay with empty state. censor may be nil.
func NewRelay(log *slog.Logger, monitoring *observability.Monitoring, censor contract.Censor) *Relay {
	return &Relay{
		log:        log,
		registry:   NewRegistry(),
		contacts:   NewContactGraph(),
		sinks:      make(map[domain.ConnectionID]contract.EventSink),
		monitoring: monitoring,
		censor:     censor,
		newID: func() domain.ConnectionID {
			return domain.ConnectionID(uuid.NewString())
		},
	}
}

// Connect assigns a connection-id to a new anonymous connection and pushes it back.
func (r *Relay) Connect(ctx context.Context, sink contract.EventSink) domain.ConnectionID {
	id := r.newID()
	r.sinks[id] = sink
	r.monitoring.IncrConnections()
	r.log.Debug("Connection opened", "connection_id", id)
	r.push(ctx, id, event.Identified{ConnectionID: id})
	return id
}

// Login identifies connection id as username.
// The uniqueness check and the registration happen in the same step.
func (r *Relay) Login(_ context.Context, id domain.ConnectionID, username domain.Username) error {
	if _, ok := r.sinks[id]; !ok {
		r.monitoring.IncrLoginRejected()
		return errors.ErrConnectionNotFound
	}
	// Login is only defined for anonymous connections
	if current, ok := r.registry.LookupUsername(id); ok {
		r.monitoring.IncrLoginRejected()
		r.log.Debug("Login rejected, connection already identified", "connection_id", id, "username", current)
		return errors.ErrAlreadyLoggedIn
	}
	if r.registry.IsUsernameTaken(username) {
		r.monitoring.IncrLoginRejected()
		r.log.Debug("Login rejected, username taken", "connection_id", id, "username", username)
		return errors.ErrUsernameTaken
	}

	r.registry.Register(id, username)
	r.contacts.CreateEmpty(username)

	r.monitoring.IncrLogins()
	r.monitoring.SetOnlineUsers(r.registry.Len())
	r.log.Info("User logged in", "connection_id", id, "username", username)
	return nil
}

// AddUserRequest forwards a friend request from one username to another.
// Nothing is recorded: the request only exists as the pushed event.
func (r *Relay) AddUserRequest(ctx context.Context, from, to domain.Username) error {
	toID, ok := r.registry.LookupConnection(to)
	if !ok {
		return errors.ErrUsernameNotFound
	}
	if from == to {
		return errors.ErrSelfRequest
	}

	r.push(ctx, toID, event.FriendRequested{From: from})
	r.monitoring.IncrFriendRequests()
	r.log.Debug("Friend request routed", "from", from, "to", to)
	return nil
}

// AddUserResponse answers a friend request. from is the responder, to the
// original requester, who must still be online at response time.
func (r *Relay) AddUserResponse(ctx context.Context, from, to domain.Username, status domain.Status) error {
	if !status.IsValid() {
		return errors.ErrInvalidStatus
	}
	toID, ok := r.registry.LookupConnection(to)
	if !ok {
		return errors.ErrPeerDisconnected
	}

	if status == domain.StatusAccepted {
		if !r.registry.IsUsernameTaken(from) {
			return errors.ErrUsernameNotFound
		}
		if err := r.contacts.AddEdge(from, to); err != nil {
			return err
		}
	}

	r.push(ctx, toID, event.FriendResponded{From: from, Status: status})
	r.monitoring.IncrFriendResponses()
	r.log.Debug("Friend response routed", "from", from, "to", to, "status", status)
	return nil
}

// Message routes text to the current connection of msg.To.
// An offline recipient means the message is dropped without error.
func (r *Relay) Message(ctx context.Context, id domain.ConnectionID, msg domain.Message) {
	// from is taken as sent: usernames are not authenticated
	from := msg.From
	if from == "" {
		from, _ = r.registry.LookupUsername(id)
	}
	if from == "" {
		r.monitoring.IncrMessagesDropped()
		r.log.Debug("Message dropped, anonymous sender", "connection_id", id, "to", msg.To)
		return
	}

	toID, ok := r.registry.LookupConnection(msg.To)
	if !ok {
		r.monitoring.IncrMessagesDropped()
		r.log.Debug("Message dropped, recipient offline", "from", from, "to", msg.To)
		return
	}

	text := msg.Text
	if r.censor != nil {
		censored := r.censor.Censor(text)
		if censored != text {
			r.monitoring.IncrMessagesCensored()
		}
		text = censored
	}

	if r.push(ctx, toID, event.MessageRelayed{From: from, Text: text}) {
		r.monitoring.IncrMessagesRelayed()
	}
}

// Disconnect forgets the connection. An identified user is removed from the
// registry, each contact still online receives a leave event, and the
// user's own contact list is dropped.
func (r *Relay) Disconnect(ctx context.Context, id domain.ConnectionID) {
	if sink, ok := r.sinks[id]; ok {
		delete(r.sinks, id)
		sink.Close()
	}

	username, ok := r.registry.Remove(id)
	if !ok {
		r.log.Debug("Anonymous connection closed", "connection_id", id)
		return
	}

	for _, contact := range r.contacts.Neighbors(username) {
		contactID, online := r.registry.LookupConnection(contact)
		if !online {
			continue
		}
		if r.push(ctx, contactID, event.ContactLeft{Username: username}) {
			r.monitoring.IncrLeaveNotified()
		}
	}
	r.contacts.Remove(username)

	r.monitoring.SetOnlineUsers(r.registry.Len())
	r.log.Info("User disconnected", "connection_id", id, "username", username)
}

// Snapshot copies the current presence state.
func (r *Relay) Snapshot() domain.Presence {
	return domain.Presence{
		Online:   r.registry.Usernames(),
		Contacts: r.contacts.All(),
	}
}

// push hands evt to the sink of connection id and reports whether it was accepted.
func (r *Relay) push(ctx context.Context, id domain.ConnectionID, evt event.Event) bool {
	sink, ok := r.sinks[id]
	if !ok {
		r.log.Debug("No sink for connection", "connection_id", id, "event", evt.Name())
		return false
	}
	if err := sink.Consume(ctx, evt); err != nil {
		r.monitoring.IncrPushesDropped()
		r.log.Warn("Push dropped", "connection_id", id, "event", evt.Name(), "error", err)
		return false
	}
	return true
}
