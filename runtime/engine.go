// Package runtime handles presence, protocol steps and event routing.
// The Engine serializes every step on a single goroutine so that the
// registry and the contact graph never need a lock.
package runtime

import (
	"contact-relay/contract"
	"contact-relay/domain"
	"contact-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type command interface{ name() string }

type connectCommand struct{ sink contract.EventSink }

type loginCommand struct {
	id       domain.ConnectionID
	username domain.Username
}

type friendRequestCommand struct{ from, to domain.Username }

type friendResponseCommand struct {
	from, to domain.Username
	status   domain.Status
}

type messageCommand struct {
	id  domain.ConnectionID
	msg domain.Message
}

type disconnectCommand struct{ id domain.ConnectionID }

type snapshotCommand struct{}

func (connectCommand) name() string        { return "connect" }
func (loginCommand) name() string          { return "login" }
func (friendRequestCommand) name() string  { return "addUserRequest" }
func (friendResponseCommand) name() string { return "addUserResponse" }
func (messageCommand) name() string        { return "message" }
func (disconnectCommand) name() string     { return "disconnect" }
func (snapshotCommand) name() string       { return "snapshot" }

type result struct {
	id       domain.ConnectionID
	presence domain.Presence
	err      error
}

type envelope struct {
	cmd   command
	reply chan result
}

// Engine is the single event loop in front of a Relay.
// It implements contract.IRelay for transports and contract.Worker for the supervisor.
//
// Disconnects do not go through the bounded command queue: they are
// appended to an unbounded list so that a full or stalled queue can never
// lose one and leave a username registered.
type Engine struct {
	log      *slog.Logger
	relay    *Relay
	commands chan envelope

	mu          sync.Mutex
	disconnects []envelope
	wake        chan struct{}
}

func NewEngine(log *slog.Logger, relay *Relay, bufferSize int) *Engine {
	return &Engine{
		log:      log,
		relay:    relay,
		commands: make(chan envelope, bufferSize),
		wake:     make(chan struct{}, 1),
	}
}

// QueueDepth reports the number of queued commands and the queue capacity.
func (e *Engine) QueueDepth() (int, int) {
	return len(e.commands), cap(e.commands)
}

// Run executes queued commands one at a time until ctx is done.
// A panic escapes to the supervisor, which restarts the loop on the same state.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("Relay engine started")
	e.drainDisconnects(ctx)
	for {
		select {
		case <-ctx.Done():
			e.log.Debug("Context done, stopping relay engine")
			return nil
		case <-e.wake:
			e.drainDisconnects(ctx)
		case env := <-e.commands:
			env.reply <- e.execute(ctx, env.cmd)
		}
	}
}

// drainDisconnects runs every pending disconnect in arrival order.
func (e *Engine) drainDisconnects(ctx context.Context) {
	for {
		e.mu.Lock()
		if len(e.disconnects) == 0 {
			e.mu.Unlock()
			return
		}
		env := e.disconnects[0]
		e.disconnects = e.disconnects[1:]
		e.mu.Unlock()

		env.reply <- e.execute(ctx, env.cmd)
	}
}

func (e *Engine) execute(ctx context.Context, cmd command) result {
	switch c := cmd.(type) {
	case connectCommand:
		return result{id: e.relay.Connect(ctx, c.sink)}
	case loginCommand:
		return result{err: e.relay.Login(ctx, c.id, c.username)}
	case friendRequestCommand:
		return result{err: e.relay.AddUserRequest(ctx, c.from, c.to)}
	case friendResponseCommand:
		return result{err: e.relay.AddUserResponse(ctx, c.from, c.to, c.status)}
	case messageCommand:
		e.relay.Message(ctx, c.id, c.msg)
		return result{}
	case disconnectCommand:
		e.relay.Disconnect(ctx, c.id)
		return result{}
	case snapshotCommand:
		return result{presence: e.relay.Snapshot()}
	default:
		return result{err: fmt.Errorf("unknown command %T", cmd)}
	}
}

func unavailable(ctx context.Context, cmd command) error {
	return fmt.Errorf("%s: %w: %w", cmd.name(), errors.ErrEngineUnavailable, ctx.Err())
}

// submit queues cmd and waits for its result.
// If ctx ends first the caller stops waiting; a queued command still runs.
// queued reports whether cmd made it into the queue.
func (e *Engine) submit(ctx context.Context, cmd command) (env envelope, res result, queued bool) {
	env = envelope{cmd: cmd, reply: make(chan result, 1)}
	select {
	case e.commands <- env:
	case <-ctx.Done():
		return env, result{err: unavailable(ctx, cmd)}, false
	}
	return env, e.await(ctx, env), true
}

func (e *Engine) await(ctx context.Context, env envelope) result {
	select {
	case res := <-env.reply:
		return res
	case <-ctx.Done():
		return result{err: unavailable(ctx, env.cmd)}
	}
}

func (e *Engine) call(ctx context.Context, cmd command) result {
	_, res, _ := e.submit(ctx, cmd)
	return res
}

// Connect registers sink. When the caller gives up on a connect that is
// already queued, the connection is disconnected as soon as it exists, so
// its sink is closed and never kept by the relay.
func (e *Engine) Connect(ctx context.Context, sink contract.EventSink) (domain.ConnectionID, error) {
	env, res, queued := e.submit(ctx, connectCommand{sink: sink})
	if res.err != nil && queued {
		go func() {
			abandoned := <-env.reply
			e.log.Warn("Connect abandoned by caller, disconnecting", "connection_id", abandoned.id)
			e.enqueueDisconnect(abandoned.id)
		}()
	}
	return res.id, res.err
}

func (e *Engine) Login(ctx context.Context, id domain.ConnectionID, username domain.Username) error {
	return e.call(ctx, loginCommand{id: id, username: username}).err
}

func (e *Engine) AddUserRequest(ctx context.Context, from, to domain.Username) error {
	return e.call(ctx, friendRequestCommand{from: from, to: to}).err
}

func (e *Engine) AddUserResponse(ctx context.Context, from, to domain.Username, status domain.Status) error {
	return e.call(ctx, friendResponseCommand{from: from, to: to, status: status}).err
}

func (e *Engine) Message(ctx context.Context, id domain.ConnectionID, msg domain.Message) error {
	return e.call(ctx, messageCommand{id: id, msg: msg}).err
}

// Disconnect never fails to be queued. If ctx ends before the engine gets
// to it, the error is returned but the disconnect still runs later.
func (e *Engine) Disconnect(ctx context.Context, id domain.ConnectionID) error {
	return e.await(ctx, e.enqueueDisconnect(id)).err
}

func (e *Engine) enqueueDisconnect(id domain.ConnectionID) envelope {
	env := envelope{cmd: disconnectCommand{id: id}, reply: make(chan result, 1)}
	e.mu.Lock()
	e.disconnects = append(e.disconnects, env)
	e.mu.Unlock()
	select {
	case e.wake <- struct{}{}:
	default:
	}
	return env
}

func (e *Engine) Snapshot(ctx context.Context) (domain.Presence, error) {
	res := e.call(ctx, snapshotCommand{})
	return res.presence, res.err
}
