//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"contact-relay/domain"
	"contact-relay/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging during supervision.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives the events pushed to one connection.
// Consume must not block: the relay calls it while mutating shared state.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
	Close()
}

// Censor rewrites message text before it is relayed.
type Censor interface {
	Censor(text string) string
}

// IRelay is the serialized entry point of the presence & relay layer.
// Every call runs to completion before the next one starts.
type IRelay interface {
	Connect(ctx context.Context, sink EventSink) (domain.ConnectionID, error)
	Login(ctx context.Context, id domain.ConnectionID, username domain.Username) error
	AddUserRequest(ctx context.Context, from, to domain.Username) error
	AddUserResponse(ctx context.Context, from, to domain.Username, status domain.Status) error
	Message(ctx context.Context, id domain.ConnectionID, msg domain.Message) error
	Disconnect(ctx context.Context, id domain.ConnectionID) error
	Snapshot(ctx context.Context) (domain.Presence, error)
}
