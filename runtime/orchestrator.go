package runtime

import (
	"contact-relay/contract"
	"contact-relay/moderation"
	"contact-relay/observability"
	"context"
	"log/slog"
)

// Orchestrator owns the relay engine and runs it, along with the
// background workers, under the supervisor.
type Orchestrator struct {
	log        *slog.Logger
	supervisor contract.ISupervisor
	engine     *Engine
	workers    []contract.Worker
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor, engine *Engine) *Orchestrator {
	return &Orchestrator{log: log, supervisor: supervisor, engine: engine}
}

// Add registers workers started alongside the engine.
func (o *Orchestrator) Add(workers ...contract.Worker) *Orchestrator {
	o.workers = append(o.workers, workers...)
	return o
}

// Relay is the serialized entry point handed to the transports.
func (o *Orchestrator) Relay() contract.IRelay {
	return o.engine
}

// Start blocks until ctx is canceled or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.supervisor.Add(o.engine)
	o.supervisor.Add(o.workers...)
	o.log.Info("Starting orchestrator", "workers", len(o.workers)+1)
	o.supervisor.Run(ctx)
	o.log.Info("Orchestrator stopped")
	return nil
}

func (o *Orchestrator) Stop() {
	o.supervisor.Stop()
}

// PrepareCensor builds the message censor from a comma separated word list.
// An empty list disables moderation and returns a nil censor.
func PrepareCensor(log *slog.Logger, rawWords string, censoredChar rune) (contract.Censor, error) {
	words := moderation.ParseWords(rawWords)
	if len(words) == 0 {
		log.Info("Moderation disabled, no censored words configured")
		return nil, nil
	}
	moderator, err := moderation.NewModerator(words, censoredChar, log)
	if err != nil {
		return nil, err
	}
	return moderator, nil
}

// NewRelayEngine wires a relay to its event loop.
func NewRelayEngine(log *slog.Logger, monitoring *observability.Monitoring, censor contract.Censor, bufferSize int) *Engine {
	return NewEngine(log, NewRelay(log, monitoring, censor), bufferSize)
}
