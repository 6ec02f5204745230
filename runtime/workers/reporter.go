package workers

import (
	"contact-relay/observability"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// QueueDepth returns the length and capacity of a buffered channel.
// Reading len and cap never blocks the goroutines using the channel.
type QueueDepth func() (length, capacity int)

// ReporterWorker periodically samples the engine queue and logs a stats line.
type ReporterWorker struct {
	log        *slog.Logger
	monitoring *observability.Monitoring
	interval   time.Duration
	depth      QueueDepth
}

func NewReporterWorker(log *slog.Logger, monitoring *observability.Monitoring,
	interval time.Duration, depth QueueDepth) *ReporterWorker {
	return &ReporterWorker{log: log, monitoring: monitoring, interval: interval, depth: depth}
}

func (w *ReporterWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping reporter")
			return nil
		case <-ticker.C:
			w.report(startTime)
		}
	}
}

func (w *ReporterWorker) report(startTime time.Time) {
	if w.depth != nil {
		length, capacity := w.depth()
		w.monitoring.SetQueueDepth(length, capacity)
		// Unbuffered queues have nothing to report
		if capacity > 0 && capacity-length <= capacity/10 {
			w.log.Warn(fmt.Sprintf("Relay command queue almost full : %d / %d", length, capacity))
		}
	}

	stats := w.monitoring.GetLatest()
	w.log.Info("Relay stats",
		"uptime", time.Since(startTime).Round(time.Second).String(),
		"online_users", stats.OnlineUsers,
		"open_sockets", stats.OpenSockets,
		"messages_relayed", stats.MessagesRelayed,
		"messages_dropped", stats.MessagesDropped,
		"queue", fmt.Sprintf("%d/%d", stats.QueueLength, stats.QueueCapacity),
		"alloc_mb", stats.AllocMemMb,
	)
}
