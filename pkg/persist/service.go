// Package persist moves accepted events from the event store to durable sinks.
package persist

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/NotCoffee418/serial_event_log/pkg/eventstore"
	"github.com/NotCoffee418/serial_event_log/pkg/metrics"
)

// Sink durably stores a drained batch. Write must be safe to repeat for a
// batch that failed part way.
type Sink interface {
	Name() string
	Write(ctx context.Context, d eventstore.Drain) error
}

// Store is the part of the event store the worker needs.
type Store interface {
	DrainNew() eventstore.Drain
	Commit(d eventstore.Drain) error
	NewEvents() <-chan struct{}
}

type Config struct {
	// FlushInterval wakes the worker even without new events, so failed
	// batches are retried.
	FlushInterval time.Duration
}

// Worker drains the store into its sinks until shutdown.
type Worker struct {
	store  Store
	sinks  []Sink
	config Config
	log    *zap.Logger
}

func NewWorker(store Store, sinks []Sink, config Config, log *zap.Logger) *Worker {
	if config.FlushInterval <= 0 {
		config.FlushInterval = 5 * time.Second
	}
	return &Worker{
		store:  store,
		sinks:  sinks,
		config: config,
		log:    log,
	}
}

// Run blocks until ctx is done, then performs a final flush.
// The store should be closed before ctx is cancelled so the final flush
// sees every accepted event.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	w.log.Info("Persistence worker started", zap.Int("sinks", len(w.sinks)))

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Persistence worker shutting down, final flush")
			// ctx is gone, the final flush still has to reach the disk
			if err := w.Flush(context.WithoutCancel(ctx)); err != nil {
				w.log.Error("Final flush failed, events remain unpersisted", zap.Error(err))
				return err
			}
			return nil
		case <-w.store.NewEvents():
			w.flushLogged(ctx)
		case <-ticker.C:
			w.flushLogged(ctx)
		}
	}
}

func (w *Worker) flushLogged(ctx context.Context) {
	if err := w.Flush(ctx); err != nil {
		w.log.Warn("Flush failed, will retry on next wake", zap.Error(err))
	}
}

// Flush writes pending events to the sinks in order and marks them
// persisted once all of them succeeded. The first failing sink aborts the
// batch, so sinks that tolerate rewrites belong first.
func (w *Worker) Flush(ctx context.Context) error {
	d := w.store.DrainNew()
	if d.Empty() {
		return nil
	}

	for _, sink := range w.sinks {
		if err := sink.Write(ctx, d); err != nil {
			metrics.PersistErrors.Inc()
			w.log.Error("Failed to persist batch",
				zap.String("sink", sink.Name()),
				zap.Int("start", d.Start),
				zap.Int("event_count", len(d.Events)),
				zap.Error(err))
			return fmt.Errorf("sink %s: %w", sink.Name(), err)
		}
	}

	if err := w.store.Commit(d); err != nil {
		return err
	}
	metrics.EventsPersisted.Add(float64(len(d.Events)))
	w.log.Debug("Persisted events",
		zap.Int("start", d.Start),
		zap.Int("count", len(d.Events)))
	return nil
}
