// Package collector wires the ingestion, persistence and command goroutines
// around one event store.
package collector

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/NotCoffee418/serial_event_log/pkg/config"
	"github.com/NotCoffee418/serial_event_log/pkg/dedup"
	"github.com/NotCoffee418/serial_event_log/pkg/dispatcher"
	"github.com/NotCoffee418/serial_event_log/pkg/eventdb"
	"github.com/NotCoffee418/serial_event_log/pkg/eventlog"
	"github.com/NotCoffee418/serial_event_log/pkg/eventstore"
	"github.com/NotCoffee418/serial_event_log/pkg/ingest"
	"github.com/NotCoffee418/serial_event_log/pkg/metrics"
	"github.com/NotCoffee418/serial_event_log/pkg/persist"
	"github.com/NotCoffee418/serial_event_log/pkg/shutdown"
)

// How long to wait for the ingestion goroutine after shutdown. Its read
// may stay blocked if closing the source does not interrupt it.
const DefaultIngestGrace = 2 * time.Second

type Options struct {
	Config  *config.CollectorConfig
	Source  io.ReadCloser // serial byte stream
	Console io.Reader     // operator input
	Out     io.Writer     // operator output
	Log     *zap.Logger

	IngestGrace time.Duration
}

type Collector struct {
	opts       Options
	store      *eventstore.Store
	dedup      *dedup.Deduplicator
	coord      *shutdown.Coordinator
	archive    *eventdb.EventDB
	ingest     *ingest.Worker
	persist    *persist.Worker
	dispatcher *dispatcher.Dispatcher
	ingestDone chan error
}

// New prepares every component and restores archived history.
// Cancelling parent requests shutdown.
func New(parent context.Context, opts Options) (*Collector, error) {
	cfg := opts.Config
	log := opts.Log
	if opts.IngestGrace <= 0 {
		opts.IngestGrace = DefaultIngestGrace
	}

	c := &Collector{
		opts:       opts,
		store:      eventstore.New(cfg.MenuThreshold),
		dedup:      dedup.New(cfg.DedupCapacity),
		ingestDone: make(chan error, 1),
	}

	// The archive goes first: it ignores rows it already has, so a retry
	// after a failed log write cannot duplicate anything.
	var sinks []persist.Sink
	if cfg.ArchivePath != "" {
		archive, err := eventdb.Open(cfg.ArchivePath)
		if err != nil {
			return nil, err
		}
		c.archive = archive
		sinks = append(sinks, archive)
		log.Info("Event archive opened",
			zap.String("path", cfg.ArchivePath),
			zap.String("session_id", archive.SessionID()))
	}
	sinks = append(sinks, eventlog.NewFileLog(cfg.EventLogPath))

	if err := c.restore(parent); err != nil {
		c.closeArchive()
		return nil, err
	}

	c.coord = shutdown.New(parent, log)
	c.coord.OnShutdown(c.store.Close)
	c.coord.OnShutdown(func() {
		if err := opts.Source.Close(); err != nil {
			log.Warn("Failed to close byte source", zap.Error(err))
		}
	})

	c.ingest = ingest.NewWorker(opts.Source, c.dedup, c.store, ingest.Config{
		MaxLineLength: cfg.MaxLineLength,
	}, log)
	c.persist = persist.NewWorker(c.store, sinks, persist.Config{
		FlushInterval: time.Duration(cfg.FlushIntervalSec) * time.Second,
	}, log)

	commands := dispatcher.ReadCommands(c.coord.Context(), opts.Console, log)
	c.dispatcher = dispatcher.New(c.store, commands, opts.Out, dispatcher.Config{
		ExportPath: cfg.ExportPath,
	}, c.coord.Request, log)

	return c, nil
}

// restore loads archived events into the store and the deduplicator.
func (c *Collector) restore(ctx context.Context) error {
	cfg := c.opts.Config
	log := c.opts.Log

	if c.archive == nil || !cfg.RestoreOnStart {
		n, err := eventlog.CountEntries(cfg.EventLogPath)
		if err != nil {
			log.Warn("Could not read event log", zap.Error(err))
			return nil
		}
		log.Info("Existing event log", zap.String("path", cfg.EventLogPath), zap.Int("entries", n))
		return nil
	}

	events, err := c.archive.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load archived events: %w", err)
	}
	if err := c.store.Restore(events); err != nil {
		return err
	}
	for _, ev := range events {
		c.dedup.Accept(ev.WireLine())
	}
	log.Info("Restored archived events", zap.Int("count", len(events)))
	return nil
}

// Run starts the workers and blocks until shutdown completed.
func (c *Collector) Run() error {
	ctx := c.coord.Context()
	log := c.opts.Log
	defer c.closeArchive()

	if addr := c.opts.Config.MetricsListen; addr != "" {
		go metrics.Serve(ctx, addr, log)
	}

	go func() {
		err := c.ingest.Run(ctx)
		if err != nil {
			// persistence and commands keep working on what was accepted
			log.Error("Ingestion ended", zap.Error(err))
		}
		c.ingestDone <- err
	}()

	var g errgroup.Group
	g.Go(func() error { return c.persist.Run(ctx) })
	g.Go(func() error { return c.dispatcher.Run(ctx) })
	err := g.Wait()

	select {
	case <-c.ingestDone:
	case <-time.After(c.opts.IngestGrace):
		log.Warn("Ingestion still blocked on read, not waiting for it")
	}

	log.Info("Collector stopped",
		zap.String("reason", c.coord.Reason()),
		zap.Int("events", c.store.Size()),
		zap.Int("persisted", c.store.Persisted()))
	return err
}

// Shutdown requests a stop, as the exit command would.
func (c *Collector) Shutdown(reason string) {
	c.coord.Request(reason)
}

func (c *Collector) Store() *eventstore.Store {
	return c.store
}

func (c *Collector) Dispatcher() *dispatcher.Dispatcher {
	return c.dispatcher
}

func (c *Collector) closeArchive() {
	if c.archive == nil {
		return
	}
	if err := c.archive.Close(); err != nil {
		c.opts.Log.Warn("Failed to close archive", zap.Error(err))
	}
}
