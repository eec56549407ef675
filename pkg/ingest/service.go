// Package ingest reads the serial byte stream and commits new events.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/NotCoffee418/serial_event_log/pkg/dedup"
	"github.com/NotCoffee418/serial_event_log/pkg/eventstore"
	"github.com/NotCoffee418/serial_event_log/pkg/interpreter"
	"github.com/NotCoffee418/serial_event_log/pkg/metrics"
	"github.com/NotCoffee418/serial_event_log/pkg/port_reader"
	"github.com/NotCoffee418/serial_event_log/pkg/types"
)

// Appender is the part of the event store the worker writes to.
type Appender interface {
	Append(ev types.Event) error
	Closed() bool
}

// Outcome of handling one assembled line.
type Outcome int

const (
	Blank Outcome = iota
	Malformed
	Duplicate
	Committed
	Rejected // store closed
)

func (o Outcome) String() string {
	switch o {
	case Blank:
		return "blank"
	case Malformed:
		return "malformed"
	case Duplicate:
		return "duplicate"
	case Committed:
		return "committed"
	case Rejected:
		return "rejected"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

type Config struct {
	MaxLineLength  int
	ReadBufferSize int
}

// Worker drives bytes -> lines -> events -> store. It only ever blocks on
// the byte source.
type Worker struct {
	source    io.Reader
	assembler *port_reader.LineAssembler
	dedup     *dedup.Deduplicator
	store     Appender
	bufSize   int
	log       *zap.Logger
}

func NewWorker(source io.Reader, d *dedup.Deduplicator, store Appender, config Config, log *zap.Logger) *Worker {
	if config.ReadBufferSize <= 0 {
		config.ReadBufferSize = 256
	}
	return &Worker{
		source:    source,
		assembler: port_reader.NewLineAssembler(config.MaxLineLength, log),
		dedup:     d,
		store:     store,
		bufSize:   config.ReadBufferSize,
		log:       log,
	}
}

// Run reads until ctx is done, the store is closed or the source fails.
// A source failure ends ingestion only and is returned unless shutdown
// was already under way.
func (w *Worker) Run(ctx context.Context) error {
	buf := make([]byte, w.bufSize)
	w.log.Info("Ingestion worker started")

	for {
		if ctx.Err() != nil {
			w.log.Info("Ingestion worker stopping")
			return nil
		}

		n, readErr := w.source.Read(buf)
		if n > 0 {
			for _, line := range w.assembler.Feed(buf[:n]) {
				if w.HandleLine(line) == Rejected {
					w.log.Info("Event store closed, ingestion worker stopping")
					return nil
				}
			}
		}

		if readErr != nil {
			if ctx.Err() != nil || w.store.Closed() {
				// the source is closed as part of shutdown, after the store
				w.log.Info("Byte source closed for shutdown, ingestion worker stopping")
				return nil
			}
			if errors.Is(readErr, io.EOF) {
				w.log.Warn("Byte source reached end of stream, ingestion stopped")
				return fmt.Errorf("byte source closed: %w", readErr)
			}
			w.log.Error("Failed to read from byte source, ingestion stopped", zap.Error(readErr))
			return fmt.Errorf("failed to read byte source: %w", readErr)
		}
	}
}

// HandleLine runs one assembled line through parsing, deduplication and commit.
func (w *Worker) HandleLine(raw string) Outcome {
	line := interpreter.Normalize(raw)
	if line == "" {
		return Blank
	}
	metrics.LinesReceived.Inc()
	w.log.Debug("Received line", zap.String("line", line))

	ev, err := interpreter.Parse(raw)
	if err != nil {
		metrics.MalformedLines.Inc()
		w.log.Warn("Discarding malformed line", zap.Error(err))
		return Malformed
	}

	// keyed on the rebuilt line so spacing differences and archived
	// events compare equal
	key := ev.WireLine()
	if !w.dedup.Accept(key) {
		metrics.DuplicateLines.Inc()
		w.log.Debug("Discarding duplicate line", zap.String("line", line))
		return Duplicate
	}

	if err := w.store.Append(ev); err != nil {
		if errors.Is(err, eventstore.ErrClosed) {
			return Rejected
		}
		// Parse never yields an invalid event, treat as malformed anyway
		metrics.MalformedLines.Inc()
		w.log.Warn("Event store refused event", zap.Error(err))
		return Malformed
	}

	metrics.EventsAccepted.Inc()
	w.log.Debug("Event added",
		zap.String("controller_id", ev.ControllerID),
		zap.String("timestamp", ev.Timestamp))
	return Committed
}
