// Package dispatcher runs the operator menu against snapshots of the event store.
package dispatcher

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/NotCoffee418/serial_event_log/pkg/aggregator"
	"github.com/NotCoffee418/serial_event_log/pkg/eventlog"
	"github.com/NotCoffee418/serial_event_log/pkg/types"
)

const menu = `===== Menu =====
1. List events in a time interval
2. Total active time in a time interval
3. Export events to file
4. Exit
Choose an option (1-4): `

// Store is the read side of the event store used by the dispatcher.
type Store interface {
	Snapshot() []types.Event
	Size() int
	Ready() <-chan struct{}
	Threshold() int
}

type Config struct {
	ExportPath string
}

// Dispatcher executes operator commands taken from a queue.
type Dispatcher struct {
	store    Store
	commands <-chan string
	out      io.Writer
	config   Config
	shutdown func(reason string)
	enabled  atomic.Bool
	log      *zap.Logger

	// line taken from the queue while the threshold was being reached
	pending *string
}

// New creates a dispatcher. shutdown is called by the exit command.
func New(store Store, commands <-chan string, out io.Writer, config Config, shutdown func(reason string), log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		commands: commands,
		out:      out,
		config:   config,
		shutdown: shutdown,
		log:      log,
	}
}

// Enabled reports whether the threshold was reached and the menu is active.
func (d *Dispatcher) Enabled() bool {
	return d.enabled.Load()
}

// Run waits for the threshold, then serves commands until exit or ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.waitUntilReady(ctx) {
		return nil
	}

	d.enabled.Store(true)
	d.log.Info("Command dispatcher enabled", zap.Int("events", d.store.Size()))
	fmt.Fprintf(d.out, "\n%d events received, commands enabled.\n", d.store.Size())

	for {
		fmt.Fprint(d.out, menu)
		line, ok := d.next(ctx)
		if !ok {
			return nil
		}

		switch strings.TrimSpace(line) {
		case "1":
			d.listInterval(ctx)
		case "2":
			d.activeTime(ctx)
		case "3":
			d.export()
		case "4":
			fmt.Fprintln(d.out, "Exiting.")
			d.shutdown("operator exit")
			return nil
		default:
			fmt.Fprintf(d.out, "Invalid option %q, try again.\n", strings.TrimSpace(line))
		}
	}
}

// waitUntilReady answers operator input with a notice until the store
// reaches its threshold. Returns false on shutdown.
func (d *Dispatcher) waitUntilReady(ctx context.Context) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case <-d.store.Ready():
			return true
		case line, ok := <-d.commands:
			if !ok {
				d.commands = nil
				continue
			}
			select {
			case <-d.store.Ready():
				d.pending = &line
				return true
			default:
			}
			fmt.Fprintf(d.out, "Commands are available once %d events are received (%d so far).\n",
				d.store.Threshold(), d.store.Size())
		}
	}
}

// next takes the following line from the queue. When the console is gone
// it waits for shutdown.
func (d *Dispatcher) next(ctx context.Context) (string, bool) {
	if d.pending != nil {
		line := *d.pending
		d.pending = nil
		return line, true
	}
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-d.commands:
		if ok {
			return line, true
		}
	}

	d.log.Info("No operator console, waiting for shutdown")
	<-ctx.Done()
	return "", false
}

// readClock prompts until the operator enters a valid time of day.
func (d *Dispatcher) readClock(ctx context.Context, prompt string) (aggregator.Clock, bool) {
	for {
		fmt.Fprintf(d.out, "%s (HH:MM:SS): ", prompt)
		line, ok := d.next(ctx)
		if !ok {
			return 0, false
		}
		c, err := aggregator.ParseClock(line)
		if err == nil {
			return c, true
		}
		fmt.Fprintf(d.out, "%v. Try again.\n", err)
	}
}

func (d *Dispatcher) readInterval(ctx context.Context) (aggregator.Interval, bool) {
	start, ok := d.readClock(ctx, "Start time")
	if !ok {
		return aggregator.Interval{}, false
	}
	end, ok := d.readClock(ctx, "End time")
	if !ok {
		return aggregator.Interval{}, false
	}

	iv, err := aggregator.NewInterval(start, end)
	if err != nil {
		fmt.Fprintf(d.out, "%v.\n", err)
		return aggregator.Interval{}, false
	}
	return iv, true
}

func (d *Dispatcher) listInterval(ctx context.Context) {
	iv, ok := d.readInterval(ctx)
	if !ok {
		return
	}

	events := aggregator.FilterInterval(d.store.Snapshot(), iv)
	fmt.Fprintf(d.out, "Events in %s:\n", iv)
	for _, ev := range events {
		fmt.Fprintf(d.out, "  %s\n", ev.LogLine())
	}
	fmt.Fprintf(d.out, "%d event(s).\n", len(events))
}

func (d *Dispatcher) activeTime(ctx context.Context) {
	iv, ok := d.readInterval(ctx)
	if !ok {
		return
	}

	result := aggregator.TotalActiveTime(d.store.Snapshot(), iv)
	fmt.Fprintf(d.out, "Active time in %s:\n", iv)
	for _, a := range result.Controllers {
		fmt.Fprintf(d.out, "  %s: %s (%s - %s, %d events)\n",
			a.ControllerID, a.Duration(), a.First, a.Last, a.Events)
	}
	fmt.Fprintf(d.out, "Total: %s\n", result.Total)
}

func (d *Dispatcher) export() {
	events := d.store.Snapshot()
	if err := eventlog.Export(d.config.ExportPath, events); err != nil {
		d.log.Error("Export failed", zap.String("path", d.config.ExportPath), zap.Error(err))
		fmt.Fprintf(d.out, "Export failed: %v\n", err)
		return
	}
	d.log.Info("Exported events", zap.String("path", d.config.ExportPath), zap.Int("count", len(events)))
	fmt.Fprintf(d.out, "Exported %d events to %s\n", len(events), d.config.ExportPath)
}
