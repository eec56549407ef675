package eventstore

import (
	"sync"

	"github.com/NotCoffee418/serial_event_log/pkg/types"
)

// Store is the ordered collection of accepted events shared by the
// ingestion, persistence and command goroutines.
//
// Events are never removed. Persistence is tracked by a cursor: every event
// before it has been written to durable storage.
type Store struct {
	mu        sync.Mutex
	events    []types.Event
	persisted int
	closed    bool

	threshold int
	ready     chan struct{} // closed once len(events) >= threshold
	readyOnce sync.Once
	newEvents chan struct{} // capacity 1, coalesces wakeups
	done      chan struct{} // closed by Close
}

// Drain is a batch of not yet persisted events.
// Start is the sequence number (store position) of the first event.
type Drain struct {
	Start  int
	Events []types.Event
}

// End returns the sequence number following the last event in the batch.
func (d Drain) End() int {
	return d.Start + len(d.Events)
}

func (d Drain) Empty() bool {
	return len(d.Events) == 0
}
