package eventstore

import (
	"errors"
	"fmt"

	"github.com/NotCoffee418/serial_event_log/pkg/types"
)

var (
	ErrClosed       = errors.New("event store closed")
	ErrInvalidEvent = errors.New("event has empty fields")
	ErrStaleDrain   = errors.New("drain does not match persisted cursor")
	ErrRestore      = errors.New("restore into non-empty store")
)

// New creates a store whose Ready channel closes once it holds threshold events.
func New(threshold int) *Store {
	if threshold < 1 {
		threshold = 1
	}
	return &Store{
		threshold: threshold,
		ready:     make(chan struct{}),
		newEvents: make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Restore loads events persisted by a previous run. They count towards the
// threshold but are never drained again. Only valid before the first Append.
func (s *Store) Restore(events []types.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) != 0 {
		return ErrRestore
	}
	for i, ev := range events {
		if !ev.Valid() {
			return fmt.Errorf("%w: restored event %d", ErrInvalidEvent, i)
		}
	}
	s.events = append(s.events, events...)
	s.persisted = len(s.events)
	s.checkThresholdLocked()
	return nil
}

// Append adds an accepted event and wakes the persistence side.
func (s *Store) Append(ev types.Event) error {
	if !ev.Valid() {
		return ErrInvalidEvent
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.events = append(s.events, ev)
	s.checkThresholdLocked()
	s.mu.Unlock()

	select {
	case s.newEvents <- struct{}{}:
	default:
		// a wakeup is already pending
	}
	return nil
}

func (s *Store) checkThresholdLocked() {
	if len(s.events) >= s.threshold {
		s.readyOnce.Do(func() { close(s.ready) })
	}
}

// Snapshot returns a copy of every event in acceptance order.
func (s *Store) Snapshot() []types.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Persisted returns how many events have been committed to durable storage.
func (s *Store) Persisted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persisted
}

// Pending returns how many events wait for persistence.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events) - s.persisted
}

// DrainNew returns the events after the persisted cursor without marking
// them. Call Commit once they are durably written; until then the same
// events are returned again. May be empty.
func (s *Store) DrainNew() Drain {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.events[s.persisted:]
	d := Drain{Start: s.persisted, Events: make([]types.Event, len(pending))}
	copy(d.Events, pending)
	return d
}

// Commit marks the drained events as persisted.
func (s *Store) Commit(d Drain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.Start != s.persisted || d.End() > len(s.events) {
		return fmt.Errorf("%w: drain [%d,%d) cursor %d size %d",
			ErrStaleDrain, d.Start, d.End(), s.persisted, len(s.events))
	}
	s.persisted = d.End()
	return nil
}

// Close stops further appends. Events already accepted stay drainable.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}

func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// NewEvents delivers a value after appends. Several appends may share one
// wakeup, and a wakeup may find nothing left to drain.
func (s *Store) NewEvents() <-chan struct{} {
	return s.newEvents
}

// Ready is closed the first time the store holds threshold events.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Done is closed by Close.
func (s *Store) Done() <-chan struct{} {
	return s.done
}

func (s *Store) Threshold() int {
	return s.threshold
}
