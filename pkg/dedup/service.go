// Package dedup rejects lines that were already accepted.
package dedup

// Deduplicator remembers accepted lines. With a positive capacity only the
// most recent capacity lines are kept and the oldest is forgotten first.
// Not safe for concurrent use; the ingestion worker owns it.
type Deduplicator struct {
	seen     map[string]struct{}
	order    []string // ring of keys in acceptance order, bounded mode only
	next     int
	capacity int
}

// New creates a deduplicator. capacity <= 0 keeps every line for the
// lifetime of the process.
func New(capacity int) *Deduplicator {
	d := &Deduplicator{
		seen:     make(map[string]struct{}),
		capacity: capacity,
	}
	if capacity > 0 {
		d.order = make([]string, 0, capacity)
	}
	return d
}

// Accept reports whether line is seen for the first time and remembers it.
func (d *Deduplicator) Accept(line string) bool {
	if _, ok := d.seen[line]; ok {
		return false
	}
	d.seen[line] = struct{}{}

	if d.capacity <= 0 {
		return true
	}
	if len(d.order) < d.capacity {
		d.order = append(d.order, line)
		return true
	}

	// full, evict the oldest key
	delete(d.seen, d.order[d.next])
	d.order[d.next] = line
	d.next = (d.next + 1) % d.capacity
	return true
}

// Len returns the number of remembered lines.
func (d *Deduplicator) Len() int {
	return len(d.seen)
}
