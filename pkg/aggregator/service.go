package aggregator

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/NotCoffee418/serial_event_log/pkg/types"
)

var ErrInvalidInterval = errors.New("invalid interval")

// ParseInterval reads both bounds and checks that start is not after end.
func ParseInterval(start, end string) (Interval, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Interval{}, err
	}
	return NewInterval(s, e)
}

// NewInterval checks that start is not after end.
func NewInterval(start, end Clock) (Interval, error) {
	if start > end {
		return Interval{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidInterval, start, end)
	}
	return Interval{Start: start, End: end}, nil
}

func (iv Interval) Contains(c Clock) bool {
	return c >= iv.Start && c <= iv.End
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%s, %s]", iv.Start, iv.End)
}

// FilterInterval returns the events whose timestamp lies in the interval,
// keeping their acceptance order. Events with an unreadable timestamp are skipped.
func FilterInterval(events []types.Event, iv Interval) []types.Event {
	var out []types.Event
	for _, ev := range events {
		c, err := ParseClock(ev.Timestamp)
		if err != nil {
			continue
		}
		if iv.Contains(c) {
			out = append(out, ev)
		}
	}
	return out
}

// TotalActiveTime sums, per controller, the span between its earliest and
// latest event inside the interval.
func TotalActiveTime(events []types.Event, iv Interval) ActiveTime {
	result := ActiveTime{Interval: iv}
	index := make(map[string]int)

	for _, ev := range events {
		c, err := ParseClock(ev.Timestamp)
		if err != nil || !iv.Contains(c) {
			continue
		}

		i, ok := index[ev.ControllerID]
		if !ok {
			index[ev.ControllerID] = len(result.Controllers)
			result.Controllers = append(result.Controllers, ControllerActivity{
				ControllerID: ev.ControllerID,
				First:        c,
				Last:         c,
				Events:       1,
			})
			continue
		}

		activity := &result.Controllers[i]
		activity.Events++
		if c < activity.First {
			activity.First = c
		}
		if c > activity.Last {
			activity.Last = c
		}
	}

	var total time.Duration
	for _, a := range result.Controllers {
		total += a.Duration()
	}
	result.Total = total
	return result
}

// RenderCSV writes the events with a header row.
func RenderCSV(w io.Writer, events []types.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"controller_id", "payload", "timestamp"}); err != nil {
		return err
	}
	for _, ev := range events {
		if err := cw.Write([]string{ev.ControllerID, ev.Payload, ev.Timestamp}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
