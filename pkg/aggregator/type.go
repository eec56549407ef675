package aggregator

import "time"

// Interval is a closed range of times of day, [Start, End].
type Interval struct {
	Start Clock
	End   Clock
}

// ControllerActivity is the active span of one controller inside an interval.
type ControllerActivity struct {
	ControllerID string
	First        Clock
	Last         Clock
	Events       int
}

func (a ControllerActivity) Duration() time.Duration {
	return time.Duration(a.Last - a.First)
}

// ActiveTime is the result of an active time query.
type ActiveTime struct {
	Interval    Interval
	Total       time.Duration
	Controllers []ControllerActivity // in order of first appearance
}
