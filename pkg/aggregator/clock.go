package aggregator

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidClock = errors.New("invalid time of day")

// H:MM:SS or HH:MM:SS, optionally followed by AM/PM
var clockPattern = regexp.MustCompile(`^(\d{1,2}):(\d{1,2}):(\d{1,2})(?:\s*([AaPp][Mm]))?$`)

// Clock is a time of day, stored as the offset from midnight.
type Clock time.Duration

// ParseClock parses the canonical HH:MM:SS form.
// Single digit fields ("0:0:6") and a 12-hour AM/PM suffix are accepted too.
func ParseClock(s string) (Clock, error) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("%w: %q, expected HH:MM:SS", ErrInvalidClock, s)
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	second, _ := strconv.Atoi(m[3])

	if period := strings.ToUpper(m[4]); period != "" {
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("%w: %q, 12-hour clock needs hour 1-12", ErrInvalidClock, s)
		}
		if period == "PM" && hour != 12 {
			hour += 12
		} else if period == "AM" && hour == 12 {
			hour = 0
		}
	}

	if hour > 23 || minute > 59 || second > 59 {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidClock, s)
	}

	d := time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second
	return Clock(d), nil
}

// String formats the clock as HH:MM:SS.
func (c Clock) String() string {
	total := int(time.Duration(c) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}
