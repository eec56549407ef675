// Package interpreter turns raw serial lines into events.
//
// A line looks like "C1 hello,08:00:00": the controller id, whitespace,
// the payload up to the first comma, then the time of day. Controllers
// may append "*XXXX", a CRC16/ARC checksum in hex over everything before
// the asterisk.
package interpreter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NotCoffee418/serial_event_log/pkg/aggregator"
	"github.com/NotCoffee418/serial_event_log/pkg/types"
	"github.com/sigurn/crc16"
)

var (
	ErrMalformed = errors.New("malformed line")
	ErrChecksum  = errors.New("checksum mismatch")
)

var crcTable = crc16.MakeTable(crc16.CRC16_ARC)

// Checksum computes the suffix a controller appends to data.
func Checksum(data string) string {
	return fmt.Sprintf("%04X", crc16.Checksum([]byte(data), crcTable))
}

// Normalize strips surrounding whitespace (including a serial "\r") and a
// trailing checksum. Two transmissions of the same event normalize equal.
func Normalize(line string) string {
	line = strings.TrimSpace(line)
	if body, _, ok := splitChecksum(line); ok {
		return strings.TrimSpace(body)
	}
	return line
}

// Parse a raw line into an event.
// Errors wrap ErrMalformed, or ErrChecksum for a corrupted transmission.
func Parse(line string) (types.Event, error) {
	line = strings.TrimSpace(line)
	if body, sum, ok := splitChecksum(line); ok {
		if !strings.EqualFold(Checksum(body), sum) {
			return types.Event{}, fmt.Errorf("%w: %q", ErrChecksum, line)
		}
		line = strings.TrimSpace(body)
	}

	controllerID, rest, ok := strings.Cut(line, " ")
	if !ok {
		return types.Event{}, fmt.Errorf("%w: no controller id in %q", ErrMalformed, line)
	}

	payload, timestamp, ok := strings.Cut(strings.TrimSpace(rest), ",")
	if !ok {
		return types.Event{}, fmt.Errorf("%w: no timestamp in %q", ErrMalformed, line)
	}

	event := types.Event{
		ControllerID: controllerID,
		Payload:      strings.TrimSpace(payload),
		Timestamp:    strings.TrimSpace(timestamp),
	}
	if !event.Valid() {
		return types.Event{}, fmt.Errorf("%w: empty field in %q", ErrMalformed, line)
	}

	if _, err := aggregator.ParseClock(event.Timestamp); err != nil {
		return types.Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return event, nil
}

// splitChecksum finds a "*XXXX" hex suffix.
func splitChecksum(line string) (body, sum string, ok bool) {
	i := strings.LastIndexByte(line, '*')
	if i < 0 || len(line)-i != 5 {
		return "", "", false
	}
	sum = line[i+1:]
	for _, c := range sum {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return "", "", false
		}
	}
	return line[:i], sum, true
}
