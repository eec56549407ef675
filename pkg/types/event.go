package types

import "fmt"

// Event is one record received from a controller on the serial link.
// Timestamp is kept in its wire format (HH:MM:SS).
type Event struct {
	ControllerID string `json:"controller_id"`
	Payload      string `json:"payload"`
	Timestamp    string `json:"timestamp"`
}

// Valid reports whether every field is set.
// Events failing this check must never be stored.
func (e Event) Valid() bool {
	return e.ControllerID != "" && e.Payload != "" && e.Timestamp != ""
}

// WireLine renders the event the way a controller sends it, without the
// trailing newline or checksum. Used to seed deduplication from history.
func (e Event) WireLine() string {
	return fmt.Sprintf("%s %s,%s", e.ControllerID, e.Payload, e.Timestamp)
}

// LogLine renders the event as one line of the persisted event log.
func (e Event) LogLine() string {
	return fmt.Sprintf("Controller: %s, Payload: %s, Timestamp: %s",
		e.ControllerID, e.Payload, e.Timestamp)
}

func (e Event) String() string {
	return e.LogLine()
}
