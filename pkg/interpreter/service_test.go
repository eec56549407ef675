package interpreter

import (
	"testing"

	"github.com/NotCoffee418/serial_event_log/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		name string
		line string
		want types.Event
	}{
		{"plain", "C1 hello,08:00:00", types.Event{ControllerID: "C1", Payload: "hello", Timestamp: "08:00:00"}},
		{"carriage return", "C2 world,09:30:00\r", types.Event{ControllerID: "C2", Payload: "world", Timestamp: "09:30:00"}},
		{"payload with spaces", "C3 door open , 23:00:00", types.Event{ControllerID: "C3", Payload: "door open", Timestamp: "23:00:00"}},
		{"short clock", "C4 ping,0:0:6", types.Event{ControllerID: "C4", Payload: "ping", Timestamp: "0:0:6"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	lines := []string{
		"",
		"C1",
		"C1 hello",
		"C1 ,08:00:00",
		"C1 hello,",
		"C1 hello,25:00:00",
		"C1 hello,noon",
	}

	for _, line := range lines {
		_, err := Parse(line)
		assert.ErrorIs(t, err, ErrMalformed, "line %q", line)
	}
}

func TestParse_Checksum(t *testing.T) {
	body := "C1 hello,08:00:00"
	sum := Checksum(body)

	got, err := Parse(body + "*" + sum)
	require.NoError(t, err)
	assert.Equal(t, "08:00:00", got.Timestamp)

	bad := "0000"
	if sum == bad {
		bad = "FFFF"
	}
	_, err = Parse(body + "*" + bad)
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestNormalize(t *testing.T) {
	body := "C1 hello,08:00:00"

	assert.Equal(t, body, Normalize(body+"\r"))
	assert.Equal(t, body, Normalize(body+"*"+Checksum(body)))
	// payloads with an asterisk that is not a checksum are left alone
	assert.Equal(t, "C1 a*b,08:00:00", Normalize("C1 a*b,08:00:00"))
}
