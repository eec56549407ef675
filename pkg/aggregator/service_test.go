package aggregator

import (
	"bytes"
	"testing"
	"time"

	"github.com/NotCoffee418/serial_event_log/pkg/types"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenarioEvents = []types.Event{
	{ControllerID: "C1", Payload: "hello", Timestamp: "08:00:00"},
	{ControllerID: "C2", Payload: "world", Timestamp: "09:30:00"},
	{ControllerID: "C3", Payload: "bye", Timestamp: "23:00:00"},
}

func TestFilterInterval_KeepsAcceptanceOrder(t *testing.T) {
	iv, err := ParseInterval("08:00:00", "10:00:00")
	require.NoError(t, err)

	got := FilterInterval(scenarioEvents, iv)

	assert.Equal(t, scenarioEvents[:2], got)
}

func TestFilterInterval_BoundsInclusive(t *testing.T) {
	iv, err := ParseInterval("09:30:00", "23:00:00")
	require.NoError(t, err)

	assert.Equal(t, scenarioEvents[1:], FilterInterval(scenarioEvents, iv))
}

func TestFilterInterval_SkipsUnreadableTimestamps(t *testing.T) {
	events := append([]types.Event{{ControllerID: "X", Payload: "p", Timestamp: "later"}}, scenarioEvents...)
	iv, err := ParseInterval("0:0:0", "23:59:59")
	require.NoError(t, err)

	assert.Equal(t, scenarioEvents, FilterInterval(events, iv))
}

func TestParseInterval_Errors(t *testing.T) {
	_, err := ParseInterval("10:00:00", "08:00:00")
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = ParseInterval("2024-01-01", "08:00:00")
	assert.ErrorIs(t, err, ErrInvalidClock)

	_, err = ParseInterval("08:00:00", "x")
	assert.ErrorIs(t, err, ErrInvalidClock)
}

func TestTotalActiveTime(t *testing.T) {
	events := []types.Event{
		{ControllerID: "C1", Payload: "on", Timestamp: "08:00:00"},
		{ControllerID: "C2", Payload: "on", Timestamp: "08:30:00"},
		{ControllerID: "C1", Payload: "off", Timestamp: "09:15:00"},
		{ControllerID: "C2", Payload: "off", Timestamp: "08:45:00"},
		{ControllerID: "C1", Payload: "late", Timestamp: "22:00:00"},
		{ControllerID: "C3", Payload: "once", Timestamp: "09:00:00"},
	}
	iv, err := ParseInterval("08:00:00", "10:00:00")
	require.NoError(t, err)

	got := TotalActiveTime(events, iv)

	assert.Equal(t, 75*time.Minute+15*time.Minute, got.Total)
	require.Len(t, got.Controllers, 3)
	assert.Equal(t, "C1", got.Controllers[0].ControllerID)
	assert.Equal(t, 75*time.Minute, got.Controllers[0].Duration())
	assert.Equal(t, 2, got.Controllers[0].Events)
	assert.Equal(t, 15*time.Minute, got.Controllers[1].Duration())
	assert.Equal(t, time.Duration(0), got.Controllers[2].Duration())
}

func TestTotalActiveTime_Empty(t *testing.T) {
	iv, err := ParseInterval("00:00:00", "01:00:00")
	require.NoError(t, err)

	got := TotalActiveTime(scenarioEvents, iv)

	assert.Zero(t, got.Total)
	assert.Empty(t, got.Controllers)
}

func TestRenderCSV(t *testing.T) {
	events := []types.Event{
		scenarioEvents[0],
		scenarioEvents[1],
		{ControllerID: "C3", Payload: "door open, left", Timestamp: "23:00:00"},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderCSV(&buf, events))

	g := goldie.New(t)
	g.Assert(t, "export_snapshot", buf.Bytes())
}
