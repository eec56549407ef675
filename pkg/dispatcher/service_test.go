package dispatcher

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NotCoffee418/serial_event_log/pkg/eventstore"
	"github.com/NotCoffee418/serial_event_log/pkg/types"
)

var scenario = []types.Event{
	{ControllerID: "C1", Payload: "hello", Timestamp: "08:00:00"},
	{ControllerID: "C2", Payload: "world", Timestamp: "09:30:00"},
	{ControllerID: "C3", Payload: "bye", Timestamp: "23:00:00"},
}

// syncBuffer lets the test read output while the dispatcher writes it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	store    *eventstore.Store
	commands chan string
	out      *syncBuffer
	d        *Dispatcher
	reasons  chan string
	done     chan error
	cancel   context.CancelFunc
}

func start(t *testing.T, exportPath string) *harness {
	t.Helper()
	h := &harness{
		store:    eventstore.New(3),
		commands: make(chan string),
		out:      &syncBuffer{},
		reasons:  make(chan string, 1),
		done:     make(chan error, 1),
	}
	h.d = New(h.store, h.commands, h.out, Config{ExportPath: exportPath},
		func(reason string) { h.reasons <- reason }, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	t.Cleanup(cancel)
	go func() { h.done <- h.d.Run(ctx) }()
	return h
}

func (h *harness) send(t *testing.T, lines ...string) {
	t.Helper()
	for _, l := range lines {
		select {
		case h.commands <- l:
		case <-time.After(2 * time.Second):
			t.Fatalf("dispatcher did not take %q", l)
		}
	}
}

func (h *harness) fill(t *testing.T) {
	t.Helper()
	for _, ev := range scenario {
		require.NoError(t, h.store.Append(ev))
	}
}

func (h *harness) wait(t *testing.T) {
	t.Helper()
	select {
	case err := <-h.done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not return")
	}
}

func TestDisabledBelowThreshold(t *testing.T) {
	h := start(t, "")
	require.NoError(t, h.store.Append(scenario[0]))
	require.NoError(t, h.store.Append(scenario[1]))

	h.send(t, "1")
	assert.Eventually(t, func() bool {
		return strings.Contains(h.out.String(), "available once 3 events are received (2 so far)")
	}, time.Second, 5*time.Millisecond)
	assert.False(t, h.d.Enabled())
	assert.NotContains(t, h.out.String(), "===== Menu =====")

	require.NoError(t, h.store.Append(scenario[2]))
	assert.Eventually(t, h.d.Enabled, time.Second, 5*time.Millisecond)
}

func TestListInterval(t *testing.T) {
	h := start(t, "")
	h.fill(t)

	h.send(t, "1", "08:00:00", "10:00:00", "4")
	h.wait(t)

	out := h.out.String()
	assert.Contains(t, out, "Events in [08:00:00, 10:00:00]:\n"+
		"  Controller: C1, Payload: hello, Timestamp: 08:00:00\n"+
		"  Controller: C2, Payload: world, Timestamp: 09:30:00\n"+
		"2 event(s).\n")
	assert.NotContains(t, out, "Payload: bye")
	assert.Equal(t, "operator exit", <-h.reasons)
}

func TestInvalidInputReprompts(t *testing.T) {
	h := start(t, "")
	h.fill(t)

	h.send(t, "9", "1", "8 o'clock", "8:0:0", "7:00:00")
	h.send(t, "2", "00:00:00", "23:59:59", "4")
	h.wait(t)

	out := h.out.String()
	assert.Contains(t, out, `Invalid option "9"`)
	assert.Contains(t, out, "invalid time of day")
	assert.Contains(t, out, "invalid interval")
	assert.Contains(t, out, "Total: 0s")
	assert.Equal(t, 4, strings.Count(out, "===== Menu ====="))
}

func TestActiveTime(t *testing.T) {
	h := start(t, "")
	h.fill(t)
	require.NoError(t, h.store.Append(types.Event{ControllerID: "C1", Payload: "off", Timestamp: "08:30:00"}))

	h.send(t, "2", "08:00:00", "10:00:00", "4")
	h.wait(t)

	out := h.out.String()
	assert.Contains(t, out, "C1: 30m0s (08:00:00 - 08:30:00, 2 events)")
	assert.Contains(t, out, "C2: 0s")
	assert.Contains(t, out, "Total: 30m0s")
}

func TestExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	h := start(t, path)
	h.fill(t)

	h.send(t, "3", "4")
	h.wait(t)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "controller_id,payload,timestamp\n"+
		"C1,hello,08:00:00\nC2,world,09:30:00\nC3,bye,23:00:00\n", string(content))
	assert.Contains(t, h.out.String(), "Exported 3 events to "+path)
}

func TestExportFailureKeepsRunning(t *testing.T) {
	h := start(t, filepath.Join(t.TempDir(), "missing", "export.csv"))
	h.fill(t)

	h.send(t, "3", "4")
	h.wait(t)

	assert.Contains(t, h.out.String(), "Export failed")
	assert.Equal(t, "operator exit", <-h.reasons)
}

func TestShutdownWhileWaiting(t *testing.T) {
	h := start(t, "")

	h.cancel()
	h.wait(t)
	assert.False(t, h.d.Enabled())
}

func TestConsoleClosedWaitsForShutdown(t *testing.T) {
	h := start(t, "")
	h.fill(t)
	assert.Eventually(t, h.d.Enabled, time.Second, 5*time.Millisecond)

	close(h.commands)
	select {
	case <-h.done:
		t.Fatal("closed console must not stop the dispatcher")
	case <-time.After(50 * time.Millisecond):
	}

	h.cancel()
	h.wait(t)
}

// Appends racing with the dispatcher enable it exactly once.
func TestEnabledOnceUnderConcurrentAppends(t *testing.T) {
	h := start(t, "")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.store.Append(types.Event{ControllerID: "C", Payload: "p", Timestamp: "01:00:00"}))
		}()
	}
	wg.Wait()

	assert.Eventually(t, h.d.Enabled, time.Second, 5*time.Millisecond)
	h.send(t, "4")
	h.wait(t)
	assert.Equal(t, 1, strings.Count(h.out.String(), "commands enabled"))
}

func TestReadCommands(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := ReadCommands(ctx, strings.NewReader("1\n08:00:00\n4\n"), zap.NewNop())

	var got []string
	for line := range queue {
		got = append(got, line)
	}
	assert.Equal(t, []string{"1", "08:00:00", "4"}, got)
}

// A command queued before the dispatcher noticed the threshold is run, not
// answered with the waiting notice.
func TestQueuedCommandAfterThresholdIsKept(t *testing.T) {
	for i := 0; i < 200; i++ {
		store := eventstore.New(3)
		for _, ev := range scenario {
			require.NoError(t, store.Append(ev))
		}
		commands := make(chan string, 1)
		commands <- "4"
		reasons := make(chan string, 1)
		out := &syncBuffer{}
		d := New(store, commands, out, Config{},
			func(reason string) { reasons <- reason }, zap.NewNop())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- d.Run(ctx) }()

		select {
		case reason := <-reasons:
			assert.Equal(t, "operator exit", reason)
		case <-time.After(2 * time.Second):
			cancel()
			t.Fatalf("run %d: exit command was dropped, output %q", i, out.String())
		}
		require.NoError(t, <-done)
		assert.NotContains(t, out.String(), "Commands are available once")
		cancel()
	}
}
