// Package shutdown coordinates the single, one-way stop of the collector.
package shutdown

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Coordinator owns the shutdown flag. Request sets it once, runs the
// registered hooks in order and then cancels Context.
type Coordinator struct {
	ctx    context.Context
	cancel context.CancelFunc

	requested atomic.Bool
	once      sync.Once

	mu     sync.Mutex
	hooks  []func()
	reason string

	log *zap.Logger
}

// New creates a coordinator. Cancelling parent (for example on SIGINT)
// counts as a shutdown request.
func New(parent context.Context, log *zap.Logger) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{ctx: ctx, cancel: cancel, log: log}

	go func() {
		select {
		case <-parent.Done():
			c.Request("interrupted")
		case <-ctx.Done():
		}
	}()
	return c
}

// OnShutdown registers fn to run when shutdown is requested.
// Hooks registered after the request run immediately.
func (c *Coordinator) OnShutdown(fn func()) {
	c.mu.Lock()
	if !c.requested.Load() {
		c.hooks = append(c.hooks, fn)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	fn()
}

// Request sets the flag. Only the first call has an effect.
func (c *Coordinator) Request(reason string) {
	c.once.Do(func() {
		c.mu.Lock()
		c.requested.Store(true)
		c.reason = reason
		hooks := c.hooks
		c.hooks = nil
		c.mu.Unlock()

		c.log.Info("Shutdown requested", zap.String("reason", reason))
		for _, fn := range hooks {
			fn()
		}
		c.cancel()
	})
}

// Requested reports whether shutdown has been requested.
func (c *Coordinator) Requested() bool {
	return c.requested.Load()
}

// Reason returns the reason given to the first Request.
func (c *Coordinator) Reason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// Context is cancelled after every hook has run.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

func (c *Coordinator) Done() <-chan struct{} {
	return c.ctx.Done()
}
