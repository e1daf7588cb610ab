// Package context wraps a cancelable scope that components owning a
// start/stop lifecycle can tear down and inspect.
package context

import "context"

type CancelContext struct {
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context) *CancelContext {
	if parent == nil {
		parent = context.Background()
	}
	var c = &CancelContext{parent: parent}
	c.ctx, c.cancel = context.WithCancel(parent)
	return c
}

func (c *CancelContext) Ctx() context.Context {
	if c.ctx != nil {
		return c.ctx
	}
	return c.parent
}
func (c *CancelContext) Cancel() {
	if c.cancel != nil {
		c.cancel()
		c.ctx = nil
		c.cancel = nil
	}
}
func (c *CancelContext) Canceled() bool {
	return c.ctx == nil || c.cancel == nil
}
