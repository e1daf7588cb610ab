package wait

import (
	"context"
	"time"

	"github.com/cnv192/Auto-ShoppeAffilate-sub002/utils"
)

type Option struct {
	ctx         context.Context
	timeout     time.Duration
	backoffFunc utils.BackoffFunc
}

type OptionFunc func(*Option)
type Predicate[T any] func(*Context) (T, bool)

type Context struct {
	err      error
	ctx      context.Context
	abort    bool
	attempt  int64
	interval time.Duration
}

func (r *Context) Attempt() int64 {
	return r.attempt
}
func (r *Context) Interval() time.Duration {
	return r.interval
}
func (r *Context) Abort(err error) {
	r.abort = true
	r.err = err
}

func defaultOption() Option {
	return Option{
		ctx:         context.Background(),
		backoffFunc: utils.FixedDuration(utils.DefaultFixBackoffDuration),
	}
}
func wait(ctx context.Context, interval time.Duration) error {
	var timer = time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func WithCtx(ctx context.Context) OptionFunc {
	return func(o *Option) {
		o.ctx = ctx
	}
}
func WithTimeout(timeout time.Duration) OptionFunc {
	return func(o *Option) {
		o.timeout = timeout
	}
}
func WithBackoffFunc(f utils.BackoffFunc) OptionFunc {
	return func(o *Option) {
		if f != nil {
			o.backoffFunc = f
		}
	}
}

func Wait[T any](_func Predicate[T], opts ...OptionFunc) (t T, err error) {
	var defaultOpt = defaultOption()
	for _, opt := range opts {
		opt(&defaultOpt)
	}
	var ctx = defaultOpt.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if defaultOpt.timeout > 0 {
		_ctx, cancel := context.WithTimeout(ctx, defaultOpt.timeout)
		defer cancel()
		ctx = _ctx
	}
	var c = &Context{ctx: ctx}
	for {
		c.attempt++
		if defaultOpt.backoffFunc != nil {
			c.interval = defaultOpt.backoffFunc(c.attempt)
		}
		if v, ok := _func(c); c.abort || ok {
			return v, c.err
		}
		if c.interval > 0 {
			if err = wait(ctx, c.interval); err != nil {
				return
			}
		}
	}
}

// Sleep blocks for dur or until the context is canceled, whichever is first.
func Sleep(ctx context.Context, dur time.Duration) error {
	if dur <= 0 {
		return ctx.Err()
	}
	return wait(ctx, dur)
}
