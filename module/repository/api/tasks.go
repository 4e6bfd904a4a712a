package api

import (
	"context"
	"sync"
)

// Tasks tracks work a request starts in the background, such as release
// staging, so shutdown can wait for it.
type Tasks struct {
	wg sync.WaitGroup
}

// Go runs fn on its own goroutine with a context that is not cancelled with
// ctx. A nil Tasks runs fn inline.
func (t *Tasks) Go(ctx context.Context, fn func(ctx context.Context)) {
	ctx = context.WithoutCancel(ctx)
	if t == nil {
		fn(ctx)
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		fn(ctx)
	}()
}

// Wait blocks until every started task finished or ctx is done.
func (t *Tasks) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
