package worker

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Pool bounds how many delivery tasks of one fan-out run at once.
type Pool struct {
	numWorkers int
	logger     *slog.Logger
}

// NewPool creates a pool that runs at most numWorkers tasks concurrently.
func NewPool(numWorkers int, logger *slog.Logger) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Pool{
		numWorkers: numWorkers,
		logger:     logger,
	}
}

// Size returns the concurrency bound.
func (p *Pool) Size() int {
	return p.numWorkers
}

// Run calls task(ctx, i) for every i in [0, n) and returns once all of them
// have finished. Tasks never cancel one another: a panicking or slow task
// does not stop its siblings.
func (p *Pool) Run(ctx context.Context, n int, task func(ctx context.Context, i int)) {
	if n == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(p.numWorkers)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("delivery task panicked", "index", i, "panic", r)
				}
			}()
			task(ctx, i)
			return nil
		})
	}

	_ = g.Wait()
}
