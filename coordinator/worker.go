package coordinator

import (
	"context"
	"errors"
	"fmt"

	fractal "github.com/marben/dist_fractal"
)

// worker renders jobs until the job queue is closed.
func (c *Coordinator) worker(id int) {
	defer c.wg.Done()

	for job := range c.jobs {
		c.busy.Add(1)
		out := c.run(job)
		c.busy.Add(-1)

		select {
		case c.results <- out:
		case <-c.closing:
		}
	}
	c.logger().Debug("worker stopped", "worker", id)
}

// run renders one job. Jobs of a cancelled generation are skipped.
func (c *Coordinator) run(job tileJob) tileOutcome {
	ctx := job.gen.ctx
	if err := ctx.Err(); err != nil {
		return tileOutcome{job: job, err: err}
	}
	if c.opts.tileTimeout <= 0 {
		res, err := c.render(ctx, job)
		return tileOutcome{job: job, res: res, err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.tileTimeout)
	defer cancel()

	// The renderer runs on its own goroutine so a call that ignores its
	// context cannot hold the worker past the deadline.
	ch := make(chan tileOutcome, 1)
	go func() {
		res, err := c.render(ctx, job)
		ch <- tileOutcome{job: job, res: res, err: err}
	}()

	select {
	case out := <-ch:
		if errors.Is(out.err, context.DeadlineExceeded) {
			out.err = c.timeoutError(job)
		}
		return out
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = c.timeoutError(job)
		}
		return tileOutcome{job: job, err: err}
	}
}

func (c *Coordinator) timeoutError(job tileJob) error {
	return fmt.Errorf("%w: %s after %s", ErrTileTimeout, job.band, c.opts.tileTimeout)
}

// render calls the renderer, turning a panic into an error.
func (c *Coordinator) render(ctx context.Context, job tileJob) (res fractal.TileResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrWorkerPanic, r)
		}
	}()
	return c.renderer.RenderTile(ctx, job.gen.req, job.band)
}
