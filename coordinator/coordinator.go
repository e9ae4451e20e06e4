// Package coordinator renders fractal images by splitting them into row
// bands and dispatching each band to a fixed pool of worker goroutines.
//
// Every Submit starts a new generation and makes it the only one whose
// tiles may reach the image: results of superseded generations are dropped
// when they arrive, and their undispatched bands are never run. The target
// image is written only by the coordinator's merge loop; workers exchange
// nothing with it but job and result messages.
package coordinator

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	fractal "github.com/marben/dist_fractal"
)

// Coordinator owns the worker pool and the target image of one viewer.
//
// Thread safety: all methods are safe for concurrent use.
type Coordinator struct {
	renderer fractal.Renderer
	sink     fractal.PixelSink
	opts     options

	ctx    context.Context
	cancel context.CancelFunc

	jobs     chan tileJob
	results  chan tileOutcome
	wake     chan struct{}
	closing  chan struct{}
	loopDone chan struct{}
	wg       sync.WaitGroup
	closed   atomic.Bool
	busy     atomic.Int32

	mu      sync.Mutex
	seq     uint64
	latest  *generation
	current atomic.Uint64 // id of latest, readable without mu

	imgMu sync.RWMutex
	img   *image.RGBA
}

// generation is the coordinator-side record of one submitted request.
// id, req, bands, ctx and done are fixed at Submit; outstanding and failed
// are owned by the merge loop.
type generation struct {
	id     fractal.GenerationID
	req    fractal.RenderRequest
	bands  []fractal.RowBand
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	remaining   atomic.Int64
	outstanding int
	failed      int
}

type tileJob struct {
	gen     *generation
	band    fractal.RowBand
	attempt int
}

type tileOutcome struct {
	job tileJob
	res fractal.TileResult
	err error
}

// New starts a coordinator with its worker pool. A nil sink discards tiles.
// Close must be called to release the workers.
func New(renderer fractal.Renderer, sink fractal.PixelSink, opts ...Option) *Coordinator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if sink == nil {
		sink = fractal.DiscardSink{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		renderer: renderer,
		sink:     sink,
		opts:     o,
		ctx:      ctx,
		cancel:   cancel,
		jobs:     make(chan tileJob, o.workers),
		results:  make(chan tileOutcome, o.workers),
		wake:     make(chan struct{}, 1),
		closing:  make(chan struct{}),
		loopDone: make(chan struct{}),
	}

	c.wg.Add(o.workers)
	for i := range o.workers {
		go c.worker(i)
	}
	go c.loop()

	c.logger().Info("coordinator started", "workers", o.workers, "tileTimeout", o.tileTimeout, "retries", o.retries)
	return c
}

func (c *Coordinator) logger() *slog.Logger {
	if c.opts.logger != nil {
		return c.opts.logger
	}
	return fractal.Logger()
}

// Submit validates req, assigns it a fresh generation and dispatches its
// bands. It never blocks on rendering. Any generation still in flight is
// superseded at once: its context is cancelled and its tiles are discarded.
//
// An invalid request is rejected without touching the current image or the
// generation in flight.
func (c *Coordinator) Submit(req fractal.RenderRequest) (fractal.GenerationID, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	if err := req.Validate(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	if c.latest != nil {
		c.latest.cancel()
	}
	c.seq++
	req.Generation = fractal.GenerationID(c.seq)
	ctx, cancel := context.WithCancel(c.ctx)
	g := &generation{
		id:     req.Generation,
		req:    req,
		bands:  SplitRows(req.Effective().PixelHeight, c.opts.workers),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	g.outstanding = len(g.bands)
	g.remaining.Store(int64(len(g.bands)))
	c.latest = g
	c.current.Store(uint64(g.id))
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}

	c.logger().Debug("render submitted", "generation", g.id, "set", req.Set, "bands", len(g.bands),
		"width", req.Effective().PixelWidth, "height", req.Effective().PixelHeight)
	return g.id, nil
}

// RenderViewport builds a request from individual parameters and submits it.
// juliaConstant is ignored for the Mandelbrot set.
func (c *Coordinator) RenderViewport(v fractal.Viewport, set fractal.SetKind, juliaConstant fractal.Complex,
	maxIterations int, hue, saturation float64, supersampling int) (fractal.GenerationID, error) {
	return c.Submit(fractal.RenderRequest{
		Viewport:      v,
		Set:           set,
		JuliaConstant: juliaConstant,
		MaxIterations: maxIterations,
		Hue:           hue,
		Saturation:    saturation,
		Supersampling: supersampling,
	})
}

// Wait blocks until the most recently submitted generation has no
// outstanding tiles. If that generation is superseded while waiting, Wait
// follows the newer one. It returns the id of the generation it resolved,
// with a *PartialRenderError when tiles of that generation failed.
func (c *Coordinator) Wait(ctx context.Context) (fractal.GenerationID, error) {
	for {
		if c.closed.Load() {
			return c.Generation(), ErrClosed
		}
		c.mu.Lock()
		g := c.latest
		c.mu.Unlock()
		if g == nil {
			return 0, nil
		}

		select {
		case <-g.done:
			if g.failed > 0 {
				return g.id, &PartialRenderError{Generation: g.id, Failed: g.failed, Total: len(g.bands)}
			}
			return g.id, nil
		case <-g.ctx.Done():
			// superseded or closed; look again
		case <-ctx.Done():
			return g.id, ctx.Err()
		}
	}
}

// Outstanding returns the number of tiles of the latest generation that have
// been neither painted nor given up on. Zero means idle.
func (c *Coordinator) Outstanding() int {
	c.mu.Lock()
	g := c.latest
	c.mu.Unlock()
	if g == nil {
		return 0
	}
	return int(g.remaining.Load())
}

// Generation returns the id of the latest submitted request, zero if none.
func (c *Coordinator) Generation() fractal.GenerationID {
	return fractal.GenerationID(c.current.Load())
}

// Workers returns the size of the worker pool.
func (c *Coordinator) Workers() int {
	return c.opts.workers
}

// Busy returns the number of workers currently rendering a tile.
func (c *Coordinator) Busy() int {
	return int(c.busy.Load())
}

// Snapshot returns a copy of the target image, or nil before the first
// render started. The image is at the effective (supersampled) resolution.
func (c *Coordinator) Snapshot() *image.RGBA {
	c.imgMu.RLock()
	defer c.imgMu.RUnlock()
	if c.img == nil {
		return nil
	}
	cp := image.NewRGBA(c.img.Rect)
	copy(cp.Pix, c.img.Pix)
	return cp
}

// Close stops the merge loop and terminates the workers. In-flight renders
// are cancelled. Close is safe to call multiple times.
func (c *Coordinator) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.cancel()
	close(c.closing)
	<-c.loopDone
	close(c.jobs)
	c.wg.Wait()
	c.logger().Info("coordinator closed")
}

// loop is the single owner of the target image. It adopts new generations,
// feeds their bands to the workers and merges the results.
func (c *Coordinator) loop() {
	defer close(c.loopDone)

	var (
		active  *generation
		pending []tileJob
	)
	for {
		var (
			jobs chan<- tileJob
			next tileJob
		)
		if len(pending) > 0 {
			jobs = c.jobs
			next = pending[0]
		}

		select {
		case <-c.closing:
			return

		case <-c.wake:
			c.mu.Lock()
			g := c.latest
			c.mu.Unlock()
			if g == nil || g == active {
				continue
			}
			if active != nil && len(pending) > 0 {
				c.logger().Debug("superseded render dropped", "generation", active.id, "undispatched", len(pending))
			}
			active = g
			pending = c.start(g)

		case jobs <- next:
			pending = pending[1:]

		case out := <-c.results:
			pending = c.merge(active, out, pending)
		}
	}
}

// start prepares the target image for g and returns one job per band.
func (c *Coordinator) start(g *generation) []tileJob {
	v := g.req.Effective()
	c.imgMu.Lock()
	if c.img == nil || c.img.Rect.Dx() != v.PixelWidth || c.img.Rect.Dy() != v.PixelHeight {
		c.img = image.NewRGBA(image.Rect(0, 0, v.PixelWidth, v.PixelHeight))
	}
	c.imgMu.Unlock()

	jobs := make([]tileJob, len(g.bands))
	for i, b := range g.bands {
		jobs[i] = tileJob{gen: g, band: b}
	}
	return jobs
}

// merge applies one worker outcome. Stale outcomes are dropped; failures
// are rescheduled until the retries are used up.
func (c *Coordinator) merge(active *generation, out tileOutcome, pending []tileJob) []tileJob {
	g := out.job.gen
	if g != active || uint64(g.id) != c.current.Load() {
		c.logger().Debug("stale tile dropped", "generation", g.id, "band", out.job.band)
		return pending
	}

	err := out.err
	if err == nil {
		err = c.checkResult(g, out)
	}

	if err != nil {
		if out.job.attempt < c.opts.retries {
			c.logger().Warn("tile failed, retrying", "generation", g.id, "band", out.job.band,
				"attempt", out.job.attempt+1, "err", err)
			job := out.job
			job.attempt++
			return append(pending, job)
		}
		c.logger().Warn("tile failed", "generation", g.id, "band", out.job.band, "err", err)
		g.failed++
		c.sink.TileFailed(g.id, out.job.band, err)
	} else {
		c.paint(out.res)
		c.sink.PaintTile(out.res)
	}

	g.outstanding--
	g.remaining.Store(int64(g.outstanding))
	if g.outstanding == 0 {
		close(g.done)
		c.logger().Debug("render finished", "generation", g.id, "failed", g.failed)
	}
	return pending
}

func (c *Coordinator) checkResult(g *generation, out tileOutcome) error {
	if out.res.Generation != g.id {
		return &mismatchError{want: g.id, got: out.res.Generation}
	}
	return out.res.CheckShape(out.job.band, g.req.Effective().PixelWidth)
}

// paint copies an accepted tile into the target image at its start row.
func (c *Coordinator) paint(res fractal.TileResult) {
	c.imgMu.Lock()
	copy(c.img.Pix[res.StartRow*c.img.Stride:], res.Pixels)
	c.imgMu.Unlock()
}
