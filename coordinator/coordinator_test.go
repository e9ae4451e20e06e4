package coordinator

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	fractal "github.com/marben/dist_fractal"
	"github.com/marben/dist_fractal/render"
)

// recordingSink collects everything a coordinator delivers.
type recordingSink struct {
	mu      sync.Mutex
	painted []fractal.TileResult
	failed  []error
}

func (s *recordingSink) PaintTile(res fractal.TileResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.painted = append(s.painted, res)
}

func (s *recordingSink) TileFailed(_ fractal.GenerationID, _ fractal.RowBand, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, err)
}

func (s *recordingSink) snapshot() ([]fractal.TileResult, []error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]fractal.TileResult(nil), s.painted...), append([]error(nil), s.failed...)
}

// fillTile returns a tile whose color bytes all equal the generation id.
func fillTile(req fractal.RenderRequest, band fractal.RowBand) fractal.TileResult {
	w := req.Effective().PixelWidth
	pix := make([]byte, 4*w*band.RowCount)
	for i := range pix {
		pix[i] = byte(req.Generation)
	}
	return fractal.TileResult{
		Generation: req.Generation,
		StartRow:   band.StartRow,
		RowCount:   band.RowCount,
		Width:      w,
		Pixels:     pix,
	}
}

type rendererFunc func(ctx context.Context, req fractal.RenderRequest, band fractal.RowBand) (fractal.TileResult, error)

func (f rendererFunc) RenderTile(ctx context.Context, req fractal.RenderRequest, band fractal.RowBand) (fractal.TileResult, error) {
	return f(ctx, req, band)
}

var filler = rendererFunc(func(_ context.Context, req fractal.RenderRequest, band fractal.RowBand) (fractal.TileResult, error) {
	return fillTile(req, band), nil
})

func smallRequest() fractal.RenderRequest {
	return fractal.RenderRequest{
		Viewport:      fractal.FullSet.Viewport(32, 24),
		Set:           fractal.Mandelbrot,
		MaxIterations: 50,
		Hue:           0.5,
		Saturation:    0.5,
		Supersampling: 1,
	}
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func paintedRows(tiles []fractal.TileResult) int {
	rows := 0
	for _, tile := range tiles {
		rows += tile.RowCount
	}
	return rows
}

func TestCoordinatorEndToEnd(t *testing.T) {
	sink := &recordingSink{}
	c := New(render.RendererImpl{}, sink, WithWorkers(8))
	defer c.Close()

	v := fractal.Viewport{CenterRe: -0.75, CenterIm: 0, HeightInUnits: 3, PixelWidth: 640, PixelHeight: 480}
	gen, err := c.RenderViewport(v, fractal.Mandelbrot, fractal.Complex{}, 100, 0.66, 0.5, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Wait(waitCtx(t)); err != nil {
		t.Fatalf("Wait() = %v", err)
	}
	if c.Outstanding() != 0 {
		t.Errorf("Outstanding() = %d after Wait, want 0", c.Outstanding())
	}

	painted, failed := sink.snapshot()
	if len(failed) != 0 {
		t.Errorf("failed tiles: %v", failed)
	}
	if len(painted) != 8 || paintedRows(painted) != 480 {
		t.Errorf("painted %d tiles covering %d rows, want 8 covering 480", len(painted), paintedRows(painted))
	}
	for _, tile := range painted {
		if tile.Generation != gen {
			t.Errorf("tile of generation %d painted, want %d", tile.Generation, gen)
		}
	}

	img := c.Snapshot()
	if len(img.Pix) != 640*480*4 {
		t.Fatalf("image has %d bytes, want %d", len(img.Pix), 640*480*4)
	}
	tr := render.NewTransform(v)
	fx, fy := tr.PlaneToPixel(fractal.Complex{Re: -1})
	px := img.RGBAAt(int(math.Round(fx)), int(math.Round(fy)))
	if px.R != 0 || px.G != 0 || px.B != 0 || px.A != 255 {
		t.Errorf("pixel near -1+0i = %v, want opaque black", px)
	}
}

func TestCoordinatorDiscardsSupersededTiles(t *testing.T) {
	const workers = 4
	release := make(chan struct{})
	var entered sync.WaitGroup
	entered.Add(workers)

	// Generation 1 tiles block until released and ignore cancellation, the
	// worst case for a stale result arriving late.
	r := rendererFunc(func(_ context.Context, req fractal.RenderRequest, band fractal.RowBand) (fractal.TileResult, error) {
		if req.Generation == 1 {
			entered.Done()
			<-release
		}
		return fillTile(req, band), nil
	})

	sink := &recordingSink{}
	c := New(r, sink, WithWorkers(workers))
	defer c.Close()

	g1, err := c.Submit(smallRequest())
	if err != nil {
		t.Fatal(err)
	}
	entered.Wait()

	g2, err := c.Submit(smallRequest())
	if err != nil {
		t.Fatal(err)
	}
	if g2 <= g1 {
		t.Fatalf("generation ids not increasing: %d then %d", g1, g2)
	}
	if c.Generation() != g2 {
		t.Errorf("Generation() = %d, want %d", c.Generation(), g2)
	}
	close(release)

	if _, err := c.Wait(waitCtx(t)); err != nil {
		t.Fatalf("Wait() = %v", err)
	}

	painted, _ := sink.snapshot()
	for _, tile := range painted {
		if tile.Generation != g2 {
			t.Errorf("tile %v of generation %d painted after %d was submitted", tile.Band(), tile.Generation, g2)
		}
	}
	if paintedRows(painted) != 24 {
		t.Errorf("painted %d rows, want 24", paintedRows(painted))
	}
	for i, b := range c.Snapshot().Pix {
		if b != byte(g2) {
			t.Fatalf("image byte %d = %d, want %d", i, b, g2)
		}
	}
}

func TestCoordinatorRetriesFailedTile(t *testing.T) {
	var calls sync.Map
	r := rendererFunc(func(_ context.Context, req fractal.RenderRequest, band fractal.RowBand) (fractal.TileResult, error) {
		if _, seen := calls.LoadOrStore(band, true); !seen {
			return fractal.TileResult{}, errors.New("worker crashed")
		}
		return fillTile(req, band), nil
	})

	sink := &recordingSink{}
	c := New(r, sink, WithWorkers(3), WithRetries(1))
	defer c.Close()

	if _, err := c.Submit(smallRequest()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Wait(waitCtx(t)); err != nil {
		t.Fatalf("Wait() = %v, want nil after retries", err)
	}
	painted, failed := sink.snapshot()
	if len(failed) != 0 || paintedRows(painted) != 24 {
		t.Errorf("painted %d rows with %d failures, want 24 and 0", paintedRows(painted), len(failed))
	}
}

func TestCoordinatorPartialRender(t *testing.T) {
	r := rendererFunc(func(_ context.Context, req fractal.RenderRequest, band fractal.RowBand) (fractal.TileResult, error) {
		if band.StartRow == 0 {
			return fractal.TileResult{}, errors.New("always fails")
		}
		return fillTile(req, band), nil
	})

	sink := &recordingSink{}
	c := New(r, sink, WithWorkers(4), WithRetries(2))
	defer c.Close()

	gen, err := c.Submit(smallRequest())
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Wait(waitCtx(t))
	var perr *PartialRenderError
	if !errors.As(err, &perr) {
		t.Fatalf("Wait() = %v, want *PartialRenderError", err)
	}
	if perr.Generation != gen || perr.Failed != 1 || perr.Total != 4 {
		t.Errorf("PartialRenderError = %+v", perr)
	}

	painted, failed := sink.snapshot()
	if len(failed) != 1 {
		t.Errorf("TileFailed called %d times, want 1", len(failed))
	}
	if paintedRows(painted) != 18 {
		t.Errorf("painted %d rows, want 18 (all but the failed band)", paintedRows(painted))
	}
}

func TestCoordinatorRecoversPanics(t *testing.T) {
	r := rendererFunc(func(context.Context, fractal.RenderRequest, fractal.RowBand) (fractal.TileResult, error) {
		panic("boom")
	})
	sink := &recordingSink{}
	c := New(r, sink, WithWorkers(2), WithRetries(0))
	defer c.Close()

	if _, err := c.Submit(smallRequest()); err != nil {
		t.Fatal(err)
	}
	var perr *PartialRenderError
	if _, err := c.Wait(waitCtx(t)); !errors.As(err, &perr) || perr.Failed != 2 {
		t.Fatalf("Wait() = %v, want 2 failed tiles", err)
	}
	_, failed := sink.snapshot()
	for _, err := range failed {
		if !errors.Is(err, ErrWorkerPanic) {
			t.Errorf("failure %v, want ErrWorkerPanic", err)
		}
	}
}

func TestCoordinatorTileTimeout(t *testing.T) {
	hang := make(chan struct{})
	defer close(hang)

	// The first band never returns and ignores its context.
	r := rendererFunc(func(_ context.Context, req fractal.RenderRequest, band fractal.RowBand) (fractal.TileResult, error) {
		if band.StartRow == 0 {
			<-hang
		}
		return fillTile(req, band), nil
	})

	sink := &recordingSink{}
	c := New(r, sink, WithWorkers(2), WithRetries(1), WithTileTimeout(50*time.Millisecond))
	defer c.Close()

	if _, err := c.Submit(smallRequest()); err != nil {
		t.Fatal(err)
	}
	var perr *PartialRenderError
	if _, err := c.Wait(waitCtx(t)); !errors.As(err, &perr) {
		t.Fatalf("Wait() = %v, want *PartialRenderError", err)
	}
	painted, failed := sink.snapshot()
	if len(failed) != 1 || !errors.Is(failed[0], ErrTileTimeout) {
		t.Errorf("failures = %v, want one ErrTileTimeout", failed)
	}
	if paintedRows(painted) != 12 {
		t.Errorf("painted %d rows, want 12", paintedRows(painted))
	}
}

func TestCoordinatorRejectsMalformedTiles(t *testing.T) {
	r := rendererFunc(func(_ context.Context, req fractal.RenderRequest, band fractal.RowBand) (fractal.TileResult, error) {
		res := fillTile(req, band)
		res.Pixels = res.Pixels[:len(res.Pixels)-4]
		return res, nil
	})
	sink := &recordingSink{}
	c := New(r, sink, WithWorkers(1), WithRetries(0))
	defer c.Close()

	if _, err := c.Submit(smallRequest()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Wait(waitCtx(t)); err == nil {
		t.Fatal("Wait() = nil, want partial render")
	}
	_, failed := sink.snapshot()
	if len(failed) != 1 || !errors.Is(failed[0], fractal.ErrMalformedTile) {
		t.Errorf("failures = %v, want ErrMalformedTile", failed)
	}
}

func TestCoordinatorRejectsInvalidRequest(t *testing.T) {
	sink := &recordingSink{}
	c := New(filler, sink, WithWorkers(2))
	defer c.Close()

	gen, err := c.Submit(smallRequest())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Wait(waitCtx(t)); err != nil {
		t.Fatal(err)
	}
	before := c.Snapshot()

	bad := smallRequest()
	bad.MaxIterations = 1
	if _, err := c.Submit(bad); !errors.Is(err, fractal.ErrInvalidRequest) {
		t.Fatalf("Submit(maxIterations=1) = %v, want ErrInvalidRequest", err)
	}
	if c.Generation() != gen {
		t.Errorf("Generation() = %d after rejected submit, want %d", c.Generation(), gen)
	}
	if string(c.Snapshot().Pix) != string(before.Pix) {
		t.Error("rejected submit changed the image")
	}
}

func TestCoordinatorRejectsOversizedRequest(t *testing.T) {
	c := New(filler, nil, WithWorkers(2))
	defer c.Close()

	for _, ss := range []int{1 << 20, 1 << 32} {
		req := smallRequest()
		req.Supersampling = ss
		if _, err := c.Submit(req); !errors.Is(err, fractal.ErrInvalidRequest) {
			t.Errorf("Submit(ss=%d) = %v, want ErrInvalidRequest", ss, err)
		}
	}
	if c.Generation() != 0 || c.Snapshot() != nil {
		t.Error("rejected submit started a render")
	}
}

func TestCoordinatorWaitReturnsResolvedGeneration(t *testing.T) {
	release := make(chan struct{})
	r := rendererFunc(func(_ context.Context, req fractal.RenderRequest, band fractal.RowBand) (fractal.TileResult, error) {
		if req.Generation == 1 {
			<-release
		}
		return fillTile(req, band), nil
	})
	c := New(r, nil, WithWorkers(2))
	defer c.Close()
	defer close(release)

	if _, err := c.Submit(smallRequest()); err != nil {
		t.Fatal(err)
	}
	type waited struct {
		gen fractal.GenerationID
		err error
	}
	ctx := waitCtx(t)
	ch := make(chan waited, 1)
	go func() {
		gen, err := c.Wait(ctx)
		ch <- waited{gen, err}
	}()

	g2, err := c.Submit(smallRequest())
	if err != nil {
		t.Fatal(err)
	}
	w := <-ch
	if w.err != nil || w.gen != g2 {
		t.Errorf("Wait() = %d, %v, want %d, nil", w.gen, w.err, g2)
	}
}

func TestCoordinatorDefaultTileTimeout(t *testing.T) {
	if defaultOptions().tileTimeout <= 0 {
		t.Fatalf("default tile timeout %v is unbounded", defaultOptions().tileTimeout)
	}

	saved := DefaultTileTimeout
	DefaultTileTimeout = 50 * time.Millisecond
	defer func() { DefaultTileTimeout = saved }()

	hang := make(chan struct{})
	defer close(hang)
	r := rendererFunc(func(context.Context, fractal.RenderRequest, fractal.RowBand) (fractal.TileResult, error) {
		<-hang
		return fractal.TileResult{}, nil
	})

	c := New(r, nil, WithWorkers(2), WithRetries(0))
	defer c.Close()

	if _, err := c.Submit(smallRequest()); err != nil {
		t.Fatal(err)
	}
	var perr *PartialRenderError
	if _, err := c.Wait(waitCtx(t)); !errors.As(err, &perr) || perr.Failed != 2 {
		t.Fatalf("Wait() = %v, want both tiles timed out", err)
	}
}

func TestCoordinatorReusesWorkersAcrossRenders(t *testing.T) {
	var concurrent, peak atomic.Int32
	r := rendererFunc(func(_ context.Context, req fractal.RenderRequest, band fractal.RowBand) (fractal.TileResult, error) {
		n := concurrent.Add(1)
		defer concurrent.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		return fillTile(req, band), nil
	})

	c := New(r, nil, WithWorkers(3))
	defer c.Close()

	for range 20 {
		if _, err := c.Submit(smallRequest()); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := c.Wait(waitCtx(t)); err != nil {
		t.Fatal(err)
	}
	if peak.Load() > 3 {
		t.Errorf("%d tiles rendered concurrently with 3 workers", peak.Load())
	}
	if c.Workers() != 3 {
		t.Errorf("Workers() = %d, want 3", c.Workers())
	}
}

func TestCoordinatorSupersampledImage(t *testing.T) {
	c := New(filler, nil, WithWorkers(2))
	defer c.Close()

	req := smallRequest()
	req.Supersampling = 2
	if _, err := c.Submit(req); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Wait(waitCtx(t)); err != nil {
		t.Fatal(err)
	}
	if b := c.Snapshot().Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("image bounds = %v, want 64x48", b)
	}
}

func TestCoordinatorClose(t *testing.T) {
	c := New(filler, nil, WithWorkers(2))
	if c.Snapshot() != nil {
		t.Error("Snapshot() before any render should be nil")
	}
	if _, err := c.Wait(waitCtx(t)); err != nil {
		t.Errorf("Wait() with nothing submitted = %v", err)
	}
	c.Close()
	c.Close()

	if _, err := c.Submit(smallRequest()); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit after Close = %v, want ErrClosed", err)
	}
	if _, err := c.Wait(waitCtx(t)); !errors.Is(err, ErrClosed) {
		t.Errorf("Wait after Close = %v, want ErrClosed", err)
	}
}
