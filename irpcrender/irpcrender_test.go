package irpcrender

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marben/irpc"

	fractal "github.com/marben/dist_fractal"
	"github.com/marben/dist_fractal/coordinator"
	"github.com/marben/dist_fractal/render"
)

func testRequest() fractal.RenderRequest {
	return fractal.RenderRequest{
		Viewport:      fractal.SeahorseValley.Viewport(48, 32),
		Set:           fractal.Julia,
		JuliaConstant: fractal.Complex{Re: -0.8, Im: 0.156},
		MaxIterations: 80,
		Hue:           0.3,
		Saturation:    0.7,
		Supersampling: 1,
		Generation:    7,
	}
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

type rendererFunc func(ctx context.Context, req fractal.RenderRequest, band fractal.RowBand) (fractal.TileResult, error)

func (f rendererFunc) RenderTile(ctx context.Context, req fractal.RenderRequest, band fractal.RowBand) (fractal.TileResult, error) {
	return f(ctx, req, band)
}

// work runs a worker on conn until the test ends.
func work(t *testing.T, conn net.Conn, r fractal.Renderer) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Work(ctx, conn, Service{Renderer: r})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

// pipeWorker connects a worker to p over an in-memory pipe and returns the
// server side endpoint.
func pipeWorker(t *testing.T, p *Pool, r fractal.Renderer) *irpc.Endpoint {
	t.Helper()
	workerConn, serverConn := net.Pipe()
	work(t, workerConn, r)
	ep := irpc.NewEndpoint(serverConn)
	t.Cleanup(func() { _ = ep.Close() })
	if err := p.Add(ep); err != nil {
		t.Fatal(err)
	}
	return ep
}

func waitWorkers(t *testing.T, p *Pool, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for p.Workers() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Workers() = %d, want %d", p.Workers(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPoolRendersRemotely(t *testing.T) {
	p := NewPool(nil)
	defer p.Close()
	pipeWorker(t, p, render.RendererImpl{})

	req := testRequest()
	band := fractal.RowBand{StartRow: 10, RowCount: 6}
	res, err := p.RenderTile(testCtx(t), req, band)
	if err != nil {
		t.Fatal(err)
	}
	want, err := render.TileBuffer(context.Background(), req, band)
	if err != nil {
		t.Fatal(err)
	}
	if res.Generation != 7 || res.Band() != band || res.Width != 48 {
		t.Errorf("result header = gen %d %v width %d", res.Generation, res.Band(), res.Width)
	}
	if !bytes.Equal(res.Pixels, want) {
		t.Error("remote pixels differ from local render")
	}
}

func TestPoolRemoteErrors(t *testing.T) {
	p := NewPool(nil)
	defer p.Close()
	failing := rendererFunc(func(context.Context, fractal.RenderRequest, fractal.RowBand) (fractal.TileResult, error) {
		return fractal.TileResult{}, errors.New("out of memory")
	})
	pipeWorker(t, p, failing)

	_, err := p.RenderTile(testCtx(t), testRequest(), fractal.RowBand{RowCount: 1})
	if err == nil || !strings.Contains(err.Error(), "out of memory") {
		t.Errorf("RenderTile = %v, want the remote error", err)
	}
}

func TestWorkerRejectsOversizedRequest(t *testing.T) {
	p := NewPool(nil)
	defer p.Close()
	var calls atomic.Int32
	counting := rendererFunc(func(ctx context.Context, req fractal.RenderRequest, band fractal.RowBand) (fractal.TileResult, error) {
		calls.Add(1)
		return render.RendererImpl{}.RenderTile(ctx, req, band)
	})
	pipeWorker(t, p, counting)

	for _, ss := range []int{1 << 20, 1 << 32} {
		huge := testRequest()
		huge.Supersampling = ss
		_, err := p.RenderTile(testCtx(t), huge, fractal.RowBand{RowCount: 1})
		if err == nil || !strings.Contains(err.Error(), fractal.ErrInvalidRequest.Error()) {
			t.Errorf("RenderTile(ss=%d) = %v, want an invalid request error", ss, err)
		}
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("renderer called %d times for rejected requests", n)
	}

	// the worker keeps serving
	if _, err := p.RenderTile(testCtx(t), testRequest(), fractal.RowBand{RowCount: 4}); err != nil {
		t.Errorf("RenderTile after rejections = %v", err)
	}
}

func TestPoolTracksWorkers(t *testing.T) {
	p := NewPool(nil)
	defer p.Close()

	if _, err := p.RenderTile(testCtx(t), testRequest(), fractal.RowBand{RowCount: 1}); !errors.Is(err, ErrNoWorkers) {
		t.Errorf("RenderTile with no workers = %v, want ErrNoWorkers", err)
	}

	a := pipeWorker(t, p, render.RendererImpl{})
	pipeWorker(t, p, render.RendererImpl{})
	if p.Workers() != 2 {
		t.Fatalf("Workers() = %d, want 2", p.Workers())
	}

	_ = a.Close()
	waitWorkers(t, p, 1)
	for range 3 {
		if _, err := p.RenderTile(testCtx(t), testRequest(), fractal.RowBand{RowCount: 2}); err != nil {
			t.Errorf("RenderTile on the remaining worker = %v", err)
		}
	}
}

func TestCoordinatorOverTCP(t *testing.T) {
	p := NewPool(nil)
	defer p.Close()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	served := make(chan error, 1)
	go func() { served <- p.Serve(l) }()

	for range 2 {
		conn, err := Dial(testCtx(t), l.Addr().String())
		if err != nil {
			t.Fatal(err)
		}
		work(t, conn, render.RendererImpl{})
	}
	waitWorkers(t, p, 2)

	c := coordinator.New(p, nil, coordinator.WithWorkers(4))
	defer c.Close()

	req := testRequest()
	if _, err := c.Submit(req); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Wait(testCtx(t)); err != nil {
		t.Fatalf("Wait() = %v", err)
	}
	want, err := render.TileBuffer(context.Background(), req, fractal.RowBand{RowCount: 32})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(c.Snapshot().Pix, want) {
		t.Error("image rendered over irpc differs from local render")
	}

	if err := p.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
	if err := <-served; err != nil {
		t.Errorf("Serve() after Close = %v, want nil", err)
	}
}

func TestWebsocketWorker(t *testing.T) {
	p := NewPool(nil)
	defer p.Close()

	l := NewWebsocketListener("/irpc", nil)
	srv := httptest.NewServer(l)
	defer srv.Close()
	go func() { _ = p.Serve(l) }()

	conn, err := Dial(testCtx(t), "ws"+strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatal(err)
	}
	work(t, conn, render.RendererImpl{})
	waitWorkers(t, p, 1)

	req := testRequest()
	band := fractal.RowBand{StartRow: 0, RowCount: 32}
	res, err := p.RenderTile(testCtx(t), req, band)
	if err != nil {
		t.Fatal(err)
	}
	if err := res.CheckShape(band, 48); err != nil {
		t.Error(err)
	}
}
