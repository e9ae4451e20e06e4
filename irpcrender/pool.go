package irpcrender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/marben/irpc"

	fractal "github.com/marben/dist_fractal"
)

// ErrNoWorkers is returned by Pool.RenderTile while no worker is connected.
var ErrNoWorkers = errors.New("irpcrender: no workers connected")

// Pool renders tiles on the workers connected to it, round robin.
// Workers join when their connection is accepted and leave when it closes.
type Pool struct {
	server *irpc.Server
	logger *slog.Logger

	mu      sync.Mutex
	workers []*remote
	next    int
}

type remote struct {
	addr   string
	client *TileRendererIrpcClient
}

// NewPool returns an empty pool. A nil logger means the module-wide one.
func NewPool(logger *slog.Logger) *Pool {
	p := &Pool{logger: logger}
	p.server = irpc.NewServer(irpc.WithOnConnect(func(ep *irpc.Endpoint) {
		if err := p.Add(ep); err != nil {
			p.log().Warn("worker rejected", "addr", addrOf(ep), "err", err)
			_ = ep.Close()
		}
	}))
	return p
}

func (p *Pool) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return fractal.Logger()
}

// Serve accepts workers on l until the pool is closed. It returns nil after Close.
func (p *Pool) Serve(l net.Listener) error {
	err := p.server.Serve(l)
	if errors.Is(err, irpc.ErrServerClosed) {
		return nil
	}
	return err
}

// Close stops every listener and disconnects all workers.
func (p *Pool) Close() error {
	return p.server.Close()
}

// Add makes the renderer offered on ep available until ep closes.
func (p *Pool) Add(ep *irpc.Endpoint) error {
	client, err := NewTileRendererIrpcClient(ep)
	if err != nil {
		return err
	}
	w := &remote{addr: addrOf(ep), client: client}

	p.mu.Lock()
	p.workers = append(p.workers, w)
	n := len(p.workers)
	p.mu.Unlock()
	p.log().Info("worker connected", "addr", w.addr, "workers", n)

	go func() {
		<-ep.Context().Done()
		p.remove(w)
		p.log().Info("worker disconnected", "addr", w.addr, "cause", context.Cause(ep.Context()))
	}()
	return nil
}

func (p *Pool) remove(w *remote) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, x := range p.workers {
		if x == w {
			p.workers = append(p.workers[:i], p.workers[i+1:]...)
			return
		}
	}
}

// Workers returns the number of connected workers.
func (p *Pool) Workers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

func (p *Pool) pick() (*remote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.workers) == 0 {
		return nil, ErrNoWorkers
	}
	p.next = (p.next + 1) % len(p.workers)
	return p.workers[p.next], nil
}

// RenderTile renders band on the next connected worker.
func (p *Pool) RenderTile(ctx context.Context, req fractal.RenderRequest, band fractal.RowBand) (fractal.TileResult, error) {
	w, err := p.pick()
	if err != nil {
		return fractal.TileResult{}, err
	}
	res, err := w.client.RenderTile(ctx, req, band)
	if err != nil {
		return fractal.TileResult{}, fmt.Errorf("worker %s: %w", w.addr, err)
	}
	return res, nil
}

var _ fractal.Renderer = (*Pool)(nil)

func addrOf(ep *irpc.Endpoint) string {
	if a := ep.RemoteAddr(); a != nil {
		return a.String()
	}
	return "unknown"
}
