// worker renders tiles for the fractal server, over nats or irpc.
//
// Any number of workers may run. Over nats they share the queue group, so
// each tile request is served by exactly one of them. Over irpc each worker
// connects to the server itself and reconnects when the connection drops.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/marben/irpc"
	"github.com/nats-io/nats.go"
	"gopkg.in/tomb.v2"

	fractal "github.com/marben/dist_fractal"
	"github.com/marben/dist_fractal/internal/config"
	"github.com/marben/dist_fractal/irpcrender"
	"github.com/marben/dist_fractal/natsrender"
	"github.com/marben/dist_fractal/render"
)

type args struct {
	Config      string `arg:"-c,--config,env:FRACTAL_CONFIG" help:"TOML configuration file"`
	Concurrency int    `arg:"-j,--concurrency" help:"tiles rendered at once (default: nats.concurrency, then GOMAXPROCS)"`
	IRPC        bool   `arg:"--irpc" help:"connect to the server over irpc instead of nats"`
	Server      string `arg:"-s,--server" help:"irpc server address, host:port or ws:// url (default: irpc.server)"`
}

// reconnectDelay separates attempts to reach an irpc server.
const reconnectDelay = 2 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("run: %+v", err)
	}
}

func run() error {
	var a args
	arg.MustParse(&a)

	// Step 1: configuration and logging
	cfg, err := config.Load(a.Config)
	if err != nil {
		return err
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)
	fractal.SetLogger(logger)

	concurrency := a.Concurrency
	if concurrency <= 0 {
		concurrency = cfg.NATS.Concurrency
	}
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	var tiles atomic.Int64
	renderer := render.RendererImpl{OnTileRender: func(req fractal.RenderRequest, band fractal.RowBand) {
		n := tiles.Add(1)
		logger.Debug("rendering tile", "generation", req.Generation, "band", band, "total", n)
	}}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.IRPC || cfg.Render.Backend == config.BackendIRPC {
		addr := a.Server
		if addr == "" {
			addr = cfg.IRPC.Server
		}
		err := serveIRPC(ctx, addr, irpcrender.Service{Renderer: renderer, Logger: logger}, concurrency)
		log.Printf("stopped, %d tiles rendered", tiles.Load())
		return err
	}

	// Step 2: connect to nats
	nc, err := nats.Connect(cfg.NATS.URL, nats.Name("fractal-worker"), nats.MaxReconnects(-1))
	if err != nil {
		return fmt.Errorf("nats.Connect %s: %w", cfg.NATS.URL, err)
	}
	defer nc.Close()
	log.Printf("worker connected to nats at %s", cfg.NATS.URL)

	// Step 3: serve tile requests with the local renderer
	svc := natsrender.NewService(nc, renderer,
		natsrender.WithSubject(cfg.NATS.Subject),
		natsrender.WithQueue(cfg.NATS.Queue),
		natsrender.WithConcurrency(concurrency))
	if err := svc.Start(); err != nil {
		return err
	}

	// Step 4: run until a signal arrives or the connection is closed for good
	t, _ := tomb.WithContext(ctx)
	closed := make(chan struct{})
	nc.SetClosedHandler(func(*nats.Conn) { close(closed) })
	t.Go(func() error {
		select {
		case <-t.Dying():
			log.Printf("draining, %d tiles rendered", tiles.Load())
			return svc.Stop()
		case <-closed:
			return errors.New("nats connection closed")
		}
	})

	if err := t.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// serveIRPC offers svc to the server at addr until ctx ends, reconnecting
// whenever the connection cannot be made or drops.
func serveIRPC(ctx context.Context, addr string, svc irpcrender.Service, concurrency int) error {
	for {
		// Step 2: connect to the server
		conn, err := irpcrender.Dial(ctx, addr)
		if err == nil {
			log.Printf("worker connected to irpc server at %s", addr)

			// Step 3: render tiles until the connection ends
			err = irpcrender.Work(ctx, conn, svc, irpc.WithParallelWorkers(concurrency))
		}
		if ctx.Err() != nil {
			return nil
		}
		log.Printf("irpc server %s: %v, retrying in %s", addr, err, reconnectDelay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}
