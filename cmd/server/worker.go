package main

import (
	"fmt"
	"log"
	"net"

	"github.com/nats-io/nats.go"
	"gopkg.in/tomb.v2"

	fractal "github.com/marben/dist_fractal"
	"github.com/marben/dist_fractal/coordinator"
	"github.com/marben/dist_fractal/internal/config"
	"github.com/marben/dist_fractal/irpcrender"
	"github.com/marben/dist_fractal/natsrender"
	"github.com/marben/dist_fractal/render"
)

// backend is the tile renderer shared by every viewer's coordinator.
// Each viewer gets its own worker pool; with the nats and irpc backends the
// pool goroutines only wait on remote workers.
type backend struct {
	renderer fractal.Renderer
	opts     []coordinator.Option
	nc       *nats.Conn

	// irpc workers connect to us, over tcp on irpcListen or over a
	// websocket on irpcPath
	pool       *irpcrender.Pool
	irpcListen string
	irpcPath   string
	wsl        *irpcrender.WebsocketListener
}

func newBackend(cfg *config.Config) (*backend, error) {
	b := &backend{
		opts: []coordinator.Option{
			coordinator.WithWorkers(cfg.Render.Workers),
			coordinator.WithTileTimeout(cfg.Render.TileTimeout),
			coordinator.WithRetries(cfg.Render.Retries),
		},
	}

	switch cfg.Render.Backend {
	case config.BackendNATS:
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name("fractal-server"))
		if err != nil {
			return nil, fmt.Errorf("nats.Connect %s: %w", cfg.NATS.URL, err)
		}
		log.Printf("rendering on nats workers at %s, subject %q", cfg.NATS.URL, cfg.NATS.Subject)
		b.nc = nc
		b.renderer = natsrender.NewClient(nc,
			natsrender.WithSubject(cfg.NATS.Subject),
			natsrender.WithRequestTimeout(cfg.Render.TileTimeout))
	case config.BackendIRPC:
		b.pool = irpcrender.NewPool(nil)
		b.renderer = b.pool
		b.irpcListen = cfg.IRPC.Listen
		if cfg.IRPC.Path != "" {
			b.irpcPath = cfg.IRPC.Path
			b.wsl = irpcrender.NewWebsocketListener(cfg.IRPC.Path, nil)
		}
		log.Printf("rendering on irpc workers connecting to %q and %q", cfg.IRPC.Listen, cfg.IRPC.Path)
	default:
		log.Printf("rendering locally")
		b.renderer = render.RendererImpl{}
	}
	return b, nil
}

// newCoordinator starts a coordinator streaming into sink.
func (b *backend) newCoordinator(sink fractal.PixelSink) *coordinator.Coordinator {
	return coordinator.New(b.renderer, sink, b.opts...)
}

// serve accepts irpc workers until t dies. It does nothing for the other backends.
func (b *backend) serve(t *tomb.Tomb) error {
	if b.pool == nil {
		return nil
	}
	if b.irpcListen != "" {
		l, err := net.Listen("tcp", b.irpcListen)
		if err != nil {
			return fmt.Errorf("net.Listen: %w", err)
		}
		log.Printf("irpc workers: tcp listening on %s", b.irpcListen)
		t.Go(func() error {
			if err := b.pool.Serve(l); err != nil {
				return fmt.Errorf("irpc serve tcp: %w", err)
			}
			return nil
		})
	}
	if b.wsl != nil {
		t.Go(func() error {
			if err := b.pool.Serve(b.wsl); err != nil {
				return fmt.Errorf("irpc serve ws: %w", err)
			}
			return nil
		})
	}
	t.Go(func() error {
		<-t.Dying()
		return b.pool.Close()
	})
	return nil
}

func (b *backend) Close() {
	if b.nc != nil {
		b.nc.Close()
	}
	if b.pool != nil {
		_ = b.pool.Close()
	}
}
