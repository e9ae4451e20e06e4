package irpcrender

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"

	"github.com/coder/websocket"
	"github.com/marben/irpc"

	fractal "github.com/marben/dist_fractal"
)

// Service is the TileRenderer a worker offers. Requests are checked before
// they reach the renderer, so a bad request fails without allocating.
type Service struct {
	Renderer fractal.Renderer
	Logger   *slog.Logger
}

func (s Service) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return fractal.Logger()
}

func (s Service) RenderTile(ctx context.Context, req fractal.RenderRequest, band fractal.RowBand) (fractal.TileResult, error) {
	if err := req.CheckBand(band); err != nil {
		return fractal.TileResult{}, err
	}
	res, err := s.Renderer.RenderTile(ctx, req, band)
	if err != nil {
		s.log().Warn("tile render failed", "generation", req.Generation, "band", band, "err", err)
		return fractal.TileResult{}, err
	}
	s.log().Debug("tile rendered", "generation", req.Generation, "band", band)
	return res, nil
}

var _ TileRenderer = Service{}

// Work offers s on conn until ctx ends or the server hangs up. The returned
// error says why the connection ended; it is nil when ctx was cancelled.
func Work(ctx context.Context, conn io.ReadWriteCloser, s Service, opts ...irpc.EndpointOption) error {
	opts = append([]irpc.EndpointOption{irpc.WithEndpointServices(NewTileRendererIrpcService(s))}, opts...)
	ep := irpc.NewEndpoint(conn, opts...)
	select {
	case <-ctx.Done():
		_ = ep.Close()
		return nil
	case <-ep.Context().Done():
		return context.Cause(ep.Context())
	}
}

// Dial connects to a server at addr: a ws:// or wss:// url for the
// websocket endpoint, host:port for plain TCP.
func Dial(ctx context.Context, addr string) (net.Conn, error) {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		c, _, err := websocket.Dial(ctx, addr, nil)
		if err != nil {
			return nil, fmt.Errorf("websocket.Dial %s: %w", addr, err)
		}
		return websocket.NetConn(context.Background(), c, websocket.MessageBinary), nil
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("net.Dial %s: %w", addr, err)
	}
	return conn, nil
}
