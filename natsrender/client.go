// Package natsrender distributes tile rendering over NATS request/reply.
//
// A Client implements fractal.Renderer by publishing one msgpack TileRequest
// per band; any Service subscribed in the same queue group renders it and
// replies with a TileResponse whose pixels are zstd-compressed.
package natsrender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	fractal "github.com/marben/dist_fractal"
)

// ErrRemote wraps an error reported by a remote worker.
var ErrRemote = errors.New("remote worker")

// Client renders tiles on remote workers.
type Client struct {
	nc   *nats.Conn
	opts options
}

var _ fractal.Renderer = (*Client)(nil)

// NewClient returns a Client publishing on nc. The connection stays owned by
// the caller.
func NewClient(nc *nats.Conn, opts ...Option) *Client {
	return &Client{nc: nc, opts: newOptions(opts)}
}

func (c *Client) logger() *slog.Logger {
	if c.opts.logger != nil {
		return c.opts.logger
	}
	return fractal.Logger()
}

// RenderTile implements fractal.Renderer.
func (c *Client) RenderTile(ctx context.Context, req fractal.RenderRequest, band fractal.RowBand) (fractal.TileResult, error) {
	data, err := marshal(NewTileRequest(req, band))
	if err != nil {
		return fractal.TileResult{}, err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.timeout)
		defer cancel()
	}

	msg, err := c.nc.RequestWithContext(ctx, c.opts.subject, data)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) {
			return fractal.TileResult{}, fmt.Errorf("nats request %s: no workers on %q: %w", band, c.opts.subject, err)
		}
		return fractal.TileResult{}, fmt.Errorf("nats request %s: %w", band, err)
	}

	var resp TileResponse
	if err := unmarshal(msg.Data, &resp); err != nil {
		return fractal.TileResult{}, fmt.Errorf("%w: %v", fractal.ErrMalformedTile, err)
	}
	if resp.Error != "" {
		return fractal.TileResult{}, fmt.Errorf("%w: %s", ErrRemote, resp.Error)
	}
	res, err := resp.Result()
	if err != nil {
		return fractal.TileResult{}, err
	}
	c.logger().Debug("remote tile received", "generation", res.Generation, "band", band, "bytes", len(msg.Data))
	return res, nil
}
