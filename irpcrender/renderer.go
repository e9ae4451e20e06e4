// Package irpcrender renders tiles on workers connected over irpc.
//
// Workers dial the server over TCP or a websocket and offer a TileRenderer
// service on their endpoint. The server keeps every connected worker in a
// Pool, which is itself a fractal.Renderer and spreads tiles across them.
package irpcrender

import (
	"context"

	fractal "github.com/marben/dist_fractal"
)

//go:generate go run github.com/marben/irpc/cmd/irpc@v0.0.0-20260109104542-2d3fde99869b

// TileRenderer is the network face of fractal.Renderer.
type TileRenderer interface {
	RenderTile(ctx context.Context, req fractal.RenderRequest, band fractal.RowBand) (fractal.TileResult, error)
}
