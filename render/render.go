package render

import (
	"context"

	fractal "github.com/marben/dist_fractal"
)

// RendererImpl renders tiles on the local CPU.
type RendererImpl struct {
	// OnTileRender, if set, is called before each tile is computed.
	OnTileRender func(req fractal.RenderRequest, band fractal.RowBand)
}

func (imp RendererImpl) RenderTile(ctx context.Context, req fractal.RenderRequest, band fractal.RowBand) (fractal.TileResult, error) {
	if imp.OnTileRender != nil {
		imp.OnTileRender(req, band)
	}

	pix, err := TileBuffer(ctx, req, band)
	if err != nil {
		return fractal.TileResult{}, err
	}

	return fractal.TileResult{
		Generation: req.Generation,
		StartRow:   band.StartRow,
		RowCount:   band.RowCount,
		Width:      req.Effective().PixelWidth,
		Pixels:     pix,
	}, nil
}

var _ fractal.Renderer = RendererImpl{}
