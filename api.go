package fractal

import "context"

// Renderer computes the pixels of one row band of a render request.
// Implementations must not retain or mutate shared state across calls; the
// coordinator invokes them concurrently for disjoint bands.
type Renderer interface {
	RenderTile(ctx context.Context, req RenderRequest, band RowBand) (TileResult, error)
}

// PixelSink receives the tiles accepted by a coordinator.
// Calls are serialized and made from the coordinator's merge loop, so a sink
// should hand the data off quickly rather than block.
type PixelSink interface {
	// PaintTile is called once per accepted tile of the active generation.
	PaintTile(res TileResult)

	// TileFailed is called when a band could not be rendered after retries.
	TileFailed(gen GenerationID, band RowBand, err error)
}

// DiscardSink is a PixelSink that ignores everything.
type DiscardSink struct{}

func (DiscardSink) PaintTile(TileResult)                     {}
func (DiscardSink) TileFailed(GenerationID, RowBand, error) {}

var _ PixelSink = DiscardSink{}
