package coordinator

import (
	"errors"
	"fmt"

	fractal "github.com/marben/dist_fractal"
)

var (
	// ErrClosed is returned by Submit and Wait once the coordinator is closed.
	ErrClosed = errors.New("coordinator closed")

	// ErrTileTimeout marks a tile that exceeded the configured tile timeout.
	ErrTileTimeout = errors.New("tile timed out")

	// ErrWorkerPanic marks a tile whose renderer panicked.
	ErrWorkerPanic = errors.New("renderer panicked")
)

// PartialRenderError reports a generation that finished with some tiles
// missing. The tiles that did succeed were painted.
type PartialRenderError struct {
	Generation fractal.GenerationID
	Failed     int
	Total      int
}

func (e *PartialRenderError) Error() string {
	return fmt.Sprintf("render %d: %d of %d tiles failed", e.Generation, e.Failed, e.Total)
}

type mismatchError struct {
	want, got fractal.GenerationID
}

func (e *mismatchError) Error() string {
	return fmt.Sprintf("%s: generation %d, want %d", fractal.ErrMalformedTile, e.got, e.want)
}

func (e *mismatchError) Unwrap() error {
	return fractal.ErrMalformedTile
}
