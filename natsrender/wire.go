package natsrender

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	fractal "github.com/marben/dist_fractal"
	"github.com/marben/dist_fractal/internal/zpix"
)

// RenderArgs carries the viewport and kernel parameters positionally.
type RenderArgs struct {
	_msgpack struct{} `msgpack:",as_array"`

	Set           uint8
	CenterRe      float64
	CenterIm      float64
	HeightInUnits float64
	PixelWidth    int
	PixelHeight   int
	MaxIterations int
	Hue           float64
	Saturation    float64
	Supersampling int
	JuliaRe       float64
	JuliaIm       float64
}

// TileRequest asks a worker for one row band of one render.
type TileRequest struct {
	RenderID   uint64     `msgpack:"renderId"`
	RenderArgs RenderArgs `msgpack:"renderArgs"`
	RowStart   int        `msgpack:"rowStart"`
	RowCount   int        `msgpack:"rowCount"`
}

// TileResponse carries a rendered band back. Pixels is zstd-compressed.
// A non-empty Error means the worker could not render the band.
type TileResponse struct {
	RenderID uint64 `msgpack:"renderId"`
	RowStart int    `msgpack:"rowStart"`
	RowCount int    `msgpack:"rowCount"`
	Width    int    `msgpack:"width"`
	Pixels   []byte `msgpack:"pixels"`
	Error    string `msgpack:"error,omitempty"`
}

// NewTileRequest packs req and band into a wire request.
func NewTileRequest(req fractal.RenderRequest, band fractal.RowBand) TileRequest {
	v := req.Viewport
	return TileRequest{
		RenderID: uint64(req.Generation),
		RenderArgs: RenderArgs{
			Set:           uint8(req.Set),
			CenterRe:      v.CenterRe,
			CenterIm:      v.CenterIm,
			HeightInUnits: v.HeightInUnits,
			PixelWidth:    v.PixelWidth,
			PixelHeight:   v.PixelHeight,
			MaxIterations: req.MaxIterations,
			Hue:           req.Hue,
			Saturation:    req.Saturation,
			Supersampling: req.Supersampling,
			JuliaRe:       req.JuliaConstant.Re,
			JuliaIm:       req.JuliaConstant.Im,
		},
		RowStart: band.StartRow,
		RowCount: band.RowCount,
	}
}

// Request unpacks the render request. It is not validated.
func (r TileRequest) Request() fractal.RenderRequest {
	a := r.RenderArgs
	return fractal.RenderRequest{
		Viewport: fractal.Viewport{
			CenterRe:      a.CenterRe,
			CenterIm:      a.CenterIm,
			HeightInUnits: a.HeightInUnits,
			PixelWidth:    a.PixelWidth,
			PixelHeight:   a.PixelHeight,
		},
		Set:           fractal.SetKind(a.Set),
		JuliaConstant: fractal.Complex{Re: a.JuliaRe, Im: a.JuliaIm},
		MaxIterations: a.MaxIterations,
		Hue:           a.Hue,
		Saturation:    a.Saturation,
		Supersampling: a.Supersampling,
		Generation:    fractal.GenerationID(r.RenderID),
	}
}

// Band returns the requested rows.
func (r TileRequest) Band() fractal.RowBand {
	return fractal.RowBand{StartRow: r.RowStart, RowCount: r.RowCount}
}

// NewTileResponse compresses a rendered tile into a wire response.
func NewTileResponse(res fractal.TileResult) TileResponse {
	return TileResponse{
		RenderID: uint64(res.Generation),
		RowStart: res.StartRow,
		RowCount: res.RowCount,
		Width:    res.Width,
		Pixels:   zpix.Compress(res.Pixels),
	}
}

// Result inflates the pixels. The shape is checked against the header
// fields only; the caller compares it with the band it asked for.
func (r TileResponse) Result() (fractal.TileResult, error) {
	if r.Width < 0 || r.RowCount < 0 {
		return fractal.TileResult{}, fmt.Errorf("%w: %dx%d", fractal.ErrMalformedTile, r.Width, r.RowCount)
	}
	pix, err := zpix.Decompress(r.Pixels, 4*r.Width*r.RowCount)
	if err != nil {
		return fractal.TileResult{}, fmt.Errorf("%w: %v", fractal.ErrMalformedTile, err)
	}
	return fractal.TileResult{
		Generation: fractal.GenerationID(r.RenderID),
		StartRow:   r.RowStart,
		RowCount:   r.RowCount,
		Width:      r.Width,
		Pixels:     pix,
	}, nil
}

func marshal(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("msgpack marshal: %w", err)
	}
	return data, nil
}

func unmarshal(data []byte, v any) error {
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("msgpack unmarshal: %w", err)
	}
	return nil
}
