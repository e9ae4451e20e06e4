package main

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"log"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	fractal "github.com/marben/dist_fractal"
	"github.com/marben/dist_fractal/coordinator"
	"github.com/marben/dist_fractal/internal/config"
	"github.com/marben/dist_fractal/natsrender"
	"github.com/marben/dist_fractal/params"
	"github.com/marben/dist_fractal/render"
)

// buildRequest layers the configured view, the preset, the query string and
// the individual flags, in that order.
func buildRequest(a args, view config.View) (fractal.RenderRequest, error) {
	if a.Preset != "" {
		view.Preset = a.Preset
	}
	req, err := view.Request()
	if err != nil {
		return fractal.RenderRequest{}, err
	}
	if a.Query != "" {
		if req, err = params.ParseQuery(a.Query, req); err != nil {
			return fractal.RenderRequest{}, err
		}
	}

	m := make(map[string]string)
	if a.Set != "" {
		m["set"] = a.Set
	}
	if a.Width > 0 {
		m["width"] = strconv.Itoa(a.Width)
	}
	if a.Height > 0 {
		m["pixelHeight"] = strconv.Itoa(a.Height)
	}
	if a.Iterations != 0 {
		m["iter"] = strconv.Itoa(a.Iterations)
	}
	if a.Zoom != 0 {
		m["height"] = strconv.FormatFloat(a.Zoom, 'g', -1, 64)
	}
	if a.SS != 0 {
		m["ss"] = strconv.Itoa(a.SS)
	}
	return params.Decode(m, req)
}

// progressSink logs how much of the image has been painted.
type progressSink struct {
	rows  atomic.Int64
	total int
}

func (s *progressSink) PaintTile(res fractal.TileResult) {
	done := s.rows.Add(int64(res.RowCount))
	log.Printf("finished: %f", float64(done)/float64(s.total))
}

func (s *progressSink) TileFailed(_ fractal.GenerationID, band fractal.RowBand, err error) {
	log.Printf("render of tile %s failed: %v", band, err)
}

func renderToFile(a args) error {
	// Step 1: Load configuration and build the request
	cfg, err := config.Load(a.Config)
	if err != nil {
		return err
	}
	req, err := buildRequest(a, cfg.View)
	if err != nil {
		return err
	}
	log.Printf("rendering %s?%s", a.Out, params.Query(req))

	// Step 2: Choose where tiles are rendered
	var renderer fractal.Renderer = render.RendererImpl{}
	if a.NATS || cfg.Render.Backend == config.BackendNATS {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name("fractal-cliclient"))
		if err != nil {
			return fmt.Errorf("nats.Connect %s: %w", cfg.NATS.URL, err)
		}
		defer nc.Close()
		renderer = natsrender.NewClient(nc, natsrender.WithSubject(cfg.NATS.Subject))
	}

	workers := a.Workers
	if workers == 0 {
		workers = cfg.Render.Workers
	}

	// Step 3: Render and wait for every tile
	sink := &progressSink{total: req.Effective().PixelHeight}
	c := coordinator.New(renderer, sink,
		coordinator.WithWorkers(workers),
		coordinator.WithTileTimeout(cfg.Render.TileTimeout),
		coordinator.WithRetries(cfg.Render.Retries))
	defer c.Close()

	start := time.Now()
	if _, err := c.Submit(req); err != nil {
		return err
	}
	_, err = c.Wait(context.Background())
	var partial *coordinator.PartialRenderError
	if err != nil && !errors.As(err, &partial) {
		return err
	}
	if partial != nil {
		log.Printf("warning: %v", partial)
	}
	log.Printf("rendered in %s on %d workers", time.Since(start).Round(time.Millisecond), c.Workers())

	// Step 4: Save the rendered image to a PNG file
	img := render.Downsample(c.Snapshot(), req.Supersampling)
	f, err := os.Create(a.Out)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	log.Printf("fully rendered file saved to %q", a.Out)
	return nil
}
