// Package config loads the settings shared by the fractal commands.
//
// Sources, later ones overriding earlier ones: built-in defaults, an
// optional TOML file, then FRACTAL_ environment variables where a double
// underscore separates sections (FRACTAL_RENDER__WORKERS=8).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"

	fractal "github.com/marben/dist_fractal"
	"github.com/marben/dist_fractal/colorconv"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "FRACTAL_"

// Backends accepted in render.backend.
const (
	BackendLocal = "local"
	BackendNATS  = "nats"
	BackendIRPC  = "irpc"
)

type Config struct {
	Server Server `koanf:"server"`
	Render Render `koanf:"render"`
	NATS   NATS   `koanf:"nats"`
	IRPC   IRPC   `koanf:"irpc"`
	View   View   `koanf:"view"`
	Log    Log    `koanf:"log"`
}

type Server struct {
	Listen  string   `koanf:"listen"`
	Static  string   `koanf:"static"`
	Origins []string `koanf:"origins"`
}

type Render struct {
	Workers     int           `koanf:"workers"`
	TileTimeout time.Duration `koanf:"tile_timeout"`
	Retries     int           `koanf:"retries"`
	Backend     string        `koanf:"backend"`
}

type NATS struct {
	URL         string `koanf:"url"`
	Subject     string `koanf:"subject"`
	Queue       string `koanf:"queue"`
	Concurrency int    `koanf:"concurrency"`
}

// IRPC configures workers that connect to the server themselves.
type IRPC struct {
	Listen string `koanf:"listen"` // TCP address the server accepts workers on; empty disables
	Path   string `koanf:"path"`   // websocket path on the http server for workers; empty disables
	Server string `koanf:"server"` // where a worker connects: host:port or a ws:// url
}

// View is the render shown before a viewer sends parameters.
type View struct {
	Preset        string  `koanf:"preset"`
	Set           string  `koanf:"set"`
	CenterRe      float64 `koanf:"re"`
	CenterIm      float64 `koanf:"im"`
	Height        float64 `koanf:"height"`
	Width         int     `koanf:"width"`
	PixelHeight   int     `koanf:"pixel_height"`
	Iterations    int     `koanf:"iterations"`
	Hue           float64 `koanf:"hue"`
	Saturation    float64 `koanf:"saturation"`
	Color         string  `koanf:"color"`
	Supersampling int     `koanf:"supersampling"`
	JuliaRe       float64 `koanf:"julia_re"`
	JuliaIm       float64 `koanf:"julia_im"`
}

type Log struct {
	Level string `koanf:"level"`
}

// Defaults returns the built-in settings.
func Defaults() map[string]interface{} {
	full := fractal.FullSet.Viewport(960, 720)
	return map[string]interface{}{
		"server.listen":       ":8080",
		"server.static":       "./static",
		"server.origins":      []string{"localhost:*", "127.0.0.1:*"},
		"render.workers":      0,
		"render.tile_timeout": "30s",
		"render.retries":      1,
		"render.backend":      BackendLocal,
		"nats.url":            "nats://127.0.0.1:4222",
		"nats.subject":        "fractal.tile",
		"nats.queue":          "workers",
		"nats.concurrency":    0,
		"irpc.listen":         ":8081",
		"irpc.path":           "/irpc",
		"irpc.server":         "127.0.0.1:8081",
		"view.preset":         "",
		"view.set":            "mandelbrot",
		"view.re":             full.CenterRe,
		"view.im":             full.CenterIm,
		"view.height":         full.HeightInUnits,
		"view.width":          full.PixelWidth,
		"view.pixel_height":   full.PixelHeight,
		"view.iterations":     200,
		"view.hue":            0.66,
		"view.saturation":     0.5,
		"view.color":          "",
		"view.supersampling":  1,
		"view.julia_re":       -0.8,
		"view.julia_im":       0.156,
		"log.level":           "info",
	}
}

// Load reads the configuration. path may be empty; a named file that does
// not exist is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}

	var c Config
	if err := k.Unmarshal("", &c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// envKey maps FRACTAL_RENDER__TILE_TIMEOUT to render.tile_timeout.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error
	if c.Render.Workers < 0 {
		errs = append(errs, fmt.Errorf("render.workers must not be negative, got %d", c.Render.Workers))
	}
	if c.Render.Retries < 0 {
		errs = append(errs, fmt.Errorf("render.retries must not be negative, got %d", c.Render.Retries))
	}
	if c.Render.TileTimeout < 0 {
		errs = append(errs, fmt.Errorf("render.tile_timeout must not be negative, got %s", c.Render.TileTimeout))
	}
	switch c.Render.Backend {
	case BackendLocal, BackendNATS:
	case BackendIRPC:
		if c.IRPC.Listen == "" && c.IRPC.Path == "" {
			errs = append(errs, errors.New("irpc backend needs irpc.listen or irpc.path"))
		}
	default:
		errs = append(errs, fmt.Errorf("render.backend must be %q, %q or %q, got %q", BackendLocal, BackendNATS, BackendIRPC, c.Render.Backend))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.View.Request(); err != nil {
		errs = append(errs, fmt.Errorf("view: %w", err))
	}
	return errors.Join(errs...)
}

// Level parses log.level.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// Logger returns a text logger on stderr at the configured level.
func (c *Config) Logger() *slog.Logger {
	l, _ := c.Level()
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// Request builds the default render request. A preset replaces the
// center and height; a hex color replaces hue and saturation.
func (v View) Request() (fractal.RenderRequest, error) {
	set, err := fractal.ParseSetKind(v.Set)
	if err != nil {
		return fractal.RenderRequest{}, err
	}
	vp := fractal.Viewport{
		CenterRe:      v.CenterRe,
		CenterIm:      v.CenterIm,
		HeightInUnits: v.Height,
		PixelWidth:    v.Width,
		PixelHeight:   v.PixelHeight,
	}
	if v.Preset != "" {
		region, err := fractal.Preset(v.Preset)
		if err != nil {
			return fractal.RenderRequest{}, err
		}
		vp = region.Viewport(v.Width, v.PixelHeight)
	}
	hue, sat := v.Hue, v.Saturation
	if v.Color != "" {
		if hue, sat, err = colorconv.ParseHex(v.Color); err != nil {
			return fractal.RenderRequest{}, fmt.Errorf("color: %w", err)
		}
	}
	req := fractal.RenderRequest{
		Viewport:      vp,
		Set:           set,
		JuliaConstant: fractal.Complex{Re: v.JuliaRe, Im: v.JuliaIm},
		MaxIterations: v.Iterations,
		Hue:           hue,
		Saturation:    sat,
		Supersampling: v.Supersampling,
	}
	if err := req.Validate(); err != nil {
		return fractal.RenderRequest{}, err
	}
	return req, nil
}
