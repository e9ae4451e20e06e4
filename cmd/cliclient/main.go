// cliclient renders one fractal image and saves it as a PNG file.
package main

import (
	"fmt"
	"log"

	"github.com/alexflint/go-arg"
	"github.com/pkg/profile"
)

type args struct {
	Config     string  `arg:"-c,--config,env:FRACTAL_CONFIG" help:"TOML configuration file"`
	Preset     string  `arg:"-p,--preset" help:"landmark region (full, seahorse, elephant, minibrot, triple, dragon)"`
	Query      string  `arg:"-q,--query" help:"render parameters as a URL query, e.g. 're=-0.75&iter=500'"`
	Set        string  `arg:"--set" help:"mandelbrot or julia"`
	Width      int     `arg:"-W,--width" help:"image width in pixels"`
	Height     int     `arg:"-H,--height" help:"image height in pixels"`
	Iterations int     `arg:"-i,--iter" help:"maximum iteration count"`
	Zoom       float64 `arg:"-z,--zoom" help:"viewport height in plane units"`
	SS         int     `arg:"--ss" help:"supersampling factor"`
	Workers    int     `arg:"-j,--workers" help:"worker goroutines (default GOMAXPROCS)"`
	NATS       bool    `arg:"--nats" help:"render on nats workers instead of locally"`
	Out        string  `arg:"-o,--out" default:"mandel.png" help:"output PNG file"`
	Profile    string  `arg:"--profile" help:"write a cpu, mem or trace profile to the current directory"`
}

func (args) Description() string {
	return "renders a Mandelbrot or Julia set image to PNG"
}

func main() {
	log.Printf("Starting CLI client...")
	if err := run(); err != nil {
		log.Fatalf("run: %+v", err)
	}
}

func run() error {
	var a args
	p := arg.MustParse(&a)

	switch a.Profile {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "trace":
		defer profile.Start(profile.TraceProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		p.Fail(fmt.Sprintf("unknown profile %q", a.Profile))
	}

	return renderToFile(a)
}
