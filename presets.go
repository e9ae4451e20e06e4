package fractal

import (
	"fmt"
	"sort"
)

// Region is a rectangle of the complex plane.
type Region struct {
	Xmin, Xmax float64
	Ymin, Ymax float64
}

// Viewport centers a w×h raster on the region, fitting its vertical extent.
func (r Region) Viewport(w, h int) Viewport {
	return Viewport{
		CenterRe:      (r.Xmin + r.Xmax) / 2,
		CenterIm:      (r.Ymin + r.Ymax) / 2,
		HeightInUnits: r.Ymax - r.Ymin,
		PixelWidth:    w,
		PixelHeight:   h,
	}
}

// Classic regions / landmarks in the Mandelbrot set
var (
	// Full set, the default view
	FullSet = Region{
		Xmin: -2.75,
		Xmax: 1.25,
		Ymin: -1.5,
		Ymax: 1.5,
	}

	// Seahorse Valley – dense filaments and repeating “seahorse” curls
	SeahorseValley = Region{
		Xmin: -0.8,
		Xmax: -0.7,
		Ymin: 0.05,
		Ymax: 0.15,
	}

	// Elephant Valley – large bulb with trunk-like tendrils
	ElephantValley = Region{
		Xmin: -1.85,
		Xmax: -1.75,
		Ymin: -0.10,
		Ymax: -0.02,
	}

	// Spiral Minibrot – small Mandelbrot copy with tight spiral arms
	SpiralMinibrot = Region{
		Xmin: -0.7435,
		Xmax: -0.7420,
		Ymin: 0.1310,
		Ymax: 0.1325,
	}

	// Triple Spiral – threefold symmetric spiral structure
	TripleSpiral = Region{
		Xmin: -0.7480,
		Xmax: -0.7450,
		Ymin: 0.0950,
		Ymax: 0.0980,
	}

	// Valley of the Dragon – deep, highly detailed spiral filaments
	ValleyOfTheDragon = Region{
		Xmin: -0.7400,
		Xmax: -0.7350,
		Ymin: 0.1800,
		Ymax: 0.1850,
	}
)

// Presets maps preset names accepted by the config and CLI to regions.
var Presets = map[string]Region{
	"full":     FullSet,
	"seahorse": SeahorseValley,
	"elephant": ElephantValley,
	"minibrot": SpiralMinibrot,
	"triple":   TripleSpiral,
	"dragon":   ValleyOfTheDragon,
}

// Preset looks up a region by name.
func Preset(name string) (Region, error) {
	r, ok := Presets[name]
	if !ok {
		return Region{}, fmt.Errorf("unknown preset %q (have %v)", name, PresetNames())
	}
	return r, nil
}

// PresetNames returns the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for n := range Presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
