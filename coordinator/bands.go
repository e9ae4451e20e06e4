package coordinator

import fractal "github.com/marben/dist_fractal"

// SplitRows partitions [0, height) into n contiguous bands. The first
// height%n bands carry one extra row so the bands cover every row exactly
// once. n is clamped to [1, height] so that no band is empty.
func SplitRows(height, n int) []fractal.RowBand {
	if height <= 0 {
		return nil
	}
	n = max(1, min(n, height))

	base, extra := height/n, height%n
	bands := make([]fractal.RowBand, n)
	start := 0
	for i := range bands {
		rows := base
		if i < extra {
			rows++
		}
		bands[i] = fractal.RowBand{StartRow: start, RowCount: rows}
		start += rows
	}
	return bands
}
