// Package smooth provides the pluggable grid-smoothing kernels and
// their registry. Every kernel shares one contract: it takes a VE
// correction grid plus an optional hits grid, and returns a new grid of
// identical shape. Absent cells stay absent, the populated-cell count
// never increases, and output is deterministic for identical inputs
// and parameters.
package smooth

import (
	"fmt"
	"math"

	"github.com/banshee-data/dyno.tune/internal/vegrid"
)

// Func is the kernel contract. hits may be nil when no coverage data
// is available; coverage-aware kernels treat nil as all-zero counts.
type Func func(g *vegrid.Grid, hits *vegrid.HitsGrid, params map[string]float64) (*vegrid.Grid, error)

// neighbourOffsets are the 4-connected offsets used by every kernel.
var neighbourOffsets = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// checkInput validates the kernel preconditions. A malformed grid or a
// hits grid of a different shape is a programmer error at the call
// site and fails immediately rather than truncating.
func checkInput(g *vegrid.Grid, hits *vegrid.HitsGrid) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("kernel input: %w", err)
	}
	if hits == nil {
		return nil
	}
	if len(hits.RPMBins) != g.Rows() || len(hits.LoadBins) != g.Cols() {
		return fmt.Errorf("kernel input: hits grid is %dx%d but value grid is %dx%d",
			len(hits.RPMBins), len(hits.LoadBins), g.Rows(), g.Cols())
	}
	for i, row := range hits.Counts {
		if len(row) != g.Cols() {
			return fmt.Errorf("kernel input: hits grid row %d has %d cells, want %d", i, len(row), g.Cols())
		}
	}
	return nil
}

// param reads a parameter with a fallback default.
func param(params map[string]float64, name string, def float64) float64 {
	if v, ok := params[name]; ok {
		return v
	}
	return def
}

// averagePass runs one 4-neighbour averaging pass. Only populated
// cells contribute and only cells for which active returns true are
// rewritten; everything else passes through unchanged. Reads come from
// the input grid, so a pass is order-independent.
func averagePass(g *vegrid.Grid, active func(row, col int) bool) *vegrid.Grid {
	out := g.Clone()
	for i := range g.Cells {
		for j := range g.Cells[i] {
			v, ok := g.At(i, j)
			if !ok || !active(i, j) {
				continue
			}
			sum, n := v, 1
			for _, off := range neighbourOffsets {
				ni, nj := i+off[0], j+off[1]
				if ni < 0 || ni >= g.Rows() || nj < 0 || nj >= g.Cols() {
					continue
				}
				if nv, nok := g.At(ni, nj); nok {
					sum += nv
					n++
				}
			}
			out.Set(i, j, sum/float64(n))
		}
	}
	return out
}

// taperPasses maps a magnitude onto a pass count: full passes at or
// below lo, zero at or above hi, linearly tapered between.
func taperPasses(mag, lo, hi float64, max int) int {
	if max <= 0 {
		return 0
	}
	if mag <= lo {
		return max
	}
	if mag >= hi || hi <= lo {
		return 0
	}
	frac := (hi - mag) / (hi - lo)
	return int(math.Round(frac * float64(max)))
}

// runTieredPasses executes up to the largest requested pass count,
// where each cell participates only while its own budget lasts.
func runTieredPasses(g *vegrid.Grid, passes [][]int) *vegrid.Grid {
	max := 0
	for i := range passes {
		for j := range passes[i] {
			if passes[i][j] > max {
				max = passes[i][j]
			}
		}
	}
	out := g
	for p := 0; p < max; p++ {
		out = averagePass(out, func(row, col int) bool { return passes[row][col] > p })
	}
	return out
}

// clampDelta limits how far smoothed may move from orig, symmetric in
// sign.
func clampDelta(orig, smoothed, limit float64) float64 {
	d := smoothed - orig
	if d > limit {
		return orig + limit
	}
	if d < -limit {
		return orig - limit
	}
	return smoothed
}

// localAbsMean returns the mean absolute value over the populated
// 4-neighbourhood including the centre; ok is false when the centre is
// absent.
func localAbsMean(g *vegrid.Grid, row, col int) (float64, bool) {
	v, ok := g.At(row, col)
	if !ok {
		return 0, false
	}
	sum, n := math.Abs(v), 1
	for _, off := range neighbourOffsets {
		ni, nj := row+off[0], col+off[1]
		if ni < 0 || ni >= g.Rows() || nj < 0 || nj >= g.Cols() {
			continue
		}
		if nv, nok := g.At(ni, nj); nok {
			sum += math.Abs(nv)
			n++
		}
	}
	return sum / float64(n), true
}

// localMAD returns the mean absolute deviation of the populated
// 4-neighbourhood (centre included) from its own mean.
func localMAD(g *vegrid.Grid, row, col int) (float64, bool) {
	v, ok := g.At(row, col)
	if !ok {
		return 0, false
	}
	vals := []float64{v}
	for _, off := range neighbourOffsets {
		ni, nj := row+off[0], col+off[1]
		if ni < 0 || ni >= g.Rows() || nj < 0 || nj >= g.Cols() {
			continue
		}
		if nv, nok := g.At(ni, nj); nok {
			vals = append(vals, nv)
		}
	}
	mean := 0.0
	for _, x := range vals {
		mean += x
	}
	mean /= float64(len(vals))
	mad := 0.0
	for _, x := range vals {
		mad += math.Abs(x - mean)
	}
	return mad / float64(len(vals)), true
}
