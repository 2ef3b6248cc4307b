package experiment

import (
	"bytes"
	"fmt"
	"math"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/dyno.tune/internal/vegrid"
)

// DeltaHeatmapFile is the delta heatmap artifact filename.
const DeltaHeatmapFile = "delta_heatmap.png"

// deltaGrid adapts the cell-wise |test-baseline| surface to the
// plotter grid interface. Cells absent in either grid render as NaN,
// which the heatmap leaves unpainted.
type deltaGrid struct {
	baseline *vegrid.Grid
	test     *vegrid.Grid
}

func (d deltaGrid) Dims() (c, r int) { return d.baseline.Cols(), d.baseline.Rows() }
func (d deltaGrid) X(c int) float64  { return float64(d.baseline.LoadBins[c]) }
func (d deltaGrid) Y(r int) float64  { return float64(d.baseline.RPMBins[r]) }

func (d deltaGrid) Z(c, r int) float64 {
	bv, bok := d.baseline.At(r, c)
	tv, tok := d.test.At(r, c)
	if !bok || !tok {
		return math.NaN()
	}
	return math.Abs(tv - bv)
}

// writeDeltaHeatmap renders the smoothed-vs-baseline delta surface as
// a PNG under the run's output directory.
func (r *Runner) writeDeltaHeatmap(res *Result, baseline, smoothed *vegrid.Grid) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("VE delta vs baseline (%s)", res.Fingerprint.Kernel)
	p.X.Label.Text = "load bin"
	p.Y.Label.Text = "rpm bin"

	hm := plotter.NewHeatMap(deltaGrid{baseline: baseline, test: smoothed}, palette.Heat(12, 1))
	p.Add(hm)

	wt, err := p.WriterTo(8*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render delta heatmap: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return fmt.Errorf("render delta heatmap: %w", err)
	}
	path := filepath.Join(res.OutputDir, DeltaHeatmapFile)
	if err := r.fs.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write delta heatmap: %w", err)
	}
	return nil
}
