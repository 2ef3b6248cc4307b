// Package main renders an interactive HTML heatmap of a VE correction
// grid, or of the cell-wise delta between two aligned grids, using
// go-echarts. The output is a standalone flat file for sharing a
// kernel experiment's effect without any server.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/dyno.tune/internal/vegrid"
)

func main() {
	var (
		gridPath     = flag.String("grid", "", "Path to the grid to plot")
		baselinePath = flag.String("baseline", "", "Optional baseline; plots |grid-baseline| instead of raw values")
		outPath      = flag.String("out", "grid_report.html", "Output HTML file")
		title        = flag.String("title", "VE correction grid", "Chart title")
	)
	flag.Parse()

	if *gridPath == "" {
		fmt.Fprintln(os.Stderr, "usage: grid-report -grid <file> [-baseline <file>] [-out <file>]")
		os.Exit(2)
	}

	grid, _, err := vegrid.ReadGrid(*gridPath)
	if err != nil {
		fatalf("read grid: %v", err)
	}

	surface := grid
	subtitle := *gridPath
	if *baselinePath != "" {
		baseline, _, err := vegrid.ReadGrid(*baselinePath)
		if err != nil {
			fatalf("read baseline: %v", err)
		}
		if err := vegrid.AssertAligned(baseline, grid); err != nil {
			fmt.Fprintf(os.Stderr, "grids are not comparable: %v\n", err)
			os.Exit(1)
		}
		surface = deltaSurface(baseline, grid)
		subtitle = fmt.Sprintf("|%s - %s|", *gridPath, *baselinePath)
	}

	if err := renderHeatmap(surface, *title, subtitle, *outPath); err != nil {
		fatalf("render report: %v", err)
	}
	fmt.Printf("report written to %s\n", *outPath)
}

// deltaSurface builds a grid of absolute deltas over cells populated
// in both inputs.
func deltaSurface(baseline, test *vegrid.Grid) *vegrid.Grid {
	out := vegrid.NewGrid(test.RPMBins, test.LoadBins)
	for i := range test.Cells {
		for j := range test.Cells[i] {
			bv, bok := baseline.At(i, j)
			tv, tok := test.At(i, j)
			if bok && tok {
				out.Set(i, j, math.Abs(tv-bv))
			}
		}
	}
	return out
}

func renderHeatmap(g *vegrid.Grid, title, subtitle, path string) error {
	xLabels := make([]string, len(g.LoadBins))
	for i, b := range g.LoadBins {
		xLabels[i] = strconv.Itoa(b)
	}
	yLabels := make([]string, len(g.RPMBins))
	for i, b := range g.RPMBins {
		yLabels[i] = strconv.Itoa(b)
	}

	data := make([]opts.HeatMapData, 0, g.Rows()*g.Cols())
	minV, maxV := math.Inf(1), math.Inf(-1)
	for i := range g.Cells {
		for j := range g.Cells[i] {
			v, ok := g.At(i, j)
			if !ok {
				continue
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{j, i, v}})
			minV = math.Min(minV, v)
			maxV = math.Max(maxV, v)
		}
	}
	if len(data) == 0 {
		minV, maxV = 0, 0
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "load bin", Data: xLabels}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Name: "rpm bin", Data: yLabels}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(minV),
			Max:        float32(maxV),
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#31688e", "#35b779", "#fde725"}},
		}),
	)
	hm.AddSeries("ve", data)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return hm.Render(f)
}

func fatalf(format string, v ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", v...)
	os.Exit(1)
}
