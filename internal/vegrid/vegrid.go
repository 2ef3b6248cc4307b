// Package vegrid models VE (volumetric efficiency) correction grids:
// rectangular tables of fuel-delivery correction percentages indexed by
// engine-speed (RPM) bin and load bin. It includes delimited-file I/O,
// axis alignment checks, and baseline comparison utilities.
package vegrid

import (
	"fmt"
)

// Cell is a single grid cell. A cell with Populated == false carries no
// measurement; it is never zero and must never be fabricated by a
// smoothing pass.
type Cell struct {
	Value     float64
	Populated bool
}

// Grid is a VE correction surface: RPM bins down the rows, load bins
// across the columns. Cells is row-major, one row per RPM bin.
type Grid struct {
	RPMBins  []int
	LoadBins []int
	Cells    [][]Cell
}

// HitsGrid carries per-cell sample counts parallel to a Grid. A zero
// count means the cell is untrusted.
type HitsGrid struct {
	RPMBins  []int
	LoadBins []int
	Counts   [][]int
}

// NewGrid allocates an empty (all-absent) grid for the given axes.
func NewGrid(rpmBins, loadBins []int) *Grid {
	cells := make([][]Cell, len(rpmBins))
	for i := range cells {
		cells[i] = make([]Cell, len(loadBins))
	}
	return &Grid{
		RPMBins:  append([]int(nil), rpmBins...),
		LoadBins: append([]int(nil), loadBins...),
		Cells:    cells,
	}
}

// NewHitsGrid allocates a zeroed hits grid for the given axes.
func NewHitsGrid(rpmBins, loadBins []int) *HitsGrid {
	counts := make([][]int, len(rpmBins))
	for i := range counts {
		counts[i] = make([]int, len(loadBins))
	}
	return &HitsGrid{
		RPMBins:  append([]int(nil), rpmBins...),
		LoadBins: append([]int(nil), loadBins...),
		Counts:   counts,
	}
}

// Rows returns the number of RPM bins.
func (g *Grid) Rows() int { return len(g.RPMBins) }

// Cols returns the number of load bins.
func (g *Grid) Cols() int { return len(g.LoadBins) }

// Set populates the cell at (row, col).
func (g *Grid) Set(row, col int, v float64) {
	g.Cells[row][col] = Cell{Value: v, Populated: true}
}

// Clear marks the cell at (row, col) absent.
func (g *Grid) Clear(row, col int) {
	g.Cells[row][col] = Cell{}
}

// At returns the cell value and whether it is populated.
func (g *Grid) At(row, col int) (float64, bool) {
	c := g.Cells[row][col]
	return c.Value, c.Populated
}

// Clone returns a deep copy with independent cell storage.
func (g *Grid) Clone() *Grid {
	out := NewGrid(g.RPMBins, g.LoadBins)
	for i := range g.Cells {
		copy(out.Cells[i], g.Cells[i])
	}
	return out
}

// PopulatedCount returns the number of populated cells.
func (g *Grid) PopulatedCount() int {
	n := 0
	for i := range g.Cells {
		for j := range g.Cells[i] {
			if g.Cells[i][j].Populated {
				n++
			}
		}
	}
	return n
}

// Validate checks the structural invariants: rectangular cell storage
// matching the axis lengths, and strictly increasing, unique bins on
// both axes. A violation is a programmer error at the call site, not a
// recoverable input condition.
func (g *Grid) Validate() error {
	if g == nil {
		return fmt.Errorf("grid is nil")
	}
	if len(g.Cells) != len(g.RPMBins) {
		return fmt.Errorf("grid has %d rows but %d rpm bins", len(g.Cells), len(g.RPMBins))
	}
	for i, row := range g.Cells {
		if len(row) != len(g.LoadBins) {
			return fmt.Errorf("grid row %d has %d cells but %d load bins", i, len(row), len(g.LoadBins))
		}
	}
	if err := checkBins("rpm", g.RPMBins); err != nil {
		return err
	}
	return checkBins("load", g.LoadBins)
}

// Hits returns the count at (row, col), or 0 when h is nil. A nil
// HitsGrid is a valid "no coverage data" state for coverage-aware
// consumers.
func (h *HitsGrid) Hits(row, col int) int {
	if h == nil {
		return 0
	}
	return h.Counts[row][col]
}

func checkBins(axis string, bins []int) error {
	for i := 1; i < len(bins); i++ {
		if bins[i] <= bins[i-1] {
			return fmt.Errorf("%s bins not strictly increasing at index %d: %d then %d", axis, i, bins[i-1], bins[i])
		}
	}
	return nil
}
