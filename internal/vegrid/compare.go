package vegrid

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// CompareResult scores a test grid against a baseline. AvgAbsDelta is
// nil when no cell is populated in both grids: zero would falsely
// imply perfect agreement.
type CompareResult struct {
	AvgAbsDelta *float64
	Overlap     int
	TotalCells  int
}

// Compare computes the average absolute cell-wise delta between two
// aligned grids, over cells populated in both. Misaligned axes return
// an *AlignmentError.
func Compare(baseline, test *Grid) (*CompareResult, error) {
	if err := baseline.Validate(); err != nil {
		return nil, err
	}
	if err := test.Validate(); err != nil {
		return nil, err
	}
	if err := AssertAligned(baseline, test); err != nil {
		return nil, err
	}

	res := &CompareResult{TotalCells: baseline.Rows() * baseline.Cols()}
	var deltas []float64
	for i := range baseline.Cells {
		for j := range baseline.Cells[i] {
			bv, bok := baseline.At(i, j)
			tv, tok := test.At(i, j)
			if bok && tok {
				deltas = append(deltas, math.Abs(tv-bv))
			}
		}
	}
	res.Overlap = len(deltas)
	if len(deltas) > 0 {
		mean := stat.Mean(deltas, nil)
		res.AvgAbsDelta = &mean
	}
	return res, nil
}
