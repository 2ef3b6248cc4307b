package vegrid

import "fmt"

// AlignmentError reports an axis mismatch between two grids. Comparing
// or subtracting misaligned grids would silently conflate unrelated
// engine operating points, so callers must treat this as fatal.
type AlignmentError struct {
	Axis   string // "rpm" or "load"
	GridA  []int
	GridB  []int
	Detail string
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("%s axis mismatch: %s (grid A %v, grid B %v)", e.Axis, e.Detail, e.GridA, e.GridB)
}

// AssertAligned verifies element-wise identity of both axis sequences.
// On mismatch it returns an *AlignmentError naming the offending axis.
func AssertAligned(a, b *Grid) error {
	if err := assertAxis("rpm", a.RPMBins, b.RPMBins); err != nil {
		return err
	}
	return assertAxis("load", a.LoadBins, b.LoadBins)
}

func assertAxis(axis string, binsA, binsB []int) error {
	if len(binsA) != len(binsB) {
		return &AlignmentError{
			Axis: axis, GridA: binsA, GridB: binsB,
			Detail: fmt.Sprintf("grid A has %d bins, grid B has %d", len(binsA), len(binsB)),
		}
	}
	for i := range binsA {
		if binsA[i] != binsB[i] {
			return &AlignmentError{
				Axis: axis, GridA: binsA, GridB: binsB,
				Detail: fmt.Sprintf("bin %d is %d in grid A but %d in grid B", i, binsA[i], binsB[i]),
			}
		}
	}
	return nil
}
