package smooth

import "github.com/banshee-data/dyno.tune/internal/vegrid"

// GradientLimited is the simplest kernel: a fixed number of 4-neighbour
// averaging passes over populated cells. It is the baseline against
// which the other kernels are scored.
//
// Parameters: passes (default 3).
func GradientLimited(g *vegrid.Grid, hits *vegrid.HitsGrid, params map[string]float64) (*vegrid.Grid, error) {
	if err := checkInput(g, hits); err != nil {
		return nil, err
	}
	passes := int(param(params, "passes", 3))
	out := g
	for p := 0; p < passes; p++ {
		out = averagePass(out, func(int, int) bool { return true })
	}
	if out == g {
		out = g.Clone()
	}
	return out, nil
}
