package smooth

import "github.com/banshee-data/dyno.tune/internal/vegrid"

// coverageClampHits is the hit count at or above which a cell counts
// as well sampled for the coverage clamp.
const coverageClampHits = 3

// CoverageClamp smooths like GradientLimited and then clamps each
// cell's deviation from its pre-smoothed value by coverage tier: well
// sampled cells keep a tight limit (clamp_lo) so smoothing cannot
// erase a strong, well-evidenced correction, while sparsely sampled
// cells are allowed a looser limit (clamp_hi). A nil hits grid makes
// every cell sparse.
//
// Parameters: passes (default 2), clamp_lo (default 7.0),
// clamp_hi (default 15.0).
func CoverageClamp(g *vegrid.Grid, hits *vegrid.HitsGrid, params map[string]float64) (*vegrid.Grid, error) {
	if err := checkInput(g, hits); err != nil {
		return nil, err
	}
	passes := int(param(params, "passes", 2))
	clampLo := param(params, "clamp_lo", 7.0)
	clampHi := param(params, "clamp_hi", 15.0)

	out := g
	for p := 0; p < passes; p++ {
		out = averagePass(out, func(int, int) bool { return true })
	}
	if out == g {
		out = g.Clone()
	}

	for i := range out.Cells {
		for j := range out.Cells[i] {
			sv, ok := out.At(i, j)
			if !ok {
				continue
			}
			orig, _ := g.At(i, j)
			limit := clampHi
			if hits.Hits(i, j) >= coverageClampHits {
				limit = clampLo
			}
			out.Set(i, j, clampDelta(orig, sv, limit))
		}
	}
	return out, nil
}
