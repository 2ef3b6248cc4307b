package smooth

import "github.com/banshee-data/dyno.tune/internal/vegrid"

// KnockAware gates smoothing on the neighbourhood rather than the
// single cell: the pass count comes from the mean absolute correction
// of the populated 4-neighbourhood including the centre, with the same
// lo/hi linear taper as the bilateral gate. A spatial cluster of large
// corrections (a likely knock-retard region) is preserved even where
// an individual cell inside it is small.
//
// Parameters: passes (3), gate_lo (5.0), gate_hi (12.0).
func KnockAware(g *vegrid.Grid, hits *vegrid.HitsGrid, params map[string]float64) (*vegrid.Grid, error) {
	if err := checkInput(g, hits); err != nil {
		return nil, err
	}
	basePasses := int(param(params, "passes", 3))
	gateLo := param(params, "gate_lo", 5.0)
	gateHi := param(params, "gate_hi", 12.0)

	passes := make([][]int, g.Rows())
	for i := range passes {
		passes[i] = make([]int, g.Cols())
		for j := range passes[i] {
			if mag, ok := localAbsMean(g, i, j); ok {
				passes[i][j] = taperPasses(mag, gateLo, gateHi, basePasses)
			}
		}
	}
	out := runTieredPasses(g, passes)
	if out == g {
		out = g.Clone()
	}
	return out, nil
}
