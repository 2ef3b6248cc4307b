package smooth

import "github.com/banshee-data/dyno.tune/internal/vegrid"

// AdaptiveVariance picks a per-cell pass count from a local
// mean-absolute-deviation score: below mad_lo the neighbourhood is
// already stable and gets zero passes, above mad_hi it is noisy and
// gets base_passes+2, and moderate variance uses base_passes.
//
// Parameters: base_passes (2), mad_lo (1.0), mad_hi (4.0).
func AdaptiveVariance(g *vegrid.Grid, hits *vegrid.HitsGrid, params map[string]float64) (*vegrid.Grid, error) {
	if err := checkInput(g, hits); err != nil {
		return nil, err
	}
	base := int(param(params, "base_passes", 2))
	madLo := param(params, "mad_lo", 1.0)
	madHi := param(params, "mad_hi", 4.0)

	passes := make([][]int, g.Rows())
	for i := range passes {
		passes[i] = make([]int, g.Cols())
		for j := range passes[i] {
			mad, ok := localMAD(g, i, j)
			if !ok {
				continue
			}
			switch {
			case mad < madLo:
				passes[i][j] = 0
			case mad > madHi:
				passes[i][j] = base + 2
			default:
				passes[i][j] = base
			}
		}
	}
	out := runTieredPasses(g, passes)
	if out == g {
		out = g.Clone()
	}
	return out, nil
}
