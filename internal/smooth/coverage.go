package smooth

import "github.com/banshee-data/dyno.tune/internal/vegrid"

// CoverageWeighted averages with confidence weights instead of hard
// clamps: every contributing cell, centre included, carries weight
// 1 + alpha*hits. Cells below min_hits are excluded both as
// contributors and as recipients, so an untrusted cell neither pulls
// its neighbours nor gets rewritten itself. With a nil hits grid every
// cell is below min_hits and the grid passes through unchanged.
//
// Parameters: passes (1), alpha (0.5), min_hits (2).
func CoverageWeighted(g *vegrid.Grid, hits *vegrid.HitsGrid, params map[string]float64) (*vegrid.Grid, error) {
	if err := checkInput(g, hits); err != nil {
		return nil, err
	}
	passes := int(param(params, "passes", 1))
	alpha := param(params, "alpha", 0.5)
	minHits := int(param(params, "min_hits", 2))

	out := g.Clone()
	for p := 0; p < passes; p++ {
		out = coveragePass(out, hits, alpha, minHits)
	}
	return out, nil
}

func coveragePass(g *vegrid.Grid, hits *vegrid.HitsGrid, alpha float64, minHits int) *vegrid.Grid {
	out := g.Clone()
	for i := range g.Cells {
		for j := range g.Cells[i] {
			v, ok := g.At(i, j)
			if !ok || hits.Hits(i, j) < minHits {
				continue
			}
			w := 1 + alpha*float64(hits.Hits(i, j))
			wSum, vSum := w, w*v
			for _, off := range neighbourOffsets {
				ni, nj := i+off[0], j+off[1]
				if ni < 0 || ni >= g.Rows() || nj < 0 || nj >= g.Cols() {
					continue
				}
				nv, nok := g.At(ni, nj)
				if !nok || hits.Hits(ni, nj) < minHits {
					continue
				}
				nw := 1 + alpha*float64(hits.Hits(ni, nj))
				wSum += nw
				vSum += nw * nv
			}
			out.Set(i, j, vSum/wSum)
		}
	}
	return out
}
