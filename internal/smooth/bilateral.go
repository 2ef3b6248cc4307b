package smooth

import (
	"math"

	"github.com/banshee-data/dyno.tune/internal/vegrid"
)

// Bilateral is the edge-preserving kernel. It runs three stages:
//
//  1. Gate: each cell gets a pass count inversely proportional to the
//     magnitude of its existing correction. Corrections at or above
//     gate_hi are treated as meaningful signal and receive zero
//     passes; corrections at or below gate_lo receive the full pass
//     budget; the range between tapers linearly.
//  2. Bilateral averaging: neighbour weight is the product of the
//     spatial weight (1 for the 4-neighbourhood) and a Gaussian in the
//     value difference with bandwidth sigma; the cell's own value
//     carries an extra self_weight bias.
//  3. Clamp: deviation from the pre-smoothed value is limited by hit
//     tier (hits >= hits_hi tight, >= hits_lo medium, else loose),
//     symmetric to the sign of the value.
//
// Parameters: passes (2), sigma (2.0), self_weight (2.0),
// gate_lo (5.0), gate_hi (12.0), clamp_tight (3.0), clamp_med (6.0),
// clamp_loose (10.0), hits_lo (3), hits_hi (8).
func Bilateral(g *vegrid.Grid, hits *vegrid.HitsGrid, params map[string]float64) (*vegrid.Grid, error) {
	if err := checkInput(g, hits); err != nil {
		return nil, err
	}
	basePasses := int(param(params, "passes", 2))
	sigma := param(params, "sigma", 2.0)
	selfWeight := param(params, "self_weight", 2.0)
	gateLo := param(params, "gate_lo", 5.0)
	gateHi := param(params, "gate_hi", 12.0)
	clampTight := param(params, "clamp_tight", 3.0)
	clampMed := param(params, "clamp_med", 6.0)
	clampLoose := param(params, "clamp_loose", 10.0)
	hitsLo := int(param(params, "hits_lo", 3))
	hitsHi := int(param(params, "hits_hi", 8))

	// Stage 1: magnitude gate.
	passes := make([][]int, g.Rows())
	for i := range passes {
		passes[i] = make([]int, g.Cols())
		for j := range passes[i] {
			if v, ok := g.At(i, j); ok {
				passes[i][j] = taperPasses(math.Abs(v), gateLo, gateHi, basePasses)
			}
		}
	}

	// Stage 2: bilateral weighted passes.
	out := g.Clone()
	maxPasses := 0
	for i := range passes {
		for j := range passes[i] {
			if passes[i][j] > maxPasses {
				maxPasses = passes[i][j]
			}
		}
	}
	for p := 0; p < maxPasses; p++ {
		out = bilateralPass(out, passes, p, sigma, selfWeight)
	}

	// Stage 3: tiered clamp against the pre-smoothed grid.
	for i := range out.Cells {
		for j := range out.Cells[i] {
			sv, ok := out.At(i, j)
			if !ok {
				continue
			}
			orig, _ := g.At(i, j)
			limit := clampLoose
			switch h := hits.Hits(i, j); {
			case h >= hitsHi:
				limit = clampTight
			case h >= hitsLo:
				limit = clampMed
			}
			out.Set(i, j, clampDelta(orig, sv, limit))
		}
	}
	return out, nil
}

func bilateralPass(g *vegrid.Grid, passes [][]int, pass int, sigma, selfWeight float64) *vegrid.Grid {
	out := g.Clone()
	twoSigmaSq := 2 * sigma * sigma
	for i := range g.Cells {
		for j := range g.Cells[i] {
			v, ok := g.At(i, j)
			if !ok || passes[i][j] <= pass {
				continue
			}
			// Self-weight biases the result toward the cell's own value.
			wSum := 1 + selfWeight
			vSum := v * (1 + selfWeight)
			for _, off := range neighbourOffsets {
				ni, nj := i+off[0], j+off[1]
				if ni < 0 || ni >= g.Rows() || nj < 0 || nj >= g.Cols() {
					continue
				}
				nv, nok := g.At(ni, nj)
				if !nok {
					continue
				}
				d := nv - v
				w := math.Exp(-(d * d) / twoSigmaSq)
				wSum += w
				vSum += w * nv
			}
			out.Set(i, j, vSum/wSum)
		}
	}
	return out
}
