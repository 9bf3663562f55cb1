package object

import (
	"math"

	"github.com/irl-simset/simset/productivity"
)

// VoxelActivity returns the activity (in curies) of the voxel at
// (sliceIdx, xIdx, yIdx), supplied by the caller since activity values
// live alongside, but are not identical to, the tissue-index grids.
type VoxelActivity func(sliceIdx, xIdx, yIdx int) float64

// PlannedDecay is one (slice, voxel, angle-bin) cell's simulation plan:
// how many decays to actually simulate there this time bin, and the
// per-decay starting weight that keeps the weighted sum unbiased.
type PlannedDecay struct {
	SliceIdx, XIdx, YIdx, AngleIdx int
	Simulated                      uint64
	StartWeight                    float64
}

// CalcTimeBinDecays computes, for every (slice, voxel, angle-bin) cell,
// the expected number of real decays and the number actually simulated
// this time bin, matching SubObjCalcTimeBinDecays and the algorithm in
// spec.md §4.4:
//
//   expectedReal = decaysPerCurie * voxelActivity * angleSize/2 * binDuration
//   simulated    = round(expectedReal * requestedEvents / sumExpectedDetected)
//   startWeight  = expectedReal / simulated
//
// where sumExpectedDetected sums expectedReal*maxProductivity over every
// cell (the denominator accounts for the fraction of decays expected to
// actually reach the critical zone). Fractional simulated counts are
// resolved by Russian roulette: roundUp(u) rounds up when the
// fractional part exceeds a fresh uniform draw u, down otherwise.
func CalcTimeBinDecays(o *Object, prod *productivity.Table, decaysPerCurie, binDuration float64, requestedEvents uint64, activity VoxelActivity, uniform func() float64) []PlannedDecay {
	type cell struct {
		sliceIdx, xIdx, yIdx, angleIdx int
		expectedReal                  float64
		maxProductivity                float64
	}

	var cells []cell
	var sumExpectedDetected float64

	numBins := prod.NumBins()
	for si, s := range o.Slices {
		for x := 0; x < s.ActNumX; x++ {
			for y := 0; y < s.ActNumY; y++ {
				act := activity(si, x, y)
				if act <= 0 {
					continue
				}
				for a := 0; a < numBins; a++ {
					angleSize := prod.AngleSize(si, a)
					maxProd := prod.MaxProductivity(si, a)
					expectedReal := decaysPerCurie * act * (angleSize / 2) * binDuration

					cells = append(cells, cell{
						sliceIdx: si, xIdx: x, yIdx: y, angleIdx: a,
						expectedReal:    expectedReal,
						maxProductivity: maxProd,
					})
					sumExpectedDetected += expectedReal * maxProd
				}
			}
		}
	}

	out := make([]PlannedDecay, 0, len(cells))
	if sumExpectedDetected <= 0 {
		return out
	}

	for _, c := range cells {
		scaled := c.expectedReal * float64(requestedEvents) / sumExpectedDetected
		simulated := roundWithRouletting(scaled, uniform)
		if simulated == 0 {
			continue
		}
		out = append(out, PlannedDecay{
			SliceIdx: c.sliceIdx, XIdx: c.xIdx, YIdx: c.yIdx, AngleIdx: c.angleIdx,
			Simulated:    simulated,
			StartWeight:  c.expectedReal / float64(simulated),
		})
	}

	return out
}

func roundWithRouletting(v float64, uniform func() float64) uint64 {
	whole := math.Floor(v)
	frac := v - whole
	if frac > uniform() {
		whole++
	}
	return uint64(whole)
}
