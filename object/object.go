// Package object implements the voxelized object: a stack of axial
// slices, each carrying a grid of tissue indices for activity and for
// attenuation, backed by a per-material table of scatter/attenuation
// properties and coherent-scatter angular distributions. Grounded on
// original_source/src/SubObj.c.
package object

import (
	"errors"
	"math"
)

// Errors returned while constructing or querying an Object.
var (
	ErrIndexOutOfRange  = errors.New("object: translated tissue index exceeds material table size")
	ErrSliceMismatch    = errors.New("object: slices do not share identical x/y bounds")
	ErrEnergyOutOfRange = errors.New("object: energy outside supported material table range")
	ErrUnsupportedCoh   = errors.New("object: material has no coherent-scatter table entry")
)

// MaterialProperties holds the per-energy-bin scatter/attenuation values
// for one material, indexed by an energy bin derived by rounding the
// photon's keV energy to the nearest integer and subtracting the table's
// minimum supported energy — SubObjGetProbScatter/GetProbComptonCondnl's
// "+0.5 then truncate" rounding rule.
type MaterialProperties struct {
	MinEnergyKeV float64
	// Bins[i] holds the properties for energy MinEnergyKeV+i keV.
	Bins []EnergyBin
}

// EnergyBin is one row of a MaterialProperties table.
type EnergyBin struct {
	Attenuation             float64 // linear attenuation coefficient (mu)
	ProbScatter             float64 // P(scatter | interaction)
	ProbComptonGivenScatter float64 // P(Compton | scatter)
}

func (m MaterialProperties) energyIndex(energyKeV float64) (int, error) {
	if energyKeV <= m.MinEnergyKeV {
		return 0, nil
	}
	idx := int(energyKeV - m.MinEnergyKeV + 0.5)
	if idx < 0 || idx >= len(m.Bins) {
		return 0, ErrEnergyOutOfRange
	}
	return idx, nil
}

// CoherentTable holds, for one material, a set of energy rows each
// carrying a cumulative-probability-indexed table of scattering angle
// cosines, matching subObjCohScatAngles.
type CoherentTable struct {
	// Rows must be sorted ascending by EnergyKeV.
	Rows []CoherentRow
}

// CoherentRow is one energy row of a CoherentTable: AngleCosines[i] is
// the scattering angle cosine whose cumulative probability is
// (i+1)/len(AngleCosines).
type CoherentRow struct {
	EnergyKeV    float64
	AngleCosines []float64
}

// MaterialTable is the full set of per-material properties used by an
// Object, keyed by translated material index.
type MaterialTable struct {
	NoCoh []MaterialProperties
	Coh   []MaterialProperties
	CohAngles []CoherentTable
}

// GetProbScatter returns P(scatter) for the given material and energy,
// matching SubObjGetProbScatter.
func (t MaterialTable) GetProbScatter(materialIdx int, energyKeV float64, modelCoh bool) (float64, error) {
	table := t.NoCoh
	if modelCoh {
		table = t.Coh
	}
	if materialIdx < 0 || materialIdx >= len(table) {
		return 0, ErrIndexOutOfRange
	}
	idx, err := table[materialIdx].energyIndex(energyKeV)
	if err != nil {
		return 0, err
	}
	return table[materialIdx].Bins[idx].ProbScatter, nil
}

// GetProbComptonGivenScatter returns P(Compton | scatter), matching
// SubObjGetProbComptonCondnl.
func (t MaterialTable) GetProbComptonGivenScatter(materialIdx int, energyKeV float64, modelCoh bool) (float64, error) {
	table := t.NoCoh
	if modelCoh {
		table = t.Coh
	}
	if materialIdx < 0 || materialIdx >= len(table) {
		return 0, ErrIndexOutOfRange
	}
	idx, err := table[materialIdx].energyIndex(energyKeV)
	if err != nil {
		return 0, err
	}
	return table[materialIdx].Bins[idx].ProbComptonGivenScatter, nil
}

// GetAttenuation returns the linear attenuation coefficient for the
// given material and energy.
func (t MaterialTable) GetAttenuation(materialIdx int, energyKeV float64, modelCoh bool) (float64, error) {
	table := t.NoCoh
	if modelCoh {
		table = t.Coh
	}
	if materialIdx < 0 || materialIdx >= len(table) {
		return 0, ErrIndexOutOfRange
	}
	idx, err := table[materialIdx].energyIndex(energyKeV)
	if err != nil {
		return 0, err
	}
	return table[materialIdx].Bins[idx].Attenuation, nil
}

// MaxAttenuation returns the largest attenuation coefficient across
// every registered material at energyKeV, the mu_max term Woodcock
// free-path sampling divides by in spec.md §4.7 step 1.
func (t MaterialTable) MaxAttenuation(energyKeV float64, modelCoh bool) (float64, error) {
	table := t.NoCoh
	if modelCoh {
		table = t.Coh
	}
	var maxMu float64
	found := false
	for i := range table {
		idx, err := table[i].energyIndex(energyKeV)
		if err != nil {
			continue
		}
		found = true
		if mu := table[i].Bins[idx].Attenuation; mu > maxMu {
			maxMu = mu
		}
	}
	if !found {
		return 0, ErrEnergyOutOfRange
	}
	return maxMu, nil
}

// GetCoherentCosTheta samples a coherent scattering angle cosine for the
// given material and energy, using drawnU (uniform on [0,1)) as the
// cumulative-probability draw. It interpolates first along the
// cumulative axis within each bracketing energy row, then linearly
// between the two rows, matching SubObjGetCohTheta2.
func (t MaterialTable) GetCoherentCosTheta(materialIdx int, energyKeV float64, drawnU float64) (float64, error) {
	if materialIdx < 0 || materialIdx >= len(t.CohAngles) {
		return 0, ErrUnsupportedCoh
	}
	table := t.CohAngles[materialIdx]
	if len(table.Rows) < 2 {
		return 0, ErrUnsupportedCoh
	}

	lo := 0
	for lo < len(table.Rows)-2 && table.Rows[lo+1].EnergyKeV <= energyKeV {
		lo++
	}
	row1, row2 := table.Rows[lo], table.Rows[lo+1]

	cos1 := interpolateCumulative(row1.AngleCosines, drawnU)
	cos2 := interpolateCumulative(row2.AngleCosines, drawnU)

	if row2.EnergyKeV == row1.EnergyKeV {
		return cos1, nil
	}

	cosTheta := ((energyKeV-row1.EnergyKeV)*cos2 + (row2.EnergyKeV-energyKeV)*cos1) / (row2.EnergyKeV - row1.EnergyKeV)
	if cosTheta < -1 || cosTheta > 1 {
		cosTheta = math.Max(-1, math.Min(1, cosTheta))
	}
	return cosTheta, nil
}

// interpolateCumulative linearly interpolates angleCosines (indexed by
// cumulative probability (i+1)/n) at cumulative value u.
func interpolateCumulative(angleCosines []float64, u float64) float64 {
	n := len(angleCosines)
	scaled := float64(n) * u
	idx := int(math.Floor(scaled))

	if idx <= 0 {
		frac := scaled
		return frac*angleCosines[0] + (1-frac)*1
	}
	if idx >= n {
		return -1
	}
	frac := scaled - float64(idx)
	return frac*angleCosines[idx] + (1-frac)*angleCosines[idx-1]
}
