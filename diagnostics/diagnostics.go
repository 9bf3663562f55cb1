// Package diagnostics implements the run-level testable properties and
// QA-style summaries a completed simulation is checked against: the
// conservation-of-weight property and per-run photon/scatter summary
// statistics. Grounded on the teacher's qa.go, which builds a
// QualityInfo summary for a run of pings using github.com/samber/lo's
// Min/Max/FindDuplicates/Union helpers over per-record slices; here the
// same lo helpers summarize per-photon weight/scatter-count slices
// instead of per-ping beam counts.
package diagnostics

import (
	"fmt"
	"math"

	"github.com/samber/lo"

	"github.com/irl-simset/simset/tracker"
)

// PhotonRecord is the minimal shape diagnostics needs from a delivered
// photon: its weight, energy, and scatter count, plus whether it was a
// primary (unscattered) or forced-detection contribution.
type PhotonRecord struct {
	Weight       float64
	EnergyKeV    float64
	ScatterCount int
	Primary      bool
	DecayTime    float64
}

// RunSummary is the QA-style report built once a run (or a batch of
// streams) has finished delivering photons.
type RunSummary struct {
	NumPhotons      int
	WeightSum       float64
	MinWeight       float64
	MaxWeight       float64
	MinEnergyKeV    float64
	MaxEnergyKeV    float64
	MaxScatterSeen  int
	ScatterHisto    map[int]int
	MinDecayTime    float64
	MaxDecayTime    float64
}

// Summarize builds a RunSummary from every photon record a run
// delivered, mirroring QInfo's shape: pull domains with lo.Min/lo.Max
// rather than hand-rolled loops. An empty record set yields a
// zero-value summary with an empty (non-nil) histogram; no separate
// flag marks such a run as degenerate.
func Summarize(records []PhotonRecord) RunSummary {
	if len(records) == 0 {
		return RunSummary{ScatterHisto: map[int]int{}}
	}

	weights := make([]float64, len(records))
	energies := make([]float64, len(records))
	scatters := make([]int, len(records))
	decayTimes := make([]float64, len(records))

	for i, r := range records {
		weights[i] = r.Weight
		energies[i] = r.EnergyKeV
		scatters[i] = r.ScatterCount
		decayTimes[i] = r.DecayTime
	}

	histo := make(map[int]int)
	for _, s := range scatters {
		histo[s]++
	}

	return RunSummary{
		NumPhotons:     len(records),
		WeightSum:      lo.Sum(weights),
		MinWeight:      lo.Min(weights),
		MaxWeight:      lo.Max(weights),
		MinEnergyKeV:   lo.Min(energies),
		MaxEnergyKeV:   lo.Max(energies),
		MaxScatterSeen: lo.Max(scatters),
		ScatterHisto:   histo,
		MinDecayTime:   lo.Min(decayTimes),
		MaxDecayTime:   lo.Max(decayTimes),
	}
}

// ConservationCheck is the result of spec.md §8's conservation
// invariant: the summed weight of every emitted-and-accepted photon
// should equal the expected real-detected count within statistical
// noise that shrinks as 1/sqrt(N).
type ConservationCheck struct {
	ObservedWeightSum float64
	ExpectedDetected  float64
	NumPhotons        int
	ToleranceSigma    float64
	Within            bool
}

// CheckConservation compares the observed weight sum against an
// expected real-detected count, accepting the result when the
// difference is within sigmaBudget standard deviations, one standard
// deviation being expectedDetected/sqrt(numPhotons): the relative
// Monte Carlo noise 1/sqrt(numPhotons) scaled back to the expected
// statistic. A numPhotons of zero is never
// "within": there is nothing to measure a conservation property against.
func CheckConservation(observedWeightSum, expectedDetected float64, numPhotons int, sigmaBudget float64) ConservationCheck {
	check := ConservationCheck{
		ObservedWeightSum: observedWeightSum,
		ExpectedDetected:  expectedDetected,
		NumPhotons:        numPhotons,
		ToleranceSigma:    sigmaBudget,
	}
	if numPhotons == 0 {
		check.Within = false
		return check
	}

	noise := expectedDetected / math.Sqrt(float64(numPhotons))
	if noise == 0 {
		check.Within = observedWeightSum == expectedDetected
		return check
	}

	diff := math.Abs(observedWeightSum - expectedDetected)
	check.Within = diff <= sigmaBudget*noise
	return check
}

// PhotonInvariantViolation names one spec.md §8 per-photon invariant
// failure: a delivered photon whose weight, energy, or scatter count
// fell outside the bounds every photon on the binner's hot path must
// satisfy.
type PhotonInvariantViolation struct {
	Index  int
	Reason string
}

// CheckPhotonInvariants walks every delivered photon and flags weight
// <= 0, energy outside [minEnergyKeV, emissionEnergyKeV], or a scatter
// count above maxScatters — the three per-photon guarantees spec.md §8
// requires of everything reaching the binner.
func CheckPhotonInvariants(photons []tracker.Detected, minEnergyKeV, emissionEnergyKeV float64, maxScatters int) []PhotonInvariantViolation {
	var violations []PhotonInvariantViolation

	for i, d := range photons {
		p := d.Photon
		switch {
		case p.Weight <= 0:
			violations = append(violations, PhotonInvariantViolation{Index: i, Reason: fmt.Sprintf("weight %.6g <= 0", p.Weight)})
		case p.EnergyKeV < minEnergyKeV || p.EnergyKeV > emissionEnergyKeV:
			violations = append(violations, PhotonInvariantViolation{Index: i, Reason: fmt.Sprintf("energy %.6g outside [%.6g, %.6g]", p.EnergyKeV, minEnergyKeV, emissionEnergyKeV)})
		case p.ScatterCount > maxScatters:
			violations = append(violations, PhotonInvariantViolation{Index: i, Reason: fmt.Sprintf("scatter count %d exceeds %d", p.ScatterCount, maxScatters)})
		}
	}

	return violations
}

// DuplicateDecayIndices flags decay indices that were delivered more
// than once for the same stream — a symptom of a decay-index counter
// shared incorrectly across streams — the way QInfo's duplicate-ping
// detection flags timestamps repeated across a run via lo.FindDuplicates.
func DuplicateDecayIndices(decayIndices []uint64) []uint64 {
	return lo.FindDuplicates(decayIndices)
}

// DirectionCosineNorm returns |cos_x|^2 + |cos_y|^2 + |cos_z|^2, the
// quantity spec.md §8's direction-normalization invariant requires to
// equal 1 within 1e-7 for every decay-generator direction.
func DirectionCosineNorm(cx, cy, cz float64) float64 {
	return cx*cx + cy*cy + cz*cz
}
