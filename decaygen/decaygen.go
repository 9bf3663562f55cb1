// Package decaygen implements the decay generator described in spec.md
// §4.6: nested iteration over slice, voxel, and angle bin, producing
// individual Decay events with a sampled position and isotropic-within-
// bin emission direction. Grounded on
// original_source/src/SubObj.c's SubObjGenVoxAngCellDecay.
package decaygen

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/irl-simset/simset/cylinder"
	"github.com/irl-simset/simset/mathkernel"
	"github.com/irl-simset/simset/object"
	"github.com/irl-simset/simset/productivity"
)

// AnnihilationEnergyKeV is the fixed energy of each photon from a
// positron-electron annihilation (two 511 keV photons emitted
// back-to-back), as opposed to a SPECT isotope's configured emission
// energy — a physical constant, never an operator-chosen parameter.
const AnnihilationEnergyKeV = 511.0

// fwhmToSigmaFactor is the ratio of a Gaussian's FWHM to its standard
// deviation (FWHM = 2*sqrt(2*ln2)*sigma); dividing a FWHM by it gives
// sigma.
const fwhmToSigmaFactor = 2.3548200450309493

// DecayType distinguishes the photon(s) a decay produces.
type DecayType int

const (
	// SinglePhoton decays emit one photon, for SPECT sources.
	SinglePhoton DecayType = iota
	// Positron decays yield two back-to-back photons, for PET sources:
	// the one Next returns and the one Partner derives from it, each
	// tracked by its own tracker call.
	Positron
	// Complex is reserved for future multi-photon decay schemes.
	Complex
)

// SourceMode controls how a decay's position is sampled within its
// voxel.
type SourceMode int

const (
	// Uniform samples x and y uniformly within the voxel.
	Uniform SourceMode = iota
	// PointSource snaps x and y to the voxel center.
	PointSource
	// LineSource snaps x and y to the voxel center and additionally
	// randomizes z across the slice's axial extent.
	LineSource
)

// Decay is one sampled emission event: a starting position, an emission
// direction, a decay type, a timestamp within the scan, and the
// starting photon weight inherited from its PlannedDecay cell.
type Decay struct {
	Position  cylinder.Position
	Direction cylinder.Direction
	Type      DecayType
	DecayTime float64 // seconds into the scan, in [0, ScanLength)
	Weight    float64
}

// ErrRejectionLimitExceeded is returned when a decay's sampled position
// repeatedly falls outside the object cylinder; this should only ever
// happen for a badly misconfigured voxel/cylinder pairing.
var ErrRejectionLimitExceeded = errors.New("decaygen: exceeded position-rejection retry limit")

// maxRejections bounds the position-resample loop described in spec.md
// §4.6 ("rejected and a new one drawn if the sampled position lies
// outside the object cylinder"); a voxel correctly inside the object
// cylinder succeeds on its first or second draw, so this is purely a
// safety backstop against a misconfigured object.
const maxRejections = 1000

// Generator produces decays for a single planned (slice, voxel,
// angle-bin) cell, reusing no per-slice buffer of its own — the caller
// is expected to reuse a single PlannedDecay slice across slices of
// equal voxel count, per spec.md §4.6's laziness requirement.
type Generator struct {
	Object       *object.Object
	Productivity *productivity.Table
	RNG          *mathkernel.RNG
	SourceMode   SourceMode
	DecayType    DecayType

	// ScanLength is the scan duration in seconds; decay times are
	// sampled uniformly over [0, ScanLength).
	ScanLength float64

	// ModelNonCollinearity, when true, jitters a Positron decay's
	// second photon off exact antiparallel by a small angle sampled
	// from a Gaussian of the given FWHM (degrees), matching
	// PhgHdr.c's PhgIsAdjForCollinearity toggle.
	ModelNonCollinearity   bool
	NonCollinearityFWHMDeg float64
}

// Next produces one decay for the given planned cell. It resamples the
// xy position (and, for LineSource, z) until the result lies inside the
// object cylinder.
func (g *Generator) Next(plan object.PlannedDecay) (Decay, error) {
	slice := g.Object.Slices[plan.SliceIdx]

	cellW := (slice.XMax - slice.XMin) / float64(slice.ActNumX)
	cellH := (slice.YMax - slice.YMin) / float64(slice.ActNumY)
	xLo := slice.XMin + float64(plan.XIdx)*cellW
	yLo := slice.YMin + float64(plan.YIdx)*cellH

	for attempt := 0; attempt < maxRejections; attempt++ {
		var pos cylinder.Position
		switch g.SourceMode {
		case PointSource:
			pos = cylinder.Position{X: xLo + cellW/2, Y: yLo + cellH/2}
		case LineSource:
			pos = cylinder.Position{
				X: xLo + cellW/2,
				Y: yLo + cellH/2,
				Z: slice.ZMin + g.RNG.Uniform01()*(slice.ZMax-slice.ZMin),
			}
		default:
			pos = cylinder.Position{
				X: xLo + g.RNG.Uniform01()*cellW,
				Y: yLo + g.RNG.Uniform01()*cellH,
			}
		}
		if g.SourceMode != LineSource {
			pos.Z = slice.ZMin + (slice.ZMax-slice.ZMin)/2
		}

		if cylinder.IsOutside(pos, g.Object.Cylinder) {
			continue
		}

		cosAlpha := g.Productivity.SampleAngle(plan.SliceIdx, plan.AngleIdx, g.RNG.Uniform01())
		phi := g.RNG.Uniform01() * 2 * 3.141592653589793

		dir := mathkernel.IsotropicDirection(cosAlpha, phi)

		return Decay{
			Position:  pos,
			Direction: cylinder.Direction{CosX: dir.CosX, CosY: dir.CosY, CosZ: dir.CosZ},
			Type:      g.DecayType,
			DecayTime: g.RNG.Uniform01() * g.ScanLength,
			Weight:    plan.StartWeight,
		}, nil
	}

	return Decay{}, ErrRejectionLimitExceeded
}

// Partner builds the second, antiparallel photon a Positron decay emits
// back-to-back with the primary one returned by Next, per spec.md §2/§3/
// §4.6. It shares the primary's position, decay time, and weight, and
// points in the opposite direction, optionally jittered off exact
// collinearity by a small Gaussian-sampled angle when
// ModelNonCollinearity is set (PhgHdr.c's PhgIsAdjForCollinearity).
func (g *Generator) Partner(primary Decay) Decay {
	opposite := cylinder.Direction{
		CosX: -primary.Direction.CosX,
		CosY: -primary.Direction.CosY,
		CosZ: -primary.Direction.CosZ,
	}

	if g.ModelNonCollinearity && g.NonCollinearityFWHMDeg > 0 {
		sigmaRad := (g.NonCollinearityFWHMDeg * math.Pi / 180) / fwhmToSigmaFactor
		normal := distuv.Normal{Mu: 0, Sigma: sigmaRad, Src: g.RNG}
		theta := math.Abs(normal.Rand())
		phi := g.RNG.Uniform01() * 2 * math.Pi

		jittered := mathkernel.RotateAboutDirection(
			mathkernel.Direction{CosX: opposite.CosX, CosY: opposite.CosY, CosZ: opposite.CosZ},
			math.Cos(theta), phi,
		)
		opposite = cylinder.Direction{CosX: jittered.CosX, CosY: jittered.CosY, CosZ: jittered.CosZ}
	}

	return Decay{
		Position:  primary.Position,
		Direction: opposite,
		Type:      primary.Type,
		DecayTime: primary.DecayTime,
		Weight:    primary.Weight,
	}
}
