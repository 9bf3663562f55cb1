// Package tracker implements the photon tracker described in spec.md
// §4.7: Woodcock free-path sampling, Compton/coherent scattering,
// forced detection, and weight-window variance reduction, carrying a
// Decay from emission to the target cylinder's surface (or to an
// absorbed/terminated outcome). Grounded on original_source/src/SubObj.c
// (the material-property queries a tracking step consumes) and
// CylPos.c (the cylinder geometry a tracking step advances through).
package tracker

import (
	"math"

	"github.com/irl-simset/simset/cylinder"
	"github.com/irl-simset/simset/mathkernel"
	"github.com/irl-simset/simset/object"
	"gonum.org/v1/gonum/stat/distuv"
)

// electronRestMassKeV is the 511 keV term in the Compton energy-shift
// formula, E' = E / (1 + (E/511)(1-cosTheta)).
const electronRestMassKeV = 511.0

// Outcome records why a photon's tracking ended.
type Outcome int

const (
	Exited Outcome = iota
	Absorbed
	Terminated // fell below minEnergy, or drifted outside the limit cylinder
)

func (o Outcome) String() string {
	switch o {
	case Exited:
		return "exited"
	case Absorbed:
		return "absorbed"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Photon is a photon in flight: its kinematic state plus the scatter
// count and starting weight a tracking step needs to enforce spec.md
// §4.7's invariants.
type Photon struct {
	Position     cylinder.Position
	Direction    cylinder.Direction
	EnergyKeV    float64
	Weight       float64
	StartWeight  float64
	ScatterCount int
	Polarization *cylinder.Direction
}

// Config carries the per-run options a tracking step consults.
type Config struct {
	MaxScatters         int
	MinEnergyKeV        float64
	MinWWRatio          float64
	MaxWWRatio          float64
	ModelCoherent       bool
	ForcedDetection     bool
	ForcedNonAbsorption bool
	ModelPolarization   bool
}

// Detected is a photon delivered to the binner, either because it truly
// exited the target cylinder or because forced detection projected a
// weighted copy there mid-flight.
type Detected struct {
	Photon  Photon
	Primary bool // true if it has never scattered (no Compton/coherent events)
}

// Result is everything a single Track call produces: zero or more
// Detected photons (real exits plus any forced-detection copies) and the
// outcome of the real photon that kept being tracked.
type Result struct {
	Detected []Detected
	Outcome  Outcome
}

// newUniform wraps rng as a distuv.Uniform(0,1) sampler, relying on
// mathkernel.RNG satisfying math/rand.Source directly.
func newUniform(rng *mathkernel.RNG) *distuv.Uniform {
	return &distuv.Uniform{Min: 0, Max: 1, Src: rng}
}

// Track advances photon through obj between target and limit cylinders
// until it exits, is absorbed, or is terminated, per the step sequence
// in spec.md §4.7.
func Track(photon Photon, obj *object.Object, target, limit cylinder.Cylinder, rng *mathkernel.RNG, cfg Config) Result {
	var detected []Detected
	uniform := newUniform(rng)

	for {
		muMax, err := obj.Materials.MaxAttenuation(photon.EnergyKeV, cfg.ModelCoherent)
		if err != nil {
			return Result{Detected: detected, Outcome: Terminated}
		}
		if muMax <= 0 {
			return Result{Detected: detected, Outcome: Exited}
		}

		// Step 1: Woodcock free-path distance.
		u := uniform.Rand()
		d := -math.Log(u) / muMax

		// Step 2: advance.
		candidate := cylinder.Position{
			X: photon.Position.X + d*photon.Direction.CosX,
			Y: photon.Position.Y + d*photon.Direction.CosY,
			Z: photon.Position.Z + d*photon.Direction.CosZ,
		}

		// Step 7 (checked early): did the candidate point leave the
		// target cylinder? If so the real photon has exited.
		if cylinder.IsOutside(candidate, target) || candidate.Z < target.ZMin || candidate.Z > target.ZMax {
			photon.Position = candidate
			detected = append(detected, Detected{Photon: photon, Primary: photon.ScatterCount == 0})
			return Result{Detected: detected, Outcome: Exited}
		}

		// Drifted outside the limit cylinder: terminate without
		// delivering a photon.
		if cylinder.IsOutside(candidate, limit) || candidate.Z < limit.ZMin || candidate.Z > limit.ZMax {
			return Result{Detected: detected, Outcome: Terminated}
		}

		photon.Position = candidate

		sliceIdx, xIdx, yIdx, ok := obj.PositionToIndices(photon.Position)
		if !ok {
			return Result{Detected: detected, Outcome: Terminated}
		}
		slice := obj.Slices[sliceIdx]
		materialIdx := int(slice.AttTissue[yIdx*slice.AttNumX+xIdx])

		mu, err := obj.Materials.GetAttenuation(materialIdx, photon.EnergyKeV, cfg.ModelCoherent)
		if err != nil {
			return Result{Detected: detected, Outcome: Terminated}
		}

		// Step 3: accept/reject the candidate interaction.
		v := uniform.Rand()
		if v > mu/muMax {
			continue // virtual collision; keep stepping from the new position
		}

		// Step 4: choose interaction type.
		probScatter, _ := obj.Materials.GetProbScatter(materialIdx, photon.EnergyKeV, cfg.ModelCoherent)
		probComptonGivenScatter, _ := obj.Materials.GetProbComptonGivenScatter(materialIdx, photon.EnergyKeV, cfg.ModelCoherent)

		w := uniform.Rand()
		isScatter := w < probScatter
		if !isScatter {
			if cfg.ForcedNonAbsorption {
				photon.Weight *= probScatter
				isScatter = true
			} else {
				return Result{Detected: detected, Outcome: Absorbed}
			}
		}

		isCompton := uniform.Rand() < probComptonGivenScatter

		if photon.ScatterCount >= cfg.MaxScatters {
			return Result{Detected: detected, Outcome: Absorbed}
		}

		if isCompton {
			cosTheta := sampleKleinNishina(photon.EnergyKeV, uniform)
			photon.EnergyKeV = photon.EnergyKeV / (1 + (photon.EnergyKeV/electronRestMassKeV)*(1-cosTheta))
			phi := uniform.Rand() * 2 * math.Pi
			photon.Direction = rotateDirection(photon.Direction, cosTheta, phi)
		} else {
			cosTheta, err := obj.Materials.GetCoherentCosTheta(materialIdx, photon.EnergyKeV, uniform.Rand())
			if err != nil {
				return Result{Detected: detected, Outcome: Absorbed}
			}
			phi := uniform.Rand() * 2 * math.Pi
			photon.Direction = rotateDirection(photon.Direction, cosTheta, phi)
		}
		photon.ScatterCount++

		// Step 6: energy termination.
		if photon.EnergyKeV < cfg.MinEnergyKeV {
			return Result{Detected: detected, Outcome: Terminated}
		}

		// Forced detection: project a weighted copy to the target
		// cylinder along the current direction.
		if cfg.ForcedDetection {
			if fd, ok := forcedDetect(photon, obj, target); ok {
				detected = append(detected, Detected{Photon: fd, Primary: false})
			}
		}

		// Weight-window variance reduction.
		var numCopies int
		var rouletteKilled bool
		photon.Weight, numCopies, rouletteKilled = applyWeightWindow(photon.Weight, photon.StartWeight, cfg, uniform)
		if rouletteKilled {
			return Result{Detected: detected, Outcome: Absorbed}
		}

		// A split above maxWWRatio yields numCopies copies of weight/
		// numCopies; this loop keeps tracking one, and every other copy
		// is tracked independently (sharing rng's sequence) with its
		// detected photons folded into this call's Result.
		for extra := 1; extra < numCopies; extra++ {
			split := Track(photon, obj, target, limit, rng, cfg)
			detected = append(detected, split.Detected...)
		}
	}
}

// forcedDetect projects photon to the target cylinder along its current
// direction, attenuating its weight by the transmission integral along
// that straight path (stepped voxel-to-voxel via InnerCellDistance),
// matching spec.md §4.7's forced-detection paragraph.
func forcedDetect(photon Photon, obj *object.Object, target cylinder.Cylinder) (Photon, bool) {
	newPos, dist, ok := cylinder.ProjectToCylinder(photon.Position, photon.Direction, target)
	if !ok || dist <= 0 {
		return Photon{}, false
	}

	transmission := stepTransmission(photon.Position, photon.Direction, photon.EnergyKeV, dist, obj)

	fd := photon
	fd.Position = newPos
	fd.Weight = photon.Weight * transmission
	return fd, true
}

// stepTransmission computes exp(-integral of mu ds) along (pos,dir) for
// totalDist, stepping cell-to-cell using Object.InnerCellDistance.
func stepTransmission(pos cylinder.Position, dir cylinder.Direction, energyKeV, totalDist float64, obj *object.Object) float64 {
	traveled := 0.0
	integral := 0.0
	cur := pos

	for traveled < totalDist {
		sliceIdx, xIdx, yIdx, ok := obj.PositionToIndices(cur)
		if !ok {
			break
		}
		slice := obj.Slices[sliceIdx]
		materialIdx := int(slice.AttTissue[yIdx*slice.AttNumX+xIdx])
		mu, err := obj.Materials.GetAttenuation(materialIdx, energyKeV, false)
		if err != nil {
			mu = 0
		}

		dx, dy, dz := obj.InnerCellDistance(cur, dir, sliceIdx, xIdx, yIdx)
		step := minPositive(dx, dy, dz, totalDist-traveled)
		if step <= 0 {
			step = totalDist - traveled
		}

		integral += mu * step
		traveled += step
		cur = cylinder.Position{
			X: cur.X + step*dir.CosX,
			Y: cur.Y + step*dir.CosY,
			Z: cur.Z + step*dir.CosZ,
		}
	}

	return math.Exp(-integral)
}

func minPositive(vals ...float64) float64 {
	best := math.Inf(1)
	for _, v := range vals {
		if v > 0 && v < best {
			best = v
		}
	}
	if math.IsInf(best, 1) {
		return 0
	}
	return best
}

// applyWeightWindow enforces spec.md §4.7's weight-bound invariant:
// weight must stay within [minWWRatio, maxWWRatio] of startWeight. A
// photon drifting below is killed with probability 1-r (else boosted to
// the window midpoint); a photon drifting above is split into
// numCopies copies of weight/numCopies, all of which the caller must
// keep tracking to preserve the §8 conservation invariant. numCopies is
// always >= 1; callers that ignore it when it is 1 get the previous
// single-copy behavior unchanged.
func applyWeightWindow(weight, startWeight float64, cfg Config, uniform *distuv.Uniform) (newWeight float64, numCopies int, rouletteKilled bool) {
	if startWeight <= 0 {
		return weight, 1, false
	}
	ratio := weight / startWeight

	if ratio < cfg.MinWWRatio {
		mid := (cfg.MinWWRatio + cfg.MaxWWRatio) / 2 * startWeight
		survivalProb := weight / mid
		if uniform.Rand() > survivalProb {
			return 0, 1, true
		}
		return mid, 1, false
	}

	if ratio > cfg.MaxWWRatio {
		mid := (cfg.MinWWRatio + cfg.MaxWWRatio) / 2 * startWeight
		n := math.Ceil(weight / mid)
		return weight / n, int(n), false
	}

	return weight, 1, false
}

// sampleKleinNishina draws a Compton scattering angle cosine via Kahn's
// rejection technique, the standard Klein-Nishina sampling algorithm
// used throughout Monte Carlo photon transport codes (Kahn, 1956).
func sampleKleinNishina(energyKeV float64, uniform *distuv.Uniform) float64 {
	alpha := energyKeV / electronRestMassKeV

	for {
		if uniform.Rand() <= (2*alpha+1)/(2*alpha+9) {
			rho := 1 + 2*alpha*uniform.Rand()
			if uniform.Rand() <= 4*(1/rho-1/(rho*rho)) {
				return 1 - (rho-1)/alpha
			}
		} else {
			rho := (2*alpha + 1) / (1 + 2*alpha*uniform.Rand())
			cosTheta := 1 - (rho-1)/alpha
			if uniform.Rand() <= 0.5*(cosTheta*cosTheta+1/rho) {
				return cosTheta
			}
		}
	}
}

// rotateDirection rotates dir by polar angle arccos(cosTheta) and
// azimuth phi about its own axis, via mathkernel's basis-rotation
// helper.
func rotateDirection(dir cylinder.Direction, cosTheta, phi float64) cylinder.Direction {
	rotated := mathkernel.RotateAboutDirection(mathkernel.Direction{CosX: dir.CosX, CosY: dir.CosY, CosZ: dir.CosZ}, cosTheta, phi)
	return cylinder.Direction{CosX: rotated.CosX, CosY: rotated.CosY, CosZ: rotated.CosZ}
}
