// Package collimator implements the SPECT geometric collimator stage
// (§4.8): a UNC-style parallel/fan/cone hole collimator that rotates an
// incoming photon into each candidate detector view's frame, computes
// its geometric transmission response, and samples one view by
// cumulative probability. Grounded on
// original_source/src/UNCCollimator.c.
package collimator

import (
	"fmt"
	"math"

	"github.com/irl-simset/simset/cylinder"
)

// HoleGeometry selects the hole shape a collimator models.
type HoleGeometry int

const (
	Parallel HoleGeometry = iota
	Fan
	Cone
)

// Params describes one collimator's fixed geometry, matching the
// Col_UNC_SPECT_Ty fields consumed by grfsetup/geomrsp.
type Params struct {
	Geometry         HoleGeometry
	RadiusOfRotation float64
	Thickness        float64
	HoleRadius       float64
	SeptalThickness  float64
	MinZ, MaxZ       float64
	StartAngle       float64
	StopAngle        float64
	NumViews         int
	FocalLength      float64 // Fan/Cone only
}

// holeConstants are the k1/k2/k3 pairs grfsetup precomputes per axis
// from (Thickness, FocalLength) and hole geometry.
type holeConstants struct {
	k1y, k2y, k3y float64
	k1z, k2z, k3z float64
}

// Collimator is a Params bundle plus its derived constants, built once
// at initialization and shared read-only across every tracked photon.
type Collimator struct {
	Params            Params
	cellUnitArea      float64
	distOriginToBack  float64
	rangeOfDetAngles  float64
	acceptanceAngle   float64
	holeConstants     holeConstants
	inboundCylinder   cylinder.Cylinder
}

// New builds a Collimator, running the equivalent of grfsetup: the
// hexagonal-packing cell area, the origin-to-collimator-back distance,
// the per-axis hole constants by geometry, and the detector-angle
// acceptance half-width used to enumerate candidate views.
func New(p Params) *Collimator {
	c := &Collimator{
		Params:           p,
		cellUnitArea:     2 * math.Sqrt(3) * (p.HoleRadius + p.SeptalThickness) * (p.HoleRadius + p.SeptalThickness),
		distOriginToBack: p.RadiusOfRotation + p.Thickness,
		rangeOfDetAngles: p.StopAngle - p.StartAngle,
		inboundCylinder:  cylinder.Cylinder{Radius: p.RadiusOfRotation, ZMin: p.MinZ, ZMax: p.MaxZ},
	}
	c.acceptanceAngle = math.Atan((2 * p.HoleRadius) / p.Thickness)
	if p.Geometry != Parallel {
		outsideRadius := p.RadiusOfRotation + p.Thickness
		c.acceptanceAngle += math.Atan(outsideRadius / p.FocalLength)
	}

	switch p.Geometry {
	case Parallel:
		c.holeConstants = holeConstants{
			k1y: p.Thickness, k2y: 0, k3y: p.Thickness,
			k1z: p.Thickness, k2z: 0, k3z: p.Thickness,
		}
	case Fan:
		k1y := p.FocalLength * p.Thickness / (p.Thickness + p.FocalLength)
		k2y := p.Thickness / (p.FocalLength + p.Thickness)
		k3y := p.Thickness * (p.Thickness + p.FocalLength) / (p.FocalLength + p.Thickness)
		c.holeConstants = holeConstants{
			k1y: k1y, k2y: k2y, k3y: k3y,
			k1z: p.Thickness, k2z: 0, k3z: p.Thickness,
		}
	case Cone:
		k1 := p.FocalLength * p.Thickness / (p.Thickness + p.FocalLength)
		k2 := p.Thickness / (p.FocalLength + p.Thickness)
		k3 := p.Thickness * (p.Thickness + p.FocalLength) / (p.FocalLength + p.Thickness)
		c.holeConstants = holeConstants{k1y: k1, k2y: k2, k3y: k3, k1z: k1, k2z: k2, k3z: k3}
	}
	return c
}

// Candidate is one view a photon might be detected at, carried in the
// cumulative-probability list built while scanning views.
type Candidate struct {
	CumulativeProbability float64
	TransaxialPosition    float64
	AxialPosition         float64
	ViewIndex             int
	DetectorAngle         float64
}

// Stats accumulates the scatter-to-primary reporting sums §4.8 names.
type Stats struct {
	AccPrimWeightSum float64
	AccScatWeightSum float64
}

// Report formats the accumulated sums the way UNCColPrintReport does:
// both sums unconditionally, then the scatter-to-primary ratio only
// when both sums are non-zero (a pure-primary or pure-scatter run has
// no meaningful ratio to report).
func (s Stats) Report() string {
	report := fmt.Sprintf("Sum of accepted primary weight = %3.2e\nSum of accepted scatter weight = %3.2e\n",
		s.AccPrimWeightSum, s.AccScatWeightSum)
	if s.AccPrimWeightSum != 0.0 && s.AccScatWeightSum != 0.0 {
		report += fmt.Sprintf("Scatter-to-primary ratio = %3.2e\n", s.AccScatWeightSum/s.AccPrimWeightSum)
	}
	return report
}

// Photon is the minimal state Collimate needs from a tracked photon.
type Photon struct {
	Position     cylinder.Position
	Direction    cylinder.Direction
	Weight       float64
	NumScatters  int
}

// Result is the collimated photon delivered to the binner, or ok=false
// if the photon was rejected (missed every candidate view).
type Result struct {
	Position           cylinder.Position
	Weight             float64
	TransaxialPosition float64
	AxialPosition      float64
	ViewIndex          int
	DetectorAngle      float64
}

// Collimate projects photon to the collimator's rotation radius (if
// needed), enumerates candidate views within the azimuthal acceptance
// window, computes each view's geometric response, samples one view by
// cumulative probability, and projects the photon to the collimator's
// back plane, matching UNCCollimate.
func (c *Collimator) Collimate(photon Photon, decayWeight float64, uniform func() float64, stats *Stats) (Result, bool) {
	pos := photon.Position
	dir := photon.Direction

	rSquared := pos.X*pos.X + pos.Y*pos.Y
	if rSquared < c.Params.RadiusOfRotation*c.Params.RadiusOfRotation {
		newPos, _, ok := cylinder.ProjectToCylinder(pos, dir, c.inboundCylinder)
		if !ok {
			return Result{}, false
		}
		if newPos.Z > c.Params.MaxZ || newPos.Z < c.Params.MinZ {
			return Result{}, false
		}
		pos = newPos
	}

	angleOfPhoton := math.Atan2(dir.CosY, dir.CosX)
	if angleOfPhoton < 0 {
		angleOfPhoton += 2 * math.Pi
	}

	var angleIndexInitial, angleIndexFinal float64
	if c.Params.NumViews != 1 {
		angleIndexInitial = (angleOfPhoton - c.acceptanceAngle - c.Params.StartAngle) * float64(c.Params.NumViews) / c.rangeOfDetAngles
		angleIndexFinal = (angleOfPhoton + c.acceptanceAngle - c.Params.StartAngle) * float64(c.Params.NumViews) / c.rangeOfDetAngles
	}

	var candidates []Candidate
	cumulative := 0.0

	for idx := math.Ceil(angleIndexInitial); idx <= angleIndexFinal; idx++ {
		angleIndex := idx
		wrap := (2 * math.Pi * float64(c.Params.NumViews)) / c.rangeOfDetAngles

		if angleIndex <= -1.0 {
			angleIndex += wrap
			if angleIndex <= -1.0 || angleIndex > float64(c.Params.NumViews)-1 {
				continue
			}
		}
		if angleIndex > float64(c.Params.NumViews)-1 {
			angleIndex -= wrap
			if angleIndex <= -1.0 || angleIndex > float64(c.Params.NumViews)-1 {
				continue
			}
		}

		viewIdx := int(math.Ceil(angleIndex))
		detectorAngle := c.Params.StartAngle + (c.rangeOfDetAngles*float64(viewIdx))/float64(c.Params.NumViews)

		weight, yInt, zInt, ok := c.geometricResponse(pos, dir, detectorAngle)
		if !ok {
			continue
		}
		if zInt < c.Params.MinZ || zInt > c.Params.MaxZ {
			continue
		}

		cumulative += weight
		candidates = append(candidates, Candidate{
			CumulativeProbability: cumulative,
			TransaxialPosition:    yInt,
			AxialPosition:         zInt,
			ViewIndex:             viewIdx,
			DetectorAngle:         detectorAngle,
		})
	}

	if len(candidates) == 0 || cumulative == 0 {
		return Result{}, false
	}

	draw := uniform() * cumulative
	chosen := candidates[len(candidates)-1]
	for _, cand := range candidates {
		if draw <= cand.CumulativeProbability {
			chosen = cand
			break
		}
	}

	weightMultiplier := cumulative / float64(c.Params.NumViews)
	finalWeight := photon.Weight * weightMultiplier

	if stats != nil {
		if photon.NumScatters > 0 {
			stats.AccScatWeightSum += finalWeight * decayWeight
		} else {
			stats.AccPrimWeightSum += finalWeight * decayWeight
		}
	}

	// The chosen view's back-plane intersection, (distOriginToBack,
	// TransaxialPosition, AxialPosition) in its detector frame, rotated
	// back to the lab frame.
	cosA := math.Cos(chosen.DetectorAngle)
	sinA := math.Sin(chosen.DetectorAngle)
	backPlane := cylinder.Position{
		X: c.distOriginToBack*cosA - chosen.TransaxialPosition*sinA,
		Y: c.distOriginToBack*sinA + chosen.TransaxialPosition*cosA,
		Z: chosen.AxialPosition,
	}

	return Result{
		Position:           backPlane,
		Weight:             finalWeight,
		TransaxialPosition: chosen.TransaxialPosition,
		AxialPosition:      chosen.AxialPosition,
		ViewIndex:          chosen.ViewIndex,
		DetectorAngle:      chosen.DetectorAngle,
	}, true
}

// geometricResponse rotates (pos, dir) into the detector-aligned frame
// for detectorAngle, propagates to the collimator's back plane, and
// computes the transmitted geometric response, matching geomrsp. ok is
// false when the ray is tangential to the detector face (cos_x too
// small) or the hole-half-angle cosine exceeds 1 (no overlap).
func (c *Collimator) geometricResponse(pos cylinder.Position, dir cylinder.Direction, detectorAngle float64) (weight, yInt, zInt float64, ok bool) {
	rx, ry, rcx, rcy := rotateToDetectorFrame(pos.X, pos.Y, dir.CosX, dir.CosY, detectorAngle)
	x0, y0, z0 := rx, ry, pos.Z
	cosX, cosY, cosZ := rcx, rcy, dir.CosZ

	if cosX < 1.0e-5 {
		return 0, 0, 0, false
	}

	yInt = cosY/cosX*(c.distOriginToBack-x0) + y0
	zInt = cosZ/cosX*(c.distOriginToBack-x0) + z0

	xDistToColl := c.Params.RadiusOfRotation - x0

	rty := (c.holeConstants.k1y-c.holeConstants.k2y*xDistToColl)*yInt - c.holeConstants.k3y*y0
	rtz := (c.holeConstants.k1z-c.holeConstants.k2z*xDistToColl)*zInt - c.holeConstants.k3z*z0

	rt := math.Hypot(rty, rtz) / (c.distOriginToBack - x0)

	cosHalfTheta := rt / (2.0 * c.Params.HoleRadius)
	if math.Abs(cosHalfTheta) > 1.0 {
		return 0, yInt, zInt, true
	}

	sinHalfTheta := math.Sqrt(1.0 - cosHalfTheta*cosHalfTheta)
	weight = c.Params.HoleRadius * c.Params.HoleRadius *
		(2*math.Acos(cosHalfTheta) - 2*cosHalfTheta*sinHalfTheta) / c.cellUnitArea

	return weight, yInt, zInt, true
}

// rotateToDetectorFrame rotates a position and direction's xy
// components by detectorAngle so the detector normal becomes +x,
// matching xform.
func rotateToDetectorFrame(x, y, cosX, cosY, detectorAngle float64) (rx, ry, rcx, rcy float64) {
	cosA := math.Cos(detectorAngle)
	sinA := math.Sin(detectorAngle)

	rx = x*cosA + y*sinA
	ry = -x*sinA + y*cosA

	rcx = cosX*cosA + cosY*sinA
	rcy = -cosX*sinA + cosY*cosA

	return rx, ry, rcx, rcy
}
