package mathkernel

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Direction is a unit vector expressed as direction cosines, matching the
// PHG_Direction layout used throughout the tracker and collimator.
type Direction struct {
	CosX, CosY, CosZ float64
}

func (d Direction) vec() mgl64.Vec3 {
	return mgl64.Vec3{d.CosX, d.CosY, d.CosZ}
}

func fromVec(v mgl64.Vec3) Direction {
	return Direction{CosX: v[0], CosY: v[1], CosZ: v[2]}
}

// RotateAboutDirection returns a new unit direction that makes angle theta
// (given as cosTheta) with d and has azimuth phi about d. This is the
// Compton/coherent scatter direction update described in §4.7; the decay
// generator also uses it to jitter a positron decay's partner photon.
//
// The perpendicular basis (u, v) spanning the plane normal to d is built
// with a cross product against a helper world axis (y when d lies close
// to x, x otherwise), and the result is assembled from that basis with
// mgl64.Vec3 arithmetic; no quaternion is involved.
func RotateAboutDirection(d Direction, cosTheta, phi float64) Direction {
	axis := d.vec()

	// Pick a helper vector not parallel to axis.
	helper := mgl64.Vec3{1, 0, 0}
	if math.Abs(axis[0]) > 0.9 {
		helper = mgl64.Vec3{0, 1, 0}
	}

	u := axis.Cross(helper).Normalize()
	v := axis.Cross(u).Normalize()

	sinTheta := math.Sqrt(math.Max(0, 1-cosTheta*cosTheta))

	// Build the rotated vector directly in the (u, v, axis) basis, then
	// renormalize to guard against accumulated floating point drift.
	rotated := u.Mul(sinTheta * math.Cos(phi)).
		Add(v.Mul(sinTheta * math.Sin(phi))).
		Add(axis.Mul(cosTheta))

	return fromVec(rotated.Normalize())
}

// IsotropicDirection constructs a direction from a polar cosine (cosAlpha)
// and azimuth phi measured about the z axis, as used by the decay generator
// to build an emission direction from a sampled (cosAlpha, phi) pair:
// (d*cosPhi, d*sinPhi, cosAlpha) where d = sqrt(1 - cosAlpha^2).
func IsotropicDirection(cosAlpha, phi float64) Direction {
	d := math.Sqrt(math.Max(0, 1-cosAlpha*cosAlpha))
	return Direction{
		CosX: d * math.Cos(phi),
		CosY: d * math.Sin(phi),
		CosZ: cosAlpha,
	}
}
