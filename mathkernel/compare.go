package mathkernel

import "math"

// RealsEqual reports whether x and y are equal within a relative tolerance
// of 10^relExp or an absolute tolerance of absTol, whichever is larger.
// Every geometric projection in cylinder and tracker validates its result
// this way, matching the original PhgMathRealNumAreEqual usage scattered
// through CylPos.c (e.g. the TEMP_DEBUG comparison in
// CylPosCalcDistanceToCylSurface).
func RealsEqual(x, y float64, relExp int, absTol float64) bool {
	if x == y {
		return true
	}

	diff := math.Abs(x - y)
	if diff <= absTol {
		return true
	}

	relTol := math.Pow(10, float64(relExp))
	largest := math.Max(math.Abs(x), math.Abs(y))
	return diff <= relTol*largest
}

// UnitLength reports the Euclidean norm of a (cosX, cosY, cosZ) direction
// triple. Callers compare this against 1 within 1e-7, per the direction
// invariant in §3 of the specification.
func UnitLength(cosX, cosY, cosZ float64) float64 {
	return math.Sqrt(cosX*cosX + cosY*cosY + cosZ*cosZ)
}
