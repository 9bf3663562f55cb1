// Package cylinder implements the z-axis-aligned cylinder geometry used
// throughout the simulator: the Target, Object, Limit and CriticalZone
// cylinders, ray intersection, clipping to the limit cylinder, and the
// critical-zone entry/exit test used by forced detection. Grounded on
// original_source/src/CylPos.c.
package cylinder

import (
	"math"

	"github.com/irl-simset/simset/mathkernel"
)

// Position is a point in the lab frame.
type Position struct {
	X, Y, Z float64
}

// Direction is a unit direction cosine triple.
type Direction struct {
	CosX, CosY, CosZ float64
}

// Cylinder is a z-axis-aligned circular cylinder: centerX/centerY place
// its axis, radius its extent in x/y, and zMin/zMax its axial extent.
type Cylinder struct {
	CenterX, CenterY float64
	Radius           float64
	ZMin, ZMax       float64
}

// axisParallelTol is the tolerance CylPosProjectToCylinder uses to decide
// a ray running along the z axis (cosine_z == +/-1) will never intersect
// a cylinder's curved surface.
const axisParallelTol = 1e-7

// Find2DIntersection solves for the two (or one, or zero) intersection
// distances of a ray (x0,y0,cosX,cosY) with a circle of the given
// radius, matching CylPosFind2dIntersection. When only one root exists
// both returned distances equal it, since some callers rely on d1==d2
// to detect a tangent intersection.
func Find2DIntersection(x0, y0, cosX, cosY, radius float64) (d1, d2 float64, ok bool) {
	a := cosX*cosX + cosY*cosY
	b := 2 * (x0*cosX + y0*cosY)
	c := x0*x0 + y0*y0 - radius*radius

	q := mathkernel.SolveQuadratic(a, b, c)
	if q.Roots == 0 {
		return 0, 0, false
	}
	if q.Roots == 1 {
		return q.Min, q.Min, true
	}
	return q.Min, q.Max, true
}

// DistanceToSurface returns the distance along (pos,dir) to the curved
// surface of cyl, matching CylPosCalcDistanceToCylSurface: pick the
// larger root when two roots exist (the ray is already inside or on the
// surface, so the smaller root would be behind the start point or
// degenerate), otherwise the single root.
func DistanceToSurface(pos Position, dir Direction, cyl Cylinder) float64 {
	xCord := pos.X - cyl.CenterX
	yCord := pos.Y - cyl.CenterY

	a := 1 - dir.CosZ*dir.CosZ
	b := 2 * (xCord*dir.CosX + yCord*dir.CosY)
	c := xCord*xCord + yCord*yCord - cyl.Radius*cyl.Radius

	q := mathkernel.SolveQuadratic(a, b, c)
	if q.Roots == 2 {
		return q.Max
	}
	return q.Min
}

// ProjectToCylinder advances (pos,dir) to the curved surface of cyl,
// matching CylPosProjectToCylinder. ok is false when the direction runs
// parallel to the z axis, since such a ray never meets a curved surface.
func ProjectToCylinder(pos Position, dir Direction, cyl Cylinder) (newPos Position, dist float64, ok bool) {
	if mathkernel.RealsEqual(dir.CosZ, 1.0, -7, 0) || mathkernel.RealsEqual(dir.CosZ, -1.0, -7, 0) {
		return Position{}, 0, false
	}

	dist = DistanceToSurface(pos, dir, cyl)
	if dist > 0 {
		newPos = Position{
			X: pos.X + dist*dir.CosX,
			Y: pos.Y + dist*dir.CosY,
			Z: pos.Z + dist*dir.CosZ,
		}
	} else {
		newPos = pos
	}
	return newPos, dist, true
}

// IsOutside reports whether pos lies outside cyl's x/y extent, ignoring
// z, matching CylPosIsOutsideObjCylinder.
func IsOutside(pos Position, cyl Cylinder) bool {
	dx := pos.X - cyl.CenterX
	dy := pos.Y - cyl.CenterY
	return dx*dx+dy*dy > cyl.Radius*cyl.Radius
}

// ClipToLimit advances pos along dir until it sits on or inside limit's
// curved surface, further restricting the distance travelled if the
// uncapped projection would exit through an axial cap first. Positions
// already inside the limit cylinder are left untouched. Matches
// CylPosClipToLimitCylinder.
func ClipToLimit(pos Position, dir Direction, limit Cylinder) Position {
	if pos.X*pos.X+pos.Y*pos.Y <= limit.Radius*limit.Radius {
		return pos
	}

	dist := DistanceToSurface(pos, dir, limit)

	if z := pos.Z + dist*dir.CosZ; z > limit.ZMax {
		ratio := (limit.ZMax - pos.Z) / (dist * dir.CosZ)
		dist *= ratio
	} else if z < limit.ZMin {
		ratio := (limit.ZMin - pos.Z) / (dist * dir.CosZ)
		dist *= ratio
	}

	return Position{
		X: pos.X + dist*dir.CosX,
		Y: pos.Y + dist*dir.CosY,
		Z: pos.Z + dist*dir.CosZ,
	}
}

// CriticalZoneIntersection is the result of WillIntersectCriticalZone:
// the photon's path enters the critical zone at EntryDistance and would
// exit it at ExitDistance (both measured along the direction from pos),
// with the corresponding boundary positions recorded.
type CriticalZoneIntersection struct {
	EntryDistance, ExitDistance float64
	EntryPosition, ExitPosition Position
}

// WillIntersectCriticalZone determines whether (pos,dir) enters the
// critical zone cylinder, and if so where it enters and exits. It covers
// the four disjoint cases from spec §4.3: already inside axially,
// approaching from below, approaching from above, and near in-plane
// travel where the axial crossing degenerates and the curved surface is
// used instead. A negative distance in either direction means "no
// intersection" is reported, mirroring CylPosWillIntersectCritZone's
// convention that an entry point computed to lie outside the zone
// radius cancels the whole result.
func WillIntersectCriticalZone(pos Position, dir Direction, zone Cylinder) (CriticalZoneIntersection, bool) {
	var entryDist float64
	var entryPos Position

	switch {
	case pos.Z >= zone.ZMin && pos.Z <= zone.ZMax:
		entryDist = 0
		entryPos = pos

	case mathkernel.RealsEqual(dir.CosZ, 0, -7, 0):
		p, d, ok := ProjectToCylinder(pos, dir, zone)
		if !ok {
			return CriticalZoneIntersection{}, false
		}
		entryDist = d
		entryPos = p

	case pos.Z < zone.ZMin && dir.CosZ > 0:
		entryDist = (zone.ZMin - pos.Z) / dir.CosZ
		entryPos = Position{
			X: pos.X + entryDist*dir.CosX,
			Y: pos.Y + entryDist*dir.CosY,
			Z: zone.ZMin,
		}

	case pos.Z > zone.ZMax && dir.CosZ < 0:
		entryDist = (zone.ZMax - pos.Z) / dir.CosZ
		entryPos = Position{
			X: pos.X + entryDist*dir.CosX,
			Y: pos.Y + entryDist*dir.CosY,
			Z: zone.ZMax,
		}

	default:
		return CriticalZoneIntersection{}, false
	}

	if entryDist < 0 {
		return CriticalZoneIntersection{}, false
	}
	dx := entryPos.X - zone.CenterX
	dy := entryPos.Y - zone.CenterY
	if dx*dx+dy*dy > zone.Radius*zone.Radius {
		return CriticalZoneIntersection{}, false
	}

	// Exit point: the axial-plane crossing, unless it falls outside the
	// zone radius, in which case the curved surface is used instead.
	var exitDist float64
	var exitPos Position
	if dir.CosZ > 0 {
		exitDist = (zone.ZMax - pos.Z) / dir.CosZ
	} else if dir.CosZ < 0 {
		exitDist = (zone.ZMin - pos.Z) / dir.CosZ
	} else {
		exitDist = math.Inf(1)
	}

	if !math.IsInf(exitDist, 1) {
		exitPos = Position{
			X: pos.X + exitDist*dir.CosX,
			Y: pos.Y + exitDist*dir.CosY,
			Z: pos.Z + exitDist*dir.CosZ,
		}
		dx, dy := exitPos.X-zone.CenterX, exitPos.Y-zone.CenterY
		if dx*dx+dy*dy > zone.Radius*zone.Radius {
			exitDist = math.Inf(1)
		}
	}

	if math.IsInf(exitDist, 1) {
		p, d, ok := ProjectToCylinder(pos, dir, zone)
		if !ok || d < entryDist {
			return CriticalZoneIntersection{}, false
		}
		exitDist = d
		exitPos = p
	}

	return CriticalZoneIntersection{
		EntryDistance: entryDist,
		ExitDistance:  exitDist,
		EntryPosition: entryPos,
		ExitPosition:  exitPos,
	}, true
}
