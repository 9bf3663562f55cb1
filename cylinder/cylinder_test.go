package cylinder

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFind2DIntersectionTwoRoots(t *testing.T) {
	d1, d2, ok := Find2DIntersection(0, 0, 1, 0, 5)
	require.True(t, ok)
	assert.InDelta(t, -5.0, math.Min(d1, d2), 1e-9)
	assert.InDelta(t, 5.0, math.Max(d1, d2), 1e-9)
}

func TestFind2DIntersectionNoRoots(t *testing.T) {
	_, _, ok := Find2DIntersection(100, 100, 1, 0, 5)
	assert.False(t, ok)
}

func TestDistanceToSurfaceInsideCylinder(t *testing.T) {
	cyl := Cylinder{Radius: 10, ZMin: -50, ZMax: 50}
	pos := Position{X: 0, Y: 0, Z: 0}
	dir := Direction{CosX: 1, CosY: 0, CosZ: 0}

	dist := DistanceToSurface(pos, dir, cyl)
	assert.InDelta(t, 10.0, dist, 1e-9)
}

func TestProjectToCylinderParallelToAxis(t *testing.T) {
	cyl := Cylinder{Radius: 10, ZMin: -50, ZMax: 50}
	pos := Position{X: 0, Y: 0, Z: 0}
	dir := Direction{CosX: 0, CosY: 0, CosZ: 1}

	_, _, ok := ProjectToCylinder(pos, dir, cyl)
	assert.False(t, ok, "a ray along the z axis must never intersect the curved surface")
}

func TestProjectToCylinderHitsSurface(t *testing.T) {
	cyl := Cylinder{Radius: 10, ZMin: -50, ZMax: 50}
	pos := Position{X: 0, Y: 0, Z: 0}
	dir := Direction{CosX: 1, CosY: 0, CosZ: 0}

	newPos, dist, ok := ProjectToCylinder(pos, dir, cyl)
	require.True(t, ok)
	assert.InDelta(t, 10.0, dist, 1e-9)
	assert.InDelta(t, 10.0, newPos.X, 1e-9)
}

func TestIsOutside(t *testing.T) {
	cyl := Cylinder{Radius: 10}
	assert.False(t, IsOutside(Position{X: 5, Y: 0}, cyl))
	assert.True(t, IsOutside(Position{X: 15, Y: 0}, cyl))
}

func TestClipToLimitLeavesInsidePositionUntouched(t *testing.T) {
	limit := Cylinder{Radius: 10, ZMin: -50, ZMax: 50}
	pos := Position{X: 1, Y: 1, Z: 0}
	dir := Direction{CosX: 1, CosY: 0, CosZ: 0}

	clipped := ClipToLimit(pos, dir, limit)
	assert.Equal(t, pos, clipped)
}

func TestClipToLimitBringsOutsidePositionToSurface(t *testing.T) {
	limit := Cylinder{Radius: 10, ZMin: -50, ZMax: 50}
	pos := Position{X: 20, Y: 0, Z: 0}
	dir := Direction{CosX: -1, CosY: 0, CosZ: 0}

	clipped := ClipToLimit(pos, dir, limit)
	r := math.Hypot(clipped.X, clipped.Y)
	assert.InDelta(t, 10.0, r, 1e-7)
}

func TestWillIntersectCriticalZoneAlreadyInside(t *testing.T) {
	zone := Cylinder{Radius: 10, ZMin: -5, ZMax: 5}
	pos := Position{X: 0, Y: 0, Z: 0}
	dir := Direction{CosX: 0, CosY: 0, CosZ: 1}

	hit, ok := WillIntersectCriticalZone(pos, dir, zone)
	require.True(t, ok)
	assert.Equal(t, 0.0, hit.EntryDistance)
}

func TestWillIntersectCriticalZoneApproachingFromBelow(t *testing.T) {
	zone := Cylinder{Radius: 10, ZMin: -5, ZMax: 5}
	pos := Position{X: 0, Y: 0, Z: -20}
	dir := Direction{CosX: 0, CosY: 0, CosZ: 1}

	hit, ok := WillIntersectCriticalZone(pos, dir, zone)
	require.True(t, ok)
	assert.InDelta(t, 15.0, hit.EntryDistance, 1e-9)
	assert.InDelta(t, -5.0, hit.EntryPosition.Z, 1e-9)
}

func TestWillIntersectCriticalZoneMissesRadially(t *testing.T) {
	zone := Cylinder{Radius: 2, ZMin: -5, ZMax: 5}
	pos := Position{X: 100, Y: 0, Z: -20}
	dir := Direction{CosX: 0, CosY: 0, CosZ: 1}

	_, ok := WillIntersectCriticalZone(pos, dir, zone)
	assert.False(t, ok)
}
