package tracker

import (
	"testing"

	"github.com/irl-simset/simset/cylinder"
	"github.com/irl-simset/simset/mathkernel"
	"github.com/irl-simset/simset/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testObject(t *testing.T) *object.Object {
	t.Helper()
	slice := object.Slice{
		ZMin: -10, ZMax: 10,
		XMin: -5, XMax: 5,
		YMin: -5, YMax: 5,
		ActNumX: 10, ActNumY: 10,
		ActTissue: make([]uint32, 100),
		AttNumX:   10, AttNumY: 10,
		AttTissue: make([]uint32, 100),
	}
	props := object.MaterialProperties{
		MinEnergyKeV: 100,
		Bins: []object.EnergyBin{
			{Attenuation: 0.01, ProbScatter: 0.2, ProbComptonGivenScatter: 1.0},
		},
	}
	mats := object.MaterialTable{
		NoCoh: []object.MaterialProperties{props},
		Coh:   []object.MaterialProperties{props},
	}
	obj, err := object.New([]object.Slice{slice}, cylinder.Cylinder{Radius: 5, ZMin: -10, ZMax: 10}, mats)
	require.NoError(t, err)
	return obj
}

func defaultConfig() Config {
	return Config{
		MaxScatters:  5,
		MinEnergyKeV: 10,
		MinWWRatio:   0.25,
		MaxWWRatio:   4.0,
	}
}

func TestTrackExitsThroughTargetCylinder(t *testing.T) {
	obj := testObject(t)
	target := cylinder.Cylinder{Radius: 5, ZMin: -10, ZMax: 10}
	limit := cylinder.Cylinder{Radius: 50, ZMin: -100, ZMax: 100}

	photon := Photon{
		Position:    cylinder.Position{X: 0, Y: 0, Z: 0},
		Direction:   cylinder.Direction{CosX: 1, CosY: 0, CosZ: 0},
		EnergyKeV:   140,
		Weight:      1.0,
		StartWeight: 1.0,
	}

	rng := mathkernel.NewRNG(7)
	result := Track(photon, obj, target, limit, rng, defaultConfig())

	assert.Contains(t, []Outcome{Exited, Absorbed, Terminated}, result.Outcome)
	for _, d := range result.Detected {
		assert.GreaterOrEqual(t, d.Photon.Weight, 0.0)
	}
}

func TestTrackTerminatesOnLowEnergyAfterManyScatters(t *testing.T) {
	obj := testObject(t)
	target := cylinder.Cylinder{Radius: 5, ZMin: -10, ZMax: 10}
	limit := cylinder.Cylinder{Radius: 5, ZMin: -10, ZMax: 10}

	photon := Photon{
		Position:    cylinder.Position{X: 0, Y: 0, Z: 0},
		Direction:   cylinder.Direction{CosX: 0, CosY: 0, CosZ: 1},
		EnergyKeV:   11,
		Weight:      1.0,
		StartWeight: 1.0,
	}

	cfg := defaultConfig()
	cfg.MaxScatters = 0

	rng := mathkernel.NewRNG(42)
	result := Track(photon, obj, target, limit, rng, cfg)

	assert.Contains(t, []Outcome{Exited, Absorbed, Terminated}, result.Outcome)
}

func TestApplyWeightWindowKillsOrSurvivesBelowMin(t *testing.T) {
	cfg := defaultConfig()
	rng := mathkernel.NewRNG(3)
	uniform := newUniform(rng)

	w, n, killed := applyWeightWindow(0.01, 1.0, cfg, uniform)
	assert.Equal(t, 1, n)
	if !killed {
		assert.Greater(t, w, 0.0)
	} else {
		assert.Equal(t, 0.0, w)
	}
}

func TestApplyWeightWindowSplitsAboveMax(t *testing.T) {
	cfg := defaultConfig()
	rng := mathkernel.NewRNG(9)
	uniform := newUniform(rng)

	w, n, killed := applyWeightWindow(10.0, 1.0, cfg, uniform)
	require.False(t, killed)
	require.Greater(t, n, 1)
	assert.Less(t, w, 10.0)
	assert.Greater(t, w, 0.0)
	assert.InDelta(t, 10.0, w*float64(n), 1e-9)
}

func TestApplyWeightWindowLeavesInWindowUntouched(t *testing.T) {
	cfg := defaultConfig()
	rng := mathkernel.NewRNG(5)
	uniform := newUniform(rng)

	w, n, killed := applyWeightWindow(1.0, 1.0, cfg, uniform)
	require.False(t, killed)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1.0, w)
}

func TestSampleKleinNishinaStaysWithinUnitRange(t *testing.T) {
	rng := mathkernel.NewRNG(11)
	uniform := newUniform(rng)

	for i := 0; i < 200; i++ {
		cosTheta := sampleKleinNishina(150, uniform)
		assert.GreaterOrEqual(t, cosTheta, -1.0)
		assert.LessOrEqual(t, cosTheta, 1.0)
	}
}

func TestRotateDirectionPreservesUnitLength(t *testing.T) {
	dir := cylinder.Direction{CosX: 0, CosY: 0, CosZ: 1}
	rotated := rotateDirection(dir, 0.5, 1.2)
	length := mathkernel.UnitLength(rotated.CosX, rotated.CosY, rotated.CosZ)
	assert.InDelta(t, 1.0, length, 1e-9)
}
