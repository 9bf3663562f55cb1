package decaygen

import (
	"testing"

	"github.com/irl-simset/simset/cylinder"
	"github.com/irl-simset/simset/mathkernel"
	"github.com/irl-simset/simset/object"
	"github.com/irl-simset/simset/productivity"
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
	props := object.MaterialProperties{MinEnergyKeV: 100, Bins: []object.EnergyBin{{Attenuation: 0.1, ProbScatter: 0.5, ProbComptonGivenScatter: 0.9}}}
	mats := object.MaterialTable{NoCoh: []object.MaterialProperties{props}, Coh: []object.MaterialProperties{props}}

	obj, err := object.New([]object.Slice{slice}, cylinder.Cylinder{Radius: 5, ZMin: -10, ZMax: 10}, mats)
	require.NoError(t, err)
	return obj
}

func TestGeneratorProducesPositionInsideObjectCylinder(t *testing.T) {
	obj := testObject(t)
	prod := productivity.NewUnstratified(1)
	gen := &Generator{
		Object:       obj,
		Productivity: prod,
		RNG:          mathkernel.NewRNG(1),
		SourceMode:   Uniform,
		DecayType:    SinglePhoton,
	}

	plan := object.PlannedDecay{SliceIdx: 0, XIdx: 5, YIdx: 5, AngleIdx: 0, Simulated: 1, StartWeight: 0.75}

	for i := 0; i < 100; i++ {
		decay, err := gen.Next(plan)
		require.NoError(t, err)
		assert.False(t, cylinder.IsOutside(decay.Position, obj.Cylinder))
		assert.Equal(t, 0.75, decay.Weight)
		assert.Equal(t, SinglePhoton, decay.Type)

		length := mathkernel.UnitLength(decay.Direction.CosX, decay.Direction.CosY, decay.Direction.CosZ)
		assert.InDelta(t, 1.0, length, 1e-9)
	}
}

func TestPointSourceSnapsToVoxelCenter(t *testing.T) {
	obj := testObject(t)
	prod := productivity.NewUnstratified(1)
	gen := &Generator{
		Object:       obj,
		Productivity: prod,
		RNG:          mathkernel.NewRNG(1),
		SourceMode:   PointSource,
		DecayType:    SinglePhoton,
	}

	plan := object.PlannedDecay{SliceIdx: 0, XIdx: 5, YIdx: 5, AngleIdx: 0, Simulated: 1, StartWeight: 1}
	decay, err := gen.Next(plan)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, decay.Position.X, 1e-9)
	assert.InDelta(t, 0.5, decay.Position.Y, 1e-9)
}

func TestNextSamplesDecayTimeWithinScanLength(t *testing.T) {
	obj := testObject(t)
	prod := productivity.NewUnstratified(1)
	gen := &Generator{
		Object:       obj,
		Productivity: prod,
		RNG:          mathkernel.NewRNG(1),
		SourceMode:   Uniform,
		DecayType:    SinglePhoton,
		ScanLength:   120,
	}

	plan := object.PlannedDecay{SliceIdx: 0, XIdx: 5, YIdx: 5, AngleIdx: 0, Simulated: 1, StartWeight: 1}

	for i := 0; i < 50; i++ {
		decay, err := gen.Next(plan)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, decay.DecayTime, 0.0)
		assert.Less(t, decay.DecayTime, 120.0)
	}
}

func TestPartnerIsAntiparallelAndSharesSiteAndTime(t *testing.T) {
	obj := testObject(t)
	prod := productivity.NewUnstratified(1)
	gen := &Generator{
		Object:       obj,
		Productivity: prod,
		RNG:          mathkernel.NewRNG(1),
		SourceMode:   Uniform,
		DecayType:    Positron,
		ScanLength:   1,
	}

	plan := object.PlannedDecay{SliceIdx: 0, XIdx: 5, YIdx: 5, AngleIdx: 0, Simulated: 1, StartWeight: 1}
	primary, err := gen.Next(plan)
	require.NoError(t, err)

	partner := gen.Partner(primary)
	assert.Equal(t, primary.Position, partner.Position)
	assert.Equal(t, primary.DecayTime, partner.DecayTime)
	assert.Equal(t, primary.Weight, partner.Weight)
	assert.Equal(t, Positron, partner.Type)
	assert.InDelta(t, -primary.Direction.CosX, partner.Direction.CosX, 1e-9)
	assert.InDelta(t, -primary.Direction.CosY, partner.Direction.CosY, 1e-9)
	assert.InDelta(t, -primary.Direction.CosZ, partner.Direction.CosZ, 1e-9)

	length := mathkernel.UnitLength(partner.Direction.CosX, partner.Direction.CosY, partner.Direction.CosZ)
	assert.InDelta(t, 1.0, length, 1e-9)
}

func TestPartnerJittersWhenNonCollinearityModeled(t *testing.T) {
	obj := testObject(t)
	prod := productivity.NewUnstratified(1)
	gen := &Generator{
		Object:                 obj,
		Productivity:           prod,
		RNG:                    mathkernel.NewRNG(7),
		SourceMode:             Uniform,
		DecayType:              Positron,
		ModelNonCollinearity:   true,
		NonCollinearityFWHMDeg: 0.25,
	}

	plan := object.PlannedDecay{SliceIdx: 0, XIdx: 5, YIdx: 5, AngleIdx: 0, Simulated: 1, StartWeight: 1}
	primary, err := gen.Next(plan)
	require.NoError(t, err)

	partner := gen.Partner(primary)
	length := mathkernel.UnitLength(partner.Direction.CosX, partner.Direction.CosY, partner.Direction.CosZ)
	assert.InDelta(t, 1.0, length, 1e-9)

	dot := -primary.Direction.CosX*partner.Direction.CosX -
		primary.Direction.CosY*partner.Direction.CosY -
		primary.Direction.CosZ*partner.Direction.CosZ
	assert.Less(t, dot, 1.0, "jittered partner should deviate from exact antiparallel")
}

func TestLineSourceRandomizesZWithinSlice(t *testing.T) {
	obj := testObject(t)
	prod := productivity.NewUnstratified(1)
	gen := &Generator{
		Object:       obj,
		Productivity: prod,
		RNG:          mathkernel.NewRNG(1),
		SourceMode:   LineSource,
		DecayType:    Positron,
	}

	plan := object.PlannedDecay{SliceIdx: 0, XIdx: 5, YIdx: 5, AngleIdx: 0, Simulated: 1, StartWeight: 1}

	seenDistinctZ := false
	var lastZ float64
	for i := 0; i < 20; i++ {
		decay, err := gen.Next(plan)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, decay.Position.Z, obj.Slices[0].ZMin)
		assert.LessOrEqual(t, decay.Position.Z, obj.Slices[0].ZMax)
		if i > 0 && decay.Position.Z != lastZ {
			seenDistinctZ = true
		}
		lastZ = decay.Position.Z
	}
	assert.True(t, seenDistinctZ, "expected z to vary across line-source decays")
}
