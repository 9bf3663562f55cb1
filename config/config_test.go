package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWhenKeysAbsent(t *testing.T) {
	cfg, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Tracker.MaxScatters)
	assert.Equal(t, 10.0, cfg.Tracker.MinEnergyKeV)
	assert.Equal(t, ModePET, cfg.DecayMode)
	assert.Equal(t, SourceUniform, cfg.SourceMode)
	assert.Nil(t, cfg.Collimator)
	assert.Equal(t, 140.5, cfg.EmissionEnergyKeV)
	assert.True(t, cfg.ModelNonCollinearity)
	assert.Equal(t, 0.25, cfg.NonCollinearityFWHMDeg)
}

func TestLoadParsesEmissionEnergyAndNonCollinearity(t *testing.T) {
	input := `
emission_energy_kev=159
model_non_collinearity=no
non_collinearity_fwhm_deg=0.4
`
	cfg, err := Load(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 159.0, cfg.EmissionEnergyKeV)
	assert.False(t, cfg.ModelNonCollinearity)
	assert.Equal(t, 0.4, cfg.NonCollinearityFWHMDeg)
}

func TestLoadParsesKeyValueLinesAndIgnoresComments(t *testing.T) {
	input := `
# a comment
decay_mode = spect
source_mode=point
max_scatters=8
min_ww_ratio = 0.1
run_seed=42
`
	cfg, err := Load(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, ModeSPECT, cfg.DecayMode)
	assert.Equal(t, SourcePoint, cfg.SourceMode)
	assert.Equal(t, 8, cfg.Tracker.MaxScatters)
	assert.Equal(t, 0.1, cfg.Tracker.MinWWRatio)
	assert.Equal(t, uint64(42), cfg.RunSeed)
}

func TestLoadParsesReferenceTime(t *testing.T) {
	input := "reference_time=2026/032 13:45:00\n"
	cfg, err := Load(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.Month(2), 1, 13, 45, 0, 0, time.UTC), cfg.ReferenceTime)
}

func TestLoadRejectsMalformedRunSeed(t *testing.T) {
	_, err := Load(strings.NewReader("run_seed=not-a-number\n"))
	assert.Error(t, err)
}

func TestLoadBuildsCollimatorWhenGeometryConfigured(t *testing.T) {
	input := `
collimator_geometry=fan
collimator_radius=25
collimator_num_views=64
collimator_focal_length=40
`
	cfg, err := Load(strings.NewReader(input))
	require.NoError(t, err)
	require.NotNil(t, cfg.Collimator)
	assert.Equal(t, 25.0, cfg.Collimator.RadiusOfRotation)
	assert.Equal(t, 64, cfg.Collimator.NumViews)
	assert.Equal(t, 40.0, cfg.Collimator.FocalLength)
}

func TestValidateObjectBoundsAcceptsCentredSquareBounds(t *testing.T) {
	assert.NoError(t, ValidateObjectBounds(-10, 10, -10, 10))
}

func TestValidateObjectBoundsRejectsOffCentreBounds(t *testing.T) {
	err := ValidateObjectBounds(-8, 10, -10, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestValidateObjectBoundsRejectsNonSquareBounds(t *testing.T) {
	err := ValidateObjectBounds(-10, 10, -5, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)
}
