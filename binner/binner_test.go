package binner

import (
	"bytes"
	"testing"

	"github.com/irl-simset/simset/header"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAxisStringNamesAllSixteenAxes(t *testing.T) {
	names := map[Axis]string{
		AxisZ1: "z1", AxisZ2: "z2", AxisEnergy1: "energy1", AxisEnergy2: "energy2",
		AxisTD: "td", AxisAA: "aa", AxisTOF: "tof", AxisPhi: "phi", AxisTheta: "theta",
		AxisXR: "xr", AxisYR: "yr", AxisCrystal1: "crystal1", AxisCrystal2: "crystal2",
		AxisScatter1: "scatter1", AxisScatter2: "scatter2", AxisPA: "pa",
	}
	for axis, want := range names {
		assert.Equal(t, want, axis.String())
	}
}

func TestBinIndicesWithinRange(t *testing.T) {
	img := &Image{axes: []AxisConfig{
		{Axis: AxisZ1, Min: 0, Max: 10, NumBins: 10},
		{Axis: AxisEnergy1, Min: 100, Max: 200, NumBins: 5},
	}}

	indices, ok := img.BinIndices(map[Axis]float64{AxisZ1: 3.5, AxisEnergy1: 150})
	require.True(t, ok)
	assert.Equal(t, []uint64{3, 2}, indices)
}

func TestBinIndicesOutOfRangeIsDropped(t *testing.T) {
	img := &Image{axes: []AxisConfig{
		{Axis: AxisZ1, Min: 0, Max: 10, NumBins: 10},
	}}

	_, ok := img.BinIndices(map[Axis]float64{AxisZ1: 15})
	assert.False(t, ok)
}

func TestBinIndicesMissingAxisIsDropped(t *testing.T) {
	img := &Image{axes: []AxisConfig{
		{Axis: AxisZ1, Min: 0, Max: 10, NumBins: 10},
		{Axis: AxisEnergy1, Min: 100, Max: 200, NumBins: 5},
	}}

	_, ok := img.BinIndices(map[Axis]float64{AxisZ1: 3})
	assert.False(t, ok)
}

func TestHistoryAppendWritesFixedWidthRecords(t *testing.T) {
	var buf bytes.Buffer
	hdr := header.New(64)

	hist, err := NewHistory(&buf, hdr)
	require.NoError(t, err)

	require.NoError(t, hist.Append(HistoryRecord{DecayIndex: 1, Weight: 0.5, EnergyKeV: 140, NumScatters: 0, ViewIndex: 3}))
	require.NoError(t, hist.Append(HistoryRecord{DecayIndex: 2, Weight: 0.25, EnergyKeV: 511, NumScatters: 1, ViewIndex: 7}))
	require.NoError(t, hist.Flush())

	assert.Equal(t, 64+2*historyRecordSize, buf.Len())
}
