package object

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadVoxelGridReadsRowMajorBigEndianU32(t *testing.T) {
	var buf bytes.Buffer
	values := []uint32{1, 2, 3, 4, 5, 6}
	for _, v := range values {
		require.NoError(t, binary.Write(&buf, binary.BigEndian, v))
	}

	grid, err := LoadVoxelGrid(&buf, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, values, grid)
}

func TestLoadVoxelGridShortReadIsError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(1)))

	_, err := LoadVoxelGrid(&buf, 3, 2)
	assert.Error(t, err)
}

func TestLoadMaterialTableParsesTissuesAndEnergyRows(t *testing.T) {
	input := `2
water
density=1.0 weight=1.0 number=1
100 0.015 0.1 1.0
101 0.014 0.09 1.0
bone
density=1.8
100 0.02 0.2 0.95
101 0.019 0.19 0.95
`
	table, err := LoadMaterialTable(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, table.NoCoh, 2)

	water := table.NoCoh[0]
	assert.Equal(t, 100.0, water.MinEnergyKeV)
	require.Len(t, water.Bins, 2)
	assert.Equal(t, 0.015, water.Bins[0].Attenuation)
	assert.Equal(t, 0.19, table.NoCoh[1].Bins[1].ProbScatter)
}

func TestLoadMaterialTableRejectsEmptyInput(t *testing.T) {
	_, err := LoadMaterialTable(strings.NewReader(""))
	assert.Error(t, err)
}

func TestLoadMaterialTableRejectsMalformedTissueCount(t *testing.T) {
	_, err := LoadMaterialTable(strings.NewReader("not-a-number\n"))
	assert.Error(t, err)
}
