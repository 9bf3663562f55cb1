package rawio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenReadElementRoundTrips(t *testing.T) {
	for _, dt := range []DataType{Uint8, Int8, Uint16, Int16, Uint32, Int32, Float32, Float64} {
		var buf bytes.Buffer
		require.NoError(t, WriteElement(&buf, dt, 7))
		v, err := ReadElement(&buf, dt)
		require.NoError(t, err)
		assert.Equal(t, 7.0, v)
	}
}

func TestParseDataTypeRejectsOutOfRangeCode(t *testing.T) {
	_, err := ParseDataType(99)
	assert.Error(t, err)
}

func TestSwapBytesReversesEachElement(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04}
	require.NoError(t, SwapBytes(buf, 4))
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, buf)
}

func TestSwapBytesRejectsMismatchedLength(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03}
	assert.Error(t, SwapBytes(buf, 4))
}

func TestSizeMatchesEachDataType(t *testing.T) {
	assert.Equal(t, 1, Uint8.Size())
	assert.Equal(t, 2, Uint16.Size())
	assert.Equal(t, 4, Uint32.Size())
	assert.Equal(t, 4, Float32.Size())
	assert.Equal(t, 8, Float64.Size())
}
