// Package rawio implements the fixed-width element conversion and
// byte-swap primitives the §6 CLI utilities share, grounded on
// original_source/src/LbConvert.c (type-tagged element conversion) and
// breakpoint.swap.c (byte-order swap of fixed-width binned-data
// elements read in BUFF_SIZE chunks).
package rawio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// DataType is the element type tag a §6 utility's -i/-o flag selects,
// matching LbCvEnDataType's switch in LbConvert.c.
type DataType int

const (
	Uint8 DataType = iota
	Int8
	Uint16
	Int16
	Uint32
	Int32
	Float32
	Float64
)

// Size returns the on-disk width of one element of t, in bytes.
func (t DataType) Size() int {
	switch t {
	case Uint8, Int8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	case Float64:
		return 8
	default:
		return 0
	}
}

// ParseDataType maps the -i/-o flag's integer code to a DataType, the
// way LbConvert.c casts the command line's atoi() result directly to
// LbCvEnDataType.
func ParseDataType(code int) (DataType, error) {
	if code < int(Uint8) || code > int(Float64) {
		return 0, fmt.Errorf("rawio: unknown data type code %d", code)
	}
	return DataType(code), nil
}

// ReadElement reads one element of type t from r and returns it widened
// to float64, the common currency LbConvert.c's internal conversion
// buffer uses regardless of source type.
func ReadElement(r io.Reader, t DataType) (float64, error) {
	buf := make([]byte, t.Size())
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	switch t {
	case Uint8:
		return float64(buf[0]), nil
	case Int8:
		return float64(int8(buf[0])), nil
	case Uint16:
		return float64(binary.BigEndian.Uint16(buf)), nil
	case Int16:
		return float64(int16(binary.BigEndian.Uint16(buf))), nil
	case Uint32:
		return float64(binary.BigEndian.Uint32(buf)), nil
	case Int32:
		return float64(int32(binary.BigEndian.Uint32(buf))), nil
	case Float32:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(buf))), nil
	case Float64:
		return math.Float64frombits(binary.BigEndian.Uint64(buf)), nil
	default:
		return 0, fmt.Errorf("rawio: unsupported data type %d", t)
	}
}

// WriteElement narrows v to t and writes it big-endian to w, the
// reverse of ReadElement.
func WriteElement(w io.Writer, t DataType, v float64) error {
	switch t {
	case Uint8:
		_, err := w.Write([]byte{uint8(v)})
		return err
	case Int8:
		_, err := w.Write([]byte{byte(int8(v))})
		return err
	case Uint16:
		var buf [2]byte
		binary.BigEndian.PutUint16(buf[:], uint16(v))
		_, err := w.Write(buf[:])
		return err
	case Int16:
		var buf [2]byte
		binary.BigEndian.PutUint16(buf[:], uint16(int16(v)))
		_, err := w.Write(buf[:])
		return err
	case Uint32:
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(v))
		_, err := w.Write(buf[:])
		return err
	case Int32:
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(int32(v)))
		_, err := w.Write(buf[:])
		return err
	case Float32:
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], math.Float32bits(float32(v)))
		_, err := w.Write(buf[:])
		return err
	case Float64:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
		_, err := w.Write(buf[:])
		return err
	default:
		return fmt.Errorf("rawio: unsupported data type %d", t)
	}
}

// SwapBytes reverses the byte order of every fixed-width element in buf
// in place, matching breakpoint.swap.c's per-element byte-reversal loop
// over its BUFF_SIZE read chunks.
func SwapBytes(buf []byte, elemSize int) error {
	if elemSize <= 0 {
		return fmt.Errorf("rawio: element size must be positive, got %d", elemSize)
	}
	if len(buf)%elemSize != 0 {
		return fmt.Errorf("rawio: buffer length %d is not a multiple of element size %d", len(buf), elemSize)
	}
	for start := 0; start < len(buf); start += elemSize {
		lo, hi := start, start+elemSize-1
		for lo < hi {
			buf[lo], buf[hi] = buf[hi], buf[lo]
			lo++
			hi--
		}
	}
	return nil
}
