// Package header implements the fixed-size, tag/size/value header
// container described in spec.md §4.2 and §6, and grounded on
// original_source/src/LbHeader.c (LbHdrGtElem/LbHdrStElem) and the
// teacher's own record-header decoder (record.go's NewRecordHdr /
// RecordHdr, which reads the same (id,size) big-endian pair shape one
// level up, for GSF records rather than header fields).
package header

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// emptySentinel is the byte value every unwritten header byte holds, and
// the id value (as four 0xFF bytes) that terminates the record sequence.
const emptySentinel = 0xFF

// emptyID is the big-endian uint32 formed by four 0xFF bytes; LbHeader.c's
// LbHdrGtElem/LbHdrStElem treat it as "no more elements" because the loop
// compares the signed 32-bit value against -1, which is bit-identical.
const emptyID FieldID = 0xFFFFFFFF

// FieldID is a registered header field identifier. IDs are big-endian on
// disk regardless of host byte order; only the payload bytes stay
// host-endian (§6).
type FieldID uint32

// Errors returned by Container.Get/Set. ElementNotFound is the one error
// kind in §7 that a caller is expected to recover from on a hot path by
// substituting the field's default value (e.g. a coincidence-timing-window
// field introduced after a file was written).
var (
	ErrElementNotFound = errors.New("header: element not found")
	ErrSizeMismatch    = errors.New("header: stored size does not match requested size")
	ErrHeaderFull      = errors.New("header: not enough room to append new field")
)

// Container is a fixed-size byte region holding a packed sequence of
// (id uint32 BE, size uint32 BE, payload) records, pre-filled with 0xFF
// and terminated by the first id == 0xFFFFFFFF. This is a byte-for-byte
// port of LbHdrNew/LbHdrGtElem/LbHdrStElem.
type Container struct {
	data []byte
}

// New creates an empty, all-0xFF header region of the given size. This
// mirrors LbHdrNew's memset(data, -1, size) initialisation.
func New(size int) *Container {
	data := make([]byte, size)
	for i := range data {
		data[i] = emptySentinel
	}
	return &Container{data: data}
}

// Open constructs a Container by reading size bytes from r - the
// LbHdrOpen/LbHdrRead equivalent, fseek(0)+fread replaced by a plain
// io.Reader read since callers position the stream themselves.
func Open(r io.Reader, size int) (*Container, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return &Container{data: data}, nil
}

// Size returns the fixed region size.
func (c *Container) Size() int {
	return len(c.data)
}

// Bytes exposes the raw header region, e.g. for LbHdrWrite-equivalent
// flushing at offset 0 by the caller's file handle.
func (c *Container) Bytes() []byte {
	return c.data
}

// WriteTo flushes the header region at the current writer position,
// matching LbHdrWrite's fseek(0)+fwrite.
func (c *Container) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c.data)
	return int64(n), err
}

func readID(b []byte, offset int) FieldID {
	return FieldID(binary.BigEndian.Uint32(b[offset : offset+4]))
}

func readSize(b []byte, offset int) uint32 {
	return binary.BigEndian.Uint32(b[offset : offset+4])
}

// walk scans the region from the start, returning the byte offset of the
// element matching id and the offset of the element's payload, or ok=false
// if the terminator was reached first. This is the shared search loop in
// both LbHdrGtElem and LbHdrStElem.
func (c *Container) walk(id FieldID) (payloadOffset int, size uint32, found bool, tailOffset int) {
	offset := 0
	for {
		if offset+8 > len(c.data) {
			return 0, 0, false, offset
		}
		curID := readID(c.data, offset)
		if curID == emptyID {
			return 0, 0, false, offset
		}
		curSize := readSize(c.data, offset+4)
		payload := offset + 8
		if curID == id {
			return payload, curSize, true, offset
		}
		offset = payload + int(curSize)
	}
}

// Fields returns every field ID currently stored in the container, in
// on-disk order, by walking the same (id,size,payload) chain
// LbHdrGtElem/LbHdrStElem traverse internally. Used by callers that need
// to enumerate an existing header wholesale, such as the upgrade-header
// utility copying every field from an old, smaller header region into a
// newly allocated one.
func (c *Container) Fields() []FieldID {
	var ids []FieldID
	offset := 0
	for {
		if offset+8 > len(c.data) {
			return ids
		}
		curID := readID(c.data, offset)
		if curID == emptyID {
			return ids
		}
		curSize := readSize(c.data, offset+4)
		ids = append(ids, curID)
		offset = offset + 8 + int(curSize)
	}
}

// Dump writes one line per stored field to w, in on-disk order, naming
// each field and decoding its value according to the registry's Kind -
// an id with no registry entry is reported as "field N: unregistered"
// instead of failing the whole dump. Used by upgrade-header to let an operator
// eyeball a header before and after migrating it to a larger region.
func (c *Container) Dump(w io.Writer) error {
	for _, id := range c.Fields() {
		def, ok := Lookup(id)
		if !ok {
			if _, err := fmt.Fprintf(w, "field %d: unregistered\n", id); err != nil {
				return err
			}
			continue
		}

		var valStr string
		switch def.Kind {
		case KindFloat64:
			v, err := c.GetFloat64(id)
			if err != nil {
				return fmt.Errorf("header: dumping field %s: %w", def.Name, err)
			}
			valStr = fmt.Sprintf("%g", v)
		case KindUint32:
			v, err := c.GetUint32(id)
			if err != nil {
				return fmt.Errorf("header: dumping field %s: %w", def.Name, err)
			}
			valStr = fmt.Sprintf("%d", v)
		case KindBool:
			v, err := c.GetBool(id)
			if err != nil {
				return fmt.Errorf("header: dumping field %s: %w", def.Name, err)
			}
			valStr = fmt.Sprintf("%t", v)
		default:
			payload, err := c.Get(id, def.Size)
			if err != nil {
				return fmt.Errorf("header: dumping field %s: %w", def.Name, err)
			}
			valStr = fmt.Sprintf("% x", payload)
		}

		if _, err := fmt.Fprintf(w, "%s (id=%d): %s\n", def.Name, id, valStr); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the payload stored for id, failing with ErrSizeMismatch if
// the caller's expected size disagrees with what's on disk, or
// ErrElementNotFound if the terminator is reached first - the latter is
// recoverable: callers substitute the field's registered default.
func (c *Container) Get(id FieldID, size uint32) ([]byte, error) {
	payloadOffset, storedSize, found, _ := c.walk(id)
	if !found {
		return nil, ErrElementNotFound
	}
	if storedSize != size {
		return nil, ErrSizeMismatch
	}
	out := make([]byte, size)
	copy(out, c.data[payloadOffset:payloadOffset+int(size)])
	return out, nil
}

// Set writes payload under id. If id already exists its payload is
// overwritten in place (size must match); otherwise the element is
// appended at the current tail, which must leave room for the new
// (id,size,payload) triple. No terminator word is written: a triple that
// fills the region exactly ends the record sequence at the region's end.
func (c *Container) Set(id FieldID, size uint32, payload []byte) error {
	if uint32(len(payload)) != size {
		return ErrSizeMismatch
	}

	payloadOffset, storedSize, found, tailOffset := c.walk(id)
	if found {
		if storedSize != size {
			return ErrSizeMismatch
		}
		copy(c.data[payloadOffset:payloadOffset+int(size)], payload)
		return nil
	}

	needed := tailOffset + 8 + int(size)
	if needed > len(c.data) {
		return ErrHeaderFull
	}

	binary.BigEndian.PutUint32(c.data[tailOffset:tailOffset+4], uint32(id))
	binary.BigEndian.PutUint32(c.data[tailOffset+4:tailOffset+8], size)
	copy(c.data[tailOffset+8:tailOffset+8+int(size)], payload)
	return nil
}

// SetFloat64/GetFloat64/SetUint32/GetUint32/SetBool/GetBool are thin typed
// wrappers, matching how the registry in fields.go associates a canonical
// Go type with every FieldID. Only the id/size record fields are
// big-endian on disk (§6); payload bytes are host-endian, so these use
// binary.NativeEndian rather than binary.BigEndian — a header written on
// a big-endian host and read on a little-endian one is not portable,
// which is the documented tradeoff, not a bug.
func (c *Container) SetFloat64(id FieldID, v float64) error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], floatBits(v))
	return c.Set(id, 8, buf[:])
}

func (c *Container) GetFloat64(id FieldID) (float64, error) {
	b, err := c.Get(id, 8)
	if err != nil {
		return 0, err
	}
	return floatFromBits(binary.NativeEndian.Uint64(b)), nil
}

func (c *Container) SetUint32(id FieldID, v uint32) error {
	var buf [4]byte
	binary.NativeEndian.PutUint32(buf[:], v)
	return c.Set(id, 4, buf[:])
}

func (c *Container) GetUint32(id FieldID) (uint32, error) {
	b, err := c.Get(id, 4)
	if err != nil {
		return 0, err
	}
	return binary.NativeEndian.Uint32(b), nil
}

func (c *Container) SetBool(id FieldID, v bool) error {
	var b byte
	if v {
		b = 1
	}
	return c.Set(id, 1, []byte{b})
}

func (c *Container) GetBool(id FieldID) (bool, error) {
	b, err := c.Get(id, 1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}
