package binner

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/irl-simset/simset/header"
)

// HistoryRecord is one photon event appended to a history file: a
// decay index, the photon's detected weight, energy, scatter count and
// collimator view/axial/transaxial assignment. Every field is written
// big-endian, like the id/size words of the header container's records
// (whose payloads, unlike these fields, are stored in host byte order).
type HistoryRecord struct {
	DecayIndex    uint64
	DecayTime     float64
	Weight        float64
	EnergyKeV     float64
	NumScatters   uint32
	ViewIndex     uint32
	AxialPosition float64
	TransaxialPos float64
}

const historyRecordSize = 8 + 8 + 8 + 8 + 4 + 4 + 8 + 8

// History is a buffered history-file sink: a header.Container prefix
// (§4.2) describing the run, followed by a stream of fixed-width
// HistoryRecord entries. Records go through a 64 KiB bufio.Writer and
// reach the underlying writer when that buffer fills or when Flush is
// called; History does not flush between decays on its own.
type History struct {
	header *header.Container
	w      *bufio.Writer
	buf    [historyRecordSize]byte
}

// NewHistory wraps w with a buffered writer, writes hdr as the fixed
// preamble, and returns a History ready to accept records.
func NewHistory(w io.Writer, hdr *header.Container) (*History, error) {
	bw := bufio.NewWriterSize(w, 64*1024)
	if _, err := hdr.WriteTo(bw); err != nil {
		return nil, err
	}
	return &History{header: hdr, w: bw}, nil
}

// Append encodes rec as a fixed-width big-endian record and writes it
// to the buffered stream.
func (h *History) Append(rec HistoryRecord) error {
	binary.BigEndian.PutUint64(h.buf[0:8], rec.DecayIndex)
	binary.BigEndian.PutUint64(h.buf[8:16], math.Float64bits(rec.DecayTime))
	binary.BigEndian.PutUint64(h.buf[16:24], math.Float64bits(rec.Weight))
	binary.BigEndian.PutUint64(h.buf[24:32], math.Float64bits(rec.EnergyKeV))
	binary.BigEndian.PutUint32(h.buf[32:36], rec.NumScatters)
	binary.BigEndian.PutUint32(h.buf[36:40], rec.ViewIndex)
	binary.BigEndian.PutUint64(h.buf[40:48], math.Float64bits(rec.AxialPosition))
	binary.BigEndian.PutUint64(h.buf[48:56], math.Float64bits(rec.TransaxialPos))
	_, err := h.w.Write(h.buf[:])
	return err
}

// Flush forces any buffered records to the underlying writer.
// cmd/simset calls it once, when a run ends.
func (h *History) Flush() error {
	return h.w.Flush()
}
