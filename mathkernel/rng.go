package mathkernel

import (
	"encoding/binary"
	"io"
)

// RNG is SimSET's reproducible pseudo-random source: a splitmix64-seeded
// xorshift128+ generator. A single stream backs decay sampling, free-path
// sampling and scatter-angle sampling (§4.1); callers that need split
// streams construct one RNG per decay stream with a deterministic seed
// derived from the run seed and the stream index (§5).
//
// State is two uint64 words, which keeps SaveState/RestoreState a fixed
// 16-byte record - the same fixed-width-record approach the header
// container (header.Container) uses for its own persistence.
type RNG struct {
	s0, s1 uint64
}

// NewRNG seeds an RNG from a single 64-bit seed via splitmix64, the
// standard way to expand a small seed into the 128 bits of state
// xorshift128+ needs.
func NewRNG(seed uint64) *RNG {
	r := &RNG{}
	r.seedFromUint64(seed)
	return r
}

// Seed reinitialises the generator from seed, satisfying math/rand's
// Source interface (Int63/Seed) so the RNG can back gonum's
// stat/distuv samplers directly without an adapter.
func (r *RNG) Seed(seed int64) {
	r.seedFromUint64(uint64(seed))
}

func (r *RNG) seedFromUint64(seed uint64) {
	z := seed
	next := func() uint64 {
		z += 0x9E3779B97F4A7C15
		x := z
		x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
		x = (x ^ (x >> 27)) * 0x94D049BB133111EB
		return x ^ (x >> 31)
	}
	r.s0 = next()
	r.s1 = next()
	if r.s0 == 0 && r.s1 == 0 {
		r.s0 = 1
	}
}

// Uint64 returns the next raw 64-bit output.
func (r *RNG) Uint64() uint64 {
	x := r.s0
	y := r.s1
	r.s0 = y
	x ^= x << 23
	x ^= x >> 17
	x ^= y ^ (y >> 26)
	r.s1 = x
	return x + y
}

// Int63 satisfies math/rand's Source interface so the RNG can back
// gonum's stat/distuv samplers directly.
func (r *RNG) Int63() int64 {
	return int64(r.Uint64() >> 1)
}

// Float64 returns a uniform sample in [0, 1), the "uniform (0,1) generator"
// required by §4.1.
func (r *RNG) Float64() float64 {
	return float64(r.Uint64()>>11) / (1 << 53)
}

// Uniform01 is the double-precision variant named explicitly in §4.1; on
// this generator it is identical to Float64 since the core already
// produces 53 bits of mantissa.
func (r *RNG) Uniform01() float64 {
	return r.Float64()
}

// State is the serialisable snapshot of the generator, used by
// SaveState/RestoreState so a run can be resumed or bitwise-reproduced
// (§9 "PRNG reproducibility").
type State struct {
	S0, S1 uint64
}

// State returns the current generator state.
func (r *RNG) State() State {
	return State{S0: r.s0, S1: r.s1}
}

// Restore sets the generator to a previously-saved state.
func (r *RNG) Restore(s State) {
	r.s0, r.s1 = s.S0, s.S1
}

// SaveState writes the 16-byte state record to w, big-endian, like the
// voxel-index files, the history records and the header container's
// id/size words.
func (r *RNG) SaveState(w io.Writer) error {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], r.s0)
	binary.BigEndian.PutUint64(buf[8:16], r.s1)
	_, err := w.Write(buf[:])
	return err
}

// RestoreState reads a 16-byte state record previously written by
// SaveState.
func (r *RNG) RestoreState(reader io.Reader) error {
	var buf [16]byte
	if _, err := io.ReadFull(reader, buf[:]); err != nil {
		return err
	}
	r.s0 = binary.BigEndian.Uint64(buf[0:8])
	r.s1 = binary.BigEndian.Uint64(buf[8:16])
	return nil
}

// Derive deterministically produces a per-stream seed from a run seed and
// a stream index, used when the decay/free-path/scatter streams are split
// across pond workers (§5: "if split, the split must be deterministic").
func Derive(runSeed uint64, streamIndex int) uint64 {
	mixer := NewRNG(runSeed)
	var seed uint64
	for i := 0; i <= streamIndex; i++ {
		seed = mixer.Uint64()
	}
	return seed
}
