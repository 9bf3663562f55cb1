// Package binner implements the multidimensional image accumulator and
// history-file record sink described in spec.md §4.9: photons delivered
// by the tracker/collimator stage are binned into a configurable set of
// axes, backed by dense TileDB arrays (one each for counts, weights and
// weights-squared), following the array-construction idiom in the
// root module's tiledb.go (ArrayOpen, filter-pipeline helpers).
package binner

import (
	"context"
	"fmt"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
)

// Axis names every configurable binning dimension spec.md §4.9 lists.
type Axis int

const (
	AxisZ1 Axis = iota
	AxisZ2
	AxisEnergy1
	AxisEnergy2
	AxisTD
	AxisAA
	AxisTOF
	AxisPhi
	AxisTheta
	AxisXR
	AxisYR
	AxisCrystal1
	AxisCrystal2
	AxisScatter1
	AxisScatter2
	AxisPA
)

func (a Axis) String() string {
	names := [...]string{
		"z1", "z2", "energy1", "energy2", "td", "aa", "tof", "phi",
		"theta", "xr", "yr", "crystal1", "crystal2", "scatter1",
		"scatter2", "pa",
	}
	if int(a) < 0 || int(a) >= len(names) {
		return "unknown"
	}
	return names[a]
}

// AxisConfig is one axis's configuration: its value range and bin
// count, matching spec.md §4.9's {min, max, numBins} tuple.
type AxisConfig struct {
	Axis     Axis
	Min      float64
	Max      float64
	NumBins  uint64
}

// ElementType selects the on-disk element width for the weights and
// weights² accumulator arrays; the counts array is always uint32.
type ElementType int

const (
	ElementUint8 ElementType = iota
	ElementUint16
	ElementUint32
	ElementFloat32
	ElementFloat64
)

func (e ElementType) tiledbDatatype() tiledb.Datatype {
	switch e {
	case ElementUint8:
		return tiledb.TILEDB_UINT8
	case ElementUint16:
		return tiledb.TILEDB_UINT16
	case ElementUint32:
		return tiledb.TILEDB_UINT32
	case ElementFloat32:
		return tiledb.TILEDB_FLOAT32
	default:
		return tiledb.TILEDB_FLOAT64
	}
}

// Image is the three-array (counts, weights, weights²) accumulator for
// one axis configuration.
type Image struct {
	ctx     *tiledb.Context
	axes    []AxisConfig
	uri     string
	element ElementType

	countsArray, weightsArray, weightsSqArray *tiledb.Array
}

// NewImage creates (or, when addToExisting is true, opens) the three
// backing TileDB arrays at uri for the given axis configuration and
// element type.
func NewImage(ctx *tiledb.Context, uri string, axes []AxisConfig, element ElementType, addToExisting bool) (*Image, error) {
	img := &Image{ctx: ctx, axes: axes, uri: uri, element: element}

	if addToExisting {
		arrays, err := openTriple(ctx, uri)
		if err != nil {
			return nil, err
		}
		img.countsArray, img.weightsArray, img.weightsSqArray = arrays[0], arrays[1], arrays[2]
		return img, nil
	}

	for _, suffix := range []string{"counts", "weights", "weights2"} {
		dtype := tiledb.TILEDB_UINT32
		if suffix != "counts" {
			dtype = element.tiledbDatatype()
		}
		if err := createDenseArray(ctx, fmt.Sprintf("%s_%s", uri, suffix), axes, dtype); err != nil {
			return nil, err
		}
	}

	arrays, err := openTriple(ctx, uri)
	if err != nil {
		return nil, err
	}
	img.countsArray, img.weightsArray, img.weightsSqArray = arrays[0], arrays[1], arrays[2]
	return img, nil
}

func openTriple(ctx *tiledb.Context, uri string) ([3]*tiledb.Array, error) {
	var out [3]*tiledb.Array
	for i, suffix := range []string{"counts", "weights", "weights2"} {
		arr, err := ArrayOpen(ctx, fmt.Sprintf("%s_%s", uri, suffix), tiledb.TILEDB_WRITE)
		if err != nil {
			for j := 0; j < i; j++ {
				out[j].Close()
				out[j].Free()
			}
			return out, err
		}
		out[i] = arr
	}
	return out, nil
}

// createDenseArray builds a dense TileDB array whose domain has one
// dimension per axis config, sized NumBins, with a single attribute of
// dtype.
func createDenseArray(ctx *tiledb.Context, uri string, axes []AxisConfig, dtype tiledb.Datatype) error {
	domain, err := tiledb.NewDomain(ctx)
	if err != nil {
		return err
	}
	defer domain.Free()

	for _, a := range axes {
		dim, err := tiledb.NewDimension(ctx, a.Axis.String(), tiledb.TILEDB_UINT64, []uint64{0, a.NumBins - 1}, uint64(1))
		if err != nil {
			return err
		}
		if err := domain.AddDimensions(dim); err != nil {
			dim.Free()
			return err
		}
		dim.Free()
	}

	schema, err := tiledb.NewArraySchema(ctx, tiledb.TILEDB_DENSE)
	if err != nil {
		return err
	}
	defer schema.Free()

	if err := schema.SetDomain(domain); err != nil {
		return err
	}

	attr, err := tiledb.NewAttribute(ctx, "value", dtype)
	if err != nil {
		return err
	}
	defer attr.Free()

	zstd, err := ZstdFilter(ctx, 16)
	if err != nil {
		return err
	}
	defer zstd.Free()

	filters, err := tiledb.NewFilterList(ctx)
	if err != nil {
		return err
	}
	defer filters.Free()
	if err := AddFilters(filters, zstd); err != nil {
		return err
	}
	if err := attr.SetFilterList(filters); err != nil {
		return err
	}

	if err := schema.AddAttributes(attr); err != nil {
		return err
	}

	return tiledb.CreateArray(ctx, uri, schema)
}

// BinIndices maps a set of axis sample values to bin indices, in the
// same order as img.axes; ok is false if any value falls outside its
// axis's configured range, matching spec.md §4.9's "out-of-range is a
// drop, not an error".
func (img *Image) BinIndices(values map[Axis]float64) ([]uint64, bool) {
	indices := make([]uint64, len(img.axes))
	for i, cfg := range img.axes {
		v, present := values[cfg.Axis]
		if !present {
			return nil, false
		}
		if v < cfg.Min || v >= cfg.Max {
			return nil, false
		}
		binWidth := (cfg.Max - cfg.Min) / float64(cfg.NumBins)
		idx := uint64((v - cfg.Min) / binWidth)
		if idx >= cfg.NumBins {
			idx = cfg.NumBins - 1
		}
		indices[i] = idx
	}
	return indices, true
}

// Add bins one photon's weight into the accumulator: increments the
// count array by one and the weight/weight² arrays by weight and
// weight² at the cell identified by values, or silently drops the
// photon if any axis value is out of range.
func (img *Image) Add(ctx context.Context, values map[Axis]float64, weight float64) error {
	indices, ok := img.BinIndices(values)
	if !ok {
		return nil
	}

	subarray := make([]uint64, 0, len(indices)*2)
	for _, idx := range indices {
		subarray = append(subarray, idx, idx)
	}

	if err := writeCellDelta(img.ctx, img.countsArray, subarray, uint32(1)); err != nil {
		return err
	}
	if err := writeCellDeltaFloat(img.ctx, img.weightsArray, subarray, weight, img.element); err != nil {
		return err
	}
	return writeCellDeltaFloat(img.ctx, img.weightsSqArray, subarray, weight*weight, img.element)
}

// Close releases the three backing arrays.
func (img *Image) Close() error {
	var firstErr error
	for _, arr := range []*tiledb.Array{img.countsArray, img.weightsArray, img.weightsSqArray} {
		if arr == nil {
			continue
		}
		if err := arr.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		arr.Free()
	}
	return firstErr
}

func writeCellDelta(ctx *tiledb.Context, array *tiledb.Array, subarray []uint64, delta uint32) error {
	query, err := tiledb.NewQuery(ctx, array)
	if err != nil {
		return err
	}
	defer query.Free()

	if err := query.SetSubArray(subarray); err != nil {
		return err
	}
	if err := query.SetLayout(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return err
	}

	buf := []uint32{delta}
	if _, err := query.SetDataBuffer("value", buf); err != nil {
		return err
	}
	return query.Submit()
}

func writeCellDeltaFloat(ctx *tiledb.Context, array *tiledb.Array, subarray []uint64, delta float64, element ElementType) error {
	query, err := tiledb.NewQuery(ctx, array)
	if err != nil {
		return err
	}
	defer query.Free()

	if err := query.SetSubArray(subarray); err != nil {
		return err
	}
	if err := query.SetLayout(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return err
	}

	switch element {
	case ElementFloat32:
		buf := []float32{float32(delta)}
		if _, err := query.SetDataBuffer("value", buf); err != nil {
			return err
		}
	default:
		buf := []float64{delta}
		if _, err := query.SetDataBuffer("value", buf); err != nil {
			return err
		}
	}
	return query.Submit()
}
