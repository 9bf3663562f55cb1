// Package productivity implements the per-slice emission-angle
// stratification table described in spec.md §4.5: emission cos-alpha is
// partitioned into a fixed number of bins, and each (slice, bin) pair
// carries an estimated maximum survival probability through the object
// plus the bin's angular width. Grounded on the ProdTbl* functions
// referenced from original_source/src/SubObj.c (ProdTblCreateTable,
// ProdTblGetProdTblAngleStart/End, ProdTblGetProdTblAngleSize).
package productivity

// Bin is one (slice, angle) cell of the table.
type Bin struct {
	AngleStart     float64 // lower cos-alpha edge
	AngleEnd       float64 // upper cos-alpha edge
	MaxProductivity float64 // estimated maximum survival probability
}

// AngleSize returns the bin's angular width, AngleEnd-AngleStart.
func (b Bin) AngleSize() float64 {
	return b.AngleEnd - b.AngleStart
}

// Table holds one row of Bins per object slice. When stratification is
// disabled the table is built with exactly one bin per slice, spanning
// [-1,+1] with MaxProductivity 1 (NewUnstratified).
type Table struct {
	bins [][]Bin // bins[sliceIdx][angleIdx]
}

// NewStratified partitions [-1,+1] into numBins equal-width cos-alpha
// bins for each of numSlices slices, and calls estimate(sliceIdx,
// angleStart, angleEnd) to fill in each bin's MaxProductivity — a
// one-pass attenuation estimate supplied by the caller, since computing
// it requires the voxelized object's material tables (package object),
// which this package does not depend on to avoid a cyclic import.
func NewStratified(numSlices, numBins int, estimate func(sliceIdx int, angleStart, angleEnd float64) float64) *Table {
	t := &Table{bins: make([][]Bin, numSlices)}
	width := 2.0 / float64(numBins)

	for s := 0; s < numSlices; s++ {
		row := make([]Bin, numBins)
		for a := 0; a < numBins; a++ {
			start := -1 + float64(a)*width
			end := -1 + float64(a+1)*width
			row[a] = Bin{
				AngleStart:      start,
				AngleEnd:        end,
				MaxProductivity: estimate(s, start, end),
			}
		}
		t.bins[s] = row
	}
	return t
}

// NewUnstratified builds the degenerate single-bin-per-slice table used
// when stratification is disabled: one bin spanning [-1,+1] with
// MaxProductivity 1, per spec.md §4.5.
func NewUnstratified(numSlices int) *Table {
	t := &Table{bins: make([][]Bin, numSlices)}
	for s := range t.bins {
		t.bins[s] = []Bin{{AngleStart: -1, AngleEnd: 1, MaxProductivity: 1}}
	}
	return t
}

// NumSlices returns the number of slices the table covers.
func (t *Table) NumSlices() int {
	return len(t.bins)
}

// NumBins returns the number of angle bins per slice.
func (t *Table) NumBins() int {
	if len(t.bins) == 0 {
		return 0
	}
	return len(t.bins[0])
}

// AngleStart returns the lower cos-alpha edge of (sliceIdx, angleIdx),
// matching ProdTblGetProdTblAngleStart.
func (t *Table) AngleStart(sliceIdx, angleIdx int) float64 {
	return t.bins[sliceIdx][angleIdx].AngleStart
}

// AngleEnd returns the upper cos-alpha edge, matching
// ProdTblGetProdTblAngleEnd.
func (t *Table) AngleEnd(sliceIdx, angleIdx int) float64 {
	return t.bins[sliceIdx][angleIdx].AngleEnd
}

// AngleSize returns the bin width, matching ProdTblGetProdTblAngleSize.
func (t *Table) AngleSize(sliceIdx, angleIdx int) float64 {
	return t.bins[sliceIdx][angleIdx].AngleSize()
}

// MaxProductivity returns the estimated maximum survival probability for
// (sliceIdx, angleIdx).
func (t *Table) MaxProductivity(sliceIdx, angleIdx int) float64 {
	return t.bins[sliceIdx][angleIdx].MaxProductivity
}

// SampleAngle draws a cos-alpha value uniformly within bin (sliceIdx,
// angleIdx), using u as the uniform draw on [0,1) — matching the
// SubObj.c pattern at line ~3032-3034 (cosAlpha = angleStart +
// (angleEnd-angleStart)*rand).
func (t *Table) SampleAngle(sliceIdx, angleIdx int, u float64) float64 {
	b := t.bins[sliceIdx][angleIdx]
	return b.AngleStart + b.AngleSize()*u
}
