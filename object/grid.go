package object

import "github.com/irl-simset/simset/cylinder"

// Slice is one axial slab of the voxelized object: a shared x/y extent,
// two independently-sized voxel grids (activity and attenuation), each
// holding one tissue index per cell.
type Slice struct {
	ZMin, ZMax float64
	XMin, XMax float64
	YMin, YMax float64

	ActNumX, ActNumY int
	ActTissue        []uint32 // len == ActNumX*ActNumY, row-major (x fastest)

	AttNumX, AttNumY int
	AttTissue        []uint32 // len == AttNumX*AttNumY, row-major (x fastest)
}

func (s Slice) actIndex(x, y int) int { return y*s.ActNumX + x }
func (s Slice) attIndex(x, y int) int { return y*s.AttNumX + x }

// Object is a z-ordered stack of Slices sharing one material table, plus
// the object cylinder they're bounded by. New assembles it from slices
// and a material table the caller has already loaded (see LoadVoxelGrid
// and LoadMaterialTable); it reads no files and applies no index
// translation tables, so the slices' tissue indices are used as
// material-table indices directly. Every such index must fall within
// the material table or construction fails.
type Object struct {
	Slices   []Slice
	Cylinder cylinder.Cylinder
	Materials MaterialTable
}

// New validates that every slice shares the same x/y bounds (spec §3's
// object-cylinder invariant) and that every translated tissue index is
// within range of Materials, then returns the assembled Object.
func New(slices []Slice, cyl cylinder.Cylinder, materials MaterialTable) (*Object, error) {
	if len(slices) == 0 {
		return &Object{Slices: slices, Cylinder: cyl, Materials: materials}, nil
	}

	first := slices[0]
	for _, s := range slices[1:] {
		if s.XMin != first.XMin || s.XMax != first.XMax || s.YMin != first.YMin || s.YMax != first.YMax {
			return nil, ErrSliceMismatch
		}
	}

	maxIdx := len(materials.NoCoh)
	for _, s := range slices {
		for _, idx := range s.ActTissue {
			if int(idx) >= maxIdx {
				return nil, ErrIndexOutOfRange
			}
		}
		for _, idx := range s.AttTissue {
			if int(idx) >= maxIdx {
				return nil, ErrIndexOutOfRange
			}
		}
	}

	return &Object{Slices: slices, Cylinder: cyl, Materials: materials}, nil
}

// GetCellAttenuation dereferences the attenuation tissue index at
// (sliceIdx, xIdx, yIdx) and looks up its attenuation, matching
// SubObjGetCellAttenuation.
func (o *Object) GetCellAttenuation(sliceIdx, xIdx, yIdx int, energyKeV float64, modelCoh bool) (float64, error) {
	s := o.Slices[sliceIdx]
	materialIdx := int(s.AttTissue[s.attIndex(xIdx, yIdx)])
	return o.Materials.GetAttenuation(materialIdx, energyKeV, modelCoh)
}

// PositionToIndices maps a lab-frame position to its (sliceIdx, xIdx,
// yIdx) cell via a deterministic forward scan over slices, then x, then
// y. A z exactly on the boundary between two slices falls into the
// earlier slice; x and y are floor-divided by the cell size, so a
// position on an interior cell face falls into the higher-indexed cell
// and one on or beyond the grid's outer edge is clamped to the edge
// cell. Matches SubObjGtPositionIndexes.
func (o *Object) PositionToIndices(pos cylinder.Position) (sliceIdx, xIdx, yIdx int, ok bool) {
	sliceIdx = -1
	for i, s := range o.Slices {
		if pos.Z >= s.ZMin && pos.Z <= s.ZMax {
			sliceIdx = i
			break
		}
	}
	if sliceIdx == -1 {
		return 0, 0, 0, false
	}
	s := o.Slices[sliceIdx]

	cellW := (s.XMax - s.XMin) / float64(s.ActNumX)
	xIdx = int((pos.X - s.XMin) / cellW)
	if xIdx >= s.ActNumX {
		xIdx = s.ActNumX - 1
	}
	if xIdx < 0 {
		xIdx = 0
	}

	cellH := (s.YMax - s.YMin) / float64(s.ActNumY)
	yIdx = int((pos.Y - s.YMin) / cellH)
	if yIdx >= s.ActNumY {
		yIdx = s.ActNumY - 1
	}
	if yIdx < 0 {
		yIdx = 0
	}

	return sliceIdx, xIdx, yIdx, true
}

// InnerCellDistance returns the signed distances along dir to the next
// cell face in x, y and z from (pos, sliceIdx, xIdx, yIdx); each sign
// follows the corresponding direction cosine, matching
// SubObjGetInnerCellDistance.
func (o *Object) InnerCellDistance(pos cylinder.Position, dir cylinder.Direction, sliceIdx, xIdx, yIdx int) (dx, dy, dz float64) {
	s := o.Slices[sliceIdx]

	cellW := (s.XMax - s.XMin) / float64(s.ActNumX)
	cellH := (s.YMax - s.YMin) / float64(s.ActNumY)

	xFaceLo := s.XMin + float64(xIdx)*cellW
	xFaceHi := xFaceLo + cellW
	yFaceLo := s.YMin + float64(yIdx)*cellH
	yFaceHi := yFaceLo + cellH

	switch {
	case dir.CosX > 0:
		dx = xFaceHi - pos.X
	case dir.CosX < 0:
		dx = xFaceLo - pos.X
	}
	switch {
	case dir.CosY > 0:
		dy = yFaceHi - pos.Y
	case dir.CosY < 0:
		dy = yFaceLo - pos.Y
	}
	switch {
	case dir.CosZ > 0:
		dz = s.ZMax - pos.Z
	case dir.CosZ < 0:
		dz = s.ZMin - pos.Z
	}

	return dx, dy, dz
}
