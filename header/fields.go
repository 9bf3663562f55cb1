package header

import (
	"fmt"
	"reflect"
	"strconv"

	stgpsr "github.com/yuin/stagparser"
)

// Kind enumerates the canonical Go type a registered field decodes to.
type Kind int

const (
	KindFloat64 Kind = iota
	KindUint32
	KindBool
	KindPath
)

// FieldDef is one entry in the registry: every registered ID has a
// canonical payload size, matching PhgHdrGtFieldSize's switch in
// PhgHdr.c, which returns a fixed size per field ID (sizeof(...) of the
// corresponding run-time-parameter struct member).
type FieldDef struct {
	ID      FieldID
	Name    string
	Size    uint32
	Kind    Kind
	Default any
}

// registrySpec declares the field registry as a tagged struct so
// yuin/stagparser can derive the header's field table from the tags -
// the "struct tags as schema" pattern, applied to the header layout.
//
// Field names here only exist to carry the struct tag; the fields
// themselves are never read directly.
type registrySpec struct {
	// Run parameters (HDR_PHG_*), grounded on PhgHdr.c's PhgHdrGtFieldSize.
	HeaderSize        struct{} `hdr:"id=1,size=4,kind=uint32"`
	EventsToSimulate  struct{} `hdr:"id=2,size=8,kind=float64,default=0"`
	RandomSeed        struct{} `hdr:"id=3,size=4,kind=uint32,default=1"`
	LengthOfScan      struct{} `hdr:"id=4,size=8,kind=float64"`
	AcceptanceAngle   struct{} `hdr:"id=5,size=8,kind=float64"`
	MinEnergy         struct{} `hdr:"id=6,size=8,kind=float64,default=0"`
	MinWWRatio        struct{} `hdr:"id=7,size=8,kind=float64,default=0.25"`
	MaxWWRatio        struct{} `hdr:"id=8,size=8,kind=float64,default=4"`
	PhotonEnergyKeV   struct{} `hdr:"id=9,size=8,kind=float64"`
	PositronEnergy    struct{} `hdr:"id=10,size=8,kind=float64,default=0"`
	IsForcedDetection struct{} `hdr:"id=11,size=1,kind=bool,default=false"`
	IsStratification  struct{} `hdr:"id=12,size=1,kind=bool,default=false"`
	IsForcedNonAbsorb struct{} `hdr:"id=13,size=1,kind=bool,default=false"`
	IsSPECT           struct{} `hdr:"id=14,size=1,kind=bool,default=false"`
	IsPET             struct{} `hdr:"id=15,size=1,kind=bool,default=false"`
	IsPolarization    struct{} `hdr:"id=16,size=1,kind=bool,default=false"`
	NumPhotons        struct{} `hdr:"id=17,size=4,kind=uint32,default=0"`

	// Collimator params (HDR_COL_*), grounded on ColTypes.h's Col_UNC_SPECT_Ty.
	ColType             struct{} `hdr:"id=100,size=4,kind=uint32"`
	ColUNCHoleGeom      struct{} `hdr:"id=101,size=4,kind=uint32"`
	ColUNCRadOfRotation struct{} `hdr:"id=102,size=8,kind=float64"`
	ColUNCThickness     struct{} `hdr:"id=103,size=8,kind=float64"`
	ColUNCHoleRadius    struct{} `hdr:"id=104,size=8,kind=float64"`
	ColUNCSeptalThick   struct{} `hdr:"id=105,size=8,kind=float64"`
	ColUNCFocalLength   struct{} `hdr:"id=106,size=8,kind=float64,default=0"`

	// Detector params (HDR_DET_*), grounded on PhgHdr.c's HDR_DET_* cases.
	DetCoincTimingWindow struct{} `hdr:"id=200,size=8,kind=float64,default=0"`
	DetEnergyResolution  struct{} `hdr:"id=201,size=8,kind=float64,default=0"`

	// Binning params (HDR_BIN_*), grounded on PhgHdr.c's HDR_BIN_* cases.
	BinNumZBins  struct{} `hdr:"id=300,size=4,kind=uint32,default=1"`
	BinNumPABins struct{} `hdr:"id=301,size=4,kind=uint32,default=1"`
	BinNumTDBins struct{} `hdr:"id=302,size=4,kind=uint32,default=1"`
	BinMinZ      struct{} `hdr:"id=303,size=8,kind=float64"`
	BinMaxZ      struct{} `hdr:"id=304,size=8,kind=float64"`
}

// Exported FieldID constants, one per registrySpec tag above. These are
// what callers use directly; registrySpec only exists to drive
// buildRegistry via reflection and is never constructed outside init.
const (
	PhgHeaderSizeID        FieldID = 1
	PhgEventsToSimulateID  FieldID = 2
	PhgRandomSeedID        FieldID = 3
	PhgLengthOfScanID      FieldID = 4
	PhgAcceptanceAngleID   FieldID = 5
	PhgMinEnergyID         FieldID = 6
	PhgMinWWRatioID        FieldID = 7
	PhgMaxWWRatioID        FieldID = 8
	PhgPhotonEnergyKeVID   FieldID = 9
	PhgPositronEnergyID    FieldID = 10
	PhgIsForcedDetectionID FieldID = 11
	PhgIsStratificationID  FieldID = 12
	PhgIsForcedNonAbsorbID FieldID = 13
	PhgIsSPECTID           FieldID = 14
	PhgIsPETID             FieldID = 15
	PhgIsPolarizationID    FieldID = 16
	PhgNumPhotonsID        FieldID = 17

	ColTypeID             FieldID = 100
	ColUNCHoleGeomID      FieldID = 101
	ColUNCRadOfRotationID FieldID = 102
	ColUNCThicknessID     FieldID = 103
	ColUNCHoleRadiusID    FieldID = 104
	ColUNCSeptalThickID   FieldID = 105
	ColUNCFocalLengthID   FieldID = 106

	DetCoincTimingWindowID FieldID = 200
	DetEnergyResolutionID  FieldID = 201

	BinNumZBinsID  FieldID = 300
	BinNumPABinsID FieldID = 301
	BinNumTDBinsID FieldID = 302
	BinMinZID      FieldID = 303
	BinMaxZID      FieldID = 304
)

var registry map[FieldID]FieldDef

func init() {
	registry = buildRegistry()
}

func buildRegistry() map[FieldID]FieldDef {
	out := make(map[FieldID]FieldDef)

	spec := registrySpec{}
	defs, err := stgpsr.ParseStruct(&spec, "hdr")
	if err != nil {
		panic(fmt.Sprintf("header: malformed field registry tags: %v", err))
	}

	t := reflect.TypeOf(spec)
	for i := 0; i < t.NumField(); i++ {
		fieldName := t.Field(i).Name
		tokens := make(map[string]stgpsr.Definition)
		for _, d := range defs[fieldName] {
			tokens[d.Name()] = d
		}

		id := mustAttr(tokens, "id", fieldName)
		size := mustAttr(tokens, "size", fieldName)
		kind := mustAttr(tokens, "kind", fieldName)

		idVal, _ := strconv.ParseUint(id, 10, 32)
		sizeVal, _ := strconv.ParseUint(size, 10, 32)

		def := FieldDef{
			ID:   FieldID(idVal),
			Name: fieldName,
			Size: uint32(sizeVal),
			Kind: kindFromString(kind),
		}

		if dflt, ok := tokens["default"]; ok {
			if v, present := dflt.Attribute("default"); present {
				def.Default = parseDefault(def.Kind, v)
			}
		}

		out[def.ID] = def
	}

	return out
}

func mustAttr(tokens map[string]stgpsr.Definition, key, fieldName string) string {
	d, ok := tokens[key]
	if !ok {
		panic(fmt.Sprintf("header: field %s missing required %q tag attribute", fieldName, key))
	}
	v, _ := d.Attribute(key)
	return v
}

func kindFromString(s string) Kind {
	switch s {
	case "uint32":
		return KindUint32
	case "bool":
		return KindBool
	case "path":
		return KindPath
	default:
		return KindFloat64
	}
}

func parseDefault(kind Kind, s string) any {
	switch kind {
	case KindUint32:
		v, _ := strconv.ParseUint(s, 10, 32)
		return uint32(v)
	case KindBool:
		return s == "true"
	case KindPath:
		return s
	default:
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
}

// Lookup returns the registered definition for id, or ok=false for an
// unregistered ID. "Missing field" at read time is handled one level up
// by the Get*WithDefault methods, not here - an unregistered ID is
// always an error.
func Lookup(id FieldID) (FieldDef, bool) {
	d, ok := registry[id]
	return d, ok
}

// GetFloat64WithDefault reads a registered float64 field, substituting
// the registry's default when the element was not found - the
// "missing field is not an error at read time" rule from §4.2.
func (c *Container) GetFloat64WithDefault(id FieldID) (float64, error) {
	def, ok := Lookup(id)
	if !ok {
		return 0, fmt.Errorf("header: unregistered field id %d", id)
	}
	v, err := c.GetFloat64(id)
	if err == ErrElementNotFound {
		if def.Default == nil {
			return 0, ErrElementNotFound
		}
		return def.Default.(float64), nil
	}
	return v, err
}

// GetUint32WithDefault is the uint32 analogue of GetFloat64WithDefault.
func (c *Container) GetUint32WithDefault(id FieldID) (uint32, error) {
	def, ok := Lookup(id)
	if !ok {
		return 0, fmt.Errorf("header: unregistered field id %d", id)
	}
	v, err := c.GetUint32(id)
	if err == ErrElementNotFound {
		if def.Default == nil {
			return 0, ErrElementNotFound
		}
		return def.Default.(uint32), nil
	}
	return v, err
}

// GetBoolWithDefault is the bool analogue of GetFloat64WithDefault.
func (c *Container) GetBoolWithDefault(id FieldID) (bool, error) {
	def, ok := Lookup(id)
	if !ok {
		return false, fmt.Errorf("header: unregistered field id %d", id)
	}
	v, err := c.GetBool(id)
	if err == ErrElementNotFound {
		if def.Default == nil {
			return false, ErrElementNotFound
		}
		return def.Default.(bool), nil
	}
	return v, err
}
