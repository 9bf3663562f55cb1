// Package config loads the run parameters a simulation needs into one
// immutable SimConfig, replacing the original source's file-scope
// "current params" arrays with a struct built once and threaded
// through every component, per spec.md's REDESIGN FLAGS.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/unit"

	"github.com/irl-simset/simset/collimator"
	"github.com/irl-simset/simset/tracker"
)

// ErrConfig is the sentinel §7 "ConfigError" wraps: a construction-time
// mismatch between declared parameters, as opposed to a malformed
// parameter-file line (which Load reports directly).
var ErrConfig = errors.New("config: invalid configuration")

// DecayMode selects how many photons a decay emits and how they're
// correlated.
type DecayMode int

const (
	ModePET DecayMode = iota
	ModeSPECT
	ModeCoincidence
)

// SourceMode mirrors decaygen.SourceMode, duplicated here (rather than
// imported) to keep config free of a dependency on decaygen. config
// does import tracker and collimator for their option structs, and is
// consumed by the runner that wires everything together.
type SourceMode int

const (
	SourceUniform SourceMode = iota
	SourcePoint
	SourceLine
)

// SimConfig is the complete, immutable set of parameters a run needs:
// physics options, the tracker's variance-reduction settings, the
// optional collimator, and run bookkeeping. Built once by Load and
// never mutated afterward.
type SimConfig struct {
	RunSeed       uint64
	ReferenceTime time.Time

	DecayMode  DecayMode
	SourceMode SourceMode

	Tracker    tracker.Config
	Collimator *collimator.Params // nil when no collimator stage is modeled

	// EmissionEnergyKeV is the SPECT isotope's emission energy in keV,
	// selected when DecayMode/decaygen.DecayType is not Positron. PET
	// decays start instead at the fixed 511 keV annihilation energy
	// (decaygen.AnnihilationEnergyKeV), which is a physical constant,
	// not an operator-chosen parameter.
	EmissionEnergyKeV float64

	// ModelNonCollinearity and NonCollinearityFWHMDeg control whether a
	// Positron decay's second photon is jittered off exact
	// antiparallel, per PhgHdr.c's PhgIsAdjForCollinearity.
	ModelNonCollinearity   bool
	NonCollinearityFWHMDeg float64

	DecaysPerCurie  float64
	BinDurationSecs float64
	RequestedEvents uint64

	HistoryFilePath string
	ImagePath       string
}

// Load reads key=value lines from r (blank lines and lines starting
// with '#' are ignored), in the same flat key=value shape the original
// source's processing-parameters record uses, and assembles a
// SimConfig. Unknown keys are ignored, so a parameter file may carry
// keys this build doesn't yet consume.
func Load(r io.Reader) (SimConfig, error) {
	raw := make(map[string]string)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		val := strings.TrimSpace(parts[1])
		raw[key] = val
	}
	if err := scanner.Err(); err != nil {
		return SimConfig{}, err
	}

	cfg := SimConfig{
		Tracker: tracker.Config{
			MaxScatters:  intOr(raw, "max_scatters", 5),
			MinEnergyKeV: floatOr(raw, "min_energy_kev", 10),
			MinWWRatio:   floatOr(raw, "min_ww_ratio", 0.25),
			MaxWWRatio:   floatOr(raw, "max_ww_ratio", 4.0),
		},
		EmissionEnergyKeV: floatOr(raw, "emission_energy_kev", 140.5),
		DecaysPerCurie:  floatOr(raw, "decays_per_curie", 3.7e10),
		BinDurationSecs: floatOr(raw, "bin_duration_secs", 1.0),
		RequestedEvents: uint64(intOr(raw, "requested_events", 1_000_000)),
		HistoryFilePath: raw["history_file"],
		ImagePath:       raw["image_path"],
	}

	cfg.Tracker.ModelCoherent = boolOr(raw, "model_coherent", false)
	cfg.Tracker.ForcedDetection = boolOr(raw, "forced_detection", true)
	cfg.Tracker.ForcedNonAbsorption = boolOr(raw, "forced_non_absorption", false)
	cfg.Tracker.ModelPolarization = boolOr(raw, "model_polarization", false)

	cfg.ModelNonCollinearity = boolOr(raw, "model_non_collinearity", true)
	cfg.NonCollinearityFWHMDeg = floatOr(raw, "non_collinearity_fwhm_deg", 0.25)

	switch strings.ToLower(raw["decay_mode"]) {
	case "spect":
		cfg.DecayMode = ModeSPECT
	case "coincidence":
		cfg.DecayMode = ModeCoincidence
	default:
		cfg.DecayMode = ModePET
	}

	switch strings.ToLower(raw["source_mode"]) {
	case "point":
		cfg.SourceMode = SourcePoint
	case "line":
		cfg.SourceMode = SourceLine
	default:
		cfg.SourceMode = SourceUniform
	}

	if seedStr, ok := raw["run_seed"]; ok {
		seed, err := strconv.ParseUint(seedStr, 10, 64)
		if err != nil {
			return SimConfig{}, fmt.Errorf("config: invalid run_seed %q: %w", seedStr, err)
		}
		cfg.RunSeed = seed
	}

	if refStr, ok := raw["reference_time"]; ok {
		refTime, err := parseReferenceTime(refStr)
		if err != nil {
			return SimConfig{}, err
		}
		cfg.ReferenceTime = refTime
	}

	if raw["collimator_geometry"] != "" {
		col, err := parseCollimator(raw)
		if err != nil {
			return SimConfig{}, err
		}
		cfg.Collimator = &col
	}

	return cfg, nil
}

// parseReferenceTime parses the "yyyy/ddd hh:mm:ss" reference-time
// format, using julian.DayOfYearToCalendar to turn the day-of-year
// ordinal into a month/day pair the way the original source's
// processing-parameters decoder does for its own reference_time field.
func parseReferenceTime(s string) (time.Time, error) {
	fields := strings.Split(s, " ")
	if len(fields) != 2 {
		return time.Time{}, fmt.Errorf("config: reference_time %q: expected \"yyyy/ddd hh:mm:ss\"", s)
	}

	datePart := strings.Split(fields[0], "/")
	if len(datePart) != 2 {
		return time.Time{}, fmt.Errorf("config: reference_time %q: malformed date", s)
	}

	year, err := strconv.Atoi(datePart[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("config: reference_time %q: %w", s, err)
	}
	doy, err := strconv.Atoi(datePart[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("config: reference_time %q: %w", s, err)
	}
	month, day := julian.DayOfYearToCalendar(doy, julian.LeapYearGregorian(year))

	timePart := strings.Split(fields[1], ":")
	if len(timePart) != 3 {
		return time.Time{}, fmt.Errorf("config: reference_time %q: malformed time", s)
	}
	hms := make([]int, 3)
	for i, v := range timePart {
		hms[i], err = strconv.Atoi(v)
		if err != nil {
			return time.Time{}, fmt.Errorf("config: reference_time %q: %w", s, err)
		}
	}

	return time.Date(year, time.Month(month), day, hms[0], hms[1], hms[2], 0, time.UTC), nil
}

// ValidateObjectBounds enforces the legacy object cylinder's centred,
// square constraint (spec.md §9's Open Question: xMin = -xMax,
// yMin = -yMax, xMax = yMax). Off-centre or elliptical objects are out
// of scope, per that same design note, so a mismatch here is a
// construction-time ConfigError rather than a warning.
func ValidateObjectBounds(xMin, xMax, yMin, yMax float64) error {
	const eps = 1e-9
	if math.Abs(xMin+xMax) > eps {
		return fmt.Errorf("%w: xMin (%.6g) must equal -xMax (%.6g)", ErrConfig, xMin, -xMax)
	}
	if math.Abs(yMin+yMax) > eps {
		return fmt.Errorf("%w: yMin (%.6g) must equal -yMax (%.6g)", ErrConfig, yMin, -yMax)
	}
	if math.Abs(xMax-yMax) > eps {
		return fmt.Errorf("%w: xMax (%.6g) must equal yMax (%.6g)", ErrConfig, xMax, yMax)
	}
	return nil
}

// parseCollimator builds collimator.Params from the raw key=value map,
// converting the configured start/stop view angles from degrees to
// radians via soniakeys/unit's Angle type, matching
// UNCColInitialize's own degree-to-radian conversion of StartAngle and
// StopAngle.
func parseCollimator(raw map[string]string) (collimator.Params, error) {
	var geom collimator.HoleGeometry
	switch strings.ToLower(raw["collimator_geometry"]) {
	case "fan":
		geom = collimator.Fan
	case "cone":
		geom = collimator.Cone
	default:
		geom = collimator.Parallel
	}

	startDeg := floatOr(raw, "collimator_start_angle_deg", 0)
	stopDeg := floatOr(raw, "collimator_stop_angle_deg", 360)

	return collimator.Params{
		Geometry:         geom,
		RadiusOfRotation: floatOr(raw, "collimator_radius", 20),
		Thickness:        floatOr(raw, "collimator_thickness", 3.5),
		HoleRadius:       floatOr(raw, "collimator_hole_radius", 0.05),
		SeptalThickness:  floatOr(raw, "collimator_septal_thickness", 0.02),
		MinZ:             floatOr(raw, "collimator_min_z", -20),
		MaxZ:             floatOr(raw, "collimator_max_z", 20),
		StartAngle:       float64(unit.AngleFromDeg(startDeg)),
		StopAngle:        float64(unit.AngleFromDeg(stopDeg)),
		NumViews:         intOr(raw, "collimator_num_views", 120),
		FocalLength:      floatOr(raw, "collimator_focal_length", 35),
	}, nil
}

func floatOr(raw map[string]string, key string, def float64) float64 {
	v, ok := raw[key]
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func intOr(raw map[string]string, key string, def int) int {
	v, ok := raw[key]
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func boolOr(raw map[string]string, key string, def bool) bool {
	v, ok := raw[key]
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "yes", "true", "1":
		return true
	case "no", "false", "0":
		return false
	default:
		return def
	}
}
