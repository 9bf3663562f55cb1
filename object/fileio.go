package object

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// LoadVoxelGrid reads a raw array of row-major (y outer, x inner),
// big-endian u32 tissue indices for one slice's activity or attenuation
// grid from r, per spec.md §6's voxel-index file layout. numX*numY
// values are expected; a short read is an error rather than a silent
// zero-fill, since a mismatched voxel count means the geometry
// parameters and the voxel file have drifted apart.
func LoadVoxelGrid(r io.Reader, numX, numY int) ([]uint32, error) {
	out := make([]uint32, numX*numY)
	buf := make([]byte, 4*len(out))
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("object: reading voxel grid (%dx%d): %w", numX, numY, err)
	}
	for i := range out {
		out[i] = binary.BigEndian.Uint32(buf[4*i : 4*i+4])
	}
	return out, nil
}

// LoadMaterialTable parses the text material-attenuation file format of
// spec.md §6: a first line giving the tissue count, then for each
// tissue a name line, optionally followed by one attribute line
// (recognised by an '=' in it, e.g. "density=D weight=A number=Z"),
// whose values are accepted but not retained — this build's tracking
// only consumes attenuation and scatter probabilities — and then
// one energy row per supported energy: "energy mu P(scatter)
// P(Compton|scatter)". Energies within one tissue must be contiguous
// integers starting at the first row's energy, matching
// MaterialProperties.Bins' direct-indexed layout.
func LoadMaterialTable(r io.Reader) (MaterialTable, error) {
	scanner := bufio.NewScanner(r)
	lines := make([]string, 0)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return MaterialTable{}, err
	}
	if len(lines) == 0 {
		return MaterialTable{}, fmt.Errorf("object: empty material file")
	}

	numTissues, err := strconv.Atoi(lines[0])
	if err != nil {
		return MaterialTable{}, fmt.Errorf("object: malformed tissue count %q: %w", lines[0], err)
	}

	table := MaterialTable{
		NoCoh: make([]MaterialProperties, 0, numTissues),
		Coh:   make([]MaterialProperties, 0, numTissues),
	}

	idx := 1
	for t := 0; t < numTissues; t++ {
		if idx >= len(lines) {
			return MaterialTable{}, fmt.Errorf("object: material file truncated before tissue %d's name line", t)
		}
		// Name line, then an optional density=/weight=/number= attribute
		// line; both are skipped.
		idx++
		if idx < len(lines) && strings.Contains(lines[idx], "=") {
			idx++
		}

		var bins []EnergyBin
		minEnergy := 0.0
		haveMin := false
		for idx < len(lines) {
			fields := strings.Fields(lines[idx])
			if len(fields) != 4 {
				break
			}
			energy, err := strconv.ParseFloat(fields[0], 64)
			if err != nil {
				break
			}
			mu, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return MaterialTable{}, fmt.Errorf("object: tissue %d: malformed mu %q: %w", t, fields[1], err)
			}
			probScatter, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return MaterialTable{}, fmt.Errorf("object: tissue %d: malformed P(scatter) %q: %w", t, fields[2], err)
			}
			probCompton, err := strconv.ParseFloat(fields[3], 64)
			if err != nil {
				return MaterialTable{}, fmt.Errorf("object: tissue %d: malformed P(Compton|scatter) %q: %w", t, fields[3], err)
			}

			if !haveMin {
				minEnergy = energy
				haveMin = true
			}
			bins = append(bins, EnergyBin{Attenuation: mu, ProbScatter: probScatter, ProbComptonGivenScatter: probCompton})
			idx++
		}

		props := MaterialProperties{MinEnergyKeV: minEnergy, Bins: bins}
		table.NoCoh = append(table.NoCoh, props)
		table.Coh = append(table.Coh, props)
	}

	return table, nil
}
