package motion

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// SensitivityDriven displaces interface points along a per point field,
// by StepSize times the time step each pass
type SensitivityDriven struct {
	Field    []r3.Vec
	StepSize float64
	scale    float64
}

func NewSensitivityDriven(field []r3.Vec, stepSize float64) *SensitivityDriven {
	return &SensitivityDriven{Field: field, StepSize: stepSize}
}

func (sd *SensitivityDriven) Advance(dt float64) (bool, error) {
	if dt < 0 {
		return false, fmt.Errorf("negative time step %g", dt)
	}
	sd.scale = sd.StepSize * dt
	if sd.scale == 0 {
		return false, nil
	}
	for _, v := range sd.Field {
		if v != (r3.Vec{}) {
			return true, nil
		}
	}
	return false, nil
}

func (sd *SensitivityDriven) ProposedPoints(s Snapshot) ([]r3.Vec, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if len(sd.Field) != len(s.Base) {
		return nil, fmt.Errorf("%w: sensitivity has %d values for %d points",
			ErrFieldSize, len(sd.Field), len(s.Base))
	}
	out := make([]r3.Vec, len(s.Base))
	for p := range out {
		out[p] = s.Current[p]
		if s.Interface[p] {
			out[p] = r3.Add(out[p], r3.Scale(sd.scale, sd.Field[p]))
		}
	}
	return out, nil
}

// Localize returns the driver restricted to the points of one rank. The
// field must hold one value per point of the global mesh.
func (sd *SensitivityDriven) Localize(pointMap []int, nGlobal int) (*SensitivityDriven, error) {
	if len(sd.Field) != nGlobal {
		return nil, fmt.Errorf("%w: sensitivity has %d values for %d points",
			ErrFieldSize, len(sd.Field), nGlobal)
	}
	field := make([]r3.Vec, len(pointMap))
	for i, gp := range pointMap {
		if gp < 0 || gp >= nGlobal {
			return nil, fmt.Errorf("%w: local point %d maps to %d of %d",
				ErrFieldSize, i, gp, nGlobal)
		}
		field[i] = sd.Field[gp]
	}
	return &SensitivityDriven{Field: field, StepSize: sd.StepSize}, nil
}

// ReadSensitivity reads one "x y z" vector per line, blank lines and lines
// starting with # are skipped
func ReadSensitivity(filename string) (field []r3.Vec, err error) {
	var file *os.File
	if file, err = os.Open(filename); err != nil {
		return nil, err
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	var lineNo int
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("%s:%d: expected 3 values, have %d", filename, lineNo, len(fields))
		}
		var v [3]float64
		for i, f := range fields {
			if v[i], err = strconv.ParseFloat(f, 64); err != nil {
				return nil, fmt.Errorf("%s:%d: %w", filename, lineNo, err)
			}
		}
		field = append(field, r3.Vec{X: v[0], Y: v[1], Z: v[2]})
	}
	return field, scanner.Err()
}
