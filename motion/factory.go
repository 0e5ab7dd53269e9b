package motion

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gibmesh/InputParameters"
	"github.com/notargets/gibmesh/surface"
)

const (
	sphereLatitudes  = 16
	sphereLongitudes = 32
)

// resolvePath expands ~ and makes relative paths relative to baseDir
func resolvePath(name, baseDir string) (string, error) {
	name, err := homedir.Expand(name)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(name) && baseDir != "" {
		name = filepath.Join(baseDir, name)
	}
	return name, nil
}

// LoadSurface reads the motion surface from a file or builds a shape
func LoadSurface(mp InputParameters.MotionParameters, baseDir string) (*surface.Surface, error) {
	switch {
	case mp.Surface != "":
		fileName, err := resolvePath(mp.Surface, baseDir)
		if err != nil {
			return nil, err
		}
		return surface.ReadSTL(fileName)
	case len(mp.Box) == 6:
		return surface.NewBox("box",
			r3.Vec{X: mp.Box[0], Y: mp.Box[1], Z: mp.Box[2]},
			r3.Vec{X: mp.Box[3], Y: mp.Box[4], Z: mp.Box[5]})
	case len(mp.Sphere) == 4:
		return surface.NewSphere("sphere",
			r3.Vec{X: mp.Sphere[0], Y: mp.Sphere[1], Z: mp.Sphere[2]}, mp.Sphere[3],
			sphereLatitudes, sphereLongitudes)
	}
	return nil, fmt.Errorf("%w: motion type %q needs a Surface, Box or Sphere", ErrConfig, mp.Type)
}

// NewPort builds the motion driver named in the parameters. pointMap maps
// local to global point numbers for per point fields, nil for a serial mesh.
// nGlobal is the point count of the global mesh.
func NewPort(mp InputParameters.MotionParameters, baseDir string, pointMap []int, nGlobal int) (Port, error) {
	switch strings.ToLower(mp.Type) {
	case "rigid":
		s, err := LoadSurface(mp, baseDir)
		if err != nil {
			return nil, err
		}
		return NewRigidTransform(s, InputParameters.Vec(mp.Centre),
			InputParameters.Vec(mp.Velocity), InputParameters.Vec(mp.Omega)), nil
	case "frame":
		s, err := LoadSurface(mp, baseDir)
		if err != nil {
			return nil, err
		}
		axis, frame := InputParameters.Vec(mp.Axis), InputParameters.Vec(mp.Frame)
		if mp.Axis == nil {
			axis = r3.Vec{Z: 1}
		}
		if mp.Frame == nil {
			frame = r3.Vec{X: 1}
		}
		return NewCoordinateFrame(s, InputParameters.Vec(mp.Origin), axis, frame,
			InputParameters.Vec(mp.Velocity), InputParameters.Vec(mp.Omega))
	case "sensitivity":
		if mp.SensitivityFile == "" {
			return nil, fmt.Errorf("%w: sensitivity motion needs a SensitivityFile", ErrConfig)
		}
		fileName, err := resolvePath(mp.SensitivityFile, baseDir)
		if err != nil {
			return nil, err
		}
		field, err := ReadSensitivity(fileName)
		if err != nil {
			return nil, err
		}
		sd := NewSensitivityDriven(field, mp.StepSize)
		if pointMap == nil {
			if len(field) != nGlobal {
				return nil, fmt.Errorf("%w: sensitivity has %d values for %d points",
					ErrFieldSize, len(field), nGlobal)
			}
			return sd, nil
		}
		return sd.Localize(pointMap, nGlobal)
	case "external":
		return NewExternalSolver(mp.Function)
	}
	return nil, fmt.Errorf("%w: unknown motion type %q", ErrConfig, mp.Type)
}
