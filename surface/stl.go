package surface

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hschendel/stl"
	"gonum.org/v1/gonum/spatial/r3"
)

// ReadSTL loads an ASCII or binary STL file
func ReadSTL(filename string) (*Surface, error) {
	solid, err := stl.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	tris := make([]Triangle, len(solid.Triangles))
	for i, t := range solid.Triangles {
		for j, v := range t.Vertices {
			tris[i][j] = r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
		}
	}
	name := solid.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	return New(name, tris)
}

func toVec3(v r3.Vec) stl.Vec3 {
	return stl.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}

// WriteSTL writes triangles as an ASCII STL solid
func WriteSTL(filename, name string, tris []Triangle) error {
	solid := &stl.Solid{Name: name, IsAscii: true}
	solid.Triangles = make([]stl.Triangle, len(tris))
	for i, t := range tris {
		solid.Triangles[i] = stl.Triangle{
			Normal:   toVec3(r3.Unit(t.AreaVector())),
			Vertices: [3]stl.Vec3{toVec3(t[0]), toVec3(t[1]), toVec3(t[2])},
		}
	}
	if err := solid.WriteFile(filename); err != nil {
		return fmt.Errorf("writing %s: %w", filename, err)
	}
	return nil
}

// WriteSTL writes the current surface triangles
func (s *Surface) WriteSTL(filename string) error {
	return WriteSTL(filename, s.name, s.tris)
}
