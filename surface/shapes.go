package surface

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// NewBox returns the closed surface of an axis aligned box
func NewBox(name string, min, max r3.Vec) (*Surface, error) {
	corner := func(i, j, k int) r3.Vec {
		return r3.Vec{
			X: min.X + float64(i)*(max.X-min.X),
			Y: min.Y + float64(j)*(max.Y-min.Y),
			Z: min.Z + float64(k)*(max.Z-min.Z),
		}
	}
	// Quads counter-clockwise seen from outside
	quads := [6][4][3]int{
		{{0, 0, 0}, {0, 1, 0}, {1, 1, 0}, {1, 0, 0}}, // z-
		{{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}}, // z+
		{{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}}, // y-
		{{0, 1, 0}, {0, 1, 1}, {1, 1, 1}, {1, 1, 0}}, // y+
		{{0, 0, 0}, {0, 0, 1}, {0, 1, 1}, {0, 1, 0}}, // x-
		{{1, 0, 0}, {1, 1, 0}, {1, 1, 1}, {1, 0, 1}}, // x+
	}
	var tris []Triangle
	for _, q := range quads {
		var v [4]r3.Vec
		for i, ijk := range q {
			v[i] = corner(ijk[0], ijk[1], ijk[2])
		}
		tris = append(tris, Triangle{v[0], v[1], v[2]}, Triangle{v[0], v[2], v[3]})
	}
	return New(name, tris)
}

// NewSphere returns a latitude/longitude tessellated sphere
func NewSphere(name string, centre r3.Vec, radius float64, nLat, nLon int) (*Surface, error) {
	if nLat < 2 || nLon < 3 || radius <= 0 {
		return nil, fmt.Errorf("invalid sphere tessellation %dx%d radius %g", nLat, nLon, radius)
	}
	point := func(i, j int) r3.Vec {
		switch i {
		case 0:
			return r3.Add(centre, r3.Vec{Z: radius})
		case nLat:
			return r3.Add(centre, r3.Vec{Z: -radius})
		}
		theta := math.Pi * float64(i) / float64(nLat)
		phi := 2 * math.Pi * float64(j%nLon) / float64(nLon)
		return r3.Add(centre, r3.Scale(radius, r3.Vec{
			X: math.Sin(theta) * math.Cos(phi),
			Y: math.Sin(theta) * math.Sin(phi),
			Z: math.Cos(theta),
		}))
	}
	var tris []Triangle
	for i := 0; i < nLat; i++ {
		for j := 0; j < nLon; j++ {
			a, b, c, d := point(i, j), point(i+1, j), point(i+1, j+1), point(i, j+1)
			if i > 0 {
				tris = append(tris, Triangle{a, c, d})
			}
			if i < nLat-1 {
				tris = append(tris, Triangle{a, b, c})
			}
		}
	}
	return New(name, tris)
}
