package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

type geometry struct {
	faceAreas   []r3.Vec // Area weighted normals
	faceCentres []r3.Vec
	cellCentres []r3.Vec
	cellVolumes []float64
}

func (g geometry) clone() geometry {
	return geometry{
		faceAreas:   append([]r3.Vec(nil), g.faceAreas...),
		faceCentres: append([]r3.Vec(nil), g.faceCentres...),
		cellCentres: append([]r3.Vec(nil), g.cellCentres...),
		cellVolumes: append([]float64(nil), g.cellVolumes...),
	}
}

const vSmall = 1.0e-300

// FaceGeometry returns the area vector and centroid of a polygon.
// The polygon is decomposed into triangles about the point average so
// warped faces are handled consistently.
func FaceGeometry(points []r3.Vec, face []int) (area, centre r3.Vec) {
	n := len(face)
	if n == 3 {
		a, b, c := points[face[0]], points[face[1]], points[face[2]]
		centre = r3.Scale(1./3., r3.Add(r3.Add(a, b), c))
		area = r3.Scale(0.5, r3.Cross(r3.Sub(b, a), r3.Sub(c, a)))
		return
	}
	var est r3.Vec
	for _, p := range face {
		est = r3.Add(est, points[p])
	}
	est = r3.Scale(1./float64(n), est)

	var (
		sumN  r3.Vec
		sumA  float64
		sumAc r3.Vec
	)
	for i := 0; i < n; i++ {
		pi, pNext := points[face[i]], points[face[(i+1)%n]]
		c := r3.Add(r3.Add(pi, pNext), est)
		nrm := r3.Cross(r3.Sub(pNext, pi), r3.Sub(est, pi))
		a := r3.Norm(nrm)
		sumN = r3.Add(sumN, nrm)
		sumA += a
		sumAc = r3.Add(sumAc, r3.Scale(a, c))
	}
	if sumA < vSmall {
		return r3.Vec{}, est
	}
	centre = r3.Scale(1./(3.*sumA), sumAc)
	area = r3.Scale(0.5, sumN)
	return
}

// computeGeometry evaluates face and cell geometry for a point set
func (m *PolyMesh) computeGeometry(points []r3.Vec) (g geometry) {
	nFaces := len(m.faces)
	g.faceAreas = make([]r3.Vec, nFaces)
	g.faceCentres = make([]r3.Vec, nFaces)
	for f, verts := range m.faces {
		g.faceAreas[f], g.faceCentres[f] = FaceGeometry(points, verts)
	}

	g.cellCentres = make([]r3.Vec, m.nCells)
	g.cellVolumes = make([]float64, m.nCells)
	for c, cf := range m.cells {
		var est r3.Vec
		for _, f := range cf {
			est = r3.Add(est, g.faceCentres[f])
		}
		if len(cf) > 0 {
			est = r3.Scale(1./float64(len(cf)), est)
		}
		var (
			vol  float64
			sumC r3.Vec
		)
		for _, f := range cf {
			// Pyramid from the face to the centre estimate
			pyr3Vol := r3.Dot(g.faceAreas[f], r3.Sub(g.faceCentres[f], est))
			if m.owner[f] != c {
				pyr3Vol = -pyr3Vol
			}
			pc := r3.Add(r3.Scale(0.75, g.faceCentres[f]), r3.Scale(0.25, est))
			vol += pyr3Vol
			sumC = r3.Add(sumC, r3.Scale(pyr3Vol, pc))
		}
		g.cellVolumes[c] = vol / 3.
		if math.Abs(vol) > vSmall {
			g.cellCentres[c] = r3.Scale(1./vol, sumC)
		} else {
			g.cellCentres[c] = est
		}
	}
	return
}

// BoundingBox returns the axis aligned box enclosing the points
func BoundingBox(points []r3.Vec) r3.Box {
	if len(points) == 0 {
		return r3.Box{}
	}
	b := r3.Box{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Min = r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
		b.Max = r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
	}
	return b
}

// Component returns coordinate d of v
func Component(v r3.Vec, d int) float64 {
	switch d {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// SetComponent returns v with coordinate d replaced by val
func SetComponent(v r3.Vec, d int, val float64) r3.Vec {
	switch d {
	case 0:
		v.X = val
	case 1:
		v.Y = val
	default:
		v.Z = val
	}
	return v
}
