package surface

import (
	"errors"
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle is a surface facet, counter-clockwise seen from outside
type Triangle [3]r3.Vec

func (t Triangle) Centroid() r3.Vec {
	return r3.Scale(1./3., r3.Add(r3.Add(t[0], t[1]), t[2]))
}

// AreaVector is the outward normal scaled by the triangle area
func (t Triangle) AreaVector() r3.Vec {
	return r3.Scale(0.5, r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0])))
}

// Feature is the part of a triangle holding the closest point
type Feature int

const (
	FeatureV0 Feature = iota
	FeatureV1
	FeatureV2
	FeatureE01
	FeatureE12
	FeatureE20
	FeatureFace
)

// Hit is the closest point of a surface to a query point, stored as
// barycentric weights so it can be re-evaluated after the surface moves
type Hit struct {
	Triangle int
	Weights  [3]float64
	Point    r3.Vec
	Dist2    float64
	Feature  Feature
}

// Below this many triangles a linear scan beats the tree
const bruteForceLimit = 32

// Surface is a closed triangulated surface with nearest point queries
type Surface struct {
	name    string
	tris    []Triangle
	normals []r3.Vec // Unit face normals

	// Pseudo normals for signed distance at edges and vertices
	vertIdx [][3]int
	vertN   []r3.Vec
	edgeN   map[[2]int]r3.Vec

	facets facetList
	tree   *kdtree.Tree
	rmax   float64
	bounds r3.Box
}

// New builds a surface from triangles, dropping degenerate ones
func New(name string, tris []Triangle) (*Surface, error) {
	var (
		kept    = make([]Triangle, 0, len(tris))
		dropped int
	)
	for _, t := range tris {
		a := r3.Norm(t.AreaVector())
		edge := math.Max(r3.Norm(r3.Sub(t[1], t[0])), r3.Norm(r3.Sub(t[2], t[0])))
		if a <= 1e-12*edge*edge || math.IsNaN(a) {
			dropped++
			continue
		}
		kept = append(kept, t)
	}
	if dropped > 0 {
		log.Printf("surface %s: dropped %d degenerate triangles", name, dropped)
	}
	if len(kept) == 0 {
		return nil, errors.New("surface has no valid triangles")
	}
	return newSurface(name, kept), nil
}

func newSurface(name string, tris []Triangle) *Surface {
	s := &Surface{
		name:    name,
		tris:    tris,
		normals: make([]r3.Vec, len(tris)),
		vertIdx: make([][3]int, len(tris)),
		edgeN:   make(map[[2]int]r3.Vec),
		facets:  make(facetList, len(tris)),
	}
	cache := make(map[r3.Vec]int)
	s.bounds = r3.Box{Min: tris[0][0], Max: tris[0][0]}
	for i, t := range tris {
		norm := r3.Unit(t.AreaVector())
		s.normals[i] = norm
		c := t.Centroid()
		var r float64
		for j, v := range t {
			vi, ok := cache[v]
			if !ok {
				vi = len(s.vertN)
				cache[v] = vi
				s.vertN = append(s.vertN, r3.Vec{})
			}
			s.vertIdx[i][j] = vi
			// Vertex pseudo normals are weighted by the opening angle
			s1, s2 := r3.Sub(t[(j+1)%3], v), r3.Sub(t[(j+2)%3], v)
			alpha := math.Acos(math.Max(-1, math.Min(1, r3.Cos(s1, s2))))
			s.vertN[vi] = r3.Add(s.vertN[vi], r3.Scale(alpha, norm))
			r = math.Max(r, r3.Norm(r3.Sub(v, c)))
			s.bounds.Min = r3.Vec{X: math.Min(s.bounds.Min.X, v.X), Y: math.Min(s.bounds.Min.Y, v.Y), Z: math.Min(s.bounds.Min.Z, v.Z)}
			s.bounds.Max = r3.Vec{X: math.Max(s.bounds.Max.X, v.X), Y: math.Max(s.bounds.Max.Y, v.Y), Z: math.Max(s.bounds.Max.Z, v.Z)}
		}
		for j := 0; j < 3; j++ {
			s.edgeN[edgeKey(s.vertIdx[i][j], s.vertIdx[i][(j+1)%3])] = r3.Add(
				s.edgeN[edgeKey(s.vertIdx[i][j], s.vertIdx[i][(j+1)%3])], norm)
		}
		s.facets[i] = facet{C: c, index: i, surf: s}
		s.rmax = math.Max(s.rmax, r)
	}
	if len(tris) > bruteForceLimit {
		// Partitioning reorders a copy, facets keep their triangle index
		s.tree = kdtree.New(append(facetList(nil), s.facets...), false)
	}
	return s
}

func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

func (s *Surface) Name() string          { return s.name }
func (s *Surface) Triangles() []Triangle { return s.tris }
func (s *Surface) Len() int              { return len(s.tris) }
func (s *Surface) Bounds() r3.Box        { return s.bounds }

// Transformed returns the surface mapped through f. Triangle indices are
// preserved so hits taken on s stay valid on the result.
func (s *Surface) Transformed(f func(r3.Vec) r3.Vec) *Surface {
	tris := make([]Triangle, len(s.tris))
	for i, t := range s.tris {
		tris[i] = Triangle{f(t[0]), f(t[1]), f(t[2])}
	}
	return newSurface(s.name, tris)
}

// Nearest returns the closest surface point to p
func (s *Surface) Nearest(p r3.Vec) Hit {
	var best Hit
	if s.tree == nil {
		best.Dist2 = math.Inf(1)
		for i := range s.tris {
			if h := s.hitOn(i, p); h.Dist2 < best.Dist2 {
				best = h
			}
		}
		return best
	}
	c, _ := s.tree.Nearest(&probe{P: p, pad: s.rmax})
	return s.hitOn(c.(*facet).index, p)
}

// FindNearest queries every point of the list
func (s *Surface) FindNearest(points []r3.Vec) []Hit {
	hits := make([]Hit, len(points))
	for i, p := range points {
		hits[i] = s.Nearest(p)
	}
	return hits
}

func (s *Surface) hitOn(i int, p r3.Vec) Hit {
	t := s.tris[i]
	q, w, feat := closestOnTriangle(p, t[0], t[1], t[2])
	return Hit{Triangle: i, Weights: w, Point: q, Dist2: r3.Norm2(r3.Sub(p, q)), Feature: feat}
}

// Evaluate returns the point of the hit triangle with the hit weights
func (s *Surface) Evaluate(h Hit) (r3.Vec, error) {
	if h.Triangle < 0 || h.Triangle >= len(s.tris) {
		return r3.Vec{}, fmt.Errorf("hit triangle %d outside surface of %d triangles", h.Triangle, len(s.tris))
	}
	t := s.tris[h.Triangle]
	return r3.Add(r3.Add(r3.Scale(h.Weights[0], t[0]), r3.Scale(h.Weights[1], t[1])),
		r3.Scale(h.Weights[2], t[2])), nil
}

// Side returns the signed distance of p, negative inside the surface
func (s *Surface) Side(p r3.Vec) float64 {
	h := s.Nearest(p)
	var (
		n  r3.Vec
		vi = s.vertIdx[h.Triangle]
	)
	switch h.Feature {
	case FeatureV0, FeatureV1, FeatureV2:
		n = s.vertN[vi[h.Feature]]
	case FeatureE01:
		n = s.edgeN[edgeKey(vi[0], vi[1])]
	case FeatureE12:
		n = s.edgeN[edgeKey(vi[1], vi[2])]
	case FeatureE20:
		n = s.edgeN[edgeKey(vi[2], vi[0])]
	default:
		n = s.normals[h.Triangle]
	}
	return math.Copysign(math.Sqrt(h.Dist2), r3.Dot(n, r3.Sub(p, h.Point)))
}

// Inside reports whether p lies strictly inside the surface
func (s *Surface) Inside(p r3.Vec) bool { return s.Side(p) < 0 }

// closestOnTriangle returns the closest point of triangle abc to p with its
// barycentric weights
func closestOnTriangle(p, a, b, c r3.Vec) (r3.Vec, [3]float64, Feature) {
	ab, ac, ap := r3.Sub(b, a), r3.Sub(c, a), r3.Sub(p, a)
	d1, d2 := r3.Dot(ab, ap), r3.Dot(ac, ap)
	if d1 <= 0 && d2 <= 0 {
		return a, [3]float64{1, 0, 0}, FeatureV0
	}
	bp := r3.Sub(p, b)
	d3, d4 := r3.Dot(ab, bp), r3.Dot(ac, bp)
	if d3 >= 0 && d4 <= d3 {
		return b, [3]float64{0, 1, 0}, FeatureV1
	}
	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return r3.Add(a, r3.Scale(v, ab)), [3]float64{1 - v, v, 0}, FeatureE01
	}
	cp := r3.Sub(p, c)
	d5, d6 := r3.Dot(ab, cp), r3.Dot(ac, cp)
	if d6 >= 0 && d5 <= d6 {
		return c, [3]float64{0, 0, 1}, FeatureV2
	}
	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return r3.Add(a, r3.Scale(w, ac)), [3]float64{1 - w, 0, w}, FeatureE20
	}
	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return r3.Add(b, r3.Scale(w, r3.Sub(c, b))), [3]float64{0, 1 - w, w}, FeatureE12
	}
	denom := 1 / (va + vb + vc)
	v, w := vb*denom, vc*denom
	return r3.Add(a, r3.Add(r3.Scale(v, ab), r3.Scale(w, ac))), [3]float64{1 - v - w, v, w}, FeatureFace
}
