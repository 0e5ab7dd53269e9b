package surface

import (
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// facet is a triangle stored in the kd-tree by its centroid
type facet struct {
	C     r3.Vec // Centroid
	index int
	surf  *Surface
}

func component(v r3.Vec, d kdtree.Dim) float64 {
	switch d {
	case 0:
		return v.X
	case 1:
		return v.Y
	case 2:
		return v.Z
	}
	panic("unreachable")
}

func (f *facet) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return component(f.C, d) - component(c.(*facet).C, d)
}

func (f *facet) Dims() int { return 3 }

func (f *facet) Distance(c kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(f.C, c.(*facet).C))
}

// probe is a nearest triangle query. Splitting planes pass through
// centroids, so plane distances are shrunk by the largest centroid to
// vertex radius to keep the search exact.
type probe struct {
	P   r3.Vec
	pad float64
}

func (q *probe) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	diff := component(q.P, d) - component(c.(*facet).C, d)
	switch {
	case diff > q.pad:
		return diff - q.pad
	case diff < -q.pad:
		return diff + q.pad
	}
	return 0
}

func (q *probe) Dims() int { return 3 }

// Distance is the squared distance from the probe to the facet triangle
func (q *probe) Distance(c kdtree.Comparable) float64 {
	f := c.(*facet)
	return f.surf.hitOn(f.index, q.P).Dist2
}

type facetList []facet

// Index returns the ith element of the list of points.
func (fl facetList) Index(i int) kdtree.Comparable { return &fl[i] }

// Len returns the length of the list.
func (fl facetList) Len() int { return len(fl) }

// Pivot partitions the list based on the dimension specified.
func (fl facetList) Pivot(d kdtree.Dim) int {
	p := kdPlane{dim: d, facets: fl}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

// Slice returns a slice of the list using zero-based half
// open indexing equivalent to built-in slice indexing.
func (fl facetList) Slice(start, end int) kdtree.Interface { return fl[start:end] }

type kdPlane struct {
	dim    kdtree.Dim
	facets facetList
}

func (p kdPlane) Less(i, j int) bool {
	return component(p.facets[i].C, p.dim) < component(p.facets[j].C, p.dim)
}
func (p kdPlane) Swap(i, j int) {
	p.facets[i], p.facets[j] = p.facets[j], p.facets[i]
}
func (p kdPlane) Len() int {
	return len(p.facets)
}
func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.facets = p.facets[start:end]
	return p
}
