package gib

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gibmesh/mesh"
	"github.com/notargets/gibmesh/parallel"
)

// constraintPlane is the base plane of a symmetry or wedge patch
type constraintPlane struct {
	patch         int
	point, normal r3.Vec
	onPlane       []bool
}

func (cp constraintPlane) project(p r3.Vec) r3.Vec {
	return r3.Sub(p, r3.Scale(r3.Dot(r3.Sub(p, cp.point), cp.normal), cp.normal))
}

// fitConstraintPlanes fits one plane per symmetry and wedge patch from the
// area weighted base faces of every rank
func fitConstraintPlanes(m mesh.Provider, s parallel.Syncer) (planes []constraintPlane, err error) {
	var (
		areas   = m.BaseFaceAreas()
		centres = m.BaseFaceCentres()
		faces   = m.Faces()
	)
	for ip, p := range m.Patches() {
		if !p.IsConstraint() {
			continue
		}
		// Area vector, area weighted centre and area
		sums := make([]float64, 7)
		for f := p.Start; f < p.Start+p.Size; f++ {
			a := areas[f]
			mag := r3.Norm(a)
			c := r3.Scale(mag, centres[f])
			floats.Add(sums, []float64{a.X, a.Y, a.Z, c.X, c.Y, c.Z, mag})
		}
		if sums, err = s.ReduceFloats(sums, parallel.SumFloatOp); err != nil {
			return nil, err
		}
		onPlane := make([]bool, m.NPoints())
		for f := p.Start; f < p.Start+p.Size; f++ {
			for _, pt := range faces[f] {
				onPlane[pt] = true
			}
		}
		if err = s.SyncPointBool(onPlane, parallel.OrOp); err != nil {
			return nil, err
		}
		normal := r3.Vec{X: sums[0], Y: sums[1], Z: sums[2]}
		if sums[6] == 0 || r3.Norm(normal) < 1.e-12*sums[6] {
			continue
		}
		planes = append(planes, constraintPlane{
			patch:   ip,
			point:   r3.Scale(1/sums[6], r3.Vec{X: sums[3], Y: sums[4], Z: sums[5]}),
			normal:  r3.Unit(normal),
			onPlane: onPlane,
		})
	}
	return
}

// emptyDirection returns the coordinate direction normal to the empty
// patches of a 2-D mesh, or -1 when the mesh has none
func emptyDirection(m mesh.Provider, s parallel.Syncer, configured int) (int, error) {
	sums := make([]float64, 3)
	areas := m.BaseFaceAreas()
	for _, p := range m.Patches() {
		if !p.IsEmpty() {
			continue
		}
		for f := p.Start; f < p.Start+p.Size; f++ {
			floats.Add(sums, []float64{math.Abs(areas[f].X), math.Abs(areas[f].Y), math.Abs(areas[f].Z)})
		}
	}
	// All ranks join the reduction, even with a configured direction
	sums, err := s.ReduceFloats(sums, parallel.SumFloatOp)
	if err != nil {
		return -1, err
	}
	if configured >= 0 {
		return configured, nil
	}
	if floats.Max(sums) == 0 {
		return -1, nil
	}
	return floats.MaxIdx(sums), nil
}

// frontBackPairs returns the edges aligned with the empty direction
func frontBackPairs(m mesh.Provider, dir int, tol float64) (pairs [][2]int) {
	base := m.BasePoints()
	for _, e := range m.Edges() {
		d := r3.Sub(base[e[1]], base[e[0]])
		l := r3.Norm(d)
		along := math.Abs(mesh.Component(d, dir))
		if l > 0 && math.Sqrt(math.Max(0, l*l-along*along)) <= tol*l {
			pairs = append(pairs, [2]int{e[0], e[1]})
		}
	}
	return
}

// collapseEmptyDirection keeps every point at its base position along the
// empty direction and gives both points of each pair their mean in-plane
// position
func (sc *snapCorrector) collapseEmptyDirection(out []r3.Vec) {
	base := sc.m.BasePoints()
	for p := range out {
		out[p] = mesh.SetComponent(out[p], sc.emptyDir, mesh.Component(base[p], sc.emptyDir))
	}
	for _, pr := range sc.pairs {
		a, b := pr[0], pr[1]
		mid := r3.Scale(0.5, r3.Add(out[a], out[b]))
		out[a] = mesh.SetComponent(mid, sc.emptyDir, mesh.Component(base[a], sc.emptyDir))
		out[b] = mesh.SetComponent(mid, sc.emptyDir, mesh.Component(base[b], sc.emptyDir))
	}
}
