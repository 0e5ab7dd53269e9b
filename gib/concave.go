package gib

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gibmesh/mesh"
	"github.com/notargets/gibmesh/parallel"
)

// findConcavePoints marks the points of reflex boundary edges of the base
// mesh. An edge between two outer faces is reflex when the centre of each
// face lies outside the plane of the other. Edges whose two boundary
// faces sit on different ranks are not detected.
func findConcavePoints(m mesh.Provider, s parallel.Syncer, fc faceClasses, tol float64) ([]bool, error) {
	var (
		base    = m.BasePoints()
		edges   = m.Edges()
		areas   = m.BaseFaceAreas()
		centres = m.BaseFaceCentres()
		concave = make([]bool, m.NPoints())
	)
	for e, faces := range m.EdgeFaces() {
		var bf []int
		for _, f := range faces {
			if fc.outer[f] {
				bf = append(bf, f)
			}
		}
		if len(bf) != 2 {
			continue
		}
		var (
			f1, f2  = bf[0], bf[1]
			edgeLen = r3.Norm(r3.Sub(base[edges[e][1]], base[edges[e][0]]))
			d1      = r3.Dot(r3.Unit(areas[f1]), r3.Sub(centres[f2], centres[f1]))
			d2      = r3.Dot(r3.Unit(areas[f2]), r3.Sub(centres[f1], centres[f2]))
		)
		if math.Max(d1, d2) > tol*edgeLen {
			concave[edges[e][0]] = true
			concave[edges[e][1]] = true
		}
	}
	if err := s.SyncPointBool(concave, parallel.OrOp); err != nil {
		return nil, err
	}
	return concave, nil
}

// clampConcave returns concave points to their start of step position
// when their displacement pushes outward through any adjacent outer face.
// The clamp mask is OR-synced and shared by 2-D point pairs.
func (sc *snapCorrector) clampConcave(out, start []r3.Vec) (nClamped int, err error) {
	var (
		clamp = make([]bool, len(out))
		areas = sc.m.BaseFaceAreas()
	)
	for p, cc := range sc.concave {
		if !cc {
			continue
		}
		d := r3.Sub(out[p], start[p])
		for _, f := range sc.m.PointFaces()[p] {
			if sc.fc.outer[f] && r3.Dot(d, areas[f]) > 0 {
				clamp[p] = true
				break
			}
		}
	}
	if err = sc.s.SyncPointBool(clamp, parallel.OrOp); err != nil {
		return
	}
	for _, pr := range sc.pairs {
		c := clamp[pr[0]] || clamp[pr[1]]
		clamp[pr[0]], clamp[pr[1]] = c, c
	}
	for p, c := range clamp {
		if c {
			out[p] = start[p]
			nClamped++
		}
	}
	return
}
