package gib

import (
	"github.com/notargets/gibmesh/surface"
)

// CutSurface fan-triangulates the committed zone with normals pointing
// from side 1 to side 0. Coupled faces are kept by the lower rank only.
func (e *Engine) CutSurface() (tris []surface.Triangle) {
	var (
		points = e.m.Points()
		faces  = e.m.Faces()
		rank   = e.s.Rank()
	)
	list, flip := e.zone.List(), e.zone.Flip()
	for i, f := range list {
		if e.fc.coupled[f] && e.fc.nbrRank[f] < rank {
			continue
		}
		verts := faces[f]
		n := len(verts)
		for k := 1; k < n-1; k++ {
			a, b, c := points[verts[0]], points[verts[k]], points[verts[k+1]]
			// Face normals point from owner to neighbour
			if !flip[i] {
				b, c = c, b
			}
			tris = append(tris, surface.Triangle{a, b, c})
		}
	}
	return
}

// DumpSurface writes the cut surface of this rank to an STL file
func (e *Engine) DumpSurface(filename string) error {
	return surface.WriteSTL(filename, e.zone.Name(), e.CutSurface())
}
