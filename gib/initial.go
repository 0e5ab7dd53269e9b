package gib

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gibmesh/InputParameters"
	"github.com/notargets/gibmesh/mesh"
	"github.com/notargets/gibmesh/motion"
	"github.com/notargets/gibmesh/parallel"
	"github.com/notargets/gibmesh/surface"
)

// cutByRegion returns the faces separating inside cells from outside
// cells. Inside cells are on side 1.
func cutByRegion(m mesh.Provider, s parallel.Syncer, inside []bool) (list []int, flip []bool, err error) {
	var (
		fc    = classifyFaces(m)
		owner = m.Owner()
		nbr   = m.Neighbour()
		cut   = make([]bool, m.NFaces())
	)
	for f := 0; f < fc.nInternal; f++ {
		cut[f] = inside[owner[f]] != inside[nbr[f]]
	}
	for f, c := range fc.coupled {
		if c {
			cut[f] = inside[owner[f]]
		}
	}
	if err = s.SyncFaceBool(cut, parallel.XorOp); err != nil {
		return
	}
	for f, in := range cut {
		if in && fc.interior(f) {
			list = append(list, f)
			flip = append(flip, inside[owner[f]])
		}
	}
	return
}

// SurfaceCut builds a zone from the base cell centres enclosed by a surface
func SurfaceCut(m mesh.Provider, s parallel.Syncer, surf *surface.Surface) ([]int, []bool, error) {
	centres := m.BaseCellCentres()
	inside := make([]bool, m.NCells())
	for c, cc := range centres {
		inside[c] = surf.Inside(cc)
	}
	return cutByRegion(m, s, inside)
}

// PlaneCut builds a zone from the base cell centres behind a plane
func PlaneCut(m mesh.Provider, s parallel.Syncer, point, normal r3.Vec) ([]int, []bool, error) {
	if r3.Norm(normal) == 0 {
		return nil, nil, fmt.Errorf("%w: plane normal is zero", ErrConfig)
	}
	centres := m.BaseCellCentres()
	inside := make([]bool, m.NCells())
	for c, cc := range centres {
		inside[c] = r3.Dot(r3.Sub(cc, point), normal) < 0
	}
	return cutByRegion(m, s, inside)
}

// PatchZone builds a zone from the faces of named boundary patches
func PatchZone(m mesh.Provider, names []string) (list []int, flip []bool, err error) {
	patches := m.Patches()
	for _, name := range names {
		ip := patchIndex(patches, name)
		if ip < 0 || patches[ip].IsCoupled() {
			return nil, nil, fmt.Errorf("%w: no boundary patch named %q", ErrConfig, name)
		}
		for f := patches[ip].Start; f < patches[ip].Start+patches[ip].Size; f++ {
			list = append(list, f)
			flip = append(flip, false)
		}
	}
	if len(names) > 1 {
		list, flip = sortedZone(list, flip)
	}
	return
}

func patchIndex(patches []mesh.Patch, name string) int {
	for ip, p := range patches {
		if p.Name == name {
			return ip
		}
	}
	return -1
}

// sortedZone orders a zone by face and drops repeated faces
func sortedZone(list []int, flip []bool) ([]int, []bool) {
	idx := make([]int, len(list))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return list[idx[a]] < list[idx[b]] })
	var (
		l2 = make([]int, 0, len(list))
		f2 = make([]bool, 0, len(flip))
	)
	for _, i := range idx {
		if n := len(l2); n > 0 && l2[n-1] == list[i] {
			continue
		}
		l2 = append(l2, list[i])
		f2 = append(f2, flip[i])
	}
	return l2, f2
}

// InitialZone builds the starting zone named in the input parameters
func InitialZone(m mesh.Provider, s parallel.Syncer, izp InputParameters.InitialZoneParameters,
	port motion.Port) ([]int, []bool, error) {
	switch strings.ToLower(izp.Type) {
	case "surface":
		src, ok := port.(motion.SurfaceSource)
		if !ok || src.Surface() == nil {
			return nil, nil, fmt.Errorf("%w: a surface initial zone needs a motion with a surface", ErrConfig)
		}
		return SurfaceCut(m, s, src.Surface())
	case "plane":
		return PlaneCut(m, s, InputParameters.Vec(izp.Point), InputParameters.Vec(izp.Normal))
	case "patches":
		return PatchZone(m, izp.Patches)
	case "none", "empty":
		return nil, nil, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown initial zone type %q", ErrConfig, izp.Type)
}
