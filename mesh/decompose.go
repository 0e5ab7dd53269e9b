package mesh

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gibmesh/parallel"
)

// LocalMesh is one rank's piece of a decomposed mesh
type LocalMesh struct {
	*PolyMesh
	Rank, NRanks int

	CellMap  []int // Local to global cell
	PointMap []int // Local to global point
	FaceMap  []int // Local to global face
	// FaceFlipped is true where the local face is the reverse of the global one
	FaceFlipped []bool

	// Coupled entities per neighbour rank, ordered by global index
	ProcFaces    map[int][]int
	SharedPoints map[int][]int

	globalFace map[int]int
}

// Topology returns the rank's sharing tables for a parallel.Comm
func (lm *LocalMesh) Topology() parallel.Topology {
	return parallel.Topology{
		Rank:         lm.Rank,
		NRanks:       lm.NRanks,
		ProcFaces:    lm.ProcFaces,
		SharedPoints: lm.SharedPoints,
	}
}

// LocalFace returns the local index of a global face, or -1
func (lm *LocalMesh) LocalFace(global int) int {
	if f, ok := lm.globalFace[global]; ok {
		return f
	}
	return -1
}

// Localize maps a global face zone and its flip map onto this rank
func (lm *LocalMesh) Localize(globalList []int, globalFlip []bool) (list []int, flip []bool) {
	for i, gf := range globalList {
		f := lm.LocalFace(gf)
		if f < 0 {
			continue
		}
		list = append(list, f)
		flip = append(flip, globalFlip[i] != lm.FaceFlipped[f])
	}
	sortZone(list, flip)
	return
}

// Globalize maps zones held by every rank back onto the global face
// numbering. Each coupled face is reported once, oriented as the global face.
func Globalize(locals []*LocalMesh, lists [][]int, flips [][]bool) (list []int, flip []bool, err error) {
	seen := make(map[int]bool)
	for r, lm := range locals {
		for i, f := range lists[r] {
			gf := lm.FaceMap[f]
			gflip := flips[r][i] != lm.FaceFlipped[f]
			if prev, ok := seen[gf]; ok {
				if prev != gflip {
					return nil, nil, fmt.Errorf("face %d has inconsistent flip across ranks", gf)
				}
				continue
			}
			seen[gf] = gflip
			list = append(list, gf)
			flip = append(flip, gflip)
		}
	}
	sortZone(list, flip)
	return
}

// GlobalizePoints gathers the local point fields of every rank into one
// global field
func GlobalizePoints(locals []*LocalMesh, fields [][]r3.Vec, nGlobal int) []r3.Vec {
	out := make([]r3.Vec, nGlobal)
	for r, lm := range locals {
		for p, gp := range lm.PointMap {
			out[gp] = fields[r][p]
		}
	}
	return out
}

func sortZone(list []int, flip []bool) {
	idx := make([]int, len(list))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return list[idx[a]] < list[idx[b]] })
	l2 := make([]int, len(list))
	f2 := make([]bool, len(flip))
	for i, j := range idx {
		l2[i], f2[i] = list[j], flip[j]
	}
	copy(list, l2)
	copy(flip, f2)
}

// reverseFace keeps the first point and reverses the circulation
func reverseFace(face []int) []int {
	n := len(face)
	out := make([]int, n)
	out[0] = face[0]
	for i := 1; i < n; i++ {
		out[i] = face[n-i]
	}
	return out
}

// Decompose splits a mesh into nRanks local meshes along cellRank. Faces
// between ranks become processor patches, owned on each side by the local
// cell. Physical patches are kept on every rank, possibly empty.
func Decompose(global *PolyMesh, cellRank []int, nRanks int) ([]*LocalMesh, error) {
	if len(cellRank) != global.NCells() {
		return nil, fmt.Errorf("have %d cell ranks for %d cells", len(cellRank), global.NCells())
	}
	for c, r := range cellRank {
		if r < 0 || r >= nRanks {
			return nil, fmt.Errorf("cell %d assigned to rank %d of %d", c, r, nRanks)
		}
	}
	var (
		owner      = global.Owner()
		neighbour  = global.Neighbour()
		nInternal  = global.NInternalFaces()
		pointRanks = make([][]int, global.NPoints())
		locals     = make([]*LocalMesh, nRanks)
		gPoints    = global.BasePoints()
	)
	for r := 0; r < nRanks; r++ {
		lm := &LocalMesh{
			Rank:         r,
			NRanks:       nRanks,
			ProcFaces:    make(map[int][]int),
			SharedPoints: make(map[int][]int),
			globalFace:   make(map[int]int),
		}
		localCell := make(map[int]int)
		for c, cr := range cellRank {
			if cr == r {
				localCell[c] = len(lm.CellMap)
				lm.CellMap = append(lm.CellMap, c)
			}
		}

		type localFace struct {
			global  int
			verts   []int
			owner   int
			nbr     int
			flipped bool
		}
		var (
			internal []localFace
			byPatch  = make([][]localFace, len(global.Patches()))
			procs    = make(map[int][]localFace)
		)
		for f := 0; f < global.NFaces(); f++ {
			oc, ownLocal := localCell[owner[f]]
			if f >= nInternal {
				if ownLocal {
					ip := global.WhichPatch(f)
					byPatch[ip] = append(byPatch[ip], localFace{global: f, verts: global.Faces()[f], owner: oc, nbr: -1})
				}
				continue
			}
			nc, nbrLocal := localCell[neighbour[f]]
			switch {
			case ownLocal && nbrLocal:
				internal = append(internal, localFace{global: f, verts: global.Faces()[f], owner: oc, nbr: nc})
			case ownLocal:
				nr := cellRank[neighbour[f]]
				procs[nr] = append(procs[nr], localFace{global: f, verts: global.Faces()[f], owner: oc, nbr: -1})
			case nbrLocal:
				nr := cellRank[owner[f]]
				procs[nr] = append(procs[nr], localFace{global: f, verts: reverseFace(global.Faces()[f]),
					owner: nc, nbr: -1, flipped: true})
			}
		}

		// Points in ascending global order
		used := make(map[int]bool)
		collect := func(lfs []localFace) {
			for _, lf := range lfs {
				for _, p := range lf.verts {
					used[p] = true
				}
			}
		}
		collect(internal)
		for _, lfs := range byPatch {
			collect(lfs)
		}
		for _, lfs := range procs {
			collect(lfs)
		}
		for p := range used {
			lm.PointMap = append(lm.PointMap, p)
		}
		sort.Ints(lm.PointMap)
		localPoint := make(map[int]int, len(lm.PointMap))
		points := make([]r3.Vec, len(lm.PointMap))
		for lp, gp := range lm.PointMap {
			localPoint[gp] = lp
			points[lp] = gPoints[gp]
			pointRanks[gp] = append(pointRanks[gp], r)
		}

		var (
			faces      [][]int
			lOwner     []int
			lNeighbour []int
			patches    []Patch
		)
		add := func(lf localFace) {
			verts := make([]int, len(lf.verts))
			for i, p := range lf.verts {
				verts[i] = localPoint[p]
			}
			lm.globalFace[lf.global] = len(faces)
			faces = append(faces, verts)
			lOwner = append(lOwner, lf.owner)
			lm.FaceMap = append(lm.FaceMap, lf.global)
			lm.FaceFlipped = append(lm.FaceFlipped, lf.flipped)
		}
		for _, lf := range internal {
			add(lf)
			lNeighbour = append(lNeighbour, lf.nbr)
		}
		for ip, gp := range global.Patches() {
			start := len(faces)
			for _, lf := range byPatch[ip] {
				add(lf)
			}
			patches = append(patches, Patch{Name: gp.Name, Type: gp.Type, Start: start, Size: len(faces) - start})
		}
		nbrRanks := make([]int, 0, len(procs))
		for nr := range procs {
			nbrRanks = append(nbrRanks, nr)
		}
		sort.Ints(nbrRanks)
		for _, nr := range nbrRanks {
			lfs := procs[nr]
			sort.Slice(lfs, func(a, b int) bool { return lfs[a].global < lfs[b].global })
			start := len(faces)
			for _, lf := range lfs {
				lm.ProcFaces[nr] = append(lm.ProcFaces[nr], len(faces))
				add(lf)
			}
			patches = append(patches, Patch{
				Name:          fmt.Sprintf("procBoundary%dto%d", r, nr),
				Type:          PatchProcessor,
				Start:         start,
				Size:          len(faces) - start,
				NeighbourRank: nr,
			})
		}
		pm, err := NewPolyMesh(points, faces, lOwner, lNeighbour, patches)
		if err != nil {
			return nil, fmt.Errorf("rank %d: %w", r, err)
		}
		// A rank holding no faces of a cell would leave it out
		if pm.NCells() != len(lm.CellMap) {
			return nil, fmt.Errorf("rank %d: built %d cells, expected %d", r, pm.NCells(), len(lm.CellMap))
		}
		lm.PolyMesh = pm
		locals[r] = lm
	}

	// Shared points, ordered by global index on both sides
	for gp, ranks := range pointRanks {
		if len(ranks) < 2 {
			continue
		}
		for _, r := range ranks {
			lp := sort.SearchInts(locals[r].PointMap, gp)
			for _, s := range ranks {
				if s != r {
					locals[r].SharedPoints[s] = append(locals[r].SharedPoints[s], lp)
				}
			}
		}
	}
	return locals, nil
}
