package gib

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gibmesh/mesh"
	"github.com/notargets/gibmesh/parallel"
)

// snapCorrector turns proposed interface positions into an admissible
// point field. Its masks come from the base mesh and are built once.
type snapCorrector struct {
	m   mesh.Provider
	s   parallel.Syncer
	fc  faceClasses
	tol float64

	planes     []constraintPlane
	frozen     []bool // Points on constraint patches
	outerPoint []bool // Points on outer faces
	outerEdge  []bool // Edges of outer faces
	concave    []bool
	emptyDir   int
	pairs      [][2]int
}

type snapCounts struct {
	projected, frozen, revised, clamped int
}

func newSnapCorrector(m mesh.Provider, s parallel.Syncer, fc faceClasses, opts Options) (sc *snapCorrector, err error) {
	sc = &snapCorrector{m: m, s: s, fc: fc, tol: opts.Tolerance}
	if sc.planes, err = fitConstraintPlanes(m, s); err != nil {
		return nil, err
	}
	if sc.frozen, err = frozenPoints(m, s, opts.ConstraintPatches); err != nil {
		return nil, err
	}
	sc.outerPoint = make([]bool, m.NPoints())
	sc.outerEdge = make([]bool, len(m.Edges()))
	faceEdges := m.FaceEdges()
	for f, o := range fc.outer {
		if !o {
			continue
		}
		for _, p := range m.Faces()[f] {
			sc.outerPoint[p] = true
		}
		for _, e := range faceEdges[f] {
			sc.outerEdge[e] = true
		}
	}
	if err = s.SyncPointBool(sc.outerPoint, parallel.OrOp); err != nil {
		return nil, err
	}
	if sc.concave, err = findConcavePoints(m, s, fc, opts.Tolerance); err != nil {
		return nil, err
	}
	if sc.emptyDir, err = emptyDirection(m, s, opts.EmptyDirection); err != nil {
		return nil, err
	}
	if sc.emptyDir >= 0 {
		sc.pairs = frontBackPairs(m, sc.emptyDir, opts.Tolerance)
	}
	return sc, nil
}

// frozenPoints marks the points of the constraint patches, every inlet
// and outlet patch when no names are given
func frozenPoints(m mesh.Provider, s parallel.Syncer, names []string) ([]bool, error) {
	var (
		patches = m.Patches()
		frozen  = make([]bool, m.NPoints())
		sel     = make([]bool, len(patches))
	)
	if names == nil {
		for ip, p := range patches {
			sel[ip] = p.IsInflowOutflow()
		}
	}
	for _, name := range names {
		ip := patchIndex(patches, name)
		if ip < 0 {
			return nil, fmt.Errorf("%w: unknown constraint patch %q", ErrConfig, name)
		}
		sel[ip] = true
	}
	for ip, p := range patches {
		if !sel[ip] {
			continue
		}
		for f := p.Start; f < p.Start+p.Size; f++ {
			for _, pt := range m.Faces()[f] {
				frozen[pt] = true
			}
		}
	}
	if err := s.SyncPointBool(frozen, parallel.OrOp); err != nil {
		return nil, err
	}
	return frozen, nil
}

// correct applies, in order: proposal, constraint planes, freeze,
// boundary revision, concave clamp, 2-D collapse and a final sync
func (sc *snapCorrector) correct(proposed []r3.Vec, interPoints, prevMark []bool,
	start []r3.Vec) (out []r3.Vec, cnt snapCounts, err error) {
	base := sc.m.BasePoints()
	out = make([]r3.Vec, len(base))
	for p := range out {
		if interPoints[p] {
			out[p] = proposed[p]
		} else {
			out[p] = base[p]
		}
	}
	if err = parallel.SyncPointAverage(sc.s, out); err != nil {
		return
	}

	if len(sc.planes) > 0 {
		for _, cp := range sc.planes {
			for p, on := range cp.onPlane {
				if on && out[p] != base[p] {
					out[p] = cp.project(out[p])
					cnt.projected++
				}
			}
		}
		if err = parallel.SyncPointAverage(sc.s, out); err != nil {
			return
		}
	}

	for p, fr := range sc.frozen {
		if fr && out[p] != base[p] {
			out[p] = base[p]
			cnt.frozen++
		}
	}

	if cnt.revised, err = sc.reviseBoundary(out, interPoints, prevMark); err != nil {
		return
	}
	if cnt.clamped, err = sc.clampConcave(out, start); err != nil {
		return
	}
	if sc.emptyDir >= 0 {
		sc.collapseEmptyDirection(out)
	}
	err = parallel.SyncPointAverage(sc.s, out)
	return
}

// reviseBoundary snaps interface points on the outer boundary back onto
// an adjacent base boundary face when they moved along it. Only points
// touching an outer edge through a face of the committed zone qualify.
func (sc *snapCorrector) reviseBoundary(out []r3.Vec, interPoints, prevMark []bool) (nRevised int, err error) {
	var (
		edges     = sc.m.Edges()
		faceEdges = sc.m.FaceEdges()
		areas     = sc.m.BaseFaceAreas()
		centres   = sc.m.BaseFaceCentres()
		base      = sc.m.BasePoints()
		touches   = make([]bool, len(out))
	)
	for f, in := range prevMark {
		if !in {
			continue
		}
		for _, e := range faceEdges[f] {
			if sc.outerEdge[e] {
				touches[edges[e][0]] = true
				touches[edges[e][1]] = true
			}
		}
	}
	if err = sc.s.SyncPointBool(touches, parallel.OrOp); err != nil {
		return
	}
	for p := range out {
		if !interPoints[p] || !sc.outerPoint[p] || !touches[p] {
			continue
		}
		var revised bool
		for _, f := range sc.m.PointFaces()[p] {
			if !sc.fc.outer[f] {
				continue
			}
			mag := r3.Norm(areas[f])
			if mag == 0 {
				continue
			}
			n := r3.Scale(1/mag, areas[f])
			d := r3.Sub(out[p], base[p])
			if math.Abs(r3.Dot(d, n)) <= sc.tol*math.Sqrt(mag) {
				out[p] = r3.Sub(out[p], r3.Scale(r3.Dot(r3.Sub(out[p], centres[f]), n), n))
				revised = true
			}
		}
		if revised {
			nRevised++
		}
	}
	return
}

// admissible checks every cell volume of a trial point field against its
// base volume and returns the smallest volume ratio
func admissible(m mesh.Provider, points []r3.Vec, tol float64) (minRatio float64, err error) {
	var (
		vols     = m.VolumesAt(points)
		baseVols = m.BaseCellVolumes()
		ratios   = make([]float64, len(vols))
	)
	for c, v := range vols {
		ratios[c] = v / math.Max(math.Abs(baseVols[c]), 1.e-300)
		if v < -tol*math.Abs(baseVols[c]) {
			return ratios[c], fmt.Errorf("%w: cell %d volume %g, base volume %g",
				ErrSelfIntersection, c, v, baseVols[c])
		}
	}
	if len(ratios) == 0 {
		return 1, nil
	}
	return floats.Min(ratios), nil
}
