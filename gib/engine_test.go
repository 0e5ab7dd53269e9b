package gib

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gibmesh/mesh"
	"github.com/notargets/gibmesh/motion"
	"github.com/notargets/gibmesh/parallel"
	"github.com/notargets/gibmesh/surface"
)

// scriptedPort moves chosen points to fixed positions on every pass and
// leaves the others where they are
type scriptedPort struct {
	moves map[int]r3.Vec
}

func (sp *scriptedPort) Advance(dt float64) (bool, error) { return dt > 0, nil }

func (sp *scriptedPort) ProposedPoints(s motion.Snapshot) ([]r3.Vec, error) {
	out := append([]r3.Vec(nil), s.Current...)
	for p, v := range sp.moves {
		out[p] = v
	}
	return out, nil
}

func newEngine(t *testing.T, m mesh.Provider, port motion.Port, list []int, flip []bool,
	opts Options) *Engine {
	s := parallel.Serial{}
	zone, err := NewZoneTracker(opts.ZoneName, m, s, list, flip)
	require.NoError(t, err)
	e, err := NewEngine(m, s, port, zone, opts)
	require.NoError(t, err)
	return e
}

// runPiston cuts a unit cube of 4x4x4 cells with the top of a box at
// z = 0.52 and lifts the box by 0.02 per step
func runPiston(m mesh.Provider, s parallel.Syncer, nSteps int) (e *Engine, reps []PassReport, err error) {
	box, err := surface.NewBox("piston", r3.Vec{X: -1, Y: -1, Z: -1}, r3.Vec{X: 2, Y: 2, Z: 0.52})
	if err != nil {
		return nil, nil, err
	}
	port := motion.NewRigidTransform(box, r3.Vec{}, r3.Vec{Z: 0.02}, r3.Vec{})
	list, flip, err := SurfaceCut(m, s, port.Surface())
	if err != nil {
		return nil, nil, err
	}
	zone, err := NewZoneTracker("gibFaces", m, s, list, flip)
	if err != nil {
		return nil, nil, err
	}
	if e, err = NewEngine(m, s, port, zone, quietOptions()); err != nil {
		return nil, nil, err
	}
	for i := 0; i < nSteps; i++ {
		rep, err := e.Step(1)
		if err != nil {
			return nil, nil, err
		}
		reps = append(reps, rep)
	}
	return e, reps, nil
}

func unitCube(t *testing.T, n int) *mesh.PolyMesh {
	return buildBlock(t, mesh.NewHexBlock(n, n, n, r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}))
}

func TestPistonSweep(t *testing.T) {
	m := unitCube(t, 4)
	e, reps, err := runPiston(m, parallel.Serial{}, 3)
	require.NoError(t, err)
	for _, rep := range reps {
		assert.True(t, rep.Moved)
		assert.Equal(t, 16, rep.ZoneSize)
		assert.Equal(t, 0, rep.Entered+rep.Left)
		assert.Equal(t, 0, rep.FlipCells)
		assert.Equal(t, 0, rep.PopsReverted)
		assert.Greater(t, rep.MinVolumeRatio, 0.)
	}
	assert.Equal(t, Idle, e.State())
	assert.Equal(t, 3, e.Pass())

	list, flip := e.Zone()
	centres := m.BaseFaceCentres()
	require.Len(t, list, 16)
	for i, f := range list {
		assert.InDelta(t, 0.5, centres[f].Z, 1e-12)
		assert.True(t, flip[i])
	}
	base, points := m.BasePoints(), m.Points()
	for p := range points {
		if base[p].Z == 0.5 {
			assert.InDelta(t, 0.58, points[p].Z, 1e-9)
			assert.InDelta(t, base[p].X, points[p].X, 1e-9)
			assert.InDelta(t, base[p].Y, points[p].Y, 1e-9)
		} else {
			assert.Equal(t, base[p], points[p])
		}
	}

	// The cut surface faces away from the enclosed side
	tris := e.CutSurface()
	assert.Len(t, tris, 32)
	for _, tri := range tris {
		assert.Greater(t, tri.AreaVector().Z, 0.)
		assert.InDelta(t, 0.58, tri.Centroid().Z, 1e-9)
	}

	// Classifying the committed state again changes nothing
	entered, left, err := e.Classify()
	require.NoError(t, err)
	assert.Empty(t, entered)
	assert.Empty(t, left)
}

func TestPistonSweepParallel(t *testing.T) {
	serial := unitCube(t, 4)
	se, _, err := runPiston(serial, parallel.Serial{}, 3)
	require.NoError(t, err)

	global := unitCube(t, 4)
	cellRank, err := mesh.NewMeshPartitioner(global,
		&mesh.PartitionConfig{NumPartitions: 2, Method: "block"}).Partition()
	require.NoError(t, err)
	locals, err := mesh.Decompose(global, cellRank, 2)
	require.NoError(t, err)
	topos := make([]parallel.Topology, len(locals))
	for r, lm := range locals {
		topos[r] = lm.Topology()
	}

	engines := make([]*Engine, len(locals))
	err = parallel.RunRanks(topos, func(rank int, s parallel.Syncer) (err error) {
		engines[rank], _, err = runPiston(locals[rank], s, 3)
		return
	})
	require.NoError(t, err)

	var (
		lists  = make([][]int, len(locals))
		flips  = make([][]bool, len(locals))
		fields = make([][]r3.Vec, len(locals))
	)
	for r, e := range engines {
		lists[r], flips[r] = e.Zone()
		fields[r] = e.Mesh().Points()
	}
	list, flip, err := mesh.Globalize(locals, lists, flips)
	require.NoError(t, err)
	sList, sFlip := se.Zone()
	assert.Equal(t, sList, list)
	assert.Equal(t, sFlip, flip)

	points := mesh.GlobalizePoints(locals, fields, global.NPoints())
	for p, sp := range serial.Points() {
		assert.InDelta(t, 0, r3.Norm(r3.Sub(sp, points[p])), 1e-9, "point %d", p)
	}

	// Coupled zone faces are dumped by the lower rank only
	assert.Len(t, engines[0].CutSurface(), 32)
	assert.Empty(t, engines[1].CutSurface())
}

func TestUndo(t *testing.T) {
	m := unitCube(t, 4)
	e, _, err := runPiston(m, parallel.Serial{}, 2)
	require.NoError(t, err)
	list, flip := e.Zone()
	list, flip = append([]int(nil), list...), append([]bool(nil), flip...)

	require.NoError(t, e.Undo())
	base, points := m.BasePoints(), m.Points()
	for p := range points {
		if base[p].Z == 0.5 {
			assert.InDelta(t, 0.54, points[p].Z, 1e-9)
		}
	}
	l2, f2 := e.Zone()
	assert.Equal(t, list, l2)
	assert.Equal(t, flip, f2)
	assert.Error(t, e.Undo())

	// The motion was rewound as well, the next step lands where the undone one did
	_, err = e.Step(1)
	require.NoError(t, err)
	for p := range points {
		if base[p].Z == 0.5 {
			assert.InDelta(t, 0.56, m.Points()[p].Z, 1e-9)
		}
	}
}

func TestNoMotion(t *testing.T) {
	m := unitCube(t, 2)
	box, err := surface.NewBox("still", r3.Vec{X: -1, Y: -1, Z: -1}, r3.Vec{X: 2, Y: 2, Z: 0.6})
	require.NoError(t, err)
	port := motion.NewRigidTransform(box, r3.Vec{}, r3.Vec{}, r3.Vec{})
	list, flip, err := SurfaceCut(m, parallel.Serial{}, box)
	require.NoError(t, err)
	e := newEngine(t, m, port, list, flip, quietOptions())
	rep, err := e.Step(1)
	require.NoError(t, err)
	assert.False(t, rep.Moved)
	assert.Equal(t, "pass 1: no motion", rep.String())
	assert.Equal(t, m.BasePoints(), m.Points())
	assert.Error(t, e.Undo())
}

func TestSymmetryProjection(t *testing.T) {
	hb := mesh.NewHexBlock(2, 4, 1, r3.Vec{}, r3.Vec{X: 2, Y: 4, Z: 1})
	hb.SetSide(mesh.ZMin, "symm", mesh.PatchSymmetryPlane)
	m := buildBlock(t, hb)
	list, flip, err := PlaneCut(m, parallel.Serial{}, r3.Vec{X: 1}, r3.Vec{X: 1})
	require.NoError(t, err)
	require.Len(t, list, 4)

	p := hb.PointIndex(1, 2, 0)
	port := &scriptedPort{moves: map[int]r3.Vec{p: {X: 1, Y: 2, Z: 0.5}}}
	e := newEngine(t, m, port, list, flip, quietOptions())
	rep, err := e.Step(1)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Projected)
	assert.InDelta(t, 0, r3.Norm(r3.Sub(m.Points()[p], r3.Vec{X: 1, Y: 2})), 1e-12)
}

func TestFrozenInlet(t *testing.T) {
	hb := mesh.NewHexBlock(2, 2, 1, r3.Vec{}, r3.Vec{X: 2, Y: 2, Z: 1})
	hb.SetSide(mesh.YMin, "inlet", mesh.PatchInlet)
	m := buildBlock(t, hb)
	list, flip, err := PlaneCut(m, parallel.Serial{}, r3.Vec{X: 1}, r3.Vec{X: 1})
	require.NoError(t, err)

	onInlet, inside := hb.PointIndex(1, 0, 0), hb.PointIndex(1, 1, 0)
	port := &scriptedPort{moves: map[int]r3.Vec{
		onInlet: {X: 1.2, Y: 0, Z: 0},
		inside:  {X: 1.2, Y: 1, Z: 0},
	}}
	e := newEngine(t, m, port, list, flip, quietOptions())
	rep, err := e.Step(1)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Frozen)
	assert.Equal(t, m.BasePoints()[onInlet], m.Points()[onInlet])
	assert.InDelta(t, 1.2, m.Points()[inside].X, 1e-12)
}

func TestTwoDimensionalPairs(t *testing.T) {
	hb := mesh.NewHexBlock(3, 3, 1, r3.Vec{}, r3.Vec{X: 3, Y: 3, Z: 1})
	hb.SetSide(mesh.ZMin, "frontAndBack", mesh.PatchEmpty)
	hb.SetSide(mesh.ZMax, "frontAndBack", mesh.PatchEmpty)
	m := buildBlock(t, hb)
	list, flip, err := PlaneCut(m, parallel.Serial{}, r3.Vec{X: 1.2}, r3.Vec{X: 1})
	require.NoError(t, err)
	require.Len(t, list, 3)

	front, back := hb.PointIndex(1, 1, 0), hb.PointIndex(1, 1, 1)
	port := &scriptedPort{moves: map[int]r3.Vec{
		front: {X: 1.2, Y: 1.1, Z: 0.3},
		back:  {X: 1.4, Y: 1.1, Z: 0.8},
	}}
	e := newEngine(t, m, port, list, flip, quietOptions())
	_, err = e.Step(1)
	require.NoError(t, err)
	points := m.Points()
	assert.InDelta(t, 1.3, points[front].X, 1e-12)
	assert.InDelta(t, 1.3, points[back].X, 1e-12)
	assert.InDelta(t, 1.1, points[front].Y, 1e-12)
	assert.InDelta(t, 1.1, points[back].Y, 1e-12)
	assert.Equal(t, 0., points[front].Z)
	assert.Equal(t, 1., points[back].Z)
}

// A small body appearing inside one cell would enclose it with six new
// faces in a single pass. The cell is reverted whether or not it may flip.
func TestSingleCellPop(t *testing.T) {
	for _, allowFlip := range []bool{false, true} {
		t.Run(fmt.Sprintf("allowPrismFlip=%v", allowFlip), func(t *testing.T) {
			hb := mesh.NewHexBlock(3, 3, 5, r3.Vec{}, r3.Vec{X: 3, Y: 3, Z: 5})
			m := buildBlock(t, hb)
			big, err := surface.NewBox("ground", r3.Vec{X: -1, Y: -1, Z: -1}, r3.Vec{X: 4, Y: 4, Z: 1.02})
			require.NoError(t, err)
			small, err := surface.NewBox("debris", r3.Vec{X: 1.3, Y: 1.3, Z: 3.3}, r3.Vec{X: 1.7, Y: 1.7, Z: 3.7})
			require.NoError(t, err)
			tris := append(append([]surface.Triangle(nil), big.Triangles()...), small.Triangles()...)
			body, err := surface.New("body", tris)
			require.NoError(t, err)
			port := motion.NewRigidTransform(body, r3.Vec{}, r3.Vec{Z: 0.001}, r3.Vec{})

			list, flip, err := PlaneCut(m, parallel.Serial{}, r3.Vec{Z: 1}, r3.Vec{Z: 1})
			require.NoError(t, err)
			require.Len(t, list, 9)
			opts := quietOptions()
			opts.AllowPrismFlip = allowFlip
			e := newEngine(t, m, port, list, flip, opts)

			rep, err := e.Step(1)
			require.NoError(t, err)
			assert.Equal(t, 1, rep.PopsReverted)
			assert.Empty(t, rep.FlippedCells)
			if allowFlip {
				assert.Equal(t, 1, rep.FlipCells)
				assert.Equal(t, 0, rep.FlipResets)
			} else {
				assert.Equal(t, 0, rep.FlipCells)
				assert.Equal(t, 1, rep.FlipResets)
			}
			zl, _ := e.Zone()
			assert.Equal(t, list, zl)
			for p, b := range m.BasePoints() {
				if b.Z == 1 {
					assert.InDelta(t, 1.021, m.Points()[p].Z, 1e-9)
				}
			}

			entered, left, err := e.Classify()
			require.NoError(t, err)
			assert.Empty(t, entered)
			assert.Empty(t, left)
		})
	}
}

func TestZoneEmpty(t *testing.T) {
	_, m := unitBlock(t, 3, 3, 3)
	cube, err := surface.NewBox("debris", r3.Vec{X: 1.3, Y: 1.3, Z: 1.3}, r3.Vec{X: 1.7, Y: 1.7, Z: 1.7})
	require.NoError(t, err)
	port := motion.NewRigidTransform(cube, r3.Vec{}, r3.Vec{X: 0.001}, r3.Vec{})
	e := newEngine(t, m, port, nil, nil, quietOptions())
	_, err = e.Step(1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrZoneEmpty))
	assert.Contains(t, err.Error(), "Classified")
	assert.Equal(t, Idle, e.State())
	assert.Equal(t, m.BasePoints(), m.Points())
	// The failed pass did not move the surface
	assert.Equal(t, 0., port.Time())

	// A surface away from the mesh may leave the zone empty
	far, err := surface.NewBox("far", r3.Vec{X: 10, Y: 10, Z: 10}, r3.Vec{X: 11, Y: 11, Z: 11})
	require.NoError(t, err)
	e = newEngine(t, m, motion.NewRigidTransform(far, r3.Vec{}, r3.Vec{X: 0.001}, r3.Vec{}),
		nil, nil, quietOptions())
	rep, err := e.Step(1)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.ZoneSize)
}

func TestUnknownConstraintPatch(t *testing.T) {
	_, m := unitBlock(t, 1, 1, 1)
	s := parallel.Serial{}
	zone, err := NewZoneTracker("gibFaces", m, s, nil, nil)
	require.NoError(t, err)
	opts := quietOptions()
	opts.ConstraintPatches = []string{"outlet"}
	_, err = NewEngine(m, s, &scriptedPort{}, zone, opts)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestDumpSurface(t *testing.T) {
	m := unitCube(t, 2)
	list, flip, err := PlaneCut(m, parallel.Serial{}, r3.Vec{Z: 0.5}, r3.Vec{Z: 1})
	require.NoError(t, err)
	e := newEngine(t, m, &scriptedPort{}, list, flip, quietOptions())
	fileName := filepath.Join(t.TempDir(), "gibFaces.stl")
	require.NoError(t, e.DumpSurface(fileName))
	surf, err := surface.ReadSTL(fileName)
	require.NoError(t, err)
	assert.Equal(t, 8, surf.Len())
}

// The zone around the middle cell of a column flips it to the outside.
// Without a surface the zone is carried from pass to pass and the flip
// must stay in place.
func TestEnclosedCellFlip(t *testing.T) {
	m, f01, f12 := column(t)
	owner := m.Owner()
	list := []int{f01, f12}
	flip := []bool{owner[f01] == 1, owner[f12] == 1}
	if f12 < f01 {
		list[0], list[1], flip[0], flip[1] = f12, f01, flip[1], flip[0]
	}
	opts := quietOptions()
	opts.AllowPrismFlip = true
	e := newEngine(t, m, &scriptedPort{}, list, flip, opts)

	var sides []int
	for _, f := range m.Cells()[1] {
		if f != f01 && f != f12 {
			sides = append(sides, f)
		}
	}
	require.Len(t, sides, 4)

	var zl []int
	var zf []bool
	for pass := 1; pass <= 4; pass++ {
		rep, err := e.Step(1)
		require.NoError(t, err)
		if pass == 1 {
			assert.Equal(t, []int{1}, rep.FlippedCells)
			assert.Equal(t, 1, rep.FlipCells)
			assert.Equal(t, 4, rep.Entered)
			assert.Equal(t, 2, rep.Left)
			assert.Equal(t, 0, rep.PopsReverted)
			l, f := e.Zone()
			zl, zf = append([]int(nil), l...), append([]bool(nil), f...)
			assert.ElementsMatch(t, sides, zl)
		} else {
			assert.Empty(t, rep.FlippedCells, "pass %d", pass)
			assert.Equal(t, 0, rep.FlipCells, "pass %d", pass)
			assert.Equal(t, 0, rep.Entered+rep.Left, "pass %d", pass)
		}
		l, f := e.Zone()
		assert.Equal(t, zl, l, "pass %d", pass)
		assert.Equal(t, zf, f, "pass %d", pass)

		entered, left, err := e.Classify()
		require.NoError(t, err)
		assert.Empty(t, entered, "pass %d", pass)
		assert.Empty(t, left, "pass %d", pass)
	}

	// Undoing a pass keeps the flip remembered
	require.NoError(t, e.Undo())
	entered, left, err := e.Classify()
	require.NoError(t, err)
	assert.Empty(t, entered)
	assert.Empty(t, left)
}

// slabZone is the pair of planes z = 1 and z = 2 with the cells between
// them inside
func slabZone(m *mesh.PolyMesh) (list []int, flip []bool) {
	var (
		owner   = m.Owner()
		centres = m.BaseFaceCentres()
		cells   = m.BaseCellCentres()
	)
	for f := 0; f < m.NInternalFaces(); f++ {
		z := centres[f].Z
		if math.Abs(z-1) > 1e-9 && math.Abs(z-2) > 1e-9 {
			continue
		}
		oz := cells[owner[f]].Z
		list = append(list, f)
		flip = append(flip, oz > 1 && oz < 2)
	}
	return
}

// Every cell of the slab flips, neighbours in the slab claim their shared
// faces twice. Ranks split the slab across x so half of those faces are
// processor faces.
func TestSlabFlipParallel(t *testing.T) {
	const nPasses = 3
	opts := quietOptions()
	opts.AllowPrismFlip = true

	_, serial := unitBlock(t, 3, 3, 3)
	sList, sFlip := slabZone(serial)
	require.Len(t, sList, 18)
	se := newEngine(t, serial, &scriptedPort{}, sList, sFlip, opts)
	for pass := 1; pass <= nPasses; pass++ {
		rep, err := se.Step(1)
		require.NoError(t, err)
		if pass == 1 {
			assert.Equal(t, 9, rep.FlipCells)
			assert.Len(t, rep.FlippedCells, 9)
			assert.Equal(t, 12, rep.DoubleClaims)
			assert.Equal(t, 12, rep.ZoneSize)
			assert.Equal(t, 12, rep.Entered)
			assert.Equal(t, 18, rep.Left)
		} else {
			assert.Equal(t, 0, rep.FlipCells)
			assert.Equal(t, 0, rep.Entered+rep.Left)
		}
	}
	serialList, serialFlip := se.Zone()
	// Only the outer faces of the slab remain
	centres := serial.BaseFaceCentres()
	for _, f := range serialList {
		assert.GreaterOrEqual(t, f, serial.NInternalFaces())
		assert.InDelta(t, 1.5, centres[f].Z, 1e-12)
	}

	_, global := unitBlock(t, 3, 3, 3)
	cellRank := make([]int, global.NCells())
	for c, cc := range global.BaseCellCentres() {
		cellRank[c] = int(cc.X)
	}
	locals, err := mesh.Decompose(global, cellRank, 3)
	require.NoError(t, err)
	topos := make([]parallel.Topology, len(locals))
	for r, lm := range locals {
		topos[r] = lm.Topology()
	}
	gList, gFlip := slabZone(global)

	var (
		engines = make([]*Engine, len(locals))
		flipped = make([]int, len(locals))
		diffs   = make([]int, len(locals))
	)
	err = parallel.RunRanks(topos, func(rank int, s parallel.Syncer) error {
		lm := locals[rank]
		list, flip := lm.Localize(gList, gFlip)
		zone, err := NewZoneTracker(opts.ZoneName, lm, s, list, flip)
		if err != nil {
			return err
		}
		e, err := NewEngine(lm, s, &scriptedPort{}, zone, opts)
		if err != nil {
			return err
		}
		for pass := 1; pass <= nPasses; pass++ {
			rep, err := e.Step(1)
			if err != nil {
				return err
			}
			if pass == 1 {
				flipped[rank] = len(rep.FlippedCells)
			}
		}
		entered, left, err := e.Classify()
		if err != nil {
			return err
		}
		diffs[rank] = len(entered) + len(left)
		engines[rank] = e
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []int{3, 3, 3}, flipped)
	assert.Equal(t, []int{0, 0, 0}, diffs)
	var (
		lists = make([][]int, len(locals))
		flips = make([][]bool, len(locals))
	)
	for r, e := range engines {
		lists[r], flips[r] = e.Zone()
	}
	list, flip, err := mesh.Globalize(locals, lists, flips)
	require.NoError(t, err)
	assert.Equal(t, serialList, list)
	assert.Equal(t, serialFlip, flip)
}
