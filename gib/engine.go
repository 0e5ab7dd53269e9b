package gib

import (
	"fmt"
	"log"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gibmesh/mesh"
	"github.com/notargets/gibmesh/motion"
	"github.com/notargets/gibmesh/parallel"
)

// Engine re-cuts, flips and snaps the mesh each time the surface moves.
// One Engine runs per rank, every call that takes part in a pass is
// collective and must be made by all ranks in the same order.
type Engine struct {
	m      mesh.Provider
	s      parallel.Syncer
	port   motion.Port
	zone   *ZoneTracker
	opts   Options
	logger *log.Logger

	fc     faceClasses
	snap   *snapCorrector
	domain [2]r3.Vec // Global base bounding box

	state State
	pass  int

	// Flipped cells still enclosed by the committed zone, and the same
	// mask before the last commit
	flipped, prevFlipped []bool
	prevPoints           []r3.Vec
	canUndo              bool
}

// passContext holds the derived fields of one pass, dropped at its end
type passContext struct {
	recut       bool
	candMark    []bool
	prevMark    []bool
	flipCell    []bool
	newMark     []bool
	newFlip     []bool
	interPoints []bool
}

func NewEngine(m mesh.Provider, s parallel.Syncer, port motion.Port, zone *ZoneTracker,
	opts Options) (e *Engine, err error) {
	if err = opts.validate(); err != nil {
		return nil, err
	}
	e = &Engine{
		m:       m,
		s:       s,
		port:    port,
		zone:    zone,
		opts:    opts,
		logger:  opts.Logger,
		fc:      classifyFaces(m),
		flipped: make([]bool, m.NCells()),
	}
	e.prevFlipped = e.flipped
	if e.snap, err = newSnapCorrector(m, s, e.fc, opts); err != nil {
		return nil, err
	}
	bb := mesh.BoundingBox(m.BasePoints())
	lo, err := s.ReduceFloats([]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}, parallel.MinFloatOp)
	if err != nil {
		return nil, err
	}
	hi, err := s.ReduceFloats([]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}, parallel.MaxFloatOp)
	if err != nil {
		return nil, err
	}
	e.domain = [2]r3.Vec{{X: lo[0], Y: lo[1], Z: lo[2]}, {X: hi[0], Y: hi[1], Z: hi[2]}}
	return e, nil
}

func (e *Engine) State() State        { return e.state }
func (e *Engine) ZoneName() string    { return e.zone.Name() }
func (e *Engine) Pass() int           { return e.pass }
func (e *Engine) Mesh() mesh.Provider { return e.m }

// Zone returns the committed interface zone
func (e *Engine) Zone() (list []int, flip []bool) {
	return e.zone.List(), e.zone.Flip()
}

// Step runs one pass for a time step dt. Without motion it does no work.
// On failure the zone, the mesh and the motion are left as committed and
// the error names the state the pass failed in.
func (e *Engine) Step(dt float64) (rep PassReport, err error) {
	e.pass++
	e.canUndo = false
	rep.Pass = e.pass

	moved, advErr := e.port.Advance(dt)
	failed, err := e.s.ReduceOr(advErr != nil)
	if err != nil {
		return rep, e.fail(err)
	}
	if failed {
		return rep, e.fail(localOrRemote(advErr))
	}
	if rep.Moved, err = e.s.ReduceOr(moved); err != nil {
		return rep, e.fail(err)
	}
	if !rep.Moved {
		return rep, nil
	}
	e.state = MotionRequested

	pc, err := e.classify(&rep)
	if err != nil {
		return rep, e.fail(err)
	}
	e.state = Classified

	popped, err := removePops(e.m, e.s, e.fc, pc.newMark, pc.prevMark, pc.candMark, pc.flipCell)
	if err != nil {
		return rep, e.fail(err)
	}
	rep.PopsReverted = len(popped)
	for _, c := range popped {
		e.logger.Printf("warning: reverted single cell pop at cell %d", c)
	}
	list, flip := listFromMark(pc.newMark, pc.newFlip)
	if err = e.checkZoneSize(len(list)); err != nil {
		return rep, e.fail(err)
	}
	for c, fc := range pc.flipCell {
		if fc {
			rep.FlippedCells = append(rep.FlippedCells, c)
		}
	}
	e.state = Stabilized

	points, err := e.snapPoints(pc, &rep)
	if err != nil {
		return rep, e.fail(err)
	}
	e.state = Snapped

	entered, left := e.zone.Diff(list)
	rep.Entered, rep.Left, rep.ZoneSize = len(entered), len(left), len(list)
	start := append([]r3.Vec(nil), e.m.Points()...)
	if err = e.m.MovePoints(points); err != nil {
		return rep, e.fail(err)
	}
	if err = e.zone.Commit(list, flip); err != nil {
		_ = e.m.MovePoints(start)
		return rep, e.fail(err)
	}
	e.prevPoints = start
	e.prevFlipped, e.flipped = e.flipped, e.enclosedFlips(pc)
	e.canUndo = true
	e.state = Committed
	e.logger.Printf("%s", rep)
	e.state = Idle
	return rep, nil
}

func localOrRemote(err error) error {
	if err != nil {
		return err
	}
	return ErrRemoteRank
}

// fail reverts the motion and returns the engine to Idle
func (e *Engine) fail(err error) error {
	failed := e.state
	if r, ok := e.port.(motion.Reverter); ok {
		r.Revert()
	}
	e.state = Idle
	return fmt.Errorf("pass %d failed in state %s: %w", e.pass, failed, err)
}

// surfaceSource returns the tracked surface when the motion carries one
func (e *Engine) surfaceSource() (motion.SurfaceSource, bool) {
	src, ok := e.port.(motion.SurfaceSource)
	if !ok || src.Surface() == nil {
		return nil, false
	}
	return src, true
}

// classify builds the candidate zone and runs the flip passes on it
func (e *Engine) classify(rep *PassReport) (pc *passContext, err error) {
	pc = &passContext{}
	var (
		list []int
		flip []bool
	)
	if src, ok := e.surfaceSource(); ok {
		if list, flip, err = SurfaceCut(e.m, e.s, src.Surface()); err != nil {
			return nil, err
		}
		pc.recut = true
	} else {
		list, flip = e.zone.List(), e.zone.Flip()
	}
	if pc.candMark, err = markFaces(e.m.NFaces(), e.s, list); err != nil {
		return nil, err
	}
	if pc.prevMark, err = e.zone.Mark(); err != nil {
		return nil, err
	}
	var (
		mark    = append([]bool(nil), pc.candMark...)
		flipMap = flipMapOf(e.m.NFaces(), list, flip)
	)
	pc.flipCell = make([]bool, e.m.NCells())
	for iter := 0; iter < e.opts.MaxFlipIterations; iter++ {
		inter, err := pointsOf(e.m, e.s, mark)
		if err != nil {
			return nil, err
		}
		flipCell := classifyFlipCells(e.m, mark, inter)
		if !pc.recut {
			// A carried over zone already holds its enclosed flips
			for c, f := range e.flipped {
				flipCell[c] = flipCell[c] && !f
			}
		}
		if !e.opts.AllowPrismFlip {
			rep.FlipResets += resetFlipCellsWithFewFaces(e.m, flipCell, e.logger)
		}
		anyFlip, err := e.s.ReduceOr(countTrue(flipCell) > 0)
		if err != nil {
			return nil, err
		}
		if !anyFlip {
			break
		}
		rep.FlipCells += countTrue(flipCell)

		label, err := floodRegions(e.m, e.s, e.fc, mark, flipMap)
		if err != nil {
			return nil, err
		}
		region := flippedRegions(label, flipCell)
		faceID, err := faceOwnership(e.m, e.s, e.fc, region)
		if err != nil {
			return nil, err
		}
		votes, err := castVotes(e.m, e.s, e.fc, mark, flipCell)
		if err != nil {
			return nil, err
		}
		var rc resolveCounts
		mark, flipMap, rc = resolveVotes(e.m.Owner(), votes, mark, flipMap, faceID, region,
			e.opts.DoubleRelease, e.logger)
		rep.DoubleClaims += rc.claims
		rep.DoubleReleases += rc.releases
		for c, f := range flipCell {
			pc.flipCell[c] = pc.flipCell[c] != f
		}
	}
	pc.newMark, pc.newFlip = mark, flipMap
	return pc, nil
}

// enclosedFlips carries flipped cells over to the next pass for as long
// as all their points stay on the committed zone
func (e *Engine) enclosedFlips(pc *passContext) []bool {
	enclosed := classifyFlipCells(e.m, pc.newMark, pc.interPoints)
	for c := range enclosed {
		enclosed[c] = enclosed[c] && (e.flipped[c] || pc.flipCell[c])
	}
	return enclosed
}

// checkZoneSize fails when no rank holds a zone face while the surface
// overlaps the mesh
func (e *Engine) checkZoneSize(local int) error {
	total, err := e.s.ReduceSum(local)
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}
	src, ok := e.surfaceSource()
	if !ok {
		return nil
	}
	sb := src.Surface().Bounds()
	if sb.Min.X <= e.domain[1].X && sb.Max.X >= e.domain[0].X &&
		sb.Min.Y <= e.domain[1].Y && sb.Max.Y >= e.domain[0].Y &&
		sb.Min.Z <= e.domain[1].Z && sb.Max.Z >= e.domain[0].Z {
		return fmt.Errorf("%w: surface %s spans %v to %v", ErrZoneEmpty, src.Surface().Name(), sb.Min, sb.Max)
	}
	return nil
}

// snapPoints asks the motion for proposed positions and corrects them.
// Local failures are held until every rank reached the same point.
func (e *Engine) snapPoints(pc *passContext, rep *PassReport) ([]r3.Vec, error) {
	var err error
	if pc.interPoints, err = pointsOf(e.m, e.s, pc.newMark); err != nil {
		return nil, err
	}
	start := e.m.Points()
	proposed, localErr := e.port.ProposedPoints(motion.Snapshot{
		Base:      e.m.BasePoints(),
		Current:   start,
		Interface: pc.interPoints,
	})
	if localErr != nil || len(proposed) != len(start) {
		if localErr == nil {
			localErr = fmt.Errorf("%w: %d proposed points for %d", motion.ErrFieldSize, len(proposed), len(start))
		}
		proposed = append([]r3.Vec(nil), start...)
	}
	out, cnt, err := e.snap.correct(proposed, pc.interPoints, pc.prevMark, start)
	if err != nil {
		return nil, err
	}
	rep.Projected, rep.Frozen, rep.Revised, rep.Clamped = cnt.projected, cnt.frozen, cnt.revised, cnt.clamped
	if localErr == nil {
		rep.MinVolumeRatio, localErr = admissible(e.m, out, e.opts.AdmissibilityTol)
	}
	failed, err := e.s.ReduceOr(localErr != nil)
	if err != nil {
		return nil, err
	}
	if failed {
		return nil, localOrRemote(localErr)
	}
	return out, nil
}

// Classify re-runs the classification of a pass against the committed
// zone without moving the surface or committing, and reports the faces
// that would enter and leave the zone
func (e *Engine) Classify() (entered, left []int, err error) {
	var rep PassReport
	pc, err := e.classify(&rep)
	if err != nil {
		return nil, nil, err
	}
	if _, err = removePops(e.m, e.s, e.fc, pc.newMark, pc.prevMark, pc.candMark, pc.flipCell); err != nil {
		return nil, nil, err
	}
	list, _ := listFromMark(pc.newMark, pc.newFlip)
	entered, left = e.zone.Diff(list)
	return
}

// Undo restores the zone, the points and the motion from before the last
// committed pass. Only the most recent pass can be undone.
func (e *Engine) Undo() error {
	if !e.canUndo {
		return fmt.Errorf("no committed pass to undo")
	}
	if err := e.m.MovePoints(e.prevPoints); err != nil {
		return err
	}
	e.zone.Rollback()
	e.flipped = e.prevFlipped
	if r, ok := e.port.(motion.Reverter); ok {
		r.Revert()
	}
	e.canUndo = false
	return nil
}
