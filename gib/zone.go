package gib

import (
	"fmt"

	"github.com/notargets/gibmesh/mesh"
	"github.com/notargets/gibmesh/parallel"
)

type zoneBuffer struct {
	list []int
	flip []bool
}

func (zb *zoneBuffer) set(list []int, flip []bool) {
	zb.list = append(zb.list[:0], list...)
	zb.flip = append(zb.flip[:0], flip...)
}

// ZoneTracker owns the committed interface zone and the one committed
// before it. A zone is an ascending face list with one flip bit per face:
// false puts the owner cell on side 0 and the neighbour on side 1.
type ZoneTracker struct {
	name      string
	m         mesh.Provider
	s         parallel.Syncer
	cur, prev zoneBuffer
}

func NewZoneTracker(name string, m mesh.Provider, s parallel.Syncer,
	list []int, flip []bool) (*ZoneTracker, error) {
	if err := checkZone(m.NFaces(), list, flip); err != nil {
		return nil, err
	}
	zt := &ZoneTracker{name: name, m: m, s: s}
	zt.cur.set(list, flip)
	zt.prev.set(list, flip)
	return zt, nil
}

func checkZone(nFaces int, list []int, flip []bool) error {
	if len(list) != len(flip) {
		return fmt.Errorf("%w: %d faces with %d flip bits", ErrInconsistentZone, len(list), len(flip))
	}
	for i, f := range list {
		if f < 0 || f >= nFaces {
			return fmt.Errorf("%w: face %d out of range [0,%d)", ErrInconsistentZone, f, nFaces)
		}
		if i > 0 && f <= list[i-1] {
			return fmt.Errorf("%w: face %d follows face %d", ErrInconsistentZone, f, list[i-1])
		}
	}
	return nil
}

func (zt *ZoneTracker) Name() string     { return zt.name }
func (zt *ZoneTracker) List() []int      { return zt.cur.list }
func (zt *ZoneTracker) Flip() []bool     { return zt.cur.flip }
func (zt *ZoneTracker) PrevList() []int  { return zt.prev.list }
func (zt *ZoneTracker) PrevFlip() []bool { return zt.prev.flip }
func (zt *ZoneTracker) Size() int        { return len(zt.cur.list) }

// Mark returns the per face membership of the zone, OR-synced
func (zt *ZoneTracker) Mark() ([]bool, error) {
	return markFaces(zt.m.NFaces(), zt.s, zt.cur.list)
}

// InterfacePoints marks every point of a zone face, OR-synced
func (zt *ZoneTracker) InterfacePoints() ([]bool, error) {
	mark := make([]bool, zt.m.NFaces())
	for _, f := range zt.cur.list {
		mark[f] = true
	}
	return pointsOf(zt.m, zt.s, mark)
}

// FlipMap expands the flip bits onto all faces, false off the zone
func (zt *ZoneTracker) FlipMap() []bool {
	return flipMapOf(zt.m.NFaces(), zt.cur.list, zt.cur.flip)
}

// Commit installs a new zone and keeps the current one as previous. The
// buffers are swapped, the caller's slices are copied.
func (zt *ZoneTracker) Commit(list []int, flip []bool) error {
	if err := checkZone(zt.m.NFaces(), list, flip); err != nil {
		return err
	}
	zt.prev.set(list, flip)
	zt.cur, zt.prev = zt.prev, zt.cur
	return nil
}

// Rollback restores the previous zone
func (zt *ZoneTracker) Rollback() {
	zt.cur.set(zt.prev.list, zt.prev.flip)
}

// Diff compares an ascending face list with the current zone
func (zt *ZoneTracker) Diff(list []int) (entered, left []int) {
	return diffLists(zt.cur.list, list)
}

func diffLists(old, next []int) (entered, left []int) {
	var i, j int
	for i < len(old) || j < len(next) {
		switch {
		case j == len(next) || (i < len(old) && old[i] < next[j]):
			left = append(left, old[i])
			i++
		case i == len(old) || next[j] < old[i]:
			entered = append(entered, next[j])
			j++
		default:
			i++
			j++
		}
	}
	return
}

func markFaces(nFaces int, s parallel.Syncer, list []int) ([]bool, error) {
	mark := make([]bool, nFaces)
	for _, f := range list {
		mark[f] = true
	}
	if err := s.SyncFaceBool(mark, parallel.OrOp); err != nil {
		return nil, err
	}
	return mark, nil
}

// pointsOf marks the points of marked faces, OR-synced
func pointsOf(m mesh.Provider, s parallel.Syncer, mark []bool) ([]bool, error) {
	points := make([]bool, m.NPoints())
	faces := m.Faces()
	for f, in := range mark {
		if in {
			for _, p := range faces[f] {
				points[p] = true
			}
		}
	}
	if err := s.SyncPointBool(points, parallel.OrOp); err != nil {
		return nil, err
	}
	return points, nil
}

func flipMapOf(nFaces int, list []int, flip []bool) []bool {
	fm := make([]bool, nFaces)
	for i, f := range list {
		fm[f] = flip[i]
	}
	return fm
}

func listFromMark(mark, flipMap []bool) (list []int, flip []bool) {
	for f, in := range mark {
		if in {
			list = append(list, f)
			flip = append(flip, flipMap[f])
		}
	}
	return
}
