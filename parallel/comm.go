package parallel

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
)

// Comm connects NP in-process ranks through a MailBox
type Comm struct {
	NP int
	mb *MailBox[any]
}

// Two collectives can be in flight between a pair of ranks
const mailDepth = 4

func NewComm(NP int) *Comm {
	return &Comm{NP: NP, mb: NewMailBox[any](NP, mailDepth)}
}

// Abort releases every rank blocked in a collective
func (c *Comm) Abort() { c.mb.Abort() }

// Syncer returns the Syncer for the rank described by topo
func (c *Comm) Syncer(topo Topology) *RankSyncer {
	if topo.NRanks != c.NP {
		panic(fmt.Sprintf("topology for %d ranks used with a %d rank communicator", topo.NRanks, c.NP))
	}
	return &RankSyncer{
		comm:      c,
		topo:      topo,
		faceNbrs:  sortedKeys(topo.ProcFaces),
		pointNbrs: sortedKeys(topo.SharedPoints),
	}
}

// Run executes fn on every rank concurrently. The first failing rank aborts
// the communicator so its peers are not left waiting.
func (c *Comm) Run(topos []Topology, fn func(rank int, s Syncer) error) error {
	if len(topos) != c.NP {
		return fmt.Errorf("have %d topologies for %d ranks", len(topos), c.NP)
	}
	var (
		wg   sync.WaitGroup
		errs = make([]error, c.NP)
	)
	for rank := 0; rank < c.NP; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			if err := fn(rank, c.Syncer(topos[rank])); err != nil {
				errs[rank] = fmt.Errorf("rank %d: %w", rank, err)
				c.Abort()
			}
		}(rank)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// RunRanks runs fn on a fresh communicator sized to topos
func RunRanks(topos []Topology, fn func(rank int, s Syncer) error) error {
	return NewComm(len(topos)).Run(topos, fn)
}

func sortedKeys(m map[int][]int) (keys []int) {
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return
}

// RankSyncer is the Syncer of one rank of a Comm
type RankSyncer struct {
	comm      *Comm
	topo      Topology
	faceNbrs  []int
	pointNbrs []int
}

var _ Syncer = (*RankSyncer)(nil)

func (rs *RankSyncer) Rank() int   { return rs.topo.Rank }
func (rs *RankSyncer) NRanks() int { return rs.comm.NP }

// exchange sends the shared entries of field to every neighbour and hands
// each received value to combine. Outgoing values are copied before any
// combine call.
func exchange[T any](rs *RankSyncer, nbrs []int, shared map[int][]int, field []T,
	combine func(i int, remote T)) error {
	for _, n := range nbrs {
		idx := shared[n]
		buf := make([]T, len(idx))
		for k, i := range idx {
			buf[k] = field[i]
		}
		if err := rs.comm.mb.PostMessage(rs.topo.Rank, n, buf); err != nil {
			return err
		}
	}
	for _, n := range nbrs {
		msg, err := rs.comm.mb.ReceiveMessage(rs.topo.Rank, n)
		if err != nil {
			return err
		}
		buf, ok := msg.([]T)
		if !ok || len(buf) != len(shared[n]) {
			return fmt.Errorf("rank %d: mismatched message from rank %d", rs.topo.Rank, n)
		}
		for k, i := range shared[n] {
			combine(i, buf[k])
		}
	}
	return nil
}

func (rs *RankSyncer) SyncFaceBool(field []bool, op BoolOp) error {
	return exchange(rs, rs.faceNbrs, rs.topo.ProcFaces, field, func(i int, remote bool) {
		field[i] = op(field[i], remote)
	})
}

func (rs *RankSyncer) SyncFaceInt(field []int, op IntOp) error {
	return exchange(rs, rs.faceNbrs, rs.topo.ProcFaces, field, func(i int, remote int) {
		field[i] = op(field[i], remote)
	})
}

func (rs *RankSyncer) SyncPointBool(field []bool, op BoolOp) error {
	return exchange(rs, rs.pointNbrs, rs.topo.SharedPoints, field, func(i int, remote bool) {
		field[i] = op(field[i], remote)
	})
}

func (rs *RankSyncer) SyncPointVec(field []r3.Vec, op VecOp, null r3.Vec) error {
	for _, n := range rs.pointNbrs {
		for _, i := range rs.topo.SharedPoints[n] {
			field[i] = op(null, field[i])
		}
	}
	return exchange(rs, rs.pointNbrs, rs.topo.SharedPoints, field, func(i int, remote r3.Vec) {
		field[i] = op(field[i], remote)
	})
}

// allReduce combines one value from every rank, in rank order
func allReduce[T any](rs *RankSyncer, v T, op func(a, b T) T) (T, error) {
	if err := rs.comm.mb.PostMessageToAll(rs.topo.Rank, v); err != nil {
		return v, err
	}
	vals := make([]T, rs.comm.NP)
	vals[rs.topo.Rank] = v
	for n := 0; n < rs.comm.NP; n++ {
		if n == rs.topo.Rank {
			continue
		}
		msg, err := rs.comm.mb.ReceiveMessage(rs.topo.Rank, n)
		if err != nil {
			return v, err
		}
		remote, ok := msg.(T)
		if !ok {
			return v, fmt.Errorf("rank %d: mismatched reduction from rank %d", rs.topo.Rank, n)
		}
		vals[n] = remote
	}
	acc := vals[0]
	for _, val := range vals[1:] {
		acc = op(acc, val)
	}
	return acc, nil
}

func (rs *RankSyncer) ReduceOr(v bool) (bool, error) {
	return allReduce(rs, v, OrOp)
}

func (rs *RankSyncer) ReduceSum(v int) (int, error) {
	return allReduce(rs, v, SumOp)
}

func (rs *RankSyncer) ReduceFloats(vals []float64, op FloatOp) ([]float64, error) {
	return allReduce(rs, append([]float64(nil), vals...), func(a, b []float64) []float64 {
		if len(a) != len(b) {
			panic(fmt.Sprintf("reduction of %d and %d values", len(a), len(b)))
		}
		out := make([]float64, len(a))
		for i := range a {
			out[i] = op(a[i], b[i])
		}
		return out
	})
}
