package parallel

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Syncer makes face and point fields consistent across ranks.
// Face fields are combined over the two sides of each coupled face, point
// fields over every rank holding the point. All ranks must issue the same
// sequence of calls.
type Syncer interface {
	Rank() int
	NRanks() int

	SyncFaceBool(field []bool, op BoolOp) error
	SyncFaceInt(field []int, op IntOp) error
	SyncPointBool(field []bool, op BoolOp) error
	// SyncPointVec combines shared point values, null is the identity of op
	SyncPointVec(field []r3.Vec, op VecOp, null r3.Vec) error

	ReduceOr(v bool) (bool, error)
	ReduceSum(v int) (int, error)
	// ReduceFloats combines vals elementwise across all ranks
	ReduceFloats(vals []float64, op FloatOp) ([]float64, error)
}

type (
	BoolOp  func(a, b bool) bool
	IntOp   func(a, b int) int
	VecOp   func(a, b r3.Vec) r3.Vec
	FloatOp func(a, b float64) float64
)

var (
	OrOp  BoolOp = func(a, b bool) bool { return a || b }
	AndOp BoolOp = func(a, b bool) bool { return a && b }
	XorOp BoolOp = func(a, b bool) bool { return a != b }

	SumOp IntOp = func(a, b int) int { return a + b }
	MaxOp IntOp = func(a, b int) int { return max(a, b) }
	MinOp IntOp = func(a, b int) int { return min(a, b) }

	MaxVecOp VecOp = func(a, b r3.Vec) r3.Vec {
		return r3.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
	}
	MinVecOp VecOp = func(a, b r3.Vec) r3.Vec {
		return r3.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
	}

	SumFloatOp FloatOp = func(a, b float64) float64 { return a + b }
	MaxFloatOp FloatOp = math.Max
	MinFloatOp FloatOp = math.Min
)

// Identities of the point vector ops
var (
	MaxVecNull = r3.Vec{X: -math.MaxFloat64, Y: -math.MaxFloat64, Z: -math.MaxFloat64}
	MinVecNull = r3.Vec{X: math.MaxFloat64, Y: math.MaxFloat64, Z: math.MaxFloat64}
)

// Topology lists the entities a rank shares with each neighbour rank.
// Both sides of a pair list the shared entities in the same order.
type Topology struct {
	Rank, NRanks int
	ProcFaces    map[int][]int // Neighbour rank -> local coupled faces
	SharedPoints map[int][]int // Neighbour rank -> local shared points
}

// SyncPointAverage makes a shared point field identical on every rank by
// averaging the component-wise extremes over the holders
func SyncPointAverage(s Syncer, field []r3.Vec) error {
	hi := append([]r3.Vec(nil), field...)
	if err := s.SyncPointVec(hi, MaxVecOp, MaxVecNull); err != nil {
		return err
	}
	if err := s.SyncPointVec(field, MinVecOp, MinVecNull); err != nil {
		return err
	}
	for i := range field {
		if hi[i] != field[i] {
			field[i] = r3.Scale(0.5, r3.Add(hi[i], field[i]))
		}
	}
	return nil
}

// Serial is the Syncer of a single rank run, no entity is shared
type Serial struct{}

var _ Syncer = Serial{}

func (Serial) Rank() int                                    { return 0 }
func (Serial) NRanks() int                                  { return 1 }
func (Serial) SyncFaceBool([]bool, BoolOp) error            { return nil }
func (Serial) SyncFaceInt([]int, IntOp) error               { return nil }
func (Serial) SyncPointBool([]bool, BoolOp) error           { return nil }
func (Serial) SyncPointVec([]r3.Vec, VecOp, r3.Vec) error   { return nil }
func (Serial) ReduceOr(v bool) (bool, error)                { return v, nil }
func (Serial) ReduceSum(v int) (int, error)                 { return v, nil }
func (Serial) ReduceFloats(vals []float64, _ FloatOp) ([]float64, error) {
	return append([]float64(nil), vals...), nil
}
