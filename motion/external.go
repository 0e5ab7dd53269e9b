package motion

import (
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
)

// SolverFunc proposes point positions for one pass of length dt
type SolverFunc func(dt float64, s Snapshot) ([]r3.Vec, error)

var (
	solverMu              sync.RWMutex
	solverMotionFunctions = map[string]SolverFunc{}
)

// RegisterSolverFunction makes fn available to ExternalSolver under name
func RegisterSolverFunction(name string, fn SolverFunc) {
	solverMu.Lock()
	defer solverMu.Unlock()
	solverMotionFunctions[name] = fn
}

func SolverFunctions() (names []string) {
	solverMu.RLock()
	defer solverMu.RUnlock()
	for name := range solverMotionFunctions {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

// ExternalSolver delegates the proposed positions to a registered function
type ExternalSolver struct {
	Name string
	fn   SolverFunc
	dt   float64
}

func NewExternalSolver(name string) (*ExternalSolver, error) {
	solverMu.RLock()
	fn, ok := solverMotionFunctions[name]
	solverMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no solver motion function %q, have %v",
			ErrConfig, name, SolverFunctions())
	}
	return &ExternalSolver{Name: name, fn: fn}, nil
}

func (es *ExternalSolver) Advance(dt float64) (bool, error) {
	if dt < 0 {
		return false, fmt.Errorf("negative time step %g", dt)
	}
	es.dt = dt
	return dt > 0, nil
}

func (es *ExternalSolver) ProposedPoints(s Snapshot) ([]r3.Vec, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	out, err := es.fn(es.dt, s)
	if err != nil {
		return nil, fmt.Errorf("solver motion function %s: %w", es.Name, err)
	}
	if len(out) != len(s.Base) {
		return nil, fmt.Errorf("%w: solver motion function %s returned %d points for %d",
			ErrFieldSize, es.Name, len(out), len(s.Base))
	}
	return out, nil
}
