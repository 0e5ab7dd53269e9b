package motion

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gibmesh/InputParameters"
	"github.com/notargets/gibmesh/surface"
)

func near(t *testing.T, want, have r3.Vec, tol float64) {
	t.Helper()
	assert.InDelta(t, 0, r3.Norm(r3.Sub(want, have)), tol, "want %v have %v", want, have)
}

func TestRotation(t *testing.T) {
	R := Rotation(r3.Vec{Z: 2}, math.Pi/2)
	near(t, r3.Vec{Y: 1}, mulVec(R, r3.Vec{X: 1}), 1e-14)
	near(t, r3.Vec{Z: 1}, mulVec(R, r3.Vec{Z: 1}), 1e-14)

	tr := RigidAt(r3.Vec{X: 1, Y: 1}, r3.Vec{Z: 1}, r3.Vec{Z: math.Pi}, 0.5)
	// Quarter turn about (1,1) plus half a unit up
	near(t, r3.Vec{X: 2, Y: 1, Z: 0.5}, tr.Apply(r3.Vec{X: 1}), 1e-14)

	id := Identity()
	comp := tr.Compose(id)
	near(t, tr.Apply(r3.Vec{X: 3, Y: -1, Z: 2}), comp.Apply(r3.Vec{X: 3, Y: -1, Z: 2}), 1e-14)
}

func box(t *testing.T) *surface.Surface {
	t.Helper()
	s, err := surface.NewBox("box", r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1})
	require.NoError(t, err)
	return s
}

func TestRigidTransformTracksHits(t *testing.T) {
	rt := NewRigidTransform(box(t), r3.Vec{}, r3.Vec{Z: 0.5}, r3.Vec{})
	snap := Snapshot{
		Base:      []r3.Vec{{X: 0.5, Y: 0.5, Z: 1.2}, {X: 3, Y: 3, Z: 3}},
		Current:   []r3.Vec{{X: 0.5, Y: 0.5, Z: 1.2}, {X: 3, Y: 3, Z: 3}},
		Interface: []bool{true, false},
	}
	moved, err := rt.Advance(0)
	require.NoError(t, err)
	assert.False(t, moved)
	out, err := rt.ProposedPoints(snap)
	require.NoError(t, err)
	near(t, r3.Vec{X: 0.5, Y: 0.5, Z: 1}, out[0], 1e-14)
	assert.Equal(t, snap.Current[1], out[1])

	moved, err = rt.Advance(1)
	require.NoError(t, err)
	assert.True(t, moved)
	snap.Current[0] = out[0]
	out, err = rt.ProposedPoints(snap)
	require.NoError(t, err)
	near(t, r3.Vec{X: 0.5, Y: 0.5, Z: 1.5}, out[0], 1e-14)
	near(t, r3.Vec{X: 1, Y: 1, Z: 1.5}, rt.Surface().Bounds().Max, 1e-14)

	// Revert restores the surface, the time and the hits
	rt.Revert()
	assert.Equal(t, 0.0, rt.Time())
	assert.InDelta(t, 1.0, rt.Surface().Bounds().Max.Z, 1e-14)

	_, err = rt.ProposedPoints(Snapshot{Base: snap.Base[:1], Current: snap.Current[:1], Interface: snap.Interface[:1]})
	assert.True(t, errors.Is(err, surface.ErrHitSizeMismatch))
}

func TestCoordinateFrame(t *testing.T) {
	_, err := NewCoordinateFrame(box(t), r3.Vec{}, r3.Vec{Z: 1}, r3.Vec{Z: 2}, r3.Vec{}, r3.Vec{})
	assert.True(t, errors.Is(err, ErrConfig))

	// Local x is global y, local z is global x
	cf, err := NewCoordinateFrame(box(t), r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1, X: 5}, r3.Vec{X: 2}, r3.Vec{})
	require.NoError(t, err)
	near(t, r3.Vec{Y: 1}, cf.Axes[0], 1e-14)
	near(t, r3.Vec{Z: 1}, cf.Axes[1], 1e-14)
	near(t, r3.Vec{Y: 2}, cf.ToGlobal(cf.LocalVel), 1e-14)
	_, err = cf.Advance(0.25)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, cf.Surface().Bounds().Max.Y, 1e-14)
}

func TestSensitivityDriven(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "sens.dat")
	require.NoError(t, os.WriteFile(fileName, []byte("# dJ/dx\n1 0 0\n\n0 2 0\n0 0 3\n"), 0644))
	field, err := ReadSensitivity(fileName)
	require.NoError(t, err)
	require.Len(t, field, 3)

	sd := NewSensitivityDriven(field, 0.5)
	moved, err := sd.Advance(0.1)
	require.NoError(t, err)
	assert.True(t, moved)
	pts := []r3.Vec{{}, {X: 1}, {Y: 1}}
	out, err := sd.ProposedPoints(Snapshot{Base: pts, Current: pts, Interface: []bool{true, false, true}})
	require.NoError(t, err)
	near(t, r3.Vec{X: 0.05}, out[0], 1e-15)
	assert.Equal(t, pts[1], out[1])
	near(t, r3.Vec{Y: 1, Z: 0.15}, out[2], 1e-15)

	local, err := sd.Localize([]int{2, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []r3.Vec{{Z: 3}, {X: 1}}, local.Field)
	_, err = local.ProposedPoints(Snapshot{Base: pts, Current: pts, Interface: make([]bool, 3)})
	assert.True(t, errors.Is(err, ErrFieldSize))

	// A field sized for another mesh is rejected on every rank
	_, err = sd.Localize([]int{0, 1}, 4)
	assert.True(t, errors.Is(err, ErrFieldSize))
	_, err = sd.Localize([]int{0, 3}, 3)
	assert.True(t, errors.Is(err, ErrFieldSize))

	mp := InputParameters.MotionParameters{Type: "sensitivity", SensitivityFile: fileName, StepSize: 1}
	_, err = NewPort(mp, "", nil, 4)
	assert.True(t, errors.Is(err, ErrFieldSize))
	_, err = NewPort(mp, "", []int{0, 1}, 4)
	assert.True(t, errors.Is(err, ErrFieldSize))
	port, err := NewPort(mp, "", []int{1, 2}, 3)
	require.NoError(t, err)
	assert.Equal(t, []r3.Vec{{Y: 2}, {Z: 3}}, port.(*SensitivityDriven).Field)
}

func TestExternalSolver(t *testing.T) {
	_, err := NewExternalSolver("nothing")
	assert.True(t, errors.Is(err, ErrConfig))

	RegisterSolverFunction("lift", func(dt float64, s Snapshot) ([]r3.Vec, error) {
		out := make([]r3.Vec, len(s.Current))
		for p, v := range s.Current {
			out[p] = r3.Add(v, r3.Vec{Z: dt})
		}
		return out, nil
	})
	assert.Contains(t, SolverFunctions(), "lift")
	es, err := NewExternalSolver("lift")
	require.NoError(t, err)
	moved, err := es.Advance(0.2)
	require.NoError(t, err)
	assert.True(t, moved)
	pts := []r3.Vec{{X: 1}}
	out, err := es.ProposedPoints(Snapshot{Base: pts, Current: pts, Interface: []bool{true}})
	require.NoError(t, err)
	near(t, r3.Vec{X: 1, Z: 0.2}, out[0], 1e-15)
}

func TestNewPort(t *testing.T) {
	testCases := []struct {
		name string
		mp   InputParameters.MotionParameters
		ok   bool
	}{
		{"Rigid box", InputParameters.MotionParameters{Type: "rigid", Box: []float64{0, 0, 0, 1, 1, 1}}, true},
		{"Frame sphere", InputParameters.MotionParameters{Type: "Frame", Sphere: []float64{0, 0, 0, 1}}, true},
		{"Rigid without surface", InputParameters.MotionParameters{Type: "rigid"}, false},
		{"Sensitivity without file", InputParameters.MotionParameters{Type: "sensitivity"}, false},
		{"Unknown type", InputParameters.MotionParameters{Type: "warp"}, false},
		{"Unknown function", InputParameters.MotionParameters{Type: "external", Function: "none"}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			port, err := NewPort(tc.mp, "", nil, 0)
			if !tc.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			_, isSource := port.(SurfaceSource)
			assert.True(t, isSource)
			_, isReverter := port.(Reverter)
			assert.True(t, isReverter)
		})
	}
}
