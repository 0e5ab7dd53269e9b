package surface

import (
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func unitBox(t *testing.T) *Surface {
	t.Helper()
	s, err := NewBox("box", r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1})
	require.NoError(t, err)
	return s
}

func TestClosestOnTriangle(t *testing.T) {
	a, b, c := r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1}
	testCases := []struct {
		name    string
		p       r3.Vec
		closest r3.Vec
		feature Feature
	}{
		{"Above face", r3.Vec{X: 0.25, Y: 0.25, Z: 1}, r3.Vec{X: 0.25, Y: 0.25}, FeatureFace},
		{"Beyond vertex a", r3.Vec{X: -1, Y: -1}, a, FeatureV0},
		{"Beyond vertex b", r3.Vec{X: 2, Y: -0.5}, b, FeatureV1},
		{"Beyond vertex c", r3.Vec{X: -0.5, Y: 2}, c, FeatureV2},
		{"Beside edge ab", r3.Vec{X: 0.5, Y: -1}, r3.Vec{X: 0.5}, FeatureE01},
		{"Beside edge bc", r3.Vec{X: 1, Y: 1}, r3.Vec{X: 0.5, Y: 0.5}, FeatureE12},
		{"Beside edge ca", r3.Vec{X: -1, Y: 0.5}, r3.Vec{Y: 0.5}, FeatureE20},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q, w, feat := closestOnTriangle(tc.p, a, b, c)
			assert.Equal(t, tc.feature, feat)
			assert.InDelta(t, 0, r3.Norm(r3.Sub(q, tc.closest)), 1e-14)
			assert.InDelta(t, 1, w[0]+w[1]+w[2], 1e-14)
			recon := r3.Add(r3.Add(r3.Scale(w[0], a), r3.Scale(w[1], b)), r3.Scale(w[2], c))
			assert.InDelta(t, 0, r3.Norm(r3.Sub(q, recon)), 1e-14)
		})
	}
}

func TestBoxSide(t *testing.T) {
	s := unitBox(t)
	assert.Equal(t, 12, s.Len())
	assert.Equal(t, r3.Vec{X: 1, Y: 1, Z: 1}, s.Bounds().Max)

	h := s.Nearest(r3.Vec{X: 2, Y: 0.5, Z: 0.5})
	assert.InDelta(t, 1.0, h.Dist2, 1e-14)
	assert.InDelta(t, 1.0, h.Point.X, 1e-14)

	assert.InDelta(t, 1.0, s.Side(r3.Vec{X: 2, Y: 0.5, Z: 0.5}), 1e-14)
	assert.InDelta(t, -0.25, s.Side(r3.Vec{X: 0.75, Y: 0.5, Z: 0.5}), 1e-14)
	// Closest to an edge and to a corner
	assert.Greater(t, s.Side(r3.Vec{X: 2, Y: 2, Z: 0.5}), 0.0)
	assert.Greater(t, s.Side(r3.Vec{X: 2, Y: 2, Z: 2}), 0.0)
	assert.Greater(t, s.Side(r3.Vec{X: -0.1, Y: 0.5, Z: 1.1}), 0.0)
	assert.True(t, s.Inside(r3.Vec{X: 0.9, Y: 0.9, Z: 0.9}))
	assert.False(t, s.Inside(r3.Vec{X: 1.1, Y: 0.9, Z: 0.9}))
}

func TestTreeMatchesLinearScan(t *testing.T) {
	s, err := NewSphere("ball", r3.Vec{X: 0.5, Y: -0.2, Z: 0.1}, 0.7, 12, 24)
	require.NoError(t, err)
	require.NotNil(t, s.tree)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		p := r3.Vec{X: 4*rng.Float64() - 2, Y: 4*rng.Float64() - 2, Z: 4*rng.Float64() - 2}
		best := math.Inf(1)
		for k := range s.tris {
			best = math.Min(best, s.hitOn(k, p).Dist2)
		}
		assert.InDelta(t, best, s.Nearest(p).Dist2, 1e-12)
	}
	// Interior of the sphere is negative, exterior positive
	assert.Less(t, s.Side(r3.Vec{X: 0.5, Y: -0.2, Z: 0.1}), 0.0)
	assert.Greater(t, s.Side(r3.Vec{X: 1.5, Y: -0.2, Z: 0.1}), 0.0)
	assert.Greater(t, s.Side(r3.Vec{X: 0.5, Y: -0.2, Z: 1.0}), 0.0)
}

func TestHitsFollowTransformedSurface(t *testing.T) {
	s := unitBox(t)
	p := r3.Vec{X: 0.3, Y: 0.4, Z: 1.5}
	h := s.Nearest(p)
	shift := r3.Vec{X: 0.1, Y: -0.2, Z: 0.3}
	moved := s.Transformed(func(v r3.Vec) r3.Vec { return r3.Add(v, shift) })
	require.Equal(t, s.Len(), moved.Len())
	q, err := moved.Evaluate(h)
	require.NoError(t, err)
	assert.InDelta(t, 0, r3.Norm(r3.Sub(q, r3.Add(h.Point, shift))), 1e-14)

	_, err = moved.Evaluate(Hit{Triangle: 99})
	assert.Error(t, err)
}

func TestHitCache(t *testing.T) {
	hc := NewHitCache(4)
	require.NoError(t, hc.Check(4))
	err := hc.Check(5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHitSizeMismatch))

	hc.Set(2, Hit{Triangle: 3})
	saved := hc.Clone()
	h, ok := hc.Get(2)
	assert.True(t, ok)
	assert.Equal(t, 3, h.Triangle)
	hc.Clear(2)
	_, ok = hc.Get(2)
	assert.False(t, ok)
	assert.Equal(t, 0, hc.Count())
	assert.Equal(t, 1, saved.Count())
}

func TestSTLRoundTrip(t *testing.T) {
	s := unitBox(t)
	fileName := filepath.Join(t.TempDir(), "box.stl")
	require.NoError(t, s.WriteSTL(fileName))
	r, err := ReadSTL(fileName)
	require.NoError(t, err)
	assert.Equal(t, "box", r.Name())
	assert.Equal(t, s.Len(), r.Len())
	assert.InDelta(t, 1.0, r.Bounds().Max.X, 1e-6)
	assert.InDelta(t, -0.5, r.Side(r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}), 1e-6)

	_, err = New("empty", []Triangle{{r3.Vec{}, r3.Vec{}, r3.Vec{}}})
	assert.Error(t, err)
}
