package motion

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Transform is the affine map p -> R p + T
type Transform struct {
	R *mat.Dense
	T r3.Vec
}

func Identity() Transform {
	return Transform{R: mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})}
}

// Rotation returns the matrix rotating by angle about axis (Rodrigues)
func Rotation(axis r3.Vec, angle float64) *mat.Dense {
	if r3.Norm(axis) == 0 || angle == 0 {
		return Identity().R
	}
	k := r3.Unit(axis)
	var (
		c, s = math.Cos(angle), math.Sin(angle)
		K    = mat.NewDense(3, 3, []float64{
			0, -k.Z, k.Y,
			k.Z, 0, -k.X,
			-k.Y, k.X, 0,
		})
		K2 mat.Dense
		R  = Identity().R
	)
	K2.Mul(K, K)
	K.Scale(s, K)
	K2.Scale(1-c, &K2)
	R.Add(R, K)
	R.Add(R, &K2)
	return R
}

func mulVec(m mat.Matrix, v r3.Vec) r3.Vec {
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(3, []float64{v.X, v.Y, v.Z}))
	return r3.Vec{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

func (tr Transform) Apply(p r3.Vec) r3.Vec {
	return r3.Add(mulVec(tr.R, p), tr.T)
}

// Compose returns the transform applying other first, then tr
func (tr Transform) Compose(other Transform) Transform {
	var R mat.Dense
	R.Mul(tr.R, other.R)
	return Transform{R: &R, T: tr.Apply(other.T)}
}

// RigidAt is the rigid motion after time t of a body translating with
// velocity and spinning with angular velocity omega about centre
func RigidAt(centre, velocity, omega r3.Vec, t float64) Transform {
	R := Rotation(omega, r3.Norm(omega)*t)
	// p' = R (p - c) + c + v t
	T := r3.Add(r3.Sub(centre, mulVec(R, centre)), r3.Scale(t, velocity))
	return Transform{R: R, T: T}
}
