package geometry

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Transform places a surface in the global frame: global = R·local + T.
// Build it with Identity or Translation; the zero value is not usable.
type Transform struct {
	rotation    *mat.Dense
	translation r3.Vector
}

// Identity returns the identity placement.
func Identity() Transform {
	return Transform{rotation: identity3(), translation: r3.Vector{}}
}

// Translation returns a placement shifted by t with no rotation.
func Translation(t r3.Vector) Transform {
	return Transform{rotation: identity3(), translation: t}
}

// Origin returns the placement origin.
func (tr Transform) Origin() r3.Vector {
	return tr.translation
}

// ToGlobal maps a local point into the global frame.
func (tr Transform) ToGlobal(local r3.Vector) r3.Vector {
	var out mat.VecDense
	out.MulVec(tr.rotation, vec(local))
	return fromVec(&out).Add(tr.translation)
}

// ToLocal maps a global point into the local frame.
func (tr Transform) ToLocal(global r3.Vector) r3.Vector {
	var out mat.VecDense
	out.MulVec(tr.rotation.T(), vec(global.Sub(tr.translation)))
	return fromVec(&out)
}

func identity3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
}

func vec(v r3.Vector) *mat.VecDense {
	return mat.NewVecDense(3, []float64{v.X, v.Y, v.Z})
}

func fromVec(v *mat.VecDense) r3.Vector {
	return r3.Vector{X: v.AtVec(0), Y: v.AtVec(1), Z: v.AtVec(2)}
}
