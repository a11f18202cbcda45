// Package upsert defines the update-algebra contract UPSERT statements
// are interpreted through. The merge engine never looks inside an update
// program; composition and evaluation are delegated entirely to the
// caller's algebra.
package upsert

// Algebra composes and evaluates update programs.
//
// Compose must be order-sensitive and associative in observable effect:
// applying Compose(older, younger) to any base value is equivalent to
// applying older then younger, and composing a run of programs folds
// oldest to newest.
//
// Apply evaluates a program over a base row value; a nil base means the
// row was absent, in which case the program's insert image is produced.
type Algebra interface {
	Compose(older, younger []byte) ([]byte, error)
	Apply(base, program []byte) ([]byte, error)
}

// AlgebraFuncs adapts plain functions to the Algebra interface.
type AlgebraFuncs struct {
	ComposeFunc func(older, younger []byte) ([]byte, error)
	ApplyFunc   func(base, program []byte) ([]byte, error)
}

func (a AlgebraFuncs) Compose(older, younger []byte) ([]byte, error) {
	return a.ComposeFunc(older, younger)
}

func (a AlgebraFuncs) Apply(base, program []byte) ([]byte, error) {
	return a.ApplyFunc(base, program)
}
