package stdlib

import (
	"math/rand"

	"github.com/quartzlabs/formula-engine/pkg/expr"
)

// registerRandom registers the non-idempotent builtins. These are never
// constant-folded by the optimizer: a formula like random() must yield
// a fresh value on every evaluation.
func (r *Registry) registerRandom() {
	r.RegisterFunction(expr.FunctionInfo{
		Name:       "random",
		Arity:      0,
		Idempotent: false,
		Apply: func(args []float64) (float64, error) {
			return rand.Float64(), nil
		},
	})
}
