package stdlib

import (
	"math"

	"github.com/quartzlabs/formula-engine/pkg/expr"
)

// registerMath registers the idempotent math builtins.
func (r *Registry) registerMath() {
	unary := func(name string, fn func(float64) float64) {
		r.RegisterFunction(expr.FunctionInfo{
			Name:       name,
			Arity:      1,
			Idempotent: true,
			Apply: func(args []float64) (float64, error) {
				return fn(args[0]), nil
			},
		})
	}
	binary := func(name string, fn func(float64, float64) float64) {
		r.RegisterFunction(expr.FunctionInfo{
			Name:       name,
			Arity:      2,
			Idempotent: true,
			Apply: func(args []float64) (float64, error) {
				return fn(args[0], args[1]), nil
			},
		})
	}

	unary("sin", math.Sin)
	unary("cos", math.Cos)
	unary("tan", math.Tan)
	unary("asin", math.Asin)
	unary("acos", math.Acos)
	unary("atan", math.Atan)
	unary("sqrt", math.Sqrt)
	unary("abs", math.Abs)
	unary("loge", math.Log)
	unary("log10", math.Log10)
	unary("exp", math.Exp)
	unary("floor", math.Floor)
	unary("ceiling", math.Ceil)
	unary("truncate", math.Trunc)

	binary("pow", math.Pow)
	binary("mod", math.Mod)
	binary("max", math.Max)
	binary("min", math.Min)
	binary("logn", func(v, base float64) float64 {
		return math.Log(v) / math.Log(base)
	})

	// if(condition, then, else): condition is true when non-zero.
	r.RegisterFunction(expr.FunctionInfo{
		Name:       "if",
		Arity:      3,
		Idempotent: true,
		Apply: func(args []float64) (float64, error) {
			if args[0] != 0 {
				return args[1], nil
			}
			return args[2], nil
		},
	})
}

// registerConstants registers the built-in named constants.
func (r *Registry) registerConstants() {
	r.RegisterConstant("pi", math.Pi)
	r.RegisterConstant("e", math.E)
	r.RegisterConstant("tau", 2*math.Pi)
	r.RegisterConstant("phi", math.Phi)
}
