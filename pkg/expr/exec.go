package expr

import (
	"fmt"
	"math"
)

// FunctionInfo describes a registered function.
type FunctionInfo struct {
	Name string

	// Arity is the expected argument count; negative means variadic.
	Arity int

	// Idempotent reports whether repeated calls with the same arguments
	// always yield the same result. Non-idempotent functions are never
	// folded by the optimizer.
	Idempotent bool

	// Apply evaluates the function over already-evaluated arguments.
	Apply func(args []float64) (float64, error)
}

// FunctionRegistry provides function metadata lookup for execution and
// optimization.
type FunctionRegistry interface {
	// FunctionInfo returns the info for a function by name.
	FunctionInfo(name string) (FunctionInfo, error)
}

// ConstantRegistry provides named constant lookup for execution.
type ConstantRegistry interface {
	// ConstantValue returns the value of a named constant.
	ConstantValue(name string) (float64, error)

	// HasConstant reports whether the name is a registered constant.
	HasConstant(name string) bool
}

// Bindings maps variable names to their values for one evaluation.
type Bindings map[string]float64

// Execute evaluates an expression tree to a number. Variables resolve
// through vars, constants through consts, functions through funcs.
func Execute(op Operation, funcs FunctionRegistry, consts ConstantRegistry, vars Bindings) (float64, error) {
	switch n := op.(type) {
	case *IntegerConstant:
		return float64(n.Value), nil

	case *FloatingPointConstant:
		return n.Value, nil

	case *Variable:
		v, ok := vars[n.Name]
		if !ok {
			return 0, NewUnboundVariableError(n.Name)
		}
		return v, nil

	case *Constant:
		return consts.ConstantValue(n.Name)

	case *Addition:
		a, b, err := executePair(n.Arg1, n.Arg2, funcs, consts, vars)
		if err != nil {
			return 0, err
		}
		return a + b, nil

	case *Subtraction:
		a, b, err := executePair(n.Arg1, n.Arg2, funcs, consts, vars)
		if err != nil {
			return 0, err
		}
		return a - b, nil

	case *Multiplication:
		a, b, err := executePair(n.Arg1, n.Arg2, funcs, consts, vars)
		if err != nil {
			return 0, err
		}
		return a * b, nil

	case *Division:
		a, b, err := executePair(n.Dividend, n.Divisor, funcs, consts, vars)
		if err != nil {
			return 0, err
		}
		if b == 0 {
			return 0, NewZeroDivisionError()
		}
		return a / b, nil

	case *Exponentiation:
		a, b, err := executePair(n.Base, n.Exponent, funcs, consts, vars)
		if err != nil {
			return 0, err
		}
		return math.Pow(a, b), nil

	case *Function:
		info, err := funcs.FunctionInfo(n.Name)
		if err != nil {
			return 0, err
		}
		if info.Arity >= 0 && info.Arity != len(n.Arguments) {
			return 0, NewArityError(n.Name, info.Arity, len(n.Arguments))
		}
		args := make([]float64, len(n.Arguments))
		for i, arg := range n.Arguments {
			v, err := Execute(arg, funcs, consts, vars)
			if err != nil {
				return 0, err
			}
			args[i] = v
		}
		return info.Apply(args)

	default:
		return 0, fmt.Errorf("unsupported operation type: %T", op)
	}
}

func executePair(a, b Operation, funcs FunctionRegistry, consts ConstantRegistry, vars Bindings) (float64, float64, error) {
	av, err := Execute(a, funcs, consts, vars)
	if err != nil {
		return 0, 0, err
	}
	bv, err := Execute(b, funcs, consts, vars)
	if err != nil {
		return 0, 0, err
	}
	return av, bv, nil
}
