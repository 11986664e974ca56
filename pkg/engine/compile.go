package engine

import (
	"fmt"
	"math"

	"github.com/quartzlabs/formula-engine/pkg/expr"
)

// Formula is a compiled evaluator for a single expression tree. Calling
// it with variable bindings produces the formula's value.
type Formula func(vars expr.Bindings) (float64, error)

// Compile translates an (ideally already optimized) expression tree
// into a closure tree. Function and constant lookups happen once, at
// compile time; only variable resolution is deferred to the call.
func Compile(op expr.Operation, funcs expr.FunctionRegistry, consts expr.ConstantRegistry) (Formula, error) {
	switch n := op.(type) {
	case *expr.IntegerConstant:
		v := float64(n.Value)
		return func(expr.Bindings) (float64, error) { return v, nil }, nil

	case *expr.FloatingPointConstant:
		v := n.Value
		return func(expr.Bindings) (float64, error) { return v, nil }, nil

	case *expr.Variable:
		name := n.Name
		return func(vars expr.Bindings) (float64, error) {
			v, ok := vars[name]
			if !ok {
				return 0, expr.NewUnboundVariableError(name)
			}
			return v, nil
		}, nil

	case *expr.Constant:
		v, err := consts.ConstantValue(n.Name)
		if err != nil {
			return nil, err
		}
		return func(expr.Bindings) (float64, error) { return v, nil }, nil

	case *expr.Addition:
		return compilePair(n.Arg1, n.Arg2, funcs, consts, func(a, b float64) (float64, error) {
			return a + b, nil
		})

	case *expr.Subtraction:
		return compilePair(n.Arg1, n.Arg2, funcs, consts, func(a, b float64) (float64, error) {
			return a - b, nil
		})

	case *expr.Multiplication:
		return compilePair(n.Arg1, n.Arg2, funcs, consts, func(a, b float64) (float64, error) {
			return a * b, nil
		})

	case *expr.Division:
		return compilePair(n.Dividend, n.Divisor, funcs, consts, func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, expr.NewZeroDivisionError()
			}
			return a / b, nil
		})

	case *expr.Exponentiation:
		return compilePair(n.Base, n.Exponent, funcs, consts, func(a, b float64) (float64, error) {
			return math.Pow(a, b), nil
		})

	case *expr.Function:
		info, err := funcs.FunctionInfo(n.Name)
		if err != nil {
			return nil, err
		}
		if info.Arity >= 0 && info.Arity != len(n.Arguments) {
			return nil, expr.NewArityError(n.Name, info.Arity, len(n.Arguments))
		}
		compiled := make([]Formula, len(n.Arguments))
		for i, arg := range n.Arguments {
			cf, err := Compile(arg, funcs, consts)
			if err != nil {
				return nil, err
			}
			compiled[i] = cf
		}
		apply := info.Apply
		return func(vars expr.Bindings) (float64, error) {
			args := make([]float64, len(compiled))
			for i, cf := range compiled {
				v, err := cf(vars)
				if err != nil {
					return 0, err
				}
				args[i] = v
			}
			return apply(args)
		}, nil

	default:
		return nil, fmt.Errorf("unsupported operation type: %T", op)
	}
}

func compilePair(a, b expr.Operation, funcs expr.FunctionRegistry, consts expr.ConstantRegistry, combine func(a, b float64) (float64, error)) (Formula, error) {
	ca, err := Compile(a, funcs, consts)
	if err != nil {
		return nil, err
	}
	cb, err := Compile(b, funcs, consts)
	if err != nil {
		return nil, err
	}
	return func(vars expr.Bindings) (float64, error) {
		av, err := ca(vars)
		if err != nil {
			return 0, err
		}
		bv, err := cb(vars)
		if err != nil {
			return 0, err
		}
		return combine(av, bv)
	}, nil
}
