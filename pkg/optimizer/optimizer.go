// Package optimizer rewrites expression trees into equivalent but
// cheaper-to-evaluate forms: zero short-circuits, multiplication chain
// constant extraction, and constant folding of fully static subtrees.
package optimizer

import (
	"github.com/quartzlabs/formula-engine/pkg/expr"
)

// Facts are the derived attributes of an optimized subtree.
type Facts struct {
	// DependsOnVariables is true if evaluating the subtree requires a
	// variable binding.
	DependsOnVariables bool

	// Idempotent is true if repeated evaluation with the same bindings
	// always yields the same result.
	Idempotent bool
}

type optimizer struct {
	funcs  expr.FunctionRegistry
	consts expr.ConstantRegistry
}

// Optimize applies the general bottom-up pass to an expression tree and
// returns a semantically equivalent, normalized tree. The input tree is
// not mutated. The only propagated failure is an unknown function name.
func Optimize(op expr.Operation, funcs expr.FunctionRegistry, consts expr.ConstantRegistry) (expr.Operation, error) {
	out, _, err := OptimizeWithFacts(op, funcs, consts)
	return out, err
}

// OptimizeWithFacts is Optimize returning the derived facts of the
// optimized tree alongside it.
func OptimizeWithFacts(op expr.Operation, funcs expr.FunctionRegistry, consts expr.ConstantRegistry) (expr.Operation, Facts, error) {
	o := &optimizer{funcs: funcs, consts: consts}
	out, f, err := o.optimize(op)
	if err != nil {
		return nil, Facts{}, err
	}
	return out, Facts{DependsOnVariables: f.dependsOnVariables, Idempotent: f.idempotent}, nil
}

// OptimizeMultiplicationChain is the preferred entry point. When the top
// of the tree is a multiplication it first pulls all directly chained
// constant factors into a single multiplier, then runs the general pass
// over the result. For any other tree it is identical to Optimize.
func OptimizeMultiplicationChain(op expr.Operation, funcs expr.FunctionRegistry, consts expr.ConstantRegistry) (expr.Operation, error) {
	o := &optimizer{funcs: funcs, consts: consts}

	if mul, ok := op.(*expr.Multiplication); ok {
		multiplier, remainder := extractConstantFactors(mul)
		if multiplier != 1.0 {
			op = &expr.Multiplication{
				Arg1: &expr.FloatingPointConstant{Value: multiplier},
				Arg2: remainder,
			}
		}
	}

	out, _, err := o.optimize(op)
	return out, err
}

// facts is the per-node result record threaded through the recursion.
type facts struct {
	dependsOnVariables bool
	idempotent         bool
}

func combine(a, b facts) facts {
	return facts{
		dependsOnVariables: a.dependsOnVariables || b.dependsOnVariables,
		idempotent:         a.idempotent && b.idempotent,
	}
}

func zero() *expr.FloatingPointConstant { return &expr.FloatingPointConstant{Value: 0.0} }
func one() *expr.FloatingPointConstant  { return &expr.FloatingPointConstant{Value: 1.0} }

// optimize is the recursive bottom-up pass. Operands are optimized
// first, then zero/identity short-circuits apply, then the node's facts
// are recomputed and the node is folded to a constant if fully static.
func (o *optimizer) optimize(op expr.Operation) (expr.Operation, facts, error) {
	switch n := op.(type) {
	case *expr.IntegerConstant:
		return n, facts{dependsOnVariables: false, idempotent: true}, nil

	case *expr.FloatingPointConstant:
		return n, facts{dependsOnVariables: false, idempotent: true}, nil

	case *expr.Variable:
		return n, facts{dependsOnVariables: true, idempotent: true}, nil

	case *expr.Constant:
		// Named constants are static; the fold below replaces them with
		// their numeric value.
		return o.fold(n, facts{dependsOnVariables: false, idempotent: true})

	case *expr.Addition:
		a, fa, err := o.optimize(n.Arg1)
		if err != nil {
			return nil, facts{}, err
		}
		b, fb, err := o.optimize(n.Arg2)
		if err != nil {
			return nil, facts{}, err
		}
		return o.fold(&expr.Addition{Arg1: a, Arg2: b}, combine(fa, fb))

	case *expr.Subtraction:
		a, fa, err := o.optimize(n.Arg1)
		if err != nil {
			return nil, facts{}, err
		}
		b, fb, err := o.optimize(n.Arg2)
		if err != nil {
			return nil, facts{}, err
		}
		return o.fold(&expr.Subtraction{Arg1: a, Arg2: b}, combine(fa, fb))

	case *expr.Multiplication:
		a, fa, err := o.optimize(n.Arg1)
		if err != nil {
			return nil, facts{}, err
		}
		b, fb, err := o.optimize(n.Arg2)
		if err != nil {
			return nil, facts{}, err
		}
		if isZero(a) || isZero(b) {
			return zero(), facts{dependsOnVariables: false, idempotent: true}, nil
		}
		return o.fold(&expr.Multiplication{Arg1: a, Arg2: b}, combine(fa, fb))

	case *expr.Division:
		dividend, fd, err := o.optimize(n.Dividend)
		if err != nil {
			return nil, facts{}, err
		}
		divisor, fv, err := o.optimize(n.Divisor)
		if err != nil {
			return nil, facts{}, err
		}
		// Only the zero-dividend case is short-circuited. A zero divisor
		// is left for the executor to report at evaluation time.
		if isZero(dividend) {
			return zero(), facts{dependsOnVariables: false, idempotent: true}, nil
		}
		return o.fold(&expr.Division{Dividend: dividend, Divisor: divisor}, combine(fd, fv))

	case *expr.Exponentiation:
		base, fb, err := o.optimize(n.Base)
		if err != nil {
			return nil, facts{}, err
		}
		exponent, fe, err := o.optimize(n.Exponent)
		if err != nil {
			return nil, facts{}, err
		}
		// The exponent check takes precedence: 0^0 reduces to 1.
		if isZero(exponent) {
			return one(), facts{dependsOnVariables: false, idempotent: true}, nil
		}
		if isZero(base) {
			return zero(), facts{dependsOnVariables: false, idempotent: true}, nil
		}
		return o.fold(&expr.Exponentiation{Base: base, Exponent: exponent}, combine(fb, fe))

	case *expr.Function:
		info, err := o.funcs.FunctionInfo(n.Name)
		if err != nil {
			return nil, facts{}, err
		}
		f := facts{dependsOnVariables: false, idempotent: info.Idempotent}
		args := make([]expr.Operation, len(n.Arguments))
		for i, arg := range n.Arguments {
			optimized, fa, err := o.optimize(arg)
			if err != nil {
				return nil, facts{}, err
			}
			args[i] = optimized
			f = combine(f, fa)
		}
		return o.fold(&expr.Function{Name: n.Name, Arguments: args}, f)

	default:
		// Unknown node kinds pass through untouched with conservative
		// facts so they are never folded.
		return op, facts{dependsOnVariables: true, idempotent: false}, nil
	}
}

// fold replaces a fully static, idempotent subtree with the constant it
// evaluates to. Constant leaves arrive pre-folded and never reach here.
// An executor failure (e.g. a static division by zero) leaves the node
// unfolded so the error surfaces at evaluation time instead.
func (o *optimizer) fold(op expr.Operation, f facts) (expr.Operation, facts, error) {
	if f.dependsOnVariables || !f.idempotent {
		return op, f, nil
	}
	v, err := expr.Execute(op, o.funcs, o.consts, nil)
	if err != nil {
		return op, f, nil
	}
	return &expr.FloatingPointConstant{Value: v}, facts{dependsOnVariables: false, idempotent: true}, nil
}

// extractConstantFactors walks a multiplication chain and pulls every
// directly attached constant leaf into a single multiplier. It returns
// the accumulated multiplier and the remainder subtree. The walk only
// descends through Multiplication nodes; a constant on the left takes
// precedence over one on the right at the same node.
func extractConstantFactors(n *expr.Multiplication) (float64, expr.Operation) {
	if v, ok := constantValue(n.Arg1); ok {
		m, remainder := descend(n.Arg2)
		return v * m, remainder
	}
	if v, ok := constantValue(n.Arg2); ok {
		m, remainder := descend(n.Arg1)
		return v * m, remainder
	}
	return 1.0, n
}

// descend continues extraction into an operand if it is itself a
// multiplication; anything else becomes the remainder as-is.
func descend(op expr.Operation) (float64, expr.Operation) {
	if mul, ok := op.(*expr.Multiplication); ok {
		return extractConstantFactors(mul)
	}
	return 1.0, op
}

// constantValue returns the numeric value of a constant leaf, widening
// integers to floating point.
func constantValue(op expr.Operation) (float64, bool) {
	switch c := op.(type) {
	case *expr.IntegerConstant:
		return float64(c.Value), true
	case *expr.FloatingPointConstant:
		return c.Value, true
	}
	return 0, false
}

// isZero reports whether op is a constant leaf with the exact value
// zero. Non-constant nodes are never zero here, even when provably
// zero-valued.
func isZero(op expr.Operation) bool {
	switch c := op.(type) {
	case *expr.IntegerConstant:
		return c.Value == 0
	case *expr.FloatingPointConstant:
		return c.Value == 0.0
	}
	return false
}
