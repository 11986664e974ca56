package optimizer

import (
	"math"
	"testing"

	"github.com/quartzlabs/formula-engine/pkg/expr"
)

// testRegistry implements the function and constant registries for
// testing. Its "rand" function is deliberately non-deterministic so
// folding it would be observable.
type testRegistry struct {
	randCalls int
}

func (r *testRegistry) FunctionInfo(name string) (expr.FunctionInfo, error) {
	switch name {
	case "sin":
		return expr.FunctionInfo{
			Name: "sin", Arity: 1, Idempotent: true,
			Apply: func(args []float64) (float64, error) { return math.Sin(args[0]), nil },
		}, nil
	case "rand":
		return expr.FunctionInfo{
			Name: "rand", Arity: 0, Idempotent: false,
			Apply: func(args []float64) (float64, error) {
				r.randCalls++
				return float64(r.randCalls), nil
			},
		}, nil
	}
	return expr.FunctionInfo{}, expr.NewUnknownFunctionError(name)
}

func (r *testRegistry) ConstantValue(name string) (float64, error) {
	if name == "pi" {
		return math.Pi, nil
	}
	return 0, expr.NewUnknownConstantError(name)
}

func (r *testRegistry) HasConstant(name string) bool {
	return name == "pi"
}

func parse(t *testing.T, input string) expr.Operation {
	t.Helper()
	node, err := expr.ParseWithConstants(input, &testRegistry{})
	if err != nil {
		t.Fatalf("parse error for %q: %v", input, err)
	}
	return node
}

func optimize(t *testing.T, input string) expr.Operation {
	t.Helper()
	out, err := Optimize(parse(t, input), &testRegistry{}, &testRegistry{})
	if err != nil {
		t.Fatalf("optimize error for %q: %v", input, err)
	}
	return out
}

func assertConstant(t *testing.T, op expr.Operation, want float64) {
	t.Helper()
	c, ok := op.(*expr.FloatingPointConstant)
	if !ok {
		t.Fatalf("expected FloatingPointConstant, got %T", op)
	}
	if c.Value != want {
		t.Errorf("got %v, want %v", c.Value, want)
	}
}

func TestFullyStaticTreesFold(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"2 + 3 * 4", 14},
		{"10 - 4 / 2", 8},
		{"2 ^ 3", 8},
		{"sin(0) + 2", 2},
		{"sin(0) * 5 + 1", 1},
		{"pi", math.Pi},
		{"2 * pi", 2 * math.Pi},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assertConstant(t, optimize(t, tt.input), tt.want)
		})
	}
}

func TestFoldMatchesExecution(t *testing.T) {
	reg := &testRegistry{}
	inputs := []string{"2 + 3", "sin(1) * 4", "2 ^ 0.5 + sin(0)", "(1 + 2) * (3 + 4)"}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			tree := parse(t, input)
			want, err := expr.Execute(tree, reg, reg, nil)
			if err != nil {
				t.Fatalf("exec error: %v", err)
			}
			assertConstant(t, optimize(t, input), want)
		})
	}
}

func TestVariableDependencyPreserved(t *testing.T) {
	inputs := []string{"x", "x + 1", "2 * x + 3", "sin(x)", "1 / (x + 1)", "x ^ 2"}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			reg := &testRegistry{}
			out, facts, err := OptimizeWithFacts(parse(t, input), reg, reg)
			if err != nil {
				t.Fatalf("optimize error: %v", err)
			}
			if !facts.DependsOnVariables {
				t.Error("expected DependsOnVariables to survive optimization")
			}
			if _, ok := out.(*expr.FloatingPointConstant); ok {
				t.Error("variable-dependent tree folded to a constant")
			}
		})
	}
}

func TestMultiplicationZeroPropagation(t *testing.T) {
	// The zero rule applies even to variable-dependent and
	// non-idempotent factors.
	for _, input := range []string{"0 * sin(x)", "sin(x) * 0", "0 * rand()", "rand() * 0", "0.0 * x"} {
		t.Run(input, func(t *testing.T) {
			assertConstant(t, optimize(t, input), 0.0)
		})
	}
}

func TestDivisionZeroAsymmetry(t *testing.T) {
	assertConstant(t, optimize(t, "0 / sin(x)"), 0.0)

	// A zero divisor is not special-cased; the division survives and
	// fails at evaluation time instead.
	out := optimize(t, "sin(x) / 0")
	div, ok := out.(*expr.Division)
	if !ok {
		t.Fatalf("expected Division to survive, got %T", out)
	}
	if !isZero(div.Divisor) {
		t.Error("expected the zero divisor to be preserved")
	}
}

func TestStaticZeroDivisionIsDeferred(t *testing.T) {
	// 1/0 is static but its fold fails in the executor; the node stays
	// a division so the error surfaces at evaluation time.
	out := optimize(t, "1 / 0")
	if _, ok := out.(*expr.Division); !ok {
		t.Fatalf("expected Division to survive, got %T", out)
	}

	reg := &testRegistry{}
	_, err := expr.Execute(out, reg, reg, nil)
	if !expr.HasErrorTag(err, expr.TagZeroDivisionError) {
		t.Errorf("expected ZeroDivisionError at evaluation time, got %v", err)
	}
}

func TestExponentiationShortCircuits(t *testing.T) {
	assertConstant(t, optimize(t, "sin(x) ^ 0"), 1.0)
	assertConstant(t, optimize(t, "rand() ^ 0"), 1.0)
	assertConstant(t, optimize(t, "0 ^ sin(x)"), 0.0)

	// The exponent check takes precedence over the base check.
	assertConstant(t, optimize(t, "0 ^ 0"), 1.0)
}

func TestNonIdempotentNeverFolds(t *testing.T) {
	out := optimize(t, "rand()")
	if _, ok := out.(*expr.Function); !ok {
		t.Fatalf("expected rand() to survive optimization, got %T", out)
	}

	out = optimize(t, "rand() + 1")
	if _, ok := out.(*expr.Addition); !ok {
		t.Fatalf("expected rand() + 1 to survive optimization, got %T", out)
	}

	reg := &testRegistry{}
	if _, facts, err := OptimizeWithFacts(parse(t, "rand() + 1"), reg, reg); err != nil {
		t.Fatalf("optimize error: %v", err)
	} else if facts.Idempotent {
		t.Error("expected Idempotent to be false for rand()")
	}
}

func TestIdempotentArgumentsStillFold(t *testing.T) {
	// A non-idempotent call keeps its own node but its static arguments
	// fold.
	out := optimize(t, "sin(1 + 1) + rand()")
	add, ok := out.(*expr.Addition)
	if !ok {
		t.Fatalf("expected Addition, got %T", out)
	}
	assertConstant(t, add.Arg1, math.Sin(2))
}

func TestUnknownFunctionPropagates(t *testing.T) {
	reg := &testRegistry{}
	_, err := Optimize(parse(t, "nope(1)"), reg, reg)
	if !expr.HasErrorTag(err, expr.TagUnknownFunctionError) {
		t.Errorf("expected UnknownFunctionError, got %v", err)
	}
}

func optimizeChain(t *testing.T, input string) expr.Operation {
	t.Helper()
	reg := &testRegistry{}
	out, err := OptimizeMultiplicationChain(parse(t, input), reg, reg)
	if err != nil {
		t.Fatalf("optimize error for %q: %v", input, err)
	}
	return out
}

func TestMultiplicationChainExtraction(t *testing.T) {
	out := optimizeChain(t, "2 * (3 * (4 * x))")
	mul, ok := out.(*expr.Multiplication)
	if !ok {
		t.Fatalf("expected Multiplication, got %T", out)
	}
	assertConstant(t, mul.Arg1, 24.0)
	if v, ok := mul.Arg2.(*expr.Variable); !ok || v.Name != "x" {
		t.Errorf("expected variable remainder, got %#v", mul.Arg2)
	}
}

func TestMultiplicationChainRightSideConstants(t *testing.T) {
	out := optimizeChain(t, "(x * 3) * 2")
	mul, ok := out.(*expr.Multiplication)
	if !ok {
		t.Fatalf("expected Multiplication, got %T", out)
	}
	assertConstant(t, mul.Arg1, 6.0)
	if v, ok := mul.Arg2.(*expr.Variable); !ok || v.Name != "x" {
		t.Errorf("expected variable remainder, got %#v", mul.Arg2)
	}
}

func TestChainStopsAtNonMultiplication(t *testing.T) {
	// The constant inside the addition is not pulled into the
	// chain-level multiplier.
	out := optimizeChain(t, "2 * (x + 3)")
	mul, ok := out.(*expr.Multiplication)
	if !ok {
		t.Fatalf("expected Multiplication, got %T", out)
	}
	assertConstant(t, mul.Arg1, 2.0)
	add, ok := mul.Arg2.(*expr.Addition)
	if !ok {
		t.Fatalf("expected Addition remainder, got %T", mul.Arg2)
	}
	if _, ok := add.Arg1.(*expr.Variable); !ok {
		t.Errorf("expected variable inside addition, got %T", add.Arg1)
	}
}

func TestChainWithoutConstantsLeavesTreeAlone(t *testing.T) {
	out := optimizeChain(t, "x * y")
	mul, ok := out.(*expr.Multiplication)
	if !ok {
		t.Fatalf("expected Multiplication, got %T", out)
	}
	if _, ok := mul.Arg1.(*expr.Variable); !ok {
		t.Errorf("expected no rewritten constant factor, got %T", mul.Arg1)
	}
}

func TestChainMultiplierZeroCollapses(t *testing.T) {
	// A chain whose extracted multiplier is zero still collapses via
	// the multiplication zero rule of the general pass.
	assertConstant(t, optimizeChain(t, "0 * (2 * x)"), 0.0)
}

func TestChainFullyStatic(t *testing.T) {
	assertConstant(t, optimizeChain(t, "2 * (3 * 4)"), 24.0)
}

func TestOptimizeDoesNotMutateInput(t *testing.T) {
	reg := &testRegistry{}
	tree := parse(t, "2 * x + 3 * 4")
	original, ok := tree.(*expr.Addition)
	if !ok {
		t.Fatalf("expected Addition, got %T", tree)
	}
	before := original.Arg2

	if _, err := Optimize(tree, reg, reg); err != nil {
		t.Fatalf("optimize error: %v", err)
	}
	if original.Arg2 != before {
		t.Error("optimizer mutated the input tree")
	}
	if _, ok := original.Arg2.(*expr.Multiplication); !ok {
		t.Errorf("input subtree changed type: %T", original.Arg2)
	}
}
