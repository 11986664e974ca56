package expr

import (
	"math"
	"testing"
)

// testRegistry implements FunctionRegistry and ConstantRegistry for
// testing.
type testRegistry struct {
	funcs  map[string]FunctionInfo
	consts map[string]float64
}

func newTestRegistry() *testRegistry {
	r := &testRegistry{
		funcs:  make(map[string]FunctionInfo),
		consts: make(map[string]float64),
	}
	r.funcs["sin"] = FunctionInfo{
		Name: "sin", Arity: 1, Idempotent: true,
		Apply: func(args []float64) (float64, error) { return math.Sin(args[0]), nil },
	}
	r.funcs["max"] = FunctionInfo{
		Name: "max", Arity: 2, Idempotent: true,
		Apply: func(args []float64) (float64, error) { return math.Max(args[0], args[1]), nil },
	}
	r.consts["pi"] = math.Pi
	return r
}

func (r *testRegistry) FunctionInfo(name string) (FunctionInfo, error) {
	info, ok := r.funcs[name]
	if !ok {
		return FunctionInfo{}, NewUnknownFunctionError(name)
	}
	return info, nil
}

func (r *testRegistry) ConstantValue(name string) (float64, error) {
	v, ok := r.consts[name]
	if !ok {
		return 0, NewUnknownConstantError(name)
	}
	return v, nil
}

func (r *testRegistry) HasConstant(name string) bool {
	_, ok := r.consts[name]
	return ok
}

func mustExecute(t *testing.T, input string, vars Bindings) float64 {
	t.Helper()
	reg := newTestRegistry()
	node, err := ParseWithConstants(input, reg)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	got, err := Execute(node, reg, reg, vars)
	if err != nil {
		t.Fatalf("exec error: %v", err)
	}
	return got
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"42", 42},
		{"3.14", 3.14},
		{"1 + 2", 3},
		{"10 - 3", 7},
		{"4 * 5", 20},
		{"10 / 4", 2.5},
		{"2 ^ 10", 1024},
		{"2 + 3 * 4", 14},      // precedence
		{"(2 + 3) * 4", 20},    // parens
		{"-5", -5},             // negative literal
		{"-(2 + 3)", -5},       // unary minus over subtree
		{"2 ^ 3 ^ 2", 512},     // right-associative
		{"-2 ^ 2", -4},         // unary minus applies after ^
		{"2 ^ -1", 0.5},        // negative exponent
		{"1.5 + 2.5", 4.0},     // float math
		{"1e3 + 1", 1001},      // scientific notation
		{"100 - 60 - 30", 10},  // left-associative
		{"6 / 2 * 3", 9},       // left-associative
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := mustExecute(t, tt.input, nil)
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVariablesAndConstants(t *testing.T) {
	tests := []struct {
		input string
		vars  Bindings
		want  float64
	}{
		{"x", Bindings{"x": 3}, 3},
		{"x * y", Bindings{"x": 3, "y": 4}, 12},
		{"pi", nil, math.Pi},
		{"2 * pi", nil, 2 * math.Pi},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := mustExecute(t, tt.input, tt.vars)
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConstantClassification(t *testing.T) {
	reg := newTestRegistry()

	node, err := ParseWithConstants("pi + x", reg)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	add, ok := node.(*Addition)
	if !ok {
		t.Fatalf("expected Addition, got %T", node)
	}
	if _, ok := add.Arg1.(*Constant); !ok {
		t.Errorf("expected pi to parse as Constant, got %T", add.Arg1)
	}
	if _, ok := add.Arg2.(*Variable); !ok {
		t.Errorf("expected x to parse as Variable, got %T", add.Arg2)
	}

	// Without a registry, every identifier is a variable.
	node, err = Parse("pi")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, ok := node.(*Variable); !ok {
		t.Errorf("expected pi to parse as Variable, got %T", node)
	}
}

func TestFunctionCalls(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"sin(0)", 0},
		{"max(3, 7)", 7},
		{"max(1 + 2, 2)", 3},
		{"sin(0) + 1", 1},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := mustExecute(t, tt.input, nil)
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"",
		"1 +",
		"(1 + 2",
		"1 2",
		"max(1,",
		"$",
		"1..2",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			if _, err := Parse(input); err == nil {
				t.Errorf("expected parse error for %q", input)
			}
		})
	}
}

func TestExecuteErrors(t *testing.T) {
	reg := newTestRegistry()

	tests := []struct {
		name  string
		input string
		vars  Bindings
		tag   string
	}{
		{"unbound variable", "x + 1", nil, TagUnboundVariableError},
		{"unknown function", "nope(1)", nil, TagUnknownFunctionError},
		{"zero division", "1 / 0", nil, TagZeroDivisionError},
		{"zero division variable", "x / y", Bindings{"x": 1, "y": 0}, TagZeroDivisionError},
		{"wrong arity", "sin(1, 2)", nil, TagArityError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := ParseWithConstants(tt.input, reg)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}
			_, err = Execute(node, reg, reg, tt.vars)
			if err == nil {
				t.Fatal("expected error")
			}
			if !HasErrorTag(err, tt.tag) {
				t.Errorf("expected tag %s, got %v", tt.tag, err)
			}
		})
	}
}

func TestExponentiationEdgeCases(t *testing.T) {
	if got := mustExecute(t, "0 ^ 0", nil); got != 1 {
		t.Errorf("0^0: got %v, want 1", got)
	}
	if got := mustExecute(t, "4 ^ 0.5", nil); got != 2 {
		t.Errorf("4^0.5: got %v, want 2", got)
	}
}
