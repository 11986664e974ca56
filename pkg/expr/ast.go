package expr

// Operation is the interface for all expression tree nodes.
type Operation interface {
	operationKind() string
}

// IntegerConstant is an integer literal leaf.
type IntegerConstant struct {
	Value int64
}

func (o *IntegerConstant) operationKind() string { return "IntegerConstant" }

// FloatingPointConstant is a floating point literal leaf. The optimizer
// also produces these when it folds a fully static subtree.
type FloatingPointConstant struct {
	Value float64
}

func (o *FloatingPointConstant) operationKind() string { return "FloatingPointConstant" }

// Variable is a leaf whose value comes from the bindings supplied at
// evaluation time.
type Variable struct {
	Name string
}

func (o *Variable) operationKind() string { return "Variable" }

// Constant is a leaf referring to a named constant (e.g. pi) resolved
// through the constant registry at evaluation time.
type Constant struct {
	Name string
}

func (o *Constant) operationKind() string { return "Constant" }

// Addition represents arg1 + arg2.
type Addition struct {
	Arg1 Operation
	Arg2 Operation
}

func (o *Addition) operationKind() string { return "Addition" }

// Subtraction represents arg1 - arg2.
type Subtraction struct {
	Arg1 Operation
	Arg2 Operation
}

func (o *Subtraction) operationKind() string { return "Subtraction" }

// Multiplication represents arg1 * arg2.
type Multiplication struct {
	Arg1 Operation
	Arg2 Operation
}

func (o *Multiplication) operationKind() string { return "Multiplication" }

// Division represents dividend / divisor.
type Division struct {
	Dividend Operation
	Divisor  Operation
}

func (o *Division) operationKind() string { return "Division" }

// Exponentiation represents base ^ exponent.
type Exponentiation struct {
	Base     Operation
	Exponent Operation
}

func (o *Exponentiation) operationKind() string { return "Exponentiation" }

// Function represents a call to a named function with ordered arguments.
type Function struct {
	Name      string
	Arguments []Operation
}

func (o *Function) operationKind() string { return "Function" }
