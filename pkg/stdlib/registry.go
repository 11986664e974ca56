// Package stdlib implements the built-in function and constant
// registries for the formula engine.
package stdlib

import (
	"sort"
	"strings"

	"github.com/quartzlabs/formula-engine/pkg/expr"
)

// Registry holds function and constant definitions and serves as both
// the FunctionRegistry and the ConstantRegistry capability.
type Registry struct {
	caseSensitive bool
	funcs         map[string]expr.FunctionInfo
	consts        map[string]float64
}

// NewRegistry creates a registry with all built-in functions and
// constants registered. With caseSensitive false, lookups fold names to
// lower case.
func NewRegistry(caseSensitive bool) *Registry {
	r := &Registry{
		caseSensitive: caseSensitive,
		funcs:         make(map[string]expr.FunctionInfo),
		consts:        make(map[string]float64),
	}
	r.registerMath()
	r.registerRandom()
	r.registerConstants()
	return r
}

func (r *Registry) normalize(name string) string {
	if r.caseSensitive {
		return name
	}
	return strings.ToLower(name)
}

// RegisterFunction adds or replaces a function definition.
func (r *Registry) RegisterFunction(info expr.FunctionInfo) {
	r.funcs[r.normalize(info.Name)] = info
}

// RegisterConstant adds or replaces a named constant.
func (r *Registry) RegisterConstant(name string, value float64) {
	r.consts[r.normalize(name)] = value
}

// FunctionInfo implements expr.FunctionRegistry.
func (r *Registry) FunctionInfo(name string) (expr.FunctionInfo, error) {
	info, ok := r.funcs[r.normalize(name)]
	if !ok {
		return expr.FunctionInfo{}, expr.NewUnknownFunctionError(name)
	}
	return info, nil
}

// ConstantValue implements expr.ConstantRegistry.
func (r *Registry) ConstantValue(name string) (float64, error) {
	v, ok := r.consts[r.normalize(name)]
	if !ok {
		return 0, expr.NewUnknownConstantError(name)
	}
	return v, nil
}

// HasConstant implements expr.ConstantRegistry.
func (r *Registry) HasConstant(name string) bool {
	_, ok := r.consts[r.normalize(name)]
	return ok
}

// FunctionNames returns the sorted names of all registered functions.
func (r *Registry) FunctionNames() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConstantNames returns the sorted names of all registered constants.
func (r *Registry) ConstantNames() []string {
	names := make([]string, 0, len(r.consts))
	for name := range r.consts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
