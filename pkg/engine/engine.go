// Package engine ties the formula pipeline together: parse, optimize,
// compile, and memoize compiled formulas in a bounded concurrent cache
// keyed by formula text.
package engine

import (
	"fmt"

	"github.com/quartzlabs/formula-engine/pkg/cache"
	"github.com/quartzlabs/formula-engine/pkg/expr"
	"github.com/quartzlabs/formula-engine/pkg/optimizer"
	"github.com/quartzlabs/formula-engine/pkg/stdlib"
)

// Default cache bounds for compiled formulas.
const (
	DefaultCacheMaximumSize   = 500
	DefaultCacheReductionSize = 50
)

// Options configures an Engine.
type Options struct {
	// CacheMaximumSize bounds the compiled-formula cache.
	CacheMaximumSize int

	// CacheReductionSize is the eviction batch size of the cache.
	CacheReductionSize int

	// CaseSensitive controls function and constant name matching.
	CaseSensitive bool

	// DisableOptimizer skips the tree optimization pass before
	// compilation. Mostly useful in tests and benchmarks.
	DisableOptimizer bool
}

// DefaultOptions returns the options used by New when none are given.
func DefaultOptions() Options {
	return Options{
		CacheMaximumSize:   DefaultCacheMaximumSize,
		CacheReductionSize: DefaultCacheReductionSize,
	}
}

// Engine parses, optimizes, compiles, and evaluates formulas. All
// methods are safe for concurrent use.
type Engine struct {
	opts     Options
	registry *stdlib.Registry
	formulas *cache.Cache[string, Formula]
}

// New creates an engine with the given options. Zero cache bounds fall
// back to the defaults.
func New(opts Options) (*Engine, error) {
	if opts.CacheMaximumSize == 0 {
		opts.CacheMaximumSize = DefaultCacheMaximumSize
	}
	if opts.CacheReductionSize == 0 {
		opts.CacheReductionSize = DefaultCacheReductionSize
	}

	formulas, err := cache.New[string, Formula](opts.CacheMaximumSize, opts.CacheReductionSize)
	if err != nil {
		return nil, err
	}

	return &Engine{
		opts:     opts,
		registry: stdlib.NewRegistry(opts.CaseSensitive),
		formulas: formulas,
	}, nil
}

// Registry returns the engine's registry so callers can add their own
// functions and constants.
func (e *Engine) Registry() *stdlib.Registry {
	return e.registry
}

// CachedCount returns the number of currently memoized formulas.
func (e *Engine) CachedCount() int {
	return e.formulas.Count()
}

// Build returns the compiled evaluator for a formula, deriving it on
// first use and serving it from the cache afterwards.
func (e *Engine) Build(formula string) (Formula, error) {
	return e.formulas.GetOrAdd(e.cacheKey(formula), func(string) (Formula, error) {
		return e.build(formula)
	})
}

// Evaluate parses, optimizes, and evaluates a formula with the given
// variable bindings. Repeated evaluation of the same formula text skips
// re-derivation.
func (e *Engine) Evaluate(formula string, vars expr.Bindings) (float64, error) {
	f, err := e.Build(formula)
	if err != nil {
		return 0, err
	}
	return f(vars)
}

// Validate checks that a formula parses and optimizes cleanly without
// caching anything.
func (e *Engine) Validate(formula string) error {
	_, err := e.derive(formula)
	return err
}

// cacheKey includes the compilation options so engines sharing formula
// text but not semantics never collide.
func (e *Engine) cacheKey(formula string) string {
	return fmt.Sprintf("%t|%t|%s", e.opts.CaseSensitive, e.opts.DisableOptimizer, formula)
}

func (e *Engine) build(formula string) (Formula, error) {
	tree, err := e.derive(formula)
	if err != nil {
		return nil, err
	}
	return Compile(tree, e.registry, e.registry)
}

func (e *Engine) derive(formula string) (expr.Operation, error) {
	tree, err := expr.ParseWithConstants(formula, e.registry)
	if err != nil {
		return nil, err
	}
	if e.opts.DisableOptimizer {
		return tree, nil
	}
	return optimizer.OptimizeMultiplicationChain(tree, e.registry, e.registry)
}
