// Package api implements the REST API for evaluating and managing
// formulas.
package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/quartzlabs/formula-engine/pkg/engine"
	"github.com/quartzlabs/formula-engine/pkg/expr"
	"github.com/quartzlabs/formula-engine/pkg/store"
)

// Server is the API server for the formula engine.
type Server struct {
	app    *fiber.App
	store  *store.Store
	engine *engine.Engine
}

// New creates a new API server.
func New(eng *engine.Engine, st *store.Store) *Server {
	srv := &Server{
		store:  st,
		engine: eng,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	// Ad-hoc evaluation
	app.Post("/v1/evaluate", srv.evaluate)

	// Named formulas
	app.Post("/v1/formulas", srv.createFormula)
	app.Get("/v1/formulas", srv.listFormulas)
	app.Get("/v1/formulas/:formula", srv.getFormula)
	app.Patch("/v1/formulas/:formula", srv.updateFormula)
	app.Delete("/v1/formulas/:formula", srv.deleteFormula)
	app.Post("/v1/formulas/:formula\\:evaluate", srv.evaluateFormula)

	// Registry listing and cache statistics
	app.Get("/v1/functions", srv.listFunctions)
	app.Get("/v1/constants", srv.listConstants)
	app.Get("/v1/stats", srv.stats)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

func apiError(c *fiber.Ctx, code int, status, format string, args ...interface{}) error {
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": fmt.Sprintf(format, args...),
			"status":  status,
		},
	})
}

// evalStatus maps an evaluation error to an HTTP status. Parse and
// lookup failures are the caller's fault; anything else is a plain
// failed evaluation.
func evalStatus(err error) (int, string) {
	switch {
	case expr.HasErrorTag(err, expr.TagSyntaxError):
		return 400, "INVALID_ARGUMENT"
	case expr.HasErrorTag(err, expr.TagUnknownFunctionError),
		expr.HasErrorTag(err, expr.TagUnknownConstantError),
		expr.HasErrorTag(err, expr.TagUnboundVariableError),
		expr.HasErrorTag(err, expr.TagArityError):
		return 400, "INVALID_ARGUMENT"
	case expr.HasErrorTag(err, expr.TagZeroDivisionError):
		return 422, "FAILED_PRECONDITION"
	default:
		return 500, "INTERNAL"
	}
}

// --- Evaluation handlers ---

type evaluateRequest struct {
	Expression string             `json:"expression"`
	Variables  map[string]float64 `json:"variables"`
}

func (s *Server) evaluate(c *fiber.Ctx) error {
	var req evaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, 400, "INVALID_ARGUMENT", "invalid request body: %v", err)
	}
	if strings.TrimSpace(req.Expression) == "" {
		return apiError(c, 400, "INVALID_ARGUMENT", "expression is required")
	}

	result, err := s.engine.Evaluate(req.Expression, req.Variables)
	if err != nil {
		code, status := evalStatus(err)
		return apiError(c, code, status, "%v", err)
	}

	return c.JSON(fiber.Map{"result": result})
}

type evaluateFormulaRequest struct {
	Variables map[string]float64 `json:"variables"`
}

func (s *Server) evaluateFormula(c *fiber.Ctx) error {
	f, err := s.store.Get(c.Params("formula"))
	if err != nil {
		return apiError(c, 404, "NOT_FOUND", "%v", err)
	}

	var req evaluateFormulaRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apiError(c, 400, "INVALID_ARGUMENT", "invalid request body: %v", err)
		}
	}

	result, err := s.engine.Evaluate(f.Expression, req.Variables)
	if err != nil {
		code, status := evalStatus(err)
		return apiError(c, code, status, "%v", err)
	}

	return c.JSON(fiber.Map{"result": result})
}

// --- Formula handlers ---

type formulaRequest struct {
	Expression  string `json:"expression"`
	Description string `json:"description"`
}

func (s *Server) createFormula(c *fiber.Ctx) error {
	formulaID := c.Query("formulaId")
	if formulaID == "" {
		return apiError(c, 400, "INVALID_ARGUMENT", "formulaId query parameter is required")
	}

	var req formulaRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, 400, "INVALID_ARGUMENT", "invalid request body: %v", err)
	}
	if strings.TrimSpace(req.Expression) == "" {
		return apiError(c, 400, "INVALID_ARGUMENT", "expression is required")
	}

	// Dry run so malformed formulas never reach the store.
	if err := s.engine.Validate(req.Expression); err != nil {
		return apiError(c, 400, "INVALID_ARGUMENT", "invalid expression: %v", err)
	}

	f, err := s.store.Create(formulaID, req.Expression, req.Description)
	if err != nil {
		return apiError(c, 409, "ALREADY_EXISTS", "%v", err)
	}
	return c.Status(201).JSON(f)
}

func (s *Server) getFormula(c *fiber.Ctx) error {
	f, err := s.store.Get(c.Params("formula"))
	if err != nil {
		return apiError(c, 404, "NOT_FOUND", "%v", err)
	}
	return c.JSON(f)
}

func (s *Server) listFormulas(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"formulas": s.store.List()})
}

func (s *Server) updateFormula(c *fiber.Ctx) error {
	var req formulaRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, 400, "INVALID_ARGUMENT", "invalid request body: %v", err)
	}
	if strings.TrimSpace(req.Expression) == "" {
		return apiError(c, 400, "INVALID_ARGUMENT", "expression is required")
	}
	if err := s.engine.Validate(req.Expression); err != nil {
		return apiError(c, 400, "INVALID_ARGUMENT", "invalid expression: %v", err)
	}

	f, err := s.store.Update(c.Params("formula"), req.Expression, req.Description)
	if err != nil {
		return apiError(c, 404, "NOT_FOUND", "%v", err)
	}
	return c.JSON(f)
}

func (s *Server) deleteFormula(c *fiber.Ctx) error {
	if err := s.store.Delete(c.Params("formula")); err != nil {
		return apiError(c, 404, "NOT_FOUND", "%v", err)
	}
	return c.SendStatus(204)
}

// --- Registry and stats handlers ---

func (s *Server) listFunctions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"functions": s.engine.Registry().FunctionNames()})
}

func (s *Server) listConstants(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"constants": s.engine.Registry().ConstantNames()})
}

func (s *Server) stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"cachedFormulas": s.engine.CachedCount(),
		"storedFormulas": len(s.store.List()),
	})
}
