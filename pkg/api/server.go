// Package api exposes the engine's abridged HTTP surface (§6): datasets,
// test cases, agents and prompt versions, judge configs, evaluation runs,
// annotations, prompt proposals, and the admin reset/seed-demo endpoints.
// It is a thin delegation layer — no grading or dispatch logic lives here.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/config"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/proposals"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/runs"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/startup"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/store"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/version"
)

// Server is the HTTP API server over the evaluation run engine.
type Server struct {
	echo        *echo.Echo
	httpServer  *http.Server
	cfg         *config.Config
	store       *store.Store
	coordinator *runs.Coordinator
	generator   *proposals.Generator
	reconciler  *startup.Reconciler
	logger      *slog.Logger
}

// NewServer wires the HTTP surface over the engine's core components.
func NewServer(cfg *config.Config, s *store.Store, coordinator *runs.Coordinator, generator *proposals.Generator, reconciler *startup.Reconciler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	e := echo.New()
	srv := &Server{
		echo:        e,
		cfg:         cfg,
		store:       s,
		coordinator: coordinator,
		generator:   generator,
		reconciler:  reconciler,
		logger:      logger,
	}
	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit(2 * 1024 * 1024))
	if len(s.cfg.Server.CORSOrigins) > 0 {
		s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: s.cfg.Server.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		}))
	}

	s.echo.GET("/health", s.healthHandler)

	v1 := s.echo.Group("/api")

	v1.POST("/datasets", s.createDatasetHandler)
	v1.GET("/datasets", s.listDatasetsHandler)
	v1.GET("/datasets/:id", s.getDatasetHandler)
	v1.DELETE("/datasets/:id", s.deleteDatasetHandler)

	v1.POST("/datasets/:id/testcases", s.createTestCaseHandler)
	v1.GET("/datasets/:id/testcases", s.listTestCasesHandler)
	v1.GET("/datasets/:id/testcases/:tcid", s.getTestCaseHandler)
	v1.PATCH("/datasets/:id/testcases/:tcid", s.updateTestCaseHandler)
	v1.DELETE("/datasets/:id/testcases/:tcid", s.deleteTestCaseHandler)

	v1.POST("/agents", s.createAgentHandler)
	v1.GET("/agents", s.listAgentsHandler)
	v1.GET("/agents/:id", s.getAgentHandler)
	v1.PATCH("/agents/:id", s.updateAgentHandler)
	v1.DELETE("/agents/:id", s.deleteAgentHandler)

	v1.POST("/agents/:id/prompts", s.createPromptVersionHandler)
	v1.GET("/agents/:id/prompts", s.listPromptVersionsHandler)
	v1.POST("/agents/:id/prompts/:v/activate", s.activatePromptVersionHandler)

	v1.POST("/judge-configs", s.createJudgeConfigHandler)
	v1.GET("/judge-configs", s.listJudgeConfigsHandler)
	v1.POST("/judge-configs/:id/versions/:v/activate", s.activateJudgeConfigHandler)

	v1.POST("/evaluations", s.launchEvaluationHandler)
	v1.GET("/evaluations", s.listEvaluationsHandler)
	v1.GET("/evaluations/:id", s.getEvaluationHandler)
	v1.POST("/evaluations/:id/cancel", s.cancelEvaluationHandler)
	v1.POST("/evaluations/:id/re-evaluate", s.reEvaluateHandler)

	v1.POST("/evaluations/:id/annotations", s.createRunAnnotationHandler)
	v1.GET("/evaluations/:id/annotations", s.listRunAnnotationsHandler)
	v1.POST("/evaluations/:id/action-annotations", s.createActionAnnotationHandler)
	v1.GET("/evaluations/:id/action-annotations", s.listActionAnnotationsHandler)

	v1.GET("/agents/:id/proposals", s.listProposalsHandler)
	v1.POST("/agents/:id/proposals/generate", s.generateProposalsHandler)
	v1.POST("/proposals/:id/apply", s.applyProposalHandler)
	v1.POST("/proposals/:id/dismiss", s.dismissProposalHandler)

	v1.POST("/admin/reset", s.adminResetHandler)
	v1.POST("/admin/seed-demo", s.adminSeedDemoHandler)
}

// Start runs the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener runs the HTTP server on a pre-created listener, used by
// tests that need a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(c *echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	health, err := s.store.Health(ctx)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"status": "unhealthy", "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "healthy",
		"version": version.Full(),
		"store":   health,
	})
}
