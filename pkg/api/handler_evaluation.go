package api

import (
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/evalerrors"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/runs"
)

func (s *Server) launchEvaluationHandler(c *echo.Context) error {
	var req launchEvaluationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.AgentID == "" || req.DatasetID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "agent_id and dataset_id are required")
	}
	var timeout time.Duration
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}
	run, err := s.coordinator.Launch(c.Request().Context(), runs.LaunchRequest{
		AgentID: req.AgentID, DatasetID: req.DatasetID, PromptVersion: req.PromptVersion,
		JudgeConfigID: req.JudgeConfigID, JudgeConfigVersion: req.JudgeConfigVersion,
		Timeout: timeout, VerboseLogging: req.VerboseLogging,
	})
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusAccepted, run)
}

func (s *Server) listEvaluationsHandler(c *echo.Context) error {
	if agentID := c.QueryParam("agent_id"); agentID != "" {
		result, err := s.store.ListRunsByAgent(c.Request().Context(), agentID)
		if err != nil {
			return mapStoreError(err)
		}
		return c.JSON(http.StatusOK, result)
	}
	result, err := s.store.ListRuns(c.Request().Context())
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) getEvaluationHandler(c *echo.Context) error {
	run, err := s.store.GetRun(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, run)
}

func (s *Server) cancelEvaluationHandler(c *echo.Context) error {
	id := c.Param("id")
	if !s.coordinator.Cancel(id) {
		run, err := s.store.GetRun(c.Request().Context(), id)
		if err != nil {
			return mapStoreError(err)
		}
		if !run.Status.IsTerminal() {
			return mapStoreError(evalerrors.ErrNotCancellable)
		}
	}
	return c.NoContent(http.StatusOK)
}

// reEvaluateHandler launches a fresh run against the same agent, dataset,
// and judge config as the referenced run, leaving the referenced run
// untouched (§8: "re-running ... is valid: it produces a fresh run and does
// not mutate the prior").
func (s *Server) reEvaluateHandler(c *echo.Context) error {
	prior, err := s.store.GetRun(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapStoreError(err)
	}
	run, err := s.coordinator.Launch(c.Request().Context(), runs.LaunchRequest{
		AgentID: prior.AgentID, DatasetID: prior.DatasetID,
		JudgeConfigID: prior.JudgeConfigID, JudgeConfigVersion: prior.JudgeConfigVersion,
	})
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusAccepted, run)
}
