package api

import (
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
)

func (s *Server) createJudgeConfigHandler(c *echo.Context) error {
	var req createJudgeConfigRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ID == "" || !req.ScoringMode.IsValid() {
		return echo.NewHTTPError(http.StatusBadRequest, "id and a valid scoring_mode are required")
	}
	jc, err := s.store.CreateJudgeConfig(c.Request().Context(), models.JudgeConfig{
		ID: req.ID, ScoringMode: req.ScoringMode, Criteria: req.Criteria,
		SystemPrompt: req.SystemPrompt, UserPromptTemplateSingle: req.UserPromptTemplateSingle,
		UserPromptTemplateBatched: req.UserPromptTemplateBatched, Notes: req.Notes,
	}, req.Activate)
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusCreated, jc)
}

func (s *Server) listJudgeConfigsHandler(c *echo.Context) error {
	configs, err := s.store.ListJudgeConfigs(c.Request().Context())
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, configs)
}

func (s *Server) activateJudgeConfigHandler(c *echo.Context) error {
	version, err := strconv.Atoi(c.Param("v"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "version must be an integer")
	}
	if err := s.store.ActivateJudgeConfig(c.Request().Context(), c.Param("id"), version); err != nil {
		return mapStoreError(err)
	}
	return c.NoContent(http.StatusOK)
}
