package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
)

func (s *Server) createAgentHandler(c *echo.Context) error {
	var req createAgentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Name == "" || req.Endpoint == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and endpoint are required")
	}
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	agent := models.Agent{
		ID: id, Name: req.Name, Description: req.Description, Endpoint: req.Endpoint,
		Model: req.Model, Team: req.Team, Tags: req.Tags, RiskTier: req.RiskTier,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := s.store.CreateAgent(c.Request().Context(), agent); err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusCreated, agent)
}

func (s *Server) listAgentsHandler(c *echo.Context) error {
	agents, err := s.store.ListAgents(c.Request().Context())
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, agents)
}

func (s *Server) getAgentHandler(c *echo.Context) error {
	agent, err := s.store.GetAgent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, agent)
}

func (s *Server) updateAgentHandler(c *echo.Context) error {
	existing, err := s.store.GetAgent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapStoreError(err)
	}
	var req createAgentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Name != "" {
		existing.Name = req.Name
	}
	if req.Description != "" {
		existing.Description = req.Description
	}
	if req.Endpoint != "" {
		existing.Endpoint = req.Endpoint
	}
	if req.Model != "" {
		existing.Model = req.Model
	}
	if req.Team != "" {
		existing.Team = req.Team
	}
	if req.Tags != nil {
		existing.Tags = req.Tags
	}
	if req.RiskTier != "" {
		existing.RiskTier = req.RiskTier
	}
	existing.UpdatedAt = time.Now()
	if err := s.store.UpdateAgent(c.Request().Context(), existing); err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, existing)
}

func (s *Server) deleteAgentHandler(c *echo.Context) error {
	if err := s.store.DeleteAgent(c.Request().Context(), c.Param("id")); err != nil {
		return mapStoreError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) createPromptVersionHandler(c *echo.Context) error {
	agentID := c.Param("id")
	var req createPromptVersionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}
	version, err := s.store.CreatePromptVersion(c.Request().Context(), models.PromptVersion{
		AgentID: agentID, Text: req.Text, Notes: req.Notes, CreatedAt: time.Now(),
	}, req.Activate)
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusCreated, version)
}

func (s *Server) listPromptVersionsHandler(c *echo.Context) error {
	versions, err := s.store.ListPromptVersions(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, versions)
}

func (s *Server) activatePromptVersionHandler(c *echo.Context) error {
	version, err := strconv.Atoi(c.Param("v"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "version must be an integer")
	}
	if err := s.store.ActivatePromptVersion(c.Request().Context(), c.Param("id"), version); err != nil {
		return mapStoreError(err)
	}
	return c.NoContent(http.StatusOK)
}
