package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
)

func (s *Server) listProposalsHandler(c *echo.Context) error {
	status := models.ProposalStatus(c.QueryParam("status"))
	proposalsList, err := s.store.ListProposalsByAgent(c.Request().Context(), c.Param("id"), status)
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, proposalsList)
}

func (s *Server) generateProposalsHandler(c *echo.Context) error {
	var req generateProposalsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	proposalsList, err := s.generator.Generate(c.Request().Context(), c.Param("id"), req.PromptVersion)
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusCreated, proposalsList)
}

func (s *Server) applyProposalHandler(c *echo.Context) error {
	version, err := s.generator.Apply(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, version)
}

func (s *Server) dismissProposalHandler(c *echo.Context) error {
	if err := s.generator.Dismiss(c.Request().Context(), c.Param("id")); err != nil {
		return mapStoreError(err)
	}
	return c.NoContent(http.StatusOK)
}
