package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
)

func (s *Server) createRunAnnotationHandler(c *echo.Context) error {
	runID := c.Param("id")
	var req createRunAnnotationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.TestCaseID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "test_case_id is required")
	}
	annotation := models.RunAnnotation{
		ID: uuid.NewString(), RunID: runID, TestCaseID: req.TestCaseID,
		Outcome: req.Outcome, Efficiency: req.Efficiency, Issues: req.Issues,
		Notes: req.Notes, CreatedAt: time.Now(),
	}
	if err := s.store.CreateRunAnnotation(c.Request().Context(), annotation); err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusCreated, annotation)
}

func (s *Server) listRunAnnotationsHandler(c *echo.Context) error {
	annotations, err := s.store.ListRunAnnotations(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, annotations)
}

func (s *Server) createActionAnnotationHandler(c *echo.Context) error {
	runID := c.Param("id")
	var req createActionAnnotationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.TestCaseID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "test_case_id is required")
	}
	annotation := models.ActionAnnotation{
		ID: uuid.NewString(), RunID: runID, TestCaseID: req.TestCaseID, StepNumber: req.StepNumber,
		Correctness: req.Correctness, ParameterQuality: req.ParameterQuality, InfoUtilization: req.InfoUtilization,
		ErrorContributor: req.ErrorContributor, Correction: req.Correction, CreatedAt: time.Now(),
	}
	if err := s.store.CreateActionAnnotation(c.Request().Context(), annotation); err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusCreated, annotation)
}

func (s *Server) listActionAnnotationsHandler(c *echo.Context) error {
	annotations, err := s.store.ListActionAnnotations(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, annotations)
}
