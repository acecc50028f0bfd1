package api

import (
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/google/uuid"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
)

func (s *Server) createDatasetHandler(c *echo.Context) error {
	var req createDatasetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Seed.Goal == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "seed.goal is required")
	}
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	schemaHash, err := models.ComputeSchemaHash(req.Seed)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "compute schema hash: "+err.Error())
	}
	dataset := models.Dataset{
		ID: id, Seed: req.Seed, RiskTier: req.RiskTier, TestCaseIDs: []string{},
		Metadata: &models.Metadata{
			GeneratorID: req.GeneratorID, SuiteID: req.SuiteID, Version: req.Version,
			CreatedAt: now, SchemaHash: schemaHash,
		},
		CreatedAt: now, UpdatedAt: now,
	}
	if err := s.store.CreateDataset(c.Request().Context(), dataset); err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusCreated, dataset)
}

func (s *Server) listDatasetsHandler(c *echo.Context) error {
	datasets, err := s.store.ListDatasets(c.Request().Context())
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, datasets)
}

func (s *Server) getDatasetHandler(c *echo.Context) error {
	dataset, err := s.store.GetDataset(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, dataset)
}

func (s *Server) deleteDatasetHandler(c *echo.Context) error {
	if err := s.store.DeleteDataset(c.Request().Context(), c.Param("id")); err != nil {
		return mapStoreError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) createTestCaseHandler(c *echo.Context) error {
	datasetID := c.Param("id")
	var req createTestCaseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Input == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "input is required")
	}

	dataset, err := s.store.GetDataset(c.Request().Context(), datasetID)
	if err != nil {
		return mapStoreError(err)
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	tc := models.NewTestCase(models.TestCase{
		ID: id, DatasetID: datasetID, Name: req.Name, Description: req.Description,
		Input: req.Input, ExpectedResponse: req.ExpectedResponse, MinimalToolSet: req.MinimalToolSet,
		ToolExpectations: req.ToolExpectations, BehaviorAssertions: req.BehaviorAssertions,
		ResponseQualityExpect: req.ResponseQualityExpect, ReferenceSeeds: req.ReferenceSeeds,
		AssertionMode: req.AssertionMode, IsHoldout: req.IsHoldout,
	})
	if err := s.store.CreateTestCase(c.Request().Context(), tc); err != nil {
		return mapStoreError(err)
	}

	dataset.TestCaseIDs = append(dataset.TestCaseIDs, tc.ID)
	dataset.UpdatedAt = time.Now()
	if err := s.store.UpdateDataset(c.Request().Context(), dataset); err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusCreated, tc)
}

func (s *Server) listTestCasesHandler(c *echo.Context) error {
	testCases, err := s.store.ListTestCasesByDataset(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, testCases)
}

func (s *Server) getTestCaseHandler(c *echo.Context) error {
	tc, err := s.store.GetTestCase(c.Request().Context(), c.Param("tcid"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, tc)
}

func (s *Server) updateTestCaseHandler(c *echo.Context) error {
	existing, err := s.store.GetTestCase(c.Request().Context(), c.Param("tcid"))
	if err != nil {
		return mapStoreError(err)
	}
	var req createTestCaseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Name != "" {
		existing.Name = req.Name
	}
	if req.Description != "" {
		existing.Description = req.Description
	}
	if req.Input != "" {
		existing.Input = req.Input
	}
	if req.ExpectedResponse != "" {
		existing.ExpectedResponse = req.ExpectedResponse
	}
	if req.MinimalToolSet != nil {
		existing.MinimalToolSet = req.MinimalToolSet
	}
	if req.ToolExpectations != nil {
		existing.ToolExpectations = req.ToolExpectations
	}
	if req.BehaviorAssertions != nil {
		existing.BehaviorAssertions = req.BehaviorAssertions
	}
	if req.ResponseQualityExpect != nil {
		existing.ResponseQualityExpect = req.ResponseQualityExpect
	}
	if req.ReferenceSeeds != nil {
		existing.ReferenceSeeds = req.ReferenceSeeds
	}
	if req.AssertionMode != "" {
		existing.AssertionMode = req.AssertionMode
	}
	existing.IsHoldout = req.IsHoldout
	if err := s.store.UpdateTestCase(c.Request().Context(), existing); err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, existing)
}

func (s *Server) deleteTestCaseHandler(c *echo.Context) error {
	if err := s.store.DeleteTestCase(c.Request().Context(), c.Param("tcid")); err != nil {
		return mapStoreError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
