package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// adminResetHandler wipes all data then re-seeds engine defaults.
func (s *Server) adminResetHandler(c *echo.Context) error {
	if err := s.reconciler.ResetToDefaults(c.Request().Context()); err != nil {
		return mapStoreError(err)
	}
	return c.NoContent(http.StatusOK)
}

// adminSeedDemoHandler wipes all data, re-seeds engine defaults, and adds a
// demo dataset so a fresh install has something to evaluate immediately.
func (s *Server) adminSeedDemoHandler(c *echo.Context) error {
	ctx := c.Request().Context()
	if err := s.reconciler.ResetToDefaults(ctx); err != nil {
		return mapStoreError(err)
	}
	if err := seedDemoDataset(ctx, s.store); err != nil {
		return mapStoreError(err)
	}
	return c.NoContent(http.StatusOK)
}
