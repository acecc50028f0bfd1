package api

import (
	"errors"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/evalerrors"
)

// mapStoreError maps the engine's error taxonomy (§7) to HTTP error responses.
func mapStoreError(err error) *echo.HTTPError {
	var validErr *evalerrors.ValidationError
	if errors.As(err, &validErr) {
		return echo.NewHTTPError(http.StatusBadRequest, validErr.Error())
	}
	if errors.Is(err, evalerrors.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	}
	if errors.Is(err, evalerrors.ErrConflict) {
		return echo.NewHTTPError(http.StatusConflict, "conflict")
	}
	if errors.Is(err, evalerrors.ErrAlreadyExists) {
		return echo.NewHTTPError(http.StatusConflict, "resource already exists")
	}
	if errors.Is(err, evalerrors.ErrNotCancellable) {
		return echo.NewHTTPError(http.StatusConflict, "run is not in a cancellable state")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
