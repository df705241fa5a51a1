package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"gridbrief/internal/ingest"
	"gridbrief/internal/logger"
	"gridbrief/internal/store"
)

func (s *Server) triggerIngestion(c echo.Context) error {
	err := s.deps.Ingest.TriggerAsync()
	if errors.Is(err, ingest.ErrRunInProgress) {
		return c.JSON(http.StatusConflict, map[string]string{
			"error":   errIngestionBusy,
			"message": "an ingestion run is already in progress",
		})
	}
	if err != nil {
		logger.Error("ingestion trigger failed", err)
		return internalError(c)
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) listRuns(c echo.Context) error {
	limit, err := intParam(c, "limit", 10, 1, maxLimit)
	if err != nil {
		return badRequest(c, err.Error())
	}
	runs, err := s.deps.Runs.ListRuns(c.Request().Context(), limit)
	if err != nil {
		logger.Error("run listing failed", err)
		return internalError(c)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"items":   orEmptyRuns(runs),
		"running": s.deps.Ingest.Running(),
	})
}

func (s *Server) getRun(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return badRequest(c, "id must be a positive integer")
	}
	run, err := s.deps.Runs.GetRun(c.Request().Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error":   errNotFound,
			"message": "no such ingestion run",
		})
	}
	if err != nil {
		logger.Error("run lookup failed", err, "run_id", id)
		return internalError(c)
	}
	return c.JSON(http.StatusOK, run)
}

func orEmptyRuns[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
