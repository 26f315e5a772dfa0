package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/albapepper/keeper-analytics/internal/api/respond"
	"github.com/albapepper/keeper-analytics/internal/cache"
	"github.com/albapepper/keeper-analytics/internal/pipeline"
	"github.com/albapepper/keeper-analytics/internal/store"
)

// Cache key prefixes. Keys under RunsPrefix change whenever a run is saved.
const (
	RunsPrefix   = "runs:"
	OutputPrefix = "output:"
	maxLimit     = 100
)

// ListRuns returns recent analysis runs.
// @Summary List analysis runs
// @Description Returns the most recent analysis runs, newest first.
// @Tags runs
// @Produce json
// @Param limit query int false "Maximum runs to return (1-100)" default(20)
// @Success 200 {array} store.Run
// @Failure 400 {object} respond.ErrorResponse
// @Router /runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_LIMIT",
				fmt.Sprintf("limit must be an integer between 1 and %d", maxLimit))
			return
		}
		limit = n
	}

	key := fmt.Sprintf("%slist:%d", RunsPrefix, limit)
	h.serveCached(w, r, key, cache.TTLRunList, marshalled(func(ctx context.Context) ([]store.Run, error) {
		runs, err := h.runs.ListRuns(ctx, limit)
		if runs == nil && err == nil {
			runs = []store.Run{}
		}
		return runs, err
	}))
}

// GetLatestRun returns the newest run.
// @Summary Latest analysis run
// @Description Returns metadata and table names of the newest run.
// @Tags runs
// @Produce json
// @Success 200 {object} store.Run
// @Failure 404 {object} respond.ErrorResponse
// @Router /runs/latest [get]
func (h *Handler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	h.serveCached(w, r, RunsPrefix+"latest", cache.TTLRunList, marshalled(h.runs.LatestRun))
}

// GetRun returns one run.
// @Summary Get analysis run
// @Description Returns metadata, warnings, errors and table names of a run.
// @Tags runs
// @Produce json
// @Param runID path string true "Run ID (UUID)"
// @Success 200 {object} store.Run
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /runs/{runID} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	h.serveCached(w, r, OutputPrefix+runID, h.cfg.CacheTTL, marshalled(func(ctx context.Context) (*store.Run, error) {
		return h.runs.GetRun(ctx, runID)
	}))
}

// GetRunTable returns one output table of a run.
// @Summary Get run output table
// @Description Returns one output table of a run as stored, e.g. manager_season_value or expected_wins.
// @Tags runs
// @Produce json
// @Param runID path string true "Run ID (UUID)"
// @Param table path string true "Output table name"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /runs/{runID}/{table} [get]
func (h *Handler) GetRunTable(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	table := chi.URLParam(r, "table")
	if !pipeline.IsTable(table) {
		respond.WriteError(w, http.StatusNotFound, "UNKNOWN_TABLE",
			"Unknown output table "+table, "available: "+strings.Join(pipeline.TableNames(), ", "))
		return
	}

	key := OutputPrefix + runID + ":" + table
	h.serveCached(w, r, key, cache.TTLRunOutput, func(ctx context.Context) ([]byte, error) {
		return h.runs.GetOutput(ctx, runID, table)
	})
}

// ListTables returns every output table name.
// @Summary List output tables
// @Description Returns the names of every table an analysis run produces, in pipeline order.
// @Tags runs
// @Produce json
// @Success 200 {array} string
// @Router /tables [get]
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, pipeline.TableNames())
}
