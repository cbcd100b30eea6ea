package handlers

import (
	"net/http"
	"strconv"

	"github.com/andresuchdata/exportflow/internal/cache"
	"github.com/andresuchdata/exportflow/internal/domain"
	"github.com/andresuchdata/exportflow/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 200
)

type RunHandler struct {
	runs  repository.RunRepository
	cache cache.RunCache
	log   zerolog.Logger
}

// NewRunHandler creates a handler over run history. A nil cache disables the
// last-run shortcut.
func NewRunHandler(runs repository.RunRepository, runCache cache.RunCache, log zerolog.Logger) *RunHandler {
	if runCache == nil {
		runCache = cache.NewNoopRunCache()
	}
	return &RunHandler{runs: runs, cache: runCache, log: log}
}

// ListRuns returns recent runs, newest first
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit := defaultRunLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(parsed, maxRunLimit)
	}

	runs, err := h.runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list runs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	if runs == nil {
		runs = []*domain.RunRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"count": len(runs),
	})
}

// LatestRun returns the most recent run
func (h *RunHandler) LatestRun(c *gin.Context) {
	ctx := c.Request.Context()

	if run, ok, err := h.cache.GetLastRun(ctx); err != nil {
		h.log.Warn().Err(err).Msg("last run cache lookup failed")
	} else if ok {
		c.JSON(http.StatusOK, run)
		return
	}

	run, err := h.runs.LatestRun(ctx)
	h.respondRun(c, run, err)
}

// GetRun returns a single run by id
func (h *RunHandler) GetRun(c *gin.Context) {
	run, err := h.runs.GetRun(c.Request.Context(), c.Param("id"))
	h.respondRun(c, run, err)
}

func (h *RunHandler) respondRun(c *gin.Context, run *domain.RunRecord, err error) {
	switch {
	case errors.Is(err, repository.ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
	case err != nil:
		h.log.Error().Err(err).Msg("failed to fetch run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch run"})
	default:
		c.JSON(http.StatusOK, run)
	}
}
