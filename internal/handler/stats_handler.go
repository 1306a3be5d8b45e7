package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clover-lab/clover-api/internal/models"
	"github.com/clover-lab/clover-api/internal/service"
	"github.com/clover-lab/clover-api/internal/stats"
	appErrors "github.com/clover-lab/clover-api/pkg/errors"
	"github.com/clover-lab/clover-api/pkg/response"
)

// StatsHandler exposes progress statistics endpoints.
type StatsHandler struct {
	service *service.StatsService
}

// NewStatsHandler creates a new handler.
func NewStatsHandler(svc *service.StatsService) *StatsHandler {
	return &StatsHandler{service: svc}
}

// Progress returns the acceptance summary for the requested scope.
func (h *StatsHandler) Progress(c *gin.Context) {
	h.progress(c, c.Query("user_id"), c.Query("class_id"))
}

// UserProgress scopes the acceptance summary to one user by path parameter.
func (h *StatsHandler) UserProgress(c *gin.Context) {
	h.progress(c, c.Param("id"), "")
}

// ClassProgress scopes the acceptance summary to one class by path parameter.
func (h *StatsHandler) ClassProgress(c *gin.Context) {
	h.progress(c, "", c.Param("id"))
}

func (h *StatsHandler) progress(c *gin.Context, userID, classID string) {
	filter, err := parseStatsFilter(c, userID, classID)
	if err != nil {
		response.Error(c, err)
		return
	}

	start := time.Now()
	summary, cacheHit, err := h.service.Progress(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, summary, nil, map[string]interface{}{
		"cache_hit":          cacheHit,
		"processing_time_ms": time.Since(start).Milliseconds(),
	})
}

// Series returns bucketized totals, accuracy, and response-time charts.
func (h *StatsHandler) Series(c *gin.Context) {
	h.series(c, c.Query("user_id"), c.Query("class_id"))
}

// UserSeries scopes the series charts to one user by path parameter.
func (h *StatsHandler) UserSeries(c *gin.Context) {
	h.series(c, c.Param("id"), "")
}

// ClassSeries scopes the series charts to one class by path parameter.
func (h *StatsHandler) ClassSeries(c *gin.Context) {
	h.series(c, "", c.Param("id"))
}

func (h *StatsHandler) series(c *gin.Context, userID, classID string) {
	filter, err := parseStatsFilter(c, userID, classID)
	if err != nil {
		response.Error(c, err)
		return
	}

	granularity, err := parseGranularity(c.DefaultQuery("granularity", "day"))
	if err != nil {
		response.Error(c, err)
		return
	}
	rng, err := parseRange(c.DefaultQuery("range", "rolling"))
	if err != nil {
		response.Error(c, err)
		return
	}

	start := time.Now()
	series, cacheHit, err := h.service.Series(c.Request.Context(), filter, granularity, rng)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, series, nil, map[string]interface{}{
		"cache_hit":          cacheHit,
		"processing_time_ms": time.Since(start).Milliseconds(),
	})
}

// System returns the instrumentation snapshot and user census for the
// admin panel.
func (h *StatsHandler) System(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.System(c.Request.Context()), nil)
}

func parseStatsFilter(c *gin.Context, userID, classID string) (models.StatsFilter, error) {
	filter := models.StatsFilter{
		UserID:  userID,
		ClassID: classID,
	}

	// students may only see their own numbers
	claims := claimsFromContext(c)
	if claims != nil && claims.Role == models.RoleStudent {
		filter.UserID = claims.UserID
	}

	if raw := c.Query("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "from must be ISO-8601")
		}
		filter.From = &ts
	}
	if raw := c.Query("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "to must be ISO-8601")
		}
		filter.To = &ts
	}
	return filter, nil
}

func parseGranularity(raw string) (stats.Granularity, error) {
	switch stats.Granularity(raw) {
	case stats.GranularityDay, stats.GranularityWeek, stats.GranularityMonth:
		return stats.Granularity(raw), nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "granularity must be day, week, or month")
}

func parseRange(raw string) (stats.Range, error) {
	switch stats.Range(raw) {
	case stats.RangeRolling, stats.RangeFull:
		return stats.Range(raw), nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "range must be rolling or full")
}
