package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/bim4d-backend-go/internal/models"
	"github.com/jengzang/bim4d-backend-go/internal/service"
	"github.com/jengzang/bim4d-backend-go/pkg/response"
)

// ScheduleHandler handles schedule queries, classification and import
type ScheduleHandler struct {
	sequenceService *service.SequenceService
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(sequenceService *service.SequenceService) *ScheduleHandler {
	return &ScheduleHandler{sequenceService: sequenceService}
}

// ListSchedules handles GET /api/v1/schedules
func (h *ScheduleHandler) ListSchedules(c *gin.Context) {
	schedules, err := h.sequenceService.ListSchedules(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, schedules)
}

// ListProducts handles GET /api/v1/products
func (h *ScheduleHandler) ListProducts(c *gin.Context) {
	products, err := h.sequenceService.ListProducts(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, products)
}

// GetDates handles GET /api/v1/schedules/:id/dates
func (h *ScheduleHandler) GetDates(c *gin.Context) {
	id, ok := scheduleID(c)
	if !ok {
		return
	}
	dates, err := h.sequenceService.ScheduleDates(c.Request.Context(), id, c.Query("source"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, dates)
}

// GetHierarchy handles GET /api/v1/schedules/:id/hierarchy
func (h *ScheduleHandler) GetHierarchy(c *gin.Context) {
	id, ok := scheduleID(c)
	if !ok {
		return
	}
	hierarchy, err := h.sequenceService.Hierarchy(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, hierarchy)
}

// Classify handles GET /api/v1/schedules/:id/classify?date=&source=&viz_start=&viz_finish=
func (h *ScheduleHandler) Classify(c *gin.Context) {
	id, ok := scheduleID(c)
	if !ok {
		return
	}
	date, ok := optionalTime(c, "date")
	if !ok {
		return
	}
	if date == nil {
		response.BadRequest(c, "date parameter is required")
		return
	}
	vizStart, ok := optionalTime(c, "viz_start")
	if !ok {
		return
	}
	vizFinish, ok := optionalTime(c, "viz_finish")
	if !ok {
		return
	}

	result, err := h.sequenceService.Classify(c.Request.Context(), id, service.ClassifyRequest{
		Date:   *date,
		Source: c.Query("source"),
		Window: models.Window{Start: vizStart, Finish: vizFinish},
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, result)
}

// Snapshot handles POST /api/v1/schedules/:id/snapshot
func (h *ScheduleHandler) Snapshot(c *gin.Context) {
	id, ok := scheduleID(c)
	if !ok {
		return
	}
	var req service.SnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	snap, err := h.sequenceService.Snapshot(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, snap)
}

type interpolateRequest struct {
	Source   string    `json:"source"`
	Progress []float64 `json:"progress" binding:"required"`
}

// Interpolate handles POST /api/v1/schedules/:id/interpolate
func (h *ScheduleHandler) Interpolate(c *gin.Context) {
	id, ok := scheduleID(c)
	if !ok {
		return
	}
	var req interpolateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	dates, err := h.sequenceService.DateInterpolation(c.Request.Context(), id, req.Source, req.Progress)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, dates)
}

// Import handles POST /api/v1/documents
func (h *ScheduleHandler) Import(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "Failed to read request body")
		return
	}
	result, err := h.sequenceService.Import(c.Request.Context(), body)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, result)
}

// CacheStats handles GET /api/v1/cache/stats
func (h *ScheduleHandler) CacheStats(c *gin.Context) {
	response.Success(c, h.sequenceService.CacheStats())
}

// ClearCache handles DELETE /api/v1/cache
func (h *ScheduleHandler) ClearCache(c *gin.Context) {
	h.sequenceService.ClearCache()
	response.Success(c, gin.H{"cleared": true})
}
