package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/bim4d-backend-go/internal/service"
	"github.com/jengzang/bim4d-backend-go/pkg/response"
)

// AnimationHandler handles animation layout, baking and live playback
type AnimationHandler struct {
	sequenceService *service.SequenceService
}

// NewAnimationHandler creates a new animation handler
func NewAnimationHandler(sequenceService *service.SequenceService) *AnimationHandler {
	return &AnimationHandler{sequenceService: sequenceService}
}

func (h *AnimationHandler) bind(c *gin.Context) (int64, service.AnimationRequest, bool) {
	var req service.AnimationRequest
	id, ok := scheduleID(c)
	if !ok {
		return 0, req, false
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return 0, req, false
	}
	return id, req, true
}

// Settings handles POST /api/v1/schedules/:id/settings
func (h *AnimationHandler) Settings(c *gin.Context) {
	id, req, ok := h.bind(c)
	if !ok {
		return
	}
	settings, err := h.sequenceService.AnimationSettings(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"settings": settings, "end_frame": settings.EndFrame()})
}

// Timeline handles POST /api/v1/schedules/:id/timeline
func (h *AnimationHandler) Timeline(c *gin.Context) {
	id, req, ok := h.bind(c)
	if !ok {
		return
	}
	plan, err := h.sequenceService.Timeline(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, plan)
}

// FrameStates handles POST /api/v1/schedules/:id/frame-states
func (h *AnimationHandler) FrameStates(c *gin.Context) {
	id, req, ok := h.bind(c)
	if !ok {
		return
	}
	states, err := h.sequenceService.FrameStates(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, states)
}

// Keyframes handles POST /api/v1/schedules/:id/keyframes
func (h *AnimationHandler) Keyframes(c *gin.Context) {
	id, req, ok := h.bind(c)
	if !ok {
		return
	}
	keyframes, plan, err := h.sequenceService.Keyframes(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"settings": plan.Settings, "group": plan.Group, "keyframes": keyframes})
}

// Bake handles POST /api/v1/schedules/:id/bake
func (h *AnimationHandler) Bake(c *gin.Context) {
	id, req, ok := h.bind(c)
	if !ok {
		return
	}
	result, err := h.sequenceService.Bake(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, result)
}

// StartLive handles POST /api/v1/schedules/:id/live
func (h *AnimationHandler) StartLive(c *gin.Context) {
	id, req, ok := h.bind(c)
	if !ok {
		return
	}
	status, err := h.sequenceService.StartLive(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, status)
}

// LiveStatus handles GET /api/v1/live
func (h *AnimationHandler) LiveStatus(c *gin.Context) {
	response.Success(c, h.sequenceService.LiveStatus())
}

type frameRequest struct {
	Frame *int `json:"frame" binding:"required"`
}

// SetFrame handles PUT /api/v1/live/frame
func (h *AnimationHandler) SetFrame(c *gin.Context) {
	var req frameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	response.Success(c, h.sequenceService.SetFrame(*req.Frame))
}

// StopLive handles DELETE /api/v1/live
func (h *AnimationHandler) StopLive(c *gin.Context) {
	h.sequenceService.StopLive()
	response.Success(c, h.sequenceService.LiveStatus())
}

// SceneObjects handles GET /api/v1/scene/objects
func (h *AnimationHandler) SceneObjects(c *gin.Context) {
	response.Success(c, h.sequenceService.SceneObjects())
}

// SceneObject handles GET /api/v1/scene/objects/:productId
func (h *AnimationHandler) SceneObject(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid product id")
		return
	}
	obj, ok := h.sequenceService.SceneObject(id)
	if !ok {
		response.NotFound(c, "Product has no scene state")
		return
	}
	response.Success(c, obj)
}
