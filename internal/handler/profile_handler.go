package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/bim4d-backend-go/internal/profile"
	"github.com/jengzang/bim4d-backend-go/internal/service"
	"github.com/jengzang/bim4d-backend-go/pkg/response"
)

// ProfileHandler handles appearance profile groups, overrides and the
// animation group stack
type ProfileHandler struct {
	sequenceService *service.SequenceService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(sequenceService *service.SequenceService) *ProfileHandler {
	return &ProfileHandler{sequenceService: sequenceService}
}

// ListGroups handles GET /api/v1/profiles/groups
func (h *ProfileHandler) ListGroups(c *gin.Context) {
	groups, err := h.sequenceService.ProfileGroups(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, groups)
}

// SaveGroup handles PUT /api/v1/profiles/groups/:name
func (h *ProfileHandler) SaveGroup(c *gin.Context) {
	var profiles []profile.Profile
	if err := c.ShouldBindJSON(&profiles); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	group := service.ProfileGroup{Name: c.Param("name"), Profiles: profiles}
	if err := h.sequenceService.SaveProfileGroup(c.Request.Context(), group); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, group)
}

// DeleteGroup handles DELETE /api/v1/profiles/groups/:name
func (h *ProfileHandler) DeleteGroup(c *gin.Context) {
	if err := h.sequenceService.DeleteProfileGroup(c.Request.Context(), c.Param("name")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": c.Param("name")})
}

type ensureProfileRequest struct {
	Name string `json:"name" binding:"required"`
}

// EnsureProfile handles POST /api/v1/profiles/groups/:name/profiles
func (h *ProfileHandler) EnsureProfile(c *gin.Context) {
	var req ensureProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	created, err := h.sequenceService.EnsureProfile(c.Request.Context(), c.Param("name"), req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"created": created})
}

// Resolve handles GET /api/v1/profiles/resolve?task_id=&type=&group=
func (h *ProfileHandler) Resolve(c *gin.Context) {
	taskID, err := strconv.ParseInt(c.DefaultQuery("task_id", "0"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid task_id parameter")
		return
	}
	res, err := h.sequenceService.ResolveProfile(c.Request.Context(), taskID, c.Query("type"), c.Query("group"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, res)
}

// ListAssignments handles GET /api/v1/profiles/assignments
func (h *ProfileHandler) ListAssignments(c *gin.Context) {
	assignments, err := h.sequenceService.Assignments(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, assignments)
}

// SetAssignment handles PUT /api/v1/profiles/assignments/:taskId
func (h *ProfileHandler) SetAssignment(c *gin.Context) {
	taskID, err := strconv.ParseInt(c.Param("taskId"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid task id")
		return
	}
	var a profile.Assignment
	if err := c.ShouldBindJSON(&a); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if err := h.sequenceService.SetAssignment(c.Request.Context(), taskID, a); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, a)
}

// GetStack handles GET /api/v1/profiles/stack
func (h *ProfileHandler) GetStack(c *gin.Context) {
	stack, active, err := h.sequenceService.GroupStack(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"stack": stack, "active": active})
}

// SetStack handles PUT /api/v1/profiles/stack
func (h *ProfileHandler) SetStack(c *gin.Context) {
	var stack profile.GroupStack
	if err := c.ShouldBindJSON(&stack); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if err := h.sequenceService.SetGroupStack(c.Request.Context(), stack); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"stack": stack, "active": stack.Active()})
}
