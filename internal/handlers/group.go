package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ping-me/internal/models"
	"ping-me/internal/service"
	"ping-me/internal/telemetry"
)

// GroupHandler manages group-related endpoints.
type GroupHandler struct {
	auditor
	groups *service.GroupService
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(groups *service.GroupService, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{auditor: auditor{audit: audit}, groups: groups}
}

// CreateGroup handles POST /groups.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req struct {
		Name       string   `json:"name"`
		MemberIDs  []string `json:"member_ids"`
		ProfilePic string   `json:"profile_pic"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	group, err := h.groups.Create(c.Request.Context(), callerID(c), service.CreateGroupInput{
		Name:       req.Name,
		MemberIDs:  req.MemberIDs,
		ProfilePic: req.ProfilePic,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.emitAudit(c, telemetry.LevelInfo, "Group created", "")
	c.JSON(http.StatusCreated, gin.H{"group": group})
}

// ListGroups returns groups the caller belongs to.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	groups, err := h.groups.List(c.Request.Context(), callerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// AddMember handles POST /groups/:group_id/members.
func (h *GroupHandler) AddMember(c *gin.Context) {
	var req struct {
		MemberID string `json:"member_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	group, err := h.groups.AddMember(c.Request.Context(), c.Param("group_id"), callerID(c), req.MemberID)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.emitAudit(c, telemetry.LevelInfo, "Member added", "")
	c.JSON(http.StatusOK, gin.H{"group": group})
}

// RemoveMember handles DELETE /groups/:group_id/members/:member_id.
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	group, err := h.groups.RemoveMember(c.Request.Context(), c.Param("group_id"), callerID(c), c.Param("member_id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	h.emitAudit(c, telemetry.LevelInfo, "Member removed", "")
	c.JSON(http.StatusOK, gin.H{"group": group})
}

// LeaveGroup handles POST /groups/:group_id/leave.
func (h *GroupHandler) LeaveGroup(c *gin.Context) {
	group, err := h.groups.Leave(c.Request.Context(), c.Param("group_id"), callerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	h.emitAudit(c, telemetry.LevelInfo, "Left group", "")
	c.JSON(http.StatusOK, gin.H{"group": group})
}

// UpdateGroup handles PATCH /groups/:group_id.
func (h *GroupHandler) UpdateGroup(c *gin.Context) {
	var patch models.GroupPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.badRequest(c, err)
		return
	}

	group, err := h.groups.Update(c.Request.Context(), c.Param("group_id"), callerID(c), patch)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.emitAudit(c, telemetry.LevelInfo, "Group updated", "")
	c.JSON(http.StatusOK, gin.H{"group": group})
}
