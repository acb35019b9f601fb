package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ping-me/internal/service"
	"ping-me/internal/telemetry"
)

// MessageHandler serves both direct and group conversations. The target id
// is resolved by the service on every request.
type MessageHandler struct {
	auditor
	messages *service.MessageService
}

func NewMessageHandler(messages *service.MessageService, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{auditor: auditor{audit: audit}, messages: messages}
}

// GetMessages handles GET /conversations/:target_id/messages.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	msgs, err := h.messages.GetMessages(c.Request.Context(), c.Param("target_id"), callerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendMessage handles POST /conversations/:target_id/messages.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req struct {
		Text  string `json:"text"`
		Image string `json:"image"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	msg, err := h.messages.Send(c.Request.Context(), c.Param("target_id"), callerID(c), service.SendInput{Text: req.Text, Image: req.Image})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.emitAudit(c, telemetry.LevelInfo, "Message sent", "")
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// EditMessage handles PATCH /messages/:message_id.
func (h *MessageHandler) EditMessage(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	msg, err := h.messages.Edit(c.Request.Context(), c.Param("message_id"), callerID(c), req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.emitAudit(c, telemetry.LevelInfo, "Message edited", "")
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// DeleteMessage handles DELETE /messages/:message_id.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	messageID := c.Param("message_id")
	if err := h.messages.Delete(c.Request.Context(), messageID, callerID(c)); err != nil {
		h.fail(c, err)
		return
	}

	h.emitAudit(c, telemetry.LevelInfo, "Message deleted", "")
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "message_id": messageID})
}
