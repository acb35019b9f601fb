package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ping-me/internal/apperr"
	"ping-me/internal/telemetry"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) *string {
	if userID := c.GetString("userID"); userID != "" {
		return &userID
	}
	if header := c.GetHeader("X-User-ID"); header != "" {
		return &header
	}
	return nil
}

func callerID(c *gin.Context) string {
	return c.GetString("userID")
}

// auditor is embedded by every handler that emits audit records.
type auditor struct {
	audit *telemetry.AuditEmitter
}

func (a auditor) emitAudit(c *gin.Context, level, text, code string) {
	if a.audit == nil {
		return
	}
	a.audit.Emit(c.Request.Context(), telemetry.AuditRecord{
		Level:     level,
		Text:      text,
		Code:      code,
		RequestID: requestIDFromContext(c),
		UserID:    userIDFromContext(c),
	})
}

// fail writes err as {"error","code"} with the status of its kind and
// records it in the audit log.
func (a auditor) fail(c *gin.Context, err error) {
	appErr := apperr.As(err)
	if appErr.Kind == apperr.KindInternal || appErr.Kind == apperr.KindUpstream {
		_ = c.Error(err)
	}
	a.emitAudit(c, telemetry.LevelError, appErr.Message, appErr.Code)
	c.JSON(statusFor(appErr.Kind), gin.H{"error": appErr.Message, "code": appErr.Code})
}

func (a auditor) badRequest(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		err = apperr.ErrInvalidInput.WithMessage("invalid request payload")
	}
	a.fail(c, err)
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
