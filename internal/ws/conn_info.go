package ws

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"ping-me/internal/observability"
)

// ConnInfo describes one accepted live connection. It rides on every
// lifecycle event published for the connection.
type ConnInfo struct {
	ConnID      string
	UserID      string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func newConnInfo(r *http.Request, userID string, span trace.SpanContext) ConnInfo {
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(r),
		IP:          observability.IPFromRequest(r),
		RequestID:   observability.RequestIDFromRequest(r),
		ConnectedAt: time.Now(),
	}
	if span.HasTraceID() {
		info.TraceID = span.TraceID().String()
	}
	return info
}
