package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"ping-me/internal/logger"
	"ping-me/internal/observability"
)

const lifecycleRoutingKey = "ws_events.live"

// TokenValidator resolves a bearer token to a user id.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (string, error)
}

// PresenceMirror copies the online set to an external store. Failures are
// logged, the registry stays authoritative.
type PresenceMirror interface {
	MarkOnline(ctx context.Context, userID string) error
	MarkOffline(ctx context.Context, userID string) error
}

// LiveHandler accepts the per-user live channel.
type LiveHandler struct {
	registry   *Registry
	dispatcher *Dispatcher
	validator  TokenValidator
	mirror     PresenceMirror
	log        logger.Logger
	opts       ClientOptions
}

func NewLiveHandler(registry *Registry, dispatcher *Dispatcher, validator TokenValidator, mirror PresenceMirror, log logger.Logger, opts ClientOptions) *LiveHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &LiveHandler{
		registry:   registry,
		dispatcher: dispatcher,
		validator:  validator,
		mirror:     mirror,
		log:        log,
		opts:       opts,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates, upgrades and registers the connection, then serves it
// until the peer goes away.
func (h *LiveHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("ping-me/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := tokenFromRequest(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token", "code": "unauthorized"})
		return
	}
	userID, err := h.validator.ValidateToken(ctx, token)
	if err != nil || userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": "unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warnf("ws upgrade failed user=%s: %v", userID, err)
		return
	}

	info := newConnInfo(c.Request, userID, span.SpanContext())
	client := NewClient(conn, info, h.opts)

	// The handshake span ends with this handler; the connection outlives it.
	connCtx := context.WithoutCancel(ctx)
	h.attach(connCtx, client)
	go client.WritePump()
	go h.serve(connCtx, client)
}

func (h *LiveHandler) attach(ctx context.Context, client *Client) {
	info := client.Info()
	if displaced := h.registry.Register(info.UserID, client); displaced != nil {
		h.log.Infof("user=%s reconnected, closing conn=%s", info.UserID, displaced.ID())
		displaced.Close()
	}
	observability.SetWSActive(h.registry.Count())
	observability.IncWSEvent("ws_connect")
	h.publishLifecycle(ctx, info, "ws_connect", "")

	if h.mirror != nil {
		if err := h.mirror.MarkOnline(ctx, info.UserID); err != nil {
			h.log.Warnf("presence mirror online user=%s: %v", info.UserID, err)
		}
	}
	h.dispatcher.PublishPresence(ctx)
}

func (h *LiveHandler) serve(ctx context.Context, client *Client) {
	err := client.ReadPump()
	info := client.Info()

	reason := ""
	if err != nil {
		reason = err.Error()
		if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			observability.IncWSEvent("ws_error")
			h.publishLifecycle(ctx, info, "ws_error", reason)
		}
	}
	h.detach(ctx, client, reason)
}

func (h *LiveHandler) detach(ctx context.Context, client *Client, reason string) {
	info := client.Info()
	client.Close()

	// A displaced connection no longer owns the registry slot; presence is
	// unchanged in that case.
	if h.registry.UnregisterConn(info.UserID, client) {
		if h.mirror != nil {
			if err := h.mirror.MarkOffline(ctx, info.UserID); err != nil {
				h.log.Warnf("presence mirror offline user=%s: %v", info.UserID, err)
			}
		}
		h.dispatcher.PublishPresence(ctx)
	}
	observability.SetWSActive(h.registry.Count())
	observability.IncWSEvent("ws_disconnect")
	h.publishLifecycle(ctx, info, "ws_disconnect", reason)
}

func (h *LiveHandler) publishLifecycle(ctx context.Context, info ConnInfo, event, reason string) {
	ctx = observability.ContextWithHeaders(ctx, observability.BuildHeaders(info.RequestID, info.TraceID))
	err := observability.PublishEvent(ctx, lifecycleRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"kind":        "live",
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	})
	if err != nil {
		h.log.Warnf("publish %s event: %v", event, err)
	}
}
