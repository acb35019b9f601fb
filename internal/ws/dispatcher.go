package ws

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"ping-me/internal/logger"
	"ping-me/internal/models"
	"ping-me/internal/observability"
)

// Dispatcher pushes events to the live connections of an audience.
// Delivery is best effort: offline users are skipped and a saturated
// connection is closed so the client reconnects and refetches.
type Dispatcher struct {
	registry *Registry
	log      logger.Logger
}

func NewDispatcher(registry *Registry, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{registry: registry, log: log}
}

// Publish delivers event to every audience member except the excluded ids
// and returns how many connections accepted it. It never blocks on a slow
// connection and never reports failure to the caller.
func (d *Dispatcher) Publish(ctx context.Context, event models.Event, audience []string, excluding ...string) int {
	_, span := otel.Tracer("ping-me/ws").Start(ctx, "dispatcher.publish")
	defer span.End()

	payload, err := json.Marshal(event)
	if err != nil {
		d.log.Errorf("encode %s event: %v", event.Type, err)
		return 0
	}

	skip := make(map[string]struct{}, len(excluding))
	for _, id := range excluding {
		skip[id] = struct{}{}
	}

	delivered := 0
	for _, userID := range models.UniqueIDs(audience) {
		if _, ok := skip[userID]; ok {
			continue
		}
		conn, ok := d.registry.Lookup(userID)
		if !ok {
			observability.IncFanout(string(event.Type), "offline")
			continue
		}
		if !conn.Enqueue(payload) {
			d.log.Warnf("dropping saturated connection user=%s conn=%s event=%s", userID, conn.ID(), event.Type)
			observability.IncFanout(string(event.Type), "saturated")
			conn.Close()
			continue
		}
		observability.IncFanout(string(event.Type), "delivered")
		delivered++
	}

	span.SetAttributes(
		attribute.String("event.type", string(event.Type)),
		attribute.Int("fanout.audience", len(audience)),
		attribute.Int("fanout.delivered", delivered),
	)
	return delivered
}

// PublishPresence broadcasts the current online set to everyone online.
func (d *Dispatcher) PublishPresence(ctx context.Context) int {
	online := d.registry.ListOnline()
	return d.Publish(ctx, models.OnlineUsersEvent(online), online)
}
