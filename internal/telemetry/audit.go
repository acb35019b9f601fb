package telemetry

import (
	"context"
	"log"
	"time"
)

const (
	LevelInfo  = "INFO"
	LevelError = "ERROR"

	auditSchemaVersion = 1
	auditEventType     = "audit_log"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// AuditRecord is one user-initiated outcome. Code is the stable error code
// for failures and empty for successes.
type AuditRecord struct {
	Level     string
	Text      string
	Code      string
	RequestID string
	UserID    *string
}

// AuditEnvelope is the wire shape consumed by the audit pipeline.
type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        *string      `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level string `json:"level"`
	Text  string `json:"text"`
	Code  string `json:"code,omitempty"`
}

type AuditEmitter struct {
	publisher  Publisher
	routingKey string
	origin     struct{ service, environment string }
	now        func() time.Time
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	e := &AuditEmitter{publisher: publisher, routingKey: routingKey, now: time.Now}
	e.origin.service = service
	e.origin.environment = environment
	return e
}

func (e *AuditEmitter) envelope(rec AuditRecord) AuditEnvelope {
	return AuditEnvelope{
		SchemaVersion: auditSchemaVersion,
		EventType:     auditEventType,
		OccurredAt:    e.now().UTC().Format(time.RFC3339Nano),
		Service:       e.origin.service,
		Environment:   e.origin.environment,
		RequestID:     rec.RequestID,
		UserID:        rec.UserID,
		Payload:       AuditPayload{Level: rec.Level, Text: rec.Text, Code: rec.Code},
	}
}

// Emit is fire-and-forget: publish failures are logged, never returned.
func (e *AuditEmitter) Emit(ctx context.Context, rec AuditRecord) {
	if e == nil || e.publisher == nil {
		return
	}
	if rec.Level == "" {
		rec.Level = LevelInfo
	}
	if err := e.publisher.Publish(ctx, e.routingKey, e.envelope(rec)); err != nil {
		log.Printf("audit publish failed routing_key=%s: %v", e.routingKey, err)
	}
}
