package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type publisherMock struct {
	mock.Mock
}

func (m *publisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *publisherMock) Close() error { return nil }

func TestEmitBuildsEnvelope(t *testing.T) {
	pub := new(publisherMock)
	emitter := NewAuditEmitter(pub, "audit.ping_me", "ping-me", "test")
	emitter.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	var captured AuditEnvelope
	pub.On("Publish", mock.Anything, "audit.ping_me", mock.AnythingOfType("telemetry.AuditEnvelope")).
		Run(func(args mock.Arguments) { captured = args.Get(2).(AuditEnvelope) }).
		Return(nil).Once()

	user := "u1"
	emitter.Emit(context.Background(), AuditRecord{
		Level:     LevelError,
		Text:      "member already in group",
		Code:      "already_member",
		RequestID: "req-1",
		UserID:    &user,
	})

	pub.AssertExpectations(t)
	require.NotNil(t, captured.UserID)
	assert.Equal(t, "u1", *captured.UserID)
	assert.Equal(t, "audit_log", captured.EventType)
	assert.Equal(t, "2024-05-01T12:00:00Z", captured.OccurredAt)
	assert.Equal(t, "already_member", captured.Payload.Code)
	assert.Equal(t, "req-1", captured.RequestID)
}

func TestEmitDefaultsLevel(t *testing.T) {
	pub := new(publisherMock)
	emitter := NewAuditEmitter(pub, "audit.ping_me", "ping-me", "test")

	pub.On("Publish", mock.Anything, "audit.ping_me", mock.MatchedBy(func(env AuditEnvelope) bool {
		return env.Payload.Level == LevelInfo && env.UserID == nil && env.Service == "ping-me"
	})).Return(assert.AnError).Once()

	emitter.Emit(context.Background(), AuditRecord{Text: "Group created"})
	pub.AssertExpectations(t)
}

func TestNilEmitterIsSafe(t *testing.T) {
	var emitter *AuditEmitter
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), AuditRecord{Text: "ok"})
	})
}

func TestInitTracerWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "ping-me", "test", "")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
