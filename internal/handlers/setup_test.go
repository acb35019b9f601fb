package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"ping-me/internal/logger"
	"ping-me/internal/mocks"
	"ping-me/internal/service"
	"ping-me/internal/telemetry"
	"ping-me/internal/ws"
)

type deps struct {
	users    *mocks.UserRepositoryMock
	groups   *mocks.GroupRepositoryMock
	messages *mocks.MessageRepositoryMock
	uploader *mocks.UploaderMock
	registry *ws.Registry
}

func newDeps() *deps {
	return &deps{
		users:    new(mocks.UserRepositoryMock),
		groups:   new(mocks.GroupRepositoryMock),
		messages: new(mocks.MessageRepositoryMock),
		uploader: new(mocks.UploaderMock),
		registry: ws.NewRegistry(),
	}
}

func (d *deps) assertExpectations(t *testing.T) {
	d.users.AssertExpectations(t)
	d.groups.AssertExpectations(t)
	d.messages.AssertExpectations(t)
	d.uploader.AssertExpectations(t)
}

// router mounts every route with the caller fixed to userID.
func (d *deps) router(userID string, audit *telemetry.AuditEmitter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	dispatcher := ws.NewDispatcher(d.registry, logger.Nop())
	resolver := service.NewResolver(d.groups, d.users)

	groups := service.NewGroupService(d.groups, d.users, d.uploader, dispatcher, logger.Nop())
	messages := service.NewMessageService(resolver, d.groups, d.messages, d.uploader, dispatcher, logger.Nop())
	users := service.NewUserService(d.users, d.registry)

	r := gin.New()
	fakeAuth := func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	}
	Register(r, fakeAuth, NewUserHandler(users), NewGroupHandler(groups, audit), NewMessageHandler(messages, audit))
	return r
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}
