package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ping-me/internal/models"
	"ping-me/internal/repositories"
)

func TestGetGroupMessages(t *testing.T) {
	d := newDeps()
	router := d.router("bob", nil)
	now := time.Now().UTC()
	d.groups.On("FindByID", mock.Anything, "g1").Return(teamGroup(), nil).Once()
	d.messages.On("FindByConversation", mock.Anything, models.ConversationFilter{GroupID: "g1"}).
		Return([]models.Message{{ID: "m1", GroupID: "g1", SenderID: "alice", Text: "hey", CreatedAt: now}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/g1/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Messages, 1)
	assert.Equal(t, "m1", body.Messages[0].ID)
	d.assertExpectations(t)
}

func TestGetGroupMessagesNonMember(t *testing.T) {
	d := newDeps()
	router := d.router("mallory", nil)
	d.groups.On("FindByID", mock.Anything, "g1").Return(teamGroup(), nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/g1/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	d.messages.AssertNotCalled(t, "FindByConversation", mock.Anything, mock.Anything)
}

func TestGetMessagesUnknownTarget(t *testing.T) {
	d := newDeps()
	router := d.router("alice", nil)
	d.groups.On("FindByID", mock.Anything, "ghost").Return(nil, repositories.ErrGroupNotFound).Once()
	d.users.On("FindByID", mock.Anything, "ghost").Return(nil, repositories.ErrUserNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/ghost/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "target_not_found", decodeError(t, rec).Code)
}

func TestSendDirectMessage(t *testing.T) {
	d := newDeps()
	router := d.router("alice", nil)
	d.groups.On("FindByID", mock.Anything, "bob").Return(nil, repositories.ErrGroupNotFound).Once()
	d.users.On("FindByID", mock.Anything, "bob").Return(models.User{ID: "bob"}, nil).Once()
	d.messages.On("Create", mock.Anything, mock.MatchedBy(func(m models.Message) bool {
		return m.SenderID == "alice" && m.ReceiverID == "bob" && m.GroupID == "" && m.Text == "hi"
	})).Return(models.Message{ID: "m1", SenderID: "alice", ReceiverID: "bob", Text: "hi"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/bob/messages", bytes.NewBufferString(`{"text":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	d.assertExpectations(t)
}

func TestSendEmptyMessage(t *testing.T) {
	d := newDeps()
	router := d.router("alice", nil)

	req := httptest.NewRequest(http.MethodPost, "/conversations/bob/messages", bytes.NewBufferString(`{"text":"  "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "empty_message", decodeError(t, rec).Code)
}

func TestEditMessageNotFound(t *testing.T) {
	d := newDeps()
	router := d.router("alice", nil)
	d.messages.On("FindByID", mock.Anything, "m404").Return(nil, repositories.ErrMessageNotFound).Once()

	req := httptest.NewRequest(http.MethodPatch, "/messages/m404", bytes.NewBufferString(`{"text":"x"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "message_not_found", decodeError(t, rec).Code)
}

func TestDeleteMessageForbidden(t *testing.T) {
	d := newDeps()
	router := d.router("bob", nil)
	d.messages.On("FindByID", mock.Anything, "m1").Return(models.Message{ID: "m1", SenderID: "alice", ReceiverID: "bob"}, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/messages/m1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	d.messages.AssertNotCalled(t, "DeleteByID", mock.Anything, mock.Anything)
}

func TestDeleteMessageSuccess(t *testing.T) {
	d := newDeps()
	router := d.router("alice", nil)
	d.messages.On("FindByID", mock.Anything, "m1").Return(models.Message{ID: "m1", SenderID: "alice", ReceiverID: "bob"}, nil).Once()
	d.messages.On("DeleteByID", mock.Anything, "m1").Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/messages/m1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"deleted","message_id":"m1"}`, rec.Body.String())
	d.assertExpectations(t)
}
