package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ping-me/internal/mocks"
	"ping-me/internal/models"
	"ping-me/internal/repositories"
	"ping-me/internal/telemetry"
)

func teamGroup() models.Group {
	return models.Group{
		ID:        "g1",
		Name:      "team",
		CreatorID: "alice",
		Admins:    []string{"alice"},
		Members:   []string{"alice", "bob"},
	}
}

func TestCreateGroupSuccess(t *testing.T) {
	d := newDeps()
	router := d.router("alice", nil)

	d.users.On("ExistsAll", mock.Anything, []string{"bob"}).Return(true, nil).Once()
	d.groups.On("Create", mock.Anything, mock.MatchedBy(func(g models.Group) bool {
		return g.Name == "test" && g.CreatorID == "alice" && len(g.Members) == 2
	})).Return(models.Group{ID: "g5", Name: "test", CreatorID: "alice", Members: []string{"alice", "bob"}}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups", bytes.NewBufferString(`{"name":"test","member_ids":["bob"]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var body struct {
		Group models.Group `json:"group"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "g5", body.Group.ID)
	d.assertExpectations(t)
}

func TestCreateGroupInvalidBody(t *testing.T) {
	d := newDeps()
	router := d.router("alice", nil)

	req := httptest.NewRequest(http.MethodPost, "/groups", bytes.NewBufferString(`{"name":5}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", decodeError(t, rec).Code)
}

func TestCreateGroupEmptyMembership(t *testing.T) {
	d := newDeps()
	router := d.router("alice", nil)

	req := httptest.NewRequest(http.MethodPost, "/groups", bytes.NewBufferString(`{"name":"solo","member_ids":[]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "empty_membership", decodeError(t, rec).Code)
	d.assertExpectations(t)
}

func TestListGroupsStorageFailure(t *testing.T) {
	d := newDeps()
	router := d.router("alice", nil)
	d.groups.On("FindByMemberID", mock.Anything, "alice").Return(nil, errors.New("connection refused")).Once()

	req := httptest.NewRequest(http.MethodGet, "/groups", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "storage_failure", decodeError(t, rec).Code)
}

func TestAddMemberGroupNotFound(t *testing.T) {
	d := newDeps()
	router := d.router("alice", nil)
	d.groups.On("FindByID", mock.Anything, "nope").Return(nil, repositories.ErrGroupNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/nope/members", bytes.NewBufferString(`{"member_id":"carol"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "group_not_found", decodeError(t, rec).Code)
}

func TestAddMemberAlreadyMemberEmitsAudit(t *testing.T) {
	d := newDeps()
	pub := new(mocks.PublisherMock)
	audit := telemetry.NewAuditEmitter(pub, "audit.ping_me", "ping-me", "test")
	router := d.router("alice", audit)

	d.groups.On("FindByID", mock.Anything, "g1").Return(teamGroup(), nil).Once()
	pub.On("Publish", mock.Anything, "audit.ping_me", mock.MatchedBy(func(env telemetry.AuditEnvelope) bool {
		return env.Payload.Code == "already_member" && env.Payload.Level == "ERROR" && env.UserID != nil && *env.UserID == "alice"
	})).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/g1/members", bytes.NewBufferString(`{"member_id":"bob"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_member", decodeError(t, rec).Code)
	pub.AssertExpectations(t)
	d.assertExpectations(t)
}

func TestAddMemberSuccess(t *testing.T) {
	d := newDeps()
	router := d.router("alice", nil)
	after := teamGroup()
	after.Members = append(after.Members, "carol")

	d.groups.On("FindByID", mock.Anything, "g1").Return(teamGroup(), nil).Once()
	d.users.On("FindByID", mock.Anything, "carol").Return(models.User{ID: "carol"}, nil).Once()
	d.groups.On("Save", mock.Anything, after).Return(nil).Once()
	d.groups.On("FindByID", mock.Anything, "g1").Return(after, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/g1/members", bytes.NewBufferString(`{"member_id":"carol"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	d.assertExpectations(t)
}

func TestAddMemberMissingBody(t *testing.T) {
	d := newDeps()
	router := d.router("alice", nil)

	req := httptest.NewRequest(http.MethodPost, "/groups/g1/members", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveMemberForbidden(t *testing.T) {
	d := newDeps()
	router := d.router("bob", nil)
	d.groups.On("FindByID", mock.Anything, "g1").Return(teamGroup(), nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/groups/g1/members/alice", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeError(t, rec).Code)
}

func TestLeaveGroupCreatorConflict(t *testing.T) {
	d := newDeps()
	router := d.router("alice", nil)
	d.groups.On("FindByID", mock.Anything, "g1").Return(teamGroup(), nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/g1/leave", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "creator_cannot_leave", decodeError(t, rec).Code)
}

func TestUpdateGroupUploadFailure(t *testing.T) {
	d := newDeps()
	router := d.router("alice", nil)
	d.groups.On("FindByID", mock.Anything, "g1").Return(teamGroup(), nil).Once()
	d.uploader.On("Upload", mock.Anything, "data:image/png;base64,AAAA", mock.Anything).Return("", errors.New("timeout")).Once()

	req := httptest.NewRequest(http.MethodPatch, "/groups/g1", bytes.NewBufferString(`{"profile_pic":"data:image/png;base64,AAAA"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "media_upload_failed", decodeError(t, rec).Code)
	d.groups.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
