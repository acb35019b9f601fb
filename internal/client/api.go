package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ping-me/internal/models"
)

// API is the remote surface the store drives. Every mutation returns the
// server's view of the changed entity.
type API interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	OnlineUsers(ctx context.Context) ([]string, error)
	ListGroups(ctx context.Context) ([]models.Group, error)
	GetMessages(ctx context.Context, targetID string) ([]models.Message, error)
	SendMessage(ctx context.Context, targetID, text, image string) (models.Message, error)
	EditMessage(ctx context.Context, messageID, text string) (models.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error
	CreateGroup(ctx context.Context, name string, memberIDs []string, profilePic string) (models.Group, error)
	AddMember(ctx context.Context, groupID, memberID string) (models.Group, error)
	RemoveMember(ctx context.Context, groupID, memberID string) (models.Group, error)
	LeaveGroup(ctx context.Context, groupID string) (models.Group, error)
	UpdateGroup(ctx context.Context, groupID string, patch models.GroupPatch) (models.Group, error)
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return e.Code + ": " + e.Message
}

// HTTPAPI talks to the REST surface with a bearer token.
type HTTPAPI struct {
	base   string
	token  string
	client *http.Client
}

func NewHTTPAPI(baseURL, token string) *HTTPAPI {
	return &HTTPAPI{
		base:   strings.TrimRight(baseURL, "/"),
		token:  token,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *HTTPAPI) ListUsers(ctx context.Context) ([]models.User, error) {
	var out struct {
		Users []models.User `json:"users"`
	}
	err := a.do(ctx, http.MethodGet, "/users", nil, &out)
	return out.Users, err
}

func (a *HTTPAPI) OnlineUsers(ctx context.Context) ([]string, error) {
	var out struct {
		OnlineUsers []string `json:"online_users"`
	}
	err := a.do(ctx, http.MethodGet, "/users/online", nil, &out)
	return out.OnlineUsers, err
}

func (a *HTTPAPI) ListGroups(ctx context.Context) ([]models.Group, error) {
	var out struct {
		Groups []models.Group `json:"groups"`
	}
	err := a.do(ctx, http.MethodGet, "/groups", nil, &out)
	return out.Groups, err
}

func (a *HTTPAPI) GetMessages(ctx context.Context, targetID string) ([]models.Message, error) {
	var out struct {
		Messages []models.Message `json:"messages"`
	}
	err := a.do(ctx, http.MethodGet, "/conversations/"+url.PathEscape(targetID)+"/messages", nil, &out)
	return out.Messages, err
}

func (a *HTTPAPI) SendMessage(ctx context.Context, targetID, text, image string) (models.Message, error) {
	var out struct {
		Message models.Message `json:"message"`
	}
	body := map[string]string{"text": text, "image": image}
	err := a.do(ctx, http.MethodPost, "/conversations/"+url.PathEscape(targetID)+"/messages", body, &out)
	return out.Message, err
}

func (a *HTTPAPI) EditMessage(ctx context.Context, messageID, text string) (models.Message, error) {
	var out struct {
		Message models.Message `json:"message"`
	}
	err := a.do(ctx, http.MethodPatch, "/messages/"+url.PathEscape(messageID), map[string]string{"text": text}, &out)
	return out.Message, err
}

func (a *HTTPAPI) DeleteMessage(ctx context.Context, messageID string) error {
	return a.do(ctx, http.MethodDelete, "/messages/"+url.PathEscape(messageID), nil, nil)
}

func (a *HTTPAPI) CreateGroup(ctx context.Context, name string, memberIDs []string, profilePic string) (models.Group, error) {
	body := map[string]interface{}{"name": name, "member_ids": memberIDs, "profile_pic": profilePic}
	return a.group(ctx, http.MethodPost, "/groups", body)
}

func (a *HTTPAPI) AddMember(ctx context.Context, groupID, memberID string) (models.Group, error) {
	return a.group(ctx, http.MethodPost, "/groups/"+url.PathEscape(groupID)+"/members", map[string]string{"member_id": memberID})
}

func (a *HTTPAPI) RemoveMember(ctx context.Context, groupID, memberID string) (models.Group, error) {
	return a.group(ctx, http.MethodDelete, "/groups/"+url.PathEscape(groupID)+"/members/"+url.PathEscape(memberID), nil)
}

func (a *HTTPAPI) LeaveGroup(ctx context.Context, groupID string) (models.Group, error) {
	return a.group(ctx, http.MethodPost, "/groups/"+url.PathEscape(groupID)+"/leave", nil)
}

func (a *HTTPAPI) UpdateGroup(ctx context.Context, groupID string, patch models.GroupPatch) (models.Group, error) {
	return a.group(ctx, http.MethodPatch, "/groups/"+url.PathEscape(groupID), patch)
}

func (a *HTTPAPI) group(ctx context.Context, method, path string, body interface{}) (models.Group, error) {
	var out struct {
		Group models.Group `json:"group"`
	}
	err := a.do(ctx, method, path, body, &out)
	return out.Group, err
}

func (a *HTTPAPI) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.base+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &APIError{Status: resp.StatusCode, Code: payload.Code, Message: payload.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
