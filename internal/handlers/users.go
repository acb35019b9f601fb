package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ping-me/internal/service"
)

type UserHandler struct {
	auditor
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// ListUsers handles GET /users.
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.users.Sidebar(c.Request.Context(), callerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// ListOnline handles GET /users/online.
func (h *UserHandler) ListOnline(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"online_users": h.users.Online()})
}

// Register mounts every REST route behind auth.
func Register(router gin.IRouter, auth gin.HandlerFunc, users *UserHandler, groups *GroupHandler, messages *MessageHandler) {
	api := router.Group("/", auth)

	api.GET("/users", users.ListUsers)
	api.GET("/users/online", users.ListOnline)

	api.POST("/groups", groups.CreateGroup)
	api.GET("/groups", groups.ListGroups)
	api.PATCH("/groups/:group_id", groups.UpdateGroup)
	api.POST("/groups/:group_id/members", groups.AddMember)
	api.DELETE("/groups/:group_id/members/:member_id", groups.RemoveMember)
	api.POST("/groups/:group_id/leave", groups.LeaveGroup)

	api.GET("/conversations/:target_id/messages", messages.GetMessages)
	api.POST("/conversations/:target_id/messages", messages.SendMessage)
	api.PATCH("/messages/:message_id", messages.EditMessage)
	api.DELETE("/messages/:message_id", messages.DeleteMessage)
}
