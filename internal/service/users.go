package service

import (
	"context"

	"ping-me/internal/models"
	"ping-me/internal/repositories"
)

// OnlineLister reports who currently holds a live connection.
type OnlineLister interface {
	ListOnline() []string
}

// UserService backs the sidebar and presence reads.
type UserService struct {
	users  repositories.UserRepository
	online OnlineLister
}

func NewUserService(users repositories.UserRepository, online OnlineLister) *UserService {
	return &UserService{users: users, online: online}
}

// Sidebar lists every user except the caller.
func (s *UserService) Sidebar(ctx context.Context, userID string) ([]models.User, error) {
	users, err := s.users.ListExcept(ctx, userID)
	if err != nil {
		return nil, classify(err)
	}
	return users, nil
}

func (s *UserService) Online() []string {
	return s.online.ListOnline()
}
