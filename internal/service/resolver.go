package service

import (
	"context"
	"errors"

	"ping-me/internal/apperr"
	"ping-me/internal/models"
	"ping-me/internal/repositories"
)

// Resolver decides whether an id names a group or a user. Groups win when
// both exist. Nothing is cached; every send and fetch resolves again.
type Resolver struct {
	groups repositories.GroupRepository
	users  repositories.UserRepository
}

func NewResolver(groups repositories.GroupRepository, users repositories.UserRepository) *Resolver {
	return &Resolver{groups: groups, users: users}
}

func (r *Resolver) Resolve(ctx context.Context, targetID string) (models.ConversationTarget, error) {
	if targetID == "" {
		return models.ConversationTarget{}, apperr.ErrTargetNotFound
	}

	group, err := r.groups.FindByID(ctx, targetID)
	if err == nil {
		return models.GroupTarget(group), nil
	}
	if !errors.Is(err, repositories.ErrGroupNotFound) {
		return models.ConversationTarget{}, classify(err)
	}

	if _, err := r.users.FindByID(ctx, targetID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.ConversationTarget{}, apperr.ErrTargetNotFound
		}
		return models.ConversationTarget{}, classify(err)
	}
	return models.Direct(targetID), nil
}
