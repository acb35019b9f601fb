package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ping-me/internal/apperr"
	"ping-me/internal/logger"
	"ping-me/internal/media"
	"ping-me/internal/models"
	"ping-me/internal/repositories"
)

var groupAvatar = media.Options{Folder: "chat_app/groups", MaxWidth: 400, MaxHeight: 400}

// CreateGroupInput is the caller-supplied part of a new group.
type CreateGroupInput struct {
	Name       string
	MemberIDs  []string
	ProfilePic string
}

// GroupService owns group membership. Every check runs before any write and
// every successful mutation is pushed to the post-mutation member set.
type GroupService struct {
	groups    repositories.GroupRepository
	users     repositories.UserRepository
	uploader  media.Uploader
	publisher Publisher
	log       logger.Logger
	newID     func() string
}

func NewGroupService(groups repositories.GroupRepository, users repositories.UserRepository, uploader media.Uploader, publisher Publisher, log logger.Logger) *GroupService {
	if log == nil {
		log = logger.Nop()
	}
	return &GroupService{
		groups:    groups,
		users:     users,
		uploader:  uploader,
		publisher: publisher,
		log:       log,
		newID:     uuid.NewString,
	}
}

func (s *GroupService) Create(ctx context.Context, creatorID string, in CreateGroupInput) (models.Group, error) {
	ctx, span := tracer.Start(ctx, "groups.create")
	defer span.End()

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Group{}, fail(span, apperr.ErrInvalidName)
	}

	others := make([]string, 0, len(in.MemberIDs))
	for _, id := range models.UniqueIDs(in.MemberIDs) {
		if id != creatorID {
			others = append(others, id)
		}
	}
	if len(others) == 0 {
		return models.Group{}, fail(span, apperr.ErrEmptyMembership)
	}

	ok, err := s.users.ExistsAll(ctx, others)
	if err != nil {
		return models.Group{}, fail(span, classify(err))
	}
	if !ok {
		return models.Group{}, fail(span, apperr.ErrInvalidMembers)
	}

	avatar := ""
	if in.ProfilePic != "" {
		if avatar, err = s.upload(ctx, in.ProfilePic); err != nil {
			return models.Group{}, fail(span, err)
		}
	}

	group, err := s.groups.Create(ctx, models.Group{
		ID:         s.newID(),
		Name:       name,
		ProfilePic: avatar,
		CreatorID:  creatorID,
		Admins:     []string{creatorID},
		Members:    append([]string{creatorID}, others...),
	})
	if err != nil {
		return models.Group{}, fail(span, classify(err))
	}

	span.SetAttributes(attribute.String("group.id", group.ID), attribute.Int("group.members", len(group.Members)))
	s.log.Infof("group created id=%s creator=%s members=%d", group.ID, creatorID, len(group.Members))
	s.publisher.Publish(ctx, models.GroupEvent(models.EventGroupUpdated, group), group.Members, creatorID)
	return group, nil
}

// List returns the caller's groups, most recently updated first.
func (s *GroupService) List(ctx context.Context, userID string) ([]models.Group, error) {
	groups, err := s.groups.FindByMemberID(ctx, userID)
	if err != nil {
		return nil, classify(err)
	}
	return groups, nil
}

func (s *GroupService) AddMember(ctx context.Context, groupID, actorID, memberID string) (models.Group, error) {
	ctx, span := s.start(ctx, "groups.add_member", groupID, actorID)
	defer span.End()

	group, err := s.load(ctx, groupID)
	if err != nil {
		return models.Group{}, fail(span, err)
	}
	if !Authorize(group, actorID, ActionAddMember) {
		return models.Group{}, fail(span, apperr.Forbidden("only admins can add members"))
	}
	if group.IsMember(memberID) {
		return models.Group{}, fail(span, apperr.ErrAlreadyMember)
	}
	if _, err := s.users.FindByID(ctx, memberID); err != nil {
		err = classify(err)
		if errors.Is(err, apperr.ErrUserNotFound) {
			err = apperr.ErrInvalidMember
		}
		return models.Group{}, fail(span, err)
	}

	group.Members = append(group.Members, memberID)
	updated, err := s.save(ctx, group)
	if err != nil {
		return models.Group{}, fail(span, err)
	}

	s.log.Infof("member added group=%s member=%s by=%s", groupID, memberID, actorID)
	s.publisher.Publish(ctx, models.GroupEvent(models.EventGroupUpdated, updated), updated.Members)
	return updated, nil
}

func (s *GroupService) RemoveMember(ctx context.Context, groupID, actorID, memberID string) (models.Group, error) {
	ctx, span := s.start(ctx, "groups.remove_member", groupID, actorID)
	defer span.End()

	group, err := s.load(ctx, groupID)
	if err != nil {
		return models.Group{}, fail(span, err)
	}
	if !Authorize(group, actorID, ActionRemoveMember) {
		return models.Group{}, fail(span, apperr.Forbidden("only admins can remove members"))
	}
	if group.IsCreator(memberID) {
		return models.Group{}, fail(span, apperr.ErrCannotRemoveCreator)
	}
	if group.IsAdmin(memberID) && !Authorize(group, actorID, ActionRemoveAdmin) {
		return models.Group{}, fail(span, apperr.Forbidden("only the creator can remove admins"))
	}
	if !group.IsMember(memberID) {
		return models.Group{}, fail(span, apperr.ErrNotMember)
	}

	updated, err := s.save(ctx, group.WithoutUser(memberID))
	if err != nil {
		return models.Group{}, fail(span, err)
	}

	s.log.Infof("member removed group=%s member=%s by=%s", groupID, memberID, actorID)
	s.publisher.Publish(ctx, models.GroupEvent(models.EventGroupUpdated, updated), updated.Members)
	s.publisher.Publish(ctx, models.GroupEvent(models.EventRemovedFromGroup, updated), []string{memberID})
	return updated, nil
}

func (s *GroupService) Leave(ctx context.Context, groupID, actorID string) (models.Group, error) {
	ctx, span := s.start(ctx, "groups.leave", groupID, actorID)
	defer span.End()

	group, err := s.load(ctx, groupID)
	if err != nil {
		return models.Group{}, fail(span, err)
	}
	if !Authorize(group, actorID, ActionLeave) {
		return models.Group{}, fail(span, apperr.ErrNotMember)
	}
	if group.IsCreator(actorID) {
		return models.Group{}, fail(span, apperr.ErrCreatorCannotLeave)
	}

	updated, err := s.save(ctx, group.WithoutUser(actorID))
	if err != nil {
		return models.Group{}, fail(span, err)
	}

	s.log.Infof("member left group=%s member=%s", groupID, actorID)
	s.publisher.Publish(ctx, models.GroupEvent(models.EventGroupUpdated, updated), updated.Members)
	s.publisher.Publish(ctx, models.GroupEvent(models.EventLeftGroup, updated), []string{actorID})
	return updated, nil
}

// Update applies a partial patch. An empty name leaves the name unchanged.
func (s *GroupService) Update(ctx context.Context, groupID, actorID string, patch models.GroupPatch) (models.Group, error) {
	ctx, span := s.start(ctx, "groups.update", groupID, actorID)
	defer span.End()

	group, err := s.load(ctx, groupID)
	if err != nil {
		return models.Group{}, fail(span, err)
	}
	if !Authorize(group, actorID, ActionUpdateGroup) {
		return models.Group{}, fail(span, apperr.Forbidden("only admins can update the group"))
	}

	if patch.ProfilePic != nil && *patch.ProfilePic != "" {
		avatar, err := s.upload(ctx, *patch.ProfilePic)
		if err != nil {
			return models.Group{}, fail(span, err)
		}
		group.ProfilePic = avatar
	}
	if patch.Name != nil {
		if name := strings.TrimSpace(*patch.Name); name != "" {
			group.Name = name
		}
	}

	updated, err := s.save(ctx, group)
	if err != nil {
		return models.Group{}, fail(span, err)
	}

	s.publisher.Publish(ctx, models.GroupEvent(models.EventGroupUpdated, updated), updated.Members)
	return updated, nil
}

func (s *GroupService) start(ctx context.Context, name, groupID, actorID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("group.id", groupID),
		attribute.String("actor.id", actorID),
	))
}

func (s *GroupService) load(ctx context.Context, groupID string) (models.Group, error) {
	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return models.Group{}, classify(err)
	}
	return group, nil
}

// save writes the full document and re-reads it so pushes carry the stored state.
func (s *GroupService) save(ctx context.Context, group models.Group) (models.Group, error) {
	if err := s.groups.Save(ctx, group); err != nil {
		return models.Group{}, classify(err)
	}
	return s.load(ctx, group.ID)
}

func (s *GroupService) upload(ctx context.Context, dataURI string) (string, error) {
	if err := media.ValidateImageDataURI(dataURI); err != nil {
		return "", err
	}
	url, err := s.uploader.Upload(ctx, dataURI, groupAvatar)
	if err != nil {
		s.log.Warnf("group avatar upload failed: %v", err)
		return "", uploadFailed(err)
	}
	return url, nil
}
