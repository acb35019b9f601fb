package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ping-me/internal/apperr"
	"ping-me/internal/logger"
	"ping-me/internal/media"
	"ping-me/internal/models"
	"ping-me/internal/observability"
	"ping-me/internal/repositories"
)

var (
	directImage = media.Options{Folder: "chat_app", MaxWidth: 800, MaxHeight: 600}
	groupImage  = media.Options{Folder: "chat_app/groups", MaxWidth: 800, MaxHeight: 600}
)

// SendInput is the content of a new message. Image is a data URI.
type SendInput struct {
	Text  string
	Image string
}

// MessageService stores messages for both conversation kinds and pushes them
// to whoever can see them.
type MessageService struct {
	resolver  *Resolver
	groups    repositories.GroupRepository
	messages  repositories.MessageRepository
	uploader  media.Uploader
	publisher Publisher
	log       logger.Logger
	newID     func() string
	now       func() time.Time
}

func NewMessageService(resolver *Resolver, groups repositories.GroupRepository, messages repositories.MessageRepository, uploader media.Uploader, publisher Publisher, log logger.Logger) *MessageService {
	if log == nil {
		log = logger.Nop()
	}
	return &MessageService{
		resolver:  resolver,
		groups:    groups,
		messages:  messages,
		uploader:  uploader,
		publisher: publisher,
		log:       log,
		newID:     uuid.NewString,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GetMessages returns the conversation with targetID, oldest first.
func (s *MessageService) GetMessages(ctx context.Context, targetID, requesterID string) ([]models.Message, error) {
	ctx, span := tracer.Start(ctx, "messages.get", trace.WithAttributes(attribute.String("target.id", targetID)))
	defer span.End()

	target, err := s.resolver.Resolve(ctx, targetID)
	if err != nil {
		return nil, fail(span, err)
	}

	filter := models.ConversationFilter{UserA: requesterID, UserB: target.ID}
	if target.IsGroup() {
		if !Authorize(*target.Group, requesterID, ActionReadMessages) {
			return nil, fail(span, apperr.Forbidden("not a member of this group"))
		}
		filter = models.ConversationFilter{GroupID: target.ID}
	}

	msgs, err := s.messages.FindByConversation(ctx, filter)
	if err != nil {
		return nil, fail(span, classify(err))
	}
	span.SetAttributes(attribute.String("target.kind", string(target.Kind)), attribute.Int("messages", len(msgs)))
	return msgs, nil
}

func (s *MessageService) Send(ctx context.Context, targetID, senderID string, in SendInput) (models.Message, error) {
	ctx, span := tracer.Start(ctx, "messages.send", trace.WithAttributes(attribute.String("target.id", targetID)))
	defer span.End()

	text := strings.TrimSpace(in.Text)
	if text == "" && in.Image == "" {
		return models.Message{}, fail(span, apperr.ErrEmptyMessage)
	}
	if in.Image != "" {
		if err := media.ValidateImageDataURI(in.Image); err != nil {
			return models.Message{}, fail(span, err)
		}
	}

	target, err := s.resolver.Resolve(ctx, targetID)
	if err != nil {
		return models.Message{}, fail(span, err)
	}

	msg := models.Message{ID: s.newID(), SenderID: senderID, Text: text, CreatedAt: s.now()}
	opts := directImage
	if target.IsGroup() {
		if !Authorize(*target.Group, senderID, ActionPostMessage) {
			return models.Message{}, fail(span, apperr.Forbidden("not a member of this group"))
		}
		msg.GroupID = target.ID
		opts = groupImage
	} else {
		if target.ID == senderID {
			return models.Message{}, fail(span, apperr.ErrSelfMessage)
		}
		msg.ReceiverID = target.ID
	}

	if in.Image != "" {
		url, err := s.uploader.Upload(ctx, in.Image, opts)
		if err != nil {
			s.log.Warnf("message image upload failed sender=%s: %v", senderID, err)
			return models.Message{}, fail(span, uploadFailed(err))
		}
		msg.Image = url
	}

	stored, err := s.messages.Create(ctx, msg)
	if err != nil {
		return models.Message{}, fail(span, classify(err))
	}

	audience := []string{stored.ReceiverID}
	if target.IsGroup() {
		if err := s.groups.AppendMessage(ctx, target.ID, stored.ID); err != nil {
			// The message is durable and retrievable by group id; only the
			// group's own message list is behind.
			s.log.Warnf("reconciliation candidate group=%s message=%s: %v", target.ID, stored.ID, err)
			observability.IncReconciliationCandidate()
		}
		audience = target.Group.Members
	}

	delivered := s.publisher.Publish(ctx, models.NewMessageEvent(stored), audience)
	span.SetAttributes(attribute.String("message.id", stored.ID), attribute.Int("fanout.delivered", delivered))
	return stored, nil
}

// Edit replaces the text of the requester's own message.
func (s *MessageService) Edit(ctx context.Context, messageID, requesterID, text string) (models.Message, error) {
	ctx, span := tracer.Start(ctx, "messages.edit", trace.WithAttributes(attribute.String("message.id", messageID)))
	defer span.End()

	msg, err := s.owned(ctx, messageID, requesterID)
	if err != nil {
		return models.Message{}, fail(span, err)
	}

	text = strings.TrimSpace(text)
	if text == "" && msg.Image == "" {
		return models.Message{}, fail(span, apperr.ErrEmptyMessage)
	}

	editedAt := s.now()
	msg.Text = text
	msg.Edited = true
	msg.EditedAt = &editedAt

	updated, err := s.messages.Update(ctx, msg)
	if err != nil {
		return models.Message{}, fail(span, classify(err))
	}

	s.publisher.Publish(ctx, models.MessageUpdatedEvent(updated), s.audienceOf(ctx, updated))
	return updated, nil
}

func (s *MessageService) Delete(ctx context.Context, messageID, requesterID string) error {
	ctx, span := tracer.Start(ctx, "messages.delete", trace.WithAttributes(attribute.String("message.id", messageID)))
	defer span.End()

	msg, err := s.owned(ctx, messageID, requesterID)
	if err != nil {
		return fail(span, err)
	}
	if err := s.messages.DeleteByID(ctx, messageID); err != nil {
		return fail(span, classify(err))
	}
	if msg.IsGroup() {
		if err := s.groups.RemoveMessage(ctx, msg.GroupID, messageID); err != nil && !errors.Is(err, repositories.ErrGroupNotFound) {
			s.log.Warnf("trim group %s log after delete of %s: %v", msg.GroupID, messageID, err)
		}
	}

	s.publisher.Publish(ctx, models.MessageDeletedEvent(messageID), s.audienceOf(ctx, msg))
	return nil
}

func (s *MessageService) owned(ctx context.Context, messageID, requesterID string) (models.Message, error) {
	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return models.Message{}, classify(err)
	}
	if msg.SenderID != requesterID {
		return models.Message{}, apperr.Forbidden("only the sender can change this message")
	}
	return msg, nil
}

// audienceOf is both direct participants, or the group's current members.
func (s *MessageService) audienceOf(ctx context.Context, msg models.Message) []string {
	if !msg.IsGroup() {
		return msg.Participants()
	}
	group, err := s.groups.FindByID(ctx, msg.GroupID)
	if err != nil {
		s.log.Warnf("load group %s for fan-out: %v", msg.GroupID, err)
		return []string{msg.SenderID}
	}
	return group.Members
}
