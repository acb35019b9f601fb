package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"ping-me/internal/models"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	// ErrInvalidMessage rejects rows without exactly one target or without content.
	ErrInvalidMessage = errors.New("message needs one receiver or group and some content")
)

// MessageRepository defines interactions for messages of both conversation kinds.
type MessageRepository interface {
	Create(ctx context.Context, msg models.Message) (models.Message, error)
	FindByID(ctx context.Context, messageID string) (models.Message, error)
	DeleteByID(ctx context.Context, messageID string) error
	Update(ctx context.Context, msg models.Message) (models.Message, error)
	FindByConversation(ctx context.Context, filter models.ConversationFilter) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, sender_id, COALESCE(receiver_id, '') AS receiver_id, COALESCE(group_id, '') AS group_id, text, image, edited, edited_at, created_at`

// Create stores a message. Exactly one of ReceiverID and GroupID must be set.
func (r *MessageRepo) Create(ctx context.Context, msg models.Message) (models.Message, error) {
	if !msg.HasValidTarget() || !msg.HasContent() {
		return models.Message{}, ErrInvalidMessage
	}
	var out models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (id, sender_id, receiver_id, group_id, text, image)
        VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6)
        RETURNING `+messageColumns, msg.ID, msg.SenderID, msg.ReceiverID, msg.GroupID, msg.Text, msg.Image).
		StructScan(&out)
	return out, err
}

// FindByID retrieves a single message.
func (r *MessageRepo) FindByID(ctx context.Context, messageID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// DeleteByID removes a message; its group log entry cascades.
func (r *MessageRepo) DeleteByID(ctx context.Context, messageID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id=$1`, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// Update rewrites the mutable fields of a message.
func (r *MessageRepo) Update(ctx context.Context, msg models.Message) (models.Message, error) {
	var out models.Message
	err := r.db.QueryRowxContext(ctx, `UPDATE messages SET text=$2, edited=$3, edited_at=$4 WHERE id=$1 RETURNING `+messageColumns,
		msg.ID, msg.Text, msg.Edited, msg.EditedAt).StructScan(&out)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return out, err
}

// FindByConversation returns the messages of one conversation, oldest first,
// ties broken by insertion order.
func (r *MessageRepo) FindByConversation(ctx context.Context, filter models.ConversationFilter) ([]models.Message, error) {
	msgs := []models.Message{}
	if filter.GroupID != "" {
		err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages WHERE group_id=$1 ORDER BY created_at ASC, seq ASC`, filter.GroupID)
		return msgs, err
	}
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages
        WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)
        ORDER BY created_at ASC, seq ASC`, filter.UserA, filter.UserB)
	return msgs, err
}
