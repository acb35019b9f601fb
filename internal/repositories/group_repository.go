package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"ping-me/internal/models"
)

var ErrGroupNotFound = errors.New("group not found")

// GroupRepository abstracts group persistence. Save replaces the whole
// document; AppendMessage is an atomic single-document append and
// RemoveMessage drops an id from the log, succeeding when it is absent.
type GroupRepository interface {
	FindByID(ctx context.Context, groupID string) (models.Group, error)
	Create(ctx context.Context, group models.Group) (models.Group, error)
	Save(ctx context.Context, group models.Group) error
	FindByMemberID(ctx context.Context, userID string) ([]models.Group, error)
	AppendMessage(ctx context.Context, groupID string, messageID string) error
	RemoveMessage(ctx context.Context, groupID string, messageID string) error
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

type memberRow struct {
	GroupID string `db:"group_id"`
	UserID  string `db:"user_id"`
	IsAdmin bool   `db:"is_admin"`
}

// FindByID fetches a group with its roster and message log.
func (r *GroupRepo) FindByID(ctx context.Context, groupID string) (models.Group, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group, `SELECT id, name, profile_pic, creator_id, created_at, updated_at FROM groups WHERE id=$1`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrGroupNotFound
	}
	if err != nil {
		return models.Group{}, err
	}

	groups := []models.Group{group}
	if err := r.loadMembers(ctx, groups); err != nil {
		return models.Group{}, err
	}
	group = groups[0]

	if err := r.db.SelectContext(ctx, &group.MessageIDs, `SELECT message_id FROM group_message_log WHERE group_id=$1 ORDER BY seq ASC`, groupID); err != nil {
		return models.Group{}, err
	}
	return group, nil
}

// Create inserts the group and its roster atomically.
func (r *GroupRepo) Create(ctx context.Context, group models.Group) (models.Group, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Group{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = tx.QueryRowxContext(ctx, `INSERT INTO groups (id, name, profile_pic, creator_id) VALUES ($1, $2, $3, $4) RETURNING created_at, updated_at`,
		group.ID, group.Name, group.ProfilePic, group.CreatorID).Scan(&group.CreatedAt, &group.UpdatedAt); err != nil {
		return models.Group{}, err
	}
	if err = insertMembers(ctx, tx, group); err != nil {
		return models.Group{}, err
	}
	if err = tx.Commit(); err != nil {
		return models.Group{}, err
	}
	group.MessageIDs = []string{}
	return group, nil
}

// Save replaces name, avatar and roster of an existing group.
func (r *GroupRepo) Save(ctx context.Context, group models.Group) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var res sql.Result
	res, err = tx.ExecContext(ctx, `UPDATE groups SET name=$2, profile_pic=$3, updated_at=$4 WHERE id=$1`, group.ID, group.Name, group.ProfilePic, time.Now().UTC())
	if err != nil {
		return err
	}
	var count int64
	if count, err = res.RowsAffected(); err != nil {
		return err
	}
	if count == 0 {
		err = ErrGroupNotFound
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM group_members WHERE group_id=$1`, group.ID); err != nil {
		return err
	}
	if err = insertMembers(ctx, tx, group); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// FindByMemberID returns groups that include the user, most recently updated first.
func (r *GroupRepo) FindByMemberID(ctx context.Context, userID string) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.SelectContext(ctx, &groups, `SELECT g.id, g.name, g.profile_pic, g.creator_id, g.created_at, g.updated_at FROM groups g
        INNER JOIN group_members gm ON gm.group_id = g.id
        WHERE gm.user_id=$1 ORDER BY g.updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	if err := r.loadMembers(ctx, groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// AppendMessage records messageID at the end of the group's message log.
func (r *GroupRepo) AppendMessage(ctx context.Context, groupID string, messageID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO group_message_log (group_id, message_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, groupID, messageID)
	return err
}

// RemoveMessage is usually a no-op here: deleting the message row cascades.
func (r *GroupRepo) RemoveMessage(ctx context.Context, groupID string, messageID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM group_message_log WHERE group_id=$1 AND message_id=$2`, groupID, messageID)
	return err
}

func (r *GroupRepo) loadMembers(ctx context.Context, groups []models.Group) error {
	if len(groups) == 0 {
		return nil
	}
	ids := make([]string, 0, len(groups))
	index := make(map[string]int, len(groups))
	for i := range groups {
		ids = append(ids, groups[i].ID)
		index[groups[i].ID] = i
		groups[i].Members = []string{}
		groups[i].Admins = []string{}
	}

	var rows []memberRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT group_id, user_id, is_admin FROM group_members WHERE group_id = ANY($1) ORDER BY group_id, position ASC`, pq.Array(ids)); err != nil {
		return err
	}
	for _, row := range rows {
		i := index[row.GroupID]
		groups[i].Members = append(groups[i].Members, row.UserID)
		if row.IsAdmin {
			groups[i].Admins = append(groups[i].Admins, row.UserID)
		}
	}
	return nil
}

func insertMembers(ctx context.Context, tx *sqlx.Tx, group models.Group) error {
	for pos, userID := range group.Members {
		if _, err := tx.ExecContext(ctx, `INSERT INTO group_members (group_id, user_id, is_admin, position) VALUES ($1, $2, $3, $4)`,
			group.ID, userID, group.IsAdmin(userID), pos); err != nil {
			return err
		}
	}
	return nil
}
