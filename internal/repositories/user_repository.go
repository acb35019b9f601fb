package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"ping-me/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository abstracts user lookups.
type UserRepository interface {
	FindByID(ctx context.Context, userID string) (models.User, error)
	FindMany(ctx context.Context, userIDs []string) ([]models.User, error)
	ExistsAll(ctx context.Context, userIDs []string) (bool, error)
	ListExcept(ctx context.Context, userID string) ([]models.User, error)
	Create(ctx context.Context, user models.User) (models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// FindByID fetches a single user.
func (r *UserRepo) FindByID(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, full_name, profile_pic, created_at FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// FindMany returns the subset of userIDs that exist.
func (r *UserRepo) FindMany(ctx context.Context, userIDs []string) ([]models.User, error) {
	if len(userIDs) == 0 {
		return []models.User{}, nil
	}
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT id, full_name, profile_pic, created_at FROM users WHERE id = ANY($1) ORDER BY full_name ASC`, pq.Array(userIDs))
	return users, err
}

// ExistsAll reports whether every id in userIDs names a user.
func (r *UserRepo) ExistsAll(ctx context.Context, userIDs []string) (bool, error) {
	ids := models.UniqueIDs(userIDs)
	if len(ids) == 0 {
		return true, nil
	}
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return false, err
	}
	return count == len(ids), nil
}

// ListExcept returns every user other than userID, for the sidebar.
func (r *UserRepo) ListExcept(ctx context.Context, userID string) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT id, full_name, profile_pic, created_at FROM users WHERE id <> $1 ORDER BY full_name ASC`, userID)
	return users, err
}

// Create inserts a user, typically from the auth service sync or seeding.
func (r *UserRepo) Create(ctx context.Context, user models.User) (models.User, error) {
	err := r.db.QueryRowxContext(ctx, `INSERT INTO users (id, full_name, profile_pic) VALUES ($1, $2, $3) RETURNING id, full_name, profile_pic, created_at`, user.ID, user.FullName, user.ProfilePic).
		StructScan(&user)
	return user, err
}
