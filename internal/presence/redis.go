// Package presence mirrors the in-process online set to Redis so other
// tooling can read who is connected.
package presence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type setStore interface {
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type RedisMirror struct {
	store  setStore
	key    string
	closer func() error
}

// NewRedisMirror connects to redisURL and clears the previous process's set.
func NewRedisMirror(ctx context.Context, redisURL, key string) (*RedisMirror, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	m := &RedisMirror{store: client, key: key, closer: client.Close}
	if err := m.Reset(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return m, nil
}

func (m *RedisMirror) MarkOnline(ctx context.Context, userID string) error {
	return m.store.SAdd(ctx, m.key, userID).Err()
}

func (m *RedisMirror) MarkOffline(ctx context.Context, userID string) error {
	return m.store.SRem(ctx, m.key, userID).Err()
}

// Members returns the mirrored online set in no particular order.
func (m *RedisMirror) Members(ctx context.Context) ([]string, error) {
	return m.store.SMembers(ctx, m.key).Result()
}

// Reset drops the whole set. Connections do not survive a restart.
func (m *RedisMirror) Reset(ctx context.Context) error {
	if err := m.store.Del(ctx, m.key).Err(); err != nil {
		return fmt.Errorf("reset presence set: %w", err)
	}
	return nil
}

func (m *RedisMirror) Close() error {
	if m.closer == nil {
		return nil
	}
	return m.closer()
}
