package presence

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySets struct {
	sets map[string]map[string]struct{}
	err  error
}

func newMemorySets() *memorySets {
	return &memorySets{sets: map[string]map[string]struct{}{}}
}

func (m *memorySets) SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	set, ok := m.sets[key]
	if !ok {
		set = map[string]struct{}{}
		m.sets[key] = set
	}
	for _, member := range members {
		set[member.(string)] = struct{}{}
	}
	cmd.SetVal(int64(len(members)))
	return cmd
}

func (m *memorySets) SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	for _, member := range members {
		delete(m.sets[key], member.(string))
	}
	return cmd
}

func (m *memorySets) SMembers(ctx context.Context, key string) *redis.StringSliceCmd {
	cmd := redis.NewStringSliceCmd(ctx)
	out := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		out = append(out, member)
	}
	cmd.SetVal(out)
	return cmd
}

func (m *memorySets) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	for _, key := range keys {
		delete(m.sets, key)
	}
	return cmd
}

func TestMirrorTracksOnlineSet(t *testing.T) {
	ctx := context.Background()
	mirror := &RedisMirror{store: newMemorySets(), key: "ping_me:online_users"}

	require.NoError(t, mirror.MarkOnline(ctx, "alice"))
	require.NoError(t, mirror.MarkOnline(ctx, "bob"))
	require.NoError(t, mirror.MarkOnline(ctx, "alice"))
	require.NoError(t, mirror.MarkOffline(ctx, "bob"))

	members, err := mirror.Members(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, members)

	require.NoError(t, mirror.Reset(ctx))
	members, err = mirror.Members(ctx)
	require.NoError(t, err)
	assert.Empty(t, members)
	assert.NoError(t, mirror.Close())
}

func TestMirrorSurfacesStoreErrors(t *testing.T) {
	store := newMemorySets()
	store.err = errors.New("connection refused")
	mirror := &RedisMirror{store: store, key: "k"}

	assert.EqualError(t, mirror.MarkOnline(context.Background(), "alice"), "connection refused")
}

func TestNewRedisMirrorRejectsBadURL(t *testing.T) {
	_, err := NewRedisMirror(context.Background(), "not-a-url", "k")
	assert.Error(t, err)
}

func sorted(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

func TestMembersUnordered(t *testing.T) {
	ctx := context.Background()
	mirror := &RedisMirror{store: newMemorySets(), key: "k"}
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, mirror.MarkOnline(ctx, id))
	}
	members, err := mirror.Members(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, sorted(members))
}
