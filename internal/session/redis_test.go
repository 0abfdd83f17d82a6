package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astrobot/internal/picker"
)

func setupRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)

	store := NewRedisStore(client, 30*time.Minute)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRedisStore_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedis(t)
	key := picker.Key{Session: "1:2", Widget: "bd"}

	st, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, st)

	require.NoError(t, store.Save(ctx, key, sampleState()))
	assert.True(t, mr.Exists("astrobot:picker:1:2:bd"))
	assert.Equal(t, 30*time.Minute, mr.TTL("astrobot:picker:1:2:bd"))

	st, err = store.Load(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.True(t, sampleState().Equal(st))

	require.NoError(t, store.Delete(ctx, key))
	st, err = store.Load(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestRedisStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedis(t)
	key := picker.Key{Session: "s", Widget: "bk"}

	require.NoError(t, store.Save(ctx, key, sampleState()))
	mr.FastForward(31 * time.Minute)

	st, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedis(t)
	require.NoError(t, mr.Set("astrobot:picker:s:bd", "{not json"))

	_, err := store.Load(ctx, picker.Key{Session: "s", Widget: "bd"})
	assert.Error(t, err)
}

func TestRedisStore_UnknownFlagSurvives(t *testing.T) {
	ctx := context.Background()
	store, _ := setupRedis(t)
	key := picker.Key{Session: "s", Widget: "bt"}

	require.NoError(t, store.Save(ctx, key, &picker.State{Scope: picker.ScopeHours, Unknown: true}))
	st, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.True(t, st.Unknown)
	assert.Equal(t, picker.ScopeHours, st.Scope)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(RedisConfig{Addr: addr})
	assert.Error(t, err)
}
