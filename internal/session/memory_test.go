package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astrobot/internal/picker"
)

func sampleState() *picker.State {
	return &picker.State{
		Scope:    picker.ScopeDays,
		Selected: map[picker.Scope]int{picker.ScopeYears: 1990, picker.ScopeMonths: 4},
		Pages:    map[picker.Scope]int{picker.ScopeYears: 2},
	}
}

func TestMemoryStore_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	key := picker.Key{Session: "1:2", Widget: "bd"}

	st, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, st)

	require.NoError(t, store.Save(ctx, key, sampleState()))

	st, err = store.Load(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.True(t, sampleState().Equal(st))

	// The store hands out copies.
	st.Selected[picker.ScopeYears] = 2000
	again, err := store.Load(ctx, key)
	require.NoError(t, err)
	y, _ := again.Value(picker.ScopeYears)
	assert.Equal(t, 1990, y)

	other, err := store.Load(ctx, picker.Key{Session: "1:2", Widget: "bt"})
	require.NoError(t, err)
	assert.Nil(t, other)

	require.NoError(t, store.Delete(ctx, key))
	st, err = store.Load(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Hour)
	store.now = func() time.Time { return now }

	key := picker.Key{Session: "s", Widget: "bk"}
	require.NoError(t, store.Save(ctx, key, sampleState()))

	now = now.Add(59 * time.Minute)
	st, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.NotNil(t, st)
	assert.Equal(t, 0, store.Sweep())

	now = now.Add(2 * time.Minute)
	st, err = store.Load(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, st)
	assert.Equal(t, 1, store.Sweep())
}

func TestMemoryStore_WithWidget(t *testing.T) {
	ctx := context.Background()
	p, err := picker.NewTimePicker("bt")
	require.NoError(t, err)
	store := NewMemoryStore(time.Minute)
	w := picker.NewWidget(p, store, nil)

	_, _, err = w.Click(ctx, "10:20", "hour:7")
	require.NoError(t, err)

	st, err := store.Load(ctx, picker.Key{Session: "10:20", Widget: "bt"})
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, picker.ScopeMinutes, st.Scope)
}
