package picker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore struct {
	states map[Key]*State
	saves  int
	err    error
}

func newMapStore() *mapStore {
	return &mapStore{states: make(map[Key]*State)}
}

func (m *mapStore) Load(_ context.Context, key Key) (*State, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.states[key].Clone(), nil
}

func (m *mapStore) Save(_ context.Context, key Key, st *State) error {
	if m.err != nil {
		return m.err
	}
	m.saves++
	m.states[key] = st.Clone()
	return nil
}

func (m *mapStore) Delete(_ context.Context, key Key) error {
	delete(m.states, key)
	return nil
}

func TestWidget_ClickFlow(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	p, err := NewDatePicker("bd", WithYearRange(1920, 2025))
	require.NoError(t, err)

	var got []Completion
	w := NewWidget(p, store, func(_ context.Context, c Completion) error {
		got = append(got, c)
		return nil
	})
	assert.Equal(t, "bd", w.ID())

	g, err := w.Render(ctx, "42:7")
	require.NoError(t, err)
	assert.Equal(t, ScopeYears, g.Scope)
	assert.Empty(t, store.states, "rendering must not create state")

	_, g, err = w.Click(ctx, "42:7", "year:1990")
	require.NoError(t, err)
	assert.Equal(t, ScopeMonths, g.Scope)
	assert.Equal(t, 1, store.saves)

	// Noop clicks are not persisted.
	_, _, err = w.Click(ctx, "42:7", "ignore")
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)

	_, _, err = w.Click(ctx, "42:7", "month:4")
	require.NoError(t, err)
	out, _, err := w.Click(ctx, "42:7", "day:15")
	require.NoError(t, err)
	assert.True(t, out.Done)

	require.Len(t, got, 1)
	assert.Equal(t, "42:7", got[0].Session)
	assert.Same(t, p, got[0].Picker)
	assert.Equal(t, EventSelect, got[0].Event.Kind)
	assert.Equal(t, time.Date(1990, time.April, 15, 0, 0, 0, 0, time.UTC), got[0].Result.Date)

	res, ok, err := w.Result(ctx, "42:7")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, got[0].Result, res)

	// Another session is independent.
	g, err = w.Render(ctx, "43:8")
	require.NoError(t, err)
	assert.Equal(t, ScopeYears, g.Scope)

	require.NoError(t, w.Reset(ctx, "42:7"))
	_, ok, err = w.Result(ctx, "42:7")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWidget_CompletionError(t *testing.T) {
	ctx := context.Background()
	p, err := NewTimePicker("bt", WithUnknown(true))
	require.NoError(t, err)

	boom := errors.New("boom")
	w := NewWidget(p, newMapStore(), func(context.Context, Completion) error { return boom })

	_, _, err = w.Click(ctx, "s", "unknown")
	assert.ErrorIs(t, err, boom)
}

func TestWidget_StoreError(t *testing.T) {
	ctx := context.Background()
	p, err := NewTimePicker("bt")
	require.NoError(t, err)

	store := newMapStore()
	store.err = errors.New("unavailable")
	w := NewWidget(p, store, nil)

	_, err = w.Render(ctx, "s")
	assert.ErrorIs(t, err, store.err)
	_, _, err = w.Click(ctx, "s", "hour:1")
	assert.ErrorIs(t, err, store.err)
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "100:200:bd", Key{Session: "100:200", Widget: "bd"}.String())
}
