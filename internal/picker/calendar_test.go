package picker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		year, month int
		want        int
	}{
		{2023, 1, 31},
		{2023, 4, 30},
		{2023, 2, 28},
		{2024, 2, 29},
		{2000, 2, 29},
		{1900, 2, 28},
		{2100, 2, 28},
		{2023, 12, 31},
		{2023, 11, 30},
		{2023, 13, 0},
		{2023, 0, 0},
	}

	for _, tt := range tests {
		got := DaysInMonth(tt.year, tt.month)
		assert.Equal(t, tt.want, got, "DaysInMonth(%d, %d)", tt.year, tt.month)
	}
}

func TestIsLeap(t *testing.T) {
	assert.True(t, IsLeap(2000))
	assert.True(t, IsLeap(1996))
	assert.False(t, IsLeap(1900))
	assert.False(t, IsLeap(2023))
}

func TestAssemble(t *testing.T) {
	st := &State{Selected: map[Scope]int{ScopeYears: 1990, ScopeMonths: 4, ScopeDays: 15}}
	res, ok := assemble(ResultDate, st)
	assert.True(t, ok)
	assert.Equal(t, time.Date(1990, time.April, 15, 0, 0, 0, 0, time.UTC), res.Date)
	assert.Equal(t, "15.04.1990", res.String())

	// April has no 31st
	st.Selected[ScopeDays] = 31
	_, ok = assemble(ResultDate, st)
	assert.False(t, ok)

	st = &State{Selected: map[Scope]int{ScopeHours: 7, ScopeMinutes: 5}}
	res, ok = assemble(ResultClock, st)
	assert.True(t, ok)
	assert.Equal(t, "07:05", res.String())

	st = &State{Selected: map[Scope]int{ScopeYears: 2025, ScopeMonths: 3, ScopeDays: 10, ScopeHours: 14}}
	res, ok = assemble(ResultDateTime, st)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2025, time.March, 10, 14, 0, 0, 0, time.UTC), res.Date)

	_, ok = assemble(ResultDateTime, &State{Selected: map[Scope]int{ScopeHours: 14}})
	assert.False(t, ok)
}
