package picker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		id    string
		kind  EventKind
		scope Scope
		value int
		fwd   bool
	}{
		{"year:1990", EventSelect, ScopeYears, 1990, false},
		{"month:4", EventSelect, ScopeMonths, 4, false},
		{"day:15", EventSelect, ScopeDays, 15, false},
		{"hour:0", EventSelect, ScopeHours, 0, false},
		{"minute:59", EventSelect, ScopeMinutes, 59, false},
		{"page:prev", EventPage, "", 0, false},
		{"page:next", EventPage, "", 0, true},
		{"back:years", EventBack, ScopeYears, 0, false},
		{"back:days", EventBack, ScopeDays, 0, false},
		{"unknown", EventUnknown, "", 0, false},
		{"all", EventShowAll, "", 0, false},

		{"", EventNoop, "", 0, false},
		{"ignore", EventNoop, "", 0, false},
		{"year:", EventNoop, "", 0, false},
		{"year:abc", EventNoop, "", 0, false},
		{"year:-1", EventNoop, "", 0, false},
		{"year:+5", EventNoop, "", 0, false},
		{"week:3", EventNoop, "", 0, false},
		{"back:weeks", EventNoop, "", 0, false},
		{"page:up", EventNoop, "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			ev := ParseEvent(tt.id)
			assert.Equal(t, tt.kind, ev.Kind)
			assert.Equal(t, tt.scope, ev.Scope)
			assert.Equal(t, tt.value, ev.Value)
			assert.Equal(t, tt.fwd, ev.Forward)
			assert.Equal(t, tt.id, ev.Raw)
		})
	}
}

func TestValueIDRoundTrip(t *testing.T) {
	for _, s := range []Scope{ScopeYears, ScopeMonths, ScopeDays, ScopeHours, ScopeMinutes} {
		ev := ParseEvent(valueID(s, 7))
		if ev.Kind != EventSelect || ev.Scope != s || ev.Value != 7 {
			t.Errorf("valueID(%s, 7) parsed as %+v", s, ev)
		}
		back := ParseEvent(backID(s))
		if back.Kind != EventBack || back.Scope != s {
			t.Errorf("backID(%s) parsed as %+v", s, back)
		}
	}
}
