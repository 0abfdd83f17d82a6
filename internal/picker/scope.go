// Package picker implements paginated, multi-step date and time pickers for
// inline keyboards. A picker is a fixed sequence of scopes; every click moves
// the state forward, back, or between pages, and the final click yields a
// Result.
package picker

// Scope is one stage of a picker.
type Scope string

const (
	ScopeYears   Scope = "years"
	ScopeMonths  Scope = "months"
	ScopeDays    Scope = "days"
	ScopeHours   Scope = "hours"
	ScopeMinutes Scope = "minutes"
)

// valueKey is the identifier prefix of a value item in this scope ("year:1990").
func (s Scope) valueKey() string {
	switch s {
	case ScopeYears:
		return "year"
	case ScopeMonths:
		return "month"
	case ScopeDays:
		return "day"
	case ScopeHours:
		return "hour"
	case ScopeMinutes:
		return "minute"
	}
	return ""
}

func scopeByValueKey(key string) (Scope, bool) {
	for _, s := range []Scope{ScopeYears, ScopeMonths, ScopeDays, ScopeHours, ScopeMinutes} {
		if s.valueKey() == key {
			return s, true
		}
	}
	return "", false
}

func (s Scope) valid() bool {
	return s.valueKey() != ""
}
