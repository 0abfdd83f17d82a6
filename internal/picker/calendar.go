package picker

import (
	"fmt"
	"time"
)

// IsLeap reports whether year is a Gregorian leap year.
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInMonth returns the number of days in month (1-12) of year, or 0 for an
// invalid month.
func DaysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if IsLeap(year) {
			return 29
		}
		return 28
	}
	return 0
}

// ResultKind says which value a Result carries.
type ResultKind int

const (
	ResultDate ResultKind = iota + 1
	ResultClock
	ResultDateTime
	ResultUnknown
)

// Clock is a time of day.
type Clock struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Result is what a picker produces on completion. Date is midnight UTC for
// ResultDate and carries the hour for ResultDateTime.
type Result struct {
	Kind  ResultKind
	Date  time.Time
	Clock Clock
}

// IsUnknown reports whether the user declined to give a time.
func (r Result) IsUnknown() bool {
	return r.Kind == ResultUnknown
}

func (r Result) String() string {
	switch r.Kind {
	case ResultDate:
		return r.Date.Format("02.01.2006")
	case ResultClock:
		return r.Clock.String()
	case ResultDateTime:
		return r.Date.Format("02.01.2006 15:04")
	case ResultUnknown:
		return "unknown"
	}
	return ""
}

// dateOf builds the date selected in st, if complete and valid.
func dateOf(st *State) (time.Time, bool) {
	y, ok1 := st.Value(ScopeYears)
	m, ok2 := st.Value(ScopeMonths)
	d, ok3 := st.Value(ScopeDays)
	if !ok1 || !ok2 || !ok3 {
		return time.Time{}, false
	}
	if d < 1 || d > DaysInMonth(y, m) {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), true
}

func assemble(kind ResultKind, st *State) (Result, bool) {
	switch kind {
	case ResultDate:
		date, ok := dateOf(st)
		if !ok {
			return Result{}, false
		}
		return Result{Kind: ResultDate, Date: date}, true
	case ResultClock:
		h, ok1 := st.Value(ScopeHours)
		m, ok2 := st.Value(ScopeMinutes)
		if !ok1 || !ok2 {
			return Result{}, false
		}
		return Result{Kind: ResultClock, Clock: Clock{Hour: h, Minute: m}}, true
	case ResultDateTime:
		date, ok := dateOf(st)
		h, ok2 := st.Value(ScopeHours)
		if !ok || !ok2 {
			return Result{}, false
		}
		return Result{
			Kind:  ResultDateTime,
			Date:  date.Add(time.Duration(h) * time.Hour),
			Clock: Clock{Hour: h},
		}, true
	}
	return Result{}, false
}
