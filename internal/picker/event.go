package picker

import (
	"strconv"
	"strings"
)

// EventKind tags an Event.
type EventKind int

const (
	EventNoop EventKind = iota
	EventSelect
	EventPage
	EventBack
	EventUnknown
	EventShowAll
)

func (k EventKind) String() string {
	switch k {
	case EventSelect:
		return "select"
	case EventPage:
		return "page"
	case EventBack:
		return "back"
	case EventUnknown:
		return "unknown"
	case EventShowAll:
		return "show_all"
	}
	return "noop"
}

// Item identifiers that are not values.
const (
	idPrev    = "page:prev"
	idNext    = "page:next"
	idUnknown = "unknown"
	idShowAll = "all"
	backKey   = "back"
)

// Event is a parsed click. Scope is set for EventSelect (the scope of the
// value) and EventBack (the target scope). Forward is set for EventPage.
type Event struct {
	Kind    EventKind
	Scope   Scope
	Value   int
	Forward bool
	// Raw is the identifier the event was parsed from.
	Raw string
}

// ParseEvent turns an item identifier into an Event. It never fails:
// anything it does not recognise is EventNoop.
func ParseEvent(id string) Event {
	ev := Event{Kind: EventNoop, Raw: id}

	switch id {
	case idPrev:
		ev.Kind = EventPage
		return ev
	case idNext:
		ev.Kind, ev.Forward = EventPage, true
		return ev
	case idUnknown:
		ev.Kind = EventUnknown
		return ev
	case idShowAll:
		ev.Kind = EventShowAll
		return ev
	}

	key, arg, ok := strings.Cut(id, ":")
	if !ok || arg == "" {
		return ev
	}

	if key == backKey {
		s := Scope(arg)
		if !s.valid() {
			return ev
		}
		ev.Kind, ev.Scope = EventBack, s
		return ev
	}

	s, ok := scopeByValueKey(key)
	if !ok {
		return ev
	}
	// Atoi accepts a sign; identifiers never carry one.
	if arg[0] < '0' || arg[0] > '9' {
		return ev
	}
	v, err := strconv.Atoi(arg)
	if err != nil {
		return ev
	}
	ev.Kind, ev.Scope, ev.Value = EventSelect, s, v
	return ev
}

func valueID(s Scope, v int) string {
	return s.valueKey() + ":" + strconv.Itoa(v)
}

func backID(s Scope) string {
	return backKey + ":" + string(s)
}
