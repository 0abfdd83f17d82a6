package picker

import (
	"context"
	"slices"
)

// scopeDef describes how one scope is laid out and what it accepts.
type scopeDef struct {
	scope    Scope
	perRow   int
	pageSize int // 0 puts the whole domain on one page

	domain    func(st *State) []int
	label     func(v int) string
	available func(ctx context.Context, st *State, v int) bool

	header      func(st *State) string
	emptyHeader func(st *State) string

	// featured is the Quick subset shown until the user asks for all values.
	featured       []int
	featuredHeader func(st *State) string

	// back labels the item that returns to the previous scope.
	back string
}

func (s *scopeDef) isAvailable(ctx context.Context, st *State, v int) bool {
	return s.available == nil || s.available(ctx, st, v)
}

// values returns the part of the domain currently on display.
func (s *scopeDef) values(st *State) []int {
	all := s.domain(st)
	if s.featured == nil || st.ShowAll {
		return all
	}
	out := make([]int, 0, len(s.featured))
	for _, v := range all {
		if slices.Contains(s.featured, v) {
			out = append(out, v)
		}
	}
	return out
}

func (s *scopeDef) size(n int) int {
	if s.pageSize <= 0 {
		return n
	}
	return s.pageSize
}

// Labels holds the texts of the navigation items.
type Labels struct {
	Prev    string
	Next    string
	Unknown string
	ShowAll string
}

// Picker is an immutable picker definition. One Picker serves any number of
// sessions; per-session data lives in State.
type Picker struct {
	id           string
	result       ResultKind
	scopes       []scopeDef
	decorate     func(label string) string
	allowUnknown bool
	labels       Labels
}

// ID returns the widget id the picker was created with.
func (p *Picker) ID() string { return p.id }

// Scopes returns the scope sequence.
func (p *Picker) Scopes() []Scope {
	out := make([]Scope, len(p.scopes))
	for i := range p.scopes {
		out[i] = p.scopes[i].scope
	}
	return out
}

// NewState returns a state positioned at the first scope.
func (p *Picker) NewState() *State {
	return &State{Scope: p.scopes[0].scope}
}

func (p *Picker) index(s Scope) int {
	for i := range p.scopes {
		if p.scopes[i].scope == s {
			return i
		}
	}
	return -1
}

// current returns the index of the scope st is in, treating anything foreign
// as the first scope.
func (p *Picker) current(st *State) int {
	if i := p.index(st.Scope); i >= 0 {
		return i
	}
	return 0
}

// Outcome reports what Apply did.
type Outcome struct {
	Event   Event
	Changed bool
	Done    bool
	Result  Result
}

// Apply mutates st according to ev. st must not be nil.
func (p *Picker) Apply(st *State, ev Event) Outcome {
	return p.ApplyContext(context.Background(), st, ev)
}

// ApplyContext is Apply with a context handed to availability predicates.
func (p *Picker) ApplyContext(ctx context.Context, st *State, ev Event) Outcome {
	st.Scope = p.scopes[p.current(st)].scope
	before := st.Clone()
	out := Outcome{Event: ev}

	switch ev.Kind {
	case EventPage:
		p.turnPage(st, ev.Forward)
	case EventBack:
		p.back(st, ev.Scope)
	case EventUnknown:
		if p.allowUnknown {
			p.reset(st)
			st.Unknown = true
			out.Done = true
			out.Result = Result{Kind: ResultUnknown}
		}
	case EventShowAll:
		if p.scopes[p.current(st)].featured != nil {
			st.ShowAll = true
		}
	case EventSelect:
		out.Done, out.Result = p.selectValue(ctx, st, ev.Scope, ev.Value)
	}

	p.clampPage(st)
	out.Changed = out.Done || !before.Equal(st)
	return out
}

// Reset returns st to the first scope and drops every selection.
func (p *Picker) Reset(st *State) {
	p.reset(st)
}

func (p *Picker) reset(st *State) {
	*st = State{Scope: p.scopes[0].scope}
}

func (p *Picker) turnPage(st *State, forward bool) {
	def := &p.scopes[p.current(st)]
	n := len(def.values(st))
	count := pageCount(n, def.size(n))
	page := clamp(st.Page(def.scope), count)
	if forward {
		page++
	} else {
		page--
	}
	st.setPage(def.scope, clamp(page, count))
}

func (p *Picker) back(st *State, target Scope) {
	ti, ci := p.index(target), p.current(st)
	if ti < 0 || ti >= ci {
		return
	}
	p.truncate(st, ti)
	st.Scope = target
	st.ShowAll = false
}

// truncate drops the values of scope i and every later scope.
func (p *Picker) truncate(st *State, i int) {
	for ; i < len(p.scopes); i++ {
		delete(st.Selected, p.scopes[i].scope)
	}
}

func (p *Picker) selectValue(ctx context.Context, st *State, s Scope, v int) (bool, Result) {
	si := p.index(s)
	if si < 0 {
		return false, Result{}
	}
	for i := 0; i < si; i++ {
		if _, ok := st.Value(p.scopes[i].scope); !ok {
			p.reset(st)
			return false, Result{}
		}
	}

	def := &p.scopes[si]
	if !slices.Contains(def.domain(st), v) || !def.isAvailable(ctx, st, v) {
		return false, Result{}
	}

	if st.Scope != s {
		p.truncate(st, si)
		st.Scope = s
		st.ShowAll = false
	}
	st.Unknown = false
	st.setValue(s, v)

	if si == len(p.scopes)-1 {
		res, ok := assemble(p.result, st)
		if !ok {
			p.reset(st)
			return false, Result{}
		}
		return true, res
	}

	st.Scope = p.scopes[si+1].scope
	st.ShowAll = false
	return false, Result{}
}

func (p *Picker) clampPage(st *State) {
	def := &p.scopes[p.current(st)]
	n := len(def.values(st))
	count := pageCount(n, def.size(n))
	if page := st.Page(def.scope); page != clamp(page, count) {
		st.setPage(def.scope, clamp(page, count))
	}
}

// Result returns the value the picker currently holds: the assembled value
// once the final scope has been chosen, or an unknown result.
func (p *Picker) Result(st *State) (Result, bool) {
	if st == nil {
		return Result{}, false
	}
	if st.Unknown {
		return Result{Kind: ResultUnknown}, true
	}
	if _, ok := st.Value(p.scopes[len(p.scopes)-1].scope); !ok {
		return Result{}, false
	}
	return assemble(p.result, st)
}

func pageCount(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// clamp bounds page into [0, count-1]; an empty domain has a single page 0.
func clamp(page, count int) int {
	if page >= count {
		page = count - 1
	}
	if page < 0 {
		page = 0
	}
	return page
}
