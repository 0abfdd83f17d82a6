package picker

// State is the per-session state of one picker. The zero value renders the
// first scope.
type State struct {
	Scope    Scope         `json:"scope,omitempty"`
	Selected map[Scope]int `json:"selected,omitempty"`
	Pages    map[Scope]int `json:"pages,omitempty"`
	Unknown  bool          `json:"unknown,omitempty"`
	ShowAll  bool          `json:"show_all,omitempty"`
}

// Value returns the component chosen for scope s.
func (st *State) Value(s Scope) (int, bool) {
	if st == nil || st.Selected == nil {
		return 0, false
	}
	v, ok := st.Selected[s]
	return v, ok
}

// Page returns the page cursor for scope s.
func (st *State) Page(s Scope) int {
	if st == nil || st.Pages == nil {
		return 0
	}
	return st.Pages[s]
}

func (st *State) setValue(s Scope, v int) {
	if st.Selected == nil {
		st.Selected = make(map[Scope]int)
	}
	st.Selected[s] = v
}

func (st *State) setPage(s Scope, page int) {
	if page == 0 {
		delete(st.Pages, s)
		return
	}
	if st.Pages == nil {
		st.Pages = make(map[Scope]int)
	}
	st.Pages[s] = page
}

// Clone returns a deep copy.
func (st *State) Clone() *State {
	if st == nil {
		return nil
	}
	c := &State{Scope: st.Scope, Unknown: st.Unknown, ShowAll: st.ShowAll}
	if len(st.Selected) > 0 {
		c.Selected = make(map[Scope]int, len(st.Selected))
		for k, v := range st.Selected {
			c.Selected[k] = v
		}
	}
	if len(st.Pages) > 0 {
		c.Pages = make(map[Scope]int, len(st.Pages))
		for k, v := range st.Pages {
			c.Pages[k] = v
		}
	}
	return c
}

// Equal reports whether two states describe the same picker position.
// Missing map entries and zero pages are treated alike.
func (st *State) Equal(o *State) bool {
	if st.Scope != o.Scope || st.Unknown != o.Unknown || st.ShowAll != o.ShowAll {
		return false
	}
	if len(st.Selected) != len(o.Selected) {
		return false
	}
	for k, v := range st.Selected {
		if ov, ok := o.Selected[k]; !ok || ov != v {
			return false
		}
	}
	for k, v := range st.Pages {
		if o.Page(k) != v {
			return false
		}
	}
	for k, v := range o.Pages {
		if st.Page(k) != v {
			return false
		}
	}
	return true
}
