package picker

import "context"

// Placeholder is the label of a cell that cannot be chosen.
const Placeholder = "—"

// Item is one cell of a rendered grid. Inert cells have an empty ID.
type Item struct {
	Label   string `json:"label"`
	ID      string `json:"id,omitempty"`
	Enabled bool   `json:"enabled"`
}

// Grid is a rendered page. The first row always holds the header.
type Grid struct {
	Scope  Scope    `json:"scope"`
	Header string   `json:"header"`
	Empty  bool     `json:"empty,omitempty"`
	Rows   [][]Item `json:"rows"`
}

// Items returns every cell in row order.
func (g Grid) Items() []Item {
	var out []Item
	for _, row := range g.Rows {
		out = append(out, row...)
	}
	return out
}

// Find returns the enabled item with the given identifier.
func (g Grid) Find(id string) (Item, bool) {
	if id == "" {
		return Item{}, false
	}
	for _, row := range g.Rows {
		for _, it := range row {
			if it.ID == id && it.Enabled {
				return it, true
			}
		}
	}
	return Item{}, false
}

func inert(label string) Item {
	return Item{Label: label}
}

func button(label, id string) Item {
	return Item{Label: label, ID: id, Enabled: true}
}

// Render draws the page st points at. It does not modify st; an out of range
// page cursor is clamped for display only.
func (p *Picker) Render(st *State) Grid {
	return p.RenderContext(context.Background(), st)
}

// RenderContext is Render with a context handed to availability predicates.
// Each value is checked once per call.
func (p *Picker) RenderContext(ctx context.Context, st *State) Grid {
	if st == nil {
		st = p.NewState()
	}
	ci := p.current(st)
	def := &p.scopes[ci]

	values := def.values(st)
	size := def.size(len(values))
	count := pageCount(len(values), size)
	page := clamp(st.Page(def.scope), count)

	available := make([]bool, len(values))
	empty := len(values) > 0 && (def.featured == nil || st.ShowAll)
	for i, v := range values {
		available[i] = def.isAvailable(ctx, st, v)
		if available[i] {
			empty = false
		}
	}

	var start, end int
	if count > 0 {
		start = page * size
		end = min(start+size, len(values))
	}

	selected, hasSelected := st.Value(def.scope)

	var rows [][]Item
	var row []Item
	for i := start; i < end; i++ {
		v := values[i]
		var it Item
		switch {
		case !available[i]:
			it = inert(Placeholder)
		case hasSelected && v == selected:
			it = button(p.decorate(def.label(v)), valueID(def.scope, v))
		default:
			it = button(def.label(v), valueID(def.scope, v))
		}
		row = append(row, it)
		if len(row) == def.perRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	var nav []Item
	if page > 0 {
		nav = append(nav, button(p.labels.Prev, idPrev))
	}
	if page < count-1 {
		nav = append(nav, button(p.labels.Next, idNext))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	if p.allowUnknown && ci == 0 {
		rows = append(rows, []Item{button(p.labels.Unknown, idUnknown)})
	}
	if def.featured != nil && !st.ShowAll {
		rows = append(rows, []Item{button(p.labels.ShowAll, idShowAll)})
	}
	if ci > 0 {
		rows = append(rows, []Item{button(def.back, backID(p.scopes[ci-1].scope))})
	}

	header := ""
	switch {
	case empty && def.emptyHeader != nil:
		header = def.emptyHeader(st)
	case def.featured != nil && !st.ShowAll && def.featuredHeader != nil:
		header = def.featuredHeader(st)
	case def.header != nil:
		header = def.header(st)
	}

	return Grid{
		Scope:  def.scope,
		Header: header,
		Empty:  empty,
		Rows:   append([][]Item{{inert(header)}}, rows...),
	}
}
