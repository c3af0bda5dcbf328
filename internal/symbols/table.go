package symbols

import "stc/internal/source"

// Table maps names to symbols and remembers insertion order for stable output.
type Table struct {
	index map[source.StringID]SymbolID
	order []source.StringID
}

func NewTable() *Table {
	return &Table{index: make(map[source.StringID]SymbolID)}
}

func (t *Table) Get(name source.StringID) (SymbolID, bool) {
	if t == nil {
		return NoSymbolID, false
	}
	id, ok := t.index[name]
	return id, ok
}

// Set binds name to id, replacing any previous binding.
func (t *Table) Set(name source.StringID, id SymbolID) {
	if _, ok := t.index[name]; !ok {
		t.order = append(t.order, name)
	}
	t.index[name] = id
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Names returns names in insertion order.
func (t *Table) Names() []source.StringID {
	if t == nil {
		return nil
	}
	return t.order
}

// Each visits entries in insertion order.
func (t *Table) Each(fn func(name source.StringID, id SymbolID)) {
	if t == nil {
		return
	}
	for _, name := range t.order {
		fn(name, t.index[name])
	}
}

// Symbols returns ids in insertion order.
func (t *Table) Symbols() []SymbolID {
	if t == nil {
		return nil
	}
	out := make([]SymbolID, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.index[name])
	}
	return out
}
