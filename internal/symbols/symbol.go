package symbols

import (
	"stc/internal/ast"
	"stc/internal/source"
)

// Reserved symbol names for unnamed declarations.
const (
	NameCall     = "__call"
	NameNew      = "__new"
	NameIndex    = "__index"
	NameType     = "__type"
	NameObject   = "__object"
	NameFunction = "__function"
	NameClass    = "__class"
	NameCtor     = "__constructor"
	NameMissing  = "__missing"
)

// Symbol is a named declaration site after merging. Derived data (types,
// resolved aliases) lives in checker-side links keyed by SymbolID.
type Symbol struct {
	Name      source.StringID
	Flags     SymbolFlags
	Decls     []ast.NodeID
	ValueDecl ast.NodeID
	Parent    SymbolID
	Members   *Table // class/interface/type-literal members
	Exports   *Table // namespace, enum and class static members
}

// AddDecl appends decl and updates ValueDecl. A declaration with a body
// replaces a bodiless value declaration (overload signatures).
func (s *Symbol) AddDecl(decl ast.NodeID, isValue, hasBody bool) {
	s.Decls = append(s.Decls, decl)
	if !isValue {
		return
	}
	if !s.ValueDecl.IsValid() || hasBody {
		s.ValueDecl = decl
	}
}

// FirstDecl returns the first declaration or NoNodeID.
func (s *Symbol) FirstDecl() ast.NodeID {
	if len(s.Decls) == 0 {
		return ast.NoNodeID
	}
	return s.Decls[0]
}

// EnsureMembers lazily allocates the member table.
func (s *Symbol) EnsureMembers() *Table {
	if s.Members == nil {
		s.Members = NewTable()
	}
	return s.Members
}

// EnsureExports lazily allocates the export table.
func (s *Symbol) EnsureExports() *Table {
	if s.Exports == nil {
		s.Exports = NewTable()
	}
	return s.Exports
}
