package symbols

import (
	"testing"

	"stc/internal/ast"
	"stc/internal/source"
)

func TestExcludesAllowOverloadsAndDeclarationMerging(t *testing.T) {
	cases := []struct {
		name     string
		existing SymbolFlags
		excludes SymbolFlags
		conflict bool
	}{
		{"function overloads", Function, FunctionExcludes, false},
		{"interface merge", Interface, InterfaceExcludes, false},
		{"class and interface", Class, InterfaceExcludes, false},
		{"namespace after function", Function, ValueModuleExcludes, false},
		{"let after function", Function, BlockScopedVariableExcludes, true},
		{"var after var", FunctionScopedVariable, FunctionScopedVariableExcludes, false},
		{"alias after interface", Interface, TypeAliasExcludes, true},
		{"enum after enum", RegularEnum, RegularEnumExcludes, false},
	}
	for _, tc := range cases {
		if got := tc.existing&tc.excludes != 0; got != tc.conflict {
			t.Fatalf("%s: conflict = %v, want %v", tc.name, got, tc.conflict)
		}
	}
}

func TestAddDeclPrefersImplementation(t *testing.T) {
	var s Symbol
	s.AddDecl(ast.NodeID(1), true, false)
	s.AddDecl(ast.NodeID(2), true, false)
	s.AddDecl(ast.NodeID(3), true, true)
	if len(s.Decls) != 3 || s.ValueDecl != 3 {
		t.Fatalf("decls=%v value=%d", s.Decls, s.ValueDecl)
	}
}

func TestTableKeepsInsertionOrder(t *testing.T) {
	arena := NewSymbols(nil, 0)
	tab := NewTable()
	for _, name := range []string{"b", "a", "c"} {
		id := arena.Create(Property, name)
		tab.Set(arena.Get(id).Name, id)
	}
	var got []string
	tab.Each(func(_ source.StringID, id SymbolID) { got = append(got, arena.Name(id)) })
	if len(got) != 3 || got[0] != "b" || got[1] != "a" || got[2] != "c" {
		t.Fatalf("order = %v", got)
	}
}
