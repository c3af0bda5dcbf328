package ast

import "testing"

func TestBuilderFixesParents(t *testing.T) {
	b := NewBuilder(nil, nil)
	b.BeginFile("a.ts")
	init := b.Num(1)
	decl := b.VarDecl(b.Ident("x"), b.Keyword(KindNumberKeyword), init)
	stmt := b.VarStmt(FlagLet, decl)
	file := b.EndFile([]NodeID{stmt}, false)

	if got := b.Nodes.Parent(init); got != decl {
		t.Fatalf("parent of init = %d, want %d", got, decl)
	}
	if got := b.Nodes.Parent(stmt); got != file {
		t.Fatalf("parent of stmt = %d, want file %d", got, file)
	}
	if b.Nodes.ContainingFile(init) != file {
		t.Fatalf("containing file mismatch")
	}
	if b.Text(b.Nodes.Name(decl)) != "x" {
		t.Fatalf("declaration name = %q", b.Text(b.Nodes.Name(decl)))
	}
}

func TestForEachChildOrder(t *testing.T) {
	b := NewBuilder(nil, nil)
	b.BeginFile("a.ts")
	cond := b.True()
	then := b.Block()
	els := b.Block()
	ifs := b.If(cond, then, els)

	var got []NodeID
	b.Nodes.ForEachChild(ifs, func(c NodeID) bool {
		got = append(got, c)
		return false
	})
	want := []NodeID{cond, then, els}
	if len(got) != len(want) {
		t.Fatalf("children = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("children = %v, want %v", got, want)
		}
	}
}

func TestParentSpanCoversChildren(t *testing.T) {
	b := NewBuilder(nil, nil)
	b.BeginFile("a.ts")
	l := b.Ident("a")
	r := b.Ident("b")
	bin := b.Binary(l, OpPlus, r)
	sp := b.Nodes.Get(bin).Span
	if !sp.Contains(b.Nodes.Get(l).Span) || !sp.Contains(b.Nodes.Get(r).Span) {
		t.Fatalf("binary span %v does not cover operands", sp)
	}
}

func TestKindByNameRoundTrip(t *testing.T) {
	for k := KindSourceFile; k < kindCount; k++ {
		got, ok := KindByName(k.String())
		if !ok || got != k {
			t.Fatalf("KindByName(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if _, ok := KindByName("Bogus"); ok {
		t.Fatalf("unexpected kind for Bogus")
	}
}

func TestPayloadAccessorRejectsWrongKind(t *testing.T) {
	b := NewBuilder(nil, nil)
	b.BeginFile("a.ts")
	id := b.Ident("x")
	if _, ok := b.Nodes.Func(id); ok {
		t.Fatalf("identifier must not expose a FuncData payload")
	}
	if _, ok := b.Nodes.Ident(id); !ok {
		t.Fatalf("identifier payload missing")
	}
}
