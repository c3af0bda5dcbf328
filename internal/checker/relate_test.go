package checker

import (
	"testing"

	"stc/internal/ast"
	"stc/internal/diag"
	"stc/internal/types"
)

func objectAlias(b *ast.Builder, name string, members ...ast.NodeID) ast.NodeID {
	return b.Alias(0, b.Ident(name), nil, b.TypeLit(members...))
}

func prop(b *ast.Builder, name string, typ ast.NodeID) ast.NodeID {
	return b.PropSig(0, b.Ident(name), typ)
}

func TestStructuralSubsetIsAssignable(t *testing.T) {
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		return []ast.NodeID{
			objectAlias(b, "A", prop(b, "x", kw(b, ast.KindNumberKeyword))),
			objectAlias(b, "B", prop(b, "x", kw(b, ast.KindNumberKeyword)), prop(b, "y", kw(b, ast.KindStringKeyword))),
		}
	})
	f.wantCodes()
	a, bt := f.declared("A"), f.declared("B")
	if got := f.c.IsRelatedTo(bt, a, RelationAssignable); got != TernaryTrue {
		t.Fatalf("B -> A = %v, want true", got)
	}
	if got := f.c.IsRelatedTo(a, bt, RelationAssignable); got != TernaryFalse {
		t.Fatalf("A -> B = %v, want false", got)
	}
}

func TestRelationLaws(t *testing.T) {
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		return []ast.NodeID{
			objectAlias(b, "P", prop(b, "x", kw(b, ast.KindNumberKeyword))),
			b.Interface(0, b.Ident("Node"), nil, nil, prop(b, "next", b.TypeRef(b.Ident("Node")))),
		}
	})
	c := f.c
	bi := c.Builtins()
	all := []types.TypeID{
		bi.String, bi.Number, bi.Boolean, bi.Null, bi.Undefined, bi.Any, bi.Never, bi.Unknown,
		c.LiteralType("a"), c.LiteralType(1.0), c.ArrayType(bi.String),
		c.TupleType([]types.TypeID{bi.String, bi.Number}),
		f.declared("P"), f.declared("Node"),
		c.UnionType([]types.TypeID{bi.String, bi.Number}),
	}
	for _, ty := range all {
		name := c.TypeToString(ty)
		if c.IsRelatedTo(ty, ty, RelationIdentity) != TernaryTrue {
			t.Fatalf("%s not identical to itself", name)
		}
		if !c.IsTypeAssignableTo(ty, bi.Unknown) {
			t.Fatalf("%s not assignable to unknown", name)
		}
		if !c.IsTypeAssignableTo(bi.Never, ty) {
			t.Fatalf("never not assignable to %s", name)
		}
	}
	for _, a := range all {
		for _, b := range all {
			u := c.UnionType([]types.TypeID{a, b})
			for _, target := range all {
				want := c.IsTypeAssignableTo(a, target) && c.IsTypeAssignableTo(b, target)
				if got := c.IsTypeAssignableTo(u, target); got != want && c.types.Kind(u) == types.KindUnion {
					t.Fatalf("%s -> %s = %v, constituents say %v", c.TypeToString(u), c.TypeToString(target), got, want)
				}
			}
		}
	}
}

func TestRecursiveInterfaceTerminates(t *testing.T) {
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		return []ast.NodeID{
			b.Interface(0, b.Ident("Node"), nil, nil, prop(b, "next", b.TypeRef(b.Ident("Node")))),
			b.Interface(0, b.Ident("Link"), nil, nil, prop(b, "next", b.TypeRef(b.Ident("Link")))),
		}
	})
	n, l := f.declared("Node"), f.declared("Link")
	if f.c.IsRelatedTo(n, n, RelationIdentity) != TernaryTrue {
		t.Fatalf("Node not identical to itself")
	}
	if !f.c.IsTypeAssignableTo(n, l) || !f.c.IsTypeAssignableTo(l, n) {
		t.Fatalf("structurally equal recursive interfaces are not mutually assignable")
	}
}

func TestTypeConstructorsNormalize(t *testing.T) {
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID { return nil })
	c := f.c
	bi := c.Builtins()
	one, two := c.LiteralType(1.0), c.LiteralType(2.0)
	cases := []struct {
		name      string
		got, want types.TypeID
	}{
		{"empty union", c.UnionType(nil), bi.Never},
		{"empty intersection", c.IntersectionType(nil), bi.Unknown},
		{"widened literal union", c.WidenType(c.UnionType([]types.TypeID{one, two})), bi.Number},
		{"widened mixed literals", c.WidenType(c.UnionType([]types.TypeID{one, c.LiteralType("a")})),
			c.UnionType([]types.TypeID{bi.String, bi.Number})},
		{"widened primitive", c.WidenType(bi.String), bi.String},
		{"any absorbs intersection", c.IntersectionType([]types.TypeID{bi.Any, bi.String}), bi.Any},
		{"never absorbs intersection", c.IntersectionType([]types.TypeID{bi.Never, bi.String}), bi.Never},
		{"union order", c.UnionType([]types.TypeID{one, two}), c.UnionType([]types.TypeID{two, one})},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.name, c.TypeToString(tc.got), c.TypeToString(tc.want))
		}
	}
}

func TestAssignabilityDiagnostics(t *testing.T) {
	num := func(b *ast.Builder) ast.NodeID { return kw(b, ast.KindNumberKeyword) }
	str := func(b *ast.Builder) ast.NodeID { return kw(b, ast.KindStringKeyword) }
	cases := []struct {
		name  string
		build func(b *ast.Builder) []ast.NodeID
		want  []diag.Code
	}{
		{"string to number", func(b *ast.Builder) []ast.NodeID {
			return []ast.NodeID{letStmt(b, ast.FlagLet, "x", num(b), b.Str("s"))}
		}, []diag.Code{diag.CheckNotAssignable}},
		{"literal to union", func(b *ast.Builder) []ast.NodeID {
			return []ast.NodeID{letStmt(b, ast.FlagLet, "x", b.Union(num(b), str(b)), b.Num(1))}
		}, nil},
		{"null under strict null checks", func(b *ast.Builder) []ast.NodeID {
			return []ast.NodeID{letStmt(b, ast.FlagLet, "x", str(b), b.Null())}
		}, []diag.Code{diag.CheckNotAssignable}},
		{"excess property", func(b *ast.Builder) []ast.NodeID {
			lit := b.Object(b.PropAssign(b.Ident("x"), b.Num(1)), b.PropAssign(b.Ident("z"), b.Num(2)))
			return []ast.NodeID{
				objectAlias(b, "A", prop(b, "x", num(b))),
				letStmt(b, ast.FlagLet, "a", b.TypeRef(b.Ident("A")), lit),
			}
		}, []diag.Code{diag.CheckExcessProperty}},
		{"missing property", func(b *ast.Builder) []ast.NodeID {
			return []ast.NodeID{
				objectAlias(b, "A", prop(b, "x", num(b))),
				letStmt(b, ast.FlagLet, "a", b.TypeRef(b.Ident("A")), b.Object()),
			}
		}, []diag.Code{diag.CheckNotAssignable}},
		{"tuple to array", func(b *ast.Builder) []ast.NodeID {
			return []ast.NodeID{letStmt(b, ast.FlagLet, "xs", b.ArrayOf(num(b)), b.Array(b.Num(1), b.Num(2)))}
		}, nil},
		{"assign to const", func(b *ast.Builder) []ast.NodeID {
			return []ast.NodeID{
				letStmt(b, ast.FlagConst, "k", ast.NoNodeID, b.Num(1)),
				b.ExprStmt(b.Binary(b.Ident("k"), ast.OpAssign, b.Num(2))),
			}
		}, []diag.Code{diag.CheckAssignToConst}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := checkScript(t, tc.build)
			f.wantCodes(tc.want...)
		})
	}
}

func TestInterfaceExtendsChecked(t *testing.T) {
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		return []ast.NodeID{
			b.Interface(0, b.Ident("Base"), nil, nil, prop(b, "x", kw(b, ast.KindNumberKeyword))),
			b.Interface(0, b.Ident("Derived"), nil, []ast.NodeID{b.TypeRef(b.Ident("Base"))},
				prop(b, "x", kw(b, ast.KindStringKeyword))),
		}
	})
	f.wantCodes(diag.CheckIncorrectlyExtends)
}

func TestClassImplementsChecked(t *testing.T) {
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		return []ast.NodeID{
			b.Interface(0, b.Ident("HasName"), nil, nil, prop(b, "name", kw(b, ast.KindStringKeyword))),
			b.Class(0, b.Ident("C"), nil, ast.NoNodeID, []ast.NodeID{b.TypeRef(b.Ident("HasName"))},
				b.PropDecl(0, b.Ident("id"), kw(b, ast.KindNumberKeyword), ast.NoNodeID)),
		}
	})
	f.wantCodes(diag.CheckIncorrectlyImplements)
}
