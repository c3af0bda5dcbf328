package checker

import (
	"context"
	"testing"

	"stc/internal/ast"
	"stc/internal/binder"
)

func moduleHash(t *testing.T, typ ast.Kind, extra bool) [32]byte {
	t.Helper()
	b := ast.NewBuilder(nil, nil)
	b.BeginFile("m.ts")
	stmts := []ast.NodeID{
		b.VarStmt(ast.FlagLet|ast.FlagExport, b.VarDecl(b.Ident("a"), b.Keyword(typ), ast.NoNodeID)),
	}
	if extra {
		// не экспортируется и на форму не влияет
		stmts = append(stmts, b.VarStmt(ast.FlagLet, b.VarDecl(b.Ident("hidden"), ast.NoNodeID, b.Num(1))))
	}
	file := b.EndFile(stmts, true)
	c := New(NewProgram(b, []ast.NodeID{file}, nil, binder.Options{}), DefaultOptions())
	if err := c.CheckProgram(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	return c.PublicShapeHash(file)
}

func TestPublicShapeHash(t *testing.T) {
	base := moduleHash(t, ast.KindNumberKeyword, false)
	if base == [32]byte{} {
		t.Fatalf("empty hash")
	}
	if again := moduleHash(t, ast.KindNumberKeyword, false); again != base {
		t.Fatalf("hash is not deterministic")
	}
	if private := moduleHash(t, ast.KindNumberKeyword, true); private != base {
		t.Fatalf("non-exported declaration changed the public shape")
	}
	if changed := moduleHash(t, ast.KindStringKeyword, false); changed == base {
		t.Fatalf("export type change kept the hash")
	}
}

func TestDeclarationTypes(t *testing.T) {
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		return []ast.NodeID{
			letStmt(b, ast.FlagLet, "x", ast.NoNodeID, b.Num(1)),
			letStmt(b, ast.FlagConst, "k", ast.NoNodeID, b.Str("s")),
			b.Func(0, b.Ident("f"), nil,
				[]ast.NodeID{b.Param(0, b.Ident("a"), b.Keyword(ast.KindStringKeyword), ast.NoNodeID)},
				b.Keyword(ast.KindNumberKeyword), b.Block(b.Return(b.Num(1)))),
			b.Interface(0, b.Ident("I"), nil, nil),
		}
	})
	f.wantCodes()
	want := map[string]string{
		"x": "number",
		"k": `"s"`,
		"f": "(a: string) => number",
		"I": "I",
	}
	got := f.c.DeclarationTypes(f.file)
	if len(got) != len(want) {
		t.Fatalf("declarations = %d, want %d", len(got), len(want))
	}
	for _, nt := range got {
		if want[nt.Name] != nt.Text {
			t.Fatalf("%s: %q, want %q", nt.Name, nt.Text, want[nt.Name])
		}
	}
}

func TestSymbolAtLocation(t *testing.T) {
	var declName, use, member ast.NodeID
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		declName = b.Ident("o")
		use = b.Ident("o")
		member = b.Ident("p")
		obj := b.Object(b.PropAssign(b.Ident("p"), b.Num(1)))
		return []ast.NodeID{
			b.VarStmt(ast.FlagConst, b.VarDecl(declName, ast.NoNodeID, obj)),
			b.ExprStmt(b.Prop(use, member)),
		}
	})
	f.wantCodes()
	o := f.symbol("o")
	if got := f.c.SymbolAtLocation(declName); got != o {
		t.Fatalf("declaration name -> %d, want %d", got, o)
	}
	if got := f.c.SymbolAtLocation(use); got != o {
		t.Fatalf("reference -> %d, want %d", got, o)
	}
	if got := f.c.SymbolAtLocation(member); !got.IsValid() || f.c.symbolName(got) != "p" {
		t.Fatalf("member -> %d, want property p", got)
	}
	f.wantText(f.c.TypeAtLocation(declName), "{ p: number; }")
}

func TestContextualTypeQuery(t *testing.T) {
	var init ast.NodeID
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		init = b.Num(1)
		return []ast.NodeID{letStmt(b, ast.FlagLet, "x", b.Keyword(ast.KindNumberKeyword), init)}
	})
	if got := f.c.ContextualType(init); got != f.c.Builtins().Number {
		t.Fatalf("contextual type = %s, want number", f.c.TypeToString(got))
	}
}
