package checker

import (
	"testing"

	"stc/internal/ast"
	"stc/internal/diag"
	"stc/internal/types"
)

func strOrNum(b *ast.Builder) ast.NodeID {
	return b.Union(b.Keyword(ast.KindStringKeyword), b.Keyword(ast.KindNumberKeyword))
}

func TestTypeofNarrowing(t *testing.T) {
	var inThen, inElse, after ast.NodeID
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		decl := letStmt(b, ast.FlagLet, "x", strOrNum(b), b.Num(1))
		guard := b.Binary(b.TypeOf(b.Ident("x")), ast.OpEqEqEq, b.Str("string"))
		inThen = b.Ident("x")
		then := b.Block(b.ExprStmt(inThen))
		inElse = b.Ident("x")
		ifStmt := b.If(guard, then, b.Block(b.ExprStmt(inElse)))
		after = b.Ident("x")
		return []ast.NodeID{decl, ifStmt, b.ExprStmt(after)}
	})
	f.wantCodes()
	bi := f.c.Builtins()
	if got := f.c.TypeAtLocation(inThen); got != bi.String {
		t.Fatalf("then branch = %s, want string", f.c.TypeToString(got))
	}
	if got := f.c.TypeAtLocation(inElse); got != bi.Number {
		t.Fatalf("else branch = %s, want number", f.c.TypeToString(got))
	}
	if got, want := f.c.TypeAtLocation(after), f.c.UnionType([]types.TypeID{bi.String, bi.Number}); got != want {
		t.Fatalf("after if = %s, want string | number", f.c.TypeToString(got))
	}
}

func TestFlowTypeIsStable(t *testing.T) {
	var ref ast.NodeID
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		decl := letStmt(b, ast.FlagLet, "x", strOrNum(b), b.Str("a"))
		guard := b.Binary(b.TypeOf(b.Ident("x")), ast.OpEqEqEq, b.Str("number"))
		ref = b.Ident("x")
		return []ast.NodeID{decl, b.If(guard, b.Block(b.ExprStmt(ref)), ast.NoNodeID)}
	})
	f.wantCodes()
	declared := f.typeOf("x")
	first := f.c.FlowTypeAtNode(ref, declared)
	second := f.c.FlowTypeAtNode(ref, declared)
	if first != second || first != f.c.Builtins().Number {
		t.Fatalf("flow types %s then %s, want number twice", f.c.TypeToString(first), f.c.TypeToString(second))
	}
}

func TestDiscriminatedUnionNarrowing(t *testing.T) {
	var inThen, inElse ast.NodeID
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		variant := func(tag string, field string, typ ast.Kind) ast.NodeID {
			return b.TypeLit(
				prop(b, "kind", b.LitType(b.Str(tag))),
				prop(b, field, b.Keyword(typ)),
			)
		}
		shape := b.Alias(0, b.Ident("Shape"), nil,
			b.Union(variant("a", "x", ast.KindNumberKeyword), variant("b", "y", ast.KindStringKeyword)))
		inThen, inElse = b.Ident("s"), b.Ident("s")
		guard := b.Binary(b.Prop(b.Ident("s"), b.Ident("kind")), ast.OpEqEqEq, b.Str("a"))
		fn := b.Func(0, b.Ident("area"), nil,
			[]ast.NodeID{b.Param(0, b.Ident("s"), b.TypeRef(b.Ident("Shape")), ast.NoNodeID)},
			kw(b, ast.KindVoidKeyword),
			b.Block(b.If(guard, b.Block(b.ExprStmt(inThen)), b.Block(b.ExprStmt(inElse)))))
		return []ast.NodeID{shape, fn}
	})
	f.wantCodes()
	then, els := f.c.TypeAtLocation(inThen), f.c.TypeAtLocation(inElse)
	if _, ok := f.c.PropertyOfType(then, "x"); !ok {
		t.Fatalf("then branch %s lacks x", f.c.TypeToString(then))
	}
	if _, ok := f.c.PropertyOfType(els, "y"); !ok {
		t.Fatalf("else branch %s lacks y", f.c.TypeToString(els))
	}
	if f.c.types.Kind(then) == types.KindUnion || f.c.types.Kind(els) == types.KindUnion {
		t.Fatalf("branches not narrowed: %s / %s", f.c.TypeToString(then), f.c.TypeToString(els))
	}
}

func TestTruthinessNarrowingRemovesNullish(t *testing.T) {
	var inThen ast.NodeID
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		inThen = b.Ident("s")
		fn := b.Func(0, b.Ident("g"), nil,
			[]ast.NodeID{b.Param(0, b.Ident("s"), b.Union(kw(b, ast.KindStringKeyword), b.Keyword(ast.KindUndefinedKeyword)), ast.NoNodeID)},
			kw(b, ast.KindVoidKeyword),
			b.Block(
				b.If(b.Ident("s"), b.Block(b.ExprStmt(inThen)), ast.NoNodeID),
				b.ExprStmt(b.Prop(b.Ident("s"), b.Ident("length"))),
			))
		return []ast.NodeID{fn}
	})
	f.wantCodes(diag.CheckPossiblyNullish)
	if got := f.c.TypeAtLocation(inThen); got != f.c.Builtins().String {
		t.Fatalf("truthy branch = %s, want string", f.c.TypeToString(got))
	}
}

func TestLoopConvergesToUnionOfAssignments(t *testing.T) {
	var after ast.NodeID
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		name := b.Ident("g")
		cond := b.Param(0, b.Ident("cond"), kw(b, ast.KindBooleanKeyword), ast.NoNodeID)
		ret := kw(b, ast.KindVoidKeyword)
		declared := b.Union(kw(b, ast.KindStringKeyword), kw(b, ast.KindNumberKeyword), kw(b, ast.KindBooleanKeyword))
		decl := letStmt(b, ast.FlagLet, "x", declared, ast.NoNodeID)
		first := b.ExprStmt(b.Binary(b.Ident("x"), ast.OpAssign, b.Str("a")))
		loop := b.While(b.Ident("cond"), b.Block(b.ExprStmt(b.Binary(b.Ident("x"), ast.OpAssign, b.Num(1)))))
		after = b.Ident("x")
		body := b.Block(decl, first, loop, b.ExprStmt(after))
		return []ast.NodeID{b.Func(0, name, nil, []ast.NodeID{cond}, ret, body)}
	})
	f.wantCodes()
	bi := f.c.Builtins()
	if got, want := f.c.TypeAtLocation(after), f.c.UnionType([]types.TypeID{bi.String, bi.Number}); got != want {
		t.Fatalf("after loop = %s, want string | number", f.c.TypeToString(got))
	}
}

func TestInstanceofNarrowing(t *testing.T) {
	var inThen ast.NodeID
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		inThen = b.Ident("v")
		fn := b.Func(0, b.Ident("g"), nil,
			[]ast.NodeID{b.Param(0, b.Ident("v"), b.Union(b.TypeRef(b.Ident("C")), kw(b, ast.KindStringKeyword)), ast.NoNodeID)},
			kw(b, ast.KindVoidKeyword),
			b.Block(b.If(b.Binary(b.Ident("v"), ast.OpInstanceof, b.Ident("C")), b.Block(b.ExprStmt(inThen)), ast.NoNodeID)))
		return []ast.NodeID{
			b.Class(0, b.Ident("C"), nil, ast.NoNodeID, nil, b.PropDecl(0, b.Ident("n"), kw(b, ast.KindNumberKeyword), ast.NoNodeID)),
			fn,
		}
	})
	f.wantCodes()
	f.wantText(f.c.TypeAtLocation(inThen), "C")
}
