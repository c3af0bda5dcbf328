package checker

import (
	"testing"

	"stc/internal/ast"
	"stc/internal/diag"
	"stc/internal/types"
)

// identityFunc declares `function <name><T>(x: T): T { return x }`.
func identityFunc(b *ast.Builder, name string) ast.NodeID {
	tp := b.TypeParam(0, b.Ident("T"), ast.NoNodeID, ast.NoNodeID)
	x := b.Param(0, b.Ident("x"), b.TypeRef(b.Ident("T")), ast.NoNodeID)
	return b.Func(0, b.Ident(name), []ast.NodeID{tp}, []ast.NodeID{x}, b.TypeRef(b.Ident("T")),
		b.Block(b.Return(b.Ident("x"))))
}

func TestInferenceWidensLiteralArgument(t *testing.T) {
	var call ast.NodeID
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		call = b.Call(b.Ident("f"), nil, b.Str("hi"))
		return []ast.NodeID{identityFunc(b, "f"), letStmt(b, ast.FlagConst, "r", ast.NoNodeID, call)}
	})
	f.wantCodes()
	f.wantText(f.typeOf("r"), "string")
	f.wantText(f.c.TypeAtLocation(call), "string")
}

func TestInferenceKeepsLiteralUnderLiteralContext(t *testing.T) {
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		want := b.Union(b.LitType(b.Str("hi")), b.LitType(b.Str("bye")))
		call := b.Call(b.Ident("f"), nil, b.Str("hi"))
		return []ast.NodeID{identityFunc(b, "f"), letStmt(b, ast.FlagLet, "r", want, call)}
	})
	f.wantCodes()
}

func TestExplicitTypeArguments(t *testing.T) {
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		good := b.Call(b.Ident("f"), []ast.NodeID{kw(b, ast.KindNumberKeyword)}, b.Num(1))
		bad := b.Call(b.Ident("f"), []ast.NodeID{kw(b, ast.KindNumberKeyword)}, b.Str("s"))
		return []ast.NodeID{identityFunc(b, "f"), b.ExprStmt(good), b.ExprStmt(bad)}
	})
	f.wantCodes(diag.CheckArgumentNotAssignable)
}

func TestCallDiagnostics(t *testing.T) {
	num := func(b *ast.Builder) ast.NodeID { return kw(b, ast.KindNumberKeyword) }
	str := func(b *ast.Builder) ast.NodeID { return kw(b, ast.KindStringKeyword) }
	// function g(a: number, b?: string): void {}
	g := func(b *ast.Builder) ast.NodeID {
		return b.Func(0, b.Ident("g"), nil, []ast.NodeID{
			b.Param(0, b.Ident("a"), num(b), ast.NoNodeID),
			b.Param(ast.FlagOptional, b.Ident("b"), str(b), ast.NoNodeID),
		}, kw(b, ast.KindVoidKeyword), b.Block())
	}
	cases := []struct {
		name string
		args func(b *ast.Builder) []ast.NodeID
		want []diag.Code
	}{
		{"exact", func(b *ast.Builder) []ast.NodeID { return []ast.NodeID{b.Num(1), b.Str("s")} }, nil},
		{"optional omitted", func(b *ast.Builder) []ast.NodeID { return []ast.NodeID{b.Num(1)} }, nil},
		{"too few", func(b *ast.Builder) []ast.NodeID { return nil }, []diag.Code{diag.CheckArgumentCount}},
		{"too many", func(b *ast.Builder) []ast.NodeID {
			return []ast.NodeID{b.Num(1), b.Str("s"), b.Num(3)}
		}, []diag.Code{diag.CheckArgumentCount}},
		{"wrong type", func(b *ast.Builder) []ast.NodeID { return []ast.NodeID{b.Str("s")} },
			[]diag.Code{diag.CheckArgumentNotAssignable}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
				return []ast.NodeID{g(b), b.ExprStmt(b.Call(b.Ident("g"), nil, tc.args(b)...))}
			})
			f.wantCodes(tc.want...)
		})
	}
}

func TestNotCallable(t *testing.T) {
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		return []ast.NodeID{
			letStmt(b, ast.FlagConst, "n", ast.NoNodeID, b.Num(1)),
			b.ExprStmt(b.Call(b.Ident("n"), nil)),
		}
	})
	f.wantCodes(diag.CheckNotCallable)
}

func TestOverloadResolution(t *testing.T) {
	var strCall, numCall ast.NodeID
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		overload := func(param, ret ast.Kind) ast.NodeID {
			p := b.Param(0, b.Ident("x"), b.Keyword(param), ast.NoNodeID)
			return b.Func(0, b.Ident("h"), nil, []ast.NodeID{p}, b.Keyword(ret), ast.NoNodeID)
		}
		impl := b.Func(0, b.Ident("h"), nil,
			[]ast.NodeID{b.Param(0, b.Ident("x"), kw(b, ast.KindAnyKeyword), ast.NoNodeID)},
			kw(b, ast.KindAnyKeyword), b.Block(b.Return(b.Ident("x"))))
		strCall = b.Call(b.Ident("h"), nil, b.Str("s"))
		numCall = b.Call(b.Ident("h"), nil, b.Num(1))
		return []ast.NodeID{
			overload(ast.KindStringKeyword, ast.KindNumberKeyword),
			overload(ast.KindNumberKeyword, ast.KindStringKeyword),
			impl,
			b.ExprStmt(strCall),
			b.ExprStmt(numCall),
			b.ExprStmt(b.Call(b.Ident("h"), nil, b.True())),
		}
	})
	f.wantCodes(diag.CheckNoOverloadMatch)
	f.wantText(f.c.TypeAtLocation(strCall), "number")
	f.wantText(f.c.TypeAtLocation(numCall), "string")
}

func TestContextualCallbackParameter(t *testing.T) {
	var use ast.NodeID
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		// function apply<T>(x: T, fn: (v: T) => void): void {}
		tp := b.TypeParam(0, b.Ident("T"), ast.NoNodeID, ast.NoNodeID)
		fnType := b.FuncType(nil, []ast.NodeID{b.Param(0, b.Ident("v"), b.TypeRef(b.Ident("T")), ast.NoNodeID)},
			kw(b, ast.KindVoidKeyword))
		apply := b.Func(0, b.Ident("apply"), []ast.NodeID{tp}, []ast.NodeID{
			b.Param(0, b.Ident("x"), b.TypeRef(b.Ident("T")), ast.NoNodeID),
			b.Param(0, b.Ident("fn"), fnType, ast.NoNodeID),
		}, kw(b, ast.KindVoidKeyword), b.Block())
		use = b.Ident("v")
		cb := b.Arrow(nil, []ast.NodeID{b.Param(0, b.Ident("v"), ast.NoNodeID, ast.NoNodeID)}, ast.NoNodeID,
			b.Block(b.ExprStmt(use)))
		return []ast.NodeID{apply, b.ExprStmt(b.Call(b.Ident("apply"), nil, b.Num(1), cb))}
	})
	f.wantCodes()
	f.wantText(f.c.TypeAtLocation(use), "number")
}

func TestNewExpression(t *testing.T) {
	var made ast.NodeID
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		made = b.New(b.Ident("C"), nil)
		return []ast.NodeID{
			b.Class(0, b.Ident("C"), nil, ast.NoNodeID, nil,
				b.PropDecl(0, b.Ident("x"), kw(b, ast.KindNumberKeyword), b.Num(1))),
			letStmt(b, ast.FlagConst, "c", ast.NoNodeID, made),
			b.ExprStmt(b.New(b.Ident("c"), nil)),
		}
	})
	f.wantCodes(diag.CheckNotConstructable)
	f.wantText(f.c.TypeAtLocation(made), "C")
}

func TestInferTypeArgumentsQuery(t *testing.T) {
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		return []ast.NodeID{identityFunc(b, "f")}
	})
	c := f.c
	sigs := c.SignaturesOfType(f.typeOf("f"), SignatureCall)
	if len(sigs) != 1 {
		t.Fatalf("signatures = %d, want 1", len(sigs))
	}
	sig := c.Types().Signature(sigs[0])
	arg := c.ArrayType(c.Builtins().Number)
	got := c.InferTypeArguments(sig.TypeParams, []types.TypeID{sig.Params[0].Type}, []types.TypeID{arg})
	if len(got) != 1 || got[0] != arg {
		t.Fatalf("inferred = %v, want [number[]]", got)
	}
	f.wantText(c.Instantiate(sig.Params[0].Type, sig.TypeParams, got), "number[]")
}
