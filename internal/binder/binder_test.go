package binder

import (
	"testing"

	"stc/internal/ast"
	"stc/internal/diag"
	"stc/internal/symbols"
)

func bindStmts(t *testing.T, build func(b *ast.Builder) []ast.NodeID) (*ast.Builder, *Result) {
	t.Helper()
	b := ast.NewBuilder(nil, nil)
	b.BeginFile("test.ts")
	file := b.EndFile(build(b), false)
	return b, Bind(b, file, Options{})
}

func codes(res *Result) []diag.Code {
	var out []diag.Code
	for _, d := range res.Diagnostics.Items() {
		out = append(out, d.Code)
	}
	return out
}

func wantCodes(t *testing.T, res *Result, want ...diag.Code) {
	t.Helper()
	got := codes(res)
	if len(got) != len(want) {
		t.Fatalf("diagnostics = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("diagnostics = %v, want %v", got, want)
		}
	}
}

func local(t *testing.T, b *ast.Builder, res *Result, name string) *symbols.Symbol {
	t.Helper()
	id, ok := res.Locals.Get(b.Strings.Intern(name))
	if !ok {
		t.Fatalf("no local %q", name)
	}
	return res.Symbols().Get(id)
}

func TestOverloadsMergeIntoOneSymbol(t *testing.T) {
	var impl ast.NodeID
	b, res := bindStmts(t, func(b *ast.Builder) []ast.NodeID {
		sig := func(typ ast.Kind) ast.NodeID {
			p := b.Param(0, b.Ident("x"), b.Keyword(typ), ast.NoNodeID)
			return b.Func(0, b.Ident("f"), nil, []ast.NodeID{p}, b.Keyword(typ), ast.NoNodeID)
		}
		p := b.Param(0, b.Ident("x"), b.Keyword(ast.KindAnyKeyword), ast.NoNodeID)
		impl = b.Func(0, b.Ident("f"), nil, []ast.NodeID{p}, ast.NoNodeID, b.Block(b.Return(b.Ident("x"))))
		return []ast.NodeID{sig(ast.KindStringKeyword), sig(ast.KindNumberKeyword), impl}
	})
	wantCodes(t, res)
	sym := local(t, b, res, "f")
	if len(sym.Decls) != 3 {
		t.Fatalf("decls = %d, want 3", len(sym.Decls))
	}
	if sym.ValueDecl != impl {
		t.Fatalf("value declaration = %d, want implementation %d", sym.ValueDecl, impl)
	}
}

func TestDuplicateImplementation(t *testing.T) {
	_, res := bindStmts(t, func(b *ast.Builder) []ast.NodeID {
		return []ast.NodeID{
			b.Func(0, b.Ident("f"), nil, nil, ast.NoNodeID, b.Block()),
			b.Func(0, b.Ident("f"), nil, nil, ast.NoNodeID, b.Block()),
		}
	})
	wantCodes(t, res, diag.BindDuplicateFunctionImpl)
}

func TestUnknownBreakLabel(t *testing.T) {
	b, res := bindStmts(t, func(b *ast.Builder) []ast.NodeID {
		fn := b.Func(0, b.Ident("g"), nil, nil, ast.NoNodeID, b.Block(b.Break(b.Ident("missing"))))
		after := b.VarStmt(ast.FlagLet, b.VarDecl(b.Ident("y"), ast.NoNodeID, b.Num(1)))
		return []ast.NodeID{fn, after}
	})
	wantCodes(t, res, diag.BindBreakTargetMissing)
	local(t, b, res, "y")
}

func TestLetAndFunctionConflict(t *testing.T) {
	b, res := bindStmts(t, func(b *ast.Builder) []ast.NodeID {
		return []ast.NodeID{
			b.VarStmt(ast.FlagLet, b.VarDecl(b.Ident("x"), ast.NoNodeID, b.Num(1))),
			b.Func(0, b.Ident("x"), nil, nil, ast.NoNodeID, b.Block()),
		}
	})
	wantCodes(t, res, diag.BindDuplicateIdentifier)
	if sym := local(t, b, res, "x"); sym.Flags&symbols.BlockScopedVariable == 0 || sym.Flags&symbols.Function != 0 {
		t.Fatalf("x flags = %v, want the let binding to stay", sym.Flags)
	}
}

func TestInterfaceMerge(t *testing.T) {
	b, res := bindStmts(t, func(b *ast.Builder) []ast.NodeID {
		return []ast.NodeID{
			b.Interface(0, b.Ident("I"), nil, nil, b.PropSig(0, b.Ident("a"), b.Keyword(ast.KindStringKeyword))),
			b.Interface(0, b.Ident("I"), nil, nil, b.PropSig(0, b.Ident("b"), b.Keyword(ast.KindNumberKeyword))),
		}
	})
	wantCodes(t, res)
	sym := local(t, b, res, "I")
	if len(sym.Decls) != 2 || sym.Members == nil || sym.Members.Len() != 2 {
		t.Fatalf("merged interface: decls=%d members=%v", len(sym.Decls), sym.Members)
	}
}

func TestClassMembersAndStatics(t *testing.T) {
	b, res := bindStmts(t, func(b *ast.Builder) []ast.NodeID {
		return []ast.NodeID{b.Class(0, b.Ident("C"), nil, ast.NoNodeID, nil,
			b.PropDecl(0, b.Ident("x"), b.Keyword(ast.KindNumberKeyword), ast.NoNodeID),
			b.PropDecl(ast.FlagStatic, b.Ident("y"), b.Keyword(ast.KindStringKeyword), ast.NoNodeID),
			b.Method(0, b.Ident("m"), nil, nil, ast.NoNodeID, b.Block()),
			b.Ctor(nil, b.Block()),
		)}
	})
	wantCodes(t, res)
	sym := local(t, b, res, "C")
	for _, name := range []string{"x", "m", symbols.NameCtor} {
		if _, ok := sym.Members.Get(b.Strings.Intern(name)); !ok {
			t.Fatalf("member %q missing", name)
		}
	}
	if _, ok := sym.Exports.Get(b.Strings.Intern("y")); !ok {
		t.Fatalf("static y missing from exports")
	}
	if _, ok := sym.Members.Get(b.Strings.Intern("y")); ok {
		t.Fatalf("static y leaked into instance members")
	}
}

func TestModuleExports(t *testing.T) {
	b := ast.NewBuilder(nil, nil)
	b.BeginFile("m.ts")
	stmts := []ast.NodeID{
		b.Func(ast.FlagExport, b.Ident("f"), nil, nil, ast.NoNodeID, b.Block()),
		b.VarStmt(ast.FlagExport|ast.FlagConst, b.VarDecl(b.Ident("c"), ast.NoNodeID, b.Num(1))),
		b.VarStmt(ast.FlagLet, b.VarDecl(b.Ident("hidden"), ast.NoNodeID, b.Num(2))),
	}
	file := b.EndFile(stmts, false)
	res := Bind(b, file, Options{})
	if !res.Module {
		t.Fatalf("file with exports should be a module")
	}
	if res.Exports.Len() != 2 {
		t.Fatalf("exports = %d, want 2", res.Exports.Len())
	}
	if _, ok := res.Exports.Get(b.Strings.Intern("hidden")); ok {
		t.Fatalf("non-exported binding exported")
	}
}

func TestNamespaceExports(t *testing.T) {
	b, res := bindStmts(t, func(b *ast.Builder) []ast.NodeID {
		return []ast.NodeID{b.Namespace(0, b.Ident("N"),
			b.VarStmt(ast.FlagExport|ast.FlagConst, b.VarDecl(b.Ident("a"), ast.NoNodeID, b.Num(1))),
			b.VarStmt(ast.FlagConst, b.VarDecl(b.Ident("b"), ast.NoNodeID, b.Num(2))),
		)}
	})
	sym := local(t, b, res, "N")
	if sym.Flags&symbols.ValueModule == 0 {
		t.Fatalf("namespace with values should be a value module, got %v", sym.Flags)
	}
	if sym.Exports == nil || sym.Exports.Len() != 1 {
		t.Fatalf("namespace exports = %v, want only a", sym.Exports)
	}
}

func TestIfJoinsBothAssignments(t *testing.T) {
	_, res := bindStmts(t, func(b *ast.Builder) []ast.NodeID {
		assign := func(v float64) ast.NodeID {
			return b.Block(b.ExprStmt(b.Binary(b.Ident("y"), ast.OpAssign, b.Num(v))))
		}
		return []ast.NodeID{b.If(b.Ident("x"), assign(1), assign(2))}
	})
	s := res.Session()
	end := s.Flows.Get(s.EndFlow[res.File])
	if end.Kind != FlowBranchLabel || len(end.Antecedents) != 2 {
		t.Fatalf("end flow = %+v, want a two-way join", end)
	}
	wantCond := []FlowKind{FlowTrueCondition, FlowFalseCondition}
	for i, a := range end.Antecedents {
		n := s.Flows.Get(a)
		if n.Kind != FlowAssignment {
			t.Fatalf("antecedent %d kind = %v, want assignment", i, n.Kind)
		}
		branch := s.Flows.Get(n.Antecedent)
		if branch.Kind != FlowBranchLabel || len(branch.Antecedents) != 1 {
			t.Fatalf("antecedent %d follows %+v, want the branch label", i, branch)
		}
		if got := s.Flows.Get(branch.Antecedents[0]).Kind; got != wantCond[i] {
			t.Fatalf("branch %d entered by %v, want %v", i, got, wantCond[i])
		}
	}
}

func TestWhileLoopLabel(t *testing.T) {
	var body ast.NodeID
	_, res := bindStmts(t, func(b *ast.Builder) []ast.NodeID {
		body = b.ExprStmt(b.Binary(b.Ident("i"), ast.OpAssign, b.Num(1)))
		return []ast.NodeID{b.While(b.Ident("c"), b.Block(body))}
	})
	s := res.Session()
	preBody := s.Flows.Get(s.FlowOf[body])
	if preBody.Kind != FlowBranchLabel || len(preBody.Antecedents) != 1 {
		t.Fatalf("body entry = %+v, want the pre-body label", preBody)
	}
	cond := s.Flows.Get(preBody.Antecedents[0])
	if cond.Kind != FlowTrueCondition {
		t.Fatalf("pre-body entered by %v, want true condition", cond.Kind)
	}
	loop := s.Flows.Get(cond.Antecedent)
	if loop.Kind != FlowLoopLabel || len(loop.Antecedents) != 2 {
		t.Fatalf("loop header = %+v, want entry and back edge", loop)
	}
}

func TestUnreachableReportedOnce(t *testing.T) {
	_, res := bindStmts(t, func(b *ast.Builder) []ast.NodeID {
		body := b.Block(
			b.Return(b.Num(1)),
			b.VarStmt(ast.FlagLet, b.VarDecl(b.Ident("a"), ast.NoNodeID, b.Num(1))),
			b.VarStmt(ast.FlagLet, b.VarDecl(b.Ident("b"), ast.NoNodeID, b.Num(2))),
		)
		return []ast.NodeID{b.Func(0, b.Ident("f"), nil, nil, ast.NoNodeID, body)}
	})
	wantCodes(t, res, diag.CheckUnreachableCode)
}

func TestLabelDiagnostics(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *ast.Builder) []ast.NodeID
		want  []diag.Code
	}{
		{
			name: "continue outer loop",
			build: func(b *ast.Builder) []ast.NodeID {
				inner := b.While(b.Ident("d"), b.Block(b.Continue(b.Ident("outer"))))
				return []ast.NodeID{b.Labeled(b.Ident("outer"), b.While(b.Ident("c"), b.Block(inner)))}
			},
		},
		{
			name: "duplicate label",
			build: func(b *ast.Builder) []ast.NodeID {
				inner := b.Labeled(b.Ident("a"), b.While(b.Ident("d"), b.Block()))
				return []ast.NodeID{b.Labeled(b.Ident("a"), b.While(b.Ident("c"), b.Block(inner)))}
			},
			want: []diag.Code{diag.BindDuplicateLabel},
		},
		{
			name: "continue to block label",
			build: func(b *ast.Builder) []ast.NodeID {
				return []ast.NodeID{b.Labeled(b.Ident("l"), b.Block(b.Continue(b.Ident("l"))))}
			},
			want: []diag.Code{diag.BindContinueTargetMissing},
		},
		{
			name: "break across function",
			build: func(b *ast.Builder) []ast.NodeID {
				arrow := b.Arrow(nil, nil, ast.NoNodeID, b.Block(b.Break(b.Ident("l"))))
				decl := b.VarStmt(ast.FlagConst, b.VarDecl(b.Ident("f"), ast.NoNodeID, arrow))
				return []ast.NodeID{b.Labeled(b.Ident("l"), b.While(b.Ident("c"), b.Block(decl)))}
			},
			want: []diag.Code{diag.BindJumpAcrossFunction},
		},
		{
			name: "bare break",
			build: func(b *ast.Builder) []ast.NodeID {
				return []ast.NodeID{b.Break(ast.NoNodeID)}
			},
			want: []diag.Code{diag.BindBreakOutsideLoop},
		},
		{
			name: "break in switch",
			build: func(b *ast.Builder) []ast.NodeID {
				return []ast.NodeID{b.Switch(b.Ident("x"), b.Case(b.Num(1), b.Break(ast.NoNodeID)), b.Default())}
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, res := bindStmts(t, tc.build)
			wantCodes(t, res, tc.want...)
		})
	}
}

func TestSwitchClauseRanges(t *testing.T) {
	var stmtA, stmtB ast.NodeID
	_, res := bindStmts(t, func(b *ast.Builder) []ast.NodeID {
		stmtA = b.ExprStmt(b.Ident("a"))
		stmtB = b.ExprStmt(b.Ident("b"))
		return []ast.NodeID{b.Switch(b.Ident("x"),
			b.Case(b.Str("p")),
			b.Case(b.Str("q"), stmtA, b.Break(ast.NoNodeID)),
			b.Case(b.Str("r"), stmtB),
		)}
	})
	s := res.Session()
	check := func(stmt ast.NodeID, start, end int) {
		t.Helper()
		pre := s.Flows.Get(s.FlowOf[stmt])
		if pre.Kind != FlowBranchLabel || len(pre.Antecedents) == 0 {
			t.Fatalf("clause entry = %+v", pre)
		}
		c := s.Flows.Get(pre.Antecedents[0])
		if c.Kind != FlowSwitchClause || c.ClauseStart != start || c.ClauseEnd != end {
			t.Fatalf("clause = %+v, want [%d,%d)", c, start, end)
		}
	}
	check(stmtA, 0, 2)
	check(stmtB, 2, 3)

	end := s.Flows.Get(s.EndFlow[res.File])
	if end.Kind != FlowBranchLabel || len(end.Antecedents) != 3 {
		t.Fatalf("post switch = %+v, want break, fallthrough end and implicit default", end)
	}
}
