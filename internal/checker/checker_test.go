package checker

import (
	"context"
	"errors"
	"slices"
	"testing"

	"stc/internal/ast"
	"stc/internal/binder"
	"stc/internal/diag"
	"stc/internal/symbols"
	"stc/internal/types"
)

type fixture struct {
	t    *testing.T
	b    *ast.Builder
	c    *Checker
	file ast.NodeID
}

// checkScript builds one script file, binds and checks it.
func checkScript(t *testing.T, build func(b *ast.Builder) []ast.NodeID) *fixture {
	t.Helper()
	f := newFixture(t, build)
	if err := f.c.CheckProgram(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	return f
}

func newFixture(t *testing.T, build func(b *ast.Builder) []ast.NodeID) *fixture {
	t.Helper()
	return newFixtureWith(t, DefaultOptions(), build)
}

func newFixtureWith(t *testing.T, opts Options, build func(b *ast.Builder) []ast.NodeID) *fixture {
	t.Helper()
	b := ast.NewBuilder(nil, nil)
	b.BeginFile("test.ts")
	file := b.EndFile(build(b), false)
	prog := NewProgram(b, []ast.NodeID{file}, nil, binder.Options{})
	return &fixture{t: t, b: b, c: New(prog, opts), file: file}
}

func (f *fixture) codes() []diag.Code {
	var out []diag.Code
	for _, d := range f.c.Diagnostics(f.file) {
		out = append(out, d.Code)
	}
	return out
}

func (f *fixture) wantCodes(want ...diag.Code) {
	f.t.Helper()
	got := f.codes()
	if !slices.Equal(got, want) {
		f.t.Fatalf("diagnostics = %v, want %v (%v)", got, want, f.messages())
	}
}

func (f *fixture) messages() []string {
	var out []string
	for _, d := range f.c.Diagnostics(f.file) {
		out = append(out, d.Message)
	}
	return out
}

func (f *fixture) symbol(name string) symbols.SymbolID {
	f.t.Helper()
	res := f.c.Program().Session.Results[f.file]
	id, ok := res.Locals.Get(f.b.Strings.Intern(name))
	if !ok {
		f.t.Fatalf("no symbol %q", name)
	}
	return id
}

func (f *fixture) declared(name string) types.TypeID {
	return f.c.DeclaredTypeOfSymbol(f.symbol(name))
}

func (f *fixture) typeOf(name string) types.TypeID {
	return f.c.TypeOfSymbol(f.symbol(name))
}

func (f *fixture) wantText(t types.TypeID, want string) {
	f.t.Helper()
	if got := f.c.TypeToString(t); got != want {
		f.t.Fatalf("type = %q, want %q", got, want)
	}
}

func kw(b *ast.Builder, k ast.Kind) ast.NodeID { return b.Keyword(k) }

func letStmt(b *ast.Builder, flags ast.NodeFlags, name string, typ, init ast.NodeID) ast.NodeID {
	return b.VarStmt(flags, b.VarDecl(b.Ident(name), typ, init))
}

func TestCheckEmptyProgram(t *testing.T) {
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID { return nil })
	f.wantCodes()
}

func TestCheckSourceFileTwiceIsNoop(t *testing.T) {
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		return []ast.NodeID{letStmt(b, ast.FlagLet, "x", kw(b, ast.KindNumberKeyword), b.Str("s"))}
	})
	if err := f.c.CheckSourceFile(context.Background(), f.file); err != nil {
		t.Fatalf("second check: %v", err)
	}
	f.wantCodes(diag.CheckNotAssignable)
}

func TestCanceledContextAbortsCheck(t *testing.T) {
	f := newFixture(t, func(b *ast.Builder) []ast.NodeID {
		return []ast.NodeID{letStmt(b, ast.FlagLet, "x", ast.NoNodeID, b.Num(1))}
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := f.c.CheckProgram(ctx)
	if !errors.Is(err, ErrCanceled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want cancellation", err)
	}
}

// pollCtx reports cancellation from the cancelAt-th call to Err on.
type pollCtx struct {
	context.Context
	polls, cancelAt int
}

func (p *pollCtx) Err() error {
	p.polls++
	if p.polls >= p.cancelAt {
		return context.Canceled
	}
	return nil
}

func TestRecheckAfterCancelMatchesCleanCheck(t *testing.T) {
	const calls = 60
	build := func(b *ast.Builder) []ast.NodeID {
		// function f(x: string): string { return x }
		// function g(n: number): void {}
		stmts := []ast.NodeID{
			b.Func(0, b.Ident("f"), nil,
				[]ast.NodeID{b.Param(0, b.Ident("x"), kw(b, ast.KindStringKeyword), ast.NoNodeID)},
				kw(b, ast.KindStringKeyword), b.Block(b.Return(b.Ident("x")))),
			b.Func(0, b.Ident("g"), nil,
				[]ast.NodeID{b.Param(0, b.Ident("n"), kw(b, ast.KindNumberKeyword), ast.NoNodeID)},
				kw(b, ast.KindVoidKeyword), b.Block()),
		}
		for range calls {
			inner := b.Call(b.Ident("f"), nil, b.Str("s"))
			stmts = append(stmts, b.ExprStmt(b.Call(b.Ident("g"), nil, inner)))
		}
		return stmts
	}
	canceled := 0
	for k := 1; k < 1000; k++ {
		f := newFixture(t, build)
		err := f.c.CheckProgram(&pollCtx{Context: context.Background(), cancelAt: k})
		if err == nil {
			break
		}
		if !errors.Is(err, ErrCanceled) {
			t.Fatalf("poll %d: err = %v, want cancellation", k, err)
		}
		canceled++
		if err := f.c.CheckProgram(context.Background()); err != nil {
			t.Fatalf("poll %d: recheck: %v", k, err)
		}
		got := 0
		for _, code := range f.codes() {
			if code != diag.CheckArgumentNotAssignable {
				t.Fatalf("poll %d: unexpected diagnostics %v", k, f.messages())
			}
			got++
		}
		if got != calls {
			t.Fatalf("poll %d: %d argument errors after recheck, want %d", k, got, calls)
		}
	}
	if canceled < 3 {
		t.Fatalf("only %d cancellation points exercised", canceled)
	}
}

func TestInternalErrorUnwrapsToErrInternal(t *testing.T) {
	err := error(&InternalError{Msg: "boom"})
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("InternalError does not match ErrInternal")
	}
}

func TestDuplicateIdentifierAcrossScripts(t *testing.T) {
	b := ast.NewBuilder(nil, nil)
	b.BeginFile("a.ts")
	a := b.EndFile([]ast.NodeID{letStmt(b, ast.FlagLet, "x", ast.NoNodeID, b.Num(1))}, false)
	b.BeginFile("b.ts")
	second := b.EndFile([]ast.NodeID{b.Func(0, b.Ident("x"), nil, nil, ast.NoNodeID, b.Block())}, false)
	prog := NewProgram(b, []ast.NodeID{a, second}, nil, binder.Options{})
	c := New(prog, DefaultOptions())
	if err := c.CheckProgram(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	n := 0
	for _, d := range c.AllDiagnostics() {
		if d.Code == diag.BindDuplicateIdentifier {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("duplicate diagnostics = %d, want 1", n)
	}
}

func TestInterfaceMergesAcrossScripts(t *testing.T) {
	b := ast.NewBuilder(nil, nil)
	b.BeginFile("a.ts")
	a := b.EndFile([]ast.NodeID{
		b.Interface(0, b.Ident("I"), nil, nil, b.PropSig(0, b.Ident("a"), b.Keyword(ast.KindStringKeyword))),
	}, false)
	b.BeginFile("b.ts")
	second := b.EndFile([]ast.NodeID{
		b.Interface(0, b.Ident("I"), nil, nil, b.PropSig(0, b.Ident("b"), b.Keyword(ast.KindNumberKeyword))),
	}, false)
	prog := NewProgram(b, []ast.NodeID{a, second}, nil, binder.Options{})
	c := New(prog, DefaultOptions())
	if err := c.CheckProgram(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	id, _ := prog.Session.Results[a].Locals.Get(b.Strings.Intern("I"))
	props := c.PropertiesOfType(c.DeclaredTypeOfSymbol(id))
	if len(props) != 2 {
		t.Fatalf("merged members = %d, want 2", len(props))
	}
}

func TestImportResolvesThroughModuleGraph(t *testing.T) {
	b := ast.NewBuilder(nil, nil)
	b.BeginFile("lib.ts")
	lib := b.EndFile([]ast.NodeID{
		b.VarStmt(ast.FlagConst|ast.FlagExport, b.VarDecl(b.Ident("answer"), ast.NoNodeID, b.Num(42))),
	}, true)
	b.BeginFile("main.ts")
	use := b.Ident("answer")
	main := b.EndFile([]ast.NodeID{
		b.Import("./lib", b.ImportSpec(ast.NoNodeID, b.Ident("answer"))),
		b.ExprStmt(use),
	}, true)
	prog := NewProgram(b, []ast.NodeID{lib, main}, StaticModules{"./lib": lib}, binder.Options{})
	c := New(prog, DefaultOptions())
	if err := c.CheckProgram(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	if ds := c.AllDiagnostics(); len(ds) != 0 {
		t.Fatalf("unexpected diagnostics: %v", ds)
	}
	if got := c.TypeToString(c.TypeAtLocation(use)); got != "42" {
		t.Fatalf("imported const = %q, want 42", got)
	}
}

func TestMissingModuleReported(t *testing.T) {
	b := ast.NewBuilder(nil, nil)
	b.BeginFile("main.ts")
	main := b.EndFile([]ast.NodeID{
		b.Import("./nowhere", b.ImportSpec(ast.NoNodeID, b.Ident("x"))),
	}, true)
	prog := NewProgram(b, []ast.NodeID{main}, nil, binder.Options{})
	c := New(prog, DefaultOptions())
	if err := c.CheckProgram(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	ds := c.Diagnostics(main)
	if len(ds) != 1 || ds[0].Code != diag.CheckModuleNotFound {
		t.Fatalf("diagnostics = %v, want one %v", ds, diag.CheckModuleNotFound)
	}
}

func TestCannotFindName(t *testing.T) {
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		return []ast.NodeID{b.ExprStmt(b.Ident("missing"))}
	})
	f.wantCodes(diag.CheckCannotFindName)
}

func TestCircularTypeAlias(t *testing.T) {
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		return []ast.NodeID{b.Alias(0, b.Ident("A"), nil, b.TypeRef(b.Ident("A")))}
	})
	f.wantCodes(diag.CheckCircularAlias)
	if got := f.declared("A"); got != f.c.Builtins().Error {
		t.Fatalf("circular alias = %s, want error type", f.c.TypeToString(got))
	}
}

func TestCircularInitializers(t *testing.T) {
	selfRef := func(b *ast.Builder) []ast.NodeID {
		// let c = c.x
		return []ast.NodeID{letStmt(b, ast.FlagLet, "c", ast.NoNodeID, b.Prop(b.Ident("c"), b.Ident("x")))}
	}
	mutual := func(b *ast.Builder) []ast.NodeID {
		// let a = d; let d = a
		return []ast.NodeID{
			letStmt(b, ast.FlagLet, "a", ast.NoNodeID, b.Ident("d")),
			letStmt(b, ast.FlagLet, "d", ast.NoNodeID, b.Ident("a")),
		}
	}
	cases := []struct {
		name          string
		build         func(b *ast.Builder) []ast.NodeID
		noImplicitAny bool
		want          []diag.Code
	}{
		{"self reference", selfRef, false, []diag.Code{diag.CheckUsedBeforeDeclared}},
		{"self reference strict", selfRef, true, []diag.Code{diag.CheckUsedBeforeDeclared, diag.CheckCircularInitializer}},
		{"mutual", mutual, false, []diag.Code{diag.CheckUsedBeforeDeclared}},
		{"mutual strict", mutual, true, []diag.Code{
			diag.CheckUsedBeforeDeclared, diag.CheckCircularInitializer, diag.CheckCircularInitializer,
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.NoImplicitAny = tc.noImplicitAny
			f := newFixtureWith(t, opts, tc.build)
			if err := f.c.CheckProgram(context.Background()); err != nil {
				t.Fatalf("check: %v", err)
			}
			got := f.codes()
			slices.Sort(got)
			want := slices.Clone(tc.want)
			slices.Sort(want)
			if !slices.Equal(got, want) {
				t.Fatalf("diagnostics = %v, want %v (%v)", got, want, f.messages())
			}
		})
	}
}

func TestInitializerClosureMayReferenceItself(t *testing.T) {
	f := checkScript(t, func(b *ast.Builder) []ast.NodeID {
		// const fact = (n: number): number => { return fact(n) }
		n := b.Param(0, b.Ident("n"), kw(b, ast.KindNumberKeyword), ast.NoNodeID)
		ret := kw(b, ast.KindNumberKeyword)
		body := b.Block(b.Return(b.Call(b.Ident("fact"), nil, b.Ident("n"))))
		return []ast.NodeID{letStmt(b, ast.FlagConst, "fact", ast.NoNodeID, b.Arrow(nil, []ast.NodeID{n}, ret, body))}
	})
	f.wantCodes()
}
