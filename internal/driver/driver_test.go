package driver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"stc/internal/ast"
	"stc/internal/checker"
	"stc/internal/diag"
	"stc/internal/observ"
	"stc/internal/project"
)

func codesOf(ds []*diag.Diagnostic) []diag.Code {
	out := make([]diag.Code, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Code)
	}
	return out
}

func writeDoc(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheckDirProject(t *testing.T) {
	timer := observ.NewTimer()
	opts := OptionsFromManifest(nil)
	opts.Timer = timer
	res, err := CheckDir(context.Background(), "testdata/project", opts)
	if err != nil {
		t.Fatalf("CheckDir: %v", err)
	}
	var modules []string
	for _, fr := range res.Files {
		modules = append(modules, fr.ModulePath)
	}
	if !slices.Equal(modules, []string{"app/main", "globals", "lib/math"}) {
		t.Fatalf("modules = %v", modules)
	}
	if i, j := slices.Index(res.Order, "lib/math"), slices.Index(res.Order, "app/main"); i < 0 || j < 0 || i > j {
		t.Fatalf("order = %v, want lib/math before app/main", res.Order)
	}
	main, _ := res.File("app/main")
	if got := codesOf(main.Diagnostics); !slices.Equal(got, []diag.Code{diag.CheckNotAssignable}) {
		t.Fatalf("app/main diagnostics = %v", got)
	}
	if d := main.Diagnostics[0]; d.Primary.Start != 40 || d.Primary.End != 41 {
		t.Fatalf("2322 span = %v, want the name r", d.Primary)
	}
	lib, _ := res.File("lib/math")
	if len(lib.Diagnostics) != 0 || len(main.Meta.Imports) != 1 || main.Meta.Imports[0].Path != "lib/math" {
		t.Fatalf("lib diagnostics %v, main imports %+v", lib.Diagnostics, main.Meta.Imports)
	}
	if !res.HasErrors() || len(res.Diagnostics()) != 1 {
		t.Fatalf("HasErrors = %v, diagnostics = %v", res.HasErrors(), res.Diagnostics())
	}
	if main.Meta.ModuleHash == project.Combine(main.Meta.ContentHash) {
		t.Fatalf("module hash ignores the imported module")
	}
	if len(timer.Report().Phases) == 0 {
		t.Fatalf("no phases recorded")
	}
}

func TestDeclarationTypesThroughDriver(t *testing.T) {
	root := "testdata/project"
	res, err := CheckFiles(context.Background(), root, []string{filepath.Join(root, "lib", "math.ast.yaml")}, OptionsFromManifest(nil))
	if err != nil {
		t.Fatalf("CheckFiles: %v", err)
	}
	got := map[string]string{}
	for _, nt := range res.Checker.DeclarationTypes(res.Files[0].File) {
		got[nt.Name] = nt.Text
	}
	if got["add"] != "(a: number, b: number) => number" || got["pi"] != "3" {
		t.Fatalf("declaration types = %v", got)
	}
}

func TestInvalidDocumentIsReported(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "bad.ast.yaml", "statements:\n  - kind: Frobnicate\n")
	writeDoc(t, dir, "broken.ast.yaml", "statements: [\n")
	writeDoc(t, dir, "ok.ast.yaml", "statements:\n  - {kind: VariableStatement, flags: let, items: [{kind: VariableDeclaration, name: x}]}\n")

	res, err := CheckDir(context.Background(), dir, OptionsFromManifest(nil))
	if err != nil {
		t.Fatalf("CheckDir: %v", err)
	}
	for _, name := range []string{"bad", "broken"} {
		fr, ok := res.File(name)
		if !ok || fr.File != ast.NoNodeID {
			t.Fatalf("%s: result %+v", name, fr)
		}
		if got := codesOf(fr.Diagnostics); !slices.Equal(got, []diag.Code{diag.ProjDocumentInvalid}) {
			t.Fatalf("%s diagnostics = %v", name, got)
		}
	}
	ok, _ := res.File("ok")
	if ok.File == ast.NoNodeID || len(ok.Diagnostics) != 0 {
		t.Fatalf("valid document not checked cleanly: %+v", ok)
	}
	if !slices.Equal(res.Order, []string{"ok"}) {
		t.Fatalf("order = %v", res.Order)
	}
}

func TestDuplicateModulePath(t *testing.T) {
	dir := t.TempDir()
	const doc = "module: true\nstatements: []\n"
	writeDoc(t, dir, "m.ast.yaml", doc)
	writeDoc(t, dir, "m.ast.yml", doc)

	res, err := CheckDir(context.Background(), dir, OptionsFromManifest(nil))
	if err != nil {
		t.Fatalf("CheckDir: %v", err)
	}
	if len(res.Files) != 2 {
		t.Fatalf("files = %d", len(res.Files))
	}
	if len(res.Files[0].Diagnostics) != 0 {
		t.Fatalf("first file diagnostics = %v", res.Files[0].Diagnostics)
	}
	if got := codesOf(res.Files[1].Diagnostics); !slices.Equal(got, []diag.Code{diag.ProjDuplicateModule}) {
		t.Fatalf("duplicate diagnostics = %v", got)
	}
}

func TestImportCycleWarning(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.ast.yaml", "module: true\nstatements:\n  - {kind: ImportDeclaration, from: ./b, items: [{kind: ImportSpecifier, name: y}]}\n"+
		"  - {kind: VariableStatement, flags: [const, export], items: [{kind: VariableDeclaration, name: x, init: {kind: NumericLiteral, text: \"1\"}}]}\n")
	writeDoc(t, dir, "b.ast.yaml", "module: true\nstatements:\n  - {kind: ImportDeclaration, from: ./a, items: [{kind: ImportSpecifier, name: x}]}\n"+
		"  - {kind: VariableStatement, flags: [const, export], items: [{kind: VariableDeclaration, name: y, init: {kind: NumericLiteral, text: \"2\"}}]}\n")

	opts := OptionsFromManifest(nil)
	res, err := CheckDir(context.Background(), dir, opts)
	if err != nil {
		t.Fatalf("CheckDir: %v", err)
	}
	if len(res.Diagnostics()) != 0 || !slices.Equal(res.Cycles, []string{"a", "b"}) {
		t.Fatalf("cycle run: diagnostics %v, cycles %v", res.Diagnostics(), res.Cycles)
	}

	opts.WarnImportCycles = true
	res, err = CheckDir(context.Background(), dir, opts)
	if err != nil {
		t.Fatalf("CheckDir: %v", err)
	}
	for _, fr := range res.Files {
		if got := codesOf(fr.Diagnostics); !slices.Equal(got, []diag.Code{diag.ProjImportCycle}) {
			t.Fatalf("%s diagnostics = %v", fr.ModulePath, got)
		}
	}
	if res.HasErrors() {
		t.Fatalf("import cycle warnings counted as errors")
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := CheckDir(ctx, "testdata/project", OptionsFromManifest(nil))
	if !errors.Is(err, checker.ErrCanceled) {
		t.Fatalf("err = %v, want ErrCanceled", err)
	}
}

func TestOptionsFromManifest(t *testing.T) {
	m := project.DefaultManifest("x")
	m.Compiler.StrictNullChecks = false
	m.Compiler.MaxDiagnostics = 5
	m.Compiler.MaxLoopIterations = 10
	opts := OptionsFromManifest(&m)
	if opts.Checker.StrictNullChecks || opts.Checker.MaxDiagnostics != 5 || opts.Checker.MaxLoopIterations != 10 {
		t.Fatalf("options = %+v", opts.Checker)
	}
	if !opts.Checker.StrictFunctionTypes {
		t.Fatalf("strictFunctionTypes lost")
	}
}

func TestModulePathFor(t *testing.T) {
	root := filepath.Join("a", "src")
	cases := map[string]string{
		filepath.Join(root, "lib", "x.ast.yaml"): "lib/x",
		filepath.Join(root, "main.ast.yml"):      "main",
	}
	for in, want := range cases {
		if got := modulePathFor(root, in); got != want {
			t.Fatalf("modulePathFor(%q) = %q, want %q", in, got, want)
		}
	}
	if !IsDocument("x.ast.yaml") || IsDocument("x.yaml") {
		t.Fatalf("IsDocument")
	}
}
