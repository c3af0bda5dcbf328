package project

import (
	"testing"

	"stc/internal/ast"
)

func TestNormalizeModulePath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "lib/math.ast.yaml", want: "lib/math"},
		{in: "lib\\math.ts", want: "lib/math"},
		{in: "/types/dom.d.ts", want: "types/dom"},
		{in: "main", want: "main"},
		{in: "a//b", wantErr: true},
		{in: "a/../b", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := NormalizeModulePath(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("NormalizeModulePath(%q) = %q, want error", tt.in, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("NormalizeModulePath(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestResolveSpecifier(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		spec    string
		want    string
		wantErr bool
	}{
		{name: "relative same dir", from: "core/main", spec: "./util", want: "core/util"},
		{name: "relative parent", from: "core/sub/x", spec: "../lib", want: "core/lib"},
		{name: "from root file", from: "main", spec: "./lib", want: "lib"},
		{name: "bare is root relative", from: "core/main", spec: "shared/types", want: "shared/types"},
		{name: "extension stripped", from: "main", spec: "./lib.ts", want: "lib"},
		{name: "escape root", from: "main", spec: "../x", wantErr: true},
		{name: "empty", from: "main", spec: " ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveSpecifier(tt.from, tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("got %q, want error", got)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("got %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestCollectModuleMetaAndResolver(t *testing.T) {
	b := ast.NewBuilder(nil, nil)
	b.BeginFile("lib/index.ts")
	lib := b.EndFile([]ast.NodeID{
		b.VarStmt(ast.FlagConst|ast.FlagExport, b.VarDecl(b.Ident("x"), ast.NoNodeID, b.Num(1))),
	}, true)
	b.BeginFile("app/main.ts")
	main := b.EndFile([]ast.NodeID{
		b.Import("../lib", b.ImportSpec(ast.NoNodeID, b.Ident("x"))),
		b.Import("./missing", b.ImportSpec(ast.NoNodeID, b.Ident("y"))),
	}, true)

	meta := CollectModuleMeta(b.Nodes, main, "app/main")
	if !meta.Module || len(meta.Imports) != 2 {
		t.Fatalf("meta = %+v", meta)
	}
	if meta.Imports[0].Path != "lib" || meta.Imports[1].Path != "app/missing" {
		t.Fatalf("import paths = %q, %q", meta.Imports[0].Path, meta.Imports[1].Path)
	}

	r := NewResolver()
	if err := r.Add("lib/index", lib); err != nil {
		t.Fatal(err)
	}
	if err := r.Add("app/main", main); err != nil {
		t.Fatal(err)
	}
	if err := r.Add("lib/index", main); err == nil {
		t.Fatalf("duplicate module accepted")
	}
	if got, ok := r.Resolve(main, "../lib"); !ok || got != lib {
		t.Fatalf("Resolve(../lib) = %d, %v", got, ok)
	}
	if _, ok := r.Resolve(main, "./missing"); ok {
		t.Fatalf("missing module resolved")
	}
	if p, ok := r.Canonical("lib"); !ok || p != "lib/index" {
		t.Fatalf("Canonical(lib) = %q, %v", p, ok)
	}
}
