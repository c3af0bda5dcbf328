package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"stc/internal/project"
)

func TestShapeCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "shapes.mp")
	c, err := OpenShapeCache(path)
	if err != nil {
		t.Fatalf("open missing: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("fresh cache has %d entries", c.Len())
	}
	entry := ShapeEntry{ContentHash: project.Digest{1}, ModuleHash: project.Digest{2}, Shape: project.Digest{3}}
	c.Put("lib/math", entry)
	c.Put("gone", entry)
	c.Retain([]string{"lib/math"})
	if err := c.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	again, err := OpenShapeCache(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok := again.Get("lib/math")
	if !ok || got != entry || again.Len() != 1 {
		t.Fatalf("Get = %+v, %v (len %d)", got, ok, again.Len())
	}
	if err := again.Save(); err != nil {
		t.Fatalf("no-op Save: %v", err)
	}
}

func TestShapeCacheSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shapes.mp")
	data, err := msgpack.Marshal(&shapeFile{Schema: shapeCacheSchema + 1, Entries: map[string]ShapeEntry{"x": {}}})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := OpenShapeCache(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := c.Get("x"); ok {
		t.Fatalf("entry from another schema survived")
	}
}

func TestShapeCacheCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shapes.mp")
	if err := os.WriteFile(path, []byte{0xc1}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenShapeCache(path); err == nil {
		t.Fatalf("corrupt cache accepted")
	}
}

func TestNilShapeCache(t *testing.T) {
	var c *ShapeCache
	c.Put("x", ShapeEntry{})
	if _, ok := c.Get("x"); ok || c.Len() != 0 || c.Save() != nil || c.Path() != "" {
		t.Fatalf("nil cache should be inert")
	}
}

func TestDefaultCachePath(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	a, err := DefaultCachePath("/p/one")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := DefaultCachePath("/p/two")
	if a == b || filepath.Ext(a) != ".mp" {
		t.Fatalf("paths %q and %q", a, b)
	}
}

const libDoc = `module: true
statements:
  - kind: VariableStatement
    flags: [let, export]
    items:
      - {kind: VariableDeclaration, name: v, type: {kind: %s}}
  - kind: VariableStatement
    flags: let
    items:
      - {kind: VariableDeclaration, name: hidden, init: {kind: %s}}
`

const mainDoc = `module: true
statements:
  - {kind: ImportDeclaration, from: ./lib, items: [{kind: ImportSpecifier, name: v}]}
`

func TestShapeChangesAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(t.TempDir(), "shapes.mp")
	writeDoc(t, dir, "main.ast.yaml", mainDoc)

	run := func(exportType, hiddenInit string) (lib, main FileResult) {
		t.Helper()
		writeDoc(t, dir, "lib.ast.yaml", fmt.Sprintf(libDoc, exportType, hiddenInit))
		cache, err := OpenShapeCache(cachePath)
		if err != nil {
			t.Fatalf("open cache: %v", err)
		}
		opts := OptionsFromManifest(nil)
		opts.Cache = cache
		res, err := CheckDir(context.Background(), dir, opts)
		if err != nil {
			t.Fatalf("CheckDir: %v", err)
		}
		if err := cache.Save(); err != nil {
			t.Fatalf("Save: %v", err)
		}
		l, _ := res.File("lib")
		m, _ := res.File("main")
		return *l, *m
	}

	lib, main := run("NumberKeyword", "TrueKeyword")
	if lib.ShapeChanged || main.ShapeChanged || main.Affected {
		t.Fatalf("first run reported changes")
	}
	first := lib.Shape

	// меняется только неэкспортируемое объявление
	lib, main = run("NumberKeyword", "FalseKeyword")
	if lib.Shape != first || lib.ShapeChanged || main.Affected {
		t.Fatalf("private change altered the public shape")
	}

	lib, main = run("StringKeyword", "FalseKeyword")
	if !lib.ShapeChanged || main.ShapeChanged || !main.Affected {
		t.Fatalf("export change: lib changed=%v, main changed=%v affected=%v", lib.ShapeChanged, main.ShapeChanged, main.Affected)
	}
}
