package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ManifestName), "[project]\nname = \"demo\"\nroot = \"src\"\n\n[compiler]\nmaxDiagnostics = 10\n")
	if err := os.Mkdir(filepath.Join(dir, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	m, err := LoadManifest(filepath.Join(dir, ManifestName))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Project.Name != "demo" || m.Compiler.MaxDiagnostics != 10 {
		t.Fatalf("manifest = %+v", m)
	}
	if !m.Compiler.StrictNullChecks || m.Compiler.MaxLoopIterations != 64 {
		t.Fatalf("defaults lost: %+v", m.Compiler)
	}
	root, err := m.SourceRoot()
	if err != nil || root != filepath.Join(m.Dir, "src") {
		t.Fatalf("SourceRoot = %q, %v", root, err)
	}
}

func TestLoadManifestErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    error
	}{
		{"no project", "[compiler]\nstrictNullChecks = false\n", ErrProjectSectionMissing},
		{"blank name", "[project]\nname = \"  \"\n", ErrProjectNameMissing},
		{"unknown key", "[project]\nname = \"x\"\nmain = \"a\"\n", nil},
		{"bad loop bound", "[project]\nname = \"x\"\n[compiler]\nmaxLoopIterations = 0\n", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ManifestName)
			writeFile(t, path, tc.content)
			_, err := LoadManifest(path)
			if err == nil {
				t.Fatalf("expected error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestSourceRootEscape(t *testing.T) {
	m := DefaultManifest("x")
	m.Dir = t.TempDir()
	m.Project.Root = "../elsewhere"
	if _, err := m.SourceRoot(); err == nil {
		t.Fatalf("escaping root accepted")
	}
}

func TestWriteAndFindManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestName)
	if err := WriteManifest(path, DefaultManifest("demo")); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	if err := WriteManifest(path, DefaultManifest("demo")); err == nil {
		t.Fatalf("second write overwrote the manifest")
	}
	nested := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	m, ok, err := LoadProjectManifest(nested)
	if err != nil || !ok {
		t.Fatalf("LoadProjectManifest = %v, %v", ok, err)
	}
	if m.Project.Name != "demo" || m.Dir != dir {
		t.Fatalf("manifest = %+v", m)
	}
	root, ok, err := FindProjectRoot(filepath.Join(t.TempDir(), "none"))
	if err != nil || ok {
		t.Fatalf("FindProjectRoot outside project = %q, %v, %v", root, ok, err)
	}
}

func TestCombineIsOrderSensitive(t *testing.T) {
	a, b := Digest{1}, Digest{2}
	if Combine(Digest{}, a, b) == Combine(Digest{}, b, a) {
		t.Fatalf("Combine ignored dependency order")
	}
	if !(Digest{}).IsZero() || a.IsZero() {
		t.Fatalf("IsZero")
	}
}
