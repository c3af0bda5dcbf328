package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"stc/internal/diag"
	"stc/internal/source"
)

const sample = "let a = 1;\nconst r: string = add(1, 2);\n"

// sampleBag returns one 2322 error on "r" in the second line of sample.
func sampleBag(path string) (*diag.Bag, *source.FileSet, source.FileID) {
	fs := source.NewFileSet()
	id := fs.AddVirtual(path, []byte(sample))
	bag := diag.NewBag(10)
	d := diag.NewError(diag.CheckNotAssignable, source.Span{File: id, Start: 17, End: 18},
		"Type 'number' is not assignable to type 'string'.")
	bag.Add(d)
	return bag, fs, id
}

// TestPathModes проверяет различные режимы форматирования путей
func TestPathModes(t *testing.T) {
	bag, fs, _ := sampleBag("/home/user/project/src/test.ts")

	tests := []struct {
		name string
		mode PathMode
		want string
	}{
		{"absolute", PathModeAbsolute, "/home/user/project/src/test.ts:2:7:"},
		{"relative", PathModeRelative, "src/test.ts:2:7:"},
		{"basename", PathModeBasename, "test.ts:2:7:"},
		{"auto short", PathModeAuto, "/home/user/project/src/test.ts:2:7:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Pretty(&buf, bag, fs, PrettyOpts{PathMode: tt.mode, BaseDir: "/home/user/project"})
			if !strings.HasPrefix(buf.String(), tt.want) {
				t.Fatalf("output %q does not start with %q", buf.String(), tt.want)
			}
		})
	}
}

func TestAutoPathShortensLongAbsolute(t *testing.T) {
	long := "/very/long/directory/structure/that/keeps/going/file.ts"
	f := &source.File{Path: long}
	if got := formatPath(f, PathModeAuto, ""); got != "file.ts" {
		t.Fatalf("auto = %q, want file.ts", got)
	}
	if got := formatPath(nil, PathModeAuto, ""); got != "<unknown>" {
		t.Fatalf("nil file = %q", got)
	}
	if got := formatPath(&source.File{Path: "/a/b.ts"}, PathModeRelative, "/c"); got != "/a/b.ts" {
		t.Fatalf("escaping relative = %q, want path unchanged", got)
	}
}

func TestPrettySnippet(t *testing.T) {
	bag, fs, _ := sampleBag("m.ts")
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename, Context: 1})
	want := "m.ts:2:7: ERROR TS2322: Type 'number' is not assignable to type 'string'.\n" +
		" 1 | let a = 1;\n" +
		" 2 | const r: string = add(1, 2);\n" +
		"   |       ^\n"
	if got := buf.String(); got != want {
		t.Fatalf("pretty output mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestPrettyUnderlineWidth(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("w.ts", []byte("let s: string = 42;\n"))
	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.CheckNotAssignable, source.Span{File: id, Start: 4, End: 5}, "bad"))
	bag.Add(diag.NewError(diag.CheckNotAssignable, source.Span{File: id, Start: 16, End: 18}, "bad"))
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename})
	out := buf.String()
	if !strings.Contains(out, "  |     ^\n") {
		t.Fatalf("single-char caret missing:\n%s", out)
	}
	if !strings.Contains(out, "  |                 ^~\n") {
		t.Fatalf("two-char underline missing:\n%s", out)
	}
}

func TestPrettyWithoutText(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("doc.ast.yaml", nil)
	bag := diag.NewBag(10)
	bag.Add(diag.New(diag.SevWarning, diag.ProjImportCycle, source.Span{File: id}, "cycle"))
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{})
	if got, want := buf.String(), "doc.ast.yaml:1:1: WARNING TS6202: cycle\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPrettyNotes(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("n.ts", []byte("let x = 1;\nlet x = 2;\n"))
	d := diag.NewError(diag.BindDuplicateIdentifier, source.Span{File: id, Start: 15, End: 16}, "Duplicate identifier 'x'.").
		WithNote(source.Span{File: id, Start: 4, End: 5}, "'x' was also declared here.").
		WithNote(source.Span{}, "elaboration")
	bag := diag.NewBag(10)
	bag.Add(d)

	var hidden bytes.Buffer
	Pretty(&hidden, bag, fs, PrettyOpts{})
	if strings.Contains(hidden.String(), "note:") {
		t.Fatalf("notes printed without ShowNotes:\n%s", hidden.String())
	}

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{ShowNotes: true})
	out := buf.String()
	if !strings.Contains(out, "  note: n.ts:1:5: 'x' was also declared here.\n") {
		t.Fatalf("located note missing:\n%s", out)
	}
	if !strings.Contains(out, "  = elaboration\n") {
		t.Fatalf("bare note missing:\n%s", out)
	}
}

func TestPrettyColor(t *testing.T) {
	bag, fs, _ := sampleBag("c.ts")
	var plain, colored bytes.Buffer
	Pretty(&plain, bag, fs, PrettyOpts{})
	Pretty(&colored, bag, fs, PrettyOpts{Color: true})
	if strings.Contains(plain.String(), "\x1b[") {
		t.Fatalf("plain output contains escapes: %q", plain.String())
	}
	if !strings.Contains(colored.String(), "\x1b[") {
		t.Fatalf("colored output has no escapes: %q", colored.String())
	}
}

func TestSummary(t *testing.T) {
	bag, _, id := sampleBag("s.ts")
	bag.Add(diag.New(diag.SevWarning, diag.ProjImportCycle, source.Span{File: id}, "cycle"))
	bag.Add(diag.New(diag.SevWarning, diag.ProjImportCycle, source.Span{File: id}, "cycle"))
	var buf bytes.Buffer
	Summary(&buf, bag, false)
	if got, want := buf.String(), "1 error, 2 warnings\n"; got != want {
		t.Fatalf("summary = %q, want %q", got, want)
	}
	buf.Reset()
	Summary(&buf, diag.NewBag(1), false)
	if buf.Len() != 0 {
		t.Fatalf("empty bag printed %q", buf.String())
	}
}
