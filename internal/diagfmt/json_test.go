package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"stc/internal/diag"
	"stc/internal/source"
)

// TestJSONBasic проверяет базовое JSON форматирование
func TestJSONBasic(t *testing.T) {
	bag, fs, _ := sampleBag("/tmp/test.ts")

	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true, PathMode: PathModeBasename}); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}

	var output DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, buf.String())
	}
	if output.Count != 1 || len(output.Diagnostics) != 1 {
		t.Fatalf("count = %d / %d, want 1", output.Count, len(output.Diagnostics))
	}
	d := output.Diagnostics[0]
	if d.Severity != "ERROR" || d.Code != "TS2322" {
		t.Fatalf("severity/code = %s %s", d.Severity, d.Code)
	}
	if d.Title != diag.CheckNotAssignable.Title() {
		t.Fatalf("title = %q", d.Title)
	}
	loc := d.Location
	if loc.File != "test.ts" || loc.StartByte != 17 || loc.EndByte != 18 {
		t.Fatalf("location = %+v", loc)
	}
	if loc.StartLine != 2 || loc.StartCol != 7 || loc.EndCol != 8 {
		t.Fatalf("positions = %+v", loc)
	}
}

func TestJSONWithoutPositions(t *testing.T) {
	bag, fs, _ := sampleBag("p.ts")
	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{})
	if loc := out.Diagnostics[0].Location; loc.StartLine != 0 || loc.StartCol != 0 {
		t.Fatalf("positions included: %+v", loc)
	}
}

// TestJSONNotes проверяет заметки с позицией и без
func TestJSONNotes(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("n.ts", []byte("let x = 1;\nlet x = 2;\n"))
	d := diag.NewError(diag.BindDuplicateIdentifier, source.Span{File: id, Start: 15, End: 16}, "dup").
		WithNote(source.Span{File: id, Start: 4, End: 5}, "first").
		WithNote(source.Span{}, "bare")
	bag := diag.NewBag(10)
	bag.Add(d)

	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{IncludeNotes: true})
	notes := out.Diagnostics[0].Notes
	if len(notes) != 2 {
		t.Fatalf("notes = %d, want 2", len(notes))
	}
	if notes[0].Location == nil || notes[0].Location.StartByte != 4 {
		t.Fatalf("first note location = %+v", notes[0].Location)
	}
	if notes[1].Location != nil {
		t.Fatalf("bare note has location %+v", notes[1].Location)
	}

	if out := BuildDiagnosticsOutput(bag, fs, JSONOpts{}); out.Diagnostics[0].Notes != nil {
		t.Fatalf("notes emitted without IncludeNotes")
	}
}

// TestJSONMaxLimit проверяет ограничение количества диагностик
func TestJSONMaxLimit(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("m.ts", []byte("abcdefghij"))
	bag := diag.NewBag(100)
	for i := range uint32(5) {
		bag.Add(diag.NewError(diag.CheckCannotFindName, source.Span{File: id, Start: i, End: i + 1}, "missing"))
	}
	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{Max: 3})
	if out.Count != 3 || !out.Truncated {
		t.Fatalf("count = %d truncated = %v, want 3 true", out.Count, out.Truncated)
	}
	if out := BuildDiagnosticsOutput(bag, fs, JSONOpts{}); out.Count != 5 || out.Truncated {
		t.Fatalf("unlimited count = %d truncated = %v", out.Count, out.Truncated)
	}
}

func TestJSONNilBag(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, nil, source.NewFileSet(), JSONOpts{}); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "{\n  \"diagnostics\": [],\n  \"count\": 0\n}\n" {
		t.Fatalf("nil bag = %q", got)
	}
}
