package source

import "testing"

func TestFileSetResolveLineCol(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.ts", []byte("let x = 1;\nlet y = x;\n"))
	start, end := fs.Resolve(Span{File: id, Start: 15, End: 16})
	if start.Line != 2 || start.Col != 5 {
		t.Fatalf("unexpected start %+v", start)
	}
	if end.Line != 2 || end.Col != 6 {
		t.Fatalf("unexpected end %+v", end)
	}
	if got := fs.Get(id).GetLine(2); got != "let y = x;" {
		t.Fatalf("GetLine(2) = %q", got)
	}
}

func TestFileSetIDsStartAtOne(t *testing.T) {
	fs := NewFileSet()
	a := fs.AddVirtual("a.ts", nil)
	b := fs.AddVirtual("b.ts", nil)
	if a != 1 || b != 2 {
		t.Fatalf("ids = %d,%d", a, b)
	}
	if fs.Get(NoFileID) != nil {
		t.Fatalf("NoFileID must not resolve")
	}
	if id, ok := fs.Lookup("./a.ts"); !ok || id != a {
		t.Fatalf("lookup by unclean path failed: %d %v", id, ok)
	}
}

func TestInternIdentNormalizes(t *testing.T) {
	in := NewInterner()
	composed := in.InternIdent("caf\u00e9")
	decomposed := in.InternIdent("cafe\u0301")
	if composed != decomposed {
		t.Fatalf("NFC forms must intern to one id")
	}
	if in.MustLookup(composed) != "caf\u00e9" {
		t.Fatalf("unexpected text %q", in.MustLookup(composed))
	}
}

func TestSpanCoverAndContains(t *testing.T) {
	a := Span{File: 1, Start: 4, End: 8}
	b := Span{File: 1, Start: 2, End: 5}
	c := a.Cover(b)
	if c.Start != 2 || c.End != 8 {
		t.Fatalf("cover = %v", c)
	}
	if !c.Contains(a) || a.Contains(c) {
		t.Fatalf("contains mismatch")
	}
	if !b.Before(a) {
		t.Fatalf("b should order before a")
	}
}
