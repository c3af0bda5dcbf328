package trace

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelScopeFiltering(t *testing.T) {
	if LevelPhase.ShouldEmit(ScopeFile) {
		t.Fatalf("phase level must not emit file scope")
	}
	if !LevelDetail.ShouldEmit(ScopeSymbol) || LevelDetail.ShouldEmit(ScopeRelation) {
		t.Fatalf("detail level boundary is wrong")
	}
	if !LevelDebug.ShouldEmit(ScopeRelation) {
		t.Fatalf("debug must emit everything")
	}
}

func TestStreamTracerWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatText)
	sp := Begin(tr, ScopePass, "check", 0)
	Begin(tr, ScopeFile, "check_file", sp.ID()).End("")
	sp.WithExtra("files", "2").End("ok")
	out := buf.String()
	if !strings.Contains(out, "pass:check") || !strings.Contains(out, "files=2") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "check_file") {
		t.Fatalf("file scope leaked at phase level:\n%s", out)
	}
}

func TestRingTracerWraps(t *testing.T) {
	tr := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(tr, ScopeRelation, name, "")
	}
	events := tr.Snapshot()
	if len(events) != 2 || events[0].Name != "b" || events[1].Name != "c" {
		t.Fatalf("unexpected ring contents: %+v", events)
	}
}

func TestParseLevel(t *testing.T) {
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error")
	}
	if l, err := ParseLevel("DEBUG"); err != nil || l != LevelDebug {
		t.Fatalf("ParseLevel(DEBUG) = %v, %v", l, err)
	}
}

func TestMultiTracerRings(t *testing.T) {
	var buf bytes.Buffer
	ring := NewRingTracer(4, LevelDebug)
	multi := NewMultiTracer(LevelDebug, NewStreamTracer(&buf, LevelDebug, FormatText), ring)
	Point(multi, ScopeDriver, "start", "")
	rings := multi.Rings()
	if len(rings) != 1 || rings[0] != ring || len(ring.Snapshot()) != 1 {
		t.Fatalf("rings = %v", rings)
	}
}
