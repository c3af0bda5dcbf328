package observ

import (
	"strings"
	"testing"
)

func TestTimerReportSkipsNestedPhasesInTotal(t *testing.T) {
	tm := NewTimer()
	outer := tm.Begin("check")
	inner := tm.Begin("check/a.ast.yaml")
	tm.End(inner, "")
	tm.End(outer, "2 files")

	rep := tm.Report()
	if len(rep.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(rep.Phases))
	}
	if rep.TotalMS != rep.Phases[0].DurationMS {
		t.Fatalf("total %v must equal outer phase %v", rep.TotalMS, rep.Phases[0].DurationMS)
	}
	if !strings.Contains(tm.Summary(), "// 2 files") {
		t.Fatalf("summary lacks note:\n%s", tm.Summary())
	}
}

func TestTimerEndOutOfRange(t *testing.T) {
	tm := NewTimer()
	tm.End(5, "ignored")
	if len(tm.Report().Phases) != 0 {
		t.Fatalf("unexpected phases")
	}
	var nilTimer *Timer
	nilTimer.End(nilTimer.Begin("x"), "")
}
