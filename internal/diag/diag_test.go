package diag

import (
	"testing"

	"stc/internal/source"
)

func TestBagSortOrdersByPosition(t *testing.T) {
	bag := NewBag(0)
	r := BagReporter{Bag: bag}
	ReportError(r, CheckNotAssignable, source.Span{File: 2, Start: 1, End: 2}, "b").Emit()
	ReportWarning(r, CheckUnreachableCode, source.Span{File: 1, Start: 9, End: 12}, "c").Emit()
	ReportError(r, CheckCannotFindName, source.Span{File: 1, Start: 3, End: 4}, "a").Emit()
	bag.Sort()
	got := []string{bag.Items()[0].Message, bag.Items()[1].Message, bag.Items()[2].Message}
	want := []string{"a", "c", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestBagLimit(t *testing.T) {
	bag := NewBag(1)
	if !bag.Add(NewError(CheckNotAssignable, source.Span{}, "x")) {
		t.Fatalf("first add must succeed")
	}
	if bag.Add(NewError(CheckNotAssignable, source.Span{}, "y")) {
		t.Fatalf("second add must hit the limit")
	}
}

func TestDedupReporterSuppressesRepeats(t *testing.T) {
	bag := NewBag(0)
	r := NewDedupReporter(BagReporter{Bag: bag})
	sp := source.Span{File: 1, Start: 0, End: 3}
	ReportError(r, CheckCannotFindName, sp, "Cannot find name 'x'.").Emit()
	ReportError(r, CheckCannotFindName, sp, "Cannot find name 'x'.").Emit()
	if bag.Len() != 1 {
		t.Fatalf("expected one diagnostic, got %d", bag.Len())
	}
}

func TestCodeClassAndID(t *testing.T) {
	if BindBreakTargetMissing.Class() != ClassBinder || BindDuplicateIdentifier.Class() != ClassBinder {
		t.Fatalf("binder codes must classify as binder")
	}
	if CheckNotAssignable.ID() != "TS2322" {
		t.Fatalf("unexpected id %s", CheckNotAssignable.ID())
	}
}
