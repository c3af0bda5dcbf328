package diag

import (
	"fmt"
	"sort"

	"stc/internal/source"
)

// Bag accumulates diagnostics up to a limit.
type Bag struct {
	items []*Diagnostic
	max   int
}

// NewBag returns a bag holding at most max diagnostics (0 means unlimited).
func NewBag(max int) *Bag {
	capHint := max
	if capHint <= 0 || capHint > 64 {
		capHint = 64
	}
	return &Bag{
		items: make([]*Diagnostic, 0, capHint),
		max:   max,
	}
}

// Add добавляет диагностику, учитывая лимит.
// Возвращает false, если диагностика не добавлена (достигнут лимит).
func (b *Bag) Add(d *Diagnostic) bool {
	if d == nil {
		return false
	}
	if b.max > 0 && len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Cap() int {
	return b.max
}

// HasErrors reports whether any diagnostic has SevError.
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity >= SevError {
			return true
		}
	}
	return false
}

// HasWarnings reports whether any diagnostic is at least a warning.
func (b *Bag) HasWarnings() bool {
	for _, d := range b.items {
		if d.Severity >= SevWarning {
			return true
		}
	}
	return false
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items возвращает read-only slice диагностик.
// ВАЖНО: не модифицируйте возвращаемый срез!
func (b *Bag) Items() []*Diagnostic {
	return b.items
}

// ForFile returns the diagnostics whose primary span is in file, in bag order.
func (b *Bag) ForFile(file source.FileID) []*Diagnostic {
	var out []*Diagnostic
	for _, d := range b.items {
		if d.Primary.File == file {
			out = append(out, d)
		}
	}
	return out
}

// Merge appends other's diagnostics, growing the limit if needed.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	if b.max > 0 && len(b.items)+len(other.items) > b.max {
		b.max = len(b.items) + len(other.items)
	}
	b.items = append(b.items, other.items...)
}

// Sort orders diagnostics by file, start, end, severity (desc), code.
func (b *Bag) Sort() {
	SortDiagnostics(b.items)
}

// SortDiagnostics sorts in place using the Bag ordering.
func SortDiagnostics(items []*Diagnostic) {
	sort.SliceStable(items, func(i, j int) bool {
		di, dj := items[i], items[j]
		if di.Primary.File != dj.Primary.File {
			return di.Primary.File < dj.Primary.File
		}
		if di.Primary.Start != dj.Primary.Start {
			return di.Primary.Start < dj.Primary.Start
		}
		if di.Primary.End != dj.Primary.End {
			return di.Primary.End < dj.Primary.End
		}
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		return di.Code < dj.Code
	})
}

// Dedup drops repeats with the same code, span and message.
func (b *Bag) Dedup() {
	seen := make(map[string]bool)
	kept := make([]*Diagnostic, 0, len(b.items))
	for _, d := range b.items {
		key := fmt.Sprintf("%d:%s:%s", d.Code, d.Primary.String(), d.Message)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, d)
	}
	b.items = kept
}
