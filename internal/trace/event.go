package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	// KindSpanBegin marks the start of a logical operation.
	KindSpanBegin Kind = iota + 1
	// KindSpanEnd marks the end of a logical operation.
	KindSpanEnd
	// KindPoint represents an instant event (cache hit, cycle assumption, limit).
	KindPoint
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	default:
		return "unknown"
	}
}

// Scope indicates the granularity level of the event.
// Lower numeric values represent coarser events.
type Scope uint8

const (
	// ScopeDriver covers CLI and program loading.
	ScopeDriver Scope = iota + 1
	// ScopePass covers bind / check passes over the whole program.
	ScopePass
	// ScopeFile covers per-file binding and checking.
	ScopeFile
	// ScopeSymbol covers lazy symbol resolution (declared types, aliases, variances).
	ScopeSymbol
	// ScopeRelation covers relation, inference and narrowing internals.
	ScopeRelation
)

// String returns the string representation of Scope.
func (s Scope) String() string {
	switch s {
	case ScopeDriver:
		return "driver"
	case ScopePass:
		return "pass"
	case ScopeFile:
		return "file"
	case ScopeSymbol:
		return "symbol"
	case ScopeRelation:
		return "relation"
	default:
		return "unknown"
	}
}

// Event represents a single trace event.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	Name     string // e.g. "check_file", "relation:cycle"
	Detail   string
	Extra    map[string]string
}
