package binder

import (
	"fmt"

	"fortio.org/safecast"

	"stc/internal/ast"
)

// FlowID addresses a control-flow node. Zero is invalid.
type FlowID uint32

const NoFlowID FlowID = 0

func (id FlowID) IsValid() bool { return id != NoFlowID }

// FlowKind is the construct a flow node stands for.
type FlowKind uint8

const (
	FlowUnreachable FlowKind = iota + 1
	FlowStart                // entry of a function or file; Antecedent is the creation point of function expressions
	FlowBranchLabel          // join point of several branches
	FlowLoopLabel            // loop header; Antecedents[0] is the entry edge
	FlowAssignment           // Node is the assignment target or variable declaration
	FlowTrueCondition        // Node is the condition assumed true
	FlowFalseCondition       // Node is the condition assumed false
	FlowSwitchClause         // Node is the switch statement; ClauseStart/ClauseEnd select the clauses
	FlowCall                 // Node is a call expression statement (possible assertion)
)

func (k FlowKind) String() string {
	switch k {
	case FlowUnreachable:
		return "unreachable"
	case FlowStart:
		return "start"
	case FlowBranchLabel:
		return "branch"
	case FlowLoopLabel:
		return "loop"
	case FlowAssignment:
		return "assignment"
	case FlowTrueCondition:
		return "true"
	case FlowFalseCondition:
		return "false"
	case FlowSwitchClause:
		return "switch-clause"
	case FlowCall:
		return "call"
	}
	return "unknown"
}

// FlowNode is one program point. Labels use Antecedents; every other kind
// has a single Antecedent.
type FlowNode struct {
	Kind        FlowKind
	Node        ast.NodeID
	Antecedent  FlowID
	Antecedents []FlowID
	ClauseStart int
	ClauseEnd   int
}

// Flows is the program-wide flow node arena.
type Flows struct {
	data        []FlowNode
	unreachable FlowID
	reported    FlowID // unreachable, and already diagnosed
}

func NewFlows() *Flows {
	f := &Flows{data: make([]FlowNode, 1, 256)}
	f.unreachable = f.New(FlowNode{Kind: FlowUnreachable})
	f.reported = f.New(FlowNode{Kind: FlowUnreachable})
	return f
}

// Unreachable returns the shared unreachable node.
func (f *Flows) Unreachable() FlowID { return f.unreachable }

// IsUnreachable reports whether id is one of the unreachable nodes.
func (f *Flows) IsUnreachable(id FlowID) bool {
	n := f.Get(id)
	return n == nil || n.Kind == FlowUnreachable
}

func (f *Flows) New(n FlowNode) FlowID {
	value, err := safecast.Conv[uint32](len(f.data))
	if err != nil {
		panic(fmt.Errorf("flow arena overflow: %w", err))
	}
	f.data = append(f.data, n)
	return FlowID(value)
}

func (f *Flows) Get(id FlowID) *FlowNode {
	if !id.IsValid() || int(id) >= len(f.data) {
		return nil
	}
	return &f.data[id]
}

func (f *Flows) Len() int { return len(f.data) - 1 }
