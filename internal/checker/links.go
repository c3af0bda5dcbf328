package checker

import (
	"stc/internal/ast"
	"stc/internal/symbols"
	"stc/internal/types"
)

type resolveState uint8

const (
	stateNone resolveState = iota
	stateResolving
	stateDone
)

// symbolLinks are the memo slots of one symbol. Each slot is written once.
type symbolLinks struct {
	typ      types.TypeID // type of a value symbol
	typState resolveState

	declared      types.TypeID // declared type of a type symbol
	declaredState resolveState

	target      symbols.SymbolID // resolved import alias
	targetState resolveState

	typeParams     []types.TypeID // all type parameters (outer first) of a class, interface or alias
	localParams    []types.TypeID
	instantiations map[string]types.TypeID // alias instantiations keyed by arguments

	bases      []types.TypeID
	basesState resolveState

	constraint      types.TypeID
	constraintState resolveState
	deflt           types.TypeID
	defaultState    resolveState

	enumValue     float64
	enumString    *string
	enumComputed  bool
	enumDone      bool
	contextTyped  bool // parameter type came from a contextual signature
	declChecked   bool
	staticType    types.TypeID // constructor side of a class
	referenced    bool
	instanceOwner types.TypeID
}

type nodeLinks struct {
	typ       types.TypeID // resolved type of an expression or type node
	typState  resolveState
	sig       types.SignatureID // signature of a declaration or resolved call target
	sigState  resolveState
	sym       symbols.SymbolID // resolved symbol of a reference
	symDone   bool
	checked   bool
	assertion bool // call expression statement resolved to an assertion
	contextual types.TypeID
}

type signatureLinks struct {
	ret      types.TypeID
	retState resolveState

	instantiations map[types.MapperID]types.SignatureID
	erased         types.SignatureID
	predicate      *types.Predicate
	predDone       bool
}

func (c *Checker) symLink(id symbols.SymbolID) *symbolLinks {
	l, ok := c.symLinks[id]
	if !ok {
		l = &symbolLinks{}
		c.symLinks[id] = l
	}
	return l
}

func (c *Checker) nodeLink(id ast.NodeID) *nodeLinks {
	l, ok := c.nodeLinks[id]
	if !ok {
		l = &nodeLinks{}
		c.nodeLinks[id] = l
	}
	return l
}

func (c *Checker) sigLink(id types.SignatureID) *signatureLinks {
	l, ok := c.sigLinks[id]
	if !ok {
		l = &signatureLinks{}
		c.sigLinks[id] = l
	}
	return l
}

// markResolving flags slot as in progress. Inside a file check the flag is
// journaled so an aborted check leaves the slot recomputable.
func (c *Checker) markResolving(slot *resolveState) {
	*slot = stateResolving
	c.onAbort(func() {
		if *slot == stateResolving {
			*slot = stateNone
		}
	})
}

// onAbort registers undo for provisional state written during a file check.
// The journal is replayed in reverse by recoverAbort and dropped when the
// file completes.
func (c *Checker) onAbort(undo func()) {
	if c.inCheck {
		c.undo = append(c.undo, undo)
	}
}

// --- circularity detection ---

type resolutionKind uint8

const (
	resolveSymbolType resolutionKind = iota
	resolveDeclaredType
	resolveBaseTypes
	resolveReturnType
	resolveConstraint
	resolveAlias
	resolveMembers
)

type resolution struct {
	kind     resolutionKind
	id       uint32
	circular bool
}

// pushResolution records that (kind, id) is being computed. It returns false
// when the same computation is already on the stack; every frame from that
// point on is then marked circular.
func (c *Checker) pushResolution(kind resolutionKind, id uint32) bool {
	for i := len(c.resolutions) - 1; i >= 0; i-- {
		r := c.resolutions[i]
		if r.kind == kind && r.id == id {
			for j := i; j < len(c.resolutions); j++ {
				c.resolutions[j].circular = true
			}
			return false
		}
	}
	c.resolutions = append(c.resolutions, resolution{kind: kind, id: id})
	return true
}

// popResolution removes the top frame and reports whether it completed
// without running into itself.
func (c *Checker) popResolution() bool {
	n := len(c.resolutions)
	if n == 0 {
		internalf(ast.NoNodeID, "resolution stack underflow")
	}
	r := c.resolutions[n-1]
	c.resolutions = c.resolutions[:n-1]
	return !r.circular
}
