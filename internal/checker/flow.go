package checker

import (
	"strconv"
	"strings"

	"stc/internal/ast"
	"stc/internal/binder"
	"stc/internal/symbols"
	"stc/internal/types"
)

// maxFlowDepth bounds the recursion of one flow walk. Deeper graphs fall
// back to the declared type.
const maxFlowDepth = 2000

type flowKey struct {
	flow     binder.FlowID
	ref      string
	declared types.TypeID
	initial  types.TypeID
}

// flowLoopFrame is a loop header under evaluation for one reference.
// Re-entering the header yields current, the union computed so far.
type flowLoopFrame struct {
	key     flowKey
	current types.TypeID
}

// flowRef is the reference whose type a flow walk computes.
type flowRef struct {
	node     ast.NodeID
	key      string
	root     symbols.SymbolID
	declared types.TypeID
	initial  types.TypeID
}

// flowTypeOfReference computes the narrowed type of ref at flow. declared
// is the type the reference has without narrowing; initial is its type on
// entry to the enclosing function.
func (c *Checker) flowTypeOfReference(ref ast.NodeID, declared, initial types.TypeID, flow binder.FlowID) types.TypeID {
	if !flow.IsValid() {
		return declared
	}
	key, root, ok := c.referenceKey(ref)
	if !ok {
		return declared
	}
	k := flowKey{flow: flow, ref: key, declared: declared, initial: initial}
	if t, ok := c.flowCache[k]; ok {
		return t
	}
	r := &flowRef{node: ref, key: key, root: root, declared: declared, initial: initial}
	t := c.typeAtFlow(r, flow)
	// результаты внутри незавершённого цикла неокончательны
	if len(c.flowLoopStack) == 0 {
		c.flowCache[k] = t
	}
	return t
}

// referenceKey names a narrowable reference: a variable, `this`, or a
// property access chain rooted at one. Two references with equal keys
// denote the same storage location.
func (c *Checker) referenceKey(node ast.NodeID) (string, symbols.SymbolID, bool) {
	switch c.kind(node) {
	case ast.KindParenthesized, ast.KindNonNull:
		e, _ := c.nodes.Expr(node)
		return c.referenceKey(e.Left)
	case ast.KindIdentifier:
		sym := c.symbolOfIdentifier(node)
		if !sym.IsValid() || c.syms.Flags(sym)&(symbols.Variable|symbols.Property) == 0 {
			return "", symbols.NoSymbolID, false
		}
		return "#" + strconv.FormatUint(uint64(sym), 10), sym, true
	case ast.KindThisKeyword:
		return "this", symbols.NoSymbolID, true
	case ast.KindPropertyAccess:
		e, _ := c.nodes.Expr(node)
		left, root, ok := c.referenceKey(e.Left)
		if !ok {
			return "", symbols.NoSymbolID, false
		}
		return left + "." + c.identText(e.Right), root, true
	case ast.KindElementAccess:
		e, _ := c.nodes.Expr(node)
		switch c.kind(e.Right) {
		case ast.KindStringLiteral, ast.KindNumericLiteral:
			left, root, ok := c.referenceKey(e.Left)
			if !ok {
				return "", symbols.NoSymbolID, false
			}
			return left + "." + c.identText(e.Right), root, true
		}
	}
	return "", symbols.NoSymbolID, false
}

func (c *Checker) isMatchingReference(r *flowRef, node ast.NodeID) bool {
	key, _, ok := c.referenceKey(node)
	return ok && key == r.key
}

// mentionsReference reports whether the expression node contains a
// reference to r. Property names and type nodes are not references.
func (c *Checker) mentionsReference(r *flowRef, node ast.NodeID) bool {
	k := c.kind(node)
	switch {
	case k == ast.KindIdentifier || k == ast.KindThisKeyword:
		return c.isMatchingReference(r, node)
	case k == ast.KindPropertyAccess:
		e, _ := c.nodes.Expr(node)
		return c.isMatchingReference(r, node) || c.mentionsReference(r, e.Left)
	case k == ast.KindAs:
		e, _ := c.nodes.Expr(node)
		return c.mentionsReference(r, e.Left)
	case k == ast.KindPropertyAssignment:
		d, _ := c.nodes.Decl(node)
		return c.mentionsReference(r, d.Init)
	case k.IsFunctionLike() || k.IsClassLike() || k.IsTypeNode():
		return false
	case k == ast.KindCall || k == ast.KindNew:
		cd, _ := c.nodes.Call(node)
		if c.mentionsReference(r, cd.Expr) {
			return true
		}
		for _, a := range cd.Args {
			if c.mentionsReference(r, a) {
				return true
			}
		}
		return false
	}
	return c.nodes.ForEachChild(node, func(ch ast.NodeID) bool {
		return c.mentionsReference(r, ch)
	})
}

func (c *Checker) typeAtFlow(r *flowRef, f binder.FlowID) types.TypeID {
	c.flowDepth++
	defer func() { c.flowDepth-- }()
	if c.flowDepth > maxFlowDepth {
		return r.declared
	}
	for {
		c.tick()
		n := c.flows.Get(f)
		if n == nil {
			return r.initial
		}
		switch n.Kind {
		case binder.FlowAssignment:
			if t, ok := c.typeAtAssignment(r, n); ok {
				return t
			}
		case binder.FlowCall:
			if t, ok := c.typeAtAssertion(r, n); ok {
				return t
			}
		case binder.FlowTrueCondition, binder.FlowFalseCondition:
			t := c.typeAtFlow(r, n.Antecedent)
			if t == c.b.Never {
				return t
			}
			return c.narrowType(r, t, n.Node, n.Kind == binder.FlowTrueCondition)
		case binder.FlowSwitchClause:
			return c.typeAtSwitchClause(r, n)
		case binder.FlowBranchLabel:
			if len(n.Antecedents) == 1 {
				f = n.Antecedents[0]
				continue
			}
			return c.typeAtBranch(r, n)
		case binder.FlowLoopLabel:
			if len(n.Antecedents) == 1 {
				f = n.Antecedents[0]
				continue
			}
			return c.typeAtLoop(r, f, n)
		case binder.FlowStart:
			// константы, захваченные замыканием, сохраняют сужение из внешней функции
			if n.Antecedent.IsValid() && c.isConstantReference(r) {
				f = n.Antecedent
				continue
			}
			return r.initial
		case binder.FlowUnreachable:
			return c.b.Never
		}
		f = n.Antecedent
	}
}

func (c *Checker) isConstantReference(r *flowRef) bool {
	return r.root.IsValid() && !strings.Contains(r.key, ".") && c.syms.Flags(r.root)&symbols.Const != 0
}

// typeAtAssignment handles a write. A declaration resets the reference to
// its declared type; an assignment yields the assigned type reduced to the
// declared constituents it fits. Writes to a prefix of the reference
// invalidate any narrowing of it.
func (c *Checker) typeAtAssignment(r *flowRef, n *binder.FlowNode) (types.TypeID, bool) {
	node := n.Node
	if c.kind(node) == ast.KindVariableDeclaration {
		sym := c.declSymbol(node)
		if sym.IsValid() && "#"+strconv.FormatUint(uint64(sym), 10) == r.key {
			return r.declared, true
		}
		return types.NoTypeID, false
	}
	key, _, ok := c.referenceKey(node)
	if !ok {
		return types.NoTypeID, false
	}
	switch {
	case key == r.key:
		return c.assignmentReducedType(r.declared, c.assignedType(node, r.declared)), true
	case strings.HasPrefix(r.key, key+"."):
		return r.declared, true
	}
	return types.NoTypeID, false
}

// assignedType returns the type written to target by its parent.
func (c *Checker) assignedType(target ast.NodeID, declared types.TypeID) types.TypeID {
	parent := c.nodes.Parent(target)
	for c.kind(parent) == ast.KindParenthesized {
		target, parent = parent, c.nodes.Parent(parent)
	}
	e, ok := c.nodes.Expr(parent)
	if !ok {
		return declared
	}
	switch c.kind(parent) {
	case ast.KindBinary:
		if e.Left != target {
			return declared
		}
		if e.Op == ast.OpAssign {
			return c.checkExpression(e.Right)
		}
		return c.checkExpression(parent)
	case ast.KindPrefixUnary:
		if e.Op == ast.OpIncrement || e.Op == ast.OpDecrement {
			return c.b.Number
		}
	}
	return declared
}

// assignmentReducedType keeps the constituents of a declared union that
// the assigned type can be assigned to.
func (c *Checker) assignmentReducedType(declared, assigned types.TypeID) types.TypeID {
	switch c.types.Kind(declared) {
	case types.KindUnknown:
		return c.types.Regular(c.widenFreshLiteral(assigned))
	case types.KindUnion:
	default:
		return declared
	}
	assigned = c.types.Regular(assigned)
	if declared == assigned {
		return declared
	}
	reduced := c.types.Filter(declared, func(m types.TypeID) bool {
		for _, a := range c.types.Constituents(assigned) {
			if c.isTypeAssignableTo(a, m) {
				return true
			}
		}
		return false
	})
	if reduced == c.b.Never {
		return declared
	}
	return reduced
}

func (c *Checker) typeAtBranch(r *flowRef, n *binder.FlowNode) types.TypeID {
	out := make([]types.TypeID, 0, len(n.Antecedents))
	for _, a := range n.Antecedents {
		if c.flows.IsUnreachable(a) {
			continue
		}
		t := c.typeAtFlow(r, a)
		if t == c.b.Never {
			continue
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return c.b.Never
	}
	return c.types.Union(out)
}

// typeAtLoop iterates the loop header to a fixed point: the union of the
// entry type and the types flowing back from the body. Exceeding
// MaxLoopIterations yields the declared type.
func (c *Checker) typeAtLoop(r *flowRef, f binder.FlowID, n *binder.FlowNode) types.TypeID {
	key := flowKey{flow: f, ref: r.key, declared: r.declared, initial: r.initial}
	if t, ok := c.flowCache[key]; ok {
		return t
	}
	for i := len(c.flowLoopStack) - 1; i >= 0; i-- {
		if c.flowLoopStack[i].key == key {
			return c.flowLoopStack[i].current
		}
	}
	entry := c.typeAtFlow(r, n.Antecedents[0])
	c.flowLoopStack = append(c.flowLoopStack, flowLoopFrame{key: key, current: entry})
	frame := len(c.flowLoopStack) - 1

	result := r.declared
	for iter := 0; iter < c.opts.MaxLoopIterations; iter++ {
		union := []types.TypeID{entry}
		for _, a := range n.Antecedents[1:] {
			if c.flows.IsUnreachable(a) {
				continue
			}
			union = append(union, c.typeAtFlow(r, a))
		}
		next := c.types.Union(union)
		if next == c.flowLoopStack[frame].current {
			result = next
			break
		}
		c.flowLoopStack[frame].current = next
	}
	c.flowLoopStack = c.flowLoopStack[:frame]
	if len(c.flowLoopStack) == 0 {
		c.flowCache[key] = result
	}
	return result
}

// typeAtAssertion applies `asserts x is T` and `asserts x` signatures of a
// call statement.
func (c *Checker) typeAtAssertion(r *flowRef, n *binder.FlowNode) (types.TypeID, bool) {
	call := n.Node
	cd, _ := c.nodes.Call(call)
	mentioned := false
	for _, a := range cd.Args {
		if c.mentionsReference(r, a) {
			mentioned = true
			break
		}
	}
	if !mentioned {
		return types.NoTypeID, false
	}
	sig := c.types.Signature(c.resolvedSignature(call))
	if sig == nil {
		return types.NoTypeID, false
	}
	pred := sig.Predicate
	if pred.Param >= len(cd.Args) {
		return types.NoTypeID, false
	}
	arg := cd.Args[pred.Param]
	switch pred.Kind {
	case types.PredicateAssertIs:
		if !c.isMatchingReference(r, arg) {
			return types.NoTypeID, false
		}
		return c.narrowToType(c.typeAtFlow(r, n.Antecedent), pred.Type, true), true
	case types.PredicateAssert:
		return c.narrowType(r, c.typeAtFlow(r, n.Antecedent), arg, true), true
	}
	return types.NoTypeID, false
}

// typeAtSwitchClause narrows by the case values selected by a clause
// range. An empty range is the path where no clause matched.
func (c *Checker) typeAtSwitchClause(r *flowRef, n *binder.FlowNode) types.TypeID {
	t := c.typeAtFlow(r, n.Antecedent)
	if t == c.b.Never {
		return t
	}
	l, _ := c.nodes.List(n.Node)
	expr := c.skipParens(l.Expr)
	clauses := l.Items
	var in, out []ast.NodeID
	hasDefault := false
	for i, cl := range clauses {
		inRange := i >= n.ClauseStart && i < n.ClauseEnd
		if c.kind(cl) == ast.KindDefaultClause {
			hasDefault = hasDefault || inRange
			continue
		}
		cd, _ := c.nodes.List(cl)
		if inRange {
			in = append(in, cd.Expr)
		} else {
			out = append(out, cd.Expr)
		}
	}
	if n.ClauseStart == n.ClauseEnd {
		hasDefault = true
	}

	switch {
	case c.kind(expr) == ast.KindTrueKeyword:
		if hasDefault {
			return t
		}
		parts := make([]types.TypeID, 0, len(in))
		for _, e := range in {
			parts = append(parts, c.narrowType(r, t, e, true))
		}
		return c.types.Union(parts)
	case c.isMatchingReference(r, expr):
		return c.narrowBySwitchValues(t, c.clauseValues(in), c.clauseValues(out), hasDefault)
	case c.kind(expr) == ast.KindTypeOf:
		e, _ := c.nodes.Expr(expr)
		if !c.isMatchingReference(r, c.skipParens(e.Left)) {
			return t
		}
		return c.narrowBySwitchTypeof(t, c.clauseNames(in), c.clauseNames(out), hasDefault)
	case c.kind(expr) == ast.KindPropertyAccess:
		e, _ := c.nodes.Expr(expr)
		if !c.isMatchingReference(r, e.Left) {
			return t
		}
		inValues, outValues := c.clauseValues(in), c.clauseValues(out)
		return c.narrowByDiscriminant(t, c.identText(e.Right), func(prop types.TypeID) types.TypeID {
			return c.narrowBySwitchValues(prop, inValues, outValues, hasDefault)
		})
	}
	return t
}

func (c *Checker) clauseValues(exprs []ast.NodeID) []types.TypeID {
	out := make([]types.TypeID, len(exprs))
	for i, e := range exprs {
		out[i] = c.types.Regular(c.checkExpression(e))
	}
	return out
}

func (c *Checker) clauseNames(exprs []ast.NodeID) []string {
	var out []string
	for _, e := range exprs {
		if c.kind(e) == ast.KindStringLiteral {
			out = append(out, c.identText(e))
		}
	}
	return out
}

func (c *Checker) skipParens(node ast.NodeID) ast.NodeID {
	for c.kind(node) == ast.KindParenthesized {
		e, _ := c.nodes.Expr(node)
		node = e.Left
	}
	return node
}
