package binder

import (
	"slices"

	"stc/internal/ast"
	"stc/internal/diag"
	"stc/internal/source"
)

// --- labels and edges ---

func (b *binder) newBranch() FlowID { return b.s.Flows.New(FlowNode{Kind: FlowBranchLabel}) }
func (b *binder) newLoop() FlowID   { return b.s.Flows.New(FlowNode{Kind: FlowLoopLabel}) }

func (b *binder) addAntecedent(label, flow FlowID) {
	if !label.IsValid() || b.s.Flows.IsUnreachable(flow) {
		return
	}
	n := b.s.Flows.Get(label)
	if slices.Contains(n.Antecedents, flow) {
		return
	}
	n.Antecedents = append(n.Antecedents, flow)
}

// finishLabel closes a join point. A label nobody reaches is unreachable;
// the reported marker survives so one dead region yields one diagnostic.
func (b *binder) finishLabel(label FlowID) FlowID {
	if len(b.s.Flows.Get(label).Antecedents) > 0 {
		return label
	}
	if b.currentFlow == b.s.Flows.reported {
		return b.s.Flows.reported
	}
	return b.s.Flows.unreachable
}

func (b *binder) mutation(node ast.NodeID) {
	if b.s.Flows.IsUnreachable(b.currentFlow) {
		return
	}
	id := b.s.Flows.New(FlowNode{Kind: FlowAssignment, Node: node, Antecedent: b.currentFlow})
	b.addAntecedent(b.exceptTarget, id)
	b.currentFlow = id
}

func (b *binder) condition(kind FlowKind, antecedent FlowID, expr ast.NodeID) FlowID {
	if b.s.Flows.IsUnreachable(antecedent) {
		return antecedent
	}
	if !expr.IsValid() {
		if kind == FlowTrueCondition {
			return antecedent
		}
		return b.s.Flows.unreachable
	}
	switch b.nodes.Kind(expr) {
	case ast.KindTrueKeyword:
		if kind == FlowFalseCondition {
			return b.s.Flows.unreachable
		}
	case ast.KindFalseKeyword:
		if kind == FlowTrueCondition {
			return b.s.Flows.unreachable
		}
	}
	if !b.isNarrowingExpression(expr) {
		return antecedent
	}
	return b.s.Flows.New(FlowNode{Kind: kind, Node: expr, Antecedent: antecedent})
}

// bindCondition binds expr and routes its true and false outcomes.
func (b *binder) bindCondition(expr ast.NodeID, trueTarget, falseTarget FlowID) {
	saveTrue, saveFalse := b.trueTarget, b.falseTarget
	b.trueTarget, b.falseTarget = trueTarget, falseTarget
	b.bind(expr)
	b.trueTarget, b.falseTarget = saveTrue, saveFalse
	if !expr.IsValid() || !b.isLogicalExpression(expr) {
		b.addAntecedent(trueTarget, b.condition(FlowTrueCondition, b.currentFlow, expr))
		b.addAntecedent(falseTarget, b.condition(FlowFalseCondition, b.currentFlow, expr))
	}
}

func (b *binder) bindIterative(body ast.NodeID, breakTarget, continueTarget FlowID) {
	saveBreak, saveContinue := b.breakTarget, b.continueTarget
	b.breakTarget, b.continueTarget = breakTarget, continueTarget
	b.bind(body)
	b.breakTarget, b.continueTarget = saveBreak, saveContinue
}

// setContinueTarget attaches target to the labels directly wrapping loop.
func (b *binder) setContinueTarget(loop ast.NodeID, target FlowID) FlowID {
	node := loop
	for i := len(b.labels) - 1; i >= 0 && b.nodes.Kind(b.nodes.Parent(node)) == ast.KindLabeled; i-- {
		b.labels[i].continueTarget = target
		node = b.nodes.Parent(node)
	}
	return target
}

// --- expression shape predicates ---

func isLogicalOp(op ast.Op) bool {
	return op == ast.OpAndAnd || op == ast.OpOrOr || op == ast.OpQuestionQuestion
}

func (b *binder) skipParens(id ast.NodeID) ast.NodeID {
	for b.nodes.Kind(id) == ast.KindParenthesized {
		e, _ := b.nodes.Expr(id)
		id = e.Left
	}
	return id
}

func (b *binder) isLogicalExpression(id ast.NodeID) bool {
	for {
		switch b.nodes.Kind(id) {
		case ast.KindParenthesized:
			e, _ := b.nodes.Expr(id)
			id = e.Left
		case ast.KindPrefixUnary:
			e, _ := b.nodes.Expr(id)
			if e.Op != ast.OpNot {
				return false
			}
			id = e.Left
		case ast.KindBinary:
			e, _ := b.nodes.Expr(id)
			return isLogicalOp(e.Op)
		default:
			return false
		}
	}
}

func (b *binder) isStatementCondition(node, parent ast.NodeID) bool {
	switch b.nodes.Kind(parent) {
	case ast.KindIf:
		d, _ := b.nodes.If(parent)
		return d.Cond == node
	case ast.KindWhile, ast.KindDoWhile, ast.KindFor:
		d, _ := b.nodes.Loop(parent)
		return d.Cond == node
	case ast.KindConditional:
		d, _ := b.nodes.Expr(parent)
		return d.Left == node
	}
	return false
}

func (b *binder) isTopLevelLogical(id ast.NodeID) bool {
	node, parent := id, b.nodes.Parent(id)
	for {
		k := b.nodes.Kind(parent)
		if k == ast.KindParenthesized {
			node, parent = parent, b.nodes.Parent(parent)
			continue
		}
		if k == ast.KindPrefixUnary {
			if e, _ := b.nodes.Expr(parent); e.Op == ast.OpNot {
				node, parent = parent, b.nodes.Parent(parent)
				continue
			}
		}
		break
	}
	if b.isStatementCondition(node, parent) {
		return false
	}
	if b.nodes.Kind(parent) == ast.KindBinary {
		e, _ := b.nodes.Expr(parent)
		return !isLogicalOp(e.Op)
	}
	return true
}

func (b *binder) isNarrowableReference(id ast.NodeID) bool {
	switch b.nodes.Kind(id) {
	case ast.KindIdentifier, ast.KindThisKeyword:
		return true
	case ast.KindPropertyAccess, ast.KindElementAccess, ast.KindParenthesized, ast.KindNonNull:
		e, _ := b.nodes.Expr(id)
		return b.isNarrowableReference(e.Left)
	}
	return false
}

func (b *binder) isNarrowableOperand(id ast.NodeID) bool {
	switch b.nodes.Kind(id) {
	case ast.KindParenthesized:
		e, _ := b.nodes.Expr(id)
		return b.isNarrowableOperand(e.Left)
	case ast.KindBinary:
		e, _ := b.nodes.Expr(id)
		return e.Op == ast.OpAssign && b.isNarrowableOperand(e.Left)
	}
	return b.isNarrowableReference(id)
}

func (b *binder) isTypeOfOperand(typeOf, value ast.NodeID) bool {
	if b.nodes.Kind(typeOf) != ast.KindTypeOf || b.nodes.Kind(value) != ast.KindStringLiteral {
		return false
	}
	e, _ := b.nodes.Expr(typeOf)
	return b.isNarrowableOperand(e.Left)
}

func (b *binder) isNarrowingExpression(id ast.NodeID) bool {
	switch b.nodes.Kind(id) {
	case ast.KindIdentifier, ast.KindThisKeyword, ast.KindPropertyAccess, ast.KindElementAccess, ast.KindCall:
		return true
	case ast.KindParenthesized, ast.KindNonNull:
		e, _ := b.nodes.Expr(id)
		return b.isNarrowingExpression(e.Left)
	case ast.KindPrefixUnary:
		e, _ := b.nodes.Expr(id)
		return e.Op == ast.OpNot && b.isNarrowingExpression(e.Left)
	case ast.KindBinary:
		e, _ := b.nodes.Expr(id)
		switch {
		case e.Op.IsAssignment():
			return b.isNarrowableReference(e.Left)
		case e.Op.IsEquality():
			l, r := b.skipParens(e.Left), b.skipParens(e.Right)
			return b.isNarrowableOperand(l) || b.isNarrowableOperand(r) ||
				b.isTypeOfOperand(l, r) || b.isTypeOfOperand(r, l) ||
				isBoolLiteral(b.nodes.Kind(r)) && b.isNarrowingExpression(l) ||
				isBoolLiteral(b.nodes.Kind(l)) && b.isNarrowingExpression(r)
		case e.Op == ast.OpInstanceof:
			return b.isNarrowableOperand(e.Left)
		case e.Op == ast.OpIn:
			return b.isNarrowingExpression(e.Right)
		}
	}
	return false
}

func isBoolLiteral(k ast.Kind) bool {
	return k == ast.KindTrueKeyword || k == ast.KindFalseKeyword
}

func (b *binder) isDottedName(id ast.NodeID) bool {
	switch b.nodes.Kind(id) {
	case ast.KindIdentifier, ast.KindThisKeyword:
		return true
	case ast.KindPropertyAccess, ast.KindParenthesized:
		e, _ := b.nodes.Expr(id)
		return b.isDottedName(e.Left)
	}
	return false
}

// --- expressions ---

func (b *binder) bindPrefixUnary(id ast.NodeID) {
	e, _ := b.nodes.Expr(id)
	if e.Op == ast.OpNot {
		saveTrue, saveFalse := b.trueTarget, b.falseTarget
		b.trueTarget, b.falseTarget = saveFalse, saveTrue
		b.bindEachChild(id)
		b.trueTarget, b.falseTarget = saveTrue, saveFalse
		return
	}
	b.bindEachChild(id)
	if e.Op == ast.OpIncrement || e.Op == ast.OpDecrement {
		b.bindAssignmentTarget(e.Left)
	}
}

func (b *binder) bindBinary(id ast.NodeID) {
	e, _ := b.nodes.Expr(id)
	switch {
	case isLogicalOp(e.Op):
		if b.isTopLevelLogical(id) {
			post := b.newBranch()
			b.bindLogical(e, post, post)
			b.currentFlow = b.finishLabel(post)
			return
		}
		b.bindLogical(e, b.trueTarget, b.falseTarget)
	case e.Op.IsAssignment():
		b.bind(e.Left)
		b.bind(e.Right)
		b.bindAssignmentTarget(e.Left)
	default:
		b.bindEachChild(id)
	}
}

func (b *binder) bindLogical(e *ast.ExprData, trueTarget, falseTarget FlowID) {
	preRight := b.newBranch()
	if e.Op == ast.OpAndAnd {
		b.bindCondition(e.Left, preRight, falseTarget)
	} else {
		b.bindCondition(e.Left, trueTarget, preRight)
	}
	b.currentFlow = b.finishLabel(preRight)
	b.bindCondition(e.Right, trueTarget, falseTarget)
}

func (b *binder) bindConditional(id ast.NodeID) {
	e, _ := b.nodes.Expr(id)
	whenTrue, whenFalse, post := b.newBranch(), b.newBranch(), b.newBranch()
	b.bindCondition(e.Left, whenTrue, whenFalse)
	b.currentFlow = b.finishLabel(whenTrue)
	b.bind(e.Then)
	b.addAntecedent(post, b.currentFlow)
	b.currentFlow = b.finishLabel(whenFalse)
	b.bind(e.Else)
	b.addAntecedent(post, b.currentFlow)
	b.currentFlow = b.finishLabel(post)
}

func (b *binder) bindAssignmentTarget(target ast.NodeID) {
	target = b.skipParens(target)
	if b.isNarrowableReference(target) {
		b.mutation(target)
	}
}

func (b *binder) bindVariableFlow(decl ast.NodeID) {
	d, _ := b.nodes.Decl(decl)
	stmt := b.nodes.Parent(decl)
	if d.Init.IsValid() || b.nodes.Kind(b.nodes.Parent(stmt)) == ast.KindForOf {
		b.mutation(decl)
	}
}

// bindExpressionCall adds a call node after `f(x);` statements so
// assertion signatures can narrow.
func (b *binder) bindExpressionCall(stmt ast.NodeID) {
	s, _ := b.nodes.Stmt(stmt)
	if b.nodes.Kind(s.Expr) != ast.KindCall || b.s.Flows.IsUnreachable(b.currentFlow) {
		return
	}
	c, _ := b.nodes.Call(s.Expr)
	if b.isDottedName(c.Expr) {
		b.currentFlow = b.s.Flows.New(FlowNode{Kind: FlowCall, Node: s.Expr, Antecedent: b.currentFlow})
	}
}

// --- statements ---

func (b *binder) bindIf(id ast.NodeID) {
	d, _ := b.nodes.If(id)
	then, els, post := b.newBranch(), b.newBranch(), b.newBranch()
	b.bindCondition(d.Cond, then, els)
	b.currentFlow = b.finishLabel(then)
	b.bind(d.Then)
	b.addAntecedent(post, b.currentFlow)
	b.currentFlow = b.finishLabel(els)
	b.bind(d.Else)
	b.addAntecedent(post, b.currentFlow)
	b.currentFlow = b.finishLabel(post)
}

func (b *binder) bindWhile(id ast.NodeID) {
	d, _ := b.nodes.Loop(id)
	pre := b.setContinueTarget(id, b.newLoop())
	preBody, post := b.newBranch(), b.newBranch()
	b.addAntecedent(pre, b.currentFlow)
	b.currentFlow = pre
	b.bindCondition(d.Cond, preBody, post)
	b.currentFlow = b.finishLabel(preBody)
	b.bindIterative(d.Body, post, pre)
	b.addAntecedent(pre, b.currentFlow)
	b.currentFlow = b.finishLabel(post)
}

func (b *binder) bindDoWhile(id ast.NodeID) {
	d, _ := b.nodes.Loop(id)
	pre := b.newLoop()
	preCond := b.setContinueTarget(id, b.newBranch())
	post := b.newBranch()
	b.addAntecedent(pre, b.currentFlow)
	b.currentFlow = pre
	b.bindIterative(d.Body, post, preCond)
	b.addAntecedent(preCond, b.currentFlow)
	b.currentFlow = b.finishLabel(preCond)
	b.bindCondition(d.Cond, pre, post)
	b.currentFlow = b.finishLabel(post)
}

func (b *binder) bindFor(id ast.NodeID) {
	d, _ := b.nodes.Loop(id)
	pre := b.newLoop()
	preBody, preIncr, post := b.newBranch(), b.setContinueTarget(id, b.newBranch()), b.newBranch()
	b.bind(d.Init)
	b.addAntecedent(pre, b.currentFlow)
	b.currentFlow = pre
	b.bindCondition(d.Cond, preBody, post)
	b.currentFlow = b.finishLabel(preBody)
	b.bindIterative(d.Body, post, preIncr)
	b.addAntecedent(preIncr, b.currentFlow)
	b.currentFlow = b.finishLabel(preIncr)
	b.bind(d.Incr)
	b.addAntecedent(pre, b.currentFlow)
	b.currentFlow = b.finishLabel(post)
}

func (b *binder) bindForOf(id ast.NodeID) {
	d, _ := b.nodes.Loop(id)
	pre := b.setContinueTarget(id, b.newLoop())
	post := b.newBranch()
	b.bind(d.Cond)
	b.addAntecedent(pre, b.currentFlow)
	b.currentFlow = pre
	b.addAntecedent(post, b.currentFlow)
	b.bind(d.Init)
	if b.nodes.Kind(d.Init) != ast.KindVariableStatement {
		b.bindAssignmentTarget(d.Init)
	}
	b.bindIterative(d.Body, post, pre)
	b.addAntecedent(pre, b.currentFlow)
	b.currentFlow = b.finishLabel(post)
}

func (b *binder) bindExit(id ast.NodeID, kind ast.Kind) {
	s, _ := b.nodes.Stmt(id)
	b.s.FlowOf[id] = b.currentFlow
	b.bind(s.Expr)
	if kind == ast.KindReturn {
		b.addAntecedent(b.returnTarget, b.currentFlow)
	}
	b.currentFlow = b.s.Flows.unreachable
}

func (b *binder) labelName(label ast.NodeID) source.StringID {
	if d, ok := b.nodes.Ident(label); ok {
		return d.Name
	}
	return source.NoStringID
}

func findLabel(labels []*activeLabel, name source.StringID) *activeLabel {
	for i := len(labels) - 1; i >= 0; i-- {
		if labels[i].name == name {
			return labels[i]
		}
	}
	return nil
}

func (b *binder) jump(target FlowID) {
	b.addAntecedent(target, b.currentFlow)
	b.currentFlow = b.s.Flows.unreachable
}

func (b *binder) bindBreakOrContinue(id ast.NodeID, kind ast.Kind) {
	s, _ := b.nodes.Stmt(id)
	isBreak := kind == ast.KindBreak
	if s.Label.IsValid() {
		name := b.labelName(s.Label)
		if l := findLabel(b.labels, name); l != nil {
			if isBreak {
				b.jump(l.breakTarget)
				return
			}
			if !l.continueTarget.IsValid() {
				b.errorf(diag.BindContinueTargetMissing, id, "A 'continue' statement can only jump to a label of an enclosing iteration statement.")
				return
			}
			b.jump(l.continueTarget)
			return
		}
		for _, outer := range b.outerLabels {
			if findLabel(outer, name) != nil {
				b.errorf(diag.BindJumpAcrossFunction, id, "Jump target cannot cross function boundary.")
				return
			}
		}
		if isBreak {
			b.errorf(diag.BindBreakTargetMissing, id, "A 'break' statement can only jump to a label of an enclosing statement.")
		} else {
			b.errorf(diag.BindContinueTargetMissing, id, "A 'continue' statement can only jump to a label of an enclosing iteration statement.")
		}
		return
	}
	if isBreak {
		if !b.breakTarget.IsValid() {
			b.errorf(diag.BindBreakOutsideLoop, id, "A 'break' statement can only be used within an enclosing iteration or switch statement.")
			return
		}
		b.jump(b.breakTarget)
		return
	}
	if !b.continueTarget.IsValid() {
		b.errorf(diag.BindContinueOutsideLoop, id, "A 'continue' statement can only be used within an enclosing iteration statement.")
		return
	}
	b.jump(b.continueTarget)
}

func (b *binder) bindLabeled(id ast.NodeID) {
	s, _ := b.nodes.Stmt(id)
	name := b.labelName(s.Label)
	if findLabel(b.labels, name) != nil {
		b.errorf(diag.BindDuplicateLabel, s.Label, "Duplicate label '%s'.", b.text(name))
	}
	post := b.newBranch()
	b.labels = append(b.labels, &activeLabel{name: name, breakTarget: post, node: id})
	b.bind(s.Body)
	b.labels = b.labels[:len(b.labels)-1]
	b.addAntecedent(post, b.currentFlow)
	b.currentFlow = b.finishLabel(post)
}

// bindTry approximates exceptional edges: the catch clause and the finally
// block start from the flow before the try plus every mutation inside it.
func (b *binder) bindTry(id ast.NodeID) {
	d, _ := b.nodes.Try(id)
	saveReturn, saveExcept := b.returnTarget, b.exceptTarget
	normalExit, returnLabel, exception := b.newBranch(), b.newBranch(), b.newBranch()
	if d.Finally.IsValid() {
		b.returnTarget = returnLabel
	}
	b.addAntecedent(exception, b.currentFlow)
	b.exceptTarget = exception
	b.bind(d.Block)
	b.addAntecedent(normalExit, b.currentFlow)
	if d.Catch.IsValid() {
		b.currentFlow = b.finishLabel(exception)
		exception = b.newBranch()
		b.addAntecedent(exception, b.currentFlow)
		b.exceptTarget = exception
		b.bind(d.Catch)
		b.addAntecedent(normalExit, b.currentFlow)
	}
	b.returnTarget, b.exceptTarget = saveReturn, saveExcept
	if !d.Finally.IsValid() {
		b.currentFlow = b.finishLabel(normalExit)
		return
	}

	finally := b.newBranch()
	var sources [3][]FlowID
	for i, src := range [3]FlowID{normalExit, exception, returnLabel} {
		sources[i] = slices.Clone(b.s.Flows.Get(src).Antecedents)
	}
	for _, ants := range sources {
		for _, a := range ants {
			b.addAntecedent(finally, a)
		}
	}
	b.currentFlow = b.finishLabel(finally)
	b.bind(d.Finally)
	if b.s.Flows.IsUnreachable(b.currentFlow) {
		b.currentFlow = b.s.Flows.unreachable
		return
	}
	if len(sources[2]) > 0 {
		b.addAntecedent(b.returnTarget, b.currentFlow)
	}
	if len(sources[1]) > 0 {
		b.addAntecedent(b.exceptTarget, b.currentFlow)
	}
	if len(sources[0]) == 0 {
		b.currentFlow = b.s.Flows.unreachable
	}
}

func (b *binder) isEmptyClause(clause ast.NodeID) bool {
	l, _ := b.nodes.List(clause)
	return len(l.Items) == 0
}

func (b *binder) bindSwitch(id ast.NodeID) {
	l, _ := b.nodes.List(id)
	post := b.newBranch()
	b.bind(l.Expr)
	saveBreak, savePre := b.breakTarget, b.preSwitchFlow
	b.breakTarget = post
	b.preSwitchFlow = b.currentFlow

	narrowing := b.nodes.Kind(l.Expr) == ast.KindTrueKeyword || b.isNarrowingExpression(l.Expr)
	clauses := l.Items
	fallthroughFlow := b.s.Flows.unreachable
	hasDefault := false
	for i := 0; i < len(clauses); i++ {
		start := i
		for b.isEmptyClause(clauses[i]) && i+1 < len(clauses) {
			if fallthroughFlow == b.s.Flows.unreachable {
				b.currentFlow = b.preSwitchFlow
			}
			b.bind(clauses[i])
			i++
		}
		pre := b.newBranch()
		if narrowing {
			b.addAntecedent(pre, b.s.Flows.New(FlowNode{Kind: FlowSwitchClause, Node: id, Antecedent: b.preSwitchFlow, ClauseStart: start, ClauseEnd: i + 1}))
		} else {
			b.addAntecedent(pre, b.preSwitchFlow)
		}
		b.addAntecedent(pre, fallthroughFlow)
		b.currentFlow = b.finishLabel(pre)
		b.bind(clauses[i])
		fallthroughFlow = b.currentFlow
	}
	for _, c := range clauses {
		if b.nodes.Kind(c) == ast.KindDefaultClause {
			hasDefault = true
		}
	}
	b.addAntecedent(post, b.currentFlow)
	if !hasDefault {
		b.addAntecedent(post, b.s.Flows.New(FlowNode{Kind: FlowSwitchClause, Node: id, Antecedent: b.preSwitchFlow}))
	}
	b.breakTarget, b.preSwitchFlow = saveBreak, savePre
	b.currentFlow = b.finishLabel(post)
}

func (b *binder) bindCaseClause(id ast.NodeID) {
	l, _ := b.nodes.List(id)
	save := b.currentFlow
	b.currentFlow = b.preSwitchFlow
	b.bind(l.Expr)
	b.currentFlow = save
	for _, st := range l.Items {
		b.bind(st)
	}
}
