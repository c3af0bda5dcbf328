package binder

import (
	"stc/internal/ast"
	"stc/internal/diag"
)

// bind visits id: declares its symbol, opens its scope and threads the
// current flow through it.
func (b *binder) bind(id ast.NodeID) {
	if !id.IsValid() {
		return
	}
	kind := b.nodes.Kind(id)
	if kind.IsStatement() {
		b.checkUnreachable(id, kind)
	}
	b.bindDeclaration(id, kind)

	switch kind {
	case ast.KindFunctionDeclaration, ast.KindFunctionExpression, ast.KindArrowFunction,
		ast.KindMethodDeclaration, ast.KindConstructor:
		b.bindFunction(id)
	case ast.KindModuleDeclaration:
		b.bindNamespace(id)
	case ast.KindBlock:
		if b.nodes.Kind(b.nodes.Parent(id)).IsFunctionLike() {
			b.bindChildren(id, kind)
			return
		}
		b.withBlockScope(id, kind)
	case ast.KindFor, ast.KindForOf, ast.KindSwitch, ast.KindCatchClause:
		b.withBlockScope(id, kind)
	default:
		b.bindChildren(id, kind)
	}
}

func (b *binder) bindEachChild(id ast.NodeID) {
	b.nodes.ForEachChild(id, func(c ast.NodeID) bool {
		b.bind(c)
		return false
	})
}

func (b *binder) withBlockScope(id ast.NodeID, kind ast.Kind) {
	save := b.blockScope
	b.blockScope = id
	b.bindChildren(id, kind)
	b.blockScope = save
}

// checkUnreachable reports the first statement of an unreachable region.
func (b *binder) checkUnreachable(id ast.NodeID, kind ast.Kind) {
	if b.currentFlow != b.s.Flows.unreachable {
		return
	}
	switch kind {
	case ast.KindEmptyStatement, ast.KindFunctionDeclaration, ast.KindInterfaceDeclaration,
		ast.KindTypeAliasDeclaration, ast.KindEnumDeclaration, ast.KindImportDeclaration:
		return
	case ast.KindModuleDeclaration:
		if !b.isInstantiated(id) {
			return
		}
	case ast.KindVariableStatement:
		if b.nodes.Flags(id)&ast.FlagBlockScoped == 0 && !b.hasInitializer(id) {
			return
		}
	}
	b.errorf(diag.CheckUnreachableCode, id, "Unreachable code detected.")
	b.currentFlow = b.s.Flows.reported
}

func (b *binder) hasInitializer(stmt ast.NodeID) bool {
	l, _ := b.nodes.List(stmt)
	for _, d := range l.Items {
		if dd, ok := b.nodes.Decl(d); ok && dd.Init.IsValid() {
			return true
		}
	}
	return false
}

// bindFunction binds a function-like with its own scope and flow start.
// Bodiless overloads only get their parameter scope.
func (b *binder) bindFunction(id ast.NodeID) {
	fd, _ := b.nodes.Func(id)
	if !fd.Body.IsValid() {
		b.bindEachChild(id)
		return
	}
	saveContainer, saveBlock := b.container, b.blockScope
	saveFlow := b.currentFlow
	saveBreak, saveContinue := b.breakTarget, b.continueTarget
	saveTrue, saveFalse := b.trueTarget, b.falseTarget
	saveReturn, saveExcept := b.returnTarget, b.exceptTarget
	saveLabels := b.labels

	b.container, b.blockScope = id, id
	start := FlowNode{Kind: FlowStart, Node: id}
	if k := b.nodes.Kind(id); k == ast.KindFunctionExpression || k == ast.KindArrowFunction {
		start.Antecedent = saveFlow
	}
	b.currentFlow = b.s.Flows.New(start)
	b.breakTarget, b.continueTarget = NoFlowID, NoFlowID
	b.trueTarget, b.falseTarget = NoFlowID, NoFlowID
	b.returnTarget, b.exceptTarget = NoFlowID, NoFlowID
	b.outerLabels = append(b.outerLabels, b.labels)
	b.labels = nil

	b.bindEachChild(id)
	b.s.EndFlow[id] = b.currentFlow

	b.outerLabels = b.outerLabels[:len(b.outerLabels)-1]
	b.labels = saveLabels
	b.returnTarget, b.exceptTarget = saveReturn, saveExcept
	b.trueTarget, b.falseTarget = saveTrue, saveFalse
	b.breakTarget, b.continueTarget = saveBreak, saveContinue
	b.currentFlow = saveFlow
	b.container, b.blockScope = saveContainer, saveBlock
}

func (b *binder) bindNamespace(id ast.NodeID) {
	saveContainer, saveBlock, saveOwner := b.container, b.blockScope, b.owner
	saveFlow := b.currentFlow
	saveLabels := b.labels

	b.container, b.blockScope = id, id
	b.owner = b.s.DeclSymbol[id]
	b.currentFlow = b.s.Flows.New(FlowNode{Kind: FlowStart, Node: id})
	b.outerLabels = append(b.outerLabels, b.labels)
	b.labels = nil

	b.bindEachChild(id)
	b.s.EndFlow[id] = b.currentFlow

	b.outerLabels = b.outerLabels[:len(b.outerLabels)-1]
	b.labels = saveLabels
	b.currentFlow = saveFlow
	b.container, b.blockScope, b.owner = saveContainer, saveBlock, saveOwner
}

// bindChildren dispatches the constructs that shape control flow.
func (b *binder) bindChildren(id ast.NodeID, kind ast.Kind) {
	switch kind {
	case ast.KindIdentifier, ast.KindThisKeyword:
		b.s.FlowOf[id] = b.currentFlow
	case ast.KindPropertyAccess, ast.KindElementAccess:
		b.s.FlowOf[id] = b.currentFlow
		b.bindEachChild(id)
	case ast.KindIf:
		b.bindIf(id)
	case ast.KindWhile:
		b.bindWhile(id)
	case ast.KindDoWhile:
		b.bindDoWhile(id)
	case ast.KindFor:
		b.bindFor(id)
	case ast.KindForOf:
		b.bindForOf(id)
	case ast.KindReturn, ast.KindThrow:
		b.bindExit(id, kind)
	case ast.KindBreak, ast.KindContinue:
		b.bindBreakOrContinue(id, kind)
	case ast.KindTry:
		b.bindTry(id)
	case ast.KindSwitch:
		b.bindSwitch(id)
	case ast.KindCaseClause, ast.KindDefaultClause:
		b.bindCaseClause(id)
	case ast.KindLabeled:
		b.bindLabeled(id)
	case ast.KindExpressionStatement:
		b.s.FlowOf[id] = b.currentFlow
		b.bindEachChild(id)
		b.bindExpressionCall(id)
	case ast.KindPrefixUnary:
		b.bindPrefixUnary(id)
	case ast.KindBinary:
		b.bindBinary(id)
	case ast.KindConditional:
		b.bindConditional(id)
	case ast.KindVariableDeclaration:
		b.bindEachChild(id)
		b.bindVariableFlow(id)
	case ast.KindPropertyDeclaration:
		b.bindPropertyInitializer(id)
	case ast.KindCall, ast.KindNew:
		b.s.FlowOf[id] = b.currentFlow
		b.bindEachChild(id)
	default:
		b.bindEachChild(id)
	}
}

// bindPropertyInitializer gives a class property initializer its own flow
// start whose antecedent is the point of class creation.
func (b *binder) bindPropertyInitializer(id ast.NodeID) {
	d, _ := b.nodes.Decl(id)
	b.bind(d.Name)
	b.bind(d.Type)
	if !d.Init.IsValid() {
		return
	}
	save := b.currentFlow
	b.currentFlow = b.s.Flows.New(FlowNode{Kind: FlowStart, Node: id, Antecedent: save})
	b.bind(d.Init)
	b.currentFlow = save
}
