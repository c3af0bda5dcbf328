package checker

import (
	"stc/internal/ast"
	"stc/internal/diag"
	"stc/internal/symbols"
	"stc/internal/types"
)

// checkExpression returns the type of an expression.
func (c *Checker) checkExpression(node ast.NodeID) types.TypeID {
	return c.checkExpressionWithContext(node, types.NoTypeID)
}

// checkExpressionWithContext checks node with an explicit contextual type,
// used by call resolution for arguments. Types are memoized per node, except
// while a loop is being analysed: those results depend on a partial fixed
// point.
func (c *Checker) checkExpressionWithContext(node ast.NodeID, contextual types.TypeID) types.TypeID {
	l := c.nodeLink(node)
	if l.typState == stateDone {
		return l.typ
	}
	if contextual != types.NoTypeID {
		l.contextual = contextual
	}
	c.tick()
	saved := c.currentNode
	c.currentNode = node
	t := c.checkExpressionWorker(node)
	c.currentNode = saved
	if len(c.flowLoopStack) == 0 {
		l.typ, l.typState = t, stateDone
	}
	return t
}

func (c *Checker) checkExpressionWorker(node ast.NodeID) types.TypeID {
	switch c.kind(node) {
	case ast.KindIdentifier:
		return c.checkIdentifier(node)
	case ast.KindStringLiteral:
		d, _ := c.nodes.Literal(node)
		return c.types.Fresh(c.types.StringLiteral(d.Text))
	case ast.KindNumericLiteral:
		d, _ := c.nodes.Literal(node)
		return c.types.Fresh(c.types.NumberLiteral(d.Value))
	case ast.KindTrueKeyword:
		return c.b.FreshTrue
	case ast.KindFalseKeyword:
		return c.b.FreshFalse
	case ast.KindNullKeyword:
		return c.b.Null
	case ast.KindThisKeyword:
		return c.checkThisExpression(node)
	case ast.KindObjectLiteral:
		return c.checkObjectLiteral(node)
	case ast.KindArrayLiteral:
		return c.checkArrayLiteral(node)
	case ast.KindPropertyAccess:
		return c.checkPropertyAccess(node)
	case ast.KindElementAccess:
		return c.checkElementAccess(node)
	case ast.KindCall, ast.KindNew:
		return c.checkCallExpression(node)
	case ast.KindParenthesized:
		e, _ := c.nodes.Expr(node)
		return c.checkExpression(e.Left)
	case ast.KindFunctionExpression, ast.KindArrowFunction:
		return c.checkFunctionExpression(node)
	case ast.KindClassExpression:
		c.checkClassLike(node)
		return c.typeOfSymbol(c.declSymbol(node))
	case ast.KindPrefixUnary:
		return c.checkPrefixUnary(node)
	case ast.KindTypeOf:
		e, _ := c.nodes.Expr(node)
		c.checkExpression(e.Left)
		return c.b.String
	case ast.KindBinary:
		return c.checkBinary(node)
	case ast.KindConditional:
		e, _ := c.nodes.Expr(node)
		c.checkExpression(e.Left)
		return c.types.UnionOf(c.checkExpression(e.Then), c.checkExpression(e.Else))
	case ast.KindAs:
		return c.checkAssertion(node)
	case ast.KindNonNull:
		e, _ := c.nodes.Expr(node)
		return c.nonNullable(c.checkExpression(e.Left))
	}
	internalf(node, "unexpected expression kind %s", c.kind(node))
	return c.b.Error
}

// --- references ---

// symbolOfIdentifier resolves a value reference, reporting unknown names
// once.
func (c *Checker) symbolOfIdentifier(node ast.NodeID) symbols.SymbolID {
	l := c.nodeLink(node)
	if l.symDone {
		return l.sym
	}
	sym := c.resolveName(node, c.identText(node), symbols.Value, true)
	l.sym, l.symDone = sym, true
	return sym
}

func (c *Checker) checkIdentifier(node ast.NodeID) types.TypeID {
	sym := c.symbolOfIdentifier(node)
	if !sym.IsValid() {
		return c.b.Error
	}
	c.markReferenced(sym)
	declared := c.typeOfSymbol(sym)
	if c.syms.Flags(sym)&symbols.Variable == 0 {
		return declared
	}
	c.checkUseBeforeDeclaration(node, sym)
	if c.isAssignmentTarget(node) {
		return declared
	}
	flow, ok := c.sess.FlowOf[node]
	if !ok {
		return declared
	}
	return c.flowTypeOfReference(node, declared, declared, flow)
}

// isAssignmentTarget reports the left operand of an assignment and the
// operand of ++ and --.
func (c *Checker) isAssignmentTarget(node ast.NodeID) bool {
	parent := c.nodes.Parent(node)
	for c.kind(parent) == ast.KindParenthesized {
		node, parent = parent, c.nodes.Parent(parent)
	}
	e, ok := c.nodes.Expr(parent)
	if !ok {
		return false
	}
	switch c.kind(parent) {
	case ast.KindBinary:
		return e.Op.IsAssignment() && e.Left == node
	case ast.KindPrefixUnary:
		return e.Op == ast.OpIncrement || e.Op == ast.OpDecrement
	}
	return false
}

// checkUseBeforeDeclaration reports a let or const read before its
// declaration, or inside its own initializer, in the same function body.
func (c *Checker) checkUseBeforeDeclaration(node ast.NodeID, sym symbols.SymbolID) {
	if c.syms.Flags(sym)&symbols.BlockScopedVariable == 0 {
		return
	}
	decl := c.syms.Get(sym).FirstDecl()
	use, at := c.span(node), c.span(decl)
	if use.File != at.File {
		return
	}
	if use.Start >= at.Start && !c.isInside(node, decl) {
		return
	}
	if c.containingFunction(node) != c.containingFunction(decl) {
		return
	}
	c.error(node, diag.CheckUsedBeforeDeclared, "Block-scoped variable '%s' used before its declaration.", c.symbolName(sym))
}

// isInside reports whether container is a proper ancestor of node.
func (c *Checker) isInside(node, container ast.NodeID) bool {
	for n := c.nodes.Parent(node); n.IsValid(); n = c.nodes.Parent(n) {
		if n == container {
			return true
		}
	}
	return false
}

func (c *Checker) checkThisExpression(node ast.NodeID) types.TypeID {
	t := c.checkThis(node)
	if flow, ok := c.sess.FlowOf[node]; ok {
		return c.flowTypeOfReference(node, t, t, flow)
	}
	return t
}

// checkThis returns the type of `this`: the instance type inside instance
// members, the constructor type inside static ones. Arrow functions see
// the `this` of their container.
func (c *Checker) checkThis(node ast.NodeID) types.TypeID {
	container := c.nodes.Ancestor(node, func(k ast.Kind) bool {
		return k.IsFunctionScope() && k != ast.KindArrowFunction ||
			k == ast.KindPropertyDeclaration || k.IsClassLike() || k == ast.KindSourceFile || k == ast.KindModuleDeclaration
	})
	switch c.kind(container) {
	case ast.KindMethodDeclaration, ast.KindConstructor, ast.KindPropertyDeclaration:
		owner := c.nodes.Parent(container)
		if c.kind(owner) == ast.KindObjectLiteral {
			if ct := c.contextualType(owner); ct != types.NoTypeID {
				return ct
			}
			return c.checkExpression(owner)
		}
		if !c.kind(owner).IsClassLike() {
			break
		}
		sym := c.declSymbol(owner)
		if c.nodes.Flags(container)&ast.FlagStatic != 0 {
			return c.typeOfSymbol(sym)
		}
		return c.declaredTypeOfSymbol(sym)
	case ast.KindFunctionExpression, ast.KindFunctionDeclaration:
		return c.b.Any
	}
	return c.b.Undefined
}

// --- literals ---

// literalForLocation widens fresh literals unless the contextual type asks
// for literal precision.
func (c *Checker) literalForLocation(t, contextual types.TypeID) types.TypeID {
	return c.types.MapUnion(t, func(m types.TypeID) types.TypeID {
		if !c.types.Kind(m).IsLiteral() || !c.types.IsFresh(m) || c.isLiteralContext(m, contextual) {
			return m
		}
		return c.widenLiteral(m)
	})
}

func (c *Checker) checkObjectLiteral(node ast.NodeID) types.TypeID {
	l, _ := c.nodes.List(node)
	contextual := c.contextualType(node)
	props := make([]types.Prop, 0, len(l.Items))
	seen := make(map[string]int, len(l.Items))
	for _, item := range l.Items {
		name := c.propertyNameText(c.nodes.Name(item))
		var t types.TypeID
		var flags types.PropFlags
		switch c.kind(item) {
		case ast.KindPropertyAssignment:
			d, _ := c.nodes.Decl(item)
			t = c.literalForLocation(c.checkExpression(d.Init), c.contextualType(d.Init))
		case ast.KindShorthandPropertyAssignment:
			d, _ := c.nodes.Decl(item)
			t = c.literalForLocation(c.checkExpression(d.Name), c.contextualPropertyType(contextual, name))
		case ast.KindMethodDeclaration:
			t = c.typeOfSymbol(c.declSymbol(item))
			flags |= types.PropMethod
			c.deferBody(item)
		default:
			continue
		}
		p := types.Prop{Name: name, Type: t, Flags: flags, Decl: c.declSymbol(item)}
		if i, dup := seen[name]; dup {
			props[i] = p
			continue
		}
		seen[name] = len(props)
		props = append(props, p)
	}
	obj := c.types.Object(&types.Shape{Props: props}, types.FlagObjectLiteral, c.declSymbol(node))
	return c.types.FreshObject(obj)
}

func (c *Checker) checkArrayLiteral(node ast.NodeID) types.TypeID {
	l, _ := c.nodes.List(node)
	contextual := c.contextualType(node)
	elems := make([]types.TypeID, len(l.Items))
	for i, item := range l.Items {
		elems[i] = c.literalForLocation(c.checkExpression(item), c.contextualType(item))
	}
	if contextual != types.NoTypeID && c.isTupleContext(contextual) {
		return c.types.Tuple(elems)
	}
	if len(elems) == 0 {
		if c.opts.StrictNullChecks {
			return c.b.NeverArray
		}
		return c.types.Array(c.b.Any)
	}
	return c.types.Array(c.types.Union(elems))
}

func (c *Checker) isTupleContext(t types.TypeID) bool {
	for _, m := range c.types.Constituents(t) {
		if c.types.Kind(m) == types.KindTuple {
			return true
		}
	}
	return false
}

// --- member access ---

// expressionName renders a dotted reference for diagnostics.
func (c *Checker) expressionName(node ast.NodeID) string {
	switch c.kind(node) {
	case ast.KindIdentifier:
		return c.identText(node)
	case ast.KindThisKeyword:
		return "this"
	case ast.KindPropertyAccess:
		e, _ := c.nodes.Expr(node)
		if left := c.expressionName(e.Left); left != "" {
			return left + "." + c.identText(e.Right)
		}
	case ast.KindParenthesized, ast.KindNonNull:
		e, _ := c.nodes.Expr(node)
		return c.expressionName(e.Left)
	}
	return ""
}

// checkNonNullObject strips null and undefined from the type of an accessed
// object, reporting their presence under strict null checks.
func (c *Checker) checkNonNullObject(t types.TypeID, node ast.NodeID) types.TypeID {
	if !c.opts.StrictNullChecks {
		return t
	}
	var null, undef bool
	for _, m := range c.types.Constituents(t) {
		switch c.types.Kind(m) {
		case types.KindNull:
			null = true
		case types.KindUndefined, types.KindVoid:
			undef = true
		}
	}
	if !null && !undef {
		return t
	}
	what := "'null' or 'undefined'"
	switch {
	case !undef:
		what = "'null'"
	case !null:
		what = "'undefined'"
	}
	if name := c.expressionName(node); name != "" {
		c.error(node, diag.CheckPossiblyNullish, "'%s' is possibly %s.", name, what)
	} else {
		c.error(node, diag.CheckPossiblyNullish, "Object is possibly %s.", what)
	}
	return c.nonNullable(t)
}

func (c *Checker) nonNullable(t types.TypeID) types.TypeID {
	return c.types.Filter(t, func(m types.TypeID) bool {
		switch c.types.Kind(m) {
		case types.KindNull, types.KindUndefined, types.KindVoid:
			return false
		}
		return true
	})
}

func (c *Checker) checkPropertyAccess(node ast.NodeID) types.TypeID {
	e, _ := c.nodes.Expr(node)
	obj := c.checkNonNullObject(c.checkExpression(e.Left), e.Left)
	name := c.identText(e.Right)
	if c.isAnyLike(obj) {
		return obj
	}
	var t types.TypeID
	if p := c.propertyOf(obj, name); p != nil {
		t = c.typeOfProperty(p)
		if p.flags&types.PropOptional != 0 {
			t = c.addOptionality(t)
		}
	} else if ix, ok := c.resolveStructured(c.apparentType(obj)).index(c.b.String); ok {
		t = ix.Type
	} else {
		c.error(e.Right, diag.CheckPropertyMissing, "Property '%s' does not exist on type '%s'.", name, c.TypeToString(obj))
		return c.b.Error
	}
	return c.narrowAccess(node, t)
}

func (c *Checker) checkElementAccess(node ast.NodeID) types.TypeID {
	e, _ := c.nodes.Expr(node)
	obj := c.checkNonNullObject(c.checkExpression(e.Left), e.Left)
	idx := c.types.Regular(c.checkExpression(e.Right))
	if c.isAnyLike(obj) {
		return obj
	}
	return c.narrowAccess(node, c.indexedAccessType(obj, idx, e.Right))
}

// narrowAccess applies control flow narrowing to a property read.
func (c *Checker) narrowAccess(node ast.NodeID, declared types.TypeID) types.TypeID {
	if c.isAssignmentTarget(node) {
		return declared
	}
	flow, ok := c.sess.FlowOf[node]
	if !ok {
		return declared
	}
	return c.flowTypeOfReference(node, declared, declared, flow)
}

// --- functions ---

func (c *Checker) checkFunctionExpression(node ast.NodeID) types.TypeID {
	c.deferBody(node)
	return c.typeOfSymbol(c.declSymbol(node))
}

// deferBody queues a function body to be checked after the enclosing
// statements, once contextual types are known.
func (c *Checker) deferBody(fn ast.NodeID) {
	l := c.nodeLink(fn)
	if l.checked {
		return
	}
	l.checked = true
	c.onAbort(func() { l.checked = false })
	c.deferred = append(c.deferred, fn)
}

// --- operators ---

func (c *Checker) checkPrefixUnary(node ast.NodeID) types.TypeID {
	e, _ := c.nodes.Expr(node)
	operand := c.checkExpression(e.Left)
	switch e.Op {
	case ast.OpNot:
		return c.b.Boolean
	case ast.OpMinus, ast.OpPlus:
		if e.Op == ast.OpMinus && c.kind(e.Left) == ast.KindNumericLiteral {
			d, _ := c.nodes.Literal(e.Left)
			return c.types.Fresh(c.types.NumberLiteral(-d.Value))
		}
		if !c.isNumberLike(operand) && !c.isAnyLike(operand) && e.Op == ast.OpMinus {
			c.error(e.Left, diag.CheckArithmeticRight, "The right-hand side of an arithmetic operation must be of type 'any', 'number', 'bigint' or an enum type.")
		}
		return c.b.Number
	case ast.OpIncrement, ast.OpDecrement:
		if !c.isNumberLike(operand) && !c.isAnyLike(operand) {
			c.error(e.Left, diag.CheckArithmeticLeft, "An arithmetic operand must be of type 'any', 'number', 'bigint' or an enum type.")
		}
		c.checkAssignmentTarget(e.Left)
		return c.b.Number
	}
	return c.b.Error
}

func (c *Checker) checkBinary(node ast.NodeID) types.TypeID {
	e, _ := c.nodes.Expr(node)
	switch e.Op {
	case ast.OpAssign:
		return c.checkAssignment(node, e)
	case ast.OpAndAnd:
		left := c.checkExpression(e.Left)
		right := c.checkExpression(e.Right)
		return c.types.UnionOf(c.filterByTruthiness(left, false), right)
	case ast.OpOrOr:
		left := c.checkExpression(e.Left)
		right := c.checkExpression(e.Right)
		return c.types.UnionOf(c.filterByTruthiness(left, true), right)
	case ast.OpQuestionQuestion:
		left := c.checkExpression(e.Left)
		right := c.checkExpression(e.Right)
		return c.types.UnionOf(c.nonNullable(left), right)
	}

	left := c.checkExpression(e.Left)
	right := c.checkExpression(e.Right)
	switch e.Op {
	case ast.OpPlus, ast.OpPlusAssign:
		t := c.checkPlus(node, e.Op, left, right)
		if e.Op == ast.OpPlusAssign {
			c.checkCompoundAssignment(e, t)
		}
		return t
	case ast.OpMinus, ast.OpStar, ast.OpSlash, ast.OpPercent, ast.OpMinusAssign:
		if !c.isNumberLike(left) && !c.isAnyLike(left) {
			c.error(e.Left, diag.CheckArithmeticLeft, "The left-hand side of an arithmetic operation must be of type 'any', 'number', 'bigint' or an enum type.")
		}
		if !c.isNumberLike(right) && !c.isAnyLike(right) {
			c.error(e.Right, diag.CheckArithmeticRight, "The right-hand side of an arithmetic operation must be of type 'any', 'number', 'bigint' or an enum type.")
		}
		if e.Op == ast.OpMinusAssign {
			c.checkCompoundAssignment(e, c.b.Number)
		}
		return c.b.Number
	case ast.OpLess, ast.OpGreater, ast.OpLessEq, ast.OpGreaterEq:
		l, r := c.widenLiteral(c.types.Regular(left)), c.widenLiteral(c.types.Regular(right))
		ok := c.isAnyLike(l) || c.isAnyLike(r) ||
			c.isNumberLike(l) && c.isNumberLike(r) ||
			c.isTypeComparableTo(l, r) || c.isTypeComparableTo(r, l)
		if !ok {
			c.reportOperator(node, e.Op, left, right)
		}
		return c.b.Boolean
	case ast.OpEqEq, ast.OpNotEq, ast.OpEqEqEq, ast.OpNotEqEq:
		l, r := c.types.Regular(left), c.types.Regular(right)
		if !c.isTypeComparableTo(l, r) && !c.isTypeComparableTo(r, l) {
			c.error(node, diag.CheckNoOverlap,
				"This comparison appears to be unintentional because the types '%s' and '%s' have no overlap.",
				c.TypeToString(l), c.TypeToString(r))
		}
		return c.b.Boolean
	case ast.OpInstanceof, ast.OpIn:
		return c.b.Boolean
	}
	return c.b.Error
}

func (c *Checker) checkPlus(node ast.NodeID, op ast.Op, left, right types.TypeID) types.TypeID {
	switch {
	case c.isNumberLike(left) && c.isNumberLike(right):
		return c.b.Number
	case c.isStringLike(left) || c.isStringLike(right):
		return c.b.String
	case c.isAnyLike(left) || c.isAnyLike(right):
		return c.b.Any
	}
	c.reportOperator(node, op, left, right)
	return c.b.Any
}

func (c *Checker) reportOperator(node ast.NodeID, op ast.Op, left, right types.TypeID) {
	c.error(node, diag.CheckOperatorNotApplicable, "Operator '%s' cannot be applied to types '%s' and '%s'.",
		op.String(), c.TypeToString(c.types.Regular(left)), c.TypeToString(c.types.Regular(right)))
}

func (c *Checker) checkAssignment(node ast.NodeID, e *ast.ExprData) types.TypeID {
	target := c.checkAssignmentTarget(e.Left)
	value := c.checkExpression(e.Right)
	if target != types.NoTypeID {
		c.checkTypeAssignableTo(value, target, e.Left)
	}
	return value
}

func (c *Checker) checkCompoundAssignment(e *ast.ExprData, result types.TypeID) {
	if target := c.checkAssignmentTarget(e.Left); target != types.NoTypeID {
		c.checkTypeAssignableTo(result, target, e.Left)
	}
}

// checkAssignmentTarget validates the left side of an assignment and
// returns its declared type, or NoTypeID when it is not assignable.
func (c *Checker) checkAssignmentTarget(target ast.NodeID) types.TypeID {
	target = c.skipParens(target)
	t := c.checkExpression(target)
	switch c.kind(target) {
	case ast.KindIdentifier:
		sym := c.symbolOfIdentifier(target)
		if !sym.IsValid() {
			return types.NoTypeID
		}
		flags := c.syms.Flags(sym)
		if flags&symbols.Const != 0 {
			c.error(target, diag.CheckAssignToConst, "Cannot assign to '%s' because it is a constant.", c.symbolName(sym))
			return types.NoTypeID
		}
		if flags&symbols.Variable == 0 {
			c.error(target, diag.CheckAssignToConst, "Cannot assign to '%s' because it is not a variable.", c.symbolName(sym))
			return types.NoTypeID
		}
	case ast.KindPropertyAccess, ast.KindElementAccess:
	default:
		c.error(target, diag.CheckAssignToConst, "The left-hand side of an assignment expression must be a variable or a property access.")
		return types.NoTypeID
	}
	return t
}

func (c *Checker) checkAssertion(node ast.NodeID) types.TypeID {
	e, _ := c.nodes.Expr(node)
	source := c.widenType(c.widenLiteral(c.types.Regular(c.checkExpression(e.Left))))
	target := c.typeFromTypeNode(e.Right)
	if c.isAnyLike(source) || c.isAnyLike(target) {
		return target
	}
	if !c.isTypeComparableTo(target, source) && !c.isTypeComparableTo(source, target) {
		c.error(node, diag.CheckConversionMistake,
			"Conversion of type '%s' to type '%s' may be a mistake because neither type sufficiently overlaps with the other. If this was intentional, convert the expression to 'unknown' first.",
			c.TypeToString(source), c.TypeToString(target))
	}
	return target
}

// --- type predicates used by operators ---

func (c *Checker) isAnyLike(t types.TypeID) bool {
	return c.types.Kind(t) == types.KindAny
}

func (c *Checker) isNumberLike(t types.TypeID) bool {
	return c.allConstituents(t, func(k types.Kind) bool {
		return k == types.KindNumber || k == types.KindNumberLiteral
	})
}

func (c *Checker) isStringLike(t types.TypeID) bool {
	return c.allConstituents(t, func(k types.Kind) bool {
		return k == types.KindString || k == types.KindStringLiteral
	})
}

// allConstituents reports whether every constituent of t, seen through
// the constraint of type parameters, has a kind accepted by ok.
func (c *Checker) allConstituents(t types.TypeID, ok func(types.Kind) bool) bool {
	if c.types.Kind(t).IsGeneric() {
		t = c.baseConstraintOf(t)
	}
	members := c.types.Constituents(t)
	if len(members) == 0 {
		return false
	}
	for _, m := range members {
		if !ok(c.types.Kind(m)) {
			return false
		}
	}
	return true
}
