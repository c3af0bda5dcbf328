package checker

import (
	"slices"

	"stc/internal/ast"
	"stc/internal/diag"
	"stc/internal/symbols"
	"stc/internal/types"
)

func (c *Checker) checkSourceFileWorker(file ast.NodeID, fd *ast.FileData) {
	c.deferred = c.deferred[:0]
	c.trace("check_source_file", fd.Path)
	for _, s := range fd.Stmts {
		c.checkStatement(s)
	}
	c.checkDeferredBodies()
}

// checkDeferredBodies drains the queue of function bodies. Checking a body
// may queue more.
func (c *Checker) checkDeferredBodies() {
	for i := 0; i < len(c.deferred); i++ {
		c.checkFunctionBody(c.deferred[i])
	}
	c.deferred = c.deferred[:0]
}

func (c *Checker) checkStatement(node ast.NodeID) {
	if !node.IsValid() {
		return
	}
	c.tick()
	saved := c.currentNode
	c.currentNode = node
	defer func() { c.currentNode = saved }()

	switch c.kind(node) {
	case ast.KindBlock:
		l, _ := c.nodes.List(node)
		for _, s := range l.Items {
			c.checkStatement(s)
		}
	case ast.KindEmptyStatement, ast.KindBreak, ast.KindContinue:
	case ast.KindVariableStatement:
		l, _ := c.nodes.List(node)
		for _, d := range l.Items {
			c.checkVariableDeclaration(d)
		}
	case ast.KindExpressionStatement, ast.KindThrow:
		s, _ := c.nodes.Stmt(node)
		c.checkExpression(s.Expr)
	case ast.KindIf:
		d, _ := c.nodes.If(node)
		c.checkExpression(d.Cond)
		c.checkStatement(d.Then)
		c.checkStatement(d.Else)
	case ast.KindWhile, ast.KindDoWhile:
		d, _ := c.nodes.Loop(node)
		c.checkExpression(d.Cond)
		c.checkStatement(d.Body)
	case ast.KindFor:
		d, _ := c.nodes.Loop(node)
		c.checkForInitializer(d.Init)
		if d.Cond.IsValid() {
			c.checkExpression(d.Cond)
		}
		if d.Incr.IsValid() {
			c.checkExpression(d.Incr)
		}
		c.checkStatement(d.Body)
	case ast.KindForOf:
		c.checkForOf(node)
	case ast.KindReturn:
		c.checkReturn(node)
	case ast.KindLabeled:
		s, _ := c.nodes.Stmt(node)
		c.checkStatement(s.Body)
	case ast.KindTry:
		d, _ := c.nodes.Try(node)
		c.checkStatement(d.Block)
		if d.Catch.IsValid() {
			s, _ := c.nodes.Stmt(d.Catch)
			if s.Expr.IsValid() {
				c.checkVariableDeclaration(s.Expr)
			}
			c.checkStatement(s.Body)
		}
		c.checkStatement(d.Finally)
	case ast.KindSwitch:
		c.checkSwitch(node)
	case ast.KindFunctionDeclaration:
		c.checkFunctionLikeDeclaration(node)
	case ast.KindClassDeclaration:
		c.checkClassLike(node)
	case ast.KindInterfaceDeclaration:
		c.checkInterface(node)
	case ast.KindTypeAliasDeclaration:
		sd, _ := c.nodes.Shape(node)
		c.checkTypeParameters(sd.TypeParams)
		c.declaredTypeOfSymbol(c.declSymbol(node))
		c.checkTypeNodes(sd.Type)
	case ast.KindEnumDeclaration:
		c.checkEnum(node)
	case ast.KindModuleDeclaration:
		sd, _ := c.nodes.Shape(node)
		c.typeOfSymbol(c.declSymbol(node))
		for _, s := range sd.Members {
			c.checkStatement(s)
		}
	case ast.KindImportDeclaration:
		im, _ := c.nodes.Import(node)
		for _, spec := range im.Items {
			c.resolveAlias(c.declSymbol(spec))
		}
	default:
		internalf(node, "unexpected statement kind %s", c.kind(node))
	}
}

func (c *Checker) checkForInitializer(init ast.NodeID) {
	switch {
	case !init.IsValid():
	case c.kind(init) == ast.KindVariableStatement:
		c.checkStatement(init)
	default:
		c.checkExpression(init)
	}
}

func (c *Checker) checkForOf(node ast.NodeID) {
	d, _ := c.nodes.Loop(node)
	elem := c.iteratedType(c.checkExpression(d.Cond), d.Cond)
	if c.kind(d.Init) == ast.KindVariableStatement {
		c.checkStatement(d.Init)
	} else if d.Init.IsValid() {
		if target := c.checkAssignmentTarget(d.Init); target != types.NoTypeID {
			c.checkTypeAssignableTo(elem, target, d.Init)
		}
	}
	c.checkStatement(d.Body)
}

// iteratedType is the element type a for-of loop produces over t.
func (c *Checker) iteratedType(t types.TypeID, node ast.NodeID) types.TypeID {
	var elems []types.TypeID
	for _, m := range c.types.Constituents(t) {
		switch k := c.types.Kind(m); {
		case k == types.KindAny:
			return m
		case k == types.KindString || k == types.KindStringLiteral:
			elems = append(elems, c.b.String)
		case k == types.KindArray:
			e, _ := c.types.ArrayElem(m)
			elems = append(elems, e)
		case k == types.KindTuple:
			elems = append(elems, c.types.Members(m)...)
		case k == types.KindReference && c.isArrayLikeReference(m):
			info, _ := c.types.ReferenceInfo(m)
			elems = append(elems, info.Args[len(info.Args)-1])
		case k.IsGeneric():
			if base := c.baseConstraintOf(m); base != m && base != c.b.Unknown {
				elems = append(elems, c.iteratedType(base, node))
				continue
			}
			fallthrough
		default:
			c.error(node, diag.CheckNotIterable, "Type '%s' must have a '[Symbol.iterator]()' method that returns an iterator.", c.TypeToString(t))
			return c.b.Error
		}
	}
	return c.types.Union(elems)
}

// isArrayLikeReference reports references to the synthesized array types.
func (c *Checker) isArrayLikeReference(t types.TypeID) bool {
	info, ok := c.types.ReferenceInfo(t)
	if !ok || len(info.Args) == 0 {
		return false
	}
	name := c.symbolName(c.types.Symbol(info.Target))
	return name == "Array" || name == "ReadonlyArray"
}

func (c *Checker) checkSwitch(node ast.NodeID) {
	l, _ := c.nodes.List(node)
	subject := c.checkExpression(l.Expr)
	for _, clause := range l.Items {
		cl, _ := c.nodes.List(clause)
		if c.kind(clause) == ast.KindCaseClause {
			t := c.checkExpression(cl.Expr)
			r, s := c.types.Regular(t), c.types.Regular(subject)
			if !c.isTypeComparableTo(r, s) && !c.isTypeComparableTo(s, r) {
				c.error(cl.Expr, diag.CheckNoOverlap, "Type '%s' is not comparable to type '%s'.", c.TypeToString(r), c.TypeToString(s))
			}
		}
		for _, st := range cl.Items {
			c.checkStatement(st)
		}
	}
}

// --- variables ---

func (c *Checker) checkVariableDeclaration(decl ast.NodeID) {
	d, _ := c.nodes.Decl(decl)
	sym := c.declSymbol(decl)
	if !sym.IsValid() {
		return
	}
	t := c.typeOfSymbol(sym)
	if d.Type.IsValid() {
		c.checkTypeNodes(d.Type)
	}
	if !d.Init.IsValid() {
		return
	}
	init := c.checkExpression(d.Init)
	if d.Type.IsValid() {
		c.checkTypeAssignableTo(init, t, d.Name)
	}
}

func (c *Checker) checkReturn(node ast.NodeID) {
	s, _ := c.nodes.Stmt(node)
	fn := c.containingFunction(node)
	if !s.Expr.IsValid() {
		return
	}
	t := c.checkExpression(s.Expr)
	if !fn.IsValid() || c.kind(fn) == ast.KindConstructor {
		return
	}
	if ret, ok := c.declaredReturnType(fn); ok {
		c.checkTypeAssignableTo(t, ret, s.Expr)
	}
}

// declaredReturnType returns the annotated return type of fn; a type
// predicate declares boolean.
func (c *Checker) declaredReturnType(fn ast.NodeID) (types.TypeID, bool) {
	fd, _ := c.nodes.Func(fn)
	switch {
	case !fd.Type.IsValid():
		return types.NoTypeID, false
	case c.kind(fd.Type) == ast.KindTypePredicate:
		if c.nodes.Flags(fd.Type)&ast.FlagAsserts != 0 {
			return c.b.Void, true
		}
		return c.b.Boolean, true
	}
	return c.typeFromTypeNode(fd.Type), true
}

// --- functions ---

// checkFunctionLikeDeclaration checks the signature part of a function,
// method or constructor and queues its body.
func (c *Checker) checkFunctionLikeDeclaration(decl ast.NodeID) {
	fd, _ := c.nodes.Func(decl)
	c.checkTypeParameters(fd.TypeParams)
	sig := c.signatureOfDecl(decl)
	for _, p := range fd.Params {
		pd, _ := c.nodes.Decl(p)
		if pd.Type.IsValid() {
			c.checkTypeNodes(pd.Type)
		}
		if pd.Init.IsValid() && pd.Type.IsValid() {
			c.checkTypeAssignableTo(c.checkExpression(pd.Init), c.typeFromTypeNode(pd.Type), pd.Init)
		}
	}
	if fd.Type.IsValid() && c.kind(fd.Type) != ast.KindTypePredicate {
		c.checkTypeNodes(fd.Type)
	}
	if fd.Body.IsValid() {
		c.checkOverloads(decl, sig)
		c.deferBody(decl)
	}
}

// checkOverloads reports overload signatures that the implementation
// cannot serve: a parameter or the return type relates in neither
// direction.
func (c *Checker) checkOverloads(impl ast.NodeID, implSig types.SignatureID) {
	sym := c.declSymbol(impl)
	if !sym.IsValid() || c.kind(impl) == ast.KindFunctionExpression || c.kind(impl) == ast.KindArrowFunction {
		return
	}
	is := c.types.Signature(c.erasedSignature(implSig))
	implRet := c.returnTypeOf(implSig)
	for _, d := range c.syms.Get(sym).Decls {
		fd, ok := c.nodes.Func(d)
		if !ok || d == impl || fd.Body.IsValid() {
			continue
		}
		os := c.types.Signature(c.erasedSignature(c.signatureOfDecl(d)))
		compatible := true
		for i := range min(len(os.Params), len(is.Params)) {
			o, p := os.Params[i].Type, is.Params[i].Type
			if !c.isTypeAssignableTo(o, p) && !c.isTypeAssignableTo(p, o) {
				compatible = false
				break
			}
		}
		if compatible && len(os.Params) > len(is.Params) && !is.HasRest() {
			compatible = false
		}
		if ret := c.returnTypeOf(c.signatureOfDecl(d)); compatible && !c.isAnyLike(implRet) && c.types.Kind(implRet) != types.KindVoid {
			compatible = c.isTypeAssignableTo(implRet, ret) || c.isTypeAssignableTo(ret, implRet)
		}
		if !compatible {
			c.error(c.anchorOf(d), diag.CheckOverloadIncompatible, "This overload signature is not compatible with its implementation signature.")
		}
	}
}

// checkFunctionBody checks a queued body and the completeness of its
// returns.
func (c *Checker) checkFunctionBody(fn ast.NodeID) {
	fd, _ := c.nodes.Func(fn)
	if c.kind(fn) != ast.KindConstructor {
		c.returnTypeOf(c.signatureOfDecl(fn))
	}
	if c.kind(fd.Body) != ast.KindBlock {
		t := c.checkExpression(fd.Body)
		if ret, ok := c.declaredReturnType(fn); ok {
			c.checkTypeAssignableTo(t, ret, fd.Body)
		}
		return
	}
	c.checkStatement(fd.Body)
	c.checkAllPathsReturn(fn, fd)
}

func (c *Checker) checkAllPathsReturn(fn ast.NodeID, fd *ast.FuncData) {
	ret, ok := c.declaredReturnType(fn)
	if !ok || c.kind(fn) == ast.KindConstructor || !c.isEndReachable(fn) {
		return
	}
	if c.returnAcceptsNothing(ret) {
		return
	}
	hasValue := false
	c.forEachReturn(fd.Body, func(r ast.NodeID) {
		if s, _ := c.nodes.Stmt(r); s.Expr.IsValid() {
			hasValue = true
		}
	})
	if !hasValue {
		c.error(fd.Type, diag.CheckMissingReturnValue, "A function whose declared type is neither 'undefined', 'void', nor 'any' must return a value.")
		return
	}
	if c.opts.StrictNullChecks {
		c.error(fd.Type, diag.CheckLacksEndingReturn, "Function lacks ending return statement and return type does not include 'undefined'.")
	}
}

// returnAcceptsNothing reports return types satisfied by falling off the
// end of a body.
func (c *Checker) returnAcceptsNothing(t types.TypeID) bool {
	for _, m := range c.types.Constituents(t) {
		switch c.types.Kind(m) {
		case types.KindAny, types.KindUnknown, types.KindVoid, types.KindUndefined:
			return true
		}
	}
	return !c.opts.StrictNullChecks && c.types.Kind(t) != types.KindNever
}

func (c *Checker) checkTypeParameters(params []ast.NodeID) {
	for _, tp := range params {
		d, _ := c.nodes.TypeParam(tp)
		t := c.declaredTypeOfSymbol(c.declSymbol(tp))
		if d.Constraint.IsValid() {
			c.checkTypeNodes(d.Constraint)
		}
		if !d.Default.IsValid() {
			continue
		}
		c.checkTypeNodes(d.Default)
		if cons := c.constraintOf(t); cons != types.NoTypeID {
			c.checkTypeRelatedTo(c.typeFromTypeNode(d.Default), cons, RelationAssignable, d.Default,
				diag.CheckConstraintUnsatisfied, "Type '%s' does not satisfy the constraint '%s'.")
		}
	}
}

// checkTypeNodes resolves every type reference and type query under root,
// so unknown names and unsatisfied constraints are reported even inside
// lazily resolved members.
func (c *Checker) checkTypeNodes(root ast.NodeID) {
	c.nodes.Walk(root, func(n ast.NodeID) bool {
		switch c.kind(n) {
		case ast.KindTypeReference:
			c.typeFromTypeNode(n)
			c.checkTypeArgumentsOfReference(n)
		case ast.KindTypeQuery:
			c.typeFromTypeNode(n)
			return false
		case ast.KindParameter, ast.KindPropertySignature:
			return true
		}
		return c.kind(n).IsTypeNode() || c.kind(n).IsFunctionLike() || c.kind(n) == ast.KindIndexSignature || c.kind(n) == ast.KindTypeParameter
	})
}

func (c *Checker) checkTypeArgumentsOfReference(node ast.NodeID) {
	cd, _ := c.nodes.Call(node)
	if len(cd.TypeArgs) == 0 {
		return
	}
	sym := c.resolveEntityName(cd.Expr, symbols.Type, false)
	if !sym.IsValid() {
		return
	}
	params := c.localTypeParams(c.resolveAliasOrSelf(sym))
	n := min(len(params), len(cd.TypeArgs))
	args := make([]types.TypeID, n)
	for i := range n {
		args[i] = c.typeFromTypeNode(cd.TypeArgs[i])
	}
	m := c.newMapper(params[:n], args)
	for i := range n {
		cons := c.constraintOf(params[i])
		if cons == types.NoTypeID {
			continue
		}
		c.checkTypeRelatedTo(args[i], c.instantiate(cons, m), RelationAssignable, cd.TypeArgs[i],
			diag.CheckConstraintUnsatisfied, "Type '%s' does not satisfy the constraint '%s'.")
	}
}

// --- classes, interfaces, enums ---

func (c *Checker) checkClassLike(node ast.NodeID) {
	l := c.nodeLink(node)
	if l.checked {
		return
	}
	l.checked = true
	c.onAbort(func() { l.checked = false })
	sd, _ := c.nodes.Shape(node)
	sym := c.declSymbol(node)
	c.checkTypeParameters(sd.TypeParams)
	instance := c.declaredTypeOfSymbol(sym)
	c.typeOfSymbol(sym)
	for _, ext := range sd.Extends {
		c.checkTypeNodes(ext)
	}
	if base := c.classBase(sym); base != types.NoTypeID && len(sd.Extends) > 0 {
		c.checkTypeRelatedTo(instance, base, RelationAssignable, sd.Extends[0], diag.CheckClassIncorrectlyExtend,
			"Class '%s' incorrectly extends base class '%s'.")
	}
	for _, impl := range sd.Implements {
		c.checkTypeNodes(impl)
		t := c.typeFromTypeNode(impl)
		if c.isAnyLike(t) {
			continue
		}
		c.checkTypeRelatedTo(instance, t, RelationAssignable, impl, diag.CheckIncorrectlyImplements,
			"Class '%s' incorrectly implements interface '%s'.")
	}
	c.checkMembers(sd.Members)
}

func (c *Checker) checkMembers(members []ast.NodeID) {
	seenIndex := make(map[types.TypeID]bool)
	for _, m := range members {
		switch c.kind(m) {
		case ast.KindPropertyDeclaration:
			d, _ := c.nodes.Decl(m)
			t := c.typeOfSymbol(c.declSymbol(m))
			if d.Type.IsValid() {
				c.checkTypeNodes(d.Type)
			}
			if d.Init.IsValid() {
				init := c.checkExpression(d.Init)
				if d.Type.IsValid() {
					c.checkTypeAssignableTo(init, t, d.Name)
				}
			}
		case ast.KindPropertySignature:
			d, _ := c.nodes.Decl(m)
			c.checkTypeNodes(d.Type)
		case ast.KindMethodDeclaration, ast.KindConstructor:
			c.checkFunctionLikeDeclaration(m)
		case ast.KindMethodSignature, ast.KindCallSignature, ast.KindConstructSignature:
			fd, _ := c.nodes.Func(m)
			c.checkTypeParameters(fd.TypeParams)
			c.signatureOfDecl(m)
			c.checkTypeNodes(m)
		case ast.KindIndexSignature:
			ix, ok := c.indexInfoOfDecl(m)
			if !ok {
				continue
			}
			if seenIndex[ix.Key] {
				c.error(m, diag.CheckDuplicateIndex, "Duplicate index signature for type '%s'.", c.TypeToString(ix.Key))
			}
			seenIndex[ix.Key] = true
			c.checkTypeNodes(m)
		}
	}
}

func (c *Checker) checkInterface(node ast.NodeID) {
	sd, _ := c.nodes.Shape(node)
	sym := c.declSymbol(node)
	c.checkTypeParameters(sd.TypeParams)
	instance := c.declaredTypeOfSymbol(sym)
	bases := c.baseTypes(sym)
	for _, ext := range sd.Extends {
		c.checkTypeNodes(ext)
		base := c.typeFromTypeNode(ext)
		if !slices.Contains(bases, base) {
			continue
		}
		c.checkTypeRelatedTo(instance, base, RelationAssignable, ext, diag.CheckIncorrectlyExtends,
			"Interface '%s' incorrectly extends interface '%s'.")
	}
	c.checkMembers(sd.Members)
}

func (c *Checker) checkEnum(node ast.NodeID) {
	sd, _ := c.nodes.Shape(node)
	c.declaredTypeOfSymbol(c.declSymbol(node))
	for _, m := range sd.Members {
		c.declaredTypeOfSymbol(c.declSymbol(m))
	}
}
