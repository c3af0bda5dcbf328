package checker

import (
	"stc/internal/ast"
	"stc/internal/diag"
	"stc/internal/symbols"
	"stc/internal/types"
)

// signatureOfDecl builds the signature declared by a function-like node.
// Return types without annotation are inferred on first use.
func (c *Checker) signatureOfDecl(decl ast.NodeID) types.SignatureID {
	l := c.nodeLink(decl)
	if l.sigState == stateDone {
		return l.sig
	}
	fd, ok := c.nodes.Func(decl)
	if !ok {
		internalf(decl, "signature of non-function %s", c.kind(decl))
	}
	kind := c.kind(decl)
	sig := types.Signature{Decl: decl}

	switch kind {
	case ast.KindConstructor:
		sig.Flags |= types.SigConstruct
		sig.TypeParams = c.localTypeParams(c.declSymbol(c.nodes.Parent(decl)))
	case ast.KindConstructSignature, ast.KindConstructorType:
		sig.Flags |= types.SigConstruct
	case ast.KindMethodDeclaration, ast.KindMethodSignature:
		sig.Flags |= types.SigMethod
	}
	if kind != ast.KindConstructor {
		for _, tp := range fd.TypeParams {
			sig.TypeParams = append(sig.TypeParams, c.declaredTypeOfSymbol(c.declSymbol(tp)))
		}
	}

	sig.Params = make([]types.Param, 0, len(fd.Params))
	for i, p := range fd.Params {
		pd, _ := c.nodes.Decl(p)
		pflags := c.nodes.Flags(p)
		sym := c.declSymbol(p)
		param := types.Param{
			Name:     c.identText(pd.Name),
			Type:     c.typeOfSymbol(sym),
			Optional: pflags&ast.FlagOptional != 0 || pd.Init.IsValid(),
			Rest:     pflags&ast.FlagRest != 0,
			Symbol:   sym,
		}
		if param.Rest {
			sig.Flags |= types.SigRest
		} else if !param.Optional {
			sig.MinArgs = i + 1
		}
		sig.Params = append(sig.Params, param)
	}

	switch {
	case c.kind(fd.Type) == ast.KindTypePredicate:
		sig.Predicate = c.predicateOf(decl, fd)
		sig.Return = c.typeFromTypeNode(fd.Type)
	case fd.Type.IsValid():
		sig.Return = c.typeFromTypeNode(fd.Type)
	case kind == ast.KindConstructor:
		sig.Return = c.declaredTypeOfSymbol(c.declSymbol(c.nodes.Parent(decl)))
	case !fd.Body.IsValid():
		sig.Return = c.b.Any
	}
	id := c.types.NewSignature(sig)
	l.sig, l.sigState = id, stateDone
	return id
}

func (c *Checker) predicateOf(decl ast.NodeID, fd *ast.FuncData) types.Predicate {
	e, _ := c.nodes.Expr(fd.Type)
	asserts := c.nodes.Flags(fd.Type)&ast.FlagAsserts != 0
	var pred types.Predicate
	if e.Right.IsValid() {
		pred.Type = c.typeFromTypeNode(e.Right)
	}
	switch {
	case c.kind(e.Left) == ast.KindThisType || c.kind(e.Left) == ast.KindThisKeyword:
		pred.Kind = types.PredicateThis
		return pred
	case asserts && !e.Right.IsValid():
		pred.Kind = types.PredicateAssert
	case asserts:
		pred.Kind = types.PredicateAssertIs
	default:
		pred.Kind = types.PredicateIs
	}
	name := c.identText(e.Left)
	for i, p := range fd.Params {
		if c.identText(c.nodes.Name(p)) == name {
			pred.Param = i
			return pred
		}
	}
	c.error(e.Left, diag.CheckPredicateParamMissing, "Cannot find parameter '%s'.", name)
	return types.Predicate{}
}

// returnTypeOf resolves the return type of a signature, inferring it from
// the body when it is not annotated.
func (c *Checker) returnTypeOf(id types.SignatureID) types.TypeID {
	sig := c.types.Signature(id)
	if sig == nil {
		return c.b.Error
	}
	if sig.Return != types.NoTypeID {
		return sig.Return
	}
	l := c.sigLink(id)
	if l.retState == stateDone {
		return l.ret
	}
	if sig.Target.IsValid() {
		target, mapper := sig.Target, sig.Mapper
		r := c.instantiate(c.returnTypeOf(target), mapper)
		l.ret, l.retState = r, stateDone
		return r
	}
	decl := sig.Decl
	if !c.pushResolution(resolveReturnType, uint32(id)) {
		return c.b.Any
	}
	r := c.inferReturnType(decl)
	if !c.popResolution() {
		name := c.identText(c.nodes.Name(decl))
		if name == "" {
			name = "(anonymous)"
		}
		c.error(c.anchorOf(decl), diag.CheckCircularReturn,
			"'%s' implicitly has return type 'any' because it does not have a return type annotation and is referenced directly or indirectly in one of its return expressions.", name)
		r = c.b.Any
	}
	l.ret, l.retState = r, stateDone
	return r
}

// anchorOf returns the node a declaration's diagnostics point at.
func (c *Checker) anchorOf(decl ast.NodeID) ast.NodeID {
	if n := c.nodes.Name(decl); n.IsValid() {
		return n
	}
	return decl
}

// inferReturnType unions the types of the return expressions in a body.
func (c *Checker) inferReturnType(decl ast.NodeID) types.TypeID {
	fd, _ := c.nodes.Func(decl)
	if !fd.Body.IsValid() {
		return c.b.Any
	}
	contextual := c.contextualReturnTypeOf(decl)
	if c.kind(fd.Body) != ast.KindBlock {
		t := c.checkExpressionWithContext(fd.Body, contextual)
		return c.widenReturnType(t, contextual)
	}
	var returned []types.TypeID
	hasValue, hasEmpty := false, false
	c.forEachReturn(fd.Body, func(ret ast.NodeID) {
		s, _ := c.nodes.Stmt(ret)
		if !s.Expr.IsValid() {
			hasEmpty = true
			return
		}
		hasValue = true
		returned = append(returned, c.checkExpressionWithContext(s.Expr, contextual))
	})
	endReachable := c.isEndReachable(decl)
	switch {
	case !hasValue && !hasEmpty && !endReachable:
		if c.kind(decl) == ast.KindFunctionExpression || c.kind(decl) == ast.KindArrowFunction {
			return c.b.Never
		}
		return c.b.Void
	case !hasValue:
		return c.b.Void
	}
	if (endReachable || hasEmpty) && c.opts.StrictNullChecks {
		returned = append(returned, c.b.Undefined)
	}
	return c.widenReturnType(c.types.Union(returned), contextual)
}

func (c *Checker) widenReturnType(t, contextual types.TypeID) types.TypeID {
	if contextual != types.NoTypeID && c.containsLiteralLike(contextual) {
		return c.widenType(c.types.Regular(t))
	}
	return c.widenType(c.widenLiteral(t))
}

// forEachReturn visits the return statements of a body, not descending
// into nested functions or classes.
func (c *Checker) forEachReturn(body ast.NodeID, fn func(ast.NodeID)) {
	c.nodes.Walk(body, func(n ast.NodeID) bool {
		k := c.kind(n)
		if n != body && (k.IsFunctionLike() || k.IsClassLike()) {
			return false
		}
		if k == ast.KindReturn {
			fn(n)
		}
		return true
	})
}

// isEndReachable reports whether control can fall off the end of a body.
func (c *Checker) isEndReachable(decl ast.NodeID) bool {
	end, ok := c.sess.EndFlow[decl]
	return ok && !c.flows.IsUnreachable(end)
}

// signaturesOfSymbol returns the visible signatures of a function or
// method symbol. With overloads, the implementation is hidden.
func (c *Checker) signaturesOfSymbol(sym symbols.SymbolID) []types.SignatureID {
	s := c.syms.Get(sym)
	var decls []ast.NodeID
	for _, d := range s.Decls {
		if c.kind(d).IsFunctionLike() {
			decls = append(decls, d)
		}
	}
	if len(decls) > 1 {
		overloads := decls[:0:0]
		for _, d := range decls {
			if fd, _ := c.nodes.Func(d); !fd.Body.IsValid() {
				overloads = append(overloads, d)
			}
		}
		if len(overloads) > 0 {
			decls = overloads
		}
	}
	out := make([]types.SignatureID, len(decls))
	for i, d := range decls {
		out[i] = c.signatureOfDecl(d)
	}
	return out
}

// implementationOf returns the declaration with a body among a symbol's
// function-like declarations.
func (c *Checker) implementationOf(sym symbols.SymbolID) ast.NodeID {
	for _, d := range c.syms.Get(sym).Decls {
		if fd, ok := c.nodes.Func(d); ok && fd.Body.IsValid() {
			return d
		}
	}
	return ast.NoNodeID
}

// classConstructSignatures returns the construct signatures of a class:
// its constructors, the inherited base constructors, or a default one.
func (c *Checker) classConstructSignatures(sym symbols.SymbolID) []types.SignatureID {
	s := c.syms.Get(sym)
	instance := c.declaredTypeOfSymbol(sym)
	local := c.localTypeParams(sym)
	if ctor, ok := s.Members.Get(c.strings.Intern(symbols.NameCtor)); ok {
		return c.signaturesOfSymbol(ctor)
	}
	if base := c.classBase(sym); base != types.NoTypeID {
		baseSym := c.types.Symbol(base)
		var m types.MapperID
		if info, ok := c.types.ReferenceInfo(base); ok {
			ti, _ := c.types.InterfaceInfo(info.Target)
			m = c.newMapper(ti.TypeParams, info.Args)
		}
		inherited := c.classConstructSignatures(baseSym)
		out := make([]types.SignatureID, len(inherited))
		for i, id := range inherited {
			bs := *c.types.Signature(c.instantiateSignature(id, m))
			bs.TypeParams = local
			bs.Return = instance
			bs.Target, bs.Mapper = types.NoSignatureID, 0
			out[i] = c.types.NewSignature(bs)
		}
		return out
	}
	return []types.SignatureID{c.types.NewSignature(types.Signature{
		Decl:       c.classDecl(sym),
		TypeParams: local,
		Return:     instance,
		Flags:      types.SigConstruct,
	})}
}

func (c *Checker) classDecl(sym symbols.SymbolID) ast.NodeID {
	for _, d := range c.syms.Get(sym).Decls {
		if c.kind(d).IsClassLike() {
			return d
		}
	}
	return ast.NoNodeID
}

// erasedSignature replaces a signature's own type parameters with any.
func (c *Checker) erasedSignature(id types.SignatureID) types.SignatureID {
	sig := c.types.Signature(id)
	if len(sig.TypeParams) == 0 {
		return id
	}
	l := c.sigLink(id)
	if l.erased.IsValid() {
		return l.erased
	}
	anys := make([]types.TypeID, len(sig.TypeParams))
	for i := range anys {
		anys[i] = c.b.Any
	}
	l.erased = c.instantiateSignature(id, c.newMapper(sig.TypeParams, anys))
	return l.erased
}

// paramTypeAt returns the type of the argument at position i, spreading a
// trailing rest parameter. ok is false past the last parameter.
func (c *Checker) paramTypeAt(sig *types.Signature, i int) (types.TypeID, bool) {
	if i < sig.ParamCount() {
		return sig.Params[i].Type, true
	}
	if sig.HasRest() {
		rest := sig.Params[len(sig.Params)-1].Type
		return c.restElementType(rest), true
	}
	return types.NoTypeID, false
}

func (c *Checker) restElementType(rest types.TypeID) types.TypeID {
	if elem, ok := c.types.ArrayElem(rest); ok {
		return elem
	}
	if c.types.Kind(rest) == types.KindTuple {
		return c.types.Union(c.types.Members(rest))
	}
	return c.b.Any
}
