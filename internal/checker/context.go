package checker

import (
	"stc/internal/ast"
	"stc/internal/symbols"
	"stc/internal/types"
)

// contextualType returns the type the position of node expects, or
// NoTypeID. A type recorded by call resolution takes precedence over the
// one derived from the parent.
func (c *Checker) contextualType(node ast.NodeID) types.TypeID {
	if l, ok := c.nodeLinks[node]; ok && l.contextual != types.NoTypeID {
		return l.contextual
	}
	parent := c.nodes.Parent(node)
	switch c.kind(parent) {
	case ast.KindVariableDeclaration, ast.KindPropertyDeclaration:
		d, _ := c.nodes.Decl(parent)
		if d.Init == node && d.Type.IsValid() {
			return c.typeFromTypeNode(d.Type)
		}
	case ast.KindParameter:
		d, _ := c.nodes.Decl(parent)
		if d.Init == node {
			if d.Type.IsValid() {
				return c.typeFromTypeNode(d.Type)
			}
			if t, ok := c.contextualParameterType(parent); ok {
				return t
			}
		}
	case ast.KindReturn:
		if fn := c.containingFunction(parent); fn.IsValid() {
			return c.returnContextOf(fn)
		}
	case ast.KindArrowFunction:
		if fd, _ := c.nodes.Func(parent); fd.Body == node {
			return c.returnContextOf(parent)
		}
	case ast.KindBinary:
		e, _ := c.nodes.Expr(parent)
		switch {
		case e.Op == ast.OpAssign && e.Right == node:
			return c.checkExpression(e.Left)
		case e.Op == ast.OpOrOr || e.Op == ast.OpQuestionQuestion:
			return c.contextualType(parent)
		case e.Op == ast.OpAndAnd && e.Right == node:
			return c.contextualType(parent)
		}
	case ast.KindParenthesized:
		return c.contextualType(parent)
	case ast.KindConditional:
		if e, _ := c.nodes.Expr(parent); e.Left != node {
			return c.contextualType(parent)
		}
	case ast.KindAs:
		e, _ := c.nodes.Expr(parent)
		return c.typeFromTypeNode(e.Right)
	case ast.KindPropertyAssignment:
		d, _ := c.nodes.Decl(parent)
		if d.Init == node {
			return c.contextualPropertyType(c.contextualType(c.nodes.Parent(parent)), c.propertyNameText(d.Name))
		}
	case ast.KindArrayLiteral:
		l, _ := c.nodes.List(parent)
		for i, item := range l.Items {
			if item == node {
				return c.contextualElementType(c.contextualType(parent), i)
			}
		}
	}
	return types.NoTypeID
}

// returnContextOf is the type return expressions of fn are checked against:
// the annotation, or the return type of the contextual signature.
func (c *Checker) returnContextOf(fn ast.NodeID) types.TypeID {
	fd, _ := c.nodes.Func(fn)
	switch {
	case c.kind(fd.Type) == ast.KindTypePredicate:
		return c.b.Boolean
	case fd.Type.IsValid():
		return c.typeFromTypeNode(fd.Type)
	}
	return c.contextualReturnTypeOf(fn)
}

// contextualReturnTypeOf returns the return type of the contextual
// signature of a function expression, or NoTypeID.
func (c *Checker) contextualReturnTypeOf(fn ast.NodeID) types.TypeID {
	sig := c.contextualSignature(fn)
	if !sig.IsValid() {
		return types.NoTypeID
	}
	return c.returnTypeOf(sig)
}

func (c *Checker) containingFunction(node ast.NodeID) ast.NodeID {
	return c.nodes.Ancestor(node, ast.Kind.IsFunctionScope)
}

// contextualPropertyType is the type of property name in the contextual
// type of an object literal, across union constituents.
func (c *Checker) contextualPropertyType(contextual types.TypeID, name string) types.TypeID {
	if contextual == types.NoTypeID || name == "" {
		return types.NoTypeID
	}
	var out []types.TypeID
	for _, m := range c.types.Constituents(contextual) {
		if !c.isObjectOrGeneric(m) {
			continue
		}
		if p := c.propertyOf(m, name); p != nil {
			out = append(out, c.typeOfProperty(p))
			continue
		}
		st := c.resolveStructured(c.apparentType(m))
		if isNumericName(name) {
			if ix, ok := st.index(c.b.Number); ok {
				out = append(out, ix.Type)
				continue
			}
		}
		if ix, ok := st.index(c.b.String); ok {
			out = append(out, ix.Type)
		}
	}
	if len(out) == 0 {
		return types.NoTypeID
	}
	return c.types.Union(out)
}

func (c *Checker) isObjectOrGeneric(t types.TypeID) bool {
	k := c.types.Kind(t)
	return k.IsObjectLike() || k.IsGeneric() || k == types.KindIntersection
}

// contextualElementType is the expected type of element i of an array
// literal.
func (c *Checker) contextualElementType(contextual types.TypeID, i int) types.TypeID {
	if contextual == types.NoTypeID {
		return types.NoTypeID
	}
	var out []types.TypeID
	for _, m := range c.types.Constituents(contextual) {
		switch c.types.Kind(m) {
		case types.KindArray:
			elem, _ := c.types.ArrayElem(m)
			out = append(out, elem)
		case types.KindTuple:
			if elems := c.types.Members(m); i < len(elems) {
				out = append(out, elems[i])
			}
		}
	}
	if len(out) == 0 {
		return types.NoTypeID
	}
	return c.types.Union(out)
}

// contextualSignature is the single call signature of the contextual type
// of a function expression, arrow, or object literal method.
func (c *Checker) contextualSignature(fn ast.NodeID) types.SignatureID {
	var t types.TypeID
	switch c.kind(fn) {
	case ast.KindFunctionExpression, ast.KindArrowFunction:
		t = c.contextualType(fn)
	case ast.KindMethodDeclaration:
		owner := c.nodes.Parent(fn)
		if c.kind(owner) != ast.KindObjectLiteral {
			return types.NoSignatureID
		}
		t = c.contextualPropertyType(c.contextualType(owner), c.propertyNameText(c.nodes.Name(fn)))
	default:
		return types.NoSignatureID
	}
	if t == types.NoTypeID {
		return types.NoSignatureID
	}
	var found types.SignatureID
	for _, m := range c.types.Constituents(t) {
		k := c.types.Kind(m)
		if k == types.KindUndefined || k == types.KindNull {
			continue
		}
		for _, s := range c.signaturesOf(m, false) {
			if found.IsValid() && !c.isSignatureIdenticalTo(found, s) {
				return types.NoSignatureID
			}
			found = s
		}
	}
	return found
}

// contextualParameterType types an unannotated parameter of a function
// expression from its contextual signature.
func (c *Checker) contextualParameterType(decl ast.NodeID) (types.TypeID, bool) {
	fn := c.nodes.Parent(decl)
	sig := c.types.Signature(c.contextualSignature(fn))
	if sig == nil {
		return types.NoTypeID, false
	}
	fd, _ := c.nodes.Func(fn)
	index := -1
	for i, p := range fd.Params {
		if p == decl {
			index = i
		}
	}
	if index < 0 {
		return types.NoTypeID, false
	}
	if c.nodes.Flags(decl)&ast.FlagRest != 0 {
		if index == sig.ParamCount() && sig.HasRest() {
			return sig.Params[len(sig.Params)-1].Type, true
		}
		var rest []types.TypeID
		for i := index; i < sig.ParamCount(); i++ {
			rest = append(rest, sig.Params[i].Type)
		}
		return c.types.Array(c.types.Union(rest)), true
	}
	return c.paramTypeAt(sig, index)
}

// isContextSensitive reports expressions whose type depends on their
// contextual type: function expressions with unannotated parameters and
// literals containing them.
func (c *Checker) isContextSensitive(node ast.NodeID) bool {
	switch c.kind(node) {
	case ast.KindFunctionExpression, ast.KindArrowFunction, ast.KindMethodDeclaration:
		fd, _ := c.nodes.Func(node)
		if len(fd.TypeParams) > 0 {
			return false
		}
		for _, p := range fd.Params {
			if d, _ := c.nodes.Decl(p); !d.Type.IsValid() {
				return true
			}
		}
		return false
	case ast.KindObjectLiteral:
		l, _ := c.nodes.List(node)
		for _, item := range l.Items {
			switch c.kind(item) {
			case ast.KindPropertyAssignment:
				d, _ := c.nodes.Decl(item)
				if c.isContextSensitive(d.Init) {
					return true
				}
			case ast.KindMethodDeclaration:
				if c.isContextSensitive(item) {
					return true
				}
			}
		}
	case ast.KindArrayLiteral:
		l, _ := c.nodes.List(node)
		for _, item := range l.Items {
			if c.isContextSensitive(item) {
				return true
			}
		}
	case ast.KindParenthesized:
		e, _ := c.nodes.Expr(node)
		return c.isContextSensitive(e.Left)
	case ast.KindConditional:
		e, _ := c.nodes.Expr(node)
		return c.isContextSensitive(e.Then) || c.isContextSensitive(e.Else)
	}
	return false
}

// propertyNameText returns the text of a property name node.
func (c *Checker) propertyNameText(name ast.NodeID) string {
	return c.identText(name)
}

// markReferenced records a use of sym for unused-declaration reporting.
func (c *Checker) markReferenced(sym symbols.SymbolID) {
	if sym.IsValid() {
		c.symLink(sym).referenced = true
	}
}
