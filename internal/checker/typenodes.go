package checker

import (
	"stc/internal/ast"
	"stc/internal/diag"
	"stc/internal/symbols"
	"stc/internal/types"
)

// typeFromTypeNode resolves a type annotation. Results are memoized per node.
func (c *Checker) typeFromTypeNode(node ast.NodeID) types.TypeID {
	if !node.IsValid() {
		return c.b.Any
	}
	l := c.nodeLink(node)
	if l.typState == stateDone {
		return l.typ
	}
	c.tick()
	t := c.computeTypeFromTypeNode(node)
	l.typ, l.typState = t, stateDone
	return t
}

func (c *Checker) computeTypeFromTypeNode(node ast.NodeID) types.TypeID {
	switch k := c.kind(node); k {
	case ast.KindAnyKeyword:
		return c.b.Any
	case ast.KindUnknownKeyword:
		return c.b.Unknown
	case ast.KindNeverKeyword:
		return c.b.Never
	case ast.KindStringKeyword:
		return c.b.String
	case ast.KindNumberKeyword:
		return c.b.Number
	case ast.KindBooleanKeyword:
		return c.b.Boolean
	case ast.KindVoidKeyword:
		return c.b.Void
	case ast.KindUndefinedKeyword:
		return c.b.Undefined
	case ast.KindNullKeyword:
		return c.b.Null
	case ast.KindObjectKeyword:
		return c.b.Object
	case ast.KindThisType:
		return c.thisTypeAt(node)
	case ast.KindTypeReference:
		return c.typeFromTypeReference(node)
	case ast.KindUnionType, ast.KindIntersectionType, ast.KindTupleType:
		ld, _ := c.nodes.List(node)
		items := make([]types.TypeID, len(ld.Items))
		for i, it := range ld.Items {
			items[i] = c.typeFromTypeNode(it)
		}
		switch k {
		case ast.KindUnionType:
			return c.types.Union(items)
		case ast.KindIntersectionType:
			return c.types.Intersection(items)
		}
		return c.types.Tuple(items)
	case ast.KindArrayType:
		e, _ := c.nodes.Expr(node)
		return c.types.Array(c.typeFromTypeNode(e.Left))
	case ast.KindTypeLiteral, ast.KindFunctionType, ast.KindConstructorType:
		return c.types.Lazy(c.declSymbol(node), 0, 0)
	case ast.KindMappedType:
		return c.mappedType(node, 0)
	case ast.KindTypeOperator:
		e, _ := c.nodes.Expr(node)
		return c.indexTypeOf(c.typeFromTypeNode(e.Left))
	case ast.KindIndexedAccessType:
		e, _ := c.nodes.Expr(node)
		return c.indexedAccessType(c.typeFromTypeNode(e.Left), c.typeFromTypeNode(e.Right), node)
	case ast.KindConditionalType:
		return c.conditionalType(node, 0)
	case ast.KindInferType:
		e, _ := c.nodes.Expr(node)
		return c.declaredTypeOfSymbol(c.declSymbol(e.Left))
	case ast.KindTypeQuery:
		e, _ := c.nodes.Expr(node)
		return c.typeOfQueryName(e.Left)
	case ast.KindTypePredicate:
		if c.nodes.Flags(node)&ast.FlagAsserts != 0 {
			return c.b.Void
		}
		return c.b.Boolean
	case ast.KindLiteralType:
		e, _ := c.nodes.Expr(node)
		return c.literalTypeOf(e.Left)
	case ast.KindParenthesizedType:
		e, _ := c.nodes.Expr(node)
		return c.typeFromTypeNode(e.Left)
	}
	return c.b.Error
}

// literalTypeOf maps the operand of a literal type node.
func (c *Checker) literalTypeOf(lit ast.NodeID) types.TypeID {
	switch c.kind(lit) {
	case ast.KindStringLiteral:
		d, _ := c.nodes.Literal(lit)
		return c.types.StringLiteral(d.Text)
	case ast.KindNumericLiteral:
		d, _ := c.nodes.Literal(lit)
		return c.types.NumberLiteral(d.Value)
	case ast.KindTrueKeyword:
		return c.b.True
	case ast.KindFalseKeyword:
		return c.b.False
	case ast.KindNullKeyword:
		return c.b.Null
	case ast.KindPrefixUnary:
		e, _ := c.nodes.Expr(lit)
		if d, ok := c.nodes.Literal(e.Left); ok && e.Op == ast.OpMinus && c.kind(e.Left) == ast.KindNumericLiteral {
			return c.types.NumberLiteral(-d.Value)
		}
	}
	return c.b.Error
}

// thisTypeAt returns the declared type of the class or interface enclosing node.
func (c *Checker) thisTypeAt(node ast.NodeID) types.TypeID {
	owner := c.nodes.Ancestor(node, func(k ast.Kind) bool {
		return k.IsClassLike() || k == ast.KindInterfaceDeclaration
	})
	if !owner.IsValid() {
		c.error(node, diag.CheckCannotFindName, "A 'this' type is available only in a non-static member of a class or interface.")
		return c.b.Error
	}
	return c.declaredTypeOfSymbol(c.declSymbol(owner))
}

// typeOfQueryName resolves the operand of `typeof x.y`.
func (c *Checker) typeOfQueryName(node ast.NodeID) types.TypeID {
	switch c.kind(node) {
	case ast.KindIdentifier:
		sym := c.resolveName(node, c.identText(node), symbols.Value, true)
		if !sym.IsValid() {
			return c.b.Error
		}
		c.markReferenced(sym)
		return c.typeOfSymbol(sym)
	case ast.KindThisKeyword:
		return c.checkThis(node)
	case ast.KindQualifiedName, ast.KindPropertyAccess:
		e, _ := c.nodes.Expr(node)
		left := c.typeOfQueryName(e.Left)
		if c.isAnyLike(left) {
			return left
		}
		name := c.identText(e.Right)
		p := c.propertyOf(left, name)
		if p == nil {
			c.error(e.Right, diag.CheckPropertyMissing, "Property '%s' does not exist on type '%s'.", name, c.TypeToString(left))
			return c.b.Error
		}
		return c.typeOfProperty(p)
	}
	return c.b.Error
}

// builtinGenerics are the library types synthesized without declarations.
var builtinGenerics = map[string]int{
	"Array":         1,
	"ReadonlyArray": 1,
	"Record":        2,
}

func (c *Checker) typeFromTypeReference(node ast.NodeID) types.TypeID {
	cd, _ := c.nodes.Call(node)
	if c.kind(cd.Expr) == ast.KindIdentifier {
		name := c.identText(cd.Expr)
		if arity, ok := builtinGenerics[name]; ok && !c.lookupScopes(cd.Expr, c.strings.Intern(name), symbols.Type).IsValid() {
			return c.builtinReference(node, name, arity, cd.TypeArgs)
		}
	}
	sym := c.resolveEntityName(cd.Expr, symbols.Type, true)
	if !sym.IsValid() {
		return c.b.Error
	}
	sym = c.resolveAliasOrSelf(sym)
	c.markReferenced(sym)
	flags := c.syms.Flags(sym)
	args := make([]types.TypeID, len(cd.TypeArgs))
	for i, a := range cd.TypeArgs {
		args[i] = c.typeFromTypeNode(a)
	}
	switch {
	case flags&(symbols.Class|symbols.Interface) != 0:
		declared := c.declaredTypeOfSymbol(sym)
		local := c.localTypeParams(sym)
		filled, ok := c.fillTypeArguments(node, sym, local, args)
		if !ok {
			return c.b.Error
		}
		if len(local) == 0 {
			return declared
		}
		info, _ := c.types.InterfaceInfo(declared)
		outer := info.TypeParams[:len(info.TypeParams)-info.Local]
		full := make([]types.TypeID, 0, len(info.TypeParams))
		full = append(full, outer...)
		full = append(full, filled...)
		return c.types.Reference(declared, full)
	case flags&symbols.TypeAlias != 0:
		local := c.localTypeParams(sym)
		filled, ok := c.fillTypeArguments(node, sym, local, args)
		if !ok {
			return c.b.Error
		}
		if len(local) == 0 {
			return c.declaredTypeOfSymbol(sym)
		}
		return c.aliasInstantiation(sym, filled)
	case flags&(symbols.Enum|symbols.EnumMember|symbols.TypeParameter) != 0:
		if len(args) > 0 {
			c.error(node, diag.CheckNotGeneric, "Type '%s' is not generic.", c.symbolName(sym))
		}
		return c.declaredTypeOfSymbol(sym)
	}
	return c.b.Error
}

// fillTypeArguments checks the argument count against params and appends
// defaults for omitted trailing arguments.
func (c *Checker) fillTypeArguments(node ast.NodeID, sym symbols.SymbolID, params, args []types.TypeID) ([]types.TypeID, bool) {
	if len(params) == 0 {
		if len(args) > 0 {
			c.error(node, diag.CheckNotGeneric, "Type '%s' is not generic.", c.symbolName(sym))
			return nil, false
		}
		return nil, true
	}
	minArgs := 0
	for i, p := range params {
		if c.defaultOf(p) == types.NoTypeID {
			minArgs = i + 1
		}
	}
	if len(args) < minArgs || len(args) > len(params) {
		if minArgs == len(params) {
			c.error(node, diag.CheckWrongTypeArgCount, "Generic type '%s' requires %d type argument(s).", c.symbolName(sym), len(params))
		} else {
			c.error(node, diag.CheckWrongTypeArgCount, "Generic type '%s' requires between %d and %d type arguments.", c.symbolName(sym), minArgs, len(params))
		}
		return nil, false
	}
	out := make([]types.TypeID, len(params))
	copy(out, args)
	for i := len(args); i < len(params); i++ {
		m := c.newMapper(params[:i], out[:i])
		out[i] = c.instantiate(c.defaultOf(params[i]), m)
	}
	return out, true
}

func (c *Checker) builtinReference(node ast.NodeID, name string, arity int, argNodes []ast.NodeID) types.TypeID {
	if len(argNodes) != arity {
		c.error(node, diag.CheckWrongTypeArgCount, "Generic type '%s' requires %d type argument(s).", name, arity)
		return c.b.Error
	}
	args := make([]types.TypeID, len(argNodes))
	for i, a := range argNodes {
		args[i] = c.typeFromTypeNode(a)
	}
	switch name {
	case "Array", "ReadonlyArray":
		return c.types.Array(args[0])
	case "Record":
		return c.recordType(args[0], args[1])
	}
	return c.b.Error
}

// recordType builds Record<K, V>. A generic K yields a string index.
func (c *Checker) recordType(keys, value types.TypeID) types.TypeID {
	shape := &types.Shape{}
	for _, k := range c.types.Constituents(keys) {
		if name, ok := c.propertyNameOfType(k); ok {
			shape.Props = append(shape.Props, types.Prop{Name: name, Type: value})
			continue
		}
		key := c.b.String
		if c.isNumberLike(k) {
			key = c.b.Number
		}
		if _, dup := shape.Index(key); !dup {
			shape.Indexes = append(shape.Indexes, types.IndexInfo{Key: key, Type: value})
		}
	}
	return c.types.Object(shape, 0, symbols.NoSymbolID)
}
