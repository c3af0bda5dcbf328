package checker

import (
	"stc/internal/ast"
	"stc/internal/symbols"
	"stc/internal/types"
)

// SignatureKind selects call or construct signatures.
type SignatureKind uint8

const (
	SignatureCall SignatureKind = iota
	SignatureConstruct
)

// Property is one resolved member of an object-like type.
type Property struct {
	Name   string
	Type   types.TypeID
	Flags  types.PropFlags
	Symbol symbols.SymbolID // NoSymbolID for synthesized members
}

// NamedType pairs a top-level declaration with its printed type.
type NamedType struct {
	Name   string
	Symbol symbols.SymbolID
	Type   types.TypeID
	Text   string
}

// TypeOfSymbol returns the type of a value symbol.
func (c *Checker) TypeOfSymbol(sym symbols.SymbolID) types.TypeID {
	return c.typeOfSymbol(c.resolveAliasOrSelf(sym))
}

// DeclaredTypeOfSymbol returns the type a type symbol denotes.
func (c *Checker) DeclaredTypeOfSymbol(sym symbols.SymbolID) types.TypeID {
	return c.declaredTypeOfSymbol(c.resolveAliasOrSelf(sym))
}

func (c *Checker) SignaturesOfType(t types.TypeID, kind SignatureKind) []types.SignatureID {
	return c.signaturesOf(c.apparentType(t), kind == SignatureConstruct)
}

// PropertiesOfType lists the members of the apparent type of t in
// declaration order.
func (c *Checker) PropertiesOfType(t types.TypeID) []Property {
	st := c.resolveStructured(c.apparentType(t))
	out := make([]Property, 0, len(st.props))
	for _, p := range st.props {
		out = append(out, Property{Name: p.name, Type: c.typeOfProperty(p), Flags: p.flags, Symbol: p.sym})
	}
	return out
}

// PropertyOfType returns member name of t.
func (c *Checker) PropertyOfType(t types.TypeID, name string) (Property, bool) {
	p := c.propertyOf(t, name)
	if p == nil {
		return Property{}, false
	}
	return Property{Name: p.name, Type: c.typeOfProperty(p), Flags: p.flags, Symbol: p.sym}, true
}

func (c *Checker) IsTypeAssignableTo(source, target types.TypeID) bool {
	return c.isTypeAssignableTo(source, target)
}

// IsRelatedTo compares source to target under rel. TernaryMaybe is only
// returned for comparisons that depend on an assumption still on the
// relation stack, which never happens for a top-level query.
func (c *Checker) IsRelatedTo(source, target types.TypeID, rel Relation) Ternary {
	if source == target {
		return TernaryTrue
	}
	if rel != RelationIdentity {
		if ok, known := c.simpleRelated(c.types.Regular(source), c.types.Regular(target), rel); known {
			if ok {
				return TernaryTrue
			}
			return TernaryFalse
		}
	}
	return c.newRelater(rel, false).run(source, target)
}

// CheckExpression returns the type of an expression node in its context.
func (c *Checker) CheckExpression(node ast.NodeID) types.TypeID {
	return c.checkExpression(node)
}

// TypeAtLocation returns the type of a type node, a declaration (or its
// name) or an expression.
func (c *Checker) TypeAtLocation(node ast.NodeID) types.TypeID {
	k := c.kind(node)
	switch {
	case k == ast.KindUnknown:
		return c.b.Error
	case k.IsTypeNode():
		return c.typeFromTypeNode(node)
	}
	decl := node
	if parent := c.nodes.Parent(node); parent.IsValid() && c.nodes.Name(parent) == node {
		decl = parent
	}
	if decl != node || c.isDeclaration(node) {
		sym := c.declSymbol(decl)
		if !sym.IsValid() {
			return c.b.Error
		}
		if c.syms.Flags(sym)&symbols.Value != 0 {
			return c.typeOfSymbol(sym)
		}
		return c.declaredTypeOfSymbol(sym)
	}
	if k.IsStatement() {
		return c.b.Error
	}
	return c.checkExpression(node)
}

func (c *Checker) isDeclaration(node ast.NodeID) bool {
	switch c.kind(node) {
	case ast.KindVariableDeclaration, ast.KindParameter, ast.KindPropertyDeclaration,
		ast.KindPropertySignature, ast.KindFunctionDeclaration, ast.KindMethodDeclaration,
		ast.KindClassDeclaration, ast.KindInterfaceDeclaration, ast.KindTypeAliasDeclaration,
		ast.KindEnumDeclaration, ast.KindEnumMember, ast.KindModuleDeclaration, ast.KindTypeParameter:
		return true
	}
	return false
}

// SymbolAtLocation returns the symbol an identifier refers to or declares.
func (c *Checker) SymbolAtLocation(node ast.NodeID) symbols.SymbolID {
	parent := c.nodes.Parent(node)
	if parent.IsValid() && c.nodes.Name(parent) == node {
		if sym := c.declSymbol(parent); sym.IsValid() {
			return sym
		}
	}
	if c.kind(parent) == ast.KindPropertyAccess {
		if e, _ := c.nodes.Expr(parent); e.Right == node {
			obj := c.checkExpression(e.Left)
			if p := c.propertyOf(c.nonNullable(obj), c.identText(node)); p != nil {
				return p.sym
			}
			return symbols.NoSymbolID
		}
	}
	if c.kind(node) != ast.KindIdentifier {
		return c.declSymbol(node)
	}
	if c.kind(parent) == ast.KindTypeReference {
		return c.resolveName(node, c.identText(node), symbols.Type|symbols.Namespace, false)
	}
	return c.symbolOfIdentifier(node)
}

// ContextualType returns the type expected at node, or NoTypeID.
func (c *Checker) ContextualType(node ast.NodeID) types.TypeID {
	return c.contextualType(node)
}

// FlowTypeAtNode narrows declared for the reference at node through the
// control flow recorded before it.
func (c *Checker) FlowTypeAtNode(reference ast.NodeID, declared types.TypeID) types.TypeID {
	flow, ok := c.sess.FlowOf[reference]
	if !ok {
		return declared
	}
	return c.flowTypeOfReference(reference, declared, declared, flow)
}

// InferTypeArguments infers typeParams from argument types flowing into
// parameter types, pairwise.
func (c *Checker) InferTypeArguments(typeParams, paramTypes, argTypes []types.TypeID) []types.TypeID {
	ictx := c.newInferenceContext(typeParams, 0)
	for i := range min(len(paramTypes), len(argTypes)) {
		c.inferTypes(ictx, argTypes[i], paramTypes[i], priorityDirect)
	}
	return c.inferredTypes(ictx)
}

// Instantiate substitutes args for params in t.
func (c *Checker) Instantiate(t types.TypeID, params, args []types.TypeID) types.TypeID {
	return c.instantiate(t, c.newMapper(params, args))
}

// WidenType widens literal types to their primitives, then erases object
// literal freshness the way a mutable binding does.
func (c *Checker) WidenType(t types.TypeID) types.TypeID {
	return c.widenType(c.widenLiteral(t))
}

// DeclarationTypes returns the top-level declarations of file with their
// types: value types for values, declared types otherwise.
func (c *Checker) DeclarationTypes(file ast.NodeID) []NamedType {
	res, ok := c.sess.Results[file]
	if !ok {
		return nil
	}
	var out []NamedType
	for _, local := range res.Locals.Symbols() {
		sym := c.resolveAliasOrSelf(local)
		if !sym.IsValid() {
			continue
		}
		var t types.TypeID
		if c.syms.Flags(sym)&symbols.Value != 0 {
			t = c.typeOfSymbol(sym)
		} else {
			t = c.declaredTypeOfSymbol(sym)
		}
		out = append(out, NamedType{Name: c.symbolName(local), Symbol: sym, Type: t, Text: c.TypeToString(t)})
	}
	return out
}

// --- type constructors ---

func (c *Checker) UnionType(ts []types.TypeID) types.TypeID        { return c.types.Union(ts) }
func (c *Checker) IntersectionType(ts []types.TypeID) types.TypeID { return c.types.Intersection(ts) }
func (c *Checker) ArrayType(elem types.TypeID) types.TypeID        { return c.types.Array(elem) }
func (c *Checker) TupleType(elems []types.TypeID) types.TypeID     { return c.types.Tuple(elems) }
func (c *Checker) IndexType(t types.TypeID) types.TypeID           { return c.types.Index(t) }

func (c *Checker) IndexedAccessType(object, index types.TypeID) types.TypeID {
	return c.types.IndexedAccess(object, index)
}

func (c *Checker) CreateObjectType(props []types.Prop, calls, constructs []types.SignatureID, indexes []types.IndexInfo) types.TypeID {
	return c.types.CreateObjectType(props, calls, constructs, indexes)
}

// LiteralType returns the regular unit type of a string, float64 or bool
// value, or NoTypeID for other values.
func (c *Checker) LiteralType(v any) types.TypeID {
	switch v := v.(type) {
	case string:
		return c.types.StringLiteral(v)
	case float64:
		return c.types.NumberLiteral(v)
	case int:
		return c.types.NumberLiteral(float64(v))
	case bool:
		return c.types.BooleanLiteral(v)
	}
	return types.NoTypeID
}
