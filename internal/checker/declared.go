package checker

import (
	"encoding/binary"
	"math"

	"stc/internal/ast"
	"stc/internal/diag"
	"stc/internal/symbols"
	"stc/internal/types"
)

// typeOfSymbol returns the value type of sym: what an identifier bound to
// it evaluates to before narrowing.
func (c *Checker) typeOfSymbol(sym symbols.SymbolID) types.TypeID {
	s := c.syms.Get(sym)
	if s == nil {
		return c.b.Error
	}
	l := c.symLink(sym)
	if l.typState == stateDone {
		return l.typ
	}
	flags := s.Flags
	var t types.TypeID
	switch {
	case flags&symbols.Alias != 0:
		target := c.resolveAlias(sym)
		if !target.IsValid() || c.syms.Flags(target)&symbols.Value == 0 {
			t = c.b.Error
		} else {
			t = c.typeOfSymbol(target)
		}
	case flags&symbols.Class != 0:
		t = c.types.Lazy(sym, 0, types.FlagClass)
	case flags&(symbols.Function|symbols.Method) != 0,
		flags&(symbols.Enum|symbols.ValueModule) != 0:
		t = c.types.Lazy(sym, 0, 0)
	case flags&symbols.EnumMember != 0:
		t = c.declaredTypeOfSymbol(sym)
	case flags&(symbols.Variable|symbols.Property) != 0:
		if c.kind(s.FirstDecl()).IsFunctionLike() {
			// метод объектного литерала
			t = c.types.Lazy(sym, 0, 0)
			break
		}
		return c.typeOfVariable(sym, s)
	default:
		t = c.b.Error
	}
	l.typ, l.typState = t, stateDone
	return t
}

func (c *Checker) typeOfVariable(sym symbols.SymbolID, s *symbols.Symbol) types.TypeID {
	l := c.symLink(sym)
	if !c.pushResolution(resolveSymbolType, uint32(sym)) {
		return c.b.Any
	}
	c.markResolving(&l.typState)
	decl := s.ValueDecl
	if !decl.IsValid() {
		decl = s.FirstDecl()
	}
	t := c.computeTypeOfVariable(sym, decl)
	if !c.popResolution() {
		if d, ok := c.nodes.Decl(decl); ok && d.Type.IsValid() {
			c.error(c.nodes.Name(decl), diag.CheckCircularAnnotation,
				"'%s' is referenced directly or indirectly in its own type annotation.", c.symbolName(sym))
			t = c.b.Error
		} else {
			if c.opts.NoImplicitAny {
				c.error(c.nodes.Name(decl), diag.CheckCircularInitializer,
					"'%s' implicitly has type 'any' because it does not have a type annotation and is referenced directly or indirectly in its own initializer.", c.symbolName(sym))
			}
			t = c.b.Any
		}
	}
	l.typ, l.typState = t, stateDone
	return t
}

func (c *Checker) computeTypeOfVariable(sym symbols.SymbolID, decl ast.NodeID) types.TypeID {
	d, ok := c.nodes.Decl(decl)
	if !ok {
		return c.b.Any
	}
	flags := c.nodes.Flags(decl)
	switch c.kind(decl) {
	case ast.KindParameter:
		return c.typeOfParameter(sym, decl, d, flags)
	case ast.KindVariableDeclaration:
		parent := c.nodes.Parent(decl)
		if c.kind(parent) == ast.KindCatchClause {
			if d.Type.IsValid() {
				return c.typeFromTypeNode(d.Type)
			}
			return c.b.Any
		}
		if d.Type.IsValid() {
			return c.typeFromTypeNode(d.Type)
		}
		if loop := c.nodes.Parent(parent); c.kind(loop) == ast.KindForOf {
			ld, _ := c.nodes.Loop(loop)
			return c.iteratedType(c.checkExpression(ld.Cond), ld.Cond)
		}
		if !d.Init.IsValid() {
			return c.b.Any
		}
		init := c.checkExpressionWithContext(d.Init, types.NoTypeID)
		return c.widenForDeclaration(init, c.nodes.Flags(parent)&ast.FlagConst != 0)
	case ast.KindPropertyDeclaration:
		if d.Type.IsValid() {
			return c.addOptionalityIf(c.typeFromTypeNode(d.Type), flags&ast.FlagOptional != 0)
		}
		if d.Init.IsValid() {
			return c.widenForDeclaration(c.checkExpression(d.Init), flags&ast.FlagReadonly != 0)
		}
		return c.b.Any
	case ast.KindPropertySignature:
		if d.Type.IsValid() {
			return c.typeFromTypeNode(d.Type)
		}
		return c.b.Any
	case ast.KindPropertyAssignment:
		return c.checkExpression(d.Init)
	case ast.KindShorthandPropertyAssignment:
		return c.checkExpression(d.Name)
	}
	return c.b.Any
}

func (c *Checker) typeOfParameter(sym symbols.SymbolID, decl ast.NodeID, d *ast.DeclData, flags ast.NodeFlags) types.TypeID {
	optional := flags&ast.FlagOptional != 0
	if d.Type.IsValid() {
		return c.addOptionalityIf(c.typeFromTypeNode(d.Type), optional)
	}
	if t, ok := c.contextualParameterType(decl); ok {
		c.symLink(sym).contextTyped = true
		return c.addOptionalityIf(t, optional)
	}
	if d.Init.IsValid() {
		return c.widenForDeclaration(c.checkExpression(d.Init), false)
	}
	if flags&ast.FlagRest != 0 {
		return c.types.Array(c.b.Any)
	}
	if c.opts.NoImplicitAny {
		c.error(d.Name, diag.CheckImplicitAnyParam, "Parameter '%s' implicitly has an 'any' type.", c.symbolName(sym))
	}
	return c.b.Any
}

func (c *Checker) addOptionalityIf(t types.TypeID, optional bool) types.TypeID {
	if !optional {
		return t
	}
	return c.addOptionality(t)
}

// addOptionality adds undefined to t under strict null checks.
func (c *Checker) addOptionality(t types.TypeID) types.TypeID {
	if !c.opts.StrictNullChecks {
		return t
	}
	return c.types.UnionOf(t, c.b.Undefined)
}

// declaredTypeOfSymbol returns the type a type symbol denotes.
func (c *Checker) declaredTypeOfSymbol(sym symbols.SymbolID) types.TypeID {
	s := c.syms.Get(sym)
	if s == nil {
		return c.b.Error
	}
	l := c.symLink(sym)
	if l.declaredState == stateDone {
		return l.declared
	}
	flags := s.Flags
	switch {
	case flags&(symbols.Class|symbols.Interface) != 0:
		return c.interfaceType(sym, s)
	case flags&symbols.TypeAlias != 0:
		return c.aliasType(sym, s)
	case flags&symbols.Enum != 0:
		return c.enumType(sym, s)
	case flags&symbols.EnumMember != 0:
		return c.enumMemberType(sym, s)
	case flags&symbols.TypeParameter != 0:
		t := c.types.TypeParameter(sym, c.typeParamIndex(s.FirstDecl()))
		l.declared, l.declaredState = t, stateDone
		return t
	case flags&symbols.Alias != 0:
		t := c.b.Error
		if target := c.resolveAlias(sym); target.IsValid() && c.syms.Flags(target)&symbols.Type != 0 {
			t = c.declaredTypeOfSymbol(target)
		}
		l.declared, l.declaredState = t, stateDone
		return t
	}
	return c.b.Error
}

func (c *Checker) typeParamIndex(decl ast.NodeID) int {
	parent := c.nodes.Parent(decl)
	var list []ast.NodeID
	if fd, ok := c.nodes.Func(parent); ok {
		list = fd.TypeParams
	} else if sd, ok := c.nodes.Shape(parent); ok {
		list = sd.TypeParams
	}
	for i, d := range list {
		if d == decl {
			return i
		}
	}
	return 0
}

// localTypeParams returns the type parameters a class, interface or alias
// declares itself.
func (c *Checker) localTypeParams(sym symbols.SymbolID) []types.TypeID {
	l := c.symLink(sym)
	if l.localParams != nil {
		return l.localParams
	}
	var out []types.TypeID
	for _, d := range c.syms.Get(sym).Decls {
		sd, ok := c.nodes.Shape(d)
		if !ok || len(sd.TypeParams) == 0 {
			continue
		}
		for _, tp := range sd.TypeParams {
			out = append(out, c.declaredTypeOfSymbol(c.declSymbol(tp)))
		}
		break
	}
	if out == nil {
		out = []types.TypeID{}
	}
	l.localParams = out
	return out
}

func (c *Checker) interfaceType(sym symbols.SymbolID, s *symbols.Symbol) types.TypeID {
	var flags types.Flags
	if s.Flags&symbols.Class != 0 {
		flags = types.FlagClass
	}
	t := c.types.Interface(sym, flags)
	l := c.symLink(sym)
	l.declared, l.declaredState = t, stateDone
	outer := c.outerTypeParams(sym)
	local := c.localTypeParams(sym)
	params := make([]types.TypeID, 0, len(outer)+len(local))
	params = append(params, outer...)
	params = append(params, local...)
	// InterfaceInfo указывает в срез интернера: брать только после аллокаций
	info, _ := c.types.InterfaceInfo(t)
	info.TypeParams = params
	info.Local = len(local)
	return t
}

func (c *Checker) aliasType(sym symbols.SymbolID, s *symbols.Symbol) types.TypeID {
	l := c.symLink(sym)
	if !c.pushResolution(resolveDeclaredType, uint32(sym)) {
		return c.b.Error
	}
	c.markResolving(&l.declaredState)
	decl := s.FirstDecl()
	sd, _ := c.nodes.Shape(decl)
	body := c.typeFromTypeNode(sd.Type)
	if !c.popResolution() {
		c.error(sd.Name, diag.CheckCircularAlias, "Type alias '%s' circularly references itself.", c.symbolName(sym))
		body = c.b.Error
	}
	if aliasable(c.types.Kind(body)) {
		c.types.SetAlias(body, sym, c.localTypeParams(sym))
	}
	l.declared, l.declaredState = body, stateDone
	return body
}

func aliasable(k types.Kind) bool {
	switch k {
	case types.KindUnion, types.KindIntersection, types.KindObject, types.KindConditional,
		types.KindMapped, types.KindIndexedAccess, types.KindTuple:
		return true
	}
	return false
}

// aliasInstantiation applies type arguments to a generic alias.
func (c *Checker) aliasInstantiation(sym symbols.SymbolID, args []types.TypeID) types.TypeID {
	body := c.declaredTypeOfSymbol(sym)
	params := c.localTypeParams(sym)
	if len(params) == 0 {
		return body
	}
	l := c.symLink(sym)
	buf := make([]byte, 0, 4*len(args))
	for _, a := range args {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(a))
	}
	key := string(buf)
	if t, ok := l.instantiations[key]; ok {
		return t
	}
	t := c.instantiate(body, c.newMapper(params, args))
	if aliasable(c.types.Kind(t)) {
		c.types.SetAlias(t, sym, args)
	}
	if l.instantiations == nil {
		l.instantiations = make(map[string]types.TypeID)
	}
	l.instantiations[key] = t
	return t
}

// --- enums ---

func (c *Checker) enumType(sym symbols.SymbolID, s *symbols.Symbol) types.TypeID {
	l := c.symLink(sym)
	c.markResolving(&l.declaredState)
	c.computeEnumValues(sym, s)
	var members []types.TypeID
	for _, d := range s.Decls {
		sd, ok := c.nodes.Shape(d)
		if !ok {
			continue
		}
		for _, m := range sd.Members {
			members = append(members, c.declaredTypeOfSymbol(c.declSymbol(m)))
		}
	}
	t := c.types.Union(members)
	if len(members) == 0 {
		t = c.b.Number
	}
	if c.types.Kind(t) == types.KindUnion {
		c.types.SetAlias(t, sym, nil)
	}
	l.declared, l.declaredState = t, stateDone
	return t
}

func (c *Checker) enumMemberType(sym symbols.SymbolID, s *symbols.Symbol) types.TypeID {
	l := c.symLink(sym)
	enum := c.declSymbol(c.nodes.Parent(s.FirstDecl()))
	if es := c.syms.Get(enum); es != nil {
		c.computeEnumValues(enum, es)
	}
	var t types.TypeID
	switch {
	case l.enumComputed:
		t = c.b.Number
	default:
		t = c.types.EnumLiteral(sym, l.enumValue, l.enumString)
	}
	l.declared, l.declaredState = t, stateDone
	return t
}

// computeEnumValues assigns constant values to the members of an enum in
// declaration order. Members without an initializer continue the previous
// numeric value.
func (c *Checker) computeEnumValues(enum symbols.SymbolID, s *symbols.Symbol) {
	el := c.symLink(enum)
	if el.enumDone {
		return
	}
	el.enumDone = true
	c.onAbort(func() { el.enumDone = false })
	for _, d := range s.Decls {
		sd, ok := c.nodes.Shape(d)
		if !ok {
			continue
		}
		next, nextOK := 0.0, true
		for _, m := range sd.Members {
			ml := c.symLink(c.declSymbol(m))
			md, _ := c.nodes.Decl(m)
			if !md.Init.IsValid() {
				if !nextOK {
					ml.enumComputed = true
					continue
				}
				ml.enumValue = next
				next++
				continue
			}
			v, str, ok := c.evaluateConstant(md.Init, enum)
			switch {
			case !ok:
				ml.enumComputed = true
				nextOK = false
			case str != nil:
				ml.enumString = str
				nextOK = false
			default:
				ml.enumValue = v
				next, nextOK = v+1, true
			}
		}
	}
}

// evaluateConstant folds an enum initializer.
func (c *Checker) evaluateConstant(node ast.NodeID, enum symbols.SymbolID) (float64, *string, bool) {
	switch c.kind(node) {
	case ast.KindNumericLiteral:
		lit, _ := c.nodes.Literal(node)
		return lit.Value, nil, true
	case ast.KindStringLiteral:
		lit, _ := c.nodes.Literal(node)
		s := lit.Text
		return 0, &s, true
	case ast.KindParenthesized:
		e, _ := c.nodes.Expr(node)
		return c.evaluateConstant(e.Left, enum)
	case ast.KindPrefixUnary:
		e, _ := c.nodes.Expr(node)
		v, str, ok := c.evaluateConstant(e.Left, enum)
		if !ok || str != nil {
			return 0, nil, false
		}
		switch e.Op {
		case ast.OpMinus:
			return -v, nil, true
		case ast.OpPlus:
			return v, nil, true
		}
	case ast.KindBinary:
		e, _ := c.nodes.Expr(node)
		l, ls, lok := c.evaluateConstant(e.Left, enum)
		r, rs, rok := c.evaluateConstant(e.Right, enum)
		if !lok || !rok {
			return 0, nil, false
		}
		if ls != nil || rs != nil {
			if e.Op != ast.OpPlus || ls == nil || rs == nil {
				return 0, nil, false
			}
			s := *ls + *rs
			return 0, &s, true
		}
		switch e.Op {
		case ast.OpPlus:
			return l + r, nil, true
		case ast.OpMinus:
			return l - r, nil, true
		case ast.OpStar:
			return l * r, nil, true
		case ast.OpSlash:
			return l / r, nil, true
		case ast.OpPercent:
			return math.Mod(l, r), nil, true
		}
	case ast.KindIdentifier, ast.KindPropertyAccess:
		var member symbols.SymbolID
		if c.kind(node) == ast.KindIdentifier {
			id := c.strings.Intern(c.identText(node))
			member, _ = c.exportsOf(enum).Get(id)
		} else {
			member = c.resolveEntityName(node, symbols.EnumMember, false)
		}
		if !member.IsValid() || c.syms.Flags(member)&symbols.EnumMember == 0 {
			return 0, nil, false
		}
		t := c.declaredTypeOfSymbol(member)
		lit, ok := c.types.Literal(t)
		if !ok {
			return 0, nil, false
		}
		if c.types.Kind(t) == types.KindStringLiteral {
			s := lit.Str
			return 0, &s, true
		}
		return lit.Num, nil, true
	}
	return 0, nil, false
}

// --- type parameters ---

// constraintOf returns the constraint of a type parameter, or NoTypeID.
func (c *Checker) constraintOf(tp types.TypeID) types.TypeID {
	sym := c.types.Symbol(tp)
	if !sym.IsValid() {
		return types.NoTypeID
	}
	l := c.symLink(sym)
	if l.constraintState == stateDone {
		return l.constraint
	}
	decl := c.syms.Get(sym).FirstDecl()
	tpd, ok := c.nodes.TypeParam(decl)
	if !ok || !tpd.Constraint.IsValid() {
		l.constraintState = stateDone
		return types.NoTypeID
	}
	c.markResolving(&l.constraintState)
	if !c.pushResolution(resolveConstraint, uint32(sym)) {
		return types.NoTypeID
	}
	t := c.typeFromTypeNode(tpd.Constraint)
	if !c.popResolution() || t == tp {
		c.error(tpd.Constraint, diag.CheckCircularBase, "Type parameter '%s' has a circular constraint.", c.symbolName(sym))
		t = types.NoTypeID
	}
	l.constraint, l.constraintState = t, stateDone
	return t
}

// baseConstraintOf resolves chains of type parameter constraints down to a
// non-generic type; unconstrained parameters yield unknown.
func (c *Checker) baseConstraintOf(t types.TypeID) types.TypeID {
	for range 16 {
		switch c.types.Kind(t) {
		case types.KindTypeParameter:
			next := c.constraintOf(t)
			if next == types.NoTypeID {
				return c.b.Unknown
			}
			t = next
		case types.KindIndex:
			return c.types.UnionOf(c.b.String, c.b.Number)
		case types.KindIndexedAccess:
			info, _ := c.types.AccessInfo(t)
			obj := c.baseConstraintOf(info.Object)
			idx := c.baseConstraintOf(info.Index)
			if c.isGenericObject(obj) || c.isGenericIndex(idx) {
				return c.b.Unknown
			}
			t = c.indexedAccessType(obj, idx, ast.NoNodeID)
		case types.KindConditional:
			info, _ := c.types.DeferredInfo(t)
			e, _ := c.nodes.Expr(info.Decl)
			return c.types.UnionOf(c.instantiate(c.typeFromTypeNode(e.Then), info.Mapper), c.instantiate(c.typeFromTypeNode(e.Else), info.Mapper))
		default:
			return t
		}
	}
	return c.b.Unknown
}

func (c *Checker) defaultOf(tp types.TypeID) types.TypeID {
	sym := c.types.Symbol(tp)
	if !sym.IsValid() {
		return types.NoTypeID
	}
	l := c.symLink(sym)
	if l.defaultState == stateDone {
		return l.deflt
	}
	l.defaultState = stateDone
	tpd, ok := c.nodes.TypeParam(c.syms.Get(sym).FirstDecl())
	if ok && tpd.Default.IsValid() {
		l.deflt = c.typeFromTypeNode(tpd.Default)
	}
	return l.deflt
}

// --- base types ---

// baseTypes returns the instantiated base types of a class or interface.
func (c *Checker) baseTypes(sym symbols.SymbolID) []types.TypeID {
	l := c.symLink(sym)
	if l.basesState == stateDone {
		return l.bases
	}
	c.markResolving(&l.basesState)
	if !c.pushResolution(resolveBaseTypes, uint32(sym)) {
		return nil
	}
	var bases []types.TypeID
	s := c.syms.Get(sym)
	for _, d := range s.Decls {
		sd, ok := c.nodes.Shape(d)
		if !ok {
			continue
		}
		if !c.kind(d).IsClassLike() && c.kind(d) != ast.KindInterfaceDeclaration {
			continue
		}
		for _, ext := range sd.Extends {
			b := c.typeFromTypeNode(ext)
			switch c.types.Kind(b) {
			case types.KindInterface, types.KindReference, types.KindObject, types.KindIntersection:
				bases = append(bases, b)
			case types.KindAny:
			default:
				c.error(ext, diag.CheckIncorrectlyExtends, "An interface can only extend an object type.")
			}
		}
	}
	if !c.popResolution() {
		decl := s.FirstDecl()
		c.error(c.nodes.Name(decl), diag.CheckCircularBase, "Type '%s' recursively references itself as a base type.", c.symbolName(sym))
		bases = nil
	}
	l.bases, l.basesState = bases, stateDone
	return bases
}

// classBase returns the instantiated base class type of a class, if any.
func (c *Checker) classBase(sym symbols.SymbolID) types.TypeID {
	if c.syms.Flags(sym)&symbols.Class == 0 {
		return types.NoTypeID
	}
	for _, b := range c.baseTypes(sym) {
		if c.types.Flags(c.referenceTarget(b))&types.FlagClass != 0 {
			return b
		}
	}
	return types.NoTypeID
}

// referenceTarget strips type arguments from a reference.
func (c *Checker) referenceTarget(t types.TypeID) types.TypeID {
	if info, ok := c.types.ReferenceInfo(t); ok {
		return info.Target
	}
	return t
}
