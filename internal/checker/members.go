package checker

import (
	"slices"
	"strconv"

	"stc/internal/ast"
	"stc/internal/source"
	"stc/internal/symbols"
	"stc/internal/types"
)

// property is one resolved member. Types are computed on first use: from
// the declaring symbol, or from the property it was instantiated from.
type property struct {
	name   string
	flags  types.PropFlags
	sym    symbols.SymbolID
	mapper types.MapperID
	from   *property
	typ    types.TypeID
	done   bool
}

// structured holds the resolved members of an object-like type.
type structured struct {
	props      []*property
	byName     map[string]*property
	calls      []types.SignatureID
	constructs []types.SignatureID
	indexes    []types.IndexInfo
}

var emptyStructured = &structured{byName: map[string]*property{}}

func newStructured() *structured {
	return &structured{byName: make(map[string]*property)}
}

func (s *structured) prop(name string) *property {
	return s.byName[name]
}

// add appends p unless a member with that name exists already.
func (s *structured) add(p *property) {
	if _, dup := s.byName[p.name]; dup {
		return
	}
	s.props = append(s.props, p)
	s.byName[p.name] = p
}

func (s *structured) index(key types.TypeID) (types.IndexInfo, bool) {
	for _, ix := range s.indexes {
		if ix.Key == key {
			return ix, true
		}
	}
	return types.IndexInfo{}, false
}

func (s *structured) addIndex(ix types.IndexInfo) {
	if _, dup := s.index(ix.Key); !dup {
		s.indexes = append(s.indexes, ix)
	}
}

func (c *Checker) typeOfProperty(p *property) types.TypeID {
	if p.done {
		return p.typ
	}
	var t types.TypeID
	switch {
	case p.from != nil:
		t = c.instantiate(c.typeOfProperty(p.from), p.mapper)
	case p.sym.IsValid():
		t = c.instantiate(c.typeOfSymbol(p.sym), p.mapper)
	default:
		t = c.b.Any
	}
	p.typ, p.done = t, true
	return t
}

func resolvedProperty(name string, t types.TypeID, flags types.PropFlags, sym symbols.SymbolID) *property {
	return &property{name: name, typ: t, flags: flags, sym: sym, done: true}
}

func propFlagsOf(flags symbols.SymbolFlags) types.PropFlags {
	var pf types.PropFlags
	if flags&symbols.Optional != 0 {
		pf |= types.PropOptional
	}
	if flags&symbols.Readonly != 0 {
		pf |= types.PropReadonly
	}
	if flags&symbols.Method != 0 {
		pf |= types.PropMethod
	}
	return pf
}

// resolveStructured returns the members of t. A type whose members are
// being resolved reports no members to the inner request.
func (c *Checker) resolveStructured(t types.TypeID) *structured {
	if st, ok := c.members[t]; ok {
		return st
	}
	if c.resolving[t] {
		return emptyStructured
	}
	c.resolving[t] = true
	st := c.computeStructured(t)
	delete(c.resolving, t)
	c.members[t] = st
	return st
}

func (c *Checker) computeStructured(t types.TypeID) *structured {
	tt, ok := c.types.Lookup(t)
	if !ok {
		return emptyStructured
	}
	switch tt.Kind {
	case types.KindObject:
		info, _ := c.types.ObjectInfo(t)
		if info.Shape != nil {
			return c.structuredFromShape(info.Shape)
		}
		return c.structuredOfLazy(tt, info.Mapper)
	case types.KindInterface:
		return c.structuredOfInterface(t, tt.Symbol)
	case types.KindReference:
		info, _ := c.types.ReferenceInfo(t)
		ti, _ := c.types.InterfaceInfo(info.Target)
		return c.instantiateStructured(c.resolveStructured(info.Target), c.newMapper(ti.TypeParams, info.Args))
	case types.KindArray:
		elem, _ := c.types.ArrayElem(t)
		return c.instantiateStructured(c.arrayMembers(), c.newMapper([]types.TypeID{c.arrayElem}, []types.TypeID{elem}))
	case types.KindTuple:
		return c.structuredOfTuple(t)
	case types.KindIntersection:
		return c.structuredOfIntersection(c.types.Members(t))
	case types.KindUnion:
		return c.structuredOfUnion(c.types.Members(t))
	case types.KindTypeParameter, types.KindIndexedAccess, types.KindConditional, types.KindIndex:
		if base := c.apparentType(t); base != t {
			return c.resolveStructured(base)
		}
	case types.KindString, types.KindNumber, types.KindStringLiteral, types.KindNumberLiteral, types.KindBooleanLiteral:
		return c.resolveStructured(c.apparentType(t))
	}
	return emptyStructured
}

func (c *Checker) structuredFromShape(s *types.Shape) *structured {
	st := newStructured()
	for _, p := range s.Props {
		st.add(resolvedProperty(p.Name, p.Type, p.Flags, p.Decl))
	}
	st.calls = s.Calls
	st.constructs = s.Constructs
	st.indexes = s.Indexes
	return st
}

// instantiateStructured maps a resolved member set through m. Property
// types stay lazy.
func (c *Checker) instantiateStructured(src *structured, m types.MapperID) *structured {
	if m == 0 {
		return src
	}
	st := newStructured()
	for _, p := range src.props {
		st.add(&property{name: p.name, flags: p.flags, sym: p.sym, from: p, mapper: m})
	}
	for _, s := range src.calls {
		st.calls = append(st.calls, c.instantiateSignature(s, m))
	}
	for _, s := range src.constructs {
		st.constructs = append(st.constructs, c.instantiateSignature(s, m))
	}
	for _, ix := range src.indexes {
		ix.Type = c.instantiate(ix.Type, m)
		st.indexes = append(st.indexes, ix)
	}
	return st
}

// structuredOfLazy resolves the anonymous type declared by a symbol.
func (c *Checker) structuredOfLazy(tt types.Type, m types.MapperID) *structured {
	sym := tt.Symbol
	s := c.syms.Get(sym)
	if s == nil {
		return emptyStructured
	}
	st := newStructured()
	switch {
	case tt.Flags&types.FlagClass != 0:
		c.addExports(st, s, m)
		for _, sig := range c.classConstructSignatures(sym) {
			st.constructs = append(st.constructs, c.instantiateSignature(sig, m))
		}
		if base := c.classBase(sym); base != types.NoTypeID {
			baseStatic := c.typeOfSymbol(c.types.Symbol(base))
			for _, p := range c.resolveStructured(baseStatic).props {
				st.add(p)
			}
		}
	case s.Flags&symbols.TypeLiteral != 0:
		decl := s.FirstDecl()
		switch c.kind(decl) {
		case ast.KindFunctionType:
			st.calls = append(st.calls, c.instantiateSignature(c.signatureOfDecl(decl), m))
		case ast.KindConstructorType:
			st.constructs = append(st.constructs, c.instantiateSignature(c.signatureOfDecl(decl), m))
		default:
			c.addMembers(st, s.Members, m)
		}
	default:
		if s.Flags&(symbols.Function|symbols.Method|symbols.Property|symbols.Variable) != 0 {
			for _, sig := range c.signaturesOfSymbol(sym) {
				st.calls = append(st.calls, c.instantiateSignature(sig, m))
			}
		}
		if s.Flags&(symbols.Enum|symbols.Module) != 0 {
			c.addExports(st, s, m)
		}
	}
	return st
}

// addMembers adds the members of a type literal, interface or class body.
func (c *Checker) addMembers(st *structured, members *symbols.Table, m types.MapperID) {
	members.Each(func(name source.StringID, id symbols.SymbolID) {
		flags := c.syms.Flags(id)
		switch {
		case flags&(symbols.Property|symbols.Method) != 0:
			st.add(&property{name: c.text(name), flags: propFlagsOf(flags), sym: id, mapper: m})
		case flags&symbols.Signature != 0:
			for _, d := range c.syms.Get(id).Decls {
				switch c.kind(d) {
				case ast.KindCallSignature:
					st.calls = append(st.calls, c.instantiateSignature(c.signatureOfDecl(d), m))
				case ast.KindConstructSignature:
					st.constructs = append(st.constructs, c.instantiateSignature(c.signatureOfDecl(d), m))
				case ast.KindIndexSignature:
					if ix, ok := c.indexInfoOfDecl(d); ok {
						ix.Type = c.instantiate(ix.Type, m)
						st.addIndex(ix)
					}
				}
			}
		}
	})
}

// addExports adds the value exports of a namespace, enum or class.
func (c *Checker) addExports(st *structured, s *symbols.Symbol, m types.MapperID) {
	s.Exports.Each(func(name source.StringID, id symbols.SymbolID) {
		flags := c.syms.Flags(id)
		if !c.hasMeaning(id, symbols.Value) {
			return
		}
		pf := propFlagsOf(flags) &^ types.PropOptional
		if flags&symbols.EnumMember != 0 || flags&symbols.Const != 0 {
			pf |= types.PropReadonly
		}
		st.add(&property{name: c.text(name), flags: pf, sym: id, mapper: m})
	})
}

// indexInfoOfDecl reads `[k: K]: V`.
func (c *Checker) indexInfoOfDecl(decl ast.NodeID) (types.IndexInfo, bool) {
	d, _ := c.nodes.Decl(decl)
	param, _ := c.nodes.Decl(d.Name)
	key := c.typeFromTypeNode(param.Type)
	if key != c.b.String && key != c.b.Number {
		return types.IndexInfo{}, false
	}
	return types.IndexInfo{
		Key:      key,
		Type:     c.typeFromTypeNode(d.Type),
		Readonly: c.nodes.Flags(decl)&ast.FlagReadonly != 0,
	}, true
}

func (c *Checker) structuredOfInterface(t types.TypeID, sym symbols.SymbolID) *structured {
	s := c.syms.Get(sym)
	st := newStructured()
	s.Members.Each(func(name source.StringID, id symbols.SymbolID) {
		flags := c.syms.Flags(id)
		if flags&symbols.Constructor != 0 {
			return
		}
		if flags&(symbols.Property|symbols.Method) != 0 {
			st.add(&property{name: c.text(name), flags: propFlagsOf(flags), sym: id})
		}
	})
	own := symbols.NewTable()
	s.Members.Each(func(name source.StringID, id symbols.SymbolID) {
		if c.syms.Flags(id)&symbols.Signature != 0 {
			own.Set(name, id)
		}
	})
	c.addMembers(st, own, 0)
	for _, base := range c.baseTypes(sym) {
		bs := c.resolveStructured(base)
		for _, p := range bs.props {
			st.add(p)
		}
		if len(st.calls) == 0 {
			st.calls = append(st.calls, bs.calls...)
		}
		if len(st.constructs) == 0 && c.types.Flags(t)&types.FlagClass == 0 {
			st.constructs = append(st.constructs, bs.constructs...)
		}
		for _, ix := range bs.indexes {
			st.addIndex(ix)
		}
	}
	return st
}

func (c *Checker) structuredOfTuple(t types.TypeID) *structured {
	elems := c.types.Members(t)
	st := newStructured()
	for i, e := range elems {
		st.add(resolvedProperty(strconv.Itoa(i), e, 0, symbols.NoSymbolID))
	}
	st.add(resolvedProperty("length", c.types.NumberLiteral(float64(len(elems))), types.PropReadonly, symbols.NoSymbolID))
	arr := c.resolveStructured(c.types.Array(c.types.Union(elems)))
	for _, p := range arr.props {
		st.add(p)
	}
	st.indexes = arr.indexes
	return st
}

func (c *Checker) structuredOfIntersection(members []types.TypeID) *structured {
	st := newStructured()
	parts := make([]*structured, len(members))
	for i, m := range members {
		parts[i] = c.resolveStructured(c.apparentType(m))
	}
	for _, part := range parts {
		for _, p := range part.props {
			if st.byName[p.name] != nil {
				continue
			}
			var ts []types.TypeID
			flags := types.PropOptional
			for _, other := range parts {
				if q := other.prop(p.name); q != nil {
					ts = append(ts, c.typeOfProperty(q))
					flags &= q.flags | ^types.PropOptional
					flags |= q.flags & types.PropReadonly
				}
			}
			st.add(resolvedProperty(p.name, c.types.Intersection(ts), flags, p.sym))
		}
		st.calls = append(st.calls, part.calls...)
		st.constructs = append(st.constructs, part.constructs...)
	}
	for _, part := range parts {
		for _, ix := range part.indexes {
			if have, ok := st.index(ix.Key); ok {
				i := slices.IndexFunc(st.indexes, func(x types.IndexInfo) bool { return x.Key == ix.Key })
				st.indexes[i].Type = c.types.IntersectionOf(have.Type, ix.Type)
				continue
			}
			st.indexes = append(st.indexes, ix)
		}
	}
	return st
}

// structuredOfUnion keeps the properties present in every member.
func (c *Checker) structuredOfUnion(members []types.TypeID) *structured {
	st := newStructured()
	if len(members) == 0 {
		return st
	}
	parts := make([]*structured, len(members))
	for i, m := range members {
		parts[i] = c.resolveStructured(c.apparentType(m))
	}
	for _, p := range parts[0].props {
		ts := make([]types.TypeID, 0, len(parts))
		var flags types.PropFlags
		complete := true
		for _, part := range parts {
			q := part.prop(p.name)
			if q == nil {
				complete = false
				break
			}
			ts = append(ts, c.typeOfProperty(q))
			flags |= q.flags & (types.PropOptional | types.PropReadonly)
		}
		if complete {
			st.add(resolvedProperty(p.name, c.types.Union(ts), flags, p.sym))
		}
	}
	same := true
	for _, part := range parts[1:] {
		if !slices.Equal(part.calls, parts[0].calls) {
			same = false
			break
		}
	}
	if same {
		st.calls = parts[0].calls
	} else if len(parts[0].calls) == 1 {
		st.calls = c.unionCallSignature(parts)
	}
	for _, ix := range parts[0].indexes {
		ts := []types.TypeID{ix.Type}
		complete := true
		for _, part := range parts[1:] {
			other, ok := part.index(ix.Key)
			if !ok {
				complete = false
				break
			}
			ts = append(ts, other.Type)
		}
		if complete {
			st.indexes = append(st.indexes, types.IndexInfo{Key: ix.Key, Type: c.types.Union(ts)})
		}
	}
	return st
}

// unionCallSignature combines single, non-generic call signatures with
// equal arity: parameters intersect, returns unite.
func (c *Checker) unionCallSignature(parts []*structured) []types.SignatureID {
	first := c.types.Signature(parts[0].calls[0])
	params := slices.Clone(first.Params)
	returns := []types.TypeID{c.returnTypeOf(parts[0].calls[0])}
	for _, part := range parts[1:] {
		if len(part.calls) != 1 {
			return nil
		}
		sig := c.types.Signature(part.calls[0])
		if len(sig.TypeParams) > 0 || len(sig.Params) != len(params) || sig.HasRest() != first.HasRest() {
			return nil
		}
		for i := range params {
			params[i].Type = c.types.IntersectionOf(params[i].Type, sig.Params[i].Type)
		}
		returns = append(returns, c.returnTypeOf(part.calls[0]))
	}
	if len(first.TypeParams) > 0 {
		return nil
	}
	return []types.SignatureID{c.types.InternSignature(types.Signature{
		Params:  params,
		Return:  c.types.Union(returns),
		MinArgs: first.MinArgs,
		Flags:   first.Flags &^ types.SigMethod,
	})}
}

// propertyOf looks up a member of t through its apparent type.
func (c *Checker) propertyOf(t types.TypeID, name string) *property {
	return c.resolveStructured(c.apparentType(t)).prop(name)
}

// propertiesOf lists the members of t in declaration order.
func (c *Checker) propertiesOf(t types.TypeID) []*property {
	return c.resolveStructured(c.apparentType(t)).props
}

// signaturesOf returns the call or construct signatures of t.
func (c *Checker) signaturesOf(t types.TypeID, construct bool) []types.SignatureID {
	st := c.resolveStructured(c.apparentType(t))
	if construct {
		return st.constructs
	}
	return st.calls
}

// apparentType maps primitives to their wrapper members and generic types
// to their constraint.
func (c *Checker) apparentType(t types.TypeID) types.TypeID {
	switch c.types.Kind(t) {
	case types.KindTypeParameter, types.KindIndexedAccess, types.KindConditional, types.KindIndex:
		base := c.baseConstraintOf(t)
		if base == c.b.Unknown || base == t {
			return c.b.EmptyObject
		}
		return c.apparentType(base)
	case types.KindString, types.KindStringLiteral:
		return c.primitiveApparent(&c.apparentString, c.stringMembers)
	case types.KindNumber, types.KindNumberLiteral:
		return c.primitiveApparent(&c.apparentNumber, c.numberMembers)
	case types.KindBooleanLiteral:
		return c.primitiveApparent(&c.apparentBool, c.booleanMembers)
	case types.KindUnion:
		if c.types.Flags(t)&types.FlagBoolean != 0 {
			return c.primitiveApparent(&c.apparentBool, c.booleanMembers)
		}
	}
	return t
}

func (c *Checker) primitiveApparent(slot *types.TypeID, build func() *types.Shape) types.TypeID {
	if *slot == types.NoTypeID {
		*slot = c.types.Object(build(), 0, symbols.NoSymbolID)
	}
	return *slot
}

// --- synthesized library members ---

func (c *Checker) method(params []types.Param, ret types.TypeID, typeParams ...types.TypeID) types.TypeID {
	minArgs := 0
	var flags types.SigFlags
	for i, p := range params {
		switch {
		case p.Rest:
			flags |= types.SigRest
		case !p.Optional:
			minArgs = i + 1
		}
	}
	sig := types.Signature{TypeParams: typeParams, Params: params, Return: ret, MinArgs: minArgs, Flags: flags | types.SigMethod}
	var id types.SignatureID
	if len(typeParams) > 0 {
		id = c.types.NewSignature(sig)
	} else {
		id = c.types.InternSignature(sig)
	}
	return c.types.CreateObjectType(nil, []types.SignatureID{id}, nil, nil)
}

func param(name string, t types.TypeID) types.Param { return types.Param{Name: name, Type: t} }

func optParam(name string, t types.TypeID) types.Param {
	return types.Param{Name: name, Type: t, Optional: true}
}

func restParam(name string, t types.TypeID) types.Param {
	return types.Param{Name: name, Type: t, Rest: true}
}

func (c *Checker) stringMembers() *types.Shape {
	b := c.b
	str, num := b.String, b.Number
	return &types.Shape{
		Props: []types.Prop{
			{Name: "length", Type: num, Flags: types.PropReadonly},
			{Name: "charAt", Type: c.method([]types.Param{param("pos", num)}, str), Flags: types.PropMethod},
			{Name: "indexOf", Type: c.method([]types.Param{param("searchString", str), optParam("position", num)}, num), Flags: types.PropMethod},
			{Name: "includes", Type: c.method([]types.Param{param("searchString", str)}, b.Boolean), Flags: types.PropMethod},
			{Name: "startsWith", Type: c.method([]types.Param{param("searchString", str)}, b.Boolean), Flags: types.PropMethod},
			{Name: "endsWith", Type: c.method([]types.Param{param("searchString", str)}, b.Boolean), Flags: types.PropMethod},
			{Name: "slice", Type: c.method([]types.Param{optParam("start", num), optParam("end", num)}, str), Flags: types.PropMethod},
			{Name: "split", Type: c.method([]types.Param{param("separator", str)}, c.types.Array(str)), Flags: types.PropMethod},
			{Name: "replace", Type: c.method([]types.Param{param("searchValue", str), param("replaceValue", str)}, str), Flags: types.PropMethod},
			{Name: "toUpperCase", Type: c.method(nil, str), Flags: types.PropMethod},
			{Name: "toLowerCase", Type: c.method(nil, str), Flags: types.PropMethod},
			{Name: "trim", Type: c.method(nil, str), Flags: types.PropMethod},
			{Name: "toString", Type: c.method(nil, str), Flags: types.PropMethod},
		},
		Indexes: []types.IndexInfo{{Key: num, Type: str, Readonly: true}},
	}
}

func (c *Checker) numberMembers() *types.Shape {
	str, num := c.b.String, c.b.Number
	return &types.Shape{Props: []types.Prop{
		{Name: "toFixed", Type: c.method([]types.Param{optParam("fractionDigits", num)}, str), Flags: types.PropMethod},
		{Name: "toString", Type: c.method([]types.Param{optParam("radix", num)}, str), Flags: types.PropMethod},
		{Name: "valueOf", Type: c.method(nil, num), Flags: types.PropMethod},
	}}
}

func (c *Checker) booleanMembers() *types.Shape {
	return &types.Shape{Props: []types.Prop{
		{Name: "valueOf", Type: c.method(nil, c.b.Boolean), Flags: types.PropMethod},
	}}
}

// arrayMembers returns the members of T[] with T bound to the element
// marker c.arrayElem.
func (c *Checker) arrayMembers() *structured {
	if c.globalArray != nil {
		return c.globalArray
	}
	b := c.b
	e := c.arrayElem
	arr := c.types.Array(e)
	num, str, boolean := b.Number, b.String, b.Boolean
	callback := func(ret types.TypeID) types.TypeID {
		return c.types.CreateObjectType(nil, []types.SignatureID{c.types.InternSignature(types.Signature{
			Params:  []types.Param{param("value", e), optParam("index", num)},
			Return:  ret,
			MinArgs: 1,
		})}, nil, nil)
	}
	u := c.types.Marker(symbols.NoSymbolID, 0)
	c.markerNames[u] = "U"
	shape := &types.Shape{
		Props: []types.Prop{
			{Name: "length", Type: num},
			{Name: "push", Type: c.method([]types.Param{restParam("items", arr)}, num), Flags: types.PropMethod},
			{Name: "pop", Type: c.method(nil, c.types.UnionOf(e, b.Undefined)), Flags: types.PropMethod},
			{Name: "indexOf", Type: c.method([]types.Param{param("searchElement", e)}, num), Flags: types.PropMethod},
			{Name: "includes", Type: c.method([]types.Param{param("searchElement", e)}, boolean), Flags: types.PropMethod},
			{Name: "join", Type: c.method([]types.Param{optParam("separator", str)}, str), Flags: types.PropMethod},
			{Name: "slice", Type: c.method([]types.Param{optParam("start", num), optParam("end", num)}, arr), Flags: types.PropMethod},
			{Name: "concat", Type: c.method([]types.Param{restParam("items", arr)}, arr), Flags: types.PropMethod},
			{Name: "map", Type: c.method([]types.Param{param("callbackfn", callback(u))}, c.types.Array(u), u), Flags: types.PropMethod},
			{Name: "filter", Type: c.method([]types.Param{param("predicate", callback(b.Unknown))}, arr), Flags: types.PropMethod},
			{Name: "find", Type: c.method([]types.Param{param("predicate", callback(b.Unknown))}, c.types.UnionOf(e, b.Undefined)), Flags: types.PropMethod},
			{Name: "some", Type: c.method([]types.Param{param("predicate", callback(b.Unknown))}, boolean), Flags: types.PropMethod},
			{Name: "every", Type: c.method([]types.Param{param("predicate", callback(b.Unknown))}, boolean), Flags: types.PropMethod},
			{Name: "forEach", Type: c.method([]types.Param{param("callbackfn", callback(b.Void))}, b.Void), Flags: types.PropMethod},
		},
		Indexes: []types.IndexInfo{{Key: num, Type: e}},
	}
	c.globalArray = c.structuredFromShape(shape)
	return c.globalArray
}
