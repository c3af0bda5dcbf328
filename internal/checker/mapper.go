package checker

import (
	"encoding/binary"
	"fmt"
	"slices"

	"fortio.org/safecast"

	"stc/internal/ast"
	"stc/internal/diag"
	"stc/internal/symbols"
	"stc/internal/types"
)

// maxInstantiationDepth bounds nested instantiation; deeper expansion is
// reported as possibly infinite.
const maxInstantiationDepth = 100

// Mapper substitutes Targets[i] for Sources[i]. Mappers are interned, so two
// mappers with the same pairs share one MapperID.
type Mapper struct {
	Sources []types.TypeID
	Targets []types.TypeID
}

// Lookup returns the replacement of t, or t itself.
func (m *Mapper) Lookup(t types.TypeID) types.TypeID {
	if m == nil {
		return t
	}
	for i, s := range m.Sources {
		if s == t {
			return m.Targets[i]
		}
	}
	return t
}

type mapperTable struct {
	list  []*Mapper
	index map[string]types.MapperID
}

func (t *mapperTable) init() {
	t.list = make([]*Mapper, 1, 64)
	t.index = make(map[string]types.MapperID, 64)
}

func (t *mapperTable) intern(m Mapper) types.MapperID {
	if len(m.Sources) == 0 {
		return 0
	}
	buf := make([]byte, 0, 8*len(m.Sources))
	for i := range m.Sources {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(m.Sources[i]))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(m.Targets[i]))
	}
	key := string(buf)
	if id, ok := t.index[key]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(t.list))
	if err != nil {
		panic(fmt.Errorf("mapper table overflow: %w", err))
	}
	t.list = append(t.list, &Mapper{Sources: slices.Clone(m.Sources), Targets: slices.Clone(m.Targets)})
	id := types.MapperID(n)
	t.index[key] = id
	return id
}

func (t *mapperTable) get(id types.MapperID) *Mapper {
	if id == 0 || int(id) >= len(t.list) {
		return nil
	}
	return t.list[id]
}

func (c *Checker) newMapper(sources, targets []types.TypeID) types.MapperID {
	return c.mappers.intern(Mapper{Sources: sources, Targets: targets})
}

// mapperOf exposes an interned mapper.
func (c *Checker) mapperOf(id types.MapperID) *Mapper { return c.mappers.get(id) }

// composeMappers returns the mapper applying m1 and then m2.
func (c *Checker) composeMappers(m1, m2 types.MapperID) types.MapperID {
	if m1 == 0 {
		return m2
	}
	if m2 == 0 {
		return m1
	}
	a, b := c.mappers.get(m1), c.mappers.get(m2)
	sources := slices.Clone(a.Sources)
	targets := make([]types.TypeID, len(a.Targets), len(a.Targets)+len(b.Targets))
	for i, t := range a.Targets {
		targets[i] = c.instantiate(t, m2)
	}
	for j, s := range b.Sources {
		if !slices.Contains(sources, s) {
			sources = append(sources, s)
			targets = append(targets, b.Targets[j])
		}
	}
	return c.newMapper(sources, targets)
}

// withMappings returns m with sources rebound to targets.
func (c *Checker) withMappings(m types.MapperID, sources, targets []types.TypeID) types.MapperID {
	var out Mapper
	if base := c.mappers.get(m); base != nil {
		for i, s := range base.Sources {
			if !slices.Contains(sources, s) {
				out.Sources = append(out.Sources, s)
				out.Targets = append(out.Targets, base.Targets[i])
			}
		}
	}
	out.Sources = append(out.Sources, sources...)
	out.Targets = append(out.Targets, targets...)
	return c.mappers.intern(out)
}

type instKey struct {
	t types.TypeID
	m types.MapperID
}

// instantiate applies mapper m to t. Results are memoized per (t, m).
func (c *Checker) instantiate(t types.TypeID, m types.MapperID) types.TypeID {
	if m == 0 || t == types.NoTypeID || !c.couldContainTypeVariables(t) {
		return t
	}
	key := instKey{t, m}
	if r, ok := c.instCache[key]; ok {
		return r
	}
	if c.instDepth >= maxInstantiationDepth {
		c.error(c.currentNode, diag.CheckExcessiveDepth, "Type instantiation is excessively deep and possibly infinite.")
		return c.b.Error
	}
	c.instDepth++
	r := c.instantiateWorker(t, m)
	c.instDepth--
	if alias, ok := c.types.Alias(t); ok && r != t {
		args := make([]types.TypeID, len(alias.Args))
		for i, a := range alias.Args {
			args[i] = c.instantiate(a, m)
		}
		c.types.SetAlias(r, alias.Symbol, args)
	}
	c.instCache[key] = r
	return r
}

func (c *Checker) instantiateList(ids []types.TypeID, m types.MapperID) ([]types.TypeID, bool) {
	out := make([]types.TypeID, len(ids))
	changed := false
	for i, id := range ids {
		out[i] = c.instantiate(id, m)
		changed = changed || out[i] != id
	}
	return out, changed
}

func (c *Checker) instantiateWorker(t types.TypeID, m types.MapperID) types.TypeID {
	tt := c.types.MustLookup(t)
	switch tt.Kind {
	case types.KindTypeParameter:
		return c.mappers.get(m).Lookup(t)
	case types.KindUnion:
		out, changed := c.instantiateList(c.types.Members(t), m)
		if !changed {
			return t
		}
		return c.types.Union(out)
	case types.KindIntersection:
		out, changed := c.instantiateList(c.types.Members(t), m)
		if !changed {
			return t
		}
		return c.types.Intersection(out)
	case types.KindTuple:
		out, changed := c.instantiateList(c.types.Members(t), m)
		if !changed {
			return t
		}
		return c.types.Tuple(out)
	case types.KindArray:
		elem, _ := c.types.ArrayElem(t)
		return c.types.Array(c.instantiate(elem, m))
	case types.KindReference:
		info, _ := c.types.ReferenceInfo(t)
		args, changed := c.instantiateList(info.Args, m)
		if !changed {
			return t
		}
		return c.types.Reference(info.Target, args)
	case types.KindInterface:
		info, _ := c.types.InterfaceInfo(t)
		args, changed := c.instantiateList(info.TypeParams, m)
		if !changed {
			return t
		}
		return c.types.Reference(t, args)
	case types.KindObject:
		info, _ := c.types.ObjectInfo(t)
		if info.Shape == nil {
			return c.instantiateLazy(t, tt, info, m)
		}
		return c.instantiateShape(t, tt, info.Shape, m)
	case types.KindIndex:
		target, _ := c.types.IndexTarget(t)
		return c.indexTypeOf(c.instantiate(target, m))
	case types.KindIndexedAccess:
		info, _ := c.types.AccessInfo(t)
		return c.indexedAccessType(c.instantiate(info.Object, m), c.instantiate(info.Index, m), ast.NoNodeID)
	case types.KindConditional:
		info, _ := c.types.DeferredInfo(t)
		return c.conditionalType(info.Decl, c.composeMappers(info.Mapper, m))
	case types.KindMapped:
		info, _ := c.types.DeferredInfo(t)
		return c.mappedType(info.Decl, c.composeMappers(info.Mapper, m))
	}
	return t
}

// instantiateLazy rebinds the outer type parameters of an anonymous type.
// Parameters the mapper leaves alone are not recorded, so instantiations
// that change nothing return the original type.
func (c *Checker) instantiateLazy(t types.TypeID, tt types.Type, info *types.ObjectInfo, m types.MapperID) types.TypeID {
	outer := c.outerTypeParams(tt.Symbol)
	if len(outer) == 0 {
		return t
	}
	combined := c.composeMappers(info.Mapper, m)
	cm := c.mappers.get(combined)
	var out Mapper
	for _, p := range outer {
		if r := cm.Lookup(p); r != p {
			out.Sources = append(out.Sources, p)
			out.Targets = append(out.Targets, r)
		}
	}
	return c.types.Lazy(tt.Symbol, c.mappers.intern(out), tt.Flags)
}

func (c *Checker) instantiateShape(t types.TypeID, tt types.Type, s *types.Shape, m types.MapperID) types.TypeID {
	changed := false
	ns := &types.Shape{
		Props:      make([]types.Prop, len(s.Props)),
		Calls:      make([]types.SignatureID, len(s.Calls)),
		Constructs: make([]types.SignatureID, len(s.Constructs)),
		Indexes:    make([]types.IndexInfo, len(s.Indexes)),
	}
	for i, p := range s.Props {
		p.Type = c.instantiate(p.Type, m)
		changed = changed || p.Type != s.Props[i].Type
		ns.Props[i] = p
	}
	for i, sig := range s.Calls {
		ns.Calls[i] = c.instantiateSignature(sig, m)
		changed = changed || ns.Calls[i] != sig
	}
	for i, sig := range s.Constructs {
		ns.Constructs[i] = c.instantiateSignature(sig, m)
		changed = changed || ns.Constructs[i] != sig
	}
	for i, ix := range s.Indexes {
		ix.Type = c.instantiate(ix.Type, m)
		changed = changed || ix.Type != s.Indexes[i].Type
		ns.Indexes[i] = ix
	}
	if !changed {
		return t
	}
	return c.types.Object(ns, tt.Flags, tt.Symbol)
}

// instantiateSignature applies m to a signature. When m binds the
// signature's own type parameters the result is no longer generic.
func (c *Checker) instantiateSignature(id types.SignatureID, m types.MapperID) types.SignatureID {
	if m == 0 || !id.IsValid() {
		return id
	}
	l := c.sigLink(id)
	if r, ok := l.instantiations[m]; ok {
		return r
	}
	sig := c.types.Signature(id)
	mp := c.mappers.get(m)
	out := types.Signature{
		Decl:      sig.Decl,
		MinArgs:   sig.MinArgs,
		Flags:     sig.Flags,
		Predicate: sig.Predicate,
		Target:    id,
		Mapper:    m,
		Params:    make([]types.Param, len(sig.Params)),
	}
	bound := false
	for _, tp := range sig.TypeParams {
		if mp.Lookup(tp) != tp {
			bound = true
			break
		}
	}
	if !bound {
		out.TypeParams = sig.TypeParams
	}
	for i, p := range sig.Params {
		p.Type = c.instantiate(p.Type, m)
		out.Params[i] = p
	}
	if sig.This != types.NoTypeID {
		out.This = c.instantiate(sig.This, m)
	}
	if sig.Return != types.NoTypeID {
		out.Return = c.instantiate(sig.Return, m)
	}
	if sig.Predicate.Type != types.NoTypeID {
		out.Predicate.Type = c.instantiate(sig.Predicate.Type, m)
	}
	r := c.types.NewSignature(out)
	if l.instantiations == nil {
		l.instantiations = make(map[types.MapperID]types.SignatureID)
	}
	l.instantiations[m] = r
	return r
}

// couldContainTypeVariables reports whether instantiation may change t.
func (c *Checker) couldContainTypeVariables(t types.TypeID) bool {
	if r, ok := c.couldContain[t]; ok {
		return r
	}
	c.couldContain[t] = false
	c.onAbort(func() {
		if !c.couldContain[t] {
			delete(c.couldContain, t)
		}
	})
	r := c.computeCouldContain(t)
	c.couldContain[t] = r
	return r
}

func (c *Checker) computeCouldContain(t types.TypeID) bool {
	tt, ok := c.types.Lookup(t)
	if !ok {
		return false
	}
	anyOf := func(ids []types.TypeID) bool {
		return slices.ContainsFunc(ids, c.couldContainTypeVariables)
	}
	switch tt.Kind {
	case types.KindTypeParameter, types.KindIndex, types.KindIndexedAccess, types.KindConditional, types.KindMapped:
		return true
	case types.KindUnion, types.KindIntersection, types.KindTuple:
		return anyOf(c.types.Members(t))
	case types.KindArray:
		elem, _ := c.types.ArrayElem(t)
		return c.couldContainTypeVariables(elem)
	case types.KindReference:
		info, _ := c.types.ReferenceInfo(t)
		return anyOf(info.Args)
	case types.KindInterface:
		info, _ := c.types.InterfaceInfo(t)
		return len(info.TypeParams) > 0
	case types.KindObject:
		info, _ := c.types.ObjectInfo(t)
		if info.Shape == nil {
			return len(c.outerTypeParams(tt.Symbol)) > 0
		}
		for _, p := range info.Shape.Props {
			if c.couldContainTypeVariables(p.Type) {
				return true
			}
		}
		for _, ix := range info.Shape.Indexes {
			if c.couldContainTypeVariables(ix.Type) {
				return true
			}
		}
		for _, sigs := range [][]types.SignatureID{info.Shape.Calls, info.Shape.Constructs} {
			for _, id := range sigs {
				if c.signatureCouldContain(id) {
					return true
				}
			}
		}
	}
	return false
}

func (c *Checker) signatureCouldContain(id types.SignatureID) bool {
	sig := c.types.Signature(id)
	if len(sig.TypeParams) > 0 || sig.Return == types.NoTypeID && sig.Decl.IsValid() {
		return true
	}
	for _, p := range sig.Params {
		if c.couldContainTypeVariables(p.Type) {
			return true
		}
	}
	return c.couldContainTypeVariables(sig.Return) || c.couldContainTypeVariables(sig.Predicate.Type)
}

// outerTypeParams lists the type parameters in scope at the declaration of
// an anonymous type, innermost last. The declaration's own type parameters
// belong to its signatures and are not included.
func (c *Checker) outerTypeParams(sym symbols.SymbolID) []types.TypeID {
	if r, ok := c.outerParams[sym]; ok {
		return r
	}
	c.outerParams[sym] = nil
	c.onAbort(func() {
		if c.outerParams[sym] == nil {
			delete(c.outerParams, sym)
		}
	})
	s := c.syms.Get(sym)
	if s == nil {
		return nil
	}
	var chain []ast.NodeID
	for n := c.nodes.Parent(s.FirstDecl()); n.IsValid(); n = c.nodes.Parent(n) {
		chain = append(chain, n)
	}
	var out []types.TypeID
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, c.typeParamsDeclaredBy(chain[i])...)
	}
	c.outerParams[sym] = out
	return out
}

// typeParamsDeclaredBy returns the type parameters introduced by node.
func (c *Checker) typeParamsDeclaredBy(node ast.NodeID) []types.TypeID {
	var decls []ast.NodeID
	switch k := c.kind(node); {
	case k.IsFunctionLike():
		fd, _ := c.nodes.Func(node)
		decls = fd.TypeParams
	case k == ast.KindClassDeclaration || k == ast.KindClassExpression || k == ast.KindInterfaceDeclaration || k == ast.KindTypeAliasDeclaration:
		sd, _ := c.nodes.Shape(node)
		decls = sd.TypeParams
	case k == ast.KindMappedType:
		e, _ := c.nodes.Expr(node)
		decls = []ast.NodeID{e.Left}
	case k == ast.KindConditionalType:
		return c.inferTypeParams(node)
	}
	out := make([]types.TypeID, 0, len(decls))
	for _, d := range decls {
		out = append(out, c.declaredTypeOfSymbol(c.declSymbol(d)))
	}
	return out
}

// inferTypeParams returns the `infer` type parameters of a conditional type.
func (c *Checker) inferTypeParams(cond ast.NodeID) []types.TypeID {
	table := c.sess.Locals[cond]
	var out []types.TypeID
	for _, sym := range table.Symbols() {
		if c.syms.Flags(sym)&symbols.TypeParameter != 0 {
			out = append(out, c.declaredTypeOfSymbol(sym))
		}
	}
	return out
}

// --- conditional, mapped, keyof and indexed access ---

func (c *Checker) isDistributive(cond ast.NodeID) bool {
	e, _ := c.nodes.Expr(cond)
	return c.kind(e.Left) == ast.KindTypeReference && c.types.Kind(c.typeFromTypeNode(e.Left)) == types.KindTypeParameter
}

// conditionalType resolves `Check extends Ext ? T : F` under m, or defers
// it while the check or extends type is still generic.
func (c *Checker) conditionalType(node ast.NodeID, m types.MapperID) types.TypeID {
	e, _ := c.nodes.Expr(node)
	checkNode := c.typeFromTypeNode(e.Left)
	check := c.instantiate(checkNode, m)
	if c.isDistributive(node) && c.types.Kind(check) == types.KindUnion {
		return c.types.MapUnion(check, func(member types.TypeID) types.TypeID {
			return c.conditionalType(node, c.withMappings(m, []types.TypeID{checkNode}, []types.TypeID{member}))
		})
	}
	ext := c.instantiate(c.typeFromTypeNode(e.Right), m)
	if params := c.inferTypeParams(node); len(params) > 0 && !c.couldContainTypeVariables(check) {
		ctx := c.newInferenceContext(params, 0)
		c.inferTypes(ctx, check, ext, priorityDirect)
		inferred := make([]types.TypeID, len(params))
		for i, info := range ctx.infos {
			inferred[i] = c.inferredTypeNoWiden(info)
		}
		m = c.withMappings(m, params, inferred)
		ext = c.instantiate(c.typeFromTypeNode(e.Right), m)
	}
	if c.couldContainTypeVariables(check) || c.couldContainTypeVariables(ext) {
		return c.types.Conditional(node, m, check)
	}
	if c.isAnyLike(check) {
		return c.types.UnionOf(c.instantiate(c.typeFromTypeNode(e.Then), m), c.instantiate(c.typeFromTypeNode(e.Else), m))
	}
	if c.isTypeAssignableTo(check, ext) {
		return c.instantiate(c.typeFromTypeNode(e.Then), m)
	}
	return c.instantiate(c.typeFromTypeNode(e.Else), m)
}

// mappedType resolves `{ [P in K]: X }` once K is known.
func (c *Checker) mappedType(node ast.NodeID, m types.MapperID) types.TypeID {
	e, _ := c.nodes.Expr(node)
	tpd, _ := c.nodes.TypeParam(e.Left)
	param := c.declaredTypeOfSymbol(c.declSymbol(e.Left))
	keys := c.instantiate(c.typeFromTypeNode(tpd.Constraint), m)
	if c.couldContainTypeVariables(keys) {
		return c.types.Mapped(node, m)
	}
	var homSource types.TypeID
	if c.kind(tpd.Constraint) == ast.KindTypeOperator {
		op, _ := c.nodes.Expr(tpd.Constraint)
		homSource = c.instantiate(c.typeFromTypeNode(op.Left), m)
	}
	flags := c.nodes.Flags(node)
	template := c.typeFromTypeNode(e.Right)
	shape := &types.Shape{}
	for _, key := range c.types.Constituents(keys) {
		km := c.withMappings(m, []types.TypeID{param}, []types.TypeID{key})
		name, isName := c.propertyNameOfType(key)
		if e.Then.IsValid() {
			renamed := c.instantiate(c.typeFromTypeNode(e.Then), km)
			name, isName = c.propertyNameOfType(renamed)
			if !isName {
				continue
			}
		}
		propType := c.instantiate(template, km)
		if !isName {
			switch c.types.Kind(key) {
			case types.KindString, types.KindNumber:
				if _, dup := shape.Index(key); !dup {
					shape.Indexes = append(shape.Indexes, types.IndexInfo{Key: key, Type: propType, Readonly: flags&ast.FlagReadonly != 0})
				}
			}
			continue
		}
		var pf types.PropFlags
		var decl symbols.SymbolID
		if homSource != types.NoTypeID {
			if sp := c.propertyOf(homSource, name); sp != nil {
				pf = sp.flags &^ types.PropMethod
				decl = sp.sym
			}
		}
		switch {
		case flags&ast.FlagMinusOptional != 0:
			pf &^= types.PropOptional
		case flags&ast.FlagOptional != 0:
			pf |= types.PropOptional
		}
		if flags&ast.FlagReadonly != 0 {
			pf |= types.PropReadonly
		}
		shape.Props = append(shape.Props, types.Prop{Name: name, Type: propType, Flags: pf, Decl: decl})
	}
	return c.types.Object(shape, 0, c.declSymbol(node))
}

// propertyNameOfType maps a string or number literal type to a property name.
func (c *Checker) propertyNameOfType(t types.TypeID) (string, bool) {
	lit, ok := c.types.Literal(t)
	if !ok {
		return "", false
	}
	switch c.types.Kind(t) {
	case types.KindStringLiteral:
		return lit.Str, true
	case types.KindNumberLiteral:
		return formatNumber(lit.Num), true
	}
	return "", false
}

func (c *Checker) isGenericObject(t types.TypeID) bool {
	switch c.types.Kind(t) {
	case types.KindTypeParameter, types.KindIndexedAccess, types.KindConditional, types.KindIndex, types.KindMapped:
		return true
	case types.KindUnion, types.KindIntersection:
		return slices.ContainsFunc(c.types.Members(t), c.isGenericObject)
	}
	return false
}

func (c *Checker) isGenericIndex(t types.TypeID) bool {
	switch c.types.Kind(t) {
	case types.KindTypeParameter, types.KindIndexedAccess, types.KindConditional, types.KindIndex:
		return true
	case types.KindUnion, types.KindIntersection:
		return slices.ContainsFunc(c.types.Members(t), c.isGenericIndex)
	}
	return false
}

// indexTypeOf returns `keyof t`.
func (c *Checker) indexTypeOf(t types.TypeID) types.TypeID {
	switch c.types.Kind(t) {
	case types.KindAny:
		return c.types.UnionOf(c.b.String, c.b.Number)
	case types.KindNever:
		return c.types.UnionOf(c.b.String, c.b.Number)
	case types.KindUnknown:
		return c.b.Never
	case types.KindTypeParameter, types.KindIndexedAccess, types.KindConditional, types.KindIndex:
		return c.types.Index(t)
	case types.KindMapped:
		info, _ := c.types.DeferredInfo(t)
		e, _ := c.nodes.Expr(info.Decl)
		tpd, _ := c.nodes.TypeParam(e.Left)
		return c.instantiate(c.typeFromTypeNode(tpd.Constraint), info.Mapper)
	case types.KindUnion:
		members := c.types.Members(t)
		keys := make([]types.TypeID, len(members))
		for i, m := range members {
			keys[i] = c.indexTypeOf(m)
		}
		return c.types.Intersection(keys)
	case types.KindIntersection:
		members := c.types.Members(t)
		keys := make([]types.TypeID, len(members))
		for i, m := range members {
			keys[i] = c.indexTypeOf(m)
		}
		return c.types.Union(keys)
	}
	st := c.resolveStructured(c.apparentType(t))
	keys := make([]types.TypeID, 0, len(st.props)+2)
	for _, p := range st.props {
		keys = append(keys, c.types.StringLiteral(p.name))
	}
	for _, ix := range st.indexes {
		keys = append(keys, ix.Key)
		if ix.Key == c.b.String {
			keys = append(keys, c.b.Number)
		}
	}
	return c.types.Union(keys)
}

// indexedAccessType returns `obj[idx]`. With a valid accessNode, missing
// properties are reported there.
func (c *Checker) indexedAccessType(obj, idx types.TypeID, accessNode ast.NodeID) types.TypeID {
	if c.isGenericIndex(idx) || c.isGenericObject(obj) {
		if c.types.Kind(obj) == types.KindMapped && !c.isGenericIndex(idx) {
			return c.indexedAccessType(c.mappedConstraintAccess(obj, idx), c.b.Never, ast.NoNodeID)
		}
		return c.types.IndexedAccess(obj, idx)
	}
	if c.types.Kind(idx) == types.KindUnion {
		members := c.types.Members(idx)
		out := make([]types.TypeID, len(members))
		for i, m := range members {
			out[i] = c.propertyTypeForIndex(obj, m, accessNode)
		}
		return c.types.Union(out)
	}
	return c.propertyTypeForIndex(obj, idx, accessNode)
}

// mappedConstraintAccess substitutes a concrete key into a deferred mapped
// type's template.
func (c *Checker) mappedConstraintAccess(mapped, key types.TypeID) types.TypeID {
	info, _ := c.types.DeferredInfo(mapped)
	e, _ := c.nodes.Expr(info.Decl)
	param := c.declaredTypeOfSymbol(c.declSymbol(e.Left))
	return c.instantiate(c.typeFromTypeNode(e.Right), c.withMappings(info.Mapper, []types.TypeID{param}, []types.TypeID{key}))
}

func (c *Checker) propertyTypeForIndex(obj, idx types.TypeID, accessNode ast.NodeID) types.TypeID {
	if idx == c.b.Never {
		return obj
	}
	if c.isAnyLike(obj) {
		return obj
	}
	if name, ok := c.propertyNameOfType(idx); ok {
		if c.types.Kind(obj) == types.KindTuple && c.types.Kind(idx) == types.KindNumberLiteral {
			elems := c.types.Members(obj)
			lit, _ := c.types.Literal(idx)
			if i := int(lit.Num); float64(i) == lit.Num && i >= 0 && i < len(elems) {
				return elems[i]
			}
		}
		if p := c.propertyOf(obj, name); p != nil {
			t := c.typeOfProperty(p)
			if p.flags&types.PropOptional != 0 {
				t = c.addOptionality(t)
			}
			return t
		}
		if ix, ok := c.applicableIndex(obj, idx); ok {
			return ix.Type
		}
		if accessNode.IsValid() {
			c.error(accessNode, diag.CheckPropertyMissing, "Property '%s' does not exist on type '%s'.", name, c.TypeToString(obj))
		}
		return c.b.Error
	}
	if ix, ok := c.applicableIndex(obj, idx); ok {
		return ix.Type
	}
	if accessNode.IsValid() {
		c.error(accessNode, diag.CheckPropertyMissing, "Type '%s' cannot be used to index type '%s'.", c.TypeToString(idx), c.TypeToString(obj))
	}
	return c.b.Error
}

// applicableIndex finds the index signature of obj that accepts key.
// Number-like keys fall back to the string index.
func (c *Checker) applicableIndex(obj, key types.TypeID) (types.IndexInfo, bool) {
	st := c.resolveStructured(c.apparentType(obj))
	numeric := c.isNumberLike(key)
	if numeric {
		if ix, ok := st.index(c.b.Number); ok {
			return ix, true
		}
	}
	if numeric || c.isStringLike(key) {
		if ix, ok := st.index(c.b.String); ok {
			return ix, true
		}
	}
	return types.IndexInfo{}, false
}
