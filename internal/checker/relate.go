package checker

import (
	"fmt"
	"slices"

	"stc/internal/ast"
	"stc/internal/diag"
	"stc/internal/types"
)

// Ternary is the outcome of one comparison. Maybe means related under an
// assumption that is still being validated higher up.
type Ternary uint8

const (
	TernaryFalse Ternary = iota
	TernaryMaybe
	TernaryTrue
)

func (t Ternary) and(o Ternary) Ternary { return min(t, o) }

// Relation selects the comparison mode.
type Relation uint8

const (
	RelationIdentity Relation = iota
	RelationSubtype
	RelationAssignable
	RelationComparable
)

const relationCount = 4

func (r Relation) String() string {
	switch r {
	case RelationIdentity:
		return "identity"
	case RelationSubtype:
		return "subtype"
	case RelationAssignable:
		return "assignable"
	case RelationComparable:
		return "comparable"
	}
	return fmt.Sprintf("Relation(%d)", uint8(r))
}

type relationKey struct {
	source, target types.TypeID
}

// maxRelationDepth bounds the structural descent of one comparison.
const maxRelationDepth = 100

// relationStack counts nested comparisons across relaters, which happen when
// a comparison resolves a type that needs another comparison.
type relationStack struct {
	active int
}

func (c *Checker) resetRelationStack() { c.relStack = relationStack{} }

type maybeEntry struct {
	key relationKey
}

// relater runs one top-level comparison. Pairs under comparison are kept on
// a maybe stack; meeting one again answers Maybe, and the answers are
// committed to the cache once the outermost pair succeeds.
type relater struct {
	c        *Checker
	rel      Relation
	report   bool
	chain    []string
	maybe    []maybeEntry
	sources  []types.TypeID
	targets  []types.TypeID
	depth    int
	overflow bool

	// excess property found on a fresh object literal
	excessProp   string
	excessTarget types.TypeID
	excessSource types.TypeID
}

func (c *Checker) newRelater(rel Relation, report bool) *relater {
	return &relater{c: c, rel: rel, report: report}
}

// isTypeRelatedTo reports whether source is related to target.
func (c *Checker) isTypeRelatedTo(source, target types.TypeID, rel Relation) bool {
	if source == target {
		return true
	}
	if rel != RelationIdentity {
		if ok, known := c.simpleRelated(c.types.Regular(source), c.types.Regular(target), rel); known {
			return ok
		}
	}
	r := c.newRelater(rel, false)
	return r.run(source, target) != TernaryFalse
}

func (c *Checker) isTypeAssignableTo(source, target types.TypeID) bool {
	return c.isTypeRelatedTo(source, target, RelationAssignable)
}

func (c *Checker) isTypeSubtypeOf(source, target types.TypeID) bool {
	return c.isTypeRelatedTo(source, target, RelationSubtype)
}

func (c *Checker) isTypeComparableTo(source, target types.TypeID) bool {
	return c.isTypeRelatedTo(source, target, RelationComparable)
}

func (c *Checker) isTypeIdenticalTo(source, target types.TypeID) bool {
	return c.isTypeRelatedTo(source, target, RelationIdentity)
}

// checkTypeRelatedTo compares source to target and, on failure, reports
// head (formatted with both printed types) at node together with the
// elaboration chain. A fresh object literal with an unknown property is
// reported as an excess property instead.
func (c *Checker) checkTypeRelatedTo(source, target types.TypeID, rel Relation, node ast.NodeID, code diag.Code, head string) bool {
	if source == target {
		return true
	}
	r := c.newRelater(rel, true)
	if r.run(source, target) != TernaryFalse {
		return true
	}
	if !node.IsValid() {
		return false
	}
	if r.overflow {
		c.error(node, diag.CheckExcessiveDepth, "Excessive stack depth comparing types '%s' and '%s'.", c.TypeToString(source), c.TypeToString(target))
		return false
	}
	if r.excessProp != "" {
		c.reportExcessProperty(node, r.excessSource, r.excessProp, r.excessTarget)
		return false
	}
	slices.Reverse(r.chain)
	c.errorAt(node, code, head, c.TypeToString(source), c.TypeToString(target)).WithChain(r.chain).Emit()
	return false
}

// isSignatureIdenticalTo compares two signatures under the identity relation.
func (c *Checker) isSignatureIdenticalTo(s, t types.SignatureID) bool {
	if s == t {
		return true
	}
	return c.newRelater(RelationIdentity, false).identicalSignatures(s, t) != TernaryFalse
}

func (c *Checker) checkTypeAssignableTo(source, target types.TypeID, node ast.NodeID) bool {
	return c.checkTypeRelatedTo(source, target, RelationAssignable, node, diag.CheckNotAssignable, "Type '%s' is not assignable to type '%s'.")
}

func (r *relater) run(source, target types.TypeID) Ternary {
	c := r.c
	c.relStack.active++
	defer func() { c.relStack.active-- }()
	if c.relStack.active > maxRelationDepth {
		r.overflow = true
		return TernaryFalse
	}
	return r.isRelatedTo(source, target)
}

func (r *relater) fail(format string, args ...any) Ternary {
	if r.report {
		r.chain = append(r.chain, fmt.Sprintf(format, args...))
	}
	return TernaryFalse
}

func (r *relater) relationVerb() string {
	if r.rel == RelationComparable {
		return "comparable to"
	}
	return "assignable to"
}

// isRelatedTo is the recursive entry point of a comparison.
func (r *relater) isRelatedTo(source, target types.TypeID) Ternary {
	c := r.c
	c.tick()
	if c.types.Kind(source).IsLiteral() {
		source = c.types.Regular(source)
	}
	if c.types.Kind(target).IsLiteral() {
		target = c.types.Regular(target)
	}
	if source == target {
		return TernaryTrue
	}
	if r.rel == RelationIdentity {
		return r.identityRelated(source, target)
	}
	if ok, known := c.simpleRelated(source, target, r.rel); known {
		if !ok && r.report && len(r.sources) > 0 {
			r.fail("Type '%s' is not %s type '%s'.", c.TypeToString(source), r.relationVerb(), c.TypeToString(target))
		}
		if ok {
			return TernaryTrue
		}
		return TernaryFalse
	}
	if c.types.IsFresh(source) && c.types.Kind(source) == types.KindObject && r.rel != RelationComparable {
		if name, ok := r.c.excessProperty(source, target); ok {
			if r.report && r.excessProp == "" {
				r.excessProp, r.excessTarget, r.excessSource = name, target, source
			}
			return TernaryFalse
		}
	}
	res := r.unionOrIntersectionRelated(source, target)
	if res == TernaryFalse && r.report && len(r.sources) > 0 {
		r.fail("Type '%s' is not %s type '%s'.", c.TypeToString(source), r.relationVerb(), c.TypeToString(target))
	}
	return res
}

// simpleRelated answers the comparisons that need no structure: intrinsic
// and primitive types. known is false when structure must be compared.
func (c *Checker) simpleRelated(s, t types.TypeID, rel Relation) (ok, known bool) {
	sk, tk := c.types.Kind(s), c.types.Kind(t)
	if s == t {
		return true, true
	}
	if c.isMarkerPair(s, t) {
		return true, true
	}
	switch {
	case tk == types.KindAny:
		return true, true
	case tk == types.KindUnknown:
		return true, true
	case sk == types.KindNever:
		return true, true
	case sk == types.KindAny:
		if rel == RelationSubtype {
			return false, true
		}
		return tk != types.KindNever, true
	case sk == types.KindUnknown:
		return false, true
	case tk == types.KindNever:
		return false, true
	}
	strict := c.opts.StrictNullChecks
	switch sk {
	case types.KindUndefined:
		if !strict {
			return true, true
		}
		if tk == types.KindVoid {
			return true, true
		}
	case types.KindNull:
		if !strict {
			return true, true
		}
	}
	switch sk {
	case types.KindUndefined, types.KindNull, types.KindVoid:
		if tk == types.KindUnion || tk == types.KindIntersection || tk.IsGeneric() {
			return false, false
		}
		return false, true
	case types.KindStringLiteral, types.KindNumberLiteral, types.KindBooleanLiteral:
		if c.types.Flags(t)&types.FlagBoolean != 0 && sk == types.KindBooleanLiteral {
			return true, true
		}
		base := c.types.BaseOfLiteral(c.types.Regular(s))
		if c.types.Flags(s)&types.FlagEnumLiteral != 0 {
			switch sk {
			case types.KindNumberLiteral:
				base = c.b.Number
			case types.KindStringLiteral:
				base = c.b.String
			}
		}
		if base == t {
			return true, true
		}
		if rel == RelationComparable && tk.IsLiteral() {
			return false, true
		}
	case types.KindString, types.KindNumber:
		if rel == RelationComparable && tk.IsLiteral() && c.types.BaseOfLiteral(t) == s {
			return true, true
		}
		if tk.IsLiteral() || tk.IsPrimitive() || tk == types.KindNonPrimitive {
			return false, true
		}
	}
	if sk.IsPrimitive() && tk.IsPrimitive() {
		return false, true
	}
	if tk == types.KindNonPrimitive {
		switch {
		case sk.IsObjectLike() || sk == types.KindNonPrimitive:
			return true, true
		case sk.IsPrimitive():
			return false, true
		}
	}
	return false, false
}

func (r *relater) unionOrIntersectionRelated(s, t types.TypeID) Ternary {
	c := r.c
	sk, tk := c.types.Kind(s), c.types.Kind(t)
	switch {
	case sk == types.KindUnion:
		if r.rel == RelationComparable {
			return r.someSourceRelated(s, t)
		}
		return r.eachSourceRelated(s, t)
	case tk == types.KindUnion:
		return r.someTargetRelated(s, t)
	case tk == types.KindIntersection:
		res := TernaryTrue
		for _, m := range c.types.Members(t) {
			res = res.and(r.isRelatedTo(s, m))
			if res == TernaryFalse {
				return res
			}
		}
		return res
	case sk == types.KindIntersection:
		for _, m := range c.types.Members(s) {
			if r.quietly(m, t) != TernaryFalse {
				return TernaryTrue
			}
		}
	}
	return r.recursiveRelated(s, t)
}

func (r *relater) eachSourceRelated(s, t types.TypeID) Ternary {
	res := TernaryTrue
	for _, m := range r.c.types.Members(s) {
		res = res.and(r.isRelatedTo(m, t))
		if res == TernaryFalse {
			return res
		}
	}
	return res
}

func (r *relater) someSourceRelated(s, t types.TypeID) Ternary {
	for _, m := range r.c.types.Members(s) {
		if res := r.quietly(m, t); res != TernaryFalse {
			return res
		}
	}
	return TernaryFalse
}

func (r *relater) someTargetRelated(s, t types.TypeID) Ternary {
	c := r.c
	members := c.types.Members(t)
	if slices.Contains(members, s) {
		return TernaryTrue
	}
	if c.types.Flags(t)&types.FlagBoolean != 0 && c.types.Kind(s) == types.KindBooleanLiteral {
		return TernaryTrue
	}
	for _, m := range members {
		if res := r.quietly(s, m); res != TernaryFalse {
			return res
		}
	}
	// elaborate against the constituent with the same discriminant domain
	if r.report {
		if best := r.closestMember(s, members); best != types.NoTypeID {
			r.isRelatedTo(s, best)
		}
	}
	return TernaryFalse
}

// closestMember picks the object member of a target union worth
// elaborating against: the first object-like one.
func (r *relater) closestMember(s types.TypeID, members []types.TypeID) types.TypeID {
	if !r.c.types.Kind(s).IsObjectLike() {
		return types.NoTypeID
	}
	for _, m := range members {
		if r.c.types.Kind(m).IsObjectLike() {
			return m
		}
	}
	return types.NoTypeID
}

// quietly compares without recording elaborations.
func (r *relater) quietly(s, t types.TypeID) Ternary {
	report := r.report
	r.report = false
	res := r.isRelatedTo(s, t)
	r.report = report
	return res
}

// recursiveRelated guards structural comparison with the cache, the maybe
// stack and the depth limits.
func (r *relater) recursiveRelated(s, t types.TypeID) Ternary {
	c := r.c
	key := relationKey{s, t}
	cache := c.relations[r.rel]
	if res, ok := cache[key]; ok && (res != TernaryFalse || !r.report) {
		return res
	}
	for _, m := range r.maybe {
		if m.key == key {
			return TernaryMaybe
		}
	}
	if r.depth >= maxRelationDepth {
		r.overflow = true
		return TernaryFalse
	}
	if r.isDeeplyNested(s, r.sources) && r.isDeeplyNested(t, r.targets) {
		return TernaryMaybe
	}
	maybeStart := len(r.maybe)
	r.maybe = append(r.maybe, maybeEntry{key: key})
	r.sources = append(r.sources, s)
	r.targets = append(r.targets, t)
	r.depth++
	var res Ternary
	if r.rel == RelationIdentity {
		res = r.identicalStructure(s, t)
	} else {
		res = r.structuredRelated(s, t)
	}
	r.depth--
	r.sources = r.sources[:len(r.sources)-1]
	r.targets = r.targets[:len(r.targets)-1]
	switch {
	case res == TernaryFalse:
		cache[key] = TernaryFalse
		r.maybe = r.maybe[:maybeStart]
	case res == TernaryTrue || r.depth == 0:
		for _, m := range r.maybe[maybeStart:] {
			cache[m.key] = TernaryTrue
		}
		r.maybe = r.maybe[:maybeStart]
		res = TernaryTrue
	}
	return res
}

// isDeeplyNested reports whether t's recursion identity already occurs
// three times on the stack: an expanding generic type.
func (r *relater) isDeeplyNested(t types.TypeID, stack []types.TypeID) bool {
	id, ok := r.recursionIdentity(t)
	if !ok || len(stack) < 3 {
		return false
	}
	count := 0
	for _, s := range stack {
		if other, ok := r.recursionIdentity(s); ok && other == id {
			count++
			if count >= 3 {
				return true
			}
		}
	}
	return false
}

type recursionID struct {
	kind uint8
	id   uint32
}

func (r *relater) recursionIdentity(t types.TypeID) (recursionID, bool) {
	c := r.c
	switch c.types.Kind(t) {
	case types.KindReference:
		info, _ := c.types.ReferenceInfo(t)
		return recursionID{1, uint32(info.Target)}, true
	case types.KindObject:
		if sym := c.types.Symbol(t); sym.IsValid() && c.types.Flags(t)&types.FlagAnonymous != 0 {
			return recursionID{2, uint32(sym)}, true
		}
	case types.KindIndexedAccess, types.KindConditional, types.KindMapped:
		return recursionID{3, uint32(t)}, true
	}
	return recursionID{}, false
}

func (r *relater) structuredRelated(s, t types.TypeID) Ternary {
	c := r.c
	sk, tk := c.types.Kind(s), c.types.Kind(t)

	if tk == types.KindIndex {
		if target, ok := c.types.IndexTarget(t); ok {
			if constraint := c.baseConstraintOf(target); constraint != c.b.Unknown && constraint != target {
				if res := r.quietly(s, c.indexTypeOf(constraint)); res != TernaryFalse {
					return res
				}
			}
		}
	}
	if sk.IsGeneric() {
		if tk.IsGeneric() && sk == tk && sk != types.KindTypeParameter {
			if res := r.genericStructureRelated(s, t); res != TernaryFalse {
				return res
			}
		}
		constraint := c.baseConstraintOf(s)
		if constraint == c.b.Unknown || constraint == s {
			return r.fail("'%s' could be instantiated with an arbitrary type which could be unrelated to '%s'.", c.TypeToString(t), c.TypeToString(s))
		}
		return r.isRelatedTo(constraint, t)
	}
	if tk.IsGeneric() {
		if r.rel == RelationComparable && tk == types.KindTypeParameter {
			if constraint := c.baseConstraintOf(t); constraint != c.b.Unknown {
				return r.isRelatedTo(s, constraint)
			}
			return TernaryTrue
		}
		return TernaryFalse
	}
	if tk == types.KindMapped || sk == types.KindMapped {
		if sk == tk {
			return r.genericStructureRelated(s, t)
		}
		return TernaryFalse
	}
	if sa, sargs, ok := c.referenceArgs(s); ok {
		if ta, targs, ok := c.referenceArgs(t); ok && sa == ta {
			if variances := c.variancesOf(sa); variances != nil {
				if res := r.relateTypeArguments(sargs, targs, variances); res != TernaryFalse {
					return res
				}
				if !hasUnreliableVariance(variances) {
					return TernaryFalse
				}
			}
		}
	}
	if sa, ok := c.types.Alias(s); ok {
		if ta, ok := c.types.Alias(t); ok && sa.Symbol == ta.Symbol && len(sa.Args) > 0 && len(sa.Args) == len(ta.Args) {
			if variances := c.aliasVariancesOf(sa.Symbol); variances != nil {
				if res := r.relateTypeArguments(sa.Args, ta.Args, variances); res != TernaryFalse {
					return res
				}
				if !hasUnreliableVariance(variances) {
					return TernaryFalse
				}
			}
		}
	}
	if sk == types.KindArray || sk == types.KindTuple {
		if res, handled := r.arrayRelated(s, t); handled {
			return res
		}
	}
	if tk == types.KindTuple {
		return r.fail("Type '%s' is not a tuple type.", c.TypeToString(s))
	}
	if sk.IsPrimitive() && !tk.IsObjectLike() && tk != types.KindIntersection {
		return TernaryFalse
	}
	return r.membersRelated(c.apparentType(s), t)
}

// genericStructureRelated compares two deferred types of the same kind.
func (r *relater) genericStructureRelated(s, t types.TypeID) Ternary {
	c := r.c
	switch c.types.Kind(s) {
	case types.KindIndexedAccess:
		si, _ := c.types.AccessInfo(s)
		ti, _ := c.types.AccessInfo(t)
		return r.isRelatedTo(si.Object, ti.Object).and(r.isRelatedTo(si.Index, ti.Index))
	case types.KindIndex:
		st, _ := c.types.IndexTarget(s)
		tt, _ := c.types.IndexTarget(t)
		return r.isRelatedTo(tt, st)
	case types.KindConditional, types.KindMapped:
		si, _ := c.types.DeferredInfo(s)
		ti, _ := c.types.DeferredInfo(t)
		if si.Decl != ti.Decl {
			return TernaryFalse
		}
		sm, tm := c.mapperOf(si.Mapper), c.mapperOf(ti.Mapper)
		if len(sm.Sources) != len(tm.Sources) {
			return TernaryFalse
		}
		res := TernaryTrue
		for i := range sm.Sources {
			if sm.Sources[i] != tm.Sources[i] {
				return TernaryFalse
			}
			res = res.and(r.isRelatedTo(sm.Targets[i], tm.Targets[i]))
			if res == TernaryFalse {
				return res
			}
		}
		return res
	}
	return TernaryFalse
}

// referenceArgs views a generic interface and its instantiations uniformly.
func (c *Checker) referenceArgs(t types.TypeID) (types.TypeID, []types.TypeID, bool) {
	switch c.types.Kind(t) {
	case types.KindReference:
		info, _ := c.types.ReferenceInfo(t)
		return info.Target, info.Args, true
	case types.KindInterface:
		info, _ := c.types.InterfaceInfo(t)
		if len(info.TypeParams) > 0 {
			return t, info.TypeParams, true
		}
	}
	return types.NoTypeID, nil, false
}

func (r *relater) relateTypeArguments(sargs, targs []types.TypeID, variances []Variance) Ternary {
	if len(sargs) != len(targs) || len(sargs) != len(variances) {
		return TernaryFalse
	}
	res := TernaryTrue
	for i, v := range variances {
		s, t := sargs[i], targs[i]
		var rel Ternary
		switch v &^ VarianceUnreliable {
		case VarianceIndependent:
			rel = TernaryTrue
		case VarianceCovariant:
			rel = r.isRelatedTo(s, t)
		case VarianceContravariant:
			rel = r.isRelatedTo(t, s)
		case VarianceBivariant:
			rel = r.quietly(t, s)
			if rel == TernaryFalse {
				rel = r.isRelatedTo(s, t)
			}
		default:
			rel = r.isRelatedTo(s, t)
			if rel != TernaryFalse {
				rel = rel.and(r.isRelatedTo(t, s))
			}
		}
		res = res.and(rel)
		if res == TernaryFalse {
			return res
		}
	}
	return res
}

func (r *relater) arrayRelated(s, t types.TypeID) (Ternary, bool) {
	c := r.c
	tk := c.types.Kind(t)
	if tk != types.KindArray && tk != types.KindTuple {
		return TernaryFalse, false
	}
	if tk == types.KindArray {
		telem, _ := c.types.ArrayElem(t)
		if selem, ok := c.types.ArrayElem(s); ok {
			return r.isRelatedTo(selem, telem), true
		}
		res := TernaryTrue
		for _, e := range c.types.Members(s) {
			res = res.and(r.isRelatedTo(e, telem))
			if res == TernaryFalse {
				break
			}
		}
		return res, true
	}
	if c.types.Kind(s) != types.KindTuple {
		return r.fail("Type '%s' is not a tuple type.", c.TypeToString(s)), true
	}
	se, te := c.types.Members(s), c.types.Members(t)
	if len(se) != len(te) {
		return r.fail("Source has %d element(s) but target requires %d.", len(se), len(te)), true
	}
	res := TernaryTrue
	for i := range se {
		res = res.and(r.isRelatedTo(se[i], te[i]))
		if res == TernaryFalse {
			return r.fail("Type at position %d in source is not compatible with type at position %d in target.", i, i), true
		}
	}
	return res, true
}

// membersRelated is width subtyping: every required member of t must be
// matched by a related member of s.
func (r *relater) membersRelated(s, t types.TypeID) Ternary {
	c := r.c
	sst := c.resolveStructured(s)
	tst := c.resolveStructured(c.apparentType(t))
	res := TernaryTrue
	for _, tp := range tst.props {
		sp := sst.prop(tp.name)
		if sp == nil {
			if tp.flags&types.PropOptional != 0 {
				continue
			}
			if !r.report {
				return TernaryFalse
			}
			return r.fail("Property '%s' is missing in type '%s' but required in type '%s'.", tp.name, c.TypeToString(s), c.TypeToString(t))
		}
		if sp.flags&types.PropOptional != 0 && tp.flags&types.PropOptional == 0 && r.rel != RelationComparable {
			return r.fail("Property '%s' is optional in type '%s' but required in type '%s'.", tp.name, c.TypeToString(s), c.TypeToString(t))
		}
		related := r.isRelatedTo(c.typeOfProperty(sp), c.typeOfProperty(tp))
		if related == TernaryFalse {
			return r.fail("Types of property '%s' are incompatible.", tp.name)
		}
		res = res.and(related)
	}
	for _, construct := range []bool{false, true} {
		related := r.signaturesRelated(s, t, sst, tst, construct)
		if related == TernaryFalse {
			return related
		}
		res = res.and(related)
	}
	for _, tix := range tst.indexes {
		related := r.indexRelated(s, sst, tix)
		if related == TernaryFalse {
			return related
		}
		res = res.and(related)
	}
	return res
}

func (r *relater) indexRelated(s types.TypeID, sst *structured, tix types.IndexInfo) Ternary {
	c := r.c
	if six, ok := sst.index(tix.Key); ok {
		if res := r.isRelatedTo(six.Type, tix.Type); res != TernaryFalse {
			return res
		}
		return r.fail("'%s' index signatures are incompatible.", c.TypeToString(tix.Key))
	}
	if tix.Key == c.b.Number {
		if six, ok := sst.index(c.b.String); ok {
			if res := r.isRelatedTo(six.Type, tix.Type); res != TernaryFalse {
				return res
			}
			return r.fail("'%s' index signatures are incompatible.", c.TypeToString(tix.Key))
		}
	}
	if c.hasImplicitIndex(s) {
		res := TernaryTrue
		for _, p := range sst.props {
			if tix.Key == c.b.Number && !isNumericName(p.name) {
				continue
			}
			related := r.isRelatedTo(c.typeOfProperty(p), tix.Type)
			if related == TernaryFalse {
				return r.fail("Property '%s' is incompatible with index signature.", p.name)
			}
			res = res.and(related)
		}
		return res
	}
	return r.fail("Index signature for type '%s' is missing in type '%s'.", c.TypeToString(tix.Key), c.TypeToString(s))
}

// hasImplicitIndex reports object types other than class instances; they
// satisfy an index signature through their properties.
func (c *Checker) hasImplicitIndex(t types.TypeID) bool {
	if c.types.Kind(t) != types.KindObject {
		return false
	}
	return c.types.Flags(t)&types.FlagClass == 0
}

func (r *relater) signaturesRelated(s, t types.TypeID, sst, tst *structured, construct bool) Ternary {
	c := r.c
	targets, sources := tst.calls, sst.calls
	if construct {
		targets, sources = tst.constructs, sst.constructs
	}
	if len(targets) == 0 {
		return TernaryTrue
	}
	if len(sources) == 0 {
		kind := "call"
		if construct {
			kind = "construct"
		}
		return r.fail("Type '%s' provides no match for the %s signature of type '%s'.", c.TypeToString(s), kind, c.TypeToString(t))
	}
	res := TernaryTrue
	for _, ts := range targets {
		var found Ternary
		for _, ss := range sources {
			if found = r.signatureQuietly(ss, ts); found != TernaryFalse {
				break
			}
		}
		if found == TernaryFalse {
			if r.report && len(sources) == 1 && len(targets) == 1 {
				r.signatureRelated(sources[0], ts)
			}
			return TernaryFalse
		}
		res = res.and(found)
	}
	return res
}

func (r *relater) signatureQuietly(s, t types.SignatureID) Ternary {
	report := r.report
	r.report = false
	res := r.signatureRelated(s, t)
	r.report = report
	return res
}

// signatureRelated compares parameters contravariantly (bivariantly for
// methods or without strict function types) and returns covariantly.
func (r *relater) signatureRelated(sid, tid types.SignatureID) Ternary {
	c := r.c
	if sid == tid {
		return TernaryTrue
	}
	ts := c.types.Signature(tid)
	if len(c.types.Signature(sid).TypeParams) > 0 {
		sid = c.instantiateInContextOf(sid, tid)
	}
	ss := c.types.Signature(sid)
	if ss.MinArgs > ts.ParamCount() && !ts.HasRest() {
		return r.fail("Target signature provides too few arguments. Expected %d or more, but got %d.", ss.MinArgs, ts.ParamCount())
	}
	strict := c.opts.StrictFunctionTypes && ts.Flags&types.SigMethod == 0 && ss.Flags&types.SigMethod == 0 && ts.Flags&types.SigConstruct == 0
	res := TernaryTrue
	n := max(ss.ParamCount(), ts.ParamCount())
	if ss.HasRest() || ts.HasRest() {
		n = max(len(ss.Params), len(ts.Params))
	}
	for i := range n {
		sp, sok := c.paramTypeAt(ss, i)
		tp, tok := c.paramTypeAt(ts, i)
		if !sok || !tok {
			continue
		}
		if i < len(ss.Params) && ss.Params[i].Rest && i < len(ts.Params) && ts.Params[i].Rest {
			sp, tp = ss.Params[i].Type, ts.Params[i].Type
		}
		related := r.quietly(tp, sp)
		if related == TernaryFalse && !strict {
			related = r.quietly(sp, tp)
		}
		if related == TernaryFalse {
			if r.report {
				r.isRelatedTo(tp, sp)
			}
			return r.fail("Types of parameters '%s' and '%s' are incompatible.", paramName(ss, i), paramName(ts, i))
		}
		res = res.and(related)
	}
	tret := c.returnTypeOf(tid)
	if tret == c.b.Void || c.types.Kind(tret) == types.KindAny {
		return res
	}
	if ts.Predicate.Kind == types.PredicateIs && ss.Predicate.Kind != types.PredicateIs {
		return r.fail("Signature '%s' must be a type predicate.", c.signatureToString(sid))
	}
	sret := c.returnTypeOf(sid)
	if ts.Predicate.Kind == types.PredicateIs && ss.Predicate.Kind == types.PredicateIs {
		if ts.Predicate.Param != ss.Predicate.Param {
			return r.fail("Type predicate parameters do not match.")
		}
		sret, tret = ss.Predicate.Type, ts.Predicate.Type
	}
	related := r.isRelatedTo(sret, tret)
	if related == TernaryFalse {
		return r.fail("Type '%s' is not %s type '%s'.", c.TypeToString(sret), r.relationVerb(), c.TypeToString(tret))
	}
	return res.and(related)
}

func paramName(sig *types.Signature, i int) string {
	if i < len(sig.Params) {
		return sig.Params[i].Name
	}
	if sig.HasRest() {
		return sig.Params[len(sig.Params)-1].Name
	}
	return fmt.Sprintf("arg%d", i)
}

// instantiateInContextOf infers the type parameters of a generic source
// signature from the parameters of target.
func (c *Checker) instantiateInContextOf(sid, tid types.SignatureID) types.SignatureID {
	ss, ts := c.types.Signature(sid), c.types.Signature(tid)
	params := ss.TypeParams
	ctx := c.newInferenceContext(params, 0)
	n := min(ss.ParamCount(), ts.ParamCount())
	for i := range n {
		c.inferTypes(ctx, ts.Params[i].Type, ss.Params[i].Type, priorityDirect)
	}
	c.inferTypes(ctx, c.returnTypeOf(tid), c.returnTypeOf(sid), priorityReturn)
	return c.instantiateSignature(sid, c.newMapper(params, c.inferredTypes(ctx)))
}

// --- identity ---

func (r *relater) identityRelated(s, t types.TypeID) Ternary {
	c := r.c
	sk, tk := c.types.Kind(s), c.types.Kind(t)
	if sk != tk {
		return TernaryFalse
	}
	switch sk {
	case types.KindUnion, types.KindIntersection:
		sm, tm := c.types.Members(s), c.types.Members(t)
		if len(sm) != len(tm) {
			return TernaryFalse
		}
		res := TernaryTrue
		for _, m := range sm {
			found := TernaryFalse
			for _, o := range tm {
				if found = r.isRelatedTo(m, o); found != TernaryFalse {
					break
				}
			}
			res = res.and(found)
			if res == TernaryFalse {
				return res
			}
		}
		return res
	case types.KindObject, types.KindInterface, types.KindReference, types.KindArray, types.KindTuple:
		return r.recursiveRelated(s, t)
	}
	return TernaryFalse
}

// identicalStructure is the structural step of the identity relation.
func (r *relater) identicalStructure(s, t types.TypeID) Ternary {
	c := r.c
	switch c.types.Kind(s) {
	case types.KindArray:
		se, _ := c.types.ArrayElem(s)
		te, _ := c.types.ArrayElem(t)
		return r.isRelatedTo(se, te)
	case types.KindTuple:
		se, te := c.types.Members(s), c.types.Members(t)
		if len(se) != len(te) {
			return TernaryFalse
		}
		res := TernaryTrue
		for i := range se {
			if res = res.and(r.isRelatedTo(se[i], te[i])); res == TernaryFalse {
				return res
			}
		}
		return res
	}
	if sa, sargs, ok := c.referenceArgs(s); ok {
		if ta, targs, ok := c.referenceArgs(t); ok && sa == ta {
			res := TernaryTrue
			for i := range sargs {
				if res = res.and(r.isRelatedTo(sargs[i], targs[i])); res == TernaryFalse {
					return res
				}
			}
			return res
		}
	}
	sst, tst := c.resolveStructured(s), c.resolveStructured(t)
	if len(sst.props) != len(tst.props) || len(sst.calls) != len(tst.calls) ||
		len(sst.constructs) != len(tst.constructs) || len(sst.indexes) != len(tst.indexes) {
		return TernaryFalse
	}
	res := TernaryTrue
	for _, tp := range tst.props {
		sp := sst.prop(tp.name)
		if sp == nil || sp.flags&(types.PropOptional|types.PropReadonly) != tp.flags&(types.PropOptional|types.PropReadonly) {
			return TernaryFalse
		}
		if res = res.and(r.isRelatedTo(c.typeOfProperty(sp), c.typeOfProperty(tp))); res == TernaryFalse {
			return res
		}
	}
	pairs := [][2][]types.SignatureID{{sst.calls, tst.calls}, {sst.constructs, tst.constructs}}
	for _, p := range pairs {
		for i := range p[0] {
			if res = res.and(r.identicalSignatures(p[0][i], p[1][i])); res == TernaryFalse {
				return res
			}
		}
	}
	for _, tix := range tst.indexes {
		six, ok := sst.index(tix.Key)
		if !ok || six.Readonly != tix.Readonly {
			return TernaryFalse
		}
		if res = res.and(r.isRelatedTo(six.Type, tix.Type)); res == TernaryFalse {
			return res
		}
	}
	return res
}

func (r *relater) identicalSignatures(sid, tid types.SignatureID) Ternary {
	c := r.c
	ss, ts := c.types.Signature(sid), c.types.Signature(tid)
	if len(ss.Params) != len(ts.Params) || ss.MinArgs != ts.MinArgs || ss.HasRest() != ts.HasRest() || len(ss.TypeParams) != len(ts.TypeParams) {
		return TernaryFalse
	}
	if len(ss.TypeParams) > 0 {
		tid = c.instantiateSignature(tid, c.newMapper(ts.TypeParams, ss.TypeParams))
		ts = c.types.Signature(tid)
	}
	res := TernaryTrue
	for i := range ss.Params {
		if res = res.and(r.isRelatedTo(ss.Params[i].Type, ts.Params[i].Type)); res == TernaryFalse {
			return res
		}
	}
	return res.and(r.isRelatedTo(c.returnTypeOf(sid), c.returnTypeOf(tid)))
}
