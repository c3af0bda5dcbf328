package checker

import (
	"slices"

	"stc/internal/types"
)

// inferencePriority ranks candidate sources; lower wins. Candidates of a
// lower priority replace those of a higher one.
type inferencePriority uint8

const (
	priorityDirect inferencePriority = iota
	priorityPartial
	priorityReturn
	priorityNone inferencePriority = 255
)

type inferenceFlags uint8

const (
	// inferNoDefaults leaves uninferred parameters as unknown.
	inferNoDefaults inferenceFlags = 1 << iota
	// inferNoWiden keeps literal candidates.
	inferNoWiden
)

type inferenceInfo struct {
	param    types.TypeID
	covar    []types.TypeID
	contra   []types.TypeID
	priority inferencePriority
	inferred types.TypeID
}

type inferenceContext struct {
	params []types.TypeID
	infos  []*inferenceInfo
	flags  inferenceFlags

	visited map[[2]types.TypeID]bool
	contra  bool
	prio    inferencePriority
	depth   int
}

const maxInferenceDepth = 20

func (c *Checker) newInferenceContext(params []types.TypeID, flags inferenceFlags) *inferenceContext {
	ctx := &inferenceContext{params: params, flags: flags}
	ctx.infos = make([]*inferenceInfo, len(params))
	for i, p := range params {
		ctx.infos[i] = &inferenceInfo{param: p, priority: priorityNone}
	}
	return ctx
}

func (ctx *inferenceContext) info(t types.TypeID) *inferenceInfo {
	for _, info := range ctx.infos {
		if info.param == t {
			return info
		}
	}
	return nil
}

// inferTypes collects candidates for ctx's parameters by walking source
// (an argument type) and target (a pattern over the parameters) in lockstep.
func (c *Checker) inferTypes(ctx *inferenceContext, source, target types.TypeID, priority inferencePriority) {
	if source == types.NoTypeID || target == types.NoTypeID {
		return
	}
	saved := ctx.prio
	ctx.prio = priority
	ctx.visited = nil
	c.inferDepth++
	defer func() {
		c.inferDepth--
		ctx.prio = saved
	}()
	c.inferFrom(ctx, source, target)
}

func (c *Checker) inferFrom(ctx *inferenceContext, source, target types.TypeID) {
	if source == target || !c.couldContainTypeVariables(target) {
		return
	}
	if info := ctx.info(target); info != nil {
		c.addCandidate(ctx, info, source)
		return
	}
	if ctx.depth >= maxInferenceDepth {
		return
	}
	key := [2]types.TypeID{source, target}
	if ctx.visited[key] {
		return
	}
	if ctx.visited == nil {
		ctx.visited = make(map[[2]types.TypeID]bool)
	}
	ctx.visited[key] = true
	ctx.depth++
	defer func() { ctx.depth-- }()
	c.tick()

	sk, tk := c.types.Kind(source), c.types.Kind(target)
	switch {
	case tk == types.KindUnion:
		c.inferToUnion(ctx, source, target)
		return
	case tk == types.KindIntersection:
		for _, m := range c.types.Members(target) {
			c.inferFrom(ctx, source, m)
		}
		return
	case sk == types.KindUnion:
		for _, m := range c.types.Members(source) {
			c.inferFrom(ctx, m, target)
		}
		return
	}

	switch tk {
	case types.KindIndexedAccess:
		if sk == types.KindIndexedAccess {
			si, _ := c.types.AccessInfo(source)
			ti, _ := c.types.AccessInfo(target)
			c.inferFrom(ctx, si.Object, ti.Object)
			c.inferFrom(ctx, si.Index, ti.Index)
		}
		return
	case types.KindIndex:
		if sk == types.KindIndex {
			st, _ := c.types.IndexTarget(source)
			tt, _ := c.types.IndexTarget(target)
			c.withContra(ctx, func() { c.inferFrom(ctx, st, tt) })
		}
		return
	case types.KindConditional:
		info, _ := c.types.DeferredInfo(target)
		e, _ := c.nodes.Expr(info.Decl)
		saved := ctx.prio
		ctx.prio = max(ctx.prio, priorityPartial)
		c.inferFrom(ctx, source, c.instantiate(c.typeFromTypeNode(e.Then), info.Mapper))
		c.inferFrom(ctx, source, c.instantiate(c.typeFromTypeNode(e.Else), info.Mapper))
		ctx.prio = saved
		return
	case types.KindMapped:
		c.inferToMapped(ctx, source, target)
		return
	}

	if sa, sargs, ok := c.referenceArgs(source); ok {
		if ta, targs, ok := c.referenceArgs(target); ok && sa == ta && len(sargs) == len(targs) {
			variances := c.variancesOf(sa)
			for i := range sargs {
				if variances != nil && variances[i]&^VarianceUnreliable == VarianceContravariant {
					c.withContra(ctx, func() { c.inferFrom(ctx, sargs[i], targs[i]) })
					continue
				}
				c.inferFrom(ctx, sargs[i], targs[i])
			}
			return
		}
	}
	if sa, ok := c.types.Alias(source); ok {
		if ta, ok := c.types.Alias(target); ok && sa.Symbol == ta.Symbol && len(sa.Args) == len(ta.Args) {
			for i := range sa.Args {
				c.inferFrom(ctx, sa.Args[i], ta.Args[i])
			}
			return
		}
	}
	switch tk {
	case types.KindArray:
		telem, _ := c.types.ArrayElem(target)
		switch sk {
		case types.KindArray:
			selem, _ := c.types.ArrayElem(source)
			c.inferFrom(ctx, selem, telem)
			return
		case types.KindTuple:
			for _, e := range c.types.Members(source) {
				c.inferFrom(ctx, e, telem)
			}
			return
		}
	case types.KindTuple:
		if sk == types.KindTuple {
			se, te := c.types.Members(source), c.types.Members(target)
			for i := range min(len(se), len(te)) {
				c.inferFrom(ctx, se[i], te[i])
			}
			return
		}
		if sk == types.KindArray {
			selem, _ := c.types.ArrayElem(source)
			for _, e := range c.types.Members(target) {
				c.inferFrom(ctx, selem, e)
			}
			return
		}
	}
	if tk.IsObjectLike() {
		c.inferFromObjects(ctx, c.apparentType(source), target)
	}
}

func (c *Checker) withContra(ctx *inferenceContext, fn func()) {
	ctx.contra = !ctx.contra
	fn()
	ctx.contra = !ctx.contra
}

func (c *Checker) addCandidate(ctx *inferenceContext, info *inferenceInfo, candidate types.TypeID) {
	if info.inferred != types.NoTypeID {
		return
	}
	if ctx.prio < info.priority {
		info.covar, info.contra = nil, nil
		info.priority = ctx.prio
	}
	if ctx.prio != info.priority {
		return
	}
	if ctx.contra {
		if !slices.Contains(info.contra, candidate) {
			info.contra = append(info.contra, candidate)
		}
		return
	}
	if !slices.Contains(info.covar, candidate) {
		info.covar = append(info.covar, candidate)
	}
}

// inferToUnion matches identical constituents first, then infers the
// remainder of source to a single naked type parameter.
func (c *Checker) inferToUnion(ctx *inferenceContext, source, target types.TypeID) {
	var naked []types.TypeID
	var others []types.TypeID
	for _, m := range c.types.Members(target) {
		if ctx.info(m) != nil {
			naked = append(naked, m)
		} else {
			others = append(others, m)
		}
	}
	sources := c.types.Constituents(source)
	var rest []types.TypeID
	for _, s := range sources {
		matched := false
		for _, o := range others {
			if c.types.Regular(s) == o {
				matched = true
				break
			}
		}
		if !matched {
			rest = append(rest, s)
		}
	}
	for _, o := range others {
		if c.couldContainTypeVariables(o) {
			for _, s := range rest {
				c.inferFrom(ctx, s, o)
			}
		}
	}
	if len(naked) == 1 && len(rest) > 0 {
		c.inferFrom(ctx, c.types.Union(rest), naked[0])
	}
}

// inferToMapped infers T from a source object for `{ [K in keyof T]: T[K] }`
// shaped targets, and the template from every source property otherwise.
func (c *Checker) inferToMapped(ctx *inferenceContext, source, target types.TypeID) {
	info, _ := c.types.DeferredInfo(target)
	e, _ := c.nodes.Expr(info.Decl)
	tpd, _ := c.nodes.TypeParam(e.Left)
	constraint := c.instantiate(c.typeFromTypeNode(tpd.Constraint), info.Mapper)
	if inner, ok := c.types.IndexTarget(constraint); ok {
		if ctx.info(inner) != nil {
			saved := ctx.prio
			ctx.prio = max(ctx.prio, priorityPartial)
			c.inferFrom(ctx, source, inner)
			ctx.prio = saved
			return
		}
	}
	if ctx.info(constraint) != nil {
		var keys []types.TypeID
		for _, p := range c.propertiesOf(source) {
			keys = append(keys, c.types.StringLiteral(p.name))
		}
		c.inferFrom(ctx, c.types.Union(keys), constraint)
	}
	template := c.instantiate(c.typeFromTypeNode(e.Right), info.Mapper)
	for _, p := range c.propertiesOf(source) {
		c.inferFrom(ctx, c.typeOfProperty(p), template)
	}
}

func (c *Checker) inferFromObjects(ctx *inferenceContext, source, target types.TypeID) {
	sst := c.resolveStructured(source)
	tst := c.resolveStructured(target)
	for _, tp := range tst.props {
		if sp := sst.prop(tp.name); sp != nil {
			c.inferFrom(ctx, c.typeOfProperty(sp), c.typeOfProperty(tp))
		}
	}
	c.inferFromSignatureLists(ctx, sst.calls, tst.calls)
	c.inferFromSignatureLists(ctx, sst.constructs, tst.constructs)
	for _, tix := range tst.indexes {
		if six, ok := sst.index(tix.Key); ok {
			c.inferFrom(ctx, six.Type, tix.Type)
			continue
		}
		if tix.Key == c.b.String && c.hasImplicitIndex(source) {
			var ts []types.TypeID
			for _, p := range sst.props {
				ts = append(ts, c.typeOfProperty(p))
			}
			if len(ts) > 0 {
				c.inferFrom(ctx, c.types.Union(ts), tix.Type)
			}
		}
	}
}

// inferFromSignatureLists pairs the trailing signatures of both lists.
func (c *Checker) inferFromSignatureLists(ctx *inferenceContext, sources, targets []types.SignatureID) {
	n := min(len(sources), len(targets))
	for i := range n {
		s := sources[len(sources)-n+i]
		t := targets[len(targets)-n+i]
		c.inferFromSignature(ctx, c.baseSignature(s), t)
	}
}

func (c *Checker) inferFromSignature(ctx *inferenceContext, sid, tid types.SignatureID) {
	ss, ts := c.types.Signature(sid), c.types.Signature(tid)
	n := max(ss.ParamCount(), ts.ParamCount())
	c.withContra(ctx, func() {
		for i := range n {
			sp, sok := c.paramTypeAt(ss, i)
			tp, tok := c.paramTypeAt(ts, i)
			if sok && tok {
				c.inferFrom(ctx, sp, tp)
			}
		}
	})
	if ts.Predicate.Kind == types.PredicateIs && ss.Predicate.Kind == types.PredicateIs {
		c.inferFrom(ctx, ss.Predicate.Type, ts.Predicate.Type)
		return
	}
	c.inferFrom(ctx, c.returnTypeOf(sid), c.returnTypeOf(tid))
}

// baseSignature replaces a signature's own type parameters with their
// constraints.
func (c *Checker) baseSignature(id types.SignatureID) types.SignatureID {
	sig := c.types.Signature(id)
	if len(sig.TypeParams) == 0 {
		return id
	}
	params := sig.TypeParams
	bases := make([]types.TypeID, len(params))
	for i, p := range params {
		bases[i] = c.b.Unknown
		if cons := c.constraintOf(p); cons != types.NoTypeID {
			bases[i] = cons
		}
	}
	return c.instantiateSignature(id, c.newMapper(params, bases))
}

// --- results ---

// inferredType fixes the inference for parameter i. Covariant candidates
// are united and widened, contravariant ones intersected. Without
// candidates the default, then the constraint, then unknown is used.
func (c *Checker) inferredType(ctx *inferenceContext, i int) types.TypeID {
	info := ctx.infos[i]
	if info.inferred != types.NoTypeID {
		return info.inferred
	}
	var t types.TypeID
	constraint := c.constraintOf(info.param)
	switch {
	case len(info.covar) > 0:
		t = c.types.Union(info.covar)
		if ctx.flags&inferNoWiden == 0 && !c.hasPrimitiveConstraint(info.param) {
			t = c.widenType(c.widenFreshLiteral(t))
		} else {
			t = c.types.Regular(t)
		}
	case len(info.contra) > 0:
		t = c.types.Intersection(info.contra)
	case ctx.flags&inferNoDefaults != 0:
		t = c.b.Unknown
	default:
		// a partially built mapper lets defaults refer to earlier parameters
		info.inferred = c.b.Unknown
		if d := c.defaultOf(info.param); d != types.NoTypeID {
			t = c.instantiate(d, c.contextMapper(ctx))
		} else if constraint != types.NoTypeID {
			t = c.instantiate(constraint, c.contextMapper(ctx))
		} else {
			t = c.b.Unknown
		}
	}
	info.inferred = t
	if constraint != types.NoTypeID {
		bound := c.instantiate(constraint, c.contextMapper(ctx))
		if !c.isTypeAssignableTo(t, bound) {
			info.inferred = bound
		}
	}
	return info.inferred
}

// inferredTypeNoWiden is the candidate union used by `infer` positions.
func (c *Checker) inferredTypeNoWiden(info *inferenceInfo) types.TypeID {
	switch {
	case len(info.covar) > 0:
		return c.types.Regular(c.types.Union(info.covar))
	case len(info.contra) > 0:
		return c.types.Intersection(info.contra)
	}
	if cons := c.constraintOf(info.param); cons != types.NoTypeID {
		return cons
	}
	return c.b.Unknown
}

func (c *Checker) inferredTypes(ctx *inferenceContext) []types.TypeID {
	out := make([]types.TypeID, len(ctx.infos))
	for i := range ctx.infos {
		out[i] = c.inferredType(ctx, i)
	}
	return out
}

// contextMapper maps every parameter to its current inference; unfixed
// parameters map to themselves.
func (c *Checker) contextMapper(ctx *inferenceContext) types.MapperID {
	targets := make([]types.TypeID, len(ctx.infos))
	for i, info := range ctx.infos {
		targets[i] = info.param
		if info.inferred != types.NoTypeID {
			targets[i] = info.inferred
		}
	}
	return c.newMapper(ctx.params, targets)
}

func (c *Checker) hasPrimitiveConstraint(param types.TypeID) bool {
	cons := c.constraintOf(param)
	if cons == types.NoTypeID {
		return false
	}
	for _, m := range c.types.Constituents(c.baseConstraintOf(cons)) {
		k := c.types.Kind(m)
		if k.IsPrimitive() || c.types.Flags(m)&types.FlagBoolean != 0 {
			return true
		}
	}
	return false
}
