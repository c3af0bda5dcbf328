package checker

import (
	"stc/internal/ast"
	"stc/internal/types"
)

// narrowType narrows t, the type of r before expr is evaluated, by the
// outcome of expr.
func (c *Checker) narrowType(r *flowRef, t types.TypeID, expr ast.NodeID, assumeTrue bool) types.TypeID {
	switch c.kind(expr) {
	case ast.KindIdentifier, ast.KindThisKeyword, ast.KindPropertyAccess, ast.KindElementAccess:
		return c.narrowByTruthiness(r, t, expr, assumeTrue)
	case ast.KindParenthesized, ast.KindNonNull:
		e, _ := c.nodes.Expr(expr)
		return c.narrowType(r, t, e.Left, assumeTrue)
	case ast.KindCall:
		return c.narrowByCall(r, t, expr, assumeTrue)
	case ast.KindPrefixUnary:
		if e, _ := c.nodes.Expr(expr); e.Op == ast.OpNot {
			return c.narrowType(r, t, e.Left, !assumeTrue)
		}
	case ast.KindBinary:
		return c.narrowByBinary(r, t, expr, assumeTrue)
	}
	return t
}

func (c *Checker) narrowByTruthiness(r *flowRef, t types.TypeID, expr ast.NodeID, assumeTrue bool) types.TypeID {
	if c.isMatchingReference(r, expr) {
		return c.filterByTruthiness(t, assumeTrue)
	}
	// `if (x.kind)` различает члены объединения по истинности свойства
	if c.kind(expr) == ast.KindPropertyAccess {
		e, _ := c.nodes.Expr(expr)
		if c.isMatchingReference(r, e.Left) {
			return c.narrowByDiscriminant(t, c.identText(e.Right), func(prop types.TypeID) types.TypeID {
				return c.filterByTruthiness(prop, assumeTrue)
			})
		}
	}
	return t
}

// filterByTruthiness drops the constituents that cannot be truthy (or
// falsy) at runtime.
func (c *Checker) filterByTruthiness(t types.TypeID, assumeTrue bool) types.TypeID {
	return c.types.Filter(t, func(m types.TypeID) bool {
		if assumeTrue {
			return !c.isAlwaysFalsy(m)
		}
		return c.canBeFalsy(m)
	})
}

func (c *Checker) isAlwaysFalsy(t types.TypeID) bool {
	switch c.types.Kind(t) {
	case types.KindNull, types.KindUndefined, types.KindVoid, types.KindNever:
		return true
	case types.KindStringLiteral, types.KindNumberLiteral, types.KindBooleanLiteral:
		lit, _ := c.types.Literal(t)
		return lit.Str == "" && lit.Num == 0 && !lit.Bool
	}
	return false
}

func (c *Checker) canBeFalsy(t types.TypeID) bool {
	k := c.types.Kind(t)
	switch {
	case k.IsLiteral():
		return c.isAlwaysFalsy(t)
	case k.IsObjectLike(), k == types.KindNonPrimitive:
		return false
	case k == types.KindIntersection:
		for _, m := range c.types.Members(t) {
			if !c.canBeFalsy(m) {
				return false
			}
		}
	}
	return true
}

func (c *Checker) narrowByBinary(r *flowRef, t types.TypeID, expr ast.NodeID, assumeTrue bool) types.TypeID {
	e, _ := c.nodes.Expr(expr)
	switch {
	case e.Op == ast.OpAndAnd:
		if assumeTrue {
			return c.narrowType(r, c.narrowType(r, t, e.Left, true), e.Right, true)
		}
		return c.types.UnionOf(
			c.narrowType(r, t, e.Left, false),
			c.narrowType(r, c.narrowType(r, t, e.Left, true), e.Right, false))
	case e.Op == ast.OpOrOr:
		if !assumeTrue {
			return c.narrowType(r, c.narrowType(r, t, e.Left, false), e.Right, false)
		}
		return c.types.UnionOf(
			c.narrowType(r, t, e.Left, true),
			c.narrowType(r, c.narrowType(r, t, e.Left, false), e.Right, true))
	case e.Op.IsAssignment():
		return c.narrowType(r, t, e.Left, assumeTrue)
	case e.Op.IsEquality():
		return c.narrowByEqualityExpr(r, t, e.Op, c.skipParens(e.Left), c.skipParens(e.Right), assumeTrue)
	case e.Op == ast.OpInstanceof:
		if !c.isMatchingReference(r, e.Left) {
			return t
		}
		return c.narrowByInstanceof(t, e.Right, assumeTrue)
	case e.Op == ast.OpIn:
		if c.kind(e.Left) != ast.KindStringLiteral || !c.isMatchingReference(r, e.Right) {
			return t
		}
		return c.narrowByIn(t, c.identText(e.Left), assumeTrue)
	}
	return t
}

func (c *Checker) narrowByEqualityExpr(r *flowRef, t types.TypeID, op ast.Op, left, right ast.NodeID, assumeTrue bool) types.TypeID {
	if op == ast.OpNotEq || op == ast.OpNotEqEq {
		assumeTrue = !assumeTrue
	}
	loose := op == ast.OpEqEq || op == ast.OpNotEq
	for range 2 {
		switch {
		case c.kind(left) == ast.KindTypeOf && c.kind(right) == ast.KindStringLiteral:
			e, _ := c.nodes.Expr(left)
			if c.isMatchingReference(r, c.skipParens(e.Left)) {
				return c.narrowByTypeof(t, c.identText(right), assumeTrue)
			}
		case isBoolLiteral(c.kind(right)) && !c.isMatchingReference(r, left):
			// x === true трактуется как условие x
			return c.narrowType(r, t, left, assumeTrue == (c.kind(right) == ast.KindTrueKeyword))
		case c.isMatchingReference(r, left):
			return c.narrowByEquality(t, c.types.Regular(c.checkExpression(right)), assumeTrue, loose)
		case c.kind(left) == ast.KindPropertyAccess:
			e, _ := c.nodes.Expr(left)
			if c.isMatchingReference(r, e.Left) {
				value := c.types.Regular(c.checkExpression(right))
				return c.narrowByDiscriminant(t, c.identText(e.Right), func(prop types.TypeID) types.TypeID {
					return c.narrowByEquality(prop, value, assumeTrue, loose)
				})
			}
		}
		left, right = right, left
	}
	return t
}

func isBoolLiteral(k ast.Kind) bool {
	return k == ast.KindTrueKeyword || k == ast.KindFalseKeyword
}

// narrowByEquality narrows t by `t === value` (or `==` when loose).
func (c *Checker) narrowByEquality(t, value types.TypeID, assumeTrue, loose bool) types.TypeID {
	if c.types.Kind(t) == types.KindAny {
		return t
	}
	vk := c.types.Kind(value)
	if loose && (vk == types.KindNull || vk == types.KindUndefined) {
		nullish := func(m types.TypeID) bool {
			k := c.types.Kind(m)
			return k == types.KindNull || k == types.KindUndefined || k == types.KindVoid
		}
		if assumeTrue {
			if c.types.Kind(t) == types.KindUnknown {
				return c.types.UnionOf(c.b.Null, c.b.Undefined)
			}
			return c.types.Filter(t, nullish)
		}
		return c.types.Filter(t, func(m types.TypeID) bool { return !nullish(m) })
	}
	unit := c.types.IsUnit(value)
	if !assumeTrue {
		if !unit {
			return t
		}
		return c.types.Filter(t, func(m types.TypeID) bool { return c.types.Regular(m) != value })
	}
	if c.types.Kind(t) == types.KindUnknown {
		if unit {
			return value
		}
		return t
	}
	filtered := c.types.Filter(t, func(m types.TypeID) bool {
		return c.isTypeComparableTo(m, value) || c.isTypeComparableTo(value, m)
	})
	if !unit {
		return filtered
	}
	return c.types.MapUnion(filtered, func(m types.TypeID) types.TypeID {
		if !c.types.IsUnit(m) && c.isTypeAssignableTo(value, m) {
			return value
		}
		return m
	})
}

// narrowByDiscriminant keeps the constituents of a union whose property
// name survives narrowProp.
func (c *Checker) narrowByDiscriminant(t types.TypeID, name string, narrowProp func(types.TypeID) types.TypeID) types.TypeID {
	if c.types.Kind(t) != types.KindUnion {
		return t
	}
	return c.types.Filter(t, func(m types.TypeID) bool {
		p := c.propertyOf(m, name)
		if p == nil {
			return true
		}
		return narrowProp(c.typeOfProperty(p)) != c.b.Never
	})
}

type typeofFact uint8

const (
	typeofNo typeofFact = iota
	typeofMaybe
	typeofYes
)

// typeofFactOf tells whether values of t can produce the typeof tag name.
func (c *Checker) typeofFactOf(t types.TypeID, name string) typeofFact {
	is := func(ok bool) typeofFact {
		if ok {
			return typeofYes
		}
		return typeofNo
	}
	switch k := c.types.Kind(t); k {
	case types.KindAny, types.KindUnknown:
		return typeofMaybe
	case types.KindString, types.KindStringLiteral:
		return is(name == "string")
	case types.KindNumber, types.KindNumberLiteral:
		return is(name == "number")
	case types.KindBooleanLiteral:
		return is(name == "boolean")
	case types.KindUndefined, types.KindVoid:
		return is(name == "undefined")
	case types.KindNull:
		return is(name == "object")
	case types.KindNonPrimitive:
		if name == "object" || name == "function" {
			return typeofMaybe
		}
		return typeofNo
	case types.KindIntersection:
		all := typeofYes
		for _, m := range c.types.Members(t) {
			f := c.typeofFactOf(m, name)
			if f == typeofNo {
				return typeofNo
			}
			all = min(all, f)
		}
		return all
	default:
		if k.IsGeneric() {
			base := c.baseConstraintOf(t)
			if base == t || c.types.Kind(base) == types.KindUnknown {
				return typeofMaybe
			}
			best := typeofNo
			for _, m := range c.types.Constituents(base) {
				best = max(best, c.typeofFactOf(m, name))
			}
			return best
		}
		if k.IsObjectLike() {
			st := c.resolveStructured(t)
			if len(st.calls) > 0 || len(st.constructs) > 0 {
				return is(name == "function")
			}
			if len(st.props) == 0 && len(st.indexes) == 0 && k == types.KindObject {
				// {} принимает и примитивы
				return typeofMaybe
			}
			return is(name == "object")
		}
	}
	return typeofNo
}

// typeofImplied is the type a `typeof x === name` test proves for a
// constituent that only maybe matched.
func (c *Checker) typeofImplied(t types.TypeID, name string) types.TypeID {
	var implied types.TypeID
	switch name {
	case "string":
		implied = c.b.String
	case "number":
		implied = c.b.Number
	case "boolean":
		implied = c.b.Boolean
	case "undefined":
		implied = c.b.Undefined
	case "object":
		if c.types.Kind(t) == types.KindAny {
			return t
		}
		implied = c.types.UnionOf(c.b.Object, c.b.Null)
	default:
		return t
	}
	switch c.types.Kind(t) {
	case types.KindAny, types.KindUnknown:
		return implied
	}
	return c.types.IntersectionOf(t, implied)
}

func (c *Checker) narrowByTypeof(t types.TypeID, name string, assumeTrue bool) types.TypeID {
	if assumeTrue {
		return c.types.MapUnion(t, func(m types.TypeID) types.TypeID {
			switch c.typeofFactOf(m, name) {
			case typeofYes:
				return m
			case typeofMaybe:
				return c.typeofImplied(m, name)
			}
			return c.b.Never
		})
	}
	return c.types.Filter(t, func(m types.TypeID) bool {
		return c.typeofFactOf(m, name) != typeofYes
	})
}

// narrowBySwitchTypeof narrows by the typeof tags of the selected clauses.
// With a default clause in range, the tags of the other clauses are
// excluded instead.
func (c *Checker) narrowBySwitchTypeof(t types.TypeID, in, out []string, hasDefault bool) types.TypeID {
	if hasDefault {
		rest := t
		for _, name := range out {
			rest = c.narrowByTypeof(rest, name, false)
		}
		parts := []types.TypeID{rest}
		for _, name := range in {
			parts = append(parts, c.narrowByTypeof(t, name, true))
		}
		return c.types.Union(parts)
	}
	parts := make([]types.TypeID, 0, len(in))
	for _, name := range in {
		parts = append(parts, c.narrowByTypeof(t, name, true))
	}
	return c.types.Union(parts)
}

func (c *Checker) narrowBySwitchValues(t types.TypeID, in, out []types.TypeID, hasDefault bool) types.TypeID {
	parts := make([]types.TypeID, 0, len(in)+1)
	for _, v := range in {
		parts = append(parts, c.narrowByEquality(t, v, true, false))
	}
	if hasDefault {
		rest := t
		for _, v := range out {
			rest = c.narrowByEquality(rest, v, false, false)
		}
		parts = append(parts, rest)
	}
	return c.types.Union(parts)
}

// narrowByInstanceof narrows to the instance type of a constructor.
func (c *Checker) narrowByInstanceof(t types.TypeID, ctor ast.NodeID, assumeTrue bool) types.TypeID {
	ctorType := c.checkExpression(ctor)
	sigs := c.signaturesOf(ctorType, true)
	if len(sigs) == 0 {
		return t
	}
	instances := make([]types.TypeID, len(sigs))
	for i, s := range sigs {
		instances[i] = c.returnTypeOf(c.erasedSignature(s))
	}
	return c.narrowToType(t, c.types.Union(instances), assumeTrue)
}

// narrowToType narrows t to candidate, as type predicates and instanceof
// do. Constituents that are subtypes of candidate are kept; otherwise the
// candidate itself (or its intersection with t) is the result.
func (c *Checker) narrowToType(t, candidate types.TypeID, assumeTrue bool) types.TypeID {
	if !assumeTrue {
		return c.types.Filter(t, func(m types.TypeID) bool { return !c.isTypeSubtypeOf(m, candidate) })
	}
	switch c.types.Kind(t) {
	case types.KindAny, types.KindUnknown:
		return candidate
	}
	narrowed := c.types.Filter(t, func(m types.TypeID) bool { return c.isTypeSubtypeOf(m, candidate) })
	if narrowed != c.b.Never {
		return narrowed
	}
	if c.isTypeAssignableTo(candidate, t) {
		return candidate
	}
	return c.types.IntersectionOf(t, candidate)
}

// narrowByIn keeps constituents where `"name" in x` can hold (or fail).
func (c *Checker) narrowByIn(t types.TypeID, name string, assumeTrue bool) types.TypeID {
	return c.types.Filter(t, func(m types.TypeID) bool {
		if !c.types.Kind(m).IsObjectLike() {
			return true
		}
		if p := c.propertyOf(m, name); p != nil {
			return p.flags&types.PropOptional != 0 || assumeTrue
		}
		if _, ok := c.resolveStructured(m).index(c.b.String); ok {
			return true
		}
		return !assumeTrue
	})
}

// narrowByCall applies a `x is T` or `this is T` signature.
func (c *Checker) narrowByCall(r *flowRef, t types.TypeID, call ast.NodeID, assumeTrue bool) types.TypeID {
	cd, _ := c.nodes.Call(call)
	var target ast.NodeID
	if c.kind(cd.Expr) == ast.KindPropertyAccess {
		e, _ := c.nodes.Expr(cd.Expr)
		target = e.Left
	}
	mentioned := target.IsValid() && c.isMatchingReference(r, target)
	for _, a := range cd.Args {
		mentioned = mentioned || c.isMatchingReference(r, a)
	}
	if !mentioned {
		return t
	}
	sig := c.types.Signature(c.resolvedSignature(call))
	if sig == nil {
		return t
	}
	pred := sig.Predicate
	switch pred.Kind {
	case types.PredicateIs:
		if pred.Param < len(cd.Args) && c.isMatchingReference(r, cd.Args[pred.Param]) {
			return c.narrowToType(t, pred.Type, assumeTrue)
		}
	case types.PredicateThis:
		if target.IsValid() && c.isMatchingReference(r, target) {
			return c.narrowToType(t, pred.Type, assumeTrue)
		}
	}
	return t
}
