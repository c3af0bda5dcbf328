package checker

import (
	"slices"

	"stc/internal/symbols"
	"stc/internal/types"
)

// widenLiteral replaces every literal constituent of t with its base
// primitive. Enum literals widen to their enum.
func (c *Checker) widenLiteral(t types.TypeID) types.TypeID {
	return c.types.MapUnion(t, func(m types.TypeID) types.TypeID {
		if !c.types.Kind(m).IsLiteral() {
			return m
		}
		if c.types.Flags(m)&types.FlagEnumLiteral != 0 {
			if parent := c.syms.Get(c.types.Symbol(m)).Parent; parent.IsValid() {
				return c.declaredTypeOfSymbol(parent)
			}
		}
		return c.types.BaseOfLiteral(m)
	})
}

// widenFreshLiteral widens only the fresh literals of t, those that came
// straight from a literal expression.
func (c *Checker) widenFreshLiteral(t types.TypeID) types.TypeID {
	return c.types.MapUnion(t, func(m types.TypeID) types.TypeID {
		if c.types.Kind(m).IsLiteral() && c.types.IsFresh(m) {
			return c.widenLiteral(m)
		}
		return m
	})
}

// widenForDeclaration computes the type of an unannotated binding from its
// initializer. Const bindings keep literal types.
func (c *Checker) widenForDeclaration(t types.TypeID, isConst bool) types.TypeID {
	if isConst {
		return c.types.Regular(c.widenType(t))
	}
	return c.widenType(c.widenFreshLiteral(t))
}

// widenType erases literal freshness in object literals and, without
// strict null checks, widens null and undefined to any.
func (c *Checker) widenType(t types.TypeID) types.TypeID {
	switch c.types.Kind(t) {
	case types.KindNull, types.KindUndefined:
		if !c.opts.StrictNullChecks {
			return c.b.Any
		}
	case types.KindUnion:
		members := c.types.Members(t)
		out := make([]types.TypeID, len(members))
		changed := false
		for i, m := range members {
			out[i] = c.widenType(m)
			changed = changed || out[i] != m
		}
		if changed {
			return c.types.Union(out)
		}
	case types.KindArray:
		elem, _ := c.types.ArrayElem(t)
		if w := c.widenType(c.widenFreshLiteral(elem)); w != elem {
			return c.types.Array(w)
		}
	case types.KindObject:
		if c.types.Flags(t)&types.FlagObjectLiteral != 0 {
			return c.widenObjectLiteral(t)
		}
	}
	return c.types.Regular(t)
}

func (c *Checker) widenObjectLiteral(t types.TypeID) types.TypeID {
	shape := c.types.Shape(t)
	if shape == nil {
		return t
	}
	props := slices.Clone(shape.Props)
	for i, p := range props {
		props[i].Type = c.widenType(c.widenFreshLiteral(p.Type))
	}
	widened := &types.Shape{Props: props, Calls: shape.Calls, Constructs: shape.Constructs, Indexes: shape.Indexes}
	return c.types.Object(widened, types.FlagObjectLiteral, symbols.NoSymbolID)
}

// containsLiteralLike reports whether a contextual type asks for literal
// precision: it names literals or type parameters.
func (c *Checker) containsLiteralLike(t types.TypeID) bool {
	for _, m := range c.types.Constituents(t) {
		k := c.types.Kind(m)
		if k.IsLiteral() || k == types.KindTypeParameter || k == types.KindIndex {
			return true
		}
		if k.IsGeneric() {
			if base := c.baseConstraintOf(m); base != m && c.containsLiteralLike(base) {
				return true
			}
		}
	}
	return false
}

// isLiteralContext reports whether a literal checked against contextual
// keeps its literal type.
func (c *Checker) isLiteralContext(lit, contextual types.TypeID) bool {
	if contextual == types.NoTypeID {
		return false
	}
	for _, m := range c.types.Constituents(contextual) {
		k := c.types.Kind(m)
		switch {
		case k == types.KindTypeParameter || k == types.KindIndex:
			return true
		case k.IsLiteral() && c.types.BaseOfLiteral(m) == c.types.BaseOfLiteral(lit):
			return true
		case k.IsGeneric():
			if base := c.baseConstraintOf(m); base != m && c.isLiteralContext(lit, base) {
				return true
			}
		}
	}
	return false
}
