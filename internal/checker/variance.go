package checker

import (
	"stc/internal/ast"
	"stc/internal/symbols"
	"stc/internal/types"
)

// Variance describes how a type parameter's position relates instantiations.
type Variance uint8

const (
	VarianceInvariant     Variance = 0
	VarianceCovariant     Variance = 1
	VarianceContravariant Variance = 2
	VarianceBivariant     Variance = VarianceCovariant | VarianceContravariant
	VarianceIndependent   Variance = 4
	// VarianceUnreliable marks a measurement that crossed a deferred type.
	VarianceUnreliable Variance = 8
)

func (v Variance) String() string {
	var s string
	switch v &^ VarianceUnreliable {
	case VarianceInvariant:
		s = "invariant"
	case VarianceCovariant:
		s = "covariant"
	case VarianceContravariant:
		s = "contravariant"
	case VarianceBivariant:
		s = "bivariant"
	case VarianceIndependent:
		s = "independent"
	}
	if v&VarianceUnreliable != 0 {
		s += " (unreliable)"
	}
	return s
}

type varianceLinks struct {
	computing bool
	interfaces []Variance
	aliases    []Variance
	aliasDone  bool
	ifaceDone  bool
}

func (c *Checker) varianceLink(sym symbols.SymbolID) *varianceLinks {
	l, ok := c.variances[sym]
	if !ok {
		l = &varianceLinks{}
		c.variances[sym] = l
	}
	return l
}

// markers returns the super, sub and unrelated marker types. The sub marker
// is related to the super marker and nothing else.
func (c *Checker) markers() (super, sub, other types.TypeID) {
	if c.markerSuper == types.NoTypeID {
		c.markerSuper = c.types.Marker(symbols.NoSymbolID, 0)
		c.markerSub = c.types.Marker(symbols.NoSymbolID, 0)
		c.markerOther = c.types.Marker(symbols.NoSymbolID, 0)
		c.markerNames[c.markerSuper] = "Super"
		c.markerNames[c.markerSub] = "Sub"
		c.markerNames[c.markerOther] = "Other"
	}
	return c.markerSuper, c.markerSub, c.markerOther
}

func (c *Checker) isMarkerPair(s, t types.TypeID) bool {
	return s != types.NoTypeID && s == c.markerSub && t == c.markerSuper
}

// variancesOf measures the variance of each type parameter of a generic
// interface or class target. It returns nil while the measurement for that
// target is running.
func (c *Checker) variancesOf(target types.TypeID) []Variance {
	sym := c.types.Symbol(target)
	l := c.varianceLink(sym)
	if l.ifaceDone {
		return l.interfaces
	}
	if l.computing {
		return nil
	}
	info, _ := c.types.InterfaceInfo(target)
	params := info.TypeParams
	l.computing = true
	c.onAbort(func() { l.computing = false })
	l.interfaces = c.measureVariances(params, func(args []types.TypeID) types.TypeID {
		return c.types.Reference(target, args)
	})
	l.computing = false
	l.ifaceDone = true
	c.trace("variance", c.symbolName(sym))
	return l.interfaces
}

// aliasVariancesOf measures the variance of a generic type alias through
// instantiations of its body.
func (c *Checker) aliasVariancesOf(sym symbols.SymbolID) []Variance {
	l := c.varianceLink(sym)
	if l.aliasDone {
		return l.aliases
	}
	if l.computing {
		return nil
	}
	params := c.localTypeParams(sym)
	if len(params) == 0 {
		return nil
	}
	l.computing = true
	c.onAbort(func() { l.computing = false })
	l.aliases = c.measureVariances(params, func(args []types.TypeID) types.TypeID {
		return c.aliasInstantiation(sym, args)
	})
	l.computing = false
	l.aliasDone = true
	return l.aliases
}

func (c *Checker) measureVariances(params []types.TypeID, instantiate func([]types.TypeID) types.TypeID) []Variance {
	super, sub, other := c.markers()
	out := make([]Variance, len(params))
	for i, p := range params {
		if v, ok := c.annotatedVariance(p); ok {
			out[i] = v
			continue
		}
		with := func(marker types.TypeID) types.TypeID {
			args := make([]types.TypeID, len(params))
			copy(args, params)
			args[i] = marker
			return instantiate(args)
		}
		withSuper, withSub := with(super), with(sub)
		var v Variance
		if c.isTypeAssignableTo(withSub, withSuper) {
			v |= VarianceCovariant
		}
		if c.isTypeAssignableTo(withSuper, withSub) {
			v |= VarianceContravariant
		}
		if v == VarianceBivariant && c.isTypeAssignableTo(with(other), withSuper) {
			v = VarianceIndependent
		}
		if c.couldContainDeferred(withSuper) {
			v |= VarianceUnreliable
		}
		out[i] = v
	}
	return out
}

// annotatedVariance reads `in` and `out` modifiers.
func (c *Checker) annotatedVariance(param types.TypeID) (Variance, bool) {
	sym := c.types.Symbol(param)
	if !sym.IsValid() {
		return 0, false
	}
	flags := c.nodes.Flags(c.syms.Get(sym).FirstDecl())
	switch flags & (ast.FlagIn | ast.FlagOut) {
	case ast.FlagIn:
		return VarianceContravariant, true
	case ast.FlagOut:
		return VarianceCovariant, true
	case ast.FlagIn | ast.FlagOut:
		return VarianceInvariant, true
	}
	return 0, false
}

func (c *Checker) couldContainDeferred(t types.TypeID) bool {
	switch c.types.Kind(t) {
	case types.KindConditional, types.KindMapped, types.KindIndexedAccess:
		return true
	case types.KindUnion, types.KindIntersection:
		for _, m := range c.types.Members(t) {
			if c.couldContainDeferred(m) {
				return true
			}
		}
	}
	return false
}

func hasUnreliableVariance(vs []Variance) bool {
	for _, v := range vs {
		if v&VarianceUnreliable != 0 {
			return true
		}
	}
	return false
}
