package checker

import (
	"stc/internal/ast"
	"stc/internal/diag"
	"stc/internal/types"
)

// excessProperty finds a property of a fresh object literal that no
// object-like constituent of target declares. Targets that accept any key
// (index signatures, empty object types, generic types) have none.
func (c *Checker) excessProperty(source, target types.TypeID) (string, bool) {
	var objects []*structured
	for _, m := range c.types.Constituents(target) {
		k := c.types.Kind(m)
		switch {
		case k == types.KindIntersection:
			objects = append(objects, c.resolveStructured(m))
		case k.IsObjectLike():
			if k == types.KindMapped {
				return "", false
			}
			objects = append(objects, c.resolveStructured(m))
		case k.IsGeneric() || k == types.KindNonPrimitive || k == types.KindAny || k == types.KindUnknown:
			return "", false
		}
	}
	if len(objects) == 0 {
		return "", false
	}
	for _, st := range objects {
		if len(st.indexes) > 0 || len(st.props) == 0 && len(st.calls) == 0 && len(st.constructs) == 0 {
			return "", false
		}
	}
	for _, p := range c.resolveStructured(source).props {
		known := false
		for _, st := range objects {
			if st.prop(p.name) != nil {
				known = true
				break
			}
		}
		if !known {
			return p.name, true
		}
	}
	return "", false
}

// reportExcessProperty points at the offending property assignment when it
// can be found in the literal. Interned shapes share declaring symbols, so
// the literal under node (or under the declaration node names) is searched
// first.
func (c *Checker) reportExcessProperty(node ast.NodeID, source types.TypeID, name string, target types.TypeID) {
	at := node
	lit := c.skipParens(node)
	if d, ok := c.nodes.Decl(c.nodes.Parent(node)); ok && d.Name == node && d.Init.IsValid() {
		lit = c.skipParens(d.Init)
	}
	if c.kind(lit) == ast.KindObjectLiteral {
		l, _ := c.nodes.List(lit)
		for _, item := range l.Items {
			if c.propertyNameText(c.nodes.Name(item)) == name {
				at = item
				break
			}
		}
	}
	if p := c.resolveStructured(source).prop(name); at == node && p != nil && p.sym.IsValid() {
		if decl := c.syms.Get(p.sym).FirstDecl(); decl.IsValid() {
			at = c.anchorOf(decl)
		}
	}
	c.error(at, diag.CheckExcessProperty,
		"Object literal may only specify known properties, and '%s' does not exist in type '%s'.", name, c.TypeToString(target))
}
