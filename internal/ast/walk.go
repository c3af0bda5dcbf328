package ast

// ForEachChild calls visit for each direct child of id in source order.
// Iteration stops early when visit returns true.
func (n *Nodes) ForEachChild(id NodeID, visit func(NodeID) bool) bool {
	node := n.Get(id)
	if node == nil {
		return false
	}
	one := func(ids ...NodeID) bool {
		for _, c := range ids {
			if c.IsValid() && visit(c) {
				return true
			}
		}
		return false
	}
	many := func(ids []NodeID) bool { return one(ids...) }

	switch family(node.Kind) {
	case famFile:
		f, _ := n.File(id)
		return many(f.Stmts)
	case famFunc:
		f, _ := n.Func(id)
		return one(f.Name) || many(f.TypeParams) || many(f.Params) || one(f.Type, f.Body)
	case famDecl:
		d, _ := n.Decl(id)
		return one(d.Name, d.Type, d.Init)
	case famTypeParam:
		tp, _ := n.TypeParam(id)
		return one(tp.Name, tp.Constraint, tp.Default)
	case famShape:
		s, _ := n.Shape(id)
		return one(s.Name) || many(s.TypeParams) || many(s.Extends) || many(s.Implements) || one(s.Type) || many(s.Members)
	case famList:
		l, _ := n.List(id)
		return one(l.Expr) || many(l.Items)
	case famCall:
		c, _ := n.Call(id)
		return one(c.Expr) || many(c.TypeArgs) || many(c.Args)
	case famImport:
		im, _ := n.Import(id)
		return many(im.Items)
	case famIf:
		f, _ := n.If(id)
		return one(f.Cond, f.Then, f.Else)
	case famLoop:
		l, _ := n.Loop(id)
		if node.Kind == KindDoWhile {
			return one(l.Body, l.Cond)
		}
		return one(l.Init, l.Cond, l.Incr, l.Body)
	case famStmt:
		s, _ := n.Stmt(id)
		return one(s.Label, s.Expr, s.Body)
	case famTry:
		t, _ := n.Try(id)
		return one(t.Block, t.Catch, t.Finally)
	case famExpr:
		e, _ := n.Expr(id)
		if node.Kind == KindMappedType {
			return one(e.Left, e.Then, e.Right)
		}
		return one(e.Left, e.Right, e.Then, e.Else)
	}
	return false
}

// Walk visits id and its descendants depth-first, pre-order. Returning false
// from visit skips the node's children.
func (n *Nodes) Walk(id NodeID, visit func(NodeID) bool) {
	if !id.IsValid() || !visit(id) {
		return
	}
	n.ForEachChild(id, func(c NodeID) bool {
		n.Walk(c, visit)
		return false
	})
}

// fixParents sets Parent links for the subtree rooted at id.
func (n *Nodes) fixParents(id NodeID) {
	n.ForEachChild(id, func(c NodeID) bool {
		n.Get(c).Parent = id
		n.fixParents(c)
		return false
	})
}
