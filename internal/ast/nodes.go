package ast

// Nodes owns the node arena and every payload arena.
type Nodes struct {
	Arena      *Arena[Node]
	Files      *Arena[FileData]
	Idents     *Arena[IdentData]
	Literals   *Arena[LiteralData]
	Funcs      *Arena[FuncData]
	Decls      *Arena[DeclData]
	TypeParams *Arena[TypeParamData]
	Shapes     *Arena[ShapeData]
	Lists      *Arena[ListData]
	Calls      *Arena[CallData]
	Imports    *Arena[ImportData]
	Ifs        *Arena[IfData]
	Loops      *Arena[LoopData]
	Stmts      *Arena[StmtData]
	Tries      *Arena[TryData]
	Exprs      *Arena[ExprData]
}

// NewNodes allocates arenas sized by capHint.
func NewNodes(capHint uint) *Nodes {
	if capHint == 0 {
		capHint = 1 << 8
	}
	small := capHint/8 + 1
	return &Nodes{
		Arena:      NewArena[Node](capHint),
		Files:      NewArena[FileData](4),
		Idents:     NewArena[IdentData](capHint / 2),
		Literals:   NewArena[LiteralData](small),
		Funcs:      NewArena[FuncData](small),
		Decls:      NewArena[DeclData](small),
		TypeParams: NewArena[TypeParamData](small),
		Shapes:     NewArena[ShapeData](small),
		Lists:      NewArena[ListData](small),
		Calls:      NewArena[CallData](small),
		Imports:    NewArena[ImportData](small),
		Ifs:        NewArena[IfData](small),
		Loops:      NewArena[LoopData](small),
		Stmts:      NewArena[StmtData](small),
		Tries:      NewArena[TryData](small),
		Exprs:      NewArena[ExprData](small),
	}
}

// Get returns the node header or nil for an invalid id.
func (n *Nodes) Get(id NodeID) *Node {
	if !id.IsValid() {
		return nil
	}
	return n.Arena.Get(uint32(id))
}

// Kind returns the kind of id, or KindUnknown for an invalid id.
func (n *Nodes) Kind(id NodeID) Kind {
	if node := n.Get(id); node != nil {
		return node.Kind
	}
	return KindUnknown
}

func (n *Nodes) Flags(id NodeID) NodeFlags {
	if node := n.Get(id); node != nil {
		return node.Flags
	}
	return 0
}

func (n *Nodes) Parent(id NodeID) NodeID {
	if node := n.Get(id); node != nil {
		return node.Parent
	}
	return NoNodeID
}

// Len returns the number of allocated nodes.
func (n *Nodes) Len() uint32 { return n.Arena.Len() }

func (n *Nodes) payload(id NodeID, fam payloadFamily) (uint32, bool) {
	node := n.Get(id)
	if node == nil || family(node.Kind) != fam || !node.Payload.IsValid() {
		return 0, false
	}
	return uint32(node.Payload), true
}

func (n *Nodes) File(id NodeID) (*FileData, bool) {
	if p, ok := n.payload(id, famFile); ok {
		return n.Files.Get(p), true
	}
	return nil, false
}

func (n *Nodes) Ident(id NodeID) (*IdentData, bool) {
	if p, ok := n.payload(id, famIdent); ok {
		return n.Idents.Get(p), true
	}
	return nil, false
}

func (n *Nodes) Literal(id NodeID) (*LiteralData, bool) {
	if p, ok := n.payload(id, famLiteral); ok {
		return n.Literals.Get(p), true
	}
	return nil, false
}

func (n *Nodes) Func(id NodeID) (*FuncData, bool) {
	if p, ok := n.payload(id, famFunc); ok {
		return n.Funcs.Get(p), true
	}
	return nil, false
}

func (n *Nodes) Decl(id NodeID) (*DeclData, bool) {
	if p, ok := n.payload(id, famDecl); ok {
		return n.Decls.Get(p), true
	}
	return nil, false
}

func (n *Nodes) TypeParam(id NodeID) (*TypeParamData, bool) {
	if p, ok := n.payload(id, famTypeParam); ok {
		return n.TypeParams.Get(p), true
	}
	return nil, false
}

func (n *Nodes) Shape(id NodeID) (*ShapeData, bool) {
	if p, ok := n.payload(id, famShape); ok {
		return n.Shapes.Get(p), true
	}
	return nil, false
}

func (n *Nodes) List(id NodeID) (*ListData, bool) {
	if p, ok := n.payload(id, famList); ok {
		return n.Lists.Get(p), true
	}
	return nil, false
}

func (n *Nodes) Call(id NodeID) (*CallData, bool) {
	if p, ok := n.payload(id, famCall); ok {
		return n.Calls.Get(p), true
	}
	return nil, false
}

func (n *Nodes) Import(id NodeID) (*ImportData, bool) {
	if p, ok := n.payload(id, famImport); ok {
		return n.Imports.Get(p), true
	}
	return nil, false
}

func (n *Nodes) If(id NodeID) (*IfData, bool) {
	if p, ok := n.payload(id, famIf); ok {
		return n.Ifs.Get(p), true
	}
	return nil, false
}

func (n *Nodes) Loop(id NodeID) (*LoopData, bool) {
	if p, ok := n.payload(id, famLoop); ok {
		return n.Loops.Get(p), true
	}
	return nil, false
}

func (n *Nodes) Stmt(id NodeID) (*StmtData, bool) {
	if p, ok := n.payload(id, famStmt); ok {
		return n.Stmts.Get(p), true
	}
	return nil, false
}

func (n *Nodes) Try(id NodeID) (*TryData, bool) {
	if p, ok := n.payload(id, famTry); ok {
		return n.Tries.Get(p), true
	}
	return nil, false
}

func (n *Nodes) Expr(id NodeID) (*ExprData, bool) {
	if p, ok := n.payload(id, famExpr); ok {
		return n.Exprs.Get(p), true
	}
	return nil, false
}

// Name returns the name node of a declaration-like node.
func (n *Nodes) Name(id NodeID) NodeID {
	switch family(n.Kind(id)) {
	case famFunc:
		f, _ := n.Func(id)
		return f.Name
	case famDecl:
		d, _ := n.Decl(id)
		if n.Kind(id) == KindIndexSignature {
			return NoNodeID
		}
		return d.Name
	case famTypeParam:
		tp, _ := n.TypeParam(id)
		return tp.Name
	case famShape:
		s, _ := n.Shape(id)
		return s.Name
	case famExpr:
		if n.Kind(id) == KindImportSpecifier {
			e, _ := n.Expr(id)
			return e.Right
		}
	}
	return NoNodeID
}

// ContainingFile walks parents up to the SourceFile node.
func (n *Nodes) ContainingFile(id NodeID) NodeID {
	for id.IsValid() {
		node := n.Get(id)
		if node.Kind == KindSourceFile {
			return id
		}
		id = node.Parent
	}
	return NoNodeID
}

// Ancestor returns the closest ancestor (excluding id) matching pred.
func (n *Nodes) Ancestor(id NodeID, pred func(Kind) bool) NodeID {
	for p := n.Parent(id); p.IsValid(); p = n.Parent(p) {
		if pred(n.Kind(p)) {
			return p
		}
	}
	return NoNodeID
}

func (n *Nodes) alloc(node Node) NodeID {
	return NodeID(n.Arena.Allocate(node))
}

