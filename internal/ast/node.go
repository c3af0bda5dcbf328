package ast

import "stc/internal/source"

// Node is the common header of every syntax node. Kind-specific children
// live in the payload arena selected by Kind.
type Node struct {
	Kind    Kind
	Flags   NodeFlags
	Span    source.Span
	Parent  NodeID
	Payload PayloadID
}

// FileData — корень файла.
type FileData struct {
	Path   string
	File   source.FileID
	Stmts  []NodeID
	Module bool // file has imports or exports and owns its scope
}

type IdentData struct {
	Name source.StringID
}

// LiteralData holds string and numeric literal values.
type LiteralData struct {
	Text  string
	Value float64
}

// FuncData is shared by every function-like node. Type is the return type
// annotation (or a TypePredicate node); Body is a Block or, for arrows, an
// expression.
type FuncData struct {
	Name       NodeID
	TypeParams []NodeID
	Params     []NodeID
	Type       NodeID
	Body       NodeID
}

// DeclData is shared by named slots with an optional annotation and
// initializer. For IndexSignature, Name is the key Parameter node.
type DeclData struct {
	Name NodeID
	Type NodeID
	Init NodeID
}

type TypeParamData struct {
	Name       NodeID
	Constraint NodeID
	Default    NodeID
}

// ShapeData covers classes, interfaces, aliases, enums and namespaces.
type ShapeData struct {
	Name       NodeID
	TypeParams []NodeID
	Extends    []NodeID
	Implements []NodeID
	Members    []NodeID
	Type       NodeID // alias target
}

// ListData covers nodes made of an optional head expression and a list.
type ListData struct {
	Expr  NodeID
	Items []NodeID
}

// CallData covers calls, `new` and type references (Expr is the type name).
type CallData struct {
	Expr     NodeID
	TypeArgs []NodeID
	Args     []NodeID
}

type ImportData struct {
	Module string
	Items  []NodeID
}

type IfData struct {
	Cond NodeID
	Then NodeID
	Else NodeID
}

// LoopData: for-of keeps the iterated expression in Cond.
type LoopData struct {
	Init NodeID
	Cond NodeID
	Incr NodeID
	Body NodeID
}

// StmtData: catch clauses keep the variable declaration in Expr.
type StmtData struct {
	Label NodeID
	Expr  NodeID
	Body  NodeID
}

type TryData struct {
	Block   NodeID
	Catch   NodeID
	Finally NodeID
}

// ExprData covers operator-shaped expressions and type nodes.
// Conditional expressions and types use Then/Else; mapped types keep the
// `as` clause in Then.
type ExprData struct {
	Op    Op
	Left  NodeID
	Right NodeID
	Then  NodeID
	Else  NodeID
}
