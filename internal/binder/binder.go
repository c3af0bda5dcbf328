package binder

import (
	"fmt"

	"stc/internal/ast"
	"stc/internal/diag"
	"stc/internal/source"
	"stc/internal/symbols"
)

type activeLabel struct {
	name           source.StringID
	breakTarget    FlowID
	continueTarget FlowID
	node           ast.NodeID
}

// binder is the state of one pass over one file.
type binder struct {
	s     *Session
	nodes *ast.Nodes
	res   *Result
	rep   diag.Reporter

	container  ast.NodeID       // function, namespace or file: owner of var declarations
	blockScope ast.NodeID       // owner of let/const/class/function declarations
	owner      symbols.SymbolID // module or namespace symbol receiving exports

	currentFlow    FlowID
	breakTarget    FlowID
	continueTarget FlowID
	trueTarget     FlowID
	falseTarget    FlowID
	returnTarget   FlowID // set inside try blocks that have a finally
	exceptTarget   FlowID // collects mutations inside try blocks
	preSwitchFlow  FlowID
	labels         []*activeLabel
	outerLabels    [][]*activeLabel // labels of enclosing functions, for 1107
}

func (b *binder) bindFile(file ast.NodeID, fd *ast.FileData) {
	b.currentFlow = b.s.Flows.New(FlowNode{Kind: FlowStart, Node: file})
	for _, st := range fd.Stmts {
		b.bind(st)
	}
	b.s.EndFlow[file] = b.currentFlow
}

// --- diagnostics ---

func (b *binder) span(id ast.NodeID) source.Span {
	if n := b.nodes.Get(id); n != nil {
		return n.Span
	}
	return source.Span{}
}

func (b *binder) errorf(code diag.Code, at ast.NodeID, format string, args ...any) {
	diag.ReportError(b.rep, code, b.span(at), fmt.Sprintf(format, args...)).Emit()
}

// --- symbols ---

func (b *binder) text(id source.StringID) string {
	return b.s.Strings.MustLookup(id)
}

// declName returns the name of decl, or the reserved name for unnamed declarations.
func (b *binder) declName(decl ast.NodeID) source.StringID {
	kind := b.nodes.Kind(decl)
	switch kind {
	case ast.KindCallSignature:
		return b.s.Strings.Intern(symbols.NameCall)
	case ast.KindConstructSignature:
		return b.s.Strings.Intern(symbols.NameNew)
	case ast.KindIndexSignature:
		return b.s.Strings.Intern(symbols.NameIndex)
	case ast.KindConstructor:
		return b.s.Strings.Intern(symbols.NameCtor)
	}
	name := b.nodes.Name(decl)
	if !name.IsValid() {
		switch kind {
		case ast.KindClassDeclaration, ast.KindClassExpression:
			return b.s.Strings.Intern(symbols.NameClass)
		case ast.KindFunctionExpression, ast.KindArrowFunction, ast.KindFunctionDeclaration:
			return b.s.Strings.Intern(symbols.NameFunction)
		}
		return b.s.Strings.Intern(symbols.NameMissing)
	}
	return b.propertyName(name)
}

// propertyName maps identifier, string and numeric names to an interned key.
func (b *binder) propertyName(name ast.NodeID) source.StringID {
	if d, ok := b.nodes.Ident(name); ok {
		return d.Name
	}
	if l, ok := b.nodes.Literal(name); ok {
		return b.s.Strings.Intern(l.Text)
	}
	return b.s.Strings.Intern(symbols.NameMissing)
}

func hasBody(nodes *ast.Nodes, decl ast.NodeID) bool {
	if f, ok := nodes.Func(decl); ok {
		return f.Body.IsValid()
	}
	return true
}

// declare adds decl to table, merging with a compatible existing symbol.
// An incompatible existing symbol is reported and left bound; decl gets an
// orphan symbol so later passes still find one.
func (b *binder) declare(table *symbols.Table, parent symbols.SymbolID, decl ast.NodeID, includes, excludes symbols.SymbolFlags) symbols.SymbolID {
	name := b.declName(decl)
	isValue := includes&symbols.Value != 0
	body := hasBody(b.nodes, decl)
	if table != nil {
		if existing, ok := table.Get(name); ok {
			sym := b.s.Symbols.Get(existing)
			if sym.Flags&excludes != 0 {
				at := b.nodes.Name(decl)
				if !at.IsValid() {
					at = decl
				}
				code := diag.BindDuplicateIdentifier
				if sym.Flags&symbols.Enum != 0 || includes&symbols.Enum != 0 {
					code = diag.BindEnumMergeConflict
				}
				b.errorf(code, at, "Duplicate identifier '%s'.", b.text(name))
				return b.orphan(name, parent, decl, includes)
			}
			if includes&symbols.Function != 0 && body && sym.ValueDecl.IsValid() &&
				b.nodes.Kind(sym.ValueDecl).IsFunctionLike() && hasBody(b.nodes, sym.ValueDecl) {
				b.errorf(diag.BindDuplicateFunctionImpl, b.nodes.Name(decl), "Duplicate function implementation.")
			}
			sym.Flags |= includes
			sym.AddDecl(decl, isValue, body)
			b.s.DeclSymbol[decl] = existing
			return existing
		}
	}
	id := b.orphan(name, parent, decl, includes)
	if table != nil {
		table.Set(name, id)
	}
	return id
}

func (b *binder) orphan(name source.StringID, parent symbols.SymbolID, decl ast.NodeID, flags symbols.SymbolFlags) symbols.SymbolID {
	sym := symbols.Symbol{Name: name, Flags: flags, Parent: parent}
	sym.AddDecl(decl, flags&symbols.Value != 0, hasBody(b.nodes, decl))
	id := b.s.Symbols.New(sym)
	b.s.DeclSymbol[decl] = id
	return id
}

func (b *binder) locals(container ast.NodeID) *symbols.Table {
	t, ok := b.s.Locals[container]
	if !ok {
		t = symbols.NewTable()
		b.s.Locals[container] = t
	}
	return t
}

// exportIfNeeded mirrors an exported declaration into the owner's export table.
func (b *binder) exportIfNeeded(decl ast.NodeID, id symbols.SymbolID) {
	if b.nodes.Flags(decl)&ast.FlagExport == 0 || !b.owner.IsValid() {
		return
	}
	if b.nodes.Kind(b.blockScope) != ast.KindSourceFile && b.nodes.Kind(b.blockScope) != ast.KindModuleDeclaration {
		return
	}
	owner := b.s.Symbols.Get(b.owner)
	owner.EnsureExports().Set(b.s.Symbols.Get(id).Name, id)
}

// declareLocal declares a block-scoped declaration and exports it when marked.
func (b *binder) declareLocal(decl ast.NodeID, includes, excludes symbols.SymbolFlags) symbols.SymbolID {
	id := b.declare(b.locals(b.blockScope), b.owner, decl, includes, excludes)
	b.exportIfNeeded(decl, id)
	return id
}

func memberFlags(nodes *ast.Nodes, decl ast.NodeID) symbols.SymbolFlags {
	var f symbols.SymbolFlags
	nf := nodes.Flags(decl)
	if nf&ast.FlagOptional != 0 {
		f |= symbols.Optional
	}
	if nf&ast.FlagReadonly != 0 {
		f |= symbols.Readonly
	}
	if nf&ast.FlagStatic != 0 {
		f |= symbols.Static
	}
	return f
}

// declareMember adds a class, interface or literal member to its owner.
func (b *binder) declareMember(ownerDecl, decl ast.NodeID, includes, excludes symbols.SymbolFlags) symbols.SymbolID {
	ownerSym := b.s.DeclSymbol[ownerDecl]
	sym := b.s.Symbols.Get(ownerSym)
	if sym == nil {
		return b.orphan(b.declName(decl), symbols.NoSymbolID, decl, includes)
	}
	includes |= memberFlags(b.nodes, decl)
	table := sym.EnsureMembers()
	if includes&symbols.Static != 0 {
		table = sym.EnsureExports()
	}
	return b.declare(table, ownerSym, decl, includes, excludes)
}

// isInstantiated reports whether a namespace body contains runtime values.
func (b *binder) isInstantiated(ns ast.NodeID) bool {
	sd, _ := b.nodes.Shape(ns)
	for _, st := range sd.Members {
		switch b.nodes.Kind(st) {
		case ast.KindInterfaceDeclaration, ast.KindTypeAliasDeclaration, ast.KindImportDeclaration, ast.KindEmptyStatement:
			continue
		case ast.KindModuleDeclaration:
			if b.isInstantiated(st) {
				return true
			}
			continue
		}
		return true
	}
	return false
}

// typeParamContainer returns the node whose locals hold a type parameter.
func (b *binder) typeParamContainer(tp ast.NodeID) ast.NodeID {
	parent := b.nodes.Parent(tp)
	if b.nodes.Kind(parent) == ast.KindInferType {
		return b.nodes.Ancestor(parent, func(k ast.Kind) bool { return k == ast.KindConditionalType })
	}
	return parent
}

// bindDeclaration creates the symbol for decl, if it declares one.
func (b *binder) bindDeclaration(id ast.NodeID, kind ast.Kind) {
	switch kind {
	case ast.KindVariableDeclaration:
		b.bindVariableDeclaration(id)
	case ast.KindParameter:
		parent := b.nodes.Parent(id)
		if b.nodes.Kind(parent) == ast.KindIndexSignature {
			return
		}
		b.declare(b.locals(parent), symbols.NoSymbolID, id, symbols.FunctionScopedVariable|memberFlags(b.nodes, id)&symbols.Optional, symbols.ParameterExcludes)
	case ast.KindTypeParameter:
		if c := b.typeParamContainer(id); c.IsValid() {
			b.declare(b.locals(c), symbols.NoSymbolID, id, symbols.TypeParameter, symbols.TypeParameterExcludes)
		}
	case ast.KindFunctionDeclaration:
		b.declareLocal(id, symbols.Function, symbols.FunctionExcludes)
	case ast.KindClassDeclaration:
		b.declareLocal(id, symbols.Class, symbols.ClassExcludes)
	case ast.KindInterfaceDeclaration:
		b.declareLocal(id, symbols.Interface, symbols.InterfaceExcludes)
	case ast.KindTypeAliasDeclaration:
		b.declareLocal(id, symbols.TypeAlias, symbols.TypeAliasExcludes)
	case ast.KindEnumDeclaration:
		b.declareLocal(id, symbols.RegularEnum, symbols.RegularEnumExcludes)
	case ast.KindModuleDeclaration:
		if b.isInstantiated(id) {
			b.declareLocal(id, symbols.ValueModule, symbols.ValueModuleExcludes)
		} else {
			b.declareLocal(id, symbols.NamespaceModule, symbols.NamespaceModuleExcludes)
		}
	case ast.KindImportSpecifier:
		b.declare(b.res.Locals, symbols.NoSymbolID, id, symbols.Alias, symbols.AliasExcludes)
	case ast.KindEnumMember:
		enum := b.nodes.Parent(id)
		sym := b.s.Symbols.Get(b.s.DeclSymbol[enum])
		if sym != nil {
			b.declare(sym.EnsureExports(), b.s.DeclSymbol[enum], id, symbols.EnumMember, symbols.EnumMemberExcludes)
		}
	case ast.KindClassExpression:
		b.orphan(b.declName(id), symbols.NoSymbolID, id, symbols.Class)
	case ast.KindFunctionExpression, ast.KindArrowFunction:
		b.orphan(b.declName(id), symbols.NoSymbolID, id, symbols.Function)
	case ast.KindTypeLiteral:
		b.orphan(b.s.Strings.Intern(symbols.NameType), symbols.NoSymbolID, id, symbols.TypeLiteral)
	case ast.KindFunctionType, ast.KindConstructorType:
		b.orphan(b.s.Strings.Intern(symbols.NameType), symbols.NoSymbolID, id, symbols.TypeLiteral)
	case ast.KindMappedType:
		b.orphan(b.s.Strings.Intern(symbols.NameType), symbols.NoSymbolID, id, symbols.TypeLiteral)
	case ast.KindObjectLiteral:
		b.orphan(b.s.Strings.Intern(symbols.NameObject), symbols.NoSymbolID, id, symbols.ObjectLiteral)
	case ast.KindPropertyDeclaration:
		b.declareMember(b.nodes.Parent(id), id, symbols.Property, symbols.PropertyExcludes)
	case ast.KindMethodDeclaration:
		owner := b.nodes.Parent(id)
		if b.nodes.Kind(owner) == ast.KindObjectLiteral {
			b.declareMember(owner, id, symbols.Property, symbols.PropertyExcludes)
			return
		}
		b.declareMember(owner, id, symbols.Method, symbols.MethodExcludes)
	case ast.KindConstructor:
		b.declareMember(b.nodes.Parent(id), id, symbols.Constructor, symbols.None)
	case ast.KindPropertySignature:
		b.declareMember(b.nodes.Parent(id), id, symbols.Property, symbols.PropertyExcludes)
	case ast.KindMethodSignature:
		b.declareMember(b.nodes.Parent(id), id, symbols.Method, symbols.PropertyExcludes)
	case ast.KindCallSignature, ast.KindConstructSignature, ast.KindIndexSignature:
		b.declareMember(b.nodes.Parent(id), id, symbols.Signature, symbols.None)
	case ast.KindPropertyAssignment, ast.KindShorthandPropertyAssignment:
		b.declareMember(b.nodes.Parent(id), id, symbols.Property, symbols.PropertyExcludes)
	}
}

func (b *binder) bindVariableDeclaration(id ast.NodeID) {
	parent := b.nodes.Parent(id)
	if b.nodes.Kind(parent) == ast.KindCatchClause {
		b.declare(b.locals(parent), symbols.NoSymbolID, id, symbols.FunctionScopedVariable, symbols.ParameterExcludes)
		return
	}
	flags := b.nodes.Flags(parent)
	var sym symbols.SymbolID
	switch {
	case flags&ast.FlagConst != 0:
		sym = b.declare(b.locals(b.blockScope), b.owner, id, symbols.BlockScopedVariable|symbols.Const, symbols.BlockScopedVariableExcludes)
	case flags&ast.FlagLet != 0:
		sym = b.declare(b.locals(b.blockScope), b.owner, id, symbols.BlockScopedVariable, symbols.BlockScopedVariableExcludes)
	default:
		sym = b.declare(b.locals(b.container), b.owner, id, symbols.FunctionScopedVariable, symbols.FunctionScopedVariableExcludes)
	}
	if flags&ast.FlagExport != 0 {
		b.exportVar(sym)
	}
}

// exportVar handles `export var`, whose scope is the container, not the block.
func (b *binder) exportVar(sym symbols.SymbolID) {
	if !b.owner.IsValid() {
		return
	}
	owner := b.s.Symbols.Get(b.owner)
	owner.EnsureExports().Set(b.s.Symbols.Get(sym).Name, sym)
}
