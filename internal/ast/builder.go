package ast

import (
	"strconv"

	"stc/internal/source"
)

// Builder constructs nodes for one program. Node ids are unique across all
// files built through the same Builder.
type Builder struct {
	Nodes   *Nodes
	Strings *source.Interner
	Sources *source.FileSet
	Files   []NodeID

	file source.FileID
	pos  uint32
}

// NewBuilder creates a Builder. Nil arguments get fresh tables.
func NewBuilder(strings *source.Interner, sources *source.FileSet) *Builder {
	if strings == nil {
		strings = source.NewInterner()
	}
	if sources == nil {
		sources = source.NewFileSet()
	}
	return &Builder{
		Nodes:   NewNodes(0),
		Strings: strings,
		Sources: sources,
	}
}

// BeginFile registers a virtual file and directs new nodes into it.
func (b *Builder) BeginFile(path string) source.FileID {
	return b.BeginFileWithText(path, nil)
}

// BeginFileWithText registers a file whose text is known (for diagnostics rendering).
func (b *Builder) BeginFileWithText(path string, text []byte) source.FileID {
	flags := source.FileVirtual
	if text != nil {
		flags |= source.FileHasText
	}
	b.file = b.Sources.Add(path, text, flags)
	b.pos = 0
	return b.file
}

// EndFile creates the SourceFile node, fixes parent links and returns it.
func (b *Builder) EndFile(stmts []NodeID, module bool) NodeID {
	f := b.Sources.Get(b.file)
	path := ""
	if f != nil {
		path = f.Path
		if module {
			b.Sources.SetFlags(b.file, f.Flags|source.FileModule)
		}
	}
	p := b.Nodes.Files.Allocate(FileData{Path: path, File: b.file, Stmts: stmts, Module: module})
	id := b.Nodes.alloc(Node{
		Kind:    KindSourceFile,
		Span:    source.Span{File: b.file, Start: 0, End: b.pos},
		Payload: PayloadID(p),
	})
	b.Nodes.fixParents(id)
	b.Files = append(b.Files, id)
	return id
}

// SetSpan overrides the synthetic span of id.
func (b *Builder) SetSpan(id NodeID, sp source.Span) {
	if node := b.Nodes.Get(id); node != nil {
		node.Span = sp
		if sp.End > b.pos {
			b.pos = sp.End
		}
	}
}

// AddFlags ORs extra modifiers into id.
func (b *Builder) AddFlags(id NodeID, flags NodeFlags) {
	if node := b.Nodes.Get(id); node != nil {
		node.Flags |= flags
	}
}

// Text returns the identifier text of id (empty for non-identifiers).
func (b *Builder) Text(id NodeID) string {
	if d, ok := b.Nodes.Ident(id); ok {
		return b.Strings.MustLookup(d.Name)
	}
	if l, ok := b.Nodes.Literal(id); ok {
		return l.Text
	}
	return ""
}

func (b *Builder) node(kind Kind, flags NodeFlags, payload uint32, children ...NodeID) NodeID {
	sp := source.Span{File: b.file}
	covered := false
	for _, c := range children {
		cn := b.Nodes.Get(c)
		if cn == nil || cn.Span.File != b.file {
			continue
		}
		if !covered {
			sp = cn.Span
			covered = true
			continue
		}
		sp = sp.Cover(cn.Span)
	}
	if !covered {
		sp.Start = b.pos
		sp.End = b.pos + 1
		b.pos++
	} else if sp.End >= b.pos {
		b.pos = sp.End + 1
	}
	return b.Nodes.alloc(Node{Kind: kind, Flags: flags, Span: sp, Payload: PayloadID(payload)})
}

func concat(groups ...[]NodeID) []NodeID {
	var out []NodeID
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// --- Names and literals ---

func (b *Builder) Ident(name string) NodeID {
	p := b.Nodes.Idents.Allocate(IdentData{Name: b.Strings.InternIdent(name)})
	return b.node(KindIdentifier, 0, p)
}

func (b *Builder) Str(text string) NodeID {
	p := b.Nodes.Literals.Allocate(LiteralData{Text: text})
	return b.node(KindStringLiteral, 0, p)
}

func (b *Builder) Num(v float64) NodeID {
	p := b.Nodes.Literals.Allocate(LiteralData{Text: strconv.FormatFloat(v, 'f', -1, 64), Value: v})
	return b.node(KindNumericLiteral, 0, p)
}

func (b *Builder) True() NodeID  { return b.node(KindTrueKeyword, 0, 0) }
func (b *Builder) False() NodeID { return b.node(KindFalseKeyword, 0, 0) }
func (b *Builder) Null() NodeID  { return b.node(KindNullKeyword, 0, 0) }
func (b *Builder) This() NodeID  { return b.node(KindThisKeyword, 0, 0) }

// --- Expressions ---

func (b *Builder) list(kind Kind, flags NodeFlags, expr NodeID, items []NodeID) NodeID {
	p := b.Nodes.Lists.Allocate(ListData{Expr: expr, Items: items})
	return b.node(kind, flags, p, concat([]NodeID{expr}, items)...)
}

func (b *Builder) expr(kind Kind, flags NodeFlags, d ExprData) NodeID {
	p := b.Nodes.Exprs.Allocate(d)
	return b.node(kind, flags, p, d.Left, d.Right, d.Then, d.Else)
}

func (b *Builder) decl(kind Kind, flags NodeFlags, d DeclData) NodeID {
	p := b.Nodes.Decls.Allocate(d)
	return b.node(kind, flags, p, d.Name, d.Type, d.Init)
}

func (b *Builder) fn(kind Kind, flags NodeFlags, d FuncData) NodeID {
	p := b.Nodes.Funcs.Allocate(d)
	return b.node(kind, flags, p, concat([]NodeID{d.Name}, d.TypeParams, d.Params, []NodeID{d.Type, d.Body})...)
}

func (b *Builder) stmt(kind Kind, d StmtData) NodeID {
	p := b.Nodes.Stmts.Allocate(d)
	return b.node(kind, 0, p, d.Label, d.Expr, d.Body)
}

func (b *Builder) Object(props ...NodeID) NodeID {
	return b.list(KindObjectLiteral, 0, NoNodeID, props)
}

func (b *Builder) Array(elems ...NodeID) NodeID {
	return b.list(KindArrayLiteral, 0, NoNodeID, elems)
}

func (b *Builder) PropAssign(name, init NodeID) NodeID {
	return b.decl(KindPropertyAssignment, 0, DeclData{Name: name, Init: init})
}

func (b *Builder) Shorthand(name NodeID) NodeID {
	return b.decl(KindShorthandPropertyAssignment, 0, DeclData{Name: name})
}

// Prop builds `obj.name`.
func (b *Builder) Prop(obj, name NodeID) NodeID {
	return b.expr(KindPropertyAccess, 0, ExprData{Left: obj, Right: name})
}

func (b *Builder) Elem(obj, index NodeID) NodeID {
	return b.expr(KindElementAccess, 0, ExprData{Left: obj, Right: index})
}

func (b *Builder) Call(callee NodeID, typeArgs []NodeID, args ...NodeID) NodeID {
	p := b.Nodes.Calls.Allocate(CallData{Expr: callee, TypeArgs: typeArgs, Args: args})
	return b.node(KindCall, 0, p, concat([]NodeID{callee}, typeArgs, args)...)
}

func (b *Builder) New(callee NodeID, typeArgs []NodeID, args ...NodeID) NodeID {
	p := b.Nodes.Calls.Allocate(CallData{Expr: callee, TypeArgs: typeArgs, Args: args})
	return b.node(KindNew, 0, p, concat([]NodeID{callee}, typeArgs, args)...)
}

func (b *Builder) Paren(e NodeID) NodeID {
	return b.expr(KindParenthesized, 0, ExprData{Left: e})
}

// Unary builds a prefix (or, with FlagPostfix, postfix) unary expression.
func (b *Builder) Unary(op Op, flags NodeFlags, operand NodeID) NodeID {
	return b.expr(KindPrefixUnary, flags, ExprData{Op: op, Left: operand})
}

func (b *Builder) TypeOf(e NodeID) NodeID {
	return b.expr(KindTypeOf, 0, ExprData{Left: e})
}

func (b *Builder) Binary(left NodeID, op Op, right NodeID) NodeID {
	return b.expr(KindBinary, 0, ExprData{Op: op, Left: left, Right: right})
}

func (b *Builder) Cond(cond, whenTrue, whenFalse NodeID) NodeID {
	return b.expr(KindConditional, 0, ExprData{Left: cond, Then: whenTrue, Else: whenFalse})
}

func (b *Builder) As(e, typ NodeID) NodeID {
	return b.expr(KindAs, 0, ExprData{Left: e, Right: typ})
}

func (b *Builder) NonNull(e NodeID) NodeID {
	return b.expr(KindNonNull, 0, ExprData{Left: e})
}

func (b *Builder) FuncExpr(name NodeID, typeParams, params []NodeID, ret, body NodeID) NodeID {
	return b.fn(KindFunctionExpression, 0, FuncData{Name: name, TypeParams: typeParams, Params: params, Type: ret, Body: body})
}

// Arrow builds an arrow function; body is a Block or an expression.
func (b *Builder) Arrow(typeParams, params []NodeID, ret, body NodeID) NodeID {
	return b.fn(KindArrowFunction, 0, FuncData{TypeParams: typeParams, Params: params, Type: ret, Body: body})
}

// --- Statements ---

func (b *Builder) Block(stmts ...NodeID) NodeID {
	return b.list(KindBlock, 0, NoNodeID, stmts)
}

func (b *Builder) Empty() NodeID { return b.node(KindEmptyStatement, 0, 0) }

// VarStmt builds a variable statement; flags carry FlagConst/FlagLet/FlagExport.
func (b *Builder) VarStmt(flags NodeFlags, decls ...NodeID) NodeID {
	return b.list(KindVariableStatement, flags, NoNodeID, decls)
}

func (b *Builder) VarDecl(name, typ, init NodeID) NodeID {
	return b.decl(KindVariableDeclaration, 0, DeclData{Name: name, Type: typ, Init: init})
}

func (b *Builder) ExprStmt(e NodeID) NodeID {
	return b.stmt(KindExpressionStatement, StmtData{Expr: e})
}

func (b *Builder) If(cond, then, els NodeID) NodeID {
	p := b.Nodes.Ifs.Allocate(IfData{Cond: cond, Then: then, Else: els})
	return b.node(KindIf, 0, p, cond, then, els)
}

func (b *Builder) loop(kind Kind, d LoopData) NodeID {
	p := b.Nodes.Loops.Allocate(d)
	return b.node(kind, 0, p, d.Init, d.Cond, d.Incr, d.Body)
}

func (b *Builder) While(cond, body NodeID) NodeID {
	return b.loop(KindWhile, LoopData{Cond: cond, Body: body})
}

func (b *Builder) DoWhile(body, cond NodeID) NodeID {
	return b.loop(KindDoWhile, LoopData{Cond: cond, Body: body})
}

func (b *Builder) For(init, cond, incr, body NodeID) NodeID {
	return b.loop(KindFor, LoopData{Init: init, Cond: cond, Incr: incr, Body: body})
}

// ForOf builds `for (init of expr) body`; init is a VariableStatement or an expression.
func (b *Builder) ForOf(init, expr, body NodeID) NodeID {
	return b.loop(KindForOf, LoopData{Init: init, Cond: expr, Body: body})
}

func (b *Builder) Break(label NodeID) NodeID {
	return b.stmt(KindBreak, StmtData{Label: label})
}

func (b *Builder) Continue(label NodeID) NodeID {
	return b.stmt(KindContinue, StmtData{Label: label})
}

func (b *Builder) Return(e NodeID) NodeID {
	return b.stmt(KindReturn, StmtData{Expr: e})
}

func (b *Builder) Throw(e NodeID) NodeID {
	return b.stmt(KindThrow, StmtData{Expr: e})
}

func (b *Builder) Labeled(label, body NodeID) NodeID {
	return b.stmt(KindLabeled, StmtData{Label: label, Body: body})
}

func (b *Builder) Catch(decl, block NodeID) NodeID {
	return b.stmt(KindCatchClause, StmtData{Expr: decl, Body: block})
}

func (b *Builder) Try(block, catch, finally NodeID) NodeID {
	p := b.Nodes.Tries.Allocate(TryData{Block: block, Catch: catch, Finally: finally})
	return b.node(KindTry, 0, p, block, catch, finally)
}

func (b *Builder) Switch(e NodeID, clauses ...NodeID) NodeID {
	return b.list(KindSwitch, 0, e, clauses)
}

func (b *Builder) Case(e NodeID, stmts ...NodeID) NodeID {
	return b.list(KindCaseClause, 0, e, stmts)
}

func (b *Builder) Default(stmts ...NodeID) NodeID {
	return b.list(KindDefaultClause, 0, NoNodeID, stmts)
}

// --- Declarations ---

func (b *Builder) shape(kind Kind, flags NodeFlags, d ShapeData) NodeID {
	p := b.Nodes.Shapes.Allocate(d)
	return b.node(kind, flags, p, concat([]NodeID{d.Name}, d.TypeParams, d.Extends, d.Implements, []NodeID{d.Type}, d.Members)...)
}

func (b *Builder) Func(flags NodeFlags, name NodeID, typeParams, params []NodeID, ret, body NodeID) NodeID {
	return b.fn(KindFunctionDeclaration, flags, FuncData{Name: name, TypeParams: typeParams, Params: params, Type: ret, Body: body})
}

func (b *Builder) Param(flags NodeFlags, name, typ, init NodeID) NodeID {
	return b.decl(KindParameter, flags, DeclData{Name: name, Type: typ, Init: init})
}

// TypeParam builds a type parameter; flags may carry FlagIn/FlagOut.
func (b *Builder) TypeParam(flags NodeFlags, name, constraint, def NodeID) NodeID {
	p := b.Nodes.TypeParams.Allocate(TypeParamData{Name: name, Constraint: constraint, Default: def})
	return b.node(KindTypeParameter, flags, p, name, constraint, def)
}

func (b *Builder) Interface(flags NodeFlags, name NodeID, typeParams, extends []NodeID, members ...NodeID) NodeID {
	return b.shape(KindInterfaceDeclaration, flags, ShapeData{Name: name, TypeParams: typeParams, Extends: extends, Members: members})
}

func (b *Builder) Alias(flags NodeFlags, name NodeID, typeParams []NodeID, typ NodeID) NodeID {
	return b.shape(KindTypeAliasDeclaration, flags, ShapeData{Name: name, TypeParams: typeParams, Type: typ})
}

// Class builds a class declaration; extends is a TypeReference (or NoNodeID).
func (b *Builder) Class(flags NodeFlags, name NodeID, typeParams []NodeID, extends NodeID, implements []NodeID, members ...NodeID) NodeID {
	var ext []NodeID
	if extends.IsValid() {
		ext = []NodeID{extends}
	}
	return b.shape(KindClassDeclaration, flags, ShapeData{Name: name, TypeParams: typeParams, Extends: ext, Implements: implements, Members: members})
}

func (b *Builder) ClassExpr(name NodeID, typeParams []NodeID, extends NodeID, implements []NodeID, members ...NodeID) NodeID {
	var ext []NodeID
	if extends.IsValid() {
		ext = []NodeID{extends}
	}
	return b.shape(KindClassExpression, 0, ShapeData{Name: name, TypeParams: typeParams, Extends: ext, Implements: implements, Members: members})
}

func (b *Builder) PropDecl(flags NodeFlags, name, typ, init NodeID) NodeID {
	return b.decl(KindPropertyDeclaration, flags, DeclData{Name: name, Type: typ, Init: init})
}

func (b *Builder) Method(flags NodeFlags, name NodeID, typeParams, params []NodeID, ret, body NodeID) NodeID {
	return b.fn(KindMethodDeclaration, flags, FuncData{Name: name, TypeParams: typeParams, Params: params, Type: ret, Body: body})
}

func (b *Builder) Ctor(params []NodeID, body NodeID) NodeID {
	return b.fn(KindConstructor, 0, FuncData{Params: params, Body: body})
}

func (b *Builder) PropSig(flags NodeFlags, name, typ NodeID) NodeID {
	return b.decl(KindPropertySignature, flags, DeclData{Name: name, Type: typ})
}

func (b *Builder) MethodSig(flags NodeFlags, name NodeID, typeParams, params []NodeID, ret NodeID) NodeID {
	return b.fn(KindMethodSignature, flags, FuncData{Name: name, TypeParams: typeParams, Params: params, Type: ret})
}

func (b *Builder) CallSig(typeParams, params []NodeID, ret NodeID) NodeID {
	return b.fn(KindCallSignature, 0, FuncData{TypeParams: typeParams, Params: params, Type: ret})
}

func (b *Builder) CtorSig(typeParams, params []NodeID, ret NodeID) NodeID {
	return b.fn(KindConstructSignature, 0, FuncData{TypeParams: typeParams, Params: params, Type: ret})
}

// IndexSig builds `[key: keyType]: typ`.
func (b *Builder) IndexSig(flags NodeFlags, key, keyType, typ NodeID) NodeID {
	param := b.Param(0, key, keyType, NoNodeID)
	return b.decl(KindIndexSignature, flags, DeclData{Name: param, Type: typ})
}

func (b *Builder) Enum(flags NodeFlags, name NodeID, members ...NodeID) NodeID {
	return b.shape(KindEnumDeclaration, flags, ShapeData{Name: name, Members: members})
}

func (b *Builder) EnumMember(name, init NodeID) NodeID {
	return b.decl(KindEnumMember, 0, DeclData{Name: name, Init: init})
}

func (b *Builder) Namespace(flags NodeFlags, name NodeID, stmts ...NodeID) NodeID {
	return b.shape(KindModuleDeclaration, flags, ShapeData{Name: name, Members: stmts})
}

func (b *Builder) Import(module string, specs ...NodeID) NodeID {
	p := b.Nodes.Imports.Allocate(ImportData{Module: module, Items: specs})
	return b.node(KindImportDeclaration, 0, p, specs...)
}

// ImportSpec builds `property as name`; property may be NoNodeID.
func (b *Builder) ImportSpec(property, name NodeID) NodeID {
	return b.expr(KindImportSpecifier, 0, ExprData{Left: property, Right: name})
}

// --- Type nodes ---

// Keyword builds a keyword type node (KindStringKeyword, ...), or `null`
// when kind is KindNullKeyword.
func (b *Builder) Keyword(kind Kind) NodeID {
	return b.node(kind, 0, 0)
}

func (b *Builder) ThisType() NodeID { return b.node(KindThisType, 0, 0) }

// TypeRef builds a reference; name is an Identifier or QualifiedName.
func (b *Builder) TypeRef(name NodeID, args ...NodeID) NodeID {
	p := b.Nodes.Calls.Allocate(CallData{Expr: name, TypeArgs: args})
	return b.node(KindTypeReference, 0, p, concat([]NodeID{name}, args)...)
}

func (b *Builder) QName(left, right NodeID) NodeID {
	return b.expr(KindQualifiedName, 0, ExprData{Left: left, Right: right})
}

func (b *Builder) Union(types ...NodeID) NodeID {
	return b.list(KindUnionType, 0, NoNodeID, types)
}

func (b *Builder) Intersection(types ...NodeID) NodeID {
	return b.list(KindIntersectionType, 0, NoNodeID, types)
}

func (b *Builder) ArrayOf(elem NodeID) NodeID {
	return b.expr(KindArrayType, 0, ExprData{Left: elem})
}

func (b *Builder) Tuple(elems ...NodeID) NodeID {
	return b.list(KindTupleType, 0, NoNodeID, elems)
}

func (b *Builder) TypeLit(members ...NodeID) NodeID {
	return b.list(KindTypeLiteral, 0, NoNodeID, members)
}

func (b *Builder) FuncType(typeParams, params []NodeID, ret NodeID) NodeID {
	return b.fn(KindFunctionType, 0, FuncData{TypeParams: typeParams, Params: params, Type: ret})
}

func (b *Builder) CtorType(typeParams, params []NodeID, ret NodeID) NodeID {
	return b.fn(KindConstructorType, 0, FuncData{TypeParams: typeParams, Params: params, Type: ret})
}

func (b *Builder) KeyOf(t NodeID) NodeID {
	return b.expr(KindTypeOperator, 0, ExprData{Op: OpKeyof, Left: t})
}

func (b *Builder) IndexedAccess(obj, index NodeID) NodeID {
	return b.expr(KindIndexedAccessType, 0, ExprData{Left: obj, Right: index})
}

// CondType builds `check extends ext ? whenTrue : whenFalse`.
func (b *Builder) CondType(check, ext, whenTrue, whenFalse NodeID) NodeID {
	return b.expr(KindConditionalType, 0, ExprData{Left: check, Right: ext, Then: whenTrue, Else: whenFalse})
}

func (b *Builder) Infer(typeParam NodeID) NodeID {
	return b.expr(KindInferType, 0, ExprData{Left: typeParam})
}

// Mapped builds `{ [tp in constraint as nameType]: typ }`; flags carry
// FlagReadonly, FlagOptional or FlagMinusOptional.
func (b *Builder) Mapped(flags NodeFlags, typeParam, nameType, typ NodeID) NodeID {
	return b.expr(KindMappedType, flags, ExprData{Left: typeParam, Right: typ, Then: nameType})
}

func (b *Builder) TypeQuery(expr NodeID) NodeID {
	return b.expr(KindTypeQuery, 0, ExprData{Left: expr})
}

// Predicate builds `param is typ`; with FlagAsserts and no typ it is `asserts param`.
func (b *Builder) Predicate(flags NodeFlags, param, typ NodeID) NodeID {
	return b.expr(KindTypePredicate, flags, ExprData{Left: param, Right: typ})
}

func (b *Builder) LitType(lit NodeID) NodeID {
	return b.expr(KindLiteralType, 0, ExprData{Left: lit})
}

func (b *Builder) ParenType(t NodeID) NodeID {
	return b.expr(KindParenthesizedType, 0, ExprData{Left: t})
}
