package astio

import (
	"fmt"
	"strconv"

	"stc/internal/ast"
	"stc/internal/source"
)

// Build materialises doc through b and returns the SourceFile node.
// Nodes without a span get synthetic positions from the builder.
func Build(b *ast.Builder, doc *Document) (file ast.NodeID, err error) {
	var text []byte
	if doc.Text != "" {
		text = []byte(doc.Text)
	}
	fileID := b.BeginFileWithText(doc.Path, text)
	bl := &builder{b: b, path: doc.Path, file: fileID}
	defer func() {
		if r := recover(); r != nil {
			be, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			file, err = ast.NoNodeID, be
		}
	}()
	stmts := bl.nodes(doc.Statements)
	return b.EndFile(stmts, doc.Module), nil
}

type builder struct {
	b    *ast.Builder
	path string
	file source.FileID
}

func (bl *builder) fail(n *Node, format string, args ...any) {
	panic(&Error{Path: bl.path, Line: n.line, Msg: fmt.Sprintf(format, args...)})
}

func (bl *builder) nodes(list []*Node) []ast.NodeID {
	if len(list) == 0 {
		return nil
	}
	out := make([]ast.NodeID, 0, len(list))
	for _, n := range list {
		out = append(out, bl.node(n))
	}
	return out
}

// opt builds n when present.
func (bl *builder) opt(n *Node) ast.NodeID {
	if n == nil {
		return ast.NoNodeID
	}
	return bl.node(n)
}

func (bl *builder) req(parent, n *Node, field string) ast.NodeID {
	if n == nil {
		bl.fail(parent, "%s requires %q", parent.Kind, field)
	}
	return bl.node(n)
}

func (bl *builder) flags(n *Node) ast.NodeFlags {
	var out ast.NodeFlags
	for _, name := range n.Flags {
		f, ok := ast.ParseFlag(name)
		if !ok {
			bl.fail(n, "unknown flag %q", name)
		}
		out |= f
	}
	return out
}

func (bl *builder) op(n *Node) ast.Op {
	op, ok := ast.ParseOp(n.Op)
	if !ok {
		bl.fail(n, "unknown operator %q", n.Op)
	}
	return op
}

func (bl *builder) node(n *Node) ast.NodeID {
	kind, ok := ast.KindByName(n.Kind)
	if !ok {
		bl.fail(n, "unknown node kind %q", n.Kind)
	}
	id := bl.construct(kind, n)
	if f := bl.flags(n); f != 0 {
		bl.b.AddFlags(id, f)
	}
	if len(n.Span) == 2 {
		bl.b.SetSpan(id, source.Span{File: bl.file, Start: n.Span[0], End: n.Span[1]})
	} else if len(n.Span) != 0 {
		bl.fail(n, "span must be [start, end]")
	}
	return id
}

func (bl *builder) first(list nodeList) ast.NodeID {
	if len(list) == 0 {
		return ast.NoNodeID
	}
	return bl.node(list[0])
}

func (bl *builder) construct(kind ast.Kind, n *Node) ast.NodeID {
	b := bl.b
	switch kind {
	case ast.KindIdentifier:
		if n.Text == "" {
			bl.fail(n, "identifier without text")
		}
		return b.Ident(n.Text)
	case ast.KindStringLiteral:
		return b.Str(n.Text)
	case ast.KindNumericLiteral:
		if n.Value != nil {
			return b.Num(*n.Value)
		}
		v, err := strconv.ParseFloat(n.Text, 64)
		if err != nil {
			bl.fail(n, "invalid numeric literal %q", n.Text)
		}
		return b.Num(v)
	case ast.KindTrueKeyword:
		return b.True()
	case ast.KindFalseKeyword:
		return b.False()
	case ast.KindNullKeyword:
		return b.Null()
	case ast.KindThisKeyword:
		return b.This()
	case ast.KindObjectLiteral:
		return b.Object(bl.nodes(n.Items)...)
	case ast.KindArrayLiteral:
		return b.Array(bl.nodes(n.Items)...)
	case ast.KindPropertyAssignment:
		return b.PropAssign(bl.req(n, n.Name, "name"), bl.req(n, n.Init, "init"))
	case ast.KindShorthandPropertyAssignment:
		return b.Shorthand(bl.req(n, n.Name, "name"))
	case ast.KindPropertyAccess:
		return b.Prop(bl.req(n, n.Expr, "expr"), bl.req(n, n.Name, "name"))
	case ast.KindElementAccess:
		return b.Elem(bl.req(n, n.Expr, "expr"), bl.req(n, n.Right, "right"))
	case ast.KindCall:
		callee := bl.req(n, n.Expr, "expr")
		return b.Call(callee, bl.nodes(n.TypeArgs), bl.nodes(n.Args)...)
	case ast.KindNew:
		callee := bl.req(n, n.Expr, "expr")
		return b.New(callee, bl.nodes(n.TypeArgs), bl.nodes(n.Args)...)
	case ast.KindParenthesized:
		return b.Paren(bl.req(n, n.Expr, "expr"))
	case ast.KindFunctionExpression:
		return b.FuncExpr(bl.opt(n.Name), bl.nodes(n.TypeParams), bl.nodes(n.Params), bl.opt(n.Type), bl.req(n, n.Body, "body"))
	case ast.KindArrowFunction:
		return b.Arrow(bl.nodes(n.TypeParams), bl.nodes(n.Params), bl.opt(n.Type), bl.req(n, n.Body, "body"))
	case ast.KindClassExpression:
		return b.ClassExpr(bl.opt(n.Name), bl.nodes(n.TypeParams), bl.first(n.Extends), bl.nodes(n.Implements), bl.nodes(n.Members)...)
	case ast.KindPrefixUnary:
		return b.Unary(bl.op(n), 0, bl.req(n, n.Expr, "expr"))
	case ast.KindTypeOf:
		return b.TypeOf(bl.req(n, n.Expr, "expr"))
	case ast.KindBinary:
		left := bl.req(n, n.Left, "left")
		op := bl.op(n)
		return b.Binary(left, op, bl.req(n, n.Right, "right"))
	case ast.KindConditional:
		return b.Cond(bl.req(n, n.Cond, "cond"), bl.req(n, n.Then, "then"), bl.req(n, n.Else, "else"))
	case ast.KindAs:
		return b.As(bl.req(n, n.Expr, "expr"), bl.req(n, n.Type, "type"))
	case ast.KindNonNull:
		return b.NonNull(bl.req(n, n.Expr, "expr"))

	case ast.KindBlock:
		return b.Block(bl.nodes(n.Items)...)
	case ast.KindEmptyStatement:
		return b.Empty()
	case ast.KindVariableStatement:
		return b.VarStmt(0, bl.nodes(n.Items)...)
	case ast.KindVariableDeclaration:
		return b.VarDecl(bl.req(n, n.Name, "name"), bl.opt(n.Type), bl.opt(n.Init))
	case ast.KindExpressionStatement:
		return b.ExprStmt(bl.req(n, n.Expr, "expr"))
	case ast.KindIf:
		return b.If(bl.req(n, n.Cond, "cond"), bl.req(n, n.Then, "then"), bl.opt(n.Else))
	case ast.KindWhile:
		return b.While(bl.req(n, n.Cond, "cond"), bl.req(n, n.Body, "body"))
	case ast.KindDoWhile:
		body := bl.req(n, n.Body, "body")
		return b.DoWhile(body, bl.req(n, n.Cond, "cond"))
	case ast.KindFor:
		return b.For(bl.opt(n.Init), bl.opt(n.Cond), bl.opt(n.Incr), bl.req(n, n.Body, "body"))
	case ast.KindForOf:
		return b.ForOf(bl.req(n, n.Init, "init"), bl.req(n, n.Expr, "expr"), bl.req(n, n.Body, "body"))
	case ast.KindBreak:
		return b.Break(bl.opt(n.Label))
	case ast.KindContinue:
		return b.Continue(bl.opt(n.Label))
	case ast.KindReturn:
		return b.Return(bl.opt(n.Expr))
	case ast.KindThrow:
		return b.Throw(bl.req(n, n.Expr, "expr"))
	case ast.KindLabeled:
		return b.Labeled(bl.req(n, n.Label, "label"), bl.req(n, n.Body, "body"))
	case ast.KindTry:
		return b.Try(bl.req(n, n.Block, "block"), bl.opt(n.Catch), bl.opt(n.Finally))
	case ast.KindCatchClause:
		return b.Catch(bl.opt(n.Init), bl.req(n, n.Block, "block"))
	case ast.KindSwitch:
		return b.Switch(bl.req(n, n.Expr, "expr"), bl.nodes(n.Items)...)
	case ast.KindCaseClause:
		return b.Case(bl.req(n, n.Expr, "expr"), bl.nodes(n.Items)...)
	case ast.KindDefaultClause:
		return b.Default(bl.nodes(n.Items)...)

	case ast.KindFunctionDeclaration:
		return b.Func(0, bl.opt(n.Name), bl.nodes(n.TypeParams), bl.nodes(n.Params), bl.opt(n.Type), bl.opt(n.Body))
	case ast.KindClassDeclaration:
		return b.Class(0, bl.opt(n.Name), bl.nodes(n.TypeParams), bl.first(n.Extends), bl.nodes(n.Implements), bl.nodes(n.Members)...)
	case ast.KindInterfaceDeclaration:
		return b.Interface(0, bl.req(n, n.Name, "name"), bl.nodes(n.TypeParams), bl.nodes(n.Extends), bl.nodes(n.Members)...)
	case ast.KindTypeAliasDeclaration:
		return b.Alias(0, bl.req(n, n.Name, "name"), bl.nodes(n.TypeParams), bl.req(n, n.Type, "type"))
	case ast.KindEnumDeclaration:
		return b.Enum(0, bl.req(n, n.Name, "name"), bl.nodes(n.Members)...)
	case ast.KindEnumMember:
		return b.EnumMember(bl.req(n, n.Name, "name"), bl.opt(n.Init))
	case ast.KindModuleDeclaration:
		return b.Namespace(0, bl.req(n, n.Name, "name"), bl.nodes(n.Members)...)
	case ast.KindImportDeclaration:
		if n.From == "" {
			bl.fail(n, "import requires \"from\"")
		}
		return b.Import(n.From, bl.nodes(n.Items)...)
	case ast.KindImportSpecifier:
		return b.ImportSpec(bl.opt(n.Left), bl.req(n, n.Name, "name"))
	case ast.KindParameter:
		return b.Param(0, bl.req(n, n.Name, "name"), bl.opt(n.Type), bl.opt(n.Init))
	case ast.KindTypeParameter:
		return b.TypeParam(0, bl.req(n, n.Name, "name"), bl.opt(n.Constraint), bl.opt(n.Default))
	case ast.KindPropertyDeclaration:
		return b.PropDecl(0, bl.req(n, n.Name, "name"), bl.opt(n.Type), bl.opt(n.Init))
	case ast.KindMethodDeclaration:
		return b.Method(0, bl.req(n, n.Name, "name"), bl.nodes(n.TypeParams), bl.nodes(n.Params), bl.opt(n.Type), bl.opt(n.Body))
	case ast.KindConstructor:
		return b.Ctor(bl.nodes(n.Params), bl.opt(n.Body))
	case ast.KindPropertySignature:
		return b.PropSig(0, bl.req(n, n.Name, "name"), bl.opt(n.Type))
	case ast.KindMethodSignature:
		return b.MethodSig(0, bl.req(n, n.Name, "name"), bl.nodes(n.TypeParams), bl.nodes(n.Params), bl.opt(n.Type))
	case ast.KindCallSignature:
		return b.CallSig(bl.nodes(n.TypeParams), bl.nodes(n.Params), bl.opt(n.Type))
	case ast.KindConstructSignature:
		return b.CtorSig(bl.nodes(n.TypeParams), bl.nodes(n.Params), bl.opt(n.Type))
	case ast.KindIndexSignature:
		return b.IndexSig(0, bl.req(n, n.Name, "name"), bl.req(n, n.KeyType, "keyType"), bl.req(n, n.Type, "type"))

	case ast.KindAnyKeyword, ast.KindUnknownKeyword, ast.KindNeverKeyword, ast.KindStringKeyword,
		ast.KindNumberKeyword, ast.KindBooleanKeyword, ast.KindVoidKeyword, ast.KindUndefinedKeyword,
		ast.KindObjectKeyword:
		return b.Keyword(kind)
	case ast.KindThisType:
		return b.ThisType()
	case ast.KindTypeReference:
		return b.TypeRef(bl.req(n, n.Name, "name"), bl.nodes(n.TypeArgs)...)
	case ast.KindQualifiedName:
		return b.QName(bl.req(n, n.Left, "left"), bl.req(n, n.Right, "right"))
	case ast.KindUnionType:
		return b.Union(bl.nodes(n.Items)...)
	case ast.KindIntersectionType:
		return b.Intersection(bl.nodes(n.Items)...)
	case ast.KindArrayType:
		return b.ArrayOf(bl.req(n, n.Type, "type"))
	case ast.KindTupleType:
		return b.Tuple(bl.nodes(n.Items)...)
	case ast.KindTypeLiteral:
		return b.TypeLit(bl.nodes(n.Members)...)
	case ast.KindFunctionType:
		return b.FuncType(bl.nodes(n.TypeParams), bl.nodes(n.Params), bl.req(n, n.Type, "type"))
	case ast.KindConstructorType:
		return b.CtorType(bl.nodes(n.TypeParams), bl.nodes(n.Params), bl.req(n, n.Type, "type"))
	case ast.KindTypeOperator:
		return b.KeyOf(bl.req(n, n.Type, "type"))
	case ast.KindIndexedAccessType:
		return b.IndexedAccess(bl.req(n, n.Left, "left"), bl.req(n, n.Right, "right"))
	case ast.KindConditionalType:
		check := bl.req(n, n.Check, "check")
		if len(n.Extends) != 1 {
			bl.fail(n, "conditional type requires exactly one \"extends\" type")
		}
		return b.CondType(check, bl.node(n.Extends[0]), bl.req(n, n.Then, "then"), bl.req(n, n.Else, "else"))
	case ast.KindInferType:
		return b.Infer(bl.req(n, n.Param, "param"))
	case ast.KindMappedType:
		return b.Mapped(0, bl.req(n, n.Param, "param"), bl.opt(n.Expr), bl.req(n, n.Type, "type"))
	case ast.KindTypeQuery:
		return b.TypeQuery(bl.req(n, n.Expr, "expr"))
	case ast.KindTypePredicate:
		return b.Predicate(0, bl.req(n, n.Param, "param"), bl.opt(n.Type))
	case ast.KindLiteralType:
		return b.LitType(bl.req(n, n.Expr, "expr"))
	case ast.KindParenthesizedType:
		return b.ParenType(bl.req(n, n.Type, "type"))
	}
	bl.fail(n, "node kind %s cannot appear in a document", n.Kind)
	return ast.NoNodeID
}
