package astio

import (
	"errors"
	"strings"
	"testing"

	"stc/internal/ast"
	"stc/internal/testkit"
)

const sampleDoc = `
path: a.ts
module: true
statements:
  - kind: VariableStatement
    flags: [let, export]
    span: [0, 30]
    items:
      - kind: VariableDeclaration
        name: x
        type:
          kind: UnionType
          items:
            - {kind: StringKeyword}
            - {kind: NumberKeyword}
        init: {kind: NumericLiteral, text: "1"}
  - kind: If
    cond:
      kind: Binary
      op: "==="
      left: {kind: TypeOf, expr: x}
      right: {kind: StringLiteral, text: string}
    then: {kind: Block, items: []}
`

func TestDecodeAndBuild(t *testing.T) {
	doc, err := Decode(strings.NewReader(sampleDoc), "a.ast.yaml")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	b := ast.NewBuilder(nil, nil)
	file, err := Build(b, doc)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := testkit.CheckTreeInvariants(b.Nodes, b.Sources, file); err != nil {
		t.Fatalf("tree invariants: %v", err)
	}
	fd, ok := b.Nodes.File(file)
	if !ok || !fd.Module || len(fd.Stmts) != 2 {
		t.Fatalf("unexpected file payload: %+v", fd)
	}
	stmt := b.Nodes.Get(fd.Stmts[0])
	if stmt.Kind != ast.KindVariableStatement || stmt.Flags&ast.FlagLet == 0 || stmt.Flags&ast.FlagExport == 0 {
		t.Fatalf("variable statement flags lost: %v %v", stmt.Kind, stmt.Flags)
	}
	if stmt.Span.Start != 0 || stmt.Span.End != 30 {
		t.Fatalf("explicit span ignored: %v", stmt.Span)
	}
	list, _ := b.Nodes.List(fd.Stmts[0])
	decl, _ := b.Nodes.Decl(list.Items[0])
	if b.Text(decl.Name) != "x" || b.Nodes.Kind(decl.Type) != ast.KindUnionType {
		t.Fatalf("declaration decoded wrong")
	}
	ifd, _ := b.Nodes.If(fd.Stmts[1])
	cond, _ := b.Nodes.Expr(ifd.Cond)
	if cond.Op != ast.OpEqEqEq || b.Nodes.Kind(cond.Left) != ast.KindTypeOf {
		t.Fatalf("condition decoded wrong: %+v", cond)
	}
}

func TestBuildReportsUnknownKind(t *testing.T) {
	src := "statements:\n  - kind: Frobnicate\n"
	doc, err := Decode(strings.NewReader(src), "bad.ast.yaml")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	_, err = Build(ast.NewBuilder(nil, nil), doc)
	var de *Error
	if !errors.As(err, &de) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if de.Line != 2 || !strings.Contains(de.Msg, "Frobnicate") {
		t.Fatalf("unexpected error: %v", de)
	}
}

func TestDecodeRejectsUnknownTopLevelField(t *testing.T) {
	if _, err := Decode(strings.NewReader("bogus: 1\n"), "x.ast.yaml"); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}
