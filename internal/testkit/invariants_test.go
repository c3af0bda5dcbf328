package testkit

import (
	"strings"
	"testing"

	"stc/internal/ast"
	"stc/internal/source"
)

func TestCheckTreeInvariants(t *testing.T) {
	b := ast.NewBuilder(nil, nil)
	b.BeginFileWithText("a.ts", []byte("let x = 1;"))
	decl := b.VarDecl(b.Ident("x"), ast.NoNodeID, b.Num(1))
	stmt := b.VarStmt(ast.FlagLet, decl)
	file := b.EndFile([]ast.NodeID{stmt}, false)
	if err := CheckTreeInvariants(b.Nodes, b.Sources, file); err != nil {
		t.Fatalf("valid tree rejected: %v", err)
	}

	b.Nodes.Get(decl).Span = source.Span{File: b.Nodes.Get(decl).Span.File, Start: 3, End: 99}
	if err := CheckTreeInvariants(b.Nodes, b.Sources, file); err == nil || !strings.Contains(err.Error(), "beyond content") {
		t.Fatalf("overlong span accepted: %v", err)
	}

	b.Nodes.Get(decl).Parent = file
	if err := CheckTreeInvariants(b.Nodes, b.Sources, file); err == nil || !strings.Contains(err.Error(), "parent") {
		t.Fatalf("broken parent accepted: %v", err)
	}

	if err := CheckTreeInvariants(b.Nodes, b.Sources, stmt); err == nil {
		t.Fatalf("non-file root accepted")
	}
}
